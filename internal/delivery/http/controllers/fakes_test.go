package controllers

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"choretracker/internal/delivery/http/helpers"
	"choretracker/internal/delivery/http/middleware"
	"choretracker/internal/domain"

	"github.com/stretchr/testify/require"
)

const (
	smithsID = "8f6d5c1e-2b43-4a7e-9a11-3c2f1d0e5b61"
	jonesID  = "2d0c7b8a-6e5f-4d3c-8b2a-1f0e9d8c7b6a"
	aliceID  = "5a4b3c2d-1e0f-4a9b-8c7d-6e5f4a3b2c1d"
	bobID    = "9e8d7c6b-5a4f-4e3d-8c2b-1a0f9e8d7c6b"
	choreID  = "0c1d2e3f-4a5b-4c6d-8e7f-9a0b1c2d3e4f"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
}

var (
	aliceClaims   = domain.Claims{UserID: aliceID, Email: "alice@example.com", FirstName: "Alice", Role: domain.RoleMember, Family: domain.BoundTo(smithsID)}
	unboundClaims = domain.Claims{UserID: bobID, Email: "bob@example.com", Role: domain.RoleMember, Family: domain.Unbound()}
)

// newRequest builds a request with an optional JSON body, path values and caller claims.
func newRequest(method, target, body string, claims *domain.Claims, pathValues map[string]string) *http.Request {
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, "http://test"+target, r)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range pathValues {
		req.SetPathValue(k, v)
	}
	if claims != nil {
		req = req.WithContext(middleware.SetClaims(req.Context(), *claims))
	}
	return req
}

// decodeEnvelope decodes the response envelope and, when dest is not nil, its data.
func decodeEnvelope(t *testing.T, rr *httptest.ResponseRecorder, dest any) helpers.APIResponse {
	t.Helper()
	var envelope helpers.APIResponse
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&envelope))
	if dest != nil && envelope.Data != nil {
		raw, err := json.Marshal(envelope.Data)
		require.NoError(t, err)
		require.NoError(t, json.Unmarshal(raw, dest))
	}
	return envelope
}

// fakeUserService implements domain.UserService for handler tests.
type fakeUserService struct {
	token       string
	user        *domain.User
	err         error
	getErr      error
	lastInput   domain.RegisterInput
	lastEmail   *string
	lastProfile *domain.Profile
}

func (f *fakeUserService) Register(_ context.Context, in domain.RegisterInput) (string, *domain.User, error) {
	f.lastInput = in
	if f.err != nil {
		return "", nil, f.err
	}
	return f.token, f.user, nil
}

func (f *fakeUserService) Login(_ context.Context, _, _ string) (string, *domain.User, error) {
	if f.err != nil {
		return "", nil, f.err
	}
	return f.token, f.user, nil
}

func (f *fakeUserService) GetByID(_ context.Context, _ string) (*domain.User, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	return f.user, nil
}

func (f *fakeUserService) UpdateProfile(_ context.Context, _ domain.Claims, email *string, profile *domain.Profile) (*domain.User, error) {
	f.lastEmail = email
	f.lastProfile = profile
	if f.err != nil {
		return nil, f.err
	}
	u := *f.user
	if email != nil {
		u.Email = *email
	}
	if profile != nil {
		profile.Apply(&u)
	}
	return &u, nil
}

// fakeFamilyService implements domain.FamilyService for handler tests.
type fakeFamilyService struct {
	family     *domain.Family
	families   []*domain.Family
	total      int
	members    []*domain.User
	token      string
	err        error
	lastParams domain.PaginationParams
	lastName   string
}

func (f *fakeFamilyService) Create(_ context.Context, _ domain.Claims, name string) (*domain.Family, string, error) {
	f.lastName = name
	if f.err != nil {
		return nil, "", f.err
	}
	return f.family, f.token, nil
}

func (f *fakeFamilyService) Get(_ context.Context, c domain.Claims, id string) (*domain.Family, error) {
	if f.err != nil {
		return nil, f.err
	}
	if err := domain.Authorize(c, id); err != nil {
		return nil, domain.Conceal(err)
	}
	return f.family, nil
}

func (f *fakeFamilyService) Rename(_ context.Context, c domain.Claims, id, name string) (*domain.Family, error) {
	f.lastName = name
	if f.err != nil {
		return nil, f.err
	}
	if err := domain.Authorize(c, id); err != nil {
		return nil, domain.Conceal(err)
	}
	fam := *f.family
	fam.Name = name
	return &fam, nil
}

func (f *fakeFamilyService) ListMembers(_ context.Context, c domain.Claims, id string) ([]*domain.User, error) {
	if f.err != nil {
		return nil, f.err
	}
	if err := domain.Authorize(c, id); err != nil {
		return nil, domain.Conceal(err)
	}
	return f.members, nil
}

func (f *fakeFamilyService) Delete(_ context.Context, c domain.Claims, id string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	if err := domain.Authorize(c, id); err != nil {
		return "", domain.Conceal(err)
	}
	return f.token, nil
}

func (f *fakeFamilyService) ListAll(_ context.Context, c domain.Claims, params domain.PaginationParams) ([]*domain.Family, int, error) {
	f.lastParams = params
	if err := domain.RequireGlobalAdmin(c); err != nil {
		return nil, 0, err
	}
	return f.families, f.total, f.err
}

// fakeInvitationService implements domain.InvitationService for handler tests.
type fakeInvitationService struct {
	inv       *domain.Invitation
	details   *domain.InvitationDetails
	list      []*domain.InvitationDetails
	accept    *domain.AcceptResult
	err       error
	lastToken string
	lastID    string
	lastEmail string
}

func (f *fakeInvitationService) Create(_ context.Context, _ domain.Claims, familyID, email string) (*domain.Invitation, error) {
	f.lastID, f.lastEmail = familyID, email
	return f.inv, f.err
}

func (f *fakeInvitationService) GetByToken(_ context.Context, token string) (*domain.InvitationDetails, error) {
	f.lastToken = token
	if f.err != nil {
		return nil, f.err
	}
	return f.details, nil
}

func (f *fakeInvitationService) ListForFamily(_ context.Context, _ domain.Claims, familyID string) ([]*domain.InvitationDetails, error) {
	f.lastID = familyID
	if f.err != nil {
		return nil, f.err
	}
	return f.list, nil
}

func (f *fakeInvitationService) Accept(_ context.Context, token string) (*domain.AcceptResult, error) {
	f.lastToken = token
	if f.err != nil {
		return nil, f.err
	}
	return f.accept, nil
}

func (f *fakeInvitationService) Reject(_ context.Context, token string) (*domain.Invitation, error) {
	f.lastToken = token
	if f.err != nil {
		return nil, f.err
	}
	return f.inv, nil
}

func (f *fakeInvitationService) Resend(_ context.Context, _ domain.Claims, id string) (*domain.Invitation, error) {
	f.lastID = id
	return f.inv, f.err
}

func (f *fakeInvitationService) Delete(_ context.Context, _ domain.Claims, id string) error {
	f.lastID = id
	return f.err
}

// fakeChoreService implements domain.ChoreService for handler tests.
type fakeChoreService struct {
	chore     *domain.Chore
	chores    []*domain.Chore
	deleted   int
	err       error
	lastInput domain.ChoreInput
	lastID    string
	lastIDs   []string
}

func (f *fakeChoreService) Create(_ context.Context, _ domain.Claims, in domain.ChoreInput) (*domain.Chore, error) {
	f.lastInput = in
	if f.err != nil {
		return nil, f.err
	}
	return f.chore, nil
}

func (f *fakeChoreService) Get(_ context.Context, _ domain.Claims, id string) (*domain.Chore, error) {
	f.lastID = id
	if f.err != nil {
		return nil, f.err
	}
	return f.chore, nil
}

func (f *fakeChoreService) Update(_ context.Context, _ domain.Claims, id string, in domain.ChoreInput) (*domain.Chore, error) {
	f.lastID, f.lastInput = id, in
	if f.err != nil {
		return nil, f.err
	}
	return f.chore, nil
}

func (f *fakeChoreService) Delete(_ context.Context, _ domain.Claims, id string) error {
	f.lastID = id
	return f.err
}

func (f *fakeChoreService) List(_ context.Context, _ domain.Claims) ([]*domain.Chore, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.chores, nil
}

func (f *fakeChoreService) DeleteMany(_ context.Context, _ domain.Claims, ids []string) (int, error) {
	f.lastIDs = ids
	return f.deleted, f.err
}

// fakeChoreLogService implements domain.ChoreLogService for handler tests.
type fakeChoreLogService struct {
	entry     *domain.ChoreLog
	entries   []*domain.ChoreLog
	deleted   int
	err       error
	lastInput domain.ChoreLogInput
	lastID    string
	lastIDs   []string
	lastYear  int
	lastWeek  int
}

func (f *fakeChoreLogService) Create(_ context.Context, _ domain.Claims, in domain.ChoreLogInput) (*domain.ChoreLog, error) {
	f.lastInput = in
	if f.err != nil {
		return nil, f.err
	}
	return f.entry, nil
}

func (f *fakeChoreLogService) Update(_ context.Context, _ domain.Claims, id string, in domain.ChoreLogInput) (*domain.ChoreLog, error) {
	f.lastID, f.lastInput = id, in
	if f.err != nil {
		return nil, f.err
	}
	return f.entry, nil
}

func (f *fakeChoreLogService) Delete(_ context.Context, _ domain.Claims, id string) error {
	f.lastID = id
	return f.err
}

func (f *fakeChoreLogService) ListForFamily(_ context.Context, _ domain.Claims) ([]*domain.ChoreLog, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.entries, nil
}

func (f *fakeChoreLogService) ListForUser(_ context.Context, _ domain.Claims, userID string) ([]*domain.ChoreLog, error) {
	f.lastID = userID
	if f.err != nil {
		return nil, f.err
	}
	return f.entries, nil
}

func (f *fakeChoreLogService) ListForChore(_ context.Context, _ domain.Claims, choreID string) ([]*domain.ChoreLog, error) {
	f.lastID = choreID
	if f.err != nil {
		return nil, f.err
	}
	return f.entries, nil
}

func (f *fakeChoreLogService) ListForWeek(_ context.Context, _ domain.Claims, year, week int) ([]*domain.ChoreLog, error) {
	f.lastYear, f.lastWeek = year, week
	if _, _, err := domain.ISOWeekRange(year, week); err != nil {
		return nil, err
	}
	if f.err != nil {
		return nil, f.err
	}
	return f.entries, nil
}

func (f *fakeChoreLogService) DeleteMany(_ context.Context, _ domain.Claims, ids []string) (int, error) {
	f.lastIDs = ids
	return f.deleted, f.err
}
