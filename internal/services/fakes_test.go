package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"choretracker/internal/domain"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func claimsFor(u *domain.User) domain.Claims {
	return domain.Claims{
		UserID:    u.ID,
		Email:     u.Email,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Role:      u.Role,
		Family:    u.Family,
	}
}

// fakeUserRepo implements domain.UserRepository for tests.
type fakeUserRepo struct {
	mu        sync.Mutex
	byID      map[string]*domain.User
	seq       int
	getErr    error
	updateErr error
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{byID: make(map[string]*domain.User)}
}

// add stores u with a generated id and returns a copy.
func (f *fakeUserRepo) add(email, firstName string, m domain.Membership) *domain.User {
	u := domain.NewUser(email, firstName, "", time.Now(), time.Now())
	u.Family = m
	if err := f.Create(context.Background(), u); err != nil {
		panic(err)
	}
	return u
}

func (f *fakeUserRepo) Create(ctx context.Context, u *domain.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.byID {
		if strings.EqualFold(existing.Email, u.Email) {
			return domain.ErrDuplicateEmail
		}
	}
	f.seq++
	u.ID = fmt.Sprintf("user-%d", f.seq)
	cp := *u
	f.byID[u.ID] = &cp
	return nil
}

func (f *fakeUserRepo) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return nil, f.getErr
	}
	for _, u := range f.byID {
		if strings.EqualFold(u.Email, email) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, domain.ErrUserNotFound
}

func (f *fakeUserRepo) GetByID(ctx context.Context, id string) (*domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return nil, f.getErr
	}
	if u, ok := f.byID[id]; ok {
		cp := *u
		return &cp, nil
	}
	return nil, domain.ErrUserNotFound
}

func (f *fakeUserRepo) Update(ctx context.Context, u *domain.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.updateErr != nil {
		return f.updateErr
	}
	stored, ok := f.byID[u.ID]
	if !ok {
		return domain.ErrUserNotFound
	}
	for id, existing := range f.byID {
		if id != u.ID && strings.EqualFold(existing.Email, u.Email) {
			return domain.ErrDuplicateEmail
		}
	}
	cp := *u
	cp.Family = stored.Family
	cp.Role = stored.Role
	cp.PasswordHash = stored.PasswordHash
	f.byID[u.ID] = &cp
	return nil
}

func (f *fakeUserRepo) ListByFamilyID(ctx context.Context, familyID string) ([]*domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	users := make([]*domain.User, 0)
	for _, u := range f.byID {
		if u.Family.Is(familyID) {
			cp := *u
			users = append(users, &cp)
		}
	}
	sort.Slice(users, func(i, j int) bool { return users[i].ID < users[j].ID })
	return users, nil
}

// bindIfUnbound mirrors the family_id IS NULL guard of the postgres repository.
func (f *fakeUserRepo) bindIfUnbound(userID, familyID string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.byID[userID]
	if !ok || u.Family.IsBound() {
		return false
	}
	u.Family = domain.BoundTo(familyID)
	return true
}

func (f *fakeUserRepo) unbindFamily(familyID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.byID {
		if u.Family.Is(familyID) {
			u.Family = domain.Unbound()
		}
	}
}

func (f *fakeUserRepo) bindEmail(email, familyID string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.byID {
		if strings.EqualFold(u.Email, email) {
			u.Family = domain.BoundTo(familyID)
			return u.ID
		}
	}
	return ""
}

// fakeFamilyRepo implements domain.FamilyRepository for tests.
type fakeFamilyRepo struct {
	mu    sync.Mutex
	byID  map[string]*domain.Family
	seq   int
	users *fakeUserRepo
	err   error
}

func newFakeFamilyRepo(users *fakeUserRepo) *fakeFamilyRepo {
	return &fakeFamilyRepo{byID: make(map[string]*domain.Family), users: users}
}

// add stores a family and binds owner to it.
func (f *fakeFamilyRepo) add(name string, owner *domain.User) *domain.Family {
	fam := domain.NewFamily(name, owner.ID, time.Now())
	if err := f.CreateForOwner(context.Background(), fam); err != nil {
		panic(err)
	}
	owner.Family = domain.BoundTo(fam.ID)
	return fam
}

func (f *fakeFamilyRepo) CreateForOwner(ctx context.Context, fam *domain.Family) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.seq++
	id := fmt.Sprintf("fam-%d", f.seq)
	if !f.users.bindIfUnbound(fam.CreatedBy, id) {
		return domain.ErrAlreadyInFamily
	}
	fam.ID = id
	cp := *fam
	f.byID[id] = &cp
	return nil
}

func (f *fakeFamilyRepo) GetByID(ctx context.Context, id string) (*domain.Family, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if fam, ok := f.byID[id]; ok {
		cp := *fam
		return &cp, nil
	}
	return nil, domain.ErrNotFound
}

func (f *fakeFamilyRepo) Update(ctx context.Context, fam *domain.Family) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.byID[fam.ID]; !ok {
		return domain.ErrNotFound
	}
	cp := *fam
	f.byID[fam.ID] = &cp
	return nil
}

func (f *fakeFamilyRepo) Delete(ctx context.Context, id string, at time.Time) error {
	f.mu.Lock()
	if _, ok := f.byID[id]; !ok {
		f.mu.Unlock()
		return domain.ErrNotFound
	}
	delete(f.byID, id)
	f.mu.Unlock()
	f.users.unbindFamily(id)
	return nil
}

func (f *fakeFamilyRepo) List(ctx context.Context, params domain.PaginationParams) ([]*domain.Family, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	all := make([]*domain.Family, 0, len(f.byID))
	for _, fam := range f.byID {
		cp := *fam
		all = append(all, &cp)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID < all[j].ID })
	start := min(params.Offset(), len(all))
	end := min(start+params.PageSize, len(all))
	return all[start:end], len(all), nil
}

// fakeInvitationRepo implements domain.InvitationRepository with the same conditional
// transitions as the postgres repository.
type fakeInvitationRepo struct {
	mu        sync.Mutex
	byID      map[string]*domain.Invitation
	seq       int
	users     *fakeUserRepo
	families  *fakeFamilyRepo
	createErr error
}

func newFakeInvitationRepo(users *fakeUserRepo, families *fakeFamilyRepo) *fakeInvitationRepo {
	return &fakeInvitationRepo{byID: make(map[string]*domain.Invitation), users: users, families: families}
}

func (f *fakeInvitationRepo) Create(ctx context.Context, inv *domain.Invitation) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return f.createErr
	}
	for id, existing := range f.byID {
		if existing.FamilyID == inv.FamilyID && strings.EqualFold(existing.InviteeEmail, inv.InviteeEmail) &&
			existing.Status == domain.InvitationPending {
			delete(f.byID, id)
		}
	}
	f.seq++
	inv.ID = fmt.Sprintf("inv-%d", f.seq)
	inv.Version = 1
	cp := *inv
	cp.Token = ""
	f.byID[inv.ID] = &cp
	return nil
}

func (f *fakeInvitationRepo) GetByID(ctx context.Context, id string) (*domain.Invitation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if inv, ok := f.byID[id]; ok {
		cp := *inv
		return &cp, nil
	}
	return nil, domain.ErrNotFound
}

func (f *fakeInvitationRepo) GetByTokenHash(ctx context.Context, tokenHash string) (*domain.Invitation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, inv := range f.byID {
		if inv.TokenHash == tokenHash {
			cp := *inv
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (f *fakeInvitationRepo) details(inv *domain.Invitation) *domain.InvitationDetails {
	d := &domain.InvitationDetails{Invitation: *inv}
	if fam, err := f.families.GetByID(context.Background(), inv.FamilyID); err == nil {
		d.FamilyName = fam.Name
	}
	if u, err := f.users.GetByID(context.Background(), inv.InviterID); err == nil {
		d.InviterName = u.DisplayName()
	}
	return d
}

func (f *fakeInvitationRepo) GetDetailsByTokenHash(ctx context.Context, tokenHash string) (*domain.InvitationDetails, error) {
	inv, err := f.GetByTokenHash(ctx, tokenHash)
	if err != nil {
		return nil, err
	}
	return f.details(inv), nil
}

func (f *fakeInvitationRepo) ListPendingByFamilyID(ctx context.Context, familyID string, now time.Time) ([]*domain.InvitationDetails, error) {
	f.mu.Lock()
	pending := make([]*domain.Invitation, 0)
	for _, inv := range f.byID {
		if inv.FamilyID == familyID && inv.Status == domain.InvitationPending && now.Before(inv.ExpiresAt) {
			cp := *inv
			pending = append(pending, &cp)
		}
	}
	f.mu.Unlock()
	sort.Slice(pending, func(i, j int) bool { return pending[i].ID < pending[j].ID })
	list := make([]*domain.InvitationDetails, 0, len(pending))
	for _, inv := range pending {
		list = append(list, f.details(inv))
	}
	return list, nil
}

// transition must be called with f.mu held.
func (f *fakeInvitationRepo) transition(inv *domain.Invitation, status domain.InvitationStatus, now time.Time) error {
	stored, ok := f.byID[inv.ID]
	if !ok || stored.Version != inv.Version || stored.Status != domain.InvitationPending || !now.Before(stored.ExpiresAt) {
		return domain.ErrInvitationNotPending
	}
	stored.Status = status
	stored.Version++
	inv.Status = status
	inv.Version = stored.Version
	return nil
}

func (f *fakeInvitationRepo) Accept(ctx context.Context, inv *domain.Invitation, now time.Time) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.transition(inv, domain.InvitationAccepted, now); err != nil {
		return "", err
	}
	return f.users.bindEmail(inv.InviteeEmail, inv.FamilyID), nil
}

func (f *fakeInvitationRepo) Reject(ctx context.Context, inv *domain.Invitation, now time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.transition(inv, domain.InvitationRejected, now)
}

func (f *fakeInvitationRepo) Reissue(ctx context.Context, inv *domain.Invitation) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	stored, ok := f.byID[inv.ID]
	if !ok || stored.Version != inv.Version {
		return domain.ErrInvitationNotPending
	}
	for id, other := range f.byID {
		if id != inv.ID && other.FamilyID == inv.FamilyID && strings.EqualFold(other.InviteeEmail, inv.InviteeEmail) &&
			other.Status == domain.InvitationPending {
			delete(f.byID, id)
		}
	}
	inv.Version++
	cp := *inv
	cp.Token = ""
	f.byID[inv.ID] = &cp
	return nil
}

func (f *fakeInvitationRepo) Delete(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.byID[id]; !ok {
		return domain.ErrNotFound
	}
	delete(f.byID, id)
	return nil
}

// fakeInviteTokens implements domain.InvitationTokens with predictable tokens.
type fakeInviteTokens struct {
	mu  sync.Mutex
	seq int
	err error
}

func (f *fakeInviteTokens) Generate() (string, string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return "", "", f.err
	}
	f.seq++
	token := fmt.Sprintf("tok-%d", f.seq)
	return token, f.Fingerprint(token), nil
}

func (f *fakeInviteTokens) Fingerprint(token string) string {
	return "fp:" + token
}

// fakeNotifier implements domain.Notifier and domain.EmailService for tests.
type fakeNotifier struct {
	mu         sync.Mutex
	sent       []*domain.InvitationEmailData
	welcomed   []string
	err        error
	welcomeErr error
}

func (f *fakeNotifier) SendInvitation(ctx context.Context, data *domain.InvitationEmailData) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, data)
	return nil
}

func (f *fakeNotifier) SendWelcomeMessage(ctx context.Context, data *domain.WelcomeMessageEmailData) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.welcomeErr != nil {
		return f.welcomeErr
	}
	f.welcomed = append(f.welcomed, data.Email)
	return nil
}

func (f *fakeNotifier) last() *domain.InvitationEmailData {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.sent) == 0 {
		return nil
	}
	return f.sent[len(f.sent)-1]
}

// fakePasswordHasher implements domain.PasswordHasher for tests.
type fakePasswordHasher struct {
	err      error
	compared []string
}

func (f *fakePasswordHasher) Hash(password string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return "hash-" + password, nil
}

func (f *fakePasswordHasher) Compare(hash, password string) error {
	f.compared = append(f.compared, hash)
	if hash != "hash-"+password {
		return errors.New("mismatch")
	}
	return nil
}

// fakeTokenIssuer implements domain.TokenIssuer for tests.
type fakeTokenIssuer struct {
	err        error
	lastUser   *domain.User
	lastFamily string
}

func (f *fakeTokenIssuer) Issue(user *domain.User, familyName string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.lastUser = user
	f.lastFamily = familyName
	return "token-" + user.ID, nil
}

// fakeChoreRepo implements domain.ChoreRepository for tests.
type fakeChoreRepo struct {
	mu   sync.Mutex
	byID map[string]*domain.Chore
	seq  int
	err  error
}

func newFakeChoreRepo() *fakeChoreRepo {
	return &fakeChoreRepo{byID: make(map[string]*domain.Chore)}
}

func (f *fakeChoreRepo) add(familyID, name string) *domain.Chore {
	c := &domain.Chore{FamilyID: familyID, Name: name}
	if err := f.Create(context.Background(), c); err != nil {
		panic(err)
	}
	return c
}

func (f *fakeChoreRepo) Create(ctx context.Context, c *domain.Chore) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.seq++
	c.ID = fmt.Sprintf("chore-%d", f.seq)
	cp := *c
	f.byID[c.ID] = &cp
	return nil
}

func (f *fakeChoreRepo) GetByID(ctx context.Context, id string) (*domain.Chore, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	if c, ok := f.byID[id]; ok {
		cp := *c
		return &cp, nil
	}
	return nil, domain.ErrNotFound
}

func (f *fakeChoreRepo) Update(ctx context.Context, c *domain.Chore) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	stored, ok := f.byID[c.ID]
	if !ok {
		return domain.ErrNotFound
	}
	stored.Name = c.Name
	stored.Description = c.Description
	stored.UpdatedAt = c.UpdatedAt
	return nil
}

func (f *fakeChoreRepo) Delete(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.byID[id]; !ok {
		return domain.ErrNotFound
	}
	delete(f.byID, id)
	return nil
}

func (f *fakeChoreRepo) ListByFamilyID(ctx context.Context, familyID string) ([]*domain.Chore, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	chores := make([]*domain.Chore, 0)
	for _, c := range f.byID {
		if c.FamilyID == familyID {
			cp := *c
			chores = append(chores, &cp)
		}
	}
	sort.Slice(chores, func(i, j int) bool { return chores[i].ID < chores[j].ID })
	return chores, nil
}

func (f *fakeChoreRepo) DeleteMany(ctx context.Context, familyID string, ids []string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, id := range ids {
		if c, ok := f.byID[id]; ok && c.FamilyID == familyID {
			delete(f.byID, id)
			n++
		}
	}
	return n, nil
}

// fakeChoreLogRepo implements domain.ChoreLogRepository; reads derive FamilyID from chores.
type fakeChoreLogRepo struct {
	mu     sync.Mutex
	byID   map[string]*domain.ChoreLog
	seq    int
	chores *fakeChoreRepo
}

func newFakeChoreLogRepo(chores *fakeChoreRepo) *fakeChoreLogRepo {
	return &fakeChoreLogRepo{byID: make(map[string]*domain.ChoreLog), chores: chores}
}

func (f *fakeChoreLogRepo) read(l *domain.ChoreLog) *domain.ChoreLog {
	cp := *l
	if c, err := f.chores.GetByID(context.Background(), l.ChoreID); err == nil {
		cp.FamilyID = c.FamilyID
		cp.ChoreName = c.Name
	}
	return &cp
}

func (f *fakeChoreLogRepo) Create(ctx context.Context, l *domain.ChoreLog) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seq++
	l.ID = fmt.Sprintf("log-%d", f.seq)
	cp := *l
	f.byID[l.ID] = &cp
	return nil
}

func (f *fakeChoreLogRepo) GetByID(ctx context.Context, id string) (*domain.ChoreLog, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if l, ok := f.byID[id]; ok {
		return f.read(l), nil
	}
	return nil, domain.ErrNotFound
}

func (f *fakeChoreLogRepo) Update(ctx context.Context, l *domain.ChoreLog) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.byID[l.ID]; !ok {
		return domain.ErrNotFound
	}
	cp := *l
	f.byID[l.ID] = &cp
	return nil
}

func (f *fakeChoreLogRepo) Delete(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.byID[id]; !ok {
		return domain.ErrNotFound
	}
	delete(f.byID, id)
	return nil
}

func (f *fakeChoreLogRepo) filter(keep func(*domain.ChoreLog) bool) []*domain.ChoreLog {
	f.mu.Lock()
	defer f.mu.Unlock()
	logs := make([]*domain.ChoreLog, 0)
	for _, l := range f.byID {
		if r := f.read(l); keep(r) {
			logs = append(logs, r)
		}
	}
	sort.Slice(logs, func(i, j int) bool { return logs[i].ID < logs[j].ID })
	return logs
}

func (f *fakeChoreLogRepo) ListByFamilyID(ctx context.Context, familyID string) ([]*domain.ChoreLog, error) {
	return f.filter(func(l *domain.ChoreLog) bool { return l.FamilyID == familyID }), nil
}

func (f *fakeChoreLogRepo) ListByUserID(ctx context.Context, userID string) ([]*domain.ChoreLog, error) {
	return f.filter(func(l *domain.ChoreLog) bool { return l.UserID == userID }), nil
}

func (f *fakeChoreLogRepo) ListByChoreID(ctx context.Context, choreID string) ([]*domain.ChoreLog, error) {
	return f.filter(func(l *domain.ChoreLog) bool { return l.ChoreID == choreID }), nil
}

func (f *fakeChoreLogRepo) ListByFamilyIDDue(ctx context.Context, familyID string, from, to time.Time) ([]*domain.ChoreLog, error) {
	return f.filter(func(l *domain.ChoreLog) bool {
		return l.FamilyID == familyID && l.DueDate != nil && !l.DueDate.Before(from) && l.DueDate.Before(to)
	}), nil
}

func (f *fakeChoreLogRepo) DeleteMany(ctx context.Context, familyID string, ids []string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, id := range ids {
		l, ok := f.byID[id]
		if !ok || f.read(l).FamilyID != familyID {
			continue
		}
		delete(f.byID, id)
		n++
	}
	return n, nil
}
