package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"choretracker/internal/domain"
)

type invitationFixture struct {
	now         time.Time
	users       *fakeUserRepo
	families    *fakeFamilyRepo
	invitations *fakeInvitationRepo
	tokens      *fakeInviteTokens
	notifier    *fakeNotifier
	alice       *domain.User
	smiths      *domain.Family
	carol       *domain.User
	svc         *invitationService
}

func newInvitationFixture(t *testing.T) *invitationFixture {
	t.Helper()
	f := &invitationFixture{
		now:      time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC),
		users:    newFakeUserRepo(),
		tokens:   &fakeInviteTokens{},
		notifier: &fakeNotifier{},
	}
	f.families = newFakeFamilyRepo(f.users)
	f.invitations = newFakeInvitationRepo(f.users, f.families)
	f.alice = f.users.add("alice@example.com", "Alice", domain.Unbound())
	f.smiths = f.families.add("Smiths", f.alice)
	f.carol = f.users.add("carol@example.com", "Carol", domain.Unbound())
	f.families.add("Joneses", f.carol)
	f.svc = NewInvitationService(f.invitations, f.families, f.users, f.tokens, f.notifier, discardLogger(), InvitationConfig{
		AcceptURL:           "https://app.example.com/invite/{token}",
		AllowResendTerminal: true,
		ContextTimeout:      time.Second,
		Now:                 func() time.Time { return f.now },
	}).(*invitationService)
	return f
}

func (f *invitationFixture) invite(t *testing.T, email string) *domain.Invitation {
	t.Helper()
	inv, err := f.svc.Create(context.Background(), claimsFor(f.alice), f.smiths.ID, email)
	require.NoError(t, err)
	return inv
}

func TestInvitationService_Create(t *testing.T) {
	ctx := context.Background()

	t.Run("pending for seven days and emailed", func(t *testing.T) {
		f := newInvitationFixture(t)
		inv, err := f.svc.Create(ctx, claimsFor(f.alice), f.smiths.ID, " Bob@Example.com ")
		require.NoError(t, err)
		assert.Equal(t, domain.InvitationPending, inv.Status)
		assert.Equal(t, "bob@example.com", inv.InviteeEmail)
		assert.Equal(t, f.alice.ID, inv.InviterID)
		assert.Equal(t, f.now.Add(7*24*time.Hour), inv.ExpiresAt)
		assert.Equal(t, "tok-1", inv.Token)
		assert.Equal(t, "fp:tok-1", inv.TokenHash)

		sent := f.notifier.last()
		require.NotNil(t, sent)
		assert.Equal(t, "bob@example.com", sent.Email)
		assert.Equal(t, "Smiths", sent.FamilyName)
		assert.Equal(t, "Alice", sent.InviterName)
		assert.Equal(t, "https://app.example.com/invite/tok-1", sent.AcceptURL)
	})

	t.Run("other family is not found", func(t *testing.T) {
		f := newInvitationFixture(t)
		_, err := f.svc.Create(ctx, claimsFor(f.carol), f.smiths.ID, "bob@example.com")
		require.ErrorIs(t, err, domain.ErrNotFound)
		require.Empty(t, f.invitations.byID)
	})

	t.Run("unbound caller", func(t *testing.T) {
		f := newInvitationFixture(t)
		loner := f.users.add("dave@example.com", "Dave", domain.Unbound())
		_, err := f.svc.Create(ctx, claimsFor(loner), f.smiths.ID, "bob@example.com")
		require.ErrorIs(t, err, domain.ErrNoFamily)
	})

	t.Run("invalid email", func(t *testing.T) {
		f := newInvitationFixture(t)
		_, err := f.svc.Create(ctx, claimsFor(f.alice), f.smiths.ID, "bob")
		require.ErrorIs(t, err, domain.ErrInvalidInput)
	})

	t.Run("existing member", func(t *testing.T) {
		f := newInvitationFixture(t)
		_, err := f.svc.Create(ctx, claimsFor(f.alice), f.smiths.ID, "ALICE@example.com")
		require.ErrorIs(t, err, domain.ErrAlreadyMember)
	})

	t.Run("member of another family can be invited", func(t *testing.T) {
		f := newInvitationFixture(t)
		_, err := f.svc.Create(ctx, claimsFor(f.alice), f.smiths.ID, "carol@example.com")
		require.NoError(t, err)
	})

	t.Run("supersedes the previous pending invitation", func(t *testing.T) {
		f := newInvitationFixture(t)
		first := f.invite(t, "bob@example.com")
		second := f.invite(t, "bob@example.com")

		_, err := f.invitations.GetByID(ctx, first.ID)
		require.ErrorIs(t, err, domain.ErrNotFound)
		list, err := f.svc.ListForFamily(ctx, claimsFor(f.alice), f.smiths.ID)
		require.NoError(t, err)
		require.Len(t, list, 1)
		require.Equal(t, second.ID, list[0].ID)
	})

	t.Run("delivery failure keeps the invitation", func(t *testing.T) {
		f := newInvitationFixture(t)
		f.notifier.err = errors.New("ses throttled")

		inv, err := f.svc.Create(ctx, claimsFor(f.alice), f.smiths.ID, "bob@example.com")
		require.ErrorIs(t, err, domain.ErrDeliveryFailed)
		require.NotNil(t, inv)
		_, err = f.invitations.GetByID(ctx, inv.ID)
		require.NoError(t, err)
	})

	t.Run("token generation failure", func(t *testing.T) {
		f := newInvitationFixture(t)
		f.tokens.err = errors.New("entropy")
		_, err := f.svc.Create(ctx, claimsFor(f.alice), f.smiths.ID, "bob@example.com")
		require.Error(t, err)
		require.Empty(t, f.invitations.byID)
	})
}

func TestInvitationService_GetByToken(t *testing.T) {
	ctx := context.Background()
	f := newInvitationFixture(t)
	inv := f.invite(t, "bob@example.com")

	d, err := f.svc.GetByToken(ctx, inv.Token)
	require.NoError(t, err)
	assert.Equal(t, "Smiths", d.FamilyName)
	assert.Equal(t, "Alice", d.InviterName)
	assert.Equal(t, domain.InvitationPending, d.Status)

	f.now = inv.ExpiresAt
	d, err = f.svc.GetByToken(ctx, inv.Token)
	require.NoError(t, err)
	assert.Equal(t, domain.InvitationExpired, d.Status)

	_, err = f.svc.GetByToken(ctx, "unknown")
	require.ErrorIs(t, err, domain.ErrNotFound)
	_, err = f.svc.GetByToken(ctx, " ")
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestInvitationService_ListForFamily(t *testing.T) {
	ctx := context.Background()
	f := newInvitationFixture(t)
	f.invite(t, "bob@example.com")
	expiring := f.invite(t, "eve@example.com")
	f.invitations.byID[expiring.ID].ExpiresAt = f.now.Add(-time.Minute)

	list, err := f.svc.ListForFamily(ctx, claimsFor(f.alice), f.smiths.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.Equal(t, "bob@example.com", list[0].InviteeEmail)
	require.Empty(t, list[0].Token)

	_, err = f.svc.ListForFamily(ctx, claimsFor(f.carol), f.smiths.ID)
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestInvitationService_Accept(t *testing.T) {
	ctx := context.Background()

	t.Run("no account yet", func(t *testing.T) {
		f := newInvitationFixture(t)
		inv := f.invite(t, "bob@example.com")

		res, err := f.svc.Accept(ctx, inv.Token)
		require.NoError(t, err)
		assert.False(t, res.UserExists)
		assert.Equal(t, f.smiths.ID, res.FamilyID)
		assert.Equal(t, "bob@example.com", res.Email)

		stored, err := f.invitations.GetByID(ctx, inv.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.InvitationAccepted, stored.Status)
	})

	t.Run("existing account is rebound", func(t *testing.T) {
		f := newInvitationFixture(t)
		inv := f.invite(t, "carol@example.com")

		res, err := f.svc.Accept(ctx, inv.Token)
		require.NoError(t, err)
		assert.True(t, res.UserExists)
		assert.Equal(t, f.carol.ID, res.UserID)

		carol, err := f.users.GetByID(ctx, f.carol.ID)
		require.NoError(t, err)
		assert.True(t, carol.Family.Is(f.smiths.ID))
	})

	t.Run("expired", func(t *testing.T) {
		f := newInvitationFixture(t)
		inv := f.invite(t, "bob@example.com")
		f.now = inv.ExpiresAt.Add(time.Second)

		_, err := f.svc.Accept(ctx, inv.Token)
		require.ErrorIs(t, err, domain.ErrInvitationExpired)
	})

	t.Run("exactly at expiry", func(t *testing.T) {
		f := newInvitationFixture(t)
		inv := f.invite(t, "bob@example.com")
		f.now = inv.ExpiresAt

		_, err := f.svc.Accept(ctx, inv.Token)
		require.ErrorIs(t, err, domain.ErrInvitationExpired)
	})

	t.Run("twice", func(t *testing.T) {
		f := newInvitationFixture(t)
		inv := f.invite(t, "bob@example.com")

		_, err := f.svc.Accept(ctx, inv.Token)
		require.NoError(t, err)
		_, err = f.svc.Accept(ctx, inv.Token)
		require.ErrorIs(t, err, domain.ErrInvitationNotPending)
	})

	t.Run("after reject", func(t *testing.T) {
		f := newInvitationFixture(t)
		inv := f.invite(t, "bob@example.com")

		_, err := f.svc.Reject(ctx, inv.Token)
		require.NoError(t, err)
		_, err = f.svc.Accept(ctx, inv.Token)
		require.ErrorIs(t, err, domain.ErrInvitationNotPending)
	})

	t.Run("unknown token", func(t *testing.T) {
		f := newInvitationFixture(t)
		_, err := f.svc.Accept(ctx, "nope")
		require.ErrorIs(t, err, domain.ErrNotFound)
	})
}

func TestInvitationService_Accept_concurrentSingleWinner(t *testing.T) {
	ctx := context.Background()
	f := newInvitationFixture(t)
	inv := f.invite(t, "carol@example.com")

	const racers = 16
	var (
		wg    sync.WaitGroup
		start = make(chan struct{})
		errs  = make([]error, racers)
	)
	for i := range racers {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			_, errs[i] = f.svc.Accept(ctx, inv.Token)
		}(i)
	}
	close(start)
	wg.Wait()

	wins := 0
	for _, err := range errs {
		if err == nil {
			wins++
			continue
		}
		require.ErrorIs(t, err, domain.ErrInvitationNotPending)
	}
	require.Equal(t, 1, wins)

	stored, err := f.invitations.GetByID(ctx, inv.ID)
	require.NoError(t, err)
	require.Equal(t, domain.InvitationAccepted, stored.Status)
	require.Equal(t, 2, stored.Version)
}

func TestInvitationService_Reject(t *testing.T) {
	ctx := context.Background()

	t.Run("pending", func(t *testing.T) {
		f := newInvitationFixture(t)
		inv := f.invite(t, "bob@example.com")

		got, err := f.svc.Reject(ctx, inv.Token)
		require.NoError(t, err)
		require.Equal(t, domain.InvitationRejected, got.Status)
	})

	t.Run("expired", func(t *testing.T) {
		f := newInvitationFixture(t)
		inv := f.invite(t, "bob@example.com")
		f.now = inv.ExpiresAt.Add(time.Hour)

		_, err := f.svc.Reject(ctx, inv.Token)
		require.ErrorIs(t, err, domain.ErrInvitationExpired)
	})

	t.Run("already accepted", func(t *testing.T) {
		f := newInvitationFixture(t)
		inv := f.invite(t, "bob@example.com")
		_, err := f.svc.Accept(ctx, inv.Token)
		require.NoError(t, err)

		_, err = f.svc.Reject(ctx, inv.Token)
		require.ErrorIs(t, err, domain.ErrInvitationNotPending)
	})
}

func TestInvitationService_Resend(t *testing.T) {
	ctx := context.Background()

	t.Run("accepted invitation gets a fresh pending token", func(t *testing.T) {
		f := newInvitationFixture(t)
		inv := f.invite(t, "bob@example.com")
		_, err := f.svc.Accept(ctx, inv.Token)
		require.NoError(t, err)

		f.now = f.now.Add(24 * time.Hour)
		resent, err := f.svc.Resend(ctx, claimsFor(f.alice), inv.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.InvitationPending, resent.Status)
		assert.NotEqual(t, inv.Token, resent.Token)
		assert.Equal(t, f.now, resent.CreatedAt)
		assert.Equal(t, f.now.Add(domain.DefaultInvitationTTL), resent.ExpiresAt)
		assert.Equal(t, "https://app.example.com/invite/"+resent.Token, f.notifier.last().AcceptURL)

		_, err = f.svc.Accept(ctx, inv.Token)
		require.ErrorIs(t, err, domain.ErrNotFound)
		_, err = f.svc.Accept(ctx, resent.Token)
		require.NoError(t, err)
	})

	t.Run("expired invitation is revived", func(t *testing.T) {
		f := newInvitationFixture(t)
		inv := f.invite(t, "bob@example.com")
		f.now = inv.ExpiresAt.Add(time.Hour)

		resent, err := f.svc.Resend(ctx, claimsFor(f.alice), inv.ID)
		require.NoError(t, err)
		_, err = f.svc.Accept(ctx, resent.Token)
		require.NoError(t, err)
	})

	t.Run("terminal resend disabled", func(t *testing.T) {
		f := newInvitationFixture(t)
		f.svc.cfg.AllowResendTerminal = false
		inv := f.invite(t, "bob@example.com")
		_, err := f.svc.Reject(ctx, inv.Token)
		require.NoError(t, err)

		_, err = f.svc.Resend(ctx, claimsFor(f.alice), inv.ID)
		require.ErrorIs(t, err, domain.ErrInvitationNotPending)
	})

	t.Run("other family", func(t *testing.T) {
		f := newInvitationFixture(t)
		inv := f.invite(t, "bob@example.com")

		_, err := f.svc.Resend(ctx, claimsFor(f.carol), inv.ID)
		require.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("delivery failure", func(t *testing.T) {
		f := newInvitationFixture(t)
		inv := f.invite(t, "bob@example.com")
		f.notifier.err = errors.New("bounce")

		resent, err := f.svc.Resend(ctx, claimsFor(f.alice), inv.ID)
		require.ErrorIs(t, err, domain.ErrDeliveryFailed)
		require.NotNil(t, resent)
	})
}

func TestInvitationService_Delete(t *testing.T) {
	ctx := context.Background()
	f := newInvitationFixture(t)
	inv := f.invite(t, "bob@example.com")

	err := f.svc.Delete(ctx, claimsFor(f.carol), inv.ID)
	require.ErrorIs(t, err, domain.ErrNotFound)

	require.NoError(t, f.svc.Delete(ctx, claimsFor(f.alice), inv.ID))
	_, err = f.svc.GetByToken(ctx, inv.Token)
	require.ErrorIs(t, err, domain.ErrNotFound)

	err = f.svc.Delete(ctx, claimsFor(f.alice), inv.ID)
	require.ErrorIs(t, err, domain.ErrNotFound)
}
