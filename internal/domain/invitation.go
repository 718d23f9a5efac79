package domain

import (
	"context"
	"time"
)

// InvitationStatus is the lifecycle state of an invitation.
type InvitationStatus string

const (
	InvitationPending  InvitationStatus = "pending"
	InvitationAccepted InvitationStatus = "accepted"
	InvitationRejected InvitationStatus = "rejected"
	// InvitationExpired is derived at read time from ExpiresAt; rows keep "pending".
	InvitationExpired InvitationStatus = "expired"
)

// DefaultInvitationTTL is how long an invitation stays acceptable after it is (re)issued.
const DefaultInvitationTTL = 7 * 24 * time.Hour

// Invitation admits InviteeEmail into FamilyID.
// swagger:model Invitation
type Invitation struct {
	ID           string           `json:"id"`
	FamilyID     string           `json:"family_id"`
	InviterID    string           `json:"inviter_id"`
	InviteeEmail string           `json:"invitee_email"`
	Status       InvitationStatus `json:"status"`
	// Token is only populated right after create or resend; storage keeps TokenHash.
	Token     string    `json:"token,omitempty"`
	TokenHash string    `json:"-"`
	Version   int       `json:"-"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// IsExpired reports whether now is at or past ExpiresAt.
func (i *Invitation) IsExpired(now time.Time) bool {
	return !now.Before(i.ExpiresAt)
}

// EffectiveStatus returns the status as observed at now, turning a lapsed pending
// invitation into InvitationExpired.
func (i *Invitation) EffectiveStatus(now time.Time) InvitationStatus {
	if i.Status == InvitationPending && i.IsExpired(now) {
		return InvitationExpired
	}
	return i.Status
}

// CheckOpen returns nil when the invitation can still be accepted or rejected at now.
func (i *Invitation) CheckOpen(now time.Time) error {
	switch i.EffectiveStatus(now) {
	case InvitationPending:
		return nil
	case InvitationExpired:
		return ErrInvitationExpired
	default:
		return ErrInvitationNotPending
	}
}

// Reissue gives the invitation a fresh token and validity window and makes it pending again.
func (i *Invitation) Reissue(token, tokenHash string, now time.Time, ttl time.Duration) {
	i.Token = token
	i.TokenHash = tokenHash
	i.Status = InvitationPending
	i.CreatedAt = now
	i.ExpiresAt = now.Add(ttl)
}

// InvitationDetails is an invitation with denormalized display names.
// swagger:model InvitationDetails
type InvitationDetails struct {
	Invitation
	FamilyName  string `json:"family_name"`
	InviterName string `json:"inviter_name"`
}

// AcceptResult tells the caller whether the invitee already has an account.
// When UserExists is false the invitee should register with the invitation token.
// swagger:model AcceptResult
type AcceptResult struct {
	InvitationID string `json:"invitation_id"`
	FamilyID     string `json:"family_id"`
	Email        string `json:"email"`
	UserExists   bool   `json:"user_exists"`
	UserID       string `json:"user_id,omitempty"`
}

// InvitationTokens mints unguessable invitation tokens and the fingerprints stored in their place.
type InvitationTokens interface {
	Generate() (token, hash string, err error)
	Fingerprint(token string) string
}

// InvitationRepository defines storage for invitations. Transition methods are
// conditional on the version the caller read and fail with ErrInvitationNotPending
// when another request got there first.
type InvitationRepository interface {
	// Create deletes any pending invitation for the same family and email, then inserts inv.
	Create(ctx context.Context, inv *Invitation) error
	GetByID(ctx context.Context, id string) (*Invitation, error)
	GetByTokenHash(ctx context.Context, tokenHash string) (*Invitation, error)
	GetDetailsByTokenHash(ctx context.Context, tokenHash string) (*InvitationDetails, error)
	ListPendingByFamilyID(ctx context.Context, familyID string, now time.Time) ([]*InvitationDetails, error)
	// Accept marks inv accepted and binds the account with the invitee email to the family,
	// atomically. It returns the bound account id, or "" when no such account exists yet.
	Accept(ctx context.Context, inv *Invitation, now time.Time) (userID string, err error)
	Reject(ctx context.Context, inv *Invitation, now time.Time) error
	// Reissue stores inv's new token, window and pending status.
	Reissue(ctx context.Context, inv *Invitation) error
	Delete(ctx context.Context, id string) error
}

// InvitationService runs the invitation lifecycle.
type InvitationService interface {
	Create(ctx context.Context, claims Claims, familyID, inviteeEmail string) (*Invitation, error)
	GetByToken(ctx context.Context, token string) (*InvitationDetails, error)
	ListForFamily(ctx context.Context, claims Claims, familyID string) ([]*InvitationDetails, error)
	Accept(ctx context.Context, token string) (*AcceptResult, error)
	Reject(ctx context.Context, token string) (*Invitation, error)
	Resend(ctx context.Context, claims Claims, id string) (*Invitation, error)
	Delete(ctx context.Context, claims Claims, id string) error
}
