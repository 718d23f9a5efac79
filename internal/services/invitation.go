package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"choretracker/internal/domain"
)

// InvitationConfig tunes the invitation lifecycle.
type InvitationConfig struct {
	// TTL is the validity window of a freshly issued or resent invitation.
	TTL time.Duration
	// AcceptURL is the link put in the email; "{token}" is replaced with the invitation token.
	AcceptURL string
	// AllowResendTerminal lets resend revive accepted and rejected invitations.
	AllowResendTerminal bool
	ContextTimeout      time.Duration
	// Now defaults to time.Now.
	Now func() time.Time
}

type invitationService struct {
	invitationRepo domain.InvitationRepository
	familyRepo     domain.FamilyRepository
	userRepo       domain.UserRepository
	tokens         domain.InvitationTokens
	notifier       domain.Notifier
	logger         *slog.Logger
	cfg            InvitationConfig
}

func NewInvitationService(
	invitationRepo domain.InvitationRepository,
	familyRepo domain.FamilyRepository,
	userRepo domain.UserRepository,
	tokens domain.InvitationTokens,
	notifier domain.Notifier,
	logger *slog.Logger,
	cfg InvitationConfig,
) domain.InvitationService {
	if cfg.TTL <= 0 {
		cfg.TTL = domain.DefaultInvitationTTL
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	cfg.ContextTimeout = timeoutOrDefault(cfg.ContextTimeout)
	return &invitationService{
		invitationRepo: invitationRepo,
		familyRepo:     familyRepo,
		userRepo:       userRepo,
		tokens:         tokens,
		notifier:       notifier,
		logger:         logger,
		cfg:            cfg,
	}
}

func (s *invitationService) now() time.Time {
	return s.cfg.Now().UTC()
}

func (s *invitationService) Create(ctx context.Context, claims domain.Claims, familyID, inviteeEmail string) (*domain.Invitation, error) {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.ContextTimeout)
	defer cancel()

	if _, err := domain.RequireFamily(claims); err != nil {
		return nil, err
	}
	familyID = strings.TrimSpace(familyID)
	if err := domain.Authorize(claims, familyID); err != nil {
		return nil, domain.Conceal(err)
	}
	email := normalizeEmail(inviteeEmail)
	var p problems
	p.email("email", email)
	if err := p.err(); err != nil {
		return nil, err
	}

	family, err := s.familyRepo.GetByID(ctx, familyID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("get family: %w", err)
	}

	existing, err := s.userRepo.GetByEmail(ctx, email)
	switch {
	case err == nil && existing.Family.Is(familyID):
		return nil, domain.ErrAlreadyMember
	case err != nil && !errors.Is(err, domain.ErrNotFound):
		return nil, fmt.Errorf("get invitee: %w", err)
	}

	token, hash, err := s.tokens.Generate()
	if err != nil {
		return nil, fmt.Errorf("generate invitation token: %w", err)
	}
	now := s.now()
	inv := &domain.Invitation{
		FamilyID:     familyID,
		InviterID:    claims.UserID,
		InviteeEmail: email,
		Status:       domain.InvitationPending,
		Token:        token,
		TokenHash:    hash,
		CreatedAt:    now,
		ExpiresAt:    now.Add(s.cfg.TTL),
	}
	if err := s.invitationRepo.Create(ctx, inv); err != nil {
		return nil, fmt.Errorf("create invitation: %w", err)
	}

	if err := s.deliver(ctx, inv, family.Name, inviterName(claims)); err != nil {
		return inv, err
	}
	return inv, nil
}

func inviterName(claims domain.Claims) string {
	u := domain.User{Email: claims.Email, FirstName: claims.FirstName, LastName: claims.LastName}
	return u.DisplayName()
}

func (s *invitationService) acceptURL(token string) string {
	return strings.ReplaceAll(s.cfg.AcceptURL, "{token}", url.PathEscape(token))
}

// deliver sends the invitation email. A failure is logged and returned as ErrDeliveryFailed;
// the invitation stays stored and can be resent.
func (s *invitationService) deliver(ctx context.Context, inv *domain.Invitation, familyName, inviter string) error {
	data := &domain.InvitationEmailData{
		Email:       inv.InviteeEmail,
		InviterName: inviter,
		FamilyName:  familyName,
		Token:       inv.Token,
		AcceptURL:   s.acceptURL(inv.Token),
		ExpiresAt:   inv.ExpiresAt,
	}
	if err := s.notifier.SendInvitation(ctx, data); err != nil {
		s.logger.ErrorContext(ctx, "invitation delivery failed", "invitation_id", inv.ID, "err", err)
		return fmt.Errorf("%w: %v", domain.ErrDeliveryFailed, err)
	}
	return nil
}

func (s *invitationService) byToken(ctx context.Context, token string) (*domain.Invitation, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, domain.ErrNotFound
	}
	inv, err := s.invitationRepo.GetByTokenHash(ctx, s.tokens.Fingerprint(token))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("get invitation: %w", err)
	}
	return inv, nil
}

func (s *invitationService) GetByToken(ctx context.Context, token string) (*domain.InvitationDetails, error) {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.ContextTimeout)
	defer cancel()

	token = strings.TrimSpace(token)
	if token == "" {
		return nil, domain.ErrNotFound
	}
	details, err := s.invitationRepo.GetDetailsByTokenHash(ctx, s.tokens.Fingerprint(token))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("get invitation: %w", err)
	}
	details.Status = details.EffectiveStatus(s.now())
	return details, nil
}

func (s *invitationService) ListForFamily(ctx context.Context, claims domain.Claims, familyID string) ([]*domain.InvitationDetails, error) {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.ContextTimeout)
	defer cancel()

	if err := domain.Authorize(claims, familyID); err != nil {
		return nil, domain.Conceal(err)
	}
	list, err := s.invitationRepo.ListPendingByFamilyID(ctx, familyID, s.now())
	if err != nil {
		return nil, fmt.Errorf("list invitations: %w", err)
	}
	return list, nil
}

// Accept consumes a pending invitation. If an account with the invitee email exists it is
// bound to the family in the same transaction; otherwise the invitee registers afterwards
// with the same token.
func (s *invitationService) Accept(ctx context.Context, token string) (*domain.AcceptResult, error) {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.ContextTimeout)
	defer cancel()

	inv, err := s.byToken(ctx, token)
	if err != nil {
		return nil, err
	}
	now := s.now()
	if err := inv.CheckOpen(now); err != nil {
		return nil, err
	}
	userID, err := s.invitationRepo.Accept(ctx, inv, now)
	if err != nil {
		if errors.Is(err, domain.ErrInvitationNotPending) {
			return nil, err
		}
		return nil, fmt.Errorf("accept invitation: %w", err)
	}
	return &domain.AcceptResult{
		InvitationID: inv.ID,
		FamilyID:     inv.FamilyID,
		Email:        inv.InviteeEmail,
		UserExists:   userID != "",
		UserID:       userID,
	}, nil
}

func (s *invitationService) Reject(ctx context.Context, token string) (*domain.Invitation, error) {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.ContextTimeout)
	defer cancel()

	inv, err := s.byToken(ctx, token)
	if err != nil {
		return nil, err
	}
	now := s.now()
	if err := inv.CheckOpen(now); err != nil {
		return nil, err
	}
	if err := s.invitationRepo.Reject(ctx, inv, now); err != nil {
		if errors.Is(err, domain.ErrInvitationNotPending) {
			return nil, err
		}
		return nil, fmt.Errorf("reject invitation: %w", err)
	}
	return inv, nil
}

// load fetches an invitation by id for a member of its family.
func (s *invitationService) load(ctx context.Context, claims domain.Claims, id string) (*domain.Invitation, error) {
	inv, err := s.invitationRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("get invitation: %w", err)
	}
	if err := domain.Authorize(claims, inv.FamilyID); err != nil {
		return nil, domain.Conceal(err)
	}
	return inv, nil
}

func (s *invitationService) Resend(ctx context.Context, claims domain.Claims, id string) (*domain.Invitation, error) {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.ContextTimeout)
	defer cancel()

	inv, err := s.load(ctx, claims, id)
	if err != nil {
		return nil, err
	}
	if !s.cfg.AllowResendTerminal && (inv.Status == domain.InvitationAccepted || inv.Status == domain.InvitationRejected) {
		return nil, domain.ErrInvitationNotPending
	}
	family, err := s.familyRepo.GetByID(ctx, inv.FamilyID)
	if err != nil {
		return nil, fmt.Errorf("get family: %w", err)
	}

	token, hash, err := s.tokens.Generate()
	if err != nil {
		return nil, fmt.Errorf("generate invitation token: %w", err)
	}
	inv.Reissue(token, hash, s.now(), s.cfg.TTL)
	if err := s.invitationRepo.Reissue(ctx, inv); err != nil {
		if errors.Is(err, domain.ErrInvitationNotPending) {
			return nil, err
		}
		return nil, fmt.Errorf("reissue invitation: %w", err)
	}

	if err := s.deliver(ctx, inv, family.Name, inviterName(claims)); err != nil {
		return inv, err
	}
	return inv, nil
}

func (s *invitationService) Delete(ctx context.Context, claims domain.Claims, id string) error {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.ContextTimeout)
	defer cancel()

	if _, err := s.load(ctx, claims, id); err != nil {
		return err
	}
	if err := s.invitationRepo.Delete(ctx, id); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return err
		}
		return fmt.Errorf("delete invitation: %w", err)
	}
	return nil
}
