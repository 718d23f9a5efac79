package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"choretracker/internal/domain"
)

type userService struct {
	userRepo       domain.UserRepository
	familyRepo     domain.FamilyRepository
	invitationRepo domain.InvitationRepository
	inviteTokens   domain.InvitationTokens
	hasher         domain.PasswordHasher
	tokenIssuer    domain.TokenIssuer
	emailService   domain.EmailService
	logger         *slog.Logger
	contextTimeout time.Duration
	now            func() time.Time

	dummyOnce sync.Once
	dummy     string
}

// NewUserService creates a UserService with the given repositories and auth ports.
// emailService may be nil, in which case no welcome email is sent.
func NewUserService(
	userRepo domain.UserRepository,
	familyRepo domain.FamilyRepository,
	invitationRepo domain.InvitationRepository,
	inviteTokens domain.InvitationTokens,
	hasher domain.PasswordHasher,
	tokenIssuer domain.TokenIssuer,
	emailService domain.EmailService,
	logger *slog.Logger,
	timeout time.Duration,
) domain.UserService {
	return &userService{
		userRepo:       userRepo,
		familyRepo:     familyRepo,
		invitationRepo: invitationRepo,
		inviteTokens:   inviteTokens,
		hasher:         hasher,
		tokenIssuer:    tokenIssuer,
		emailService:   emailService,
		logger:         logger,
		contextTimeout: timeoutOrDefault(timeout),
		now:            time.Now,
	}
}

func (s *userService) Register(ctx context.Context, in domain.RegisterInput) (string, *domain.User, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	email := normalizeEmail(in.Email)
	var p problems
	p.email("email", email)
	validatePassword(&p, in.Password)
	validateProfile(&p, in.Profile)
	if err := p.err(); err != nil {
		return "", nil, err
	}

	membership := domain.Unbound()
	if token := strings.TrimSpace(in.InvitationToken); token != "" {
		m, err := s.invitedMembership(ctx, token, email)
		if err != nil {
			return "", nil, err
		}
		membership = m
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return "", nil, fmt.Errorf("hash password: %w", err)
	}
	now := s.now().UTC()
	user := domain.NewUser(email, "", "", now, now)
	in.Profile.Apply(user)
	user.PasswordHash = hash
	user.Family = membership
	if err := s.userRepo.Create(ctx, user); err != nil {
		if errors.Is(err, domain.ErrDuplicateEmail) {
			return "", nil, err
		}
		return "", nil, fmt.Errorf("create user: %w", err)
	}

	token, err := s.issue(ctx, user)
	if err != nil {
		return "", nil, err
	}

	if s.emailService != nil {
		data := &domain.WelcomeMessageEmailData{Email: user.Email, FirstName: user.FirstName}
		if err := s.emailService.SendWelcomeMessage(ctx, data); err != nil {
			s.logger.ErrorContext(ctx, "welcome email failed", "user_id", user.ID, "err", err)
		}
	}
	return token, user, nil
}

// invitedMembership checks that token names an accepted invitation addressed to email
// and returns the membership it grants.
func (s *userService) invitedMembership(ctx context.Context, token, email string) (domain.Membership, error) {
	inv, err := s.invitationRepo.GetByTokenHash(ctx, s.inviteTokens.Fingerprint(token))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.Unbound(), domain.NewValidationError("invitation_token is not valid")
		}
		return domain.Unbound(), fmt.Errorf("get invitation: %w", err)
	}
	if inv.Status != domain.InvitationAccepted {
		return domain.Unbound(), domain.NewValidationError("invitation must be accepted before registering")
	}
	if normalizeEmail(inv.InviteeEmail) != email {
		return domain.Unbound(), domain.NewValidationError("email does not match the invitation")
	}
	return domain.BoundTo(inv.FamilyID), nil
}

func (s *userService) Login(ctx context.Context, email, password string) (string, *domain.User, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	email = normalizeEmail(email)
	if email == "" || password == "" {
		return "", nil, domain.ErrInvalidCredentials
	}
	user, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			// Pay the same hashing cost as a wrong password.
			_ = s.hasher.Compare(s.dummyHash(), password)
			return "", nil, domain.ErrInvalidCredentials
		}
		return "", nil, fmt.Errorf("get user: %w", err)
	}
	if err := s.hasher.Compare(user.PasswordHash, password); err != nil {
		return "", nil, domain.ErrInvalidCredentials
	}
	token, err := s.issue(ctx, user)
	if err != nil {
		return "", nil, err
	}
	return token, user, nil
}

// dummyHash is a digest of a random-looking password at the hasher's cost, built once.
func (s *userService) dummyHash() string {
	s.dummyOnce.Do(func() {
		s.dummy, _ = s.hasher.Hash("no-account:" + s.now().Format(time.RFC3339Nano))
	})
	return s.dummy
}

func (s *userService) issue(ctx context.Context, user *domain.User) (string, error) {
	name, err := familyName(ctx, s.familyRepo, user.Family)
	if err != nil {
		return "", fmt.Errorf("get family: %w", err)
	}
	token, err := s.tokenIssuer.Issue(user, name)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return token, nil
}

func (s *userService) GetByID(ctx context.Context, id string) (*domain.User, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	user, err := s.userRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	return user, nil
}

// UpdateProfile changes the caller's own email and contact fields. Nil arguments are left as is.
func (s *userService) UpdateProfile(ctx context.Context, claims domain.Claims, email *string, profile *domain.Profile) (*domain.User, error) {
	var p problems
	if email != nil {
		p.email("email", normalizeEmail(*email))
	}
	if profile != nil {
		validateProfile(&p, *profile)
	}
	if err := p.err(); err != nil {
		return nil, err
	}

	user, err := s.GetByID(ctx, claims.UserID)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	if email != nil {
		user.Email = normalizeEmail(*email)
	}
	if profile != nil {
		profile.Apply(user)
	}
	user.UpdatedAt = s.now().UTC()
	if err := s.userRepo.Update(ctx, user); err != nil {
		if errors.Is(err, domain.ErrDuplicateEmail) || errors.Is(err, domain.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("update user: %w", err)
	}
	return user, nil
}
