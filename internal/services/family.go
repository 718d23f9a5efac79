package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"choretracker/internal/domain"
)

type familyService struct {
	familyRepo     domain.FamilyRepository
	userRepo       domain.UserRepository
	tokenIssuer    domain.TokenIssuer
	contextTimeout time.Duration
	now            func() time.Time
}

// NewFamilyService creates a FamilyService. Creating a family re-issues the creator's token
// so the new binding is visible to the client immediately.
func NewFamilyService(familyRepo domain.FamilyRepository, userRepo domain.UserRepository, tokenIssuer domain.TokenIssuer, timeout time.Duration) domain.FamilyService {
	return &familyService{
		familyRepo:     familyRepo,
		userRepo:       userRepo,
		tokenIssuer:    tokenIssuer,
		contextTimeout: timeoutOrDefault(timeout),
		now:            time.Now,
	}
}

func validateFamilyName(name string) error {
	var p problems
	p.name("name", name, true)
	return p.err()
}

func (s *familyService) Create(ctx context.Context, claims domain.Claims, name string) (*domain.Family, string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	name = strings.TrimSpace(name)
	if err := validateFamilyName(name); err != nil {
		return nil, "", err
	}
	if claims.Family.IsBound() {
		return nil, "", domain.ErrAlreadyInFamily
	}

	family := domain.NewFamily(name, claims.UserID, s.now().UTC())
	if err := s.familyRepo.CreateForOwner(ctx, family); err != nil {
		if errors.Is(err, domain.ErrAlreadyInFamily) {
			return nil, "", err
		}
		return nil, "", fmt.Errorf("create family: %w", err)
	}

	owner, err := s.userRepo.GetByID(ctx, claims.UserID)
	if err != nil {
		return nil, "", fmt.Errorf("reload owner: %w", err)
	}
	token, err := s.tokenIssuer.Issue(owner, family.Name)
	if err != nil {
		return nil, "", fmt.Errorf("sign token: %w", err)
	}
	return family, token, nil
}

func (s *familyService) Get(ctx context.Context, claims domain.Claims, id string) (*domain.Family, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	if err := domain.Authorize(claims, id); err != nil {
		return nil, domain.Conceal(err)
	}
	family, err := s.familyRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("get family: %w", err)
	}
	return family, nil
}

func (s *familyService) Rename(ctx context.Context, claims domain.Claims, id, name string) (*domain.Family, error) {
	name = strings.TrimSpace(name)
	if err := validateFamilyName(name); err != nil {
		return nil, err
	}
	family, err := s.Get(ctx, claims, id)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	family.Name = name
	family.UpdatedAt = s.now().UTC()
	if err := s.familyRepo.Update(ctx, family); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("update family: %w", err)
	}
	return family, nil
}

func (s *familyService) ListMembers(ctx context.Context, claims domain.Claims, id string) ([]*domain.User, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	if err := domain.Authorize(claims, id); err != nil {
		return nil, domain.Conceal(err)
	}
	users, err := s.userRepo.ListByFamilyID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("list family members: %w", err)
	}
	return users, nil
}

// Delete removes the caller's family. Only its creator may do so; other members get ErrForbidden.
func (s *familyService) Delete(ctx context.Context, claims domain.Claims, id string) (string, error) {
	family, err := s.Get(ctx, claims, id)
	if err != nil {
		return "", err
	}
	if family.CreatedBy != claims.UserID {
		return "", domain.ErrForbidden
	}

	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	if err := s.familyRepo.Delete(ctx, family.ID, s.now().UTC()); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return "", err
		}
		return "", fmt.Errorf("delete family: %w", err)
	}
	caller, err := s.userRepo.GetByID(ctx, claims.UserID)
	if err != nil {
		return "", fmt.Errorf("reload caller: %w", err)
	}
	token, err := s.tokenIssuer.Issue(caller, "")
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return token, nil
}

func (s *familyService) ListAll(ctx context.Context, claims domain.Claims, params domain.PaginationParams) ([]*domain.Family, int, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	if err := domain.RequireGlobalAdmin(claims); err != nil {
		return nil, 0, err
	}
	families, total, err := s.familyRepo.List(ctx, params)
	if err != nil {
		return nil, 0, fmt.Errorf("list families: %w", err)
	}
	return families, total, nil
}

// familyName resolves the display name for a membership; unbound accounts have none.
func familyName(ctx context.Context, repo domain.FamilyRepository, m domain.Membership) (string, error) {
	id, ok := m.FamilyID()
	if !ok {
		return "", nil
	}
	family, err := repo.GetByID(ctx, id)
	if err != nil {
		return "", err
	}
	return family.Name, nil
}
