package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"choretracker/internal/domain"
)

type choreService struct {
	choreRepo      domain.ChoreRepository
	contextTimeout time.Duration
	now            func() time.Time
}

func NewChoreService(choreRepo domain.ChoreRepository, timeout time.Duration) domain.ChoreService {
	return &choreService{
		choreRepo:      choreRepo,
		contextTimeout: timeoutOrDefault(timeout),
		now:            time.Now,
	}
}

func normalizeChoreInput(in domain.ChoreInput) (domain.ChoreInput, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Description = strings.TrimSpace(in.Description)
	var p problems
	p.name("name", in.Name, true)
	if utf8.RuneCountInString(in.Description) > maxTextLength {
		p.add("description must be at most 1000 characters")
	}
	return in, p.err()
}

func (s *choreService) Create(ctx context.Context, claims domain.Claims, in domain.ChoreInput) (*domain.Chore, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	familyID, err := domain.RequireFamily(claims)
	if err != nil {
		return nil, err
	}
	in, err = normalizeChoreInput(in)
	if err != nil {
		return nil, err
	}
	now := s.now().UTC()
	chore := &domain.Chore{
		FamilyID:    familyID,
		Name:        in.Name,
		Description: in.Description,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.choreRepo.Create(ctx, chore); err != nil {
		return nil, fmt.Errorf("create chore: %w", err)
	}
	return chore, nil
}

// load returns the chore only if it belongs to the caller's family.
func (s *choreService) load(ctx context.Context, claims domain.Claims, id string) (*domain.Chore, error) {
	chore, err := s.choreRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("get chore: %w", err)
	}
	if err := domain.Authorize(claims, chore.FamilyID); err != nil {
		return nil, domain.Conceal(err)
	}
	return chore, nil
}

func (s *choreService) Get(ctx context.Context, claims domain.Claims, id string) (*domain.Chore, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	return s.load(ctx, claims, id)
}

func (s *choreService) Update(ctx context.Context, claims domain.Claims, id string, in domain.ChoreInput) (*domain.Chore, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	in, err := normalizeChoreInput(in)
	if err != nil {
		return nil, err
	}
	chore, err := s.load(ctx, claims, id)
	if err != nil {
		return nil, err
	}
	chore.Name = in.Name
	chore.Description = in.Description
	chore.UpdatedAt = s.now().UTC()
	if err := s.choreRepo.Update(ctx, chore); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("update chore: %w", err)
	}
	return chore, nil
}

func (s *choreService) Delete(ctx context.Context, claims domain.Claims, id string) error {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	if _, err := s.load(ctx, claims, id); err != nil {
		return err
	}
	if err := s.choreRepo.Delete(ctx, id); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return err
		}
		return fmt.Errorf("delete chore: %w", err)
	}
	return nil
}

func (s *choreService) List(ctx context.Context, claims domain.Claims) ([]*domain.Chore, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	familyID, err := domain.RequireFamily(claims)
	if err != nil {
		return nil, err
	}
	chores, err := s.choreRepo.ListByFamilyID(ctx, familyID)
	if err != nil {
		return nil, fmt.Errorf("list chores: %w", err)
	}
	return chores, nil
}

// DeleteMany removes the listed chores of the caller's family. Ids of other families
// are ignored and not counted.
func (s *choreService) DeleteMany(ctx context.Context, claims domain.Claims, ids []string) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	familyID, err := domain.RequireFamily(claims)
	if err != nil {
		return 0, err
	}
	unique := uniqueIDs(ids)
	if len(unique) == 0 {
		return 0, domain.NewValidationError("ids must contain at least one chore id")
	}
	n, err := s.choreRepo.DeleteMany(ctx, familyID, unique)
	if err != nil {
		return 0, fmt.Errorf("delete chores: %w", err)
	}
	return n, nil
}
