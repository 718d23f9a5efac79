package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"choretracker/internal/domain"
)

type choreLogService struct {
	logRepo        domain.ChoreLogRepository
	choreRepo      domain.ChoreRepository
	userRepo       domain.UserRepository
	contextTimeout time.Duration
	now            func() time.Time
}

func NewChoreLogService(logRepo domain.ChoreLogRepository, choreRepo domain.ChoreRepository, userRepo domain.UserRepository, timeout time.Duration) domain.ChoreLogService {
	return &choreLogService{
		logRepo:        logRepo,
		choreRepo:      choreRepo,
		userRepo:       userRepo,
		contextTimeout: timeoutOrDefault(timeout),
		now:            time.Now,
	}
}

// familyChore returns the chore if it belongs to the caller's family.
func (s *choreLogService) familyChore(ctx context.Context, claims domain.Claims, id string) (*domain.Chore, error) {
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

// familyMember returns the account if it belongs to the caller's family.
func (s *choreLogService) familyMember(ctx context.Context, claims domain.Claims, id string) (*domain.User, error) {
	user, err := s.userRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	familyID, _ := user.Family.FamilyID()
	if err := domain.Authorize(claims, familyID); err != nil {
		return nil, domain.ErrUserNotFound
	}
	return user, nil
}

func (s *choreLogService) Create(ctx context.Context, claims domain.Claims, in domain.ChoreLogInput) (*domain.ChoreLog, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	familyID, err := domain.RequireFamily(claims)
	if err != nil {
		return nil, err
	}
	in.ChoreID = strings.TrimSpace(in.ChoreID)
	in.UserID = strings.TrimSpace(in.UserID)
	var p problems
	if in.ChoreID == "" {
		p.add("chore_id is required")
	}
	if in.UserID == "" {
		p.add("user_id is required")
	}
	if err := p.err(); err != nil {
		return nil, err
	}

	chore, err := s.familyChore(ctx, claims, in.ChoreID)
	if err != nil {
		return nil, err
	}
	assignee, err := s.familyMember(ctx, claims, in.UserID)
	if err != nil {
		return nil, err
	}
	entry := &domain.ChoreLog{
		ChoreID:          chore.ID,
		UserID:           assignee.ID,
		ReportedByUserID: claims.UserID,
		DueDate:          in.DueDate,
		IsCompleted:      in.IsCompleted,
		CreatedAt:        s.now().UTC(),
		FamilyID:         familyID,
		ChoreName:        chore.Name,
		UserName:         assignee.DisplayName(),
	}
	if err := s.logRepo.Create(ctx, entry); err != nil {
		return nil, fmt.Errorf("create chore log: %w", err)
	}
	return entry, nil
}

func (s *choreLogService) load(ctx context.Context, claims domain.Claims, id string) (*domain.ChoreLog, error) {
	entry, err := s.logRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("get chore log: %w", err)
	}
	if err := domain.Authorize(claims, entry.FamilyID); err != nil {
		return nil, domain.Conceal(err)
	}
	return entry, nil
}

// Update changes the due date and completion flag. A non-empty ChoreID or UserID
// reassigns the entry, within the caller's family only.
func (s *choreLogService) Update(ctx context.Context, claims domain.Claims, id string, in domain.ChoreLogInput) (*domain.ChoreLog, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	entry, err := s.load(ctx, claims, id)
	if err != nil {
		return nil, err
	}
	if choreID := strings.TrimSpace(in.ChoreID); choreID != "" && choreID != entry.ChoreID {
		chore, err := s.familyChore(ctx, claims, choreID)
		if err != nil {
			return nil, err
		}
		entry.ChoreID = chore.ID
		entry.ChoreName = chore.Name
	}
	if userID := strings.TrimSpace(in.UserID); userID != "" && userID != entry.UserID {
		assignee, err := s.familyMember(ctx, claims, userID)
		if err != nil {
			return nil, err
		}
		entry.UserID = assignee.ID
		entry.UserName = assignee.DisplayName()
	}
	entry.DueDate = in.DueDate
	entry.IsCompleted = in.IsCompleted
	if err := s.logRepo.Update(ctx, entry); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("update chore log: %w", err)
	}
	return entry, nil
}

func (s *choreLogService) Delete(ctx context.Context, claims domain.Claims, id string) error {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	if _, err := s.load(ctx, claims, id); err != nil {
		return err
	}
	if err := s.logRepo.Delete(ctx, id); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return err
		}
		return fmt.Errorf("delete chore log: %w", err)
	}
	return nil
}

func (s *choreLogService) ListForFamily(ctx context.Context, claims domain.Claims) ([]*domain.ChoreLog, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	familyID, err := domain.RequireFamily(claims)
	if err != nil {
		return nil, err
	}
	logs, err := s.logRepo.ListByFamilyID(ctx, familyID)
	if err != nil {
		return nil, fmt.Errorf("list chore logs: %w", err)
	}
	return logs, nil
}

// ListForUser lists a family member's entries. Entries left over from a previous family
// of that member are filtered out.
func (s *choreLogService) ListForUser(ctx context.Context, claims domain.Claims, userID string) ([]*domain.ChoreLog, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	familyID, err := domain.RequireFamily(claims)
	if err != nil {
		return nil, err
	}
	if _, err := s.familyMember(ctx, claims, userID); err != nil {
		return nil, err
	}
	logs, err := s.logRepo.ListByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list chore logs: %w", err)
	}
	own := make([]*domain.ChoreLog, 0, len(logs))
	for _, l := range logs {
		if l.FamilyID == familyID {
			own = append(own, l)
		}
	}
	return own, nil
}

func (s *choreLogService) ListForChore(ctx context.Context, claims domain.Claims, choreID string) ([]*domain.ChoreLog, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	chore, err := s.familyChore(ctx, claims, choreID)
	if err != nil {
		return nil, err
	}
	logs, err := s.logRepo.ListByChoreID(ctx, chore.ID)
	if err != nil {
		return nil, fmt.Errorf("list chore logs: %w", err)
	}
	return logs, nil
}

// ListForWeek lists the family's entries due in the given ISO week.
func (s *choreLogService) ListForWeek(ctx context.Context, claims domain.Claims, year, week int) ([]*domain.ChoreLog, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	familyID, err := domain.RequireFamily(claims)
	if err != nil {
		return nil, err
	}
	from, to, err := domain.ISOWeekRange(year, week)
	if err != nil {
		return nil, err
	}
	logs, err := s.logRepo.ListByFamilyIDDue(ctx, familyID, from, to)
	if err != nil {
		return nil, fmt.Errorf("list chore logs: %w", err)
	}
	return logs, nil
}

// DeleteMany deletes the entries among ids that belong to the caller's family; the rest are skipped.
func (s *choreLogService) DeleteMany(ctx context.Context, claims domain.Claims, ids []string) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	familyID, err := domain.RequireFamily(claims)
	if err != nil {
		return 0, err
	}
	unique := uniqueIDs(ids)
	if len(unique) == 0 {
		return 0, domain.NewValidationError("ids must contain at least one chore log id")
	}
	n, err := s.logRepo.DeleteMany(ctx, familyID, unique)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidInput) {
			return 0, err
		}
		return 0, fmt.Errorf("delete chore logs: %w", err)
	}
	return n, nil
}
