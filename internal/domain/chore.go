package domain

import (
	"context"
	"fmt"
	"time"
)

// Chore is a household task owned by a family. FamilyID never changes after create.
// swagger:model Chore
type Chore struct {
	ID          string    `json:"id"`
	FamilyID    string    `json:"family_id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// ChoreLog records an assignment or completion of a chore by a family member.
// FamilyID is derived from the chore and is read-only.
// swagger:model ChoreLog
type ChoreLog struct {
	ID               string     `json:"id"`
	ChoreID          string     `json:"chore_id"`
	UserID           string     `json:"user_id"`
	ReportedByUserID string     `json:"reported_by_user_id"`
	DueDate          *time.Time `json:"due_date"`
	IsCompleted      bool       `json:"is_completed"`
	CreatedAt        time.Time  `json:"created_at"`
	FamilyID         string     `json:"family_id"`
	ChoreName        string     `json:"chore_name"`
	UserName         string     `json:"user_name"`
}

// ChoreInput carries the mutable fields of a chore.
type ChoreInput struct {
	Name        string
	Description string
}

// ChoreLogInput carries the mutable fields of a chore log entry.
type ChoreLogInput struct {
	ChoreID     string
	UserID      string
	DueDate     *time.Time
	IsCompleted bool
}

// ChoreRepository defines storage for chores.
type ChoreRepository interface {
	Create(ctx context.Context, chore *Chore) error
	GetByID(ctx context.Context, id string) (*Chore, error)
	Update(ctx context.Context, chore *Chore) error
	Delete(ctx context.Context, id string) error
	ListByFamilyID(ctx context.Context, familyID string) ([]*Chore, error)
	// DeleteMany removes the chores among ids that belong to familyID and returns how many were removed.
	DeleteMany(ctx context.Context, familyID string, ids []string) (int, error)
}

// ChoreLogRepository defines storage for chore logs. Reads fill FamilyID from the chore.
type ChoreLogRepository interface {
	Create(ctx context.Context, log *ChoreLog) error
	GetByID(ctx context.Context, id string) (*ChoreLog, error)
	Update(ctx context.Context, log *ChoreLog) error
	Delete(ctx context.Context, id string) error
	ListByFamilyID(ctx context.Context, familyID string) ([]*ChoreLog, error)
	ListByUserID(ctx context.Context, userID string) ([]*ChoreLog, error)
	ListByChoreID(ctx context.Context, choreID string) ([]*ChoreLog, error)
	ListByFamilyIDDue(ctx context.Context, familyID string, from, to time.Time) ([]*ChoreLog, error)
	// DeleteMany removes the entries among ids whose chore belongs to familyID and returns how many were removed.
	DeleteMany(ctx context.Context, familyID string, ids []string) (int, error)
}

// ChoreService defines chore operations scoped to the caller's family.
type ChoreService interface {
	Create(ctx context.Context, claims Claims, in ChoreInput) (*Chore, error)
	Get(ctx context.Context, claims Claims, id string) (*Chore, error)
	Update(ctx context.Context, claims Claims, id string, in ChoreInput) (*Chore, error)
	Delete(ctx context.Context, claims Claims, id string) error
	List(ctx context.Context, claims Claims) ([]*Chore, error)
	DeleteMany(ctx context.Context, claims Claims, ids []string) (int, error)
}

// ChoreLogService defines chore log operations scoped to the caller's family.
type ChoreLogService interface {
	Create(ctx context.Context, claims Claims, in ChoreLogInput) (*ChoreLog, error)
	Update(ctx context.Context, claims Claims, id string, in ChoreLogInput) (*ChoreLog, error)
	Delete(ctx context.Context, claims Claims, id string) error
	ListForFamily(ctx context.Context, claims Claims) ([]*ChoreLog, error)
	ListForUser(ctx context.Context, claims Claims, userID string) ([]*ChoreLog, error)
	ListForChore(ctx context.Context, claims Claims, choreID string) ([]*ChoreLog, error)
	ListForWeek(ctx context.Context, claims Claims, year, week int) ([]*ChoreLog, error)
	DeleteMany(ctx context.Context, claims Claims, ids []string) (int, error)
}

// ISOWeekRange returns [Monday 00:00 UTC, next Monday) of ISO week week in year.
func ISOWeekRange(year, week int) (from, to time.Time, err error) {
	if year < 1 || year > 9999 {
		return time.Time{}, time.Time{}, NewValidationError("year must be between 1 and 9999")
	}
	// 28 December always falls in the last ISO week of its year.
	_, weeks := time.Date(year, time.December, 28, 0, 0, 0, 0, time.UTC).ISOWeek()
	if week < 1 || week > weeks {
		return time.Time{}, time.Time{}, NewValidationError(fmt.Sprintf("week must be between 1 and %d", weeks))
	}
	// 4 January always falls in ISO week 1.
	jan4 := time.Date(year, time.January, 4, 0, 0, 0, 0, time.UTC)
	monday := jan4.AddDate(0, 0, -((int(jan4.Weekday()) + 6) % 7))
	from = monday.AddDate(0, 0, (week-1)*7)
	return from, from.AddDate(0, 0, 7), nil
}
