package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/lib/pq"

	"choretracker/internal/domain"
)

const choreLogSelect = `
		SELECT l.id, l.chore_id, l.user_id, l.reported_by_user_id, l.due_date, l.is_completed, l.created_at,
			c.family_id, c.name, u.first_name, u.last_name, u.email
		FROM chore_logs l
		JOIN chores c ON c.id = l.chore_id
		JOIN users u ON u.id = l.user_id
`

type choreLogRepository struct {
	DB *sql.DB
}

func NewChoreLogRepository(db *sql.DB) domain.ChoreLogRepository {
	return &choreLogRepository{DB: db}
}

func scanChoreLog(row rowScanner) (*domain.ChoreLog, error) {
	l := &domain.ChoreLog{}
	var dueDate sql.NullTime
	assignee := &domain.User{}
	err := row.Scan(&l.ID, &l.ChoreID, &l.UserID, &l.ReportedByUserID, &dueDate, &l.IsCompleted, &l.CreatedAt,
		&l.FamilyID, &l.ChoreName, &assignee.FirstName, &assignee.LastName, &assignee.Email)
	if err != nil {
		return nil, err
	}
	if dueDate.Valid {
		l.DueDate = &dueDate.Time
	}
	l.UserName = assignee.DisplayName()
	return l, nil
}

func dueDateArg(d *domain.ChoreLog) sql.NullTime {
	if d.DueDate == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *d.DueDate, Valid: true}
}

func (r *choreLogRepository) Create(ctx context.Context, l *domain.ChoreLog) error {
	query := `
		INSERT INTO chore_logs (chore_id, user_id, reported_by_user_id, due_date, is_completed, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`
	return r.DB.QueryRowContext(ctx, query, l.ChoreID, l.UserID, l.ReportedByUserID, dueDateArg(l),
		l.IsCompleted, l.CreatedAt).Scan(&l.ID)
}

func (r *choreLogRepository) GetByID(ctx context.Context, id string) (*domain.ChoreLog, error) {
	l, err := scanChoreLog(r.DB.QueryRowContext(ctx, choreLogSelect+` WHERE l.id = $1`, id))
	if err != nil {
		return nil, notFound(err, domain.ErrNotFound)
	}
	return l, nil
}

func (r *choreLogRepository) Update(ctx context.Context, l *domain.ChoreLog) error {
	query := `
		UPDATE chore_logs
		SET chore_id = $1, user_id = $2, due_date = $3, is_completed = $4
		WHERE id = $5
	`
	result, err := r.DB.ExecContext(ctx, query, l.ChoreID, l.UserID, dueDateArg(l), l.IsCompleted, l.ID)
	if err != nil {
		return notFound(err, domain.ErrNotFound)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *choreLogRepository) Delete(ctx context.Context, id string) error {
	result, err := r.DB.ExecContext(ctx, `DELETE FROM chore_logs WHERE id = $1`, id)
	if err != nil {
		return notFound(err, domain.ErrNotFound)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *choreLogRepository) list(ctx context.Context, where string, args ...any) ([]*domain.ChoreLog, error) {
	rows, err := r.DB.QueryContext(ctx, choreLogSelect+where+` ORDER BY l.created_at DESC, l.id`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	logs := make([]*domain.ChoreLog, 0)
	for rows.Next() {
		l, err := scanChoreLog(rows)
		if err != nil {
			return nil, err
		}
		logs = append(logs, l)
	}
	return logs, rows.Err()
}

func (r *choreLogRepository) ListByFamilyID(ctx context.Context, familyID string) ([]*domain.ChoreLog, error) {
	return r.list(ctx, ` WHERE c.family_id = $1`, familyID)
}

func (r *choreLogRepository) ListByUserID(ctx context.Context, userID string) ([]*domain.ChoreLog, error) {
	return r.list(ctx, ` WHERE l.user_id = $1`, userID)
}

func (r *choreLogRepository) ListByChoreID(ctx context.Context, choreID string) ([]*domain.ChoreLog, error) {
	return r.list(ctx, ` WHERE l.chore_id = $1`, choreID)
}

// ListByFamilyIDDue lists the family's entries due in [from, to). Entries without a due date are left out.
func (r *choreLogRepository) ListByFamilyIDDue(ctx context.Context, familyID string, from, to time.Time) ([]*domain.ChoreLog, error) {
	return r.list(ctx, ` WHERE c.family_id = $1 AND l.due_date >= $2 AND l.due_date < $3`, familyID, from, to)
}

// DeleteMany only removes entries whose chore belongs to familyID.
func (r *choreLogRepository) DeleteMany(ctx context.Context, familyID string, ids []string) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	query := `
		DELETE FROM chore_logs l
		USING chores c
		WHERE c.id = l.chore_id AND c.family_id = $1 AND l.id = ANY($2::uuid[])
	`
	result, err := r.DB.ExecContext(ctx, query, familyID, pq.Array(ids))
	if err != nil {
		return 0, notFound(err, domain.ErrInvalidInput)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(rows), nil
}
