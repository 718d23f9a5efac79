package postgres

import (
	"context"
	"database/sql"

	"github.com/lib/pq"

	"choretracker/internal/domain"
)

type choreRepository struct {
	DB *sql.DB
}

func NewChoreRepository(db *sql.DB) domain.ChoreRepository {
	return &choreRepository{DB: db}
}

// Create returns ErrNoFamily when the family no longer exists, e.g. a token issued
// before the family was deleted.
func (r *choreRepository) Create(ctx context.Context, c *domain.Chore) error {
	query := `
		INSERT INTO chores (family_id, name, description, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`
	err := r.DB.QueryRowContext(ctx, query, c.FamilyID, c.Name, c.Description, c.CreatedAt, c.UpdatedAt).Scan(&c.ID)
	if isForeignKeyViolation(err) {
		return domain.ErrNoFamily
	}
	return err
}

func (r *choreRepository) GetByID(ctx context.Context, id string) (*domain.Chore, error) {
	query := `
		SELECT id, family_id, name, description, created_at, updated_at
		FROM chores
		WHERE id = $1
	`
	c := &domain.Chore{}
	err := r.DB.QueryRowContext(ctx, query, id).Scan(&c.ID, &c.FamilyID, &c.Name, &c.Description, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, notFound(err, domain.ErrNotFound)
	}
	return c, nil
}

// Update writes name and description; family_id is immutable.
func (r *choreRepository) Update(ctx context.Context, c *domain.Chore) error {
	query := `UPDATE chores SET name = $1, description = $2, updated_at = $3 WHERE id = $4`
	result, err := r.DB.ExecContext(ctx, query, c.Name, c.Description, c.UpdatedAt, c.ID)
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

func (r *choreRepository) Delete(ctx context.Context, id string) error {
	result, err := r.DB.ExecContext(ctx, `DELETE FROM chores WHERE id = $1`, id)
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

func (r *choreRepository) ListByFamilyID(ctx context.Context, familyID string) ([]*domain.Chore, error) {
	query := `
		SELECT id, family_id, name, description, created_at, updated_at
		FROM chores
		WHERE family_id = $1
		ORDER BY name, id
	`
	rows, err := r.DB.QueryContext(ctx, query, familyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	chores := make([]*domain.Chore, 0)
	for rows.Next() {
		c := &domain.Chore{}
		if err := rows.Scan(&c.ID, &c.FamilyID, &c.Name, &c.Description, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, err
		}
		chores = append(chores, c)
	}
	return chores, rows.Err()
}

// DeleteMany only removes rows whose family_id matches, so foreign ids in the batch are skipped.
func (r *choreRepository) DeleteMany(ctx context.Context, familyID string, ids []string) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	query := `DELETE FROM chores WHERE family_id = $1 AND id = ANY($2::uuid[])`
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
