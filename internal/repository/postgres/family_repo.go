package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"choretracker/internal/domain"
)

type familyRepository struct {
	DB *sql.DB
}

func NewFamilyRepository(db *sql.DB) domain.FamilyRepository {
	return &familyRepository{DB: db}
}

// CreateForOwner inserts the family and binds its creator in one transaction. The
// bind only succeeds while the creator's family_id is still NULL, so of two
// concurrent creations by the same account exactly one commits.
func (r *familyRepository) CreateForOwner(ctx context.Context, f *domain.Family) error {
	return withTx(ctx, r.DB, func(tx *sql.Tx) error {
		insert := `
			INSERT INTO families (name, created_by, created_at, updated_at)
			VALUES ($1, $2, $3, $4)
			RETURNING id
		`
		if err := tx.QueryRowContext(ctx, insert, f.Name, f.CreatedBy, f.CreatedAt, f.UpdatedAt).Scan(&f.ID); err != nil {
			return fmt.Errorf("insert family: %w", err)
		}
		bind := `UPDATE users SET family_id = $1, updated_at = $2 WHERE id = $3 AND family_id IS NULL`
		result, err := tx.ExecContext(ctx, bind, f.ID, f.CreatedAt, f.CreatedBy)
		if err != nil {
			return fmt.Errorf("bind owner: %w", err)
		}
		rows, err := result.RowsAffected()
		if err != nil {
			return err
		}
		if rows == 0 {
			f.ID = ""
			return domain.ErrAlreadyInFamily
		}
		return nil
	})
}

func (r *familyRepository) GetByID(ctx context.Context, id string) (*domain.Family, error) {
	query := `
		SELECT id, name, created_by, created_at, updated_at
		FROM families
		WHERE id = $1
	`
	f := &domain.Family{}
	err := r.DB.QueryRowContext(ctx, query, id).Scan(&f.ID, &f.Name, &f.CreatedBy, &f.CreatedAt, &f.UpdatedAt)
	if err != nil {
		return nil, notFound(err, domain.ErrNotFound)
	}
	return f, nil
}

func (r *familyRepository) Update(ctx context.Context, f *domain.Family) error {
	query := `UPDATE families SET name = $1, updated_at = $2 WHERE id = $3`
	result, err := r.DB.ExecContext(ctx, query, f.Name, f.UpdatedAt, f.ID)
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

// Delete unbinds every member and removes the family. Chores, their logs and the
// family's invitations go with it through ON DELETE CASCADE.
func (r *familyRepository) Delete(ctx context.Context, id string, at time.Time) error {
	return withTx(ctx, r.DB, func(tx *sql.Tx) error {
		unbind := `UPDATE users SET family_id = NULL, updated_at = $2 WHERE family_id = $1`
		if _, err := tx.ExecContext(ctx, unbind, id, at); err != nil {
			return notFound(err, domain.ErrNotFound)
		}
		result, err := tx.ExecContext(ctx, `DELETE FROM families WHERE id = $1`, id)
		if err != nil {
			return fmt.Errorf("delete family: %w", err)
		}
		rows, err := result.RowsAffected()
		if err != nil {
			return err
		}
		if rows == 0 {
			return domain.ErrNotFound
		}
		return nil
	})
}

func (r *familyRepository) List(ctx context.Context, params domain.PaginationParams) ([]*domain.Family, int, error) {
	var total int
	if err := r.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM families`).Scan(&total); err != nil {
		return nil, 0, err
	}
	query := `
		SELECT id, name, created_by, created_at, updated_at
		FROM families
		ORDER BY created_at, id
		LIMIT $1 OFFSET $2
	`
	rows, err := r.DB.QueryContext(ctx, query, params.PageSize, params.Offset())
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	families := make([]*domain.Family, 0)
	for rows.Next() {
		f := &domain.Family{}
		if err := rows.Scan(&f.ID, &f.Name, &f.CreatedBy, &f.CreatedAt, &f.UpdatedAt); err != nil {
			return nil, 0, err
		}
		families = append(families, f)
	}
	return families, total, rows.Err()
}
