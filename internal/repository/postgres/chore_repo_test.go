package postgres

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/require"

	"choretracker/internal/domain"
)

var choreRowColumns = []string{"id", "family_id", "name", "description", "created_at", "updated_at"}

func TestChoreRepository_Create(t *testing.T) {
	ts := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`INSERT INTO chores \(family_id, name, description, created_at, updated_at\)`).
		WithArgs("fam-1", "Dishes", "after dinner", ts, ts).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("chore-1"))

	c := &domain.Chore{FamilyID: "fam-1", Name: "Dishes", Description: "after dinner", CreatedAt: ts, UpdatedAt: ts}
	require.NoError(t, NewChoreRepository(db).Create(context.Background(), c))
	require.Equal(t, "chore-1", c.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestChoreRepository_Create_deletedFamily(t *testing.T) {
	ts := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`INSERT INTO chores`).
		WillReturnError(&pq.Error{Code: "23503", Constraint: "chores_family_id_fkey"})

	c := &domain.Chore{FamilyID: "fam-gone", Name: "Dishes", CreatedAt: ts, UpdatedAt: ts}
	err = NewChoreRepository(db).Create(context.Background(), c)
	require.ErrorIs(t, err, domain.ErrNoFamily)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestChoreRepository_GetByID(t *testing.T) {
	ctx := context.Background()
	ts := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		id      string
		mock    func(mock sqlmock.Sqlmock)
		want    *domain.Chore
		errIs   error
		wantErr bool
	}{
		{
			name: "success",
			id:   "chore-1",
			mock: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(`SELECT id, family_id, name, description, created_at, updated_at`).
					WithArgs("chore-1").
					WillReturnRows(sqlmock.NewRows(choreRowColumns).AddRow("chore-1", "fam-1", "Dishes", "", ts, ts))
			},
			want: &domain.Chore{ID: "chore-1", FamilyID: "fam-1", Name: "Dishes", CreatedAt: ts, UpdatedAt: ts},
		},
		{
			name: "not found",
			id:   "chore-missing",
			mock: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(`FROM chores`).WillReturnError(sql.ErrNoRows)
			},
			wantErr: true,
			errIs:   domain.ErrNotFound,
		},
		{
			name: "malformed id",
			id:   "nope",
			mock: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(`FROM chores`).WillReturnError(&pq.Error{Code: "22P02"})
			},
			wantErr: true,
			errIs:   domain.ErrNotFound,
		},
		{
			name: "db error",
			id:   "chore-1",
			mock: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(`FROM chores`).WillReturnError(sql.ErrConnDone)
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock, err := sqlmock.New()
			require.NoError(t, err)
			defer db.Close()

			tt.mock(mock)
			got, err := NewChoreRepository(db).GetByID(ctx, tt.id)
			if tt.wantErr {
				require.Error(t, err)
				if tt.errIs != nil {
					require.ErrorIs(t, err, tt.errIs)
				} else {
					require.NotErrorIs(t, err, domain.ErrNotFound)
				}
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
			require.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestChoreRepository_UpdateAndDelete(t *testing.T) {
	ctx := context.Background()
	ts := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec(`UPDATE chores SET name = \$1, description = \$2, updated_at = \$3 WHERE id = \$4`).
		WithArgs("Laundry", "", ts, "chore-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`DELETE FROM chores WHERE id = \$1`).
		WithArgs("chore-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`DELETE FROM chores WHERE id = \$1`).
		WithArgs("chore-1").
		WillReturnResult(sqlmock.NewResult(0, 0))

	repo := NewChoreRepository(db)
	require.NoError(t, repo.Update(ctx, &domain.Chore{ID: "chore-1", Name: "Laundry", UpdatedAt: ts}))
	require.NoError(t, repo.Delete(ctx, "chore-1"))
	require.ErrorIs(t, repo.Delete(ctx, "chore-1"), domain.ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestChoreRepository_ListByFamilyID(t *testing.T) {
	ts := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`WHERE family_id = \$1`).
		WithArgs("fam-1").
		WillReturnRows(sqlmock.NewRows(choreRowColumns).
			AddRow("chore-1", "fam-1", "Dishes", "", ts, ts).
			AddRow("chore-2", "fam-1", "Laundry", "", ts, ts))

	chores, err := NewChoreRepository(db).ListByFamilyID(context.Background(), "fam-1")
	require.NoError(t, err)
	require.Len(t, chores, 2)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestChoreRepository_DeleteMany(t *testing.T) {
	ctx := context.Background()

	t.Run("scoped to family", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectExec(`DELETE FROM chores WHERE family_id = \$1 AND id = ANY\(\$2::uuid\[\]\)`).
			WithArgs("fam-1", sqlmock.AnyArg()).
			WillReturnResult(sqlmock.NewResult(0, 1))

		n, err := NewChoreRepository(db).DeleteMany(ctx, "fam-1", []string{"chore-1", "chore-of-other-family"})
		require.NoError(t, err)
		require.Equal(t, 1, n)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("empty batch skips the query", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		n, err := NewChoreRepository(db).DeleteMany(ctx, "fam-1", nil)
		require.NoError(t, err)
		require.Zero(t, n)
		require.NoError(t, mock.ExpectationsWereMet())
	})
}
