package postgres

import (
	"context"
	"database/sql"

	"choretracker/internal/domain"
)

const userColumns = `id, email, password_hash, role, family_id, first_name, last_name,
		phone_number, address, city, state, zip_code, country, created_at, updated_at`

type userRepository struct {
	DB *sql.DB
}

func NewUserRepository(db *sql.DB) domain.UserRepository {
	return &userRepository{DB: db}
}

func scanUser(row rowScanner) (*domain.User, error) {
	u := &domain.User{}
	var familyID sql.NullString
	err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.Role, &familyID, &u.FirstName, &u.LastName,
		&u.PhoneNumber, &u.Address, &u.City, &u.State, &u.ZipCode, &u.Country, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}
	u.Family = domain.BoundTo(familyID.String)
	return u, nil
}

func (r *userRepository) Create(ctx context.Context, u *domain.User) error {
	query := `
		INSERT INTO users (email, password_hash, role, family_id, first_name, last_name,
			phone_number, address, city, state, zip_code, country, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		RETURNING id
	`
	err := r.DB.QueryRowContext(ctx, query, u.Email, u.PasswordHash, u.Role, membershipArg(u.Family),
		u.FirstName, u.LastName, u.PhoneNumber, u.Address, u.City, u.State, u.ZipCode, u.Country,
		u.CreatedAt, u.UpdatedAt).Scan(&u.ID)
	if isUniqueViolation(err) {
		return domain.ErrDuplicateEmail
	}
	return err
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE lower(email) = lower($1)`
	u, err := scanUser(r.DB.QueryRowContext(ctx, query, email))
	if err != nil {
		return nil, notFound(err, domain.ErrUserNotFound)
	}
	return u, nil
}

func (r *userRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	u, err := scanUser(r.DB.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, notFound(err, domain.ErrUserNotFound)
	}
	return u, nil
}

// Update writes the email and profile fields. Role and family binding are not touched.
func (r *userRepository) Update(ctx context.Context, u *domain.User) error {
	query := `
		UPDATE users
		SET email = $1, first_name = $2, last_name = $3, phone_number = $4, address = $5,
			city = $6, state = $7, zip_code = $8, country = $9, updated_at = $10
		WHERE id = $11
	`
	result, err := r.DB.ExecContext(ctx, query, u.Email, u.FirstName, u.LastName, u.PhoneNumber,
		u.Address, u.City, u.State, u.ZipCode, u.Country, u.UpdatedAt, u.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicateEmail
		}
		return notFound(err, domain.ErrUserNotFound)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

func (r *userRepository) ListByFamilyID(ctx context.Context, familyID string) ([]*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE family_id = $1 ORDER BY created_at, id`
	rows, err := r.DB.QueryContext(ctx, query, familyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := make([]*domain.User, 0)
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}
