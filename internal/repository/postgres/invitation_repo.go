package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"choretracker/internal/domain"
)

const invitationColumns = `i.id, i.family_id, i.inviter_id, i.invitee_email, i.status, i.token_hash,
		i.version, i.created_at, i.expires_at`

const invitationDetailsQuery = `
		SELECT ` + invitationColumns + `, f.name, u.first_name, u.last_name, u.email
		FROM invitations i
		JOIN families f ON f.id = i.family_id
		JOIN users u ON u.id = i.inviter_id
`

type invitationRepository struct {
	DB *sql.DB
}

func NewInvitationRepository(db *sql.DB) domain.InvitationRepository {
	return &invitationRepository{DB: db}
}

func scanInvitation(row rowScanner) (*domain.Invitation, error) {
	inv := &domain.Invitation{}
	err := row.Scan(&inv.ID, &inv.FamilyID, &inv.InviterID, &inv.InviteeEmail, &inv.Status, &inv.TokenHash,
		&inv.Version, &inv.CreatedAt, &inv.ExpiresAt)
	if err != nil {
		return nil, err
	}
	return inv, nil
}

func scanInvitationDetails(row rowScanner) (*domain.InvitationDetails, error) {
	d := &domain.InvitationDetails{}
	inviter := &domain.User{}
	err := row.Scan(&d.ID, &d.FamilyID, &d.InviterID, &d.InviteeEmail, &d.Status, &d.TokenHash,
		&d.Version, &d.CreatedAt, &d.ExpiresAt, &d.FamilyName, &inviter.FirstName, &inviter.LastName, &inviter.Email)
	if err != nil {
		return nil, err
	}
	d.InviterName = inviter.DisplayName()
	return d, nil
}

// Create supersedes any pending invitation for the same family and invitee before inserting.
func (r *invitationRepository) Create(ctx context.Context, inv *domain.Invitation) error {
	return withTx(ctx, r.DB, func(tx *sql.Tx) error {
		supersede := `
			DELETE FROM invitations
			WHERE family_id = $1 AND lower(invitee_email) = lower($2) AND status = 'pending'
		`
		if _, err := tx.ExecContext(ctx, supersede, inv.FamilyID, inv.InviteeEmail); err != nil {
			return fmt.Errorf("supersede pending invitations: %w", err)
		}
		insert := `
			INSERT INTO invitations (family_id, inviter_id, invitee_email, status, token_hash, version, created_at, expires_at)
			VALUES ($1, $2, $3, $4, $5, 1, $6, $7)
			RETURNING id
		`
		err := tx.QueryRowContext(ctx, insert, inv.FamilyID, inv.InviterID, inv.InviteeEmail, inv.Status,
			inv.TokenHash, inv.CreatedAt, inv.ExpiresAt).Scan(&inv.ID)
		if err != nil {
			if isUniqueViolation(err) {
				return domain.ErrInvitationConflict
			}
			return fmt.Errorf("insert invitation: %w", err)
		}
		inv.Version = 1
		return nil
	})
}

func (r *invitationRepository) GetByID(ctx context.Context, id string) (*domain.Invitation, error) {
	query := `SELECT ` + invitationColumns + ` FROM invitations i WHERE i.id = $1`
	inv, err := scanInvitation(r.DB.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, notFound(err, domain.ErrNotFound)
	}
	return inv, nil
}

func (r *invitationRepository) GetByTokenHash(ctx context.Context, tokenHash string) (*domain.Invitation, error) {
	query := `SELECT ` + invitationColumns + ` FROM invitations i WHERE i.token_hash = $1`
	inv, err := scanInvitation(r.DB.QueryRowContext(ctx, query, tokenHash))
	if err != nil {
		return nil, notFound(err, domain.ErrNotFound)
	}
	return inv, nil
}

func (r *invitationRepository) GetDetailsByTokenHash(ctx context.Context, tokenHash string) (*domain.InvitationDetails, error) {
	query := invitationDetailsQuery + ` WHERE i.token_hash = $1`
	d, err := scanInvitationDetails(r.DB.QueryRowContext(ctx, query, tokenHash))
	if err != nil {
		return nil, notFound(err, domain.ErrNotFound)
	}
	return d, nil
}

func (r *invitationRepository) ListPendingByFamilyID(ctx context.Context, familyID string, now time.Time) ([]*domain.InvitationDetails, error) {
	query := invitationDetailsQuery + `
		WHERE i.family_id = $1 AND i.status = 'pending' AND i.expires_at > $2
		ORDER BY i.created_at DESC, i.id
	`
	rows, err := r.DB.QueryContext(ctx, query, familyID, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	list := make([]*domain.InvitationDetails, 0)
	for rows.Next() {
		d, err := scanInvitationDetails(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, d)
	}
	return list, rows.Err()
}

// transition moves a pending, unexpired invitation at the read version to status.
func transition(ctx context.Context, tx *sql.Tx, inv *domain.Invitation, status domain.InvitationStatus, now time.Time) error {
	query := `
		UPDATE invitations
		SET status = $1, version = version + 1
		WHERE id = $2 AND version = $3 AND status = 'pending' AND expires_at > $4
	`
	result, err := tx.ExecContext(ctx, query, status, inv.ID, inv.Version, now)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return domain.ErrInvitationNotPending
	}
	inv.Status = status
	inv.Version++
	return nil
}

func (r *invitationRepository) Accept(ctx context.Context, inv *domain.Invitation, now time.Time) (string, error) {
	var userID string
	err := withTx(ctx, r.DB, func(tx *sql.Tx) error {
		if err := transition(ctx, tx, inv, domain.InvitationAccepted, now); err != nil {
			return err
		}
		bind := `
			UPDATE users SET family_id = $1, updated_at = $2
			WHERE lower(email) = lower($3)
			RETURNING id
		`
		err := tx.QueryRowContext(ctx, bind, inv.FamilyID, now, inv.InviteeEmail).Scan(&userID)
		if errors.Is(err, sql.ErrNoRows) {
			userID = ""
			return nil
		}
		return err
	})
	if err != nil {
		return "", err
	}
	return userID, nil
}

func (r *invitationRepository) Reject(ctx context.Context, inv *domain.Invitation, now time.Time) error {
	return withTx(ctx, r.DB, func(tx *sql.Tx) error {
		return transition(ctx, tx, inv, domain.InvitationRejected, now)
	})
}

func (r *invitationRepository) Reissue(ctx context.Context, inv *domain.Invitation) error {
	return withTx(ctx, r.DB, func(tx *sql.Tx) error {
		supersede := `
			DELETE FROM invitations
			WHERE family_id = $1 AND lower(invitee_email) = lower($2) AND status = 'pending' AND id <> $3
		`
		if _, err := tx.ExecContext(ctx, supersede, inv.FamilyID, inv.InviteeEmail, inv.ID); err != nil {
			return fmt.Errorf("supersede pending invitations: %w", err)
		}
		update := `
			UPDATE invitations
			SET token_hash = $1, status = $2, created_at = $3, expires_at = $4, version = version + 1
			WHERE id = $5 AND version = $6
		`
		result, err := tx.ExecContext(ctx, update, inv.TokenHash, inv.Status, inv.CreatedAt, inv.ExpiresAt, inv.ID, inv.Version)
		if err != nil {
			if isUniqueViolation(err) {
				return domain.ErrInvitationConflict
			}
			return err
		}
		rows, err := result.RowsAffected()
		if err != nil {
			return err
		}
		if rows == 0 {
			return domain.ErrInvitationNotPending
		}
		inv.Version++
		return nil
	})
}

func (r *invitationRepository) Delete(ctx context.Context, id string) error {
	result, err := r.DB.ExecContext(ctx, `DELETE FROM invitations WHERE id = $1`, id)
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
