package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"accord/internal/profile/models"
	id "accord/pkg/domain"
	"accord/pkg/platform/sentinel"
)

const uniqueViolation = "23505"

// PostgresStore persists profiles in PostgreSQL. Each unit of work is a
// database transaction; repository calls stage mutations on the transaction
// and Commit makes them durable in one step.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed profile store.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Begin(ctx context.Context) (UnitOfWork, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	return &postgresUoW{tx: tx}, nil
}

type postgresUoW struct {
	tx *sql.Tx
}

func (u *postgresUoW) Profiles() Repository { return u }

func (u *postgresUoW) Add(ctx context.Context, p *models.Profile) error {
	const q = `
		INSERT INTO profiles (id, user_id, email, username, first_name, last_name, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	_, err := u.tx.ExecContext(ctx, q,
		uuid.UUID(p.ID), uuid.UUID(p.UserID), p.Email, p.Username,
		p.FirstName, p.LastName, string(p.Status), p.CreatedAt, p.UpdatedAt,
	)
	if isUniqueViolation(err) {
		return sentinel.ErrConflict
	}
	if err != nil {
		return fmt.Errorf("add profile: %w", err)
	}
	return nil
}

func (u *postgresUoW) GetByUserID(ctx context.Context, userID id.UserID) (*models.Profile, error) {
	const q = `
		SELECT id, user_id, email, username, first_name, last_name, status, created_at, updated_at
		FROM profiles
		WHERE user_id = $1`

	var p models.Profile
	var rawID, rawUserID uuid.UUID
	var status string
	err := u.tx.QueryRowContext(ctx, q, uuid.UUID(userID)).Scan(
		&rawID, &rawUserID, &p.Email, &p.Username, &p.FirstName, &p.LastName,
		&status, &p.CreatedAt, &p.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get profile by user id: %w", err)
	}
	p.ID = id.ProfileID(rawID)
	p.UserID = id.UserID(rawUserID)
	p.Status = models.Status(status)
	return &p, nil
}

func (u *postgresUoW) ConfirmEmail(ctx context.Context, email string, confirmedAt time.Time) error {
	// Setting Active twice is harmless; the WHERE clause only keys on email,
	// so a repeated confirmation still matches and stays a no-op.
	const q = `
		UPDATE profiles
		SET status = $2, updated_at = $3
		WHERE lower(email) = lower($1)`
	res, err := u.tx.ExecContext(ctx, q, email, string(models.StatusActive), confirmedAt)
	if err != nil {
		return fmt.Errorf("confirm email: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (u *postgresUoW) Commit(ctx context.Context) error {
	if err := u.tx.Commit(); err != nil {
		if isUniqueViolation(err) {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("commit unit of work: %w", err)
	}
	return nil
}

func (u *postgresUoW) Rollback(_ context.Context) error {
	if err := u.tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		return fmt.Errorf("rollback unit of work: %w", err)
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}
