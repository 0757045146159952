package user

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"accord/internal/identity/models"
	id "accord/pkg/domain"
	"accord/pkg/platform/sentinel"
)

const uniqueViolation = "23505"

// PostgresStore persists identity users in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed user store.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Create(ctx context.Context, u *models.User) error {
	const q = `
		INSERT INTO users (id, email, username, first_name, last_name, password_hash, email_confirmed, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	_, err := s.db.ExecContext(ctx, q,
		uuid.UUID(u.ID), u.Email, u.Username, u.FirstName, u.LastName,
		u.PasswordHash, u.EmailConfirmed, u.CreatedAt, u.UpdatedAt,
	)
	if isUniqueViolation(err) {
		return sentinel.ErrConflict
	}
	if err != nil {
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

func (s *PostgresStore) Update(ctx context.Context, u *models.User) error {
	const q = `
		UPDATE users
		SET email_confirmed = $2, first_name = $3, last_name = $4, updated_at = $5
		WHERE id = $1`
	res, err := s.db.ExecContext(ctx, q,
		uuid.UUID(u.ID), u.EmailConfirmed, u.FirstName, u.LastName, u.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, userID id.UserID) (*models.User, error) {
	return s.findBy(ctx, "id = $1", uuid.UUID(userID))
}

func (s *PostgresStore) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.findBy(ctx, "lower(email) = lower($1)", email)
}

func (s *PostgresStore) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	return s.findBy(ctx, "lower(username) = lower($1)", username)
}

func (s *PostgresStore) findBy(ctx context.Context, where string, arg any) (*models.User, error) {
	q := `
		SELECT id, email, username, first_name, last_name, password_hash, email_confirmed, created_at, updated_at
		FROM users
		WHERE ` + where

	var u models.User
	var rawID uuid.UUID
	err := s.db.QueryRowContext(ctx, q, arg).Scan(
		&rawID, &u.Email, &u.Username, &u.FirstName, &u.LastName,
		&u.PasswordHash, &u.EmailConfirmed, &u.CreatedAt, &u.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}
	u.ID = id.UserID(rawID)
	return &u, nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}
