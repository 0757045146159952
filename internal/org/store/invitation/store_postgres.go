package invitation

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"accord/internal/org/models"
	id "accord/pkg/domain"
	"accord/pkg/platform/sentinel"
)

const uniqueViolation = "23505"

// PostgresStore persists invitations in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Create(ctx context.Context, inv *models.Invitation) error {
	const q = `
		INSERT INTO org_membership_invitations (id, user_id, org_id, role, created_at, expires_at, accepted_at, rejected_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	_, err := s.db.ExecContext(ctx, q,
		uuid.UUID(inv.ID), uuid.UUID(inv.UserID), uuid.UUID(inv.OrgID), string(inv.Role),
		inv.CreatedAt, inv.ExpiresAt, inv.AcceptedAt, inv.RejectedAt,
	)
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
		return sentinel.ErrConflict
	}
	if err != nil {
		return fmt.Errorf("create invitation: %w", err)
	}
	return nil
}

func (s *PostgresStore) Update(ctx context.Context, inv *models.Invitation) error {
	const q = `
		UPDATE org_membership_invitations
		SET accepted_at = $2, rejected_at = $3
		WHERE id = $1`
	res, err := s.db.ExecContext(ctx, q, uuid.UUID(inv.ID), inv.AcceptedAt, inv.RejectedAt)
	if err != nil {
		return fmt.Errorf("update invitation: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, invID id.InvitationID) (*models.Invitation, error) {
	const q = selectInvitation + ` WHERE id = $1`
	return scanInvitation(s.db.QueryRowContext(ctx, q, uuid.UUID(invID)))
}

func (s *PostgresStore) Find(ctx context.Context, userID id.UserID, orgID id.OrgID, role models.Role) (*models.Invitation, error) {
	const q = selectInvitation + ` WHERE user_id = $1 AND org_id = $2 AND role = $3`
	return scanInvitation(s.db.QueryRowContext(ctx, q, uuid.UUID(userID), uuid.UUID(orgID), string(role)))
}

func (s *PostgresStore) ListByUser(ctx context.Context, userID id.UserID) ([]*models.Invitation, error) {
	const q = selectInvitation + ` WHERE user_id = $1 ORDER BY created_at`
	rows, err := s.db.QueryContext(ctx, q, uuid.UUID(userID))
	if err != nil {
		return nil, fmt.Errorf("list invitations: %w", err)
	}
	defer rows.Close()

	var out []*models.Invitation
	for rows.Next() {
		inv, err := scanInvitation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, inv)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list invitations: %w", err)
	}
	return out, nil
}

const selectInvitation = `
	SELECT id, user_id, org_id, role, created_at, expires_at, accepted_at, rejected_at
	FROM org_membership_invitations`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanInvitation(row rowScanner) (*models.Invitation, error) {
	var inv models.Invitation
	var rawID, rawUserID, rawOrgID uuid.UUID
	var role string
	var acceptedAt, rejectedAt sql.NullTime
	err := row.Scan(&rawID, &rawUserID, &rawOrgID, &role, &inv.CreatedAt, &inv.ExpiresAt, &acceptedAt, &rejectedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan invitation: %w", err)
	}
	inv.ID = id.InvitationID(rawID)
	inv.UserID = id.UserID(rawUserID)
	inv.OrgID = id.OrgID(rawOrgID)
	inv.Role = models.Role(role)
	if acceptedAt.Valid {
		t := acceptedAt.Time
		inv.AcceptedAt = &t
	}
	if rejectedAt.Valid {
		t := rejectedAt.Time
		inv.RejectedAt = &t
	}
	return &inv, nil
}
