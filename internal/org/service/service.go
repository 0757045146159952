package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"accord/internal/org/models"
	id "accord/pkg/domain"
	"accord/pkg/platform/sentinel"
)

// DefaultInviteTTL bounds how long an invitation stays acceptable.
const DefaultInviteTTL = 7 * 24 * time.Hour

// InvitationStore persists org membership invitations.
type InvitationStore interface {
	Create(ctx context.Context, inv *models.Invitation) error
	Update(ctx context.Context, inv *models.Invitation) error
	FindByID(ctx context.Context, invID id.InvitationID) (*models.Invitation, error)
	Find(ctx context.Context, userID id.UserID, orgID id.OrgID, role models.Role) (*models.Invitation, error)
	ListByUser(ctx context.Context, userID id.UserID) ([]*models.Invitation, error)
}

var ErrInvalidRole = errors.New("invalid role")

// Service manages organization membership invitations. Creating an
// invitation that already exists for the same user, org and role returns the
// existing one, so callers can retry safely.
type Service struct {
	invitations InvitationStore
	logger      *slog.Logger
	ttl         time.Duration

	now func() time.Time
}

func New(invitations InvitationStore, logger *slog.Logger) *Service {
	return &Service{
		invitations: invitations,
		logger:      logger,
		ttl:         DefaultInviteTTL,
		now:         time.Now,
	}
}

// Invite creates a pending invitation. Idempotent per (user, org, role):
// a duplicate returns the invitation already on record.
func (s *Service) Invite(ctx context.Context, userID id.UserID, orgID id.OrgID, role models.Role) (*models.Invitation, error) {
	if !models.ValidRole(role) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidRole, role)
	}

	inv := models.New(userID, orgID, role, s.now().UTC(), s.ttl)
	err := s.invitations.Create(ctx, inv)
	if errors.Is(err, sentinel.ErrConflict) {
		existing, findErr := s.invitations.Find(ctx, userID, orgID, role)
		if findErr != nil {
			return nil, fmt.Errorf("find existing invitation: %w", findErr)
		}
		return existing, nil
	}
	if err != nil {
		return nil, fmt.Errorf("create invitation: %w", err)
	}

	s.logger.InfoContext(ctx, "invitation created",
		"invitation_id", inv.ID.String(),
		"user_id", userID.String(),
		"org_id", orgID.String(),
		"role", string(role),
	)
	return inv, nil
}

// Accept marks the invitation accepted. Repeats are no-ops; accepting a
// rejected or expired invitation surfaces the sentinel from the model.
func (s *Service) Accept(ctx context.Context, invID id.InvitationID) error {
	return s.decide(ctx, invID, "accepted", (*models.Invitation).Accept)
}

// Reject marks the invitation rejected. Repeats are no-ops.
func (s *Service) Reject(ctx context.Context, invID id.InvitationID) error {
	return s.decide(ctx, invID, "rejected", (*models.Invitation).Reject)
}

func (s *Service) decide(ctx context.Context, invID id.InvitationID, verb string, apply func(*models.Invitation, time.Time) (bool, error)) error {
	inv, err := s.invitations.FindByID(ctx, invID)
	if err != nil {
		return fmt.Errorf("find invitation: %w", err)
	}

	changed, err := apply(inv, s.now().UTC())
	if err != nil {
		return fmt.Errorf("invitation %s: %w", inv.ID.String(), err)
	}
	if !changed {
		return nil
	}

	if err := s.invitations.Update(ctx, inv); err != nil {
		return fmt.Errorf("update invitation: %w", err)
	}
	s.logger.InfoContext(ctx, "invitation "+verb, "invitation_id", inv.ID.String())
	return nil
}

// ListByUser returns all invitations addressed to the user.
func (s *Service) ListByUser(ctx context.Context, userID id.UserID) ([]*models.Invitation, error) {
	return s.invitations.ListByUser(ctx, userID)
}
