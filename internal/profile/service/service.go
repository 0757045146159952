package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"accord/internal/platform/metrics"
	"accord/internal/profile/models"
	"accord/internal/profile/store"
	id "accord/pkg/domain"
	"accord/pkg/platform/sentinel"
)

// Service implements the idempotent profile operations invoked by the event
// consumers. Every operation opens exactly one unit of work and commits at
// most once; a failure before Commit leaves nothing behind.
type Service struct {
	store   store.Factory
	logger  *slog.Logger
	metrics *metrics.Metrics
}

func New(factory store.Factory, logger *slog.Logger, m *metrics.Metrics) *Service {
	return &Service{store: factory, logger: logger, metrics: m}
}

// CreateInitialProfile creates the unconfirmed profile for a registration
// event. Idempotent with respect to repeated delivery: an existing profile
// for the user id is a silent skip, and a uniqueness-constraint violation
// from a concurrent delivery is normalized to the same outcome. The
// constraint, not a lock, is the backstop against the check-then-insert
// race.
func (s *Service) CreateInitialProfile(ctx context.Context, userID id.UserID, email, username string, createdAt time.Time) error {
	uow, err := s.store.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin unit of work: %w", err)
	}
	defer func() { _ = uow.Rollback(ctx) }()

	_, err = uow.Profiles().GetByUserID(ctx, userID)
	if err == nil {
		s.logger.InfoContext(ctx, "profile already exists, skipping",
			"user_id", userID.String(),
		)
		return nil
	}
	if !errors.Is(err, sentinel.ErrNotFound) {
		return fmt.Errorf("check existing profile: %w", err)
	}

	profile := models.NewFromRegistration(userID, email, username, createdAt)
	if err := uow.Profiles().Add(ctx, profile); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			s.logger.InfoContext(ctx, "concurrent create lost the insert race, skipping",
				"user_id", userID.String(),
			)
			return nil
		}
		return fmt.Errorf("add profile: %w", err)
	}

	if err := uow.Commit(ctx); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			s.logger.InfoContext(ctx, "concurrent create lost the commit race, skipping",
				"user_id", userID.String(),
			)
			return nil
		}
		return fmt.Errorf("commit profile: %w", err)
	}

	s.metrics.ProfilesCreated.Inc()
	s.logger.InfoContext(ctx, "profile created",
		"user_id", userID.String(),
		"username", username,
	)
	return nil
}

// ConfirmEmail transitions the profile to Active. Repeats are no-ops. A
// missing profile means the confirmation overtook the registration event;
// the error propagates so the channel redelivers after the dependency
// resolves.
func (s *Service) ConfirmEmail(ctx context.Context, userID id.UserID, email string, confirmedAt time.Time) error {
	uow, err := s.store.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin unit of work: %w", err)
	}
	defer func() { _ = uow.Rollback(ctx) }()

	if err := uow.Profiles().ConfirmEmail(ctx, email, confirmedAt); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return fmt.Errorf("no profile for user %s yet, confirmation arrived early: %w", userID.String(), err)
		}
		return fmt.Errorf("confirm email: %w", err)
	}

	if err := uow.Commit(ctx); err != nil {
		return fmt.Errorf("commit confirmation: %w", err)
	}

	s.logger.InfoContext(ctx, "profile email confirmed", "user_id", userID.String())
	return nil
}

// GetByUserID serves the read endpoint. Reads run in their own short-lived
// unit of work and never commit.
func (s *Service) GetByUserID(ctx context.Context, userID id.UserID) (*models.Profile, error) {
	uow, err := s.store.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin unit of work: %w", err)
	}
	defer func() { _ = uow.Rollback(ctx) }()

	return uow.Profiles().GetByUserID(ctx, userID)
}
