package service_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"accord/internal/platform/metrics"
	"accord/internal/profile/models"
	"accord/internal/profile/service"
	"accord/internal/profile/store"
	id "accord/pkg/domain"
	"accord/pkg/platform/sentinel"
)

var testMetrics = metrics.New("accord_profile_test")

type ServiceSuite struct {
	suite.Suite
	store *store.MemoryStore
	svc   *service.Service
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.store = store.NewMemory()
	s.svc = service.New(s.store, slog.New(slog.NewTextHandler(io.Discard, nil)), testMetrics)
}

func (s *ServiceSuite) TestCreateInitialProfile() {
	ctx := context.Background()
	registeredAt := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

	s.Run("creates unconfirmed profile", func() {
		userID := id.NewUserID()
		err := s.svc.CreateInitialProfile(ctx, userID, "ada@example.com", "ada", registeredAt)
		s.Require().NoError(err)

		p, err := s.svc.GetByUserID(ctx, userID)
		s.Require().NoError(err)
		s.Equal(models.StatusUnconfirmed, p.Status)
		s.Equal("ada@example.com", p.Email)
		s.Equal("ada", p.Username)
	})

	s.Run("redelivery is a no-op", func() {
		userID := id.NewUserID()
		s.Require().NoError(s.svc.CreateInitialProfile(ctx, userID, "bob@example.com", "bob", registeredAt))

		first, err := s.svc.GetByUserID(ctx, userID)
		s.Require().NoError(err)

		s.Require().NoError(s.svc.CreateInitialProfile(ctx, userID, "bob@example.com", "bob", registeredAt))

		second, err := s.svc.GetByUserID(ctx, userID)
		s.Require().NoError(err)
		s.Equal(first.ID, second.ID, "redelivery must not replace the profile")
	})

	s.Run("losing the commit race is success", func() {
		userID := id.NewUserID()
		s.store.FailCommits(sentinel.ErrConflict)
		defer s.store.FailCommits(nil)

		err := s.svc.CreateInitialProfile(ctx, userID, "eve@example.com", "eve", registeredAt)
		s.NoError(err, "a duplicate-key outcome means another delivery already did the work")
	})

	s.Run("failed commit leaves no profile behind", func() {
		userID := id.NewUserID()
		s.store.FailCommits(errors.New("connection reset"))
		defer s.store.FailCommits(nil)

		err := s.svc.CreateInitialProfile(ctx, userID, "mallory@example.com", "mallory", registeredAt)
		s.Require().Error(err)

		s.store.FailCommits(nil)
		_, err = s.svc.GetByUserID(ctx, userID)
		s.ErrorIs(err, sentinel.ErrNotFound)
	})
}

func (s *ServiceSuite) TestConfirmEmail() {
	ctx := context.Background()
	registeredAt := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	confirmedAt := registeredAt.Add(15 * time.Minute)

	s.Run("activates the profile", func() {
		userID := id.NewUserID()
		s.Require().NoError(s.svc.CreateInitialProfile(ctx, userID, "ada@example.com", "ada", registeredAt))

		err := s.svc.ConfirmEmail(ctx, userID, "ada@example.com", confirmedAt)
		s.Require().NoError(err)

		p, err := s.svc.GetByUserID(ctx, userID)
		s.Require().NoError(err)
		s.Equal(models.StatusActive, p.Status)
	})

	s.Run("repeated confirmation is a no-op", func() {
		userID := id.NewUserID()
		s.Require().NoError(s.svc.CreateInitialProfile(ctx, userID, "bob@example.com", "bob", registeredAt))
		s.Require().NoError(s.svc.ConfirmEmail(ctx, userID, "bob@example.com", confirmedAt))

		err := s.svc.ConfirmEmail(ctx, userID, "bob@example.com", confirmedAt.Add(time.Hour))
		s.Require().NoError(err)

		p, err := s.svc.GetByUserID(ctx, userID)
		s.Require().NoError(err)
		s.Equal(models.StatusActive, p.Status)
	})

	s.Run("confirmation before registration fails retryable, then converges", func() {
		userID := id.NewUserID()

		err := s.svc.ConfirmEmail(ctx, userID, "carol@example.com", confirmedAt)
		s.Require().ErrorIs(err, sentinel.ErrNotFound)

		s.Require().NoError(s.svc.CreateInitialProfile(ctx, userID, "carol@example.com", "carol", registeredAt))

		err = s.svc.ConfirmEmail(ctx, userID, "carol@example.com", confirmedAt)
		s.Require().NoError(err)

		p, err := s.svc.GetByUserID(ctx, userID)
		s.Require().NoError(err)
		s.Equal(models.StatusActive, p.Status)
	})
}
