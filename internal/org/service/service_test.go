package service

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"accord/internal/org/models"
	"accord/internal/org/store/invitation"
	id "accord/pkg/domain"
	"accord/pkg/platform/sentinel"
)

type ServiceSuite struct {
	suite.Suite
	store *invitation.InMemoryStore
	svc   *Service
	now   time.Time
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.store = invitation.NewInMemoryStore()
	s.svc = New(s.store, slog.New(slog.NewTextHandler(io.Discard, nil)))
	s.now = time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	s.svc.now = func() time.Time { return s.now }
}

func (s *ServiceSuite) TestInvite() {
	ctx := context.Background()
	userID, orgID := id.NewUserID(), id.NewOrgID()

	s.Run("creates pending invitation", func() {
		inv, err := s.svc.Invite(ctx, userID, orgID, models.RoleMember)
		s.Require().NoError(err)
		s.True(inv.Pending())
		s.Equal(s.now.Add(DefaultInviteTTL), inv.ExpiresAt)
	})

	s.Run("repeat invite returns the existing invitation", func() {
		first, err := s.svc.Invite(ctx, userID, orgID, models.RoleAdmin)
		s.Require().NoError(err)

		second, err := s.svc.Invite(ctx, userID, orgID, models.RoleAdmin)
		s.Require().NoError(err)
		s.Equal(first.ID, second.ID)
	})

	s.Run("same user and org with different role is distinct", func() {
		a, err := s.svc.Invite(ctx, userID, orgID, models.RoleOwner)
		s.Require().NoError(err)
		b, err := s.svc.Invite(ctx, userID, orgID, models.RoleMember)
		s.Require().NoError(err)
		s.NotEqual(a.ID, b.ID)
	})

	s.Run("unknown role rejected", func() {
		_, err := s.svc.Invite(ctx, userID, orgID, models.Role("superuser"))
		s.ErrorIs(err, ErrInvalidRole)
	})
}

func (s *ServiceSuite) TestAcceptAndReject() {
	ctx := context.Background()

	s.Run("accept is idempotent", func() {
		inv, err := s.svc.Invite(ctx, id.NewUserID(), id.NewOrgID(), models.RoleMember)
		s.Require().NoError(err)

		s.Require().NoError(s.svc.Accept(ctx, inv.ID))
		s.Require().NoError(s.svc.Accept(ctx, inv.ID))

		got, err := s.store.FindByID(ctx, inv.ID)
		s.Require().NoError(err)
		s.NotNil(got.AcceptedAt)
		s.Nil(got.RejectedAt)
	})

	s.Run("reject is idempotent", func() {
		inv, err := s.svc.Invite(ctx, id.NewUserID(), id.NewOrgID(), models.RoleMember)
		s.Require().NoError(err)

		s.Require().NoError(s.svc.Reject(ctx, inv.ID))
		s.Require().NoError(s.svc.Reject(ctx, inv.ID))

		got, err := s.store.FindByID(ctx, inv.ID)
		s.Require().NoError(err)
		s.NotNil(got.RejectedAt)
	})

	s.Run("accept after reject is invalid", func() {
		inv, err := s.svc.Invite(ctx, id.NewUserID(), id.NewOrgID(), models.RoleMember)
		s.Require().NoError(err)

		s.Require().NoError(s.svc.Reject(ctx, inv.ID))
		s.ErrorIs(s.svc.Accept(ctx, inv.ID), sentinel.ErrInvalidState)
	})

	s.Run("reject after accept is invalid", func() {
		inv, err := s.svc.Invite(ctx, id.NewUserID(), id.NewOrgID(), models.RoleMember)
		s.Require().NoError(err)

		s.Require().NoError(s.svc.Accept(ctx, inv.ID))
		s.ErrorIs(s.svc.Reject(ctx, inv.ID), sentinel.ErrInvalidState)
	})

	s.Run("accepting an expired invitation fails", func() {
		inv, err := s.svc.Invite(ctx, id.NewUserID(), id.NewOrgID(), models.RoleMember)
		s.Require().NoError(err)

		s.now = s.now.Add(DefaultInviteTTL + time.Hour)
		s.ErrorIs(s.svc.Accept(ctx, inv.ID), sentinel.ErrExpired)
	})

	s.Run("deciding an unknown invitation fails", func() {
		s.ErrorIs(s.svc.Accept(ctx, id.NewInvitationID()), sentinel.ErrNotFound)
	})
}
