//go:build integration

package store_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"accord/internal/profile/models"
	"accord/internal/profile/store"
	id "accord/pkg/domain"
	"accord/pkg/platform/sentinel"
	"accord/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *store.PostgresStore
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	mgr := containers.GetManager()
	s.postgres = mgr.GetPostgres(s.T())
	s.store = store.NewPostgres(s.postgres.DB)
}

func (s *PostgresStoreSuite) SetupTest() {
	ctx := context.Background()
	err := s.postgres.TruncateTables(ctx, "profiles")
	s.Require().NoError(err)
}

func newTestProfile(userID id.UserID, email string) *models.Profile {
	return models.NewFromRegistration(userID, email, "user-"+uuid.NewString()[:8], time.Now().UTC())
}

func (s *PostgresStoreSuite) createProfile(ctx context.Context, p *models.Profile) error {
	uow, err := s.store.Begin(ctx)
	s.Require().NoError(err)
	defer func() { _ = uow.Rollback(ctx) }()

	if err := uow.Profiles().Add(ctx, p); err != nil {
		return err
	}
	return uow.Commit(ctx)
}

func (s *PostgresStoreSuite) TestAddAndGet() {
	ctx := context.Background()
	userID := id.NewUserID()
	p := newTestProfile(userID, uuid.NewString()+"@example.com")

	s.Require().NoError(s.createProfile(ctx, p))

	uow, err := s.store.Begin(ctx)
	s.Require().NoError(err)
	defer func() { _ = uow.Rollback(ctx) }()

	got, err := uow.Profiles().GetByUserID(ctx, userID)
	s.Require().NoError(err)
	s.Equal(p.ID, got.ID)
	s.Equal(models.StatusUnconfirmed, got.Status)
}

// TestConcurrentUniqueUserViolation verifies that concurrent creation
// attempts for the same user id result in exactly one success. This is the
// database-level backstop that makes duplicate event deliveries converge.
func (s *PostgresStoreSuite) TestConcurrentUniqueUserViolation() {
	ctx := context.Background()
	userID := id.NewUserID()
	const goroutines = 50

	var wg sync.WaitGroup
	var successCount atomic.Int32
	var conflictCount atomic.Int32

	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()

			p := newTestProfile(userID, uuid.NewString()+"@example.com")
			err := s.createProfile(ctx, p)
			if err == nil {
				successCount.Add(1)
			} else if errors.Is(err, sentinel.ErrConflict) {
				conflictCount.Add(1)
			}
		}(i)
	}

	wg.Wait()

	s.Equal(int32(1), successCount.Load(), "exactly one create should succeed")
	s.Equal(int32(goroutines-1), conflictCount.Load(), "all others should get conflict error")

	uow, err := s.store.Begin(ctx)
	s.Require().NoError(err)
	defer func() { _ = uow.Rollback(ctx) }()

	found, err := uow.Profiles().GetByUserID(ctx, userID)
	s.Require().NoError(err)
	s.Equal(userID, found.UserID)
}

func (s *PostgresStoreSuite) TestConfirmEmail() {
	ctx := context.Background()
	userID := id.NewUserID()
	email := uuid.NewString() + "@example.com"

	s.Require().NoError(s.createProfile(ctx, newTestProfile(userID, email)))

	confirm := func() error {
		uow, err := s.store.Begin(ctx)
		s.Require().NoError(err)
		defer func() { _ = uow.Rollback(ctx) }()

		if err := uow.Profiles().ConfirmEmail(ctx, email, time.Now().UTC()); err != nil {
			return err
		}
		return uow.Commit(ctx)
	}

	s.Require().NoError(confirm())
	// Second confirmation still matches the row and stays a no-op.
	s.Require().NoError(confirm())

	uow, err := s.store.Begin(ctx)
	s.Require().NoError(err)
	defer func() { _ = uow.Rollback(ctx) }()

	got, err := uow.Profiles().GetByUserID(ctx, userID)
	s.Require().NoError(err)
	s.Equal(models.StatusActive, got.Status)
}

func (s *PostgresStoreSuite) TestRollbackDiscardsStagedWrites() {
	ctx := context.Background()
	userID := id.NewUserID()

	uow, err := s.store.Begin(ctx)
	s.Require().NoError(err)

	p := newTestProfile(userID, uuid.NewString()+"@example.com")
	s.Require().NoError(uow.Profiles().Add(ctx, p))
	s.Require().NoError(uow.Rollback(ctx))

	check, err := s.store.Begin(ctx)
	s.Require().NoError(err)
	defer func() { _ = check.Rollback(ctx) }()

	_, err = check.Profiles().GetByUserID(ctx, userID)
	s.ErrorIs(err, sentinel.ErrNotFound)
}
