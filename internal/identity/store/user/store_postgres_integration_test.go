//go:build integration

package user_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"
	"golang.org/x/crypto/bcrypt"

	"accord/internal/identity/models"
	"accord/internal/identity/store/user"
	"accord/pkg/platform/sentinel"
	"accord/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *user.PostgresStore
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
	s.store = user.NewPostgres(s.postgres.DB)
}

func (s *PostgresStoreSuite) SetupTest() {
	ctx := context.Background()
	err := s.postgres.TruncateTables(ctx, "users")
	s.Require().NoError(err)
}

func newTestUser(email, username string) *models.User {
	hash, _ := bcrypt.GenerateFromPassword([]byte("correct-horse"), bcrypt.MinCost)
	return models.NewUser(email, username, "Test", "User", hash, time.Now().UTC())
}

func (s *PostgresStoreSuite) TestCreateAndFind() {
	ctx := context.Background()
	email := uuid.NewString() + "@example.com"
	u := newTestUser(email, "alice-"+uuid.NewString()[:8])

	s.Require().NoError(s.store.Create(ctx, u))

	found, err := s.store.FindByEmail(ctx, email)
	s.Require().NoError(err)
	s.Equal(u.ID, found.ID)
	s.Equal(u.Username, found.Username)
	s.False(found.EmailConfirmed)

	byID, err := s.store.FindByID(ctx, u.ID)
	s.Require().NoError(err)
	s.Equal(u.Email, byID.Email)

	byName, err := s.store.FindByUsername(ctx, u.Username)
	s.Require().NoError(err)
	s.Equal(u.ID, byName.ID)
}

// TestPasswordHashRoundTrip verifies the hash survives the database
// unmodified: the stored bytes must still verify against the original
// password after a read back. A lossy column type would corrupt the bcrypt
// prefix and lock every user out.
func (s *PostgresStoreSuite) TestPasswordHashRoundTrip() {
	ctx := context.Background()
	email := uuid.NewString() + "@example.com"

	hash, err := bcrypt.GenerateFromPassword([]byte("correct-horse"), bcrypt.MinCost)
	s.Require().NoError(err)
	u := models.NewUser(email, "bob-"+uuid.NewString()[:8], "", "", hash, time.Now().UTC())

	s.Require().NoError(s.store.Create(ctx, u))

	found, err := s.store.FindByEmail(ctx, email)
	s.Require().NoError(err)
	s.Equal(hash, found.PasswordHash)
	s.NoError(bcrypt.CompareHashAndPassword(found.PasswordHash, []byte("correct-horse")))
}

func (s *PostgresStoreSuite) TestUniqueness() {
	ctx := context.Background()
	email := uuid.NewString() + "@example.com"
	username := "carol-" + uuid.NewString()[:8]

	s.Require().NoError(s.store.Create(ctx, newTestUser(email, username)))

	s.Run("duplicate email conflicts", func() {
		err := s.store.Create(ctx, newTestUser(email, "other-"+uuid.NewString()[:8]))
		s.ErrorIs(err, sentinel.ErrConflict)
	})

	s.Run("duplicate email differing in case conflicts", func() {
		err := s.store.Create(ctx, newTestUser(strings.ToUpper(email), "other-"+uuid.NewString()[:8]))
		s.ErrorIs(err, sentinel.ErrConflict)
	})

	s.Run("duplicate username conflicts", func() {
		err := s.store.Create(ctx, newTestUser(uuid.NewString()+"@example.com", username))
		s.ErrorIs(err, sentinel.ErrConflict)
	})
}

func (s *PostgresStoreSuite) TestUpdate() {
	ctx := context.Background()
	u := newTestUser(uuid.NewString()+"@example.com", "dave-"+uuid.NewString()[:8])
	s.Require().NoError(s.store.Create(ctx, u))

	s.True(u.ConfirmEmail(time.Now().UTC()))
	s.Require().NoError(s.store.Update(ctx, u))

	found, err := s.store.FindByID(ctx, u.ID)
	s.Require().NoError(err)
	s.True(found.EmailConfirmed)
}

func (s *PostgresStoreSuite) TestFindUnknown() {
	ctx := context.Background()

	_, err := s.store.FindByEmail(ctx, "ghost@example.com")
	s.ErrorIs(err, sentinel.ErrNotFound)

	err = s.store.Update(ctx, newTestUser(uuid.NewString()+"@example.com", "nobody"))
	s.ErrorIs(err, sentinel.ErrNotFound)
}
