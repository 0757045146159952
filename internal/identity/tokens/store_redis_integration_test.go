//go:build integration

package tokens_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"accord/internal/identity/tokens"
	"accord/pkg/platform/sentinel"
	"accord/pkg/testutil/containers"
)

type RedisStoreSuite struct {
	suite.Suite
	redis *containers.RedisContainer
	store *tokens.RedisStore
}

func TestRedisStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(RedisStoreSuite))
}

func (s *RedisStoreSuite) SetupSuite() {
	mgr := containers.GetManager()
	s.redis = mgr.GetRedis(s.T())
	s.store = tokens.NewRedis(s.redis.Client)
}

func (s *RedisStoreSuite) SetupTest() {
	s.Require().NoError(s.redis.FlushAll(context.Background()))
}

func (s *RedisStoreSuite) TestIssueAndConsume() {
	ctx := context.Background()

	token, err := s.store.Issue(ctx, "ada@example.com", time.Minute)
	s.Require().NoError(err)
	s.NotEmpty(token)

	email, err := s.store.Consume(ctx, token)
	s.Require().NoError(err)
	s.Equal("ada@example.com", email)
}

func (s *RedisStoreSuite) TestTokenIsSingleUse() {
	ctx := context.Background()

	token, err := s.store.Issue(ctx, "bob@example.com", time.Minute)
	s.Require().NoError(err)

	_, err = s.store.Consume(ctx, token)
	s.Require().NoError(err)

	_, err = s.store.Consume(ctx, token)
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *RedisStoreSuite) TestExpiredTokenRejected() {
	ctx := context.Background()

	token, err := s.store.Issue(ctx, "carol@example.com", 50*time.Millisecond)
	s.Require().NoError(err)

	time.Sleep(150 * time.Millisecond)

	_, err = s.store.Consume(ctx, token)
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *RedisStoreSuite) TestUnknownTokenRejected() {
	_, err := s.store.Consume(context.Background(), "no-such-token")
	s.ErrorIs(err, sentinel.ErrNotFound)
}
