package tokens

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"accord/pkg/platform/sentinel"
)

// Redis key prefix for pending email confirmations.
const confirmKeyPrefix = "confirm:token:"

// RedisStore keeps email-confirmation tokens in Redis with a TTL. This is
// the recommended implementation when multiple identity instances share
// confirmation state.
type RedisStore struct {
	client *redis.Client
}

// NewRedis constructs a Redis-backed confirmation token store.
func NewRedis(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

// Issue creates an opaque single-use token bound to the email, expiring
// after ttl.
func (s *RedisStore) Issue(ctx context.Context, email string, ttl time.Duration) (string, error) {
	token, err := newToken()
	if err != nil {
		return "", err
	}
	if err := s.client.Set(ctx, confirmKeyPrefix+token, email, ttl).Err(); err != nil {
		return "", fmt.Errorf("store confirmation token: %w", err)
	}
	return token, nil
}

// Consume atomically fetches and deletes the token, returning the bound
// email. A missing key means the token never existed, expired, or was
// already used; all three collapse to ErrNotFound.
func (s *RedisStore) Consume(ctx context.Context, token string) (string, error) {
	email, err := s.client.GetDel(ctx, confirmKeyPrefix+token).Result()
	if errors.Is(err, redis.Nil) {
		return "", sentinel.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("consume confirmation token: %w", err)
	}
	return email, nil
}

func newToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate token: %w", err)
	}
	return hex.EncodeToString(buf), nil
}
