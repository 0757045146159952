package tokens

import (
	"context"
	"sync"
	"time"

	"accord/pkg/platform/sentinel"
)

type memoryEntry struct {
	email     string
	expiresAt time.Time
}

// InMemoryStore keeps confirmation tokens in process memory for tests and
// single-instance development.
type InMemoryStore struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	now     func() time.Time
}

func NewInMemory() *InMemoryStore {
	return &InMemoryStore{
		entries: make(map[string]memoryEntry),
		now:     time.Now,
	}
}

func (s *InMemoryStore) Issue(_ context.Context, email string, ttl time.Duration) (string, error) {
	token, err := newToken()
	if err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[token] = memoryEntry{email: email, expiresAt: s.now().Add(ttl)}
	return token, nil
}

func (s *InMemoryStore) Consume(_ context.Context, token string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[token]
	if !ok {
		return "", sentinel.ErrNotFound
	}
	delete(s.entries, token)
	if s.now().After(entry.expiresAt) {
		return "", sentinel.ErrExpired
	}
	return entry.email, nil
}
