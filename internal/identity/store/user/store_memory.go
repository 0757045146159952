package user

import (
	"context"
	"strings"
	"sync"

	"accord/internal/events"
	"accord/internal/identity/models"
	id "accord/pkg/domain"
	"accord/pkg/platform/sentinel"
)

// InMemoryStore keeps identity users in process memory. It favors clarity
// over performance and backs unit tests and broker-less development.
type InMemoryStore struct {
	mu     sync.RWMutex
	byID   map[id.UserID]*models.User
	emails map[string]id.UserID
	names  map[string]id.UserID
}

func New() *InMemoryStore {
	return &InMemoryStore{
		byID:   make(map[id.UserID]*models.User),
		emails: make(map[string]id.UserID),
		names:  make(map[string]id.UserID),
	}
}

// Create inserts a new user. Email and username uniqueness mirror the
// database constraints; violations return sentinel.ErrConflict.
func (s *InMemoryStore) Create(_ context.Context, u *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	email := normalize(u.Email)
	name := normalize(u.Username)
	if _, taken := s.emails[email]; taken {
		return sentinel.ErrConflict
	}
	if _, taken := s.names[name]; taken {
		return sentinel.ErrConflict
	}

	cp := snapshot(u)
	s.byID[u.ID] = cp
	s.emails[email] = u.ID
	s.names[name] = u.ID
	return nil
}

// Update overwrites an existing user's mutable fields.
func (s *InMemoryStore) Update(_ context.Context, u *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byID[u.ID]; !ok {
		return sentinel.ErrNotFound
	}
	s.byID[u.ID] = snapshot(u)
	return nil
}

func (s *InMemoryStore) FindByID(_ context.Context, userID id.UserID) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.byID[userID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (s *InMemoryStore) FindByEmail(_ context.Context, email string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	userID, ok := s.emails[normalize(email)]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := *s.byID[userID]
	return &cp, nil
}

func (s *InMemoryStore) FindByUsername(_ context.Context, username string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	userID, ok := s.names[normalize(username)]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := *s.byID[userID]
	return &cp, nil
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// snapshot copies persistent fields only. The pending-event buffer is
// publication state owned by the caller, not stored state.
func snapshot(u *models.User) *models.User {
	cp := *u
	cp.Recorder = events.Recorder{}
	return &cp
}
