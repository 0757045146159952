package store

import (
	"context"
	"strings"
	"sync"
	"time"

	"accord/internal/profile/models"
	id "accord/pkg/domain"
	"accord/pkg/platform/sentinel"
)

// MemoryStore keeps committed profiles in process memory. Each unit of work
// stages mutations privately and applies them atomically on Commit, so
// uncommitted changes are never observable, matching the database-backed
// implementation closely enough for the service tests to exercise the real
// transactional discipline.
type MemoryStore struct {
	mu        sync.Mutex
	byUser    map[id.UserID]*models.Profile
	byEmail   map[string]id.UserID
	commitErr error
}

func NewMemory() *MemoryStore {
	return &MemoryStore{
		byUser:  make(map[id.UserID]*models.Profile),
		byEmail: make(map[string]id.UserID),
	}
}

// Begin opens a unit of work over this store.
func (s *MemoryStore) Begin(_ context.Context) (UnitOfWork, error) {
	return &memoryUoW{store: s}, nil
}

// FailCommits makes every subsequent Commit return err (nil restores normal
// behavior). Test hook for exercising the no-partial-commit invariant.
func (s *MemoryStore) FailCommits(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.commitErr = err
}

type stagedInsert struct {
	profile *models.Profile
}

type stagedConfirm struct {
	email       string
	confirmedAt time.Time
}

type memoryUoW struct {
	store    *MemoryStore
	inserts  []stagedInsert
	confirms []stagedConfirm
	closed   bool
}

func (u *memoryUoW) Profiles() Repository { return u }

func (u *memoryUoW) Add(_ context.Context, profile *models.Profile) error {
	if u.closed {
		return sentinel.ErrInvalidState
	}
	cp := *profile
	u.inserts = append(u.inserts, stagedInsert{profile: &cp})
	return nil
}

func (u *memoryUoW) GetByUserID(_ context.Context, userID id.UserID) (*models.Profile, error) {
	u.store.mu.Lock()
	defer u.store.mu.Unlock()

	p, ok := u.store.byUser[userID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (u *memoryUoW) ConfirmEmail(_ context.Context, email string, confirmedAt time.Time) error {
	if u.closed {
		return sentinel.ErrInvalidState
	}

	u.store.mu.Lock()
	defer u.store.mu.Unlock()
	if _, ok := u.store.byEmail[normalizeEmail(email)]; !ok {
		return sentinel.ErrNotFound
	}
	u.confirms = append(u.confirms, stagedConfirm{email: email, confirmedAt: confirmedAt})
	return nil
}

// Commit applies all staged mutations atomically: validate everything first,
// then apply, so a failure leaves the committed state untouched.
func (u *memoryUoW) Commit(_ context.Context) error {
	if u.closed {
		return sentinel.ErrInvalidState
	}
	u.closed = true

	u.store.mu.Lock()
	defer u.store.mu.Unlock()

	if u.store.commitErr != nil {
		return u.store.commitErr
	}

	// Validate: the uniqueness constraint on user id is the backstop against
	// concurrent create deliveries.
	for _, ins := range u.inserts {
		if _, exists := u.store.byUser[ins.profile.UserID]; exists {
			return sentinel.ErrConflict
		}
	}
	for _, c := range u.confirms {
		if _, ok := u.store.byEmail[normalizeEmail(c.email)]; !ok {
			return sentinel.ErrNotFound
		}
	}

	for _, ins := range u.inserts {
		cp := *ins.profile
		u.store.byUser[cp.UserID] = &cp
		u.store.byEmail[normalizeEmail(cp.Email)] = cp.UserID
	}
	for _, c := range u.confirms {
		userID := u.store.byEmail[normalizeEmail(c.email)]
		u.store.byUser[userID].Activate(c.confirmedAt)
	}
	return nil
}

func (u *memoryUoW) Rollback(_ context.Context) error {
	u.closed = true
	u.inserts = nil
	u.confirms = nil
	return nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
