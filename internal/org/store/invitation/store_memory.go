package invitation

import (
	"context"
	"sync"

	"accord/internal/org/models"
	id "accord/pkg/domain"
	"accord/pkg/platform/sentinel"
)

type inviteKey struct {
	userID id.UserID
	orgID  id.OrgID
	role   models.Role
}

// InMemoryStore keeps invitations in process memory for tests and local runs.
type InMemoryStore struct {
	mu     sync.RWMutex
	byID   map[id.InvitationID]*models.Invitation
	byKey  map[inviteKey]id.InvitationID
	byUser map[id.UserID][]id.InvitationID
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		byID:   make(map[id.InvitationID]*models.Invitation),
		byKey:  make(map[inviteKey]id.InvitationID),
		byUser: make(map[id.UserID][]id.InvitationID),
	}
}

func (s *InMemoryStore) Create(_ context.Context, inv *models.Invitation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := inviteKey{userID: inv.UserID, orgID: inv.OrgID, role: inv.Role}
	if _, exists := s.byKey[key]; exists {
		return sentinel.ErrConflict
	}

	cp := *inv
	s.byID[cp.ID] = &cp
	s.byKey[key] = cp.ID
	s.byUser[cp.UserID] = append(s.byUser[cp.UserID], cp.ID)
	return nil
}

func (s *InMemoryStore) Update(_ context.Context, inv *models.Invitation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byID[inv.ID]; !ok {
		return sentinel.ErrNotFound
	}
	cp := *inv
	s.byID[cp.ID] = &cp
	return nil
}

func (s *InMemoryStore) FindByID(_ context.Context, invID id.InvitationID) (*models.Invitation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	inv, ok := s.byID[invID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := *inv
	return &cp, nil
}

func (s *InMemoryStore) Find(_ context.Context, userID id.UserID, orgID id.OrgID, role models.Role) (*models.Invitation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	invID, ok := s.byKey[inviteKey{userID: userID, orgID: orgID, role: role}]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := *s.byID[invID]
	return &cp, nil
}

func (s *InMemoryStore) ListByUser(_ context.Context, userID id.UserID) ([]*models.Invitation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := s.byUser[userID]
	out := make([]*models.Invitation, 0, len(ids))
	for _, invID := range ids {
		cp := *s.byID[invID]
		out = append(out, &cp)
	}
	return out, nil
}
