package domain

import (
	"fmt"

	"github.com/google/uuid"
)

// Typed identifiers keep aggregates from different services distinct at
// compile time. The identity service owns UserID; every other aggregate
// references it as a foreign value, never as a database join.
type (
	UserID       uuid.UUID
	ProfileID    uuid.UUID
	OrgID        uuid.UUID
	InvitationID uuid.UUID
)

func (id UserID) String() string       { return uuid.UUID(id).String() }
func (id ProfileID) String() string    { return uuid.UUID(id).String() }
func (id OrgID) String() string        { return uuid.UUID(id).String() }
func (id InvitationID) String() string { return uuid.UUID(id).String() }

func (id UserID) IsZero() bool    { return uuid.UUID(id) == uuid.Nil }
func (id ProfileID) IsZero() bool { return uuid.UUID(id) == uuid.Nil }

// NewProfileID returns a fresh random profile identifier.
func NewProfileID() ProfileID { return ProfileID(uuid.New()) }

// NewUserID returns a fresh random user identifier.
func NewUserID() UserID { return UserID(uuid.New()) }

// NewInvitationID returns a fresh random invitation identifier.
func NewInvitationID() InvitationID { return InvitationID(uuid.New()) }

// NewOrgID returns a fresh random organization identifier.
func NewOrgID() OrgID { return OrgID(uuid.New()) }

// ParseUserID validates an external user identifier at a trust boundary.
// IDs must be valid, non-empty, non-nil UUIDs.
func ParseUserID(s string) (UserID, error) {
	u, err := parseUUID(s)
	if err != nil {
		return UserID{}, fmt.Errorf("user id: %w", err)
	}
	return UserID(u), nil
}

// ParseOrgID validates an organization identifier.
func ParseOrgID(s string) (OrgID, error) {
	u, err := parseUUID(s)
	if err != nil {
		return OrgID{}, fmt.Errorf("org id: %w", err)
	}
	return OrgID(u), nil
}

func parseUUID(s string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, fmt.Errorf("empty id")
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid id %q: %w", s, err)
	}
	if u == uuid.Nil {
		return uuid.Nil, fmt.Errorf("nil id")
	}
	return u, nil
}
