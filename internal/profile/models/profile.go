package models

import (
	"time"

	id "accord/pkg/domain"
)

// Status is the profile lifecycle state. Unconfirmed profiles exist between
// the registration event and the email-confirmation event; the transition to
// Active happens once and never reverts.
type Status string

const (
	StatusUnconfirmed Status = "unconfirmed"
	StatusActive      Status = "active"
)

// Profile is the aggregate owned by the profile service. UserID is a foreign
// value from the identity domain, never a database join; at most one profile
// exists per user id, enforced by a uniqueness constraint.
type Profile struct {
	ID        id.ProfileID
	UserID    id.UserID
	Email     string
	Username  string
	FirstName string
	LastName  string
	Status    Status
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewFromRegistration builds the initial unconfirmed profile for a
// registration event. Created only in response to that event.
func NewFromRegistration(userID id.UserID, email, username string, createdAt time.Time) *Profile {
	return &Profile{
		ID:        id.NewProfileID(),
		UserID:    userID,
		Email:     email,
		Username:  username,
		Status:    StatusUnconfirmed,
		CreatedAt: createdAt,
		UpdatedAt: createdAt,
	}
}

// Activate transitions the profile to Active. Returns false when it already
// is, so repeated confirmation events stay no-ops.
func (p *Profile) Activate(now time.Time) bool {
	if p.Status == StatusActive {
		return false
	}
	p.Status = StatusActive
	p.UpdatedAt = now
	return true
}
