package models

import (
	"time"

	"accord/internal/events"
	id "accord/pkg/domain"
)

// User is the identity-side aggregate: credential ownership (email,
// password, confirmation state) lives here and nowhere else. State
// transitions record domain events on the embedded buffer; the service
// publishes them after the store write commits.
type User struct {
	events.Recorder

	ID             id.UserID
	Email          string
	Username       string
	FirstName      string
	LastName       string
	PasswordHash   []byte
	EmailConfirmed bool
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// NewUser creates an unconfirmed user and records the registration event.
func NewUser(email, username, firstName, lastName string, passwordHash []byte, now time.Time) *User {
	u := &User{
		ID:           id.NewUserID(),
		Email:        email,
		Username:     username,
		FirstName:    firstName,
		LastName:     lastName,
		PasswordHash: passwordHash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	u.Record(events.Event{
		Type:        events.TypeUserRegistered,
		AggregateID: u.ID,
		OccurredAt:  now,
		Payload: events.UserRegistered{
			UserID:    u.ID.String(),
			Email:     u.Email,
			Username:  u.Username,
			CreatedAt: now,
		},
	})
	return u
}

// ConfirmEmail transitions the user to confirmed and records the
// confirmation event. Returns false without recording when the email is
// already confirmed, so repeated confirmations stay silent.
func (u *User) ConfirmEmail(now time.Time) bool {
	if u.EmailConfirmed {
		return false
	}
	u.EmailConfirmed = true
	u.UpdatedAt = now
	u.Record(events.Event{
		Type:        events.TypeUserEmailConfirmed,
		AggregateID: u.ID,
		OccurredAt:  now,
		Payload: events.UserEmailConfirmed{
			UserID:      u.ID.String(),
			Email:       u.Email,
			ConfirmedAt: now,
		},
	})
	return true
}
