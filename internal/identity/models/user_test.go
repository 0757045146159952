package models

import (
	"testing"
	"time"

	"accord/internal/events"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewUser_RecordsRegistrationEvent(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	u := NewUser("a@x.com", "alice", "Alice", "Doe", []byte("hash"), now)

	pending := u.Pending()
	require.Len(t, pending, 1)
	assert.Equal(t, events.TypeUserRegistered, pending[0].Type)
	assert.Equal(t, u.ID, pending[0].AggregateID)

	payload, ok := pending[0].Payload.(events.UserRegistered)
	require.True(t, ok)
	assert.Equal(t, u.ID.String(), payload.UserID)
	assert.Equal(t, "a@x.com", payload.Email)
	assert.Equal(t, "alice", payload.Username)
	assert.Equal(t, now, payload.CreatedAt)
}

func TestConfirmEmail_RecordsEventOnce(t *testing.T) {
	now := time.Now().UTC()
	u := NewUser("a@x.com", "alice", "", "", nil, now)
	u.Clear()

	require.True(t, u.ConfirmEmail(now))
	assert.True(t, u.EmailConfirmed)
	require.Len(t, u.Pending(), 1)
	assert.Equal(t, events.TypeUserEmailConfirmed, u.Pending()[0].Type)

	// Second confirmation is a silent no-op: no state change, no event.
	require.False(t, u.ConfirmEmail(now.Add(time.Minute)))
	assert.Len(t, u.Pending(), 1)
}
