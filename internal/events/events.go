package events

import (
	"encoding/json"
	"fmt"
	"time"

	id "accord/pkg/domain"
)

// Topics carrying identity-domain events. One topic per event type; the
// message key is the aggregate (user) id so partitioning keeps a best-effort
// per-aggregate order. Consumers must not rely on strict ordering.
const (
	TopicUserRegistered     = "identity.user.registered"
	TopicUserEmailConfirmed = "identity.user.email-confirmed"
)

// Type tags a domain event for dispatch.
type Type string

const (
	TypeUserRegistered     Type = "user.registered"
	TypeUserEmailConfirmed Type = "user.email-confirmed"
)

// Event is an immutable record of a state transition, produced by exactly
// one aggregate operation and pending until the owning transaction commits
// and the publisher hands it to the channel.
type Event struct {
	Type        Type
	AggregateID id.UserID
	Payload     any
	OccurredAt  time.Time
}

// Topic maps the event type to its channel destination.
func (e Event) Topic() (string, error) {
	switch e.Type {
	case TypeUserRegistered:
		return TopicUserRegistered, nil
	case TypeUserEmailConfirmed:
		return TopicUserEmailConfirmed, nil
	default:
		return "", fmt.Errorf("no topic for event type %q", e.Type)
	}
}

// Marshal encodes the wire payload. The JSON field set is the cross-service
// contract; additive fields must remain ignorable by older consumers.
func (e Event) Marshal() ([]byte, error) {
	b, err := json.Marshal(e.Payload)
	if err != nil {
		return nil, fmt.Errorf("marshal %s payload: %w", e.Type, err)
	}
	return b, nil
}

// UserRegistered is published after a user registration commits on the
// identity side.
type UserRegistered struct {
	UserID    string    `json:"userId"`
	Email     string    `json:"email"`
	Username  string    `json:"username"`
	CreatedAt time.Time `json:"createdAt"`
}

// UserEmailConfirmed is published after an email confirmation commits on the
// identity side. Delivery may repeat; consumers treat repeats as no-ops.
type UserEmailConfirmed struct {
	UserID      string    `json:"userId"`
	Email       string    `json:"email"`
	ConfirmedAt time.Time `json:"confirmedAt"`
}
