package consumer

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"accord/internal/events"
	"accord/internal/platform/kafka/consumer"
	id "accord/pkg/domain"
)

// ProfileService is the application-service contract the consumers call.
// Both operations are idempotent with respect to repeated delivery of the
// same logical event.
type ProfileService interface {
	CreateInitialProfile(ctx context.Context, userID id.UserID, email, username string, createdAt time.Time) error
	ConfirmEmail(ctx context.Context, userID id.UserID, email string, confirmedAt time.Time) error
}

// RegisteredHandler consumes UserRegistered events and creates the initial
// profile. Errors propagate to the channel adapter to trigger redelivery;
// the handler never swallows them.
type RegisteredHandler struct {
	service ProfileService
	logger  *slog.Logger
}

func NewRegisteredHandler(service ProfileService, logger *slog.Logger) *RegisteredHandler {
	return &RegisteredHandler{service: service, logger: logger}
}

func (h *RegisteredHandler) Handle(ctx context.Context, msg *consumer.Message) error {
	var payload events.UserRegistered
	if err := json.Unmarshal(msg.Value, &payload); err != nil {
		return consumer.Fatal(fmt.Errorf("decode UserRegistered payload: %w", err))
	}

	userID, err := id.ParseUserID(payload.UserID)
	if err != nil {
		return consumer.Fatal(fmt.Errorf("UserRegistered: %w", err))
	}

	h.logger.InfoContext(ctx, "consuming UserRegistered",
		"user_id", payload.UserID,
		"attempt", msg.Attempt,
	)

	if err := h.service.CreateInitialProfile(ctx, userID, payload.Email, payload.Username, payload.CreatedAt); err != nil {
		h.logger.ErrorContext(ctx, "UserRegistered handling failed",
			"user_id", payload.UserID,
			"error", err,
		)
		return fmt.Errorf("create initial profile for %s: %w", payload.UserID, err)
	}

	h.logger.InfoContext(ctx, "UserRegistered handled", "user_id", payload.UserID)
	return nil
}
