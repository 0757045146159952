package consumer

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"accord/internal/events"
	"accord/internal/platform/kafka/consumer"
	id "accord/pkg/domain"
)

// ConfirmedHandler consumes UserEmailConfirmed events and activates the
// matching profile. A confirmation that arrives before its registration has
// been applied fails retryable: the broker redelivers until the registration
// event lands, or exhaustion dead-letters it for inspection.
type ConfirmedHandler struct {
	service ProfileService
	logger  *slog.Logger
}

func NewConfirmedHandler(service ProfileService, logger *slog.Logger) *ConfirmedHandler {
	return &ConfirmedHandler{service: service, logger: logger}
}

func (h *ConfirmedHandler) Handle(ctx context.Context, msg *consumer.Message) error {
	var payload events.UserEmailConfirmed
	if err := json.Unmarshal(msg.Value, &payload); err != nil {
		return consumer.Fatal(fmt.Errorf("decode UserEmailConfirmed payload: %w", err))
	}

	userID, err := id.ParseUserID(payload.UserID)
	if err != nil {
		return consumer.Fatal(fmt.Errorf("UserEmailConfirmed: %w", err))
	}

	h.logger.InfoContext(ctx, "consuming UserEmailConfirmed",
		"user_id", payload.UserID,
		"attempt", msg.Attempt,
	)

	if err := h.service.ConfirmEmail(ctx, userID, payload.Email, payload.ConfirmedAt); err != nil {
		h.logger.ErrorContext(ctx, "UserEmailConfirmed handling failed",
			"user_id", payload.UserID,
			"error", err,
		)
		return fmt.Errorf("confirm email for %s: %w", payload.UserID, err)
	}

	h.logger.InfoContext(ctx, "UserEmailConfirmed handled", "user_id", payload.UserID)
	return nil
}
