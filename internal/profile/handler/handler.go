package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"accord/internal/profile/service"
	id "accord/pkg/domain"
	"accord/pkg/platform/sentinel"
)

// Handler exposes the profile read surface. All writes flow through the
// event consumers; HTTP never mutates a profile.
type Handler struct {
	service *service.Service
	logger  *slog.Logger
}

func New(svc *service.Service, logger *slog.Logger) *Handler {
	return &Handler{service: svc, logger: logger}
}

// Register mounts the profile routes on the given router.
func (h *Handler) Register(r chi.Router) {
	r.Get("/profiles/{userID}", h.handleGetProfile)
}

type profileResponse struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	Email     string    `json:"email"`
	Username  string    `json:"username"`
	FirstName string    `json:"firstName,omitempty"`
	LastName  string    `json:"lastName,omitempty"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (h *Handler) handleGetProfile(w http.ResponseWriter, r *http.Request) {
	userID, err := id.ParseUserID(chi.URLParam(r, "userID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid user id")
		return
	}

	p, err := h.service.GetByUserID(r.Context(), userID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			writeError(w, http.StatusNotFound, "profile not found")
			return
		}
		h.logger.ErrorContext(r.Context(), "get profile failed",
			"user_id", userID.String(),
			"error", err,
		)
		writeError(w, http.StatusInternalServerError, "profile lookup failed")
		return
	}

	writeJSON(w, http.StatusOK, profileResponse{
		ID:        p.ID.String(),
		UserID:    p.UserID.String(),
		Email:     p.Email,
		Username:  p.Username,
		FirstName: p.FirstName,
		LastName:  p.LastName,
		Status:    string(p.Status),
		CreatedAt: p.CreatedAt,
		UpdatedAt: p.UpdatedAt,
	})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
