package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"accord/internal/org/models"
	"accord/internal/org/service"
	id "accord/pkg/domain"
	"accord/pkg/platform/sentinel"
)

// Handler exposes the org invitation routes.
type Handler struct {
	service *service.Service
	logger  *slog.Logger
}

func New(svc *service.Service, logger *slog.Logger) *Handler {
	return &Handler{service: svc, logger: logger}
}

// Register mounts the invitation routes on the given router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/orgs/{orgID}/invitations", h.handleInvite)
	r.Post("/invitations/{invitationID}/accept", h.handleAccept)
	r.Post("/invitations/{invitationID}/reject", h.handleReject)
	r.Get("/users/{userID}/invitations", h.handleList)
}

type inviteRequest struct {
	UserID string `json:"userId"`
	Role   string `json:"role"`
}

type invitationResponse struct {
	ID         string     `json:"id"`
	UserID     string     `json:"userId"`
	OrgID      string     `json:"orgId"`
	Role       string     `json:"role"`
	CreatedAt  time.Time  `json:"createdAt"`
	ExpiresAt  time.Time  `json:"expiresAt"`
	AcceptedAt *time.Time `json:"acceptedAt,omitempty"`
	RejectedAt *time.Time `json:"rejectedAt,omitempty"`
}

func toResponse(inv *models.Invitation) invitationResponse {
	return invitationResponse{
		ID:         inv.ID.String(),
		UserID:     inv.UserID.String(),
		OrgID:      inv.OrgID.String(),
		Role:       string(inv.Role),
		CreatedAt:  inv.CreatedAt,
		ExpiresAt:  inv.ExpiresAt,
		AcceptedAt: inv.AcceptedAt,
		RejectedAt: inv.RejectedAt,
	}
}

func (h *Handler) handleInvite(w http.ResponseWriter, r *http.Request) {
	orgID, err := id.ParseOrgID(chi.URLParam(r, "orgID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid org id")
		return
	}

	var req inviteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	userID, err := id.ParseUserID(req.UserID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid user id")
		return
	}

	inv, err := h.service.Invite(r.Context(), userID, orgID, models.Role(req.Role))
	if err != nil {
		if errors.Is(err, service.ErrInvalidRole) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		h.logger.ErrorContext(r.Context(), "invite failed", "error", err)
		writeError(w, http.StatusInternalServerError, "invite failed")
		return
	}

	writeJSON(w, http.StatusCreated, toResponse(inv))
}

func (h *Handler) handleAccept(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, h.service.Accept)
}

func (h *Handler) handleReject(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, h.service.Reject)
}

func (h *Handler) decide(w http.ResponseWriter, r *http.Request, apply func(ctx context.Context, invID id.InvitationID) error) {
	raw, err := uuid.Parse(chi.URLParam(r, "invitationID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid invitation id")
		return
	}

	err = apply(r.Context(), id.InvitationID(raw))
	switch {
	case err == nil:
		w.WriteHeader(http.StatusNoContent)
	case errors.Is(err, sentinel.ErrNotFound):
		writeError(w, http.StatusNotFound, "invitation not found")
	case errors.Is(err, sentinel.ErrInvalidState):
		writeError(w, http.StatusConflict, "invitation already decided")
	case errors.Is(err, sentinel.ErrExpired):
		writeError(w, http.StatusGone, "invitation expired")
	default:
		h.logger.ErrorContext(r.Context(), "invitation decision failed", "error", err)
		writeError(w, http.StatusInternalServerError, "decision failed")
	}
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	userID, err := id.ParseUserID(chi.URLParam(r, "userID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid user id")
		return
	}

	invs, err := h.service.ListByUser(r.Context(), userID)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "list invitations failed", "error", err)
		writeError(w, http.StatusInternalServerError, "list failed")
		return
	}

	out := make([]invitationResponse, 0, len(invs))
	for _, inv := range invs {
		out = append(out, toResponse(inv))
	}
	writeJSON(w, http.StatusOK, out)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
