package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"certforge/internal/http/shared"
	"certforge/internal/invite/models"
	"certforge/internal/invite/service"
	id "certforge/pkg/domain"
	dErrors "certforge/pkg/domain-errors"
	"certforge/pkg/requestcontext"
)

// Service defines the invite operations the HTTP layer needs.
type Service interface {
	Create(ctx context.Context, orgID id.OrgID, email string, programID *id.ProgramID) (*models.Invite, error)
	Resolve(ctx context.Context, token string) (*service.Metadata, error)
	Accept(ctx context.Context, token string, userID id.UserID) (*service.AcceptResult, error)
}

// Handler spans three auth surfaces, so registration is split and the router
// applies the matching middleware per group.
type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// RegisterAdmin mounts invite creation behind the admin token.
func (h *Handler) RegisterAdmin(r chi.Router) {
	r.Post("/invites", h.HandleCreate)
}

// RegisterPublic mounts the unauthenticated token lookup.
func (h *Handler) RegisterPublic(r chi.Router) {
	r.Get("/invites/verify", h.HandleResolve)
}

// RegisterUser mounts acceptance behind bearer authentication.
func (h *Handler) RegisterUser(r chi.Router) {
	r.Post("/invites/accept", h.HandleAccept)
}

// HandleCreate handles POST /invites.
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := shared.Decode[CreateRequest](w, r)
	if !ok {
		return
	}
	if err := req.Validate(); err != nil {
		shared.WriteError(w, err)
		return
	}

	invite, err := h.service.Create(ctx, req.parsedOrgID, req.Email, req.parsedProgramID)
	if err != nil {
		h.logger.ErrorContext(ctx, "invite creation failed",
			"request_id", requestcontext.RequestID(ctx),
			"organization_id", req.OrganizationID,
			"error", err,
		)
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusCreated, invite)
}

// HandleResolve handles GET /invites/verify?token=...
func (h *Handler) HandleResolve(w http.ResponseWriter, r *http.Request) {
	meta, err := h.service.Resolve(r.Context(), r.URL.Query().Get("token"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, meta)
}

// HandleAccept handles POST /invites/accept for the authenticated user.
func (h *Handler) HandleAccept(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := shared.Decode[AcceptRequest](w, r)
	if !ok {
		return
	}
	if err := req.Validate(); err != nil {
		shared.WriteError(w, err)
		return
	}

	userID := requestcontext.UserID(ctx)
	if userID.IsZero() {
		shared.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return
	}

	result, err := h.service.Accept(ctx, req.Token, userID)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, result)
}
