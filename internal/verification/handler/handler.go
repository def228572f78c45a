package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"certforge/internal/http/shared"
	"certforge/internal/verification/service"
	"certforge/pkg/requestcontext"
)

// Service defines the verification operation the HTTP layer needs.
type Service interface {
	Verify(ctx context.Context, code string) (*service.Result, error)
}

// Handler serves the public verification endpoint. No authentication, no
// tenant scope: the verification code is the capability.
type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts the public verification endpoint. The caller wraps the
// router with the public rate limiter.
func (h *Handler) Register(r chi.Router) {
	r.Get("/verify", h.HandleVerify)
}

// HandleVerify handles GET /verify?code=...
func (h *Handler) HandleVerify(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	result, err := h.service.Verify(ctx, r.URL.Query().Get("code"))
	if err != nil {
		h.logger.InfoContext(ctx, "verification miss",
			"request_id", requestcontext.RequestID(ctx),
		)
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, result)
}
