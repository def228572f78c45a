package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"certforge/internal/http/shared"
	"certforge/internal/tenant/service"
	id "certforge/pkg/domain"
)

// Handler exposes organization seeding for admins.
type Handler struct {
	service *service.Service
}

func New(service *service.Service) *Handler {
	return &Handler{service: service}
}

// Register mounts organization endpoints. The caller wraps the router with
// admin-token middleware.
func (h *Handler) Register(r chi.Router) {
	r.Post("/organizations", h.HandleCreate)
	r.Get("/organizations/{orgID}", h.HandleGet)
}

type createRequest struct {
	Name string `json:"name"`
}

func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	req, ok := shared.Decode[createRequest](w, r)
	if !ok {
		return
	}
	org, err := h.service.Create(r.Context(), req.Name)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusCreated, org)
}

func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	orgID, err := id.ParseOrgID(chi.URLParam(r, "orgID"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	org, err := h.service.Get(r.Context(), orgID)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, org)
}
