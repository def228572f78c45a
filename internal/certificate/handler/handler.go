package handler

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"certforge/internal/certificate/models"
	"certforge/internal/http/shared"
	id "certforge/pkg/domain"
	dErrors "certforge/pkg/domain-errors"
	"certforge/pkg/requestcontext"
)

// Service defines the certificate operations the HTTP layer needs.
type Service interface {
	Issue(ctx context.Context, orgID id.OrgID, employeeID id.EmployeeID, programID id.ProgramID) (*models.Certificate, error)
	Get(ctx context.Context, orgID id.OrgID, certID id.CertificateID) (*models.Certificate, error)
	List(ctx context.Context, orgID id.OrgID) ([]*models.Certificate, error)
	Document(ctx context.Context, orgID id.OrgID, certID id.CertificateID) ([]byte, error)
	Revoke(ctx context.Context, orgID id.OrgID, certID id.CertificateID) (*models.Certificate, error)
	Reissue(ctx context.Context, orgID id.OrgID, certID id.CertificateID) (*models.Certificate, error)
}

// Handler wires certificate admin endpoints to the certificate service.
type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts certificate endpoints. The caller wraps the router with
// admin-token middleware.
func (h *Handler) Register(r chi.Router) {
	r.Post("/certificates/generate", h.HandleGenerate)
	r.Get("/certificates", h.HandleList)
	r.Get("/certificates/{certID}", h.HandleDocument)
	r.Post("/certificates/{certID}/revoke", h.HandleRevoke)
	r.Post("/certificates/{certID}/reissue", h.HandleReissue)
}

// HandleGenerate handles POST /certificates/generate: the full issuance
// pipeline, eligibility through persistence.
func (h *Handler) HandleGenerate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	start := time.Now()

	req, ok := shared.Decode[GenerateRequest](w, r)
	if !ok {
		return
	}
	if err := req.Validate(); err != nil {
		shared.WriteError(w, err)
		return
	}

	cert, err := h.service.Issue(ctx, req.parsedOrgID, req.parsedEmployeeID, req.parsedProgramID)
	if err != nil {
		h.logger.ErrorContext(ctx, "certificate issuance failed",
			"request_id", requestcontext.RequestID(ctx),
			"employee_id", req.EmployeeID,
			"program_id", req.ProgramID,
			"error", err,
		)
		shared.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "certificate generated",
		"request_id", requestcontext.RequestID(ctx),
		"certificate_number", cert.CertificateNumber,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	shared.WriteJSON(w, http.StatusCreated, cert)
}

// HandleList handles GET /certificates?organization_id=...
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	orgID, err := id.ParseOrgID(r.URL.Query().Get("organization_id"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	certs, err := h.service.List(r.Context(), orgID)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	if certs == nil {
		certs = []*models.Certificate{}
	}
	shared.WriteJSON(w, http.StatusOK, certs)
}

// HandleDocument handles GET /certificates/{certID}?organization_id=...
// and responds with the rendered SVG as an attachment.
func (h *Handler) HandleDocument(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	orgID, err := id.ParseOrgID(r.URL.Query().Get("organization_id"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	certID, err := id.ParseCertificateID(chi.URLParam(r, "certID"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	cert, err := h.service.Get(ctx, orgID, certID)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	doc, err := h.service.Document(ctx, orgID, certID)
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	w.Header().Set("Content-Type", "image/svg+xml")
	w.Header().Set("Content-Disposition",
		fmt.Sprintf("attachment; filename=%q", cert.CertificateNumber+".svg"))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(doc)
}

// HandleRevoke handles POST /certificates/{certID}/revoke.
func (h *Handler) HandleRevoke(w http.ResponseWriter, r *http.Request) {
	h.handleTransition(w, r, h.service.Revoke)
}

// HandleReissue handles POST /certificates/{certID}/reissue.
func (h *Handler) HandleReissue(w http.ResponseWriter, r *http.Request) {
	h.handleTransition(w, r, h.service.Reissue)
}

func (h *Handler) handleTransition(w http.ResponseWriter, r *http.Request,
	transition func(context.Context, id.OrgID, id.CertificateID) (*models.Certificate, error)) {
	certID, err := id.ParseCertificateID(chi.URLParam(r, "certID"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	req, ok := shared.Decode[StatusRequest](w, r)
	if !ok {
		return
	}
	if err := req.Validate(); err != nil {
		shared.WriteError(w, err)
		return
	}

	cert, err := transition(r.Context(), req.parsedOrgID, certID)
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeInvariantViolation) {
			err = dErrors.New(dErrors.CodeConflict, "certificate is not in a state that allows this transition")
		}
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, cert)
}
