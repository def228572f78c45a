package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"certforge/internal/enrollment/models"
	"certforge/internal/http/shared"
	id "certforge/pkg/domain"
	"certforge/pkg/requestcontext"
)

// Service defines the enrollment operations the HTTP layer needs.
type Service interface {
	CreateProgram(ctx context.Context, orgID id.OrgID, name string, testIDs []id.TestID, validityMonths *int) (*models.Program, error)
	CreateEmployee(ctx context.Context, orgID id.OrgID, userID id.UserID, name, email string) (*models.Employee, error)
	Enroll(ctx context.Context, orgID id.OrgID, employeeID id.EmployeeID, programID id.ProgramID) (*models.Enrollment, error)
	UpdateProgress(ctx context.Context, orgID id.OrgID, enrollmentID id.EnrollmentID, progress int) (*models.Enrollment, error)
	SubmitReport(ctx context.Context, orgID id.OrgID, enrollmentID id.EnrollmentID, reportType, content string) (*models.ReportSubmission, error)
	ReviewReport(ctx context.Context, orgID id.OrgID, reportID uuid.UUID, approved bool) (*models.ReportSubmission, error)
	RecordTestAttempt(ctx context.Context, orgID id.OrgID, employeeID id.EmployeeID, testID id.TestID,
		answers map[string]string, score int, passed bool) (*models.TestAttempt, error)
}

// Handler wires enrollment admin endpoints to the enrollment service.
type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts enrollment endpoints. The caller wraps the router with
// admin-token middleware.
func (h *Handler) Register(r chi.Router) {
	r.Post("/programs", h.HandleCreateProgram)
	r.Post("/employees", h.HandleCreateEmployee)
	r.Post("/enrollments", h.HandleEnroll)
	r.Post("/enrollments/{enrollmentID}/progress", h.HandleProgress)
	r.Post("/enrollments/{enrollmentID}/reports", h.HandleSubmitReport)
	r.Post("/reports/{reportID}/review", h.HandleReviewReport)
	r.Post("/test-attempts", h.HandleRecordAttempt)
}

func (h *Handler) HandleCreateProgram(w http.ResponseWriter, r *http.Request) {
	req, ok := shared.Decode[CreateProgramRequest](w, r)
	if !ok {
		return
	}
	if err := req.Validate(); err != nil {
		shared.WriteError(w, err)
		return
	}

	program, err := h.service.CreateProgram(r.Context(), req.parsedOrgID, req.Name, req.parsedTestIDs, req.ValidityMonths)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusCreated, program)
}

func (h *Handler) HandleCreateEmployee(w http.ResponseWriter, r *http.Request) {
	req, ok := shared.Decode[CreateEmployeeRequest](w, r)
	if !ok {
		return
	}
	if err := req.Validate(); err != nil {
		shared.WriteError(w, err)
		return
	}

	employee, err := h.service.CreateEmployee(r.Context(), req.parsedOrgID, req.parsedUserID, req.Name, req.Email)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusCreated, employee)
}

func (h *Handler) HandleEnroll(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := shared.Decode[EnrollRequest](w, r)
	if !ok {
		return
	}
	if err := req.Validate(); err != nil {
		shared.WriteError(w, err)
		return
	}

	enrollment, err := h.service.Enroll(ctx, req.parsedOrgID, req.parsedEmployeeID, req.parsedProgramID)
	if err != nil {
		h.logger.ErrorContext(ctx, "enrollment failed",
			"request_id", requestcontext.RequestID(ctx),
			"employee_id", req.EmployeeID,
			"program_id", req.ProgramID,
			"error", err,
		)
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusCreated, enrollment)
}

func (h *Handler) HandleProgress(w http.ResponseWriter, r *http.Request) {
	enrollmentID, err := id.ParseEnrollmentID(chi.URLParam(r, "enrollmentID"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	req, ok := shared.Decode[ProgressRequest](w, r)
	if !ok {
		return
	}
	if err := req.Validate(); err != nil {
		shared.WriteError(w, err)
		return
	}

	enrollment, err := h.service.UpdateProgress(r.Context(), req.parsedOrgID, enrollmentID, *req.Progress)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, enrollment)
}

func (h *Handler) HandleSubmitReport(w http.ResponseWriter, r *http.Request) {
	enrollmentID, err := id.ParseEnrollmentID(chi.URLParam(r, "enrollmentID"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	req, ok := shared.Decode[SubmitReportRequest](w, r)
	if !ok {
		return
	}
	if err := req.Validate(); err != nil {
		shared.WriteError(w, err)
		return
	}

	report, err := h.service.SubmitReport(r.Context(), req.parsedOrgID, enrollmentID, req.Type, req.Content)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusCreated, report)
}

func (h *Handler) HandleReviewReport(w http.ResponseWriter, r *http.Request) {
	reportID, err := parseReportID(chi.URLParam(r, "reportID"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	req, ok := shared.Decode[ReviewReportRequest](w, r)
	if !ok {
		return
	}
	if err := req.Validate(); err != nil {
		shared.WriteError(w, err)
		return
	}

	report, err := h.service.ReviewReport(r.Context(), req.parsedOrgID, reportID, *req.Approved)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, report)
}

func (h *Handler) HandleRecordAttempt(w http.ResponseWriter, r *http.Request) {
	req, ok := shared.Decode[RecordAttemptRequest](w, r)
	if !ok {
		return
	}
	if err := req.Validate(); err != nil {
		shared.WriteError(w, err)
		return
	}

	attempt, err := h.service.RecordTestAttempt(r.Context(), req.parsedOrgID, req.parsedEmployeeID, req.parsedTestID,
		req.Answers, *req.Score, *req.Passed)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusCreated, attempt)
}
