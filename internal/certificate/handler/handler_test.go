package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"certforge/internal/audit"
	"certforge/internal/certificate/eligibility"
	"certforge/internal/certificate/metrics"
	"certforge/internal/certificate/render"
	certservice "certforge/internal/certificate/service"
	certstore "certforge/internal/certificate/store"
	enrollmodels "certforge/internal/enrollment/models"
	enrollstore "certforge/internal/enrollment/store"
	"certforge/internal/platform/middleware"
	tenantmodels "certforge/internal/tenant/models"
	tenantservice "certforge/internal/tenant/service"
	tenantstore "certforge/internal/tenant/store"
	id "certforge/pkg/domain"
)

const adminToken = "secret-token"

type fixture struct {
	router     http.Handler
	orgID      id.OrgID
	employeeID id.EmployeeID
	programID  id.ProgramID
}

// newFixture builds the handler over real memory stores with one eligible
// employee seeded.
func newFixture(t *testing.T) *fixture {
	t.Helper()

	now := time.Now().UTC()
	employees := enrollstore.NewInMemoryEmployeeStore()
	programs := enrollstore.NewInMemoryProgramStore()
	enrollments := enrollstore.NewInMemoryEnrollmentStore()
	reports := enrollstore.NewInMemoryReportStore()
	attempts := enrollstore.NewInMemoryAttemptStore()
	certs := certstore.NewInMemoryStore()
	orgs := tenantstore.NewInMemoryStore()
	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))

	orgID := id.OrgID(uuid.New())
	org, err := tenantmodels.NewOrganization(orgID, "Acme Logistics", now)
	if err != nil {
		t.Fatalf("new organization: %v", err)
	}
	if err := orgs.Create(context.Background(), org); err != nil {
		t.Fatalf("create organization: %v", err)
	}

	employeeID := id.EmployeeID(uuid.New())
	employee, err := enrollmodels.NewEmployee(employeeID, orgID, id.UserID(uuid.New()), "Dana Smith", "dana@example.com", now)
	if err != nil {
		t.Fatalf("new employee: %v", err)
	}
	if err := employees.Create(context.Background(), employee); err != nil {
		t.Fatalf("create employee: %v", err)
	}

	testID := id.TestID(uuid.New())
	program, err := enrollmodels.NewProgram(id.ProgramID(uuid.New()), orgID, "Forklift Safety", []id.TestID{testID}, nil, now)
	if err != nil {
		t.Fatalf("new program: %v", err)
	}
	if err := programs.Create(context.Background(), program); err != nil {
		t.Fatalf("create program: %v", err)
	}

	enrollment, err := enrollmodels.NewEnrollment(id.EnrollmentID(uuid.New()), orgID, employeeID, program.ID, now)
	if err != nil {
		t.Fatalf("new enrollment: %v", err)
	}
	enrollment.Status = enrollmodels.EnrollmentStatusCompleted
	if _, _, err := enrollments.CreateIfAbsent(context.Background(), enrollment); err != nil {
		t.Fatalf("create enrollment: %v", err)
	}

	report, err := enrollmodels.NewReportSubmission(orgID, enrollment.ID, "final", "done", now)
	if err != nil {
		t.Fatalf("new report: %v", err)
	}
	if err := report.ApplyReview(true, now); err != nil {
		t.Fatalf("approve report: %v", err)
	}
	if err := reports.Create(context.Background(), report); err != nil {
		t.Fatalf("create report: %v", err)
	}

	attempt, err := enrollmodels.NewTestAttempt(orgID, employeeID, testID, nil, 90, true, now)
	if err != nil {
		t.Fatalf("new attempt: %v", err)
	}
	if err := attempts.Create(context.Background(), attempt); err != nil {
		t.Fatalf("create attempt: %v", err)
	}

	evaluator, err := eligibility.New(enrollments, reports, attempts, programs, eligibility.PassPolicyAny)
	if err != nil {
		t.Fatalf("new evaluator: %v", err)
	}

	var m *metrics.Metrics
	svc := certservice.New(evaluator, certs, render.New("https://certs.example.com"),
		employees, programs, tenantservice.New(orgs),
		audit.NewPublisher(16, logger), m, logger)

	h := New(svc, logger)
	r := chi.NewRouter()
	r.Use(middleware.RequireAdminToken(adminToken, logger))
	h.Register(r)

	return &fixture{
		router:     r,
		orgID:      orgID,
		employeeID: employeeID,
		programID:  program.ID,
	}
}

func (f *fixture) do(t *testing.T, method, path string, payload any) *httptest.ResponseRecorder {
	t.Helper()
	var body *bytes.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			t.Fatalf("marshal payload: %v", err)
		}
		body = bytes.NewReader(raw)
	} else {
		body = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, body)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Admin-Token", adminToken)
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func (f *fixture) generate(t *testing.T) map[string]any {
	t.Helper()
	rec := f.do(t, http.MethodPost, "/certificates/generate", map[string]string{
		"organization_id": f.orgID.String(),
		"employee_id":     f.employeeID.String(),
		"program_id":      f.programID.String(),
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201 generating certificate, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp map[string]any
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return resp
}

func TestAdminTokenRequired(t *testing.T) {
	f := newFixture(t)
	req := httptest.NewRequest(http.MethodPost, "/certificates/generate", strings.NewReader("{}"))
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 without admin token, got %d", rec.Code)
	}
}

func TestGenerateCertificate(t *testing.T) {
	f := newFixture(t)
	resp := f.generate(t)

	number, _ := resp["certificate_number"].(string)
	if !strings.HasPrefix(number, "CERT-") {
		t.Fatalf("expected certificate_number with CERT- prefix, got %q", number)
	}
	code, _ := resp["verification_code"].(string)
	if len(code) != 12 {
		t.Fatalf("expected 12-char verification_code, got %q", code)
	}
	for _, field := range []string{"employee_name", "program_name", "organization_name", "issued_date"} {
		if resp[field] == nil || resp[field] == "" {
			t.Fatalf("expected %s in response", field)
		}
	}
}

func TestGenerateConflictsOnSecondIssue(t *testing.T) {
	f := newFixture(t)
	f.generate(t)

	rec := f.do(t, http.MethodPost, "/certificates/generate", map[string]string{
		"organization_id": f.orgID.String(),
		"employee_id":     f.employeeID.String(),
		"program_id":      f.programID.String(),
	})
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409 on second issuance, got %d", rec.Code)
	}
}

func TestGenerateIneligible(t *testing.T) {
	f := newFixture(t)
	rec := f.do(t, http.MethodPost, "/certificates/generate", map[string]string{
		"organization_id": f.orgID.String(),
		"employee_id":     f.employeeID.String(),
		"program_id":      uuid.NewString(),
	})
	// Unknown program in the caller's org.
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown program, got %d", rec.Code)
	}
}

func TestDocumentDownload(t *testing.T) {
	f := newFixture(t)
	resp := f.generate(t)
	certID, _ := resp["id"].(string)

	rec := f.do(t, http.MethodGet, "/certificates/"+certID+"?organization_id="+f.orgID.String(), nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 downloading document, got %d: %s", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); ct != "image/svg+xml" {
		t.Fatalf("expected svg content type, got %q", ct)
	}
	if cd := rec.Header().Get("Content-Disposition"); !strings.Contains(cd, "attachment") {
		t.Fatalf("expected attachment disposition, got %q", cd)
	}
	if !strings.Contains(rec.Body.String(), "Dana Smith") {
		t.Fatalf("expected rendered document to embed the employee name")
	}

	crossOrg := f.do(t, http.MethodGet, "/certificates/"+certID+"?organization_id="+uuid.NewString(), nil)
	if crossOrg.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for cross-tenant download, got %d", crossOrg.Code)
	}
}

func TestRevokeAndReissue(t *testing.T) {
	f := newFixture(t)
	resp := f.generate(t)
	certID, _ := resp["id"].(string)
	body := map[string]string{"organization_id": f.orgID.String()}

	rec := f.do(t, http.MethodPost, "/certificates/"+certID+"/revoke", body)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 revoking, got %d: %s", rec.Code, rec.Body.String())
	}

	var firstRevoke map[string]any
	if err := json.NewDecoder(rec.Body).Decode(&firstRevoke); err != nil {
		t.Fatalf("decode revoke response: %v", err)
	}

	rec = f.do(t, http.MethodPost, "/certificates/"+certID+"/revoke", body)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 on repeated revoke, got %d: %s", rec.Code, rec.Body.String())
	}
	var secondRevoke map[string]any
	if err := json.NewDecoder(rec.Body).Decode(&secondRevoke); err != nil {
		t.Fatalf("decode repeated revoke response: %v", err)
	}
	if secondRevoke["revoked_at"] != firstRevoke["revoked_at"] {
		t.Fatalf("expected repeated revoke to preserve revoked_at, got %v then %v",
			firstRevoke["revoked_at"], secondRevoke["revoked_at"])
	}

	rec = f.do(t, http.MethodPost, "/certificates/"+certID+"/reissue", body)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 reissuing, got %d: %s", rec.Code, rec.Body.String())
	}

	var reissued map[string]any
	if err := json.NewDecoder(rec.Body).Decode(&reissued); err != nil {
		t.Fatalf("decode reissue response: %v", err)
	}
	if reissued["certificate_number"] != resp["certificate_number"] {
		t.Fatalf("expected reissue to preserve the certificate number")
	}
	if reissued["status"] != "active" {
		t.Fatalf("expected reissued certificate to be active, got %v", reissued["status"])
	}
}

func TestGenerateMalformedBody(t *testing.T) {
	f := newFixture(t)
	req := httptest.NewRequest(http.MethodPost, "/certificates/generate", strings.NewReader("{not json"))
	req.Header.Set("X-Admin-Token", adminToken)
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for malformed body, got %d", rec.Code)
	}
}
