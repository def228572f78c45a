package httpapi

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"certforge/internal/audit"
	"certforge/internal/certificate/eligibility"
	certhandler "certforge/internal/certificate/handler"
	"certforge/internal/certificate/metrics"
	"certforge/internal/certificate/render"
	certservice "certforge/internal/certificate/service"
	certstore "certforge/internal/certificate/store"
	enrollhandler "certforge/internal/enrollment/handler"
	enrollservice "certforge/internal/enrollment/service"
	enrollstore "certforge/internal/enrollment/store"
	invitehandler "certforge/internal/invite/handler"
	inviteservice "certforge/internal/invite/service"
	invitestore "certforge/internal/invite/store"
	"certforge/internal/notify"
	"certforge/internal/platform/token"
	ratelimitmw "certforge/internal/ratelimit/middleware"
	ratelimitmodels "certforge/internal/ratelimit/models"
	ratelimitservice "certforge/internal/ratelimit/service"
	ratelimitstore "certforge/internal/ratelimit/store"
	tenanthandler "certforge/internal/tenant/handler"
	tenantservice "certforge/internal/tenant/service"
	tenantstore "certforge/internal/tenant/store"
	verifyhandler "certforge/internal/verification/handler"
	verifyservice "certforge/internal/verification/service"
	"certforge/pkg/platform/tx"
)

const (
	adminToken = "secret-token"
	signingKey = "test-signing-key"
)

// newServer builds the full stack over in-memory stores, mirroring the
// production assembly in cmd/server.
func newServer(t *testing.T, limits map[ratelimitmodels.EndpointClass]ratelimitservice.Limit) http.Handler {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))

	orgs := tenantstore.NewInMemoryStore()
	employees := enrollstore.NewInMemoryEmployeeStore()
	programs := enrollstore.NewInMemoryProgramStore()
	enrollments := enrollstore.NewInMemoryEnrollmentStore()
	reports := enrollstore.NewInMemoryReportStore()
	attempts := enrollstore.NewInMemoryAttemptStore()
	certs := certstore.NewInMemoryStore()
	invites := invitestore.NewInMemoryStore()

	publisher := audit.NewPublisher(16, logger)

	tenantSvc := tenantservice.New(orgs)
	enrollSvc := enrollservice.New(employees, programs, enrollments, reports, attempts, logger)
	evaluator, err := eligibility.New(enrollments, reports, attempts, programs, eligibility.PassPolicyAny)
	if err != nil {
		t.Fatalf("new evaluator: %v", err)
	}
	var m *metrics.Metrics
	certSvc := certservice.New(evaluator, certs, render.New("https://certs.example.com"),
		employees, programs, tenantSvc, publisher, m, logger)
	inviteSvc := inviteservice.New(invites, tenantSvc, programs, enrollSvc,
		notify.NewLogNotifier(logger), tx.NopRunner{}, publisher, 0, logger)

	limiter := ratelimitservice.New(ratelimitstore.NewInMemoryStore(), limits, logger)

	return NewRouter(Deps{
		Logger:         logger,
		AdminToken:     adminToken,
		TokenValidator: token.NewValidator(signingKey),
		RateLimit:      ratelimitmw.New(limiter, logger),
		RequestTimeout: 5 * time.Second,
		Certificates:   certhandler.New(certSvc, logger),
		Enrollment:     enrollhandler.New(enrollSvc, logger),
		Organizations:  tenanthandler.New(tenantSvc),
		Invites:        invitehandler.New(inviteSvc, logger),
		Verification:   verifyhandler.New(verifyservice.New(certs, logger), logger),
	})
}

type client struct {
	t      *testing.T
	router http.Handler
}

func (c *client) do(method, path string, payload any, headers map[string]string) *httptest.ResponseRecorder {
	c.t.Helper()
	var body *bytes.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			c.t.Fatalf("marshal payload: %v", err)
		}
		body = bytes.NewReader(raw)
	} else {
		body = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, body)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	c.router.ServeHTTP(rec, req)
	return rec
}

func (c *client) admin(method, path string, payload any) map[string]any {
	c.t.Helper()
	rec := c.do(method, path, payload, map[string]string{"X-Admin-Token": adminToken})
	if rec.Code >= 300 {
		c.t.Fatalf("%s %s: unexpected status %d: %s", method, path, rec.Code, rec.Body.String())
	}
	var resp map[string]any
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		c.t.Fatalf("decode %s %s response: %v", method, path, err)
	}
	return resp
}

func bearerFor(t *testing.T, userID string) string {
	t.Helper()
	claims := jwt.MapClaims{
		"sub": userID,
		"exp": time.Now().Add(time.Hour).Unix(),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(signingKey))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return "Bearer " + signed
}

// TestCertificationLifecycle walks the whole path: seed a tenant, enroll via
// invite, progress to completion, pass the test, issue, and verify publicly.
func TestCertificationLifecycle(t *testing.T) {
	c := &client{t: t, router: newServer(t, nil)}

	org := c.admin(http.MethodPost, "/organizations", map[string]string{"name": "Acme Logistics"})
	orgID := org["id"].(string)

	testID := uuid.NewString()
	validity := 24
	program := c.admin(http.MethodPost, "/programs", map[string]any{
		"organization_id": orgID,
		"name":            "Forklift Safety",
		"test_ids":        []string{testID},
		"validity_months": validity,
	})
	programID := program["id"].(string)

	// Invite an unregistered person into the program.
	invite := c.admin(http.MethodPost, "/invites", map[string]string{
		"organization_id": orgID,
		"email":           "dana.smith@example.com",
		"program_id":      programID,
	})
	inviteToken := invite["token"].(string)

	meta := c.do(http.MethodGet, "/invites/verify?token="+inviteToken, nil, nil)
	if meta.Code != http.StatusOK {
		t.Fatalf("expected 200 resolving invite, got %d: %s", meta.Code, meta.Body.String())
	}

	userID := uuid.NewString()
	auth := map[string]string{"Authorization": bearerFor(t, userID)}
	accepted := c.do(http.MethodPost, "/invites/accept", map[string]string{"token": inviteToken}, auth)
	if accepted.Code != http.StatusOK {
		t.Fatalf("expected 200 accepting invite, got %d: %s", accepted.Code, accepted.Body.String())
	}
	var acceptResult struct {
		Employee struct {
			ID string `json:"id"`
		} `json:"employee"`
		Enrollment struct {
			ID string `json:"id"`
		} `json:"enrollment"`
	}
	if err := json.NewDecoder(accepted.Body).Decode(&acceptResult); err != nil {
		t.Fatalf("decode accept result: %v", err)
	}
	employeeID := acceptResult.Employee.ID
	enrollmentID := acceptResult.Enrollment.ID

	// Not eligible yet: program not completed.
	rec := c.do(http.MethodPost, "/certificates/generate", map[string]string{
		"organization_id": orgID,
		"employee_id":     employeeID,
		"program_id":      programID,
	}, map[string]string{"X-Admin-Token": adminToken})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 before completion, got %d: %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), "not_completed") {
		t.Fatalf("expected not_completed reason, got %s", rec.Body.String())
	}

	c.admin(http.MethodPost, "/enrollments/"+enrollmentID+"/progress", map[string]any{
		"organization_id":     orgID,
		"progress_percentage": 100,
	})
	report := c.admin(http.MethodPost, "/enrollments/"+enrollmentID+"/reports", map[string]string{
		"organization_id": orgID,
		"type":            "final",
		"content":         "all modules completed",
	})
	c.admin(http.MethodPost, "/reports/"+report["id"].(string)+"/review", map[string]any{
		"organization_id": orgID,
		"approved":        true,
	})

	// Still ineligible until the test is passed.
	rec = c.do(http.MethodPost, "/certificates/generate", map[string]string{
		"organization_id": orgID,
		"employee_id":     employeeID,
		"program_id":      programID,
	}, map[string]string{"X-Admin-Token": adminToken})
	if rec.Code != http.StatusBadRequest || !strings.Contains(rec.Body.String(), "test_not_passed") {
		t.Fatalf("expected 400 test_not_passed, got %d: %s", rec.Code, rec.Body.String())
	}

	c.admin(http.MethodPost, "/test-attempts", map[string]any{
		"organization_id": orgID,
		"employee_id":     employeeID,
		"test_id":         testID,
		"score":           92,
		"passed":          true,
	})

	cert := c.admin(http.MethodPost, "/certificates/generate", map[string]string{
		"organization_id": orgID,
		"employee_id":     employeeID,
		"program_id":      programID,
	})
	code := cert["verification_code"].(string)
	if len(code) != 12 {
		t.Fatalf("expected 12-char verification code, got %q", code)
	}
	if cert["expiry_date"] == nil {
		t.Fatal("expected expiry date from program validity")
	}

	// Anyone holding the code can verify, no credentials.
	verified := c.do(http.MethodGet, "/verify?code="+code, nil, nil)
	if verified.Code != http.StatusOK {
		t.Fatalf("expected 200 verifying, got %d: %s", verified.Code, verified.Body.String())
	}
	var facts map[string]any
	if err := json.NewDecoder(verified.Body).Decode(&facts); err != nil {
		t.Fatalf("decode verification: %v", err)
	}
	if facts["is_valid"] != true {
		t.Fatalf("expected valid certificate, got %v", facts["is_valid"])
	}
	if facts["employee_name"] != "Dana Smith" {
		t.Fatalf("expected employee name from invite email, got %v", facts["employee_name"])
	}

	// Second issuance for the same pair conflicts.
	rec = c.do(http.MethodPost, "/certificates/generate", map[string]string{
		"organization_id": orgID,
		"employee_id":     employeeID,
		"program_id":      programID,
	}, map[string]string{"X-Admin-Token": adminToken})
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409 on second issuance, got %d", rec.Code)
	}

	// Revoke, then the public answer flips to invalid without hiding facts.
	certID := cert["id"].(string)
	c.admin(http.MethodPost, "/certificates/"+certID+"/revoke", map[string]string{"organization_id": orgID})
	verified = c.do(http.MethodGet, "/verify?code="+code, nil, nil)
	if verified.Code != http.StatusOK {
		t.Fatalf("expected 200 verifying revoked certificate, got %d", verified.Code)
	}
	if !strings.Contains(verified.Body.String(), `"is_valid":false`) {
		t.Fatalf("expected is_valid false after revoke, got %s", verified.Body.String())
	}
}

func TestHealthAndMetricsEndpoints(t *testing.T) {
	c := &client{t: t, router: newServer(t, nil)}

	health := c.do(http.MethodGet, "/healthz", nil, nil)
	if health.Code != http.StatusOK {
		t.Fatalf("expected 200 from healthz, got %d", health.Code)
	}
	metricsRec := c.do(http.MethodGet, "/metrics", nil, nil)
	if metricsRec.Code != http.StatusOK {
		t.Fatalf("expected 200 from metrics, got %d", metricsRec.Code)
	}
}

func TestPublicSurfaceIsRateLimited(t *testing.T) {
	limits := map[ratelimitmodels.EndpointClass]ratelimitservice.Limit{
		ratelimitmodels.ClassPublic: {Requests: 2, Window: time.Minute},
		ratelimitmodels.ClassUser:   {Requests: 100, Window: time.Minute},
		ratelimitmodels.ClassAdmin:  {Requests: 100, Window: time.Minute},
	}
	c := &client{t: t, router: newServer(t, limits)}

	for i := 0; i < 2; i++ {
		rec := c.do(http.MethodGet, "/verify?code=ABCDEF123456", nil, nil)
		if rec.Code != http.StatusNotFound {
			t.Fatalf("expected 404 for unknown code, got %d", rec.Code)
		}
		if rec.Header().Get("X-RateLimit-Remaining") == "" {
			t.Fatal("expected rate limit headers on public surface")
		}
	}

	rec := c.do(http.MethodGet, "/verify?code=ABCDEF123456", nil, nil)
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429 over the public limit, got %d", rec.Code)
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Fatal("expected Retry-After header")
	}

	// The admin surface has its own budget and is unaffected.
	org := c.admin(http.MethodPost, "/organizations", map[string]string{"name": "Acme"})
	if org["id"] == nil {
		t.Fatal("expected organization created while public surface throttled")
	}
}

func TestAdminSurfaceRejectsWithoutToken(t *testing.T) {
	c := &client{t: t, router: newServer(t, nil)}

	for _, path := range []string{"/organizations", "/programs", "/employees", "/certificates/generate", "/invites"} {
		rec := c.do(http.MethodPost, path, map[string]string{}, nil)
		if rec.Code != http.StatusForbidden {
			t.Fatalf("expected 403 for %s without admin token, got %d", path, rec.Code)
		}
	}
}
