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
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"certforge/internal/audit"
	enrollmodels "certforge/internal/enrollment/models"
	enrollservice "certforge/internal/enrollment/service"
	enrollstore "certforge/internal/enrollment/store"
	inviteservice "certforge/internal/invite/service"
	invitestore "certforge/internal/invite/store"
	"certforge/internal/notify"
	"certforge/internal/platform/middleware"
	"certforge/internal/platform/token"
	tenantmodels "certforge/internal/tenant/models"
	tenantservice "certforge/internal/tenant/service"
	tenantstore "certforge/internal/tenant/store"
	id "certforge/pkg/domain"
	"certforge/pkg/platform/tx"
)

const (
	adminToken = "secret-token"
	signingKey = "test-signing-key"
)

type fixture struct {
	router    http.Handler
	orgID     id.OrgID
	programID id.ProgramID
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	now := time.Now().UTC()
	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))

	invites := invitestore.NewInMemoryStore()
	employees := enrollstore.NewInMemoryEmployeeStore()
	programs := enrollstore.NewInMemoryProgramStore()
	enrollments := enrollstore.NewInMemoryEnrollmentStore()
	reports := enrollstore.NewInMemoryReportStore()
	attempts := enrollstore.NewInMemoryAttemptStore()
	orgs := tenantstore.NewInMemoryStore()

	orgID := id.OrgID(uuid.New())
	org, err := tenantmodels.NewOrganization(orgID, "Acme Logistics", now)
	if err != nil {
		t.Fatalf("new organization: %v", err)
	}
	if err := orgs.Create(context.Background(), org); err != nil {
		t.Fatalf("create organization: %v", err)
	}

	program, err := enrollmodels.NewProgram(id.ProgramID(uuid.New()), orgID, "Forklift Safety", []id.TestID{id.TestID(uuid.New())}, nil, now)
	if err != nil {
		t.Fatalf("new program: %v", err)
	}
	if err := programs.Create(context.Background(), program); err != nil {
		t.Fatalf("create program: %v", err)
	}

	enroller := enrollservice.New(employees, programs, enrollments, reports, attempts, logger)
	svc := inviteservice.New(invites, tenantservice.New(orgs), programs, enroller,
		notify.NewLogNotifier(logger), tx.NopRunner{}, audit.NewPublisher(16, logger), 0, logger)

	h := New(svc, logger)
	r := chi.NewRouter()
	h.RegisterPublic(r)
	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAdminToken(adminToken, logger))
		h.RegisterAdmin(r)
	})
	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth(token.NewValidator(signingKey), logger))
		h.RegisterUser(r)
	})

	return &fixture{router: r, orgID: orgID, programID: program.ID}
}

func (f *fixture) do(t *testing.T, method, path string, payload any, headers map[string]string) *httptest.ResponseRecorder {
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
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func (f *fixture) createInvite(t *testing.T) map[string]any {
	t.Helper()
	rec := f.do(t, http.MethodPost, "/invites", map[string]string{
		"organization_id": f.orgID.String(),
		"email":           "dana.smith@example.com",
		"program_id":      f.programID.String(),
	}, map[string]string{"X-Admin-Token": adminToken})
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201 creating invite, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp map[string]any
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return resp
}

func bearerFor(t *testing.T, userID id.UserID) string {
	t.Helper()
	claims := jwt.MapClaims{
		"sub":   userID.String(),
		"email": "dana.smith@example.com",
		"exp":   time.Now().Add(time.Hour).Unix(),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(signingKey))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return "Bearer " + signed
}

func TestCreateInviteRequiresAdminToken(t *testing.T) {
	f := newFixture(t)
	rec := f.do(t, http.MethodPost, "/invites", map[string]string{
		"organization_id": f.orgID.String(),
		"email":           "dana@example.com",
	}, nil)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 without admin token, got %d", rec.Code)
	}
}

func TestCreateInvite(t *testing.T) {
	f := newFixture(t)
	resp := f.createInvite(t)

	tok, _ := resp["token"].(string)
	if tok == "" {
		t.Fatal("expected invite token in response")
	}
	if resp["status"] != "pending" {
		t.Fatalf("expected pending status, got %v", resp["status"])
	}
}

func TestResolveInvite(t *testing.T) {
	f := newFixture(t)
	resp := f.createInvite(t)
	tok, _ := resp["token"].(string)

	rec := f.do(t, http.MethodGet, "/invites/verify?token="+tok, nil, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 resolving invite, got %d: %s", rec.Code, rec.Body.String())
	}
	var meta map[string]any
	if err := json.NewDecoder(rec.Body).Decode(&meta); err != nil {
		t.Fatalf("decode metadata: %v", err)
	}
	if meta["organization_name"] != "Acme Logistics" {
		t.Fatalf("expected organization name, got %v", meta["organization_name"])
	}
	if meta["program_name"] != "Forklift Safety" {
		t.Fatalf("expected program name, got %v", meta["program_name"])
	}

	unknown := f.do(t, http.MethodGet, "/invites/verify?token=no-such-token", nil, nil)
	if unknown.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown token, got %d", unknown.Code)
	}
}

func TestAcceptRequiresBearerToken(t *testing.T) {
	f := newFixture(t)
	rec := f.do(t, http.MethodPost, "/invites/accept", map[string]string{"token": "anything"}, nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without bearer token, got %d", rec.Code)
	}
}

func TestAcceptInvite(t *testing.T) {
	f := newFixture(t)
	resp := f.createInvite(t)
	tok, _ := resp["token"].(string)
	auth := map[string]string{"Authorization": bearerFor(t, id.UserID(uuid.New()))}

	rec := f.do(t, http.MethodPost, "/invites/accept", map[string]string{"token": tok}, auth)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 accepting invite, got %d: %s", rec.Code, rec.Body.String())
	}
	var result map[string]any
	if err := json.NewDecoder(rec.Body).Decode(&result); err != nil {
		t.Fatalf("decode result: %v", err)
	}
	employee, _ := result["employee"].(map[string]any)
	if employee == nil || employee["name"] != "Dana Smith" {
		t.Fatalf("expected employee derived from invite email, got %v", result["employee"])
	}
	if result["enrollment"] == nil {
		t.Fatal("expected enrollment for program invite")
	}

	second := f.do(t, http.MethodPost, "/invites/accept", map[string]string{"token": tok}, auth)
	if second.Code != http.StatusConflict {
		t.Fatalf("expected 409 on second accept, got %d", second.Code)
	}
	if !strings.Contains(second.Body.String(), "already_accepted") {
		t.Fatalf("expected already_accepted reason, got %s", second.Body.String())
	}
}

func TestAcceptUnknownToken(t *testing.T) {
	f := newFixture(t)
	auth := map[string]string{"Authorization": bearerFor(t, id.UserID(uuid.New()))}
	rec := f.do(t, http.MethodPost, "/invites/accept", map[string]string{"token": "no-such-token"}, auth)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown token, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "invalid_or_expired") {
		t.Fatalf("expected invalid_or_expired reason, got %s", rec.Body.String())
	}
}
