// Package httpapi assembles the HTTP surface: middleware chain, route
// groups per auth surface, and the operational endpoints.
package httpapi

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	certhandler "certforge/internal/certificate/handler"
	enrollhandler "certforge/internal/enrollment/handler"
	"certforge/internal/http/shared"
	invitehandler "certforge/internal/invite/handler"
	platformmw "certforge/internal/platform/middleware"
	ratelimitmw "certforge/internal/ratelimit/middleware"
	ratelimitmodels "certforge/internal/ratelimit/models"
	tenanthandler "certforge/internal/tenant/handler"
	verifyhandler "certforge/internal/verification/handler"
)

// Deps carries everything the router mounts. Handlers own their routes;
// this package owns which auth surface each group sits behind.
type Deps struct {
	Logger         *slog.Logger
	AdminToken     string
	TokenValidator platformmw.TokenValidator
	RateLimit      *ratelimitmw.Middleware
	RequestTimeout time.Duration

	Certificates  *certhandler.Handler
	Enrollment    *enrollhandler.Handler
	Organizations *tenanthandler.Handler
	Invites       *invitehandler.Handler
	Verification  *verifyhandler.Handler

	// Readiness reports whether backing stores are reachable. Nil means
	// always ready.
	Readiness func(ctx context.Context) error
}

// NewRouter wires the three auth surfaces. Verification and invite lookup
// are public and throttled hardest; invite acceptance needs a bearer token;
// everything else is back-office behind the admin token.
func NewRouter(d Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(platformmw.Recovery(d.Logger))
	r.Use(platformmw.RequestID)
	r.Use(platformmw.ClientMetadata)
	r.Use(platformmw.Logger(d.Logger))
	r.Use(platformmw.Timeout(d.RequestTimeout))
	r.Use(platformmw.ContentTypeJSON)

	r.Get("/healthz", d.handleHealth)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Group(func(r chi.Router) {
		r.Use(d.RateLimit.Limit(ratelimitmodels.ClassPublic))
		d.Verification.Register(r)
		d.Invites.RegisterPublic(r)
	})

	r.Group(func(r chi.Router) {
		r.Use(platformmw.RequireAuth(d.TokenValidator, d.Logger))
		r.Use(d.RateLimit.LimitAuthenticated(ratelimitmodels.ClassUser))
		d.Invites.RegisterUser(r)
	})

	r.Group(func(r chi.Router) {
		r.Use(platformmw.RequireAdminToken(d.AdminToken, d.Logger))
		r.Use(d.RateLimit.Limit(ratelimitmodels.ClassAdmin))
		d.Certificates.Register(r)
		d.Enrollment.Register(r)
		d.Organizations.Register(r)
		d.Invites.RegisterAdmin(r)
	})

	return r
}

func (d Deps) handleHealth(w http.ResponseWriter, r *http.Request) {
	if d.Readiness != nil {
		if err := d.Readiness(r.Context()); err != nil {
			shared.WriteJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status": "degraded",
			})
			return
		}
	}
	shared.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
