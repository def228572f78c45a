package middleware

import (
	"crypto/subtle"
	"log/slog"
	"net/http"

	"certforge/pkg/requestcontext"
)

// RequireAdminToken gates organization-admin routes. Admin requests also
// carry a bearer token identifying the admin's org scope; this shared-secret
// check is the coarse switch for the back-office surface.
func RequireAdminToken(expectedToken string, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := r.Header.Get("X-Admin-Token")
			// Use constant-time comparison to prevent timing attacks
			if subtle.ConstantTimeCompare([]byte(token), []byte(expectedToken)) != 1 {
				ctx := r.Context()
				logger.WarnContext(ctx, "admin token mismatch",
					"request_id", requestcontext.RequestID(ctx),
				)
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusForbidden)
				_, _ = w.Write([]byte(`{"error":"forbidden","reason":"admin token required"}`))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
