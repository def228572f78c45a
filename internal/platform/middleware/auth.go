package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	id "certforge/pkg/domain"
	"certforge/pkg/requestcontext"
)

// Claims carries the identity facts the gateway needs from a bearer token.
// Token issuance belongs to the external identity provider; this service
// only validates.
type Claims struct {
	UserID string
	OrgID  string
	Email  string
}

// TokenValidator validates a bearer token and extracts claims.
type TokenValidator interface {
	ValidateToken(tokenString string) (*Claims, error)
}

// RequireAuth enforces a valid bearer token and places the authenticated
// user (and org scope, when the token carries one) into the context.
func RequireAuth(validator TokenValidator, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			authHeader := r.Header.Get("Authorization")
			token, ok := strings.CutPrefix(authHeader, "Bearer ")
			if !ok || token == "" {
				logger.WarnContext(ctx, "unauthorized access - missing token",
					"request_id", requestcontext.RequestID(ctx),
				)
				writeUnauthorized(w, "Missing or invalid Authorization header")
				return
			}

			claims, err := validator.ValidateToken(token)
			if err != nil {
				logger.WarnContext(ctx, "unauthorized access - invalid token",
					"error", err,
					"request_id", requestcontext.RequestID(ctx),
				)
				writeUnauthorized(w, "Invalid or expired token")
				return
			}

			ctx = contextWithClaims(ctx, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func contextWithClaims(ctx context.Context, claims *Claims) context.Context {
	if userID, err := id.ParseUserID(claims.UserID); err == nil {
		ctx = requestcontext.WithUserID(ctx, userID)
	}
	if claims.OrgID != "" {
		if orgID, err := id.ParseOrgID(claims.OrgID); err == nil {
			ctx = requestcontext.WithOrgID(ctx, orgID)
		}
	}
	return ctx
}

func writeUnauthorized(w http.ResponseWriter, description string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_, _ = w.Write([]byte(`{"error":"unauthorized","reason":"` + description + `"}`))
}
