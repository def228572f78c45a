package middleware

import (
	"net"
	"net/http"
	"strings"

	"github.com/mssola/useragent"

	"certforge/pkg/requestcontext"
)

// ClientMetadata captures the client IP and a parsed User-Agent summary into
// the request context. The rate limiter keys on the IP; the summary goes into
// audit logging for invite acceptance and public verification traffic.
func ClientMetadata(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := requestcontext.WithClientMetadata(r.Context(), clientIP(r), uaSummary(r.UserAgent()))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		// First hop is the originating client.
		if i := strings.IndexByte(fwd, ','); i > 0 {
			return strings.TrimSpace(fwd[:i])
		}
		return strings.TrimSpace(fwd)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func uaSummary(raw string) string {
	if raw == "" {
		return ""
	}
	ua := useragent.New(raw)
	name, version := ua.Browser()
	parts := make([]string, 0, 3)
	if name != "" {
		parts = append(parts, name+" "+version)
	}
	if os := ua.OS(); os != "" {
		parts = append(parts, os)
	}
	if ua.Bot() {
		parts = append(parts, "bot")
	}
	if len(parts) == 0 {
		return raw
	}
	return strings.Join(parts, "; ")
}
