package config

import (
	"os"
	"strconv"
	"time"
)

// Server captures process-level configuration.
type Server struct {
	Addr           string
	DatabaseURL    string
	RedisURL       string
	AdminToken     string
	JWTSigningKey  string
	BaseURL        string
	InviteTTL      time.Duration
	RequestTimeout time.Duration
	RateLimitOff   bool
}

// FromEnv builds a Server config from environment variables so main stays lean.
func FromEnv() Server {
	addr := os.Getenv("CERTFORGE_ADDR")
	if addr == "" {
		addr = ":8080"
	}

	baseURL := os.Getenv("CERTFORGE_BASE_URL")
	if baseURL == "" {
		baseURL = "http://localhost:8080"
	}

	adminToken := os.Getenv("ADMIN_TOKEN")
	if adminToken == "" {
		// Use a default for development - must be overridden in production
		adminToken = "dev-admin-token-change-in-production"
	}

	jwtSigningKey := os.Getenv("JWT_SIGNING_KEY")
	if jwtSigningKey == "" {
		jwtSigningKey = "dev-secret-key-change-in-production"
	}

	return Server{
		Addr:           addr,
		DatabaseURL:    os.Getenv("DATABASE_URL"),
		RedisURL:       os.Getenv("REDIS_URL"),
		AdminToken:     adminToken,
		JWTSigningKey:  jwtSigningKey,
		BaseURL:        baseURL,
		InviteTTL:      durationFromEnv("INVITE_TTL_HOURS", 7*24*time.Hour),
		RequestTimeout: durationFromEnv("REQUEST_TIMEOUT_SECONDS", 30*time.Second),
		RateLimitOff:   os.Getenv("RATE_LIMIT_DISABLED") == "true",
	}
}

func durationFromEnv(key string, fallback time.Duration) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return fallback
	}
	unit := time.Second
	if key == "INVITE_TTL_HOURS" {
		unit = time.Hour
	}
	return time.Duration(n) * unit
}
