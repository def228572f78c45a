package models

import "time"

// EndpointClass categorizes endpoints for differentiated rate limiting.
type EndpointClass string

const (
	// ClassPublic covers the unauthenticated surfaces: certificate
	// verification and invite token lookup.
	ClassPublic EndpointClass = "public"
	// ClassUser covers bearer-authenticated user operations.
	ClassUser EndpointClass = "user"
	// ClassAdmin covers the back-office surface.
	ClassAdmin EndpointClass = "admin"
)

func (c EndpointClass) IsValid() bool {
	switch c {
	case ClassPublic, ClassUser, ClassAdmin:
		return true
	}
	return false
}

// RateLimitResult reports one admission decision.
type RateLimitResult struct {
	Allowed    bool      `json:"allowed"`
	Limit      int       `json:"limit"`
	Remaining  int       `json:"remaining"`
	ResetAt    time.Time `json:"reset_at"`
	RetryAfter int       `json:"retry_after,omitempty"`
}

// ExceededResponse is the 429 body.
type ExceededResponse struct {
	Error      string `json:"error"`
	Message    string `json:"message"`
	RetryAfter int    `json:"retry_after"`
}
