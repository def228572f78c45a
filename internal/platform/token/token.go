// Package token validates bearer tokens minted by the external identity
// provider. HS256 with a shared signing key; the provider owns issuance,
// refresh, and revocation.
package token

import (
	"fmt"

	"github.com/golang-jwt/jwt/v5"

	"certforge/internal/platform/middleware"
)

// Validator checks token signatures and extracts the claims this service
// relies on.
type Validator struct {
	signingKey []byte
}

func NewValidator(signingKey string) *Validator {
	return &Validator{signingKey: []byte(signingKey)}
}

type claims struct {
	OrgID string `json:"org_id,omitempty"`
	Email string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

// ValidateToken parses and verifies a bearer token.
func (v *Validator) ValidateToken(tokenString string) (*middleware.Claims, error) {
	parsed, err := jwt.ParseWithClaims(tokenString, &claims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return v.signingKey, nil
	})
	if err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}

	c, ok := parsed.Claims.(*claims)
	if !ok || !parsed.Valid {
		return nil, fmt.Errorf("invalid token claims")
	}
	if c.Subject == "" {
		return nil, fmt.Errorf("token missing subject")
	}

	return &middleware.Claims{
		UserID: c.Subject,
		OrgID:  c.OrgID,
		Email:  c.Email,
	}, nil
}
