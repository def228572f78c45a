package models

import (
	"strings"
	"time"

	id "certforge/pkg/domain"
	dErrors "certforge/pkg/domain-errors"
)

// InviteStatus is the stored invite state. The stored status is a cache:
// readers must check ExpiresAt before trusting pending.
type InviteStatus string

const (
	InviteStatusPending  InviteStatus = "pending"
	InviteStatusAccepted InviteStatus = "accepted"
	InviteStatusExpired  InviteStatus = "expired"
)

// Invite is a time-boxed credential linking an unregistered person to an
// organization and, optionally, a program.
//
// Invariants:
//   - Token is opaque and unguessable, unique across all invites
//   - pending -> accepted happens exactly once
//   - pending -> expired is derived from ExpiresAt and flipped lazily on read
type Invite struct {
	ID         id.InviteID   `json:"id"`
	OrgID      id.OrgID      `json:"organization_id"`
	Email      string        `json:"email"`
	ProgramID  *id.ProgramID `json:"program_id,omitempty"`
	Token      string        `json:"token"`
	Status     InviteStatus  `json:"status"`
	CreatedAt  time.Time     `json:"created_at"`
	ExpiresAt  time.Time     `json:"expires_at"`
	AcceptedAt *time.Time    `json:"accepted_at,omitempty"`
	AcceptedBy *id.UserID    `json:"accepted_by,omitempty"`
}

func NewInvite(inviteID id.InviteID, orgID id.OrgID, email, token string, programID *id.ProgramID, ttl time.Duration, now time.Time) (*Invite, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if orgID.IsZero() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "organization is required")
	}
	if email == "" || !strings.Contains(email, "@") {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "a valid email address is required")
	}
	if token == "" {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "token is required")
	}
	if ttl <= 0 {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "validity window must be positive")
	}
	return &Invite{
		ID:        inviteID,
		OrgID:     orgID,
		Email:     email,
		ProgramID: programID,
		Token:     token,
		Status:    InviteStatusPending,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}, nil
}

// IsExpired reports whether the validity window has lapsed, regardless of the
// stored status.
func (i *Invite) IsExpired(now time.Time) bool {
	return i.ExpiresAt.Before(now)
}

// ApplyExpiry flips a lapsed pending invite to expired.
func (i *Invite) ApplyExpiry() {
	if i.Status == InviteStatusPending {
		i.Status = InviteStatusExpired
	}
}

// ApplyAccept transitions pending -> accepted and records the accepting
// identity. Callers check the validity window first.
func (i *Invite) ApplyAccept(userID id.UserID, now time.Time) {
	i.Status = InviteStatusAccepted
	t := now
	i.AcceptedAt = &t
	u := userID
	i.AcceptedBy = &u
}
