// Package store persists invites. The token uniqueness constraint and the
// row-conditioned acceptance update are the storage-level guarantees the
// gateway's idempotency rests on.
package store

import (
	"context"
	"time"

	"certforge/internal/invite/models"
	id "certforge/pkg/domain"
)

// Store is the invite persistence interface.
//
// Sentinel contract:
//   - Create returns sentinel.ErrConflict on a token collision
//   - FindByToken returns sentinel.ErrNotFound for unknown tokens
//   - Accept flips pending -> accepted only when the validity window holds;
//     it returns sentinel.ErrAlreadyUsed for accepted invites and
//     sentinel.ErrExpired for lapsed ones
type Store interface {
	Create(ctx context.Context, invite *models.Invite) error
	FindByToken(ctx context.Context, token string) (*models.Invite, error)
	// MarkExpired flips a pending invite to expired. No-op when the invite
	// already left pending; readers call this lazily.
	MarkExpired(ctx context.Context, inviteID id.InviteID) error
	Accept(ctx context.Context, token string, userID id.UserID, now time.Time) (*models.Invite, error)
}
