// Package store holds the rate limit counter backends. The in-memory sliding
// window serves a single process; the Redis fixed window serves horizontally
// scaled deployments where counters must be shared.
package store

import (
	"context"
	"time"

	"certforge/internal/ratelimit/models"
)

// CounterStore admits or rejects one request against a keyed counter.
type CounterStore interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (*models.RateLimitResult, error)
	Reset(ctx context.Context, key string) error
}
