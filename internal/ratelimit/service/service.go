// Package service decides admission per caller and endpoint class. Limits
// are advisory throttling: the issuance invariants hold with or without
// them, so failures here always fail open.
package service

import (
	"context"
	"log/slog"
	"time"

	"certforge/internal/ratelimit/models"
	"certforge/internal/ratelimit/store"
)

// Limit is requests per window.
type Limit struct {
	Requests int
	Window   time.Duration
}

// DefaultLimits keeps the public surface tight and the authenticated
// surfaces loose. Public verification is the abuse magnet; everything else
// sits behind a credential.
func DefaultLimits() map[models.EndpointClass]Limit {
	return map[models.EndpointClass]Limit{
		models.ClassPublic: {Requests: 60, Window: time.Minute},
		models.ClassUser:   {Requests: 120, Window: time.Minute},
		models.ClassAdmin:  {Requests: 300, Window: time.Minute},
	}
}

type Service struct {
	counters store.CounterStore
	limits   map[models.EndpointClass]Limit
	logger   *slog.Logger
}

func New(counters store.CounterStore, limits map[models.EndpointClass]Limit, logger *slog.Logger) *Service {
	if limits == nil {
		limits = DefaultLimits()
	}
	return &Service{counters: counters, limits: limits, logger: logger}
}

// CheckIP admits one request from an IP against the class limit. A class
// with no configured limit denies, so a new endpoint class cannot ship
// unthrottled by omission.
func (s *Service) CheckIP(ctx context.Context, ip string, class models.EndpointClass) (*models.RateLimitResult, error) {
	return s.check(ctx, "ip:"+ip, class)
}

// CheckUser admits one request from an authenticated user.
func (s *Service) CheckUser(ctx context.Context, userID string, class models.EndpointClass) (*models.RateLimitResult, error) {
	return s.check(ctx, "user:"+userID, class)
}

func (s *Service) check(ctx context.Context, identity string, class models.EndpointClass) (*models.RateLimitResult, error) {
	limit, ok := s.limits[class]
	if !ok {
		s.logger.WarnContext(ctx, "no rate limit configured for class",
			"endpoint_class", string(class),
		)
		return &models.RateLimitResult{
			Allowed:    false,
			ResetAt:    time.Now().Add(time.Minute),
			RetryAfter: 60,
		}, nil
	}
	return s.counters.Allow(ctx, "rl:"+string(class)+":"+identity, limit.Requests, limit.Window)
}
