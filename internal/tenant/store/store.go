package store

import (
	"context"

	"certforge/internal/tenant/models"
	id "certforge/pkg/domain"
)

// Store persists organizations. Names are unique so a duplicate seed is
// caught instead of silently forking a tenant.
type Store interface {
	Create(ctx context.Context, org *models.Organization) error
	FindByID(ctx context.Context, orgID id.OrgID) (*models.Organization, error)
}
