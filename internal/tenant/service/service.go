package service

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"certforge/internal/tenant/models"
	"certforge/internal/tenant/store"
	id "certforge/pkg/domain"
	dErrors "certforge/pkg/domain-errors"
	"certforge/pkg/platform/sentinel"
	"certforge/pkg/requestcontext"
)

// Service exposes the tenant facts the rest of the core needs.
type Service struct {
	store store.Store
}

func New(store store.Store) *Service {
	return &Service{store: store}
}

// Create seeds an organization record.
func (s *Service) Create(ctx context.Context, name string) (*models.Organization, error) {
	org, err := models.NewOrganization(id.OrgID(uuid.New()), name, requestcontext.Now(ctx))
	if err != nil {
		return nil, err
	}
	if err := s.store.Create(ctx, org); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return nil, dErrors.New(dErrors.CodeConflict, "organization already exists")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create organization")
	}
	return org, nil
}

// Get returns the organization record.
func (s *Service) Get(ctx context.Context, orgID id.OrgID) (*models.Organization, error) {
	org, err := s.store.FindByID(ctx, orgID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "organization not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load organization")
	}
	return org, nil
}

// OrgName resolves a tenant's display name. Certificate issuance denormalizes
// this onto the certificate row.
func (s *Service) OrgName(ctx context.Context, orgID id.OrgID) (string, error) {
	org, err := s.Get(ctx, orgID)
	if err != nil {
		return "", err
	}
	return org.Name, nil
}
