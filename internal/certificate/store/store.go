package store

import (
	"context"

	"certforge/internal/certificate/models"
	id "certforge/pkg/domain"
)

// Store persists certificates. Implementations enforce the issuance
// invariants, not the service:
//
//   - at most one active certificate per (organization, employee, program)
//   - globally unique certificate_number and verification_code
//
// Create distinguishes the two violation classes through sentinels:
// sentinel.ErrConflict for an active-pair duplicate (the caller already holds
// a certificate; not retryable) and sentinel.ErrAlreadyUsed for an identifier
// collision (regenerate and retry).
type Store interface {
	Create(ctx context.Context, cert *models.Certificate) error
	// FindByID is organization-scoped; a cross-tenant lookup behaves like a
	// missing record.
	FindByID(ctx context.Context, orgID id.OrgID, certID id.CertificateID) (*models.Certificate, error)
	// FindByVerificationCode is global: the public verification path has no
	// tenant context, the code itself is the capability.
	FindByVerificationCode(ctx context.Context, code string) (*models.Certificate, error)
	// ListByOrg returns every certificate in an organization, newest first.
	ListByOrg(ctx context.Context, orgID id.OrgID) ([]*models.Certificate, error)
	// Execute atomically validates then mutates a certificate. A mutation
	// that reactivates a certificate re-checks the active-pair constraint
	// and fails with sentinel.ErrConflict if another active certificate
	// exists for the pair.
	Execute(ctx context.Context, orgID id.OrgID, certID id.CertificateID,
		validate func(*models.Certificate) error, mutate func(*models.Certificate)) (*models.Certificate, error)
}
