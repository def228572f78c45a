package models

import (
	"time"

	id "certforge/pkg/domain"
	dErrors "certforge/pkg/domain-errors"
)

// CertificateStatus is the stored lifecycle state. Expiry is never stored:
// it is derived from ExpiryDate at read time, so a certificate can expire
// without a write.
type CertificateStatus string

const (
	CertificateStatusActive  CertificateStatus = "active"
	CertificateStatusRevoked CertificateStatus = "revoked"

	// CertificateStatusExpired is presentation-only: an active certificate
	// whose expiry date has passed reports this status on verification.
	CertificateStatusExpired CertificateStatus = "expired"
)

// Certificate is the issued credential.
//
// Invariants:
//   - At most one active certificate per (organization, employee, program),
//     enforced by the store
//   - CertificateNumber and VerificationCode are globally unique and never
//     change after issuance, across revoke and reissue included
//   - Rows are never deleted; revocation is a status change
//
// Display names are denormalized at issuance so public verification reads
// only this record.
type Certificate struct {
	ID                id.CertificateID  `json:"id"`
	OrgID             id.OrgID          `json:"organization_id"`
	EmployeeID        id.EmployeeID     `json:"employee_id"`
	ProgramID         id.ProgramID      `json:"program_id"`
	CertificateNumber string            `json:"certificate_number"`
	VerificationCode  string            `json:"verification_code"`
	Status            CertificateStatus `json:"status"`
	IssuedDate        time.Time         `json:"issued_date"`
	ExpiryDate        *time.Time        `json:"expiry_date,omitempty"`
	RevokedAt         *time.Time        `json:"revoked_at,omitempty"`

	EmployeeName     string `json:"employee_name"`
	ProgramName      string `json:"program_name"`
	OrganizationName string `json:"organization_name"`
}

// IsExpired reports whether the certificate's validity window has closed.
// Certificates without an expiry date never expire.
func (c *Certificate) IsExpired(now time.Time) bool {
	return c.ExpiryDate != nil && c.ExpiryDate.Before(now)
}

// IsValid reports whether the certificate currently attests anything: it
// must be active and within its validity window.
func (c *Certificate) IsValid(now time.Time) bool {
	return c.Status == CertificateStatusActive && !c.IsExpired(now)
}

// EffectiveStatus is the status to present externally. Active-but-expired
// reads as expired without a stored transition.
func (c *Certificate) EffectiveStatus(now time.Time) CertificateStatus {
	if c.Status == CertificateStatusActive && c.IsExpired(now) {
		return CertificateStatusExpired
	}
	return c.Status
}

// CanRevoke checks the revoke precondition. Revoking an already revoked
// certificate is permitted so a retried revoke settles instead of failing.
func (c *Certificate) CanRevoke() error {
	switch c.Status {
	case CertificateStatusActive, CertificateStatusRevoked:
		return nil
	default:
		return dErrors.New(dErrors.CodeInvariantViolation, "certificate is not in a revocable state")
	}
}

// ApplyRevoke transitions active to revoked. Identifiers are untouched, and
// an already revoked certificate keeps its original RevokedAt.
func (c *Certificate) ApplyRevoke(now time.Time) {
	if c.Status == CertificateStatusRevoked {
		return
	}
	c.Status = CertificateStatusRevoked
	t := now
	c.RevokedAt = &t
}

// CanReissue checks the reissue precondition: only a revoked certificate can
// return to active, and only through the store's active-pair check.
func (c *Certificate) CanReissue() error {
	if c.Status != CertificateStatusRevoked {
		return dErrors.New(dErrors.CodeInvariantViolation, "only revoked certificates can be reissued")
	}
	return nil
}

// ApplyReissue transitions revoked back to active. The original identifiers
// and dates are preserved.
func (c *Certificate) ApplyReissue() {
	c.Status = CertificateStatusActive
	c.RevokedAt = nil
}
