// Package service implements public certificate verification. This is the
// only unauthenticated read surface; the verification code is the sole
// capability, and malformed or unknown codes are indistinguishable to the
// caller.
package service

import (
	"context"
	"errors"
	"log/slog"
	"regexp"
	"strings"
	"time"

	certmodels "certforge/internal/certificate/models"
	dErrors "certforge/pkg/domain-errors"
	"certforge/pkg/platform/sentinel"
	"certforge/pkg/requestcontext"
)

// codePattern is the verification code shape. Anything else skips the store
// entirely, which keeps junk traffic off the database and leaks nothing.
var codePattern = regexp.MustCompile(`^[A-Z0-9]{12}$`)

// CertificateLookup is the read port into the certificate store.
type CertificateLookup interface {
	FindByVerificationCode(ctx context.Context, code string) (*certmodels.Certificate, error)
}

// Result is the public verification answer. Facts are disclosed for revoked
// and expired certificates too; the trust decision belongs to the caller.
type Result struct {
	CertificateNumber string                       `json:"certificate_number"`
	Status            certmodels.CertificateStatus `json:"status"`
	IsValid           bool                         `json:"is_valid"`
	IsExpired         bool                         `json:"is_expired"`
	EmployeeName      string                       `json:"employee_name"`
	ProgramName       string                       `json:"program_name"`
	OrganizationName  string                       `json:"organization_name"`
	IssuedDate        time.Time                    `json:"issued_date"`
	ExpiryDate        *time.Time                   `json:"expiry_date,omitempty"`
}

type Service struct {
	certs  CertificateLookup
	logger *slog.Logger
}

func New(certs CertificateLookup, logger *slog.Logger) *Service {
	return &Service{certs: certs, logger: logger}
}

// Verify resolves a verification code to the certificate's public facts.
// Input is normalized (trimmed, uppercased) before matching so codes survive
// copy-paste. Malformed and absent codes both come back as not found.
func (s *Service) Verify(ctx context.Context, rawCode string) (*Result, error) {
	code := strings.ToUpper(strings.TrimSpace(rawCode))
	if !codePattern.MatchString(code) {
		return nil, dErrors.New(dErrors.CodeNotFound, "certificate not found")
	}

	cert, err := s.certs.FindByVerificationCode(ctx, code)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "certificate not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to look up certificate")
	}

	now := requestcontext.Now(ctx)
	s.logger.InfoContext(ctx, "certificate verified",
		"request_id", requestcontext.RequestID(ctx),
		"certificate_number", cert.CertificateNumber,
		"valid", cert.IsValid(now),
	)

	return &Result{
		CertificateNumber: cert.CertificateNumber,
		Status:            cert.EffectiveStatus(now),
		IsValid:           cert.IsValid(now),
		IsExpired:         cert.IsExpired(now),
		EmployeeName:      cert.EmployeeName,
		ProgramName:       cert.ProgramName,
		OrganizationName:  cert.OrganizationName,
		IssuedDate:        cert.IssuedDate,
		ExpiryDate:        cert.ExpiryDate,
	}, nil
}
