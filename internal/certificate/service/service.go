// Package service orchestrates the certificate lifecycle: eligibility,
// identifier allocation, exactly-once persistence, rendering, and the
// administrative revoke/reissue transitions.
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"certforge/internal/audit"
	"certforge/internal/certificate/codes"
	"certforge/internal/certificate/eligibility"
	"certforge/internal/certificate/metrics"
	"certforge/internal/certificate/models"
	"certforge/internal/certificate/store"
	enrollmodels "certforge/internal/enrollment/models"
	id "certforge/pkg/domain"
	dErrors "certforge/pkg/domain-errors"
	"certforge/pkg/platform/sentinel"
	"certforge/pkg/requestcontext"
)

// maxIdentifierAttempts bounds regeneration on identifier collision. This is
// the only retry policy in the core; a pair collision at ~62 bits of entropy
// is already a sign something else is wrong, so three attempts is plenty.
const maxIdentifierAttempts = 3

// Evaluator renders the eligibility verdict.
type Evaluator interface {
	Evaluate(ctx context.Context, orgID id.OrgID, employeeID id.EmployeeID, programID id.ProgramID) (eligibility.Result, error)
}

// Renderer produces the certificate document.
type Renderer interface {
	Render(cert *models.Certificate) ([]byte, error)
}

// Directory ports resolve the display facts denormalized onto the
// certificate at issuance.

type EmployeeDirectory interface {
	FindByID(ctx context.Context, orgID id.OrgID, employeeID id.EmployeeID) (*enrollmodels.Employee, error)
}

type ProgramDirectory interface {
	FindByID(ctx context.Context, orgID id.OrgID, programID id.ProgramID) (*enrollmodels.Program, error)
}

type OrgDirectory interface {
	OrgName(ctx context.Context, orgID id.OrgID) (string, error)
}

type Service struct {
	evaluator Evaluator
	store     store.Store
	renderer  Renderer
	employees EmployeeDirectory
	programs  ProgramDirectory
	orgs      OrgDirectory
	publisher *audit.Publisher
	metrics   *metrics.Metrics
	logger    *slog.Logger
}

func New(evaluator Evaluator, certStore store.Store, renderer Renderer,
	employees EmployeeDirectory, programs ProgramDirectory, orgs OrgDirectory,
	publisher *audit.Publisher, m *metrics.Metrics, logger *slog.Logger) *Service {
	return &Service{
		evaluator: evaluator,
		store:     certStore,
		renderer:  renderer,
		employees: employees,
		programs:  programs,
		orgs:      orgs,
		publisher: publisher,
		metrics:   m,
		logger:    logger,
	}
}

// Issue runs the issuance pipeline: resolve display facts, evaluate
// eligibility, allocate identifiers, persist exactly once.
//
// The store is the arbiter of the one-active-certificate rule; Issue never
// pre-checks it, so two concurrent requests race to a single winner and the
// loser gets a conflict.
func (s *Service) Issue(ctx context.Context, orgID id.OrgID, employeeID id.EmployeeID, programID id.ProgramID) (*models.Certificate, error) {
	start := time.Now()

	employee, err := s.employees.FindByID(ctx, orgID, employeeID)
	if err != nil {
		return nil, s.issuanceFailed(notFoundOr(err, "employee not found"))
	}
	program, err := s.programs.FindByID(ctx, orgID, programID)
	if err != nil {
		return nil, s.issuanceFailed(notFoundOr(err, "program not found"))
	}
	orgName, err := s.orgs.OrgName(ctx, orgID)
	if err != nil {
		return nil, s.issuanceFailed(err)
	}

	verdict, err := s.evaluator.Evaluate(ctx, orgID, employeeID, programID)
	if err != nil {
		return nil, s.issuanceFailed(err)
	}
	if !verdict.Eligible {
		s.metrics.IncrementIssuance("ineligible")
		s.metrics.IncrementIneligible(verdict.Reason)
		s.logger.InfoContext(ctx, "issuance denied",
			"request_id", requestcontext.RequestID(ctx),
			"employee_id", employeeID.String(),
			"program_id", programID.String(),
			"reason", verdict.Reason,
		)
		return nil, dErrors.NewWithReason(dErrors.CodeIneligible, "employee is not eligible for certification", verdict.Reason)
	}

	now := requestcontext.Now(ctx)
	var expiry *time.Time
	if program.ValidityMonths != nil {
		t := now.AddDate(0, *program.ValidityMonths, 0)
		expiry = &t
	}

	for attempt := 0; attempt < maxIdentifierAttempts; attempt++ {
		pair, err := codes.Generate(now)
		if err != nil {
			return nil, s.issuanceFailed(dErrors.Wrap(err, dErrors.CodeInternal, "failed to generate identifiers"))
		}
		cert := &models.Certificate{
			ID:                id.CertificateID(uuid.New()),
			OrgID:             orgID,
			EmployeeID:        employeeID,
			ProgramID:         programID,
			CertificateNumber: pair.CertificateNumber,
			VerificationCode:  pair.VerificationCode,
			Status:            models.CertificateStatusActive,
			IssuedDate:        now,
			ExpiryDate:        expiry,
			EmployeeName:      employee.Name,
			ProgramName:       program.Name,
			OrganizationName:  orgName,
		}

		err = s.store.Create(ctx, cert)
		switch {
		case err == nil:
			s.metrics.IncrementIssuance("issued")
			s.metrics.ObserveIdentifierRetries(attempt)
			s.metrics.ObserveIssueLatency(time.Since(start))
			s.publisher.Emit(ctx, audit.Event{
				OrgID:     orgID,
				Action:    audit.ActionCertificateIssued,
				SubjectID: cert.CertificateNumber,
				Actor:     actor(ctx),
				Detail: map[string]string{
					"employee_id": employeeID.String(),
					"program_id":  programID.String(),
				},
			})
			s.logger.InfoContext(ctx, "certificate issued",
				"request_id", requestcontext.RequestID(ctx),
				"certificate_number", cert.CertificateNumber,
				"employee_id", employeeID.String(),
				"program_id", programID.String(),
			)
			return cert, nil

		case errors.Is(err, sentinel.ErrConflict):
			s.metrics.IncrementIssuance("conflict")
			return nil, dErrors.New(dErrors.CodeConflict, "an active certificate already exists for this employee and program")

		case errors.Is(err, sentinel.ErrAlreadyUsed):
			// Identifier collision; regenerate and try again.
			s.logger.WarnContext(ctx, "certificate identifier collision",
				"request_id", requestcontext.RequestID(ctx),
				"attempt", attempt+1,
			)
			continue

		default:
			return nil, s.issuanceFailed(dErrors.Wrap(err, dErrors.CodeInternal, "failed to store certificate"))
		}
	}

	return nil, s.issuanceFailed(dErrors.New(dErrors.CodeInternal, "could not allocate unique certificate identifiers"))
}

// Get returns a certificate within the caller's organization.
func (s *Service) Get(ctx context.Context, orgID id.OrgID, certID id.CertificateID) (*models.Certificate, error) {
	cert, err := s.store.FindByID(ctx, orgID, certID)
	if err != nil {
		return nil, notFoundOr(err, "certificate not found")
	}
	return cert, nil
}

// List returns an organization's certificates, newest first.
func (s *Service) List(ctx context.Context, orgID id.OrgID) ([]*models.Certificate, error) {
	certs, err := s.store.ListByOrg(ctx, orgID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list certificates")
	}
	return certs, nil
}

// Document renders the certificate's document. Pure read: a render failure
// leaves the certificate issued, and the call can simply be retried.
func (s *Service) Document(ctx context.Context, orgID id.OrgID, certID id.CertificateID) ([]byte, error) {
	cert, err := s.Get(ctx, orgID, certID)
	if err != nil {
		return nil, err
	}
	doc, err := s.renderer.Render(cert)
	if err != nil {
		s.metrics.IncrementRender("error")
		s.logger.ErrorContext(ctx, "certificate render failed",
			"request_id", requestcontext.RequestID(ctx),
			"certificate_number", cert.CertificateNumber,
			"error", err,
		)
		return nil, err
	}
	s.metrics.IncrementRender("ok")
	return doc, nil
}

// Revoke transitions an active certificate to revoked. Identifiers and dates
// stay put; the row is never deleted. Revoking an already revoked certificate
// returns it unchanged, so retried requests settle on the same answer.
func (s *Service) Revoke(ctx context.Context, orgID id.OrgID, certID id.CertificateID) (*models.Certificate, error) {
	now := requestcontext.Now(ctx)
	var alreadyRevoked bool
	cert, err := s.store.Execute(ctx, orgID, certID,
		func(c *models.Certificate) error {
			alreadyRevoked = c.Status == models.CertificateStatusRevoked
			return c.CanRevoke()
		},
		func(c *models.Certificate) { c.ApplyRevoke(now) },
	)
	if err != nil {
		return nil, notFoundOr(err, "certificate not found")
	}
	if alreadyRevoked {
		// No state changed; do not emit a second revocation event.
		return cert, nil
	}

	s.publisher.Emit(ctx, audit.Event{
		OrgID:     orgID,
		Action:    audit.ActionCertificateRevoked,
		SubjectID: cert.CertificateNumber,
		Actor:     actor(ctx),
	})
	s.logger.InfoContext(ctx, "certificate revoked",
		"request_id", requestcontext.RequestID(ctx),
		"certificate_number", cert.CertificateNumber,
	)
	return cert, nil
}

// Reissue returns a revoked certificate to active with its original
// identifiers. The store re-checks the active-pair rule, so reissuing under
// a newer active certificate fails with a conflict.
func (s *Service) Reissue(ctx context.Context, orgID id.OrgID, certID id.CertificateID) (*models.Certificate, error) {
	cert, err := s.store.Execute(ctx, orgID, certID,
		func(c *models.Certificate) error { return c.CanReissue() },
		func(c *models.Certificate) { c.ApplyReissue() },
	)
	if err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return nil, dErrors.New(dErrors.CodeConflict, "another active certificate exists for this employee and program")
		}
		return nil, notFoundOr(err, "certificate not found")
	}

	s.publisher.Emit(ctx, audit.Event{
		OrgID:     orgID,
		Action:    audit.ActionCertificateReissued,
		SubjectID: cert.CertificateNumber,
		Actor:     actor(ctx),
	})
	s.logger.InfoContext(ctx, "certificate reissued",
		"request_id", requestcontext.RequestID(ctx),
		"certificate_number", cert.CertificateNumber,
	)
	return cert, nil
}

func (s *Service) issuanceFailed(err error) error {
	if dErrors.HasCode(err, dErrors.CodeNotFound) {
		s.metrics.IncrementIssuance("not_found")
	} else {
		s.metrics.IncrementIssuance("error")
	}
	return err
}

func actor(ctx context.Context) string {
	if userID := requestcontext.UserID(ctx); !userID.IsZero() {
		return userID.String()
	}
	return "admin"
}

func notFoundOr(err error, message string) error {
	if errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.New(dErrors.CodeNotFound, message)
	}
	var de *dErrors.Error
	if errors.As(err, &de) {
		return err
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, message)
}
