package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"certforge/internal/enrollment/models"
	"certforge/internal/enrollment/store"
	id "certforge/pkg/domain"
	dErrors "certforge/pkg/domain-errors"
	"certforge/pkg/platform/sentinel"
	"certforge/pkg/requestcontext"
)

// Service orchestrates program participation: enrollments, progress reports,
// and test attempts. Certificate issuance reads these facts through the
// eligibility evaluator.
type Service struct {
	employees   store.EmployeeStore
	programs    store.ProgramStore
	enrollments store.EnrollmentStore
	reports     store.ReportStore
	attempts    store.AttemptStore
	logger      *slog.Logger
}

func New(employees store.EmployeeStore, programs store.ProgramStore, enrollments store.EnrollmentStore,
	reports store.ReportStore, attempts store.AttemptStore, logger *slog.Logger) *Service {
	return &Service{
		employees:   employees,
		programs:    programs,
		enrollments: enrollments,
		reports:     reports,
		attempts:    attempts,
		logger:      logger,
	}
}

// Enroll creates the (employee, program) enrollment if absent. Idempotent:
// re-enrolling returns the existing record unchanged.
func (s *Service) Enroll(ctx context.Context, orgID id.OrgID, employeeID id.EmployeeID, programID id.ProgramID) (*models.Enrollment, error) {
	if _, err := s.employees.FindByID(ctx, orgID, employeeID); err != nil {
		return nil, notFoundOr(err, "employee not found")
	}
	if _, err := s.programs.FindByID(ctx, orgID, programID); err != nil {
		return nil, notFoundOr(err, "program not found")
	}

	enrollment, err := models.NewEnrollment(id.EnrollmentID(uuid.New()), orgID, employeeID, programID, requestcontext.Now(ctx))
	if err != nil {
		return nil, err
	}
	existing, created, err := s.enrollments.CreateIfAbsent(ctx, enrollment)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create enrollment")
	}
	if created {
		s.logger.InfoContext(ctx, "employee enrolled",
			"request_id", requestcontext.RequestID(ctx),
			"employee_id", employeeID.String(),
			"program_id", programID.String(),
		)
	}
	return existing, nil
}

// EnsureEmployee finds the employee record for an authenticated user within
// an organization, creating one when absent. Used by invite acceptance.
func (s *Service) EnsureEmployee(ctx context.Context, orgID id.OrgID, userID id.UserID, name, email string) (*models.Employee, error) {
	existing, err := s.employees.FindByUser(ctx, orgID, userID)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to look up employee")
	}

	employee, err := models.NewEmployee(id.EmployeeID(uuid.New()), orgID, userID, name, strings.ToLower(email), requestcontext.Now(ctx))
	if err != nil {
		return nil, err
	}
	if err := s.employees.Create(ctx, employee); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			// Lost a race against a concurrent acceptance; the record exists now.
			return s.employees.FindByUser(ctx, orgID, userID)
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create employee")
	}
	return employee, nil
}

// UpdateProgress records a progress percentage; 100 completes the enrollment.
func (s *Service) UpdateProgress(ctx context.Context, orgID id.OrgID, enrollmentID id.EnrollmentID, progress int) (*models.Enrollment, error) {
	now := requestcontext.Now(ctx)
	var applyErr error
	enrollment, err := s.enrollments.Execute(ctx, orgID, enrollmentID,
		func(e *models.Enrollment) error {
			return e.CanRecordProgress()
		},
		func(e *models.Enrollment) {
			applyErr = e.ApplyProgress(progress, now)
		},
	)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "enrollment not found")
		}
		if dErrors.HasCode(err, dErrors.CodeInvariantViolation) {
			return nil, dErrors.New(dErrors.CodeConflict, "enrollment is already finalized")
		}
		return nil, err
	}
	if applyErr != nil {
		return nil, applyErr
	}
	return enrollment, nil
}

// SubmitReport attaches a pending progress report to an enrollment.
func (s *Service) SubmitReport(ctx context.Context, orgID id.OrgID, enrollmentID id.EnrollmentID, reportType, content string) (*models.ReportSubmission, error) {
	if _, err := s.enrollments.Execute(ctx, orgID, enrollmentID,
		func(e *models.Enrollment) error { return nil },
		func(e *models.Enrollment) {},
	); err != nil {
		return nil, notFoundOr(err, "enrollment not found")
	}

	report, err := models.NewReportSubmission(orgID, enrollmentID, strings.TrimSpace(reportType), content, requestcontext.Now(ctx))
	if err != nil {
		return nil, err
	}
	if err := s.reports.Create(ctx, report); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to save report submission")
	}
	return report, nil
}

// ReviewReport records the reviewer decision on a pending report.
func (s *Service) ReviewReport(ctx context.Context, orgID id.OrgID, reportID uuid.UUID, approved bool) (*models.ReportSubmission, error) {
	now := requestcontext.Now(ctx)
	report, err := s.reports.Execute(ctx, orgID, reportID,
		func(r *models.ReportSubmission) error {
			if r.Status != models.ReportStatusPending {
				return dErrors.New(dErrors.CodeConflict, "report has already been reviewed")
			}
			return nil
		},
		func(r *models.ReportSubmission) {
			_ = r.ApplyReview(approved, now)
		},
	)
	if err != nil {
		return nil, notFoundOr(err, "report not found")
	}
	return report, nil
}

// RecordTestAttempt stores a finished test sitting. At most one attempt per
// (employee, test): a second request is rejected here, before storage.
func (s *Service) RecordTestAttempt(ctx context.Context, orgID id.OrgID, employeeID id.EmployeeID, testID id.TestID,
	answers map[string]string, score int, passed bool) (*models.TestAttempt, error) {
	existing, err := s.attempts.ListByEmployeeAndTest(ctx, orgID, employeeID, testID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list test attempts")
	}
	if len(existing) > 0 {
		return nil, dErrors.New(dErrors.CodeConflict, "test has already been attempted")
	}

	attempt, err := models.NewTestAttempt(orgID, employeeID, testID, answers, score, passed, requestcontext.Now(ctx))
	if err != nil {
		return nil, err
	}
	if err := s.attempts.Create(ctx, attempt); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to save test attempt")
	}
	return attempt, nil
}

// CreateEmployee registers an employee directly, without going through an
// invite. Used by admin seeding endpoints.
func (s *Service) CreateEmployee(ctx context.Context, orgID id.OrgID, userID id.UserID, name, email string) (*models.Employee, error) {
	employee, err := models.NewEmployee(id.EmployeeID(uuid.New()), orgID, userID, strings.TrimSpace(name), strings.ToLower(strings.TrimSpace(email)), requestcontext.Now(ctx))
	if err != nil {
		return nil, err
	}
	if err := s.employees.Create(ctx, employee); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return nil, dErrors.New(dErrors.CodeConflict, "employee already exists for this user")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create employee")
	}
	return employee, nil
}

// CreateProgram registers the program facts this core needs. Full program
// management is external; admins seed the linkage here.
func (s *Service) CreateProgram(ctx context.Context, orgID id.OrgID, name string, testIDs []id.TestID, validityMonths *int) (*models.Program, error) {
	program, err := models.NewProgram(id.ProgramID(uuid.New()), orgID, strings.TrimSpace(name), testIDs, validityMonths, requestcontext.Now(ctx))
	if err != nil {
		return nil, err
	}
	if err := s.programs.Create(ctx, program); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return nil, dErrors.New(dErrors.CodeConflict, "program already exists")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create program")
	}
	return program, nil
}

func notFoundOr(err error, message string) error {
	if errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.New(dErrors.CodeNotFound, message)
	}
	if de := (*dErrors.Error)(nil); errors.As(err, &de) {
		return err
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, message)
}
