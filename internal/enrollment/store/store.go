package store

import (
	"context"

	"github.com/google/uuid"

	"certforge/internal/enrollment/models"
	id "certforge/pkg/domain"
)

// Stores are interface-driven so services stay testable and the in-memory and
// PostgreSQL implementations remain swappable. Every read and write is scoped
// by organization: a lookup from the wrong org behaves exactly like a missing
// record.

type EmployeeStore interface {
	Create(ctx context.Context, employee *models.Employee) error
	FindByID(ctx context.Context, orgID id.OrgID, employeeID id.EmployeeID) (*models.Employee, error)
	FindByUser(ctx context.Context, orgID id.OrgID, userID id.UserID) (*models.Employee, error)
}

type ProgramStore interface {
	Create(ctx context.Context, program *models.Program) error
	FindByID(ctx context.Context, orgID id.OrgID, programID id.ProgramID) (*models.Program, error)
}

type EnrollmentStore interface {
	// CreateIfAbsent inserts the enrollment unless one already exists for the
	// (employee, program) pair; the existing record is returned with
	// created=false. This is the idempotency anchor for invite acceptance.
	CreateIfAbsent(ctx context.Context, enrollment *models.Enrollment) (*models.Enrollment, bool, error)
	FindByEmployeeAndProgram(ctx context.Context, orgID id.OrgID, employeeID id.EmployeeID, programID id.ProgramID) (*models.Enrollment, error)
	// Execute atomically validates then mutates an enrollment while the
	// store-level lock is held.
	Execute(ctx context.Context, orgID id.OrgID, enrollmentID id.EnrollmentID,
		validate func(*models.Enrollment) error, mutate func(*models.Enrollment)) (*models.Enrollment, error)
}

type ReportStore interface {
	Create(ctx context.Context, report *models.ReportSubmission) error
	ListByEnrollment(ctx context.Context, orgID id.OrgID, enrollmentID id.EnrollmentID) ([]*models.ReportSubmission, error)
	Execute(ctx context.Context, orgID id.OrgID, reportID uuid.UUID,
		validate func(*models.ReportSubmission) error, mutate func(*models.ReportSubmission)) (*models.ReportSubmission, error)
}

type AttemptStore interface {
	Create(ctx context.Context, attempt *models.TestAttempt) error
	ListByEmployeeAndTest(ctx context.Context, orgID id.OrgID, employeeID id.EmployeeID, testID id.TestID) ([]*models.TestAttempt, error)
}
