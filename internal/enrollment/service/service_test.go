package service

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"certforge/internal/enrollment/models"
	"certforge/internal/enrollment/store"
	id "certforge/pkg/domain"
	dErrors "certforge/pkg/domain-errors"
	"certforge/pkg/requestcontext"
)

type EnrollmentServiceSuite struct {
	suite.Suite
	employees   *store.InMemoryEmployeeStore
	programs    *store.InMemoryProgramStore
	enrollments *store.InMemoryEnrollmentStore
	reports     *store.InMemoryReportStore
	attempts    *store.InMemoryAttemptStore
	service     *Service

	ctx   context.Context
	now   time.Time
	orgID id.OrgID
}

func TestEnrollmentServiceSuite(t *testing.T) {
	suite.Run(t, new(EnrollmentServiceSuite))
}

func (s *EnrollmentServiceSuite) SetupTest() {
	s.employees = store.NewInMemoryEmployeeStore()
	s.programs = store.NewInMemoryProgramStore()
	s.enrollments = store.NewInMemoryEnrollmentStore()
	s.reports = store.NewInMemoryReportStore()
	s.attempts = store.NewInMemoryAttemptStore()
	s.service = New(s.employees, s.programs, s.enrollments, s.reports, s.attempts, slog.Default())

	s.now = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	s.ctx = requestcontext.WithTime(context.Background(), s.now)
	s.orgID = id.OrgID(uuid.New())
}

func (s *EnrollmentServiceSuite) seedEmployee() *models.Employee {
	employee, err := models.NewEmployee(id.EmployeeID(uuid.New()), s.orgID, id.UserID(uuid.New()),
		"Dana Smith", "dana.smith@example.com", s.now)
	s.Require().NoError(err)
	s.Require().NoError(s.employees.Create(s.ctx, employee))
	return employee
}

func (s *EnrollmentServiceSuite) seedProgram(testIDs ...id.TestID) *models.Program {
	program, err := models.NewProgram(id.ProgramID(uuid.New()), s.orgID, "Forklift Safety", testIDs, nil, s.now)
	s.Require().NoError(err)
	s.Require().NoError(s.programs.Create(s.ctx, program))
	return program
}

// =============================================================================
// Enroll
// =============================================================================

func (s *EnrollmentServiceSuite) TestEnroll() {
	employee := s.seedEmployee()
	program := s.seedProgram()

	s.Run("creates enrollment with enrolled status", func() {
		enrollment, err := s.service.Enroll(s.ctx, s.orgID, employee.ID, program.ID)
		s.NoError(err)
		s.Equal(models.EnrollmentStatusEnrolled, enrollment.Status)
		s.Equal(0, enrollment.Progress)
		s.Equal(s.now, enrollment.EnrolledAt)
	})

	s.Run("is idempotent for the same pair", func() {
		first, err := s.service.Enroll(s.ctx, s.orgID, employee.ID, program.ID)
		s.Require().NoError(err)

		second, err := s.service.Enroll(s.ctx, s.orgID, employee.ID, program.ID)
		s.NoError(err)
		s.Equal(first.ID, second.ID)
	})

	s.Run("unknown employee returns not found", func() {
		_, err := s.service.Enroll(s.ctx, s.orgID, id.EmployeeID(uuid.New()), program.ID)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	s.Run("unknown program returns not found", func() {
		_, err := s.service.Enroll(s.ctx, s.orgID, employee.ID, id.ProgramID(uuid.New()))
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	s.Run("employee from another org is invisible", func() {
		otherOrg := id.OrgID(uuid.New())
		_, err := s.service.Enroll(s.ctx, otherOrg, employee.ID, program.ID)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})
}

// =============================================================================
// EnsureEmployee
// =============================================================================

func (s *EnrollmentServiceSuite) TestEnsureEmployee() {
	s.Run("creates employee on first call", func() {
		userID := id.UserID(uuid.New())
		employee, err := s.service.EnsureEmployee(s.ctx, s.orgID, userID, "Jordan Lee", "Jordan.Lee@Example.com")
		s.NoError(err)
		s.Equal("jordan.lee@example.com", employee.Email)
		s.Equal(userID, employee.UserID)
	})

	s.Run("returns existing employee on repeat call", func() {
		userID := id.UserID(uuid.New())
		first, err := s.service.EnsureEmployee(s.ctx, s.orgID, userID, "Sam Park", "sam@example.com")
		s.Require().NoError(err)

		second, err := s.service.EnsureEmployee(s.ctx, s.orgID, userID, "Renamed", "sam@example.com")
		s.NoError(err)
		s.Equal(first.ID, second.ID)
		s.Equal("Sam Park", second.Name)
	})
}

// =============================================================================
// UpdateProgress
// =============================================================================

func (s *EnrollmentServiceSuite) TestUpdateProgress() {
	employee := s.seedEmployee()
	program := s.seedProgram()
	enrollment, err := s.service.Enroll(s.ctx, s.orgID, employee.ID, program.ID)
	s.Require().NoError(err)

	s.Run("partial progress moves enrollment to in_progress", func() {
		updated, err := s.service.UpdateProgress(s.ctx, s.orgID, enrollment.ID, 40)
		s.NoError(err)
		s.Equal(models.EnrollmentStatusInProgress, updated.Status)
		s.Equal(40, updated.Progress)
		s.Nil(updated.CompletionDate)
	})

	s.Run("reaching 100 completes and stamps completion date", func() {
		updated, err := s.service.UpdateProgress(s.ctx, s.orgID, enrollment.ID, 100)
		s.NoError(err)
		s.Equal(models.EnrollmentStatusCompleted, updated.Status)
		s.Require().NotNil(updated.CompletionDate)
		s.Equal(s.now, *updated.CompletionDate)
	})

	s.Run("completed enrollment rejects further progress", func() {
		_, err := s.service.UpdateProgress(s.ctx, s.orgID, enrollment.ID, 50)
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))
	})

	s.Run("out of range progress is invalid input", func() {
		fresh, err := s.service.Enroll(s.ctx, s.orgID, s.seedEmployee().ID, program.ID)
		s.Require().NoError(err)

		_, err = s.service.UpdateProgress(s.ctx, s.orgID, fresh.ID, 120)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})
}

// =============================================================================
// Reports
// =============================================================================

func (s *EnrollmentServiceSuite) TestReports() {
	employee := s.seedEmployee()
	program := s.seedProgram()
	enrollment, err := s.service.Enroll(s.ctx, s.orgID, employee.ID, program.ID)
	s.Require().NoError(err)

	s.Run("submitted report starts pending", func() {
		report, err := s.service.SubmitReport(s.ctx, s.orgID, enrollment.ID, "weekly", "completed modules 1-3")
		s.NoError(err)
		s.Equal(models.ReportStatusPending, report.Status)
		s.Nil(report.ReviewedAt)
	})

	s.Run("approval is recorded once", func() {
		report, err := s.service.SubmitReport(s.ctx, s.orgID, enrollment.ID, "final", "all modules done")
		s.Require().NoError(err)

		reviewed, err := s.service.ReviewReport(s.ctx, s.orgID, report.ID, true)
		s.NoError(err)
		s.Equal(models.ReportStatusApproved, reviewed.Status)
		s.NotNil(reviewed.ReviewedAt)

		_, err = s.service.ReviewReport(s.ctx, s.orgID, report.ID, false)
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))
	})

	s.Run("report for unknown enrollment is rejected", func() {
		_, err := s.service.SubmitReport(s.ctx, s.orgID, id.EnrollmentID(uuid.New()), "weekly", "x")
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})
}

// =============================================================================
// Test attempts
// =============================================================================

func (s *EnrollmentServiceSuite) TestRecordTestAttempt() {
	employee := s.seedEmployee()
	testID := id.TestID(uuid.New())

	s.Run("records a passing attempt", func() {
		attempt, err := s.service.RecordTestAttempt(s.ctx, s.orgID, employee.ID, testID,
			map[string]string{"q1": "a"}, 92, true)
		s.NoError(err)
		s.True(attempt.Passed)
		s.Equal(92, attempt.Score)
	})

	s.Run("second attempt for the same test is rejected", func() {
		_, err := s.service.RecordTestAttempt(s.ctx, s.orgID, employee.ID, testID,
			map[string]string{"q1": "b"}, 100, true)
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))
	})

	s.Run("same test for another employee is fine", func() {
		other := s.seedEmployee()
		_, err := s.service.RecordTestAttempt(s.ctx, s.orgID, other.ID, testID, nil, 55, false)
		s.NoError(err)
	})
}
