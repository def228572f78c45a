package eligibility

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	enrollmodels "certforge/internal/enrollment/models"
	enrollstore "certforge/internal/enrollment/store"
	id "certforge/pkg/domain"
)

type EligibilitySuite struct {
	suite.Suite
	enrollments *enrollstore.InMemoryEnrollmentStore
	reports     *enrollstore.InMemoryReportStore
	attempts    *enrollstore.InMemoryAttemptStore
	programs    *enrollstore.InMemoryProgramStore

	ctx        context.Context
	now        time.Time
	orgID      id.OrgID
	employeeID id.EmployeeID
}

func TestEligibilitySuite(t *testing.T) {
	suite.Run(t, new(EligibilitySuite))
}

func (s *EligibilitySuite) SetupTest() {
	s.enrollments = enrollstore.NewInMemoryEnrollmentStore()
	s.reports = enrollstore.NewInMemoryReportStore()
	s.attempts = enrollstore.NewInMemoryAttemptStore()
	s.programs = enrollstore.NewInMemoryProgramStore()

	s.ctx = context.Background()
	s.now = time.Date(2025, 4, 10, 8, 0, 0, 0, time.UTC)
	s.orgID = id.OrgID(uuid.New())
	s.employeeID = id.EmployeeID(uuid.New())
}

func (s *EligibilitySuite) evaluator(policy PassPolicy) *Evaluator {
	ev, err := New(s.enrollments, s.reports, s.attempts, s.programs, policy)
	s.Require().NoError(err)
	return ev
}

func (s *EligibilitySuite) seedProgram(testIDs ...id.TestID) *enrollmodels.Program {
	program, err := enrollmodels.NewProgram(id.ProgramID(uuid.New()), s.orgID, "Crane Operation", testIDs, nil, s.now)
	s.Require().NoError(err)
	s.Require().NoError(s.programs.Create(s.ctx, program))
	return program
}

func (s *EligibilitySuite) seedEnrollment(programID id.ProgramID, status enrollmodels.EnrollmentStatus) *enrollmodels.Enrollment {
	enrollment, err := enrollmodels.NewEnrollment(id.EnrollmentID(uuid.New()), s.orgID, s.employeeID, programID, s.now)
	s.Require().NoError(err)
	enrollment.Status = status
	created, _, err := s.enrollments.CreateIfAbsent(s.ctx, enrollment)
	s.Require().NoError(err)
	return created
}

func (s *EligibilitySuite) seedApprovedReport(enrollmentID id.EnrollmentID) {
	report, err := enrollmodels.NewReportSubmission(s.orgID, enrollmentID, "final", "done", s.now)
	s.Require().NoError(err)
	s.Require().NoError(report.ApplyReview(true, s.now))
	s.Require().NoError(s.reports.Create(s.ctx, report))
}

func (s *EligibilitySuite) seedAttempt(testID id.TestID, passed bool) {
	score := 40
	if passed {
		score = 90
	}
	attempt, err := enrollmodels.NewTestAttempt(s.orgID, s.employeeID, testID, nil, score, passed, s.now)
	s.Require().NoError(err)
	s.Require().NoError(s.attempts.Create(s.ctx, attempt))
}

func (s *EligibilitySuite) TestNew() {
	_, err := New(s.enrollments, s.reports, s.attempts, s.programs, PassPolicy("sometimes"))
	s.Error(err)
}

func (s *EligibilitySuite) TestEvaluate() {
	s.Run("missing enrollment reads as not completed", func() {
		program := s.seedProgram(id.TestID(uuid.New()))
		result, err := s.evaluator(PassPolicyAny).Evaluate(s.ctx, s.orgID, s.employeeID, program.ID)
		s.NoError(err)
		s.False(result.Eligible)
		s.Equal(ReasonNotCompleted, result.Reason)
	})

	s.Run("incomplete enrollment is not eligible", func() {
		program := s.seedProgram(id.TestID(uuid.New()))
		s.seedEnrollment(program.ID, enrollmodels.EnrollmentStatusInProgress)

		result, err := s.evaluator(PassPolicyAny).Evaluate(s.ctx, s.orgID, s.employeeID, program.ID)
		s.NoError(err)
		s.Equal(ReasonNotCompleted, result.Reason)
	})

	s.Run("no reports blocks eligibility", func() {
		program := s.seedProgram(id.TestID(uuid.New()))
		s.seedEnrollment(program.ID, enrollmodels.EnrollmentStatusCompleted)

		result, err := s.evaluator(PassPolicyAny).Evaluate(s.ctx, s.orgID, s.employeeID, program.ID)
		s.NoError(err)
		s.Equal(ReasonReportsNotReady, result.Reason)
	})

	s.Run("one unapproved report blocks eligibility", func() {
		program := s.seedProgram(id.TestID(uuid.New()))
		enrollment := s.seedEnrollment(program.ID, enrollmodels.EnrollmentStatusCompleted)
		s.seedApprovedReport(enrollment.ID)

		pending, err := enrollmodels.NewReportSubmission(s.orgID, enrollment.ID, "weekly", "wip", s.now)
		s.Require().NoError(err)
		s.Require().NoError(s.reports.Create(s.ctx, pending))

		result, err := s.evaluator(PassPolicyAny).Evaluate(s.ctx, s.orgID, s.employeeID, program.ID)
		s.NoError(err)
		s.Equal(ReasonReportsNotReady, result.Reason)
	})

	s.Run("failed attempt only is not eligible", func() {
		testID := id.TestID(uuid.New())
		program := s.seedProgram(testID)
		enrollment := s.seedEnrollment(program.ID, enrollmodels.EnrollmentStatusCompleted)
		s.seedApprovedReport(enrollment.ID)
		s.seedAttempt(testID, false)

		result, err := s.evaluator(PassPolicyAny).Evaluate(s.ctx, s.orgID, s.employeeID, program.ID)
		s.NoError(err)
		s.Equal(ReasonTestNotPassed, result.Reason)
	})

	s.Run("program without tests is never satisfiable", func() {
		program := s.seedProgram()
		enrollment := s.seedEnrollment(program.ID, enrollmodels.EnrollmentStatusCompleted)
		s.seedApprovedReport(enrollment.ID)

		result, err := s.evaluator(PassPolicyAny).Evaluate(s.ctx, s.orgID, s.employeeID, program.ID)
		s.NoError(err)
		s.Equal(ReasonTestNotPassed, result.Reason)
	})

	s.Run("completed with approved report and passed test is eligible", func() {
		testID := id.TestID(uuid.New())
		program := s.seedProgram(testID)
		enrollment := s.seedEnrollment(program.ID, enrollmodels.EnrollmentStatusCompleted)
		s.seedApprovedReport(enrollment.ID)
		s.seedAttempt(testID, true)

		result, err := s.evaluator(PassPolicyAny).Evaluate(s.ctx, s.orgID, s.employeeID, program.ID)
		s.NoError(err)
		s.True(result.Eligible)
		s.Empty(result.Reason)
	})
}

func (s *EligibilitySuite) TestPassPolicies() {
	testA := id.TestID(uuid.New())
	testB := id.TestID(uuid.New())
	program := s.seedProgram(testA, testB)
	enrollment := s.seedEnrollment(program.ID, enrollmodels.EnrollmentStatusCompleted)
	s.seedApprovedReport(enrollment.ID)
	s.seedAttempt(testA, true)
	s.seedAttempt(testB, false)

	s.Run("any accepts one passed test", func() {
		result, err := s.evaluator(PassPolicyAny).Evaluate(s.ctx, s.orgID, s.employeeID, program.ID)
		s.NoError(err)
		s.True(result.Eligible)
	})

	s.Run("all demands every test passed", func() {
		result, err := s.evaluator(PassPolicyAll).Evaluate(s.ctx, s.orgID, s.employeeID, program.ID)
		s.NoError(err)
		s.False(result.Eligible)
		s.Equal(ReasonTestNotPassed, result.Reason)
	})

	s.Run("all satisfied once the second test passes", func() {
		s.seedAttempt(testB, true)
		result, err := s.evaluator(PassPolicyAll).Evaluate(s.ctx, s.orgID, s.employeeID, program.ID)
		s.NoError(err)
		s.True(result.Eligible)
	})
}
