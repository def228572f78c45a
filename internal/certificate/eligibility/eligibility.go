// Package eligibility decides whether an employee has earned a certificate
// for a program. The evaluator is pure and read-only: it consults enrollment
// facts and renders a verdict, never mutating anything, so issuance can call
// it repeatedly without side effects.
package eligibility

import (
	"context"
	"errors"

	enrollmodels "certforge/internal/enrollment/models"
	id "certforge/pkg/domain"
	dErrors "certforge/pkg/domain-errors"
	"certforge/pkg/platform/sentinel"
)

// Ineligibility reasons, machine-readable. Exactly one is reported per
// verdict, in rule order: completion, then reports, then tests.
const (
	ReasonNotCompleted    = "not_completed"
	ReasonReportsNotReady = "reports_missing_or_unapproved"
	ReasonTestNotPassed   = "test_not_passed"
)

// PassPolicy selects how the program's test set gates certification.
type PassPolicy string

const (
	// PassPolicyAny requires a passed attempt on at least one program test.
	PassPolicyAny PassPolicy = "any"
	// PassPolicyAll requires a passed attempt on every program test.
	PassPolicyAll PassPolicy = "all"
)

func (p PassPolicy) Valid() bool {
	return p == PassPolicyAny || p == PassPolicyAll
}

// Result is the eligibility verdict. Reason is set exactly when Eligible is
// false.
type Result struct {
	Eligible bool
	Reason   string
}

// The fact ports mirror the enrollment store read surface so those stores
// satisfy them directly.

type EnrollmentFacts interface {
	FindByEmployeeAndProgram(ctx context.Context, orgID id.OrgID, employeeID id.EmployeeID, programID id.ProgramID) (*enrollmodels.Enrollment, error)
}

type ReportFacts interface {
	ListByEnrollment(ctx context.Context, orgID id.OrgID, enrollmentID id.EnrollmentID) ([]*enrollmodels.ReportSubmission, error)
}

type AttemptFacts interface {
	ListByEmployeeAndTest(ctx context.Context, orgID id.OrgID, employeeID id.EmployeeID, testID id.TestID) ([]*enrollmodels.TestAttempt, error)
}

type ProgramFacts interface {
	FindByID(ctx context.Context, orgID id.OrgID, programID id.ProgramID) (*enrollmodels.Program, error)
}

// Evaluator applies the certification rules over enrollment facts.
type Evaluator struct {
	enrollments EnrollmentFacts
	reports     ReportFacts
	attempts    AttemptFacts
	programs    ProgramFacts
	passPolicy  PassPolicy
}

func New(enrollments EnrollmentFacts, reports ReportFacts, attempts AttemptFacts, programs ProgramFacts, passPolicy PassPolicy) (*Evaluator, error) {
	if !passPolicy.Valid() {
		return nil, errors.New("eligibility: pass policy must be any or all")
	}
	return &Evaluator{
		enrollments: enrollments,
		reports:     reports,
		attempts:    attempts,
		programs:    programs,
		passPolicy:  passPolicy,
	}, nil
}

// Evaluate renders the verdict for one (employee, program) pair.
//
// Rules, in order:
//  1. The enrollment exists and is completed.
//  2. At least one report was submitted and every report is approved.
//  3. The program's test set is satisfied per the pass policy; a program
//     with no tests is never satisfiable.
//
// A missing enrollment reads as not_completed rather than an error: from the
// issuance caller's view the employee simply has not finished.
func (e *Evaluator) Evaluate(ctx context.Context, orgID id.OrgID, employeeID id.EmployeeID, programID id.ProgramID) (Result, error) {
	enrollment, err := e.enrollments.FindByEmployeeAndProgram(ctx, orgID, employeeID, programID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return Result{Reason: ReasonNotCompleted}, nil
		}
		return Result{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load enrollment")
	}
	if enrollment.Status != enrollmodels.EnrollmentStatusCompleted {
		return Result{Reason: ReasonNotCompleted}, nil
	}

	reports, err := e.reports.ListByEnrollment(ctx, orgID, enrollment.ID)
	if err != nil {
		return Result{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load reports")
	}
	if len(reports) == 0 {
		return Result{Reason: ReasonReportsNotReady}, nil
	}
	for _, report := range reports {
		if report.Status != enrollmodels.ReportStatusApproved {
			return Result{Reason: ReasonReportsNotReady}, nil
		}
	}

	program, err := e.programs.FindByID(ctx, orgID, programID)
	if err != nil {
		return Result{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load program")
	}
	satisfied, err := e.testsSatisfied(ctx, orgID, employeeID, program.TestIDs)
	if err != nil {
		return Result{}, err
	}
	if !satisfied {
		return Result{Reason: ReasonTestNotPassed}, nil
	}

	return Result{Eligible: true}, nil
}

func (e *Evaluator) testsSatisfied(ctx context.Context, orgID id.OrgID, employeeID id.EmployeeID, testIDs []id.TestID) (bool, error) {
	if len(testIDs) == 0 {
		return false, nil
	}
	for _, testID := range testIDs {
		attempts, err := e.attempts.ListByEmployeeAndTest(ctx, orgID, employeeID, testID)
		if err != nil {
			return false, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load test attempts")
		}
		passed := false
		for _, attempt := range attempts {
			if attempt.Passed {
				passed = true
				break
			}
		}
		switch e.passPolicy {
		case PassPolicyAny:
			if passed {
				return true, nil
			}
		case PassPolicyAll:
			if !passed {
				return false, nil
			}
		}
	}
	// Any: no test passed. All: every test passed.
	return e.passPolicy == PassPolicyAll, nil
}
