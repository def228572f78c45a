package models

import (
	"time"

	id "certforge/pkg/domain"
	dErrors "certforge/pkg/domain-errors"

	"github.com/google/uuid"
)

// TestAttempt is a single computer-based test sitting.
//
// Immutable once recorded. The one-attempt-per-(employee, test) rule is a
// service policy, not a storage constraint: the service rejects a second
// attempt before it ever reaches the store.
type TestAttempt struct {
	ID          uuid.UUID         `json:"id"`
	OrgID       id.OrgID          `json:"organization_id"`
	EmployeeID  id.EmployeeID     `json:"employee_id"`
	TestID      id.TestID         `json:"test_id"`
	Answers     map[string]string `json:"answers"`
	Score       int               `json:"score"`
	Passed      bool              `json:"passed"`
	CompletedAt time.Time         `json:"completed_at"`
}

func NewTestAttempt(orgID id.OrgID, employeeID id.EmployeeID, testID id.TestID, answers map[string]string, score int, passed bool, now time.Time) (*TestAttempt, error) {
	if testID.IsZero() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "test is required")
	}
	if score < 0 || score > 100 {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "score must be between 0 and 100")
	}
	if answers == nil {
		answers = map[string]string{}
	}
	return &TestAttempt{
		ID:          uuid.New(),
		OrgID:       orgID,
		EmployeeID:  employeeID,
		TestID:      testID,
		Answers:     answers,
		Score:       score,
		Passed:      passed,
		CompletedAt: now,
	}, nil
}
