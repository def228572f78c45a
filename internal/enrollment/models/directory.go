package models

import (
	"time"

	id "certforge/pkg/domain"
	dErrors "certforge/pkg/domain-errors"
)

// Employee is the org-scoped person record. Created by invite acceptance;
// richer profile management lives outside this core.
type Employee struct {
	ID        id.EmployeeID `json:"id"`
	OrgID     id.OrgID      `json:"organization_id"`
	UserID    id.UserID     `json:"user_id"`
	Name      string        `json:"name"`
	Email     string        `json:"email"`
	CreatedAt time.Time     `json:"created_at"`
}

func NewEmployee(employeeID id.EmployeeID, orgID id.OrgID, userID id.UserID, name, email string, now time.Time) (*Employee, error) {
	if name == "" {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "employee name is required")
	}
	if email == "" {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "employee email is required")
	}
	return &Employee{
		ID:        employeeID,
		OrgID:     orgID,
		UserID:    userID,
		Name:      name,
		Email:     email,
		CreatedAt: now,
	}, nil
}

// Program is the certification program definition this core needs: display
// name, the tests that gate certification, and the certificate validity
// window. Full program CRUD is an external collaborator.
//
// A program with no tests can never produce an eligible employee; defining a
// test is a precondition for certification.
type Program struct {
	ID             id.ProgramID `json:"id"`
	OrgID          id.OrgID     `json:"organization_id"`
	Name           string       `json:"name"`
	TestIDs        []id.TestID  `json:"test_ids"`
	ValidityMonths *int         `json:"validity_months,omitempty"`
	CreatedAt      time.Time    `json:"created_at"`
}

func NewProgram(programID id.ProgramID, orgID id.OrgID, name string, testIDs []id.TestID, validityMonths *int, now time.Time) (*Program, error) {
	if name == "" {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "program name is required")
	}
	if validityMonths != nil && *validityMonths <= 0 {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "validity months must be positive")
	}
	return &Program{
		ID:             programID,
		OrgID:          orgID,
		Name:           name,
		TestIDs:        testIDs,
		ValidityMonths: validityMonths,
		CreatedAt:      now,
	}, nil
}
