package handler

import (
	"strings"

	"github.com/google/uuid"

	id "certforge/pkg/domain"
	dErrors "certforge/pkg/domain-errors"
)

// Admin requests carry the organization explicitly: the admin token grants
// service-level access, not a tenant scope.

// CreateProgramRequest is the body for POST /programs.
type CreateProgramRequest struct {
	OrganizationID string   `json:"organization_id"`
	Name           string   `json:"name"`
	TestIDs        []string `json:"test_ids"`
	ValidityMonths *int     `json:"validity_months,omitempty"`

	parsedOrgID   id.OrgID
	parsedTestIDs []id.TestID
}

func (r *CreateProgramRequest) Validate() error {
	orgID, err := id.ParseOrgID(r.OrganizationID)
	if err != nil {
		return err
	}
	r.parsedOrgID = orgID

	r.Name = strings.TrimSpace(r.Name)
	if r.Name == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "name is required")
	}

	r.parsedTestIDs = make([]id.TestID, 0, len(r.TestIDs))
	for _, raw := range r.TestIDs {
		testID, err := id.ParseTestID(raw)
		if err != nil {
			return err
		}
		r.parsedTestIDs = append(r.parsedTestIDs, testID)
	}
	return nil
}

// CreateEmployeeRequest is the body for POST /employees.
type CreateEmployeeRequest struct {
	OrganizationID string `json:"organization_id"`
	UserID         string `json:"user_id,omitempty"`
	Name           string `json:"name"`
	Email          string `json:"email"`

	parsedOrgID  id.OrgID
	parsedUserID id.UserID
}

func (r *CreateEmployeeRequest) Validate() error {
	orgID, err := id.ParseOrgID(r.OrganizationID)
	if err != nil {
		return err
	}
	r.parsedOrgID = orgID

	if r.UserID != "" {
		userID, err := id.ParseUserID(r.UserID)
		if err != nil {
			return err
		}
		r.parsedUserID = userID
	}

	r.Name = strings.TrimSpace(r.Name)
	if r.Name == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "name is required")
	}
	r.Email = strings.TrimSpace(r.Email)
	if r.Email == "" || !strings.Contains(r.Email, "@") {
		return dErrors.New(dErrors.CodeInvalidInput, "a valid email is required")
	}
	return nil
}

// EnrollRequest is the body for POST /enrollments.
type EnrollRequest struct {
	OrganizationID string `json:"organization_id"`
	EmployeeID     string `json:"employee_id"`
	ProgramID      string `json:"program_id"`

	parsedOrgID      id.OrgID
	parsedEmployeeID id.EmployeeID
	parsedProgramID  id.ProgramID
}

func (r *EnrollRequest) Validate() error {
	orgID, err := id.ParseOrgID(r.OrganizationID)
	if err != nil {
		return err
	}
	employeeID, err := id.ParseEmployeeID(r.EmployeeID)
	if err != nil {
		return err
	}
	programID, err := id.ParseProgramID(r.ProgramID)
	if err != nil {
		return err
	}
	r.parsedOrgID = orgID
	r.parsedEmployeeID = employeeID
	r.parsedProgramID = programID
	return nil
}

// ProgressRequest is the body for POST /enrollments/{id}/progress.
type ProgressRequest struct {
	OrganizationID string `json:"organization_id"`
	Progress       *int   `json:"progress_percentage"`

	parsedOrgID id.OrgID
}

func (r *ProgressRequest) Validate() error {
	orgID, err := id.ParseOrgID(r.OrganizationID)
	if err != nil {
		return err
	}
	r.parsedOrgID = orgID
	if r.Progress == nil {
		return dErrors.New(dErrors.CodeInvalidInput, "progress_percentage is required")
	}
	return nil
}

// SubmitReportRequest is the body for POST /enrollments/{id}/reports.
type SubmitReportRequest struct {
	OrganizationID string `json:"organization_id"`
	Type           string `json:"type"`
	Content        string `json:"content"`

	parsedOrgID id.OrgID
}

func (r *SubmitReportRequest) Validate() error {
	orgID, err := id.ParseOrgID(r.OrganizationID)
	if err != nil {
		return err
	}
	r.parsedOrgID = orgID
	if strings.TrimSpace(r.Type) == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "type is required")
	}
	if strings.TrimSpace(r.Content) == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "content is required")
	}
	return nil
}

// ReviewReportRequest is the body for POST /reports/{id}/review.
type ReviewReportRequest struct {
	OrganizationID string `json:"organization_id"`
	Approved       *bool  `json:"approved"`

	parsedOrgID id.OrgID
}

func (r *ReviewReportRequest) Validate() error {
	orgID, err := id.ParseOrgID(r.OrganizationID)
	if err != nil {
		return err
	}
	r.parsedOrgID = orgID
	if r.Approved == nil {
		return dErrors.New(dErrors.CodeInvalidInput, "approved is required")
	}
	return nil
}

// RecordAttemptRequest is the body for POST /test-attempts.
type RecordAttemptRequest struct {
	OrganizationID string            `json:"organization_id"`
	EmployeeID     string            `json:"employee_id"`
	TestID         string            `json:"test_id"`
	Answers        map[string]string `json:"answers,omitempty"`
	Score          *int              `json:"score"`
	Passed         *bool             `json:"passed"`

	parsedOrgID      id.OrgID
	parsedEmployeeID id.EmployeeID
	parsedTestID     id.TestID
}

func (r *RecordAttemptRequest) Validate() error {
	orgID, err := id.ParseOrgID(r.OrganizationID)
	if err != nil {
		return err
	}
	employeeID, err := id.ParseEmployeeID(r.EmployeeID)
	if err != nil {
		return err
	}
	testID, err := id.ParseTestID(r.TestID)
	if err != nil {
		return err
	}
	if r.Score == nil {
		return dErrors.New(dErrors.CodeInvalidInput, "score is required")
	}
	if r.Passed == nil {
		return dErrors.New(dErrors.CodeInvalidInput, "passed is required")
	}
	r.parsedOrgID = orgID
	r.parsedEmployeeID = employeeID
	r.parsedTestID = testID
	return nil
}

func parseReportID(raw string) (uuid.UUID, error) {
	reportID, err := uuid.Parse(raw)
	if err != nil {
		return uuid.UUID{}, dErrors.New(dErrors.CodeInvalidInput, "invalid report id")
	}
	return reportID, nil
}
