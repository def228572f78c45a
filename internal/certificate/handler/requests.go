package handler

import (
	id "certforge/pkg/domain"
)

// Admin requests carry the organization explicitly: the admin token grants
// service-level access, not a tenant scope.

// GenerateRequest is the body for POST /certificates/generate.
type GenerateRequest struct {
	OrganizationID string `json:"organization_id"`
	EmployeeID     string `json:"employee_id"`
	ProgramID      string `json:"program_id"`

	parsedOrgID      id.OrgID
	parsedEmployeeID id.EmployeeID
	parsedProgramID  id.ProgramID
}

func (r *GenerateRequest) Validate() error {
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

// StatusRequest is the body for POST /certificates/{id}/revoke and reissue.
type StatusRequest struct {
	OrganizationID string `json:"organization_id"`

	parsedOrgID id.OrgID
}

func (r *StatusRequest) Validate() error {
	orgID, err := id.ParseOrgID(r.OrganizationID)
	if err != nil {
		return err
	}
	r.parsedOrgID = orgID
	return nil
}
