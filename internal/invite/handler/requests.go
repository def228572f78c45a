package handler

import (
	"strings"

	id "certforge/pkg/domain"
	dErrors "certforge/pkg/domain-errors"
)

// CreateRequest is the body for POST /invites.
type CreateRequest struct {
	OrganizationID string `json:"organization_id"`
	Email          string `json:"email"`
	ProgramID      string `json:"program_id,omitempty"`

	parsedOrgID     id.OrgID
	parsedProgramID *id.ProgramID
}

func (r *CreateRequest) Validate() error {
	orgID, err := id.ParseOrgID(r.OrganizationID)
	if err != nil {
		return err
	}
	if strings.TrimSpace(r.Email) == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "email is required")
	}
	r.parsedOrgID = orgID
	if r.ProgramID != "" {
		programID, err := id.ParseProgramID(r.ProgramID)
		if err != nil {
			return err
		}
		r.parsedProgramID = &programID
	}
	return nil
}

// AcceptRequest is the body for POST /invites/accept.
type AcceptRequest struct {
	Token string `json:"token"`
}

func (r *AcceptRequest) Validate() error {
	if strings.TrimSpace(r.Token) == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "token is required")
	}
	return nil
}
