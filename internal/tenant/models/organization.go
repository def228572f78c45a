package models

import (
	"strings"
	"time"

	id "certforge/pkg/domain"
	dErrors "certforge/pkg/domain-errors"
)

// Organization is the tenant record. Full organization management lives in an
// external system; this core keeps the identity and display name it needs
// for scoping and certificate rendering.
type Organization struct {
	ID        id.OrgID  `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

func NewOrganization(orgID id.OrgID, name string, now time.Time) (*Organization, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "organization name is required")
	}
	if len(name) > 200 {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "organization name must be at most 200 characters")
	}
	return &Organization{ID: orgID, Name: name, CreatedAt: now}, nil
}
