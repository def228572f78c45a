// Package domain holds typed identifiers shared across modules.
//
// Every identifier is a distinct type over uuid.UUID so that an employee ID
// can never be passed where a program ID is expected. Parsing is strict:
// empty strings, malformed UUIDs, and the nil UUID are all rejected at trust
// boundaries.
package domain

import (
	"github.com/google/uuid"

	dErrors "certforge/pkg/domain-errors"
)

type (
	// OrgID identifies an organization, the unit of tenant isolation.
	OrgID uuid.UUID
	// EmployeeID identifies an employee within an organization.
	EmployeeID uuid.UUID
	// ProgramID identifies a certification program.
	ProgramID uuid.UUID
	// TestID identifies a computer-based test attached to a program.
	TestID uuid.UUID
	// EnrollmentID identifies an (employee, program) enrollment.
	EnrollmentID uuid.UUID
	// CertificateID identifies an issued certificate.
	CertificateID uuid.UUID
	// InviteID identifies an invitation.
	InviteID uuid.UUID
	// UserID identifies an authenticated identity from the external provider.
	UserID uuid.UUID
)

func (id OrgID) String() string         { return uuid.UUID(id).String() }
func (id EmployeeID) String() string    { return uuid.UUID(id).String() }
func (id ProgramID) String() string     { return uuid.UUID(id).String() }
func (id TestID) String() string        { return uuid.UUID(id).String() }
func (id EnrollmentID) String() string  { return uuid.UUID(id).String() }
func (id CertificateID) String() string { return uuid.UUID(id).String() }
func (id InviteID) String() string      { return uuid.UUID(id).String() }
func (id UserID) String() string        { return uuid.UUID(id).String() }

func (id OrgID) IsZero() bool         { return uuid.UUID(id) == uuid.Nil }
func (id EmployeeID) IsZero() bool    { return uuid.UUID(id) == uuid.Nil }
func (id ProgramID) IsZero() bool     { return uuid.UUID(id) == uuid.Nil }
func (id TestID) IsZero() bool        { return uuid.UUID(id) == uuid.Nil }
func (id EnrollmentID) IsZero() bool  { return uuid.UUID(id) == uuid.Nil }
func (id CertificateID) IsZero() bool { return uuid.UUID(id) == uuid.Nil }
func (id InviteID) IsZero() bool      { return uuid.UUID(id) == uuid.Nil }
func (id UserID) IsZero() bool        { return uuid.UUID(id) == uuid.Nil }

func parseUUID(raw string) (uuid.UUID, error) {
	if raw == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "identifier is required")
	}
	parsed, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "identifier must be a valid UUID")
	}
	if parsed == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "identifier must not be the nil UUID")
	}
	return parsed, nil
}

func ParseOrgID(raw string) (OrgID, error) {
	parsed, err := parseUUID(raw)
	return OrgID(parsed), err
}

func ParseEmployeeID(raw string) (EmployeeID, error) {
	parsed, err := parseUUID(raw)
	return EmployeeID(parsed), err
}

func ParseProgramID(raw string) (ProgramID, error) {
	parsed, err := parseUUID(raw)
	return ProgramID(parsed), err
}

func ParseTestID(raw string) (TestID, error) {
	parsed, err := parseUUID(raw)
	return TestID(parsed), err
}

func ParseEnrollmentID(raw string) (EnrollmentID, error) {
	parsed, err := parseUUID(raw)
	return EnrollmentID(parsed), err
}

func ParseCertificateID(raw string) (CertificateID, error) {
	parsed, err := parseUUID(raw)
	return CertificateID(parsed), err
}

func ParseInviteID(raw string) (InviteID, error) {
	parsed, err := parseUUID(raw)
	return InviteID(parsed), err
}

func ParseUserID(raw string) (UserID, error) {
	parsed, err := parseUUID(raw)
	return UserID(parsed), err
}
