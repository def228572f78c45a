package models

import (
	"time"

	id "certforge/pkg/domain"
	dErrors "certforge/pkg/domain-errors"
)

// EnrollmentStatus tracks an employee's progression through a program.
type EnrollmentStatus string

const (
	EnrollmentStatusEnrolled   EnrollmentStatus = "enrolled"
	EnrollmentStatusInProgress EnrollmentStatus = "in_progress"
	EnrollmentStatusCompleted  EnrollmentStatus = "completed"
	EnrollmentStatusFailed     EnrollmentStatus = "failed"
)

func (s EnrollmentStatus) Valid() bool {
	switch s {
	case EnrollmentStatusEnrolled, EnrollmentStatusInProgress, EnrollmentStatusCompleted, EnrollmentStatusFailed:
		return true
	}
	return false
}

// Enrollment is the (employee, program) participation record.
//
// Invariants:
//   - At most one Enrollment per (employee, program), enforced by the store
//   - Progress is within [0, 100]
//   - CompletionDate is set exactly when Status becomes completed
//   - Never hard-deleted; terminal outcomes are status changes
type Enrollment struct {
	ID             id.EnrollmentID  `json:"id"`
	OrgID          id.OrgID         `json:"organization_id"`
	EmployeeID     id.EmployeeID    `json:"employee_id"`
	ProgramID      id.ProgramID     `json:"program_id"`
	Status         EnrollmentStatus `json:"status"`
	Progress       int              `json:"progress_percentage"`
	EnrolledAt     time.Time        `json:"enrollment_date"`
	CompletionDate *time.Time       `json:"completion_date,omitempty"`
}

func NewEnrollment(enrollmentID id.EnrollmentID, orgID id.OrgID, employeeID id.EmployeeID, programID id.ProgramID, now time.Time) (*Enrollment, error) {
	if orgID.IsZero() || employeeID.IsZero() || programID.IsZero() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "organization, employee and program are required")
	}
	return &Enrollment{
		ID:         enrollmentID,
		OrgID:      orgID,
		EmployeeID: employeeID,
		ProgramID:  programID,
		Status:     EnrollmentStatusEnrolled,
		EnrolledAt: now,
	}, nil
}

// CanRecordProgress checks whether the enrollment still accepts progress
// updates. Completed and failed enrollments are frozen.
func (e *Enrollment) CanRecordProgress() error {
	if e.Status == EnrollmentStatusCompleted || e.Status == EnrollmentStatusFailed {
		return dErrors.New(dErrors.CodeInvariantViolation, "enrollment is already finalized")
	}
	return nil
}

// ApplyProgress records a progress percentage. Reaching 100 completes the
// enrollment and stamps the completion date.
func (e *Enrollment) ApplyProgress(progress int, now time.Time) error {
	if progress < 0 || progress > 100 {
		return dErrors.New(dErrors.CodeInvalidInput, "progress must be between 0 and 100")
	}
	if err := e.CanRecordProgress(); err != nil {
		return err
	}
	e.Progress = progress
	switch {
	case progress >= 100:
		e.Status = EnrollmentStatusCompleted
		t := now
		e.CompletionDate = &t
	case progress > 0:
		e.Status = EnrollmentStatusInProgress
	}
	return nil
}

// ApplyFailure marks the enrollment failed. Terminal.
func (e *Enrollment) ApplyFailure() error {
	if err := e.CanRecordProgress(); err != nil {
		return err
	}
	e.Status = EnrollmentStatusFailed
	return nil
}
