package models

import (
	"time"

	id "certforge/pkg/domain"
	dErrors "certforge/pkg/domain-errors"

	"github.com/google/uuid"
)

// ReportStatus is the review state of a submitted progress report.
type ReportStatus string

const (
	ReportStatusPending  ReportStatus = "pending"
	ReportStatusApproved ReportStatus = "approved"
	ReportStatusRejected ReportStatus = "rejected"
)

// ReportSubmission is a progress report attached to an enrollment.
//
// Content is immutable once submitted; only a reviewer moves the status.
type ReportSubmission struct {
	ID           uuid.UUID       `json:"id"`
	OrgID        id.OrgID        `json:"organization_id"`
	EnrollmentID id.EnrollmentID `json:"enrollment_id"`
	Type         string          `json:"type"`
	Content      string          `json:"content"`
	Status       ReportStatus    `json:"status"`
	SubmittedAt  time.Time       `json:"submitted_at"`
	ReviewedAt   *time.Time      `json:"reviewed_at,omitempty"`
}

func NewReportSubmission(orgID id.OrgID, enrollmentID id.EnrollmentID, reportType, content string, now time.Time) (*ReportSubmission, error) {
	if reportType == "" {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "report type is required")
	}
	if content == "" {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "report content is required")
	}
	return &ReportSubmission{
		ID:           uuid.New(),
		OrgID:        orgID,
		EnrollmentID: enrollmentID,
		Type:         reportType,
		Content:      content,
		Status:       ReportStatusPending,
		SubmittedAt:  now,
	}, nil
}

// ApplyReview records the reviewer's decision. A report is reviewed at most
// once.
func (r *ReportSubmission) ApplyReview(approved bool, now time.Time) error {
	if r.Status != ReportStatusPending {
		return dErrors.New(dErrors.CodeInvariantViolation, "report has already been reviewed")
	}
	if approved {
		r.Status = ReportStatusApproved
	} else {
		r.Status = ReportStatusRejected
	}
	t := now
	r.ReviewedAt = &t
	return nil
}
