package audit

import (
	"time"

	"github.com/google/uuid"

	id "certforge/pkg/domain"
)

// Actions recorded by this core.
const (
	ActionCertificateIssued   = "certificate.issued"
	ActionCertificateRevoked  = "certificate.revoked"
	ActionCertificateReissued = "certificate.reissued"
	ActionInviteAccepted      = "invite.accepted"
)

// Event is emitted from domain logic to capture key actions. Append-only;
// events are never updated or deleted.
type Event struct {
	ID         uuid.UUID
	OrgID      id.OrgID
	Action     string
	SubjectID  string
	Actor      string
	ClientIP   string
	UserAgent  string
	Detail     map[string]string
	OccurredAt time.Time
}
