// Package service implements the invitation gateway: admin-created,
// time-boxed tokens that link an unregistered person to an organization and
// optionally a program, with exactly-once acceptance.
package service

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"certforge/internal/audit"
	enrollmodels "certforge/internal/enrollment/models"
	"certforge/internal/invite/models"
	"certforge/internal/invite/store"
	"certforge/internal/notify"
	id "certforge/pkg/domain"
	dErrors "certforge/pkg/domain-errors"
	"certforge/pkg/email"
	"certforge/pkg/platform/sentinel"
	"certforge/pkg/platform/tx"
	"certforge/pkg/requestcontext"
)

// DefaultTTL is the invite validity window when none is configured.
const DefaultTTL = 7 * 24 * time.Hour

// Machine-readable reasons carried on gateway errors.
const (
	ReasonInvalidOrExpired = "invalid_or_expired"
	ReasonAlreadyAccepted  = "already_accepted"
)

// tokenBytes sizes the invite token at 256 bits, enough that tokens cannot
// be guessed or derived from any exposed field.
const tokenBytes = 32

// OrgDirectory resolves organization display names and doubles as the
// existence check at invite creation.
type OrgDirectory interface {
	OrgName(ctx context.Context, orgID id.OrgID) (string, error)
}

// ProgramDirectory resolves the optional program attached to an invite.
type ProgramDirectory interface {
	FindByID(ctx context.Context, orgID id.OrgID, programID id.ProgramID) (*enrollmodels.Program, error)
}

// Enroller links the accepting identity into the invite's organization and
// program. Satisfied by the enrollment service.
type Enroller interface {
	EnsureEmployee(ctx context.Context, orgID id.OrgID, userID id.UserID, name, email string) (*enrollmodels.Employee, error)
	Enroll(ctx context.Context, orgID id.OrgID, employeeID id.EmployeeID, programID id.ProgramID) (*enrollmodels.Enrollment, error)
}

// Metadata is what an unauthenticated holder of a token may learn: enough to
// render a signup page, nothing tenant-internal.
type Metadata struct {
	Email            string    `json:"email"`
	OrganizationName string    `json:"organization_name"`
	ProgramName      string    `json:"program_name,omitempty"`
	ExpiresAt        time.Time `json:"expires_at"`
}

// AcceptResult reports what acceptance linked together.
type AcceptResult struct {
	Invite     *models.Invite           `json:"invite"`
	Employee   *enrollmodels.Employee   `json:"employee"`
	Enrollment *enrollmodels.Enrollment `json:"enrollment,omitempty"`
}

type Service struct {
	invites   store.Store
	orgs      OrgDirectory
	programs  ProgramDirectory
	enroller  Enroller
	notifier  notify.Notifier
	runner    tx.Runner
	publisher *audit.Publisher
	ttl       time.Duration
	logger    *slog.Logger
}

func New(invites store.Store, orgs OrgDirectory, programs ProgramDirectory, enroller Enroller,
	notifier notify.Notifier, runner tx.Runner, publisher *audit.Publisher,
	ttl time.Duration, logger *slog.Logger) *Service {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Service{
		invites:   invites,
		orgs:      orgs,
		programs:  programs,
		enroller:  enroller,
		notifier:  notifier,
		runner:    runner,
		publisher: publisher,
		ttl:       ttl,
		logger:    logger,
	}
}

// Create mints a pending invite and hands it to the notifier. The token is
// the only credential; the response is the one place it leaves the service.
func (s *Service) Create(ctx context.Context, orgID id.OrgID, emailAddr string, programID *id.ProgramID) (*models.Invite, error) {
	orgName, err := s.orgs.OrgName(ctx, orgID)
	if err != nil {
		return nil, notFoundOr(err, "organization not found")
	}

	programName := ""
	if programID != nil {
		program, err := s.programs.FindByID(ctx, orgID, *programID)
		if err != nil {
			return nil, notFoundOr(err, "program not found")
		}
		programName = program.Name
	}

	token, err := newToken()
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to generate invite token")
	}
	invite, err := models.NewInvite(id.InviteID(uuid.New()), orgID, emailAddr, token, programID, s.ttl, requestcontext.Now(ctx))
	if err != nil {
		return nil, err
	}
	if err := s.invites.Create(ctx, invite); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create invite")
	}

	// Delivery is best-effort: the invite exists and the admin holds the
	// token either way.
	if err := s.notifier.SendInvite(ctx, notify.InviteMessage{
		Email:            invite.Email,
		Token:            invite.Token,
		OrganizationName: orgName,
		ProgramName:      programName,
	}); err != nil {
		s.logger.WarnContext(ctx, "invite notification failed",
			"request_id", requestcontext.RequestID(ctx),
			"invite_id", invite.ID.String(),
			"error", err,
		)
	}

	s.logger.InfoContext(ctx, "invite created",
		"request_id", requestcontext.RequestID(ctx),
		"invite_id", invite.ID.String(),
		"expires_at", invite.ExpiresAt,
	)
	return invite, nil
}

// Resolve answers a public token lookup with display metadata. A lapsed
// pending invite is flipped to expired before answering; the stored status is
// a cache and the timestamp is ground truth.
func (s *Service) Resolve(ctx context.Context, token string) (*Metadata, error) {
	invite, err := s.invites.FindByToken(ctx, token)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, invalidOrExpired()
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to look up invite")
	}

	now := requestcontext.Now(ctx)
	if invite.Status == models.InviteStatusPending && invite.IsExpired(now) {
		if err := s.invites.MarkExpired(ctx, invite.ID); err != nil {
			s.logger.WarnContext(ctx, "failed to expire invite",
				"invite_id", invite.ID.String(),
				"error", err,
			)
		}
		return nil, invalidOrExpired()
	}
	if invite.Status != models.InviteStatusPending {
		return nil, invalidOrExpired()
	}

	orgName, err := s.orgs.OrgName(ctx, invite.OrgID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to resolve organization")
	}
	meta := &Metadata{
		Email:            invite.Email,
		OrganizationName: orgName,
		ExpiresAt:        invite.ExpiresAt,
	}
	if invite.ProgramID != nil {
		program, err := s.programs.FindByID(ctx, invite.OrgID, *invite.ProgramID)
		if err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to resolve program")
		}
		meta.ProgramName = program.Name
	}
	return meta, nil
}

// Accept consumes a token for the authenticated user: flip pending ->
// accepted exactly once, link or create the employee record in the invite's
// organization, and enroll into the invite's program when one is attached.
// The three writes share one transaction; a second accept of the same token
// reports already_accepted and changes nothing.
func (s *Service) Accept(ctx context.Context, token string, userID id.UserID) (*AcceptResult, error) {
	if userID.IsZero() {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "an authenticated user is required")
	}

	now := requestcontext.Now(ctx)
	var result AcceptResult
	err := s.runner.RunInTx(ctx, func(ctx context.Context) error {
		invite, err := s.invites.Accept(ctx, token, userID, now)
		if err != nil {
			switch {
			case errors.Is(err, sentinel.ErrAlreadyUsed):
				return dErrors.NewWithReason(dErrors.CodeConflict, "invite has already been accepted", ReasonAlreadyAccepted)
			case errors.Is(err, sentinel.ErrExpired):
				// Surfaced raw so the flip below runs outside the
				// rolled-back transaction.
				return err
			case errors.Is(err, sentinel.ErrNotFound):
				return invalidOrExpired()
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to accept invite")
		}

		first, last := email.DeriveNameFromEmail(invite.Email)
		employee, err := s.enroller.EnsureEmployee(ctx, invite.OrgID, userID, first+" "+last, invite.Email)
		if err != nil {
			return err
		}

		result.Invite = invite
		result.Employee = employee
		if invite.ProgramID != nil {
			enrollment, err := s.enroller.Enroll(ctx, invite.OrgID, employee.ID, *invite.ProgramID)
			if err != nil {
				return err
			}
			result.Enrollment = enrollment
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, sentinel.ErrExpired) {
			// Lazy flip so later reads see the ground truth.
			if stale, findErr := s.invites.FindByToken(ctx, token); findErr == nil {
				_ = s.invites.MarkExpired(ctx, stale.ID)
			}
			return nil, invalidOrExpired()
		}
		return nil, err
	}

	s.publisher.Emit(ctx, audit.Event{
		OrgID:     result.Invite.OrgID,
		Action:    audit.ActionInviteAccepted,
		SubjectID: result.Invite.ID.String(),
		Actor:     userID.String(),
		Detail: map[string]string{
			"employee_id": result.Employee.ID.String(),
		},
	})
	s.logger.InfoContext(ctx, "invite accepted",
		"request_id", requestcontext.RequestID(ctx),
		"invite_id", result.Invite.ID.String(),
		"employee_id", result.Employee.ID.String(),
	)
	return &result, nil
}

// newToken draws an opaque URL-safe invite token from crypto/rand.
func newToken() (string, error) {
	buf := make([]byte, tokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("read random bytes: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// invalidOrExpired is the uniform answer for unknown, lapsed and malformed
// tokens. Holders learn nothing about which case they hit.
func invalidOrExpired() error {
	return dErrors.NewWithReason(dErrors.CodeNotFound, "invite not found or expired", ReasonInvalidOrExpired)
}

func notFoundOr(err error, msg string) error {
	if errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.New(dErrors.CodeNotFound, msg)
	}
	var domainErr *dErrors.Error
	if errors.As(err, &domainErr) {
		return err
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, msg)
}
