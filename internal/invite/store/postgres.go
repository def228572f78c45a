package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"certforge/internal/invite/models"
	id "certforge/pkg/domain"
	"certforge/pkg/platform/sentinel"
	"certforge/pkg/platform/tx"
)

const pqUniqueViolation = "23505"

// PostgresStore persists invites. Acceptance is a single row-conditioned
// UPDATE so concurrent accepts of the same token cannot both succeed.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Create(ctx context.Context, invite *models.Invite) error {
	q := tx.Resolve(ctx, s.db)
	_, err := q.ExecContext(ctx, `
		INSERT INTO invites (
			id, organization_id, email, program_id, token,
			status, created_at, expires_at, accepted_at, accepted_by
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`, uuid.UUID(invite.ID), uuid.UUID(invite.OrgID), invite.Email, programIDValue(invite.ProgramID),
		invite.Token, string(invite.Status), invite.CreatedAt, invite.ExpiresAt,
		invite.AcceptedAt, acceptedByValue(invite.AcceptedBy))
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == pqUniqueViolation {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("create invite: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByToken(ctx context.Context, token string) (*models.Invite, error) {
	q := tx.Resolve(ctx, s.db)
	row := q.QueryRowContext(ctx, selectInvite+`
		WHERE token = $1
	`, token)
	return scanInvite(row)
}

func (s *PostgresStore) MarkExpired(ctx context.Context, inviteID id.InviteID) error {
	q := tx.Resolve(ctx, s.db)
	_, err := q.ExecContext(ctx, `
		UPDATE invites
		SET status = $1
		WHERE id = $2 AND status = $3
	`, string(models.InviteStatusExpired), uuid.UUID(inviteID), string(models.InviteStatusPending))
	if err != nil {
		return fmt.Errorf("expire invite: %w", err)
	}
	return nil
}

// Accept flips pending -> accepted in one conditioned statement. When no row
// matches, a follow-up read classifies the failure.
func (s *PostgresStore) Accept(ctx context.Context, token string, userID id.UserID, now time.Time) (*models.Invite, error) {
	q := tx.Resolve(ctx, s.db)
	row := q.QueryRowContext(ctx, `
		UPDATE invites
		SET status = $1, accepted_at = $2, accepted_by = $3
		WHERE token = $4 AND status = $5 AND expires_at >= $2
		RETURNING id, organization_id, email, program_id, token,
		          status, created_at, expires_at, accepted_at, accepted_by
	`, string(models.InviteStatusAccepted), now, uuid.UUID(userID),
		token, string(models.InviteStatusPending))

	invite, err := scanInvite(row)
	if err == nil {
		return invite, nil
	}
	if !errors.Is(err, sentinel.ErrNotFound) {
		return nil, err
	}

	existing, findErr := s.FindByToken(ctx, token)
	if findErr != nil {
		return nil, findErr
	}
	switch {
	case existing.Status == models.InviteStatusAccepted:
		return nil, sentinel.ErrAlreadyUsed
	case existing.Status == models.InviteStatusExpired || existing.IsExpired(now):
		return nil, sentinel.ErrExpired
	}
	return nil, sentinel.ErrInvalidState
}

const selectInvite = `
	SELECT id, organization_id, email, program_id, token,
	       status, created_at, expires_at, accepted_at, accepted_by
	FROM invites
`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanInvite(row rowScanner) (*models.Invite, error) {
	var invite models.Invite
	var inviteID, orgID uuid.UUID
	var programID, acceptedBy uuid.NullUUID
	var status string
	err := row.Scan(&inviteID, &orgID, &invite.Email, &programID, &invite.Token,
		&status, &invite.CreatedAt, &invite.ExpiresAt, &invite.AcceptedAt, &acceptedBy)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("scan invite: %w", err)
	}
	invite.ID = id.InviteID(inviteID)
	invite.OrgID = id.OrgID(orgID)
	invite.Status = models.InviteStatus(status)
	if programID.Valid {
		p := id.ProgramID(programID.UUID)
		invite.ProgramID = &p
	}
	if acceptedBy.Valid {
		u := id.UserID(acceptedBy.UUID)
		invite.AcceptedBy = &u
	}
	return &invite, nil
}

func programIDValue(programID *id.ProgramID) any {
	if programID == nil {
		return nil
	}
	return uuid.UUID(*programID)
}

func acceptedByValue(userID *id.UserID) any {
	if userID == nil {
		return nil
	}
	return uuid.UUID(*userID)
}
