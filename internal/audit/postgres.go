package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	id "certforge/pkg/domain"
)

// PostgresStore appends events to the audit_events table. There is no update
// or delete path.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Append(ctx context.Context, event Event) error {
	detail, err := json.Marshal(event.Detail)
	if err != nil {
		return fmt.Errorf("marshal audit detail: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO audit_events (id, organization_id, action, subject_id, actor, client_ip, user_agent, detail, occurred_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, event.ID, uuid.UUID(event.OrgID), event.Action, event.SubjectID, event.Actor,
		event.ClientIP, event.UserAgent, detail, event.OccurredAt)
	if err != nil {
		return fmt.Errorf("append audit event: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListByOrg(ctx context.Context, orgID id.OrgID) ([]Event, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, organization_id, action, subject_id, actor, client_ip, user_agent, detail, occurred_at
		FROM audit_events
		WHERE organization_id = $1
		ORDER BY occurred_at
	`, uuid.UUID(orgID))
	if err != nil {
		return nil, fmt.Errorf("list audit events: %w", err)
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var event Event
		var oid uuid.UUID
		var detail []byte
		if err := rows.Scan(&event.ID, &oid, &event.Action, &event.SubjectID, &event.Actor,
			&event.ClientIP, &event.UserAgent, &detail, &event.OccurredAt); err != nil {
			return nil, fmt.Errorf("scan audit event: %w", err)
		}
		event.OrgID = id.OrgID(oid)
		if len(detail) > 0 {
			if err := json.Unmarshal(detail, &event.Detail); err != nil {
				return nil, fmt.Errorf("unmarshal audit detail: %w", err)
			}
		}
		events = append(events, event)
	}
	return events, rows.Err()
}
