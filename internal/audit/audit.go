// Package audit records wizard transitions. Recording is best effort: callers
// log failures and carry on.
package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"seller-onboarding/internal/common/database"
	"seller-onboarding/internal/common/errors"
)

type EventType string

const (
	EventStepCompleted        EventType = "step_completed"
	EventStepSkipped          EventType = "step_skipped"
	EventApplicationSubmitted EventType = "application_submitted"
	EventAccessDenied         EventType = "access_denied"
)

type Event struct {
	Type       EventType              `json:"type"`
	UserID     string                 `json:"userId"`
	BusinessID string                 `json:"businessId,omitempty"`
	Step       int                    `json:"step,omitempty"`
	Details    map[string]interface{} `json:"details,omitempty"`
	At         time.Time              `json:"at"`
}

type Recorder interface {
	Record(ctx context.Context, e Event) error
}

// Noop discards every event.
type Noop struct{}

func (Noop) Record(context.Context, Event) error { return nil }

const schema = `
CREATE TABLE IF NOT EXISTS onboarding_audit_log (
	id          BIGSERIAL PRIMARY KEY,
	event_type  TEXT        NOT NULL,
	user_id     TEXT        NOT NULL,
	business_id TEXT,
	step        SMALLINT,
	details     JSONB       NOT NULL DEFAULT '{}',
	created_at  TIMESTAMPTZ NOT NULL
)`

const historyIndex = `
CREATE INDEX IF NOT EXISTS onboarding_audit_log_user_idx
	ON onboarding_audit_log (user_id, created_at DESC)`

const selectHistory = `
SELECT event_type, user_id, COALESCE(business_id, ''), COALESCE(step, 0), details, created_at
FROM onboarding_audit_log
WHERE user_id = $1
ORDER BY created_at DESC, id DESC
LIMIT $2`

const insertEvent = `
INSERT INTO onboarding_audit_log (event_type, user_id, business_id, step, details, created_at)
VALUES ($1, $2, $3, $4, $5, $6)`

// PostgresRecorder appends events to onboarding_audit_log.
type PostgresRecorder struct {
	db *database.PostgresClient
}

func NewPostgresRecorder(db *database.PostgresClient) *PostgresRecorder {
	return &PostgresRecorder{db: db}
}

// EnsureSchema creates the audit table and its per-user index if missing.
func (r *PostgresRecorder) EnsureSchema(ctx context.Context) error {
	err := r.db.InTx(ctx, func(tx *sql.Tx) error {
		for _, stmt := range []string{schema, historyIndex} {
			if _, err := tx.ExecContext(ctx, stmt); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return errors.NewAuditError(err)
	}
	return nil
}

// History returns the newest events for userID, newest first.
func (r *PostgresRecorder) History(ctx context.Context, userID string, limit int) ([]Event, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := r.db.Query(ctx, selectHistory, userID, limit)
	if err != nil {
		return nil, errors.NewAuditError(err)
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var (
			e       Event
			kind    string
			details []byte
		)
		if err := rows.Scan(&kind, &e.UserID, &e.BusinessID, &e.Step, &details, &e.At); err != nil {
			return nil, errors.NewAuditError(err)
		}
		e.Type = EventType(kind)
		if len(details) > 0 && string(details) != "{}" {
			if err := json.Unmarshal(details, &e.Details); err != nil {
				return nil, errors.NewAuditError(err)
			}
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewAuditError(err)
	}
	return events, nil
}

func (r *PostgresRecorder) Record(ctx context.Context, e Event) error {
	details := []byte("{}")
	if len(e.Details) > 0 {
		raw, err := json.Marshal(e.Details)
		if err != nil {
			return errors.NewAuditError(err)
		}
		details = raw
	}
	at := e.At
	if at.IsZero() {
		at = time.Now().UTC()
	}

	var businessID interface{}
	if e.BusinessID != "" {
		businessID = e.BusinessID
	}
	var step interface{}
	if e.Step > 0 {
		step = e.Step
	}

	if _, err := r.db.Exec(ctx, insertEvent, string(e.Type), e.UserID, businessID, step, details, at); err != nil {
		return errors.NewAuditError(err)
	}
	return nil
}
