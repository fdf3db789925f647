package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
)

// DBLogger persists audit events to the audit_events table.
type DBLogger struct {
	db *sql.DB
}

// NewDBLogger creates a database-backed audit sink.
func NewDBLogger(db *sql.DB) *DBLogger {
	return &DBLogger{db: db}
}

// Migrate creates the audit_events table. The DDL is PostgreSQL; tests
// apply a SQLite schema of the same shape.
func (l *DBLogger) Migrate(ctx context.Context) error {
	_, err := l.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS audit_events (
			id BIGSERIAL PRIMARY KEY,
			timestamp TIMESTAMP NOT NULL,
			event_type VARCHAR(100) NOT NULL,
			status VARCHAR(20) NOT NULL,
			principal_id VARCHAR(255),
			identity_kind VARCHAR(50),
			entity_kind VARCHAR(50),
			entity_id BIGINT,
			action VARCHAR(50),
			reason VARCHAR(100),
			request_id VARCHAR(100),
			message TEXT,
			metadata TEXT
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create audit_events table: %w", err)
	}
	return nil
}

// Log implements Logger.
func (l *DBLogger) Log(ctx context.Context, event *Event) error {
	var metadata []byte
	if event.Metadata != nil {
		var err error
		metadata, err = json.Marshal(event.Metadata)
		if err != nil {
			return fmt.Errorf("failed to marshal audit metadata: %w", err)
		}
	}

	err := l.db.QueryRowContext(ctx, `
		INSERT INTO audit_events (timestamp, event_type, status, principal_id,
			identity_kind, entity_kind, entity_id, action, reason, request_id,
			message, metadata)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING id
	`, event.Timestamp, event.EventType, event.Status, event.PrincipalID,
		event.IdentityKind, event.EntityKind, event.EntityID, event.Action,
		event.Reason, event.RequestID, event.Message, string(metadata),
	).Scan(&event.ID)
	if err != nil {
		return fmt.Errorf("failed to insert audit event: %w", err)
	}
	return nil
}

// Close implements Logger. The logger does not own the handle.
func (l *DBLogger) Close() error { return nil }

// Recent returns the newest events, most recent first.
func (l *DBLogger) Recent(ctx context.Context, limit int) ([]*Event, error) {
	rows, err := l.db.QueryContext(ctx, `
		SELECT id, timestamp, event_type, status, principal_id, identity_kind,
			entity_kind, entity_id, action, reason, request_id, message, metadata
		FROM audit_events ORDER BY timestamp DESC, id DESC LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query audit events: %w", err)
	}
	defer rows.Close()

	var events []*Event
	for rows.Next() {
		e := &Event{}
		var metadata string
		if err := rows.Scan(&e.ID, &e.Timestamp, &e.EventType, &e.Status,
			&e.PrincipalID, &e.IdentityKind, &e.EntityKind, &e.EntityID,
			&e.Action, &e.Reason, &e.RequestID, &e.Message, &metadata); err != nil {
			return nil, fmt.Errorf("failed to scan audit event: %w", err)
		}
		if metadata != "" {
			if err := json.Unmarshal([]byte(metadata), &e.Metadata); err != nil {
				return nil, fmt.Errorf("failed to unmarshal audit metadata: %w", err)
			}
		}
		events = append(events, e)
	}
	return events, rows.Err()
}
