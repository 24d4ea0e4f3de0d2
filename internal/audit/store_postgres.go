package audit

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	txcontext "lingkod/pkg/platform/tx"
)

// PostgresStore implements Store using a transactional outbox. Events are
// written to the audit_outbox table in the caller's transaction and shipped
// to Kafka by the outbox worker afterwards, so an event exists exactly when
// the mutation it describes committed.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Append writes an audit event to the outbox table.
func (s *PostgresStore) Append(ctx context.Context, event Event) error {
	query := `
		INSERT INTO audit_outbox (id, actor_id, line_id, action, entity, description, request_id, device, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err := txcontext.Executor(ctx, s.db).ExecContext(ctx, query,
		event.ID,
		event.ActorID,
		event.LineID,
		string(event.Action),
		event.Entity,
		event.Description,
		event.RequestID,
		event.Device,
		event.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("insert audit outbox entry: %w", err)
	}
	return nil
}

// ListByLine returns the audit trail for a line, newest first.
func (s *PostgresStore) ListByLine(ctx context.Context, lineID string) ([]Event, error) {
	query := `
		SELECT id, actor_id, line_id, action, entity, description, request_id, device, created_at
		FROM audit_outbox
		WHERE line_id = $1
		ORDER BY created_at DESC
	`
	rows, err := txcontext.Executor(ctx, s.db).QueryContext(ctx, query, lineID)
	if err != nil {
		return nil, fmt.Errorf("list audit events: %w", err)
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var e Event
		var action string
		if err := rows.Scan(&e.ID, &e.ActorID, &e.LineID, &action, &e.Entity, &e.Description, &e.RequestID, &e.Device, &e.Timestamp); err != nil {
			return nil, fmt.Errorf("scan audit event: %w", err)
		}
		e.Action = Action(action)
		events = append(events, e)
	}
	return events, rows.Err()
}

// OutboxRow is one unshipped event awaiting publication.
type OutboxRow struct {
	ID    string
	Event Event
}

// NextUnpublished loads up to limit unshipped events, oldest first.
func (s *PostgresStore) NextUnpublished(ctx context.Context, limit int) ([]OutboxRow, error) {
	query := `
		SELECT id, actor_id, line_id, action, entity, description, request_id, device, created_at
		FROM audit_outbox
		WHERE published_at IS NULL
		ORDER BY created_at
		LIMIT $1
	`
	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("select unpublished audit events: %w", err)
	}
	defer rows.Close()

	var out []OutboxRow
	for rows.Next() {
		var r OutboxRow
		var action string
		if err := rows.Scan(&r.ID, &r.Event.ActorID, &r.Event.LineID, &action, &r.Event.Entity, &r.Event.Description, &r.Event.RequestID, &r.Event.Device, &r.Event.Timestamp); err != nil {
			return nil, fmt.Errorf("scan outbox row: %w", err)
		}
		r.Event.ID = r.ID
		r.Event.Action = Action(action)
		out = append(out, r)
	}
	return out, rows.Err()
}

// MarkPublished stamps an event as shipped.
func (s *PostgresStore) MarkPublished(ctx context.Context, id string, at time.Time) error {
	_, err := s.db.ExecContext(ctx, `UPDATE audit_outbox SET published_at = $2 WHERE id = $1`, id, at)
	if err != nil {
		return fmt.Errorf("mark audit event published: %w", err)
	}
	return nil
}
