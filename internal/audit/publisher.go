package audit

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Store persists audit events. The postgres implementation is tx-aware: when
// the caller's context carries a transaction, the append commits or rolls
// back with the business mutation it describes.
type Store interface {
	Append(ctx context.Context, event Event) error
	ListByLine(ctx context.Context, lineID string) ([]Event, error)
}

// Publisher captures structured audit events. It is append-only and uses the
// storage layer for persistence so tests can swap sinks easily.
type Publisher struct {
	store Store
}

func NewPublisher(store Store) *Publisher {
	return &Publisher{store: store}
}

// Emit records an event, filling in id and timestamp when absent. Call it
// from inside a workflow step so the entry shares the step's transaction.
func (p *Publisher) Emit(ctx context.Context, event Event) error {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	return p.store.Append(ctx, event)
}

// List returns the audit trail for one organizational line.
func (p *Publisher) List(ctx context.Context, lineID string) ([]Event, error) {
	return p.store.ListByLine(ctx, lineID)
}
