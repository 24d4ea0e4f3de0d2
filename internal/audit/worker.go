package audit

import (
	"context"
	"log/slog"
	"time"
)

// Outbox is the slice of the store the worker drains.
type Outbox interface {
	NextUnpublished(ctx context.Context, limit int) ([]OutboxRow, error)
	MarkPublished(ctx context.Context, id string, at time.Time) error
}

// Shipped is notified per successfully published event. Implemented by the
// platform metrics package; nil disables instrumentation.
type Shipped interface {
	AuditEventShipped()
}

// Worker drains the audit outbox into the downstream log. Publishing happens
// strictly after the owning transaction committed; a crash between commit
// and publish only delays shipping, never loses the event.
type Worker struct {
	outbox   Outbox
	producer Producer
	logger   *slog.Logger
	shipped  Shipped
	interval time.Duration
	batch    int
}

// WorkerOption configures a Worker.
type WorkerOption func(*Worker)

// WithShipped attaches a per-event publication observer.
func WithShipped(s Shipped) WorkerOption {
	return func(w *Worker) { w.shipped = s }
}

// WithInterval overrides the poll interval.
func WithInterval(d time.Duration) WorkerOption {
	return func(w *Worker) {
		if d > 0 {
			w.interval = d
		}
	}
}

func NewWorker(outbox Outbox, producer Producer, logger *slog.Logger, opts ...WorkerOption) *Worker {
	w := &Worker{
		outbox:   outbox,
		producer: producer,
		logger:   logger,
		interval: time.Second,
		batch:    100,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(w)
		}
	}
	return w
}

// Run polls until the context is cancelled.
func (w *Worker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := w.drain(ctx); err != nil {
				w.logger.ErrorContext(ctx, "audit outbox drain failed", "error", err.Error())
			}
		}
	}
}

// drain publishes one batch. Events are marked published one by one, so a
// mid-batch failure re-ships at most the events after the failure point;
// consumers must tolerate the resulting at-least-once duplicates.
func (w *Worker) drain(ctx context.Context) error {
	rows, err := w.outbox.NextUnpublished(ctx, w.batch)
	if err != nil {
		return err
	}
	for _, row := range rows {
		payload, err := marshalEvent(row.Event)
		if err != nil {
			return err
		}
		if err := w.producer.Produce(ctx, row.Event.LineID, payload); err != nil {
			return err
		}
		if err := w.outbox.MarkPublished(ctx, row.ID, time.Now()); err != nil {
			return err
		}
		if w.shipped != nil {
			w.shipped.AuditEventShipped()
		}
	}
	return nil
}
