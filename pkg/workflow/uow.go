package workflow

import (
	"context"
	"database/sql"
	"sync"
	"time"

	dErrors "lingkod/pkg/domain-errors"
	txcontext "lingkod/pkg/platform/tx"
)

// Tx is the begin/commit/rollback contract the coordinator drives. Commit
// and Rollback are each called at most once per execution.
type Tx interface {
	Commit() error
	Rollback() error
}

// UnitOfWork opens a transactional boundary. The returned context carries
// the transaction so tx-aware stores join it transparently.
type UnitOfWork interface {
	Begin(ctx context.Context) (Tx, context.Context, error)
}

// defaultTxTimeout bounds a workflow transaction when the caller has not set
// a deadline of its own.
const defaultTxTimeout = 5 * time.Second

// SQLUnitOfWork backs the coordinator with database/sql transactions. The
// storage engine's isolation level is the only cross-workflow ordering
// guarantee; the coordinator adds no application-level locking.
type SQLUnitOfWork struct {
	db      *sql.DB
	timeout time.Duration
}

func NewSQLUnitOfWork(db *sql.DB) *SQLUnitOfWork {
	return &SQLUnitOfWork{db: db, timeout: defaultTxTimeout}
}

type sqlTx struct {
	tx     *sql.Tx
	cancel context.CancelFunc
}

func (t *sqlTx) Commit() error {
	defer t.cancel()
	return t.tx.Commit()
}

func (t *sqlTx) Rollback() error {
	defer t.cancel()
	return t.tx.Rollback()
}

func (u *SQLUnitOfWork) Begin(ctx context.Context) (Tx, context.Context, error) {
	if err := ctx.Err(); err != nil {
		return nil, ctx, dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}

	cancel := context.CancelFunc(func() {})
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		ctx, cancel = context.WithTimeout(ctx, u.timeout)
	}

	tx, err := u.db.BeginTx(ctx, nil)
	if err != nil {
		cancel()
		return nil, ctx, err
	}
	return &sqlTx{tx: tx, cancel: cancel}, txcontext.With(ctx, tx), nil
}

// Snapshotter is implemented by in-memory stores so MemoryUnitOfWork can
// roll their state back. Snapshot must return a deep copy.
type Snapshotter interface {
	Snapshot() any
	Restore(snapshot any)
}

// MemoryUnitOfWork gives in-memory stores real rollback semantics for tests
// and dev wiring: Begin snapshots every registered store under a coarse
// lock, Rollback restores the snapshots. The lock serializes workflows the
// way a database would serialize conflicting transactions.
type MemoryUnitOfWork struct {
	mu     sync.Mutex
	stores []Snapshotter
}

func NewMemoryUnitOfWork(stores ...Snapshotter) *MemoryUnitOfWork {
	return &MemoryUnitOfWork{stores: stores}
}

type memoryTx struct {
	uow       *MemoryUnitOfWork
	snapshots []any
	done      bool
}

func (u *MemoryUnitOfWork) Begin(ctx context.Context) (Tx, context.Context, error) {
	if err := ctx.Err(); err != nil {
		return nil, ctx, dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}
	u.mu.Lock()
	snapshots := make([]any, len(u.stores))
	for i, store := range u.stores {
		snapshots[i] = store.Snapshot()
	}
	return &memoryTx{uow: u, snapshots: snapshots}, ctx, nil
}

func (t *memoryTx) Commit() error {
	if t.done {
		return nil
	}
	t.done = true
	t.uow.mu.Unlock()
	return nil
}

func (t *memoryTx) Rollback() error {
	if t.done {
		return nil
	}
	t.done = true
	for i, store := range t.uow.stores {
		store.Restore(t.snapshots[i])
	}
	t.uow.mu.Unlock()
	return nil
}
