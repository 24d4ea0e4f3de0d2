// Package workflow gives every multi-step business operation the same shape:
// validate, run dependent persistence steps as one all-or-nothing unit, and
// only after the unit commits, attempt best-effort side effects. Audit
// entries are written by steps through tx-aware stores, so they commit or
// roll back together with the mutation they describe.
package workflow

import "context"

// State tracks a single workflow execution. Committed, Failed, and
// RolledBack are terminal; an execution never leaves a terminal state.
type State string

const (
	StatePending    State = "pending"
	StateValidating State = "validating"
	StateExecuting  State = "executing"
	StateCommitting State = "committing"
	StateCommitted  State = "committed"
	StateFailed     State = "failed"
	StateRolledBack State = "rolled_back"
)

// Terminal reports whether the state allows no further transitions.
func (s State) Terminal() bool {
	return s == StateCommitted || s == StateFailed || s == StateRolledBack
}

// Step is one named unit of work inside the transaction. Steps run strictly
// in declaration order; later steps consume earlier steps' outputs through
// closure captures, which keeps the dependency visible at the call site.
type Step struct {
	Name string
	Run  func(ctx context.Context) error
}

// BestEffort is a side effect attempted after commit. Its failure is logged
// and reported on the Result but never rolls back the committed transaction.
type BestEffort struct {
	Name string
	Run  func(ctx context.Context) error
}

// Plan describes one workflow execution.
type Plan struct {
	// Name labels the workflow in logs, metrics, and audit context.
	Name string
	// Validate runs before any transaction opens. Optional.
	Validate func(ctx context.Context) error
	// Steps run in order inside a single transaction.
	Steps []Step
	// AfterCommit actions run only once the transaction has committed.
	AfterCommit []BestEffort
}

// Result is the outcome of a workflow execution. It is never persisted.
type Result struct {
	Name       string
	State      State
	FailedStep string
	// BestEffortFailures carries CodeBestEffort errors from AfterCommit
	// actions. Non-empty failures with StateCommitted means partial success:
	// the durable change stands, a notification did not go out.
	BestEffortFailures []error
}

// PartialSuccess reports a committed workflow whose side effects did not all
// complete.
func (r Result) PartialSuccess() bool {
	return r.State == StateCommitted && len(r.BestEffortFailures) > 0
}
