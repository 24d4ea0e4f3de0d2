package workflow

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "lingkod/pkg/domain-errors"
)

// ledger is a minimal snapshottable store for exercising rollback semantics.
type ledger struct {
	rows []string
}

func (l *ledger) Snapshot() any {
	cp := make([]string, len(l.rows))
	copy(cp, l.rows)
	return cp
}

func (l *ledger) Restore(snapshot any) {
	l.rows = snapshot.([]string)
}

func (l *ledger) append(row string) {
	l.rows = append(l.rows, row)
}

func newTestCoordinator(stores ...Snapshotter) *Coordinator {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewCoordinator(NewMemoryUnitOfWork(stores...), logger, nil)
}

func TestExecuteRunsStepsInOrderAndCommits(t *testing.T) {
	store := &ledger{}
	coord := newTestCoordinator(store)

	var order []string
	step := func(name string) Step {
		return Step{Name: name, Run: func(ctx context.Context) error {
			order = append(order, name)
			store.append(name)
			return nil
		}}
	}

	result, err := coord.Execute(context.Background(), Plan{
		Name:  "test",
		Steps: []Step{step("first"), step("second"), step("third")},
	})
	require.NoError(t, err)

	assert.Equal(t, StateCommitted, result.State)
	assert.True(t, result.State.Terminal())
	assert.Equal(t, []string{"first", "second", "third"}, order)
	assert.Equal(t, []string{"first", "second", "third"}, store.rows)
}

func TestExecuteRollsBackEverythingOnStepFailure(t *testing.T) {
	boom := dErrors.New(dErrors.CodeConflict, "duplicate reference number")

	// Force the failure at each position; earlier writes must vanish.
	for failAt := 0; failAt < 3; failAt++ {
		store := &ledger{rows: []string{"pre-existing"}}
		coord := newTestCoordinator(store)

		steps := make([]Step, 3)
		for i := range steps {
			i := i
			steps[i] = Step{Name: "step", Run: func(ctx context.Context) error {
				if i == failAt {
					return boom
				}
				store.append("written")
				return nil
			}}
		}

		result, err := coord.Execute(context.Background(), Plan{Name: "test", Steps: steps})
		require.Error(t, err)

		// The original error propagates unchanged, cause and code intact.
		assert.Same(t, boom, err, "failAt=%d", failAt)
		assert.Equal(t, StateRolledBack, result.State)
		assert.True(t, result.State.Terminal())
		assert.Equal(t, []string{"pre-existing"}, store.rows, "failAt=%d", failAt)
	}
}

func TestExecuteValidationFailsBeforeTransaction(t *testing.T) {
	store := &ledger{}
	coord := newTestCoordinator(store)

	vErr := dErrors.New(dErrors.CodeValidation, "missing position id")
	stepRan := false

	result, err := coord.Execute(context.Background(), Plan{
		Name:     "test",
		Validate: func(ctx context.Context) error { return vErr },
		Steps: []Step{{Name: "write", Run: func(ctx context.Context) error {
			stepRan = true
			return nil
		}}},
	})

	require.Error(t, err)
	assert.Same(t, vErr, err)
	assert.Equal(t, StateFailed, result.State)
	assert.False(t, stepRan)
	assert.Empty(t, store.rows)
}

func TestExecuteBestEffortFailureDoesNotUndoCommit(t *testing.T) {
	store := &ledger{}
	coord := newTestCoordinator(store)

	emailErr := errors.New("smtp: connection refused")
	smsSent := false

	result, err := coord.Execute(context.Background(), Plan{
		Name: "test",
		Steps: []Step{{Name: "write", Run: func(ctx context.Context) error {
			store.append("applicant")
			return nil
		}}},
		AfterCommit: []BestEffort{
			{Name: "send confirmation email", Run: func(ctx context.Context) error { return emailErr }},
			{Name: "send sms", Run: func(ctx context.Context) error {
				smsSent = true
				return nil
			}},
		},
	})

	// The workflow itself succeeds; the failure rides on the result.
	require.NoError(t, err)
	assert.Equal(t, StateCommitted, result.State)
	assert.Equal(t, []string{"applicant"}, store.rows)
	assert.True(t, smsSent, "later best-effort actions still run")

	require.Len(t, result.BestEffortFailures, 1)
	assert.True(t, result.PartialSuccess())
	assert.Equal(t, dErrors.CodeBestEffort, dErrors.CodeOf(result.BestEffortFailures[0]))
	assert.True(t, errors.Is(result.BestEffortFailures[0], emailErr))
}

func TestExecuteCancelledContextFailsBeforeBegin(t *testing.T) {
	coord := newTestCoordinator()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := coord.Execute(ctx, Plan{
		Name:  "test",
		Steps: []Step{{Name: "noop", Run: func(ctx context.Context) error { return nil }}},
	})
	require.Error(t, err)
	assert.Equal(t, StateFailed, result.State)
	assert.Equal(t, dErrors.CodeInternal, dErrors.CodeOf(err))
}

func TestStateTerminality(t *testing.T) {
	for _, s := range []State{StateCommitted, StateFailed, StateRolledBack} {
		assert.True(t, s.Terminal(), string(s))
	}
	for _, s := range []State{StatePending, StateValidating, StateExecuting, StateCommitting} {
		assert.False(t, s.Terminal(), string(s))
	}
}
