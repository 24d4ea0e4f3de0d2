package workflow

import (
	"context"
	"log/slog"

	dErrors "lingkod/pkg/domain-errors"
)

// Observer receives workflow lifecycle signals. Implemented by the platform
// metrics package; a nil observer disables instrumentation.
type Observer interface {
	WorkflowCommitted(name string)
	WorkflowRolledBack(name string)
	BestEffortFailed(workflow, action string)
}

// Coordinator executes Plans against a UnitOfWork. It is stateless and safe
// for concurrent use; all per-execution state lives in the Result.
type Coordinator struct {
	uow      UnitOfWork
	logger   *slog.Logger
	observer Observer
}

// NewCoordinator builds a Coordinator. The observer may be nil.
func NewCoordinator(uow UnitOfWork, logger *slog.Logger, observer Observer) *Coordinator {
	return &Coordinator{uow: uow, logger: logger, observer: observer}
}

// Execute runs the plan. The first step failure rolls the whole transaction
// back and propagates unchanged, so callers can distinguish a duplicate-key
// conflict from a connectivity outage. Best-effort failures never surface as
// the returned error; they ride on the Result.
func (c *Coordinator) Execute(ctx context.Context, plan Plan) (Result, error) {
	result := Result{Name: plan.Name, State: StatePending}

	if plan.Validate != nil {
		result.State = StateValidating
		if err := plan.Validate(ctx); err != nil {
			result.State = StateFailed
			return result, err
		}
	}

	tx, txCtx, err := c.uow.Begin(ctx)
	if err != nil {
		result.State = StateFailed
		return result, dErrors.Wrap(err, dErrors.CodeInternal, "begin transaction")
	}

	result.State = StateExecuting
	for _, step := range plan.Steps {
		if err := step.Run(txCtx); err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				c.logger.ErrorContext(ctx, "rollback failed",
					"workflow", plan.Name,
					"step", step.Name,
					"error", rbErr.Error(),
				)
			}
			result.State = StateRolledBack
			result.FailedStep = step.Name
			if c.observer != nil {
				c.observer.WorkflowRolledBack(plan.Name)
			}
			return result, err
		}
	}

	result.State = StateCommitting
	if err := tx.Commit(); err != nil {
		result.State = StateFailed
		if c.observer != nil {
			c.observer.WorkflowRolledBack(plan.Name)
		}
		return result, dErrors.Wrap(err, dErrors.CodeInternal, "commit transaction")
	}
	result.State = StateCommitted
	if c.observer != nil {
		c.observer.WorkflowCommitted(plan.Name)
	}

	// The durable change is in. Side effects run on the request context but
	// outside the transaction; their failures are collected, not raised.
	for _, action := range plan.AfterCommit {
		if err := action.Run(ctx); err != nil {
			wrapped := dErrors.Wrap(err, dErrors.CodeBestEffort, action.Name+" failed after commit")
			result.BestEffortFailures = append(result.BestEffortFailures, wrapped)
			c.logger.WarnContext(ctx, "best-effort action failed",
				"workflow", plan.Name,
				"action", action.Name,
				"error", err.Error(),
			)
			if c.observer != nil {
				c.observer.BestEffortFailed(plan.Name, action.Name)
			}
		}
	}

	return result, nil
}
