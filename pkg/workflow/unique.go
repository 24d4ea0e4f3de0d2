package workflow

import (
	"context"

	dErrors "lingkod/pkg/domain-errors"
)

// GenerateUnique produces a candidate value that an existence check reports
// as free, retrying on collisions up to maxAttempts. It replaces the
// per-entity retry-until-unique loops (invite codes, item reference numbers,
// batch references) with one typed utility.
//
// The check-then-write race between two concurrent generations is closed by
// the storage layer's unique constraint, not here: a collision that slips
// past the check surfaces as CodeConflict when the code is persisted.
func GenerateUnique[T any](
	ctx context.Context,
	candidate func() (T, error),
	exists func(ctx context.Context, value T) (bool, error),
	maxAttempts int,
) (T, error) {
	var zero T
	if maxAttempts < 1 {
		return zero, dErrors.New(dErrors.CodeBadRequest, "maxAttempts must be at least 1")
	}
	for attempt := 0; attempt < maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return zero, dErrors.Wrap(err, dErrors.CodeTimeout, "unique generation cancelled")
		}
		value, err := candidate()
		if err != nil {
			return zero, err
		}
		taken, err := exists(ctx, value)
		if err != nil {
			return zero, err
		}
		if !taken {
			return value, nil
		}
	}
	return zero, dErrors.Newf(dErrors.CodeExhausted, "no unique candidate after %d attempts", maxAttempts)
}
