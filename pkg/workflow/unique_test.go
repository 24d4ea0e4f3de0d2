package workflow

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "lingkod/pkg/domain-errors"
)

func TestGenerateUniqueReturnsFirstFreeCandidate(t *testing.T) {
	const collisions = 4

	calls := 0
	candidate := func() (string, error) {
		calls++
		return fmt.Sprintf("INV-%04d", calls), nil
	}
	exists := func(_ context.Context, value string) (bool, error) {
		// First K candidates collide, everything after is free.
		return calls <= collisions, nil
	}

	value, err := GenerateUnique(context.Background(), candidate, exists, 10)
	require.NoError(t, err)

	assert.Equal(t, collisions+1, calls)
	assert.Equal(t, "INV-0005", value)
}

func TestGenerateUniqueExhaustsAttempts(t *testing.T) {
	candidate := func() (string, error) { return "always-taken", nil }
	exists := func(context.Context, string) (bool, error) { return true, nil }

	_, err := GenerateUnique(context.Background(), candidate, exists, 5)
	require.Error(t, err)
	assert.Equal(t, dErrors.CodeExhausted, dErrors.CodeOf(err))
}

func TestGenerateUniquePropagatesCheckError(t *testing.T) {
	storeErr := errors.New("connection reset")
	candidate := func() (string, error) { return "x", nil }
	exists := func(context.Context, string) (bool, error) { return false, storeErr }

	_, err := GenerateUnique(context.Background(), candidate, exists, 5)
	assert.Same(t, storeErr, err)
}

func TestGenerateUniqueRejectsZeroAttempts(t *testing.T) {
	candidate := func() (int, error) { return 0, nil }
	exists := func(context.Context, int) (bool, error) { return false, nil }

	_, err := GenerateUnique(context.Background(), candidate, exists, 0)
	require.Error(t, err)
	assert.Equal(t, dErrors.CodeBadRequest, dErrors.CodeOf(err))
}

func TestGenerateUniqueStopsOnCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	candidate := func() (string, error) { return "x", nil }
	exists := func(context.Context, string) (bool, error) { return true, nil }

	_, err := GenerateUnique(ctx, candidate, exists, 5)
	require.Error(t, err)
	assert.Equal(t, dErrors.CodeTimeout, dErrors.CodeOf(err))
}
