//go:build integration

package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lingkod/pkg/testutil/containers"
)

func TestRedisLimiter_EnforcesWindow(t *testing.T) {
	rdb := containers.StartRedis(t)
	limiter := NewRedisLimiter(rdb, 3, time.Minute)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		result, err := limiter.Allow(ctx, "203.0.113.7")
		require.NoError(t, err)
		assert.True(t, result.Allowed)
		assert.Equal(t, 2-i, result.Remaining)
	}

	result, err := limiter.Allow(ctx, "203.0.113.7")
	require.NoError(t, err)
	assert.False(t, result.Allowed)
	assert.Greater(t, result.RetryAfter, time.Duration(0))
	assert.LessOrEqual(t, result.RetryAfter, time.Minute)

	other, err := limiter.Allow(ctx, "198.51.100.4")
	require.NoError(t, err)
	assert.True(t, other.Allowed)
}

func TestRedisLimiter_WindowExpires(t *testing.T) {
	rdb := containers.StartRedis(t)
	limiter := NewRedisLimiter(rdb, 1, time.Second)
	ctx := context.Background()

	first, err := limiter.Allow(ctx, "203.0.113.7")
	require.NoError(t, err)
	require.True(t, first.Allowed)

	blocked, err := limiter.Allow(ctx, "203.0.113.7")
	require.NoError(t, err)
	require.False(t, blocked.Allowed)

	time.Sleep(1100 * time.Millisecond)

	again, err := limiter.Allow(ctx, "203.0.113.7")
	require.NoError(t, err)
	assert.True(t, again.Allowed)
}
