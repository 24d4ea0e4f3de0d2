package ratelimit

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryLimiter_AllowsUpToLimit(t *testing.T) {
	limiter := NewMemoryLimiter(3, time.Minute)
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
}

func TestMemoryLimiter_KeysAreIndependent(t *testing.T) {
	limiter := NewMemoryLimiter(1, time.Minute)
	ctx := context.Background()

	first, err := limiter.Allow(ctx, "203.0.113.7")
	require.NoError(t, err)
	require.True(t, first.Allowed)

	blocked, err := limiter.Allow(ctx, "203.0.113.7")
	require.NoError(t, err)
	assert.False(t, blocked.Allowed)

	other, err := limiter.Allow(ctx, "198.51.100.4")
	require.NoError(t, err)
	assert.True(t, other.Allowed)
}

func TestMemoryLimiter_WindowSlides(t *testing.T) {
	limiter := NewMemoryLimiter(1, time.Minute)
	now := time.Now()
	limiter.now = func() time.Time { return now }
	ctx := context.Background()

	first, err := limiter.Allow(ctx, "203.0.113.7")
	require.NoError(t, err)
	require.True(t, first.Allowed)

	blocked, err := limiter.Allow(ctx, "203.0.113.7")
	require.NoError(t, err)
	require.False(t, blocked.Allowed)

	now = now.Add(61 * time.Second)
	again, err := limiter.Allow(ctx, "203.0.113.7")
	require.NoError(t, err)
	assert.True(t, again.Allowed)
}

type stubLimiter struct {
	result Result
	err    error
	keys   []string
}

func (s *stubLimiter) Allow(_ context.Context, key string) (Result, error) {
	s.keys = append(s.keys, key)
	return s.result, s.err
}

func TestMiddleware_RejectsWithRetryAfter(t *testing.T) {
	stub := &stubLimiter{result: Result{Allowed: false, RetryAfter: 30 * time.Second}}
	handler := Middleware(stub, slog.New(slog.NewTextHandler(io.Discard, nil)))(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusCreated)
	}))

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/hr/applications", nil)
	req.RemoteAddr = "203.0.113.7:52100"
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "30", rec.Header().Get("Retry-After"))
	assert.Equal(t, []string{"203.0.113.7"}, stub.keys)
}

func TestMiddleware_UsesForwardedForWhenPresent(t *testing.T) {
	stub := &stubLimiter{result: Result{Allowed: true}}
	handler := Middleware(stub, slog.New(slog.NewTextHandler(io.Discard, nil)))(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/hr/applications", nil)
	req.RemoteAddr = "10.0.0.1:443"
	req.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.1")
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"203.0.113.7"}, stub.keys)
}

func TestMiddleware_FailsOpenOnBackendError(t *testing.T) {
	stub := &stubLimiter{err: assert.AnError}
	handler := Middleware(stub, slog.New(slog.NewTextHandler(io.Discard, nil)))(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusCreated)
	}))

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/hr/applications", nil)
	req.RemoteAddr = "203.0.113.7:52100"
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusCreated, rec.Code)
}
