// Package ratelimit guards the public submission endpoint against abuse.
// Authenticated routes are not limited; their actors are accountable through
// the audit trail.
package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"

	platformredis "lingkod/internal/platform/redis"
)

// Result reports one admission decision.
type Result struct {
	Allowed    bool
	Remaining  int
	RetryAfter time.Duration
}

// Limiter admits or rejects a request for a key, typically a client IP.
type Limiter interface {
	Allow(ctx context.Context, key string) (Result, error)
}

// MemoryLimiter is a sliding-window limiter for single-process deployments.
// The sliding window avoids the burst-at-boundary problem of fixed windows.
type MemoryLimiter struct {
	limit  int
	window time.Duration
	now    func() time.Time

	mu      sync.Mutex
	buckets map[string][]time.Time
}

func NewMemoryLimiter(limit int, window time.Duration) *MemoryLimiter {
	return &MemoryLimiter{
		limit:   limit,
		window:  window,
		now:     time.Now,
		buckets: make(map[string][]time.Time),
	}
}

func (l *MemoryLimiter) Allow(_ context.Context, key string) (Result, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	cutoff := now.Add(-l.window)

	kept := l.buckets[key][:0]
	for _, ts := range l.buckets[key] {
		if ts.After(cutoff) {
			kept = append(kept, ts)
		}
	}

	if len(kept) >= l.limit {
		l.buckets[key] = kept
		return Result{
			Allowed:    false,
			RetryAfter: kept[0].Add(l.window).Sub(now),
		}, nil
	}

	l.buckets[key] = append(kept, now)
	return Result{
		Allowed:   true,
		Remaining: l.limit - len(kept) - 1,
	}, nil
}

// RedisLimiter is a fixed-window limiter shared across replicas. The window
// starts on the first request for a key and the counter expires with it.
type RedisLimiter struct {
	rdb    *platformredis.Client
	limit  int
	window time.Duration
}

func NewRedisLimiter(rdb *platformredis.Client, limit int, window time.Duration) *RedisLimiter {
	return &RedisLimiter{rdb: rdb, limit: limit, window: window}
}

func (l *RedisLimiter) Allow(ctx context.Context, key string) (Result, error) {
	redisKey := "ratelimit:" + key

	count, err := l.rdb.Incr(ctx, redisKey).Result()
	if err != nil {
		return Result{}, fmt.Errorf("increment rate limit counter: %w", err)
	}
	if count == 1 {
		if err := l.rdb.Expire(ctx, redisKey, l.window).Err(); err != nil {
			return Result{}, fmt.Errorf("set rate limit window: %w", err)
		}
	}

	if count > int64(l.limit) {
		ttl, err := l.rdb.TTL(ctx, redisKey).Result()
		if err != nil || ttl < 0 {
			ttl = l.window
		}
		return Result{Allowed: false, RetryAfter: ttl}, nil
	}
	return Result{Allowed: true, Remaining: l.limit - int(count)}, nil
}
