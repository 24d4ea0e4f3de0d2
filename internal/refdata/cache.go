package refdata

import (
	"context"
	"errors"
	"log/slog"
	"time"

	goredis "github.com/redis/go-redis/v9"

	platformredis "lingkod/internal/platform/redis"
)

// CacheHits records reference-data cache hits, typically backed by a
// prometheus counter.
type CacheHits interface {
	RefLookupCacheHit()
}

// CachedClient decorates a Client with a redis read-through cache. Reference
// data changes rarely, so entries live for a long TTL and cache errors fall
// back to the inner client.
type CachedClient struct {
	inner  Client
	redis  *platformredis.Client
	ttl    time.Duration
	hits   CacheHits
	logger *slog.Logger
}

func NewCachedClient(inner Client, rdb *platformredis.Client, ttl time.Duration, hits CacheHits, logger *slog.Logger) *CachedClient {
	return &CachedClient{inner: inner, redis: rdb, ttl: ttl, hits: hits, logger: logger}
}

func cacheKey(code string, tier Tier) string {
	return "refdata:" + string(tier) + ":" + code
}

func (c *CachedClient) Lookup(ctx context.Context, code string, tier Tier) (string, error) {
	if c.redis == nil {
		return c.inner.Lookup(ctx, code, tier)
	}

	key := cacheKey(code, tier)
	name, err := c.redis.Get(ctx, key).Result()
	if err == nil {
		if c.hits != nil {
			c.hits.RefLookupCacheHit()
		}
		return name, nil
	}
	if !errors.Is(err, goredis.Nil) {
		c.logger.Warn("refdata cache read failed", "key", key, "error", err)
	}

	name, err = c.inner.Lookup(ctx, code, tier)
	if err != nil {
		return "", err
	}

	if err := c.redis.Set(ctx, key, name, c.ttl).Err(); err != nil {
		c.logger.Warn("refdata cache write failed", "key", key, "error", err)
	}
	return name, nil
}
