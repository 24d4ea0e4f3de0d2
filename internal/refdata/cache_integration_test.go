//go:build integration

package refdata

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lingkod/pkg/testutil/containers"
)

type countingClient struct {
	inner   Client
	lookups int
}

func (c *countingClient) Lookup(ctx context.Context, code string, tier Tier) (string, error) {
	c.lookups++
	return c.inner.Lookup(ctx, code, tier)
}

type countingHits struct{ hits int }

func (c *countingHits) RefLookupCacheHit() { c.hits++ }

func TestCachedClient_ReadThrough(t *testing.T) {
	rdb := containers.StartRedis(t)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	ctx := context.Background()

	inner := &countingClient{inner: MockClient{}}
	hits := &countingHits{}
	client := NewCachedClient(inner, rdb, time.Hour, hits, logger)

	first, err := client.Lookup(ctx, "042103000", TierMunicipality)
	require.NoError(t, err)
	assert.Equal(t, "Bacoor", first)
	assert.Equal(t, 1, inner.lookups)
	assert.Equal(t, 0, hits.hits)

	second, err := client.Lookup(ctx, "042103000", TierMunicipality)
	require.NoError(t, err)
	assert.Equal(t, "Bacoor", second)
	assert.Equal(t, 1, inner.lookups, "second lookup must be served from cache")
	assert.Equal(t, 1, hits.hits)
}

func TestCachedClient_MissesAreNotCached(t *testing.T) {
	rdb := containers.StartRedis(t)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	ctx := context.Background()

	inner := &countingClient{inner: MockClient{}}
	client := NewCachedClient(inner, rdb, time.Hour, nil, logger)

	_, err := client.Lookup(ctx, "999999999", TierBarangay)
	require.Error(t, err)
	_, err = client.Lookup(ctx, "999999999", TierBarangay)
	require.Error(t, err)
	assert.Equal(t, 2, inner.lookups)
}
