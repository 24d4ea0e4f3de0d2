package refdata

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lingkod/pkg/platform/sentinel"
)

func TestMockClient_Lookup(t *testing.T) {
	client := MockClient{}

	name, err := client.Lookup(context.Background(), "042103000", TierMunicipality)
	require.NoError(t, err)
	assert.Equal(t, "Bacoor", name)

	name, err = client.Lookup(context.Background(), "042103012", TierBarangay)
	require.NoError(t, err)
	assert.Equal(t, "Molino IV", name)
}

func TestMockClient_Lookup_UnknownCode(t *testing.T) {
	client := MockClient{}

	_, err := client.Lookup(context.Background(), "999999999", TierBarangay)
	assert.ErrorIs(t, err, sentinel.ErrNotFound)
}

func TestMockClient_Lookup_TierMismatch(t *testing.T) {
	client := MockClient{}

	// A valid barangay code looked up at the wrong tier does not resolve.
	_, err := client.Lookup(context.Background(), "042103012", TierProvince)
	assert.ErrorIs(t, err, sentinel.ErrNotFound)
}

func TestMockClient_Lookup_ExtraOverlay(t *testing.T) {
	client := MockClient{Extra: map[string]string{
		"barangay:042103099": "Queens Row East",
	}}

	name, err := client.Lookup(context.Background(), "042103099", TierBarangay)
	require.NoError(t, err)
	assert.Equal(t, "Queens Row East", name)
}

func TestMockClient_Lookup_LatencyHonorsContext(t *testing.T) {
	client := MockClient{Latency: time.Second}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := client.Lookup(ctx, "042103000", TierMunicipality)
	assert.ErrorIs(t, err, context.Canceled)
}
