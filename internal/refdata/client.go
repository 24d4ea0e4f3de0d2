// Package refdata resolves Philippine Standard Geographic Code (PSGC)
// references to canonical names. Lookups are read-only and idempotent, so
// workflows call them before opening a transaction and cache results freely.
package refdata

import (
	"context"
	"strings"
	"time"

	"lingkod/pkg/platform/sentinel"
)

// Tier identifies the geographic level a code belongs to.
type Tier string

const (
	TierRegion       Tier = "region"
	TierProvince     Tier = "province"
	TierMunicipality Tier = "municipality"
	TierBarangay     Tier = "barangay"
)

// Client queries the reference-data registry. A code that does not resolve
// returns sentinel.ErrNotFound; workflows translate that into a validation
// failure before any transaction opens.
type Client interface {
	Lookup(ctx context.Context, code string, tier Tier) (string, error)
}

// MockClient serves deterministic reference data with a configurable latency
// to mimic the real registry. Used in dev wiring and tests.
type MockClient struct {
	Latency time.Duration
	// Extra entries overlay the built-in fixture set; key is "<tier>:<code>".
	Extra map[string]string
}

var fixtureNames = map[string]string{
	"region:040000000":       "CALABARZON",
	"province:042100000":     "Cavite",
	"municipality:042103000": "Bacoor",
	"barangay:042103012":     "Molino IV",
	"region:130000000":       "National Capital Region",
	"province:133900000":     "Metro Manila District 1",
	"municipality:133901000": "City of Manila",
	"barangay:133901056":     "Barangay 56",
}

func (c MockClient) Lookup(ctx context.Context, code string, tier Tier) (string, error) {
	if c.Latency > 0 {
		select {
		case <-time.After(c.Latency):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	key := string(tier) + ":" + strings.TrimSpace(code)
	if name, ok := c.Extra[key]; ok {
		return name, nil
	}
	if name, ok := fixtureNames[key]; ok {
		return name, nil
	}
	return "", sentinel.ErrNotFound
}
