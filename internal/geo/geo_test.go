package geo

import (
	"encoding/json"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AltairaLabs/lead-oversight/internal/config"
	"github.com/AltairaLabs/lead-oversight/internal/types"
)

func newTestClassifier(t *testing.T) *Classifier {
	t.Helper()
	c, err := NewClassifier(config.DefaultProximityConfig())
	require.NoError(t, err)
	return c
}

func TestDistance_IdenticalPointsIsZero(t *testing.T) {
	p := types.LatLng{Lat: 33.749, Lng: -84.388}
	assert.Equal(t, 0.0, Distance(p, p))

	c := newTestClassifier(t)
	assert.Equal(t, types.ProximityClose, c.Classify(Distance(p, p)).Tier)
}

func TestDistance_KnownPair(t *testing.T) {
	// one degree of latitude is ~69.09 miles at radius 3959
	a := types.LatLng{Lat: 40, Lng: -75}
	b := types.LatLng{Lat: 41, Lng: -75}
	assert.InDelta(t, 69.09, Distance(a, b), 0.05)
	assert.InDelta(t, Distance(a, b), Distance(b, a), 1e-9)
}

func TestClassify_Scenarios(t *testing.T) {
	c := newTestClassifier(t)

	close18 := c.Classify(18)
	assert.Equal(t, types.ProximityClose, close18.Tier)
	assert.NoError(t, CheckSelectable(close18, false))

	far35 := c.Classify(35)
	assert.Equal(t, types.ProximityFar, far35.Tier)
	err := CheckSelectable(far35, false)
	assert.True(t, errors.Is(err, types.ErrAdminApprovalRequired))
	assert.NoError(t, CheckSelectable(far35, true))

	out50 := c.Classify(50)
	assert.Equal(t, types.ProximityOutOfRange, out50.Tier)
	assert.True(t, errors.Is(CheckSelectable(out50, false), types.ErrNotSelectable))
	assert.True(t, errors.Is(CheckSelectable(out50, true), types.ErrNotSelectable))
}

func TestClassify_InclusiveBounds(t *testing.T) {
	c := newTestClassifier(t)

	tests := []struct {
		miles float64
		want  types.ProximityTier
	}{
		{0, types.ProximityClose},
		{20, types.ProximityClose},
		{20.0001, types.ProximityMedium},
		{30, types.ProximityMedium},
		{30.5, types.ProximityFar},
		{45, types.ProximityFar},
		{45.01, types.ProximityOutOfRange},
		{10000, types.ProximityOutOfRange},
		{-3, types.ProximityClose},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, c.Classify(tt.miles).Tier, "miles=%v", tt.miles)
	}
}

func TestClassify_EveryDistanceHasExactlyOneTier(t *testing.T) {
	c := newTestClassifier(t)
	tiers := c.Tiers()

	for d := 0.0; d <= 100; d += 0.25 {
		matches := 0
		for i, tier := range tiers {
			lowerOK := d >= tier.MinMiles
			if i > 0 {
				lowerOK = d > tier.MinMiles
			}
			if lowerOK && d <= tier.MaxMiles {
				matches++
			}
		}
		require.Equal(t, 1, matches, "distance %v", d)
	}
	assert.True(t, math.IsInf(tiers[len(tiers)-1].MaxMiles, 1))
}

func TestTravelEstimate(t *testing.T) {
	assert.Equal(t, 0*time.Minute, TravelEstimate(0, 2))
	assert.Equal(t, 37*time.Minute, TravelEstimate(18.2, 2))
	assert.Equal(t, 36*time.Minute, TravelEstimate(18, 2))
	assert.Equal(t, 1*time.Minute, TravelEstimate(0.1, 2))
}

func TestTierInfo_JSONRoundTripsUnboundedTier(t *testing.T) {
	c, err := NewClassifier(config.DefaultProximityConfig())
	require.NoError(t, err)

	far := c.Classify(500)
	require.Equal(t, types.ProximityOutOfRange, far.Tier)

	data, err := json.Marshal(far)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "max_miles")

	var back TierInfo
	require.NoError(t, json.Unmarshal(data, &back))
	assert.True(t, math.IsInf(back.MaxMiles, 1))
	assert.Equal(t, far.Tier, back.Tier)

	data, err = json.Marshal(c.Classify(1))
	require.NoError(t, err)
	assert.Contains(t, string(data), `"max_miles":20`)
}
