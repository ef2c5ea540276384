// Package geo computes lead-to-worker distances and maps them to proximity tiers
package geo

import (
	"encoding/json"
	"math"
	"time"

	"github.com/AltairaLabs/lead-oversight/internal/config"
	"github.com/AltairaLabs/lead-oversight/internal/types"
)

// EarthRadiusMiles is the mean Earth radius used by Distance
const EarthRadiusMiles = 3959.0

// Distance returns the great-circle distance in miles using the Haversine formula
func Distance(a, b types.LatLng) float64 {
	lat1 := toRadians(a.Lat)
	lat2 := toRadians(b.Lat)
	dLat := toRadians(b.Lat - a.Lat)
	dLng := toRadians(b.Lng - a.Lng)

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLng/2)*math.Sin(dLng/2)
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
	return EarthRadiusMiles * c
}

func toRadians(deg float64) float64 {
	return deg * math.Pi / 180
}

// TierInfo describes the proximity tier a distance falls into
type TierInfo struct {
	Tier                  types.ProximityTier `json:"tier"`
	MinMiles              float64             `json:"min_miles"`
	MaxMiles              float64             `json:"max_miles"` // +Inf for the last tier
	Selectable            bool                `json:"selectable"`
	RequiresAdminOverride bool                `json:"requires_admin_override"`
	Visible               bool                `json:"visible"`
	Warning               string              `json:"warning,omitempty"`
}

// MarshalJSON omits max_miles for the unbounded last tier
func (t TierInfo) MarshalJSON() ([]byte, error) {
	type plain TierInfo
	out := struct {
		plain
		MaxMiles *float64 `json:"max_miles,omitempty"`
	}{plain: plain(t)}
	if !math.IsInf(t.MaxMiles, 1) {
		out.MaxMiles = &t.MaxMiles
	}
	return json.Marshal(out)
}

// UnmarshalJSON restores a missing max_miles as +Inf
func (t *TierInfo) UnmarshalJSON(data []byte) error {
	type plain TierInfo
	in := struct {
		*plain
		MaxMiles *float64 `json:"max_miles"`
	}{plain: (*plain)(t)}
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	t.MaxMiles = math.Inf(1)
	if in.MaxMiles != nil {
		t.MaxMiles = *in.MaxMiles
	}
	return nil
}

// Classifier maps distances to tiers using injected band configuration
type Classifier struct {
	tiers []TierInfo
}

// NewClassifier builds a classifier from validated proximity config
func NewClassifier(cfg config.ProximityConfig) (*Classifier, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	tiers := make([]TierInfo, 0, len(cfg.Tiers))
	lower := 0.0
	for i, t := range cfg.Tiers {
		upper := t.MaxMiles
		if i == len(cfg.Tiers)-1 {
			upper = math.Inf(1)
		}
		tiers = append(tiers, TierInfo{
			Tier:                  t.Tier,
			MinMiles:              lower,
			MaxMiles:              upper,
			Selectable:            t.Selectable,
			RequiresAdminOverride: t.RequiresAdminOverride,
			Visible:               t.Visible,
			Warning:               t.Warning,
		})
		lower = upper
	}
	return &Classifier{tiers: tiers}, nil
}

// Classify returns the first tier whose inclusive upper bound covers miles.
// Negative or NaN input is treated as zero.
func (c *Classifier) Classify(miles float64) TierInfo {
	if miles < 0 || math.IsNaN(miles) {
		miles = 0
	}
	for _, t := range c.tiers {
		if miles <= t.MaxMiles {
			return t
		}
	}
	return c.tiers[len(c.tiers)-1]
}

// Between classifies the distance between two points
func (c *Classifier) Between(a, b types.LatLng) (float64, TierInfo) {
	d := Distance(a, b)
	return d, c.Classify(d)
}

// Tiers returns a copy of the configured tiers, nearest first
func (c *Classifier) Tiers() []TierInfo {
	out := make([]TierInfo, len(c.tiers))
	copy(out, c.tiers)
	return out
}

// CheckSelectable enforces the tier's selection policy
func CheckSelectable(info TierInfo, adminOverride bool) error {
	if !info.Selectable {
		return types.NewError(types.ErrNotSelectable,
			"worker is %s and cannot be selected", info.Tier)
	}
	if info.RequiresAdminOverride && !adminOverride {
		return types.NewError(types.ErrAdminApprovalRequired,
			"worker is %s; selection requires admin approval", info.Tier)
	}
	return nil
}

// TravelEstimate is distance times minutesPerMile, rounded up to whole minutes
func TravelEstimate(miles, minutesPerMile float64) time.Duration {
	if miles <= 0 {
		return 0
	}
	return time.Duration(math.Ceil(miles*minutesPerMile)) * time.Minute
}
