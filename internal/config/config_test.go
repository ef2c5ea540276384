package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/AltairaLabs/lead-oversight/internal/types"
)

func TestDefaultConfigIsValid(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Fatalf("Expected default config to validate, got %v", err)
	}
}

func TestDefaultTimerConfig(t *testing.T) {
	cfg := DefaultTimerConfig()

	if cfg.WrapUp != DefaultWrapUpDuration {
		t.Errorf("Expected WrapUp %v, got %v", DefaultWrapUpDuration, cfg.WrapUp)
	}
	if cfg.FirstWashDeadline != DefaultFirstWashDeadline {
		t.Errorf("Expected FirstWashDeadline %v, got %v", DefaultFirstWashDeadline, cfg.FirstWashDeadline)
	}
}

func TestTimingConstants(t *testing.T) {
	tests := []struct {
		name     string
		duration time.Duration
		expected time.Duration
	}{
		{"DefaultWrapUpDuration", DefaultWrapUpDuration, 3 * time.Minute},
		{"DefaultAssistanceReclassifyAfter", DefaultAssistanceReclassifyAfter, 15 * time.Minute},
		{"DefaultAssistanceJustifyAfter", DefaultAssistanceJustifyAfter, 30 * time.Minute},
		{"DefaultStallWarnAfter", DefaultStallWarnAfter, 3 * time.Minute},
		{"DefaultStallPauseAfter", DefaultStallPauseAfter, 5 * time.Minute},
		{"DefaultExpressPickupToStart", DefaultExpressPickupToStart, 2 * time.Hour},
		{"DefaultStandardPickupToStart", DefaultStandardPickupToStart, 8 * time.Hour},
		{"DefaultFirstWashDeadline", DefaultFirstWashDeadline, 6 * time.Hour},
		{"DefaultClaimConflictWindow", DefaultClaimConflictWindow, 5 * time.Minute},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			if test.duration != test.expected {
				t.Errorf("Expected %v, got %v", test.expected, test.duration)
			}
		})
	}
}

func TestProximityValidate(t *testing.T) {
	tests := []struct {
		name    string
		tiers   []ProximityTierConfig
		wantErr bool
	}{
		{"defaults", DefaultProximityConfig().Tiers, false},
		{"empty", nil, true},
		{
			"missing out of range",
			[]ProximityTierConfig{{Tier: types.ProximityClose, MaxMiles: 10}},
			true,
		},
		{
			"descending bounds",
			[]ProximityTierConfig{
				{Tier: types.ProximityClose, MaxMiles: 20},
				{Tier: types.ProximityMedium, MaxMiles: 10},
				{Tier: types.ProximityOutOfRange},
			},
			true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ProximityConfig{Tiers: tt.tiers}.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Expected error=%v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestTimerValidate(t *testing.T) {
	cfg := DefaultTimerConfig()
	cfg.WrapUpWarnBefore = 5 * time.Minute
	if err := cfg.Validate(); err == nil {
		t.Error("Expected error when warning falls outside the wrap-up window")
	}

	cfg = DefaultTimerConfig()
	cfg.LaundryWarnFraction = 1.2
	if err := cfg.Validate(); err == nil {
		t.Error("Expected error for laundry warn fraction above 1")
	}
}

func TestLoad_MissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if cfg.Timers.WrapUp != DefaultWrapUpDuration {
		t.Errorf("Expected default wrap-up, got %v", cfg.Timers.WrapUp)
	}
}

func TestLoad_OverridesSelectedFields(t *testing.T) {
	path := filepath.Join(t.TempDir(), "oversight.yaml")
	data := []byte(`
timers:
  wrap_up: 4m
  first_wash_deadline: 5h
claims:
  conflict_window: 10m
prompts:
  idle_minutes: 60
`)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if cfg.Timers.WrapUp != 4*time.Minute {
		t.Errorf("Expected wrap-up 4m, got %v", cfg.Timers.WrapUp)
	}
	if cfg.Timers.FirstWashDeadline != 5*time.Hour {
		t.Errorf("Expected first wash 5h, got %v", cfg.Timers.FirstWashDeadline)
	}
	if cfg.Claims.ConflictWindow != 10*time.Minute {
		t.Errorf("Expected conflict window 10m, got %v", cfg.Claims.ConflictWindow)
	}
	if cfg.Prompts.IdleMinutes != 60 {
		t.Errorf("Expected idle 60, got %v", cfg.Prompts.IdleMinutes)
	}
	// untouched sections keep defaults
	if cfg.Timers.StallPauseAfter != DefaultStallPauseAfter {
		t.Errorf("Expected default stall pause, got %v", cfg.Timers.StallPauseAfter)
	}
	if len(cfg.Proximity.Tiers) != 4 {
		t.Errorf("Expected 4 default tiers, got %d", len(cfg.Proximity.Tiers))
	}
}

func TestLoad_InvalidConfigRejected(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("timers:\n  wrap_up: -1m\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Error("Expected validation error for negative wrap-up")
	}
}

func TestMarshalRoundTrip(t *testing.T) {
	data, err := Marshal(Default())
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	cfg := Config{}
	if err := Parse(data, &cfg); err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if cfg.Timers.ExpressPickupToStart != 2*time.Hour {
		t.Errorf("Expected 2h express window, got %v", cfg.Timers.ExpressPickupToStart)
	}
}

func TestDeliveryValidate(t *testing.T) {
	cfg := Default()
	cfg.Delivery.MaxDelay = cfg.Delivery.InitialDelay / 2
	if err := cfg.Validate(); err == nil {
		t.Error("Expected error when max_delay is below initial_delay")
	}

	cfg = Default()
	cfg.Delivery.BackoffMultiplier = 0.5
	if err := cfg.Validate(); err == nil {
		t.Error("Expected error for a shrinking backoff")
	}

	cfg = Default()
	cfg.Delivery.MaxRetries = 0
	if err := cfg.Validate(); err != nil {
		t.Errorf("Expected zero retries to be allowed, got %v", err)
	}
}
