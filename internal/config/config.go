package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/AltairaLabs/lead-oversight/internal/types"
)

// ProximityTierConfig describes one distance band
type ProximityTierConfig struct {
	Tier                  types.ProximityTier `yaml:"tier"`
	MaxMiles              float64             `yaml:"max_miles"` // inclusive upper bound; ignored for the last tier
	Selectable            bool                `yaml:"selectable"`
	RequiresAdminOverride bool                `yaml:"requires_admin_override"`
	Visible               bool                `yaml:"visible"`
	Warning               string              `yaml:"warning,omitempty"`
}

// ProximityConfig is the ordered set of distance bands, nearest first
type ProximityConfig struct {
	Tiers []ProximityTierConfig `yaml:"tiers"`
}

// DefaultProximityConfig returns the standard four bands
func DefaultProximityConfig() ProximityConfig {
	return ProximityConfig{
		Tiers: []ProximityTierConfig{
			{Tier: types.ProximityClose, MaxMiles: 20, Selectable: true, Visible: true},
			{
				Tier: types.ProximityMedium, MaxMiles: 30, Selectable: true, Visible: true,
				Warning: "Worker is a moderate drive away",
			},
			{
				Tier: types.ProximityFar, MaxMiles: 45, Selectable: true, RequiresAdminOverride: true, Visible: true,
				Warning: "Worker is far away; admin approval is required",
			},
			{
				Tier: types.ProximityOutOfRange, Selectable: false, Visible: false,
				Warning: "Worker is out of range",
			},
		},
	}
}

// Validate ensures bands are ascending and end with OUT_OF_RANGE so every distance maps to one tier
func (c ProximityConfig) Validate() error {
	if len(c.Tiers) == 0 {
		return errors.New("proximity: at least one tier is required")
	}
	last := c.Tiers[len(c.Tiers)-1]
	if last.Tier != types.ProximityOutOfRange {
		return errors.New("proximity: last tier must be OUT_OF_RANGE")
	}
	prev := 0.0
	for _, t := range c.Tiers[:len(c.Tiers)-1] {
		if t.MaxMiles <= prev {
			return fmt.Errorf("proximity: tier %s max %.2f must exceed %.2f", t.Tier, t.MaxMiles, prev)
		}
		prev = t.MaxMiles
	}
	return nil
}

// PriorityThresholds are the cut-offs of the priority cascade
type PriorityThresholds struct {
	RedMinRating      float64 `yaml:"red_min_rating"`      // rating below this is RED
	RedMinRedos       int     `yaml:"red_min_redos"`       // redos at or above this are RED
	RedMaxLagMinutes  float64 `yaml:"red_max_lag_minutes"` // time lag above this is RED
	NewWorkerJobs     int     `yaml:"new_worker_jobs"`     // completed below this is ORANGE
	GreenMinRating    float64 `yaml:"green_min_rating"`    // rating needed for the explicit GREEN rule
	GreenMinCompleted int     `yaml:"green_min_completed"` // completed needed for the explicit GREEN rule
}

// DefaultPriorityThresholds returns the standard cascade thresholds
func DefaultPriorityThresholds() PriorityThresholds {
	return PriorityThresholds{
		RedMinRating:      4.3,
		RedMinRedos:       2,
		RedMaxLagMinutes:  30,
		NewWorkerJobs:     5,
		GreenMinRating:    4.5,
		GreenMinCompleted: 5,
	}
}

// TimerConfig holds durations and warning marks of every timer kind
type TimerConfig struct {
	WrapUp                time.Duration `yaml:"wrap_up"`
	WrapUpWarnBefore      time.Duration `yaml:"wrap_up_warn_before"`
	AssistanceReclassify  time.Duration `yaml:"assistance_reclassify"`
	AssistanceJustify     time.Duration `yaml:"assistance_justify"`
	StallWarnAfter        time.Duration `yaml:"stall_warn_after"`
	StallPauseAfter       time.Duration `yaml:"stall_pause_after"`
	StallMinMovementMiles float64       `yaml:"stall_min_movement_miles"`
	ExpressPickupToStart  time.Duration `yaml:"express_pickup_to_start"`
	StandardPickupToStart time.Duration `yaml:"standard_pickup_to_start"`
	LaundryWarnFraction   float64       `yaml:"laundry_warn_fraction"`
	FirstWashDeadline     time.Duration `yaml:"first_wash_deadline"`
	FirstWashWarnFraction float64       `yaml:"first_wash_warn_fraction"`
}

// DefaultTimerConfig returns default configuration for all timers
func DefaultTimerConfig() TimerConfig {
	return TimerConfig{
		WrapUp:                DefaultWrapUpDuration,
		WrapUpWarnBefore:      DefaultWrapUpWarnBefore,
		AssistanceReclassify:  DefaultAssistanceReclassifyAfter,
		AssistanceJustify:     DefaultAssistanceJustifyAfter,
		StallWarnAfter:        DefaultStallWarnAfter,
		StallPauseAfter:       DefaultStallPauseAfter,
		StallMinMovementMiles: DefaultStallMinMovementMiles,
		ExpressPickupToStart:  DefaultExpressPickupToStart,
		StandardPickupToStart: DefaultStandardPickupToStart,
		LaundryWarnFraction:   DefaultLaundryWarnFraction,
		FirstWashDeadline:     DefaultFirstWashDeadline,
		FirstWashWarnFraction: DefaultFirstWashWarnFraction,
	}
}

// Validate checks the timer configuration is usable
func (c TimerConfig) Validate() error {
	durations := map[string]time.Duration{
		"wrap_up":                  c.WrapUp,
		"assistance_reclassify":    c.AssistanceReclassify,
		"assistance_justify":       c.AssistanceJustify,
		"stall_warn_after":         c.StallWarnAfter,
		"stall_pause_after":        c.StallPauseAfter,
		"express_pickup_to_start":  c.ExpressPickupToStart,
		"standard_pickup_to_start": c.StandardPickupToStart,
		"first_wash_deadline":      c.FirstWashDeadline,
	}
	for name, d := range durations {
		if d <= 0 {
			return fmt.Errorf("timers: %s must be positive", name)
		}
	}
	if c.WrapUpWarnBefore < 0 || c.WrapUpWarnBefore >= c.WrapUp {
		return errors.New("timers: wrap_up_warn_before must be within the wrap-up window")
	}
	if c.AssistanceReclassify >= c.AssistanceJustify {
		return errors.New("timers: assistance_reclassify must come before assistance_justify")
	}
	if c.StallWarnAfter > c.StallPauseAfter {
		return errors.New("timers: stall_warn_after cannot exceed stall_pause_after")
	}
	for name, f := range map[string]float64{
		"laundry_warn_fraction":    c.LaundryWarnFraction,
		"first_wash_warn_fraction": c.FirstWashWarnFraction,
	} {
		if f <= 0 || f >= 1 {
			return fmt.Errorf("timers: %s must be between 0 and 1", name)
		}
	}
	return nil
}

// ClaimConfig holds claim lock settings
type ClaimConfig struct {
	ConflictWindow       time.Duration `yaml:"conflict_window"`
	Timeout              time.Duration `yaml:"timeout"`
	TravelMinutesPerMile float64       `yaml:"travel_minutes_per_mile"`
}

// DefaultClaimConfig returns default configuration for claims
func DefaultClaimConfig() ClaimConfig {
	return ClaimConfig{
		ConflictWindow:       DefaultClaimConflictWindow,
		Timeout:              DefaultClaimTimeout,
		TravelMinutesPerMile: DefaultTravelMinutesPerMile,
	}
}

// PromptConfig holds smart prompt thresholds
type PromptConfig struct {
	IdleMinutes            float64 `yaml:"idle_minutes"`
	NoMovementMinutes      float64 `yaml:"no_movement_minutes"`
	JobDelayMinutes        float64 `yaml:"job_delay_minutes"`
	RepeatLowRatings       int     `yaml:"repeat_low_ratings"`
	HoardingBags           int     `yaml:"hoarding_bags"`
	LaundryDeadlineMinutes float64 `yaml:"laundry_deadline_minutes"`
	QAFailures             int     `yaml:"qa_failures"`
	PartialTakeoverRooms   int     `yaml:"partial_takeover_rooms"`
}

// DefaultPromptConfig returns default smart prompt thresholds
func DefaultPromptConfig() PromptConfig {
	return PromptConfig{
		IdleMinutes:            45,
		NoMovementMinutes:      3,
		JobDelayMinutes:        15,
		RepeatLowRatings:       2,
		HoardingBags:           3,
		LaundryDeadlineMinutes: 30,
		QAFailures:             1,
		PartialTakeoverRooms:   2,
	}
}

// SchedulerConfig holds background loop intervals
type SchedulerConfig struct {
	TickInterval       time.Duration `yaml:"tick_interval"`
	ClaimSweepInterval time.Duration `yaml:"claim_sweep_interval"`
}

// DefaultSchedulerConfig returns default background loop intervals
func DefaultSchedulerConfig() SchedulerConfig {
	return SchedulerConfig{
		TickInterval:       DefaultTickInterval,
		ClaimSweepInterval: DefaultClaimSweepInterval,
	}
}

// DeliveryConfig controls queued alert delivery and its retry backoff
type DeliveryConfig struct {
	Interval          time.Duration `yaml:"interval"`
	Capacity          int           `yaml:"capacity"`
	MaxRetries        int           `yaml:"max_retries"`
	InitialDelay      time.Duration `yaml:"initial_delay"`
	MaxDelay          time.Duration `yaml:"max_delay"`
	BackoffMultiplier float64       `yaml:"backoff_multiplier"`
}

// DefaultDeliveryConfig returns default alert delivery settings
func DefaultDeliveryConfig() DeliveryConfig {
	return DeliveryConfig{
		Interval:          DefaultDeliveryInterval,
		Capacity:          1024,
		MaxRetries:        3,
		InitialDelay:      1 * time.Second,
		MaxDelay:          30 * time.Second,
		BackoffMultiplier: 2.0,
	}
}

// Config is the full configuration snapshot injected into the engine
type Config struct {
	Proximity ProximityConfig    `yaml:"proximity"`
	Priority  PriorityThresholds `yaml:"priority"`
	Timers    TimerConfig        `yaml:"timers"`
	Claims    ClaimConfig        `yaml:"claims"`
	Prompts   PromptConfig       `yaml:"prompts"`
	Scheduler SchedulerConfig    `yaml:"scheduler"`
	Delivery  DeliveryConfig     `yaml:"delivery"`
}

// Default returns the complete default configuration
func Default() Config {
	return Config{
		Proximity: DefaultProximityConfig(),
		Priority:  DefaultPriorityThresholds(),
		Timers:    DefaultTimerConfig(),
		Claims:    DefaultClaimConfig(),
		Prompts:   DefaultPromptConfig(),
		Scheduler: DefaultSchedulerConfig(),
		Delivery:  DefaultDeliveryConfig(),
	}
}

// Validate checks every section
func (c Config) Validate() error {
	if err := c.Proximity.Validate(); err != nil {
		return err
	}
	if err := c.Timers.Validate(); err != nil {
		return err
	}
	if c.Claims.ConflictWindow < 0 || c.Claims.Timeout <= 0 || c.Claims.TravelMinutesPerMile <= 0 {
		return errors.New("claims: conflict_window, timeout and travel_minutes_per_mile must be positive")
	}
	if c.Scheduler.TickInterval <= 0 || c.Scheduler.ClaimSweepInterval <= 0 {
		return errors.New("scheduler: intervals must be positive")
	}
	d := c.Delivery
	if d.Interval <= 0 || d.Capacity <= 0 || d.MaxRetries < 0 || d.InitialDelay <= 0 ||
		d.MaxDelay < d.InitialDelay || d.BackoffMultiplier < 1 {
		return errors.New("delivery: interval, capacity and backoff settings must be positive")
	}
	return nil
}
