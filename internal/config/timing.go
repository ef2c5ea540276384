package config

import "time"

// Default timing configurations used throughout the engine
const (
	// DefaultWrapUpDuration caps the documentation window after a check-in
	DefaultWrapUpDuration = 3 * time.Minute

	// DefaultWrapUpWarnBefore is when the "time almost up" alert fires before the cap
	DefaultWrapUpWarnBefore = 30 * time.Second

	// DefaultAssistanceReclassifyAfter suggests reclassifying assistance as rework
	DefaultAssistanceReclassifyAfter = 15 * time.Minute

	// DefaultAssistanceJustifyAfter requires a justification for continued assistance
	DefaultAssistanceJustifyAfter = 30 * time.Minute

	// DefaultStallWarnAfter is how long an en-route lead may stand still before a warning
	DefaultStallWarnAfter = 3 * time.Minute

	// DefaultStallPauseAfter is how long an en-route lead may stand still before billing pauses
	DefaultStallPauseAfter = 5 * time.Minute

	// DefaultExpressPickupToStart is the express laundry pickup-to-wash deadline
	DefaultExpressPickupToStart = 2 * time.Hour

	// DefaultStandardPickupToStart is the standard laundry pickup-to-wash deadline
	DefaultStandardPickupToStart = 8 * time.Hour

	// DefaultFirstWashDeadline is measured from the first pickup of a shift
	DefaultFirstWashDeadline = 6 * time.Hour

	// DefaultClaimConflictWindow flags competing claims landing this close together
	DefaultClaimConflictWindow = 5 * time.Minute

	// DefaultClaimTimeout releases claims that were never completed
	DefaultClaimTimeout = 4 * time.Hour

	// DefaultTickInterval is how often the scheduler ticks active timers
	DefaultTickInterval = 5 * time.Second

	// DefaultClaimSweepInterval is how often stale claims are expired
	DefaultClaimSweepInterval = 1 * time.Minute

	// DefaultDeliveryInterval is how often queued alerts are retried
	DefaultDeliveryInterval = 1 * time.Second
)

// Default fractions and distances
const (
	// DefaultLaundryWarnFraction is the elapsed share that triggers a laundry warning
	DefaultLaundryWarnFraction = 0.75

	// DefaultFirstWashWarnFraction is the elapsed share that triggers a first-wash warning
	DefaultFirstWashWarnFraction = 0.75

	// DefaultStallMinMovementMiles is the movement below which a lead counts as stalled
	DefaultStallMinMovementMiles = 0.1

	// DefaultTravelMinutesPerMile drives the travel-time estimate
	DefaultTravelMinutesPerMile = 2.0
)
