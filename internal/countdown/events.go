package countdown

import (
	"time"

	"github.com/AltairaLabs/lead-oversight/internal/types"
)

// EventKind names a timer notification
type EventKind string

const (
	EventWrapUpWarning        EventKind = "wrap_up_warning"
	EventWrapUpExpired        EventKind = "wrap_up_expired"
	EventAssistanceReclassify EventKind = "assistance_reclassify"
	EventAssistanceJustify    EventKind = "assistance_justify"
	EventStallWarning         EventKind = "stall_warning"
	EventStallPaused          EventKind = "stall_paused"
	EventStallResumed         EventKind = "stall_resumed"
	EventLaundryWarning       EventKind = "laundry_warning"
	EventLaundryViolation     EventKind = "laundry_violation"
	EventFirstWashWarning     EventKind = "first_wash_warning"
	EventFirstWashViolation   EventKind = "first_wash_violation"
)

// Event is emitted by a timer call site when an edge is crossed
type Event struct {
	Kind     EventKind           `json:"kind"`
	Key      string              `json:"key"`
	WorkerID string              `json:"worker_id"`
	Message  string              `json:"message"`
	Priority types.AlertPriority `json:"priority"`
	At       time.Time           `json:"at"`
}

// Keys of session-scoped timers share a per-worker prefix so a release can clear them together
const (
	sessionPrefix   = "session/"
	laundryPrefix   = "laundry/"
	firstWashPrefix = "first_wash/"
	shiftPrefix     = "shift/"
)

// SessionPrefix is the prefix of every session-scoped timer owned by the worker's claim
func SessionPrefix(workerID string) string {
	return sessionPrefix + workerID + "/"
}

// WrapUpKey is the wrap-up timer key of a worker's session
func WrapUpKey(workerID string) string {
	return SessionPrefix(workerID) + "wrap_up"
}

// EnRouteKey is the in-route timer key of a worker's session
func EnRouteKey(workerID string) string {
	return SessionPrefix(workerID) + "en_route"
}

// AssistanceKey is the timer key of one assistance entry
func AssistanceKey(workerID, entryID string) string {
	return SessionPrefix(workerID) + "assistance/" + entryID
}

// LaundryKey is the pickup-to-start timer key of a laundry job
func LaundryKey(workerID, jobID string) string {
	return laundryPrefix + workerID + "/" + jobID
}

// FirstWashKey is the first-wash timer key of a worker's shift
func FirstWashKey(workerID string) string {
	return firstWashPrefix + workerID
}
