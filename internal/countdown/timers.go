package countdown

import (
	"time"

	"github.com/AltairaLabs/lead-oversight/internal/config"
	"github.com/AltairaLabs/lead-oversight/internal/types"
)

// Timers bundles every call site over one shared engine
type Timers struct {
	Engine     *Engine
	WrapUp     *WrapUp
	Assistance *Assistance
	Movement   *Movement
	Laundry    *Laundry
}

// NewTimers creates the full timer family from configuration
func NewTimers(cfg config.TimerConfig) *Timers {
	engine := NewEngine()
	return &Timers{
		Engine:     engine,
		WrapUp:     NewWrapUp(engine, cfg),
		Assistance: NewAssistance(engine, cfg),
		Movement:   NewMovement(engine, cfg),
		Laundry:    NewLaundry(engine, cfg),
	}
}

// Snapshot returns every running timer plus one record per open laundry shift, for persistence
func (t *Timers) Snapshot() []Timer {
	return append(t.Engine.Snapshot(), t.Laundry.shiftRecords()...)
}

// StartRoute begins in-route stall detection for a newly claimed worker
func (t *Timers) StartRoute(workerID string, from types.LatLng, travel time.Duration, now time.Time) error {
	return t.Movement.Start(workerID, from, travel, now)
}

// ClearSession drops every session-scoped timer of the worker and returns how many were active.
// Laundry and first-wash timers belong to the worker's shift and are left running.
func (t *Timers) ClearSession(workerID string) int {
	n := 0
	if t.Movement.Active(workerID) {
		n++
	}
	t.Movement.Stop(workerID)
	return n + t.Engine.ClearPrefix(SessionPrefix(workerID))
}
