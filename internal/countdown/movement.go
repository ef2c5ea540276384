package countdown

import (
	"sync"
	"time"

	"github.com/AltairaLabs/lead-oversight/internal/config"
	"github.com/AltairaLabs/lead-oversight/internal/geo"
	"github.com/AltairaLabs/lead-oversight/internal/keylock"
	"github.com/AltairaLabs/lead-oversight/internal/types"
)

// MovementStatus is the stall-detector view of an en-route lead
type MovementStatus struct {
	StalledFor time.Duration       `json:"stalled_for"`
	Warned     bool                `json:"warned"`
	Paused     bool                `json:"paused"`
	Billing    types.BillingStatus `json:"billing"`
	Travel     Reading             `json:"travel"`
}

type moveState struct {
	anchor   types.LatLng
	anchorAt time.Time
	warnSent bool
	paused   bool
}

// Movement detects an en-route lead who stops moving. It warns once after the warn mark and
// pauses the in-route timer after the pause mark until movement resumes.
type Movement struct {
	engine *Engine
	cfg    config.TimerConfig
	locks  *keylock.Locker

	mu     sync.RWMutex
	states map[string]*moveState
}

// NewMovement creates the in-route call site
func NewMovement(engine *Engine, cfg config.TimerConfig) *Movement {
	return &Movement{
		engine: engine,
		cfg:    cfg,
		locks:  keylock.New(),
		states: make(map[string]*moveState),
	}
}

// Start begins the in-route timer from the lead's current position
func (m *Movement) Start(workerID string, from types.LatLng, travel time.Duration, now time.Time) error {
	if travel < time.Minute {
		travel = time.Minute
	}
	unlock := m.locks.Lock(workerID)
	defer unlock()

	if err := m.engine.Start(EnRouteKey(workerID), travel, 0, now); err != nil {
		return err
	}
	m.mu.Lock()
	m.states[workerID] = &moveState{anchor: from, anchorAt: now}
	m.mu.Unlock()
	return nil
}

// Observe records a location sample and evaluates the stall thresholds
func (m *Movement) Observe(workerID string, sample types.LocationSample) (MovementStatus, []Event, error) {
	unlock := m.locks.Lock(workerID)
	defer unlock()

	st, err := m.state(workerID)
	if err != nil {
		return MovementStatus{}, nil, err
	}

	var events []Event
	if geo.Distance(st.anchor, sample.Position) >= m.cfg.StallMinMovementMiles {
		st.anchor = sample.Position
		st.anchorAt = sample.At
		st.warnSent = false
		if st.paused {
			st.paused = false
			if err := m.engine.Resume(EnRouteKey(workerID), sample.At); err != nil {
				return MovementStatus{}, nil, err
			}
			events = append(events, m.event(EventStallResumed, workerID, config.MsgStallResumed, types.AlertLow, sample.At))
		}
	}

	status, more, err := m.evaluate(workerID, st, sample.At)
	return status, append(events, more...), err
}

// Check evaluates the stall thresholds without a new sample
func (m *Movement) Check(workerID string, now time.Time) (MovementStatus, []Event, error) {
	unlock := m.locks.Lock(workerID)
	defer unlock()

	st, err := m.state(workerID)
	if err != nil {
		return MovementStatus{}, nil, err
	}
	return m.evaluate(workerID, st, now)
}

// StalledFor reports how long the worker has been within the stall radius of its last
// anchor. It consumes no alert edges.
func (m *Movement) StalledFor(workerID string, now time.Time) (time.Duration, bool) {
	unlock := m.locks.Lock(workerID)
	defer unlock()

	st, err := m.state(workerID)
	if err != nil {
		return 0, false
	}
	return max(now.Sub(st.anchorAt), 0), true
}

// Stop ends stall detection and clears the in-route timer
func (m *Movement) Stop(workerID string) {
	unlock := m.locks.Lock(workerID)
	defer unlock()

	m.mu.Lock()
	delete(m.states, workerID)
	m.mu.Unlock()
	m.engine.Clear(EnRouteKey(workerID))
}

// Active reports whether stall detection is running for the worker
func (m *Movement) Active(workerID string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.states[workerID]
	return ok
}

func (m *Movement) evaluate(workerID string, st *moveState, now time.Time) (MovementStatus, []Event, error) {
	var events []Event
	stalled := now.Sub(st.anchorAt)
	if stalled < 0 {
		stalled = 0
	}

	if stalled >= m.cfg.StallWarnAfter && !st.warnSent {
		st.warnSent = true
		events = append(events, m.event(EventStallWarning, workerID, config.MsgStallWarning, types.AlertMedium, now))
	}
	if stalled >= m.cfg.StallPauseAfter && !st.paused {
		st.paused = true
		if err := m.engine.Pause(EnRouteKey(workerID), st.anchorAt.Add(m.cfg.StallPauseAfter)); err != nil {
			return MovementStatus{}, nil, err
		}
		events = append(events, m.event(EventStallPaused, workerID, config.MsgStallPaused, types.AlertHigh, now))
	}

	travel, err := m.engine.Peek(EnRouteKey(workerID), now)
	if err != nil {
		return MovementStatus{}, nil, err
	}

	status := MovementStatus{
		StalledFor: stalled,
		Warned:     st.warnSent,
		Paused:     st.paused,
		Billing:    types.BillingActive,
		Travel:     travel,
	}
	if st.paused {
		status.Billing = types.BillingPaused
	}
	return status, events, nil
}

func (m *Movement) state(workerID string) (*moveState, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	st, ok := m.states[workerID]
	if !ok {
		return nil, types.NewError(types.ErrTimerNotFound, "no in-route tracking for worker %s", workerID)
	}
	return st, nil
}

func (m *Movement) event(kind EventKind, workerID, msg string, p types.AlertPriority, at time.Time) Event {
	return Event{Kind: kind, Key: EnRouteKey(workerID), WorkerID: workerID, Message: msg, Priority: p, At: at}
}
