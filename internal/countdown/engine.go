// Package countdown implements queryable countdown timers with edge-triggered alerts.
//
// Timers never fire on their own. Callers tick them at arbitrary instants and the engine
// reports, exactly once per timer instance, the tick that first crossed the warning mark
// and the tick that first crossed expiry.
package countdown

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/AltairaLabs/lead-oversight/internal/keylock"
	"github.com/AltairaLabs/lead-oversight/internal/types"
)

// Timer is the persisted state of one countdown
type Timer struct {
	Key          string        `json:"key"`
	StartedAt    time.Time     `json:"started_at"`
	Duration     time.Duration `json:"duration"`
	WarnFraction float64       `json:"warn_fraction"` // 0 disables the warning
	ExpiresAt    time.Time     `json:"expires_at"`
	Active       bool          `json:"active"`
	WarningSent  bool          `json:"warning_sent"`
	ExpiredSent  bool          `json:"expired_sent"`
	PausedAt     *time.Time    `json:"paused_at,omitempty"`
	PausedTotal  time.Duration `json:"paused_total"`
	Shift        ShiftFlags    `json:"shift,omitzero"` // set only on laundry shift records
}

// Reading is the result of querying a timer
type Reading struct {
	Remaining       time.Duration `json:"remaining"`
	Elapsed         time.Duration `json:"elapsed"`
	PercentComplete float64       `json:"percent_complete"`
	WarningDue      bool          `json:"warning_due"`
	Expired         bool          `json:"expired"`
	PastDeadline    bool          `json:"past_deadline"`
	Paused          bool          `json:"paused"`
}

// Engine holds timers keyed by caller-chosen strings
type Engine struct {
	mu     sync.RWMutex
	timers map[string]*Timer
	locks  *keylock.Locker
}

// NewEngine creates an empty engine
func NewEngine() *Engine {
	return &Engine{
		timers: make(map[string]*Timer),
		locks:  keylock.New(),
	}
}

// Start (re)starts the timer for key. Restarting resets the alert flags.
func (e *Engine) Start(key string, duration time.Duration, warnFraction float64, now time.Time) error {
	if key == "" || duration <= 0 || warnFraction < 0 || warnFraction >= 1 {
		return types.NewError(types.ErrInvalidArgument,
			"timer %q needs a positive duration and a warning fraction in [0,1)", key)
	}

	unlock := e.locks.Lock(key)
	defer unlock()

	t := &Timer{
		Key:          key,
		StartedAt:    now,
		Duration:     duration,
		WarnFraction: warnFraction,
		ExpiresAt:    now.Add(duration),
		Active:       true,
	}

	e.mu.Lock()
	e.timers[key] = t
	e.mu.Unlock()
	return nil
}

// Tick reads the timer and atomically consumes any warning or expiry edge it crosses
func (e *Engine) Tick(key string, now time.Time) (Reading, error) {
	unlock := e.locks.Lock(key)
	defer unlock()

	t, err := e.lookup(key)
	if err != nil {
		return Reading{}, err
	}

	r := read(t, now)
	if t.WarnFraction > 0 && !t.WarningSent && r.Elapsed >= warnMark(t) {
		t.WarningSent = true
		r.WarningDue = true
	}
	if !t.ExpiredSent && r.PastDeadline {
		t.ExpiredSent = true
		r.Expired = true
	}
	return r, nil
}

// Peek reads the timer without consuming edges
func (e *Engine) Peek(key string, now time.Time) (Reading, error) {
	unlock := e.locks.Lock(key)
	defer unlock()

	t, err := e.lookup(key)
	if err != nil {
		return Reading{}, err
	}
	return read(t, now), nil
}

// Pause stops the clock until Resume; pausing a paused timer is a no-op
func (e *Engine) Pause(key string, now time.Time) error {
	unlock := e.locks.Lock(key)
	defer unlock()

	t, err := e.lookup(key)
	if err != nil {
		return err
	}
	if t.PausedAt == nil {
		at := now
		t.PausedAt = &at
	}
	return nil
}

// Resume restarts a paused clock and pushes expiry out by the paused span
func (e *Engine) Resume(key string, now time.Time) error {
	unlock := e.locks.Lock(key)
	defer unlock()

	t, err := e.lookup(key)
	if err != nil {
		return err
	}
	if t.PausedAt != nil {
		if span := now.Sub(*t.PausedAt); span > 0 {
			t.PausedTotal += span
			t.ExpiresAt = t.ExpiresAt.Add(span)
		}
		t.PausedAt = nil
	}
	return nil
}

// Clear removes the timer. Clearing an unknown key is not an error.
func (e *Engine) Clear(key string) {
	unlock := e.locks.Lock(key)
	defer unlock()

	e.mu.Lock()
	delete(e.timers, key)
	e.mu.Unlock()
}

// ClearPrefix removes every timer whose key starts with prefix and returns how many were removed
func (e *Engine) ClearPrefix(prefix string) int {
	cleared := 0
	for _, key := range e.Keys() {
		if strings.HasPrefix(key, prefix) {
			e.Clear(key)
			cleared++
		}
	}
	return cleared
}

// Get returns a copy of the timer state
func (e *Engine) Get(key string) (Timer, bool) {
	unlock := e.locks.Lock(key)
	defer unlock()

	t, err := e.lookup(key)
	if err != nil {
		return Timer{}, false
	}
	return copyTimer(t), true
}

// Keys returns all timer keys in sorted order
func (e *Engine) Keys() []string {
	e.mu.RLock()
	defer e.mu.RUnlock()

	keys := make([]string, 0, len(e.timers))
	for k := range e.timers {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Snapshot returns copies of every timer, for persistence
func (e *Engine) Snapshot() []Timer {
	keys := e.Keys()
	out := make([]Timer, 0, len(keys))
	for _, key := range keys {
		if t, ok := e.Get(key); ok {
			out = append(out, t)
		}
	}
	return out
}

// Restore loads previously snapshotted timers, replacing any with the same key
func (e *Engine) Restore(timers []Timer) {
	for i := range timers {
		t := copyTimer(&timers[i])
		unlock := e.locks.Lock(t.Key)
		e.mu.Lock()
		e.timers[t.Key] = &t
		e.mu.Unlock()
		unlock()
	}
}

func (e *Engine) lookup(key string) (*Timer, error) {
	e.mu.RLock()
	t, ok := e.timers[key]
	e.mu.RUnlock()
	if !ok {
		return nil, types.NewError(types.ErrTimerNotFound, "no active timer %q", key)
	}
	return t, nil
}

func read(t *Timer, now time.Time) Reading {
	elapsed := now.Sub(t.StartedAt) - t.PausedTotal
	if t.PausedAt != nil {
		elapsed -= now.Sub(*t.PausedAt)
	}
	if elapsed < 0 {
		elapsed = 0
	}

	remaining := t.Duration - elapsed
	if remaining < 0 {
		remaining = 0
	}

	percent := float64(elapsed) / float64(t.Duration) * 100
	if percent > 100 {
		percent = 100
	}

	return Reading{
		Remaining:       remaining,
		Elapsed:         elapsed,
		PercentComplete: percent,
		PastDeadline:    elapsed >= t.Duration,
		Paused:          t.PausedAt != nil,
	}
}

func warnMark(t *Timer) time.Duration {
	return time.Duration(float64(t.Duration) * t.WarnFraction)
}

func copyTimer(t *Timer) Timer {
	c := *t
	if t.PausedAt != nil {
		at := *t.PausedAt
		c.PausedAt = &at
	}
	return c
}
