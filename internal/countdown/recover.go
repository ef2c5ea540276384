package countdown

import (
	"strings"
	"time"

	"github.com/AltairaLabs/lead-oversight/internal/types"
)

// Recover restores persisted timers and rebuilds call-site state from their keys.
// anchors holds the last known position of every worker still en route; an en-route
// timer without an anchor is dropped.
func (t *Timers) Recover(timers []Timer, anchors map[string]types.LocationSample) {
	running := make([]Timer, 0, len(timers))
	for _, tm := range timers {
		if workerID, ok := strings.CutPrefix(tm.Key, shiftPrefix); ok {
			t.Laundry.restoreShift(workerID, tm.Shift)
			continue
		}
		running = append(running, tm)
	}
	t.Engine.Restore(running)

	for _, tm := range running {
		switch {
		case strings.HasPrefix(tm.Key, laundryPrefix):
			workerID, jobID, ok := strings.Cut(strings.TrimPrefix(tm.Key, laundryPrefix), "/")
			if ok {
				t.Laundry.adopt(workerID, jobID, tm.Duration)
			}
		case strings.HasPrefix(tm.Key, firstWashPrefix):
			t.Laundry.adoptShift(strings.TrimPrefix(tm.Key, firstWashPrefix))
		case strings.HasPrefix(tm.Key, sessionPrefix) && strings.HasSuffix(tm.Key, "/en_route"):
			workerID := strings.TrimSuffix(strings.TrimPrefix(tm.Key, sessionPrefix), "/en_route")
			anchor, ok := anchors[workerID]
			if !ok {
				t.Engine.Clear(tm.Key)
				continue
			}
			t.Movement.adopt(workerID, anchor, tm.PausedAt != nil)
		}
	}
}

func (l *Laundry) adopt(workerID, jobID string, window time.Duration) {
	tier := LaundryStandard
	if window == l.cfg.ExpressPickupToStart {
		tier = LaundryExpress
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.jobs[jobID] = &laundryJob{workerID: workerID, tier: tier}
	if _, ok := l.shifts[workerID]; !ok {
		l.shifts[workerID] = &shiftState{}
	}
}

func (l *Laundry) restoreShift(workerID string, flags ShiftFlags) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.shifts[workerID] = &shiftState{leadCheckedIn: flags.LeadCheckedIn, washStarted: flags.WashStarted}
}

func (l *Laundry) adoptShift(workerID string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.shifts[workerID]; !ok {
		l.shifts[workerID] = &shiftState{}
	}
}

func (m *Movement) adopt(workerID string, anchor types.LocationSample, paused bool) {
	unlock := m.locks.Lock(workerID)
	defer unlock()

	m.mu.Lock()
	defer m.mu.Unlock()
	m.states[workerID] = &moveState{
		anchor:   anchor.Position,
		anchorAt: anchor.At,
		warnSent: paused,
		paused:   paused,
	}
}
