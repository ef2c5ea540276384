package countdown

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/AltairaLabs/lead-oversight/internal/config"
	"github.com/AltairaLabs/lead-oversight/internal/types"
)

// LaundryTier is the service level of a laundry job
type LaundryTier string

const (
	LaundryExpress  LaundryTier = "express"
	LaundryStandard LaundryTier = "standard"
)

// LaundryStatus is the pickup-to-start view of one job
type LaundryStatus struct {
	Reading
	JobID   string      `json:"job_id"`
	Tier    LaundryTier `json:"tier"`
	Flagged bool        `json:"flagged"`
}

// FirstWashStatus is the first-wash view of a worker's shift
type FirstWashStatus struct {
	Reading
	CheckInRequired bool `json:"check_in_required"`
	LeadCheckedIn   bool `json:"lead_checked_in"`
}

// PendingJob is a peeked pickup-to-start timer of one job
type PendingJob struct {
	LaundryStatus
	WorkerID string        `json:"worker_id"`
	Overdue  time.Duration `json:"overdue"`
}

type laundryJob struct {
	workerID string
	tier     LaundryTier
	flagged  bool
}

// ShiftFlags is the persisted progress of a worker's laundry shift
type ShiftFlags struct {
	LeadCheckedIn bool `json:"lead_checked_in,omitempty"`
	WashStarted   bool `json:"wash_started,omitempty"`
}

type shiftState struct {
	leadCheckedIn bool
	washStarted   bool
}

// Laundry runs the tier-specific pickup-to-start timers and the first-wash timer of a shift
type Laundry struct {
	engine *Engine
	cfg    config.TimerConfig

	mu     sync.Mutex
	jobs   map[string]*laundryJob
	shifts map[string]*shiftState
}

// NewLaundry creates the laundry call sites
func NewLaundry(engine *Engine, cfg config.TimerConfig) *Laundry {
	return &Laundry{
		engine: engine,
		cfg:    cfg,
		jobs:   make(map[string]*laundryJob),
		shifts: make(map[string]*shiftState),
	}
}

func (l *Laundry) window(tier LaundryTier) (time.Duration, error) {
	switch tier {
	case LaundryExpress:
		return l.cfg.ExpressPickupToStart, nil
	case LaundryStandard:
		return l.cfg.StandardPickupToStart, nil
	}
	return 0, types.NewError(types.ErrInvalidArgument, "unknown laundry tier %q", tier)
}

// Pickup starts the job's pickup-to-start timer. The first pickup of a shift also starts
// the first-wash timer.
func (l *Laundry) Pickup(workerID, jobID string, tier LaundryTier, at time.Time) error {
	window, err := l.window(tier)
	if err != nil {
		return err
	}
	if err := l.engine.Start(LaundryKey(workerID, jobID), window, l.cfg.LaundryWarnFraction, at); err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.jobs[jobID] = &laundryJob{workerID: workerID, tier: tier}
	if _, ok := l.shifts[workerID]; !ok {
		l.shifts[workerID] = &shiftState{}
		return l.engine.Start(FirstWashKey(workerID), l.cfg.FirstWashDeadline, l.cfg.FirstWashWarnFraction, at)
	}
	return nil
}

// CheckJob ticks one job's pickup-to-start timer; crossing the window flags the job
func (l *Laundry) CheckJob(jobID string, now time.Time) (LaundryStatus, []Event, error) {
	l.mu.Lock()
	job, ok := l.jobs[jobID]
	l.mu.Unlock()
	if !ok {
		return LaundryStatus{}, nil, types.NewError(types.ErrTimerNotFound, "no laundry timer for job %s", jobID)
	}

	key := LaundryKey(job.workerID, jobID)
	r, err := l.engine.Tick(key, now)
	if err != nil {
		return LaundryStatus{}, nil, err
	}

	l.mu.Lock()
	if r.PastDeadline {
		job.flagged = true
	}
	status := LaundryStatus{Reading: r, JobID: jobID, Tier: job.tier, Flagged: job.flagged}
	l.mu.Unlock()

	var events []Event
	if r.WarningDue {
		events = append(events, Event{
			Kind: EventLaundryWarning, Key: key, WorkerID: job.workerID,
			Message: fmt.Sprintf(config.MsgLaundryWarning, jobID, job.tier), Priority: types.AlertMedium, At: now,
		})
	}
	if r.Expired {
		events = append(events, Event{
			Kind: EventLaundryViolation, Key: key, WorkerID: job.workerID,
			Message: fmt.Sprintf(config.MsgLaundryViolation, jobID, job.tier), Priority: types.AlertHigh, At: now,
		})
	}
	return status, events, nil
}

// CheckFirstWash ticks the worker's first-wash timer
func (l *Laundry) CheckFirstWash(workerID string, now time.Time) (FirstWashStatus, []Event, error) {
	key := FirstWashKey(workerID)
	r, err := l.engine.Tick(key, now)
	if err != nil {
		return FirstWashStatus{}, nil, err
	}

	l.mu.Lock()
	checkedIn := l.shifts[workerID] != nil && l.shifts[workerID].leadCheckedIn
	l.mu.Unlock()

	status := FirstWashStatus{
		Reading:         r,
		CheckInRequired: r.PastDeadline && !checkedIn,
		LeadCheckedIn:   checkedIn,
	}

	var events []Event
	if r.WarningDue {
		events = append(events, Event{
			Kind: EventFirstWashWarning, Key: key, WorkerID: workerID,
			Message: config.MsgFirstWashWarning, Priority: types.AlertMedium, At: now,
		})
	}
	if r.Expired {
		events = append(events, Event{
			Kind: EventFirstWashViolation, Key: key, WorkerID: workerID,
			Message: config.MsgFirstWashViolation, Priority: types.AlertHigh, At: now,
		})
	}
	return status, events, nil
}

// RecordLeadCheckIn notes that a lead has checked in on the worker, lifting the first-wash block
func (l *Laundry) RecordLeadCheckIn(workerID string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if st, ok := l.shifts[workerID]; ok {
		st.leadCheckedIn = true
	}
}

// AuthorizeWash reports whether the worker may start washing the job now. Once the
// first-wash window has passed, washing requires a lead check-in.
func (l *Laundry) AuthorizeWash(workerID string, now time.Time) error {
	l.mu.Lock()
	st, ok := l.shifts[workerID]
	if !ok || st.washStarted {
		l.mu.Unlock()
		return nil
	}
	checkedIn := st.leadCheckedIn
	l.mu.Unlock()

	r, err := l.engine.Peek(FirstWashKey(workerID), now)
	if err != nil {
		return nil
	}
	if r.PastDeadline && !checkedIn {
		return types.NewError(types.ErrTimerExpiredViolation,
			"first wash window of %s passed %s ago; a Lead check-in is required before washing",
			l.cfg.FirstWashDeadline, r.Elapsed-l.cfg.FirstWashDeadline)
	}
	return nil
}

// StartWash records that washing began for the job, clearing its timer and the
// shift's first-wash timer
func (l *Laundry) StartWash(workerID, jobID string, now time.Time) error {
	if err := l.AuthorizeWash(workerID, now); err != nil {
		return err
	}

	l.engine.Clear(LaundryKey(workerID, jobID))
	l.engine.Clear(FirstWashKey(workerID))

	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.jobs, jobID)
	if st, ok := l.shifts[workerID]; ok {
		st.washStarted = true
	}
	return nil
}

// EndShift clears every laundry timer of the worker
func (l *Laundry) EndShift(workerID string) {
	l.engine.ClearPrefix(laundryPrefix + workerID + "/")
	l.engine.Clear(FirstWashKey(workerID))

	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.shifts, workerID)
	for id, job := range l.jobs {
		if job.workerID == workerID {
			delete(l.jobs, id)
		}
	}
}

// Jobs returns the IDs of jobs with a running pickup-to-start timer
func (l *Laundry) Jobs() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	ids := make([]string, 0, len(l.jobs))
	for id := range l.jobs {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Pending peeks every running pickup-to-start timer without consuming alert edges
func (l *Laundry) Pending(now time.Time) []PendingJob {
	l.mu.Lock()
	snapshot := make(map[string]laundryJob, len(l.jobs))
	for id, job := range l.jobs {
		snapshot[id] = *job
	}
	l.mu.Unlock()

	out := make([]PendingJob, 0, len(snapshot))
	for id, job := range snapshot {
		r, err := l.engine.Peek(LaundryKey(job.workerID, id), now)
		if err != nil {
			continue
		}
		p := PendingJob{
			LaundryStatus: LaundryStatus{Reading: r, JobID: id, Tier: job.tier, Flagged: job.flagged || r.PastDeadline},
			WorkerID:      job.workerID,
		}
		if window, err := l.window(job.tier); err == nil && r.Elapsed > window {
			p.Overdue = r.Elapsed - window
		}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].JobID < out[j].JobID })
	return out
}

// Shifts returns worker IDs with a running first-wash timer
func (l *Laundry) Shifts() []string {
	var ids []string
	for _, key := range l.engine.Keys() {
		if strings.HasPrefix(key, firstWashPrefix) {
			ids = append(ids, strings.TrimPrefix(key, firstWashPrefix))
		}
	}
	return ids
}

// shiftRecords returns one inactive record per open shift so its progress outlives a restart
func (l *Laundry) shiftRecords() []Timer {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]Timer, 0, len(l.shifts))
	for workerID, st := range l.shifts {
		out = append(out, Timer{
			Key:   shiftPrefix + workerID,
			Shift: ShiftFlags{LeadCheckedIn: st.leadCheckedIn, WashStarted: st.washStarted},
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}
