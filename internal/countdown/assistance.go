package countdown

import (
	"time"

	"github.com/AltairaLabs/lead-oversight/internal/config"
	"github.com/AltairaLabs/lead-oversight/internal/types"
)

// Assistance tracks how long a lead has been helping hands-on.
// It has no hard cap: the first mark suggests reclassifying as rework, the second
// requires a justification.
type Assistance struct {
	engine *Engine
	cfg    config.TimerConfig
}

// AssistanceStatus is the state of one assistance block
type AssistanceStatus struct {
	Elapsed               time.Duration `json:"elapsed"`
	ReclassifySuggested   bool          `json:"reclassify_suggested"`
	JustificationRequired bool          `json:"justification_required"`
}

// NewAssistance creates the assistance call site
func NewAssistance(engine *Engine, cfg config.TimerConfig) *Assistance {
	return &Assistance{engine: engine, cfg: cfg}
}

// Start begins timing an assistance entry
func (a *Assistance) Start(workerID, entryID string, now time.Time) error {
	warn := float64(a.cfg.AssistanceReclassify) / float64(a.cfg.AssistanceJustify)
	return a.engine.Start(AssistanceKey(workerID, entryID), a.cfg.AssistanceJustify, warn, now)
}

// Check ticks the entry
func (a *Assistance) Check(workerID, entryID string, now time.Time) (AssistanceStatus, []Event, error) {
	key := AssistanceKey(workerID, entryID)
	r, err := a.engine.Tick(key, now)
	if err != nil {
		return AssistanceStatus{}, nil, err
	}

	status := a.status(r)

	var events []Event
	if r.WarningDue {
		events = append(events, Event{
			Kind: EventAssistanceReclassify, Key: key, WorkerID: workerID,
			Message: config.MsgAssistanceReclassify, Priority: types.AlertMedium, At: now,
		})
	}
	if r.Expired {
		events = append(events, Event{
			Kind: EventAssistanceJustify, Key: key, WorkerID: workerID,
			Message: config.MsgAssistanceJustify, Priority: types.AlertHigh, At: now,
		})
	}
	return status, events, nil
}

// Status reads the entry without consuming alert edges
func (a *Assistance) Status(workerID, entryID string, now time.Time) (AssistanceStatus, error) {
	r, err := a.engine.Peek(AssistanceKey(workerID, entryID), now)
	if err != nil {
		return AssistanceStatus{}, err
	}
	return a.status(r), nil
}

// Stop ends timing of the entry and returns the final reading
func (a *Assistance) Stop(workerID, entryID string, now time.Time) (AssistanceStatus, error) {
	key := AssistanceKey(workerID, entryID)
	r, err := a.engine.Peek(key, now)
	a.engine.Clear(key)
	if err != nil {
		return AssistanceStatus{}, err
	}
	return a.status(r), nil
}

func (a *Assistance) status(r Reading) AssistanceStatus {
	return AssistanceStatus{
		Elapsed:               r.Elapsed,
		ReclassifySuggested:   r.Elapsed >= a.cfg.AssistanceReclassify,
		JustificationRequired: r.PastDeadline,
	}
}
