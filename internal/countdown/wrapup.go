package countdown

import (
	"time"

	"github.com/AltairaLabs/lead-oversight/internal/config"
	"github.com/AltairaLabs/lead-oversight/internal/types"
)

// WrapUpStatus is the state of a wrap-up window
type WrapUpStatus struct {
	Reading
	Billing types.BillingStatus `json:"billing"`
}

// WrapUp caps the documentation window after a check-in
type WrapUp struct {
	engine *Engine
	cfg    config.TimerConfig
}

// NewWrapUp creates the wrap-up call site
func NewWrapUp(engine *Engine, cfg config.TimerConfig) *WrapUp {
	return &WrapUp{engine: engine, cfg: cfg}
}

// Start opens the wrap-up window for the worker's session
func (w *WrapUp) Start(workerID string, now time.Time) error {
	warn := 1 - float64(w.cfg.WrapUpWarnBefore)/float64(w.cfg.WrapUp)
	if w.cfg.WrapUpWarnBefore <= 0 {
		warn = 0
	}
	return w.engine.Start(WrapUpKey(workerID), w.cfg.WrapUp, warn, now)
}

// Check ticks the window; billability ends once the cap is exceeded
func (w *WrapUp) Check(workerID string, now time.Time) (WrapUpStatus, []Event, error) {
	key := WrapUpKey(workerID)
	r, err := w.engine.Tick(key, now)
	if err != nil {
		return WrapUpStatus{}, nil, err
	}

	status := WrapUpStatus{Reading: r, Billing: types.BillingActive}
	if r.PastDeadline {
		status.Billing = types.BillingEnded
	}

	var events []Event
	if r.WarningDue {
		events = append(events, Event{
			Kind: EventWrapUpWarning, Key: key, WorkerID: workerID,
			Message: config.MsgWrapUpWarning, Priority: types.AlertMedium, At: now,
		})
	}
	if r.Expired {
		events = append(events, Event{
			Kind: EventWrapUpExpired, Key: key, WorkerID: workerID,
			Message: config.MsgWrapUpExpired, Priority: types.AlertHigh, At: now,
		})
	}
	return status, events, nil
}

// Stop clears the window
func (w *WrapUp) Stop(workerID string) {
	w.engine.Clear(WrapUpKey(workerID))
}
