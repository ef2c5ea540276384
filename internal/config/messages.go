package config

// Operator-facing messages used throughout the engine
const (
	MsgWrapUpWarning        = "30 seconds remaining in wrap-up"
	MsgWrapUpExpired        = "Wrap-up time exceeded; wrap-up is no longer billable"
	MsgAssistanceReclassify = "Assistance has run 15 minutes; consider reclassifying as rework"
	MsgAssistanceJustify    = "Assistance has run 30 minutes; justification required: setup, demonstration, task completion or equipment delivery"
	MsgStallWarning         = "No movement detected while en route"
	MsgStallPaused          = "No movement for too long; en-route timer paused"
	MsgStallResumed         = "Movement resumed; en-route timer running"
	MsgLaundryWarning       = "Laundry job %s is at 75%% of its %s pickup-to-start window"
	MsgLaundryViolation     = "Laundry job %s missed its %s pickup-to-start window and is flagged for delay"
	MsgFirstWashWarning     = "First wash of the shift not started; 75%% of the window has elapsed"
	MsgFirstWashViolation   = "First wash window exceeded; a Lead check-in is required before washing"
	MsgLeadConflict         = "Worker %s was claimed by %s; %s attempted a claim %s later"
)
