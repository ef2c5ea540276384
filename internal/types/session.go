package types

import (
	"time"
)

// WorkflowStep is a position in the supervision workflow
type WorkflowStep string

const (
	StepBubblerSelected         WorkflowStep = "bubbler_selected"
	StepEnRoute                 WorkflowStep = "en_route"
	StepArrived                 WorkflowStep = "arrived"
	StepRoomEvaluationStarted   WorkflowStep = "room_evaluation_started"
	StepRoomEvaluationCompleted WorkflowStep = "room_evaluation_completed"
	StepAssistanceLogged        WorkflowStep = "assistance_logged"
	StepWrapUpStarted           WorkflowStep = "wrap_up_started"
	StepSubmitted               WorkflowStep = "submitted"
)

// WorkflowSteps lists every step in order
var WorkflowSteps = []WorkflowStep{
	StepBubblerSelected,
	StepEnRoute,
	StepArrived,
	StepRoomEvaluationStarted,
	StepRoomEvaluationCompleted,
	StepAssistanceLogged,
	StepWrapUpStarted,
	StepSubmitted,
}

// Index returns the ordinal of the step, or -1 if unknown
func (s WorkflowStep) Index() int {
	for i, step := range WorkflowSteps {
		if step == s {
			return i
		}
	}
	return -1
}

// RoomClassification is the lead's verdict on one room
type RoomClassification string

const (
	RoomLooksGood    RoomClassification = "looks_good"
	RoomCoachingOnly RoomClassification = "coaching_only"
	RoomNeedsRedo    RoomClassification = "needs_redo"
)

// Valid reports whether c is a known classification
func (c RoomClassification) Valid() bool {
	switch c {
	case RoomLooksGood, RoomCoachingOnly, RoomNeedsRedo:
		return true
	}
	return false
}

// RoomEvaluation is the per-room pass/fail record
type RoomEvaluation struct {
	Room           string             `json:"room"`
	Classification RoomClassification `json:"classification"`
	RequiresPhoto  bool               `json:"requires_photo"`
	Notes          string             `json:"notes,omitempty"`
	Photos         []string           `json:"photos,omitempty"`
	Locked         bool               `json:"locked"`
	RecordedAt     time.Time          `json:"recorded_at"`
}

// Documented reports whether a needs_redo room has both photos and notes
func (e *RoomEvaluation) Documented() bool {
	return len(e.Photos) > 0 && e.Notes != ""
}

// AssistanceType categorizes hands-on help given by the lead
type AssistanceType string

const (
	AssistanceSetup          AssistanceType = "setup"
	AssistanceDemonstration  AssistanceType = "demonstration"
	AssistanceTaskCompletion AssistanceType = "task_completion"
	AssistanceEquipment      AssistanceType = "equipment_delivery"
)

// Valid reports whether t is a known assistance type
func (t AssistanceType) Valid() bool {
	switch t {
	case AssistanceSetup, AssistanceDemonstration, AssistanceTaskCompletion, AssistanceEquipment:
		return true
	}
	return false
}

// AssistanceEntry is one logged block of assistance
type AssistanceEntry struct {
	ID            string         `json:"id"`
	Type          AssistanceType `json:"type"`
	StartedAt     time.Time      `json:"started_at"`
	EndedAt       *time.Time     `json:"ended_at,omitempty"`
	Notes         string         `json:"notes,omitempty"`
	Justification AssistanceType `json:"justification,omitempty"`
}

// LocationSample is a GPS fix reported by the lead's device
type LocationSample struct {
	Position LatLng    `json:"position"`
	At       time.Time `json:"at"`
}

// SupervisionSession is the state of one active claim
type SupervisionSession struct {
	ID              string            `json:"id"`
	WorkerID        string            `json:"worker_id"`
	SupervisorID    string            `json:"supervisor_id"`
	Step            WorkflowStep      `json:"step"`
	StartedAt       time.Time         `json:"started_at"`
	Locations       []LocationSample  `json:"locations,omitempty"`
	Evaluations     []RoomEvaluation  `json:"evaluations,omitempty"`
	Assistance      []AssistanceEntry `json:"assistance,omitempty"`
	WrapUpStartedAt *time.Time        `json:"wrap_up_started_at,omitempty"`
	Submitted       bool              `json:"submitted"`
	SubmittedAt     *time.Time        `json:"submitted_at,omitempty"`
	Billing         BillingStatus     `json:"billing"`
	TravelEstimate  time.Duration     `json:"travel_estimate"`
}

// Clone returns a deep copy so stores never share slices with callers
func (s *SupervisionSession) Clone() *SupervisionSession {
	if s == nil {
		return nil
	}
	c := *s
	c.Locations = append([]LocationSample(nil), s.Locations...)
	c.Evaluations = make([]RoomEvaluation, len(s.Evaluations))
	for i, e := range s.Evaluations {
		e.Photos = append([]string(nil), e.Photos...)
		c.Evaluations[i] = e
	}
	c.Assistance = make([]AssistanceEntry, len(s.Assistance))
	for i, a := range s.Assistance {
		if a.EndedAt != nil {
			end := *a.EndedAt
			a.EndedAt = &end
		}
		c.Assistance[i] = a
	}
	if s.WrapUpStartedAt != nil {
		t := *s.WrapUpStartedAt
		c.WrapUpStartedAt = &t
	}
	if s.SubmittedAt != nil {
		t := *s.SubmittedAt
		c.SubmittedAt = &t
	}
	return &c
}

// LockedRedoCount counts documented needs_redo rooms, the partial-takeover signal
func (s *SupervisionSession) LockedRedoCount() int {
	n := 0
	for i := range s.Evaluations {
		if s.Evaluations[i].Classification == RoomNeedsRedo && s.Evaluations[i].Locked {
			n++
		}
	}
	return n
}
