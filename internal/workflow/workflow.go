// Package workflow gates step transitions of a supervision session.
// It holds no state and no timers; the session orchestrator consults it before
// honoring a step-advance request.
package workflow

import (
	"github.com/AltairaLabs/lead-oversight/internal/types"
)

// State is the accumulated session data the gate inspects
type State struct {
	Evaluations int
	Assistance  int
	Submitted   bool
}

// StateOf summarizes a session for the gate
func StateOf(s *types.SupervisionSession) State {
	return State{
		Evaluations: len(s.Evaluations),
		Assistance:  len(s.Assistance),
		Submitted:   s.Submitted,
	}
}

// successors lists the steps that may legally follow each step
var successors = map[types.WorkflowStep][]types.WorkflowStep{
	types.StepBubblerSelected:         {types.StepEnRoute},
	types.StepEnRoute:                 {types.StepArrived},
	types.StepArrived:                 {types.StepRoomEvaluationStarted},
	types.StepRoomEvaluationStarted:   {types.StepRoomEvaluationCompleted},
	types.StepRoomEvaluationCompleted: {types.StepAssistanceLogged, types.StepWrapUpStarted},
	types.StepAssistanceLogged:        {types.StepAssistanceLogged, types.StepWrapUpStarted},
	types.StepWrapUpStarted:           {types.StepSubmitted},
	types.StepSubmitted:               nil,
}

// NextSteps returns the steps that may follow current, for UI guidance
func NextSteps(current types.WorkflowStep) []types.WorkflowStep {
	return append([]types.WorkflowStep(nil), successors[current]...)
}

// Advance validates moving from current to target and returns the step the UI should
// offer next. The returned step is target itself when target is terminal.
func Advance(current, target types.WorkflowStep, st State) (types.WorkflowStep, error) {
	if st.Submitted || current == types.StepSubmitted {
		return current, violation("session is submitted; no further changes are allowed")
	}
	if target.Index() < 0 {
		return current, violation("unknown step %q", target)
	}

	switch target {
	case types.StepRoomEvaluationCompleted:
		if st.Evaluations == 0 {
			return current, violation("record at least one room evaluation before completing evaluation")
		}
	case types.StepAssistanceLogged:
		if st.Assistance == 0 {
			return current, violation("log at least one assistance entry first")
		}
	case types.StepSubmitted:
		if current != types.StepWrapUpStarted {
			return current, violation("start wrap-up before submitting")
		}
	}

	if !allowed(current, target) {
		return current, violation("cannot move from %s to %s", current, target)
	}
	return guidance(target), nil
}

func allowed(current, target types.WorkflowStep) bool {
	for _, s := range successors[current] {
		if s == target {
			return true
		}
	}
	return false
}

// guidance picks the primary follow-up step; optional assistance is skipped
func guidance(step types.WorkflowStep) types.WorkflowStep {
	next := successors[step]
	if len(next) == 0 {
		return step
	}
	for _, s := range next {
		if s != types.StepAssistanceLogged {
			return s
		}
	}
	return next[0]
}

func violation(format string, args ...any) error {
	return types.NewError(types.ErrWorkflowOrderViolation, format, args...)
}
