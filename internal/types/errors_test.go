package types

import (
	"errors"
	"fmt"
	"testing"
)

func TestOversightError_IsAndReason(t *testing.T) {
	err := NewError(ErrAlreadyClaimed, "worker %s is claimed by %s", "w1", "lead-2")

	if !errors.Is(err, ErrAlreadyClaimed) {
		t.Error("Expected errors.Is to match ErrAlreadyClaimed")
	}
	if err.Reason() != ReasonAlreadyClaimed {
		t.Errorf("Expected reason %s, got %s", ReasonAlreadyClaimed, err.Reason())
	}
	if err.Message != "worker w1 is claimed by lead-2" {
		t.Errorf("Unexpected message %q", err.Message)
	}
}

func TestReasonOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Reason
	}{
		{"nil", nil, ""},
		{"typed", NewError(ErrWorkflowOrderViolation, "x"), ReasonWorkflowOrderViolation},
		{"wrapped typed", fmt.Errorf("advance: %w", NewError(ErrSessionFrozen, "x")), ReasonSessionFrozen},
		{"validation", &ValidationError{Errors: []string{"notes"}}, ReasonValidationFailed},
		{"bare sentinel", fmt.Errorf("tick: %w", ErrTimerNotFound), ReasonTimerNotFound},
		{"unknown", errors.New("boom"), ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ReasonOf(tt.err); got != tt.want {
				t.Errorf("Expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestSupervisionSession_CloneIsDeep(t *testing.T) {
	s := &SupervisionSession{
		ID:          "s1",
		Evaluations: []RoomEvaluation{{Room: "kitchen", Photos: []string{"a.jpg"}}},
	}
	c := s.Clone()
	c.Evaluations[0].Photos[0] = "changed.jpg"
	c.Evaluations = append(c.Evaluations, RoomEvaluation{Room: "bath"})

	if s.Evaluations[0].Photos[0] != "a.jpg" {
		t.Error("Expected original photos to be untouched")
	}
	if len(s.Evaluations) != 1 {
		t.Errorf("Expected 1 evaluation on original, got %d", len(s.Evaluations))
	}
}
