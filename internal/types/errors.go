package types

import (
	"errors"
	"fmt"
	"strings"
)

// Reason is the machine-readable category of a rejection
type Reason string

const (
	ReasonAlreadyClaimed          Reason = "ALREADY_CLAIMED"
	ReasonAdminApprovalRequired   Reason = "ADMIN_APPROVAL_REQUIRED"
	ReasonNotSelectable           Reason = "NOT_SELECTABLE"
	ReasonValidationFailed        Reason = "VALIDATION_FAILED"
	ReasonWorkflowOrderViolation  Reason = "WORKFLOW_ORDER_VIOLATION"
	ReasonTimerExpiredViolation   Reason = "TIMER_EXPIRED_VIOLATION"
	ReasonConflictDetected        Reason = "LEAD_CONFLICT"
	ReasonNotClaimOwner           Reason = "NOT_CLAIM_OWNER"
	ReasonSessionNotFound         Reason = "SESSION_NOT_FOUND"
	ReasonSessionFrozen           Reason = "SESSION_FROZEN"
	ReasonTimerNotFound           Reason = "TIMER_NOT_FOUND"
	ReasonInvalidArgument         Reason = "INVALID_ARGUMENT"
)

// Sentinel errors; every typed rejection wraps one of these
var (
	ErrAlreadyClaimed         = errors.New("worker already claimed")
	ErrAdminApprovalRequired  = errors.New("admin approval required")
	ErrNotSelectable          = errors.New("worker not selectable")
	ErrValidationFailed       = errors.New("validation failed")
	ErrWorkflowOrderViolation = errors.New("workflow order violation")
	ErrTimerExpiredViolation  = errors.New("timer expired violation")
	ErrNotClaimOwner          = errors.New("claim owned by another supervisor")
	ErrSessionNotFound        = errors.New("session not found")
	ErrSessionFrozen          = errors.New("session already submitted")
	ErrTimerNotFound          = errors.New("timer not found")
	ErrInvalidArgument        = errors.New("invalid argument")
)

var reasonBySentinel = map[error]Reason{
	ErrAlreadyClaimed:         ReasonAlreadyClaimed,
	ErrAdminApprovalRequired:  ReasonAdminApprovalRequired,
	ErrNotSelectable:          ReasonNotSelectable,
	ErrValidationFailed:       ReasonValidationFailed,
	ErrWorkflowOrderViolation: ReasonWorkflowOrderViolation,
	ErrTimerExpiredViolation:  ReasonTimerExpiredViolation,
	ErrNotClaimOwner:          ReasonNotClaimOwner,
	ErrSessionNotFound:        ReasonSessionNotFound,
	ErrSessionFrozen:          ReasonSessionFrozen,
	ErrTimerNotFound:          ReasonTimerNotFound,
	ErrInvalidArgument:        ReasonInvalidArgument,
}

// OversightError is a typed rejection carrying a human-readable message
type OversightError struct {
	sentinel error
	Message  string
}

// NewError builds an OversightError for the given sentinel
func NewError(sentinel error, format string, args ...any) *OversightError {
	return &OversightError{sentinel: sentinel, Message: fmt.Sprintf(format, args...)}
}

func (e *OversightError) Error() string {
	return fmt.Sprintf("%s: %s", e.sentinel.Error(), e.Message)
}

func (e *OversightError) Unwrap() error {
	return e.sentinel
}

// Reason returns the category of the rejection
func (e *OversightError) Reason() Reason {
	return reasonBySentinel[e.sentinel]
}

// ValidationError aggregates field-level failures of a submission
type ValidationError struct {
	Errors   []string
	Warnings []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", ErrValidationFailed.Error(), strings.Join(e.Errors, "; "))
}

func (e *ValidationError) Unwrap() error {
	return ErrValidationFailed
}

// Reason returns ReasonValidationFailed
func (e *ValidationError) Reason() Reason {
	return ReasonValidationFailed
}

// ReasonOf extracts the Reason of any error produced by the engine
func ReasonOf(err error) Reason {
	if err == nil {
		return ""
	}
	var r interface{ Reason() Reason }
	if errors.As(err, &r) {
		return r.Reason()
	}
	for sentinel, reason := range reasonBySentinel {
		if errors.Is(err, sentinel) {
			return reason
		}
	}
	return ""
}
