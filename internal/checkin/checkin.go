// Package checkin validates oversight reports before they are submitted.
// Errors block submission; warnings are reported alongside but never block.
package checkin

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/AltairaLabs/lead-oversight/internal/types"
)

// Type is the category of a check-in report
type Type string

const (
	TypeRoutine      Type = "routine"
	TypeCoaching     Type = "coaching"
	TypeQualityIssue Type = "quality_issue"
	TypeIncomplete   Type = "incomplete"
	TypeRedoRequired Type = "redo_required"
)

// Field limits of a check-in
const (
	MinNotesLength     = 10
	MaxNotesLength     = 180
	MinRating          = 1
	MaxRating          = 5
	MinDurationMinutes = 1
	MaxDurationMinutes = 120
)

// ChecklistItem is one line of the on-site checklist
type ChecklistItem struct {
	Name    string `json:"name"`
	Flagged bool   `json:"flagged"`
}

// CheckIn is the terminal oversight report
type CheckIn struct {
	Type            Type            `json:"type"`
	Notes           string          `json:"notes"`
	Photos          []string        `json:"photos,omitempty"`
	Rating          *int            `json:"rating,omitempty"`
	DurationMinutes int             `json:"duration_minutes"`
	Checklist       []ChecklistItem `json:"checklist,omitempty"`
}

// Result aggregates validation outcomes
type Result struct {
	Errors   []string `json:"errors,omitempty"`
	Warnings []string `json:"warnings,omitempty"`
}

// OK reports whether submission may proceed
func (r Result) OK() bool {
	return len(r.Errors) == 0
}

// Err returns a *types.ValidationError when any hard failure was recorded
func (r Result) Err() error {
	if r.OK() {
		return nil
	}
	return &types.ValidationError{Errors: r.Errors, Warnings: r.Warnings}
}

// Merge appends other's findings to r
func (r Result) Merge(other Result) Result {
	r.Errors = append(r.Errors, other.Errors...)
	r.Warnings = append(r.Warnings, other.Warnings...)
	return r
}

func (r *Result) errorf(format string, args ...any) {
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
}

func (r *Result) warnf(format string, args ...any) {
	r.Warnings = append(r.Warnings, fmt.Sprintf(format, args...))
}

var photoTypes = map[Type]bool{
	TypeQualityIssue: true,
	TypeIncomplete:   true,
	TypeRedoRequired: true,
}

// Validate applies the field-level rules of a check-in
func Validate(c CheckIn) Result {
	var r Result

	if c.Type == "" {
		r.errorf("check-in type is required")
	}

	notesLen := utf8.RuneCountInString(strings.TrimSpace(c.Notes))
	if notesLen < MinNotesLength || notesLen > MaxNotesLength {
		r.errorf("notes must be %d-%d characters (got %d)", MinNotesLength, MaxNotesLength, notesLen)
	}

	if len(c.Photos) == 0 {
		if photoTypes[c.Type] {
			r.errorf("photos are required for %s check-ins", c.Type)
		} else if item, flagged := firstFlagged(c.Checklist); flagged {
			r.errorf("photos are required because checklist item %q was flagged", item)
		}
	}

	if c.Rating != nil && (*c.Rating < MinRating || *c.Rating > MaxRating) {
		r.warnf("rating should be between %d and %d (got %d)", MinRating, MaxRating, *c.Rating)
	}

	if c.DurationMinutes < MinDurationMinutes || c.DurationMinutes > MaxDurationMinutes {
		r.warnf("duration should be %d-%d minutes (got %d)", MinDurationMinutes, MaxDurationMinutes, c.DurationMinutes)
	}

	return r
}

func firstFlagged(items []ChecklistItem) (string, bool) {
	for _, it := range items {
		if it.Flagged {
			return it.Name, true
		}
	}
	return "", false
}

// FinalGate checks session-level completeness before the final submission
func FinalGate(evaluations []types.RoomEvaluation, assistance []types.AssistanceEntry) Result {
	var r Result

	for _, e := range evaluations {
		if e.Classification != types.RoomNeedsRedo {
			continue
		}
		if len(e.Photos) == 0 {
			r.errorf("room %q needs redo and requires photos", e.Room)
		}
		if strings.TrimSpace(e.Notes) == "" {
			r.errorf("room %q needs redo and requires notes", e.Room)
		}
	}

	for _, a := range assistance {
		if a.EndedAt == nil {
			r.errorf("assistance entry %s has no end time", a.ID)
		}
		if a.Type == "" {
			r.errorf("assistance entry %s has no type", a.ID)
		}
		if strings.TrimSpace(a.Notes) == "" {
			r.errorf("assistance entry %s has no notes", a.ID)
		}
	}

	return r
}

// PartialTakeover reports a warning when enough documented redo rooms accumulated to
// trigger a partial takeover of the job
func PartialTakeover(evaluations []types.RoomEvaluation, threshold int) Result {
	var r Result
	if threshold <= 0 {
		return r
	}
	locked := 0
	for _, e := range evaluations {
		if e.Classification == types.RoomNeedsRedo && e.Locked {
			locked++
		}
	}
	if locked >= threshold {
		r.warnf("%d rooms need redo; partial takeover applies", locked)
	}
	return r
}
