// Package priority classifies workers into urgency tiers from their performance snapshot.
//
// Rules are evaluated top to bottom and the first match wins, so a worker with both a
// complaint and a help request is RED, never BLUE.
package priority

import (
	"github.com/AltairaLabs/lead-oversight/internal/config"
	"github.com/AltairaLabs/lead-oversight/internal/types"
)

// Rule pairs a predicate with the tier it yields
type Rule struct {
	Name  string
	Tier  types.PriorityTier
	Match func(p types.Performance) bool
}

// Classifier holds the ordered rule cascade
type Classifier struct {
	rules []Rule
}

// NewClassifier builds the standard cascade from thresholds
func NewClassifier(th config.PriorityThresholds) *Classifier {
	return &Classifier{rules: Rules(th)}
}

// Rules returns the cascade in evaluation order
func Rules(th config.PriorityThresholds) []Rule {
	return []Rule{
		{Name: "complaints", Tier: types.PriorityRed, Match: func(p types.Performance) bool {
			return p.Complaints > 0
		}},
		{Name: "low_rating", Tier: types.PriorityRed, Match: func(p types.Performance) bool {
			return p.Rating != nil && *p.Rating < th.RedMinRating
		}},
		{Name: "repeat_redos", Tier: types.PriorityRed, Match: func(p types.Performance) bool {
			return p.Redos >= th.RedMinRedos
		}},
		{Name: "time_lag", Tier: types.PriorityRed, Match: func(p types.Performance) bool {
			return p.TimeLagMinutes > th.RedMaxLagMinutes
		}},
		{Name: "reassignments", Tier: types.PriorityRed, Match: func(p types.Performance) bool {
			return p.Reassignments > 0
		}},
		{Name: "new_worker", Tier: types.PriorityOrange, Match: func(p types.Performance) bool {
			return p.CompletedJobs != nil && *p.CompletedJobs < th.NewWorkerJobs
		}},
		{Name: "check_in_overdue", Tier: types.PriorityOrange, Match: func(p types.Performance) bool {
			return p.CheckInOverdue
		}},
		{Name: "mild_warnings", Tier: types.PriorityOrange, Match: func(p types.Performance) bool {
			return p.MildWarnings > 0
		}},
		{Name: "established", Tier: types.PriorityGreen, Match: func(p types.Performance) bool {
			return p.CompletedJobs != nil && *p.CompletedJobs >= th.GreenMinCompleted &&
				p.Rating != nil && *p.Rating >= th.GreenMinRating
		}},
		{Name: "assistance_requested", Tier: types.PriorityBlue, Match: func(p types.Performance) bool {
			return p.HelpRequested || p.EquipmentRequested
		}},
	}
}

// DefaultRule is reported when no rule matched
const DefaultRule = "default"

// Classify returns the tier of the first matching rule and the rule's name
func (c *Classifier) Classify(p types.Performance) (types.PriorityTier, string) {
	for _, r := range c.rules {
		if r.Match(p) {
			return r.Tier, r.Name
		}
	}
	return types.PriorityGreen, DefaultRule
}

// Rank orders tiers for display: RED=1, ORANGE=2, BLUE=3, GREEN=4, GRAY=5
func Rank(tier types.PriorityTier) int {
	switch tier {
	case types.PriorityRed:
		return 1
	case types.PriorityOrange:
		return 2
	case types.PriorityBlue:
		return 3
	case types.PriorityGreen:
		return 4
	default:
		return 5
	}
}

// Tiers lists every tier in display order
func Tiers() []types.PriorityTier {
	return []types.PriorityTier{
		types.PriorityRed,
		types.PriorityOrange,
		types.PriorityBlue,
		types.PriorityGreen,
		types.PriorityGray,
	}
}
