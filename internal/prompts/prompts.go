// Package prompts turns the condition signals of a dashboard refresh into ranked operator prompts.
package prompts

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/AltairaLabs/lead-oversight/internal/config"
	"github.com/AltairaLabs/lead-oversight/internal/types"
)

// Type names a prompt rule
type Type string

const (
	TypeCriticalWorkers  Type = "critical_workers"
	TypeJobDelay         Type = "job_delay"
	TypeRepeatLowRatings Type = "repeat_low_ratings"
	TypeRecentlyFlagged  Type = "recently_flagged"
	TypeIdle             Type = "idle"
	TypeNoGPSMovement    Type = "no_gps_movement"
	TypeJobAbandoned     Type = "job_abandoned"
	TypeEnvironmentalQA  Type = "environmental_qa_failure"
	TypeLaundryHoarding  Type = "laundry_hoarding"
	TypeLaundryDeadline  Type = "laundry_deadline"
	TypePartialTakeover  Type = "partial_takeover"
)

// Prompt is one operator-facing suggestion
type Prompt struct {
	ID        string              `json:"id"`
	Type      Type                `json:"type"`
	Message   string              `json:"message"`
	Priority  types.AlertPriority `json:"priority"`
	Trigger   string              `json:"trigger"`
	WorkerIDs []string            `json:"worker_ids,omitempty"`
	CreatedAt time.Time           `json:"created_at"`
}

// Alert converts the prompt for the delivery collaborator
func (p Prompt) Alert() types.Alert {
	a := types.Alert{
		ID:        p.ID,
		Type:      string(p.Type),
		Message:   p.Message,
		Priority:  p.Priority,
		Trigger:   p.Trigger,
		CreatedAt: p.CreatedAt,
	}
	if len(p.WorkerIDs) == 1 {
		a.WorkerID = p.WorkerIDs[0]
	} else if len(p.WorkerIDs) > 1 {
		a.Context = map[string]string{"worker_ids": strings.Join(p.WorkerIDs, ",")}
	}
	return a
}

// Rule evaluates one condition. It returns false when the condition does not hold.
type Rule struct {
	Type     Type
	Evaluate func(Signals) (Prompt, bool)
}

// Aggregator evaluates every rule once per refresh
type Aggregator struct {
	rules []Rule
}

// NewAggregator creates an aggregator with the standard rules
func NewAggregator(cfg config.PromptConfig) *Aggregator {
	return &Aggregator{rules: Rules(cfg)}
}

// Rules returns the standard rule set. Order only breaks ties between equal priorities.
func Rules(cfg config.PromptConfig) []Rule {
	return []Rule{
		{Type: TypeCriticalWorkers, Evaluate: criticalWorkers},
		{Type: TypeJobAbandoned, Evaluate: jobAbandoned},
		{Type: TypeJobDelay, Evaluate: jobDelay(cfg.JobDelayMinutes)},
		{Type: TypeLaundryDeadline, Evaluate: laundryDeadline(cfg.LaundryDeadlineMinutes)},
		{Type: TypeNoGPSMovement, Evaluate: noGPSMovement(cfg.NoMovementMinutes)},
		{Type: TypeRepeatLowRatings, Evaluate: repeatLowRatings(cfg.RepeatLowRatings)},
		{Type: TypeEnvironmentalQA, Evaluate: environmentalQA(cfg.QAFailures)},
		{Type: TypeLaundryHoarding, Evaluate: laundryHoarding(cfg.HoardingBags)},
		{Type: TypePartialTakeover, Evaluate: partialTakeover(cfg.PartialTakeoverRooms)},
		{Type: TypeRecentlyFlagged, Evaluate: recentlyFlagged},
		{Type: TypeIdle, Evaluate: idle(cfg.IdleMinutes)},
	}
}

// Aggregate evaluates the rules and returns prompts ranked high to low
func (a *Aggregator) Aggregate(signals Signals, now time.Time) []Prompt {
	prompts := make([]Prompt, 0, len(a.rules))
	for _, rule := range a.rules {
		p, ok := rule.Evaluate(signals)
		if !ok {
			continue
		}
		p.Type = rule.Type
		p.ID = ulid.MustNew(ulid.Timestamp(now), ulid.DefaultEntropy()).String()
		p.CreatedAt = now
		prompts = append(prompts, p)
	}
	sort.SliceStable(prompts, func(i, j int) bool {
		return prompts[i].Priority.Rank() < prompts[j].Priority.Rank()
	})
	return prompts
}

func workerIDs[T any](items []T, id func(T) string) []string {
	seen := make(map[string]bool, len(items))
	var out []string
	for _, it := range items {
		w := id(it)
		if w == "" || seen[w] {
			continue
		}
		seen[w] = true
		out = append(out, w)
	}
	return out
}

func plural(n int, one, many string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s", one)
	}
	return fmt.Sprintf("%d %s", n, many)
}

func criticalWorkers(s Signals) (Prompt, bool) {
	total := 0
	for _, c := range collect[CriticalWorkers](s) {
		total += c.Count
	}
	if total == 0 {
		return Prompt{}, false
	}
	return Prompt{
		Message:  fmt.Sprintf("%s need immediate attention", plural(total, "critical worker", "critical workers")),
		Priority: types.AlertHigh,
		Trigger:  fmt.Sprintf("critical_count=%d", total),
	}, true
}

func jobAbandoned(s Signals) (Prompt, bool) {
	hits := collect[JobAbandoned](s)
	if len(hits) == 0 {
		return Prompt{}, false
	}
	ids := workerIDs(hits, func(j JobAbandoned) string { return j.WorkerID })
	return Prompt{
		Message:   fmt.Sprintf("%s abandoned; check in immediately", plural(len(hits), "job was", "jobs were")),
		Priority:  types.AlertHigh,
		Trigger:   fmt.Sprintf("abandoned_jobs=%d", len(hits)),
		WorkerIDs: ids,
	}, true
}

func jobDelay(minMinutes float64) func(Signals) (Prompt, bool) {
	return func(s Signals) (Prompt, bool) {
		var hits []JobDelay
		for _, d := range collect[JobDelay](s) {
			if d.DelayMinutes >= minMinutes {
				hits = append(hits, d)
			}
		}
		if len(hits) == 0 {
			return Prompt{}, false
		}
		return Prompt{
			Message:   fmt.Sprintf("%s running at least %.0f minutes late", plural(len(hits), "job", "jobs"), minMinutes),
			Priority:  types.AlertHigh,
			Trigger:   fmt.Sprintf("delay_minutes>=%.0f", minMinutes),
			WorkerIDs: workerIDs(hits, func(d JobDelay) string { return d.WorkerID }),
		}, true
	}
}

func laundryDeadline(withinMinutes float64) func(Signals) (Prompt, bool) {
	return func(s Signals) (Prompt, bool) {
		var hits []LaundryDeadline
		for _, d := range collect[LaundryDeadline](s) {
			if d.MinutesRemaining <= withinMinutes {
				hits = append(hits, d)
			}
		}
		if len(hits) == 0 {
			return Prompt{}, false
		}
		return Prompt{
			Message:   fmt.Sprintf("%s due to start washing within %.0f minutes", plural(len(hits), "laundry job", "laundry jobs"), withinMinutes),
			Priority:  types.AlertHigh,
			Trigger:   fmt.Sprintf("minutes_remaining<=%.0f", withinMinutes),
			WorkerIDs: workerIDs(hits, func(d LaundryDeadline) string { return d.WorkerID }),
		}, true
	}
}

func noGPSMovement(minMinutes float64) func(Signals) (Prompt, bool) {
	return func(s Signals) (Prompt, bool) {
		var hits []NoGPSMovement
		for _, m := range collect[NoGPSMovement](s) {
			if m.Minutes >= minMinutes {
				hits = append(hits, m)
			}
		}
		if len(hits) == 0 {
			return Prompt{}, false
		}
		return Prompt{
			Message:   fmt.Sprintf("%s not moved for %.0f+ minutes", plural(len(hits), "worker has", "workers have"), minMinutes),
			Priority:  types.AlertMedium,
			Trigger:   fmt.Sprintf("no_movement_minutes>=%.0f", minMinutes),
			WorkerIDs: workerIDs(hits, func(m NoGPSMovement) string { return m.WorkerID }),
		}, true
	}
}

func repeatLowRatings(minCount int) func(Signals) (Prompt, bool) {
	return func(s Signals) (Prompt, bool) {
		var hits []RepeatLowRatings
		for _, r := range collect[RepeatLowRatings](s) {
			if r.Count >= minCount {
				hits = append(hits, r)
			}
		}
		if len(hits) == 0 {
			return Prompt{}, false
		}
		return Prompt{
			Message:   fmt.Sprintf("%s repeated low ratings; schedule coaching", plural(len(hits), "worker has", "workers have")),
			Priority:  types.AlertMedium,
			Trigger:   fmt.Sprintf("low_ratings>=%d", minCount),
			WorkerIDs: workerIDs(hits, func(r RepeatLowRatings) string { return r.WorkerID }),
		}, true
	}
}

func environmentalQA(minFailures int) func(Signals) (Prompt, bool) {
	return func(s Signals) (Prompt, bool) {
		var hits []EnvironmentalQAFailure
		for _, q := range collect[EnvironmentalQAFailure](s) {
			if q.Failures >= minFailures {
				hits = append(hits, q)
			}
		}
		if len(hits) == 0 {
			return Prompt{}, false
		}
		return Prompt{
			Message:   fmt.Sprintf("Environmental QA failed for %s", plural(len(hits), "worker", "workers")),
			Priority:  types.AlertMedium,
			Trigger:   fmt.Sprintf("qa_failures>=%d", minFailures),
			WorkerIDs: workerIDs(hits, func(q EnvironmentalQAFailure) string { return q.WorkerID }),
		}, true
	}
}

func laundryHoarding(minBags int) func(Signals) (Prompt, bool) {
	return func(s Signals) (Prompt, bool) {
		var hits []LaundryHoarding
		for _, h := range collect[LaundryHoarding](s) {
			if h.Bags >= minBags {
				hits = append(hits, h)
			}
		}
		if len(hits) == 0 {
			return Prompt{}, false
		}
		return Prompt{
			Message:   fmt.Sprintf("%s holding %d+ unwashed bags", plural(len(hits), "worker is", "workers are"), minBags),
			Priority:  types.AlertMedium,
			Trigger:   fmt.Sprintf("bags>=%d", minBags),
			WorkerIDs: workerIDs(hits, func(h LaundryHoarding) string { return h.WorkerID }),
		}, true
	}
}

func partialTakeover(minRooms int) func(Signals) (Prompt, bool) {
	return func(s Signals) (Prompt, bool) {
		var hits []PartialTakeover
		for _, p := range collect[PartialTakeover](s) {
			if minRooms > 0 && p.Rooms >= minRooms {
				hits = append(hits, p)
			}
		}
		if len(hits) == 0 {
			return Prompt{}, false
		}
		return Prompt{
			Message:   fmt.Sprintf("Partial takeover applies to %s", plural(len(hits), "session", "sessions")),
			Priority:  types.AlertMedium,
			Trigger:   fmt.Sprintf("redo_rooms>=%d", minRooms),
			WorkerIDs: workerIDs(hits, func(p PartialTakeover) string { return p.WorkerID }),
		}, true
	}
}

func recentlyFlagged(s Signals) (Prompt, bool) {
	hits := collect[RecentlyFlagged](s)
	if len(hits) == 0 {
		return Prompt{}, false
	}
	return Prompt{
		Message:   fmt.Sprintf("%s flagged recently; consider a follow-up check-in", plural(len(hits), "worker was", "workers were")),
		Priority:  types.AlertLow,
		Trigger:   "recently_flagged",
		WorkerIDs: workerIDs(hits, func(r RecentlyFlagged) string { return r.WorkerID }),
	}, true
}

func idle(minMinutes float64) func(Signals) (Prompt, bool) {
	return func(s Signals) (Prompt, bool) {
		longest := -1.0
		for _, i := range collect[Idle](s) {
			if i.Minutes > longest {
				longest = i.Minutes
			}
		}
		if longest < minMinutes {
			return Prompt{}, false
		}
		return Prompt{
			Message:  fmt.Sprintf("No active check-in for %.0f minutes; pick the next worker", longest),
			Priority: types.AlertLow,
			Trigger:  fmt.Sprintf("idle_minutes>=%.0f", minMinutes),
		}, true
	}
}
