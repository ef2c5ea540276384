package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/fatih/color"

	"github.com/AltairaLabs/lead-oversight/internal/checkin"
	"github.com/AltairaLabs/lead-oversight/internal/dashboard"
	"github.com/AltairaLabs/lead-oversight/internal/geo"
	"github.com/AltairaLabs/lead-oversight/internal/types"
)

// classification is the output of the classify command
type classification struct {
	LeadID        string             `json:"lead_id"`
	WorkerID      string             `json:"worker_id"`
	DistanceMiles float64            `json:"distance_miles"`
	Proximity     geo.TierInfo       `json:"proximity"`
	Selectable    bool               `json:"selectable"`
	SelectionNote string             `json:"selection_note,omitempty"`
	Priority      types.PriorityTier `json:"priority"`
	PriorityRule  string             `json:"priority_rule"`
	Travel        time.Duration      `json:"travel"`
}

// renderer handles output formatting
type renderer struct {
	out  io.Writer
	json bool
}

func (r *renderer) writeJSON(v any) error {
	enc := json.NewEncoder(r.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func tierColor(tier types.PriorityTier) func(format string, a ...interface{}) string {
	switch tier {
	case types.PriorityRed:
		return color.RedString
	case types.PriorityOrange:
		return color.YellowString
	case types.PriorityBlue:
		return color.BlueString
	case types.PriorityGreen:
		return color.GreenString
	}
	return color.HiBlackString
}

func alertColor(p types.AlertPriority) func(format string, a ...interface{}) string {
	switch p {
	case types.AlertHigh:
		return color.RedString
	case types.AlertMedium:
		return color.YellowString
	}
	return color.HiBlackString
}

func (r *renderer) dashboard(view *dashboard.View) error {
	if r.json {
		return r.writeJSON(view)
	}

	var sb strings.Builder
	sb.WriteString(color.CyanString("Dashboard for %s\n", view.LeadID))
	sb.WriteString(strings.Repeat("─", 60) + "\n")

	for _, p := range view.Prompts {
		fmt.Fprintf(&sb, "%s %s\n", alertColor(p.Priority)("[%s]", p.Priority), p.Message)
	}
	if len(view.Prompts) > 0 {
		sb.WriteString("\n")
	}

	if len(view.Entries) == 0 {
		sb.WriteString("No workers in range\n")
	}
	for _, g := range view.Groups {
		paint := tierColor(g.Tier)
		fmt.Fprintf(&sb, "%s (%d)\n", paint("%s", g.Tier), len(g.Entries))
		for _, e := range g.Entries {
			name := e.Worker.Name
			if name == "" {
				name = e.Worker.ID
			}
			fmt.Fprintf(&sb, "  %-20s %6.1f mi  %-12s %s\n",
				name, e.DistanceMiles, e.Proximity.Tier, color.HiBlackString(e.PriorityRule))
		}
	}
	_, err := io.WriteString(r.out, sb.String())
	return err
}

func (r *renderer) classification(c classification) error {
	if r.json {
		return r.writeJSON(c)
	}

	selectable := color.GreenString("yes")
	if !c.Selectable {
		selectable = color.RedString("no (%s)", c.SelectionNote)
	}
	_, err := fmt.Fprintf(r.out,
		"Worker:     %s\nLead:       %s\nDistance:   %.2f mi (%s)\nSelectable: %s\nTravel:     %s\nPriority:   %s (%s)\n",
		c.WorkerID, c.LeadID, c.DistanceMiles, c.Proximity.Tier, selectable, c.Travel,
		tierColor(c.Priority)("%s", c.Priority), c.PriorityRule)
	return err
}

func (r *renderer) validation(result checkin.Result) error {
	if r.json {
		return r.writeJSON(result)
	}

	var sb strings.Builder
	if result.OK() {
		sb.WriteString(color.GreenString("✓ check-in is valid\n"))
	}
	for _, e := range result.Errors {
		fmt.Fprintf(&sb, "%s %s\n", color.RedString("✗"), e)
	}
	for _, w := range result.Warnings {
		fmt.Fprintf(&sb, "%s %s\n", color.YellowString("!"), w)
	}
	_, err := io.WriteString(r.out, sb.String())
	return err
}

func (r *renderer) alerts(alerts []types.Alert) error {
	if r.json {
		return r.writeJSON(alerts)
	}
	if len(alerts) == 0 {
		_, err := fmt.Fprintln(r.out, "No alerts")
		return err
	}

	var sb strings.Builder
	for _, a := range alerts {
		fmt.Fprintf(&sb, "%s %s %s %s\n",
			color.HiBlackString(a.CreatedAt.Format("15:04:05")),
			alertColor(a.Priority)("%-6s", a.Priority),
			a.Type,
			a.Message)
		if a.WorkerID != "" {
			fmt.Fprintf(&sb, "    worker: %s\n", a.WorkerID)
		}
	}
	_, err := io.WriteString(r.out, sb.String())
	return err
}
