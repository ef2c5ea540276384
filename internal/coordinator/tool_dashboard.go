package coordinator

import (
	"context"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/AltairaLabs/lead-oversight/internal/dashboard"
	"github.com/AltairaLabs/lead-oversight/internal/geo"
	"github.com/AltairaLabs/lead-oversight/internal/prompts"
	"github.com/AltairaLabs/lead-oversight/internal/types"
)

// Classification is the proximity and priority of one worker relative to a lead
type Classification struct {
	WorkerID      string             `json:"worker_id"`
	LeadID        string             `json:"lead_id"`
	DistanceMiles float64            `json:"distance_miles"`
	Proximity     geo.TierInfo       `json:"proximity"`
	Priority      types.PriorityTier `json:"priority"`
	PriorityRule  string             `json:"priority_rule"`
	Claim         *types.ClaimRecord `json:"claim,omitempty"`
}

// handleDashboard implements the dashboard.view tool
func (ms *MCPServer) handleDashboard(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return respond(ms.dashboard(ctx, request))
}

func (ms *MCPServer) dashboard(ctx context.Context, request mcp.CallToolRequest) (*dashboard.View, error) {
	lead, err := ms.lead(ctx, request)
	if err != nil {
		return nil, err
	}
	workers, err := ms.deps.Roster.Workers(ctx)
	if err != nil {
		return nil, err
	}
	claimed, err := ms.deps.Claims.List(ctx)
	if err != nil {
		return nil, err
	}
	records := make([]types.ClaimRecord, 0, len(claimed))
	for _, c := range claimed {
		records = append(records, *c)
	}

	now := ms.now()
	signals, err := ms.signals(ctx, lead.ID, now)
	if err != nil {
		return nil, err
	}

	return ms.deps.Dashboard.Compose(ctx, dashboard.Request{
		Lead:              *lead,
		Roster:            workers,
		Claims:            records,
		Signals:           signals,
		IncludeOutOfRange: request.GetBool("include_out_of_range", false),
		Now:               now,
	})
}

// signals derives prompt inputs from the lead's open sessions and running laundry timers
func (ms *MCPServer) signals(ctx context.Context, leadID string, now time.Time) (prompts.Signals, error) {
	sessions, err := ms.deps.Sessions.List(ctx)
	if err != nil {
		return nil, err
	}

	var out prompts.Signals
	for _, s := range sessions {
		if s.Submitted || s.SupervisorID != leadID {
			continue
		}
		redo := 0
		for _, e := range s.Evaluations {
			if e.Locked && e.Classification == types.RoomNeedsRedo {
				redo++
			}
		}
		if redo > 0 {
			out = append(out, prompts.PartialTakeover{WorkerID: s.WorkerID, Rooms: redo})
		}
		if stalled, ok := ms.deps.Timers.Movement.StalledFor(s.WorkerID, now); ok {
			out = append(out, prompts.NoGPSMovement{WorkerID: s.WorkerID, Minutes: stalled.Minutes()})
		}
	}

	bags := make(map[string]int)
	var order []string
	for _, job := range ms.deps.Timers.Laundry.Pending(now) {
		if _, ok := bags[job.WorkerID]; !ok {
			order = append(order, job.WorkerID)
		}
		bags[job.WorkerID]++
		if job.Flagged {
			out = append(out, prompts.JobDelay{
				WorkerID:     job.WorkerID,
				JobID:        job.JobID,
				DelayMinutes: job.Overdue.Minutes(),
			})
			continue
		}
		out = append(out, prompts.LaundryDeadline{
			WorkerID:         job.WorkerID,
			JobID:            job.JobID,
			MinutesRemaining: job.Remaining.Minutes(),
		})
	}
	for _, workerID := range order {
		out = append(out, prompts.LaundryHoarding{WorkerID: workerID, Bags: bags[workerID]})
	}
	return out, nil
}

// handleClassify implements the worker.classify tool
func (ms *MCPServer) handleClassify(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return respond(ms.classify(ctx, request))
}

func (ms *MCPServer) classify(ctx context.Context, request mcp.CallToolRequest) (*Classification, error) {
	lead, err := ms.lead(ctx, request)
	if err != nil {
		return nil, err
	}
	workerID, err := requireString(request, "worker_id")
	if err != nil {
		return nil, err
	}
	worker, err := ms.deps.Roster.Worker(ctx, workerID)
	if err != nil {
		return nil, err
	}

	miles, tier := ms.deps.Proximity.Between(lead.Location, worker.Location)
	prio, rule := ms.deps.Priority.Classify(worker.Performance)
	claim, err := ms.deps.Claims.Get(ctx, workerID)
	if err != nil {
		return nil, err
	}
	return &Classification{
		WorkerID:      workerID,
		LeadID:        lead.ID,
		DistanceMiles: miles,
		Proximity:     tier,
		Priority:      prio,
		PriorityRule:  rule,
		Claim:         claim,
	}, nil
}
