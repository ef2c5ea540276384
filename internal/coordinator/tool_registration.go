package coordinator

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/AltairaLabs/lead-oversight/internal/config"
	"github.com/AltairaLabs/lead-oversight/internal/tools"
)

// registerHandlers fills the registry with every tool implementation
func (ms *MCPServer) registerHandlers() {
	for name, h := range map[string]tools.ToolHandlerFunc{
		config.ToolDashboard:       ms.handleDashboard,
		config.ToolClassify:        ms.handleClassify,
		config.ToolSelect:          ms.handleSelect,
		config.ToolCancel:          ms.handleCancel,
		config.ToolLocation:        ms.handleLocation,
		config.ToolAdvance:         ms.handleAdvance,
		config.ToolEvaluate:        ms.handleEvaluate,
		config.ToolWrapUp:          ms.handleWrapUp,
		config.ToolSubmit:          ms.handleSubmit,
		config.ToolGetSession:      ms.handleGetSession,
		config.ToolListSessions:    ms.handleListSessions,
		config.ToolAssistStart:     ms.handleAssistStart,
		config.ToolAssistEnd:       ms.handleAssistEnd,
		config.ToolLaundryPickup:   ms.handleLaundryPickup,
		config.ToolLaundryWash:     ms.handleLaundryWash,
		config.ToolLaundryEndShift: ms.handleLaundryEndShift,
	} {
		ms.registry.Register(name, h)
	}
}

// registerTools registers all MCP tools with handlers via the tool registry
func (ms *MCPServer) registerTools() {
	add := func(tool mcp.Tool) {
		h, err := ms.registry.GetHandler(tool.Name)
		if err != nil {
			// every declared tool must have a handler
			panic(fmt.Sprintf("Tool %s not found in registry", tool.Name))
		}
		ms.server.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return h(ctx, req)
		})
	}

	leadID := mcp.WithString("lead_id",
		mcp.Required(),
		mcp.Description("Lead (supervisor) ID"),
	)
	workerID := mcp.WithString("worker_id",
		mcp.Required(),
		mcp.Description("Worker ID"),
	)

	add(mcp.NewTool(config.ToolDashboard,
		mcp.WithDescription("Prioritized, proximity-annotated worker dashboard for a lead, with smart prompts"),
		leadID,
		mcp.WithBoolean("include_out_of_range",
			mcp.Description("Include workers beyond the selectable range"),
		),
	))

	add(mcp.NewTool(config.ToolClassify,
		mcp.WithDescription("Distance, proximity tier, priority tier and claim of one worker"),
		leadID,
		workerID,
	))

	add(mcp.NewTool(config.ToolSelect,
		mcp.WithDescription("Claim a worker and open a supervision session"),
		leadID,
		workerID,
		mcp.WithBoolean("admin_override",
			mcp.Description("Admin approval for FAR workers"),
		),
	))

	add(mcp.NewTool(config.ToolCancel,
		mcp.WithDescription("Unselect a claimed worker and discard the session"),
		leadID,
		workerID,
		mcp.WithString("reason",
			mcp.Description("Release reason"),
			mcp.Enum("error", "emergency", "reassignment"),
		),
	))

	add(mcp.NewTool(config.ToolLocation,
		mcp.WithDescription("Record the lead's GPS position for a session"),
		leadID,
		workerID,
		mcp.WithNumber("lat", mcp.Required(), mcp.Description("Latitude in degrees")),
		mcp.WithNumber("lng", mcp.Required(), mcp.Description("Longitude in degrees")),
	))

	add(mcp.NewTool(config.ToolAdvance,
		mcp.WithDescription("Move a session to the next workflow step"),
		leadID,
		workerID,
		mcp.WithString("step",
			mcp.Required(),
			mcp.Description("Target workflow step"),
			mcp.Enum("en_route", "arrived", "room_evaluation_started", "room_evaluation_completed",
				"assistance_logged", "wrap_up_started"),
		),
	))

	add(mcp.NewTool(config.ToolEvaluate,
		mcp.WithDescription("Record a room evaluation"),
		leadID,
		workerID,
		mcp.WithString("room", mcp.Required(), mcp.Description("Room name")),
		mcp.WithString("classification",
			mcp.Required(),
			mcp.Description("Room verdict"),
			mcp.Enum("looks_good", "coaching_only", "needs_redo"),
		),
		mcp.WithString("notes", mcp.Description("Evaluation notes")),
		mcp.WithArray("photos", mcp.Description("Photo references"), mcp.WithStringItems()),
	))

	add(mcp.NewTool(config.ToolWrapUp,
		mcp.WithDescription("Start the capped wrap-up window"),
		leadID,
		workerID,
	))

	add(mcp.NewTool(config.ToolSubmit,
		mcp.WithDescription("Submit the check-in report, freeze the session and release the claim"),
		leadID,
		workerID,
		mcp.WithObject("report",
			mcp.Required(),
			mcp.Description("Check-in report: type, notes, photos, rating, duration_minutes, checklist"),
		),
	))

	add(mcp.NewTool(config.ToolGetSession,
		mcp.WithDescription("Get the session of a worker"),
		workerID,
	))

	add(mcp.NewTool(config.ToolListSessions,
		mcp.WithDescription("List sessions, optionally for one lead"),
		mcp.WithString("lead_id", mcp.Description("Only sessions of this lead")),
	))

	add(mcp.NewTool(config.ToolAssistStart,
		mcp.WithDescription("Start timing hands-on assistance"),
		leadID,
		workerID,
		mcp.WithString("type",
			mcp.Required(),
			mcp.Description("Assistance type"),
			mcp.Enum("setup", "demonstration", "task_completion", "equipment_delivery"),
		),
		mcp.WithString("notes", mcp.Description("Assistance notes")),
	))

	add(mcp.NewTool(config.ToolAssistEnd,
		mcp.WithDescription("End an assistance entry; long entries need a justification"),
		leadID,
		workerID,
		mcp.WithString("entry_id", mcp.Required(), mcp.Description("Assistance entry ID")),
		mcp.WithString("notes", mcp.Description("Assistance notes")),
		mcp.WithString("justification",
			mcp.Description("Required past the justification mark"),
			mcp.Enum("setup", "demonstration", "task_completion", "equipment_delivery"),
		),
	))

	add(mcp.NewTool(config.ToolLaundryPickup,
		mcp.WithDescription("Record a laundry pickup and start its pickup-to-start timer"),
		workerID,
		mcp.WithString("job_id", mcp.Required(), mcp.Description("Laundry job ID")),
		mcp.WithString("tier",
			mcp.Description("Service tier"),
			mcp.Enum("express", "standard"),
		),
	))

	add(mcp.NewTool(config.ToolLaundryWash,
		mcp.WithDescription("Start washing a laundry job"),
		workerID,
		mcp.WithString("job_id", mcp.Required(), mcp.Description("Laundry job ID")),
	))

	add(mcp.NewTool(config.ToolLaundryEndShift,
		mcp.WithDescription("End a worker's laundry shift and clear its timers"),
		workerID,
	))
}
