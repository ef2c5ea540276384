package coordinator

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/AltairaLabs/lead-oversight/internal/checkin"
	"github.com/AltairaLabs/lead-oversight/internal/countdown"
	"github.com/AltairaLabs/lead-oversight/internal/session"
	"github.com/AltairaLabs/lead-oversight/internal/types"
)

// LocationResult is the outcome of recording a GPS sample
type LocationResult struct {
	Movement *countdown.MovementStatus `json:"movement,omitempty"`
	Events   []countdown.Event         `json:"events,omitempty"`
}

// CancelResult acknowledges an unselect
type CancelResult struct {
	WorkerID string              `json:"worker_id"`
	Reason   types.ReleaseReason `json:"reason"`
}

type evaluateArgs struct {
	LeadID         string                   `json:"lead_id"`
	WorkerID       string                   `json:"worker_id"`
	Room           string                   `json:"room"`
	Classification types.RoomClassification `json:"classification"`
	Notes          string                   `json:"notes"`
	Photos         []string                 `json:"photos"`
}

type submitArgs struct {
	LeadID   string          `json:"lead_id"`
	WorkerID string          `json:"worker_id"`
	Report   checkin.CheckIn `json:"report"`
}

// sessionOwner reads the lead_id and worker_id every session mutation requires
func sessionOwner(request mcp.CallToolRequest) (leadID, workerID string, err error) {
	if leadID, err = requireString(request, "lead_id"); err != nil {
		return "", "", err
	}
	if workerID, err = requireString(request, "worker_id"); err != nil {
		return "", "", err
	}
	return leadID, workerID, nil
}

func requireOwner(leadID, workerID string) error {
	if leadID == "" || workerID == "" {
		return types.NewError(types.ErrInvalidArgument, "lead_id and worker_id are required")
	}
	return nil
}

// handleSelect implements the session.select tool
func (ms *MCPServer) handleSelect(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	lead, err := ms.lead(ctx, request)
	if err != nil {
		return errorResult(err), nil
	}
	workerID, err := requireString(request, "worker_id")
	if err != nil {
		return errorResult(err), nil
	}
	return respond(ms.deps.Sessions.Select(ctx, session.SelectRequest{
		Lead:          *lead,
		WorkerID:      workerID,
		AdminOverride: request.GetBool("admin_override", false),
	}, ms.now()))
}

// handleCancel implements the session.cancel tool
func (ms *MCPServer) handleCancel(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	leadID, workerID, err := sessionOwner(request)
	if err != nil {
		return errorResult(err), nil
	}
	reason := types.ReleaseReason(request.GetString("reason", string(types.ReleaseError)))
	if err := ms.deps.Sessions.Cancel(ctx, workerID, leadID, reason); err != nil {
		return errorResult(err), nil
	}
	return jsonResult(CancelResult{WorkerID: workerID, Reason: reason})
}

// handleLocation implements the session.location tool
func (ms *MCPServer) handleLocation(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	leadID, workerID, err := sessionOwner(request)
	if err != nil {
		return errorResult(err), nil
	}
	lat, err := request.RequireFloat("lat")
	if err != nil {
		return errorResult(types.NewError(types.ErrInvalidArgument, "%s", err.Error())), nil
	}
	lng, err := request.RequireFloat("lng")
	if err != nil {
		return errorResult(types.NewError(types.ErrInvalidArgument, "%s", err.Error())), nil
	}

	sample := types.LocationSample{Position: types.LatLng{Lat: lat, Lng: lng}, At: ms.now()}
	status, events, err := ms.deps.Sessions.RecordLocation(ctx, workerID, leadID, sample)
	if err != nil {
		return errorResult(err), nil
	}
	return jsonResult(LocationResult{Movement: status, Events: events})
}

// handleAdvance implements the session.advance tool
func (ms *MCPServer) handleAdvance(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	leadID, workerID, err := sessionOwner(request)
	if err != nil {
		return errorResult(err), nil
	}
	step, err := requireString(request, "step")
	if err != nil {
		return errorResult(err), nil
	}
	target := types.WorkflowStep(step)
	if target.Index() < 0 {
		return errorResult(types.NewError(types.ErrInvalidArgument, "unknown workflow step %q", step)), nil
	}
	return respond(ms.deps.Sessions.Advance(ctx, workerID, leadID, target, ms.now()))
}

// handleEvaluate implements the session.evaluate tool
func (ms *MCPServer) handleEvaluate(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args evaluateArgs
	if err := request.BindArguments(&args); err != nil {
		return errorResult(types.NewError(types.ErrInvalidArgument, "invalid arguments: %v", err)), nil
	}
	if err := requireOwner(args.LeadID, args.WorkerID); err != nil {
		return errorResult(err), nil
	}
	return respond(ms.deps.Sessions.AddEvaluation(ctx, args.WorkerID, args.LeadID, types.RoomEvaluation{
		Room:           args.Room,
		Classification: args.Classification,
		Notes:          args.Notes,
		Photos:         args.Photos,
	}, ms.now()))
}

// handleWrapUp implements the session.wrap_up tool
func (ms *MCPServer) handleWrapUp(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	leadID, workerID, err := sessionOwner(request)
	if err != nil {
		return errorResult(err), nil
	}
	return respond(ms.deps.Sessions.StartWrapUp(ctx, workerID, leadID, ms.now()))
}

// handleSubmit implements the session.submit tool
func (ms *MCPServer) handleSubmit(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args submitArgs
	if err := request.BindArguments(&args); err != nil {
		return errorResult(types.NewError(types.ErrInvalidArgument, "invalid arguments: %v", err)), nil
	}
	if err := requireOwner(args.LeadID, args.WorkerID); err != nil {
		return errorResult(err), nil
	}
	return respond(ms.deps.Sessions.Submit(ctx, args.WorkerID, args.LeadID, args.Report, ms.now()))
}

// handleGetSession implements the session.get tool
func (ms *MCPServer) handleGetSession(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	workerID, err := requireString(request, "worker_id")
	if err != nil {
		return errorResult(err), nil
	}
	return respond(ms.deps.Sessions.Get(ctx, workerID))
}

// handleListSessions implements the session.list tool
func (ms *MCPServer) handleListSessions(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessions, err := ms.deps.Sessions.List(ctx)
	if err != nil {
		return errorResult(err), nil
	}
	leadID := request.GetString("lead_id", "")
	out := make([]*types.SupervisionSession, 0, len(sessions))
	for _, s := range sessions {
		if leadID == "" || s.SupervisorID == leadID {
			out = append(out, s)
		}
	}
	return jsonResult(out)
}

// handleAssistStart implements the assistance.start tool
func (ms *MCPServer) handleAssistStart(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	leadID, workerID, err := sessionOwner(request)
	if err != nil {
		return errorResult(err), nil
	}
	kind, err := requireString(request, "type")
	if err != nil {
		return errorResult(err), nil
	}
	return respond(ms.deps.Sessions.StartAssistance(ctx, workerID, leadID, types.AssistanceType(kind),
		request.GetString("notes", ""), ms.now()))
}

// handleAssistEnd implements the assistance.end tool
func (ms *MCPServer) handleAssistEnd(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	leadID, workerID, err := sessionOwner(request)
	if err != nil {
		return errorResult(err), nil
	}
	entryID, err := requireString(request, "entry_id")
	if err != nil {
		return errorResult(err), nil
	}
	return respond(ms.deps.Sessions.EndAssistance(ctx, workerID, leadID, entryID,
		request.GetString("notes", ""),
		types.AssistanceType(request.GetString("justification", "")),
		ms.now()))
}
