package coordinator

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/AltairaLabs/lead-oversight/internal/countdown"
)

// LaundryResult is the worker's running laundry timers after a change
type LaundryResult struct {
	WorkerID string                 `json:"worker_id"`
	Pending  []countdown.PendingJob `json:"pending"`
}

func (ms *MCPServer) laundryResult(workerID string) LaundryResult {
	res := LaundryResult{WorkerID: workerID, Pending: []countdown.PendingJob{}}
	for _, job := range ms.deps.Timers.Laundry.Pending(ms.now()) {
		if job.WorkerID == workerID {
			res.Pending = append(res.Pending, job)
		}
	}
	return res
}

// handleLaundryPickup implements the laundry.pickup tool
func (ms *MCPServer) handleLaundryPickup(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	workerID, err := requireString(request, "worker_id")
	if err != nil {
		return errorResult(err), nil
	}
	jobID, err := requireString(request, "job_id")
	if err != nil {
		return errorResult(err), nil
	}
	tier := countdown.LaundryTier(request.GetString("tier", string(countdown.LaundryStandard)))
	if err := ms.deps.Timers.Laundry.Pickup(workerID, jobID, tier, ms.now()); err != nil {
		return errorResult(err), nil
	}
	return jsonResult(ms.laundryResult(workerID))
}

// handleLaundryWash implements the laundry.start_wash tool
func (ms *MCPServer) handleLaundryWash(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	workerID, err := requireString(request, "worker_id")
	if err != nil {
		return errorResult(err), nil
	}
	jobID, err := requireString(request, "job_id")
	if err != nil {
		return errorResult(err), nil
	}
	if err := ms.deps.Timers.Laundry.StartWash(workerID, jobID, ms.now()); err != nil {
		return errorResult(err), nil
	}
	return jsonResult(ms.laundryResult(workerID))
}

// handleLaundryEndShift implements the laundry.end_shift tool
func (ms *MCPServer) handleLaundryEndShift(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	workerID, err := requireString(request, "worker_id")
	if err != nil {
		return errorResult(err), nil
	}
	ms.deps.Timers.Laundry.EndShift(workerID)
	return jsonResult(ms.laundryResult(workerID))
}
