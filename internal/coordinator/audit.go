package coordinator

import (
	"context"
	"log/slog"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/AltairaLabs/lead-oversight/internal/tools"
	"github.com/AltairaLabs/lead-oversight/internal/types"
)

// AuditEntry represents a logged tool event for provenance tracking
type AuditEntry struct {
	Timestamp time.Time
	LeadID    string
	WorkerID  string
	ToolName  string
	Arguments map[string]interface{}
	Duration  time.Duration
	ErrorMsg  string
	Reason    types.Reason
}

// AuditLogger provides structured audit logging of tool calls
type AuditLogger struct {
	logger *slog.Logger
}

// NewAuditLogger creates a new audit logger
func NewAuditLogger(logger *slog.Logger) *AuditLogger {
	return &AuditLogger{
		logger: logger,
	}
}

// LogToolCall logs a tool invocation with all relevant context
func (al *AuditLogger) LogToolCall(ctx context.Context, entry *AuditEntry) {
	al.logger.InfoContext(ctx, "tool_call",
		"lead_id", entry.LeadID,
		"worker_id", entry.WorkerID,
		"tool_name", entry.ToolName,
		"arguments", entry.Arguments,
		"timestamp", entry.Timestamp,
	)
}

// LogToolResult logs a tool execution result
func (al *AuditLogger) LogToolResult(ctx context.Context, entry *AuditEntry) {
	if entry.ErrorMsg != "" {
		al.logger.WarnContext(ctx, "tool_error",
			"lead_id", entry.LeadID,
			"worker_id", entry.WorkerID,
			"tool_name", entry.ToolName,
			"reason", entry.Reason,
			"error", entry.ErrorMsg,
			"duration_ms", entry.Duration.Milliseconds(),
		)
		return
	}
	al.logger.InfoContext(ctx, "tool_result",
		"lead_id", entry.LeadID,
		"worker_id", entry.WorkerID,
		"tool_name", entry.ToolName,
		"duration_ms", entry.Duration.Milliseconds(),
	)
}

// Middleware audits every call and result passing through a tool handler
func (al *AuditLogger) Middleware(clock func() time.Time) tools.Middleware {
	return func(name string, next tools.ToolHandlerFunc) tools.ToolHandlerFunc {
		return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			start := clock()
			entry := &AuditEntry{
				Timestamp: start,
				LeadID:    request.GetString("lead_id", ""),
				WorkerID:  request.GetString("worker_id", ""),
				ToolName:  name,
				Arguments: request.GetArguments(),
			}
			al.LogToolCall(ctx, entry)

			result, err := next(ctx, request)

			entry.Duration = clock().Sub(start)
			switch {
			case err != nil:
				entry.ErrorMsg = err.Error()
			case result != nil && result.IsError:
				entry.ErrorMsg = resultText(result)
				entry.Reason = reasonFromText(entry.ErrorMsg)
			}
			al.LogToolResult(ctx, entry)
			return result, err
		}
	}
}
