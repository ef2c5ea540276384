// Package coordinator exposes the oversight engine as MCP tools.
package coordinator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/AltairaLabs/lead-oversight/internal/claims"
	"github.com/AltairaLabs/lead-oversight/internal/countdown"
	"github.com/AltairaLabs/lead-oversight/internal/dashboard"
	"github.com/AltairaLabs/lead-oversight/internal/geo"
	"github.com/AltairaLabs/lead-oversight/internal/priority"
	"github.com/AltairaLabs/lead-oversight/internal/roster"
	"github.com/AltairaLabs/lead-oversight/internal/session"
	"github.com/AltairaLabs/lead-oversight/internal/tools"
	"github.com/AltairaLabs/lead-oversight/internal/types"
)

// MCPServer wraps the mcp-go server with the oversight engine
type MCPServer struct {
	server   *server.MCPServer
	registry *tools.ToolHandlerRegistry
	deps     Deps
	audit    *AuditLogger
}

// Config holds configuration for the MCP server
type Config struct {
	Name    string
	Version string
}

// Deps are the engine components the tools drive
type Deps struct {
	Roster    roster.Source
	Claims    *claims.Manager
	Sessions  *session.Manager
	Timers    *countdown.Timers
	Dashboard *dashboard.Composer
	Proximity *geo.Classifier
	Priority  *priority.Classifier
	Clock     func() time.Time
}

// NewMCPServer creates and configures a new MCP server
func NewMCPServer(cfg Config, deps Deps, audit *AuditLogger) *MCPServer {
	if deps.Clock == nil {
		deps.Clock = time.Now
	}

	mcpServer := server.NewMCPServer(
		cfg.Name,
		cfg.Version,
		server.WithToolCapabilities(true),
		server.WithRecovery(),
	)

	ms := &MCPServer{
		server:   mcpServer,
		registry: tools.NewToolHandlerRegistry(nil),
		deps:     deps,
		audit:    audit,
	}
	ms.registerHandlers()
	ms.registry.Use(audit.Middleware(deps.Clock))
	ms.registerTools()

	return ms
}

// Registry returns the tool handler registry backing the server
func (ms *MCPServer) Registry() *tools.ToolHandlerRegistry {
	return ms.registry
}

func (ms *MCPServer) now() time.Time {
	return ms.deps.Clock()
}

// lead resolves the lead_id argument through the roster
func (ms *MCPServer) lead(ctx context.Context, request mcp.CallToolRequest) (*types.Lead, error) {
	leadID, err := request.RequireString("lead_id")
	if err != nil {
		return nil, types.NewError(types.ErrInvalidArgument, "%s", err.Error())
	}
	return ms.deps.Roster.Lead(ctx, leadID)
}

func requireString(request mcp.CallToolRequest, key string) (string, error) {
	v, err := request.RequireString(key)
	if err != nil {
		return "", types.NewError(types.ErrInvalidArgument, "%s", err.Error())
	}
	if strings.TrimSpace(v) == "" {
		return "", types.NewError(types.ErrInvalidArgument, "%s is required", key)
	}
	return v, nil
}

// jsonResult marshals v as the text content of a successful result
func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to encode result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

// errorResult turns an engine rejection into a tool error prefixed by its reason
func errorResult(err error) *mcp.CallToolResult {
	msg := err.Error()
	var verr *types.ValidationError
	if errors.As(err, &verr) && len(verr.Warnings) > 0 {
		msg += " (warnings: " + strings.Join(verr.Warnings, "; ") + ")"
	}
	if reason := types.ReasonOf(err); reason != "" {
		msg = string(reason) + ": " + msg
	}
	return mcp.NewToolResultError(msg)
}

// respond is the common tail of every handler
func respond(v any, err error) (*mcp.CallToolResult, error) {
	if err != nil {
		return errorResult(err), nil
	}
	return jsonResult(v)
}

func resultText(result *mcp.CallToolResult) string {
	for _, c := range result.Content {
		if tc, ok := c.(mcp.TextContent); ok {
			return tc.Text
		}
	}
	return ""
}

func reasonFromText(text string) types.Reason {
	prefix, _, ok := strings.Cut(text, ": ")
	if !ok || prefix == "" || strings.ContainsAny(prefix, " ") || strings.ToUpper(prefix) != prefix {
		return ""
	}
	return types.Reason(prefix)
}
