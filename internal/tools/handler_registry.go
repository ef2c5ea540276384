package tools

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/mark3labs/mcp-go/mcp"
)

// ToolHandlerFunc is a function that handles a tool call
type ToolHandlerFunc func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error)

// Middleware wraps a handler; name is the tool being wrapped
type Middleware func(name string, next ToolHandlerFunc) ToolHandlerFunc

// ToolHandlerRegistry maps tool names to handler functions
type ToolHandlerRegistry struct {
	mu         sync.RWMutex
	handlers   map[string]ToolHandlerFunc
	middleware []Middleware
}

// NewToolHandlerRegistry creates a registry seeded with initial handlers
func NewToolHandlerRegistry(initial map[string]ToolHandlerFunc) *ToolHandlerRegistry {
	r := &ToolHandlerRegistry{
		handlers: make(map[string]ToolHandlerFunc),
	}
	for k, v := range initial {
		r.handlers[k] = v
	}
	return r
}

// Register adds or replaces a handler for a tool name
func (r *ToolHandlerRegistry) Register(toolName string, handler ToolHandlerFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[toolName] = handler
}

// Use appends middleware applied to every handler returned by GetHandler.
// The first middleware added is the outermost.
func (r *ToolHandlerRegistry) Use(mw ...Middleware) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.middleware = append(r.middleware, mw...)
}

// GetHandler returns the wrapped handler function for a given tool name
func (r *ToolHandlerRegistry) GetHandler(toolName string) (ToolHandlerFunc, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.handlers[toolName]
	if !ok {
		return nil, fmt.Errorf("no handler registered for tool: %s", toolName)
	}
	for i := len(r.middleware) - 1; i >= 0; i-- {
		h = r.middleware[i](toolName, h)
	}
	return h, nil
}

// Names returns the registered tool names in sorted order
func (r *ToolHandlerRegistry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.handlers))
	for name := range r.handlers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
