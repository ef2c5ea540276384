package tools

import (
	"context"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
)

func TestRegisterAndGet(t *testing.T) {
	const (
		toolA = "session.select"
		toolB = "dashboard.view"
	)

	called := false
	handler := func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		called = true
		return mcp.NewToolResultText("ok"), nil
	}

	r := NewToolHandlerRegistry(map[string]ToolHandlerFunc{toolA: handler})

	h, err := r.GetHandler(toolA)
	if err != nil {
		t.Fatalf("expected handler, got error: %v", err)
	}

	var req mcp.CallToolRequest
	res, err := h(context.Background(), req)
	if err != nil {
		t.Fatalf("handler returned error: %v", err)
	}
	if res == nil {
		t.Fatalf("expected non-nil result")
	}
	if !called {
		t.Fatalf("expected handler to be called")
	}

	r.Register(toolB, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return mcp.NewToolResultText("ok2"), nil
	})

	names := r.Names()
	if len(names) != 2 {
		t.Fatalf("expected 2 handlers, got %d", len(names))
	}
	if names[0] != toolB || names[1] != toolA {
		t.Fatalf("expected sorted names [%s %s], got %v", toolB, toolA, names)
	}
}

func TestMissingHandler(t *testing.T) {
	r := NewToolHandlerRegistry(nil)
	if _, err := r.GetHandler("nope"); err == nil {
		t.Fatalf("expected error for missing handler")
	}
}

func TestMiddlewareOrder(t *testing.T) {
	var order []string
	trace := func(label string) Middleware {
		return func(name string, next ToolHandlerFunc) ToolHandlerFunc {
			return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
				order = append(order, label+":"+name)
				return next(ctx, req)
			}
		}
	}

	r := NewToolHandlerRegistry(map[string]ToolHandlerFunc{
		"session.get": func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			order = append(order, "handler")
			return mcp.NewToolResultText("ok"), nil
		},
	})
	r.Use(trace("outer"), trace("inner"))

	h, err := r.GetHandler("session.get")
	if err != nil {
		t.Fatalf("expected handler, got error: %v", err)
	}
	if _, err := h(context.Background(), mcp.CallToolRequest{}); err != nil {
		t.Fatalf("handler returned error: %v", err)
	}

	want := []string{"outer:session.get", "inner:session.get", "handler"}
	if len(order) != len(want) {
		t.Fatalf("expected %v, got %v", want, order)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Errorf("expected step %d to be %s, got %s", i, want[i], order[i])
		}
	}
}
