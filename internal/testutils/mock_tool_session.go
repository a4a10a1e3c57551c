package testutils

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/akshay5995/mcpevals/internal/ports"
)

// ToolHandler computes the result of one mocked tool call.
type ToolHandler func(args map[string]any) (ports.ToolResult, error)

// RecordedCall captures one CallTool invocation.
type RecordedCall struct {
	Name string
	Args map[string]any
}

// MockToolSession implements ports.ToolSession with handler functions per
// tool. Unknown tools return an error-marked result, mirroring how MCP
// servers report bad tool names. Safe for concurrent use.
type MockToolSession struct {
	mu sync.Mutex

	tools    []ports.ToolSpec
	handlers map[string]ToolHandler

	// CallDelay is slept before each tool call, for timeout tests.
	CallDelay time.Duration
	// listErr, when set, fails ListTools.
	listErr error

	// Calls records every CallTool invocation in order.
	Calls []RecordedCall
	// CloneCount tracks how many sessions were cloned off this one.
	CloneCount int
	// Closed reports whether Close was called.
	Closed bool
}

// NewMockToolSession creates an empty session; register tools with
// AddTool.
func NewMockToolSession() *MockToolSession {
	return &MockToolSession{handlers: make(map[string]ToolHandler)}
}

// AddTool registers a tool spec and its handler.
func (m *MockToolSession) AddTool(spec ports.ToolSpec, handler ToolHandler) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tools = append(m.tools, spec)
	m.handlers[spec.Name] = handler
}

// AddSimpleTool registers a tool that always returns the given text.
func (m *MockToolSession) AddSimpleTool(name, output string) {
	m.AddTool(ports.ToolSpec{Name: name}, func(map[string]any) (ports.ToolResult, error) {
		return ports.ToolResult{Text: output}, nil
	})
}

// FailListTools makes ListTools return err.
func (m *MockToolSession) FailListTools(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listErr = err
}

// ListTools returns the registered tool specs.
func (m *MockToolSession) ListTools(ctx context.Context) ([]ports.ToolSpec, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.listErr != nil {
		return nil, m.listErr
	}
	out := make([]ports.ToolSpec, len(m.tools))
	copy(out, m.tools)
	return out, nil
}

// CallTool dispatches to the registered handler, honoring CallDelay and
// context cancellation.
func (m *MockToolSession) CallTool(ctx context.Context, name string, args map[string]any) (ports.ToolResult, error) {
	m.mu.Lock()
	m.Calls = append(m.Calls, RecordedCall{Name: name, Args: args})
	handler, ok := m.handlers[name]
	delay := m.CallDelay
	m.mu.Unlock()

	if delay > 0 {
		select {
		case <-ctx.Done():
			return ports.ToolResult{}, ctx.Err()
		case <-time.After(delay):
		}
	}
	if ctx.Err() != nil {
		return ports.ToolResult{}, ctx.Err()
	}

	if !ok {
		return ports.ToolResult{Text: fmt.Sprintf("unknown tool: %s", name), IsError: true}, nil
	}
	return handler(args)
}

// Clone returns the same session and counts the clone; mock state is
// shared so tests can assert over all calls regardless of execution mode.
func (m *MockToolSession) Clone(ctx context.Context) (ports.ToolSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.CloneCount++
	return m, nil
}

// Close marks the session closed.
func (m *MockToolSession) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Closed = true
	return nil
}

var _ ports.ToolSession = (*MockToolSession)(nil)
