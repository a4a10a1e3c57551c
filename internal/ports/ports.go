// Package ports defines the interfaces that connect the evaluation engine
// to its infrastructure: LLM providers, MCP tool sessions, and metrics
// backends. Implementations live under infrastructure/ so the engine can be
// tested with in-memory fakes.
package ports

import (
	"context"
	"encoding/json"
	"time"
)

// ChatMessage is one entry in a provider-agnostic conversation history.
// Role is one of "system", "user", "assistant", or "tool". Tool result
// messages carry the ToolCallID of the call they answer; assistant messages
// may carry the tool calls the model proposed alongside (or instead of)
// text content.
type ChatMessage struct {
	Role       string
	Content    string
	ToolCalls  []ToolCall
	ToolCallID string
}

// ToolCall is a function invocation proposed by the model. Arguments is the
// raw JSON argument object exactly as the provider returned it; callers
// decode it when dispatching to the tool server.
type ToolCall struct {
	ID        string
	Name      string
	Arguments json.RawMessage
}

// ToolSpec declares a callable tool to the model. InputSchema is a JSON
// Schema object describing the tool's argument structure.
type ToolSpec struct {
	Name        string
	Description string
	InputSchema map[string]any
}

// ChatResponse is the model's reply to a chat request. A response with an
// empty ToolCalls slice is a final text answer; a non-empty slice means the
// model wants tools invoked before it can continue.
type ChatResponse struct {
	Content   string
	ToolCalls []ToolCall
	TokensIn  int
	TokensOut int
}

// LLMClient is the provider-agnostic surface the engine drives models
// through. Chat powers the conversational tool-call loop; Complete is the
// single-prompt path used by the judge.
//
// The options map carries provider-tunable parameters without widening the
// interface. Recognized keys include "temperature" (float64), "max_tokens"
// (int), and "json_response" (bool, for providers that support constrained
// JSON output). Providers ignore keys they do not understand.
type LLMClient interface {
	// Chat sends the full conversation history plus the available tool
	// catalog and returns the model's next message.
	Chat(ctx context.Context, messages []ChatMessage, tools []ToolSpec, options map[string]any) (ChatResponse, error)

	// Complete sends a standalone prompt with no tool access and returns
	// the generated text.
	Complete(ctx context.Context, prompt string, options map[string]any) (string, error)

	// GetModel returns the model identifier this client is configured for.
	GetModel() string
}

// ToolResult is the outcome of one tool call against the server.
// IsError marks a server-side tool failure that was delivered as a result
// (as opposed to a transport error, which is returned as a Go error).
type ToolResult struct {
	Text    string
	IsError bool
}

// ToolSession is one logical conversation-scoped connection to an MCP
// server. A session must never be written to by two cases concurrently;
// parallel runs obtain an independent session per case via Clone.
type ToolSession interface {
	// ListTools returns the server's tool catalog.
	ListTools(ctx context.Context) ([]ToolSpec, error)

	// CallTool invokes a named tool. A non-nil error indicates a transport
	// or protocol failure; tool-level failures come back as a ToolResult
	// with IsError set so the conversation can react to them.
	CallTool(ctx context.Context, name string, args map[string]any) (ToolResult, error)

	// Clone opens an independent session against the same server, used to
	// give each concurrent case its own connection.
	Clone(ctx context.Context) (ToolSession, error)

	// Close releases the session and, for process-backed transports, the
	// spawned server process.
	Close() error
}

// MetricsCollector abstracts the metrics backend so infrastructure
// middleware can record operational data without binding the engine to a
// specific monitoring system.
type MetricsCollector interface {
	// RecordLatency records the duration of an operation.
	RecordLatency(operation string, duration time.Duration, labels map[string]string)

	// RecordCounter increments a counter metric by value.
	RecordCounter(metric string, value float64, labels map[string]string)
}
