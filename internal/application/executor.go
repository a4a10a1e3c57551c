package application

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/akshay5995/mcpevals/internal/domain"
	"github.com/akshay5995/mcpevals/internal/ports"
)

// systemPrompt frames the driving model as an MCP tool user.
const systemPrompt = "You are an assistant with access to MCP (Model Context Protocol) tools.\n" +
	"Use the available tools to help answer the user's questions. Be thorough and provide helpful responses."

// TurnExecutor drives one evaluation case against an MCP server: it feeds
// the scripted turns to the model, executes the tool calls the model
// requests, and records everything in a transcript.
type TurnExecutor struct {
	llm     ports.LLMClient
	session ports.ToolSession

	// maxToolCalls bounds consecutive model responses containing tool
	// calls within a single user turn.
	maxToolCalls int
	// abortOnToolError ends the case at the first failed tool call
	// instead of feeding the error back to the model.
	abortOnToolError bool

	metrics ports.MetricsCollector
	logger  *slog.Logger
}

// ExecutorOption configures a TurnExecutor.
type ExecutorOption func(*TurnExecutor)

// WithMetrics records tool call latency and outcomes through the
// collector.
func WithMetrics(collector ports.MetricsCollector) ExecutorOption {
	return func(e *TurnExecutor) { e.metrics = collector }
}

// WithToolErrorPolicy sets the PolicyContinue or PolicyAbort behavior.
func WithToolErrorPolicy(policy string) ExecutorOption {
	return func(e *TurnExecutor) { e.abortOnToolError = policy == PolicyAbort }
}

// WithMaxToolCalls overrides the tool call depth bound.
func WithMaxToolCalls(n int) ExecutorOption {
	return func(e *TurnExecutor) {
		if n > 0 {
			e.maxToolCalls = n
		}
	}
}

// NewTurnExecutor creates an executor over a driving model and a live
// server session.
func NewTurnExecutor(llm ports.LLMClient, session ports.ToolSession, logger *slog.Logger, opts ...ExecutorOption) *TurnExecutor {
	e := &TurnExecutor{
		llm:          llm,
		session:      session,
		maxToolCalls: DefaultMaxToolCalls,
		logger:       logger,
	}
	if e.logger == nil {
		e.logger = slog.Default()
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Execute runs the case's conversation to completion. The returned
// transcript holds everything captured up to the point of failure, so
// callers can report partial progress even when err is non-nil.
func (e *TurnExecutor) Execute(ctx context.Context, c domain.EvaluationCase) (domain.Transcript, error) {
	transcript := domain.NewTranscript(c.Name)

	tools, err := e.session.ListTools(ctx)
	if err != nil {
		return transcript, fmt.Errorf("failed to list server tools: %w", err)
	}

	messages := []ports.ChatMessage{{Role: "system", Content: systemPrompt}}

	for _, turn := range c.ConversationTurns() {
		switch turn.Role {
		case domain.RoleAssistant:
			// Scripted assistant turns seed context without a model call.
			messages = append(messages, ports.ChatMessage{Role: "assistant", Content: turn.Content})
			transcript.AppendMessage("assistant", turn.Content)
		case domain.RoleUser:
			messages = append(messages, ports.ChatMessage{Role: "user", Content: turn.Content})
			transcript.AppendMessage("user", turn.Content)
			messages, err = e.completeTurn(ctx, messages, tools, &transcript)
			if err != nil {
				return transcript, err
			}
		}
	}

	return transcript, nil
}

// completeTurn calls the model until it answers without requesting tools,
// executing requested tool calls in between. The depth bound guards
// against models that loop on tool calls indefinitely.
func (e *TurnExecutor) completeTurn(
	ctx context.Context,
	messages []ports.ChatMessage,
	tools []ports.ToolSpec,
	transcript *domain.Transcript,
) ([]ports.ChatMessage, error) {
	for depth := 0; depth <= e.maxToolCalls; depth++ {
		resp, err := e.llm.Chat(ctx, messages, tools, nil)
		if err != nil {
			return messages, fmt.Errorf("model request failed: %w", err)
		}

		if len(resp.ToolCalls) == 0 {
			messages = append(messages, ports.ChatMessage{Role: "assistant", Content: resp.Content})
			transcript.AppendMessage("assistant", resp.Content)
			return messages, nil
		}

		if depth == e.maxToolCalls {
			return messages, fmt.Errorf("%w: %d consecutive tool call rounds", domain.ErrToolLoopExceeded, e.maxToolCalls)
		}

		messages = append(messages, ports.ChatMessage{
			Role:      "assistant",
			Content:   resp.Content,
			ToolCalls: resp.ToolCalls,
		})
		if resp.Content != "" {
			transcript.AppendMessage("assistant", resp.Content)
		}

		for _, call := range resp.ToolCalls {
			result, err := e.executeToolCall(ctx, call, transcript)
			if err != nil {
				return messages, err
			}
			messages = append(messages, ports.ChatMessage{
				Role:       "tool",
				Content:    result,
				ToolCallID: call.ID,
			})
		}
	}

	return messages, fmt.Errorf("%w: %d consecutive tool call rounds", domain.ErrToolLoopExceeded, e.maxToolCalls)
}

// executeToolCall invokes one tool, records the invocation, and returns
// the content to feed back to the model. Failed calls return an error
// description instead of failing the case unless the abort policy is set.
func (e *TurnExecutor) executeToolCall(ctx context.Context, call ports.ToolCall, transcript *domain.Transcript) (string, error) {
	var args map[string]any
	if len(call.Arguments) > 0 {
		if err := json.Unmarshal(call.Arguments, &args); err != nil {
			e.logger.Warn("malformed tool arguments", "tool", call.Name, "error", err)
		}
	}

	start := time.Now()
	result, err := e.session.CallTool(ctx, call.Name, args)
	latency := time.Since(start)

	inv := domain.ToolInvocation{
		Name:      call.Name,
		Arguments: args,
		Latency:   latency,
	}

	var failure string
	switch {
	case err != nil:
		failure = err.Error()
	case result.IsError:
		failure = result.Text
	default:
		inv.Output = result.Text
	}

	if failure != "" {
		inv.Error = failure
	}
	transcript.AppendInvocation(inv)
	e.recordToolMetrics(call.Name, latency, failure == "")

	if failure != "" {
		e.logger.Warn("tool call failed", "tool", call.Name, "error", failure)
		if e.abortOnToolError {
			return "", fmt.Errorf("tool %s failed: %s", call.Name, failure)
		}
		return "Error calling tool: " + failure, nil
	}

	e.logger.Debug("tool call succeeded", "tool", call.Name, "latency", latency)
	return result.Text, nil
}

func (e *TurnExecutor) recordToolMetrics(tool string, latency time.Duration, success bool) {
	if e.metrics == nil {
		return
	}
	status := "error"
	if success {
		status = "success"
	}
	labels := map[string]string{"tool": tool, "status": status}
	e.metrics.RecordLatency("tool_call", latency, labels)
	e.metrics.RecordCounter("tool_calls_total", 1, labels)
}
