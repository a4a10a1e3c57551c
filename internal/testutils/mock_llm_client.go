// Package testutils provides deterministic test doubles for the
// evaluation pipeline: a scripted LLM client and a scripted MCP tool
// session.
package testutils

import (
	"context"
	"sync"

	"github.com/akshay5995/mcpevals/internal/ports"
)

// MockLLMClient implements ports.LLMClient with scripted responses.
// Chat responses are consumed in order, so a test can script a model
// that first requests tool calls and then produces a final answer.
// All methods are safe for concurrent use.
type MockLLMClient struct {
	mu sync.Mutex

	model string

	// chatQueue is consumed one response per Chat call.
	chatQueue []ports.ChatResponse
	// chatErr, when set, fails every Chat call.
	chatErr error

	// completeQueue is consumed one response per Complete call. When the
	// queue drains, CompleteDefault is returned.
	completeQueue   []string
	CompleteDefault string
	// completeErr, when set, fails every Complete call.
	completeErr error

	// ChatCalls records the message history of every Chat invocation.
	ChatCalls [][]ports.ChatMessage
	// CompletePrompts records every prompt passed to Complete.
	CompletePrompts []string
}

// NewMockLLMClient creates a scripted client reporting the given model.
func NewMockLLMClient(model string) *MockLLMClient {
	return &MockLLMClient{model: model}
}

// QueueChat appends responses to the Chat script.
func (m *MockLLMClient) QueueChat(responses ...ports.ChatResponse) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.chatQueue = append(m.chatQueue, responses...)
}

// QueueComplete appends responses to the Complete script.
func (m *MockLLMClient) QueueComplete(responses ...string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.completeQueue = append(m.completeQueue, responses...)
}

// FailChat makes every subsequent Chat call return err.
func (m *MockLLMClient) FailChat(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.chatErr = err
}

// FailComplete makes every subsequent Complete call return err.
func (m *MockLLMClient) FailComplete(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.completeErr = err
}

// Chat consumes the next scripted response. A drained script yields an
// empty final answer, ending any tool call loop.
func (m *MockLLMClient) Chat(ctx context.Context, messages []ports.ChatMessage, tools []ports.ToolSpec, options map[string]any) (ports.ChatResponse, error) {
	if ctx.Err() != nil {
		return ports.ChatResponse{}, ctx.Err()
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	recorded := make([]ports.ChatMessage, len(messages))
	copy(recorded, messages)
	m.ChatCalls = append(m.ChatCalls, recorded)

	if m.chatErr != nil {
		return ports.ChatResponse{}, m.chatErr
	}
	if len(m.chatQueue) == 0 {
		return ports.ChatResponse{Content: ""}, nil
	}
	resp := m.chatQueue[0]
	m.chatQueue = m.chatQueue[1:]
	return resp, nil
}

// Complete consumes the next scripted completion.
func (m *MockLLMClient) Complete(ctx context.Context, prompt string, options map[string]any) (string, error) {
	if ctx.Err() != nil {
		return "", ctx.Err()
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.CompletePrompts = append(m.CompletePrompts, prompt)

	if m.completeErr != nil {
		return "", m.completeErr
	}
	if len(m.completeQueue) == 0 {
		return m.CompleteDefault, nil
	}
	resp := m.completeQueue[0]
	m.completeQueue = m.completeQueue[1:]
	return resp, nil
}

// GetModel returns the configured mock model name.
func (m *MockLLMClient) GetModel() string { return m.model }

var _ ports.LLMClient = (*MockLLMClient)(nil)
