package application

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/akshay5995/mcpevals/internal/domain"
	"github.com/akshay5995/mcpevals/internal/ports"
	"github.com/akshay5995/mcpevals/internal/testutils"
)

func addToolSession() *testutils.MockToolSession {
	session := testutils.NewMockToolSession()
	session.AddTool(
		ports.ToolSpec{Name: "add", Description: "Add two numbers"},
		func(args map[string]any) (ports.ToolResult, error) {
			a, _ := args["a"].(float64)
			b, _ := args["b"].(float64)
			return ports.ToolResult{Text: strconv.FormatFloat(a+b, 'f', -1, 64)}, nil
		},
	)
	return session
}

func toolCall(id, name, args string) ports.ToolCall {
	return ports.ToolCall{ID: id, Name: name, Arguments: json.RawMessage(args)}
}

func TestExecutorSinglePrompt(t *testing.T) {
	session := addToolSession()
	client := testutils.NewMockLLMClient("mock")
	client.QueueChat(
		ports.ChatResponse{ToolCalls: []ports.ToolCall{toolCall("c1", "add", `{"a": 15, "b": 27}`)}},
		ports.ChatResponse{Content: "The answer is 42."},
	)

	executor := NewTurnExecutor(client, session, nil)
	c := domain.EvaluationCase{Name: "basic", Prompt: "What is 15 + 27?"}

	transcript, err := executor.Execute(context.Background(), c)
	require.NoError(t, err)

	assert.Equal(t, []string{"add"}, transcript.ToolsUsed())
	assert.Zero(t, transcript.FailedToolCalls())
	assert.Equal(t, "The answer is 42.", transcript.FinalResponse())

	// The server receives the decoded arguments.
	require.Len(t, session.Calls, 1)
	assert.Equal(t, "add", session.Calls[0].Name)
	assert.Equal(t, map[string]any{"a": float64(15), "b": float64(27)}, session.Calls[0].Args)

	// The second model call carries the tool result back.
	require.Len(t, client.ChatCalls, 2)
	first := client.ChatCalls[0]
	require.NotEmpty(t, first)
	assert.Equal(t, "system", first[0].Role)
	last := client.ChatCalls[1][len(client.ChatCalls[1])-1]
	assert.Equal(t, "tool", last.Role)
	assert.Equal(t, "42", last.Content)
	assert.Equal(t, "c1", last.ToolCallID)
}

func TestExecutorMultiTurn(t *testing.T) {
	session := addToolSession()
	client := testutils.NewMockLLMClient("mock")
	client.QueueChat(
		ports.ChatResponse{ToolCalls: []ports.ToolCall{toolCall("c1", "add", `{"a": 10, "b": 5}`)}},
		ports.ChatResponse{Content: "That makes 15."},
		ports.ChatResponse{ToolCalls: []ports.ToolCall{toolCall("c2", "add", `{"a": 15, "b": 15}`)}},
		ports.ChatResponse{Content: "Doubled, it is 30."},
	)

	executor := NewTurnExecutor(client, session, nil)
	c := domain.EvaluationCase{
		Name: "multi",
		Turns: []domain.Turn{
			{Role: domain.RoleUser, Content: "Add 10 and 5."},
			{Role: domain.RoleAssistant, Content: "Noted."},
			{Role: domain.RoleUser, Content: "Now double it."},
		},
	}

	transcript, err := executor.Execute(context.Background(), c)
	require.NoError(t, err)

	assert.Equal(t, []string{"add", "add"}, transcript.ToolsUsed())
	assert.Equal(t, "Doubled, it is 30.", transcript.FinalResponse())
	// The scripted assistant turn is injected without a model call.
	assert.Len(t, client.ChatCalls, 4)
	assert.Len(t, session.Calls, 2)
}

func TestExecutorToolErrorContinues(t *testing.T) {
	session := testutils.NewMockToolSession()
	session.AddTool(ports.ToolSpec{Name: "divide"}, func(map[string]any) (ports.ToolResult, error) {
		return ports.ToolResult{Text: "division by zero", IsError: true}, nil
	})

	client := testutils.NewMockLLMClient("mock")
	client.QueueChat(
		ports.ChatResponse{ToolCalls: []ports.ToolCall{toolCall("c1", "divide", `{"a": 1, "b": 0}`)}},
		ports.ChatResponse{Content: "Division by zero is undefined."},
	)

	executor := NewTurnExecutor(client, session, nil)
	transcript, err := executor.Execute(context.Background(), domain.EvaluationCase{Name: "x", Prompt: "1/0?"})
	require.NoError(t, err)

	assert.Equal(t, 1, transcript.FailedToolCalls())
	assert.Equal(t, "Division by zero is undefined.", transcript.FinalResponse())

	// The failure is fed back to the model as conversation content.
	last := client.ChatCalls[1][len(client.ChatCalls[1])-1]
	assert.Equal(t, "tool", last.Role)
	assert.Equal(t, "Error calling tool: division by zero", last.Content)
}

func TestExecutorToolErrorAborts(t *testing.T) {
	session := testutils.NewMockToolSession()
	session.AddTool(ports.ToolSpec{Name: "divide"}, func(map[string]any) (ports.ToolResult, error) {
		return ports.ToolResult{Text: "division by zero", IsError: true}, nil
	})

	client := testutils.NewMockLLMClient("mock")
	client.QueueChat(ports.ChatResponse{ToolCalls: []ports.ToolCall{toolCall("c1", "divide", `{}`)}})

	executor := NewTurnExecutor(client, session, nil, WithToolErrorPolicy(PolicyAbort))
	transcript, err := executor.Execute(context.Background(), domain.EvaluationCase{Name: "x", Prompt: "1/0?"})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "division by zero")
	// The failed invocation is still recorded before the abort.
	assert.Equal(t, 1, transcript.FailedToolCalls())
}

func TestExecutorToolLoopExceeded(t *testing.T) {
	session := addToolSession()
	client := testutils.NewMockLLMClient("mock")
	for range [5]struct{}{} {
		client.QueueChat(ports.ChatResponse{ToolCalls: []ports.ToolCall{toolCall("c", "add", `{"a": 1, "b": 1}`)}})
	}

	executor := NewTurnExecutor(client, session, nil, WithMaxToolCalls(2))
	transcript, err := executor.Execute(context.Background(), domain.EvaluationCase{Name: "x", Prompt: "loop"})

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrToolLoopExceeded)
	// Two rounds executed before the bound tripped; both are preserved.
	assert.Equal(t, []string{"add", "add"}, transcript.ToolsUsed())
}

func TestExecutorListToolsFailure(t *testing.T) {
	session := testutils.NewMockToolSession()
	session.FailListTools(errors.New("transport closed"))

	executor := NewTurnExecutor(testutils.NewMockLLMClient("mock"), session, nil)
	_, err := executor.Execute(context.Background(), domain.EvaluationCase{Name: "x", Prompt: "p"})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "transport closed")
}

func TestExecutorSecondTurnFailureKeepsFirstTurn(t *testing.T) {
	session := addToolSession()
	client := testutils.NewMockLLMClient("mock")
	client.QueueChat(
		ports.ChatResponse{Content: "That makes 15."},
		ports.ChatResponse{ToolCalls: []ports.ToolCall{toolCall("c1", "missing_tool", `{}`)}},
	)

	executor := NewTurnExecutor(client, session, nil, WithToolErrorPolicy(PolicyAbort))
	c := domain.EvaluationCase{
		Name: "multi",
		Turns: []domain.Turn{
			{Role: domain.RoleUser, Content: "Add 10 and 5."},
			{Role: domain.RoleUser, Content: "Now break."},
		},
	}

	transcript, err := executor.Execute(context.Background(), c)
	require.Error(t, err)

	// Everything captured before the second-turn failure survives.
	assert.Contains(t, transcript.Render(), "That makes 15.")
	assert.Contains(t, transcript.Render(), "Now break.")
	assert.Equal(t, 1, transcript.FailedToolCalls())
}

func TestExecutorModelFailure(t *testing.T) {
	session := addToolSession()
	client := testutils.NewMockLLMClient("mock")
	client.FailChat(errors.New("rate limited"))

	executor := NewTurnExecutor(client, session, nil)
	transcript, err := executor.Execute(context.Background(), domain.EvaluationCase{Name: "x", Prompt: "p"})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "rate limited")
	// The user turn was captured before the failure.
	assert.Len(t, transcript.Events, 1)
}
