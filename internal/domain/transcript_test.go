package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTranscriptRecording(t *testing.T) {
	tr := NewTranscript("case1")
	require.NotEmpty(t, tr.RunID)
	assert.Equal(t, "case1", tr.CaseName)

	tr.AppendMessage("user", "What is 2+2?")
	tr.AppendInvocation(ToolInvocation{Name: "add", Output: "4", Latency: 5 * time.Millisecond})
	tr.AppendInvocation(ToolInvocation{Name: "add", Error: "overflow", Latency: 3 * time.Millisecond})
	tr.AppendMessage("assistant", "The answer is 4.")

	assert.Equal(t, []string{"add", "add"}, tr.ToolsUsed())
	assert.Equal(t, 1, tr.FailedToolCalls())
	assert.Equal(t, 8*time.Millisecond, tr.ToolLatencyTotal())
	assert.Equal(t, "The answer is 4.", tr.FinalResponse())

	// Ordinals are assigned in call order.
	assert.Equal(t, 0, tr.Events[1].Invocation.Ordinal)
	assert.Equal(t, 1, tr.Events[2].Invocation.Ordinal)
}

func TestTranscriptFinalResponseEmpty(t *testing.T) {
	tr := NewTranscript("x")
	tr.AppendMessage("user", "hello")
	assert.Empty(t, tr.FinalResponse())
}

func TestTranscriptRender(t *testing.T) {
	tr := NewTranscript("x")
	tr.AppendMessage("user", "Add 2 and 3.")
	tr.AppendInvocation(ToolInvocation{
		Name:      "add",
		Arguments: map[string]any{"b": 3, "a": 2},
		Output:    "5",
	})
	tr.AppendInvocation(ToolInvocation{
		Name:  "divide",
		Error: "division by zero",
	})
	tr.AppendMessage("assistant", "The result is 5.")

	rendered := tr.Render()
	assert.Contains(t, rendered, "User: Add 2 and 3.")
	// Arguments render in sorted key order for determinism.
	assert.Contains(t, rendered, "[tool call 1] add(a=2, b=3) -> 5")
	assert.Contains(t, rendered, "[tool call 2] divide() -> error: division by zero")
	assert.Contains(t, rendered, "Assistant: The result is 5.")
}
