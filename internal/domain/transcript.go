package domain

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Message is one conversational message in a transcript.
type Message struct {
	Role    string
	Content string
}

// ToolInvocation records one tool call made against the server during a
// case run. Exactly one of Output or Error is meaningful: a server-side
// tool failure carries the error payload and leaves Output empty. Appended
// by the turn executor as the server responds; immutable once appended.
type ToolInvocation struct {
	Name      string
	Arguments map[string]any
	Output    string
	Error     string
	Latency   time.Duration
	Ordinal   int
}

// Failed reports whether the invocation ended in a server-side error.
func (ti ToolInvocation) Failed() bool { return ti.Error != "" }

// Event is one entry in a transcript: either a message or a tool
// invocation, never both.
type Event struct {
	Message    *Message
	Invocation *ToolInvocation
}

// Transcript is the ordered record of one case's conversation and tool
// calls. It is owned exclusively by the turn executor while the case runs,
// then handed by value to the judge and treated as read-only.
type Transcript struct {
	RunID    string
	CaseName string
	Events   []Event
}

// NewTranscript creates an empty transcript for the named case with a
// fresh run identifier.
func NewTranscript(caseName string) Transcript {
	return Transcript{RunID: uuid.NewString(), CaseName: caseName}
}

// AppendMessage records a conversational message.
func (t *Transcript) AppendMessage(role, content string) {
	t.Events = append(t.Events, Event{Message: &Message{Role: role, Content: content}})
}

// AppendInvocation records a tool invocation, assigning its ordinal
// position among the transcript's tool calls.
func (t *Transcript) AppendInvocation(inv ToolInvocation) {
	inv.Ordinal = t.toolCallCount()
	t.Events = append(t.Events, Event{Invocation: &inv})
}

func (t *Transcript) toolCallCount() int {
	n := 0
	for _, e := range t.Events {
		if e.Invocation != nil {
			n++
		}
	}
	return n
}

// ToolsUsed returns the names of all invoked tools in call order,
// including repeats.
func (t Transcript) ToolsUsed() []string {
	var names []string
	for _, e := range t.Events {
		if e.Invocation != nil {
			names = append(names, e.Invocation.Name)
		}
	}
	return names
}

// FailedToolCalls counts invocations that ended in a server-side error.
func (t Transcript) FailedToolCalls() int {
	n := 0
	for _, e := range t.Events {
		if e.Invocation != nil && e.Invocation.Failed() {
			n++
		}
	}
	return n
}

// ToolLatencyTotal sums the latency of every tool invocation.
func (t Transcript) ToolLatencyTotal() time.Duration {
	var total time.Duration
	for _, e := range t.Events {
		if e.Invocation != nil {
			total += e.Invocation.Latency
		}
	}
	return total
}

// FinalResponse returns the content of the last assistant message, or an
// empty string when the conversation produced none.
func (t Transcript) FinalResponse() string {
	for i := len(t.Events) - 1; i >= 0; i-- {
		if m := t.Events[i].Message; m != nil && m.Role == "assistant" {
			return m.Content
		}
	}
	return ""
}

// Render serializes the transcript to readable text for embedding in the
// judge prompt: messages as "Role: content" lines and tool invocations
// with their arguments and outcome.
func (t Transcript) Render() string {
	var b strings.Builder
	for _, e := range t.Events {
		switch {
		case e.Message != nil:
			fmt.Fprintf(&b, "%s: %s\n", titleRole(e.Message.Role), e.Message.Content)
		case e.Invocation != nil:
			inv := e.Invocation
			fmt.Fprintf(&b, "[tool call %d] %s(%s)", inv.Ordinal+1, inv.Name, renderArgs(inv.Arguments))
			if inv.Failed() {
				fmt.Fprintf(&b, " -> error: %s\n", inv.Error)
			} else {
				fmt.Fprintf(&b, " -> %s\n", inv.Output)
			}
		}
	}
	return b.String()
}

func titleRole(role string) string {
	if role == "" {
		return role
	}
	return strings.ToUpper(role[:1]) + role[1:]
}

func renderArgs(args map[string]any) string {
	if len(args) == 0 {
		return ""
	}
	keys := make([]string, 0, len(args))
	for k := range args {
		keys = append(keys, k)
	}
	// Stable order keeps rendered transcripts deterministic for the judge.
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%v", k, args[k]))
	}
	return strings.Join(parts, ", ")
}
