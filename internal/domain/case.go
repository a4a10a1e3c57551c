// Package domain holds the core types of the MCP evaluation engine:
// evaluation cases, transcripts, scores, per-case and suite results, and
// the pure aggregation over them. Types here carry no I/O; they are
// constructed from configuration at load time and are immutable during a
// run.
package domain

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
)

// validate is the package-level validator shared by all domain types.
// validator.Validate caches struct metadata and is safe for concurrent use.
var validate = validator.New()

// Role identifies the author of a scripted conversation turn.
type Role string

const (
	// RoleUser marks a turn sent to the model as user input.
	RoleUser Role = "user"
	// RoleAssistant marks a scripted assistant turn that is injected into
	// the conversation history without driving the tool-call loop.
	RoleAssistant Role = "assistant"
)

// DefaultThreshold is the minimum passing average applied when a case does
// not declare its own.
const DefaultThreshold = 3.0

// Turn is one scripted step of a multi-turn evaluation case. ExpectedTools
// is a reporting hint only; the engine never enforces it.
type Turn struct {
	Role          Role     `yaml:"role" validate:"required,oneof=user assistant"`
	Content       string   `yaml:"content" validate:"required"`
	ExpectedTools []string `yaml:"expected_tools,omitempty"`
}

// EvaluationCase is one declarative test against the MCP server. Exactly
// one of Prompt or Turns must be set; Turns, when present, is non-empty
// and executed in order within a single continuous conversation.
type EvaluationCase struct {
	Name           string   `yaml:"name" validate:"required,min=1,max=255"`
	Description    string   `yaml:"description,omitempty"`
	Prompt         string   `yaml:"prompt,omitempty"`
	Turns          []Turn   `yaml:"turns,omitempty" validate:"omitempty,dive"`
	ExpectedResult string   `yaml:"expected_result,omitempty"`
	ExpectedTools  []string `yaml:"expected_tools,omitempty"`
	Threshold      float64  `yaml:"threshold,omitempty" validate:"omitempty,min=1,max=5"`
	Tags           []string `yaml:"tags,omitempty"`

	// TimeoutSeconds overrides the suite-level timeout for this case.
	// Zero means inherit the global timeout.
	TimeoutSeconds float64 `yaml:"timeout,omitempty" validate:"omitempty,gt=0"`
}

// Validate checks structural invariants beyond what field tags express:
// the prompt/turns exclusivity and turn ordering requirements.
func (c EvaluationCase) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("case %q: %w", c.Name, err)
	}

	hasPrompt := c.Prompt != ""
	hasTurns := len(c.Turns) > 0
	switch {
	case hasPrompt && hasTurns:
		return fmt.Errorf("case %q: cannot specify both prompt and turns", c.Name)
	case !hasPrompt && !hasTurns:
		return fmt.Errorf("case %q: must specify either prompt or turns", c.Name)
	}

	return nil
}

// IsTrajectory reports whether the case is a scripted multi-turn
// conversation rather than a single prompt.
func (c EvaluationCase) IsTrajectory() bool { return len(c.Turns) > 0 }

// ConversationTurns normalizes the case into its turn sequence: a
// single-prompt case becomes one user turn carrying the case-level
// expected-tools hint.
func (c EvaluationCase) ConversationTurns() []Turn {
	if c.IsTrajectory() {
		return c.Turns
	}
	return []Turn{{Role: RoleUser, Content: c.Prompt, ExpectedTools: c.ExpectedTools}}
}

// EffectiveThreshold returns the case threshold, falling back to
// DefaultThreshold when unset.
func (c EvaluationCase) EffectiveThreshold() float64 {
	if c.Threshold == 0 {
		return DefaultThreshold
	}
	return c.Threshold
}

// EffectiveTimeout resolves the per-case timeout: the case override when
// set, otherwise the suite-level global.
func (c EvaluationCase) EffectiveTimeout(global time.Duration) time.Duration {
	if c.TimeoutSeconds > 0 {
		return time.Duration(c.TimeoutSeconds * float64(time.Second))
	}
	return global
}

// AllExpectedTools collects the expected-tool hints from the case level and
// every turn, deduplicated in first-seen order. Used for reporting and the
// judge prompt only.
func (c EvaluationCase) AllExpectedTools() []string {
	seen := make(map[string]bool)
	var tools []string
	add := func(names []string) {
		for _, n := range names {
			if !seen[n] {
				seen[n] = true
				tools = append(tools, n)
			}
		}
	}
	add(c.ExpectedTools)
	for _, t := range c.Turns {
		add(t.ExpectedTools)
	}
	return tools
}
