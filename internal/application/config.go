// Package application orchestrates MCP server evaluations: it loads suite
// configuration, drives conversations against the server through an LLM,
// scores the resulting transcripts with a judge, and aggregates the
// outcomes.
package application

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/akshay5995/mcpevals/infrastructure/mcpclient"
	"github.com/akshay5995/mcpevals/internal/domain"
)

var validate = validator.New()

// Defaults applied by Config.ApplyDefaults.
const (
	// DefaultTimeoutSeconds bounds each case when neither the suite nor
	// the case sets a timeout.
	DefaultTimeoutSeconds = 60.0
	// DefaultMaxConcurrency bounds parallel case execution.
	DefaultMaxConcurrency = 4
	// MaxConcurrencyLimit caps configured concurrency.
	MaxConcurrencyLimit = 20
	// DefaultMaxToolCalls bounds the tool call loop within one turn.
	DefaultMaxToolCalls = 10
)

// Tool error policies. With PolicyContinue the error text is fed back to
// the model and the conversation proceeds; with PolicyAbort the case ends
// with an error status at the first failing tool call.
const (
	PolicyContinue = "continue"
	PolicyAbort    = "abort"
)

// ModelConfig selects the LLM that drives and judges evaluations.
type ModelConfig struct {
	Provider string `yaml:"provider" validate:"required,oneof=openai anthropic google"`
	Name     string `yaml:"name" validate:"required"`
	// APIKey overrides the provider's environment variable when set.
	APIKey string `yaml:"api_key"`
}

// Spec returns the provider/model string understood by the LLM registry.
func (m ModelConfig) Spec() string { return m.Provider + "/" + m.Name }

// ServerConfig describes the MCP server under evaluation.
type ServerConfig struct {
	Command []string          `yaml:"command"`
	Env     map[string]string `yaml:"env"`
	URL     string            `yaml:"url"`
	Headers map[string]string `yaml:"headers"`
}

// Descriptor converts the config into a connection descriptor.
func (s ServerConfig) Descriptor() mcpclient.Descriptor {
	return mcpclient.Descriptor{
		Command: s.Command,
		Env:     s.Env,
		URL:     s.URL,
		Headers: s.Headers,
	}
}

// Config is the root of an evaluation suite configuration file.
type Config struct {
	Model       ModelConfig             `yaml:"model"`
	Server      ServerConfig            `yaml:"server"`
	Evaluations []domain.EvaluationCase `yaml:"evaluations" validate:"required,min=1"`

	// Timeout is the per-case bound in seconds; cases may override it.
	Timeout float64 `yaml:"timeout" validate:"omitempty,gt=0"`
	// Parallel runs cases concurrently over cloned server sessions.
	Parallel bool `yaml:"parallel"`
	// MaxConcurrency bounds parallel execution.
	MaxConcurrency int `yaml:"max_concurrency" validate:"omitempty,min=1"`
	// MaxToolCalls bounds consecutive tool calls within one turn.
	MaxToolCalls int `yaml:"max_tool_calls" validate:"omitempty,min=1"`
	// ToolErrorPolicy decides whether tool failures abort the case.
	ToolErrorPolicy string `yaml:"tool_error_policy" validate:"omitempty,oneof=continue abort"`
}

// ApplyDefaults fills unset optional fields.
func (c *Config) ApplyDefaults() {
	if c.Timeout == 0 {
		c.Timeout = DefaultTimeoutSeconds
	}
	if c.MaxConcurrency == 0 {
		c.MaxConcurrency = DefaultMaxConcurrency
	}
	if c.MaxConcurrency > MaxConcurrencyLimit {
		c.MaxConcurrency = MaxConcurrencyLimit
	}
	if c.MaxToolCalls == 0 {
		c.MaxToolCalls = DefaultMaxToolCalls
	}
	if c.ToolErrorPolicy == "" {
		c.ToolErrorPolicy = PolicyContinue
	}
}

// Validate checks the whole configuration, including every case and the
// server descriptor, and rejects duplicate case names.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if err := validate.Struct(c.Model); err != nil {
		return fmt.Errorf("invalid model configuration: %w", err)
	}
	if err := c.Server.Descriptor().Validate(); err != nil {
		return err
	}

	seen := make(map[string]struct{}, len(c.Evaluations))
	for i := range c.Evaluations {
		ec := &c.Evaluations[i]
		if err := ec.Validate(); err != nil {
			return fmt.Errorf("evaluation %d (%s): %w", i, ec.Name, err)
		}
		if _, dup := seen[ec.Name]; dup {
			return fmt.Errorf("duplicate evaluation name %q", ec.Name)
		}
		seen[ec.Name] = struct{}{}
	}
	return nil
}

// CaseTimeout returns the suite-level per-case timeout as a duration.
func (c *Config) CaseTimeout() time.Duration {
	return time.Duration(c.Timeout * float64(time.Second))
}
