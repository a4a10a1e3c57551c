// Package llm provides a unified client for the LLM providers that drive
// and judge MCP evaluations (OpenAI, Anthropic, Google), behind a common
// chat-with-tools interface with middleware for timeouts, retries, rate
// limiting, metrics, and tracing.
//
// Providers register themselves through init functions; applications create
// clients either directly:
//
//	client, err := llm.NewClient("anthropic", llm.ClientConfig{
//	    APIKey: os.Getenv("ANTHROPIC_API_KEY"),
//	    Model:  "claude-sonnet-4-20250514",
//	})
//
// or through the Registry, which resolves API keys from provider-named
// environment variables.
package llm

import (
	"context"
	"fmt"
	"time"

	"github.com/akshay5995/mcpevals/internal/ports"
)

// ChatRequest is the normalized input passed down the middleware chain to
// a provider: the full conversation history, the tool catalog exposed to
// the model, and provider-tunable options.
type ChatRequest struct {
	Messages []ports.ChatMessage
	Tools    []ports.ToolSpec
	Options  map[string]any
}

// CoreLLM is the minimal surface a provider must implement. Middleware
// wraps any conforming implementation, so cross-cutting behavior composes
// without touching provider logic.
type CoreLLM interface {
	// DoChat sends one chat request and returns the model's next message,
	// including any tool calls it proposed.
	DoChat(ctx context.Context, req ChatRequest) (ports.ChatResponse, error)

	// GetModel returns the configured model name.
	GetModel() string

	// SetModel switches the model for subsequent requests.
	SetModel(model string)
}

// Middleware wraps a CoreLLM to add cross-cutting behavior. Middleware
// listed first in ClientConfig ends up outermost.
type Middleware func(CoreLLM) CoreLLM

// ClientConfig holds everything needed to construct a provider client.
type ClientConfig struct {
	// APIKey authenticates requests to the provider.
	APIKey string

	// Model is the provider-specific model identifier.
	Model string

	// BaseURL overrides the provider's default endpoint when set.
	BaseURL string

	// Timeout bounds individual requests at the HTTP layer where the
	// provider SDK supports it. Zero means no per-request bound here;
	// callers typically add TimeoutMiddleware instead.
	Timeout time.Duration

	// Middleware is applied in order, first entry outermost.
	Middleware []Middleware
}

// Client implements ports.LLMClient over a middleware-wrapped provider.
type Client struct {
	core CoreLLM
}

var _ ports.LLMClient = (*Client)(nil)

// NewClient assembles a provider client with its middleware chain.
func NewClient(providerType string, config ClientConfig) (*Client, error) {
	if config.APIKey == "" {
		return nil, ErrEmptyAPIKey
	}
	if config.Model == "" {
		return nil, fmt.Errorf("model is required")
	}

	factory, ok := providerFactories[providerType]
	if !ok {
		return nil, fmt.Errorf("unknown provider: %s", providerType)
	}

	core, err := factory(config)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s provider: %w", providerType, err)
	}

	// Reverse application keeps the first middleware outermost.
	for i := len(config.Middleware) - 1; i >= 0; i-- {
		core = config.Middleware[i](core)
	}

	return &Client{core: core}, nil
}

// Chat sends the conversation history plus tool catalog to the model.
func (c *Client) Chat(
	ctx context.Context,
	messages []ports.ChatMessage,
	tools []ports.ToolSpec,
	options map[string]any,
) (ports.ChatResponse, error) {
	return c.core.DoChat(ctx, ChatRequest{Messages: messages, Tools: tools, Options: options})
}

// Complete sends a standalone prompt with no tool access and returns the
// generated text. Used by the judge path.
func (c *Client) Complete(ctx context.Context, prompt string, options map[string]any) (string, error) {
	resp, err := c.core.DoChat(ctx, ChatRequest{
		Messages: []ports.ChatMessage{{Role: "user", Content: prompt}},
		Options:  options,
	})
	if err != nil {
		return "", err
	}
	return resp.Content, nil
}

// GetModel returns the model name of the underlying provider.
func (c *Client) GetModel() string { return c.core.GetModel() }

// ProviderFactory creates a CoreLLM from configuration. The registry of
// factories lets providers self-register without the client knowing their
// concrete types.
type ProviderFactory func(ClientConfig) (CoreLLM, error)

var providerFactories = map[string]ProviderFactory{}

// RegisterProviderFactory registers a provider implementation under a
// type name. Called from provider init functions.
func RegisterProviderFactory(providerType string, factory ProviderFactory) {
	providerFactories[providerType] = factory
}
