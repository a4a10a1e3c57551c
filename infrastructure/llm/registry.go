package llm

import (
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/akshay5995/mcpevals/internal/ports"
)

// Registry manages clients across the supported providers. It resolves
// "provider/model" specifications, pulls API keys from provider-named
// environment variables unless overridden, and caches clients per
// provider/model pair.
type Registry struct {
	providers         map[string]ProviderConfig
	clients           map[string]ports.LLMClient
	defaultMiddleware []Middleware
	defaultTimeout    time.Duration
	mu                sync.RWMutex
}

// ProviderConfig holds provider-specific settings, overriding registry
// defaults for one provider.
type ProviderConfig struct {
	// Type names the registered provider implementation.
	Type string
	// EnvVar is the environment variable holding the API key.
	EnvVar string
	// DefaultModel is used when a spec names only the provider.
	DefaultModel string
	// BaseURL overrides the provider's default endpoint.
	BaseURL string
	// Middleware is appended after the registry's default middleware.
	Middleware []Middleware
}

// RegistryConfig configures a Registry.
type RegistryConfig struct {
	// Providers maps provider names to their configurations. Nil selects
	// DefaultProviders.
	Providers map[string]ProviderConfig
	// DefaultTimeout bounds requests for all created clients.
	DefaultTimeout time.Duration
	// DefaultMiddleware is applied to every created client, first entry
	// outermost.
	DefaultMiddleware []Middleware
}

// DefaultProviders wires the standard provider set with conventional
// environment variables.
var DefaultProviders = map[string]ProviderConfig{
	"openai": {
		Type:         "openai",
		EnvVar:       "OPENAI_API_KEY",
		DefaultModel: "gpt-4o",
	},
	"anthropic": {
		Type:         "anthropic",
		EnvVar:       "ANTHROPIC_API_KEY",
		DefaultModel: "claude-sonnet-4-20250514",
	},
	"google": {
		Type:         "google",
		EnvVar:       "GOOGLE_API_KEY",
		DefaultModel: "gemini-2.5-flash",
	},
}

// NewRegistry creates a registry over the given provider set.
func NewRegistry(config RegistryConfig) *Registry {
	providers := config.Providers
	if providers == nil {
		providers = DefaultProviders
	}
	return &Registry{
		providers:         providers,
		clients:           make(map[string]ports.LLMClient),
		defaultMiddleware: config.DefaultMiddleware,
		defaultTimeout:    config.DefaultTimeout,
	}
}

// GetClient retrieves a client for a "provider" or "provider/model"
// specification, creating it lazily with the API key from the provider's
// environment variable.
func (r *Registry) GetClient(spec string) (ports.LLMClient, error) {
	return r.GetClientWithKey(spec, "")
}

// GetClientWithKey is GetClient with an explicit API key that takes
// precedence over the provider's environment variable.
func (r *Registry) GetClientWithKey(spec, apiKey string) (ports.LLMClient, error) {
	if spec == "" {
		return nil, fmt.Errorf("provider specification cannot be empty")
	}

	provider, model := r.parseSpec(spec)
	key := provider + "/" + model

	r.mu.RLock()
	if client, ok := r.clients[key]; ok {
		r.mu.RUnlock()
		return client, nil
	}
	r.mu.RUnlock()

	r.mu.Lock()
	defer r.mu.Unlock()
	if client, ok := r.clients[key]; ok {
		return client, nil
	}

	client, err := r.createClient(provider, model, apiKey)
	if err != nil {
		return nil, err
	}
	r.clients[key] = client
	return client, nil
}

func (r *Registry) parseSpec(spec string) (provider, model string) {
	parts := strings.SplitN(spec, "/", 2)
	provider = parts[0]
	if len(parts) > 1 {
		model = parts[1]
	} else if providerConfig, ok := r.providers[provider]; ok {
		model = providerConfig.DefaultModel
	}
	return
}

func (r *Registry) createClient(provider, model, apiKey string) (ports.LLMClient, error) {
	providerConfig, ok := r.providers[provider]
	if !ok {
		return nil, fmt.Errorf("unknown provider %q", provider)
	}

	if apiKey == "" {
		apiKey = os.Getenv(providerConfig.EnvVar)
	}
	if apiKey == "" {
		return nil, fmt.Errorf("%s environment variable not set for provider %q",
			providerConfig.EnvVar, provider)
	}

	config := ClientConfig{
		APIKey:  apiKey,
		Model:   model,
		BaseURL: providerConfig.BaseURL,
		Timeout: r.defaultTimeout,
	}
	config.Middleware = append([]Middleware{}, r.defaultMiddleware...)
	config.Middleware = append(config.Middleware, providerConfig.Middleware...)

	return NewClient(providerConfig.Type, config)
}
