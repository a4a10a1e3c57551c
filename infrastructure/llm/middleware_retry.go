package llm

import (
	"context"
	"errors"
	"math/rand"
	"time"

	"github.com/akshay5995/mcpevals/internal/ports"
)

// RetryConfig controls the retry middleware's backoff behavior.
type RetryConfig struct {
	// MaxAttempts is the total number of attempts, including the first.
	MaxAttempts int
	// InitialDelay is the backoff before the first retry.
	InitialDelay time.Duration
	// MaxDelay caps the exponential backoff.
	MaxDelay time.Duration
	// Multiplier scales the delay between attempts.
	Multiplier float64
}

// DefaultRetryConfig retries transient failures three times with jittered
// exponential backoff.
var DefaultRetryConfig = RetryConfig{
	MaxAttempts:  3,
	InitialDelay: 500 * time.Millisecond,
	MaxDelay:     10 * time.Second,
	Multiplier:   2.0,
}

type retryMiddleware struct {
	next   CoreLLM
	config RetryConfig
}

// RetryMiddleware returns middleware that retries requests failing with a
// retryable ProviderError. Authentication and bad-request failures are
// returned immediately.
func RetryMiddleware(config RetryConfig) Middleware {
	if config.MaxAttempts <= 0 {
		config.MaxAttempts = DefaultRetryConfig.MaxAttempts
	}
	if config.InitialDelay <= 0 {
		config.InitialDelay = DefaultRetryConfig.InitialDelay
	}
	if config.MaxDelay <= 0 {
		config.MaxDelay = DefaultRetryConfig.MaxDelay
	}
	if config.Multiplier <= 1 {
		config.Multiplier = DefaultRetryConfig.Multiplier
	}
	return func(next CoreLLM) CoreLLM {
		return &retryMiddleware{next: next, config: config}
	}
}

func (m *retryMiddleware) DoChat(ctx context.Context, req ChatRequest) (ports.ChatResponse, error) {
	var lastErr error
	delay := m.config.InitialDelay

	for attempt := 0; attempt < m.config.MaxAttempts; attempt++ {
		if attempt > 0 {
			// Jitter spreads concurrent retries apart.
			jittered := delay + time.Duration(rand.Int63n(int64(delay)/2+1))
			select {
			case <-ctx.Done():
				return ports.ChatResponse{}, ctx.Err()
			case <-time.After(jittered):
			}
			delay = time.Duration(float64(delay) * m.config.Multiplier)
			if delay > m.config.MaxDelay {
				delay = m.config.MaxDelay
			}
		}

		resp, err := m.next.DoChat(ctx, req)
		if err == nil {
			return resp, nil
		}
		lastErr = err

		var provErr *ProviderError
		if !errors.As(err, &provErr) || !provErr.IsRetryable() {
			return ports.ChatResponse{}, err
		}
		if ctx.Err() != nil {
			return ports.ChatResponse{}, err
		}
	}

	return ports.ChatResponse{}, lastErr
}

func (m *retryMiddleware) GetModel() string { return m.next.GetModel() }

func (m *retryMiddleware) SetModel(model string) { m.next.SetModel(model) }
