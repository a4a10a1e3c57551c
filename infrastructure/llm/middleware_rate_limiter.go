package llm

import (
	"context"

	"golang.org/x/time/rate"

	"github.com/akshay5995/mcpevals/internal/ports"
)

type rateLimiterMiddleware struct {
	next    CoreLLM
	limiter *rate.Limiter
}

// RateLimiterMiddleware returns middleware that throttles requests to the
// given rate, blocking until a token is available or the context is done.
// Parallel case execution shares one limiter per client, so provider rate
// limits hold across goroutines.
func RateLimiterMiddleware(rps float64, burst int) Middleware {
	limiter := rate.NewLimiter(rate.Limit(rps), burst)
	return func(next CoreLLM) CoreLLM {
		return &rateLimiterMiddleware{next: next, limiter: limiter}
	}
}

func (m *rateLimiterMiddleware) DoChat(ctx context.Context, req ChatRequest) (ports.ChatResponse, error) {
	if err := m.limiter.Wait(ctx); err != nil {
		return ports.ChatResponse{}, err
	}
	return m.next.DoChat(ctx, req)
}

func (m *rateLimiterMiddleware) GetModel() string { return m.next.GetModel() }

func (m *rateLimiterMiddleware) SetModel(model string) { m.next.SetModel(model) }
