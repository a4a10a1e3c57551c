package llm

import (
	"context"
	"time"

	"github.com/akshay5995/mcpevals/internal/ports"
)

// timeoutMiddleware bounds each request with a context deadline.
type timeoutMiddleware struct {
	next    CoreLLM
	timeout time.Duration
}

// TimeoutMiddleware returns middleware that applies a per-request timeout.
// A non-positive timeout disables the bound.
func TimeoutMiddleware(timeout time.Duration) Middleware {
	return func(next CoreLLM) CoreLLM {
		return &timeoutMiddleware{next: next, timeout: timeout}
	}
}

func (m *timeoutMiddleware) DoChat(ctx context.Context, req ChatRequest) (ports.ChatResponse, error) {
	if m.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.timeout)
		defer cancel()
	}
	return m.next.DoChat(ctx, req)
}

func (m *timeoutMiddleware) GetModel() string { return m.next.GetModel() }

func (m *timeoutMiddleware) SetModel(model string) { m.next.SetModel(model) }
