package llm

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/akshay5995/mcpevals/internal/ports"
)

// stubCore is a scriptable CoreLLM for middleware tests.
type stubCore struct {
	mu       sync.Mutex
	model    string
	calls    int
	response ports.ChatResponse
	errs     []error
	onCall   func(ctx context.Context)
}

func (s *stubCore) DoChat(ctx context.Context, req ChatRequest) (ports.ChatResponse, error) {
	s.mu.Lock()
	call := s.calls
	s.calls++
	s.mu.Unlock()

	if s.onCall != nil {
		s.onCall(ctx)
	}
	if call < len(s.errs) && s.errs[call] != nil {
		return ports.ChatResponse{}, s.errs[call]
	}
	return s.response, nil
}

func (s *stubCore) GetModel() string      { return s.model }
func (s *stubCore) SetModel(model string) { s.model = model }

func (s *stubCore) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func TestTimeoutMiddlewareSetsDeadline(t *testing.T) {
	var sawDeadline bool
	core := &stubCore{
		model: "m",
		onCall: func(ctx context.Context) {
			_, sawDeadline = ctx.Deadline()
		},
	}

	wrapped := TimeoutMiddleware(time.Second)(core)
	_, err := wrapped.DoChat(context.Background(), ChatRequest{})
	require.NoError(t, err)
	assert.True(t, sawDeadline)
}

func TestTimeoutMiddlewareDisabled(t *testing.T) {
	var sawDeadline bool
	core := &stubCore{
		model: "m",
		onCall: func(ctx context.Context) {
			_, sawDeadline = ctx.Deadline()
		},
	}

	wrapped := TimeoutMiddleware(0)(core)
	_, err := wrapped.DoChat(context.Background(), ChatRequest{})
	require.NoError(t, err)
	assert.False(t, sawDeadline)
}

func TestRetryMiddlewareRetriesTransientErrors(t *testing.T) {
	transient := NewProviderError("openai", ErrorTypeRateLimit, 429, "slow down", nil)
	core := &stubCore{
		model:    "m",
		errs:     []error{transient, transient},
		response: ports.ChatResponse{Content: "ok"},
	}

	config := RetryConfig{MaxAttempts: 3, InitialDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond, Multiplier: 2}
	wrapped := RetryMiddleware(config)(core)

	resp, err := wrapped.DoChat(context.Background(), ChatRequest{})
	require.NoError(t, err)
	assert.Equal(t, "ok", resp.Content)
	assert.Equal(t, 3, core.callCount())
}

func TestRetryMiddlewareStopsOnPermanentError(t *testing.T) {
	permanent := NewProviderError("openai", ErrorTypeAuthentication, 401, "bad key", nil)
	core := &stubCore{model: "m", errs: []error{permanent}}

	config := RetryConfig{MaxAttempts: 3, InitialDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond, Multiplier: 2}
	wrapped := RetryMiddleware(config)(core)

	_, err := wrapped.DoChat(context.Background(), ChatRequest{})
	require.Error(t, err)
	var provErr *ProviderError
	require.ErrorAs(t, err, &provErr)
	assert.Equal(t, ErrorTypeAuthentication, provErr.Type)
	assert.Equal(t, 1, core.callCount())
}

func TestRetryMiddlewareExhaustsAttempts(t *testing.T) {
	transient := NewProviderError("openai", ErrorTypeServerError, 503, "down", nil)
	core := &stubCore{model: "m", errs: []error{transient, transient, transient}}

	config := RetryConfig{MaxAttempts: 3, InitialDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond, Multiplier: 2}
	wrapped := RetryMiddleware(config)(core)

	_, err := wrapped.DoChat(context.Background(), ChatRequest{})
	require.Error(t, err)
	assert.Equal(t, 3, core.callCount())
}

func TestRateLimiterMiddlewareHonorsCancellation(t *testing.T) {
	core := &stubCore{model: "m"}
	// One token per hour with burst 1: the second call must block.
	wrapped := RateLimiterMiddleware(1.0/3600, 1)(core)

	_, err := wrapped.DoChat(context.Background(), ChatRequest{})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err = wrapped.DoChat(ctx, ChatRequest{})
	require.Error(t, err)
	assert.Equal(t, 1, core.callCount())
}

type recordingCollector struct {
	mu        sync.Mutex
	latencies []string
	counters  map[string]float64
}

func (r *recordingCollector) RecordLatency(op string, d time.Duration, labels map[string]string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.latencies = append(r.latencies, op)
}

func (r *recordingCollector) RecordCounter(metric string, v float64, labels map[string]string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.counters == nil {
		r.counters = make(map[string]float64)
	}
	r.counters[metric] += v
}

func TestMetricsMiddlewareRecordsTokens(t *testing.T) {
	core := &stubCore{model: "m", response: ports.ChatResponse{Content: "ok", TokensIn: 10, TokensOut: 5}}
	collector := &recordingCollector{}

	wrapped := MetricsMiddleware(collector)(core)
	_, err := wrapped.DoChat(context.Background(), ChatRequest{})
	require.NoError(t, err)

	assert.Equal(t, []string{"llm_request"}, collector.latencies)
	assert.Equal(t, 10.0, collector.counters["llm_tokens_in_total"])
	assert.Equal(t, 5.0, collector.counters["llm_tokens_out_total"])
}

func TestMetricsMiddlewareRecordsErrors(t *testing.T) {
	core := &stubCore{model: "m", errs: []error{errors.New("boom")}}
	collector := &recordingCollector{}

	wrapped := MetricsMiddleware(collector)(core)
	_, err := wrapped.DoChat(context.Background(), ChatRequest{})
	require.Error(t, err)
	assert.Equal(t, 1.0, collector.counters["llm_errors_total"])
}

func TestMiddlewareOrdering(t *testing.T) {
	var order []string
	mark := func(name string) Middleware {
		return func(next CoreLLM) CoreLLM {
			return &markerCore{next: next, name: name, order: &order}
		}
	}

	core := &stubCore{model: "m"}
	RegisterProviderFactory("stub-ordering", func(ClientConfig) (CoreLLM, error) {
		return core, nil
	})

	client, err := NewClient("stub-ordering", ClientConfig{
		APIKey:     "k",
		Model:      "m",
		Middleware: []Middleware{mark("outer"), mark("inner")},
	})
	require.NoError(t, err)

	// The first middleware listed ends up outermost.
	_, err = client.Chat(context.Background(), nil, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"outer", "inner"}, order)
}

type markerCore struct {
	next  CoreLLM
	name  string
	order *[]string
}

func (m *markerCore) DoChat(ctx context.Context, req ChatRequest) (ports.ChatResponse, error) {
	*m.order = append(*m.order, m.name)
	return m.next.DoChat(ctx, req)
}

func (m *markerCore) GetModel() string      { return m.next.GetModel() }
func (m *markerCore) SetModel(model string) { m.next.SetModel(model) }
