package llm

import (
	"context"
	"strconv"
	"time"

	"github.com/akshay5995/mcpevals/internal/ports"
)

type metricsMiddleware struct {
	next      CoreLLM
	collector ports.MetricsCollector
}

// MetricsMiddleware returns middleware that records request latency, token
// usage, and error counts through the given collector.
func MetricsMiddleware(collector ports.MetricsCollector) Middleware {
	return func(next CoreLLM) CoreLLM {
		return &metricsMiddleware{next: next, collector: collector}
	}
}

func (m *metricsMiddleware) DoChat(ctx context.Context, req ChatRequest) (ports.ChatResponse, error) {
	start := time.Now()
	resp, err := m.next.DoChat(ctx, req)

	labels := map[string]string{
		"model":   m.next.GetModel(),
		"success": strconv.FormatBool(err == nil),
	}
	m.collector.RecordLatency("llm_request", time.Since(start), labels)

	if err != nil {
		m.collector.RecordCounter("llm_errors_total", 1, labels)
		return resp, err
	}
	m.collector.RecordCounter("llm_tokens_in_total", float64(resp.TokensIn), labels)
	m.collector.RecordCounter("llm_tokens_out_total", float64(resp.TokensOut), labels)
	return resp, nil
}

func (m *metricsMiddleware) GetModel() string { return m.next.GetModel() }

func (m *metricsMiddleware) SetModel(model string) { m.next.SetModel(model) }
