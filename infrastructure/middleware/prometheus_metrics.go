// Package middleware provides cross-cutting infrastructure shared by the
// evaluation runner and the LLM clients.
package middleware

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/akshay5995/mcpevals/internal/ports"
)

// PrometheusMetrics implements ports.MetricsCollector over the global
// Prometheus registry. It tracks LLM request latency and token usage,
// MCP tool call latency and failures, and per-case evaluation outcomes.
type PrometheusMetrics struct {
	requestLatency *prometheus.HistogramVec
	llmTokens      *prometheus.CounterVec
	toolCalls      *prometheus.CounterVec
	caseOutcomes   *prometheus.CounterVec
	generic        *prometheus.CounterVec
}

// NewPrometheusMetrics registers the evaluation metrics and returns the
// collector. Call at most once per process; promauto panics on duplicate
// registration.
func NewPrometheusMetrics() *PrometheusMetrics {
	return &PrometheusMetrics{
		requestLatency: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "mcpevals_operation_duration_seconds",
				Help:    "Latency of LLM requests, tool calls, and case runs.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation", "model"},
		),
		llmTokens: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mcpevals_llm_tokens_total",
				Help: "Tokens exchanged with LLM providers.",
			},
			[]string{"direction", "model"},
		),
		toolCalls: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mcpevals_tool_calls_total",
				Help: "MCP tool invocations by tool name and outcome.",
			},
			[]string{"tool", "status"},
		),
		caseOutcomes: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mcpevals_cases_total",
				Help: "Evaluation cases by final status.",
			},
			[]string{"status"},
		),
		generic: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mcpevals_events_total",
				Help: "Uncategorized counter events.",
			},
			[]string{"metric", "model"},
		),
	}
}

// RecordLatency records operation latency in the shared histogram.
func (pm *PrometheusMetrics) RecordLatency(operation string, duration time.Duration, labels map[string]string) {
	pm.requestLatency.WithLabelValues(operation, labels["model"]).Observe(duration.Seconds())
}

// RecordCounter routes known counter metrics to their typed vectors and
// everything else to the generic events counter.
func (pm *PrometheusMetrics) RecordCounter(metric string, value float64, labels map[string]string) {
	switch metric {
	case "llm_tokens_in_total":
		pm.llmTokens.WithLabelValues("in", labels["model"]).Add(value)
	case "llm_tokens_out_total":
		pm.llmTokens.WithLabelValues("out", labels["model"]).Add(value)
	case "tool_calls_total":
		pm.toolCalls.WithLabelValues(labels["tool"], labels["status"]).Add(value)
	case "cases_total":
		pm.caseOutcomes.WithLabelValues(labels["status"]).Add(value)
	default:
		pm.generic.WithLabelValues(metric, labels["model"]).Add(value)
	}
}

var _ ports.MetricsCollector = (*PrometheusMetrics)(nil)
