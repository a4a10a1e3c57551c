package llm

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/akshay5995/mcpevals/internal/ports"
)

const tracerName = "github.com/akshay5995/mcpevals/infrastructure/llm"

type tracingMiddleware struct {
	next   CoreLLM
	tracer trace.Tracer
}

// TracingMiddleware returns middleware that wraps each request in an
// OpenTelemetry span carrying model, message count, and token usage.
func TracingMiddleware() Middleware {
	return func(next CoreLLM) CoreLLM {
		return &tracingMiddleware{
			next:   next,
			tracer: otel.Tracer(tracerName),
		}
	}
}

func (m *tracingMiddleware) DoChat(ctx context.Context, req ChatRequest) (ports.ChatResponse, error) {
	ctx, span := m.tracer.Start(ctx, "llm.chat",
		trace.WithAttributes(
			attribute.String("llm.model", m.next.GetModel()),
			attribute.Int("llm.messages", len(req.Messages)),
			attribute.Int("llm.tools", len(req.Tools)),
		))
	defer span.End()

	resp, err := m.next.DoChat(ctx, req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return resp, err
	}

	span.SetAttributes(
		attribute.Int("llm.tokens_in", resp.TokensIn),
		attribute.Int("llm.tokens_out", resp.TokensOut),
		attribute.Int("llm.tool_calls", len(resp.ToolCalls)),
	)
	return resp, nil
}

func (m *tracingMiddleware) GetModel() string { return m.next.GetModel() }

func (m *tracingMiddleware) SetModel(model string) { m.next.SetModel(model) }
