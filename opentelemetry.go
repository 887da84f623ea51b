package llmcontext

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const (
	tracerName = "github.com/hoangvvo/llm-sdk/context-go"
)

var tracer trace.Tracer

func getTracer() trace.Tracer {
	if tracer == nil {
		tracer = otel.Tracer(tracerName)
	}
	return tracer
}

// TraceBuildContextEnvelope wraps BuildContextEnvelope in a span. The core is
// pure and never blocks; the span only records assembly shape for callers
// already tracing their query pipeline.
func TraceBuildContextEnvelope(ctx context.Context, sources []Source, task string, opts ...EnvelopeOption) ContextEnvelope {
	_, span := getTracer().Start(ctx, "llm_context.build_envelope",
		trace.WithAttributes(
			attribute.Int("context.source_count", len(sources)),
		))
	defer span.End()

	envelope := BuildContextEnvelope(sources, task, opts...)

	span.SetAttributes(
		attribute.Int("context.chunk_count", len(envelope.Chunks)),
		attribute.Int("context.attachment_count", len(envelope.Attachments)),
		attribute.Int("context.used_tokens", envelope.Budget.UsedTokens),
	)
	return envelope
}

// TraceApplyTokenBudget wraps ApplyTokenBudget in a span recording the
// degrade outcome.
func TraceApplyTokenBudget(ctx context.Context, envelope ContextEnvelope, maxTokens int, opts ...BudgetOption) ContextEnvelope {
	_, span := getTracer().Start(ctx, "llm_context.apply_token_budget",
		trace.WithAttributes(
			attribute.Int("context.max_tokens", maxTokens),
			attribute.Int("context.chunk_count", len(envelope.Chunks)),
		))
	defer span.End()

	fitted := ApplyTokenBudget(envelope, maxTokens, opts...)

	span.SetAttributes(
		attribute.Int("context.degrade_stage", fitted.Budget.DegradeStage),
		attribute.Int("context.used_tokens", fitted.Budget.UsedTokens),
		attribute.Int("context.cut_count", len(fitted.Budget.Cuts)),
	)
	return fitted
}
