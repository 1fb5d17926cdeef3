package telemetry

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// BusinessTracer traces lab operations: calculations, preset changes and
// session updates.
type BusinessTracer struct {
	tracer trace.Tracer
}

// NewBusinessTracer creates a BusinessTracer on the global provider.
func NewBusinessTracer() *BusinessTracer {
	return &BusinessTracer{tracer: GetBusinessTracer()}
}

// NewBusinessTracerWith creates a BusinessTracer on the given tracer.
func NewBusinessTracerWith(tracer trace.Tracer) *BusinessTracer {
	return &BusinessTracer{tracer: tracer}
}

// TraceCalculation starts a span around one engine evaluation.
func (bt *BusinessTracer) TraceCalculation(ctx context.Context, operation string, rf, beta, market float64) (context.Context, trace.Span) {
	return bt.tracer.Start(ctx, "capm."+operation, trace.WithAttributes(
		attribute.Float64("capm.risk_free_rate", rf),
		attribute.Float64("capm.beta", beta),
		attribute.Float64("capm.market_return", market),
	))
}

// TraceChallenge starts a span around a required-beta calculation.
func (bt *BusinessTracer) TraceChallenge(ctx context.Context, rf, market, target float64) (context.Context, trace.Span) {
	return bt.tracer.Start(ctx, "capm.required_beta", trace.WithAttributes(
		attribute.Float64("capm.risk_free_rate", rf),
		attribute.Float64("capm.market_return", market),
		attribute.Float64("capm.target_return", target),
	))
}

// TraceEstimation starts a span around a historical beta estimation.
func (bt *BusinessTracer) TraceEstimation(ctx context.Context, prices, window int) (context.Context, trace.Span) {
	return bt.tracer.Start(ctx, "capm.estimate_beta", trace.WithAttributes(
		attribute.Int("capm.prices", prices),
		attribute.Int("capm.window", window),
	))
}

// TraceSessionOperation starts a span around a session mutation.
func (bt *BusinessTracer) TraceSessionOperation(ctx context.Context, operation, sessionID string) (context.Context, trace.Span) {
	return bt.tracer.Start(ctx, "session."+operation, trace.WithAttributes(
		attribute.String("session.id", sessionID),
	))
}

// RecordPreset tags span with the applied preset.
func (bt *BusinessTracer) RecordPreset(span trace.Span, preset string) {
	span.SetAttributes(attribute.String("capm.preset", preset))
}

// RecordResult tags span with the computed expected return and alpha.
func (bt *BusinessTracer) RecordResult(span trace.Span, expected, alpha float64) {
	span.SetAttributes(
		attribute.Float64("capm.expected_return", expected),
		attribute.Float64("capm.alpha", alpha),
	)
}

// RecordError marks span as failed.
func (bt *BusinessTracer) RecordError(span trace.Span, err error) {
	if err == nil {
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
