package telemetry

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

const (
	// Service information
	ServiceName    = "capm-lab"
	ServiceVersion = "1.0.0"

	businessTracerName = "capm-lab/business"
)

// TelemetryConfig holds configuration for telemetry
type TelemetryConfig struct {
	Enabled      bool
	OTLPEndpoint string
	ServiceName  string
	Environment  string
	Release      string
	SampleRate   float64
}

// DefaultConfig returns default telemetry configuration
func DefaultConfig() *TelemetryConfig {
	return &TelemetryConfig{
		Enabled:     false,
		ServiceName: ServiceName,
		Environment: "development",
		Release:     ServiceVersion,
		SampleRate:  1.0,
	}
}

// Provider holds the telemetry provider
type Provider struct {
	tracerProvider trace.TracerProvider
	shutdown       func(context.Context) error
	logger         *slog.Logger
}

// InitTelemetry installs the global tracer provider. Spans go to an OTLP/HTTP
// collector when an endpoint is configured, otherwise to stdout. A disabled
// config installs a no-op provider.
func InitTelemetry(config TelemetryConfig, logger *slog.Logger) (*Provider, error) {
	if logger == nil {
		logger = slog.Default()
	}
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	if !config.Enabled {
		tp := noop.NewTracerProvider()
		otel.SetTracerProvider(tp)
		return &Provider{
			tracerProvider: tp,
			shutdown:       func(context.Context) error { return nil },
			logger:         logger,
		}, nil
	}

	ctx := context.Background()
	exporter, err := newExporter(ctx, config.OTLPEndpoint)
	if err != nil {
		return nil, err
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(config.ServiceName),
			semconv.ServiceVersion(config.Release),
			semconv.DeploymentEnvironment(config.Environment),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(config.SampleRate))),
	)
	otel.SetTracerProvider(tp)

	logger.Info("Telemetry initialized",
		"service", config.ServiceName,
		"otlp_endpoint", config.OTLPEndpoint,
		"sample_rate", config.SampleRate,
	)

	return &Provider{
		tracerProvider: tp,
		shutdown:       tp.Shutdown,
		logger:         logger,
	}, nil
}

func newExporter(ctx context.Context, endpoint string) (sdktrace.SpanExporter, error) {
	if endpoint == "" {
		exporter, err := stdouttrace.New(stdouttrace.WithPrettyPrint())
		if err != nil {
			return nil, fmt.Errorf("failed to create stdout trace exporter: %w", err)
		}
		return exporter, nil
	}

	opts := []otlptracehttp.Option{}
	switch {
	case strings.HasPrefix(endpoint, "https://"):
		opts = append(opts, otlptracehttp.WithEndpoint(strings.TrimSuffix(strings.TrimPrefix(endpoint, "https://"), "/")))
	default:
		opts = append(opts,
			otlptracehttp.WithEndpoint(strings.TrimSuffix(strings.TrimPrefix(endpoint, "http://"), "/")),
			otlptracehttp.WithInsecure(),
		)
	}
	exporter, err := otlptracehttp.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create OTLP trace exporter: %w", err)
	}
	return exporter, nil
}

// Shutdown flushes pending spans.
func (p *Provider) Shutdown(ctx context.Context) error {
	if p == nil || p.shutdown == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := p.shutdown(ctx); err != nil {
		p.logger.Warn("Telemetry shutdown failed", "error", err.Error())
		return err
	}
	return nil
}

// TracerProvider returns the installed provider.
func (p *Provider) TracerProvider() trace.TracerProvider {
	return p.tracerProvider
}

// GetBusinessTracer returns the tracer used for lab operations.
func GetBusinessTracer() trace.Tracer {
	return otel.Tracer(businessTracerName)
}
