// Package tracing wires the ambient OpenTelemetry tracer the agent
// orchestrator's spans (internal/agent/loop.go's tracer.Start calls) are
// recorded against. Grounded on haasonsaas-nexus's internal/observability/
// tracing.go NewTracer shape, trimmed to exactly what gearclaw needs: set
// the global TracerProvider once at startup, or leave the no-op default
// in place when no collector is configured.
package tracing

import (
	"context"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// Config controls whether and how spans are exported. An empty Endpoint
// leaves tracing as a no-op — agent.Orchestrator's spans are still
// created (otel.Tracer always returns a usable Tracer) but never
// recorded or sent anywhere.
type Config struct {
	Endpoint    string // OTEL_EXPORTER_OTLP_ENDPOINT, e.g. "localhost:4317" or "https://collector:4318"
	Protocol    string // "grpc" (default) or "http"
	Insecure    bool
	ServiceName string
}

// Setup installs a real TracerProvider as the global default when
// cfg.Endpoint is set, and returns a shutdown func to flush on exit. With
// no endpoint it returns a no-op shutdown — the default global provider
// already discards spans.
func Setup(ctx context.Context, cfg Config) (shutdown func(context.Context) error, err error) {
	if cfg.Endpoint == "" {
		return func(context.Context) error { return nil }, nil
	}
	if cfg.ServiceName == "" {
		cfg.ServiceName = "gearclaw"
	}

	exporter, err := newExporter(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("tracing: create exporter: %w", err)
	}

	res, err := resource.New(ctx, resource.WithAttributes())
	if err != nil {
		res = resource.Default()
	}

	provider := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
	)
	otel.SetTracerProvider(provider)

	return provider.Shutdown, nil
}

func newExporter(ctx context.Context, cfg Config) (sdktrace.SpanExporter, error) {
	if strings.EqualFold(cfg.Protocol, "http") {
		opts := []otlptracehttp.Option{otlptracehttp.WithEndpoint(cfg.Endpoint)}
		if cfg.Insecure {
			opts = append(opts, otlptracehttp.WithInsecure())
		}
		client := otlptracehttp.NewClient(opts...)
		return otlptrace.New(ctx, client)
	}
	opts := []otlptracegrpc.Option{otlptracegrpc.WithEndpoint(cfg.Endpoint)}
	if cfg.Insecure {
		opts = append(opts, otlptracegrpc.WithInsecure())
	}
	client := otlptracegrpc.NewClient(opts...)
	return otlptrace.New(ctx, client)
}
