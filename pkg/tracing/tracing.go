// Package tracing installs the global OpenTelemetry tracer provider.
package tracing

import (
	"context"
	"strings"

	"github.com/go-faster/errors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/Mas0n1x/Personalsystem-Dev-sub000/pkg/configuration"
)

type ShutdownFunc func(ctx context.Context) error

func noop(context.Context) error { return nil }

// Setup exports spans over OTLP/HTTP to opts.TempoURL when tracing is
// enabled. Disabled tracing leaves the no-op global provider in place.
func Setup(ctx context.Context, opts configuration.OpenTelemetryOptions) (ShutdownFunc, error) {
	otel.SetTextMapPropagator(propagation.TraceContext{})
	if !opts.Enabled {
		return noop, nil
	}
	endpoint := strings.TrimSpace(opts.TempoURL)
	if endpoint == "" {
		return noop, errors.New("tracing: OTEL_TEMPO_URL is empty")
	}

	exporter, err := otlptracehttp.New(ctx,
		otlptracehttp.WithEndpoint(endpoint),
		otlptracehttp.WithInsecure(),
	)
	if err != nil {
		return noop, errors.Wrap(err, "tracing: create exporter")
	}
	provider := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(resource.NewSchemaless(
			attribute.String("service.name", opts.ServiceName),
		)),
	)
	otel.SetTracerProvider(provider)
	return provider.Shutdown, nil
}
