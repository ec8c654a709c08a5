// Package observability wires OpenTelemetry tracing and metrics export for
// the chat hand-off engine. Everything is no-op unless OTEL_ENABLED is set
// together with an OTLP endpoint.
package observability

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"

	"naf-chat-server/internal/config"
)

const metricExportInterval = 30 * time.Second

// Shutdown is a function that releases telemetry resources.
type Shutdown func(ctx context.Context) error

// Setup configures the global tracer and meter providers. When export is
// disabled the providers still exist (so instrumented code works unchanged)
// but nothing leaves the process.
func Setup(ctx context.Context, cfg *config.Config, log zerolog.Logger) (Shutdown, error) {
	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(cfg.ServiceName),
			semconv.DeploymentEnvironment(cfg.Environment),
		),
	)
	if err != nil {
		return nil, err
	}

	var (
		tracerProvider *sdktrace.TracerProvider
		meterProvider  *sdkmetric.MeterProvider
	)

	if cfg.EnableTracing && cfg.OTLPEndpoint != "" {
		endpoint, insecure := normalizeEndpoint(cfg.OTLPEndpoint)

		traceOpts := []otlptracehttp.Option{otlptracehttp.WithEndpoint(endpoint)}
		metricOpts := []otlpmetrichttp.Option{otlpmetrichttp.WithEndpoint(endpoint)}
		if insecure {
			traceOpts = append(traceOpts, otlptracehttp.WithInsecure())
			metricOpts = append(metricOpts, otlpmetrichttp.WithInsecure())
		}

		traceExporter, err := otlptracehttp.New(ctx, traceOpts...)
		if err != nil {
			return nil, err
		}
		metricExporter, err := otlpmetrichttp.New(ctx, metricOpts...)
		if err != nil {
			return nil, err
		}

		tracerProvider = sdktrace.NewTracerProvider(
			sdktrace.WithResource(res),
			sdktrace.WithBatcher(traceExporter),
			sdktrace.WithSampler(sdktrace.AlwaysSample()),
		)
		meterProvider = sdkmetric.NewMeterProvider(
			sdkmetric.WithResource(res),
			sdkmetric.WithReader(
				sdkmetric.NewPeriodicReader(metricExporter, sdkmetric.WithInterval(metricExportInterval)),
			),
		)

		log.Info().Str("endpoint", cfg.OTLPEndpoint).Msg("OTLP trace and metric export enabled")
	} else {
		tracerProvider = sdktrace.NewTracerProvider(sdktrace.WithResource(res))
		meterProvider = sdkmetric.NewMeterProvider(sdkmetric.WithResource(res))
		log.Info().Msg("telemetry export disabled")
	}

	otel.SetTracerProvider(tracerProvider)
	otel.SetMeterProvider(meterProvider)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	shutdown := func(ctx context.Context) error {
		var shutdownErr error
		if err := meterProvider.Shutdown(ctx); err != nil {
			log.Error().Err(err).Msg("shutdown meter provider")
			shutdownErr = err
		}
		if err := tracerProvider.Shutdown(ctx); err != nil {
			log.Error().Err(err).Msg("shutdown tracer provider")
			if shutdownErr == nil {
				shutdownErr = err
			}
		}
		return shutdownErr
	}

	return shutdown, nil
}

// normalizeEndpoint strips the scheme for the OTLP/HTTP client, which takes a
// bare host:port, and derives TLS use from it.
func normalizeEndpoint(endpoint string) (string, bool) {
	switch {
	case strings.HasPrefix(endpoint, "https://"):
		return strings.TrimPrefix(endpoint, "https://"), false
	case strings.HasPrefix(endpoint, "http://"):
		return strings.TrimPrefix(endpoint, "http://"), true
	default:
		return endpoint, true
	}
}
