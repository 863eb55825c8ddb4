// Package telemetry owns the process-wide OpenTelemetry tracer provider.
package telemetry

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap"

	"github.com/smallbiznis/fintrack-auth/internal/config"
)

const instrumentationName = "github.com/smallbiznis/fintrack-auth"

// Provider holds the tracer provider shared by the HTTP layer and the service.
type Provider struct {
	tracers  trace.TracerProvider
	shutdown func(context.Context) error
}

// Tracer returns the tracer the auth service records its spans with.
func (p *Provider) Tracer() trace.Tracer {
	if p == nil || p.tracers == nil {
		return noop.NewTracerProvider().Tracer(instrumentationName)
	}
	return p.tracers.Tracer(instrumentationName)
}

// Enabled reports whether spans are exported.
func (p *Provider) Enabled() bool {
	return p != nil && p.shutdown != nil
}

// Shutdown flushes pending spans.
func (p *Provider) Shutdown(ctx context.Context) error {
	if !p.Enabled() {
		return nil
	}
	return p.shutdown(ctx)
}

// New exports spans over OTLP/HTTP when an endpoint is configured and
// records nothing otherwise. The provider is also installed globally for otelgin.
func New(ctx context.Context, cfg config.Config, logger *zap.Logger) (*Provider, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	if cfg.TelemetryEndpoint == "" {
		tracers := noop.NewTracerProvider()
		otel.SetTracerProvider(tracers)
		logger.Debug("telemetry disabled")
		return &Provider{tracers: tracers}, nil
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	opts := []otlptracehttp.Option{otlptracehttp.WithEndpoint(cfg.TelemetryEndpoint)}
	if cfg.TelemetryInsecure {
		opts = append(opts, otlptracehttp.WithInsecure())
	}
	exporter, err := otlptracehttp.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create otlp exporter: %w", err)
	}

	provider, err := newSDKProvider(ctx, cfg, sdktrace.WithBatcher(exporter))
	if err != nil {
		return nil, err
	}
	logger.Info("telemetry enabled",
		zap.String("endpoint", cfg.TelemetryEndpoint),
		zap.String("environment", cfg.Environment),
	)
	return provider, nil
}

func newSDKProvider(ctx context.Context, cfg config.Config, processor sdktrace.TracerProviderOption) (*Provider, error) {
	res, err := newResource(ctx, cfg)
	if err != nil {
		return nil, err
	}

	tracers := sdktrace.NewTracerProvider(
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.AlwaysSample())),
		processor,
	)
	otel.SetTracerProvider(tracers)

	return &Provider{tracers: tracers, shutdown: tracers.Shutdown}, nil
}

func newResource(ctx context.Context, cfg config.Config) (*resource.Resource, error) {
	attrs := []attribute.KeyValue{semconv.ServiceName(cfg.ServiceName)}
	if cfg.Environment != "" {
		attrs = append(attrs, semconv.DeploymentEnvironment(cfg.Environment))
	}

	res, err := resource.New(ctx,
		resource.WithFromEnv(),
		resource.WithTelemetrySDK(),
		resource.WithProcess(),
		resource.WithAttributes(attrs...),
	)
	if err != nil {
		return nil, fmt.Errorf("build telemetry resource: %w", err)
	}
	return res, nil
}
