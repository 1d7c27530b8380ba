package observability

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	"go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.27.0"

	"github.com/Alijeyrad/carevisit_backend/config"
)

// Config holds observability configuration
type Config struct {
	ServiceName    string
	ServiceVersion string
	Environment    string

	// TracingEnabled gates the OTLP exporter; spans are still created (and
	// sampled) without it so trace ids reach the logs.
	TracingEnabled bool
	OTLPEndpoint   string // e.g. "localhost:4318"
	OTLPInsecure   bool
	SamplingRate   float64 // 0.0 to 1.0, default 1.0

	MetricsEnabled bool
}

// FromCentralConfig converts central config to package Config.
func FromCentralConfig(cfg *config.Config) Config {
	o := cfg.Observability
	return Config{
		ServiceName:    o.ServiceName,
		ServiceVersion: o.ServiceVersion,
		Environment:    cfg.Server.Environment,
		TracingEnabled: o.Tracing.Enabled,
		OTLPEndpoint:   o.Tracing.OTLPEndpoint,
		OTLPInsecure:   o.Tracing.OTLPInsecure,
		SamplingRate:   o.Tracing.SamplingRate,
		MetricsEnabled: o.Metrics.Enabled,
	}
}

// Provider holds the OpenTelemetry providers
type Provider struct {
	TracerProvider *trace.TracerProvider
	// MeterProvider is nil when metrics are disabled.
	MeterProvider *metric.MeterProvider
}

// InitTelemetry installs global tracer and meter providers.
func InitTelemetry(ctx context.Context, cfg Config) (*Provider, error) {
	res, err := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			"",
			semconv.ServiceName(cfg.ServiceName),
			semconv.ServiceVersion(cfg.ServiceVersion),
			semconv.DeploymentEnvironmentName(cfg.Environment),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	tracerProvider, err := initTracing(ctx, res, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize tracing: %w", err)
	}
	otel.SetTracerProvider(tracerProvider)

	p := &Provider{TracerProvider: tracerProvider}
	if cfg.MetricsEnabled {
		meterProvider, err := initMetrics(res)
		if err != nil {
			_ = tracerProvider.Shutdown(ctx)
			return nil, fmt.Errorf("failed to initialize metrics: %w", err)
		}
		otel.SetMeterProvider(meterProvider)
		p.MeterProvider = meterProvider
	}

	// W3C Trace Context, so browser and peer calls join the same trace.
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))
	return p, nil
}

func initTracing(ctx context.Context, res *resource.Resource, cfg Config) (*trace.TracerProvider, error) {
	samplingRate := cfg.SamplingRate
	if samplingRate == 0 {
		samplingRate = 1.0
	}

	opts := []trace.TracerProviderOption{
		trace.WithResource(res),
		trace.WithSampler(trace.ParentBased(trace.TraceIDRatioBased(samplingRate))),
	}

	if cfg.TracingEnabled && cfg.OTLPEndpoint != "" {
		exporterOpts := []otlptracehttp.Option{otlptracehttp.WithEndpoint(cfg.OTLPEndpoint)}
		if cfg.OTLPInsecure {
			exporterOpts = append(exporterOpts, otlptracehttp.WithInsecure())
		}
		exporter, err := otlptracehttp.New(ctx, exporterOpts...)
		if err != nil {
			return nil, fmt.Errorf("failed to create OTLP exporter: %w", err)
		}
		opts = append(opts, trace.WithBatcher(exporter))
	}

	return trace.NewTracerProvider(opts...), nil
}

// initMetrics registers the Prometheus exporter with the default registry,
// which the /metrics route serves.
func initMetrics(res *resource.Resource) (*metric.MeterProvider, error) {
	promExporter, err := prometheus.New()
	if err != nil {
		return nil, fmt.Errorf("failed to create Prometheus exporter: %w", err)
	}
	return metric.NewMeterProvider(
		metric.WithResource(res),
		metric.WithReader(promExporter),
	), nil
}

// Shutdown flushes pending spans and stops both providers.
func (p *Provider) Shutdown(ctx context.Context) error {
	shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var errs []error
	if err := p.TracerProvider.Shutdown(shutdownCtx); err != nil {
		errs = append(errs, fmt.Errorf("failed to shutdown tracer provider: %w", err))
	}
	if p.MeterProvider != nil {
		if err := p.MeterProvider.Shutdown(shutdownCtx); err != nil {
			errs = append(errs, fmt.Errorf("failed to shutdown meter provider: %w", err))
		}
	}
	return errors.Join(errs...)
}
