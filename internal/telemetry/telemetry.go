package telemetry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel/metric"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
)

// Telemetry owns the tracer and meter providers of the process and the
// optional Prometheus scrape handler.
type Telemetry struct {
	tracerProvider trace.TracerProvider
	meterProvider  metric.MeterProvider
	metricsHandler http.Handler
}

// Option configures New
type Option func(*telemetryConfig)

type telemetryConfig struct {
	config       *Config
	jobName      string
	buildVersion string
}

// WithTelemetryConfig sets the telemetry section of the configuration file
func WithTelemetryConfig(cfg *Config) Option {
	return func(tc *telemetryConfig) {
		tc.config = cfg
	}
}

// WithJobName tags all telemetry with the sync job name
func WithJobName(name string) Option {
	return func(tc *telemetryConfig) {
		tc.jobName = name
	}
}

// WithBuildVersion is reported as service.version when the configuration
// does not set one
func WithBuildVersion(version string) Option {
	return func(tc *telemetryConfig) {
		tc.buildVersion = version
	}
}

// New builds the providers described by the configuration. Without a
// configuration, or with telemetry disabled, both providers are no-ops.
// The caller must call Shutdown.
func New(ctx context.Context, opts ...Option) (*Telemetry, error) {
	tc := &telemetryConfig{}
	for _, opt := range opts {
		opt(tc)
	}

	if tc.config == nil || !tc.config.Enabled {
		slog.Debug("Telemetry disabled")
		return &Telemetry{
			tracerProvider: tracenoop.NewTracerProvider(),
			meterProvider:  metricnoop.NewMeterProvider(),
		}, nil
	}

	if err := tc.config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid telemetry configuration: %w", err)
	}

	version := tc.config.ServiceVersion
	if version == "" && tc.buildVersion != "" {
		version = tc.buildVersion
	}
	if version == "" {
		version = tc.config.GetServiceVersion()
	}

	providerOpts := []ProviderOption{
		WithServiceName(tc.config.GetServiceName()),
		WithServiceVersion(version),
		withProviderJobName(tc.jobName),
		WithEndpoint(tc.config.GetEndpoint()),
		WithInsecure(tc.config.Insecure),
		WithTracing(tc.config.Tracing),
		WithMetrics(tc.config.Metrics),
	}

	slog.Info("Initializing telemetry",
		"service_name", tc.config.GetServiceName(),
		"service_version", version,
		"job", tc.jobName,
	)

	var metricsHandler http.Handler
	if tc.config.Metrics.UsesExporter(ExporterPrometheus) {
		registry := prometheus.NewRegistry()
		registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		providerOpts = append(providerOpts, WithPrometheusRegisterer(registry))
		metricsHandler = promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
	}

	tracerProvider, err := NewTracerProvider(ctx, providerOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create tracer provider: %w", err)
	}

	meterProvider, err := NewMeterProvider(ctx, providerOpts...)
	if err != nil {
		if tp, ok := tracerProvider.(*sdktrace.TracerProvider); ok {
			_ = tp.Shutdown(ctx)
		}
		return nil, fmt.Errorf("failed to create meter provider: %w", err)
	}

	return &Telemetry{
		tracerProvider: tracerProvider,
		meterProvider:  meterProvider,
		metricsHandler: metricsHandler,
	}, nil
}

// TracerProvider returns the configured tracer provider
func (t *Telemetry) TracerProvider() trace.TracerProvider {
	return t.tracerProvider
}

// MeterProvider returns the configured meter provider
func (t *Telemetry) MeterProvider() metric.MeterProvider {
	return t.meterProvider
}

// MetricsHandler returns the Prometheus scrape handler, or nil when the
// Prometheus exporter is not configured
func (t *Telemetry) MetricsHandler() http.Handler {
	return t.metricsHandler
}

// Shutdown flushes and stops the SDK providers. No-op providers need no shutdown.
func (t *Telemetry) Shutdown(ctx context.Context) error {
	var errs []error

	if tp, ok := t.tracerProvider.(*sdktrace.TracerProvider); ok {
		if err := tp.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("failed to shutdown tracer provider: %w", err))
		}
	}
	if mp, ok := t.meterProvider.(*sdkmetric.MeterProvider); ok {
		if err := mp.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("failed to shutdown meter provider: %w", err))
		}
	}

	if err := errors.Join(errs...); err != nil {
		return err
	}
	slog.Debug("Telemetry shutdown complete")
	return nil
}
