package telemetry

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

// AttrJobName identifies the sync job on every exported span and metric
const AttrJobName = attribute.Key("catalog_sync.job")

// ProviderOption configures NewTracerProvider and NewMeterProvider
type ProviderOption func(*providerConfig)

// providerConfig is shared by the tracer and meter providers. Each provider
// reads the signal section it cares about and ignores the other.
type providerConfig struct {
	serviceName    string
	serviceVersion string
	jobName        string
	endpoint       string
	insecure       bool

	tracing    *TracingConfig
	metrics    *MetricsConfig
	registerer prometheus.Registerer
}

func newProviderConfig(opts []ProviderOption) *providerConfig {
	cfg := &providerConfig{
		serviceName:    DefaultServiceName,
		serviceVersion: "unknown",
		endpoint:       DefaultEndpoint,
	}
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

// WithServiceName sets the service.name resource attribute
func WithServiceName(name string) ProviderOption {
	return func(cfg *providerConfig) {
		cfg.serviceName = name
	}
}

// WithServiceVersion sets the service.version resource attribute
func WithServiceVersion(version string) ProviderOption {
	return func(cfg *providerConfig) {
		cfg.serviceVersion = version
	}
}

// withProviderJobName tags exported telemetry with the sync job name
func withProviderJobName(name string) ProviderOption {
	return func(cfg *providerConfig) {
		cfg.jobName = name
	}
}

// WithEndpoint sets the OTLP collector endpoint (host:port)
func WithEndpoint(endpoint string) ProviderOption {
	return func(cfg *providerConfig) {
		cfg.endpoint = endpoint
	}
}

// WithInsecure sends OTLP data over plain HTTP
func WithInsecure(insecure bool) ProviderOption {
	return func(cfg *providerConfig) {
		cfg.insecure = insecure
	}
}

// WithTracing sets the tracing section. Tracing stays off without it.
func WithTracing(tc *TracingConfig) ProviderOption {
	return func(cfg *providerConfig) {
		cfg.tracing = tc
	}
}

// WithMetrics sets the metrics section. Metrics stay off without it.
func WithMetrics(mc *MetricsConfig) ProviderOption {
	return func(cfg *providerConfig) {
		cfg.metrics = mc
	}
}

// WithPrometheusRegisterer sets where the Prometheus exporter registers its collector
func WithPrometheusRegisterer(reg prometheus.Registerer) ProviderOption {
	return func(cfg *providerConfig) {
		cfg.registerer = reg
	}
}

// resource builds the resource shared by traces and metrics. resource.New is
// used instead of merging with resource.Default to avoid schema URL conflicts.
func (c *providerConfig) resource(ctx context.Context) (*resource.Resource, error) {
	attrs := []attribute.KeyValue{
		semconv.ServiceName(c.serviceName),
		semconv.ServiceVersion(c.serviceVersion),
	}
	if c.jobName != "" {
		attrs = append(attrs, AttrJobName.String(c.jobName))
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(attrs...),
		resource.WithHost(),
		resource.WithTelemetrySDK(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}
	return res, nil
}
