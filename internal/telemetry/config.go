// Package telemetry wires OpenTelemetry tracing and metrics for catalog-sync.
// Spans go to an OTLP/HTTP collector; metrics go to OTLP, a Prometheus scrape
// endpoint, or both.
package telemetry

import (
	"errors"
	"fmt"
	"slices"
	"time"
)

const (
	// DefaultServiceName is reported as service.name when none is configured
	DefaultServiceName = "catalog-sync"

	// DefaultEndpoint is the OTLP/HTTP collector address
	DefaultEndpoint = "localhost:4318"

	// DefaultSampling is the trace ID ratio applied to spans that are not
	// always sampled
	DefaultSampling = 0.05

	// DefaultMetricsInterval is how often metrics are pushed to the collector
	DefaultMetricsInterval = 60 * time.Second

	// CycleSpanPrefix prefixes the root span of every sync cycle
	CycleSpanPrefix = "sync."
)

const (
	// ExporterOTLP pushes metrics to the OTLP endpoint
	ExporterOTLP = "otlp"

	// ExporterPrometheus exposes metrics for scraping
	ExporterPrometheus = "prometheus"
)

// Config is the telemetry section of the configuration file
type Config struct {
	// Enabled switches all telemetry on. When false nothing is exported.
	Enabled bool `yaml:"enabled"`

	// ServiceName defaults to "catalog-sync"
	ServiceName string `yaml:"serviceName,omitempty"`

	// ServiceVersion defaults to "unknown"; the server passes its build version
	ServiceVersion string `yaml:"serviceVersion,omitempty"`

	// Endpoint is the collector's host:port. The exporters append the
	// /v1/traces and /v1/metrics paths.
	Endpoint string `yaml:"endpoint,omitempty"`

	// Insecure sends OTLP over plain HTTP
	Insecure bool `yaml:"insecure,omitempty"`

	Tracing *TracingConfig `yaml:"tracing,omitempty"`
	Metrics *MetricsConfig `yaml:"metrics,omitempty"`
}

// TracingConfig is the tracing section
type TracingConfig struct {
	Enabled bool `yaml:"enabled"`

	// Sampling is the trace ID ratio in [0, 1], DefaultSampling when unset
	Sampling *float64 `yaml:"sampling,omitempty"`

	// AlwaysSample lists root span name prefixes that bypass the ratio.
	// Sync cycles run a few times per hour at most, so by default every
	// cycle is traced while HTTP requests are sampled.
	AlwaysSample []string `yaml:"alwaysSample,omitempty"`
}

// MetricsConfig is the metrics section
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`

	// Exporters lists where metrics go: "otlp" pushes to the collector,
	// "prometheus" serves them on /metrics. Defaults to otlp only.
	Exporters []string `yaml:"exporters,omitempty"`

	// Interval is the OTLP push interval as a Go duration, default 60s
	Interval string `yaml:"interval,omitempty"`
}

// UsesExporter reports whether the named exporter is configured
func (c *MetricsConfig) UsesExporter(name string) bool {
	if c == nil || !c.Enabled {
		return false
	}
	if len(c.Exporters) == 0 {
		return name == ExporterOTLP
	}
	return slices.Contains(c.Exporters, name)
}

// GetInterval returns the OTLP push interval. Call Validate first.
func (c *MetricsConfig) GetInterval() time.Duration {
	if c == nil || c.Interval == "" {
		return DefaultMetricsInterval
	}
	d, err := time.ParseDuration(c.Interval)
	if err != nil || d <= 0 {
		return DefaultMetricsInterval
	}
	return d
}

// GetServiceName returns the service name, using default if not specified
func (c *Config) GetServiceName() string {
	if c.ServiceName == "" {
		return DefaultServiceName
	}
	return c.ServiceName
}

// GetServiceVersion returns the service version, using "unknown" if not specified
func (c *Config) GetServiceVersion() string {
	if c.ServiceVersion == "" {
		return "unknown"
	}
	return c.ServiceVersion
}

// GetEndpoint returns the endpoint, using default if not specified
func (c *Config) GetEndpoint() string {
	if c.Endpoint == "" {
		return DefaultEndpoint
	}
	return c.Endpoint
}

// GetSampling returns the sampling ratio, or DefaultSampling when unset
func (c *TracingConfig) GetSampling() float64 {
	if c.Sampling == nil {
		return DefaultSampling
	}
	return *c.Sampling
}

// GetAlwaysSample returns the always-sampled prefixes. An explicit empty
// list turns the bypass off.
func (c *TracingConfig) GetAlwaysSample() []string {
	if c.AlwaysSample == nil {
		return []string{CycleSpanPrefix}
	}
	return c.AlwaysSample
}

// Validate checks the sections that are enabled
func (c *Config) Validate() error {
	if c == nil || !c.Enabled {
		return nil
	}

	var errs []error
	if err := c.Tracing.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("tracing: %w", err))
	}
	if err := c.Metrics.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("metrics: %w", err))
	}
	return errors.Join(errs...)
}

// Validate checks the sampling ratio
func (c *TracingConfig) Validate() error {
	if c == nil || !c.Enabled || c.Sampling == nil {
		return nil
	}
	if s := *c.Sampling; s < 0 || s > 1.0 {
		return fmt.Errorf("sampling must be between 0.0 and 1.0, got %f", s)
	}
	return nil
}

// Validate checks the exporter names and the push interval
func (c *MetricsConfig) Validate() error {
	if c == nil || !c.Enabled {
		return nil
	}

	for _, e := range c.Exporters {
		if e != ExporterOTLP && e != ExporterPrometheus {
			return fmt.Errorf("unknown exporter %q (supported: %s, %s)", e, ExporterOTLP, ExporterPrometheus)
		}
	}
	if c.Interval != "" {
		d, err := time.ParseDuration(c.Interval)
		if err != nil || d <= 0 {
			return fmt.Errorf("interval must be a positive duration, got %q", c.Interval)
		}
	}
	return nil
}
