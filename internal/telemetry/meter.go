package telemetry

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	otelprom "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

// NewMeterProvider returns an SDK meter provider with one reader per
// configured exporter, or a no-op provider when metrics are not enabled.
// The SDK provider is also installed as the global provider; the caller must
// shut it down.
func NewMeterProvider(ctx context.Context, opts ...ProviderOption) (metric.MeterProvider, error) {
	cfg := newProviderConfig(opts)

	if cfg.metrics == nil || !cfg.metrics.Enabled {
		slog.Info("Metrics disabled, using no-op meter provider")
		return noop.NewMeterProvider(), nil
	}

	res, err := cfg.resource(ctx)
	if err != nil {
		return nil, err
	}
	mpOpts := []sdkmetric.Option{sdkmetric.WithResource(res)}

	if cfg.metrics.UsesExporter(ExporterOTLP) {
		reader, err := otlpReader(ctx, cfg)
		if err != nil {
			return nil, err
		}
		mpOpts = append(mpOpts, sdkmetric.WithReader(reader))
	}

	if cfg.metrics.UsesExporter(ExporterPrometheus) {
		reader, err := prometheusReader(cfg.registerer)
		if err != nil {
			return nil, fmt.Errorf("failed to create Prometheus exporter: %w", err)
		}
		mpOpts = append(mpOpts, sdkmetric.WithReader(reader))
	}

	mp := sdkmetric.NewMeterProvider(mpOpts...)
	otel.SetMeterProvider(mp)

	slog.Info("Metrics initialized",
		"exporters", cfg.metrics.Exporters,
		"endpoint", cfg.endpoint,
		"export_interval", cfg.metrics.GetInterval(),
	)

	return mp, nil
}

// otlpReader pushes to the collector every export interval
func otlpReader(ctx context.Context, cfg *providerConfig) (sdkmetric.Reader, error) {
	exporterOpts := []otlpmetrichttp.Option{otlpmetrichttp.WithEndpoint(cfg.endpoint)}
	if cfg.insecure {
		exporterOpts = append(exporterOpts, otlpmetrichttp.WithInsecure())
	}

	exporter, err := otlpmetrichttp.New(ctx, exporterOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create OTLP metric exporter: %w", err)
	}
	return sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(cfg.metrics.GetInterval())), nil
}

// prometheusReader registers with reg, or with the default registry when reg is nil
func prometheusReader(reg prometheus.Registerer) (sdkmetric.Reader, error) {
	var opts []otelprom.Option
	if reg != nil {
		opts = append(opts, otelprom.WithRegisterer(reg))
	}
	exporter, err := otelprom.New(opts...)
	if err != nil {
		return nil, err
	}
	return exporter, nil
}
