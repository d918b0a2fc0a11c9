package telemetry

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// NewTracerProvider returns an SDK tracer provider exporting over OTLP/HTTP,
// or a no-op provider when tracing is not enabled. The SDK provider is also
// installed as the global provider; the caller must shut it down.
func NewTracerProvider(ctx context.Context, opts ...ProviderOption) (trace.TracerProvider, error) {
	cfg := newProviderConfig(opts)

	if cfg.tracing == nil || !cfg.tracing.Enabled {
		slog.Info("Tracing disabled, using no-op tracer provider")
		return noop.NewTracerProvider(), nil
	}

	res, err := cfg.resource(ctx)
	if err != nil {
		return nil, err
	}

	exporterOpts := []otlptracehttp.Option{otlptracehttp.WithEndpoint(cfg.endpoint)}
	if cfg.insecure {
		exporterOpts = append(exporterOpts, otlptracehttp.WithInsecure())
	}
	exporter, err := otlptracehttp.New(ctx, exporterOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create OTLP trace exporter: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithResource(res),
		sdktrace.WithBatcher(exporter),
		sdktrace.WithSampler(newSampler(cfg.tracing)),
	)

	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	if cfg.insecure {
		slog.Warn("Tracing over an insecure connection, spans are sent over plain HTTP")
	}
	slog.Info("Tracing initialized",
		"endpoint", cfg.endpoint,
		"sampling_ratio", cfg.tracing.GetSampling(),
		"always_sample", cfg.tracing.GetAlwaysSample(),
	)

	return tp, nil
}

// newSampler keeps every root span whose name starts with one of the
// always-sample prefixes and samples the rest by trace ID ratio. Child spans
// follow their parent's decision.
func newSampler(tc *TracingConfig) sdktrace.Sampler {
	ratio := sdktrace.TraceIDRatioBased(tc.GetSampling())
	return sdktrace.ParentBased(prefixSampler{
		prefixes: tc.GetAlwaysSample(),
		fallback: ratio,
	})
}

type prefixSampler struct {
	prefixes []string
	fallback sdktrace.Sampler
}

func (s prefixSampler) ShouldSample(p sdktrace.SamplingParameters) sdktrace.SamplingResult {
	for _, prefix := range s.prefixes {
		if strings.HasPrefix(p.Name, prefix) {
			return sdktrace.SamplingResult{
				Decision:   sdktrace.RecordAndSample,
				Tracestate: trace.SpanContextFromContext(p.ParentContext).TraceState(),
			}
		}
	}
	return s.fallback.ShouldSample(p)
}

func (s prefixSampler) Description() string {
	return fmt.Sprintf("PrefixSampler{%s,%s}", strings.Join(s.prefixes, "|"), s.fallback.Description())
}
