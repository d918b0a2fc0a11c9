package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	// SyncMetricsMeterName is the name used for the sync metrics meter
	SyncMetricsMeterName = "github.com/webspark/catalog-sync/sync"
)

// Record outcomes counted by RecordRecords
const (
	OutcomeCreated  = "created"
	OutcomeUpdated  = "updated"
	OutcomeFailed   = "failed"
	OutcomeSkipped  = "skipped"
	OutcomeFiltered = "filtered"
)

// SyncMetrics holds the OpenTelemetry instruments for sync cycles
type SyncMetrics struct {
	cycleDuration metric.Float64Histogram
	records       metric.Int64Counter
	evictions     metric.Int64Counter
	feedSize      metric.Int64Gauge
}

// NewSyncMetrics creates a new SyncMetrics instance with the given meter provider.
// If provider is nil, it returns nil (no-op metrics).
func NewSyncMetrics(provider metric.MeterProvider) (*SyncMetrics, error) {
	if provider == nil {
		return nil, nil
	}

	meter := provider.Meter(SyncMetricsMeterName)

	cycleDuration, err := meter.Float64Histogram(
		"catalog_sync_cycle_duration_seconds",
		metric.WithDescription("Duration of sync cycles in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300),
	)
	if err != nil {
		return nil, err
	}

	records, err := meter.Int64Counter(
		"catalog_sync_records_total",
		metric.WithDescription("Feed records processed, by outcome"),
		metric.WithUnit("{record}"),
	)
	if err != nil {
		return nil, err
	}

	evictions, err := meter.Int64Counter(
		"catalog_sync_evictions_total",
		metric.WithDescription("Catalog entries deleted as stale"),
		metric.WithUnit("{product}"),
	)
	if err != nil {
		return nil, err
	}

	feedSize, err := meter.Int64Gauge(
		"catalog_sync_feed_records",
		metric.WithDescription("Records fetched from the feed by the last cycle"),
		metric.WithUnit("{record}"),
	)
	if err != nil {
		return nil, err
	}

	return &SyncMetrics{
		cycleDuration: cycleDuration,
		records:       records,
		evictions:     evictions,
		feedSize:      feedSize,
	}, nil
}

// RecordCycleDuration records how long a cycle took. reason is empty for
// successful cycles and the failure reason otherwise.
func (m *SyncMetrics) RecordCycleDuration(ctx context.Context, job string, duration time.Duration, reason string) {
	if m == nil || m.cycleDuration == nil {
		return
	}

	attrs := []attribute.KeyValue{
		attribute.String("job", job),
		attribute.Bool("success", reason == ""),
	}
	if reason != "" {
		attrs = append(attrs, attribute.String("reason", reason))
	}

	m.cycleDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))
}

// RecordRecords adds n records with the given outcome
func (m *SyncMetrics) RecordRecords(ctx context.Context, job, outcome string, n int) {
	if m == nil || m.records == nil || n <= 0 {
		return
	}
	m.records.Add(ctx, int64(n), metric.WithAttributes(
		attribute.String("job", job),
		attribute.String("outcome", outcome),
	))
}

// RecordEvictions adds n evicted entries
func (m *SyncMetrics) RecordEvictions(ctx context.Context, job string, n int) {
	if m == nil || m.evictions == nil || n <= 0 {
		return
	}
	m.evictions.Add(ctx, int64(n), metric.WithAttributes(attribute.String("job", job)))
}

// RecordFeedSize records the number of records the last fetch returned
func (m *SyncMetrics) RecordFeedSize(ctx context.Context, job string, n int) {
	if m == nil || m.feedSize == nil {
		return
	}
	m.feedSize.Record(ctx, int64(n), metric.WithAttributes(attribute.String("job", job)))
}
