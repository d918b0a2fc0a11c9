// Package otel provides OpenTelemetry span helpers shared by the sync engine and the stores.
package otel

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Attribute keys shared by the reconciler, the feed client and the stores
const (
	AttrJobName     = attribute.Key("sync.job")
	AttrFeedURL     = attribute.Key("feed.url")
	AttrMaxRecords  = attribute.Key("feed.max_records")
	AttrProductSKU  = attribute.Key("product.sku")
	AttrProductID   = attribute.Key("product.id")
	AttrSyncPhase   = attribute.Key("sync.phase")
	AttrResultCount = attribute.Key("result.count")
	AttrStorageType = attribute.Key("storage.type")
	AttrEvictCutoff = attribute.Key("sync.evict_cutoff")

	AttrCreated     = attribute.Key("sync.created")
	AttrUpdated     = attribute.Key("sync.updated")
	AttrFailed      = attribute.Key("sync.failed")
	AttrSkipped     = attribute.Key("sync.skipped")
	AttrEvicted     = attribute.Key("sync.evicted")
	AttrInterrupted = attribute.Key("sync.interrupted")
)

// StartSpan starts a new span if the tracer is non-nil, otherwise returns a no-op span.
// This provides graceful degradation when tracing is disabled.
func StartSpan(
	ctx context.Context,
	tracer trace.Tracer,
	name string,
	opts ...trace.SpanStartOption,
) (context.Context, trace.Span) {
	if tracer == nil {
		return ctx, trace.SpanFromContext(ctx)
	}
	return tracer.Start(ctx, name, opts...)
}

// RecordError records an error on a span and sets the span status to error.
// It safely handles nil spans and nil errors.
// Note: The status description is intentionally generic to prevent sensitive
// information (e.g., SQL queries, connection strings) from appearing in trace
// status. The full error details are still available via span events for debugging.
func RecordError(span trace.Span, err error) {
	if err != nil && span != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "operation failed")
	}
}

// End records *errp on the span unless it matches one of the expected
// errors, then ends the span. It is meant to be deferred with a named error
// result:
//
//	defer otel.End(span, &err, catalog.ErrNotFound)
func End(span trace.Span, errp *error, expected ...error) {
	if span == nil {
		return
	}
	if errp != nil && *errp != nil && !isExpected(*errp, expected) {
		RecordError(span, *errp)
	}
	span.End()
}

func isExpected(err error, expected []error) bool {
	for _, e := range expected {
		if errors.Is(err, e) {
			return true
		}
	}
	return false
}

// SetResultCount annotates a span with the number of items an operation produced
func SetResultCount(span trace.Span, n int) {
	if span != nil {
		span.SetAttributes(AttrResultCount.Int(n))
	}
}
