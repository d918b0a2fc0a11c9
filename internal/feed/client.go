package feed

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/webspark/catalog-sync/internal/httpclient"
	"github.com/webspark/catalog-sync/internal/otel"
)

//go:generate mockgen -destination=mocks/mock_client.go -package=mocks github.com/webspark/catalog-sync/internal/feed Client

// Client fetches the product feed
type Client interface {
	// Fetch downloads url and decodes at most maxRecords products.
	// It returns *FetchError when the feed cannot be reached and *ParseError
	// when the payload is unusable. A missing or empty feed is zero records.
	Fetch(ctx context.Context, url string, maxRecords int) (*FetchResult, error)
}

// HTTPClient is the Client backed by an HTTP GET
type HTTPClient struct {
	http   httpclient.Client
	tracer trace.Tracer
	now    func() time.Time
}

// ClientOption configures an HTTPClient
type ClientOption func(*HTTPClient)

// WithTracer enables spans around downloads
func WithTracer(tracer trace.Tracer) ClientOption {
	return func(c *HTTPClient) {
		c.tracer = tracer
	}
}

// NewClient returns a feed client using hc for transport
func NewClient(hc httpclient.Client, opts ...ClientOption) *HTTPClient {
	c := &HTTPClient{
		http: hc,
		now:  time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Fetch implements Client
func (c *HTTPClient) Fetch(ctx context.Context, url string, maxRecords int) (result *FetchResult, err error) {
	ctx, span := otel.StartSpan(ctx, c.tracer, "feed.Fetch",
		trace.WithAttributes(
			otel.AttrFeedURL.String(url),
			otel.AttrMaxRecords.Int(maxRecords),
		),
	)
	defer func() {
		otel.RecordError(span, err)
		span.End()
	}()

	body, err := c.http.Get(ctx, url)
	if err != nil {
		status := httpclient.StatusCode(err)
		if status == http.StatusNotFound {
			slog.WarnContext(ctx, "Feed not found, treating as empty", "url", url)
			return &FetchResult{FetchedAt: c.now()}, nil
		}
		return nil, &FetchError{URL: url, StatusCode: status, Err: err}
	}

	result, err = Parse(body, maxRecords)
	if err != nil {
		return nil, err
	}
	result.FetchedAt = c.now()

	span.SetAttributes(
		attribute.Int("feed.total", result.Total),
		attribute.Int("feed.skipped", len(result.Skipped)),
	)
	otel.SetResultCount(span, len(result.Records))

	if len(result.Skipped) > 0 {
		slog.WarnContext(ctx, "Skipped malformed feed records",
			"url", url,
			"skipped", len(result.Skipped),
			"processed", result.Processed())
	}
	slog.DebugContext(ctx, "Fetched feed",
		"url", url,
		"total", result.Total,
		"records", len(result.Records),
		"hash", result.Hash)

	return result, nil
}
