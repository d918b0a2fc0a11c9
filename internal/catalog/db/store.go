// Package db provides the PostgreSQL catalog.
package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/trace"

	"github.com/webspark/catalog-sync/internal/catalog"
	"github.com/webspark/catalog-sync/internal/otel"
	"github.com/webspark/catalog-sync/internal/product"
)

const (
	// DefaultPageSize is the keyset page size used by ListAll
	DefaultPageSize = 500

	pgUniqueViolation = "23505"
	pgCheckViolation  = "23514"

	entryColumns = `id::text, sku, name, description, price::text, stock_status, created_at, last_modified`
)

const (
	findBySKUQuery = `SELECT ` + entryColumns + ` FROM catalog_product WHERE sku = $1`

	createQuery = `WITH ts AS (SELECT clock_timestamp() AS t)
INSERT INTO catalog_product (id, sku, name, description, price, stock_status, created_at, last_modified)
SELECT $1::uuid, $2, $3, $4, $5::numeric, $6, ts.t, ts.t FROM ts
RETURNING ` + entryColumns

	updateQuery = `UPDATE catalog_product
SET name = $2, description = $3, price = $4::numeric, stock_status = $5, last_modified = clock_timestamp()
WHERE id = $1::uuid
RETURNING ` + entryColumns

	deleteQuery = `DELETE FROM catalog_product WHERE id = $1::uuid`

	listPageQuery = `SELECT ` + entryColumns + ` FROM catalog_product
WHERE id > $1::uuid ORDER BY id LIMIT $2`

	listStaleQuery = `SELECT ` + entryColumns + ` FROM catalog_product
WHERE last_modified < $1 ORDER BY last_modified, id`

	nowQuery = `SELECT clock_timestamp()`
)

// Store is a catalog.Repository backed by the catalog_product table
type Store struct {
	pool     *pgxpool.Pool
	tracer   trace.Tracer
	pageSize int
}

var (
	_ catalog.Repository  = (*Store)(nil)
	_ catalog.StaleLister = (*Store)(nil)
	_ catalog.Clock       = (*Store)(nil)
)

// Option configures a Store
type Option func(*Store)

// WithTracer enables spans around queries
func WithTracer(tracer trace.Tracer) Option {
	return func(s *Store) {
		s.tracer = tracer
	}
}

// WithPageSize overrides the ListAll page size
func WithPageSize(n int) Option {
	return func(s *Store) {
		if n > 0 {
			s.pageSize = n
		}
	}
}

// New creates a Store on the given pool.
// The caller is responsible for closing the pool when done.
func New(pool *pgxpool.Pool, opts ...Option) (*Store, error) {
	if pool == nil {
		return nil, fmt.Errorf("pgx pool is required")
	}
	s := &Store{pool: pool, pageSize: DefaultPageSize}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// FindBySKU implements catalog.Repository
func (s *Store) FindBySKU(ctx context.Context, sku string) (_ *catalog.Entry, err error) {
	ctx, span := otel.StartSpan(ctx, s.tracer, "catalog.FindBySKU",
		trace.WithAttributes(otel.AttrProductSKU.String(sku)))
	defer otel.End(span, &err, catalog.ErrNotFound)

	e, err := scanEntry(s.pool.QueryRow(ctx, findBySKUQuery, sku))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, catalog.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find product %s: %w", sku, err)
	}
	return e, nil
}

// Create implements catalog.Repository
func (s *Store) Create(ctx context.Context, sku string, attrs product.Attributes) (_ *catalog.Entry, err error) {
	ctx, span := otel.StartSpan(ctx, s.tracer, "catalog.Create",
		trace.WithAttributes(otel.AttrProductSKU.String(sku)))
	defer otel.End(span, &err)

	e, err := scanEntry(s.pool.QueryRow(ctx, createQuery,
		uuid.NewString(), sku, attrs.Name, attrs.Description, attrs.Price.String(), string(attrs.StockStatus)))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			switch pgErr.Code {
			case pgUniqueViolation:
				return nil, &catalog.CreateError{SKU: sku, Err: catalog.ErrDuplicateSKU}
			case pgCheckViolation:
				return nil, &catalog.CreateError{SKU: sku, Err: fmt.Errorf("rejected by %s", pgErr.ConstraintName)}
			}
		}
		return nil, &catalog.CreateError{SKU: sku, Err: err}
	}
	return e, nil
}

// Update implements catalog.Repository
func (s *Store) Update(ctx context.Context, id string, attrs product.Attributes) (_ *catalog.Entry, err error) {
	ctx, span := otel.StartSpan(ctx, s.tracer, "catalog.Update",
		trace.WithAttributes(otel.AttrProductID.String(id)))
	defer otel.End(span, &err)

	if _, perr := uuid.Parse(id); perr != nil {
		return nil, &catalog.NotFoundError{ID: id}
	}

	e, err := scanEntry(s.pool.QueryRow(ctx, updateQuery,
		id, attrs.Name, attrs.Description, attrs.Price.String(), string(attrs.StockStatus)))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &catalog.NotFoundError{ID: id}
		}
		return nil, fmt.Errorf("failed to update product %s: %w", id, err)
	}
	return e, nil
}

// Delete implements catalog.Repository
func (s *Store) Delete(ctx context.Context, id string) (err error) {
	ctx, span := otel.StartSpan(ctx, s.tracer, "catalog.Delete",
		trace.WithAttributes(otel.AttrProductID.String(id)))
	defer otel.End(span, &err)

	if _, perr := uuid.Parse(id); perr != nil {
		return nil
	}
	if _, err := s.pool.Exec(ctx, deleteQuery, id); err != nil {
		return fmt.Errorf("failed to delete product %s: %w", id, err)
	}
	return nil
}

// ListAll implements catalog.Repository. Pages are read by id inside one
// repeatable-read transaction so the result is a consistent snapshot.
func (s *Store) ListAll(ctx context.Context) (_ []catalog.Entry, err error) {
	ctx, span := otel.StartSpan(ctx, s.tracer, "catalog.ListAll")
	defer otel.End(span, &err)

	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{
		IsoLevel:   pgx.RepeatableRead,
		AccessMode: pgx.ReadOnly,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	var out []catalog.Entry
	after := uuid.Nil.String()
	for {
		rows, err := tx.Query(ctx, listPageQuery, after, s.pageSize)
		if err != nil {
			return nil, fmt.Errorf("failed to list products: %w", err)
		}
		page, err := collectEntries(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to list products: %w", err)
		}
		out = append(out, page...)
		if len(page) < s.pageSize {
			break
		}
		after = page[len(page)-1].ID
	}

	otel.SetResultCount(span, len(out))
	return out, nil
}

// ListModifiedBefore implements catalog.StaleLister
func (s *Store) ListModifiedBefore(ctx context.Context, cutoff time.Time) (_ []catalog.Entry, err error) {
	ctx, span := otel.StartSpan(ctx, s.tracer, "catalog.ListModifiedBefore",
		trace.WithAttributes(otel.AttrEvictCutoff.String(cutoff.Format(time.RFC3339Nano))))
	defer otel.End(span, &err)

	rows, err := s.pool.Query(ctx, listStaleQuery, cutoff)
	if err != nil {
		return nil, fmt.Errorf("failed to list stale products: %w", err)
	}
	out, err := collectEntries(rows)
	if err != nil {
		return nil, fmt.Errorf("failed to list stale products: %w", err)
	}
	otel.SetResultCount(span, len(out))
	return out, nil
}

// Ping implements catalog.Repository
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Now implements catalog.Clock using the database clock
func (s *Store) Now(ctx context.Context) (time.Time, error) {
	var now time.Time
	if err := s.pool.QueryRow(ctx, nowQuery).Scan(&now); err != nil {
		return time.Time{}, fmt.Errorf("failed to read database clock: %w", err)
	}
	return now, nil
}

func collectEntries(rows pgx.Rows) ([]catalog.Entry, error) {
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (catalog.Entry, error) {
		e, err := scanEntry(row)
		if err != nil {
			return catalog.Entry{}, err
		}
		return *e, nil
	})
}

func scanEntry(row pgx.Row) (*catalog.Entry, error) {
	var (
		e     catalog.Entry
		price string
		stock string
	)
	if err := row.Scan(&e.ID, &e.SKU, &e.Name, &e.Description, &price, &stock, &e.CreatedAt, &e.LastModified); err != nil {
		return nil, err
	}

	p, err := decimal.NewFromString(price)
	if err != nil {
		return nil, fmt.Errorf("invalid price %q for %s: %w", price, e.SKU, err)
	}
	e.Price = p
	e.StockStatus = product.StockStatus(stock)
	return &e, nil
}
