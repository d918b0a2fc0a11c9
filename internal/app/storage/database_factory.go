package storage

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel/trace"

	"github.com/webspark/catalog-sync/database"
	"github.com/webspark/catalog-sync/internal/catalog"
	catalogdb "github.com/webspark/catalog-sync/internal/catalog/db"
	"github.com/webspark/catalog-sync/internal/config"
	"github.com/webspark/catalog-sync/internal/db"
	"github.com/webspark/catalog-sync/internal/scheduler"
	"github.com/webspark/catalog-sync/internal/status"
)

// DatabaseFactory creates database-backed storage components.
// All components created by this factory use PostgreSQL for persistence.
type DatabaseFactory struct {
	pool        *pgxpool.Pool
	tracer      trace.Tracer
	lockDir     string
	migrate     bool
	connectPool func(ctx context.Context, cfg *config.DatabaseConfig) (*pgxpool.Pool, error)
}

var _ Factory = (*DatabaseFactory)(nil)

// DatabaseFactoryOption is a functional option for configuring the DatabaseFactory
type DatabaseFactoryOption func(*DatabaseFactory)

// WithTracer sets the OpenTelemetry tracer for catalog queries.
// If not set, tracing is disabled.
func WithTracer(tracer trace.Tracer) DatabaseFactoryOption {
	return func(f *DatabaseFactory) {
		f.tracer = tracer
	}
}

// WithMigrations applies pending schema migrations when the factory is created
func WithMigrations(enabled bool) DatabaseFactoryOption {
	return func(f *DatabaseFactory) {
		f.migrate = enabled
	}
}

// WithPool uses an existing connection pool instead of connecting from the configuration
func WithPool(pool *pgxpool.Pool) DatabaseFactoryOption {
	return func(f *DatabaseFactory) {
		f.connectPool = func(context.Context, *config.DatabaseConfig) (*pgxpool.Pool, error) {
			return pool, nil
		}
	}
}

// NewDatabaseFactory creates a new database-backed storage factory.
// It establishes a connection pool to the configured PostgreSQL database.
func NewDatabaseFactory(ctx context.Context, cfg *config.Config, opts ...DatabaseFactoryOption) (*DatabaseFactory, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if cfg.Database == nil {
		return nil, fmt.Errorf("database configuration is required for database storage type")
	}

	slog.Info("Creating database-backed storage factory")

	f := &DatabaseFactory{
		lockDir:     cfg.GetFileStorageBaseDir(),
		connectPool: db.NewPool,
	}
	for _, opt := range opts {
		opt(f)
	}

	if f.migrate {
		if err := applyMigrations(cfg.Database); err != nil {
			return nil, err
		}
	}

	pool, err := f.connectPool(ctx, cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to create database connection pool: %w", err)
	}
	f.pool = pool

	return f, nil
}

func applyMigrations(cfg *config.DatabaseConfig) error {
	connString, err := cfg.GetConnectionString()
	if err != nil {
		return fmt.Errorf("failed to build connection string: %w", err)
	}

	m, err := database.NewFromConnectionString(connString)
	if err != nil {
		return err
	}
	defer func() {
		if srcErr, dbErr := m.Close(); srcErr != nil || dbErr != nil {
			slog.Warn("Error closing migrator", "source_error", srcErr, "database_error", dbErr)
		}
	}()

	slog.Info("Applying database migrations")
	return database.MigrateUp(m)
}

// CreateCatalog creates the PostgreSQL catalog
func (d *DatabaseFactory) CreateCatalog(_ context.Context) (catalog.Repository, error) {
	slog.Debug("Creating database-backed catalog")

	var opts []catalogdb.Option
	if d.tracer != nil {
		opts = append(opts, catalogdb.WithTracer(d.tracer))
		slog.Debug("Catalog query tracing enabled")
	}
	store, err := catalogdb.New(d.pool, opts...)
	if err != nil {
		return nil, err
	}
	return store, nil
}

// CreateTriggerStore creates the scheduled_job backed trigger store
func (d *DatabaseFactory) CreateTriggerStore(_ context.Context) (scheduler.Store, error) {
	slog.Debug("Creating database-backed trigger store")
	return scheduler.NewDBStore(d.pool), nil
}

// CreateStatusPersistence creates the sync_status backed persistence
func (d *DatabaseFactory) CreateStatusPersistence(_ context.Context) (status.StatusPersistence, error) {
	slog.Debug("Creating database-backed status persistence")
	return status.NewDBStatusPersistence(d.pool), nil
}

// LockDir returns the file storage base directory, which guards replicas on one host
func (d *DatabaseFactory) LockDir() string {
	return d.lockDir
}

// Cleanup closes the database connection pool
func (d *DatabaseFactory) Cleanup() {
	if d.pool != nil {
		slog.Info("Closing database connection pool")
		d.pool.Close()
	}
}
