package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/netip"
	"strings"
	gosync "sync"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/webspark/catalog-sync/internal/api"
	"github.com/webspark/catalog-sync/internal/app/storage"
	"github.com/webspark/catalog-sync/internal/catalog"
	"github.com/webspark/catalog-sync/internal/config"
	"github.com/webspark/catalog-sync/internal/feed"
	"github.com/webspark/catalog-sync/internal/httpclient"
	"github.com/webspark/catalog-sync/internal/scheduler"
	"github.com/webspark/catalog-sync/internal/service"
	pkgsync "github.com/webspark/catalog-sync/internal/sync"
	"github.com/webspark/catalog-sync/internal/sync/coordinator"
	"github.com/webspark/catalog-sync/internal/telemetry"
)

const (
	defaultHTTPAddress    = ":8080"
	defaultRequestTimeout = 10 * time.Second
	defaultReadTimeout    = 10 * time.Second
	defaultWriteTimeout   = 15 * time.Second
	defaultIdleTimeout    = 60 * time.Second

	// Downloads are bounded per cycle by the fetch timeout; this only caps a runaway client
	httpClientTimeout = 10 * time.Minute

	tracerPrefix = "github.com/webspark/catalog-sync/"
)

// SyncAppOptions is a function that configures the sync app builder
type SyncAppOptions func(*syncAppConfig) error

// syncAppConfig collects the options of NewSyncApp
type syncAppConfig struct {
	config    *config.Config
	overrides config.Store

	// Optional component overrides (primarily for testing)
	storageFactory storage.Factory
	syncManager    pkgsync.Manager
	feedClient     feed.Client
	migrate        bool

	// HTTP server options
	address        string
	middlewares    []func(http.Handler) http.Handler
	requestTimeout time.Duration
	readTimeout    time.Duration
	writeTimeout   time.Duration
	idleTimeout    time.Duration

	// Telemetry components
	meterProvider  metric.MeterProvider
	tracerProvider trace.TracerProvider
	metricsHandler http.Handler
}

func baseConfig(opts ...SyncAppOptions) (*syncAppConfig, error) {
	cfg := &syncAppConfig{
		address:        defaultHTTPAddress,
		requestTimeout: defaultRequestTimeout,
		readTimeout:    defaultReadTimeout,
		writeTimeout:   defaultWriteTimeout,
		idleTimeout:    defaultIdleTimeout,
	}

	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, err
		}
	}

	if cfg.config == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}

	return cfg, nil
}

// NewSyncApp creates the application with the given options
func NewSyncApp(ctx context.Context, opts ...SyncAppOptions) (*SyncApp, error) {
	cfg, err := baseConfig(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to build base configuration: %w", err)
	}

	// Single decision point for database vs file storage
	if cfg.storageFactory == nil {
		var factoryOpts []storage.DatabaseFactoryOption
		factoryOpts = append(factoryOpts, storage.WithMigrations(cfg.migrate))
		if cfg.tracerProvider != nil {
			factoryOpts = append(factoryOpts, storage.WithTracer(cfg.tracerProvider.Tracer(tracerPrefix+"catalog")))
		}
		cfg.storageFactory, err = storage.NewStorageFactory(ctx, cfg.config, factoryOpts...)
		if err != nil {
			return nil, fmt.Errorf("failed to create storage factory: %w", err)
		}
	}

	// Ensure cleanup happens on error
	cleanupNeeded := true
	defer func() {
		if cleanupNeeded {
			cfg.storageFactory.Cleanup()
		}
	}()

	components, err := buildSyncComponents(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to build sync components: %w", err)
	}

	components.SyncService, err = service.New(components.SyncCoordinator, components.Catalog)
	if err != nil {
		return nil, fmt.Errorf("failed to build service components: %w", err)
	}

	httpServer, err := buildHTTPServer(cfg, components.SyncService)
	if err != nil {
		return nil, fmt.Errorf("failed to build HTTP server: %w", err)
	}

	appCtx, cancel := context.WithCancel(ctx)

	// Cleanup is now handled by the app
	cleanupNeeded = false

	var once gosync.Once
	cancelFunc := func() {
		once.Do(func() {
			cancel()
			cfg.storageFactory.Cleanup()
		})
	}

	return &SyncApp{
		config:     cfg.config,
		components: components,
		httpServer: httpServer,
		ctx:        appCtx,
		cancelFunc: cancelFunc,
	}, nil
}

// WithConfig sets the configuration
func WithConfig(c *config.Config) SyncAppOptions {
	return func(cfg *syncAppConfig) error {
		cfg.config = c
		return nil
	}
}

// WithOverrides sets the key-value store whose values win over the
// configuration file. It is read at the start of every cycle.
func WithOverrides(store config.Store) SyncAppOptions {
	return func(cfg *syncAppConfig) error {
		cfg.overrides = store
		return nil
	}
}

// WithAddress sets the HTTP server address
func WithAddress(addr string) SyncAppOptions {
	return func(cfg *syncAppConfig) error {
		if addr == "" {
			return fmt.Errorf("address cannot be empty")
		}

		host, port, found := strings.Cut(addr, ":")
		if !found || port == "" {
			return fmt.Errorf("address is not a valid port: %s", addr)
		}
		if host == "localhost" {
			host = "127.0.0.1"
		}
		if host == "" {
			host = "0.0.0.0"
		}

		if _, err := netip.ParseAddrPort(host + ":" + port); err != nil {
			return fmt.Errorf("address is not a valid port: %w", err)
		}

		cfg.address = addr
		return nil
	}
}

// WithMiddlewares sets custom HTTP middlewares
func WithMiddlewares(mw ...func(http.Handler) http.Handler) SyncAppOptions {
	return func(cfg *syncAppConfig) error {
		cfg.middlewares = mw
		return nil
	}
}

// WithStorageFactory allows injecting a custom storage factory (for testing)
func WithStorageFactory(f storage.Factory) SyncAppOptions {
	return func(cfg *syncAppConfig) error {
		cfg.storageFactory = f
		return nil
	}
}

// WithSyncManager allows injecting a custom sync manager (for testing)
func WithSyncManager(sm pkgsync.Manager) SyncAppOptions {
	return func(cfg *syncAppConfig) error {
		cfg.syncManager = sm
		return nil
	}
}

// WithFeedClient allows injecting a custom feed client
func WithFeedClient(c feed.Client) SyncAppOptions {
	return func(cfg *syncAppConfig) error {
		cfg.feedClient = c
		return nil
	}
}

// WithMigrations applies pending database migrations on startup
func WithMigrations(enabled bool) SyncAppOptions {
	return func(cfg *syncAppConfig) error {
		cfg.migrate = enabled
		return nil
	}
}

// WithMeterProvider sets the OpenTelemetry meter provider for sync and HTTP metrics
func WithMeterProvider(mp metric.MeterProvider) SyncAppOptions {
	return func(cfg *syncAppConfig) error {
		cfg.meterProvider = mp
		return nil
	}
}

// WithTracerProvider sets the OpenTelemetry tracer provider
func WithTracerProvider(tp trace.TracerProvider) SyncAppOptions {
	return func(cfg *syncAppConfig) error {
		cfg.tracerProvider = tp
		return nil
	}
}

// WithMetricsHandler serves the Prometheus scrape handler at /metrics
func WithMetricsHandler(h http.Handler) SyncAppOptions {
	return func(cfg *syncAppConfig) error {
		cfg.metricsHandler = h
		return nil
	}
}

// buildSyncComponents builds the catalog, sync manager, coordinator and binding
func buildSyncComponents(ctx context.Context, b *syncAppConfig) (*AppComponents, error) {
	slog.Info("Initializing sync components")

	repo, err := b.storageFactory.CreateCatalog(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create catalog: %w", err)
	}

	triggers, err := b.storageFactory.CreateTriggerStore(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create trigger store: %w", err)
	}

	persistence, err := b.storageFactory.CreateStatusPersistence(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create status persistence: %w", err)
	}

	phases := coordinator.NewPhaseTracker()

	if b.syncManager == nil {
		b.syncManager = buildSyncManager(b, repo, phases)
	}

	coordOpts := []coordinator.Option{
		coordinator.WithOverrides(b.overrides),
		coordinator.WithLockDir(b.storageFactory.LockDir()),
		coordinator.WithPhaseTracker(phases),
	}

	syncMetrics, err := telemetry.NewSyncMetrics(b.meterProvider)
	if err != nil {
		return nil, fmt.Errorf("failed to create sync metrics: %w", err)
	}
	if syncMetrics != nil {
		coordOpts = append(coordOpts, coordinator.WithSyncMetrics(syncMetrics))
		slog.Info("Sync metrics enabled")
	}

	syncCoordinator, err := coordinator.New(b.syncManager, triggers, persistence, b.config, coordOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create coordinator: %w", err)
	}

	slog.Info("Sync components initialized successfully", "job", b.config.GetJobName())

	return &AppComponents{
		SyncCoordinator: syncCoordinator,
		Binding:         scheduler.NewBinding(b.config.GetJobName(), triggers, repo),
		Catalog:         repo,
	}, nil
}

func buildSyncManager(b *syncAppConfig, repo catalog.Repository, phases *coordinator.PhaseTracker) pkgsync.Manager {
	managerOpts := []pkgsync.Option{pkgsync.WithPhaseObserver(phases.Observe)}

	var feedOpts []feed.ClientOption
	if b.tracerProvider != nil {
		managerOpts = append(managerOpts, pkgsync.WithTracer(b.tracerProvider.Tracer(tracerPrefix+"sync")))
		feedOpts = append(feedOpts, feed.WithTracer(b.tracerProvider.Tracer(tracerPrefix+"feed")))
	}

	if b.feedClient == nil {
		b.feedClient = feed.NewClient(httpclient.NewDefaultClient(httpClientTimeout), feedOpts...)
	}

	return pkgsync.NewDefaultSyncManager(b.feedClient, repo, managerOpts...)
}

// buildHTTPServer builds the HTTP server with router and middleware
func buildHTTPServer(b *syncAppConfig, svc service.SyncService) (*http.Server, error) {
	slog.Info("Initializing HTTP server")

	if b.middlewares == nil {
		b.middlewares = []func(http.Handler) http.Handler{
			middleware.RequestID,
			middleware.RealIP,
			middleware.Recoverer,
			middleware.Timeout(b.requestTimeout),
			api.LoggingMiddleware,
		}
	}

	// Telemetry goes first so rejected and timed out requests are counted too
	httpMetrics, err := telemetry.NewHTTPMetrics(b.meterProvider)
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP metrics: %w", err)
	}
	if httpMetrics != nil {
		b.middlewares = append([]func(http.Handler) http.Handler{httpMetrics.Middleware}, b.middlewares...)
		slog.Info("HTTP metrics middleware enabled")
	}
	if b.tracerProvider != nil {
		b.middlewares = append([]func(http.Handler) http.Handler{telemetry.TracingMiddleware(b.tracerProvider)}, b.middlewares...)
		slog.Info("HTTP tracing middleware enabled")
	}

	router := api.NewServer(svc,
		api.WithMiddlewares(b.middlewares...),
		api.WithMetricsHandler(b.metricsHandler),
	)

	server := &http.Server{
		Addr:         b.address,
		Handler:      router,
		ReadTimeout:  b.readTimeout,
		WriteTimeout: b.writeTimeout,
		IdleTimeout:  b.idleTimeout,
	}

	slog.Info("HTTP server configured", "address", b.address)
	return server, nil
}
