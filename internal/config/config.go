// Package config provides configuration loading and management for the catalog sync service.
package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/gobwas/glob"
	"gopkg.in/yaml.v3"

	"github.com/webspark/catalog-sync/internal/product"
	"github.com/webspark/catalog-sync/internal/telemetry"
	"github.com/webspark/catalog-sync/internal/validators"
)

const (
	// EnvPrefix is the prefix of environment variables that override configuration keys
	EnvPrefix = "CATALOG_SYNC"

	// DefaultFeedURL is the feed polled when no URL is configured
	DefaultFeedURL = "https://my.api.mockaroo.com/products.json?key=89b23a40"

	// DefaultMaxRecords is the number of feed records processed per cycle when unset
	DefaultMaxRecords = 100

	// DefaultIntervalMinutes is the sync interval when unset
	DefaultIntervalMinutes = 60

	// DefaultFetchTimeout bounds a single feed download
	DefaultFetchTimeout = 30 * time.Second

	// DefaultJobName identifies the recurring sync job
	DefaultJobName = "catalog-sync"

	// DefaultPollInterval is how often the coordinator checks for due triggers
	DefaultPollInterval = 30 * time.Second

	defaultBaseDir = "./data"
)

// StorageType is the kind of backend holding the catalog and the sync state
type StorageType string

const (
	// StorageTypeFile keeps the catalog in memory and the sync state in local files
	StorageTypeFile StorageType = "file"

	// StorageTypeDatabase keeps everything in PostgreSQL
	StorageTypeDatabase StorageType = "database"
)

// Option defines the interface for configuration options
type Option func(*loaderConfig) error

// loaderConfig defines the configuration for loading a configuration
type loaderConfig struct {
	path string
}

// WithConfigPath loads configuration from a YAML file
func WithConfigPath(path string) Option {
	return func(cfg *loaderConfig) error {
		if path == "" {
			return fmt.Errorf("path is required")
		}

		// Resolve symlinks to prevent symlink attacks.
		// Note that this calls filepath.Clean internally.
		realPath, err := filepath.EvalSymlinks(path)
		if err != nil {
			return fmt.Errorf("failed to evaluate symlinks: %w", err)
		}

		if !filepath.IsAbs(realPath) {
			if !filepath.IsLocal(realPath) {
				return fmt.Errorf("path is not local or contains invalid traversal: %s", path)
			}
		}

		cfg.path = realPath
		return nil
	}
}

// Config represents the root configuration structure
type Config struct {
	Feed        FeedConfig         `yaml:"feed"`
	Sync        SyncPolicyConfig   `yaml:"sync"`
	FileStorage *FileStorageConfig `yaml:"fileStorage,omitempty"`
	Database    *DatabaseConfig    `yaml:"database,omitempty"`
	Telemetry   *telemetry.Config  `yaml:"telemetry,omitempty"`
}

// FeedConfig defines where the product feed lives and how much of it is used
type FeedConfig struct {
	// URL is the HTTP(S) endpoint returning the product feed
	URL string `yaml:"url,omitempty"`

	// MaxRecords truncates the feed after fetching. Nil means "use the default".
	MaxRecords *int `yaml:"maxRecords,omitempty"`

	// Timeout bounds a single download (e.g. "30s")
	Timeout string `yaml:"timeout,omitempty"`

	// Filter selects the records that are stored. Nil stores every record.
	Filter *FilterConfig `yaml:"filter,omitempty"`
}

// FilterConfig defines include/exclude lists applied to feed records
type FilterConfig struct {
	// SKU holds glob patterns matched against the record SKU
	SKU *IncludeExclude `yaml:"sku,omitempty"`

	// Stock holds stock statuses matched exactly (instock, outofstock, onbackorder)
	Stock *IncludeExclude `yaml:"stock,omitempty"`
}

// IncludeExclude is a pair of include and exclude lists
type IncludeExclude struct {
	Include []string `yaml:"include,omitempty"`
	Exclude []string `yaml:"exclude,omitempty"`
}

// IsEmpty reports whether f filters nothing
func (f *FilterConfig) IsEmpty() bool {
	return f == nil || (f.SKU.isEmpty() && f.Stock.isEmpty())
}

func (ie *IncludeExclude) isEmpty() bool {
	return ie == nil || (len(ie.Include) == 0 && len(ie.Exclude) == 0)
}

// SyncPolicyConfig defines the recurring job
type SyncPolicyConfig struct {
	// JobName identifies the trigger and the run lock
	JobName string `yaml:"jobName,omitempty"`

	// IntervalMinutes is both the schedule period and the staleness window.
	// Nil means "use the default".
	IntervalMinutes *int `yaml:"intervalMinutes,omitempty"`

	// PollInterval is how often due triggers are checked (e.g. "30s")
	PollInterval string `yaml:"pollInterval,omitempty"`
}

// FileStorageConfig defines where local state files are kept
type FileStorageConfig struct {
	// BaseDir holds trigger, status and lock files
	BaseDir string `yaml:"baseDir,omitempty"`
}

// DatabaseConfig defines database connection settings
type DatabaseConfig struct {
	// Host is the database server hostname or IP address
	Host string `yaml:"host"`

	// Port is the database server port
	Port int `yaml:"port"`

	// User is the database username
	User string `yaml:"user"`

	// PasswordFile is the path to a file containing the database password
	PasswordFile string `yaml:"passwordFile,omitempty"`

	// Database is the database name
	Database string `yaml:"database"`

	// SSLMode is the SSL mode for the connection (disable, require, verify-ca, verify-full)
	SSLMode string `yaml:"sslMode,omitempty"`

	// MaxOpenConns is the maximum number of open connections to the database
	MaxOpenConns int32 `yaml:"maxOpenConns,omitempty"`

	// MaxIdleConns is the minimum number of connections kept in the pool
	MaxIdleConns int32 `yaml:"maxIdleConns,omitempty"`

	// ConnMaxLifetime is the maximum lifetime of a connection (e.g., "1h", "30m")
	ConnMaxLifetime string `yaml:"connMaxLifetime,omitempty"`
}

// GetPassword returns the database password using the following priority:
// 1. Read from PasswordFile if specified
// 2. Read from CATALOG_SYNC_DATABASE_PASSWORD environment variable
func (d *DatabaseConfig) GetPassword() (string, error) {
	if d.PasswordFile != "" {
		cleanPath := filepath.Clean(d.PasswordFile)

		data, err := os.ReadFile(cleanPath)
		if err != nil {
			return "", fmt.Errorf("failed to read password from file %s: %w", d.PasswordFile, err)
		}

		return strings.TrimSpace(string(data)), nil
	}

	if envPassword := os.Getenv(EnvPrefix + "_DATABASE_PASSWORD"); envPassword != "" {
		return envPassword, nil
	}

	return "", fmt.Errorf(
		"no database password configured: set passwordFile or %s_DATABASE_PASSWORD environment variable", EnvPrefix,
	)
}

// GetConnectionString builds a PostgreSQL connection string.
// The password is URL-escaped to handle special characters safely.
func (d *DatabaseConfig) GetConnectionString() (string, error) {
	password, err := d.GetPassword()
	if err != nil {
		return "", err
	}

	sslMode := d.SSLMode
	if sslMode == "" {
		sslMode = "require"
	}

	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		url.QueryEscape(d.User),
		url.QueryEscape(password),
		d.Host,
		d.Port,
		d.Database,
		sslMode,
	), nil
}

// LoadConfig loads and parses configuration from a YAML file
func LoadConfig(opts ...Option) (*Config, error) {
	loaderCfg := &loaderConfig{}
	for _, opt := range opts {
		if err := opt(loaderCfg); err != nil {
			return nil, err
		}
	}

	if loaderCfg.path == "" {
		return nil, fmt.Errorf("path is required")
	}

	data, err := os.ReadFile(loaderCfg.path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse YAML config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// GetStorageType returns database when a database section is present, file otherwise
func (c *Config) GetStorageType() StorageType {
	if c.Database != nil {
		return StorageTypeDatabase
	}
	return StorageTypeFile
}

// GetFileStorageBaseDir returns the directory for local state files
func (c *Config) GetFileStorageBaseDir() string {
	if c.FileStorage == nil || c.FileStorage.BaseDir == "" {
		return defaultBaseDir
	}
	return c.FileStorage.BaseDir
}

// GetJobName returns the configured job name or the default
func (c *Config) GetJobName() string {
	if c.Sync.JobName == "" {
		return DefaultJobName
	}
	return c.Sync.JobName
}

// GetPollInterval returns the trigger polling interval
func (c *Config) GetPollInterval() time.Duration {
	if c.Sync.PollInterval == "" {
		return DefaultPollInterval
	}
	d, err := time.ParseDuration(c.Sync.PollInterval)
	if err != nil || d <= 0 {
		return DefaultPollInterval
	}
	return d
}

// Validate checks the configuration. LoadConfig calls it on every file it reads.
func (c *Config) Validate() error {
	if c == nil {
		return fmt.Errorf("config cannot be nil")
	}

	if c.Feed.URL != "" {
		if err := validateFeedURL(c.Feed.URL); err != nil {
			return fmt.Errorf("feed.url: %w", err)
		}
	}

	if c.Feed.MaxRecords != nil && *c.Feed.MaxRecords < 0 {
		return fmt.Errorf("feed.maxRecords must be >= 0, got %d", *c.Feed.MaxRecords)
	}

	if c.Feed.Timeout != "" {
		if d, err := time.ParseDuration(c.Feed.Timeout); err != nil || d <= 0 {
			return fmt.Errorf("feed.timeout must be a positive duration (e.g., '30s'), got %q", c.Feed.Timeout)
		}
	}

	if err := c.Feed.Filter.validate(); err != nil {
		return fmt.Errorf("feed.filter: %w", err)
	}

	if c.Sync.JobName != "" {
		if err := validators.ValidateJobName(c.Sync.JobName); err != nil {
			return fmt.Errorf("sync.jobName: %w", err)
		}
	}

	if c.Sync.IntervalMinutes != nil && *c.Sync.IntervalMinutes <= 0 {
		return fmt.Errorf("sync.intervalMinutes must be > 0, got %d", *c.Sync.IntervalMinutes)
	}

	if c.Sync.PollInterval != "" {
		if d, err := time.ParseDuration(c.Sync.PollInterval); err != nil || d <= 0 {
			return fmt.Errorf("sync.pollInterval must be a positive duration (e.g., '30s'), got %q", c.Sync.PollInterval)
		}
	}

	if c.Database != nil {
		if err := validateDatabaseConfig(c.Database); err != nil {
			return err
		}
	}

	if err := c.Telemetry.Validate(); err != nil {
		return fmt.Errorf("telemetry: %w", err)
	}

	return nil
}

func (f *FilterConfig) validate() error {
	if f == nil {
		return nil
	}
	if f.SKU != nil {
		for _, pattern := range append(slices.Clone(f.SKU.Include), f.SKU.Exclude...) {
			if _, err := glob.Compile(pattern); err != nil {
				return fmt.Errorf("sku: invalid glob pattern %q: %w", pattern, err)
			}
		}
	}
	if f.Stock != nil {
		for _, s := range append(slices.Clone(f.Stock.Include), f.Stock.Exclude...) {
			if !product.StockStatus(s).Valid() {
				return fmt.Errorf("stock: unknown stock status %q", s)
			}
		}
	}
	return nil
}

// validateDatabaseConfig validates the required database settings
func validateDatabaseConfig(db *DatabaseConfig) error {
	if db.Host == "" {
		return fmt.Errorf("database.host is required")
	}
	if db.Port <= 0 {
		return fmt.Errorf("database.port is required")
	}
	if db.User == "" {
		return fmt.Errorf("database.user is required")
	}
	if db.Database == "" {
		return fmt.Errorf("database.database is required")
	}
	if db.ConnMaxLifetime != "" {
		if _, err := time.ParseDuration(db.ConnMaxLifetime); err != nil {
			return fmt.Errorf("database.connMaxLifetime must be a valid duration: %w", err)
		}
	}
	return nil
}

// validateFeedURL accepts absolute http and https URLs only
func validateFeedURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("scheme must be http or https, got %q", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("host is required")
	}
	return nil
}
