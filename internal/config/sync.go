package config

import (
	"fmt"
	"time"
)

// Keys of the key-value configuration store. They mirror the YAML layout so
// that environment variables such as CATALOG_SYNC_FEED_URL line up.
const (
	KeyFeedURL         = "feed.url"
	KeyMaxRecords      = "feed.maxRecords"
	KeyFetchTimeout    = "feed.timeout"
	KeyIntervalMinutes = "sync.intervalMinutes"
)

// Store is a read-only key-value configuration store. *viper.Viper satisfies it.
type Store interface {
	IsSet(key string) bool
	GetString(key string) string
	GetInt(key string) int
}

// SyncConfig is the validated option set read at the start of every sync cycle
type SyncConfig struct {
	FeedURL         string
	MaxRecords      int
	IntervalMinutes int
	FetchTimeout    time.Duration

	// Filter comes from the configuration file only
	Filter *FilterConfig
}

// Interval returns the sync interval, which is also the staleness window
func (s *SyncConfig) Interval() time.Duration {
	return time.Duration(s.IntervalMinutes) * time.Minute
}

// ResolveSyncConfig builds the sync options. Store values take precedence over
// file values and defaults fill whatever neither sets. Either argument may be nil.
func ResolveSyncConfig(cfg *Config, store Store) (*SyncConfig, error) {
	sc := &SyncConfig{
		FeedURL:         DefaultFeedURL,
		MaxRecords:      DefaultMaxRecords,
		IntervalMinutes: DefaultIntervalMinutes,
		FetchTimeout:    DefaultFetchTimeout,
	}

	timeout := ""
	if cfg != nil {
		if cfg.Feed.URL != "" {
			sc.FeedURL = cfg.Feed.URL
		}
		if cfg.Feed.MaxRecords != nil {
			sc.MaxRecords = *cfg.Feed.MaxRecords
		}
		if cfg.Sync.IntervalMinutes != nil {
			sc.IntervalMinutes = *cfg.Sync.IntervalMinutes
		}
		timeout = cfg.Feed.Timeout
		sc.Filter = cfg.Feed.Filter
	}

	if store != nil {
		if store.IsSet(KeyFeedURL) && store.GetString(KeyFeedURL) != "" {
			sc.FeedURL = store.GetString(KeyFeedURL)
		}
		if store.IsSet(KeyMaxRecords) {
			sc.MaxRecords = store.GetInt(KeyMaxRecords)
		}
		if store.IsSet(KeyIntervalMinutes) {
			sc.IntervalMinutes = store.GetInt(KeyIntervalMinutes)
		}
		if store.IsSet(KeyFetchTimeout) && store.GetString(KeyFetchTimeout) != "" {
			timeout = store.GetString(KeyFetchTimeout)
		}
	}

	if timeout != "" {
		d, err := time.ParseDuration(timeout)
		if err != nil || d <= 0 {
			return nil, fmt.Errorf("%s must be a positive duration, got %q", KeyFetchTimeout, timeout)
		}
		sc.FetchTimeout = d
	}

	if err := sc.Validate(); err != nil {
		return nil, err
	}
	return sc, nil
}

// Validate checks the invariants of the option set
func (s *SyncConfig) Validate() error {
	if s.FeedURL == "" {
		return fmt.Errorf("%s is required", KeyFeedURL)
	}
	if err := validateFeedURL(s.FeedURL); err != nil {
		return fmt.Errorf("%s: %w", KeyFeedURL, err)
	}
	if s.MaxRecords < 0 {
		return fmt.Errorf("%s must be >= 0, got %d", KeyMaxRecords, s.MaxRecords)
	}
	if s.IntervalMinutes <= 0 {
		return fmt.Errorf("%s must be > 0, got %d", KeyIntervalMinutes, s.IntervalMinutes)
	}
	return nil
}
