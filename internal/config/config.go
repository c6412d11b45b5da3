// Cadence - Content-Based Audio Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cadence

package config

import (
	"fmt"
	"time"

	"github.com/tomtom215/cadence/internal/deadletter"
	"github.com/tomtom215/cadence/internal/extractor"
	"github.com/tomtom215/cadence/internal/ingest"
	"github.com/tomtom215/cadence/internal/logging"
	"github.com/tomtom215/cadence/internal/models"
	"github.com/tomtom215/cadence/internal/recommend"
	"github.com/tomtom215/cadence/internal/store"
)

// Config holds all application configuration
type Config struct {
	Features   FeaturesConfig    `koanf:"features"`
	Extractor  ExtractorConfig   `koanf:"extractor"`
	Ingest     ingest.Config     `koanf:"ingest"`
	Store      StoreConfig       `koanf:"store"`
	NATS       NATSConfig        `koanf:"nats"`
	DeadLetter deadletter.Config `koanf:"deadletter"`
	Recommend  RecommendConfig   `koanf:"recommend"`
	Server     ServerConfig      `koanf:"server"`
	Logging    logging.Config    `koanf:"logging"`
}

// FeaturesConfig sizes the three sub-feature groups of every vector.
type FeaturesConfig struct {
	MFCC     int `koanf:"mfcc"`
	Chroma   int `koanf:"chroma"`
	Contrast int `koanf:"contrast"`
}

// Layout returns the feature layout.
func (c FeaturesConfig) Layout() models.FeatureLayout {
	return models.FeatureLayout{MFCC: c.MFCC, Chroma: c.Chroma, Contrast: c.Contrast}
}

// Dimension returns the total vector length.
func (c FeaturesConfig) Dimension() int {
	return c.Layout().Dimension()
}

// ExtractorConfig holds feature extraction service settings
type ExtractorConfig struct {
	// URL is the base URL of the extraction service.
	URL string `koanf:"url"`

	// RequestTimeout bounds a single HTTP call. The ingest extract timeout
	// bounds the whole extraction phase.
	RequestTimeout time.Duration `koanf:"request_timeout"`

	// MaxConcurrent caps simultaneous extraction calls.
	MaxConcurrent int `koanf:"max_concurrent"`

	// Circuit breaker
	BreakerEnabled      bool          `koanf:"breaker_enabled"`
	BreakerMaxRequests  uint32        `koanf:"breaker_max_requests"`
	BreakerInterval     time.Duration `koanf:"breaker_interval"`
	BreakerTimeout      time.Duration `koanf:"breaker_timeout"`
	BreakerMinRequests  uint32        `koanf:"breaker_min_requests"`
	BreakerFailureRatio float64       `koanf:"breaker_failure_ratio"`
}

// BreakerConfig returns the circuit breaker settings.
func (c *ExtractorConfig) BreakerConfig() extractor.BreakerConfig {
	cfg := extractor.DefaultBreakerConfig()
	cfg.MaxRequests = c.BreakerMaxRequests
	cfg.Interval = c.BreakerInterval
	cfg.Timeout = c.BreakerTimeout
	cfg.MinRequests = c.BreakerMinRequests
	cfg.FailureRatio = c.BreakerFailureRatio
	return cfg
}

// StoreConfig selects the Track Store backend
type StoreConfig struct {
	Backend      string        `koanf:"backend"`
	Path         string        `koanf:"path"`
	DSN          string        `koanf:"dsn"`
	MaxOpenConns int           `koanf:"max_open_conns"`
	Threads      int           `koanf:"threads"`
	MaxMemory    string        `koanf:"max_memory"`
	BusyTimeout  time.Duration `koanf:"busy_timeout"`
}

// StoreConfig returns the store settings sized for the given vector dimension.
func (c *Config) StoreConfig() store.Config {
	return store.Config{
		Backend:      c.Store.Backend,
		Path:         c.Store.Path,
		DSN:          c.Store.DSN,
		Dimension:    c.Features.Dimension(),
		MaxOpenConns: c.Store.MaxOpenConns,
		Threads:      c.Store.Threads,
		MaxMemory:    c.Store.MaxMemory,
		BusyTimeout:  c.Store.BusyTimeout,
	}
}

// NATSConfig holds NATS JetStream event transport settings
type NATSConfig struct {
	// Enabled routes ingestion through JetStream. When false events are
	// handed to the coordinator through an in-process queue.
	Enabled        bool   `koanf:"enabled"`
	URL            string `koanf:"url"`
	EmbeddedServer bool   `koanf:"embedded_server"`
	StoreDir       string `koanf:"store_dir"`
	MaxMemory      int64  `koanf:"max_memory"`
	MaxStore       int64  `koanf:"max_store"`

	// Stream
	Subject             string `koanf:"subject"`
	StreamName          string `koanf:"stream_name"`
	StreamRetentionDays int    `koanf:"stream_retention_days"`

	// Consumer
	SubscribersCount int           `koanf:"subscribers_count"`
	DurableName      string        `koanf:"durable_name"`
	QueueGroup       string        `koanf:"queue_group"`
	AckWait          time.Duration `koanf:"ack_wait"`
	MaxDeliver       int           `koanf:"max_deliver"`

	// Router
	RouterRetryCount           int           `koanf:"router_retry_count"`
	RouterRetryInitialInterval time.Duration `koanf:"router_retry_initial_interval"`
	RouterThrottlePerSecond    int64         `koanf:"router_throttle_per_second"`
	RouterPoisonQueueTopic     string        `koanf:"router_poison_queue_topic"`
	RouterCloseTimeout         time.Duration `koanf:"router_close_timeout"`

	// LocalQueueSize is the in-process queue capacity used when NATS is disabled.
	LocalQueueSize int `koanf:"local_queue_size"`
}

// RecommendConfig holds recommendation engine settings
type RecommendConfig struct {
	Parallelism  int           `koanf:"parallelism"`
	SnapshotTTL  time.Duration `koanf:"snapshot_ttl"`
	MaxSnapshots int           `koanf:"max_snapshots"`
	DefaultLimit int           `koanf:"default_limit"`
	MaxLimit     int           `koanf:"max_limit"`

	// JanitorInterval is how often expired snapshots are purged.
	JanitorInterval time.Duration `koanf:"janitor_interval"`
}

// RecommendConfig returns the engine settings for the configured feature dimension.
func (c *Config) RecommendConfig() *recommend.Config {
	return &recommend.Config{
		Dimension:    c.Features.Dimension(),
		Parallelism:  c.Recommend.Parallelism,
		SnapshotTTL:  c.Recommend.SnapshotTTL,
		MaxSnapshots: c.Recommend.MaxSnapshots,
		DefaultLimit: c.Recommend.DefaultLimit,
		MaxLimit:     c.Recommend.MaxLimit,
	}
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port"`
	ReadTimeout     time.Duration `koanf:"read_timeout"`
	WriteTimeout    time.Duration `koanf:"write_timeout"`
	IdleTimeout     time.Duration `koanf:"idle_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`

	CORSOrigins       []string      `koanf:"cors_origins"`
	RateLimitReqs     int           `koanf:"rate_limit_reqs"`
	RateLimitWindow   time.Duration `koanf:"rate_limit_window"`
	RateLimitDisabled bool          `koanf:"rate_limit_disabled"`
}

// Addr returns the listen address.
func (c *ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
