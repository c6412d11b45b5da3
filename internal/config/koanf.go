// Cadence - Content-Based Audio Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cadence

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"

	"github.com/tomtom215/cadence/internal/deadletter"
	"github.com/tomtom215/cadence/internal/eventprocessor"
	"github.com/tomtom215/cadence/internal/extractor"
	"github.com/tomtom215/cadence/internal/ingest"
	"github.com/tomtom215/cadence/internal/logging"
	"github.com/tomtom215/cadence/internal/models"
	"github.com/tomtom215/cadence/internal/recommend"
	"github.com/tomtom215/cadence/internal/store"
)

// DefaultConfigPaths lists the paths searched for a config file, in order.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/cadence/config.yaml",
}

// ConfigPathEnvVar names the environment variable that points at a config file.
const ConfigPathEnvVar = "CONFIG_PATH"

// defaultConfig returns the built-in defaults.
func defaultConfig() *Config {
	layout := models.DefaultFeatureLayout()
	breaker := extractor.DefaultBreakerConfig()
	rec := recommend.DefaultConfig()
	st := store.DefaultConfig()
	sub := eventprocessor.DefaultSubscriberConfig("")
	router := eventprocessor.DefaultRouterConfig()

	return &Config{
		Features: FeaturesConfig{
			MFCC:     layout.MFCC,
			Chroma:   layout.Chroma,
			Contrast: layout.Contrast,
		},
		Extractor: ExtractorConfig{
			URL:                 "http://127.0.0.1:9090",
			RequestTimeout:      90 * time.Second,
			MaxConcurrent:       4,
			BreakerEnabled:      true,
			BreakerMaxRequests:  breaker.MaxRequests,
			BreakerInterval:     breaker.Interval,
			BreakerTimeout:      breaker.Timeout,
			BreakerMinRequests:  breaker.MinRequests,
			BreakerFailureRatio: breaker.FailureRatio,
		},
		Ingest: ingest.DefaultConfig(),
		Store: StoreConfig{
			Backend:     st.Backend,
			Path:        st.Path,
			MaxMemory:   st.MaxMemory,
			BusyTimeout: st.BusyTimeout,
		},
		NATS: NATSConfig{
			Enabled:             true,
			URL:                 "nats://127.0.0.1:4222",
			EmbeddedServer:      true,
			StoreDir:            "/data/nats/jetstream",
			MaxMemory:           256 << 20, // 256MB
			MaxStore:            4 << 30,   // 4GB
			Subject:             eventprocessor.DefaultSubject,
			StreamName:          eventprocessor.DefaultStreamName,
			StreamRetentionDays: 7,

			SubscribersCount: sub.SubscribersCount,
			DurableName:      sub.DurableName,
			QueueGroup:       sub.QueueGroup,
			AckWait:          sub.AckWaitTimeout,
			MaxDeliver:       sub.MaxDeliver,

			RouterRetryCount:           router.RetryMaxRetries,
			RouterRetryInitialInterval: router.RetryInitialInterval,
			RouterThrottlePerSecond:    router.ThrottlePerSecond,
			RouterPoisonQueueTopic:     router.PoisonQueueTopic,
			RouterCloseTimeout:         router.CloseTimeout,

			LocalQueueSize: 1024,
		},
		DeadLetter: deadletter.DefaultConfig(),
		Recommend: RecommendConfig{
			Parallelism:     rec.Parallelism,
			SnapshotTTL:     time.Hour,
			MaxSnapshots:    rec.MaxSnapshots,
			DefaultLimit:    rec.DefaultLimit,
			MaxLimit:        rec.MaxLimit,
			JanitorInterval: 5 * time.Minute,
		},
		Server: ServerConfig{
			Host:              "0.0.0.0",
			Port:              3870,
			ReadTimeout:       15 * time.Second,
			WriteTimeout:      30 * time.Second,
			IdleTimeout:       2 * time.Minute,
			ShutdownTimeout:   15 * time.Second,
			CORSOrigins:       []string{"*"},
			RateLimitReqs:     100,
			RateLimitWindow:   time.Minute,
			RateLimitDisabled: false,
		},
		Logging: loggingDefaults(),
	}
}

// loggingDefaults returns the logging defaults without an output writer,
// which is not a configurable value.
func loggingDefaults() logging.Config {
	cfg := logging.DefaultConfig()
	cfg.Output = nil
	return cfg
}

// LoadWithKoanf loads configuration with layered sources:
//  1. Defaults: built-in defaults
//  2. Config File: optional YAML file
//  3. Environment Variables: override any mapped setting
//
// Precedence is ENV > File > Defaults. The result is validated before it is returned.
func LoadWithKoanf() (*Config, error) {
	return load(findConfigFile())
}

// LoadFile loads configuration from an explicit YAML file plus the environment.
func LoadFile(path string) (*Config, error) {
	return load(path)
}

func load(configPath string) (*Config, error) {
	k := koanf.New(".")

	// Layer 1: defaults
	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// Layer 2: config file (optional)
	if configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	// Layer 3: environment variables
	// EXTRACTOR_URL -> extractor.url
	// NATS_SUBJECT -> nats.subject
	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("failed to process slice fields: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// findConfigFile returns the first config file found, or "".
func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}

	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}

// sliceConfigPaths defines which config paths should be parsed as comma-separated slices
var sliceConfigPaths = []string{
	"server.cors_origins",
}

// processSliceFields converts comma-separated string values to slices for known slice fields.
// Env vars arrive as strings while YAML already yields slices.
func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		strVal, ok := k.Get(path).(string)
		if !ok || strVal == "" {
			continue
		}

		parts := strings.Split(strVal, ",")
		trimmed := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				trimmed = append(trimmed, p)
			}
		}
		if len(trimmed) > 0 {
			if err := k.Set(path, trimmed); err != nil {
				return fmt.Errorf("failed to set %s: %w", path, err)
			}
		}
	}
	return nil
}

// envMappings maps environment variable names (lower-cased) to koanf paths.
var envMappings = map[string]string{
	// Feature layout
	"features_mfcc":     "features.mfcc",
	"features_chroma":   "features.chroma",
	"features_contrast": "features.contrast",

	// Extractor
	"extractor_url":                   "extractor.url",
	"extractor_request_timeout":       "extractor.request_timeout",
	"extractor_max_concurrent":        "extractor.max_concurrent",
	"extractor_breaker_enabled":       "extractor.breaker_enabled",
	"extractor_breaker_timeout":       "extractor.breaker_timeout",
	"extractor_breaker_min_requests":  "extractor.breaker_min_requests",
	"extractor_breaker_failure_ratio": "extractor.breaker_failure_ratio",

	// Ingestion coordinator
	"ingest_extract_timeout":    "ingest.extract_timeout",
	"ingest_max_retries":        "ingest.max_retries",
	"ingest_initial_backoff":    "ingest.initial_backoff",
	"ingest_max_backoff":        "ingest.max_backoff",
	"ingest_backoff_multiplier": "ingest.backoff_multiplier",
	"ingest_jitter_fraction":    "ingest.jitter_fraction",

	// Track store
	"store_backend":        "store.backend",
	"store_path":           "store.path",
	"duckdb_path":          "store.path",
	"duckdb_max_memory":    "store.max_memory",
	"duckdb_threads":       "store.threads",
	"database_url":         "store.dsn",
	"store_dsn":            "store.dsn",
	"store_max_open_conns": "store.max_open_conns",
	"sqlite_busy_timeout":  "store.busy_timeout",

	// NATS
	"nats_enabled":          "nats.enabled",
	"nats_url":              "nats.url",
	"nats_embedded":         "nats.embedded_server",
	"nats_store_dir":        "nats.store_dir",
	"nats_max_memory":       "nats.max_memory",
	"nats_max_store":        "nats.max_store",
	"nats_subject":          "nats.subject",
	"nats_stream":           "nats.stream_name",
	"nats_retention_days":   "nats.stream_retention_days",
	"nats_subscribers":      "nats.subscribers_count",
	"nats_durable_name":     "nats.durable_name",
	"nats_queue_group":      "nats.queue_group",
	"nats_ack_wait":         "nats.ack_wait",
	"nats_max_deliver":      "nats.max_deliver",
	"nats_local_queue_size": "nats.local_queue_size",
	// Router
	"nats_router_retry_count":    "nats.router_retry_count",
	"nats_router_retry_interval": "nats.router_retry_initial_interval",
	"nats_router_throttle":       "nats.router_throttle_per_second",
	"nats_router_poison_topic":   "nats.router_poison_queue_topic",
	"nats_router_close_timeout":  "nats.router_close_timeout",

	// Dead-letter store
	"deadletter_path":                "deadletter.path",
	"deadletter_sync_writes":         "deadletter.sync_writes",
	"deadletter_entry_ttl":           "deadletter.entry_ttl",
	"deadletter_resolved_ttl":        "deadletter.resolved_ttl",
	"deadletter_auto_replay":         "deadletter.auto_replay",
	"deadletter_replay_interval":     "deadletter.replay_interval",
	"deadletter_replay_rate":         "deadletter.replay_rate",
	"deadletter_max_replay_attempts": "deadletter.max_replay_attempts",

	// Recommendation engine
	"recommend_parallelism":      "recommend.parallelism",
	"recommend_snapshot_ttl":     "recommend.snapshot_ttl",
	"recommend_max_snapshots":    "recommend.max_snapshots",
	"recommend_default_limit":    "recommend.default_limit",
	"recommend_max_limit":        "recommend.max_limit",
	"recommend_janitor_interval": "recommend.janitor_interval",

	// Server
	"http_host":             "server.host",
	"http_port":             "server.port",
	"http_read_timeout":     "server.read_timeout",
	"http_write_timeout":    "server.write_timeout",
	"http_idle_timeout":     "server.idle_timeout",
	"http_shutdown_timeout": "server.shutdown_timeout",
	"cors_origins":          "server.cors_origins",
	"rate_limit_requests":   "server.rate_limit_reqs",
	"rate_limit_window":     "server.rate_limit_window",
	"disable_rate_limit":    "server.rate_limit_disabled",

	// Logging
	"log_level":     "logging.level",
	"log_format":    "logging.format",
	"log_caller":    "logging.caller",
	"log_timestamp": "logging.timestamp",
}

// envTransformFunc transforms environment variable names to koanf config paths.
// Unmapped variables return "" and are skipped so unrelated environment
// variables never leak into the configuration.
func envTransformFunc(key string) string {
	return envMappings[strings.ToLower(key)]
}
