// Cadence - Content-Based Audio Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cadence

package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/tomtom215/cadence/internal/logging"
	"github.com/tomtom215/cadence/internal/store"
)

// Validate checks that required configuration is present and valid
func (c *Config) Validate() error {
	validators := []func() error{
		c.validateFeatures,
		c.validateExtractor,
		c.validateIngest,
		c.validateStore,
		c.validateNATS,
		c.validateDeadLetter,
		c.validateRecommend,
		c.validateServer,
		c.validateLogging,
	}

	for _, validator := range validators {
		if err := validator(); err != nil {
			return err
		}
	}
	return nil
}

// validateFeatures requires every feature group to be non-empty.
func (c *Config) validateFeatures() error {
	if c.Features.MFCC < 1 || c.Features.Chroma < 1 || c.Features.Contrast < 1 {
		return fmt.Errorf("FEATURES_MFCC, FEATURES_CHROMA and FEATURES_CONTRAST must all be at least 1")
	}
	return nil
}

// validateExtractor validates the extraction service settings
func (c *Config) validateExtractor() error {
	if c.Extractor.URL == "" {
		return fmt.Errorf("EXTRACTOR_URL is required")
	}
	if err := validateExtractorURL(c.Extractor.URL); err != nil {
		return fmt.Errorf("EXTRACTOR_URL is invalid: %w", err)
	}
	if c.Extractor.RequestTimeout <= 0 {
		return fmt.Errorf("EXTRACTOR_REQUEST_TIMEOUT must be positive")
	}
	if c.Extractor.MaxConcurrent < 1 {
		return fmt.Errorf("EXTRACTOR_MAX_CONCURRENT must be at least 1")
	}
	if c.Extractor.BreakerEnabled {
		if c.Extractor.BreakerFailureRatio <= 0 || c.Extractor.BreakerFailureRatio > 1 {
			return fmt.Errorf("EXTRACTOR_BREAKER_FAILURE_RATIO must be in (0, 1]")
		}
		if c.Extractor.BreakerTimeout <= 0 {
			return fmt.Errorf("EXTRACTOR_BREAKER_TIMEOUT must be positive")
		}
	}
	return nil
}

// validateIngest delegates to the coordinator's own validation
func (c *Config) validateIngest() error {
	if err := c.Ingest.Validate(); err != nil {
		return fmt.Errorf("ingest: %w", err)
	}
	return nil
}

// validStoreBackends defines the supported Track Store backends
var validStoreBackends = map[string]bool{
	store.BackendDuckDB:   true,
	store.BackendSQLite:   true,
	store.BackendPostgres: true,
}

// validateStore validates the Track Store settings
func (c *Config) validateStore() error {
	if !validStoreBackends[c.Store.Backend] {
		return fmt.Errorf("STORE_BACKEND must be one of: duckdb, sqlite, postgres")
	}
	if c.Store.Backend == store.BackendPostgres && c.Store.DSN == "" {
		return fmt.Errorf("DATABASE_URL is required when STORE_BACKEND=postgres")
	}
	if c.Store.MaxOpenConns < 0 {
		return fmt.Errorf("STORE_MAX_OPEN_CONNS must not be negative")
	}
	return nil
}

// NATS limit constants
const (
	natsMinMemory      = 64 * 1024 * 1024  // 64MB
	natsMinStore       = 100 * 1024 * 1024 // 100MB
	natsMaxRetention   = 365
	natsMinRetention   = 1
	natsMaxSubscribers = 32
)

// validateNATS validates NATS configuration (only if enabled)
func (c *Config) validateNATS() error {
	if !c.NATS.Enabled {
		if c.NATS.LocalQueueSize < 1 {
			return fmt.Errorf("NATS_LOCAL_QUEUE_SIZE must be at least 1 when NATS is disabled")
		}
		return nil
	}

	if err := validateNATSURL(c.NATS.URL); err != nil {
		return fmt.Errorf("NATS_URL is invalid: %w", err)
	}

	validators := []func() error{
		c.validateNATSLimits,
		c.validateNATSNames,
		c.validateNATSConsumer,
	}
	for _, validator := range validators {
		if err := validator(); err != nil {
			return err
		}
	}
	return nil
}

// validateNATSLimits validates NATS storage and retention limits
func (c *Config) validateNATSLimits() error {
	if c.NATS.MaxMemory < natsMinMemory {
		return fmt.Errorf("NATS_MAX_MEMORY must be at least 64MB (67108864 bytes)")
	}
	if c.NATS.MaxStore < natsMinStore {
		return fmt.Errorf("NATS_MAX_STORE must be at least 100MB (104857600 bytes)")
	}
	if c.NATS.StreamRetentionDays < natsMinRetention || c.NATS.StreamRetentionDays > natsMaxRetention {
		return fmt.Errorf("NATS_RETENTION_DAYS must be between 1 and 365")
	}
	return nil
}

// validateNATSNames validates subjects and stream names
func (c *Config) validateNATSNames() error {
	if c.NATS.Subject == "" {
		return fmt.Errorf("NATS_SUBJECT is required")
	}
	if strings.ContainsAny(c.NATS.StreamName, " .*>") || c.NATS.StreamName == "" {
		return fmt.Errorf("NATS_STREAM must be non-empty and must not contain spaces, '.', '*' or '>'")
	}
	if c.NATS.RouterPoisonQueueTopic == c.NATS.Subject {
		return fmt.Errorf("NATS_ROUTER_POISON_TOPIC must differ from NATS_SUBJECT")
	}
	return nil
}

// validateNATSConsumer validates consumer and router settings
func (c *Config) validateNATSConsumer() error {
	if c.NATS.SubscribersCount < 1 || c.NATS.SubscribersCount > natsMaxSubscribers {
		return fmt.Errorf("NATS_SUBSCRIBERS must be between 1 and 32")
	}
	if c.NATS.DurableName == "" {
		return fmt.Errorf("NATS_DURABLE_NAME is required")
	}
	if c.NATS.AckWait < time.Second {
		return fmt.Errorf("NATS_ACK_WAIT must be at least 1s")
	}
	// Extraction must finish before JetStream redelivers the message.
	if c.NATS.AckWait <= c.Ingest.ExtractTimeout {
		return fmt.Errorf("NATS_ACK_WAIT (%v) must exceed INGEST_EXTRACT_TIMEOUT (%v)", c.NATS.AckWait, c.Ingest.ExtractTimeout)
	}
	if c.NATS.MaxDeliver < 1 {
		return fmt.Errorf("NATS_MAX_DELIVER must be at least 1")
	}
	if c.NATS.RouterRetryCount < 0 {
		return fmt.Errorf("NATS_ROUTER_RETRY_COUNT must not be negative")
	}
	if c.NATS.RouterThrottlePerSecond < 0 {
		return fmt.Errorf("NATS_ROUTER_THROTTLE must not be negative")
	}
	return nil
}

// validateDeadLetter delegates to the dead-letter store's own validation
func (c *Config) validateDeadLetter() error {
	if err := c.DeadLetter.Validate(); err != nil {
		return fmt.Errorf("deadletter: %w", err)
	}
	return nil
}

// validateRecommend validates engine settings
func (c *Config) validateRecommend() error {
	if err := c.RecommendConfig().Validate(); err != nil {
		return fmt.Errorf("recommend: %w", err)
	}
	if c.Recommend.SnapshotTTL > 0 && c.Recommend.JanitorInterval <= 0 {
		return fmt.Errorf("RECOMMEND_JANITOR_INTERVAL must be positive when RECOMMEND_SNAPSHOT_TTL is set")
	}
	return nil
}

// Rate limit constants
const (
	minRateLimitRequests = 1
	maxRateLimitRequests = 100000
	minRateLimitWindow   = time.Second
	maxRateLimitWindow   = time.Hour
)

// validateServer validates server configuration
func (c *Config) validateServer() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("HTTP_PORT must be between 1 and 65535")
	}
	if c.Server.RateLimitDisabled {
		return nil
	}
	if c.Server.RateLimitReqs < minRateLimitRequests || c.Server.RateLimitReqs > maxRateLimitRequests {
		return fmt.Errorf("RATE_LIMIT_REQUESTS must be between %d and %d", minRateLimitRequests, maxRateLimitRequests)
	}
	if c.Server.RateLimitWindow < minRateLimitWindow || c.Server.RateLimitWindow > maxRateLimitWindow {
		return fmt.Errorf("RATE_LIMIT_WINDOW must be between %v and %v", minRateLimitWindow, maxRateLimitWindow)
	}
	return nil
}

// validLogFormats defines the allowed log output formats
var validLogFormats = map[string]bool{
	"json":    true,
	"console": true,
}

// validateLogging validates logging configuration
func (c *Config) validateLogging() error {
	if !logging.ValidLevel(c.Logging.Level) {
		return fmt.Errorf("LOG_LEVEL must be one of: trace, debug, info, warn, error, fatal, panic, disabled")
	}
	if c.Logging.Format != "" && !validLogFormats[c.Logging.Format] {
		return fmt.Errorf("LOG_FORMAT must be one of: json, console")
	}
	return nil
}
