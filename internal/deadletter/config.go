// Cadence - Content-Based Audio Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cadence

package deadletter

import (
	"time"
)

// Config holds dead-letter store and replay settings.
type Config struct {
	// Path is the BadgerDB directory.
	Path string `koanf:"path"`

	// SyncWrites forces fsync after every write.
	SyncWrites bool `koanf:"sync_writes"`

	// Compression enables Snappy compression of entries.
	Compression bool `koanf:"compression"`

	// EntryTTL expires unreplayed entries. Zero keeps them until deleted.
	EntryTTL time.Duration `koanf:"entry_ttl"`

	// ResolvedTTL is how long successfully replayed entries are kept.
	ResolvedTTL time.Duration `koanf:"resolved_ttl"`

	// BadgerDB tuning
	MemTableSize     int64   `koanf:"memtable_size"`
	ValueLogFileSize int64   `koanf:"vlog_size"`
	NumCompactors    int     `koanf:"num_compactors"`
	GCRatio          float64 `koanf:"gc_ratio"`

	// AutoReplay enables the background replay worker.
	AutoReplay bool `koanf:"auto_replay"`

	// ReplayInterval is the time between replay passes.
	ReplayInterval time.Duration `koanf:"replay_interval"`

	// ReplayRate limits replays per second across a pass.
	ReplayRate float64 `koanf:"replay_rate"`

	// ReplayBurst is the token bucket size for ReplayRate.
	ReplayBurst int `koanf:"replay_burst"`

	// MaxReplayAttempts stops automatic replay of an entry after this many failures.
	MaxReplayAttempts int `koanf:"max_replay_attempts"`
}

// DefaultConfig returns the production defaults.
func DefaultConfig() Config {
	return Config{
		Path:              "/data/deadletter",
		SyncWrites:        true,
		Compression:       true,
		EntryTTL:          0,
		ResolvedTTL:       24 * time.Hour,
		MemTableSize:      16 * 1024 * 1024,
		ValueLogFileSize:  64 * 1024 * 1024,
		NumCompactors:     2,
		GCRatio:           0.5,
		AutoReplay:        true,
		ReplayInterval:    5 * time.Minute,
		ReplayRate:        5,
		ReplayBurst:       1,
		MaxReplayAttempts: 10,
	}
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if c.Path == "" {
		return &ConfigError{Field: "Path", Message: "dead-letter path is required"}
	}
	if c.EntryTTL < 0 {
		return &ConfigError{Field: "EntryTTL", Message: "must not be negative"}
	}
	if c.ResolvedTTL < 0 {
		return &ConfigError{Field: "ResolvedTTL", Message: "must not be negative"}
	}
	if c.MemTableSize < 1024*1024 {
		return &ConfigError{Field: "MemTableSize", Message: "must be at least 1MB"}
	}
	if c.ValueLogFileSize < 1024*1024 {
		return &ConfigError{Field: "ValueLogFileSize", Message: "must be at least 1MB"}
	}
	if c.NumCompactors < 2 {
		return &ConfigError{Field: "NumCompactors", Message: "must be at least 2 (BadgerDB requirement)"}
	}
	if c.GCRatio <= 0 || c.GCRatio >= 1 {
		return &ConfigError{Field: "GCRatio", Message: "must be between 0 and 1"}
	}
	if c.AutoReplay {
		if c.ReplayInterval < time.Second {
			return &ConfigError{Field: "ReplayInterval", Message: "must be at least 1 second"}
		}
		if c.ReplayRate <= 0 {
			return &ConfigError{Field: "ReplayRate", Message: "must be positive"}
		}
		if c.ReplayBurst < 1 {
			return &ConfigError{Field: "ReplayBurst", Message: "must be at least 1"}
		}
		if c.MaxReplayAttempts < 1 {
			return &ConfigError{Field: "MaxReplayAttempts", Message: "must be at least 1"}
		}
	}
	return nil
}

// ConfigError represents a configuration validation error.
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return "dead-letter config error: " + e.Field + ": " + e.Message
}
