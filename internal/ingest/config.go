// Cadence - Content-Based Audio Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cadence

package ingest

import (
	"errors"
	"time"
)

// Config holds coordinator settings.
type Config struct {
	// ExtractTimeout bounds a single feature extraction call.
	ExtractTimeout time.Duration `koanf:"extract_timeout"`

	// MaxRetries is the number of retries after the first attempt of a store operation.
	MaxRetries int `koanf:"max_retries"`

	// InitialBackoff is the delay before the first retry.
	InitialBackoff time.Duration `koanf:"initial_backoff"`

	// MaxBackoff caps the delay between retries.
	MaxBackoff time.Duration `koanf:"max_backoff"`

	// BackoffMultiplier is the exponential growth factor.
	BackoffMultiplier float64 `koanf:"backoff_multiplier"`

	// JitterFraction randomizes each delay by up to this fraction in either direction.
	JitterFraction float64 `koanf:"jitter_fraction"`

	// RandomSeed makes jitter reproducible when non-zero.
	RandomSeed int64 `koanf:"random_seed"`
}

// DefaultConfig returns production defaults.
func DefaultConfig() Config {
	return Config{
		ExtractTimeout:    2 * time.Minute,
		MaxRetries:        5,
		InitialBackoff:    500 * time.Millisecond,
		MaxBackoff:        30 * time.Second,
		BackoffMultiplier: 2.0,
		JitterFraction:    0.1,
	}
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if c.ExtractTimeout <= 0 {
		return errors.New("extract timeout must be positive")
	}
	if c.MaxRetries < 0 {
		return errors.New("max retries must not be negative")
	}
	if c.InitialBackoff <= 0 {
		return errors.New("initial backoff must be positive")
	}
	if c.MaxBackoff < c.InitialBackoff {
		return errors.New("max backoff must not be less than initial backoff")
	}
	if c.BackoffMultiplier < 1 {
		return errors.New("backoff multiplier must be at least 1")
	}
	if c.JitterFraction < 0 || c.JitterFraction > 1 {
		return errors.New("jitter fraction must be between 0 and 1")
	}
	return nil
}
