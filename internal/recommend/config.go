// Cadence - Content-Based Audio Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cadence

package recommend

import (
	"fmt"
	"time"
)

// Config contains all configuration for the recommendation engine.
type Config struct {
	// Dimension is the expected feature vector length. Zero infers it per comparison.
	Dimension int `json:"dimension"`

	// Parallelism bounds how many reference tracks are scored concurrently.
	// Zero uses GOMAXPROCS.
	Parallelism int `json:"parallelism"`

	// SnapshotTTL is how long a published snapshot is served before it is
	// recomputed on demand. Zero keeps snapshots until they are replaced or evicted.
	SnapshotTTL time.Duration `json:"snapshot_ttl"`

	// MaxSnapshots caps the number of users with a cached snapshot.
	MaxSnapshots int `json:"max_snapshots"`

	// DefaultLimit is the number of candidates per reference track returned by
	// the query surface when the caller does not ask for a specific limit.
	DefaultLimit int `json:"default_limit"`

	// MaxLimit caps the per-reference limit a caller may request.
	MaxLimit int `json:"max_limit"`
}

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Dimension:    32,
		Parallelism:  0,
		SnapshotTTL:  0,
		MaxSnapshots: 10000,
		DefaultLimit: 10,
		MaxLimit:     100,
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.Dimension < 0 {
		return fmt.Errorf("dimension must be non-negative, got %d", c.Dimension)
	}
	if c.Parallelism < 0 {
		return fmt.Errorf("parallelism must be non-negative, got %d", c.Parallelism)
	}
	if c.SnapshotTTL < 0 {
		return fmt.Errorf("snapshot_ttl must be non-negative, got %v", c.SnapshotTTL)
	}
	if c.MaxSnapshots < 1 {
		return fmt.Errorf("max_snapshots must be positive, got %d", c.MaxSnapshots)
	}
	if c.DefaultLimit < 1 {
		return fmt.Errorf("default_limit must be positive, got %d", c.DefaultLimit)
	}
	if c.MaxLimit < c.DefaultLimit {
		return fmt.Errorf("max_limit (%d) must be >= default_limit (%d)", c.MaxLimit, c.DefaultLimit)
	}
	return nil
}
