// Cadence - Content-Based Audio Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cadence

package store

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/cadence/internal/models"
)

// Backend names.
const (
	BackendDuckDB   = "duckdb"
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
)

// Store persists users and tracks.
type Store interface {
	// UpsertTrack stores a track keyed by (userID, trackPath) and returns the stored row.
	// created is false when the track already existed; the existing row is returned unchanged.
	// The user row is created with the user's first track.
	UpsertTrack(ctx context.Context, userID, trackPath string, vec models.FeatureVector) (track models.Track, created bool, err error)

	// TracksByUser returns the user's tracks ordered by track id.
	TracksByUser(ctx context.Context, userID string) ([]models.Track, error)

	// TracksExcludingUser returns all tracks of other users ordered by track id.
	TracksExcludingUser(ctx context.Context, userID string) ([]models.Track, error)

	// Stats returns row counts.
	Stats(ctx context.Context) (Stats, error)

	// Ping checks connectivity.
	Ping(ctx context.Context) error

	// Backend returns the backend name.
	Backend() string

	Close() error
}

// Stats holds store row counts.
type Stats struct {
	Backend string `json:"backend"`
	Users   int64  `json:"users"`
	Tracks  int64  `json:"tracks"`
}

// Config selects and tunes a backend.
type Config struct {
	Backend string

	// Path is the database file for duckdb and sqlite. Empty opens an in-memory database.
	Path string

	// DSN is the PostgreSQL connection string.
	DSN string

	// Dimension sizes the pgvector column.
	Dimension int

	// MaxOpenConns caps the connection pool. Zero uses the backend default.
	MaxOpenConns int

	// DuckDB tuning
	Threads   int
	MaxMemory string

	// SQLite busy timeout
	BusyTimeout time.Duration
}

// DefaultConfig returns a DuckDB configuration.
func DefaultConfig() Config {
	return Config{
		Backend:     BackendDuckDB,
		Path:        "/data/cadence.duckdb",
		Dimension:   models.DefaultFeatureLayout().Dimension(),
		MaxMemory:   "1GB",
		BusyTimeout: 10 * time.Second,
	}
}

// Open connects to the configured backend and creates the schema.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func Open(cfg Config, logger zerolog.Logger) (*SQLStore, error) {
	switch cfg.Backend {
	case BackendDuckDB, "":
		return OpenDuckDB(cfg, logger)
	case BackendSQLite:
		return OpenSQLite(cfg, logger)
	case BackendPostgres:
		return OpenPostgres(cfg, logger)
	default:
		return nil, fmt.Errorf("unknown store backend %q (valid: duckdb, sqlite, postgres)", cfg.Backend)
	}
}
