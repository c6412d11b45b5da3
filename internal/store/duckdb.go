// Cadence - Content-Based Audio Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cadence

package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	_ "github.com/duckdb/duckdb-go/v2"
	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog"
)

// OpenDuckDB opens (or creates) a DuckDB track store.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func OpenDuckDB(cfg Config, logger zerolog.Logger) (*SQLStore, error) {
	if err := ensureDir(cfg.Path); err != nil {
		return nil, err
	}

	numThreads := cfg.Threads
	if numThreads <= 0 {
		numThreads = runtime.NumCPU()
	}

	connStr := fmt.Sprintf("%s?access_mode=read_write&threads=%d", cfg.Path, numThreads)
	if cfg.MaxMemory != "" {
		connStr += "&max_memory=" + cfg.MaxMemory
	}

	conn, err := sql.Open("duckdb", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open duckdb: %w", err)
	}

	maxOpen := cfg.MaxOpenConns
	if maxOpen <= 0 {
		maxOpen = runtime.NumCPU()
	}
	conn.SetMaxOpenConns(maxOpen)
	conn.SetMaxIdleConns(2)
	conn.SetConnMaxLifetime(time.Hour)
	conn.SetConnMaxIdleTime(5 * time.Minute)

	s, err := newSQLStore(sqlx.NewDb(conn, "duckdb"), duckDBDialect(), logger)
	if err != nil {
		closeQuietly(conn)
		return nil, err
	}
	return s, nil
}

// ensureDir creates the parent directory of a database file.
// Use 0750 permissions (owner: rwx, group: rx, other: none) per gosec G301
func ensureDir(path string) error {
	if path == "" || path == ":memory:" {
		return nil
	}
	dir := filepath.Dir(path)
	if dir == "" || dir == "." {
		return nil
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("failed to create database directory %s: %w", dir, err)
	}
	return nil
}
