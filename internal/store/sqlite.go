// Cadence - Content-Based Audio Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cadence

package store

import (
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog"
	_ "modernc.org/sqlite"
)

// OpenSQLite opens (or creates) a SQLite track store.
//
// The modernc.org/sqlite driver takes pragmas as _pragma= query parameters.
// A single connection is used: SQLite serializes writers anyway, and an
// in-memory database only exists on the connection that created it.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func OpenSQLite(cfg Config, logger zerolog.Logger) (*SQLStore, error) {
	path := cfg.Path
	if path == "" {
		path = ":memory:"
	}
	if err := ensureDir(path); err != nil {
		return nil, err
	}

	busyMS := cfg.BusyTimeout.Milliseconds()
	if busyMS <= 0 {
		busyMS = 10000
	}
	dsn := fmt.Sprintf("%s?_pragma=foreign_keys(1)&_pragma=busy_timeout(%d)&_pragma=journal_mode(WAL)", path, busyMS)

	db, err := sqlx.Connect("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(0)

	s, err := newSQLStore(db, sqliteDialect(), logger)
	if err != nil {
		closeQuietly(db)
		return nil, err
	}
	return s, nil
}
