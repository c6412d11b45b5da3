// Cadence - Content-Based Audio Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cadence

package store

import (
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/rs/zerolog"
)

// OpenPostgres connects to PostgreSQL with the pgvector extension available.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func OpenPostgres(cfg Config, logger zerolog.Logger) (*SQLStore, error) {
	if cfg.DSN == "" {
		return nil, errors.New("postgres store requires a DSN")
	}
	if cfg.Dimension <= 0 {
		return nil, fmt.Errorf("postgres store requires a positive dimension, got %d", cfg.Dimension)
	}

	db, err := sqlx.Connect("postgres", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)

	s, err := newSQLStore(db, postgresDialect(cfg.Dimension), logger)
	if err != nil {
		closeQuietly(db)
		return nil, err
	}
	return s, nil
}
