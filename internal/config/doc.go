// Cadence - Content-Based Audio Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cadence

/*
Package config loads and validates Cadence configuration.

# Configuration Sources

Configuration is layered with koanf v2, later layers overriding earlier ones:

 1. Built-in defaults (defaultConfig)
 2. An optional YAML file: $CONFIG_PATH, ./config.yaml, ./config.yml or
    /etc/cadence/config.yaml
 3. Environment variables listed in the mapping table in koanf.go

Environment variables that are not in the table are ignored.

# Sections

  - features: sizes of the MFCC, chroma and spectral-contrast groups (13/12/7)
  - extractor: extraction service URL, request timeout, concurrency, circuit breaker
  - ingest: extraction timeout and store retry backoff
  - store: Track Store backend (duckdb, sqlite, postgres) and its connection settings
  - nats: JetStream transport, stream, consumer and router settings
  - deadletter: BadgerDB dead-letter store and automatic replay
  - recommend: snapshot cache and query limits
  - server: HTTP listener, CORS and rate limiting
  - logging: level, format, caller and timestamp

# Environment Variables

Commonly set variables:

  - EXTRACTOR_URL: extraction service base URL (default: http://127.0.0.1:9090)
  - STORE_BACKEND: duckdb, sqlite or postgres (default: duckdb)
  - DUCKDB_PATH / STORE_PATH: database file (default: /data/cadence.duckdb)
  - DATABASE_URL: PostgreSQL DSN, required for the postgres backend
  - NATS_ENABLED: route ingestion through JetStream (default: true)
  - NATS_SUBJECT: ingestion subject (default: tracks.new)
  - DEADLETTER_PATH: BadgerDB directory (default: /data/deadletter)
  - HTTP_PORT: listen port (default: 3870)
  - LOG_LEVEL / LOG_FORMAT: logging level and format

# Usage

	cfg, err := config.LoadWithKoanf()
	if err != nil {
	    log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	st, err := store.Open(cfg.StoreConfig(), logger)

Validation runs once at load time; the returned Config is read-only.
*/
package config
