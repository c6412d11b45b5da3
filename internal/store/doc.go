// Cadence - Content-Based Audio Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cadence

/*
Package store implements the Track Store: durable storage of users and their track
feature vectors.

# Backends

  - duckdb (default): embedded DuckDB file, vectors stored as BLOB
  - sqlite: embedded SQLite via modernc.org/sqlite and sqlx, vectors stored as BLOB
  - postgres: PostgreSQL with the pgvector extension, vectors stored as vector(D)

BLOB columns hold the little-endian float64 encoding from models.EncodeVector.
The pgvector backend stores float32 components, so vectors read back from it are
rounded to single precision.

# Schema

	users  (user_id TEXT PRIMARY KEY, created_at BIGINT)
	tracks (track_id  generated primary key,
	        user_id   TEXT REFERENCES users,
	        track_path TEXT,
	        features  BLOB | vector(D),
	        dimension INTEGER,
	        created_at BIGINT,            -- unix milliseconds
	        UNIQUE (user_id, track_path))

# Idempotent Upsert

UpsertTrack inserts with ON CONFLICT (user_id, track_path) DO NOTHING and reads the
stored row back in the same transaction. Replaying an event therefore returns the
original track id and vector and never creates a duplicate.

# Errors

Every failure is returned as *StoreError carrying the backend and operation.
IsTransient reports whether retrying may succeed.
*/
package store
