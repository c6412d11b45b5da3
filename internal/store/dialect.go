// Cadence - Content-Based Audio Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cadence

package store

import (
	"fmt"

	"github.com/pgvector/pgvector-go"

	"github.com/tomtom215/cadence/internal/models"
)

// dialect holds the backend-specific schema and vector codec.
// Queries are written with ? placeholders and rebound by sqlx.
type dialect struct {
	name   string
	schema []string
	encode func(models.FeatureVector) (interface{}, error)
	decode func([]byte) (models.FeatureVector, error)

	// dimension is the fixed column width, zero when the column is untyped.
	dimension int
}

func encodeBlob(v models.FeatureVector) (interface{}, error) {
	return models.EncodeVector(v), nil
}

func duckDBDialect() dialect {
	return dialect{
		name: BackendDuckDB,
		schema: []string{
			`CREATE SEQUENCE IF NOT EXISTS tracks_id_seq START 1`,
			`CREATE TABLE IF NOT EXISTS users (
				user_id VARCHAR PRIMARY KEY,
				created_at BIGINT NOT NULL
			)`,
			`CREATE TABLE IF NOT EXISTS tracks (
				track_id BIGINT PRIMARY KEY DEFAULT nextval('tracks_id_seq'),
				user_id VARCHAR NOT NULL REFERENCES users(user_id),
				track_path VARCHAR NOT NULL,
				features BLOB NOT NULL,
				dimension INTEGER NOT NULL,
				created_at BIGINT NOT NULL,
				UNIQUE (user_id, track_path)
			)`,
		},
		encode: encodeBlob,
		decode: models.DecodeVector,
	}
}

func sqliteDialect() dialect {
	return dialect{
		name: BackendSQLite,
		schema: []string{
			`CREATE TABLE IF NOT EXISTS users (
				user_id TEXT PRIMARY KEY,
				created_at INTEGER NOT NULL
			)`,
			`CREATE TABLE IF NOT EXISTS tracks (
				track_id INTEGER PRIMARY KEY AUTOINCREMENT,
				user_id TEXT NOT NULL REFERENCES users(user_id),
				track_path TEXT NOT NULL,
				features BLOB NOT NULL,
				dimension INTEGER NOT NULL,
				created_at INTEGER NOT NULL,
				UNIQUE (user_id, track_path)
			)`,
			`CREATE INDEX IF NOT EXISTS idx_tracks_user_id ON tracks(user_id)`,
		},
		encode: encodeBlob,
		decode: models.DecodeVector,
	}
}

func postgresDialect(dimension int) dialect {
	return dialect{
		name: BackendPostgres,
		schema: []string{
			`CREATE EXTENSION IF NOT EXISTS vector`,
			`CREATE TABLE IF NOT EXISTS users (
				user_id TEXT PRIMARY KEY,
				created_at BIGINT NOT NULL
			)`,
			fmt.Sprintf(`CREATE TABLE IF NOT EXISTS tracks (
				track_id BIGSERIAL PRIMARY KEY,
				user_id TEXT NOT NULL REFERENCES users(user_id),
				track_path TEXT NOT NULL,
				features vector(%d) NOT NULL,
				dimension INTEGER NOT NULL,
				created_at BIGINT NOT NULL,
				UNIQUE (user_id, track_path)
			)`, dimension),
			`CREATE INDEX IF NOT EXISTS idx_tracks_user_id ON tracks(user_id)`,
		},
		encode:    encodePGVector,
		decode:    decodePGVector,
		dimension: dimension,
	}
}

// encodePGVector narrows components to float32, the pgvector storage type.
func encodePGVector(v models.FeatureVector) (interface{}, error) {
	values := v.Values()
	out := make([]float32, len(values))
	for i, x := range values {
		out[i] = float32(x)
	}
	return pgvector.NewVector(out), nil
}

// decodePGVector parses the text form returned by lib/pq, e.g. "[1,2,3]".
func decodePGVector(raw []byte) (models.FeatureVector, error) {
	var vec pgvector.Vector
	if err := vec.Scan(raw); err != nil {
		return models.FeatureVector{}, fmt.Errorf("%w: %v", models.ErrInvalidEncoding, err)
	}
	src := vec.Slice()
	values := make([]float64, len(src))
	for i, x := range src {
		values[i] = float64(x)
	}
	return models.NewFeatureVector(values)
}
