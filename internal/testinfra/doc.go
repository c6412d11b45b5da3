// Cadence - Content-Based Audio Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cadence

// Package testinfra provides infrastructure for integration tests.
//
// All files are built only with the integration tag:
//
//	go test -tags integration ./internal/...
//
// # PostgreSQL with pgvector
//
// PostgresContainer runs the pgvector image with testcontainers-go so the
// postgres Track Store backend is exercised against a real server:
//
//	func TestPostgresStore(t *testing.T) {
//	    testinfra.SkipIfNoDocker(t)
//	    pg, err := testinfra.NewPostgresContainer(context.Background())
//	    if err != nil {
//	        t.Fatal(err)
//	    }
//	    testinfra.CleanupContainer(t, pg)
//	    // store.OpenPostgres(store.Config{DSN: pg.DSN, ...}, logger)
//	}
//
// # Feature Extraction Service
//
// MockExtractorServer answers POST /extract with canned feature groups,
// 422 for unknown tracks and 503 for injected failures.
//
// # CI Considerations
//
// Container tests need Docker and network access for the first image pull.
// They are skipped when Docker is unavailable.
package testinfra
