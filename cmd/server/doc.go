// Cadence - Content-Based Audio Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cadence

/*
Package main is the entry point for the Cadence server.

Cadence ingests audio tracks into per-user libraries, extracts a fixed-length
feature vector per track, and recommends tracks from other users' libraries
by cosine similarity of their vectors.

# Application Architecture

The server implements a layered architecture with Suture v4 process supervision:

	RootSupervisor ("cadence")
	├── DataSupervisor ("data-layer")
	│   ├── Dead-letter replay worker
	│   └── Snapshot janitor (when RECOMMEND_SNAPSHOT_TTL > 0)
	├── MessagingSupervisor ("messaging-layer")
	│   └── NATS components, or the in-process ingest loop when NATS is disabled
	└── APISupervisor ("api-layer")
	    └── HTTP Server

Component initialization order:

 1. Configuration: Koanf v2 with environment variables and an optional YAML file
 2. Logging: zerolog with JSON/console output modes
 3. Track store: DuckDB, SQLite or PostgreSQL with pgvector
 4. Dead-letter store: BadgerDB
 5. Recommendation engine
 6. Feature extractor: HTTP client, circuit breaker, concurrency bound
 7. Ingestion coordinator and dead-letter replay worker
 8. Event transport: embedded or external NATS JetStream with a Watermill router
 9. Supervisor tree and HTTP server

# Ingestion Flow

	POST /api/v1/events -> publisher -> JetStream "tracks.new"
	    -> Watermill router -> ingest handler -> coordinator
	    -> extract -> upsert -> recompute -> snapshot published

With NATS_ENABLED=false the publisher is an in-process queue drained by the
ingest loop service. Events that exhaust their retries go to the dead-letter
store and are replayed by the replay worker or through the API.

# Configuration

	EXTRACTOR_URL=http://127.0.0.1:9090   # feature extraction service
	STORE_BACKEND=duckdb                  # duckdb, sqlite or postgres
	DUCKDB_PATH=/data/cadence.duckdb
	DATABASE_URL=postgres://...           # postgres backend only
	NATS_ENABLED=true
	NATS_EMBEDDED=true
	DEADLETTER_PATH=/data/deadletter
	HTTP_PORT=3870
	LOG_LEVEL=info                        # trace, debug, info, warn, error
	LOG_FORMAT=json                       # json or console

See internal/config for the complete list.

# Signal Handling

The server handles graceful shutdown on SIGINT and SIGTERM:

 1. Stops accepting new HTTP connections and drains in-flight requests
 2. Stops the Watermill router, letting in-flight events finish
 3. Closes the publisher, the NATS connection and the embedded server
 4. Stops the replay worker and the snapshot janitor
 5. Closes the dead-letter and track stores
 6. Reports any services that failed to stop

# See Also

  - internal/config: configuration management
  - internal/supervisor: process supervision
  - internal/ingest: ingestion state machine
  - internal/recommend: recommendation views
  - internal/api: HTTP handlers and routing
*/
package main
