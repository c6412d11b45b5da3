// Cadence - Content-Based Audio Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cadence

/*
Package metrics provides Prometheus metrics collection and export for observability.

Collectors are registered with promauto at package initialization and updated through
the Record*, Update* and Track* helpers, so callers never touch label ordering directly.

# Metrics Endpoint

Metrics are exposed at the /metrics endpoint in Prometheus text format:

	curl http://localhost:8080/metrics

# Available Metrics

Ingestion:
  - ingest_state_transitions_total{state}
  - ingest_events_total{state, stage}
  - ingest_event_duration_seconds
  - ingest_retries_total{stage}

Feature extraction:
  - extraction_duration_seconds{outcome}
  - extractions_in_flight

Track store:
  - store_operation_duration_seconds{backend, operation}
  - store_operation_errors_total{backend, operation, error_type}
  - store_tracks

Recommendations:
  - recommend_recompute_duration_seconds{outcome}
  - similarity_comparisons_total
  - recommend_snapshot_lookups_total{view, result}
  - recommend_snapshots_cached

Dead letters:
  - deadletter_entries, deadletter_oldest_entry_age_seconds
  - deadletter_added_total{stage}, deadletter_removed_total
  - deadletter_replays_total{result}

Also: api_*, circuit_breaker_*, nats_* and app_info / app_uptime_seconds.

# Example Queries

Ingestion failure rate by stage:

	sum by (stage) (rate(ingest_events_total{state="failed"}[5m]))

P95 extraction latency:

	histogram_quantile(0.95, rate(extraction_duration_seconds_bucket[5m]))
*/
package metrics
