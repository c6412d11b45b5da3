// Cadence - Content-Based Audio Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cadence

/*
Package ingest turns "new content" events into stored tracks and fresh recommendations.

Each event moves through a small state machine:

	Received -> Extracting -> Persisting -> Recomputing -> Done
	                 \             \              \
	                  +-------------+--------------+--> Failed

Failure handling depends on the stage and the error:

  - Extracting: undecodable content and extraction timeouts are logged and
    dropped. Other extractor failures (service down, circuit open) are retried
    with backoff and dead-lettered on exhaustion. A wrong vector length is
    dead-lettered immediately.
  - Persisting: transient store errors are retried with exponential backoff and
    jitter; exhaustion dead-letters the event.
  - Recomputing: reads stored vectors only. Transient store errors are retried;
    a dimension mismatch in stored data is dead-lettered.

A canceled context ends processing with DispositionRequeue so the event source
can redeliver. Persisting and Recomputing run under a per-user lock, so two events
for the same user never interleave those phases.

Collaborators are injected through NewCoordinator. The store upsert is keyed by
(user_id, track_path), so redelivered events are idempotent.
*/
package ingest
