// Cadence - Content-Based Audio Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cadence

/*
Package deadletter keeps ingestion events that could not be processed.

Events land here when the track store stays unavailable after the ingest retry
policy is exhausted, or when stored data is inconsistent (a dimension mismatch
during recompute). Entries are persisted in BadgerDB so they survive restarts.

Key layout:

	dead:<id>       entry awaiting replay or inspection
	resolved:<id>   entry replayed successfully, kept until ResolvedTTL expires

A ReplayWorker periodically re-drives pending entries through a Replayer
(the ingest coordinator), paced by a token bucket so a recovered store is not
flooded. Entries that keep failing stop being replayed automatically after
MaxReplayAttempts and stay listed for operators, who can replay or delete them
through the HTTP API.
*/
package deadletter
