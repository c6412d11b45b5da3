// Cadence - Content-Based Audio Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cadence

// Package logging provides the zerolog setup shared by every Cadence component.
//
// The global logger is configured once from main with Init. Components
// receive a zerolog.Logger in their constructors (usually derived with
// WithComponent) and never reach for the global directly in hot paths.
//
//	logging.Init(logging.Config{Level: "info", Format: "json"})
//	logger := logging.WithComponent("ingest")
//	logger.Info().Str("user_id", userID).Msg("Track persisted")
//
// # Context fields
//
// Ctx(ctx) returns a logger carrying the correlation_id, request_id and
// user_id stored in ctx. The NATS ingest handler uses the event id as the
// correlation id so every log line for one ingestion event can be joined.
//
// # slog bridge
//
// SlogHandler lets slog based libraries such as sutureslog write through
// zerolog:
//
//	hook := (&sutureslog.Handler{Logger: logging.NewSlogLogger("supervisor")}).MustHook()
//
// # Output
//
// JSON (default):
//
//	{"level":"info","component":"ingest","user_id":"alice","time":"2026-01-03T10:30:00Z","message":"Track persisted"}
//
// Console (development):
//
//	10:30:00 INF Track persisted component=ingest user_id=alice
package logging
