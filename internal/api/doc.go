// Cadence - Content-Based Audio Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cadence

/*
Package api provides the HTTP query surface for Cadence.

Every JSON response uses the models.APIResponse envelope. Reads are served
from the recommendation engine's published snapshots; a user without tracks
gets an empty result with status 200.

Routes:

	GET    /health/live                              liveness
	GET    /health/ready                             component health (503 when unhealthy)
	GET    /metrics                                  Prometheus scrape endpoint

	GET    /api/v1/users/{userID}/recommendations    per-track view, ?limit=N candidates per reference
	GET    /api/v1/users/{userID}/library-ranking    the user's tracks ranked by summed similarity
	GET    /api/v1/ingest/stats                      coordinator and dead-letter counters
	POST   /api/v1/events                            submit {"user_id", "track_path"}; 202 Accepted
	GET    /api/v1/deadletters                       pending dead-lettered events, oldest first
	POST   /api/v1/deadletters/replay                replay every pending entry
	POST   /api/v1/deadletters/{id}/replay           replay one entry
	DELETE /api/v1/deadletters/{id}                  discard one entry

Middleware:

Request IDs, real IP, panic recovery and CORS apply globally. /api/v1 adds
go-chi/httprate limits keyed by client IP, security headers, Prometheus
instrumentation and gzip. Writes get a stricter limit than reads.

Usage:

	handler := api.NewHandler(engine, publisher, healthChecker)
	handler.SetDeadLetters(dlqStore, replayWorker)
	handler.SetIngestStats(coordinator)
	router := api.NewRouter(handler, &api.ChiMiddlewareConfig{...})
	srv := &http.Server{Addr: cfg.Server.Addr(), Handler: router.SetupChi()}
*/
package api
