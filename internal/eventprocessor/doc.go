// Cadence - Content-Based Audio Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cadence

// Package eventprocessor delivers ingestion events from NATS JetStream to the
// ingestion coordinator using Watermill.
//
// # Flow
//
//	POST /api/v1/events ──► Publisher ──► JetStream stream TRACKS (subject tracks.new)
//	                                            │
//	                                            ▼
//	                          Subscriber (durable, SubscribersCount=1)
//	                                            │
//	                                            ▼
//	                 Router: Throttle ► PoisonQueue ► Retry ► Recoverer
//	                                            │
//	                                            ▼
//	                        IngestHandler ──► ingest.Coordinator.Handle
//
// # Acknowledgement
//
// The handler acks every message whose outcome is final: Done, Dropped
// (decode errors, extraction timeouts, invalid events) and DeadLettered.
// Malformed JSON is acked and counted as a parse failure. Only a Requeue
// outcome, which happens on shutdown or when the dead-letter store cannot be
// written, returns an error wrapping ErrRequeue; the poison queue filter lets
// that error through so JetStream redelivers the message.
//
// Messages end up on the poison queue subject only after handler panics or
// unexpected errors survive the router retry middleware.
//
// # Components
//
//   - EmbeddedServer: in-process nats-server with JetStream
//   - StreamInitializer: idempotent stream creation
//   - Publisher: JetStream publisher with Nats-Msg-Id dedup and a gobreaker circuit breaker
//   - Subscriber: durable JetStream consumer bound to the stream
//   - Router: Watermill router with the middleware stack above
//   - HealthChecker: aggregates component health for the readiness endpoint
package eventprocessor
