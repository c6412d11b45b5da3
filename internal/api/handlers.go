// Cadence - Content-Based Audio Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cadence

package api

import (
	"context"
	"time"

	"github.com/tomtom215/cadence/internal/deadletter"
	"github.com/tomtom215/cadence/internal/eventprocessor"
	"github.com/tomtom215/cadence/internal/ingest"
	"github.com/tomtom215/cadence/internal/models"
	"github.com/tomtom215/cadence/internal/recommend"
)

// Recommender serves published recommendation snapshots. recommend.Engine implements it.
type Recommender interface {
	Recommendations(ctx context.Context, userID string) (*models.RecommendationResult, error)
	LibraryRanking(ctx context.Context, userID string) (*models.LibraryRanking, error)
	Config() *recommend.Config
}

// EventPublisher puts ingestion events onto the event stream.
// eventprocessor.Publisher and ingest.ChannelSource both implement it.
type EventPublisher interface {
	PublishEvent(ctx context.Context, event *models.IngestionEvent) error
}

// DeadLetterStore is the read and delete side of the dead-letter channel.
type DeadLetterStore interface {
	List(ctx context.Context, limit int) ([]*deadletter.Entry, error)
	Stats(ctx context.Context) (deadletter.Stats, error)
	Delete(ctx context.Context, id string) error
}

// DeadLetterReplayer re-drives dead-lettered events.
type DeadLetterReplayer interface {
	ReplayOne(ctx context.Context, id string) error
	ReplayPending(ctx context.Context) (deadletter.ReplaySummary, error)
}

// HealthReporter aggregates component health.
type HealthReporter interface {
	CheckAll(ctx context.Context) eventprocessor.OverallHealth
}

// IngestStatsProvider reports ingestion disposition counters.
type IngestStatsProvider interface {
	Stats() ingest.Stats
}

// Handler contains dependencies for API handlers
//
// Handler methods are split across files:
//   - handlers_recommend.go: recommendation and library-ranking views
//   - handlers_events.go: ingestion event submission
//   - handlers_deadletter.go: dead-letter listing, replay and deletion
//   - handlers_health.go: liveness, readiness and ingest status
type Handler struct {
	recommender  Recommender
	publisher    EventPublisher
	health       HealthReporter
	deadLetters  DeadLetterStore
	replayer     DeadLetterReplayer
	ingestStats  IngestStatsProvider
	queryTimeout time.Duration
	startTime    time.Time
}

// defaultQueryTimeout bounds a query that has to recompute a stale snapshot.
const defaultQueryTimeout = 30 * time.Second

// NewHandler creates a new API handler.
//
// Dependencies:
//   - recommender: snapshot query surface, required
//   - publisher: where POST /api/v1/events sends events; nil disables the endpoint
//   - health: readiness checks; nil reports ready
//
// Optional dependencies are attached with SetDeadLetters and SetIngestStats.
func NewHandler(recommender Recommender, publisher EventPublisher, health HealthReporter) *Handler {
	return &Handler{
		recommender:  recommender,
		publisher:    publisher,
		health:       health,
		queryTimeout: defaultQueryTimeout,
		startTime:    time.Now(),
	}
}

// SetDeadLetters attaches the dead-letter store and the replay worker.
// Should be called once during startup.
func (h *Handler) SetDeadLetters(store DeadLetterStore, replayer DeadLetterReplayer) {
	h.deadLetters = store
	h.replayer = replayer
}

// SetIngestStats attaches the ingestion coordinator counters.
func (h *Handler) SetIngestStats(stats IngestStatsProvider) {
	h.ingestStats = stats
}

// SetQueryTimeout overrides the per-query timeout.
func (h *Handler) SetQueryTimeout(d time.Duration) {
	if d > 0 {
		h.queryTimeout = d
	}
}
