// Cadence - Content-Based Audio Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cadence

package recommend

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/tomtom215/cadence/internal/metrics"
	"github.com/tomtom215/cadence/internal/models"
	"github.com/tomtom215/cadence/internal/similarity"
)

// TrackSource reads stored tracks. It is typically implemented by the track store.
type TrackSource interface {
	// TracksByUser returns the user's tracks in insertion order.
	TracksByUser(ctx context.Context, userID string) ([]models.Track, error)

	// TracksExcludingUser returns every stored track not owned by the user, in insertion order.
	TracksExcludingUser(ctx context.Context, userID string) ([]models.Track, error)
}

// Engine recomputes and serves recommendation snapshots.
type Engine struct {
	config     *Config
	source     TrackSource
	aggregator *Aggregator
	registry   *Registry
	logger     zerolog.Logger

	// sequence orders recomputes by the moment they read their inputs
	sequence atomic.Uint64

	// onDemand coalesces concurrent query-triggered recomputes per user
	onDemand singleflight.Group
}

// NewEngine creates a new recommendation engine.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewEngine(cfg *Config, source TrackSource, logger zerolog.Logger) (*Engine, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if source == nil {
		return nil, fmt.Errorf("track source is required")
	}

	sim := similarity.NewEngine(
		similarity.WithDimension(cfg.Dimension),
		similarity.WithParallelism(cfg.Parallelism),
	)

	return &Engine{
		config:     cfg,
		source:     source,
		aggregator: NewAggregator(sim),
		registry:   NewRegistry(cfg.SnapshotTTL, cfg.MaxSnapshots),
		logger:     logger.With().Str("component", "recommend").Logger(),
	}, nil
}

// Config returns the engine configuration.
func (e *Engine) Config() *Config {
	return e.config
}

// Registry returns the snapshot registry.
func (e *Engine) Registry() *Registry {
	return e.registry
}

// Recompute rebuilds both views for a user from stored vectors and publishes them.
// A user without tracks gets the explicit empty snapshot.
func (e *Engine) Recompute(ctx context.Context, userID string) (*Snapshot, error) {
	if userID == "" {
		return nil, models.ErrEmptyUserID
	}

	start := time.Now()
	seq := e.sequence.Add(1)

	snap, err := e.compute(ctx, userID)
	pairs := 0
	if snap != nil {
		pairs = snap.LibrarySize * snap.CandidateCount
	}
	metrics.RecordRecompute(time.Since(start), pairs, err)
	if err != nil {
		return nil, err
	}

	snap.Sequence = seq
	if !e.registry.Publish(snap) {
		e.logger.Debug().
			Str("user_id", userID).
			Uint64("sequence", seq).
			Msg("Newer snapshot already published, discarding")
		if current := e.registry.Get(userID); current != nil {
			return current, nil
		}
	}
	metrics.UpdateSnapshotsCached(e.registry.Len())

	e.logSnapshot(snap, time.Since(start))
	return snap, nil
}

func (e *Engine) compute(ctx context.Context, userID string) (*Snapshot, error) {
	library, err := e.source.TracksByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load library for %s: %w", userID, err)
	}
	if len(library) == 0 {
		return e.aggregator.Aggregate(ctx, userID, nil, nil)
	}

	candidates, err := e.source.TracksExcludingUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load candidates for %s: %w", userID, err)
	}

	return e.aggregator.Aggregate(ctx, userID, library, candidates)
}

// Recommendations returns the per-track view for a user from the latest snapshot.
// A user never recomputed by this process is recomputed once on demand.
func (e *Engine) Recommendations(ctx context.Context, userID string) (*models.RecommendationResult, error) {
	snap, err := e.snapshot(ctx, userID, "recommendations")
	if err != nil {
		return nil, err
	}
	return snap.Recommendations, nil
}

// LibraryRanking returns the library view for a user from the latest snapshot.
func (e *Engine) LibraryRanking(ctx context.Context, userID string) (*models.LibraryRanking, error) {
	snap, err := e.snapshot(ctx, userID, "library_ranking")
	if err != nil {
		return nil, err
	}
	return snap.Ranking, nil
}

// Snapshot returns the latest snapshot for a user, recomputing on demand if needed.
func (e *Engine) Snapshot(ctx context.Context, userID string) (*Snapshot, error) {
	return e.snapshot(ctx, userID, "snapshot")
}

func (e *Engine) snapshot(ctx context.Context, userID, view string) (*Snapshot, error) {
	if userID == "" {
		return nil, models.ErrEmptyUserID
	}

	if snap := e.registry.Get(userID); snap != nil {
		metrics.RecordSnapshotLookup(view, true)
		return snap, nil
	}
	metrics.RecordSnapshotLookup(view, false)

	v, err, _ := e.onDemand.Do(userID, func() (interface{}, error) {
		return e.Recompute(ctx, userID)
	})
	if err != nil {
		return nil, err
	}
	return v.(*Snapshot), nil
}

// Invalidate drops the published snapshot for a user.
func (e *Engine) Invalidate(userID string) {
	e.registry.Invalidate(userID)
	metrics.UpdateSnapshotsCached(e.registry.Len())
}

// PurgeExpired removes expired snapshots and returns how many were removed.
func (e *Engine) PurgeExpired() int {
	removed := e.registry.PurgeExpired()
	metrics.UpdateSnapshotsCached(e.registry.Len())
	return removed
}

// logSnapshot logs the top match per reference track at debug level.
func (e *Engine) logSnapshot(snap *Snapshot, elapsed time.Duration) {
	e.logger.Info().
		Str("user_id", snap.UserID).
		Int("library_size", snap.LibrarySize).
		Int("candidates", snap.CandidateCount).
		Dur("duration", elapsed).
		Msg("Recommendations recomputed")

	if e.logger.GetLevel() > zerolog.DebugLevel {
		return
	}
	for _, entry := range snap.Recommendations.Entries {
		ev := e.logger.Debug().
			Str("user_id", snap.UserID).
			Str("reference", entry.Reference.TrackPath)
		if len(entry.Candidates) == 0 {
			ev.Msg("No candidates for reference track")
			continue
		}
		top := entry.Candidates[0]
		ev.Str("top_match", top.Track.TrackPath).
			Str("top_match_user", top.Track.UserID).
			Float64("score", top.Score).
			Msg("Top recommendation")
	}
}
