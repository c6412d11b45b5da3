// Cadence - Content-Based Audio Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cadence

package deadletter

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/tomtom215/cadence/internal/metrics"
)

// Replayer re-drives a dead-lettered event. The ingest coordinator implements it.
type Replayer interface {
	Replay(ctx context.Context, entry *Entry) error
}

// ReplaySummary reports the result of one replay pass.
type ReplaySummary struct {
	Attempted int `json:"attempted"`
	Resolved  int `json:"resolved"`
	Failed    int `json:"failed"`
	Skipped   int `json:"skipped"`
}

// ReplayWorker replays pending entries on an interval.
type ReplayWorker struct {
	store   *Store
	target  Replayer
	limiter *rate.Limiter
	config  Config
	logger  zerolog.Logger
}

// NewReplayWorker creates a replay worker for store.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewReplayWorker(store *Store, target Replayer, logger zerolog.Logger) (*ReplayWorker, error) {
	if store == nil {
		return nil, errors.New("dead-letter store is required")
	}
	if target == nil {
		return nil, errors.New("replay target is required")
	}

	cfg := store.Config()
	limit := rate.Limit(cfg.ReplayRate)
	if cfg.ReplayRate <= 0 {
		limit = rate.Inf
	}
	burst := cfg.ReplayBurst
	if burst < 1 {
		burst = 1
	}

	return &ReplayWorker{
		store:   store,
		target:  target,
		limiter: rate.NewLimiter(limit, burst),
		config:  cfg,
		logger:  logger.With().Str("component", "deadletter-replay").Logger(),
	}, nil
}

// Run replays pending entries every ReplayInterval and runs value log GC until ctx ends.
// With AutoReplay disabled it only runs GC.
func (w *ReplayWorker) Run(ctx context.Context) error {
	interval := w.config.ReplayInterval
	if interval <= 0 {
		interval = DefaultConfig().ReplayInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	w.logger.Info().
		Bool("auto_replay", w.config.AutoReplay).
		Dur("interval", interval).
		Float64("rate", w.config.ReplayRate).
		Int("max_attempts", w.config.MaxReplayAttempts).
		Msg("Dead-letter replay worker started")

	for {
		select {
		case <-ctx.Done():
			w.logger.Info().Msg("Dead-letter replay worker stopped")
			return ctx.Err()
		case <-ticker.C:
			if w.config.AutoReplay {
				summary, err := w.ReplayPending(ctx)
				if err != nil && !errors.Is(err, context.Canceled) {
					w.logger.Error().Err(err).Msg("Dead-letter replay pass failed")
				} else if summary.Attempted > 0 {
					w.logger.Info().
						Int("attempted", summary.Attempted).
						Int("resolved", summary.Resolved).
						Int("failed", summary.Failed).
						Int("skipped", summary.Skipped).
						Msg("Dead-letter replay pass complete")
				}
			}
			if n, err := w.store.RunGC(); err != nil {
				w.logger.Warn().Err(err).Msg("Dead-letter GC failed")
			} else if n > 0 {
				w.logger.Debug().Int("rewritten", n).Msg("Dead-letter GC reclaimed space")
			}
		}
	}
}

// ReplayPending replays every pending entry below MaxReplayAttempts, oldest first.
func (w *ReplayWorker) ReplayPending(ctx context.Context) (ReplaySummary, error) {
	var summary ReplaySummary

	entries, err := w.store.List(ctx, 0)
	if err != nil {
		return summary, err
	}

	for _, entry := range entries {
		if w.config.MaxReplayAttempts > 0 && entry.ReplayCount >= w.config.MaxReplayAttempts {
			summary.Skipped++
			continue
		}
		if err := w.limiter.Wait(ctx); err != nil {
			return summary, err
		}

		summary.Attempted++
		if err := w.replay(ctx, entry); err != nil {
			if ctx.Err() != nil {
				return summary, ctx.Err()
			}
			summary.Failed++
			continue
		}
		summary.Resolved++
	}
	return summary, nil
}

// ReplayOne replays a single entry regardless of its replay count.
func (w *ReplayWorker) ReplayOne(ctx context.Context, id string) error {
	entry, err := w.store.Get(ctx, id)
	if err != nil {
		return err
	}
	return w.replay(ctx, entry)
}

func (w *ReplayWorker) replay(ctx context.Context, entry *Entry) error {
	replayErr := w.target.Replay(ctx, entry)
	metrics.RecordDeadLetterReplay(replayErr == nil)

	if replayErr != nil {
		updated, err := w.store.RecordReplayFailure(ctx, entry.ID, replayErr)
		if err != nil {
			w.logger.Error().Err(err).Str("entry_id", entry.ID).Msg("Failed to record replay failure")
		}
		evt := w.logger.Warn().
			Err(replayErr).
			Str("entry_id", entry.ID).
			Str("user_id", entry.Event.UserID).
			Str("track_path", entry.Event.TrackPath)
		if updated != nil {
			evt = evt.Int("replay_count", updated.ReplayCount)
		}
		evt.Msg("Dead-letter replay failed")
		return fmt.Errorf("replay %s: %w", entry.ID, replayErr)
	}

	if err := w.store.Resolve(ctx, entry.ID); err != nil {
		return fmt.Errorf("resolve %s: %w", entry.ID, err)
	}
	w.logger.Info().
		Str("entry_id", entry.ID).
		Str("user_id", entry.Event.UserID).
		Str("track_path", entry.Event.TrackPath).
		Msg("Dead-letter entry replayed")
	return nil
}
