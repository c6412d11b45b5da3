// Cadence - Content-Based Audio Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cadence

package ingest

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/cadence/internal/deadletter"
	"github.com/tomtom215/cadence/internal/extractor"
	"github.com/tomtom215/cadence/internal/metrics"
	"github.com/tomtom215/cadence/internal/models"
	"github.com/tomtom215/cadence/internal/recommend"
	"github.com/tomtom215/cadence/internal/store"
)

// TrackWriter persists extracted tracks. It is typically implemented by the track store.
type TrackWriter interface {
	UpsertTrack(ctx context.Context, userID, trackPath string, vec models.FeatureVector) (models.Track, bool, error)
}

// Recomputer rebuilds a user's recommendations from stored vectors.
type Recomputer interface {
	Recompute(ctx context.Context, userID string) (*recommend.Snapshot, error)
}

// DeadLetterSink receives events that exhausted their retries.
type DeadLetterSink interface {
	Put(ctx context.Context, entry *deadletter.Entry) (string, error)
}

// Outcome reports how one event left the state machine.
type Outcome struct {
	EventID string `json:"event_id,omitempty"`

	// State is StateDone or StateFailed.
	State State `json:"-"`

	// Stage is the state the event failed in. It is StateRecomputing for completed events.
	Stage State `json:"-"`

	Disposition  Disposition   `json:"-"`
	Transitions  []State       `json:"-"`
	TrackID      int64         `json:"track_id,omitempty"`
	Created      bool          `json:"created"`
	Attempts     int           `json:"attempts"`
	DeadLetterID string        `json:"dead_letter_id,omitempty"`
	Duration     time.Duration `json:"duration"`
	Err          error         `json:"-"`
}

// Succeeded reports whether the event reached StateDone.
func (o Outcome) Succeeded() bool {
	return o.State == StateDone
}

// Stats counts events by final disposition.
type Stats struct {
	Handled      int64 `json:"handled"`
	Done         int64 `json:"done"`
	Dropped      int64 `json:"dropped"`
	DeadLettered int64 `json:"dead_lettered"`
	Requeued     int64 `json:"requeued"`

	// ActiveUsers is the number of users with a persist or recompute in flight or waiting.
	ActiveUsers int `json:"active_users"`
}

// Coordinator drives ingestion events through extraction, persistence and recompute.
type Coordinator struct {
	extractor   extractor.Extractor
	tracks      TrackWriter
	recomputer  Recomputer
	deadLetters DeadLetterSink
	retry       *RetryPolicy
	config      Config
	logger      zerolog.Logger
	locks       *userLocks

	handled      atomic.Int64
	done         atomic.Int64
	dropped      atomic.Int64
	deadLettered atomic.Int64
	requeued     atomic.Int64
}

// NewCoordinator creates a coordinator. deadLetters may be nil, in which case events that
// would be dead-lettered are requeued instead.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewCoordinator(ext extractor.Extractor, tracks TrackWriter, recomputer Recomputer, deadLetters DeadLetterSink, cfg Config, logger zerolog.Logger) (*Coordinator, error) {
	if ext == nil {
		return nil, errors.New("feature extractor is required")
	}
	if tracks == nil {
		return nil, errors.New("track store is required")
	}
	if recomputer == nil {
		return nil, errors.New("recomputer is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid ingest config: %w", err)
	}

	return &Coordinator{
		extractor:   ext,
		tracks:      tracks,
		recomputer:  recomputer,
		deadLetters: deadLetters,
		retry:       NewRetryPolicy(cfg),
		config:      cfg,
		logger:      logger.With().Str("component", "ingest").Logger(),
		locks:       newUserLocks(),
	}, nil
}

// Stats returns disposition counters since start.
func (c *Coordinator) Stats() Stats {
	return Stats{
		Handled:      c.handled.Load(),
		Done:         c.done.Load(),
		Dropped:      c.dropped.Load(),
		DeadLettered: c.deadLettered.Load(),
		Requeued:     c.requeued.Load(),
		ActiveUsers:  c.locks.size(),
	}
}

// Handle runs one event through the state machine. It never panics on per-event failures;
// the Outcome tells the caller whether to acknowledge or redeliver.
func (c *Coordinator) Handle(ctx context.Context, event *models.IngestionEvent) Outcome {
	return c.process(ctx, event, true)
}

// Replay re-drives a dead-lettered event. Failures are returned instead of being
// dead-lettered again. An entry that failed while recomputing already has its track
// stored, so only the recompute is repeated.
func (c *Coordinator) Replay(ctx context.Context, entry *deadletter.Entry) error {
	if entry == nil {
		return errors.New("nil dead-letter entry")
	}
	event := entry.Event
	var out Outcome
	if entry.Stage == StateRecomputing.String() {
		out = c.processRecompute(ctx, &event)
	} else {
		out = c.process(ctx, &event, false)
	}
	if out.Succeeded() {
		return nil
	}
	if out.Err != nil {
		return fmt.Errorf("%s: %w", out.Stage, out.Err)
	}
	return fmt.Errorf("replay ended in %s", out.Stage)
}

// run tracks one event's progress.
type run struct {
	c          *Coordinator
	event      *models.IngestionEvent
	deadLetter bool
	start      time.Time
	logger     zerolog.Logger
	out        Outcome
}

func (r *run) enter(s State) {
	if n := len(r.out.Transitions); n > 0 && !r.out.Transitions[n-1].CanTransition(s) {
		r.logger.Error().
			Str("from", r.out.Transitions[n-1].String()).
			Str("to", s.String()).
			Msg("Invalid ingest state transition")
	}
	r.out.Transitions = append(r.out.Transitions, s)
	if s != StateFailed {
		r.out.Stage = s
	}
	r.out.State = s
	metrics.RecordIngestTransition(s.String())
}

// receive starts a run in StateReceived. ok is false when the event was dropped as
// invalid; the returned Outcome then describes the drop.
func (c *Coordinator) receive(event *models.IngestionEvent, deadLetter bool) (r *run, out Outcome, ok bool) {
	c.handled.Add(1)

	r = &run{c: c, event: event, deadLetter: deadLetter, start: time.Now(), logger: c.logger}
	r.enter(StateReceived)

	if event == nil {
		return r, r.drop(errors.New("nil ingestion event")), false
	}
	r.out.EventID = event.EventID
	r.logger = c.logger.With().
		Str("event_id", event.EventID).
		Str("user_id", event.UserID).
		Str("track_path", event.TrackPath).
		Logger()

	if err := event.Validate(); err != nil {
		return r, r.drop(fmt.Errorf("invalid event: %w", err)), false
	}
	return r, Outcome{}, true
}

func (c *Coordinator) process(ctx context.Context, event *models.IngestionEvent, deadLetter bool) Outcome {
	r, out, ok := c.receive(event, deadLetter)
	if !ok {
		return out
	}

	r.enter(StateExtracting)
	vec, err := c.extract(ctx, r)
	if err != nil {
		return r.fail(ctx, err)
	}

	// Persisting and Recomputing form one unit of work per user.
	release := c.locks.lock(event.UserID)
	defer release()

	r.enter(StatePersisting)
	track, created, err := c.persist(ctx, r, vec)
	if err != nil {
		return r.fail(ctx, err)
	}
	r.out.TrackID = track.ID
	r.out.Created = created

	r.enter(StateRecomputing)
	if err := c.recompute(ctx, r); err != nil {
		return r.fail(ctx, err)
	}

	return r.finish()
}

// processRecompute rebuilds the user's recommendations from stored vectors without
// extracting or persisting. It is used to replay events whose track is already stored.
func (c *Coordinator) processRecompute(ctx context.Context, event *models.IngestionEvent) Outcome {
	r, out, ok := c.receive(event, false)
	if !ok {
		return out
	}

	release := c.locks.lock(event.UserID)
	defer release()

	r.enter(StateRecomputing)
	if err := c.recompute(ctx, r); err != nil {
		return r.fail(ctx, err)
	}
	return r.finish()
}

func (c *Coordinator) extract(ctx context.Context, r *run) (models.FeatureVector, error) {
	var vec models.FeatureVector

	attempts, err := c.retry.Do(ctx,
		func(ctx context.Context) error {
			callCtx, cancel := context.WithTimeout(ctx, c.config.ExtractTimeout)
			defer cancel()

			v, err := c.extractor.Extract(callCtx, r.event.TrackPath)
			if err != nil {
				if ctx.Err() == nil && errors.Is(callCtx.Err(), context.DeadlineExceeded) && !errors.Is(err, extractor.ErrTimeout) {
					return fmt.Errorf("%w: %s after %v", extractor.ErrTimeout, r.event.TrackPath, c.config.ExtractTimeout)
				}
				return err
			}
			vec = v
			return nil
		},
		extractionRetryable,
		r.onRetry,
	)
	r.out.Attempts = attempts
	return vec, err
}

// extractionRetryable is false for content problems and configuration drift.
func extractionRetryable(err error) bool {
	switch {
	case errors.Is(err, extractor.ErrDecode),
		errors.Is(err, extractor.ErrTimeout),
		errors.Is(err, models.ErrDimensionMismatch),
		errors.Is(err, context.Canceled):
		return false
	default:
		return true
	}
}

func (c *Coordinator) persist(ctx context.Context, r *run, vec models.FeatureVector) (models.Track, bool, error) {
	var (
		track   models.Track
		created bool
	)

	attempts, err := c.retry.Do(ctx,
		func(ctx context.Context) error {
			t, ok, err := c.tracks.UpsertTrack(ctx, r.event.UserID, r.event.TrackPath, vec)
			if err != nil {
				return err
			}
			track, created = t, ok
			return nil
		},
		store.IsTransient,
		r.onRetry,
	)
	r.out.Attempts = attempts
	return track, created, err
}

func (c *Coordinator) recompute(ctx context.Context, r *run) error {
	attempts, err := c.retry.Do(ctx,
		func(ctx context.Context) error {
			_, err := c.recomputer.Recompute(ctx, r.event.UserID)
			return err
		},
		store.IsTransient,
		r.onRetry,
	)
	r.out.Attempts = attempts
	return err
}

func (r *run) onRetry(attempt int, err error, wait time.Duration) {
	metrics.RecordIngestRetry(r.out.Stage.String())
	r.logger.Warn().
		Err(err).
		Str("stage", r.out.Stage.String()).
		Int("attempt", attempt).
		Dur("backoff", wait).
		Msg("Retrying ingestion step")
}

func (r *run) finish() Outcome {
	r.enter(StateDone)
	r.out.Duration = time.Since(r.start)
	r.c.done.Add(1)
	metrics.RecordIngestOutcome(StateDone.String(), "", r.out.Duration)

	r.logger.Info().
		Int64("track_id", r.out.TrackID).
		Bool("created", r.out.Created).
		Dur("duration", r.out.Duration).
		Msg("Track ingested")
	return r.out
}

// fail routes a failed stage to drop, dead-letter or requeue.
func (r *run) fail(ctx context.Context, err error) Outcome {
	switch {
	case ctx.Err() != nil:
		return r.requeue(err)
	case r.out.Stage == StateExtracting && (errors.Is(err, extractor.ErrDecode) || errors.Is(err, extractor.ErrTimeout)):
		return r.drop(err)
	default:
		return r.escalate(ctx, err)
	}
}

func (r *run) terminate(err error, d Disposition) Outcome {
	stage := r.out.Stage
	r.enter(StateFailed)
	r.out.Err = err
	r.out.Disposition = d
	r.out.Duration = time.Since(r.start)
	metrics.RecordIngestOutcome(StateFailed.String(), stage.String(), r.out.Duration)
	return r.out
}

func (r *run) drop(err error) Outcome {
	out := r.terminate(err, DispositionDropped)
	r.c.dropped.Add(1)
	r.logger.Warn().
		Err(err).
		Str("stage", out.Stage.String()).
		Msg("Ingestion event dropped")
	return out
}

func (r *run) requeue(err error) Outcome {
	out := r.terminate(err, DispositionRequeue)
	r.c.requeued.Add(1)
	r.logger.Info().
		Err(err).
		Str("stage", out.Stage.String()).
		Msg("Ingestion interrupted, event will be redelivered")
	return out
}

func (r *run) escalate(ctx context.Context, err error) Outcome {
	if !r.deadLetter {
		out := r.terminate(err, DispositionRequeue)
		r.logger.Warn().Err(err).Str("stage", out.Stage.String()).Msg("Replay failed")
		return out
	}
	if r.c.deadLetters == nil {
		r.logger.Error().Err(err).Str("stage", r.out.Stage.String()).Msg("Ingestion failed and no dead-letter store is configured")
		return r.requeue(err)
	}

	entry := &deadletter.Entry{
		Event:    *r.event,
		Stage:    r.out.Stage.String(),
		Error:    err.Error(),
		Attempts: r.out.Attempts,
	}
	id, putErr := r.c.deadLetters.Put(ctx, entry)
	if putErr != nil {
		r.logger.Error().
			Err(err).
			AnErr("dead_letter_error", putErr).
			Str("stage", r.out.Stage.String()).
			Msg("Failed to dead-letter event")
		return r.requeue(err)
	}

	out := r.terminate(err, DispositionDeadLettered)
	out.DeadLetterID = id
	r.out.DeadLetterID = id
	r.c.deadLettered.Add(1)
	r.logger.Error().
		Err(err).
		Str("stage", out.Stage.String()).
		Int("attempts", out.Attempts).
		Str("dead_letter_id", id).
		Msg("Ingestion failed, event dead-lettered")
	return out
}
