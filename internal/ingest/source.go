// Cadence - Content-Based Audio Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cadence

package ingest

import (
	"context"
	"errors"
	"sync"

	"github.com/tomtom215/cadence/internal/models"
)

// ErrSourceClosed is returned by an EventSource that will produce no more events.
var ErrSourceClosed = errors.New("event source closed")

// EventSource yields ingestion events one at a time.
type EventSource interface {
	// Next blocks until an event is available, the source closes, or ctx ends.
	Next(ctx context.Context) (*models.IngestionEvent, error)
}

// Run consumes source sequentially until it closes or ctx ends.
// Requeued events are handed back to the source when it supports Requeue.
func (c *Coordinator) Run(ctx context.Context, source EventSource) error {
	c.logger.Info().Msg("Ingestion loop started")
	defer c.logger.Info().Msg("Ingestion loop stopped")

	requeuer, canRequeue := source.(interface {
		Requeue(event *models.IngestionEvent) error
	})

	for {
		event, err := source.Next(ctx)
		if err != nil {
			if errors.Is(err, ErrSourceClosed) {
				return nil
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return err
		}

		out := c.Handle(ctx, event)
		if out.Disposition == DispositionRequeue && ctx.Err() == nil && canRequeue {
			if err := requeuer.Requeue(event); err != nil {
				c.logger.Error().Err(err).Str("event_id", event.EventID).Msg("Failed to requeue event")
			}
		}
	}
}

// ChannelSource is an in-process EventSource backed by a buffered channel.
// It is used when no message broker is configured.
type ChannelSource struct {
	events chan *models.IngestionEvent
	done   chan struct{}
	once   sync.Once
}

// NewChannelSource creates a source buffering up to size events.
func NewChannelSource(size int) *ChannelSource {
	if size < 1 {
		size = 1
	}
	return &ChannelSource{
		events: make(chan *models.IngestionEvent, size),
		done:   make(chan struct{}),
	}
}

// Publish enqueues an event, blocking while the buffer is full.
func (s *ChannelSource) Publish(ctx context.Context, event *models.IngestionEvent) error {
	select {
	case <-s.done:
		return ErrSourceClosed
	default:
	}
	select {
	case s.events <- event:
		return nil
	case <-s.done:
		return ErrSourceClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// PublishEvent is Publish under the name the HTTP layer and the NATS publisher share.
func (s *ChannelSource) PublishEvent(ctx context.Context, event *models.IngestionEvent) error {
	return s.Publish(ctx, event)
}

// Requeue puts an event back without blocking.
func (s *ChannelSource) Requeue(event *models.IngestionEvent) error {
	select {
	case <-s.done:
		return ErrSourceClosed
	case s.events <- event:
		return nil
	default:
		return errors.New("event source buffer is full")
	}
}

// Next implements EventSource. Buffered events are drained before ErrSourceClosed is returned.
func (s *ChannelSource) Next(ctx context.Context) (*models.IngestionEvent, error) {
	select {
	case event := <-s.events:
		return event, nil
	default:
	}
	select {
	case event := <-s.events:
		return event, nil
	case <-s.done:
		select {
		case event := <-s.events:
			return event, nil
		default:
			return nil, ErrSourceClosed
		}
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Len returns the number of buffered events.
func (s *ChannelSource) Len() int {
	return len(s.events)
}

// Close stops the source. Buffered events can still be read.
func (s *ChannelSource) Close() {
	s.once.Do(func() { close(s.done) })
}
