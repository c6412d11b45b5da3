// Cadence - Content-Based Audio Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cadence

package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/thejerf/suture/v4"

	"github.com/tomtom215/cadence/internal/ingest"
)

// IngestRunner consumes an event source. Satisfied by *ingest.Coordinator.
type IngestRunner interface {
	Run(ctx context.Context, source ingest.EventSource) error
}

// IngestLoopService runs the coordinator over an in-process source when
// JetStream is disabled.
type IngestLoopService struct {
	runner IngestRunner
	source ingest.EventSource
	name   string
}

// NewIngestLoopService creates the service.
func NewIngestLoopService(runner IngestRunner, source ingest.EventSource) *IngestLoopService {
	return &IngestLoopService{
		runner: runner,
		source: source,
		name:   "ingest-loop",
	}
}

// Serve implements suture.Service. A closed source ends the service for good.
func (s *IngestLoopService) Serve(ctx context.Context) error {
	err := s.runner.Run(ctx, s.source)
	switch {
	case err == nil:
		return suture.ErrDoNotRestart
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return err
	default:
		return fmt.Errorf("ingest loop failed: %w", err)
	}
}

// String implements fmt.Stringer for suture's logs.
func (s *IngestLoopService) String() string {
	return s.name
}
