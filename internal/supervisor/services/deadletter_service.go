// Cadence - Content-Based Audio Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cadence

package services

import (
	"context"
)

// ReplayRunner periodically replays dead letters. Satisfied by *deadletter.ReplayWorker.
type ReplayRunner interface {
	Run(ctx context.Context) error
}

// DeadLetterReplayService supervises the dead-letter replay worker.
type DeadLetterReplayService struct {
	worker ReplayRunner
	name   string
}

// NewDeadLetterReplayService creates the service.
func NewDeadLetterReplayService(worker ReplayRunner) *DeadLetterReplayService {
	return &DeadLetterReplayService{
		worker: worker,
		name:   "deadletter-replay",
	}
}

// Serve implements suture.Service.
func (s *DeadLetterReplayService) Serve(ctx context.Context) error {
	return s.worker.Run(ctx)
}

// String implements fmt.Stringer for suture's logs.
func (s *DeadLetterReplayService) String() string {
	return s.name
}
