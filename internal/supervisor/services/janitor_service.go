// Cadence - Content-Based Audio Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cadence

package services

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// SnapshotPurger drops expired recommendation snapshots. Satisfied by *recommend.Engine.
type SnapshotPurger interface {
	PurgeExpired() int
}

// SnapshotJanitorService purges expired snapshots on a fixed interval.
type SnapshotJanitorService struct {
	purger   SnapshotPurger
	interval time.Duration
	logger   zerolog.Logger
	name     string
}

// NewSnapshotJanitorService creates the janitor. A non-positive interval means 5m.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewSnapshotJanitorService(purger SnapshotPurger, interval time.Duration, logger zerolog.Logger) *SnapshotJanitorService {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	return &SnapshotJanitorService{
		purger:   purger,
		interval: interval,
		logger:   logger.With().Str("service", "snapshot-janitor").Logger(),
		name:     "snapshot-janitor",
	}
}

// Serve implements suture.Service.
func (s *SnapshotJanitorService) Serve(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if n := s.purger.PurgeExpired(); n > 0 {
				s.logger.Debug().Int("purged", n).Msg("Expired recommendation snapshots purged")
			}
		}
	}
}

// String implements fmt.Stringer for suture's logs.
func (s *SnapshotJanitorService) String() string {
	return s.name
}
