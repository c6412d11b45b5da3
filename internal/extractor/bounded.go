// Cadence - Content-Based Audio Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cadence

package extractor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/tomtom215/cadence/internal/metrics"
	"github.com/tomtom215/cadence/internal/models"
)

// Ensure Bounded implements Extractor
var _ Extractor = (*Bounded)(nil)

// BoundedConfig limits extraction calls.
type BoundedConfig struct {
	// Timeout bounds each call. Zero disables the timeout.
	Timeout time.Duration

	// MaxConcurrent caps simultaneous extractions. Values below 1 mean 1.
	MaxConcurrent int

	// Dimension is the required vector length. Zero disables the check.
	Dimension int
}

// Bounded applies a timeout, a concurrency limit and a dimension check to an Extractor.
type Bounded struct {
	next Extractor
	cfg  BoundedConfig
	sem  *semaphore.Weighted
}

// NewBounded wraps next.
func NewBounded(next Extractor, cfg BoundedConfig) *Bounded {
	if cfg.MaxConcurrent < 1 {
		cfg.MaxConcurrent = 1
	}
	return &Bounded{
		next: next,
		cfg:  cfg,
		sem:  semaphore.NewWeighted(int64(cfg.MaxConcurrent)),
	}
}

// Extract waits for a free slot, then runs the wrapped extractor under the timeout.
// A call that exceeds the timeout returns an error matching ErrTimeout.
func (b *Bounded) Extract(ctx context.Context, trackPath string) (models.FeatureVector, error) {
	if err := b.sem.Acquire(ctx, 1); err != nil {
		return models.FeatureVector{}, fmt.Errorf("waiting for extraction slot: %w", err)
	}
	defer b.sem.Release(1)

	metrics.TrackExtractionInFlight(true)
	defer metrics.TrackExtractionInFlight(false)

	callCtx := ctx
	if b.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, b.cfg.Timeout)
		defer cancel()
	}

	start := time.Now()
	vec, err := b.next.Extract(callCtx, trackPath)
	elapsed := time.Since(start)

	if err != nil {
		// Only our own deadline counts as a timeout; the caller's cancellation propagates as is.
		if ctx.Err() == nil && errors.Is(callCtx.Err(), context.DeadlineExceeded) {
			metrics.RecordExtraction("timeout", elapsed)
			return models.FeatureVector{}, fmt.Errorf("%w: %s after %v", ErrTimeout, trackPath, b.cfg.Timeout)
		}
		if IsDecodeError(err) {
			metrics.RecordExtraction("decode_error", elapsed)
		} else {
			metrics.RecordExtraction("error", elapsed)
		}
		return models.FeatureVector{}, err
	}

	if b.cfg.Dimension > 0 {
		if err := vec.CheckDim(b.cfg.Dimension); err != nil {
			metrics.RecordExtraction("error", elapsed)
			return models.FeatureVector{}, fmt.Errorf("extractor output for %s: %w", trackPath, err)
		}
	}

	metrics.RecordExtraction("success", elapsed)
	return vec, nil
}
