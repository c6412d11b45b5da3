// Cadence - Content-Based Audio Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cadence

package ingest

import (
	"context"
	"math"
	"math/rand"
	"sync"
	"time"
)

// RetryPolicy retries an operation with exponential backoff and jitter.
type RetryPolicy struct {
	// MaxRetries is the number of retries after the first attempt.
	MaxRetries int

	InitialBackoff    time.Duration
	MaxBackoff        time.Duration
	BackoffMultiplier float64

	// JitterFraction is the random jitter fraction (0.0-1.0).
	JitterFraction float64

	rng   *rand.Rand
	rngMu sync.Mutex

	// sleep waits for d or until ctx ends.
	sleep func(ctx context.Context, d time.Duration) error
}

// NewRetryPolicy builds a policy from cfg. A zero RandomSeed seeds jitter from the clock.
func NewRetryPolicy(cfg Config) *RetryPolicy {
	seed := cfg.RandomSeed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &RetryPolicy{
		MaxRetries:        cfg.MaxRetries,
		InitialBackoff:    cfg.InitialBackoff,
		MaxBackoff:        cfg.MaxBackoff,
		BackoffMultiplier: cfg.BackoffMultiplier,
		JitterFraction:    cfg.JitterFraction,
		//nolint:gosec // G404: Using weak random for non-cryptographic jitter in backoff timing
		rng:   rand.New(rand.NewSource(seed)),
		sleep: sleepContext,
	}
}

// CalculateBackoff returns the delay before retry number retryCount (zero based).
func (p *RetryPolicy) CalculateBackoff(retryCount int) time.Duration {
	backoff := float64(p.InitialBackoff) * math.Pow(p.BackoffMultiplier, float64(retryCount))
	if backoff > float64(p.MaxBackoff) {
		backoff = float64(p.MaxBackoff)
	}

	p.rngMu.Lock()
	jitter := backoff * p.JitterFraction * (p.rng.Float64()*2 - 1) // -jitter to +jitter
	p.rngMu.Unlock()

	return time.Duration(backoff + jitter)
}

// Do calls op until it succeeds, returns an error retryable rejects, or retries run out.
// onRetry is called before each backoff. It returns the number of attempts made and the
// last error.
func (p *RetryPolicy) Do(ctx context.Context, op func(context.Context) error, retryable func(error) bool, onRetry func(attempt int, err error, wait time.Duration)) (int, error) {
	var err error
	for attempt := 1; ; attempt++ {
		if err = op(ctx); err == nil {
			return attempt, nil
		}
		if ctx.Err() != nil {
			return attempt, err
		}
		if !retryable(err) || attempt > p.MaxRetries {
			return attempt, err
		}

		wait := p.CalculateBackoff(attempt - 1)
		if onRetry != nil {
			onRetry(attempt, err, wait)
		}
		if serr := p.sleep(ctx, wait); serr != nil {
			return attempt, err
		}
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
