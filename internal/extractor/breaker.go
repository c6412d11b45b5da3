// Cadence - Content-Based Audio Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cadence

package extractor

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/tomtom215/cadence/internal/metrics"
	"github.com/tomtom215/cadence/internal/models"
)

// Ensure CircuitBreaker implements Extractor
var _ Extractor = (*CircuitBreaker)(nil)

// BreakerConfig holds circuit breaker settings.
type BreakerConfig struct {
	Name        string
	MaxRequests uint32
	Interval    time.Duration
	Timeout     time.Duration

	// MinRequests and FailureRatio decide when the circuit opens.
	MinRequests  uint32
	FailureRatio float64
}

// DefaultBreakerConfig returns production defaults:
// - Max 3 concurrent requests in half-open state
// - 1 minute measurement window
// - 30 second timeout before attempting recovery
// - Opens after 60% failure rate with minimum 10 requests
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		Name:         "feature-extractor",
		MaxRequests:  3,
		Interval:     time.Minute,
		Timeout:      30 * time.Second,
		MinRequests:  10,
		FailureRatio: 0.6,
	}
}

// CircuitBreaker wraps an Extractor with the circuit breaker pattern.
// Decode errors and caller cancellations are not counted as service failures.
type CircuitBreaker struct {
	next   Extractor
	cb     *gobreaker.CircuitBreaker[models.FeatureVector]
	name   string
	logger zerolog.Logger
}

// NewCircuitBreaker creates a breaker-protected extractor.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewCircuitBreaker(next Extractor, cfg BreakerConfig, logger zerolog.Logger) *CircuitBreaker {
	c := &CircuitBreaker{
		next:   next,
		name:   cfg.Name,
		logger: logger.With().Str("component", "extractor-breaker").Logger(),
	}

	metrics.CircuitBreakerState.WithLabelValues(cfg.Name).Set(0) // 0 = closed

	c.cb = gobreaker.NewCircuitBreaker[models.FeatureVector](gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < cfg.MinRequests {
				return false
			}
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			shouldTrip := failureRatio >= cfg.FailureRatio
			if shouldTrip {
				c.logger.Warn().
					Uint32("failures", counts.TotalFailures).
					Float64("failure_rate", failureRatio*100).
					Msg("Opening feature extractor circuit")
			}
			return shouldTrip
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			c.logger.Info().
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("Feature extractor circuit state transition")
			metrics.RecordCircuitBreakerTransition(name, from.String(), to.String(), stateToFloat(to))
		},
		IsSuccessful: func(err error) bool {
			return err == nil || IsDecodeError(err) || errors.Is(err, context.Canceled)
		},
	})

	return c
}

// Extract runs the wrapped extractor through the breaker.
func (c *CircuitBreaker) Extract(ctx context.Context, trackPath string) (models.FeatureVector, error) {
	vec, err := c.cb.Execute(func() (models.FeatureVector, error) {
		return c.next.Extract(ctx, trackPath)
	})
	switch {
	case err == nil:
		metrics.RecordCircuitBreakerRequest(c.name, "success")
	case errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests):
		metrics.RecordCircuitBreakerRequest(c.name, "rejected")
	default:
		metrics.RecordCircuitBreakerRequest(c.name, "failure")
	}
	return vec, err
}

// State returns the current breaker state.
func (c *CircuitBreaker) State() gobreaker.State {
	return c.cb.State()
}

func stateToFloat(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}
