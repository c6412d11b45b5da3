// Cadence - Content-Based Audio Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cadence

package main

import (
	"context"

	"github.com/sony/gobreaker/v2"

	"github.com/tomtom215/cadence/internal/config"
	"github.com/tomtom215/cadence/internal/eventprocessor"
	"github.com/tomtom215/cadence/internal/extractor"
	"github.com/tomtom215/cadence/internal/logging"
)

// initExtractor builds the extraction chain:
//
//	HTTP client -> circuit breaker (optional) -> bounded (concurrency, timeout, dimension)
//
// The breaker state is registered with the health checker as a degraded,
// not failing, component: queries keep working while extraction is down.
func initExtractor(cfg *config.Config, health *eventprocessor.HealthChecker) extractor.Extractor {
	var ext extractor.Extractor = extractor.NewHTTPClient(cfg.Extractor.URL, cfg.Extractor.RequestTimeout, cfg.Features.Layout())

	if cfg.Extractor.BreakerEnabled {
		breaker := extractor.NewCircuitBreaker(ext, cfg.Extractor.BreakerConfig(), logging.WithComponent("extractor"))
		ext = breaker
		if health != nil {
			health.RegisterComponent("extractor", breakerHealth(breaker))
		}
		logging.Info().
			Uint32("min_requests", cfg.Extractor.BreakerMinRequests).
			Float64("failure_ratio", cfg.Extractor.BreakerFailureRatio).
			Msg("Extractor circuit breaker enabled")
	}

	logging.Info().
		Str("url", cfg.Extractor.URL).
		Int("max_concurrent", cfg.Extractor.MaxConcurrent).
		Dur("timeout", cfg.Ingest.ExtractTimeout).
		Msg("Feature extractor configured")

	return extractor.NewBounded(ext, extractor.BoundedConfig{
		Timeout:       cfg.Ingest.ExtractTimeout,
		MaxConcurrent: cfg.Extractor.MaxConcurrent,
		Dimension:     cfg.Features.Dimension(),
	})
}

// breakerStater is the part of extractor.CircuitBreaker the health check reads.
type breakerStater interface {
	State() gobreaker.State
}

func breakerHealth(breaker breakerStater) eventprocessor.HealthCheckable {
	return eventprocessor.HealthCheckFunc(func(_ context.Context) eventprocessor.ComponentHealth {
		state := breaker.State()
		health := eventprocessor.ComponentHealth{
			Healthy: true,
			Message: "circuit " + state.String(),
			Details: map[string]interface{}{"state": state.String()},
		}
		if state != gobreaker.StateClosed {
			health.Degraded = true
		}
		return health
	})
}

// pinger is satisfied by the track store.
type pinger interface {
	Ping(ctx context.Context) error
}

// counter is satisfied by the dead-letter store.
type counter interface {
	Count(ctx context.Context) (int64, error)
}

// registerHealthChecks adds the storage components to the readiness checks.
// A non-empty dead-letter channel is reported as degraded.
func registerHealthChecks(health *eventprocessor.HealthChecker, tracks pinger, deadLetters counter) {
	health.RegisterComponent("track_store", eventprocessor.PingCheck(tracks.Ping))
	health.RegisterComponent("deadletter", eventprocessor.HealthCheckFunc(func(ctx context.Context) eventprocessor.ComponentHealth {
		n, err := deadLetters.Count(ctx)
		if err != nil {
			return eventprocessor.ComponentHealth{Healthy: false, Error: err.Error()}
		}
		return eventprocessor.ComponentHealth{
			Healthy:  true,
			Degraded: n > 0,
			Details:  map[string]interface{}{"pending": n},
		}
	}))
}
