// Cadence - Content-Based Audio Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cadence

/*
Package extractor defines the Feature Extractor contract and its production clients.

An Extractor turns a track path into a FeatureVector of the configured dimension.
Unreadable or undecodable content is reported as *DecodeError, which the ingestion
coordinator logs and drops without retrying.

Implementations:

  - HTTPClient: calls an out-of-process extraction service over HTTP/JSON. The service
    returns the MFCC, chroma and spectral-contrast groups, which are concatenated in
    that order.
  - CircuitBreaker: wraps any Extractor with a sony/gobreaker circuit breaker. Decode
    errors do not count as failures.
  - Bounded: applies a per-call timeout, a concurrency limit (weighted semaphore) and
    a dimension check.

Typical wiring:

	client := extractor.NewHTTPClient(cfg.URL, cfg.RequestTimeout, layout)
	ext := extractor.NewBounded(extractor.NewCircuitBreaker(client, logger), extractor.BoundedConfig{
		Timeout:       30 * time.Second,
		MaxConcurrent: 4,
		Dimension:     layout.Dimension(),
	})
*/
package extractor
