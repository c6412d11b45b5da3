// Cadence - Content-Based Audio Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cadence

/*
Package middleware provides HTTP middleware for the Cadence query API.

Key Components:

  - RequestID: assigns or propagates X-Request-ID and seeds the logging context
  - PrometheusMetrics: request count, latency and in-flight gauge, labelled by chi route pattern

All middleware use the http.HandlerFunc signature; the api package adapts
them to chi with chiMiddleware.

Usage:

	r.Use(chiMiddleware(middleware.RequestID))
	r.Route("/api/v1", func(r chi.Router) {
	    r.Use(chiMiddleware(middleware.PrometheusMetrics))
	    ...
	})

Handlers read the request ID back with GetRequestID(r.Context()).
*/
package middleware
