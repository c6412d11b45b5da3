// Cadence - Content-Based Audio Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cadence

package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
)

func TestPrometheusMetrics_StatusPassthrough(t *testing.T) {
	t.Parallel()

	statusCodes := []int{
		http.StatusOK,
		http.StatusAccepted,
		http.StatusBadRequest,
		http.StatusNotFound,
		http.StatusServiceUnavailable,
	}

	for _, code := range statusCodes {
		t.Run(http.StatusText(code), func(t *testing.T) {
			t.Parallel()

			handler := PrometheusMetrics(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(code)
			})

			rec := httptest.NewRecorder()
			handler(rec, httptest.NewRequest(http.MethodGet, "/api/v1/deadletters", nil))

			if rec.Code != code {
				t.Errorf("status = %d, want %d", rec.Code, code)
			}
		})
	}
}

func TestMetricsResponseWriter_CapturesStatus(t *testing.T) {
	t.Parallel()

	rec := httptest.NewRecorder()
	rw := &metricsResponseWriter{ResponseWriter: rec, statusCode: http.StatusOK}
	rw.WriteHeader(http.StatusTeapot)

	if rw.statusCode != http.StatusTeapot {
		t.Errorf("statusCode = %d, want %d", rw.statusCode, http.StatusTeapot)
	}
}

func TestEndpointLabel(t *testing.T) {
	t.Parallel()

	t.Run("without router uses path", func(t *testing.T) {
		t.Parallel()
		req := httptest.NewRequest(http.MethodGet, "/api/v1/users/alice/recommendations", nil)
		if got := endpointLabel(req); got != "/api/v1/users/alice/recommendations" {
			t.Errorf("endpointLabel() = %q", got)
		}
	})

	t.Run("with chi uses route pattern", func(t *testing.T) {
		t.Parallel()

		var label string
		r := chi.NewRouter()
		r.Get("/api/v1/users/{userID}/recommendations", func(w http.ResponseWriter, r *http.Request) {
			label = endpointLabel(r)
		})

		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/users/alice/recommendations", nil))

		if label != "/api/v1/users/{userID}/recommendations" {
			t.Errorf("endpointLabel() = %q, want route pattern", label)
		}
	})
}
