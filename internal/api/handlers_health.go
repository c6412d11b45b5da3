// Cadence - Content-Based Audio Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cadence

package api

import (
	"net/http"
	"time"

	"github.com/tomtom215/cadence/internal/eventprocessor"
	"github.com/tomtom215/cadence/internal/models"
)

// HealthLive handles liveness probe requests (Kubernetes-style)
// Returns 200 OK if the process is alive, regardless of dependencies
func (h *Handler) HealthLive(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, &models.APIResponse{
		Status: "success",
		Data: map[string]interface{}{
			"alive":  true,
			"uptime": time.Since(h.startTime).Seconds(),
		},
		Metadata: models.Metadata{
			Timestamp: time.Now(),
		},
	})
}

// HealthReady handles readiness probe requests (Kubernetes-style)
// Returns 200 while every registered component is healthy or degraded and
// 503 as soon as one is unhealthy.
func (h *Handler) HealthReady(w http.ResponseWriter, r *http.Request) {
	if h.health == nil {
		respondJSON(w, http.StatusOK, &models.APIResponse{
			Status:   "success",
			Data:     eventprocessor.OverallHealth{Healthy: true, Status: eventprocessor.HealthStatusHealthy, Timestamp: time.Now()},
			Metadata: models.Metadata{Timestamp: time.Now()},
		})
		return
	}

	overall := h.health.CheckAll(r.Context())
	if !overall.Healthy {
		respondJSON(w, http.StatusServiceUnavailable, &models.APIResponse{
			Status: "error",
			Data:   overall,
			Metadata: models.Metadata{
				Timestamp: time.Now(),
			},
			Error: &models.APIError{
				Code:    codeNotReady,
				Message: "One or more components are unhealthy",
			},
		})
		return
	}

	respondJSON(w, http.StatusOK, &models.APIResponse{
		Status: "success",
		Data:   overall,
		Metadata: models.Metadata{
			Timestamp: time.Now(),
		},
	})
}

// IngestStatus is the response of GET /api/v1/ingest/stats.
type IngestStatus struct {
	Coordinator interface{} `json:"coordinator,omitempty"`
	DeadLetters interface{} `json:"deadletters,omitempty"`
}

// GetIngestStats handles GET /api/v1/ingest/stats
// Reports ingestion dispositions and dead-letter counters.
func (h *Handler) GetIngestStats(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	var status IngestStatus
	if h.ingestStats != nil {
		status.Coordinator = h.ingestStats.Stats()
	}
	if h.deadLetters != nil {
		stats, err := h.deadLetters.Stats(r.Context())
		if err != nil {
			respondError(w, http.StatusInternalServerError, codeDeadLetter, "Failed to read dead-letter stats", err)
			return
		}
		status.DeadLetters = stats
	}

	respondSuccess(w, r, http.StatusOK, status, start, nil)
}
