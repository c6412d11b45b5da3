// Cadence - Content-Based Audio Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cadence

package api

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/tomtom215/cadence/internal/logging"
	"github.com/tomtom215/cadence/internal/models"
)

// EventAccepted is the body of a 202 response to POST /api/v1/events.
type EventAccepted struct {
	EventID   string `json:"event_id"`
	UserID    string `json:"user_id"`
	TrackPath string `json:"track_path"`
}

// PostEvent handles POST /api/v1/events
// Validates an ingestion event and publishes it onto the event stream.
// Processing is asynchronous: 202 means the event was accepted for ingestion,
// not that the track is stored.
func (h *Handler) PostEvent(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	if h.publisher == nil {
		respondError(w, http.StatusServiceUnavailable, codeUnavailable, "Event ingestion is not enabled", ErrPublisherUnavailable)
		return
	}

	var event models.IngestionEvent
	if err := decodeJSONBody(w, r, &event); err != nil {
		respondError(w, http.StatusBadRequest, codeInvalidBody, "Request body must be a JSON ingestion event", nil)
		return
	}

	if apiErr := validateRequest(&event); apiErr != nil {
		respondAPIError(w, http.StatusBadRequest, apiErr)
		return
	}

	if event.EventID == "" {
		event.EventID = uuid.New().String()
	}
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now().UTC()
	}

	if err := h.publisher.PublishEvent(r.Context(), &event); err != nil {
		respondError(w, http.StatusServiceUnavailable, codePublish, "Failed to publish ingestion event", err)
		return
	}

	logging.Ctx(r.Context()).Debug().
		Str("event_id", event.EventID).
		Str("user_id", sanitizeLogValue(event.UserID)).
		Msg("Ingestion event accepted")

	respondSuccess(w, r, http.StatusAccepted, EventAccepted{
		EventID:   event.EventID,
		UserID:    event.UserID,
		TrackPath: event.TrackPath,
	}, start, nil)
}
