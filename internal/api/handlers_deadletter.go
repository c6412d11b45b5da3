// Cadence - Content-Based Audio Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cadence

package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/tomtom215/cadence/internal/deadletter"
	"github.com/tomtom215/cadence/internal/logging"
)

// DeadLetterListRequest holds the query parameters of GET /api/v1/deadletters.
type DeadLetterListRequest struct {
	Limit int `validate:"min=1,max=1000"`
}

// DeadLetterList is the response of GET /api/v1/deadletters.
type DeadLetterList struct {
	Entries []*deadletter.Entry `json:"entries"`
	Stats   deadletter.Stats    `json:"stats"`
}

// DeadLetterReplayResult is the response of a single-entry replay.
type DeadLetterReplayResult struct {
	ID       string `json:"id"`
	Resolved bool   `json:"resolved"`
}

// ListDeadLetters handles GET /api/v1/deadletters
// Returns pending dead-lettered events, oldest first.
func (h *Handler) ListDeadLetters(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	if h.deadLetters == nil {
		respondError(w, http.StatusServiceUnavailable, codeUnavailable, "Dead-letter store is not enabled", ErrDeadLettersUnavailable)
		return
	}

	req := DeadLetterListRequest{Limit: getIntParam(r, "limit", 100)}
	if apiErr := validateRequest(&req); apiErr != nil {
		respondAPIError(w, http.StatusBadRequest, apiErr)
		return
	}

	entries, err := h.deadLetters.List(r.Context(), req.Limit)
	if err != nil {
		respondError(w, http.StatusInternalServerError, codeDeadLetter, "Failed to list dead-letter entries", err)
		return
	}
	stats, err := h.deadLetters.Stats(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, codeDeadLetter, "Failed to read dead-letter stats", err)
		return
	}
	if entries == nil {
		entries = []*deadletter.Entry{}
	}

	respondSuccess(w, r, http.StatusOK, DeadLetterList{Entries: entries, Stats: stats}, start, intPtr(len(entries)))
}

// ReplayDeadLetter handles POST /api/v1/deadletters/{id}/replay
// Re-drives one entry through ingestion regardless of its replay count.
// A successful replay resolves the entry; a failed one stays pending.
func (h *Handler) ReplayDeadLetter(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	if h.replayer == nil {
		respondError(w, http.StatusServiceUnavailable, codeUnavailable, "Dead-letter replay is not enabled", ErrDeadLettersUnavailable)
		return
	}

	id := chi.URLParam(r, "id")
	if err := h.replayer.ReplayOne(r.Context(), id); err != nil {
		if errors.Is(err, deadletter.ErrNotFound) || errors.Is(err, deadletter.ErrEmptyID) {
			respondError(w, http.StatusNotFound, codeNotFound, "Dead-letter entry not found", nil)
			return
		}
		respondError(w, http.StatusBadGateway, codeReplayFailed, "Replay failed; the entry remains pending", err)
		return
	}

	logging.Ctx(r.Context()).Info().Str("deadletter_id", sanitizeLogValue(id)).Msg("Dead-letter entry replayed")
	respondSuccess(w, r, http.StatusOK, DeadLetterReplayResult{ID: id, Resolved: true}, start, nil)
}

// ReplayAllDeadLetters handles POST /api/v1/deadletters/replay
// Runs one replay pass over every pending entry below the replay limit.
func (h *Handler) ReplayAllDeadLetters(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	if h.replayer == nil {
		respondError(w, http.StatusServiceUnavailable, codeUnavailable, "Dead-letter replay is not enabled", ErrDeadLettersUnavailable)
		return
	}

	summary, err := h.replayer.ReplayPending(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, codeDeadLetter, "Replay pass aborted", err)
		return
	}

	respondSuccess(w, r, http.StatusOK, summary, start, nil)
}

// DeleteDeadLetter handles DELETE /api/v1/deadletters/{id}
// Discards an entry without replaying it.
func (h *Handler) DeleteDeadLetter(w http.ResponseWriter, r *http.Request) {
	if h.deadLetters == nil {
		respondError(w, http.StatusServiceUnavailable, codeUnavailable, "Dead-letter store is not enabled", ErrDeadLettersUnavailable)
		return
	}

	id := chi.URLParam(r, "id")
	if err := h.deadLetters.Delete(r.Context(), id); err != nil {
		if errors.Is(err, deadletter.ErrNotFound) || errors.Is(err, deadletter.ErrEmptyID) {
			respondError(w, http.StatusNotFound, codeNotFound, "Dead-letter entry not found", nil)
			return
		}
		respondError(w, http.StatusInternalServerError, codeDeadLetter, "Failed to delete dead-letter entry", err)
		return
	}

	logging.Ctx(r.Context()).Info().Str("deadletter_id", sanitizeLogValue(id)).Msg("Dead-letter entry deleted")
	w.WriteHeader(http.StatusNoContent)
}
