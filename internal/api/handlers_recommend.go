// Cadence - Content-Based Audio Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cadence

package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
)

// userViewRequest is the validated input of both per-user views.
type userViewRequest struct {
	UserID string `validate:"required,notblank,max=256"`
}

// GetRecommendations handles GET /api/v1/users/{userID}/recommendations
// Returns, for each of the user's tracks, the stored candidates ranked by
// cosine similarity. limit caps candidates per reference track.
// A user without tracks gets an empty result, not an error.
func (h *Handler) GetRecommendations(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	req := userViewRequest{UserID: chi.URLParam(r, "userID")}
	if apiErr := validateRequest(&req); apiErr != nil {
		respondAPIError(w, http.StatusBadRequest, apiErr)
		return
	}

	limit, err := h.parseLimit(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, codeInvalidLimit, err.Error(), nil)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.queryTimeout)
	defer cancel()

	result, err := h.recommender.Recommendations(ctx, req.UserID)
	if err != nil {
		h.respondQueryError(w, err)
		return
	}

	result = result.Limit(limit)
	respondSuccess(w, r, http.StatusOK, result, start, intPtr(len(result.Entries)))
}

// GetLibraryRanking handles GET /api/v1/users/{userID}/library-ranking
// Returns the user's own tracks ordered by their summed similarity to every
// candidate. This ranks the library; it does not recommend candidates.
func (h *Handler) GetLibraryRanking(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	req := userViewRequest{UserID: chi.URLParam(r, "userID")}
	if apiErr := validateRequest(&req); apiErr != nil {
		respondAPIError(w, http.StatusBadRequest, apiErr)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.queryTimeout)
	defer cancel()

	ranking, err := h.recommender.LibraryRanking(ctx, req.UserID)
	if err != nil {
		h.respondQueryError(w, err)
		return
	}

	respondSuccess(w, r, http.StatusOK, ranking, start, intPtr(len(ranking.Entries)))
}

// parseLimit reads ?limit=, defaulting to the engine's DefaultLimit and
// rejecting values outside [1, MaxLimit].
func (h *Handler) parseLimit(r *http.Request) (int, error) {
	cfg := h.recommender.Config()

	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return cfg.DefaultLimit, nil
	}

	limit, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("limit must be an integer")
	}
	if limit < 1 || limit > cfg.MaxLimit {
		return 0, fmt.Errorf("limit must be between 1 and %d", cfg.MaxLimit)
	}
	return limit, nil
}

// respondQueryError maps recommendation errors to HTTP status codes.
func (h *Handler) respondQueryError(w http.ResponseWriter, err error) {
	if errors.Is(err, context.DeadlineExceeded) {
		respondError(w, http.StatusServiceUnavailable, codeUnavailable, "Recommendation snapshot was not ready in time", err)
		return
	}
	respondError(w, http.StatusInternalServerError, codeRecommendation, "Failed to compute recommendations", err)
}
