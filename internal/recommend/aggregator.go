// Cadence - Content-Based Audio Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cadence

package recommend

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/tomtom215/cadence/internal/models"
	"github.com/tomtom215/cadence/internal/similarity"
)

// Aggregator builds the two recommendation views from similarity rankings.
type Aggregator struct {
	similarity *similarity.Engine
	now        func() time.Time
}

// NewAggregator creates an Aggregator over the given similarity engine.
func NewAggregator(engine *similarity.Engine) *Aggregator {
	return &Aggregator{similarity: engine, now: time.Now}
}

// Aggregate computes both views from a single comparison.
//
// Recommendations is the per-track view: for every library track, the candidate
// tracks sorted by similarity descending. Ranking is the library view: the user's
// own tracks ordered by the sum of their similarity over all candidates, ties in
// library order. An empty library yields the empty result for both.
func (a *Aggregator) Aggregate(ctx context.Context, userID string, library, candidates []models.Track) (*Snapshot, error) {
	now := a.now()
	snap := &Snapshot{
		UserID:         userID,
		LibrarySize:    len(library),
		CandidateCount: len(candidates),
		ComputedAt:     now,
	}
	if len(library) == 0 {
		snap.Recommendations = emptyRecommendations(userID, now)
		snap.Ranking = emptyRanking(userID, now)
		return snap, nil
	}

	result, err := a.compare(ctx, library, candidates)
	if err != nil {
		return nil, err
	}
	snap.Recommendations = buildRecommendations(userID, library, candidates, result, now)
	snap.Ranking = buildRanking(userID, library, result, now)
	return snap, nil
}

func (a *Aggregator) compare(ctx context.Context, library, candidates []models.Track) (similarity.Result, error) {
	result, err := a.similarity.Compare(ctx, models.Vectors(library), models.Vectors(candidates))
	if err != nil {
		return nil, fmt.Errorf("compare %d library tracks against %d candidates: %w", len(library), len(candidates), err)
	}
	return result, nil
}

func buildRecommendations(userID string, library, candidates []models.Track, result similarity.Result, now time.Time) *models.RecommendationResult {
	entries := make([]models.TrackRecommendations, len(library))
	for i, ref := range library {
		scored := make([]models.ScoredTrack, len(result[i]))
		for j, m := range result[i] {
			scored[j] = models.ScoredTrack{Track: candidates[m.Index], Score: m.Score}
		}
		entries[i] = models.TrackRecommendations{Reference: ref, Candidates: scored}
	}
	return &models.RecommendationResult{UserID: userID, Entries: entries, ComputedAt: now}
}

func buildRanking(userID string, library []models.Track, result similarity.Result, now time.Time) *models.LibraryRanking {
	entries := make([]models.RankedTrack, len(library))
	for i, ref := range library {
		entries[i] = models.RankedTrack{Track: ref, Score: similarity.Sum(result[i])}
	}
	sort.SliceStable(entries, func(a, b int) bool {
		return entries[a].Score > entries[b].Score
	})
	return &models.LibraryRanking{UserID: userID, Entries: entries, ComputedAt: now}
}

func emptyRecommendations(userID string, now time.Time) *models.RecommendationResult {
	r := models.EmptyRecommendations(userID)
	r.ComputedAt = now
	return r
}

func emptyRanking(userID string, now time.Time) *models.LibraryRanking {
	r := models.EmptyLibraryRanking(userID)
	r.ComputedAt = now
	return r
}
