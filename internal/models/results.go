// Cadence - Content-Based Audio Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cadence

package models

import "time"

// ScoredTrack is a candidate track paired with its similarity to a reference track.
type ScoredTrack struct {
	Track Track   `json:"track"`
	Score float64 `json:"score"`
}

// TrackRecommendations lists the candidates for one reference track, best first.
type TrackRecommendations struct {
	Reference  Track         `json:"reference"`
	Candidates []ScoredTrack `json:"candidates"`
}

// RecommendationResult is the per-track recommendation view for one user.
// Entries follow the order of the user's library; an empty result is a valid answer.
type RecommendationResult struct {
	UserID     string                 `json:"user_id"`
	Entries    []TrackRecommendations `json:"entries"`
	ComputedAt time.Time              `json:"computed_at"`
}

// EmptyRecommendations returns the explicit empty result for a user without tracks.
func EmptyRecommendations(userID string) *RecommendationResult {
	return &RecommendationResult{UserID: userID, Entries: []TrackRecommendations{}}
}

// IsEmpty reports whether the result holds no reference tracks.
func (r *RecommendationResult) IsEmpty() bool {
	return r == nil || len(r.Entries) == 0
}

// Limit returns a copy keeping at most n candidates per reference track.
// A non-positive n returns the result unchanged.
func (r *RecommendationResult) Limit(n int) *RecommendationResult {
	if r == nil || n <= 0 {
		return r
	}
	out := &RecommendationResult{
		UserID:     r.UserID,
		Entries:    make([]TrackRecommendations, len(r.Entries)),
		ComputedAt: r.ComputedAt,
	}
	for i, e := range r.Entries {
		cands := e.Candidates
		if len(cands) > n {
			cands = cands[:n]
		}
		out.Entries[i] = TrackRecommendations{Reference: e.Reference, Candidates: cands}
	}
	return out
}

// RankedTrack is one of the user's own tracks with its aggregate similarity score.
type RankedTrack struct {
	Track Track   `json:"track"`
	Score float64 `json:"score"`
}

// LibraryRanking orders a user's own tracks by the sum of their similarity to every candidate.
// It ranks the library and does not recommend candidates.
type LibraryRanking struct {
	UserID     string        `json:"user_id"`
	Entries    []RankedTrack `json:"entries"`
	ComputedAt time.Time     `json:"computed_at"`
}

// EmptyLibraryRanking returns the explicit empty ranking for a user without tracks.
func EmptyLibraryRanking(userID string) *LibraryRanking {
	return &LibraryRanking{UserID: userID, Entries: []RankedTrack{}}
}

// IsEmpty reports whether the ranking holds no tracks.
func (r *LibraryRanking) IsEmpty() bool {
	return r == nil || len(r.Entries) == 0
}
