// Cadence - Content-Based Audio Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cadence

package recommend

import (
	"context"
	"math"
	"testing"

	"github.com/tomtom215/cadence/internal/models"
	"github.com/tomtom215/cadence/internal/similarity"
)

func track(t *testing.T, id int64, userID string, values ...float64) models.Track {
	t.Helper()
	tr, err := models.NewTrack(id, userID, userID+"/track", models.MustFeatureVector(values...))
	if err != nil {
		t.Fatalf("NewTrack() error: %v", err)
	}
	return tr
}

func TestAggregator_ViewsAreDistinct(t *testing.T) {
	agg := NewAggregator(similarity.NewEngine())
	ctx := context.Background()

	library := []models.Track{track(t, 1, "alice", 1, 0), track(t, 2, "alice", 0, 1)}
	candidates := []models.Track{track(t, 3, "bob", 0, 1), track(t, 4, "bob", 0, 2)}

	snap, err := agg.Aggregate(ctx, "alice", library, candidates)
	if err != nil {
		t.Fatalf("Aggregate() error: %v", err)
	}
	recs := snap.Recommendations
	// Per-track view keeps library order and lists candidates.
	if recs.Entries[0].Reference.ID != 1 || recs.Entries[1].Reference.ID != 2 {
		t.Errorf("per-track view reordered the library: %+v", recs.Entries)
	}
	for _, e := range recs.Entries {
		if len(e.Candidates) != len(candidates) {
			t.Errorf("reference %d has %d candidates, want %d", e.Reference.ID, len(e.Candidates), len(candidates))
		}
	}

	ranking := snap.Ranking
	// Library view ranks the user's own tracks, not candidates.
	if len(ranking.Entries) != len(library) {
		t.Fatalf("ranking has %d entries, want %d", len(ranking.Entries), len(library))
	}
	if ranking.Entries[0].Track.ID != 2 || ranking.Entries[1].Track.ID != 1 {
		t.Errorf("ranking order = [%d, %d], want [2, 1]", ranking.Entries[0].Track.ID, ranking.Entries[1].Track.ID)
	}
	if ranking.Entries[1].Score != 0 {
		t.Errorf("orthogonal track score = %v, want 0", ranking.Entries[1].Score)
	}
}

func TestAggregator_LibraryRankingStableOnTies(t *testing.T) {
	agg := NewAggregator(similarity.NewEngine())

	library := []models.Track{
		track(t, 1, "alice", 0, 1),
		track(t, 2, "alice", 0, 3),
		track(t, 3, "alice", 0, 2),
	}
	candidates := []models.Track{track(t, 4, "bob", 1, 0)}

	snap, err := agg.Aggregate(context.Background(), "alice", library, candidates)
	if err != nil {
		t.Fatalf("Aggregate() error: %v", err)
	}
	for i, want := range []int64{1, 2, 3} {
		if snap.Ranking.Entries[i].Track.ID != want {
			t.Errorf("position %d = track %d, want %d", i, snap.Ranking.Entries[i].Track.ID, want)
		}
	}
}

func TestAggregator_EmptyLibrary(t *testing.T) {
	agg := NewAggregator(similarity.NewEngine())
	ctx := context.Background()
	candidates := []models.Track{track(t, 1, "bob", 1, 0)}

	snap, err := agg.Aggregate(ctx, "carol", nil, candidates)
	if err != nil {
		t.Fatalf("Aggregate() error: %v", err)
	}
	if !snap.IsEmpty() || !snap.Recommendations.IsEmpty() || !snap.Ranking.IsEmpty() {
		t.Errorf("Aggregate(empty) = %+v", snap)
	}
	if snap.Recommendations.UserID != "carol" || snap.Ranking.UserID != "carol" {
		t.Errorf("empty views lost the user id: %+v", snap)
	}
}

func TestAggregator_RankingSumsPerTrackScores(t *testing.T) {
	agg := NewAggregator(similarity.NewEngine())

	library := []models.Track{track(t, 1, "alice", 1, 2, 3), track(t, 2, "alice", 3, 2, 1)}
	candidates := []models.Track{
		track(t, 3, "bob", 1, 0, 0),
		track(t, 4, "bob", 0, 1, 0),
		track(t, 5, "carol", 0, 0, 1),
	}

	snap, err := agg.Aggregate(context.Background(), "alice", library, candidates)
	if err != nil {
		t.Fatalf("Aggregate() error: %v", err)
	}

	sums := make(map[int64]float64)
	for _, e := range snap.Recommendations.Entries {
		if len(e.Candidates) != len(candidates) {
			t.Fatalf("reference %d has %d candidates, want %d", e.Reference.ID, len(e.Candidates), len(candidates))
		}
		for _, c := range e.Candidates {
			sums[e.Reference.ID] += c.Score
		}
	}
	for _, r := range snap.Ranking.Entries {
		if math.Abs(r.Score-sums[r.Track.ID]) > 1e-12 {
			t.Errorf("track %d ranking score = %v, want %v", r.Track.ID, r.Score, sums[r.Track.ID])
		}
	}
	if snap.LibrarySize != 2 || snap.CandidateCount != 3 {
		t.Errorf("snapshot sizes = %d/%d, want 2/3", snap.LibrarySize, snap.CandidateCount)
	}
}
