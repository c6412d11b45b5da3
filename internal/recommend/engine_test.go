// Cadence - Content-Based Audio Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cadence

package recommend

import (
	"context"
	"errors"
	"math"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/rs/zerolog"

	"github.com/tomtom215/cadence/internal/models"
	"github.com/tomtom215/cadence/internal/similarity"
)

// mockTrackSource is an in-memory TrackSource.
type mockTrackSource struct {
	mu         sync.Mutex
	tracks     []models.Track
	byUserErr  error
	excludeErr error
	reads      atomic.Int64
}

func (m *mockTrackSource) add(t *testing.T, userID, path string, values ...float64) models.Track {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	tr, err := models.NewTrack(int64(len(m.tracks)+1), userID, path, models.MustFeatureVector(values...))
	if err != nil {
		t.Fatalf("NewTrack() error: %v", err)
	}
	m.tracks = append(m.tracks, tr)
	return tr
}

func (m *mockTrackSource) TracksByUser(_ context.Context, userID string) ([]models.Track, error) {
	m.reads.Add(1)
	if m.byUserErr != nil {
		return nil, m.byUserErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Track
	for _, tr := range m.tracks {
		if tr.UserID == userID {
			out = append(out, tr)
		}
	}
	return out, nil
}

func (m *mockTrackSource) TracksExcludingUser(_ context.Context, userID string) ([]models.Track, error) {
	if m.excludeErr != nil {
		return nil, m.excludeErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Track
	for _, tr := range m.tracks {
		if tr.UserID != userID {
			out = append(out, tr)
		}
	}
	return out, nil
}

func newTestEngine(t *testing.T, source TrackSource, cfg *Config) *Engine {
	t.Helper()
	if cfg == nil {
		cfg = DefaultConfig()
		cfg.Dimension = 0
	}
	engine, err := NewEngine(cfg, source, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewEngine() error: %v", err)
	}
	return engine
}

func TestNewEngine(t *testing.T) {
	t.Run("nil config uses defaults", func(t *testing.T) {
		engine, err := NewEngine(nil, &mockTrackSource{}, zerolog.Nop())
		if err != nil {
			t.Fatalf("NewEngine() error: %v", err)
		}
		if engine.Config().DefaultLimit != DefaultConfig().DefaultLimit {
			t.Errorf("DefaultLimit = %d", engine.Config().DefaultLimit)
		}
	})

	t.Run("invalid config", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.MaxSnapshots = 0
		if _, err := NewEngine(cfg, &mockTrackSource{}, zerolog.Nop()); err == nil {
			t.Error("expected error for invalid config")
		}
	})

	t.Run("missing source", func(t *testing.T) {
		if _, err := NewEngine(nil, nil, zerolog.Nop()); err == nil {
			t.Error("expected error for nil source")
		}
	})
}

// alice owns [1,0,0]; bob's [0.9,0.1,0] ranks above carol's [0,1,0].
func TestEngine_CloserCandidateRanksFirst(t *testing.T) {
	source := &mockTrackSource{}
	source.add(t, "alice", "alice/x.mp3", 1, 0, 0)
	near := source.add(t, "bob", "bob/y.mp3", 0.9, 0.1, 0)
	far := source.add(t, "carol", "carol/z.mp3", 0, 1, 0)

	engine := newTestEngine(t, source, nil)
	ctx := context.Background()

	if _, err := engine.Recompute(ctx, "alice"); err != nil {
		t.Fatalf("Recompute() error: %v", err)
	}

	result, err := engine.Recommendations(ctx, "alice")
	if err != nil {
		t.Fatalf("Recommendations() error: %v", err)
	}
	if len(result.Entries) != 1 {
		t.Fatalf("entries = %d, want 1", len(result.Entries))
	}
	cands := result.Entries[0].Candidates
	if len(cands) != 2 {
		t.Fatalf("candidates = %d, want 2", len(cands))
	}
	if cands[0].Track.ID != near.ID || cands[1].Track.ID != far.ID {
		t.Errorf("order = [%s, %s], want [%s, %s]",
			cands[0].Track.TrackPath, cands[1].Track.TrackPath, near.TrackPath, far.TrackPath)
	}
	if cands[0].Score <= cands[1].Score {
		t.Errorf("scores not descending: %v, %v", cands[0].Score, cands[1].Score)
	}
	want := 0.9 / math.Sqrt(0.82)
	if math.Abs(cands[0].Score-want) > 1e-12 {
		t.Errorf("top score = %v, want %v", cands[0].Score, want)
	}
}

func TestEngine_UserWithoutTracksGetsEmptyResult(t *testing.T) {
	source := &mockTrackSource{}
	source.add(t, "alice", "alice/x.mp3", 1, 0, 0)

	engine := newTestEngine(t, source, nil)
	ctx := context.Background()

	result, err := engine.Recommendations(ctx, "bob")
	if err != nil {
		t.Fatalf("Recommendations() error: %v", err)
	}
	if !result.IsEmpty() || result.Entries == nil {
		t.Errorf("want explicit empty result, got %+v", result)
	}
	if result.UserID != "bob" {
		t.Errorf("UserID = %q, want bob", result.UserID)
	}

	ranking, err := engine.LibraryRanking(ctx, "bob")
	if err != nil {
		t.Fatalf("LibraryRanking() error: %v", err)
	}
	if !ranking.IsEmpty() {
		t.Errorf("want empty ranking, got %+v", ranking)
	}
}

func TestEngine_LibraryRanking(t *testing.T) {
	source := &mockTrackSource{}
	// a1 matches b1 exactly and b2 partly; a2 matches b1 partly; a3 matches nothing.
	a3 := source.add(t, "alice", "alice/a3.mp3", 0, 0, 1)
	a2 := source.add(t, "alice", "alice/a2.mp3", 0, 1, 0)
	a1 := source.add(t, "alice", "alice/a1.mp3", 1, 1, 0)
	source.add(t, "bob", "bob/b1.mp3", 1, 1, 0)
	source.add(t, "bob", "bob/b2.mp3", 1, 0, 0)

	engine := newTestEngine(t, source, nil)
	ranking, err := engine.LibraryRanking(context.Background(), "alice")
	if err != nil {
		t.Fatalf("LibraryRanking() error: %v", err)
	}

	wantOrder := []int64{a1.ID, a2.ID, a3.ID}
	if len(ranking.Entries) != len(wantOrder) {
		t.Fatalf("entries = %d, want %d", len(ranking.Entries), len(wantOrder))
	}
	for i, id := range wantOrder {
		if ranking.Entries[i].Track.ID != id {
			t.Errorf("position %d = %s, want track %d", i, ranking.Entries[i].Track.TrackPath, id)
		}
	}
	for i := 1; i < len(ranking.Entries); i++ {
		if ranking.Entries[i].Score > ranking.Entries[i-1].Score {
			t.Errorf("ranking not descending at %d", i)
		}
	}
	if ranking.Entries[2].Score != 0 {
		t.Errorf("orthogonal track score = %v, want 0", ranking.Entries[2].Score)
	}
}

func TestEngine_NoCandidates(t *testing.T) {
	source := &mockTrackSource{}
	source.add(t, "alice", "alice/x.mp3", 1, 0)
	source.add(t, "alice", "alice/y.mp3", 0, 1)

	engine := newTestEngine(t, source, nil)
	result, err := engine.Recommendations(context.Background(), "alice")
	if err != nil {
		t.Fatalf("Recommendations() error: %v", err)
	}
	if len(result.Entries) != 2 {
		t.Fatalf("entries = %d, want 2", len(result.Entries))
	}
	for _, entry := range result.Entries {
		if entry.Candidates == nil || len(entry.Candidates) != 0 {
			t.Errorf("reference %s: want empty candidate list, got %v", entry.Reference.TrackPath, entry.Candidates)
		}
	}
}

func TestEngine_ServesPublishedSnapshot(t *testing.T) {
	source := &mockTrackSource{}
	source.add(t, "alice", "alice/x.mp3", 1, 0)
	source.add(t, "bob", "bob/y.mp3", 0, 1)

	engine := newTestEngine(t, source, nil)
	ctx := context.Background()

	if _, err := engine.Recompute(ctx, "alice"); err != nil {
		t.Fatalf("Recompute() error: %v", err)
	}
	readsAfterRecompute := source.reads.Load()

	for i := 0; i < 5; i++ {
		if _, err := engine.Recommendations(ctx, "alice"); err != nil {
			t.Fatalf("Recommendations() error: %v", err)
		}
		if _, err := engine.LibraryRanking(ctx, "alice"); err != nil {
			t.Fatalf("LibraryRanking() error: %v", err)
		}
	}
	if got := source.reads.Load(); got != readsAfterRecompute {
		t.Errorf("queries read the store %d times, want 0", got-readsAfterRecompute)
	}

	// A newly stored track is only visible after the next recompute.
	source.add(t, "carol", "carol/z.mp3", 1, 0)
	result, _ := engine.Recommendations(ctx, "alice")
	if len(result.Entries[0].Candidates) != 1 {
		t.Fatalf("snapshot changed before recompute: %v", result.Entries[0].Candidates)
	}
	if _, err := engine.Recompute(ctx, "alice"); err != nil {
		t.Fatalf("Recompute() error: %v", err)
	}
	result, _ = engine.Recommendations(ctx, "alice")
	if len(result.Entries[0].Candidates) != 2 {
		t.Errorf("candidates after recompute = %d, want 2", len(result.Entries[0].Candidates))
	}
}

func TestEngine_RecomputeErrors(t *testing.T) {
	ctx := context.Background()

	t.Run("empty user", func(t *testing.T) {
		engine := newTestEngine(t, &mockTrackSource{}, nil)
		if _, err := engine.Recompute(ctx, ""); !errors.Is(err, models.ErrEmptyUserID) {
			t.Errorf("Recompute(\"\") error = %v", err)
		}
		if _, err := engine.Recommendations(ctx, ""); !errors.Is(err, models.ErrEmptyUserID) {
			t.Errorf("Recommendations(\"\") error = %v", err)
		}
	})

	t.Run("store error", func(t *testing.T) {
		storeErr := errors.New("database is locked")
		engine := newTestEngine(t, &mockTrackSource{byUserErr: storeErr}, nil)
		if _, err := engine.Recompute(ctx, "alice"); !errors.Is(err, storeErr) {
			t.Errorf("Recompute() error = %v, want wrapped store error", err)
		}
		if engine.Registry().Get("alice") != nil {
			t.Error("failed recompute must not publish a snapshot")
		}
	})

	t.Run("inconsistent stored dimensions", func(t *testing.T) {
		source := &mockTrackSource{}
		source.add(t, "alice", "alice/x.mp3", 1, 0)
		source.add(t, "bob", "bob/y.mp3", 1, 0, 0)

		engine := newTestEngine(t, source, nil)
		if _, err := engine.Recompute(ctx, "alice"); !errors.Is(err, similarity.ErrDimensionMismatch) {
			t.Errorf("Recompute() error = %v, want ErrDimensionMismatch", err)
		}
	})

	t.Run("configured dimension", func(t *testing.T) {
		source := &mockTrackSource{}
		source.add(t, "alice", "alice/x.mp3", 1, 0)

		cfg := DefaultConfig()
		cfg.Dimension = 32
		engine := newTestEngine(t, source, cfg)
		if _, err := engine.Recompute(ctx, "alice"); !errors.Is(err, similarity.ErrDimensionMismatch) {
			t.Errorf("Recompute() error = %v, want ErrDimensionMismatch", err)
		}
	})
}

func TestEngine_StaleRecomputeDoesNotOverwrite(t *testing.T) {
	source := &mockTrackSource{}
	source.add(t, "alice", "alice/x.mp3", 1, 0)
	engine := newTestEngine(t, source, nil)

	stale, err := engine.aggregator.Aggregate(context.Background(), "alice", nil, nil)
	if err != nil {
		t.Fatalf("Aggregate() error: %v", err)
	}

	fresh, err := engine.Recompute(context.Background(), "alice")
	if err != nil {
		t.Fatalf("Recompute() error: %v", err)
	}

	stale.Sequence = fresh.Sequence - 1
	if engine.Registry().Publish(stale) {
		t.Error("Publish() accepted a snapshot computed from older inputs")
	}
	if got := engine.Registry().Get("alice"); got != fresh {
		t.Error("registry lost the fresh snapshot")
	}
}

func TestEngine_ConcurrentQueries(t *testing.T) {
	source := &mockTrackSource{}
	for i := 0; i < 8; i++ {
		source.add(t, "alice", "alice/"+string(rune('a'+i)), float64(i), 1, 0)
		source.add(t, "bob", "bob/"+string(rune('a'+i)), 1, float64(i), 1)
	}
	engine := newTestEngine(t, source, nil)

	var wg sync.WaitGroup
	errs := make(chan error, 32)
	for i := 0; i < 16; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			if _, err := engine.Recommendations(context.Background(), "alice"); err != nil {
				errs <- err
			}
		}()
		go func() {
			defer wg.Done()
			if _, err := engine.Recompute(context.Background(), "bob"); err != nil {
				errs <- err
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Errorf("concurrent call error: %v", err)
	}
}

func TestEngine_Invalidate(t *testing.T) {
	source := &mockTrackSource{}
	source.add(t, "alice", "alice/x.mp3", 1, 0)
	engine := newTestEngine(t, source, nil)

	if _, err := engine.Recompute(context.Background(), "alice"); err != nil {
		t.Fatalf("Recompute() error: %v", err)
	}
	engine.Invalidate("alice")
	if engine.Registry().Get("alice") != nil {
		t.Error("snapshot still present after Invalidate")
	}
}
