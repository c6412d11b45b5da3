// Cadence - Content-Based Audio Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cadence

package store

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"

	"github.com/rs/zerolog"

	"github.com/tomtom215/cadence/internal/models"
)

// openTestStores opens every embedded backend in a temp directory.
func openTestStores(t *testing.T) map[string]*SQLStore {
	t.Helper()
	dir := t.TempDir()

	stores := make(map[string]*SQLStore)
	for _, backend := range []string{BackendDuckDB, BackendSQLite} {
		cfg := DefaultConfig()
		cfg.Backend = backend
		cfg.Path = filepath.Join(dir, "tracks."+backend)
		cfg.Threads = 1
		cfg.MaxMemory = ""

		s, err := Open(cfg, zerolog.Nop())
		if err != nil {
			t.Fatalf("Open(%s) error: %v", backend, err)
		}
		t.Cleanup(func() { _ = s.Close() })
		stores[backend] = s
	}
	return stores
}

func forEachBackend(t *testing.T, fn func(t *testing.T, s *SQLStore)) {
	t.Helper()
	for name, s := range openTestStores(t) {
		t.Run(name, func(t *testing.T) {
			fn(t, s)
		})
	}
}

func TestUpsertTrack_CreatesTrack(t *testing.T) {
	forEachBackend(t, func(t *testing.T, s *SQLStore) {
		ctx := context.Background()
		vec := models.MustFeatureVector(0.5, -1.25, 3)

		track, created, err := s.UpsertTrack(ctx, "alice", "alice/a.mp3", vec)
		if err != nil {
			t.Fatalf("UpsertTrack() error: %v", err)
		}
		if !created {
			t.Error("first upsert should report created")
		}
		if track.ID <= 0 || track.UserID != "alice" || track.TrackPath != "alice/a.mp3" {
			t.Errorf("stored track = %+v", track)
		}
		if track.CreatedAt.IsZero() {
			t.Error("CreatedAt not set")
		}
		for i := 0; i < vec.Dim(); i++ {
			if track.Vector.At(i) != vec.At(i) {
				t.Errorf("component %d = %v, want %v", i, track.Vector.At(i), vec.At(i))
			}
		}
	})
}

func TestUpsertTrack_Idempotent(t *testing.T) {
	forEachBackend(t, func(t *testing.T, s *SQLStore) {
		ctx := context.Background()

		first, _, err := s.UpsertTrack(ctx, "alice", "alice/a.mp3", models.MustFeatureVector(1, 0))
		if err != nil {
			t.Fatalf("UpsertTrack() error: %v", err)
		}

		// Replay with the same key keeps the original row, even if the vector differs.
		again, created, err := s.UpsertTrack(ctx, "alice", "alice/a.mp3", models.MustFeatureVector(0, 1))
		if err != nil {
			t.Fatalf("replayed UpsertTrack() error: %v", err)
		}
		if created {
			t.Error("replay should not report created")
		}
		if again.ID != first.ID {
			t.Errorf("replay id = %d, want %d", again.ID, first.ID)
		}
		if again.Vector.At(0) != 1 || again.Vector.At(1) != 0 {
			t.Errorf("replay vector = %v, want original", again.Vector.Values())
		}

		tracks, err := s.TracksByUser(ctx, "alice")
		if err != nil {
			t.Fatalf("TracksByUser() error: %v", err)
		}
		if len(tracks) != 1 {
			t.Errorf("tracks after replay = %d, want 1", len(tracks))
		}

		stats, err := s.Stats(ctx)
		if err != nil {
			t.Fatalf("Stats() error: %v", err)
		}
		if stats.Users != 1 || stats.Tracks != 1 {
			t.Errorf("Stats() = %+v, want 1 user and 1 track", stats)
		}
	})
}

func TestTracksByUser_AndExcludingUser(t *testing.T) {
	forEachBackend(t, func(t *testing.T, s *SQLStore) {
		ctx := context.Background()
		inserts := []struct{ user, path string }{
			{"alice", "alice/1.mp3"},
			{"bob", "bob/1.mp3"},
			{"alice", "alice/2.mp3"},
			{"carol", "carol/1.mp3"},
		}
		for i, in := range inserts {
			if _, _, err := s.UpsertTrack(ctx, in.user, in.path, models.MustFeatureVector(float64(i), 1)); err != nil {
				t.Fatalf("UpsertTrack(%s) error: %v", in.path, err)
			}
		}

		mine, err := s.TracksByUser(ctx, "alice")
		if err != nil {
			t.Fatalf("TracksByUser() error: %v", err)
		}
		if len(mine) != 2 || mine[0].TrackPath != "alice/1.mp3" || mine[1].TrackPath != "alice/2.mp3" {
			t.Errorf("TracksByUser(alice) = %v", paths(mine))
		}

		others, err := s.TracksExcludingUser(ctx, "alice")
		if err != nil {
			t.Fatalf("TracksExcludingUser() error: %v", err)
		}
		if len(others) != 2 || others[0].TrackPath != "bob/1.mp3" || others[1].TrackPath != "carol/1.mp3" {
			t.Errorf("TracksExcludingUser(alice) = %v", paths(others))
		}

		none, err := s.TracksByUser(ctx, "dave")
		if err != nil {
			t.Fatalf("TracksByUser(dave) error: %v", err)
		}
		if len(none) != 0 {
			t.Errorf("TracksByUser(dave) = %v, want empty", paths(none))
		}
	})
}

func TestUpsertTrack_MaintainsUsers(t *testing.T) {
	forEachBackend(t, func(t *testing.T, s *SQLStore) {
		ctx := context.Background()
		for _, tc := range []struct{ user, path string }{
			{"bob", "bob/a.mp3"},
			{"bob", "bob/b.mp3"},
			{"bob", "bob/a.mp3"},
			{"alice", "alice/a.mp3"},
		} {
			if _, _, err := s.UpsertTrack(ctx, tc.user, tc.path, models.MustFeatureVector(1, 0, 0)); err != nil {
				t.Fatalf("UpsertTrack(%s, %s) error: %v", tc.user, tc.path, err)
			}
		}

		stats, err := s.Stats(ctx)
		if err != nil {
			t.Fatalf("Stats() error: %v", err)
		}
		if stats.Users != 2 || stats.Tracks != 3 {
			t.Errorf("Stats() = %+v, want 2 users and 3 tracks", stats)
		}
	})
}

func TestUpsertTrack_InvalidInput(t *testing.T) {
	forEachBackend(t, func(t *testing.T, s *SQLStore) {
		ctx := context.Background()
		tests := []struct {
			name string
			user string
			path string
			vec  models.FeatureVector
		}{
			{name: "empty user", user: "", path: "a.mp3", vec: models.MustFeatureVector(1)},
			{name: "empty path", user: "alice", path: "", vec: models.MustFeatureVector(1)},
			{name: "empty vector", user: "alice", path: "a.mp3", vec: models.FeatureVector{}},
		}
		for _, tt := range tests {
			_, _, err := s.UpsertTrack(ctx, tt.user, tt.path, tt.vec)
			if !errors.Is(err, ErrInvalidInput) {
				t.Errorf("%s: error = %v, want ErrInvalidInput", tt.name, err)
			}
			if IsTransient(err) {
				t.Errorf("%s: invalid input must not be transient", tt.name)
			}
		}
	})
}

func TestUpsertTrack_ConcurrentReplays(t *testing.T) {
	forEachBackend(t, func(t *testing.T, s *SQLStore) {
		ctx := context.Background()

		var wg sync.WaitGroup
		ids := make([]int64, 8)
		errs := make([]error, 8)
		for i := range ids {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				// Lock contention is a transient StoreError; retry like the coordinator would.
				for attempt := 0; attempt < 20; attempt++ {
					track, _, err := s.UpsertTrack(ctx, "alice", "alice/same.mp3", models.MustFeatureVector(1, 2))
					errs[i] = err
					if err == nil {
						ids[i] = track.ID
						return
					}
					if !IsTransient(err) {
						return
					}
				}
			}(i)
		}
		wg.Wait()

		for i, err := range errs {
			if err != nil {
				t.Fatalf("writer %d error: %v", i, err)
			}
			if ids[i] != ids[0] {
				t.Errorf("writer %d got id %d, want %d", i, ids[i], ids[0])
			}
		}
		tracks, err := s.TracksByUser(ctx, "alice")
		if err != nil {
			t.Fatalf("TracksByUser() error: %v", err)
		}
		if len(tracks) != 1 {
			t.Errorf("tracks = %d, want 1", len(tracks))
		}
	})
}

func TestClosedStore(t *testing.T) {
	forEachBackend(t, func(t *testing.T, s *SQLStore) {
		if err := s.Close(); err != nil {
			t.Fatalf("Close() error: %v", err)
		}
		if err := s.Close(); err != nil {
			t.Errorf("second Close() error: %v", err)
		}

		_, err := s.TracksByUser(context.Background(), "alice")
		if !errors.Is(err, ErrClosed) {
			t.Errorf("TracksByUser() after Close error = %v, want ErrClosed", err)
		}
		var se *StoreError
		if !errors.As(err, &se) || se.Op != "tracks_by_user" || se.Backend != s.Backend() {
			t.Errorf("StoreError = %+v", se)
		}
		if IsTransient(err) {
			t.Error("closed store errors must not be transient")
		}
	})
}

func TestReopenKeepsData(t *testing.T) {
	dir := t.TempDir()
	for _, backend := range []string{BackendDuckDB, BackendSQLite} {
		t.Run(backend, func(t *testing.T) {
			cfg := DefaultConfig()
			cfg.Backend = backend
			cfg.Path = filepath.Join(dir, "reopen."+backend)
			cfg.MaxMemory = ""

			s, err := Open(cfg, zerolog.Nop())
			if err != nil {
				t.Fatalf("Open() error: %v", err)
			}
			first, _, err := s.UpsertTrack(context.Background(), "alice", "a.mp3", models.MustFeatureVector(1, 2, 3))
			if err != nil {
				t.Fatalf("UpsertTrack() error: %v", err)
			}
			if err := s.Close(); err != nil {
				t.Fatalf("Close() error: %v", err)
			}

			s, err = Open(cfg, zerolog.Nop())
			if err != nil {
				t.Fatalf("reopen error: %v", err)
			}
			defer func() { _ = s.Close() }()

			again, created, err := s.UpsertTrack(context.Background(), "alice", "a.mp3", models.MustFeatureVector(9, 9, 9))
			if err != nil {
				t.Fatalf("UpsertTrack() after reopen error: %v", err)
			}
			if created || again.ID != first.ID || again.Vector.At(2) != 3 {
				t.Errorf("after reopen got %+v (created=%v), want original track %d", again, created, first.ID)
			}
		})
	}
}

func TestOpen_UnknownBackend(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Backend = "mongodb"
	if _, err := Open(cfg, zerolog.Nop()); err == nil {
		t.Error("Open() expected error for unknown backend")
	}
}

func TestOpenPostgres_RequiresSettings(t *testing.T) {
	if _, err := OpenPostgres(Config{Dimension: 32}, zerolog.Nop()); err == nil {
		t.Error("expected error without DSN")
	}
	if _, err := OpenPostgres(Config{DSN: "postgres://localhost/cadence"}, zerolog.Nop()); err == nil {
		t.Error("expected error without dimension")
	}
}

func paths(tracks []models.Track) []string {
	out := make([]string, len(tracks))
	for i, tr := range tracks {
		out[i] = fmt.Sprintf("%d:%s", tr.ID, tr.TrackPath)
	}
	return out
}
