// Cadence - Content-Based Audio Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cadence

//go:build integration

package ingest_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/cadence/internal/deadletter"
	"github.com/tomtom215/cadence/internal/extractor"
	"github.com/tomtom215/cadence/internal/ingest"
	"github.com/tomtom215/cadence/internal/models"
	"github.com/tomtom215/cadence/internal/recommend"
	"github.com/tomtom215/cadence/internal/store"
	"github.com/tomtom215/cadence/internal/testinfra"
)

type pipeline struct {
	extractor   *testinfra.MockExtractorServer
	tracks      *store.SQLStore
	deadLetters *deadletter.Store
	engine      *recommend.Engine
	coordinator *ingest.Coordinator
}

// newPipeline wires the real extractor client, SQLite store, BadgerDB
// dead-letter store and engine around a mock extraction service.
func newPipeline(t *testing.T) *pipeline {
	t.Helper()
	dir := t.TempDir()
	logger := zerolog.Nop()
	layout := models.FeatureLayout{MFCC: 2, Chroma: 1, Contrast: 1}

	mock := testinfra.NewMockExtractorServer(t)

	tracks, err := store.Open(store.Config{
		Backend:     store.BackendSQLite,
		Path:        filepath.Join(dir, "tracks.db"),
		Dimension:   layout.Dimension(),
		BusyTimeout: time.Second,
	}, logger)
	if err != nil {
		t.Fatalf("store.Open() error: %v", err)
	}
	t.Cleanup(func() { _ = tracks.Close() })

	dlCfg := deadletter.DefaultConfig()
	dlCfg.Path = filepath.Join(dir, "deadletter")
	dlCfg.SyncWrites = false
	deadLetters, err := deadletter.Open(dlCfg, logger)
	if err != nil {
		t.Fatalf("deadletter.Open() error: %v", err)
	}
	t.Cleanup(func() { _ = deadLetters.Close() })

	recCfg := recommend.DefaultConfig()
	recCfg.Dimension = layout.Dimension()
	engine, err := recommend.NewEngine(recCfg, tracks, logger)
	if err != nil {
		t.Fatalf("recommend.NewEngine() error: %v", err)
	}

	ext := extractor.NewBounded(
		extractor.NewHTTPClient(mock.URL(), 5*time.Second, layout),
		extractor.BoundedConfig{MaxConcurrent: 2, Dimension: layout.Dimension()},
	)

	cfg := ingest.DefaultConfig()
	cfg.ExtractTimeout = 5 * time.Second
	cfg.MaxRetries = 2
	cfg.InitialBackoff = time.Millisecond
	cfg.MaxBackoff = 5 * time.Millisecond
	cfg.JitterFraction = 0

	coordinator, err := ingest.NewCoordinator(ext, tracks, engine, deadLetters, cfg, logger)
	if err != nil {
		t.Fatalf("ingest.NewCoordinator() error: %v", err)
	}

	return &pipeline{
		extractor:   mock,
		tracks:      tracks,
		deadLetters: deadLetters,
		engine:      engine,
		coordinator: coordinator,
	}
}

func TestPipeline_EndToEnd(t *testing.T) {
	p := newPipeline(t)
	ctx := context.Background()

	p.extractor.SetFeatures("alice/a.mp3", testinfra.Features{MFCC: []float64{1, 0}, Chroma: []float64{0}, Contrast: []float64{0}})
	p.extractor.SetFeatures("bob/near.mp3", testinfra.Features{MFCC: []float64{0.9, 0.1}, Chroma: []float64{0}, Contrast: []float64{0}})
	p.extractor.SetFeatures("bob/far.mp3", testinfra.Features{MFCC: []float64{0, 1}, Chroma: []float64{0}, Contrast: []float64{0}})

	source := ingest.NewChannelSource(8)
	for _, ev := range []*models.IngestionEvent{
		models.NewIngestionEvent("bob", "bob/near.mp3"),
		models.NewIngestionEvent("bob", "bob/far.mp3"),
		models.NewIngestionEvent("alice", "alice/a.mp3"),
		models.NewIngestionEvent("alice", "alice/corrupt.mp3"),
	} {
		if err := source.Publish(ctx, ev); err != nil {
			t.Fatalf("Publish() error: %v", err)
		}
	}
	source.Close()

	if err := p.coordinator.Run(ctx, source); err != nil {
		t.Fatalf("Run() error: %v", err)
	}

	stats := p.coordinator.Stats()
	if stats.Done != 3 || stats.Dropped != 1 || stats.DeadLettered != 0 {
		t.Errorf("Stats() = %+v, want 3 done and 1 dropped", stats)
	}

	recs, err := p.engine.Recommendations(ctx, "alice")
	if err != nil {
		t.Fatalf("Recommendations() error: %v", err)
	}
	if len(recs.Entries) != 1 {
		t.Fatalf("entries = %d, want 1", len(recs.Entries))
	}
	cands := recs.Entries[0].Candidates
	if len(cands) != 2 || cands[0].Track.TrackPath != "bob/near.mp3" {
		t.Errorf("candidates = %+v, want bob/near.mp3 first", cands)
	}
	if cands[0].Score <= cands[1].Score {
		t.Errorf("scores not descending: %v, %v", cands[0].Score, cands[1].Score)
	}
}

func TestPipeline_DeadLetterAndReplay(t *testing.T) {
	p := newPipeline(t)
	ctx := context.Background()

	p.extractor.SetFeatures("carol/c.mp3", testinfra.Features{MFCC: []float64{1, 1}, Chroma: []float64{1}, Contrast: []float64{1}})
	// More failures than attempts: the event is dead-lettered.
	p.extractor.FailNext("carol/c.mp3", 10)

	out := p.coordinator.Handle(ctx, models.NewIngestionEvent("carol", "carol/c.mp3"))
	if out.Disposition != ingest.DispositionDeadLettered {
		t.Fatalf("Disposition = %v, want dead-lettered (err %v)", out.Disposition, out.Err)
	}

	entries, err := p.deadLetters.List(ctx, 10)
	if err != nil {
		t.Fatalf("List() error: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("dead letters = %d, want 1", len(entries))
	}

	// Extraction service recovered.
	p.extractor.FailNext("carol/c.mp3", 0)

	worker, err := deadletter.NewReplayWorker(p.deadLetters, p.coordinator, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewReplayWorker() error: %v", err)
	}
	if err := worker.ReplayOne(ctx, entries[0].ID); err != nil {
		t.Fatalf("ReplayOne() error: %v", err)
	}

	tracks, err := p.tracks.TracksByUser(ctx, "carol")
	if err != nil {
		t.Fatalf("TracksByUser() error: %v", err)
	}
	if len(tracks) != 1 {
		t.Errorf("tracks after replay = %d, want 1", len(tracks))
	}
	if n, err := p.deadLetters.Count(ctx); err != nil || n != 0 {
		t.Errorf("pending dead letters = %d (err %v), want 0", n, err)
	}
}
