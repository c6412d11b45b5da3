// Cadence - Content-Based Audio Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cadence

package eventprocessor

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/nats-io/nats.go/jetstream"
)

// mockStream satisfies jetstream.Stream; only the embedded config is used.
type mockStream struct {
	jetstream.Stream
	config jetstream.StreamConfig
}

// mockJetStream records stream management calls.
type mockJetStream struct {
	mu        sync.Mutex
	streams   map[string]jetstream.StreamConfig
	created   int
	updated   int
	lookupErr error
	createErr error
	updateErr error
}

func newMockJetStream() *mockJetStream {
	return &mockJetStream{streams: make(map[string]jetstream.StreamConfig)}
}

func (m *mockJetStream) Stream(_ context.Context, name string) (jetstream.Stream, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.lookupErr != nil {
		return nil, m.lookupErr
	}
	cfg, ok := m.streams[name]
	if !ok {
		return nil, jetstream.ErrStreamNotFound
	}
	return &mockStream{config: cfg}, nil
}

func (m *mockJetStream) CreateStream(_ context.Context, cfg jetstream.StreamConfig) (jetstream.Stream, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return nil, m.createErr
	}
	m.created++
	m.streams[cfg.Name] = cfg
	return &mockStream{config: cfg}, nil
}

func (m *mockJetStream) UpdateStream(_ context.Context, cfg jetstream.StreamConfig) (jetstream.Stream, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.updateErr != nil {
		return nil, m.updateErr
	}
	m.updated++
	m.streams[cfg.Name] = cfg
	return &mockStream{config: cfg}, nil
}

func TestNewStreamInitializer_Validation(t *testing.T) {
	t.Parallel()

	cfg := DefaultStreamConfig()
	tests := []struct {
		name string
		js   JetStreamContext
		cfg  *StreamConfig
	}{
		{"nil jetstream", nil, &cfg},
		{"nil config", newMockJetStream(), nil},
		{"no subjects", newMockJetStream(), &StreamConfig{Name: "TRACKS"}},
		{"no name", newMockJetStream(), &StreamConfig{Subjects: []string{"tracks.new"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if _, err := NewStreamInitializer(tt.js, tt.cfg); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestStreamInitializer_EnsureStream_CreatesThenUpdates(t *testing.T) {
	t.Parallel()

	js := newMockJetStream()
	cfg := DefaultStreamConfig()
	si, err := NewStreamInitializer(js, &cfg)
	if err != nil {
		t.Fatalf("NewStreamInitializer() error: %v", err)
	}

	ctx := context.Background()
	if _, err := si.EnsureStream(ctx); err != nil {
		t.Fatalf("EnsureStream() error: %v", err)
	}
	if js.created != 1 || js.updated != 0 {
		t.Errorf("created=%d updated=%d after first call, want 1/0", js.created, js.updated)
	}

	got := js.streams[DefaultStreamName]
	if got.Storage != jetstream.FileStorage {
		t.Errorf("Storage = %v, want FileStorage", got.Storage)
	}
	if got.Retention != jetstream.LimitsPolicy {
		t.Errorf("Retention = %v, want LimitsPolicy", got.Retention)
	}
	if got.Duplicates != 2*time.Minute {
		t.Errorf("Duplicates = %v, want 2m", got.Duplicates)
	}

	if _, err := si.EnsureStream(ctx); err != nil {
		t.Fatalf("second EnsureStream() error: %v", err)
	}
	if js.created != 1 || js.updated != 1 {
		t.Errorf("created=%d updated=%d after second call, want 1/1", js.created, js.updated)
	}
}

func TestStreamInitializer_EnsureStream_Errors(t *testing.T) {
	t.Parallel()

	boom := errors.New("boom")
	tests := []struct {
		name  string
		setup func(*mockJetStream)
	}{
		{"lookup fails", func(m *mockJetStream) { m.lookupErr = boom }},
		{"create fails", func(m *mockJetStream) { m.createErr = boom }},
		{"update fails", func(m *mockJetStream) {
			m.streams[DefaultStreamName] = jetstream.StreamConfig{Name: DefaultStreamName}
			m.updateErr = boom
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			js := newMockJetStream()
			tt.setup(js)
			cfg := DefaultStreamConfig()
			si, _ := NewStreamInitializer(js, &cfg)

			if _, err := si.EnsureStream(context.Background()); !errors.Is(err, boom) {
				t.Errorf("EnsureStream() error = %v, want wrapped boom", err)
			}
		})
	}
}

func TestStreamInitializer_HealthCheck(t *testing.T) {
	t.Parallel()

	js := newMockJetStream()
	cfg := DefaultStreamConfig()
	si, _ := NewStreamInitializer(js, &cfg)
	ctx := context.Background()

	if si.HealthCheck(ctx).Healthy {
		t.Error("missing stream should be unhealthy")
	}
	if _, err := si.EnsureStream(ctx); err != nil {
		t.Fatalf("EnsureStream() error: %v", err)
	}
	if !si.IsHealthy(ctx) || !si.HealthCheck(ctx).Healthy {
		t.Error("existing stream should be healthy")
	}
}
