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

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/rs/zerolog"

	"github.com/tomtom215/cadence/internal/ingest"
	"github.com/tomtom215/cadence/internal/logging"
	"github.com/tomtom215/cadence/internal/models"
)

// mockCoordinator returns a fixed disposition and records handled events.
type mockCoordinator struct {
	mu          sync.Mutex
	disposition ingest.Disposition
	events      []*models.IngestionEvent
	correlation []string
}

func (m *mockCoordinator) Handle(ctx context.Context, event *models.IngestionEvent) ingest.Outcome {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, event)
	m.correlation = append(m.correlation, logging.CorrelationIDFromContext(ctx))

	out := ingest.Outcome{EventID: event.EventID, Disposition: m.disposition, State: ingest.StateDone}
	if m.disposition != ingest.DispositionNone {
		out.State = ingest.StateFailed
		out.Err = errors.New("failed")
	}
	return out
}

func TestNewIngestHandler_RequiresCoordinator(t *testing.T) {
	t.Parallel()

	if _, err := NewIngestHandler(nil, zerolog.Nop()); err == nil {
		t.Error("expected error for nil coordinator")
	}
}

func TestIngestHandler_Handle(t *testing.T) {
	t.Parallel()

	valid := `{"user_id":"alice","track_path":"/music/a.mp3","event_id":"evt-1"}`

	tests := []struct {
		name        string
		payload     string
		disposition ingest.Disposition
		wantErr     error
		wantCalls   int
		wantParse   int64
	}{
		{"done is acked", valid, ingest.DispositionNone, nil, 1, 0},
		{"dropped is acked", valid, ingest.DispositionDropped, nil, 1, 0},
		{"dead lettered is acked", valid, ingest.DispositionDeadLettered, nil, 1, 0},
		{"requeue is nacked", valid, ingest.DispositionRequeue, ErrRequeue, 1, 0},
		{"malformed json is acked", `{"user_id":`, ingest.DispositionNone, nil, 0, 1},
		{"invalid fields reach coordinator", `{"user_id":""}`, ingest.DispositionDropped, nil, 1, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			coord := &mockCoordinator{disposition: tt.disposition}
			h, err := NewIngestHandler(coord, zerolog.Nop())
			if err != nil {
				t.Fatalf("NewIngestHandler() error: %v", err)
			}

			err = h.Handle(message.NewMessage("msg-1", []byte(tt.payload)))
			if tt.wantErr == nil && err != nil {
				t.Errorf("Handle() error = %v, want nil", err)
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Errorf("Handle() error = %v, want %v", err, tt.wantErr)
			}
			if len(coord.events) != tt.wantCalls {
				t.Errorf("coordinator calls = %d, want %d", len(coord.events), tt.wantCalls)
			}

			stats := h.Stats()
			if stats.MessagesReceived != 1 {
				t.Errorf("MessagesReceived = %d, want 1", stats.MessagesReceived)
			}
			if stats.ParseErrors != tt.wantParse {
				t.Errorf("ParseErrors = %d, want %d", stats.ParseErrors, tt.wantParse)
			}
			if stats.LastMessageTime.IsZero() {
				t.Error("LastMessageTime not set")
			}
		})
	}
}

func TestIngestHandler_EventIDFallsBackToMessageUUID(t *testing.T) {
	t.Parallel()

	coord := &mockCoordinator{}
	h, _ := NewIngestHandler(coord, zerolog.Nop())

	msg := message.NewMessage("msg-uuid", []byte(`{"user_id":"bob","track_path":"/b.flac"}`))
	if err := h.Handle(msg); err != nil {
		t.Fatalf("Handle() error: %v", err)
	}

	if got := coord.events[0].EventID; got != "msg-uuid" {
		t.Errorf("EventID = %q, want msg-uuid", got)
	}
	if got := coord.correlation[0]; got != "msg-uuid" {
		t.Errorf("correlation id = %q, want msg-uuid", got)
	}
}

func TestIngestHandler_HealthCheckDegradesOnParseErrors(t *testing.T) {
	t.Parallel()

	h, _ := NewIngestHandler(&mockCoordinator{}, zerolog.Nop())
	for i := 0; i < 150; i++ {
		_ = h.Handle(message.NewMessage("bad", []byte("not json")))
	}

	health := h.HealthCheck(context.Background())
	if !health.Healthy || !health.Degraded {
		t.Errorf("health = %+v, want healthy and degraded", health)
	}
}
