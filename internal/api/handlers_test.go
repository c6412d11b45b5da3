// Cadence - Content-Based Audio Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cadence

package api

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/cadence/internal/deadletter"
	"github.com/tomtom215/cadence/internal/eventprocessor"
	"github.com/tomtom215/cadence/internal/ingest"
	"github.com/tomtom215/cadence/internal/models"
	"github.com/tomtom215/cadence/internal/recommend"
)

// mockRecommender serves canned views.
type mockRecommender struct {
	recs    map[string]*models.RecommendationResult
	ranking map[string]*models.LibraryRanking
	err     error
	config  *recommend.Config
}

func (m *mockRecommender) Recommendations(_ context.Context, userID string) (*models.RecommendationResult, error) {
	if m.err != nil {
		return nil, m.err
	}
	if r, ok := m.recs[userID]; ok {
		return r, nil
	}
	return models.EmptyRecommendations(userID), nil
}

func (m *mockRecommender) LibraryRanking(_ context.Context, userID string) (*models.LibraryRanking, error) {
	if m.err != nil {
		return nil, m.err
	}
	if r, ok := m.ranking[userID]; ok {
		return r, nil
	}
	return models.EmptyLibraryRanking(userID), nil
}

func (m *mockRecommender) Config() *recommend.Config {
	if m.config != nil {
		return m.config
	}
	return recommend.DefaultConfig()
}

// mockPublisher records published events.
type mockPublisher struct {
	mu     sync.Mutex
	events []*models.IngestionEvent
	err    error
}

func (m *mockPublisher) PublishEvent(_ context.Context, event *models.IngestionEvent) error {
	if m.err != nil {
		return m.err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, event)
	return nil
}

// mockDeadLetters is an in-memory dead-letter store.
type mockDeadLetters struct {
	entries map[string]*deadletter.Entry
	err     error
}

func (m *mockDeadLetters) List(_ context.Context, limit int) ([]*deadletter.Entry, error) {
	if m.err != nil {
		return nil, m.err
	}
	out := make([]*deadletter.Entry, 0, len(m.entries))
	for _, e := range m.entries {
		out = append(out, e)
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *mockDeadLetters) Stats(_ context.Context) (deadletter.Stats, error) {
	if m.err != nil {
		return deadletter.Stats{}, m.err
	}
	return deadletter.Stats{Pending: int64(len(m.entries))}, nil
}

func (m *mockDeadLetters) Delete(_ context.Context, id string) error {
	if id == "" {
		return deadletter.ErrEmptyID
	}
	if _, ok := m.entries[id]; !ok {
		return deadletter.ErrNotFound
	}
	delete(m.entries, id)
	return nil
}

// mockReplayer resolves known ids unless failing is set.
type mockReplayer struct {
	known   map[string]bool
	failing bool
	summary deadletter.ReplaySummary
}

func (m *mockReplayer) ReplayOne(_ context.Context, id string) error {
	if !m.known[id] {
		return deadletter.ErrNotFound
	}
	if m.failing {
		return errors.New("track store unavailable")
	}
	return nil
}

func (m *mockReplayer) ReplayPending(_ context.Context) (deadletter.ReplaySummary, error) {
	return m.summary, nil
}

// mockHealth returns a fixed result.
type mockHealth struct {
	healthy bool
}

func (m *mockHealth) CheckAll(_ context.Context) eventprocessor.OverallHealth {
	status := eventprocessor.HealthStatusHealthy
	if !m.healthy {
		status = eventprocessor.HealthStatusUnhealthy
	}
	return eventprocessor.OverallHealth{
		Healthy:   m.healthy,
		Status:    status,
		Timestamp: time.Now(),
		Components: map[string]eventprocessor.ComponentHealth{
			"track_store": {Name: "track_store", Healthy: m.healthy},
		},
	}
}

// mockIngestStats returns fixed counters.
type mockIngestStats struct{}

func (mockIngestStats) Stats() ingest.Stats {
	return ingest.Stats{Handled: 3, Done: 2, DeadLettered: 1}
}

// envelope mirrors models.APIResponse with raw data for decoding.
type envelope struct {
	Status   string           `json:"status"`
	Data     json.RawMessage  `json:"data"`
	Metadata models.Metadata  `json:"metadata"`
	Error    *models.APIError `json:"error"`
}

func track(id int64, userID, path string, values ...float64) models.Track {
	return models.Track{ID: id, UserID: userID, TrackPath: path, Vector: models.MustFeatureVector(values...)}
}

func aliceRecommendations() *models.RecommendationResult {
	ref := track(1, "alice", "/music/alice/a.flac", 1, 0, 0)
	return &models.RecommendationResult{
		UserID: "alice",
		Entries: []models.TrackRecommendations{{
			Reference: ref,
			Candidates: []models.ScoredTrack{
				{Track: track(2, "bob", "/music/bob/b.flac", 0.9, 0.1, 0), Score: 0.99},
				{Track: track(3, "bob", "/music/bob/c.flac", 0, 1, 0), Score: 0},
			},
		}},
		ComputedAt: time.Now(),
	}
}

type testServer struct {
	handler     http.Handler
	recommender *mockRecommender
	publisher   *mockPublisher
	deadLetters *mockDeadLetters
	replayer    *mockReplayer
	health      *mockHealth
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	ts := &testServer{
		recommender: &mockRecommender{
			recs: map[string]*models.RecommendationResult{"alice": aliceRecommendations()},
			ranking: map[string]*models.LibraryRanking{"alice": {
				UserID:  "alice",
				Entries: []models.RankedTrack{{Track: track(1, "alice", "/music/alice/a.flac", 1, 0, 0), Score: 0.99}},
			}},
		},
		publisher: &mockPublisher{},
		deadLetters: &mockDeadLetters{entries: map[string]*deadletter.Entry{
			"dl-1": {ID: "dl-1", Event: models.IngestionEvent{UserID: "alice", TrackPath: "/music/x.flac"}, Stage: "persisting", Error: "busy"},
		}},
		replayer: &mockReplayer{known: map[string]bool{"dl-1": true}, summary: deadletter.ReplaySummary{Attempted: 1, Resolved: 1}},
		health:   &mockHealth{healthy: true},
	}

	h := NewHandler(ts.recommender, ts.publisher, ts.health)
	h.SetDeadLetters(ts.deadLetters, ts.replayer)
	h.SetIngestStats(mockIngestStats{})

	cfg := DefaultChiMiddlewareConfig()
	cfg.RateLimitDisabled = true
	ts.handler = NewRouter(h, cfg).SetupChi()
	return ts
}

func (ts *testServer) do(t *testing.T, method, target, body string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()

	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)

	var env envelope
	if rec.Body.Len() > 0 && strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
			t.Fatalf("decode response: %v (body %q)", err, rec.Body.String())
		}
	}
	return rec, env
}

func TestGetRecommendations(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name           string
		target         string
		wantStatus     int
		wantCode       string
		wantCandidates int
		wantEntries    int
	}{
		{name: "default limit", target: "/api/v1/users/alice/recommendations", wantStatus: http.StatusOK, wantEntries: 1, wantCandidates: 2},
		{name: "limit truncates candidates", target: "/api/v1/users/alice/recommendations?limit=1", wantStatus: http.StatusOK, wantEntries: 1, wantCandidates: 1},
		{name: "user without tracks is empty", target: "/api/v1/users/bob/recommendations", wantStatus: http.StatusOK, wantEntries: 0},
		{name: "non-numeric limit", target: "/api/v1/users/alice/recommendations?limit=ten", wantStatus: http.StatusBadRequest, wantCode: codeInvalidLimit},
		{name: "zero limit", target: "/api/v1/users/alice/recommendations?limit=0", wantStatus: http.StatusBadRequest, wantCode: codeInvalidLimit},
		{name: "limit above max", target: "/api/v1/users/alice/recommendations?limit=101", wantStatus: http.StatusBadRequest, wantCode: codeInvalidLimit},
		{name: "blank user", target: "/api/v1/users/%20/recommendations", wantStatus: http.StatusBadRequest, wantCode: "VALIDATION_ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			ts := newTestServer(t)
			rec, env := ts.do(t, http.MethodGet, tt.target, "")

			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d (body %s)", rec.Code, tt.wantStatus, rec.Body.String())
			}
			if tt.wantCode != "" {
				if env.Error == nil || env.Error.Code != tt.wantCode {
					t.Errorf("error = %+v, want code %s", env.Error, tt.wantCode)
				}
				return
			}

			var result models.RecommendationResult
			if err := json.Unmarshal(env.Data, &result); err != nil {
				t.Fatalf("decode data: %v", err)
			}
			if len(result.Entries) != tt.wantEntries {
				t.Fatalf("entries = %d, want %d", len(result.Entries), tt.wantEntries)
			}
			if tt.wantEntries > 0 && len(result.Entries[0].Candidates) != tt.wantCandidates {
				t.Errorf("candidates = %d, want %d", len(result.Entries[0].Candidates), tt.wantCandidates)
			}
			if env.Metadata.Count == nil || *env.Metadata.Count != tt.wantEntries {
				t.Errorf("metadata count = %v, want %d", env.Metadata.Count, tt.wantEntries)
			}
			if env.Metadata.RequestID == "" || env.Metadata.RequestID != rec.Header().Get("X-Request-ID") {
				t.Errorf("metadata request id %q should match header %q", env.Metadata.RequestID, rec.Header().Get("X-Request-ID"))
			}
		})
	}
}

func TestGetRecommendations_BestCandidateFirst(t *testing.T) {
	t.Parallel()

	ts := newTestServer(t)
	_, env := ts.do(t, http.MethodGet, "/api/v1/users/alice/recommendations?limit=1", "")

	var result models.RecommendationResult
	if err := json.Unmarshal(env.Data, &result); err != nil {
		t.Fatalf("decode data: %v", err)
	}
	if got := result.Entries[0].Candidates[0].Track.TrackPath; got != "/music/bob/b.flac" {
		t.Errorf("top candidate = %q, want /music/bob/b.flac", got)
	}
}

func TestGetRecommendations_EngineErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"deadline", context.DeadlineExceeded, http.StatusServiceUnavailable, codeUnavailable},
		{"dimension mismatch", errors.New("dimension mismatch: want 32, got 3"), http.StatusInternalServerError, codeRecommendation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			ts := newTestServer(t)
			ts.recommender.err = tt.err

			for _, path := range []string{"/api/v1/users/alice/recommendations", "/api/v1/users/alice/library-ranking"} {
				rec, env := ts.do(t, http.MethodGet, path, "")
				if rec.Code != tt.wantStatus {
					t.Errorf("%s: status = %d, want %d", path, rec.Code, tt.wantStatus)
				}
				if env.Error == nil || env.Error.Code != tt.wantCode {
					t.Errorf("%s: error = %+v, want %s", path, env.Error, tt.wantCode)
				}
			}
		})
	}
}

func TestGetLibraryRanking(t *testing.T) {
	t.Parallel()

	ts := newTestServer(t)

	rec, env := ts.do(t, http.MethodGet, "/api/v1/users/alice/library-ranking", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var ranking models.LibraryRanking
	if err := json.Unmarshal(env.Data, &ranking); err != nil {
		t.Fatalf("decode data: %v", err)
	}
	if ranking.UserID != "alice" || len(ranking.Entries) != 1 {
		t.Errorf("ranking = %+v", ranking)
	}

	rec, env = ts.do(t, http.MethodGet, "/api/v1/users/carol/library-ranking", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("empty user status = %d, want 200", rec.Code)
	}
	if !strings.Contains(string(env.Data), `"entries":[]`) {
		t.Errorf("empty ranking should be an explicit empty list, got %s", env.Data)
	}
}

func TestPostEvent(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		body       string
		wantStatus int
		wantCode   string
	}{
		{name: "valid", body: `{"user_id":"alice","track_path":"/music/a.flac"}`, wantStatus: http.StatusAccepted},
		{name: "keeps client event id", body: `{"user_id":"alice","track_path":"/music/a.flac","event_id":"evt-1"}`, wantStatus: http.StatusAccepted},
		{name: "missing track path", body: `{"user_id":"alice"}`, wantStatus: http.StatusBadRequest, wantCode: "VALIDATION_ERROR"},
		{name: "blank user", body: `{"user_id":"  ","track_path":"/music/a.flac"}`, wantStatus: http.StatusBadRequest, wantCode: "VALIDATION_ERROR"},
		{name: "malformed json", body: `{"user_id":`, wantStatus: http.StatusBadRequest, wantCode: codeInvalidBody},
		{name: "unknown field", body: `{"user_id":"alice","track_path":"/a","mood":"happy"}`, wantStatus: http.StatusBadRequest, wantCode: codeInvalidBody},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			ts := newTestServer(t)
			rec, env := ts.do(t, http.MethodPost, "/api/v1/events", tt.body)

			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d (body %s)", rec.Code, tt.wantStatus, rec.Body.String())
			}
			if tt.wantCode != "" {
				if env.Error == nil || env.Error.Code != tt.wantCode {
					t.Errorf("error = %+v, want %s", env.Error, tt.wantCode)
				}
				if len(ts.publisher.events) != 0 {
					t.Error("rejected events must not be published")
				}
				return
			}

			if len(ts.publisher.events) != 1 {
				t.Fatalf("published %d events, want 1", len(ts.publisher.events))
			}
			published := ts.publisher.events[0]
			if published.EventID == "" || published.OccurredAt.IsZero() {
				t.Errorf("event metadata not filled: %+v", published)
			}

			var accepted EventAccepted
			if err := json.Unmarshal(env.Data, &accepted); err != nil {
				t.Fatalf("decode data: %v", err)
			}
			if accepted.EventID != published.EventID {
				t.Errorf("accepted id %q != published id %q", accepted.EventID, published.EventID)
			}
		})
	}
}

func TestPostEvent_PublisherUnavailable(t *testing.T) {
	t.Parallel()

	ts := newTestServer(t)
	ts.publisher.err = errors.New("nats: no responders")

	rec, env := ts.do(t, http.MethodPost, "/api/v1/events", `{"user_id":"alice","track_path":"/a.flac"}`)
	if rec.Code != http.StatusServiceUnavailable || env.Error == nil || env.Error.Code != codePublish {
		t.Errorf("status = %d error = %+v, want 503 %s", rec.Code, env.Error, codePublish)
	}

	h := NewHandler(ts.recommender, nil, nil)
	handler := NewRouter(h, &ChiMiddlewareConfig{RateLimitDisabled: true}).SetupChi()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/events", strings.NewReader(`{"user_id":"a","track_path":"/a"}`))
	out := httptest.NewRecorder()
	handler.ServeHTTP(out, req)
	if out.Code != http.StatusServiceUnavailable {
		t.Errorf("nil publisher status = %d, want 503", out.Code)
	}
}
