// Cadence - Content-Based Audio Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cadence

//go:build integration

package testinfra

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
)

// Features is one canned extraction result.
type Features struct {
	MFCC     []float64 `json:"mfcc"`
	Chroma   []float64 `json:"chroma"`
	Contrast []float64 `json:"contrast"`
}

// MockExtractorServer serves POST /extract like the feature extraction
// service. Unknown track paths get 422, which the client reports as a
// decode error.
type MockExtractorServer struct {
	Server *httptest.Server

	mu       sync.Mutex
	features map[string]Features
	failures map[string]int
	requests []string
}

// NewMockExtractorServer starts a server that is closed when the test ends.
func NewMockExtractorServer(t *testing.T) *MockExtractorServer {
	t.Helper()

	m := &MockExtractorServer{
		features: make(map[string]Features),
		failures: make(map[string]int),
	}
	m.Server = httptest.NewServer(http.HandlerFunc(m.handle))
	t.Cleanup(m.Server.Close)
	return m
}

// URL returns the server base URL.
func (m *MockExtractorServer) URL() string {
	return m.Server.URL
}

// SetFeatures registers the result for trackPath.
func (m *MockExtractorServer) SetFeatures(trackPath string, f Features) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.features[trackPath] = f
}

// FailNext makes the next n requests for trackPath return 503.
func (m *MockExtractorServer) FailNext(trackPath string, n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures[trackPath] = n
}

// Requests returns the track paths requested so far, in order.
func (m *MockExtractorServer) Requests() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.requests))
	copy(out, m.requests)
	return out
}

func (m *MockExtractorServer) handle(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost || r.URL.Path != "/extract" {
		http.NotFound(w, r)
		return
	}

	var req struct {
		TrackPath string `json:"track_path"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	m.mu.Lock()
	m.requests = append(m.requests, req.TrackPath)
	failing := m.failures[req.TrackPath] > 0
	if failing {
		m.failures[req.TrackPath]--
	}
	f, ok := m.features[req.TrackPath]
	m.mu.Unlock()

	switch {
	case failing:
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "extractor overloaded"})
	case !ok:
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"error": "cannot decode audio"})
	default:
		writeJSON(w, http.StatusOK, f)
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
