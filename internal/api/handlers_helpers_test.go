// Cadence - Content-Based Audio Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cadence

package api

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestSanitizeLogValue(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want string
	}{
		{"alice", "alice"},
		{"alice\nINFO forged", "alice\\x0aINFO forged"},
		{"tab\there", "tab\\x09here"},
		{"del\x7f", "del\\x7f"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := sanitizeLogValue(tt.in); got != tt.want {
			t.Errorf("sanitizeLogValue(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestGetIntParam(t *testing.T) {
	t.Parallel()

	tests := []struct {
		query string
		want  int
	}{
		{"", 100},
		{"limit=5", 5},
		{"limit=abc", 100},
		{"limit=-1", -1},
	}
	for _, tt := range tests {
		r := httptest.NewRequest(http.MethodGet, "/api/v1/deadletters?"+tt.query, nil)
		if got := getIntParam(r, "limit", 100); got != tt.want {
			t.Errorf("getIntParam(%q) = %d, want %d", tt.query, got, tt.want)
		}
	}
}

func TestGenerateETag(t *testing.T) {
	t.Parallel()

	a := generateETag([]byte(`{"a":1}`))
	b := generateETag([]byte(`{"a":1}`))
	c := generateETag([]byte(`{"a":2}`))

	if a != b {
		t.Error("ETag should be deterministic")
	}
	if a == c {
		t.Error("different payloads should produce different ETags")
	}
	if a[0] != '"' || a[len(a)-1] != '"' {
		t.Errorf("ETag %s should be quoted", a)
	}
}

func TestValidateRequest(t *testing.T) {
	t.Parallel()

	if apiErr := validateRequest(&DeadLetterListRequest{Limit: 10}); apiErr != nil {
		t.Errorf("valid request: %+v", apiErr)
	}
	apiErr := validateRequest(&DeadLetterListRequest{Limit: 5000})
	if apiErr == nil || apiErr.Code != "VALIDATION_ERROR" {
		t.Errorf("oversized limit: %+v", apiErr)
	}
}
