// Cadence - Content-Based Audio Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cadence

package store

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/tomtom215/cadence/internal/models"
)

func TestIsTransient(t *testing.T) {
	wrap := func(err error) error {
		return &StoreError{Backend: "test", Op: "op", Err: err}
	}

	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "nil", err: nil, want: false},
		{name: "plain error", err: errors.New("database is locked"), want: false},
		{name: "locked", err: wrap(errors.New("database is locked (5) (SQLITE_BUSY)")), want: true},
		{name: "transaction conflict", err: wrap(errors.New("TransactionContext Error: Transaction conflict")), want: true},
		{name: "connection refused", err: wrap(errors.New("dial tcp: connection refused")), want: true},
		{name: "deadline", err: wrap(context.DeadlineExceeded), want: true},
		{name: "wrapped twice", err: fmt.Errorf("persist: %w", wrap(errors.New("broken pipe"))), want: true},
		{name: "canceled", err: wrap(context.Canceled), want: false},
		{name: "closed store", err: wrap(ErrClosed), want: false},
		{name: "closed pool", err: wrap(errors.New("sql: database is closed")), want: false},
		{name: "invalid input", err: wrap(ErrInvalidInput), want: false},
		{name: "dimension mismatch", err: wrap(&models.DimensionMismatchError{Want: 32, Got: 3}), want: false},
		{name: "missing table", err: wrap(errors.New("Catalog Error: Table with name tracks does not exist")), want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsTransient(tt.err); got != tt.want {
				t.Errorf("IsTransient(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestStoreError_Kind(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{context.DeadlineExceeded, "timeout"},
		{context.Canceled, "canceled"},
		{ErrClosed, "closed"},
		{ErrInvalidInput, "invalid_input"},
		{errors.New("connection reset by peer"), "connection"},
		{errors.New("database is locked"), "contention"},
		{errors.New("syntax error at or near"), "schema"},
		{errors.New("disk full"), "other"},
	}

	for _, tt := range tests {
		se := &StoreError{Backend: "test", Op: "op", Err: tt.err}
		if got := se.Kind(); got != tt.want {
			t.Errorf("Kind(%v) = %q, want %q", tt.err, got, tt.want)
		}
	}
}

func TestStoreError_Message(t *testing.T) {
	err := &StoreError{Backend: "duckdb", Op: "upsert_track", Err: errors.New("boom")}
	if got := err.Error(); got != "duckdb upsert_track: boom" {
		t.Errorf("Error() = %q", got)
	}
	if !errors.Is(err, err.Err) {
		t.Error("StoreError should unwrap to its cause")
	}
}

func TestPGVectorCodec(t *testing.T) {
	vec := models.MustFeatureVector(0.5, -2, 3.25)

	encoded, err := encodePGVector(vec)
	if err != nil {
		t.Fatalf("encodePGVector() error: %v", err)
	}
	if encoded == nil {
		t.Fatal("encodePGVector() returned nil")
	}

	decoded, err := decodePGVector([]byte("[0.5,-2,3.25]"))
	if err != nil {
		t.Fatalf("decodePGVector() error: %v", err)
	}
	for i := 0; i < vec.Dim(); i++ {
		if decoded.At(i) != vec.At(i) {
			t.Errorf("component %d = %v, want %v", i, decoded.At(i), vec.At(i))
		}
	}

	if _, err := decodePGVector([]byte("not a vector")); !errors.Is(err, models.ErrInvalidEncoding) {
		t.Errorf("decodePGVector(garbage) error = %v, want ErrInvalidEncoding", err)
	}
}
