// Cadence - Content-Based Audio Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cadence

package services

import (
	"context"
	"errors"
	"net/http"
	"sync/atomic"
	"testing"
	"time"

	"github.com/thejerf/suture/v4"
)

var _ suture.Service = (*HTTPServerService)(nil)

// mockHTTPServer blocks in ListenAndServe until Shutdown unless listenErr is set.
type mockHTTPServer struct {
	listenErr   error
	shutdownErr error
	listens     atomic.Int32
	shutdowns   atomic.Int32
	started     chan struct{}
	stopCh      chan struct{}
}

func newMockHTTPServer() *mockHTTPServer {
	return &mockHTTPServer{
		started: make(chan struct{}, 1),
		stopCh:  make(chan struct{}),
	}
}

func (m *mockHTTPServer) ListenAndServe() error {
	m.listens.Add(1)
	select {
	case m.started <- struct{}{}:
	default:
	}
	if m.listenErr != nil {
		return m.listenErr
	}
	<-m.stopCh
	return http.ErrServerClosed
}

func (m *mockHTTPServer) Shutdown(context.Context) error {
	if m.shutdowns.Add(1) == 1 {
		close(m.stopCh)
	}
	return m.shutdownErr
}

func TestNewHTTPServerService_DefaultTimeout(t *testing.T) {
	t.Parallel()

	for _, timeout := range []time.Duration{0, -5 * time.Second} {
		if svc := NewHTTPServerService(newMockHTTPServer(), timeout); svc.shutdownTimeout != 10*time.Second {
			t.Errorf("timeout %v -> %v, want 10s", timeout, svc.shutdownTimeout)
		}
	}
	if got := NewHTTPServerService(newMockHTTPServer(), time.Second).String(); got != "http-server" {
		t.Errorf("String() = %q", got)
	}
}

func TestHTTPServerService_Serve(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		listenErr   error
		shutdownErr error
		cancel      bool
		wantErr     error
	}{
		{name: "graceful shutdown", cancel: true, wantErr: context.Canceled},
		{name: "bind failure", listenErr: errors.New("bind: address already in use")},
		{name: "shutdown failure", cancel: true, shutdownErr: errors.New("shutdown timeout")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			server := newMockHTTPServer()
			server.listenErr = tt.listenErr
			server.shutdownErr = tt.shutdownErr
			svc := NewHTTPServerService(server, time.Second)

			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()
			errCh := make(chan error, 1)
			go func() { errCh <- svc.Serve(ctx) }()

			<-server.started
			if tt.cancel {
				cancel()
			}

			var err error
			select {
			case err = <-errCh:
			case <-time.After(2 * time.Second):
				t.Fatal("Serve did not return")
			}

			want := tt.wantErr
			switch {
			case tt.listenErr != nil:
				want = tt.listenErr
			case tt.shutdownErr != nil:
				want = tt.shutdownErr
			}
			if !errors.Is(err, want) {
				t.Errorf("Serve() error = %v, want %v", err, want)
			}
			if tt.cancel && server.shutdowns.Load() != 1 {
				t.Errorf("Shutdown calls = %d, want 1", server.shutdowns.Load())
			}
		})
	}
}
