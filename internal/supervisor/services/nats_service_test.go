// Cadence - Content-Based Audio Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cadence

package services

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/thejerf/suture/v4"
)

var _ suture.Service = (*NATSComponentsService)(nil)

type mockNATSComponents struct {
	running  atomic.Bool
	starts   atomic.Int32
	startErr error
}

func (m *mockNATSComponents) Start(context.Context) error {
	m.starts.Add(1)
	if m.startErr != nil {
		return m.startErr
	}
	m.running.Store(true)
	return nil
}

func (m *mockNATSComponents) Shutdown(context.Context) {
	m.running.Store(false)
}

func (m *mockNATSComponents) IsRunning() bool {
	return m.running.Load()
}

func TestNATSComponentsService_Lifecycle(t *testing.T) {
	t.Parallel()

	mock := &mockNATSComponents{}
	svc := NewNATSComponentsService(mock, time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- svc.Serve(ctx) }()

	deadline := time.Now().Add(time.Second)
	for !mock.IsRunning() && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if !mock.IsRunning() {
		t.Fatal("components not started")
	}

	cancel()
	if err := <-errCh; !errors.Is(err, context.Canceled) {
		t.Errorf("Serve() error = %v, want context.Canceled", err)
	}
	if mock.IsRunning() {
		t.Error("components still running after shutdown")
	}
	if svc.String() != "nats-components" {
		t.Errorf("String() = %q", svc.String())
	}
}

func TestNATSComponentsService_StartFailure(t *testing.T) {
	t.Parallel()

	startErr := errors.New("jetstream unavailable")
	svc := NewNATSComponentsService(&mockNATSComponents{startErr: startErr}, 0)

	if err := svc.Serve(context.Background()); !errors.Is(err, startErr) {
		t.Errorf("Serve() error = %v, want %v", err, startErr)
	}
	if svc.shutdownTimeout != 10*time.Second {
		t.Errorf("default shutdown timeout = %v", svc.shutdownTimeout)
	}
}
