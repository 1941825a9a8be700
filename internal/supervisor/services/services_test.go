// Neonblog - Content publishing platform
// Copyright 2026 The Neonblog Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/neonblog/neonblog

package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/neonblog/neonblog/internal/metrics"
	"github.com/neonblog/neonblog/internal/session"
)

// fakeServer records lifecycle calls and blocks until shut down.
type fakeServer struct {
	listenErr error
	stopped   chan struct{}
	shutdowns chan struct{}
}

func newFakeServer(listenErr error) *fakeServer {
	return &fakeServer{
		listenErr: listenErr,
		stopped:   make(chan struct{}),
		shutdowns: make(chan struct{}, 1),
	}
}

func (f *fakeServer) ListenAndServe() error {
	if f.listenErr != nil {
		return f.listenErr
	}
	<-f.stopped
	return errors.New("http: Server closed")
}

func (f *fakeServer) Shutdown(ctx context.Context) error {
	f.shutdowns <- struct{}{}
	close(f.stopped)
	return nil
}

func TestHTTPServiceGracefulShutdown(t *testing.T) {
	t.Parallel()

	srv := newFakeServer(nil)
	svc := NewHTTPService(srv, time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.Serve(ctx) }()

	// Give the server goroutine a beat, then request shutdown.
	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Serve() = %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Serve() did not return after cancel")
	}

	select {
	case <-srv.shutdowns:
	default:
		t.Error("Shutdown was never called")
	}
}

func TestHTTPServiceStartupFailure(t *testing.T) {
	t.Parallel()

	boom := errors.New("bind: address already in use")
	svc := NewHTTPService(newFakeServer(boom), time.Second)

	err := svc.Serve(context.Background())
	if err == nil || !errors.Is(err, boom) {
		t.Errorf("Serve() = %v, want wrapped bind error", err)
	}
}

func TestSessionCleanupServiceEvicts(t *testing.T) {
	t.Parallel()

	store := session.NewMemoryStore()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	expired := &session.Session{
		ID:        "old",
		ExpiresAt: time.Now().Add(-time.Minute),
	}
	if err := store.Create(ctx, expired); err != nil {
		t.Fatalf("Create() error: %v", err)
	}

	activeBefore := testutil.ToFloat64(metrics.SessionsActive)

	svc := NewSessionCleanupService(store, 20*time.Millisecond)
	done := make(chan error, 1)
	go func() { done <- svc.Serve(ctx) }()

	deadline := time.After(2 * time.Second)
	for {
		if _, err := store.Get(ctx, "old"); errors.Is(err, session.ErrNotFound) {
			break
		}
		select {
		case <-deadline:
			t.Fatal("expired session never cleaned up")
		case <-time.After(10 * time.Millisecond):
		}
	}

	cancel()
	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Errorf("Serve() = %v, want context.Canceled", err)
	}

	// The sweep accounts for the removed session in the active gauge.
	if got := testutil.ToFloat64(metrics.SessionsActive); got != activeBefore-1 {
		t.Errorf("sessions_active = %v, want %v", got, activeBefore-1)
	}
}

func TestServiceNames(t *testing.T) {
	t.Parallel()

	if got := NewHTTPService(newFakeServer(nil), 0).String(); got != "http-server" {
		t.Errorf("HTTPService.String() = %q", got)
	}
	if got := NewSessionCleanupService(session.NewMemoryStore(), 0).String(); got != "session-cleanup" {
		t.Errorf("SessionCleanupService.String() = %q", got)
	}
}
