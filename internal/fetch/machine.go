// Neonblog - Content publishing platform
// Copyright 2026 The Neonblog Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/neonblog/neonblog

// Package fetch implements the data-fetch state machine behind every
// page load: Idle -> Loading -> Ready or Failed, with monotonic request
// tokens so that only the most recent load may publish its result.
package fetch

import (
	"context"
	"errors"
	"sync"

	"github.com/neonblog/neonblog/internal/logging"
	"github.com/neonblog/neonblog/internal/metrics"
)

// State is the lifecycle phase of a machine.
type State int

const (
	StateIdle State = iota
	StateLoading
	StateReady
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateLoading:
		return "loading"
	case StateReady:
		return "ready"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// ErrClosed is returned by Load and Retry after Close.
var ErrClosed = errors.New("fetch: machine closed")

// errNothingToRetry is returned by Retry before any Load.
var errNothingToRetry = errors.New("fetch: nothing to retry")

// LoadFunc produces the value for one load attempt.
type LoadFunc[T any] func(ctx context.Context) (T, error)

// Snapshot is a point-in-time copy of a machine's observable state.
// Value is only meaningful in StateReady, Err only in StateFailed.
type Snapshot[T any] struct {
	State State
	Value T
	Err   error
}

// Machine runs loads and publishes at most one outcome per attempt.
// Each Load claims a fresh token; a completion whose token is no longer
// current is discarded, so a slow early response can never overwrite a
// newer one. After Close every in-flight completion is dropped.
type Machine[T any] struct {
	mu      sync.Mutex
	state   State
	value   T
	err     error
	token   uint64
	closed  bool
	lastFn  LoadFunc[T]
	settled chan struct{}
}

// New returns a machine in StateIdle.
func New[T any]() *Machine[T] {
	return &Machine[T]{settled: make(chan struct{})}
}

// Load starts an attempt: the machine enters StateLoading and fn runs
// on its own goroutine. When fn returns, the result is published only
// if no newer Load has started and the machine is still open.
func (m *Machine[T]) Load(ctx context.Context, fn LoadFunc[T]) error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return ErrClosed
	}
	m.token++
	token := m.token
	m.state = StateLoading
	m.lastFn = fn
	m.mu.Unlock()

	go m.run(ctx, token, fn)
	return nil
}

// Retry re-runs the most recent load function. It follows the same
// token discipline as Load, so a retry supersedes any attempt still in
// flight.
func (m *Machine[T]) Retry(ctx context.Context) error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return ErrClosed
	}
	fn := m.lastFn
	if fn == nil {
		m.mu.Unlock()
		return errNothingToRetry
	}
	m.token++
	token := m.token
	m.state = StateLoading
	m.mu.Unlock()

	go m.run(ctx, token, fn)
	return nil
}

func (m *Machine[T]) run(ctx context.Context, token uint64, fn LoadFunc[T]) {
	value, err := fn(ctx)

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed || token != m.token {
		metrics.FetchResultsDiscarded.Inc()
		logging.Ctx(ctx).Debug().
			Uint64("token", token).
			Uint64("current", m.token).
			Bool("closed", m.closed).
			Msg("fetch result discarded")
		return
	}

	if err != nil {
		var zero T
		m.state = StateFailed
		m.value = zero
		m.err = err
		metrics.FetchResults.WithLabelValues("failed").Inc()
	} else {
		m.state = StateReady
		m.value = value
		m.err = nil
		metrics.FetchResults.WithLabelValues("ready").Inc()
	}

	close(m.settled)
	m.settled = make(chan struct{})
}

// Close permanently discards any in-flight result. Further Load and
// Retry calls fail with ErrClosed. Close is idempotent.
func (m *Machine[T]) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return
	}
	m.closed = true
	close(m.settled)
}

// Snapshot returns the current observable state.
func (m *Machine[T]) Snapshot() Snapshot[T] {
	m.mu.Lock()
	defer m.mu.Unlock()
	return Snapshot[T]{State: m.state, Value: m.value, Err: m.err}
}

// Wait blocks until the machine settles out of StateLoading (or was
// never loading), then returns a snapshot. It unblocks early when ctx
// is done or the machine closes.
func (m *Machine[T]) Wait(ctx context.Context) (Snapshot[T], error) {
	for {
		m.mu.Lock()
		if m.closed {
			snap := Snapshot[T]{State: m.state, Value: m.value, Err: m.err}
			m.mu.Unlock()
			return snap, ErrClosed
		}
		if m.state != StateLoading {
			snap := Snapshot[T]{State: m.state, Value: m.value, Err: m.err}
			m.mu.Unlock()
			return snap, nil
		}
		settled := m.settled
		m.mu.Unlock()

		select {
		case <-settled:
		case <-ctx.Done():
			return Snapshot[T]{State: StateLoading}, ctx.Err()
		}
	}
}

// Run is the common synchronous path: Load then Wait.
func (m *Machine[T]) Run(ctx context.Context, fn LoadFunc[T]) (Snapshot[T], error) {
	if err := m.Load(ctx, fn); err != nil {
		return Snapshot[T]{}, err
	}
	return m.Wait(ctx)
}
