// Neonblog - Content publishing platform
// Copyright 2026 The Neonblog Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/neonblog/neonblog

package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/neonblog/neonblog/internal/backend"
)

// fakeAuth is an AuthService whose issued tokens can be revoked
// mid-test.
type fakeAuth struct {
	mu      sync.Mutex
	email   string
	pass    string
	revoked map[string]bool
	calls   int
}

func newFakeAuth(email, pass string) *fakeAuth {
	return &fakeAuth{email: email, pass: pass, revoked: make(map[string]bool)}
}

func (f *fakeAuth) SignIn(ctx context.Context, email, password string) (*backend.Identity, string, error) {
	if email != f.email || password != f.pass {
		return nil, "", backend.ErrInvalidCredentials
	}
	return &backend.Identity{ID: "u1", Email: email}, "tok-valid", nil
}

func (f *fakeAuth) CurrentUser(ctx context.Context, accessToken string) (*backend.Identity, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.revoked[accessToken] || accessToken != "tok-valid" {
		return nil, backend.ErrInvalidToken
	}
	return &backend.Identity{ID: "u1", Email: f.email}, nil
}

func (f *fakeAuth) revoke(token string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.revoked[token] = true
}

func (f *fakeAuth) validationCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func TestGatewaySignInAndCurrent(t *testing.T) {
	t.Parallel()

	auth := newFakeAuth("admin@example.com", "hunter22")
	g := NewGateway(NewMemoryStore(), auth, time.Hour)
	ctx := context.Background()

	session, err := g.SignIn(ctx, "admin@example.com", "hunter22")
	if err != nil {
		t.Fatalf("SignIn() error: %v", err)
	}
	if session.ID == "" || session.UserID != "u1" {
		t.Errorf("session = %+v", session)
	}

	current, err := g.Current(ctx, session.ID)
	if err != nil {
		t.Fatalf("Current() error: %v", err)
	}
	if current.UserID != "u1" {
		t.Errorf("Current() = %+v", current)
	}
}

func TestGatewaySignInBadCredentials(t *testing.T) {
	t.Parallel()

	g := NewGateway(NewMemoryStore(), newFakeAuth("admin@example.com", "hunter22"), time.Hour)

	if _, err := g.SignIn(context.Background(), "admin@example.com", "wrong"); !errors.Is(err, backend.ErrInvalidCredentials) {
		t.Errorf("SignIn() = %v, want ErrInvalidCredentials", err)
	}
}

func TestGatewayRevalidatesEveryCall(t *testing.T) {
	t.Parallel()

	auth := newFakeAuth("admin@example.com", "hunter22")
	g := NewGateway(NewMemoryStore(), auth, time.Hour)
	ctx := context.Background()

	session, err := g.SignIn(ctx, "admin@example.com", "hunter22")
	if err != nil {
		t.Fatalf("SignIn() error: %v", err)
	}

	for i := 0; i < 3; i++ {
		if _, err := g.Current(ctx, session.ID); err != nil {
			t.Fatalf("Current() #%d error: %v", i, err)
		}
	}
	if got := auth.validationCalls(); got != 3 {
		t.Errorf("token validated %d times, want 3 (no caching)", got)
	}
}

func TestGatewayDropsSessionOnRevokedToken(t *testing.T) {
	t.Parallel()

	auth := newFakeAuth("admin@example.com", "hunter22")
	store := NewMemoryStore()
	g := NewGateway(store, auth, time.Hour)
	ctx := context.Background()

	session, err := g.SignIn(ctx, "admin@example.com", "hunter22")
	if err != nil {
		t.Fatalf("SignIn() error: %v", err)
	}

	auth.revoke("tok-valid")

	if _, err := g.Current(ctx, session.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("Current() with revoked token = %v, want ErrNotFound", err)
	}
	// The stored session is gone, not just rejected.
	if _, err := store.Get(ctx, session.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("store still holds revoked session: %v", err)
	}
}

func TestGatewayExpiredSessionBecomesNotFound(t *testing.T) {
	t.Parallel()

	auth := newFakeAuth("admin@example.com", "hunter22")
	store := NewMemoryStore()
	g := NewGateway(store, auth, time.Hour)
	ctx := context.Background()

	expired := testSession("old", -time.Minute)
	expired.AccessToken = "tok-valid"
	if err := store.Create(ctx, expired); err != nil {
		t.Fatalf("Create() error: %v", err)
	}

	if _, err := g.Current(ctx, "old"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Current() on expired session = %v, want ErrNotFound", err)
	}
}

func TestGatewaySignOut(t *testing.T) {
	t.Parallel()

	auth := newFakeAuth("admin@example.com", "hunter22")
	g := NewGateway(NewMemoryStore(), auth, time.Hour)
	ctx := context.Background()

	session, err := g.SignIn(ctx, "admin@example.com", "hunter22")
	if err != nil {
		t.Fatalf("SignIn() error: %v", err)
	}
	if err := g.SignOut(ctx, session.ID); err != nil {
		t.Fatalf("SignOut() error: %v", err)
	}
	if _, err := g.Current(ctx, session.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("Current() after SignOut = %v, want ErrNotFound", err)
	}

	if err := g.SignOut(ctx, ""); err != nil {
		t.Errorf("SignOut(empty) errored: %v", err)
	}
}

func TestGatewayEmptyID(t *testing.T) {
	t.Parallel()

	g := NewGateway(NewMemoryStore(), newFakeAuth("a@b.c", "p"), time.Hour)
	if _, err := g.Current(context.Background(), ""); !errors.Is(err, ErrNotFound) {
		t.Errorf("Current(\"\") = %v, want ErrNotFound", err)
	}
}
