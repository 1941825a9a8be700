// Neonblog - Content publishing platform
// Copyright 2026 The Neonblog Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/neonblog/neonblog

package guard

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/neonblog/neonblog/internal/backend"
	"github.com/neonblog/neonblog/internal/session"
)

const testCookie = "neonblog_session"

type staticAuth struct {
	valid map[string]bool
}

func (a *staticAuth) SignIn(ctx context.Context, email, password string) (*backend.Identity, string, error) {
	return &backend.Identity{ID: "u1", Email: email}, "tok", nil
}

func (a *staticAuth) CurrentUser(ctx context.Context, accessToken string) (*backend.Identity, error) {
	if !a.valid[accessToken] {
		return nil, backend.ErrInvalidToken
	}
	return &backend.Identity{ID: "u1", Email: "admin@example.com"}, nil
}

func newTestGuard(t *testing.T) (*Guard, *session.Gateway) {
	t.Helper()

	auth := &staticAuth{valid: map[string]bool{"tok": true}}
	gateway := session.NewGateway(session.NewMemoryStore(), auth, time.Hour)
	return New(gateway, testCookie), gateway
}

func protectedHandler(t *testing.T, sawSession **session.Session) http.Handler {
	t.Helper()

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*sawSession = SessionFromContext(r.Context())
		w.Write([]byte("admin content"))
	})
}

func TestRequireSessionRedirectsWithoutCookie(t *testing.T) {
	t.Parallel()

	g, _ := newTestGuard(t)
	var saw *session.Session
	handler := g.RequireSession(protectedHandler(t, &saw))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/admin/posts", nil))

	if rec.Code != http.StatusSeeOther {
		t.Errorf("status = %d, want 303", rec.Code)
	}
	if got := rec.Header().Get("Location"); got != LoginPath {
		t.Errorf("Location = %q, want %q", got, LoginPath)
	}
	if saw != nil {
		t.Error("protected handler ran without a session")
	}
	if body := rec.Body.String(); body != "" {
		t.Errorf("protected content leaked: %q", body)
	}
}

func TestRequireSessionRedirectsOnUnknownSession(t *testing.T) {
	t.Parallel()

	g, _ := newTestGuard(t)
	var saw *session.Session
	handler := g.RequireSession(protectedHandler(t, &saw))

	req := httptest.NewRequest(http.MethodGet, "/admin/posts", nil)
	req.AddCookie(&http.Cookie{Name: testCookie, Value: "bogus"})

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusSeeOther || rec.Header().Get("Location") != LoginPath {
		t.Errorf("got %d -> %q, want 303 -> %q", rec.Code, rec.Header().Get("Location"), LoginPath)
	}
	if saw != nil {
		t.Error("protected handler ran with an unknown session")
	}
}

func TestRequireSessionPassesLiveSession(t *testing.T) {
	t.Parallel()

	g, gateway := newTestGuard(t)
	s, err := gateway.SignIn(context.Background(), "admin@example.com", "pw")
	if err != nil {
		t.Fatalf("SignIn() error: %v", err)
	}

	var saw *session.Session
	handler := g.RequireSession(protectedHandler(t, &saw))

	req := httptest.NewRequest(http.MethodGet, "/admin/posts", nil)
	req.AddCookie(&http.Cookie{Name: testCookie, Value: s.ID})

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if saw == nil || saw.UserID != "u1" {
		t.Errorf("handler saw session %+v", saw)
	}
}

func TestRequireSessionRedirectsAfterRevocation(t *testing.T) {
	t.Parallel()

	auth := &staticAuth{valid: map[string]bool{"tok": true}}
	gateway := session.NewGateway(session.NewMemoryStore(), auth, time.Hour)
	g := New(gateway, testCookie)

	s, err := gateway.SignIn(context.Background(), "admin@example.com", "pw")
	if err != nil {
		t.Fatalf("SignIn() error: %v", err)
	}

	var saw *session.Session
	handler := g.RequireSession(protectedHandler(t, &saw))
	req := httptest.NewRequest(http.MethodGet, "/admin/posts", nil)
	req.AddCookie(&http.Cookie{Name: testCookie, Value: s.ID})

	// First request passes.
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status before revocation = %d", rec.Code)
	}

	// Revoke upstream; the very next request must bounce.
	auth.valid["tok"] = false
	saw = nil

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusSeeOther {
		t.Errorf("status after revocation = %d, want 303", rec.Code)
	}
	if saw != nil {
		t.Error("handler ran after token revocation")
	}
}

func TestSessionFromContextOutsideGuard(t *testing.T) {
	t.Parallel()

	if s := SessionFromContext(context.Background()); s != nil {
		t.Errorf("SessionFromContext() = %+v, want nil", s)
	}
}
