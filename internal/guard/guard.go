// Neonblog - Content publishing platform
// Copyright 2026 The Neonblog Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/neonblog/neonblog

// Package guard protects admin routes. Every protected request
// re-checks the session through the gateway; there is no cached
// "signed in" bit that can go stale.
package guard

import (
	"context"
	"errors"
	"net/http"

	"github.com/neonblog/neonblog/internal/fetch"
	"github.com/neonblog/neonblog/internal/logging"
	"github.com/neonblog/neonblog/internal/session"
)

// LoginPath is where unauthenticated admin requests are sent. The
// original location is intentionally not carried along.
const LoginPath = "/admin/login"

type contextKey struct{}

var sessionKey contextKey

// SessionFromContext returns the session attached by RequireSession,
// or nil outside a guarded handler.
func SessionFromContext(ctx context.Context) *session.Session {
	s, _ := ctx.Value(sessionKey).(*session.Session)
	return s
}

// ContextWithSession attaches a session for handlers under the guard.
// Exposed for tests that call guarded handlers directly.
func ContextWithSession(ctx context.Context, s *session.Session) context.Context {
	return context.WithValue(ctx, sessionKey, s)
}

// Guard gates requests on a live session.
type Guard struct {
	gateway    *session.Gateway
	cookieName string
}

// New builds a guard reading the session ID from the named cookie.
func New(gateway *session.Gateway, cookieName string) *Guard {
	return &Guard{gateway: gateway, cookieName: cookieName}
}

// RequireSession resolves the session before the handler runs. The
// check is its own fetch machine per request: absent, expired, and
// invalid sessions all end in the same 303 to the login page, and a
// gateway failure is never mistaken for "signed in".
func (g *Guard) RequireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		id := ""
		if cookie, err := r.Cookie(g.cookieName); err == nil {
			id = cookie.Value
		}

		m := fetch.New[*session.Session]()
		defer m.Close()

		snap, err := m.Run(ctx, func(ctx context.Context) (*session.Session, error) {
			return g.gateway.Current(ctx, id)
		})
		if err != nil {
			redirectToLogin(w)
			return
		}

		switch snap.State {
		case fetch.StateReady:
			next.ServeHTTP(w, r.WithContext(ContextWithSession(ctx, snap.Value)))
		case fetch.StateFailed:
			if !errors.Is(snap.Err, session.ErrNotFound) {
				logging.Ctx(ctx).Error().Err(snap.Err).Msg("session check failed")
			}
			redirectToLogin(w)
		default:
			redirectToLogin(w)
		}
	})
}

// redirectToLogin issues the 303 with an empty body; http.Redirect
// would write its default HTML body on GET requests.
func redirectToLogin(w http.ResponseWriter) {
	w.Header().Set("Location", LoginPath)
	w.WriteHeader(http.StatusSeeOther)
}
