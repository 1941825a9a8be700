// Neonblog - Content publishing platform
// Copyright 2026 The Neonblog Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/neonblog/neonblog

package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/neonblog/neonblog/internal/backend"
	"github.com/neonblog/neonblog/internal/logging"
	"github.com/neonblog/neonblog/internal/metrics"
)

// Gateway is the only path between HTTP handlers and session state.
// Current never trusts the stored session on its own: the backend
// token is re-validated on every call, so a token revoked or expired
// upstream invalidates the session immediately.
type Gateway struct {
	store   Store
	auth    backend.AuthService
	timeout time.Duration
}

// NewGateway wires a gateway over a store and an auth service.
func NewGateway(store Store, auth backend.AuthService, timeout time.Duration) *Gateway {
	if timeout <= 0 {
		timeout = 24 * time.Hour
	}
	return &Gateway{store: store, auth: auth, timeout: timeout}
}

// SignIn authenticates the credentials and creates a session. Invalid
// credentials surface as backend.ErrInvalidCredentials.
func (g *Gateway) SignIn(ctx context.Context, email, password string) (*Session, error) {
	identity, token, err := g.auth.SignIn(ctx, email, password)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	session := &Session{
		ID:          newSessionID(),
		UserID:      identity.ID,
		Email:       identity.Email,
		AccessToken: token,
		CreatedAt:   now,
		ExpiresAt:   now.Add(g.timeout),
	}
	if err := g.store.Create(ctx, session); err != nil {
		return nil, fmt.Errorf("store session: %w", err)
	}

	metrics.SessionsActive.Inc()
	logging.Ctx(ctx).Info().
		Str("user_id", identity.ID).
		Msg("session created")
	return session, nil
}

// Current resolves a session ID to a live session. The backend token
// is verified on every call; sessions whose token no longer validates
// are deleted and reported as ErrNotFound.
func (g *Gateway) Current(ctx context.Context, id string) (*Session, error) {
	if id == "" {
		return nil, ErrNotFound
	}

	session, err := g.store.Get(ctx, id)
	if errors.Is(err, ErrExpired) {
		_ = g.store.Delete(ctx, id)
		metrics.SessionsActive.Dec()
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	if _, err := g.auth.CurrentUser(ctx, session.AccessToken); err != nil {
		if errors.Is(err, backend.ErrInvalidToken) {
			logging.Ctx(ctx).Info().
				Str("user_id", session.UserID).
				Msg("session token no longer valid, dropping session")
			_ = g.store.Delete(ctx, id)
			metrics.SessionsActive.Dec()
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("validate session token: %w", err)
	}
	return session, nil
}

// SignOut deletes the session. Unknown IDs are a no-op.
func (g *Gateway) SignOut(ctx context.Context, id string) error {
	if id == "" {
		return nil
	}
	if err := g.store.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	metrics.SessionsActive.Dec()
	return nil
}
