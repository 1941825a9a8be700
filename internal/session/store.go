// Neonblog - Content publishing platform
// Copyright 2026 The Neonblog Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/neonblog/neonblog

// Package session manages authenticated admin sessions. The browser
// holds only an opaque session ID; the backend access token stays
// server-side and is re-validated on every protected request.
package session

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"sync"
	"time"
)

var (
	// ErrNotFound is returned when a session is not in the store.
	ErrNotFound = errors.New("session not found")

	// ErrExpired is returned when a session exists but has expired.
	ErrExpired = errors.New("session expired")
)

// Session tracks one signed-in admin.
type Session struct {
	// ID is the opaque identifier handed to the browser.
	ID string `json:"id"`

	// UserID is the authenticated account's identifier.
	UserID string `json:"user_id"`

	// Email is the authenticated account's email.
	Email string `json:"email"`

	// AccessToken is the backend token; it never leaves the server.
	AccessToken string `json:"access_token"`

	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// IsExpired reports whether the session has passed its expiry.
func (s *Session) IsExpired() bool {
	return time.Now().After(s.ExpiresAt)
}

// newSessionID returns a cryptographically random opaque identifier.
func newSessionID() string {
	bytes := make([]byte, 32)
	if _, err := rand.Read(bytes); err != nil {
		return hex.EncodeToString([]byte(time.Now().String()))
	}
	return hex.EncodeToString(bytes)
}

// Store is the session storage backend.
type Store interface {
	// Create stores a new session.
	Create(ctx context.Context, session *Session) error

	// Get retrieves a session by ID.
	// Returns ErrNotFound if absent, ErrExpired if past expiry.
	Get(ctx context.Context, id string) (*Session, error)

	// Delete removes a session. Missing sessions are not an error.
	Delete(ctx context.Context, id string) error

	// CleanupExpired removes expired sessions, returning the count.
	CleanupExpired(ctx context.Context) (int, error)
}

// MemoryStore keeps sessions in process memory. Sessions do not
// survive a restart; pair with the badger store when they should.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[string]*Session)}
}

// Create stores a new session.
func (s *MemoryStore) Create(ctx context.Context, session *Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	copied := *session
	s.sessions[session.ID] = &copied
	return nil
}

// Get retrieves a session by ID.
func (s *MemoryStore) Get(ctx context.Context, id string) (*Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	session, ok := s.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	if session.IsExpired() {
		return nil, ErrExpired
	}

	copied := *session
	return &copied, nil
}

// Delete removes a session by ID.
func (s *MemoryStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.sessions, id)
	return nil
}

// CleanupExpired removes all expired sessions.
func (s *MemoryStore) CleanupExpired(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for id, session := range s.sessions {
		if session.IsExpired() {
			delete(s.sessions, id)
			removed++
		}
	}
	return removed, nil
}
