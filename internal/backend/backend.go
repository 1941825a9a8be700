// Neonblog - Content publishing platform
// Copyright 2026 The Neonblog Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/neonblog/neonblog

// Package backend defines the data and auth collaborator interfaces the
// rest of the service is written against, plus two implementations: a
// PostgREST/GoTrue-style REST client for a hosted backend, and an
// embedded SQLite backend for development and tests.
//
// Both collaborators are injected explicitly; nothing in this package is
// a singleton. Each operation is a single independent call — there are
// no transactions spanning calls, and callers never assume partial
// success.
package backend

import (
	"context"
	"errors"
	"fmt"
)

// Row is one record as returned by the data service: column name to
// value, with embedded relations nested as Row values under their alias.
type Row = map[string]any

// Sentinel errors shared by both implementations.
var (
	// ErrNoRows is returned by SelectOne when the query matched nothing.
	ErrNoRows = errors.New("backend: no rows")

	// ErrInvalidCredentials is returned by SignIn on a bad email/password.
	ErrInvalidCredentials = errors.New("backend: invalid credentials")

	// ErrInvalidToken is returned by CurrentUser for a missing, malformed,
	// or expired access token.
	ErrInvalidToken = errors.New("backend: invalid or expired token")
)

// APIError is the error descriptor a collaborator call can return in
// place of a result payload.
type APIError struct {
	// Status is the HTTP status of the failed call, 0 for transport errors.
	Status int

	// Code is the backend's machine-readable error code, if any.
	Code string

	// Message is the backend's human-readable description.
	Message string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("backend: %s (%s, status %d)", e.Message, e.Code, e.Status)
	}
	return fmt.Sprintf("backend: %s (status %d)", e.Message, e.Status)
}

// Identity is the authenticated user identity the auth service reports.
type Identity struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// DataService queries and mutates named collections on the backend.
//
// Select returns the matching rows and, when q.ExactCount is set, the
// exact total match count; otherwise the count is -1. SelectOne expects
// exactly one matching row and returns ErrNoRows when there is none.
type DataService interface {
	Select(ctx context.Context, q Query) ([]Row, int64, error)
	SelectOne(ctx context.Context, q Query) (Row, error)
	Insert(ctx context.Context, collection string, rows []Row) ([]Row, error)
	Update(ctx context.Context, collection, id string, fields Row) error
	Delete(ctx context.Context, collection, id string) error
}

// AuthService signs users in and resolves access tokens to identities.
//
// SignIn returns the identity and an opaque access token on success.
// CurrentUser re-validates the token on every call; callers must not
// cache its answer across protected-route entries.
type AuthService interface {
	SignIn(ctx context.Context, email, password string) (*Identity, string, error)
	CurrentUser(ctx context.Context, accessToken string) (*Identity, error)
}
