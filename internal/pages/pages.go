// Neonblog - Content publishing platform
// Copyright 2026 The Neonblog Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/neonblog/neonblog

// Package pages holds the page controllers: thin compositions of
// collaborator queries and view-model mapping. Controllers never talk
// HTTP; handlers run them inside per-request fetch machines.
package pages

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound means a single-row lookup matched nothing. Pages
	// resolve it by redirecting, never by rendering an error.
	ErrNotFound = errors.New("pages: not found")

	// ErrUnauthorized means the action needs a session and none was
	// present. It aborts the whole action.
	ErrUnauthorized = errors.New("pages: session required")

	// ErrConfirmationRequired means a destructive action arrived
	// without its explicit confirmation.
	ErrConfirmationRequired = errors.New("pages: confirmation required")
)

// FetchError wraps a collaborator failure with the operation that hit
// it. It surfaces as a visible message with a manual retry, never an
// automatic one.
type FetchError struct {
	Op  string
	Err error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s: %v", e.Op, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

func fetchErr(op string, err error) *FetchError {
	return &FetchError{Op: op, Err: err}
}
