// Neonblog - Content publishing platform
// Copyright 2026 The Neonblog Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/neonblog/neonblog

// Package api exposes the routing surface: the public blog, the admin
// console, and the operational endpoints. All JSON responses share one
// envelope.
package api

import (
	"net/http"
	"time"

	"github.com/goccy/go-json"

	"github.com/neonblog/neonblog/internal/logging"
)

// Response is the envelope for every JSON endpoint.
type Response struct {
	// Success indicates whether the request was handled.
	Success bool `json:"success"`

	// Data carries the payload (absent on error).
	Data interface{} `json:"data,omitempty"`

	// Error carries error details (absent on success).
	Error *ResponseError `json:"error,omitempty"`

	// Meta carries response metadata.
	Meta *ResponseMeta `json:"meta,omitempty"`
}

// ResponseError is the error half of the envelope.
type ResponseError struct {
	// Code is a machine-readable error code.
	Code string `json:"code"`

	// Message is a human-readable error message.
	Message string `json:"message"`

	// Details carries additional error context (optional).
	Details interface{} `json:"details,omitempty"`

	// Retryable tells the client a manual retry may succeed.
	Retryable bool `json:"retryable,omitempty"`
}

// ResponseMeta carries tracing metadata.
type ResponseMeta struct {
	RequestID  string    `json:"request_id,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
	DurationMs int64     `json:"duration_ms"`
}

// Error codes.
const (
	ErrCodeBadRequest       = "BAD_REQUEST"
	ErrCodeUnauthorized     = "UNAUTHORIZED"
	ErrCodeNotFound         = "NOT_FOUND"
	ErrCodeTooManyRequests  = "TOO_MANY_REQUESTS"
	ErrCodeValidationFailed = "VALIDATION_FAILED"
	ErrCodeFetchFailed      = "FETCH_FAILED"
	ErrCodeInternalError    = "INTERNAL_ERROR"
)

// ResponseWriter writes enveloped responses for one request.
type ResponseWriter struct {
	w         http.ResponseWriter
	r         *http.Request
	startTime time.Time
}

// NewResponseWriter creates a response writer for the request.
func NewResponseWriter(w http.ResponseWriter, r *http.Request) *ResponseWriter {
	return &ResponseWriter{w: w, r: r, startTime: time.Now()}
}

func (rw *ResponseWriter) meta() *ResponseMeta {
	return &ResponseMeta{
		RequestID:  logging.RequestIDFromContext(rw.r.Context()),
		Timestamp:  time.Now(),
		DurationMs: time.Since(rw.startTime).Milliseconds(),
	}
}

// Success writes a 200 with data.
func (rw *ResponseWriter) Success(data interface{}) {
	rw.writeJSON(http.StatusOK, Response{Success: true, Data: data, Meta: rw.meta()})
}

// Created writes a 201 with data.
func (rw *ResponseWriter) Created(data interface{}) {
	rw.writeJSON(http.StatusCreated, Response{Success: true, Data: data, Meta: rw.meta()})
}

// NoContent writes a 204.
func (rw *ResponseWriter) NoContent() {
	rw.w.WriteHeader(http.StatusNoContent)
}

// Error writes an enveloped error.
func (rw *ResponseWriter) Error(statusCode int, code, message string) {
	rw.writeError(statusCode, &ResponseError{Code: code, Message: message})
}

// BadRequest writes a 400.
func (rw *ResponseWriter) BadRequest(message string) {
	rw.Error(http.StatusBadRequest, ErrCodeBadRequest, message)
}

// Unauthorized writes a 401. Used where the policy is a blocking
// message rather than a redirect.
func (rw *ResponseWriter) Unauthorized(message string) {
	rw.Error(http.StatusUnauthorized, ErrCodeUnauthorized, message)
}

// NotFound writes a 404.
func (rw *ResponseWriter) NotFound(message string) {
	rw.Error(http.StatusNotFound, ErrCodeNotFound, message)
}

// ValidationError writes a 400 with per-field details.
func (rw *ResponseWriter) ValidationError(message string, details interface{}) {
	rw.writeError(http.StatusBadRequest, &ResponseError{
		Code:    ErrCodeValidationFailed,
		Message: message,
		Details: details,
	})
}

// FetchFailed writes a 502 for a collaborator failure. The response is
// marked retryable: the client owns the manual retry, nothing retries
// automatically.
func (rw *ResponseWriter) FetchFailed(err error) {
	logging.Ctx(rw.r.Context()).Error().Err(err).Msg("fetch failed")
	rw.writeError(http.StatusBadGateway, &ResponseError{
		Code:      ErrCodeFetchFailed,
		Message:   "content failed to load",
		Retryable: true,
	})
}

// InternalError writes a 500.
func (rw *ResponseWriter) InternalError(err error) {
	logging.Ctx(rw.r.Context()).Error().Err(err).Msg("internal error")
	rw.Error(http.StatusInternalServerError, ErrCodeInternalError, "internal error")
}

func (rw *ResponseWriter) writeError(statusCode int, respErr *ResponseError) {
	rw.writeJSON(statusCode, Response{Success: false, Error: respErr, Meta: rw.meta()})
}

func (rw *ResponseWriter) writeJSON(statusCode int, payload Response) {
	rw.w.Header().Set("Content-Type", "application/json; charset=utf-8")
	rw.w.WriteHeader(statusCode)
	if err := json.NewEncoder(rw.w).Encode(payload); err != nil {
		logging.Ctx(rw.r.Context()).Error().Err(err).Msg("write response")
	}
}
