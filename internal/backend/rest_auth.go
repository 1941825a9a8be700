// Neonblog - Content publishing platform
// Copyright 2026 The Neonblog Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/neonblog/neonblog

package backend

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/neonblog/neonblog/internal/metrics"
)

// RESTAuth implements AuthService against a GoTrue-dialect auth backend.
type RESTAuth struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

// NewRESTAuth creates a REST auth client.
func NewRESTAuth(cfg RESTClientConfig) *RESTAuth {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	return &RESTAuth{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		http:    &http.Client{Timeout: cfg.Timeout},
	}
}

// SignIn exchanges email+password for an identity and access token.
func (a *RESTAuth) SignIn(ctx context.Context, email, password string) (_ *Identity, _ string, err error) {
	start := time.Now()
	defer func() { metrics.RecordBackendRequest("auth", "sign_in", err, time.Since(start)) }()

	payload, err := json.Marshal(map[string]string{"email": email, "password": password})
	if err != nil {
		return nil, "", fmt.Errorf("encode credentials: %w", err)
	}

	u := a.baseURL + "/auth/v1/token?grant_type=password"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(payload))
	if err != nil {
		return nil, "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("apikey", a.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.http.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("auth call: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", fmt.Errorf("read response: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode == http.StatusBadRequest || resp.StatusCode == http.StatusUnauthorized:
		return nil, "", ErrInvalidCredentials
	default:
		return nil, "", decodeAPIError(resp.StatusCode, body)
	}

	var result struct {
		AccessToken string   `json:"access_token"`
		User        Identity `json:"user"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, "", fmt.Errorf("decode session: %w", err)
	}
	if result.AccessToken == "" {
		return nil, "", &APIError{Status: resp.StatusCode, Message: "auth response missing access token"}
	}
	return &result.User, result.AccessToken, nil
}

// CurrentUser resolves an access token to the identity it belongs to.
func (a *RESTAuth) CurrentUser(ctx context.Context, accessToken string) (_ *Identity, err error) {
	start := time.Now()
	defer func() { metrics.RecordBackendRequest("auth", "current_user", err, time.Since(start)) }()

	if accessToken == "" {
		return nil, ErrInvalidToken
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.baseURL+"/auth/v1/user", nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("apikey", a.apiKey)
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := a.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("auth call: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, ErrInvalidToken
	default:
		return nil, decodeAPIError(resp.StatusCode, body)
	}

	var user Identity
	if err := json.Unmarshal(body, &user); err != nil {
		return nil, fmt.Errorf("decode user: %w", err)
	}
	if user.ID == "" {
		return nil, ErrInvalidToken
	}
	return &user, nil
}
