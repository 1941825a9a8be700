// Neonblog - Content publishing platform
// Copyright 2026 The Neonblog Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/neonblog/neonblog

package backend

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
	gobreaker "github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"

	"github.com/neonblog/neonblog/internal/logging"
	"github.com/neonblog/neonblog/internal/metrics"
)

// RESTClientConfig configures the hosted-backend REST client.
type RESTClientConfig struct {
	// BaseURL is the backend root, e.g. "https://xyz.example.co".
	BaseURL string

	// APIKey is the anonymous API key sent with every call.
	APIKey string

	// Timeout bounds each HTTP call.
	Timeout time.Duration

	// BreakerDisabled turns off the circuit breaker (tests).
	BreakerDisabled bool

	// RequestsPerSecond throttles outbound calls to the hosted
	// backend. Zero means no throttling.
	RequestsPerSecond int
}

// RESTClient implements DataService against a PostgREST-dialect backend.
// All calls share one circuit breaker: when the backend is down, the
// breaker fails fast instead of piling up timeouts.
type RESTClient struct {
	baseURL string
	apiKey  string
	http    *http.Client
	breaker *gobreaker.CircuitBreaker[*restResult]
	limiter *rate.Limiter
}

// restResult is the transport-level outcome of one call.
type restResult struct {
	status int
	header http.Header
	body   []byte
}

// NewRESTClient creates a REST data client.
func NewRESTClient(cfg RESTClientConfig) *RESTClient {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}

	c := &RESTClient{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		http:    &http.Client{Timeout: cfg.Timeout},
	}

	if !cfg.BreakerDisabled {
		c.breaker = newBackendBreaker("backend-rest")
	}
	if cfg.RequestsPerSecond > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), cfg.RequestsPerSecond)
	}
	return c
}

// newBackendBreaker builds the shared breaker: opens at a 60% failure
// rate over at least 10 requests, re-probes after two minutes.
func newBackendBreaker(name string) *gobreaker.CircuitBreaker[*restResult] {
	metrics.CircuitBreakerState.WithLabelValues(name).Set(0)

	return gobreaker.NewCircuitBreaker[*restResult](gobreaker.Settings{
		Name:        name,
		MaxRequests: 3,
		Interval:    time.Minute,
		Timeout:     2 * time.Minute,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < 10 {
				return false
			}
			ratio := float64(counts.TotalFailures) / float64(counts.Requests)
			if ratio >= 0.6 {
				logging.Warn().
					Uint32("failures", counts.TotalFailures).
					Float64("failure_rate", ratio*100).
					Msg("backend circuit opening")
				return true
			}
			return false
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Info().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("backend circuit state change")
			metrics.CircuitBreakerTransitions.WithLabelValues(name, from.String(), to.String()).Inc()
			metrics.CircuitBreakerState.WithLabelValues(name).Set(breakerStateValue(to))
		},
	})
}

func breakerStateValue(s gobreaker.State) float64 {
	switch s {
	case gobreaker.StateOpen:
		return 1
	case gobreaker.StateHalfOpen:
		return 2
	default:
		return 0
	}
}

// do performs one HTTP call through the breaker. Transport failures and
// 5xx responses count against the breaker; 4xx responses are the
// caller's problem and pass through as results.
func (c *RESTClient) do(ctx context.Context, method, path string, params url.Values, headers map[string]string, body any) (*restResult, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limit wait: %w", err)
		}
	}

	call := func() (*restResult, error) {
		var reader io.Reader
		if body != nil {
			data, err := json.Marshal(body)
			if err != nil {
				return nil, fmt.Errorf("encode request body: %w", err)
			}
			reader = bytes.NewReader(data)
		}

		u := c.baseURL + path
		if len(params) > 0 {
			u += "?" + params.Encode()
		}

		req, err := http.NewRequestWithContext(ctx, method, u, reader)
		if err != nil {
			return nil, fmt.Errorf("build request: %w", err)
		}

		req.Header.Set("apikey", c.apiKey)
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		for k, v := range headers {
			req.Header.Set(k, v)
		}

		resp, err := c.http.Do(req)
		if err != nil {
			return nil, fmt.Errorf("backend call: %w", err)
		}
		defer resp.Body.Close()

		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("read response: %w", err)
		}

		if resp.StatusCode >= 500 {
			return nil, decodeAPIError(resp.StatusCode, data)
		}
		return &restResult{status: resp.StatusCode, header: resp.Header, body: data}, nil
	}

	if c.breaker == nil {
		return call()
	}

	res, err := c.breaker.Execute(call)
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			metrics.CircuitBreakerRequests.WithLabelValues("backend-rest", "rejected").Inc()
			return nil, &APIError{Status: 0, Code: "CIRCUIT_OPEN", Message: "backend temporarily unavailable"}
		}
		metrics.CircuitBreakerRequests.WithLabelValues("backend-rest", "failure").Inc()
		return nil, err
	}
	metrics.CircuitBreakerRequests.WithLabelValues("backend-rest", "success").Inc()
	return res, nil
}

// decodeAPIError parses a PostgREST/GoTrue error body into *APIError.
func decodeAPIError(status int, body []byte) *APIError {
	var payload struct {
		Message          string `json:"message"`
		Msg              string `json:"msg"`
		Code             string `json:"code"`
		ErrorDescription string `json:"error_description"`
	}
	_ = json.Unmarshal(body, &payload)

	msg := payload.Message
	if msg == "" {
		msg = payload.Msg
	}
	if msg == "" {
		msg = payload.ErrorDescription
	}
	if msg == "" {
		msg = http.StatusText(status)
	}
	return &APIError{Status: status, Code: payload.Code, Message: msg}
}

// pgrstNoRowsCode is PostgREST's code for "expected one row, got zero".
const pgrstNoRowsCode = "PGRST116"

func (q Query) encodeParams() url.Values {
	params := url.Values{}
	params.Set("select", q.selectList())
	for _, f := range q.Filters {
		params.Set(f.Column, fmt.Sprintf("eq.%v", f.Value))
	}
	if q.Order != nil {
		dir := "asc"
		if q.Order.Descending {
			dir = "desc"
		}
		params.Set("order", q.Order.Column+"."+dir)
	}
	return params
}

// Select queries rows from a collection.
func (c *RESTClient) Select(ctx context.Context, q Query) (_ []Row, count int64, err error) {
	start := time.Now()
	defer func() { metrics.RecordBackendRequest(q.Collection, "select", err, time.Since(start)) }()

	method := http.MethodGet
	headers := map[string]string{}
	if q.ExactCount {
		headers["Prefer"] = "count=exact"
	}
	if q.CountOnly {
		method = http.MethodHead
	}

	res, err := c.do(ctx, method, "/rest/v1/"+q.Collection, q.encodeParams(), headers, nil)
	if err != nil {
		return nil, -1, err
	}
	if res.status >= 400 {
		return nil, -1, decodeAPIError(res.status, res.body)
	}

	count = int64(-1)
	if q.ExactCount {
		count = parseContentRangeCount(res.header.Get("Content-Range"))
	}
	if q.CountOnly {
		return nil, count, nil
	}

	var rows []Row
	if err := json.Unmarshal(res.body, &rows); err != nil {
		return nil, -1, fmt.Errorf("decode rows: %w", err)
	}
	return rows, count, nil
}

// SelectOne queries exactly one row; zero matches yield ErrNoRows.
func (c *RESTClient) SelectOne(ctx context.Context, q Query) (_ Row, err error) {
	start := time.Now()
	defer func() { metrics.RecordBackendRequest(q.Collection, "select_one", err, time.Since(start)) }()

	headers := map[string]string{"Accept": "application/vnd.pgrst.object+json"}
	res, err := c.do(ctx, http.MethodGet, "/rest/v1/"+q.Collection, q.encodeParams(), headers, nil)
	if err != nil {
		return nil, err
	}
	if res.status >= 400 {
		apiErr := decodeAPIError(res.status, res.body)
		if res.status == http.StatusNotAcceptable || apiErr.Code == pgrstNoRowsCode {
			return nil, ErrNoRows
		}
		return nil, apiErr
	}

	var row Row
	if err := json.Unmarshal(res.body, &row); err != nil {
		return nil, fmt.Errorf("decode row: %w", err)
	}
	return row, nil
}

// Insert adds rows to a collection and returns them as stored.
func (c *RESTClient) Insert(ctx context.Context, collection string, rows []Row) (_ []Row, err error) {
	start := time.Now()
	defer func() { metrics.RecordBackendRequest(collection, "insert", err, time.Since(start)) }()

	headers := map[string]string{"Prefer": "return=representation"}
	res, err := c.do(ctx, http.MethodPost, "/rest/v1/"+collection, nil, headers, rows)
	if err != nil {
		return nil, err
	}
	if res.status >= 400 {
		return nil, decodeAPIError(res.status, res.body)
	}

	var stored []Row
	if err := json.Unmarshal(res.body, &stored); err != nil {
		return nil, fmt.Errorf("decode inserted rows: %w", err)
	}
	return stored, nil
}

// Update patches the fields of the row matched by id.
func (c *RESTClient) Update(ctx context.Context, collection, id string, fields Row) (err error) {
	start := time.Now()
	defer func() { metrics.RecordBackendRequest(collection, "update", err, time.Since(start)) }()

	params := url.Values{}
	params.Set("id", "eq."+id)

	res, err := c.do(ctx, http.MethodPatch, "/rest/v1/"+collection, params, nil, fields)
	if err != nil {
		return err
	}
	if res.status >= 400 {
		return decodeAPIError(res.status, res.body)
	}
	return nil
}

// Delete removes the row matched by id.
func (c *RESTClient) Delete(ctx context.Context, collection, id string) (err error) {
	start := time.Now()
	defer func() { metrics.RecordBackendRequest(collection, "delete", err, time.Since(start)) }()

	params := url.Values{}
	params.Set("id", "eq."+id)

	res, err := c.do(ctx, http.MethodDelete, "/rest/v1/"+collection, params, nil, nil)
	if err != nil {
		return err
	}
	if res.status >= 400 {
		return decodeAPIError(res.status, res.body)
	}
	return nil
}

// parseContentRangeCount extracts the total from a Content-Range header
// such as "0-9/42" or "*/0". Returns -1 when absent or malformed.
func parseContentRangeCount(header string) int64 {
	_, total, found := strings.Cut(header, "/")
	if !found || total == "*" {
		return -1
	}
	n, err := strconv.ParseInt(total, 10, 64)
	if err != nil {
		return -1
	}
	return n
}
