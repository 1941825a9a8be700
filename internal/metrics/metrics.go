// Neonblog - Content publishing platform
// Copyright 2026 The Neonblog Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/neonblog/neonblog

// Package metrics exposes Prometheus instrumentation for the service.
//
// Metrics are served at /metrics in Prometheus text format. The surface
// covers HTTP traffic, backend collaborator calls, circuit breaker
// state, fetch lifecycle outcomes, and active sessions.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP metrics.

	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total HTTP requests served",
		},
		[]string{"method", "route", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: []float64{.001, .005, .01, .05, .1, .5, 1, 5, 10},
		},
		[]string{"method", "route"},
	)

	HTTPRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "http_requests_in_flight",
			Help: "HTTP requests currently being handled",
		},
	)

	// Backend collaborator metrics.

	BackendRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "backend_requests_total",
			Help: "Calls to the data/auth backend by collection, operation, and outcome",
		},
		[]string{"collection", "operation", "outcome"},
	)

	BackendRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "backend_request_duration_seconds",
			Help:    "Backend call latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"collection", "operation"},
	)

	// Circuit breaker metrics.

	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state: 0=closed, 1=open, 2=half-open",
		},
		[]string{"name"},
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_transitions_total",
			Help: "Circuit breaker state transitions",
		},
		[]string{"name", "from", "to"},
	)

	CircuitBreakerRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_requests_total",
			Help: "Requests through a circuit breaker by outcome",
		},
		[]string{"name", "outcome"},
	)

	// Fetch lifecycle metrics.

	FetchResults = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fetch_results_total",
			Help: "Fetch state machine results by final state",
		},
		[]string{"outcome"}, // ready, failed
	)

	FetchResultsDiscarded = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "fetch_results_discarded_total",
			Help: "Fetch results dropped because a newer request token superseded them or the machine closed",
		},
	)

	// Session metrics.

	SessionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "sessions_active",
			Help: "Sessions currently stored and unexpired",
		},
	)

	SessionsCleanedUp = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "sessions_cleaned_up_total",
			Help: "Expired sessions removed by the cleanup service",
		},
	)
)

// RecordHTTPRequest records one served request.
func RecordHTTPRequest(method, route, status string, duration time.Duration) {
	HTTPRequestsTotal.WithLabelValues(method, route, status).Inc()
	HTTPRequestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// TrackInFlight adjusts the in-flight request gauge.
func TrackInFlight(start bool) {
	if start {
		HTTPRequestsInFlight.Inc()
	} else {
		HTTPRequestsInFlight.Dec()
	}
}

// RecordBackendRequest records one backend collaborator call.
func RecordBackendRequest(collection, operation string, err error, duration time.Duration) {
	outcome := "success"
	if err != nil {
		outcome = "failure"
	}
	BackendRequests.WithLabelValues(collection, operation, outcome).Inc()
	BackendRequestDuration.WithLabelValues(collection, operation).Observe(duration.Seconds())
}
