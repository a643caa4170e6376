// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package observability provides metrics and instrumentation for the widget
// gateway.
//
// # Description
//
// Two complementary views are maintained:
//   - Prometheus metrics (counters, histograms, gauges) registered on the
//     default registry and scraped at /metrics/prometheus.
//   - An in-process Tracker whose JSON snapshot is served at /metrics for
//     the widget's own lightweight status display.
//
// # Thread Safety
//
// All metric operations are thread-safe. Prometheus metrics rely on the
// client library's internal locking; the Tracker uses atomics plus a small
// mutex-guarded ring of recent response times.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// =============================================================================
// Metric Definitions
// =============================================================================

// Namespace for all metrics
const metricsNamespace = "aleutian"

// Subsystem for gateway metrics
const gatewaySubsystem = "gateway"

// GatewayMetrics holds all Prometheus metrics for widget gateway operations.
//
// # Description
//
// Provides counters, histograms, and gauges for monitoring request volume,
// latency, and denial behavior. Initialize once at startup via InitMetrics().
//
// # Fields
//
//   - RequestsTotal: Counter of requests by endpoint and status class
//   - RequestDurationSeconds: Histogram of handler latency by endpoint
//   - RateLimitedTotal: Counter of 429 denials by action
//   - ErrorsTotal: Counter of error responses by endpoint and error code
//   - ActiveRequests: Gauge of in-flight requests
//   - SessionsIssuedTotal: Counter of sessions created by kind
//
// # Thread Safety
//
// All operations are thread-safe.
type GatewayMetrics struct {
	// RequestsTotal counts requests by endpoint and status class.
	// Labels: endpoint (route path), status (2xx, 4xx, 5xx)
	RequestsTotal *prometheus.CounterVec

	// RequestDurationSeconds measures handler latency.
	// Labels: endpoint
	RequestDurationSeconds *prometheus.HistogramVec

	// RateLimitedTotal counts fixed-window denials.
	// Labels: action (chat, save, personalize)
	RateLimitedTotal *prometheus.CounterVec

	// ErrorsTotal counts error responses by taxonomy code.
	// Labels: endpoint, error_code (RATE_LIMIT_EXCEEDED, UNAUTHORIZED, ...)
	ErrorsTotal *prometheus.CounterVec

	// ActiveRequests tracks in-flight requests.
	ActiveRequests prometheus.Gauge

	// SessionsIssuedTotal counts sessions created.
	// Labels: kind (verified, refresh, anonymous)
	SessionsIssuedTotal *prometheus.CounterVec
}

// DefaultMetrics is the singleton instance of GatewayMetrics.
// Initialized by InitMetrics().
var DefaultMetrics *GatewayMetrics

// InitMetrics initializes the default metrics instance.
//
// # Description
//
// Creates and registers all Prometheus metrics on the default registry.
// Call once at startup; a second call panics on duplicate registration.
func InitMetrics() *GatewayMetrics {
	DefaultMetrics = &GatewayMetrics{
		RequestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: gatewaySubsystem,
				Name:      "requests_total",
				Help:      "Total requests by endpoint and status class",
			},
			[]string{"endpoint", "status"},
		),

		RequestDurationSeconds: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Subsystem: gatewaySubsystem,
				Name:      "request_duration_seconds",
				Help:      "Handler latency in seconds by endpoint",
				Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
			},
			[]string{"endpoint"},
		),

		RateLimitedTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: gatewaySubsystem,
				Name:      "rate_limited_total",
				Help:      "Total fixed-window rate limit denials by action",
			},
			[]string{"action"},
		),

		ErrorsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: gatewaySubsystem,
				Name:      "errors_total",
				Help:      "Total error responses by endpoint and error code",
			},
			[]string{"endpoint", "error_code"},
		),

		ActiveRequests: promauto.NewGauge(
			prometheus.GaugeOpts{
				Namespace: metricsNamespace,
				Subsystem: gatewaySubsystem,
				Name:      "active_requests",
				Help:      "Number of in-flight requests",
			},
		),

		SessionsIssuedTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: gatewaySubsystem,
				Name:      "sessions_issued_total",
				Help:      "Total sessions created by kind",
			},
			[]string{"kind"},
		),
	}

	return DefaultMetrics
}

// =============================================================================
// Helper Methods
// =============================================================================

// statusClass buckets an HTTP status into 2xx / 3xx / 4xx / 5xx.
func statusClass(status int) string {
	switch {
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	case status >= 300:
		return "3xx"
	default:
		return "2xx"
	}
}

// RecordRequest records one completed request.
func (m *GatewayMetrics) RecordRequest(endpoint string, status int, seconds float64) {
	m.RequestsTotal.WithLabelValues(endpoint, statusClass(status)).Inc()
	m.RequestDurationSeconds.WithLabelValues(endpoint).Observe(seconds)
}

// RecordRateLimited records one fixed-window denial.
func (m *GatewayMetrics) RecordRateLimited(action string) {
	m.RateLimitedTotal.WithLabelValues(action).Inc()
}

// RecordError records one error response.
func (m *GatewayMetrics) RecordError(endpoint, errorCode string) {
	m.ErrorsTotal.WithLabelValues(endpoint, errorCode).Inc()
}

// RecordSessionIssued records one session creation.
// kind is "verified", "refresh", or "anonymous".
func (m *GatewayMetrics) RecordSessionIssued(kind string) {
	m.SessionsIssuedTotal.WithLabelValues(kind).Inc()
}
