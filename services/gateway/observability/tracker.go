// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package observability

import (
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/AleutianAI/AleutianWidget/pkg/clock"
)

// responseWindowSize bounds the rolling latency sample. Old entries are
// overwritten ring-buffer style, so the snapshot reflects recent traffic
// rather than lifetime averages.
const responseWindowSize = 100

// Tracker accumulates the gateway's own lightweight counters for the JSON
// /metrics snapshot. Prometheus remains the source of truth for dashboards;
// this exists so the embedded widget can poll a tiny status document without
// a scrape pipeline.
type Tracker struct {
	startedAt time.Time
	clock     clock.Clock

	totalRequests atomic.Int64
	totalErrors   atomic.Int64
	rateLimited   atomic.Int64

	mu     sync.Mutex
	window [responseWindowSize]float64
	filled int
	next   int
}

// NewTracker starts a Tracker; uptime is measured from this call.
func NewTracker(clk clock.Clock) *Tracker {
	return &Tracker{startedAt: clk.Now(), clock: clk}
}

// Observe records one completed request.
func (t *Tracker) Observe(durationMs float64, isError, isRateLimited bool) {
	t.totalRequests.Add(1)
	if isError {
		t.totalErrors.Add(1)
	}
	if isRateLimited {
		t.rateLimited.Add(1)
	}

	t.mu.Lock()
	t.window[t.next] = durationMs
	t.next = (t.next + 1) % responseWindowSize
	if t.filled < responseWindowSize {
		t.filled++
	}
	t.mu.Unlock()
}

// Snapshot is the JSON document served at /metrics.
type Snapshot struct {
	TotalRequests       int64   `json:"total_requests"`
	TotalErrors         int64   `json:"total_errors"`
	RateLimitedRequests int64   `json:"rate_limited_requests"`
	AvgResponseTimeMs   float64 `json:"avg_response_time_ms"`
	P95ResponseTimeMs   float64 `json:"p95_response_time_ms"`
	UptimeSeconds       float64 `json:"uptime_seconds"`
}

// Snapshot returns a point-in-time copy of the counters. The latency figures
// cover only the rolling window of recent requests.
func (t *Tracker) Snapshot() Snapshot {
	snap := Snapshot{
		TotalRequests:       t.totalRequests.Load(),
		TotalErrors:         t.totalErrors.Load(),
		RateLimitedRequests: t.rateLimited.Load(),
		UptimeSeconds:       t.clock.Now().Sub(t.startedAt).Seconds(),
	}

	t.mu.Lock()
	samples := make([]float64, t.filled)
	copy(samples, t.window[:t.filled])
	t.mu.Unlock()

	if len(samples) == 0 {
		return snap
	}
	var sum float64
	for _, s := range samples {
		sum += s
	}
	snap.AvgResponseTimeMs = sum / float64(len(samples))

	sort.Float64s(samples)
	idx := (len(samples) * 95) / 100
	if idx >= len(samples) {
		idx = len(samples) - 1
	}
	snap.P95ResponseTimeMs = samples[idx]
	return snap
}

// Uptime reports time since the tracker started.
func (t *Tracker) Uptime() time.Duration {
	return t.clock.Now().Sub(t.startedAt)
}
