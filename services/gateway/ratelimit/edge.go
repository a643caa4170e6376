// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package ratelimit

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// edgeIdleTTL is how long an IP's bucket survives without traffic before the
// sweeper drops it.
const edgeIdleTTL = 10 * time.Minute

type edgeEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// EdgeLimiter is an in-memory token bucket per client IP. It sits in front
// of the durable quota checks and exists only to absorb floods cheaply; it
// carries no user identity and resets on process restart.
type EdgeLimiter struct {
	mu      sync.Mutex
	entries map[string]*edgeEntry
	rps     rate.Limit
	burst   int
}

// NewEdgeLimiter allows sustained rps requests per second per IP with the
// given burst headroom.
func NewEdgeLimiter(rps float64, burst int) *EdgeLimiter {
	return &EdgeLimiter{
		entries: make(map[string]*edgeEntry),
		rps:     rate.Limit(rps),
		burst:   burst,
	}
}

// Allow reports whether one more request from ip may proceed right now.
func (e *EdgeLimiter) Allow(ip string) bool {
	e.mu.Lock()
	entry, ok := e.entries[ip]
	if !ok {
		entry = &edgeEntry{limiter: rate.NewLimiter(e.rps, e.burst)}
		e.entries[ip] = entry
	}
	entry.lastSeen = time.Now()
	e.mu.Unlock()
	return entry.limiter.Allow()
}

// Sweep periodically evicts buckets for IPs that have gone quiet. Runs until
// ctx is cancelled.
func (e *EdgeLimiter) Sweep(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			cutoff := time.Now().Add(-edgeIdleTTL)
			e.mu.Lock()
			for ip, entry := range e.entries {
				if entry.lastSeen.Before(cutoff) {
					delete(e.entries, ip)
				}
			}
			e.mu.Unlock()
		}
	}
}

// Len reports the number of tracked IPs. Exposed for metrics.
func (e *EdgeLimiter) Len() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.entries)
}
