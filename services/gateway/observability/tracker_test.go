// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package observability

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/AleutianAI/AleutianWidget/pkg/clock"
)

func TestTracker_Counters(t *testing.T) {
	clk := clock.NewFakeClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	tracker := NewTracker(clk)

	tracker.Observe(10, false, false)
	tracker.Observe(20, true, false)
	tracker.Observe(30, false, true)
	clk.Advance(5 * time.Second)

	snap := tracker.Snapshot()
	assert.Equal(t, int64(3), snap.TotalRequests)
	assert.Equal(t, int64(1), snap.TotalErrors)
	assert.Equal(t, int64(1), snap.RateLimitedRequests)
	assert.InDelta(t, 20.0, snap.AvgResponseTimeMs, 0.001)
	assert.InDelta(t, 5.0, snap.UptimeSeconds, 0.001)
}

func TestTracker_EmptySnapshot(t *testing.T) {
	tracker := NewTracker(clock.SystemClock{})

	snap := tracker.Snapshot()
	assert.Zero(t, snap.TotalRequests)
	assert.Zero(t, snap.AvgResponseTimeMs)
	assert.Zero(t, snap.P95ResponseTimeMs)
}

func TestTracker_WindowRollsOver(t *testing.T) {
	tracker := NewTracker(clock.SystemClock{})

	// Fill the ring with slow samples, then overwrite all of them.
	for i := 0; i < responseWindowSize; i++ {
		tracker.Observe(1000, false, false)
	}
	for i := 0; i < responseWindowSize; i++ {
		tracker.Observe(10, false, false)
	}

	snap := tracker.Snapshot()
	assert.InDelta(t, 10.0, snap.AvgResponseTimeMs, 0.001, "old samples are gone")
	assert.InDelta(t, 10.0, snap.P95ResponseTimeMs, 0.001)
	assert.Equal(t, int64(2*responseWindowSize), snap.TotalRequests)
}

func TestTracker_P95PicksTail(t *testing.T) {
	tracker := NewTracker(clock.SystemClock{})

	for i := 1; i <= 100; i++ {
		tracker.Observe(float64(i), false, false)
	}

	snap := tracker.Snapshot()
	assert.InDelta(t, 96.0, snap.P95ResponseTimeMs, 0.001)
}
