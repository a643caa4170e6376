// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/AleutianWidget/pkg/clock"
)

// =============================================================================
// Test Setup
// =============================================================================

var testEpoch = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

// newTestStore opens an in-memory store on a frozen clock.
func newTestStore(t *testing.T) (*Store, *clock.FakeClock, *clock.FakeIDSource) {
	t.Helper()
	clk := clock.NewFakeClock(testEpoch)
	ids := &clock.FakeIDSource{}
	st, err := OpenInMemory(clk, ids)
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	return st, clk, ids
}

func TestOpen_RejectsEmptyURL(t *testing.T) {
	_, err := Open(Config{URL: "", Clock: clock.SystemClock{}, IDs: &clock.FakeIDSource{}})
	require.Error(t, err)
}

func TestPing(t *testing.T) {
	st, _, _ := newTestStore(t)
	require.NoError(t, st.Ping(context.Background()))
}
