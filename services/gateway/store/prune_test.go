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

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPruneExpired(t *testing.T) {
	st, clk, _ := newTestStore(t)
	ctx := context.Background()
	userID := mustUser(t, st, "a@example.com")

	dead, err := st.CreateSession(ctx, userID, time.Hour)
	require.NoError(t, err)
	alive, err := st.CreateSession(ctx, userID, 48*time.Hour)
	require.NoError(t, err)
	require.NoError(t, st.PutVerificationToken(ctx, "a@example.com", "tok-dead", testEpoch.Add(10*time.Minute)))
	_, err = st.CheckAndBumpRate(ctx, "u", "chat", 5, time.Minute)
	require.NoError(t, err)

	clk.Advance(2 * time.Hour)
	stats, err := st.PruneExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Sessions)
	assert.Equal(t, 1, stats.VerificationTokens)
	assert.Equal(t, 1, stats.RateCounters)

	_, _, err = st.LookupSession(ctx, dead.Token)
	assert.ErrorIs(t, err, ErrNotFound)
	_, _, err = st.LookupSession(ctx, alive.Token)
	assert.NoError(t, err)
}

func TestSeedIntegrationFixtures_Idempotent(t *testing.T) {
	st, _, _ := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, st.SeedIntegrationFixtures(ctx, 10*time.Minute))
	require.NoError(t, st.SeedIntegrationFixtures(ctx, 10*time.Minute))

	email, err := st.ConsumeVerificationToken(ctx, SeedVerificationCode)
	require.NoError(t, err)
	assert.Equal(t, SeedUserEmail, email)
}
