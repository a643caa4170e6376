// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package store

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const verificationTTL = 10 * time.Minute

func TestConsumeVerificationToken_Success(t *testing.T) {
	st, _, _ := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, st.PutVerificationToken(ctx, "A@Example.com", "tok-1", testEpoch.Add(verificationTTL)))

	email, err := st.ConsumeVerificationToken(ctx, "tok-1")
	require.NoError(t, err)
	assert.Equal(t, "a@example.com", email)
}

func TestConsumeVerificationToken_SingleUse(t *testing.T) {
	st, _, _ := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, st.PutVerificationToken(ctx, "a@example.com", "tok-1", testEpoch.Add(verificationTTL)))

	_, err := st.ConsumeVerificationToken(ctx, "tok-1")
	require.NoError(t, err)

	// A replayed token reports expired, not unknown.
	_, err = st.ConsumeVerificationToken(ctx, "tok-1")
	assert.ErrorIs(t, err, ErrExpired)
}

func TestConsumeVerificationToken_Expired(t *testing.T) {
	st, clk, _ := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, st.PutVerificationToken(ctx, "a@example.com", "tok-1", testEpoch.Add(verificationTTL)))

	clk.Advance(verificationTTL)
	_, err := st.ConsumeVerificationToken(ctx, "tok-1")
	assert.ErrorIs(t, err, ErrExpired)
}

func TestConsumeVerificationToken_Unknown(t *testing.T) {
	st, _, _ := newTestStore(t)

	_, err := st.ConsumeVerificationToken(context.Background(), "never-issued")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPutVerificationToken_LatestWins(t *testing.T) {
	st, _, _ := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, st.PutVerificationToken(ctx, "a@example.com", "tok-old", testEpoch.Add(verificationTTL)))
	require.NoError(t, st.PutVerificationToken(ctx, "a@example.com", "tok-new", testEpoch.Add(verificationTTL)))

	_, err := st.ConsumeVerificationToken(ctx, "tok-old")
	assert.Error(t, err)

	email, err := st.ConsumeVerificationToken(ctx, "tok-new")
	require.NoError(t, err)
	assert.Equal(t, "a@example.com", email)
}

func TestConsumeVerificationToken_ConcurrentExactlyOneSuccess(t *testing.T) {
	st, _, _ := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, st.PutVerificationToken(ctx, "a@example.com", "tok-race", testEpoch.Add(verificationTTL)))

	const attempts = 16
	var wg sync.WaitGroup
	results := make([]error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, results[i] = st.ConsumeVerificationToken(ctx, "tok-race")
		}(i)
	}
	wg.Wait()

	successes := 0
	for _, err := range results {
		if err == nil {
			successes++
		}
	}
	assert.Equal(t, 1, successes)
}
