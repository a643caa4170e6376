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

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/AleutianWidget/services/gateway/datatypes"
)

func TestCreateUser_RequiresConsent(t *testing.T) {
	st, _, _ := newTestStore(t)

	_, err := st.CreateUser(context.Background(), "a@example.com", false)
	assert.ErrorIs(t, err, ErrConsentRequired)
}

func TestCreateUser_NewUserStartsLightweightUnverified(t *testing.T) {
	st, _, _ := newTestStore(t)

	user, err := st.CreateUser(context.Background(), "a@example.com", true)
	require.NoError(t, err)
	assert.Equal(t, datatypes.TierLightweight, user.Tier)
	assert.False(t, user.Verified)
	assert.Equal(t, testEpoch, user.CreatedAt)
}

func TestCreateUser_EmailUniqueCaseInsensitive(t *testing.T) {
	st, _, _ := newTestStore(t)
	ctx := context.Background()

	_, err := st.CreateUser(ctx, "Alice@Example.COM", true)
	require.NoError(t, err)

	_, err = st.CreateUser(ctx, "alice@example.com", true)
	assert.ErrorIs(t, err, ErrAlreadyExists)

	// The stored form is lowercase regardless of the signup spelling.
	user, err := st.GetUserByEmail(ctx, "ALICE@example.com")
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", user.Email)
}

func TestGetUser_Unknown(t *testing.T) {
	st, _, _ := newTestStore(t)

	_, err := st.GetUser(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMarkVerified_Idempotent(t *testing.T) {
	st, _, _ := newTestStore(t)
	ctx := context.Background()

	created, err := st.CreateUser(ctx, "a@example.com", true)
	require.NoError(t, err)

	user, err := st.MarkVerified(ctx, created.ID)
	require.NoError(t, err)
	assert.True(t, user.Verified)

	user, err = st.MarkVerified(ctx, created.ID)
	require.NoError(t, err)
	assert.True(t, user.Verified)
}
