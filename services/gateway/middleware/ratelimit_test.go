// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/AleutianWidget/pkg/clock"
	"github.com/AleutianAI/AleutianWidget/services/gateway/config"
	"github.com/AleutianAI/AleutianWidget/services/gateway/datatypes"
	"github.com/AleutianAI/AleutianWidget/services/gateway/ratelimit"
	"github.com/AleutianAI/AleutianWidget/services/gateway/store"
)

func newMiddlewareLimiter(t *testing.T, policies map[string]config.RatePolicy) *ratelimit.Limiter {
	t.Helper()
	clk := clock.NewFakeClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	st, err := store.OpenInMemory(clk, &clock.FakeIDSource{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	return ratelimit.NewLimiter(st, policies)
}

func rateLimitedRouter(limiter *ratelimit.Limiter, action string) *gin.Engine {
	router := gin.New()
	router.Use(RequestID(testLogger()))
	router.POST("/gated", RateLimit(limiter, nil, action), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	return router
}

func TestRateLimit_DenialShape(t *testing.T) {
	limiter := newMiddlewareLimiter(t, map[string]config.RatePolicy{
		"chat": {MaxRequests: 1, WindowSeconds: 60},
	})
	router := rateLimitedRouter(limiter, "chat")

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("POST", "/gated", nil))
	require.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("POST", "/gated", nil))
	require.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.NotEmpty(t, w.Header().Get("Retry-After"))

	var body struct {
		Detail struct {
			Error      string `json:"error"`
			RetryAfter int    `json:"retry_after"`
		} `json:"detail"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "rate_limited", body.Detail.Error)
	assert.GreaterOrEqual(t, body.Detail.RetryAfter, 1)
}

func TestRateLimit_UnknownActionDeniesClosed(t *testing.T) {
	limiter := newMiddlewareLimiter(t, map[string]config.RatePolicy{
		"chat": {MaxRequests: 1, WindowSeconds: 60},
	})
	router := rateLimitedRouter(limiter, "upload")

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("POST", "/gated", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

// tokenResolver accepts any bearer token and binds it to one shared user,
// so two tokens act as two sessions of the same account.
type tokenResolver struct{}

func (tokenResolver) SessionCheck(_ context.Context, token string) (datatypes.Session, datatypes.User, error) {
	return datatypes.Session{Token: token, UserID: "user-100"}, datatypes.User{ID: "user-100"}, nil
}

func TestRateLimit_SubjectIsTheSessionToken(t *testing.T) {
	limiter := newMiddlewareLimiter(t, map[string]config.RatePolicy{
		"save": {MaxRequests: 1, WindowSeconds: 60},
	})
	router := gin.New()
	router.Use(RequestID(testLogger()))
	router.POST("/gated", SessionAuth(tokenResolver{}), RateLimit(limiter, nil, "save"), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	do := func(token string) int {
		w := httptest.NewRecorder()
		req := httptest.NewRequest("POST", "/gated", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		router.ServeHTTP(w, req)
		return w.Code
	}

	require.Equal(t, http.StatusOK, do("session-a"))
	assert.Equal(t, http.StatusTooManyRequests, do("session-a"))
	assert.Equal(t, http.StatusOK, do("session-b"),
		"a second session of the same account keeps its own allowance")
}

func TestEdgeLimit_FloodAnswers429(t *testing.T) {
	router := gin.New()
	router.Use(EdgeLimit(ratelimit.NewEdgeLimiter(1, 2)))
	router.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	codes := make(map[int]int)
	for i := 0; i < 5; i++ {
		w := httptest.NewRecorder()
		req := httptest.NewRequest("GET", "/", nil)
		req.RemoteAddr = "10.1.1.1:5555"
		router.ServeHTTP(w, req)
		codes[w.Code]++
	}

	assert.Equal(t, 2, codes[http.StatusOK])
	assert.Equal(t, 3, codes[http.StatusTooManyRequests])
}
