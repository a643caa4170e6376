// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package routes

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/AleutianWidget/pkg/clock"
	"github.com/AleutianAI/AleutianWidget/pkg/logging"
	"github.com/AleutianAI/AleutianWidget/services/gateway/auth"
	"github.com/AleutianAI/AleutianWidget/services/gateway/config"
	"github.com/AleutianAI/AleutianWidget/services/gateway/datatypes"
	"github.com/AleutianAI/AleutianWidget/services/gateway/observability"
	"github.com/AleutianAI/AleutianWidget/services/gateway/ratelimit"
	"github.com/AleutianAI/AleutianWidget/services/gateway/store"
	"github.com/AleutianAI/AleutianWidget/services/personalize"
	"github.com/AleutianAI/AleutianWidget/services/retrieval"
)

// =============================================================================
// Test Server
// =============================================================================

func init() {
	gin.SetMode(gin.TestMode)
}

type testServer struct {
	router *gin.Engine
	store  *store.Store
	clock  *clock.FakeClock
	ids    *clock.FakeIDSource
}

// newTestServer stands up the full route table over an in-memory store with
// deterministic time and tokens. Metrics are left nil so the global
// Prometheus registry is untouched across test runs.
func newTestServer(t *testing.T) *testServer {
	t.Helper()

	clk := clock.NewFakeClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	ids := &clock.FakeIDSource{}
	st, err := store.OpenInMemory(clk, ids)
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	logger := logging.New(logging.Config{Level: logging.LevelError, Service: "test", Writer: &bytes.Buffer{}})
	cfg := &config.Config{
		CORSOrigins:         []string{"https://learn.example.edu"},
		SessionTTL:          24 * time.Hour,
		SessionRefreshGrace: time.Minute,
		VerificationTTL:     10 * time.Minute,
		RateLimits: map[string]config.RatePolicy{
			"chat":        {MaxRequests: 100, WindowSeconds: 60},
			"save":        {MaxRequests: 2, WindowSeconds: 60},
			"personalize": {MaxRequests: 100, WindowSeconds: 60},
		},
	}

	svc := auth.NewService(st, cfg, &auth.NopSender{}, clk, ids, logger)
	router := gin.New()
	SetupRoutes(router, Deps{
		Config:   cfg,
		Logger:   logger,
		Store:    st,
		Auth:     svc,
		Limiter:  ratelimit.NewLimiter(st, cfg.RateLimits),
		Tracker:  observability.NewTracker(clk),
		Pipeline: retrieval.NewPipeline(retrieval.StubRetriever{}, retrieval.StubGenerator{}),
		Strategy: personalize.TierStrategy{},
	})

	return &testServer{router: router, store: st, clock: clk, ids: ids}
}

func (s *testServer) do(t *testing.T, method, path, bearer string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

// signupAndVerify walks a user through the email flow and returns the
// session token.
func (s *testServer) signupAndVerify(t *testing.T, email, code string) string {
	t.Helper()
	s.ids.Tokens = append(s.ids.Tokens, code)

	w := s.do(t, "POST", "/api/v1/auth/signup", "", gin.H{
		"email":                email,
		"consent_data_storage": true,
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = s.do(t, "POST", "/api/v1/auth/verify", "", gin.H{"token": code})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp datatypes.VerifyResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.SessionToken)
	return resp.SessionToken
}

// =============================================================================
// Account Lifecycle
// =============================================================================

func TestRoutes_SignupVerifySessionFlow(t *testing.T) {
	s := newTestServer(t)

	token := s.signupAndVerify(t, "alice@example.com", "code-alpha")

	w := s.do(t, "GET", "/api/v1/auth/session-check", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var check datatypes.SessionCheckResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &check))
	assert.True(t, check.Valid)
	require.NotNil(t, check.User)
	assert.Equal(t, "alice@example.com", check.User.Email)
	assert.Equal(t, datatypes.TierLightweight, check.User.Tier)
}

func TestRoutes_VerifyReplayAnswersGone(t *testing.T) {
	s := newTestServer(t)
	s.signupAndVerify(t, "alice@example.com", "code-alpha")

	w := s.do(t, "POST", "/api/v1/auth/verify", "", gin.H{"token": "code-alpha"})
	require.Equal(t, http.StatusGone, w.Code)
	var envelope datatypes.ErrorEnvelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	assert.Equal(t, datatypes.ErrCodeTokenExpired, envelope.Error)
}

func TestRoutes_VerifyUnknownTokenAnswers401(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, "POST", "/api/v1/auth/verify", "", gin.H{"token": "never-issued"})
	require.Equal(t, http.StatusUnauthorized, w.Code)
	var envelope datatypes.ErrorEnvelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	assert.Equal(t, datatypes.ErrCodeVerificationFailed, envelope.Error)
}

func TestRoutes_SessionCheckIsProbeNotGate(t *testing.T) {
	s := newTestServer(t)

	for _, bearer := range []string{"", "garbage-token"} {
		w := s.do(t, "GET", "/api/v1/auth/session-check", bearer, nil)
		require.Equal(t, http.StatusOK, w.Code)
		var check datatypes.SessionCheckResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &check))
		assert.False(t, check.Valid)
		assert.Nil(t, check.User)
	}
}

func TestRoutes_RefreshRotatesToken(t *testing.T) {
	s := newTestServer(t)
	token := s.signupAndVerify(t, "alice@example.com", "code-alpha")

	w := s.do(t, "POST", "/api/v1/auth/refresh-token", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var resp datatypes.RefreshResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.Token)
	assert.NotEqual(t, token, resp.Token)

	// Past the grace window only the new token answers.
	s.clock.Advance(2 * time.Minute)
	w = s.do(t, "GET", "/api/v1/auth/session-check", token, nil)
	var check datatypes.SessionCheckResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &check))
	assert.False(t, check.Valid)

	w = s.do(t, "GET", "/api/v1/auth/session-check", resp.Token, nil)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &check))
	assert.True(t, check.Valid)
}

func TestRoutes_LogoutIsIdempotent(t *testing.T) {
	s := newTestServer(t)
	token := s.signupAndVerify(t, "alice@example.com", "code-alpha")

	w := s.do(t, "POST", "/api/v1/auth/logout", token, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	w = s.do(t, "POST", "/api/v1/auth/logout", token, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = s.do(t, "GET", "/api/v1/auth/session-check", token, nil)
	var check datatypes.SessionCheckResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &check))
	assert.False(t, check.Valid)
}

// =============================================================================
// Chat
// =============================================================================

func chatBody(message string) gin.H {
	return gin.H{
		"message": message,
		"context": gin.H{
			"mode":       "chat",
			"session_id": uuid.NewString(),
		},
	}
}

func TestRoutes_AnonymousChat(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, "POST", "/api/v1/chat", "", chatBody("what is photosynthesis?"))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp datatypes.ChatResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.Answer)
	require.Len(t, resp.Sources, 1)
	assert.Equal(t, "stub-passage-1", resp.Sources[0].ID)
	assert.Equal(t, "stub", resp.Metadata.Model)
}

func TestRoutes_ChatValidationAnswers422(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, "POST", "/api/v1/chat", "", gin.H{
		"message": "",
		"context": gin.H{"mode": "chat", "session_id": uuid.NewString()},
	})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestRoutes_SaveChatRequiresSession(t *testing.T) {
	s := newTestServer(t)

	body := gin.H{"messages": []gin.H{{"role": "user", "content": "hi"}}}

	w := s.do(t, "POST", "/api/v1/chat/save", "", body)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	token := s.signupAndVerify(t, "alice@example.com", "code-alpha")
	w = s.do(t, "POST", "/api/v1/chat/save", token, body)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp datatypes.SaveChatResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.ChatID)
}

func TestRoutes_SaveChatRateLimited(t *testing.T) {
	s := newTestServer(t)
	token := s.signupAndVerify(t, "alice@example.com", "code-alpha")
	body := gin.H{"messages": []gin.H{{"role": "user", "content": "hi"}}}

	for i := 0; i < 2; i++ {
		w := s.do(t, "POST", "/api/v1/chat/save", token, body)
		require.Equal(t, http.StatusOK, w.Code)
	}

	w := s.do(t, "POST", "/api/v1/chat/save", token, body)
	require.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.NotEmpty(t, w.Header().Get("Retry-After"))
	assert.Contains(t, w.Body.String(), "rate_limited")

	// The window recovers.
	s.clock.Advance(time.Minute)
	w = s.do(t, "POST", "/api/v1/chat/save", token, body)
	assert.Equal(t, http.StatusOK, w.Code)
}

// =============================================================================
// Personalize / Analytics / System
// =============================================================================

func TestRoutes_Personalize(t *testing.T) {
	s := newTestServer(t)
	token := s.signupAndVerify(t, "alice@example.com", "code-alpha")

	w := s.do(t, "POST", "/api/v1/user/personalize", token, gin.H{
		"preferences": gin.H{"interests": []string{"algebra"}},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp datatypes.PersonalizeResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Contains(t, resp.Recommendations, "topic:algebra")
	assert.Equal(t, "lightweight", resp.PersonalizedContent["tier"])
}

func TestRoutes_AnalyticsEvent(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, "POST", "/api/v1/analytics/event", "", gin.H{
		"event_type": "widget_open",
		"event_data": gin.H{"page": "/course/1"},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp datatypes.AnalyticsEventResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.EventID)
}

func TestRoutes_AnonSession(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, "POST", "/api/v1/anon-session", "", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp datatypes.AnonSessionResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	_, err := uuid.Parse(resp.SessionID)
	assert.NoError(t, err)
	_, err = uuid.Parse(resp.AnonID)
	assert.NoError(t, err)
}

func TestRoutes_Health(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, "GET", "/health", "", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp datatypes.HealthResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "connected", resp.Database)
}

func TestRoutes_MetricsSnapshot(t *testing.T) {
	s := newTestServer(t)
	s.do(t, "GET", "/health", "", nil)

	w := s.do(t, "GET", "/metrics", "", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var snap observability.Snapshot
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &snap))
	assert.GreaterOrEqual(t, snap.TotalRequests, int64(1))
}

func TestRoutes_EveryResponseCarriesHeaders(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, "GET", "/health", "", nil)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", w.Header().Get("X-Frame-Options"))
}
