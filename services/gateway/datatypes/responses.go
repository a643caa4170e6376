// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package datatypes

import "time"

// Source is one retrieved corpus passage backing an answer.
type Source struct {
	ID      string  `json:"id"`
	Title   string  `json:"title"`
	URL     string  `json:"url"`
	Excerpt string  `json:"excerpt"`
	Score   float64 `json:"score"`
}

// ChatMetadata reports model and timing detail for a chat answer.
type ChatMetadata struct {
	Model            string `json:"model"`
	TokensUsed       int    `json:"tokens_used"`
	RetrievalTimeMs  int64  `json:"retrieval_time_ms"`
	GenerationTimeMs int64  `json:"generation_time_ms"`
	TotalTimeMs      int64  `json:"total_time_ms"`
}

// ChatResponse is the success body of POST /api/v1/chat.
type ChatResponse struct {
	Answer   string       `json:"answer"`
	Sources  []Source     `json:"sources"`
	Metadata ChatMetadata `json:"metadata"`
}

// SaveChatResponse is the success body of POST /api/v1/chat/save.
type SaveChatResponse struct {
	ChatID  string    `json:"chat_id"`
	SavedAt time.Time `json:"saved_at"`
}

// PersonalizeResponse is the success body of POST /api/v1/user/personalize.
type PersonalizeResponse struct {
	Recommendations     []string       `json:"recommendations"`
	PersonalizedContent map[string]any `json:"personalized_content"`
}

// UserProfile is the public projection of a User.
type UserProfile struct {
	Email string `json:"email"`
	Tier  Tier   `json:"tier"`
}

// SignupResponse is the success body of POST /api/v1/auth/signup. The body
// is identical for new and already-registered addresses.
type SignupResponse struct {
	Status string `json:"status"`
}

// RefreshResponse is the success body of POST /api/v1/auth/refresh-token.
type RefreshResponse struct {
	Token string `json:"token"`
}

// VerifyResponse is the success body of POST /api/v1/auth/verify.
type VerifyResponse struct {
	SessionToken string      `json:"session_token"`
	UserProfile  UserProfile `json:"user_profile"`
}

// SessionCheckResponse is the body of GET /api/v1/auth/session-check.
// The probe never answers 401; invalid sessions report valid:false.
type SessionCheckResponse struct {
	Valid bool         `json:"valid"`
	User  *UserProfile `json:"user,omitempty"`
}

// AnonSessionResponse is the success body of POST /api/v1/anon-session.
type AnonSessionResponse struct {
	SessionID string `json:"session_id"`
	AnonID    string `json:"anon_id"`
}

// AnalyticsEventResponse is the success body of POST /api/v1/analytics/event.
type AnalyticsEventResponse struct {
	EventID  string    `json:"event_id"`
	LoggedAt time.Time `json:"logged_at"`
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status        string  `json:"status"`
	Database      string  `json:"database"`
	UptimeSeconds float64 `json:"uptime_seconds"`
}
