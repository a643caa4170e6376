// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package datatypes provides data structures for the widget gateway service.
//
// This file contains the persistent entities owned by the Store. Wire-level
// request and response types live in requests.go and responses.go.
package datatypes

import "time"

// =============================================================================
// Tiers
// =============================================================================

// Tier is the service level attached to a user or request.
type Tier string

const (
	// TierAnonymous is an unauthenticated widget visitor.
	TierAnonymous Tier = "anonymous"

	// TierLightweight is the default tier after email verification.
	TierLightweight Tier = "lightweight"

	// TierFull is a fully provisioned account.
	TierFull Tier = "full"

	// TierPremium is a paid account.
	TierPremium Tier = "premium"
)

// ValidTier reports whether s names a known tier.
func ValidTier(s string) bool {
	switch Tier(s) {
	case TierAnonymous, TierLightweight, TierFull, TierPremium:
		return true
	}
	return false
}

// =============================================================================
// Entities
// =============================================================================

// User is an account identified by a case-insensitive unique email.
type User struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Verified  bool      `json:"verified"`
	Tier      Tier      `json:"tier"`
	CreatedAt time.Time `json:"created_at"`
}

// Session is an opaque bearer token bound to a user.
//
// An expired or unknown token never authenticates. After a refresh the
// pre-refresh token stays valid until its rewritten ExpiresAt (now + grace).
type Session struct {
	Token     string    `json:"token"`
	UserID    string    `json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Expired reports whether the session no longer authenticates at now.
func (s Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

// VerificationToken is a single-use email verification token.
// A newer token for the same email invalidates any earlier one. Consumed
// tokens stay recorded with Used set until pruned, so a replayed token is
// distinguishable from one that never existed.
type VerificationToken struct {
	Token     string    `json:"token"`
	Email     string    `json:"email"`
	ExpiresAt time.Time `json:"expires_at"`
	Used      bool      `json:"used,omitempty"`
}

// Expired reports whether the token can no longer be consumed at now.
func (t VerificationToken) Expired(now time.Time) bool {
	return !now.Before(t.ExpiresAt)
}

// RateCounter is a fixed-window counter keyed by (subject, action).
type RateCounter struct {
	Count       int       `json:"count"`
	WindowStart time.Time `json:"window_start"`
}

// SavedChat is a serialized message list stored for a user.
type SavedChat struct {
	ChatID   string    `json:"chat_id"`
	UserID   string    `json:"user_id"`
	Title    string    `json:"title,omitempty"`
	Messages []Message `json:"messages"`
	SavedAt  time.Time `json:"saved_at"`
}

// Message is one chat turn.
type Message struct {
	Role    string `json:"role" validate:"required,oneof=user assistant system"`
	Content string `json:"content" validate:"required"`
}

// AnalyticsEvent is an append-only usage event. Either UserID or
// SessionToken may be empty; anonymous events carry only a session id
// inside the payload.
type AnalyticsEvent struct {
	ID           string         `json:"id"`
	UserID       string         `json:"user_id,omitempty"`
	SessionToken string         `json:"session_token,omitempty"`
	EventType    string         `json:"event_type"`
	Payload      map[string]any `json:"payload,omitempty"`
	Timestamp    time.Time      `json:"timestamp"`
}

// AnalyticsEventTypes is the enumerated set accepted by the ingest endpoint.
var AnalyticsEventTypes = map[string]struct{}{
	"widget_open":   {},
	"widget_close":  {},
	"chat_message":  {},
	"save_chat":     {},
	"personalize":   {},
	"session_start": {},
	"session_end":   {},
	"error":         {},
}

// ValidEventType reports whether s is an accepted analytics event type.
func ValidEventType(s string) bool {
	_, ok := AnalyticsEventTypes[s]
	return ok
}
