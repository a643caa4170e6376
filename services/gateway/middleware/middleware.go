// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package middleware provides HTTP middleware for the widget gateway.
//
// # Request Pipeline
//
//	Request
//	   │
//	   ▼
//	RequestID ──► SecurityHeaders ──► CORS ──► Recovery ──► Track
//	   │
//	   ├─► (authenticated routes) SessionAuth
//	   │
//	   ├─► (gated routes) RateLimit
//	   │
//	   ▼
//	Handler
//
// RequestID runs first so every later stage, including the recovery
// boundary, can correlate its output. SessionAuth stores the resolved user
// and session in the Gin context for handlers; RateLimit consumes the
// session token as the rate subject.
package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/AleutianAI/AleutianWidget/pkg/logging"
	"github.com/AleutianAI/AleutianWidget/services/gateway/datatypes"
)

// =============================================================================
// Context Keys
// =============================================================================

// Typed Gin context keys. Using fixed names prevents collisions with
// handler-set values.
const (
	authUserKey     = "aleutian_auth_user"
	authSessionKey  = "aleutian_auth_session"
	rateDecisionKey = "aleutian_rate_decision"
)

// =============================================================================
// Context Helpers
// =============================================================================

// SetAuthUser stores the authenticated user and session in the Gin context.
// Called by SessionAuth after a successful lookup.
func SetAuthUser(c *gin.Context, user datatypes.User, sess datatypes.Session) {
	c.Set(authUserKey, user)
	c.Set(authSessionKey, sess)
}

// GetAuthUser retrieves the authenticated user, or ok=false when the request
// did not pass SessionAuth.
func GetAuthUser(c *gin.Context) (datatypes.User, bool) {
	if v, exists := c.Get(authUserKey); exists {
		if user, ok := v.(datatypes.User); ok {
			return user, true
		}
	}
	return datatypes.User{}, false
}

// GetAuthSession retrieves the authenticated session, or ok=false.
func GetAuthSession(c *gin.Context) (datatypes.Session, bool) {
	if v, exists := c.Get(authSessionKey); exists {
		if sess, ok := v.(datatypes.Session); ok {
			return sess, true
		}
	}
	return datatypes.Session{}, false
}

// =============================================================================
// Shared Helpers
// =============================================================================

// AbortError terminates the request with the standard error envelope.
// The request id is injected from the request context.
func AbortError(c *gin.Context, status int, code datatypes.ErrorCode, message string) {
	c.AbortWithStatusJSON(status, datatypes.ErrorEnvelope{
		Error:     code,
		Message:   message,
		RequestID: logging.RequestIDFromContext(c.Request.Context()),
	})
}

// ExtractBearerToken extracts the token from the Authorization header.
// Expected format: "Bearer <token>"; the scheme is case-insensitive per
// RFC 7235. Returns empty string if the header is missing or malformed.
func ExtractBearerToken(c *gin.Context) string {
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		return ""
	}
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

// ClientIP returns the peer address Gin resolved for this request.
// Wrapped so callers inside this module never read headers directly.
func ClientIP(c *gin.Context) string {
	if ip := c.ClientIP(); ip != "" {
		return ip
	}
	return "unknown"
}

// SecurityHeaders sets the fixed response headers on every response,
// including error responses produced by later middleware.
func SecurityHeaders() gin.HandlerFunc {
	return func(c *gin.Context) {
		h := c.Writer.Header()
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("Referrer-Policy", "strict-origin-when-cross-origin")
		h.Set("Content-Security-Policy", "default-src 'self'")
		h.Set("X-XSS-Protection", "1; mode=block")
		c.Next()
	}
}

// CORS answers cross-origin requests for origins on the configured
// allowlist. Origins not on the list get no CORS headers at all; the
// browser enforces the rest. Preflight requests are answered directly.
func CORS(allowlist []string) gin.HandlerFunc {
	allowed := make(map[string]struct{}, len(allowlist))
	for _, o := range allowlist {
		allowed[strings.TrimRight(o, "/")] = struct{}{}
	}
	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		if origin != "" {
			if _, ok := allowed[strings.TrimRight(origin, "/")]; ok {
				h := c.Writer.Header()
				h.Set("Access-Control-Allow-Origin", origin)
				h.Set("Vary", "Origin")
				h.Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
				h.Set("Access-Control-Allow-Headers", "Authorization, Content-Type, X-Request-ID")
				h.Set("Access-Control-Max-Age", "600")
			}
		}
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}
