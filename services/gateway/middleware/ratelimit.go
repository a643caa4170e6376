// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package middleware

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/AleutianAI/AleutianWidget/pkg/logging"
	"github.com/AleutianAI/AleutianWidget/services/gateway/datatypes"
	"github.com/AleutianAI/AleutianWidget/services/gateway/observability"
	"github.com/AleutianAI/AleutianWidget/services/gateway/ratelimit"
)

// RateLimit gates one action behind the durable fixed-window limiter.
//
// The rate subject is the session token presented by the caller when
// SessionAuth ran earlier in the chain, so every session carries its own
// allowance. The client IP is only a fallback for routes wired without
// SessionAuth. Denials answer 429 with the fixed detail body and a
// Retry-After header; limiter backend failures deny closed with 503 rather
// than letting an outage disable limits.
func RateLimit(limiter *ratelimit.Limiter, metrics *observability.GatewayMetrics, action string) gin.HandlerFunc {
	return func(c *gin.Context) {
		subject := ClientIP(c)
		if sess, ok := GetAuthSession(c); ok {
			subject = sess.Token
		}

		decision, err := limiter.Check(c.Request.Context(), subject, action)
		if err != nil {
			logging.FromContext(c.Request.Context()).Error("rate_check_failed",
				"action", action, "error", err.Error())
			AbortError(c, http.StatusServiceUnavailable, datatypes.ErrCodeServiceUnavailable, "Rate limiting is temporarily unavailable.")
			return
		}
		if !decision.Allowed {
			if metrics != nil {
				metrics.RecordRateLimited(action)
			}
			logging.FromContext(c.Request.Context()).Warn("rate_limited",
				"action", action, "retry_after", decision.RetryAfter)
			c.Header("Retry-After", strconv.Itoa(decision.RetryAfter))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, datatypes.NewRateLimitDetail(decision.RetryAfter))
			return
		}

		c.Set(rateDecisionKey, decision)
		c.Next()
	}
}

// GetRateDecision returns the decision recorded by RateLimit, or ok=false
// on routes without a gate.
func GetRateDecision(c *gin.Context) (ratelimit.Decision, bool) {
	if v, exists := c.Get(rateDecisionKey); exists {
		if d, ok := v.(ratelimit.Decision); ok {
			return d, true
		}
	}
	return ratelimit.Decision{}, false
}

// EdgeLimit sheds request floods per client IP before any store traffic.
// Denials reuse the 429 detail body with a nominal one second retry hint.
func EdgeLimit(edge *ratelimit.EdgeLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !edge.Allow(ClientIP(c)) {
			c.Header("Retry-After", "1")
			c.AbortWithStatusJSON(http.StatusTooManyRequests, datatypes.NewRateLimitDetail(1))
			return
		}
		c.Next()
	}
}
