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
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/AleutianAI/AleutianWidget/pkg/logging"
)

// requestIDHeader carries the correlation id in both directions.
const requestIDHeader = "X-Request-ID"

// maxRequestIDLen caps client-supplied ids so a hostile header cannot bloat
// every log line.
const maxRequestIDLen = 128

// RequestID gives every request a correlation identity.
//
// A client-supplied X-Request-ID is adopted when it passes length and
// charset validation; anything else is replaced with a fresh UUID v4. The
// id is echoed on the response, and a correlated logger is bound into the
// request context so downstream code logs it automatically via
// logging.FromContext. Must be the first middleware in the chain.
func RequestID(base *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if !validRequestID(id) {
			id = uuid.NewString()
		}

		c.Writer.Header().Set(requestIDHeader, id)
		ctx := logging.ContextWithRequestID(c.Request.Context(), base, id)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// validRequestID accepts 1..128 characters of [A-Za-z0-9._-].
func validRequestID(id string) bool {
	if id == "" || len(id) > maxRequestIDLen {
		return false
	}
	for _, r := range id {
		switch {
		case r >= 'a' && r <= 'z':
		case r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9':
		case r == '-' || r == '_' || r == '.':
		default:
			return false
		}
	}
	return true
}
