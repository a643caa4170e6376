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
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/AleutianAI/AleutianWidget/services/gateway/datatypes"
	"github.com/AleutianAI/AleutianWidget/services/gateway/store"
)

// SessionResolver resolves a bearer token to a session and its user.
// Satisfied by the auth service.
type SessionResolver interface {
	SessionCheck(ctx context.Context, token string) (datatypes.Session, datatypes.User, error)
}

// SessionAuth authenticates requests on protected routes.
//
// The bearer token from the Authorization header is resolved against the
// store. A missing or unknown token aborts with 401 UNAUTHORIZED; a token
// past its expiry aborts with 401 SESSION_EXPIRED so clients can
// distinguish "log in again" from "you were never logged in". On success
// the user and session are stored in the Gin context for the handler.
func SessionAuth(resolver SessionResolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := ExtractBearerToken(c)
		if token == "" {
			AbortError(c, http.StatusUnauthorized, datatypes.ErrCodeUnauthorized, "Missing or malformed Authorization header.")
			return
		}

		sess, user, err := resolver.SessionCheck(c.Request.Context(), token)
		switch {
		case errors.Is(err, store.ErrExpired):
			AbortError(c, http.StatusUnauthorized, datatypes.ErrCodeSessionExpired, "Session has expired. Sign in again.")
			return
		case errors.Is(err, store.ErrNotFound):
			AbortError(c, http.StatusUnauthorized, datatypes.ErrCodeUnauthorized, "Invalid session token.")
			return
		case err != nil:
			AbortError(c, http.StatusServiceUnavailable, datatypes.ErrCodeServiceUnavailable, "Session lookup is temporarily unavailable.")
			return
		}

		SetAuthUser(c, user, sess)
		c.Next()
	}
}
