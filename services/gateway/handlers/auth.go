// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/AleutianAI/AleutianWidget/services/gateway/auth"
	"github.com/AleutianAI/AleutianWidget/services/gateway/datatypes"
	"github.com/AleutianAI/AleutianWidget/services/gateway/middleware"
	"github.com/AleutianAI/AleutianWidget/services/gateway/observability"
	"github.com/AleutianAI/AleutianWidget/services/gateway/store"
)

// HandleSignup accepts an email and consent flag, then always answers
// verification_sent on success. Whether the address already had an account
// is not observable from the response.
func HandleSignup(svc *auth.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req datatypes.SignupRequest
		if !bindJSON(c, &req) {
			return
		}
		if verr := req.Validate(); verr != nil {
			respondValidation(c, verr)
			return
		}

		if err := svc.Signup(c.Request.Context(), req.Email, req.ConsentDataStorage); err != nil {
			if errors.Is(err, store.ErrConsentRequired) {
				respondError(c, http.StatusBadRequest, datatypes.ErrCodeConsentRequired, "Data storage consent is required to create an account.")
				return
			}
			respondStoreError(c, err)
			return
		}
		c.JSON(http.StatusOK, datatypes.SignupResponse{Status: "verification_sent"})
	}
}

// HandleVerify exchanges a verification token for a session. A token that
// was already consumed or has aged out answers 410 TOKEN_EXPIRED; one that
// never existed answers 401 VERIFICATION_FAILED.
func HandleVerify(svc *auth.Service, metrics *observability.GatewayMetrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req datatypes.VerifyRequest
		if !bindJSON(c, &req) {
			return
		}
		if verr := req.Validate(); verr != nil {
			respondValidation(c, verr)
			return
		}

		sess, user, err := svc.Verify(c.Request.Context(), req.Token)
		switch {
		case errors.Is(err, store.ErrExpired):
			respondError(c, http.StatusGone, datatypes.ErrCodeTokenExpired, "Verification token has expired or was already used. Sign up again for a new one.")
			return
		case errors.Is(err, store.ErrNotFound):
			respondError(c, http.StatusUnauthorized, datatypes.ErrCodeVerificationFailed, "Verification failed.")
			return
		case err != nil:
			respondStoreError(c, err)
			return
		}

		if metrics != nil {
			metrics.RecordSessionIssued("verified")
		}
		c.JSON(http.StatusOK, datatypes.VerifyResponse{
			SessionToken: sess.Token,
			UserProfile:  datatypes.UserProfile{Email: user.Email, Tier: user.Tier},
		})
	}
}

// HandleSessionCheck is a probe, not a gate: expired or unknown tokens
// answer 200 {valid:false}, never 401.
func HandleSessionCheck(svc *auth.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := middleware.ExtractBearerToken(c)
		if token == "" {
			c.JSON(http.StatusOK, datatypes.SessionCheckResponse{Valid: false})
			return
		}

		_, user, err := svc.SessionCheck(c.Request.Context(), token)
		switch {
		case errors.Is(err, store.ErrNotFound) || errors.Is(err, store.ErrExpired):
			c.JSON(http.StatusOK, datatypes.SessionCheckResponse{Valid: false})
			return
		case err != nil:
			respondStoreError(c, err)
			return
		}

		c.JSON(http.StatusOK, datatypes.SessionCheckResponse{
			Valid: true,
			User:  &datatypes.UserProfile{Email: user.Email, Tier: user.Tier},
		})
	}
}

// HandleRefresh rotates the presented bearer token. Unknown and expired
// tokens both answer 401 SESSION_EXPIRED.
func HandleRefresh(svc *auth.Service, metrics *observability.GatewayMetrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := middleware.ExtractBearerToken(c)
		if token == "" {
			respondError(c, http.StatusUnauthorized, datatypes.ErrCodeUnauthorized, "Missing or malformed Authorization header.")
			return
		}

		sess, err := svc.Refresh(c.Request.Context(), token)
		switch {
		case errors.Is(err, store.ErrNotFound) || errors.Is(err, store.ErrExpired):
			respondError(c, http.StatusUnauthorized, datatypes.ErrCodeSessionExpired, "Session has expired. Sign in again.")
			return
		case err != nil:
			respondStoreError(c, err)
			return
		}

		if metrics != nil {
			metrics.RecordSessionIssued("refresh")
		}
		c.JSON(http.StatusOK, datatypes.RefreshResponse{Token: sess.Token})
	}
}

// HandleLogout revokes the presented token. Idempotent 204: logging out an
// unknown or already-revoked token is still success.
func HandleLogout(svc *auth.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := middleware.ExtractBearerToken(c)
		if token != "" {
			if err := svc.Logout(c.Request.Context(), token); err != nil {
				respondStoreError(c, err)
				return
			}
		}
		c.Status(http.StatusNoContent)
	}
}
