// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package handlers contains the HTTP handlers for the widget gateway.
//
// Handlers stay thin: bind, validate via the request types, call one
// service operation, translate errors onto the wire taxonomy. Nothing here
// touches badger directly and nothing below here writes HTTP.
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/AleutianAI/AleutianWidget/pkg/logging"
	"github.com/AleutianAI/AleutianWidget/services/gateway/datatypes"
	"github.com/AleutianAI/AleutianWidget/services/gateway/store"
)

// respondError writes the standard error envelope.
func respondError(c *gin.Context, status int, code datatypes.ErrorCode, message string) {
	c.JSON(status, datatypes.ErrorEnvelope{
		Error:     code,
		Message:   message,
		RequestID: logging.RequestIDFromContext(c.Request.Context()),
	})
}

// respondValidation maps a request validation failure onto its HTTP status.
func respondValidation(c *gin.Context, verr *datatypes.ValidationError) {
	status := http.StatusUnprocessableEntity
	switch verr.Code {
	case datatypes.ErrCodeConsentRequired:
		status = http.StatusBadRequest
	case datatypes.ErrCodeInvalidSessionID:
		status = http.StatusBadRequest
	}
	respondError(c, status, verr.Code, verr.Message)
}

// respondStoreError translates store sentinel errors a handler did not map
// itself. ErrNotFound is deliberately absent: its meaning depends on the
// operation, so handlers must map it before reaching here.
func respondStoreError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, store.ErrUnavailable):
		respondError(c, http.StatusServiceUnavailable, datatypes.ErrCodeServiceUnavailable, "The service is temporarily unavailable. Please retry.")
	default:
		logging.FromContext(c.Request.Context()).Error("request_failed", "error", err.Error())
		respondError(c, http.StatusInternalServerError, datatypes.ErrCodeInternal, "An unexpected error occurred. Please try again later.")
	}
}

// bindJSON decodes the body, answering the envelope on malformed input.
func bindJSON(c *gin.Context, out any) bool {
	if err := c.ShouldBindJSON(out); err != nil {
		respondError(c, http.StatusUnprocessableEntity, datatypes.ErrCodeInvalidRequest, "Request body is not valid JSON for this endpoint.")
		return false
	}
	return true
}
