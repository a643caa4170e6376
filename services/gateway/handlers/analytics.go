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
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/AleutianAI/AleutianWidget/services/gateway/datatypes"
	"github.com/AleutianAI/AleutianWidget/services/gateway/middleware"
	"github.com/AleutianAI/AleutianWidget/services/gateway/store"
)

// HandleAnalyticsEvent appends one event to the analytics stream.
//
// Anonymous events are accepted; when the caller carries a valid session
// the event is attributed to the user. The body is hard-capped at 4 KiB so
// the stream cannot be used as blob storage, and the event is durably
// committed before the 200 goes out.
func HandleAnalyticsEvent(st *store.Store, resolver middleware.SessionResolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, datatypes.MaxAnalyticsBodyBytes)

		var req datatypes.AnalyticsEventRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondError(c, http.StatusUnprocessableEntity, datatypes.ErrCodeInvalidRequest, "Event body is malformed or exceeds the size limit.")
			return
		}
		if verr := req.Validate(); verr != nil {
			respondValidation(c, verr)
			return
		}

		ev := datatypes.AnalyticsEvent{
			EventType: req.EventType,
			Payload:   req.EventData,
		}
		// Attribution is best effort: a dead token degrades to anonymous
		// rather than rejecting the event.
		if token := middleware.ExtractBearerToken(c); token != "" {
			ev.SessionToken = token
			if _, user, err := resolver.SessionCheck(c.Request.Context(), token); err == nil {
				ev.UserID = user.ID
			}
		}

		stored, err := st.AppendEvent(c.Request.Context(), ev)
		if err != nil {
			respondStoreError(c, err)
			return
		}

		c.JSON(http.StatusOK, datatypes.AnalyticsEventResponse{
			EventID:  stored.ID,
			LoggedAt: stored.Timestamp,
		})
	}
}
