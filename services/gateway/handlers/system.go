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
	"github.com/google/uuid"

	"github.com/AleutianAI/AleutianWidget/services/gateway/datatypes"
	"github.com/AleutianAI/AleutianWidget/services/gateway/observability"
	"github.com/AleutianAI/AleutianWidget/services/gateway/store"
)

// HandleHealth reports liveness plus store reachability. A dead store
// degrades the report instead of failing it, so orchestrators keep routing
// health probes while operators investigate.
func HandleHealth(st *store.Store, tracker *observability.Tracker) gin.HandlerFunc {
	return func(c *gin.Context) {
		resp := datatypes.HealthResponse{
			Status:        "ok",
			Database:      "connected",
			UptimeSeconds: tracker.Uptime().Seconds(),
		}
		if err := st.Ping(c.Request.Context()); err != nil {
			resp.Status = "degraded"
			resp.Database = "disconnected"
		}
		c.JSON(http.StatusOK, resp)
	}
}

// HandleMetrics serves the lightweight JSON counter snapshot. The full
// Prometheus exposition lives at /metrics/prometheus.
func HandleMetrics(tracker *observability.Tracker) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, tracker.Snapshot())
	}
}

// HandleAnonSession mints an anonymous grouping id pair. Nothing is stored;
// the ids only correlate analytics events and anonymous rate subjects.
func HandleAnonSession() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, datatypes.AnonSessionResponse{
			SessionID: uuid.NewString(),
			AnonID:    uuid.NewString(),
		})
	}
}
