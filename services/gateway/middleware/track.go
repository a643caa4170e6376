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
	"time"

	"github.com/gin-gonic/gin"

	"github.com/AleutianAI/AleutianWidget/services/gateway/observability"
)

// Track feeds both metric views: the Prometheus registry and the
// lightweight in-process tracker behind the JSON /metrics snapshot.
func Track(tracker *observability.Tracker, metrics *observability.GatewayMetrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		if metrics != nil {
			metrics.ActiveRequests.Inc()
		}

		c.Next()

		elapsed := time.Since(start)
		status := c.Writer.Status()
		endpoint := c.FullPath()
		if endpoint == "" {
			endpoint = "unmatched"
		}

		if metrics != nil {
			metrics.ActiveRequests.Dec()
			metrics.RecordRequest(endpoint, status, elapsed.Seconds())
		}
		if tracker != nil {
			tracker.Observe(
				float64(elapsed.Microseconds())/1000.0,
				status >= http.StatusInternalServerError,
				status == http.StatusTooManyRequests,
			)
		}
	}
}
