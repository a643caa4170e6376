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
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/gin-gonic/gin"

	"github.com/AleutianAI/AleutianWidget/pkg/logging"
	"github.com/AleutianAI/AleutianWidget/services/gateway/datatypes"
)

// internalErrorMessage is the only text a panicking handler can leak.
const internalErrorMessage = "An unexpected error occurred. Please try again later."

// Recovery is the global failure boundary. Any panic below it is logged
// with the full stack and request id, then converted into the fixed 500
// envelope. The stack never crosses into the response body.
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				ctx := c.Request.Context()
				logging.FromContext(ctx).Error("unhandled_exception",
					"panic", fmt.Sprintf("%v", r),
					"path", c.FullPath(),
					"method", c.Request.Method,
					"stack", string(debug.Stack()),
				)
				c.AbortWithStatusJSON(http.StatusInternalServerError, datatypes.ErrorEnvelope{
					Error:     datatypes.ErrCodeInternal,
					Message:   internalErrorMessage,
					RequestID: logging.RequestIDFromContext(ctx),
				})
			}
		}()
		c.Next()
	}
}
