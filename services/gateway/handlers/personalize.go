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
	"github.com/AleutianAI/AleutianWidget/services/personalize"
)

// HandlePersonalize computes recommendations for the signed-in user via the
// injected strategy. Results are recomputed per call; nothing is cached or
// persisted.
func HandlePersonalize(strategy personalize.Strategy) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := middleware.GetAuthUser(c)
		if !ok {
			respondError(c, http.StatusUnauthorized, datatypes.ErrCodeUnauthorized, "Personalization requires a signed-in session.")
			return
		}

		var req datatypes.PersonalizeRequest
		if !bindJSON(c, &req) {
			return
		}
		if verr := req.Validate(); verr != nil {
			respondValidation(c, verr)
			return
		}

		result, err := strategy.Personalize(c.Request.Context(), personalize.Request{
			User:      user,
			Interests: interestsFromPreferences(req.Preferences),
		})
		if err != nil {
			respondStoreError(c, err)
			return
		}

		c.JSON(http.StatusOK, datatypes.PersonalizeResponse{
			Recommendations:     result.Recommendations,
			PersonalizedContent: result.PersonalizedContent,
		})
	}
}

// interestsFromPreferences pulls the "interests" string list out of the
// free-form preferences object, tolerating absent or oddly-typed values.
func interestsFromPreferences(prefs map[string]any) []string {
	raw, ok := prefs["interests"]
	if !ok {
		return nil
	}
	list, ok := raw.([]any)
	if !ok {
		return nil
	}
	var out []string
	for _, item := range list {
		if s, ok := item.(string); ok && s != "" {
			out = append(out, s)
		}
	}
	return out
}
