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
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/AleutianAI/AleutianWidget/pkg/logging"
	"github.com/AleutianAI/AleutianWidget/services/gateway/datatypes"
	"github.com/AleutianAI/AleutianWidget/services/gateway/middleware"
	"github.com/AleutianAI/AleutianWidget/services/gateway/observability"
	"github.com/AleutianAI/AleutianWidget/services/gateway/ratelimit"
	"github.com/AleutianAI/AleutianWidget/services/gateway/store"
	"github.com/AleutianAI/AleutianWidget/services/retrieval"
)

var chatTracer = otel.Tracer("aleutian.widget.handlers")

// HandleChat answers one widget question through the retrieval pipeline.
//
// Anonymous callers are accepted; the request-level session_id only scopes
// rate limiting and analytics, it is not an authentication credential. The
// rate check runs here rather than in middleware because the subject is the
// validated session_id from the request body, which only exists after
// binding and validation succeed.
func HandleChat(pipeline *retrieval.Pipeline, limiter *ratelimit.Limiter, metrics *observability.GatewayMetrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := chatTracer.Start(c.Request.Context(), "HandleChat")
		defer span.End()

		var req datatypes.ChatRequest
		if !bindJSON(c, &req) {
			span.SetStatus(codes.Error, "bind failed")
			return
		}
		if verr := req.Validate(); verr != nil {
			span.SetStatus(codes.Error, verr.Message)
			respondValidation(c, verr)
			return
		}
		span.SetAttributes(
			attribute.String("mode", req.Context.Mode),
			attribute.String("tier", req.Tier),
		)

		decision, err := limiter.Check(ctx, req.Context.SessionID, "chat")
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			logging.FromContext(ctx).Error("rate_check_failed",
				"action", "chat", "error", err.Error())
			respondError(c, http.StatusServiceUnavailable, datatypes.ErrCodeServiceUnavailable, "Rate limiting is temporarily unavailable.")
			return
		}
		if !decision.Allowed {
			if metrics != nil {
				metrics.RecordRateLimited("chat")
			}
			logging.FromContext(ctx).Warn("rate_limited",
				"action", "chat", "retry_after", decision.RetryAfter)
			c.Header("Retry-After", strconv.Itoa(decision.RetryAfter))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, datatypes.NewRateLimitDetail(decision.RetryAfter))
			return
		}

		start := time.Now()
		answer, err := pipeline.Ask(ctx, retrieval.Query{
			Text:         req.Message,
			Mode:         req.Context.Mode,
			SelectedText: req.Context.SelectedText,
			PageURL:      req.Context.PageURL,
			Tier:         req.Tier,
		})
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			logging.FromContext(ctx).Error("chat_pipeline_failed", "error", err.Error())
			if errors.Is(err, retrieval.ErrTimeout) {
				respondError(c, http.StatusGatewayTimeout, datatypes.ErrCodeRequestTimeout, "The answer took too long to produce. Please retry.")
				return
			}
			respondError(c, http.StatusServiceUnavailable, datatypes.ErrCodeServiceUnavailable, "The assistant is temporarily unavailable. Please retry.")
			return
		}

		sources := make([]datatypes.Source, 0, len(answer.Sources))
		for _, p := range answer.Sources {
			sources = append(sources, datatypes.Source{
				ID:      p.ID,
				Title:   p.Title,
				URL:     p.URL,
				Excerpt: p.Excerpt,
				Score:   p.Score,
			})
		}

		c.JSON(http.StatusOK, datatypes.ChatResponse{
			Answer:  answer.Text,
			Sources: sources,
			Metadata: datatypes.ChatMetadata{
				Model:            answer.Model,
				TokensUsed:       answer.TokensUsed,
				RetrievalTimeMs:  answer.RetrievalTime.Milliseconds(),
				GenerationTimeMs: answer.GenerationTime.Milliseconds(),
				TotalTimeMs:      time.Since(start).Milliseconds(),
			},
		})
	}
}

// HandleSaveChat persists the caller's transcript. Requires an
// authenticated session; chats are keyed to the user, never the session.
func HandleSaveChat(st *store.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := middleware.GetAuthUser(c)
		if !ok {
			respondError(c, http.StatusUnauthorized, datatypes.ErrCodeUnauthorized, "Saving chats requires a signed-in session.")
			return
		}

		var req datatypes.SaveChatRequest
		if !bindJSON(c, &req) {
			return
		}
		if verr := req.Validate(); verr != nil {
			respondValidation(c, verr)
			return
		}

		saved, err := st.SaveChat(c.Request.Context(), user.ID, req.Title, req.Messages)
		if err != nil {
			respondStoreError(c, err)
			return
		}

		logging.FromContext(c.Request.Context()).Info("chat_saved",
			"chat_id", saved.ChatID, "messages", len(req.Messages))
		c.JSON(http.StatusOK, datatypes.SaveChatResponse{
			ChatID:  saved.ChatID,
			SavedAt: saved.SavedAt,
		})
	}
}
