// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/AleutianAI/AleutianWidget/pkg/logging"
	"github.com/AleutianAI/AleutianWidget/services/gateway/auth"
	"github.com/AleutianAI/AleutianWidget/services/gateway/config"
	"github.com/AleutianAI/AleutianWidget/services/gateway/handlers"
	"github.com/AleutianAI/AleutianWidget/services/gateway/middleware"
	"github.com/AleutianAI/AleutianWidget/services/gateway/observability"
	"github.com/AleutianAI/AleutianWidget/services/gateway/ratelimit"
	"github.com/AleutianAI/AleutianWidget/services/gateway/store"
	"github.com/AleutianAI/AleutianWidget/services/personalize"
	"github.com/AleutianAI/AleutianWidget/services/retrieval"
)

// Deps carries everything the route table needs. Built once in main.
type Deps struct {
	Config   *config.Config
	Logger   *logging.Logger
	Store    *store.Store
	Auth     *auth.Service
	Limiter  *ratelimit.Limiter
	Edge     *ratelimit.EdgeLimiter
	Tracker  *observability.Tracker
	Metrics  *observability.GatewayMetrics
	Pipeline *retrieval.Pipeline
	Strategy personalize.Strategy
}

// SetupRoutes installs the middleware chain and the public route table.
//
// Ordering matters: RequestID first so every later stage can correlate,
// then the fixed headers and CORS (so even early aborts carry them), then
// the recovery boundary and metrics. Per-route gates (session auth, rate
// limits) are attached to individual routes, not globally.
func SetupRoutes(router *gin.Engine, d Deps) {
	router.Use(middleware.RequestID(d.Logger))
	router.Use(middleware.SecurityHeaders())
	router.Use(middleware.CORS(d.Config.CORSOrigins))
	router.Use(middleware.Recovery())
	router.Use(middleware.Track(d.Tracker, d.Metrics))
	if d.Edge != nil {
		router.Use(middleware.EdgeLimit(d.Edge))
	}

	router.GET("/health", handlers.HandleHealth(d.Store, d.Tracker))
	router.GET("/metrics", handlers.HandleMetrics(d.Tracker))
	router.GET("/metrics/prometheus", gin.WrapH(promhttp.Handler()))

	// API version 1 group
	v1 := router.Group("/api/v1")
	{
		v1.POST("/anon-session", handlers.HandleAnonSession())

		authGroup := v1.Group("/auth")
		{
			authGroup.POST("/signup", handlers.HandleSignup(d.Auth))
			authGroup.POST("/verify", handlers.HandleVerify(d.Auth, d.Metrics))
			// session-check is a probe and answers 200 for any token.
			authGroup.GET("/session-check", handlers.HandleSessionCheck(d.Auth))
			authGroup.POST("/refresh-token", handlers.HandleRefresh(d.Auth, d.Metrics))
			authGroup.POST("/logout", handlers.HandleLogout(d.Auth))
		}

		// Chat rate-limits inside the handler, keyed on the validated
		// session_id from the request body.
		v1.POST("/chat", handlers.HandleChat(d.Pipeline, d.Limiter, d.Metrics))

		v1.POST("/chat/save",
			middleware.SessionAuth(d.Auth),
			middleware.RateLimit(d.Limiter, d.Metrics, "save"),
			handlers.HandleSaveChat(d.Store))

		v1.POST("/user/personalize",
			middleware.SessionAuth(d.Auth),
			middleware.RateLimit(d.Limiter, d.Metrics, "personalize"),
			handlers.HandlePersonalize(d.Strategy))

		v1.POST("/analytics/event", handlers.HandleAnalyticsEvent(d.Store, d.Auth))
	}
}
