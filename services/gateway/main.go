// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"net/smtp"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/weaviate/weaviate-go-client/v5/weaviate"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"golang.org/x/sync/errgroup"

	"github.com/AleutianAI/AleutianWidget/pkg/clock"
	"github.com/AleutianAI/AleutianWidget/pkg/logging"
	"github.com/AleutianAI/AleutianWidget/services/gateway/auth"
	"github.com/AleutianAI/AleutianWidget/services/gateway/config"
	"github.com/AleutianAI/AleutianWidget/services/gateway/observability"
	"github.com/AleutianAI/AleutianWidget/services/gateway/ratelimit"
	"github.com/AleutianAI/AleutianWidget/services/gateway/routes"
	"github.com/AleutianAI/AleutianWidget/services/gateway/store"
	"github.com/AleutianAI/AleutianWidget/services/personalize"
	"github.com/AleutianAI/AleutianWidget/services/retrieval"
)

const serviceName = "widget-gateway"

// pruneInterval drives the background expiry sweep.
const pruneInterval = 10 * time.Minute

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	logger := logging.New(logging.Config{
		Level:   logging.ParseLevel(cfg.LogLevel),
		Service: serviceName,
	})

	warnings, err := cfg.Validate()
	if err != nil {
		// Fail before any listener opens; an unsafe production config must
		// not serve a single request.
		log.Fatalf("configuration rejected: %v", err)
	}
	for _, w := range warnings {
		logger.Warn("config_warning", "warning", w)
	}
	logger.Info("service_starting",
		"port", cfg.Port,
		"integration_test_mode", cfg.IntegrationTestMode,
		"email_enabled", cfg.EmailEnabled,
	)

	// --- Init the tracer ---
	cleanup, err := observability.InitTracer(serviceName, logger)
	if err != nil {
		log.Fatalf("failed to setup the OTLP tracer: %v", err)
	}
	defer cleanup(context.Background())

	clk := clock.SystemClock{}
	ids := clock.SystemIDSource{}

	st, err := store.Open(store.Config{
		URL:    cfg.DatabaseURL,
		Clock:  clk,
		IDs:    ids,
		Logger: logger,
	})
	if err != nil {
		log.Fatalf("failed to open store: %v", err)
	}
	defer st.Close()

	if cfg.IntegrationTestMode {
		if err := st.SeedIntegrationFixtures(context.Background(), cfg.VerificationTTL); err != nil {
			log.Fatalf("failed to seed integration fixtures: %v", err)
		}
		logger.Info("integration_fixtures_seeded")
	}

	metrics := observability.InitMetrics()
	tracker := observability.NewTracker(clk)

	limiter := ratelimit.NewLimiter(st, cfg.RateLimits)
	if cfg.RateLimitPolicyFile != "" {
		if policies, err := config.LoadRatePolicyFile(cfg.RateLimitPolicyFile); err != nil {
			logger.Warn("rate_policy_file_invalid", "path", cfg.RateLimitPolicyFile, "error", err.Error())
		} else {
			limiter.SetPolicies(mergePolicies(cfg.RateLimits, policies))
		}
	}
	// The per-IP edge limiter stays off in integration-test mode so suites
	// can drive request floods without tripping it.
	var edge *ratelimit.EdgeLimiter
	if !cfg.IntegrationTestMode {
		edge = ratelimit.NewEdgeLimiter(20, 40)
	}

	mailer := buildMailer(cfg, logger)
	authService := auth.NewService(st, cfg, mailer, clk, ids, logger)

	pipeline := buildPipeline(cfg, logger)

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(otelgin.Middleware(serviceName))
	routes.SetupRoutes(router, routes.Deps{
		Config:   cfg,
		Logger:   logger,
		Store:    st,
		Auth:     authService,
		Limiter:  limiter,
		Edge:     edge,
		Tracker:  tracker,
		Metrics:  metrics,
		Pipeline: pipeline,
		Strategy: personalize.TierStrategy{},
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("listener_starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	// Background maintenance: expiry sweep and edge-bucket eviction.
	g.Go(func() error {
		ticker := time.NewTicker(pruneInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return nil
			case <-ticker.C:
				stats, err := st.PruneExpired(ctx)
				if err != nil {
					logger.Warn("prune_failed", "error", err.Error())
					continue
				}
				logger.Debug("prune_completed",
					"sessions", stats.Sessions,
					"verification_tokens", stats.VerificationTokens,
					"rate_counters", stats.RateCounters,
				)
			}
		}
	})
	if edge != nil {
		g.Go(func() error {
			edge.Sweep(ctx, time.Minute)
			return nil
		})
	}

	if cfg.RateLimitPolicyFile != "" {
		g.Go(func() error {
			return config.WatchRatePolicyFile(ctx, cfg.RateLimitPolicyFile, logger, func(policies map[string]config.RatePolicy) {
				limiter.SetPolicies(mergePolicies(cfg.RateLimits, policies))
			})
		})
	}

	g.Go(func() error {
		<-ctx.Done()
		logger.Info("shutdown_started", "grace_seconds", cfg.ShutdownGrace.Seconds())
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownGrace)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Fatalf("gateway exited with error: %v", err)
	}
	logger.Info("shutdown_complete")
}

// mergePolicies overlays file-provided policies on the configured defaults
// without mutating either input.
func mergePolicies(base, overlay map[string]config.RatePolicy) map[string]config.RatePolicy {
	merged := make(map[string]config.RatePolicy, len(base))
	for action, p := range base {
		merged[action] = p
	}
	for action, p := range overlay {
		merged[action] = p
	}
	return merged
}

// buildMailer selects the outbound mail path. Disabled email (the default
// outside production) uses the logging no-op sender.
func buildMailer(cfg *config.Config, logger *logging.Logger) auth.MailSender {
	if !cfg.EmailEnabled || cfg.SMTPHost == "" {
		return &auth.NopSender{Logger: logger}
	}
	var smtpAuth smtp.Auth
	if user := os.Getenv("SMTP_USERNAME"); user != "" {
		smtpAuth = smtp.PlainAuth("", user, os.Getenv("SMTP_PASSWORD"), cfg.SMTPHost)
	}
	return &auth.SMTPSender{
		Host: cfg.SMTPHost,
		Port: cfg.SMTPPort,
		From: cfg.SMTPFrom,
		Auth: smtpAuth,
	}
}

// buildPipeline wires the retrieval collaborator. Integration-test mode and
// missing backends both fall back to the deterministic stubs so the gateway
// can run standalone.
func buildPipeline(cfg *config.Config, logger *logging.Logger) *retrieval.Pipeline {
	if cfg.IntegrationTestMode {
		return retrieval.NewPipeline(retrieval.StubRetriever{}, retrieval.StubGenerator{})
	}

	var retriever retrieval.Retriever = retrieval.StubRetriever{}
	weaviateURL := strings.Trim(os.Getenv("WEAVIATE_SERVICE_URL"), "\"' ")
	if weaviateURL != "" && strings.Contains(weaviateURL, "http") {
		parsedURL, err := url.Parse(weaviateURL)
		if err == nil && parsedURL.Host != "" {
			client, err := weaviate.NewClient(weaviate.Config{
				Host:   parsedURL.Host,
				Scheme: parsedURL.Scheme,
			})
			if err != nil {
				logger.Warn("weaviate_client_failed", "error", err.Error())
			} else {
				retriever = retrieval.NewWeaviateRetriever(client)
			}
		} else {
			logger.Warn("weaviate_url_invalid", "url", weaviateURL)
		}
	} else {
		logger.Warn("weaviate_not_configured")
	}

	var generator retrieval.Generator = retrieval.StubGenerator{}
	if os.Getenv("OPENAI_API_KEY") != "" || os.Getenv("GENERATOR_BASE_URL") != "" {
		generator = retrieval.NewOpenAIGenerator(cfg.GeneratorModel)
	} else {
		logger.Warn("generator_not_configured")
	}

	return retrieval.NewPipeline(retriever, generator)
}
