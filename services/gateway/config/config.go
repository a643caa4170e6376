// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package config loads and validates deployment-time parameters for the
// widget gateway.
//
// Configuration is read from the environment exactly once at startup into a
// single Config value; nothing else in the service reads os.Getenv. In
// production mode unsafe values (missing or sentinel SECRET_KEY, missing
// DATABASE_URL, missing or wildcard CORS_ORIGINS) terminate the process
// before any listener opens.
//
// Integration-test mode (INTEGRATION_TEST_MODE=true) is an explicit branch:
// it relaxes the secret requirement, disables outbound email, seeds test
// fixtures, and shrinks rate-limit windows so denial paths can be exercised
// in seconds. It changes nothing else.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// =============================================================================
// Defaults
// =============================================================================

const (
	// DefaultSecretSentinel is the development placeholder that must never
	// reach production.
	DefaultSecretSentinel = "dev-secret-change-me"

	defaultPort               = "8080"
	defaultSessionTTLSeconds  = 86400
	defaultRefreshGraceSecs   = 60
	defaultVerificationTTLSec = 600
	defaultShutdownGraceSecs  = 10

	// minSecretKeyChars enforces >= 256 bits of entropy assuming the key is
	// hex or base64 material.
	minSecretKeyChars = 32
)

// rateActions are the gated downstream actions.
var rateActions = []string{"chat", "save", "personalize"}

// productionRateDefaults per action: max requests per window.
var productionRateDefaults = map[string]RatePolicy{
	"chat":        {MaxRequests: 10, WindowSeconds: 60},
	"save":        {MaxRequests: 5, WindowSeconds: 60},
	"personalize": {MaxRequests: 3, WindowSeconds: 60},
}

// =============================================================================
// Types
// =============================================================================

// RatePolicy is the (max, window) pair for one action.
type RatePolicy struct {
	MaxRequests   int `yaml:"max_requests"`
	WindowSeconds int `yaml:"window_seconds"`
}

// Window returns the policy window as a Duration.
func (p RatePolicy) Window() time.Duration {
	return time.Duration(p.WindowSeconds) * time.Second
}

// Config is the parsed deployment configuration.
type Config struct {
	Port                string
	IntegrationTestMode bool

	DatabaseURL string
	SecretKey   string
	CORSOrigins []string

	SessionTTL          time.Duration
	SessionRefreshGrace time.Duration
	VerificationTTL     time.Duration
	ShutdownGrace       time.Duration

	EmailEnabled bool
	SMTPHost     string
	SMTPPort     string
	SMTPFrom     string

	RateLimits map[string]RatePolicy

	// RateLimitPolicyFile optionally points at a YAML file overriding
	// RateLimits; the file is watched for changes at runtime.
	RateLimitPolicyFile string

	LogLevel string

	// GeneratorModel names the downstream LLM; empty selects the
	// collaborator default.
	GeneratorModel string
}

// Production reports whether production validation rules apply.
func (c *Config) Production() bool { return !c.IntegrationTestMode }

// =============================================================================
// Loading
// =============================================================================

// Load parses the environment into a Config. Values are syntax-checked here;
// production safety rules are applied separately by Validate so tests can
// construct lenient configs.
func Load() (*Config, error) {
	cfg := &Config{
		Port:                envOr("PORT", defaultPort),
		IntegrationTestMode: envBool("INTEGRATION_TEST_MODE", false),
		DatabaseURL:         strings.TrimSpace(os.Getenv("DATABASE_URL")),
		SecretKey:           strings.TrimSpace(os.Getenv("SECRET_KEY")),
		RateLimitPolicyFile: strings.TrimSpace(os.Getenv("RATE_LIMIT_POLICY_FILE")),
		LogLevel:            envOr("LOG_LEVEL", "INFO"),
		SMTPHost:            os.Getenv("SMTP_HOST"),
		SMTPPort:            envOr("SMTP_PORT", "587"),
		SMTPFrom:            envOr("SMTP_FROM", "no-reply@aleutian.ai"),
		GeneratorModel:      os.Getenv("GENERATOR_MODEL"),
	}

	if origins := strings.TrimSpace(os.Getenv("CORS_ORIGINS")); origins != "" {
		for _, o := range strings.Split(origins, ",") {
			if o = strings.TrimSpace(o); o != "" {
				cfg.CORSOrigins = append(cfg.CORSOrigins, strings.TrimRight(o, "/"))
			}
		}
	}

	var err error
	if cfg.SessionTTL, err = envSeconds("SESSION_TTL_SECONDS", defaultSessionTTLSeconds); err != nil {
		return nil, err
	}
	if cfg.SessionRefreshGrace, err = envSeconds("SESSION_REFRESH_GRACE_SECONDS", defaultRefreshGraceSecs); err != nil {
		return nil, err
	}
	if cfg.VerificationTTL, err = envSeconds("VERIFICATION_TTL_SECONDS", defaultVerificationTTLSec); err != nil {
		return nil, err
	}
	if cfg.ShutdownGrace, err = envSeconds("SHUTDOWN_GRACE_SECONDS", defaultShutdownGraceSecs); err != nil {
		return nil, err
	}

	// The grace window is bounded: at least 60s, never beyond the session TTL.
	if cfg.SessionRefreshGrace < 60*time.Second {
		cfg.SessionRefreshGrace = 60 * time.Second
	}
	if cfg.SessionRefreshGrace > cfg.SessionTTL {
		cfg.SessionRefreshGrace = cfg.SessionTTL
	}

	cfg.EmailEnabled = envBool("EMAIL_ENABLED", cfg.Production())

	cfg.RateLimits = defaultRateLimits(cfg.IntegrationTestMode)
	for _, action := range rateActions {
		prefix := "RATE_LIMIT_" + strings.ToUpper(action)
		p := cfg.RateLimits[action]
		if v, ok, err := envIntOpt(prefix + "_MAX_REQUESTS"); err != nil {
			return nil, err
		} else if ok {
			p.MaxRequests = v
		}
		if v, ok, err := envIntOpt(prefix + "_WINDOW_SECONDS"); err != nil {
			return nil, err
		} else if ok {
			p.WindowSeconds = v
		}
		cfg.RateLimits[action] = p
	}

	if cfg.IntegrationTestMode && cfg.SecretKey == "" {
		cfg.SecretKey = DefaultSecretSentinel
	}

	return cfg, nil
}

// defaultRateLimits returns per-action defaults. Test mode halves the max
// and shrinks every window to 10 seconds.
func defaultRateLimits(testMode bool) map[string]RatePolicy {
	out := make(map[string]RatePolicy, len(productionRateDefaults))
	for action, p := range productionRateDefaults {
		if testMode {
			p = RatePolicy{MaxRequests: p.MaxRequests / 2, WindowSeconds: 10}
			if p.MaxRequests < 1 {
				p.MaxRequests = 1
			}
		}
		out[action] = p
	}
	return out
}

// =============================================================================
// Validation
// =============================================================================

// Validate applies production safety rules. It returns the first violation;
// callers terminate with the diagnostic before opening any listener.
// SQLite-style database URLs are tolerated with a warning (returned via the
// warnings slice) since single-node deployments are supported.
func (c *Config) Validate() (warnings []string, err error) {
	if c.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	if strings.HasPrefix(c.DatabaseURL, "sqlite:") || strings.HasSuffix(c.DatabaseURL, ".db") {
		warnings = append(warnings, "DATABASE_URL points at a single-file database; fine for single-node deployments only")
	}

	if !c.Production() {
		return warnings, nil
	}

	if c.SecretKey == "" {
		return warnings, fmt.Errorf("SECRET_KEY is required in production")
	}
	if c.SecretKey == DefaultSecretSentinel {
		return warnings, fmt.Errorf("SECRET_KEY is the development sentinel value; set a real secret")
	}
	if len(c.SecretKey) < minSecretKeyChars {
		return warnings, fmt.Errorf("SECRET_KEY must be at least %d characters", minSecretKeyChars)
	}
	if len(c.CORSOrigins) == 0 {
		return warnings, fmt.Errorf("CORS_ORIGINS is required in production")
	}
	for _, o := range c.CORSOrigins {
		if o == "*" {
			return warnings, fmt.Errorf("CORS_ORIGINS must be an explicit allowlist, not a wildcard")
		}
		if strings.HasPrefix(o, "http://") {
			return warnings, fmt.Errorf("CORS_ORIGINS entry %q is plain HTTP; production origins must use https", o)
		}
	}
	for action, p := range c.RateLimits {
		if p.MaxRequests < 1 || p.WindowSeconds < 1 {
			return warnings, fmt.Errorf("rate limit for %s must have positive max and window", action)
		}
	}
	return warnings, nil
}

// =============================================================================
// Env Helpers
// =============================================================================

func envOr(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}

func envSeconds(key string, fallback int) (time.Duration, error) {
	v, ok, err := envIntOpt(key)
	if err != nil {
		return 0, err
	}
	if !ok {
		v = fallback
	}
	if v < 0 {
		return 0, fmt.Errorf("%s must not be negative", key)
	}
	return time.Duration(v) * time.Second, nil
}

func envIntOpt(key string) (int, bool, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return 0, false, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, false, fmt.Errorf("%s must be an integer: %w", key, err)
	}
	return n, true, nil
}
