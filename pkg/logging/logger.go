// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package logging provides structured logging for Aleutian widget services.
//
// The logger emits one JSON object per event, built on the standard library
// slog package. Every event carries:
//
//   - timestamp: ISO-8601 UTC
//   - level: DEBUG | INFO | WARNING | ERROR
//   - service: the configured service name
//   - event: snake_case event name (the slog message)
//   - request_id: injected automatically when the logger came from a
//     request context (see FromContext)
//
// # Redaction
//
// Values for keys that commonly carry secrets (token, session_token,
// password, SECRET_KEY, DATABASE_URL, ...) are replaced with "[REDACTED]"
// before serialization. Redaction happens in the handler, so no call site
// can accidentally bypass it:
//
//	logger.Info("session_created", "session_token", tok)
//	// {"event":"session_created","session_token":"[REDACTED]",...}
//
// # Request Correlation
//
// The request-context middleware stores the request id in the request's
// context. Handlers retrieve a correlated logger with:
//
//	log := logging.FromContext(c.Request.Context())
//	log.Info("chat_request_received", "mode", req.Context.Mode)
//
// # Thread Safety
//
// Logger is safe for concurrent use; the underlying slog handler
// serializes writes to the destination writer.
package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"
)

// =============================================================================
// Log Levels
// =============================================================================

// Level represents log severity. Ordered: Debug < Info < Warn < Error.
type Level int

const (
	// LevelDebug is for development troubleshooting.
	LevelDebug Level = iota

	// LevelInfo is for normal operational events.
	LevelInfo

	// LevelWarn is for recoverable or suspicious situations.
	LevelWarn

	// LevelError is for operation failures.
	LevelError
)

// String returns "DEBUG", "INFO", "WARNING", or "ERROR".
func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARNING"
	case LevelError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// ParseLevel maps a config string to a Level. Unknown values map to Info.
func ParseLevel(s string) Level {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "DEBUG":
		return LevelDebug
	case "WARN", "WARNING":
		return LevelWarn
	case "ERROR":
		return LevelError
	default:
		return LevelInfo
	}
}

func (l Level) toSlogLevel() slog.Level {
	switch l {
	case LevelDebug:
		return slog.LevelDebug
	case LevelWarn:
		return slog.LevelWarn
	case LevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// =============================================================================
// Redaction
// =============================================================================

// redactedPlaceholder replaces secret values in serialized output.
const redactedPlaceholder = "[REDACTED]"

// redactedKeys is the set of attribute names whose values never reach the
// log stream. Matching is case-insensitive.
var redactedKeys = map[string]struct{}{
	"token":              {},
	"session_token":      {},
	"verification_token": {},
	"password":           {},
	"secret":             {},
	"api_key":            {},
	"authorization":      {},
	"secret_key":         {},
	"database_url":       {},
}

// IsRedactedKey reports whether values for key are redacted before output.
func IsRedactedKey(key string) bool {
	_, ok := redactedKeys[strings.ToLower(key)]
	return ok
}

// replaceAttr renames the standard slog keys to the gateway's wire names and
// redacts secret-bearing attributes. Installed as slog.HandlerOptions.ReplaceAttr.
func replaceAttr(groups []string, a slog.Attr) slog.Attr {
	if len(groups) == 0 {
		switch a.Key {
		case slog.TimeKey:
			return slog.String("timestamp", a.Value.Time().UTC().Format(time.RFC3339Nano))
		case slog.MessageKey:
			a.Key = "event"
			return a
		case slog.LevelKey:
			lvl, ok := a.Value.Any().(slog.Level)
			if !ok {
				return a
			}
			switch {
			case lvl >= slog.LevelError:
				return slog.String("level", "ERROR")
			case lvl >= slog.LevelWarn:
				return slog.String("level", "WARNING")
			case lvl >= slog.LevelInfo:
				return slog.String("level", "INFO")
			default:
				return slog.String("level", "DEBUG")
			}
		}
	}
	if IsRedactedKey(a.Key) {
		return slog.String(a.Key, redactedPlaceholder)
	}
	return a
}

// =============================================================================
// Logger
// =============================================================================

// Config controls logger construction.
type Config struct {
	// Level is the minimum level emitted. Defaults to LevelInfo.
	Level Level

	// Service is added as a "service" attribute on every event.
	Service string

	// Writer is the output destination. Defaults to os.Stdout.
	Writer io.Writer
}

// Logger is a thin wrapper over slog.Logger with redaction built in.
type Logger struct {
	slog *slog.Logger
}

// New creates a Logger from config.
func New(cfg Config) *Logger {
	w := cfg.Writer
	if w == nil {
		w = os.Stdout
	}
	h := slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level:       cfg.Level.toSlogLevel(),
		ReplaceAttr: replaceAttr,
	})
	l := slog.New(h)
	if cfg.Service != "" {
		l = l.With("service", cfg.Service)
	}
	return &Logger{slog: l}
}

// Default returns an info-level stdout logger for the widget gateway.
func Default() *Logger {
	return New(Config{Level: LevelInfo, Service: "widget-gateway"})
}

// Debug logs a debug event with key/value pairs.
func (l *Logger) Debug(event string, args ...any) { l.slog.Debug(event, args...) }

// Info logs an info event with key/value pairs.
func (l *Logger) Info(event string, args ...any) { l.slog.Info(event, args...) }

// Warn logs a warning event with key/value pairs.
func (l *Logger) Warn(event string, args ...any) { l.slog.Warn(event, args...) }

// Error logs an error event with key/value pairs.
func (l *Logger) Error(event string, args ...any) { l.slog.Error(event, args...) }

// With returns a Logger that includes the given attributes on every event.
func (l *Logger) With(args ...any) *Logger {
	return &Logger{slog: l.slog.With(args...)}
}

// Slog exposes the underlying slog.Logger for libraries that require one.
func (l *Logger) Slog() *slog.Logger { return l.slog }

// =============================================================================
// Request Context Binding
// =============================================================================

type contextKey string

const (
	loggerKey    contextKey = "aleutian_logger"
	requestIDKey contextKey = "aleutian_request_id"
)

// ContextWithRequestID binds the request id and a correlated logger into ctx.
// Called once per request by the request-context middleware.
func ContextWithRequestID(ctx context.Context, base *Logger, requestID string) context.Context {
	ctx = context.WithValue(ctx, requestIDKey, requestID)
	return context.WithValue(ctx, loggerKey, base.With("request_id", requestID))
}

// RequestIDFromContext returns the bound request id, or "" when absent.
func RequestIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDKey).(string); ok {
		return id
	}
	return ""
}

// FromContext returns the request-correlated logger bound by the middleware.
// Falls back to Default() so library code can always log.
func FromContext(ctx context.Context) *Logger {
	if l, ok := ctx.Value(loggerKey).(*Logger); ok {
		return l
	}
	return Default()
}
