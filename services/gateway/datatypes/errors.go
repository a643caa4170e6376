// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package datatypes

// ErrorCode is a stable machine-readable error identifier surfaced in the
// HTTP error envelope. Handlers map component-level errors onto these codes;
// nothing below the HTTP surface speaks in envelopes.
type ErrorCode string

const (
	// Input-invalid (HTTP 400/422)
	ErrCodeInvalidRequest   ErrorCode = "INVALID_REQUEST"
	ErrCodeMessageTooLong   ErrorCode = "MESSAGE_TOO_LONG"
	ErrCodeInvalidSessionID ErrorCode = "INVALID_SESSION_ID"
	ErrCodeConsentRequired  ErrorCode = "CONSENT_REQUIRED"

	// Auth (HTTP 401/410)
	ErrCodeUnauthorized       ErrorCode = "UNAUTHORIZED"
	ErrCodeSessionExpired     ErrorCode = "SESSION_EXPIRED"
	ErrCodeVerificationFailed ErrorCode = "VERIFICATION_FAILED"
	ErrCodeTokenExpired       ErrorCode = "TOKEN_EXPIRED"

	// Policy (HTTP 429)
	ErrCodeRateLimitExceeded ErrorCode = "RATE_LIMIT_EXCEEDED"

	// Transient (HTTP 503/504)
	ErrCodeServiceUnavailable ErrorCode = "SERVICE_UNAVAILABLE"
	ErrCodeRequestTimeout     ErrorCode = "REQUEST_TIMEOUT"

	// Fatal (HTTP 500)
	ErrCodeInternal ErrorCode = "INTERNAL_ERROR"
)

// ErrorEnvelope is the general error response body. Every error response
// carries the request id so operators can correlate logs.
type ErrorEnvelope struct {
	Error     ErrorCode `json:"error"`
	Message   string    `json:"message"`
	RequestID string    `json:"request_id,omitempty"`
}

// RateLimitDetail is the body of a 429 response:
// {"detail":{"error":"rate_limited","retry_after":<seconds>}}.
type RateLimitDetail struct {
	Detail struct {
		Error      string `json:"error"`
		RetryAfter int    `json:"retry_after"`
	} `json:"detail"`
}

// NewRateLimitDetail builds the fixed 429 body for a denial.
func NewRateLimitDetail(retryAfter int) RateLimitDetail {
	var d RateLimitDetail
	d.Detail.Error = "rate_limited"
	d.Detail.RetryAfter = retryAfter
	return d
}
