// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// This file contains request bodies for the widget gateway endpoints and
// their validation rules. Validation is centralized here so handlers stay
// thin; each request type exposes a Validate method returning the error
// code the HTTP surface should answer with.
package datatypes

import (
	"fmt"
	"net/mail"
	"strings"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// =============================================================================
// Limits
// =============================================================================

const (
	// MaxMessageChars is the maximum chat message length in characters.
	MaxMessageChars = 2000

	// MaxSelectedTextChars is the maximum selected_text length in characters.
	MaxSelectedTextChars = 5000

	// MaxAnalyticsBodyBytes caps the analytics ingest request body.
	MaxAnalyticsBodyBytes = 4 * 1024

	// MaxSavedMessages bounds the message list accepted by chat save.
	MaxSavedMessages = 200
)

// =============================================================================
// Shared Validator Instance
// =============================================================================

// gwValidate is the validator instance for gateway request types.
var gwValidate *validator.Validate

func init() {
	gwValidate = validator.New()
	_ = gwValidate.RegisterValidation("widgettier", validateTier)
}

// validateTier accepts the request-level tier enum (includes anonymous).
func validateTier(fl validator.FieldLevel) bool {
	return ValidTier(fl.Field().String())
}

// ValidationError pairs an error code with a short user-facing message.
type ValidationError struct {
	Code    ErrorCode
	Message string
}

func (e *ValidationError) Error() string { return string(e.Code) + ": " + e.Message }

func invalid(code ErrorCode, format string, args ...any) *ValidationError {
	return &ValidationError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// =============================================================================
// Auth Requests
// =============================================================================

// SignupRequest is the body of POST /api/v1/auth/signup.
type SignupRequest struct {
	Email              string `json:"email"`
	ConsentDataStorage bool   `json:"consent_data_storage"`
	MigrateSession     bool   `json:"migrate_session,omitempty"`
}

// Validate checks email syntax and the consent flag.
func (r *SignupRequest) Validate() *ValidationError {
	if !r.ConsentDataStorage {
		return invalid(ErrCodeConsentRequired, "data storage consent is required to create an account")
	}
	if _, err := ValidEmail(r.Email); err != nil {
		return invalid(ErrCodeInvalidRequest, "email address is not valid")
	}
	return nil
}

// VerifyRequest is the body of POST /api/v1/auth/verify.
type VerifyRequest struct {
	Token string `json:"token" validate:"required"`
}

// Validate checks the token is present.
func (r *VerifyRequest) Validate() *ValidationError {
	if strings.TrimSpace(r.Token) == "" {
		return invalid(ErrCodeInvalidRequest, "verification token is required")
	}
	return nil
}

// ValidEmail normalizes an email address to lowercase and validates syntax.
func ValidEmail(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", fmt.Errorf("invalid email address")
	}
	return email, nil
}

// =============================================================================
// Chat Requests
// =============================================================================

// ChatContext carries the widget-side context for a chat turn.
type ChatContext struct {
	Mode         string `json:"mode" validate:"required,oneof=browse chat"`
	SelectedText string `json:"selected_text,omitempty"`
	PageURL      string `json:"page_url,omitempty"`
	SessionID    string `json:"session_id" validate:"required,uuid4"`
}

// ChatRequest is the body of POST /api/v1/chat.
type ChatRequest struct {
	Message string      `json:"message"`
	Context ChatContext `json:"context"`
	Tier    string      `json:"tier" validate:"widgettier"`
}

// Validate enforces the chat input contract: message 1-2000 chars,
// selected_text <= 5000 chars, mode and tier enums, session_id UUID v4.
func (r *ChatRequest) Validate() *ValidationError {
	n := utf8.RuneCountInString(r.Message)
	if n == 0 {
		return invalid(ErrCodeInvalidRequest, "message must not be empty")
	}
	if n > MaxMessageChars {
		return invalid(ErrCodeMessageTooLong, "message exceeds %d characters", MaxMessageChars)
	}
	if utf8.RuneCountInString(r.Context.SelectedText) > MaxSelectedTextChars {
		return invalid(ErrCodeInvalidRequest, "selected_text exceeds %d characters", MaxSelectedTextChars)
	}
	if r.Context.Mode != "browse" && r.Context.Mode != "chat" {
		return invalid(ErrCodeInvalidRequest, "context.mode must be browse or chat")
	}
	if parsed, err := uuid.Parse(r.Context.SessionID); err != nil || parsed.Version() != 4 {
		return invalid(ErrCodeInvalidSessionID, "context.session_id must be a UUID v4")
	}
	if r.Tier == "" {
		r.Tier = string(TierAnonymous)
	}
	if !ValidTier(r.Tier) {
		return invalid(ErrCodeInvalidRequest, "tier is not recognized")
	}
	return nil
}

// SaveChatRequest is the body of POST /api/v1/chat/save.
type SaveChatRequest struct {
	Messages []Message `json:"messages" validate:"required,min=1,max=200,dive"`
	Title    string    `json:"title,omitempty"`
}

// Validate checks the message list shape.
func (r *SaveChatRequest) Validate() *ValidationError {
	if len(r.Messages) == 0 {
		return invalid(ErrCodeInvalidRequest, "messages must not be empty")
	}
	if len(r.Messages) > MaxSavedMessages {
		return invalid(ErrCodeInvalidRequest, "messages exceeds %d entries", MaxSavedMessages)
	}
	if err := gwValidate.Struct(r); err != nil {
		return invalid(ErrCodeInvalidRequest, "messages are malformed")
	}
	return nil
}

// PersonalizeRequest is the body of POST /api/v1/user/personalize.
type PersonalizeRequest struct {
	Preferences map[string]any `json:"preferences"`
}

// Validate checks preferences presence.
func (r *PersonalizeRequest) Validate() *ValidationError {
	if len(r.Preferences) == 0 {
		return invalid(ErrCodeInvalidRequest, "preferences must not be empty")
	}
	return nil
}

// =============================================================================
// Analytics Requests
// =============================================================================

// AnalyticsEventRequest is the body of POST /api/v1/analytics/event.
type AnalyticsEventRequest struct {
	EventType string         `json:"event_type"`
	EventData map[string]any `json:"event_data,omitempty"`
}

// Validate checks the event type against the enumerated set.
func (r *AnalyticsEventRequest) Validate() *ValidationError {
	if !ValidEventType(r.EventType) {
		return invalid(ErrCodeInvalidRequest, "event_type is not recognized")
	}
	return nil
}
