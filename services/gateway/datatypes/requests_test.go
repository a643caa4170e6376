// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package datatypes

import (
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validChatRequest() ChatRequest {
	return ChatRequest{
		Message: "what is photosynthesis?",
		Context: ChatContext{
			Mode:      "chat",
			SessionID: uuid.NewString(),
		},
		Tier: "anonymous",
	}
}

func TestChatRequest_MessageLengthBoundary(t *testing.T) {
	req := validChatRequest()

	req.Message = strings.Repeat("a", MaxMessageChars)
	assert.Nil(t, req.Validate(), "exactly 2000 chars is accepted")

	req.Message = strings.Repeat("a", MaxMessageChars+1)
	verr := req.Validate()
	require.NotNil(t, verr)
	assert.Equal(t, ErrCodeMessageTooLong, verr.Code)

	// Length is counted in characters, not bytes.
	req.Message = strings.Repeat("é", MaxMessageChars)
	assert.Nil(t, req.Validate())
}

func TestChatRequest_EmptyMessage(t *testing.T) {
	req := validChatRequest()
	req.Message = ""
	verr := req.Validate()
	require.NotNil(t, verr)
	assert.Equal(t, ErrCodeInvalidRequest, verr.Code)
}

func TestChatRequest_SelectedTextBoundary(t *testing.T) {
	req := validChatRequest()

	req.Context.SelectedText = strings.Repeat("x", MaxSelectedTextChars)
	assert.Nil(t, req.Validate(), "exactly 5000 chars is accepted")

	req.Context.SelectedText = strings.Repeat("x", MaxSelectedTextChars+1)
	verr := req.Validate()
	require.NotNil(t, verr)
	assert.Equal(t, ErrCodeInvalidRequest, verr.Code)
}

func TestChatRequest_SessionIDMustBeUUIDv4(t *testing.T) {
	tests := []struct {
		name      string
		sessionID string
	}{
		{"empty", ""},
		{"not a uuid", "abc123"},
		{"uuid v1", "c232ab00-9414-11ec-b3c8-9f68deced846"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := validChatRequest()
			req.Context.SessionID = tt.sessionID
			verr := req.Validate()
			require.NotNil(t, verr)
			assert.Equal(t, ErrCodeInvalidSessionID, verr.Code)
		})
	}
}

func TestChatRequest_ModeEnum(t *testing.T) {
	req := validChatRequest()
	req.Context.Mode = "stream"
	verr := req.Validate()
	require.NotNil(t, verr)
	assert.Equal(t, ErrCodeInvalidRequest, verr.Code)
}

func TestChatRequest_TierDefaultsToAnonymous(t *testing.T) {
	req := validChatRequest()
	req.Tier = ""
	require.Nil(t, req.Validate())
	assert.Equal(t, string(TierAnonymous), req.Tier)

	req.Tier = "platinum"
	assert.NotNil(t, req.Validate())
}

func TestSignupRequest_Validate(t *testing.T) {
	req := SignupRequest{Email: "a@example.com", ConsentDataStorage: true}
	assert.Nil(t, req.Validate())

	req.ConsentDataStorage = false
	verr := req.Validate()
	require.NotNil(t, verr)
	assert.Equal(t, ErrCodeConsentRequired, verr.Code)

	req = SignupRequest{Email: "not-an-email", ConsentDataStorage: true}
	verr = req.Validate()
	require.NotNil(t, verr)
	assert.Equal(t, ErrCodeInvalidRequest, verr.Code)
}

func TestValidEmail_Normalizes(t *testing.T) {
	email, err := ValidEmail("  Alice@Example.COM ")
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", email)

	_, err = ValidEmail("Alice Smith <alice@example.com>")
	assert.Error(t, err, "display names are not bare addresses")
}

func TestSaveChatRequest_Validate(t *testing.T) {
	req := SaveChatRequest{Messages: []Message{{Role: "user", Content: "hi"}}}
	assert.Nil(t, req.Validate())

	req.Messages = nil
	assert.NotNil(t, req.Validate())

	req.Messages = make([]Message, MaxSavedMessages+1)
	for i := range req.Messages {
		req.Messages[i] = Message{Role: "user", Content: "x"}
	}
	assert.NotNil(t, req.Validate())

	req.Messages = []Message{{Role: "narrator", Content: "hi"}}
	assert.NotNil(t, req.Validate(), "role outside the enum is rejected")
}

func TestAnalyticsEventRequest_Validate(t *testing.T) {
	req := AnalyticsEventRequest{EventType: "widget_open"}
	assert.Nil(t, req.Validate())

	req.EventType = "page_scroll"
	verr := req.Validate()
	require.NotNil(t, verr)
	assert.Equal(t, ErrCodeInvalidRequest, verr.Code)
}

func TestPersonalizeRequest_Validate(t *testing.T) {
	req := PersonalizeRequest{}
	assert.NotNil(t, req.Validate())

	req.Preferences = map[string]any{"interests": []any{"math"}}
	assert.Nil(t, req.Validate())
}
