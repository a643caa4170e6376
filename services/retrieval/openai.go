// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package retrieval

import (
	"context"
	"fmt"
	"os"

	openai "github.com/sashabaranov/go-openai"
)

// defaultGeneratorModel is used when GENERATOR_MODEL is not configured.
const defaultGeneratorModel = "gpt-4o-mini"

// OpenAIGenerator produces answers through any OpenAI-compatible chat
// completion endpoint. Pointing GENERATOR_BASE_URL at a local llama.cpp or
// vLLM server keeps the whole stack on-premise.
type OpenAIGenerator struct {
	client *openai.Client
	model  string
}

// NewOpenAIGenerator builds a generator from the environment.
// GENERATOR_BASE_URL overrides the API host; the model argument overrides
// defaultGeneratorModel when non-empty.
func NewOpenAIGenerator(model string) *OpenAIGenerator {
	cfg := openai.DefaultConfig(os.Getenv("OPENAI_API_KEY"))
	if base := os.Getenv("GENERATOR_BASE_URL"); base != "" {
		cfg.BaseURL = base
	}
	if model == "" {
		model = defaultGeneratorModel
	}
	return &OpenAIGenerator{client: openai.NewClientWithConfig(cfg), model: model}
}

// Generate runs one chat completion for the prompt.
func (g *OpenAIGenerator) Generate(ctx context.Context, prompt string) (Generation, error) {
	resp, err := g.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: g.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil {
		return Generation{}, fmt.Errorf("chat completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return Generation{}, fmt.Errorf("chat completion returned no choices")
	}
	return Generation{
		Text:       resp.Choices[0].Message.Content,
		Model:      resp.Model,
		TokensUsed: resp.Usage.TotalTokens,
	}, nil
}
