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
)

// StubRetriever returns a fixed passage set. Used in integration-test mode
// so chat answers are deterministic without a vector store.
type StubRetriever struct{}

func (StubRetriever) Retrieve(ctx context.Context, q Query) ([]Passage, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return []Passage{
		{
			ID:      "stub-passage-1",
			Title:   "Introduction to the Course",
			URL:     "https://example.edu/course/intro",
			Excerpt: "This course introduces the fundamentals step by step.",
			Score:   0.92,
		},
	}, nil
}

// StubGenerator echoes a canned answer mentioning the question. Used in
// integration-test mode and as a fallback when no generator is configured.
type StubGenerator struct{}

func (StubGenerator) Generate(ctx context.Context, prompt string) (Generation, error) {
	if err := ctx.Err(); err != nil {
		return Generation{}, err
	}
	return Generation{
		Text:       fmt.Sprintf("This is a test answer (prompt length %d).", len(prompt)),
		Model:      "stub",
		TokensUsed: 0,
	}, nil
}
