// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package retrieval is the gateway's downstream collaborator for answering
// chat questions: vector retrieval over the educational corpus plus answer
// generation grounded on the retrieved passages.
//
// The gateway only sees the Pipeline type. Retriever and Generator are
// separate so integration-test mode can swap either side for deterministic
// stubs without touching the pipeline logic.
package retrieval

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/AleutianAI/AleutianWidget/pkg/logging"
)

var tracer = otel.Tracer("aleutian.widget.retrieval")

// answerTimeout bounds the whole retrieve-then-generate round trip. The
// widget shows a spinner; past this point the user has given up anyway.
const answerTimeout = 30 * time.Second

// defaultTopK passages are retrieved per question.
const defaultTopK = 4

// ErrTimeout reports that the collaborator did not answer in time.
var ErrTimeout = errors.New("retrieval: answer deadline exceeded")

// Query is one question with its widget context.
type Query struct {
	Text         string
	Mode         string
	SelectedText string
	PageURL      string
	Tier         string
	TopK         int
}

// Passage is one retrieved corpus snippet.
type Passage struct {
	ID      string
	Title   string
	URL     string
	Excerpt string
	Score   float64
}

// Generation is a produced answer with usage accounting.
type Generation struct {
	Text       string
	Model      string
	TokensUsed int
}

// Answer is the pipeline result handed back to the chat handler.
type Answer struct {
	Text           string
	Model          string
	TokensUsed     int
	Sources        []Passage
	RetrievalTime  time.Duration
	GenerationTime time.Duration
}

// Retriever finds corpus passages relevant to a query.
type Retriever interface {
	Retrieve(ctx context.Context, q Query) ([]Passage, error)
}

// Generator produces an answer from a prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string) (Generation, error)
}

// Pipeline chains retrieval and generation under one deadline.
type Pipeline struct {
	retriever Retriever
	generator Generator
}

// NewPipeline wires a Pipeline from its two collaborators.
func NewPipeline(r Retriever, g Generator) *Pipeline {
	return &Pipeline{retriever: r, generator: g}
}

// Ask answers one question. The 30 second deadline covers both stages;
// exceeding it returns ErrTimeout so the HTTP surface can answer 504
// instead of an opaque internal error.
func (p *Pipeline) Ask(ctx context.Context, q Query) (Answer, error) {
	ctx, span := tracer.Start(ctx, "Pipeline.Ask")
	defer span.End()
	span.SetAttributes(attribute.String("mode", q.Mode))

	ctx, cancel := context.WithTimeout(ctx, answerTimeout)
	defer cancel()

	if q.TopK <= 0 {
		q.TopK = defaultTopK
	}

	retrievalStart := time.Now()
	passages, err := p.retriever.Retrieve(ctx, q)
	retrievalTime := time.Since(retrievalStart)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		if errors.Is(err, context.DeadlineExceeded) {
			return Answer{}, ErrTimeout
		}
		return Answer{}, fmt.Errorf("retrieve: %w", err)
	}
	span.SetAttributes(attribute.Int("passages", len(passages)))

	generationStart := time.Now()
	gen, err := p.generator.Generate(ctx, buildPrompt(q, passages))
	generationTime := time.Since(generationStart)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		if errors.Is(err, context.DeadlineExceeded) {
			return Answer{}, ErrTimeout
		}
		return Answer{}, fmt.Errorf("generate: %w", err)
	}

	logging.FromContext(ctx).Debug("answer_produced",
		"passages", len(passages),
		"retrieval_ms", retrievalTime.Milliseconds(),
		"generation_ms", generationTime.Milliseconds(),
	)

	return Answer{
		Text:           gen.Text,
		Model:          gen.Model,
		TokensUsed:     gen.TokensUsed,
		Sources:        passages,
		RetrievalTime:  retrievalTime,
		GenerationTime: generationTime,
	}, nil
}

// buildPrompt assembles the grounded generation prompt. Selected text from
// the page, when present, is treated as the primary context.
func buildPrompt(q Query, passages []Passage) string {
	var b strings.Builder
	b.WriteString("You are a helpful educational assistant embedded in a course page. ")
	b.WriteString("Answer the question using only the provided context. ")
	b.WriteString("If the context does not contain the answer, say so.\n\n")

	if q.SelectedText != "" {
		b.WriteString("Text the student highlighted:\n")
		b.WriteString(q.SelectedText)
		b.WriteString("\n\n")
	}
	if len(passages) > 0 {
		b.WriteString("Context passages:\n")
		for i, p := range passages {
			fmt.Fprintf(&b, "[%d] %s\n%s\n\n", i+1, p.Title, p.Excerpt)
		}
	}
	b.WriteString("Question: ")
	b.WriteString(q.Text)
	return b.String()
}
