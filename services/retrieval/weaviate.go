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
	"encoding/json"
	"fmt"

	"github.com/weaviate/weaviate-go-client/v5/weaviate"
	"github.com/weaviate/weaviate-go-client/v5/weaviate/graphql"
)

// passageClass is the Weaviate class holding the educational corpus.
const passageClass = "WidgetPassage"

// WeaviateRetriever finds passages by vector similarity over the corpus
// class. Schema: title, url, content (text properties) populated by the
// ingestion pipeline.
type WeaviateRetriever struct {
	client *weaviate.Client
}

// NewWeaviateRetriever wraps an already-configured client.
func NewWeaviateRetriever(client *weaviate.Client) *WeaviateRetriever {
	return &WeaviateRetriever{client: client}
}

// passageQueryResponse mirrors the GraphQL Get response shape.
type passageQueryResponse struct {
	Get struct {
		WidgetPassage []struct {
			Title      string `json:"title"`
			URL        string `json:"url"`
			Content    string `json:"content"`
			Additional struct {
				ID        string  `json:"id"`
				Certainty float64 `json:"certainty"`
			} `json:"_additional"`
		} `json:"WidgetPassage"`
	} `json:"Get"`
}

// Retrieve runs a nearText query and maps the hits onto Passage values.
func (r *WeaviateRetriever) Retrieve(ctx context.Context, q Query) ([]Passage, error) {
	concepts := []string{q.Text}
	if q.SelectedText != "" {
		concepts = append(concepts, q.SelectedText)
	}
	nearText := r.client.GraphQL().NearTextArgBuilder().
		WithConcepts(concepts)

	fields := []graphql.Field{
		{Name: "title"},
		{Name: "url"},
		{Name: "content"},
		{Name: "_additional", Fields: []graphql.Field{{Name: "id"}, {Name: "certainty"}}},
	}

	resp, err := r.client.GraphQL().Get().
		WithClassName(passageClass).
		WithNearText(nearText).
		WithFields(fields...).
		WithLimit(q.TopK).
		Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("weaviate query failed: %w", err)
	}
	if len(resp.Errors) > 0 {
		return nil, fmt.Errorf("weaviate query returned errors: %v", resp.Errors[0].Message)
	}

	var parsed passageQueryResponse
	respBytes, err := json.Marshal(resp.Data)
	if err != nil {
		return nil, fmt.Errorf("marshal weaviate response: %w", err)
	}
	if err := json.Unmarshal(respBytes, &parsed); err != nil {
		return nil, fmt.Errorf("parse weaviate response: %w", err)
	}

	passages := make([]Passage, 0, len(parsed.Get.WidgetPassage))
	for _, hit := range parsed.Get.WidgetPassage {
		passages = append(passages, Passage{
			ID:      hit.Additional.ID,
			Title:   hit.Title,
			URL:     hit.URL,
			Excerpt: hit.Content,
			Score:   hit.Additional.Certainty,
		})
	}
	return passages, nil
}
