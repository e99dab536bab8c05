// Package ai provides the Gemini-backed transaction extractor and
// category classifier used by the categorization pipeline. Both are
// exposed behind small interfaces so the pipeline can be tested with
// fakes and so the model provider stays swappable.
package ai

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

// Gemini wraps a genai client with the configured model name.
type Gemini struct {
	client *genai.Client
	model  string
}

// NewGemini creates a Gemini helper for the given API key and model.
func NewGemini(ctx context.Context, apiKey, model string) (*Gemini, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini api key is not configured")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: apiKey})
	if err != nil {
		return nil, fmt.Errorf("failed to init gemini client: %w", err)
	}
	return &Gemini{client: client, model: model}, nil
}

// generateJSON sends a prompt expecting a raw JSON reply and returns the
// cleaned response text.
func (g *Gemini) generateJSON(ctx context.Context, prompt string) (string, error) {
	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(prompt), nil)
	if err != nil {
		return "", fmt.Errorf("gemini generation failed: %w", err)
	}

	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("empty response from gemini")
	}

	raw := ""
	for _, part := range resp.Candidates[0].Content.Parts {
		if part.Text != "" {
			raw += part.Text
		}
	}
	return CleanJSONResponse(raw), nil
}

// CleanJSONResponse strips the markdown code fences Gemini likes to wrap
// JSON replies in.
func CleanJSONResponse(raw string) string {
	raw = strings.TrimSpace(raw)
	raw = strings.TrimPrefix(raw, "```json")
	raw = strings.TrimPrefix(raw, "```")
	raw = strings.TrimSuffix(raw, "```")
	return strings.TrimSpace(raw)
}
