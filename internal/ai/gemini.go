package ai

import (
	"context"
	"fmt"

	"google.golang.org/genai"

	"github.com/nyashahama/vitality-blueprint-backend/internal/assessment"
)

// geminiClient is a Writer backed by the Gemini API through the genai SDK.
type geminiClient struct {
	client *genai.Client
	model  string
}

// NewGeminiClient returns a Writer for the given GEMINI_API_KEY and model.
// An empty model selects gemini-2.5-flash.
func NewGeminiClient(ctx context.Context, apiKey, model string) (Writer, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini: API key is required")
	}
	if model == "" {
		model = "gemini-2.5-flash"
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("gemini: create client: %w", err)
	}

	return &geminiClient{client: client, model: model}, nil
}

// WriteBlueprint calls the Gemini API in JSON mode and returns blueprint
// copy for res.
func (c *geminiClient) WriteBlueprint(ctx context.Context, res assessment.Result) (Blueprint, error) {
	contents := []*genai.Content{
		genai.NewContentFromText(buildPrompt(res), genai.RoleUser),
	}

	resp, err := c.client.Models.GenerateContent(ctx, c.model, contents, &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(systemPrompt, genai.RoleUser),
		ResponseMIMEType:  "application/json",
		MaxOutputTokens:   maxOutputTokens,
	})
	if err != nil {
		return Blueprint{}, fmt.Errorf("gemini: generate content: %w", err)
	}

	raw := resp.Text()
	if raw == "" {
		return Blueprint{}, fmt.Errorf("gemini: no text content in response")
	}

	bp, err := parseBlueprint(raw, res, SourceGemini)
	if err != nil {
		return Blueprint{}, fmt.Errorf("gemini: %w", err)
	}
	return bp, nil
}
