package ai

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/nyashahama/vitality-blueprint-backend/internal/assessment"
)

const anthropicVersion = "2023-06-01"

// anthropicClient writes blueprint copy through the Anthropic Messages API.
type anthropicClient struct {
	apiKey     string
	model      string
	endpoint   string
	httpClient *http.Client
}

// NewAnthropicClient returns a Writer for the given ANTHROPIC_API_KEY and
// model, e.g. "claude-sonnet-4-5".
func NewAnthropicClient(apiKey, model string) Writer {
	return &anthropicClient{
		apiKey:     apiKey,
		model:      model,
		endpoint:   "https://api.anthropic.com/v1/messages",
		httpClient: newHTTPClient(),
	}
}

type messagesRequest struct {
	Model     string        `json:"model"`
	MaxTokens int           `json:"max_tokens"`
	System    string        `json:"system"`
	Messages  []chatMessage `json:"messages"`
}

type messagesResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	StopReason string `json:"stop_reason"`
}

func (c *anthropicClient) WriteBlueprint(ctx context.Context, res assessment.Result) (Blueprint, error) {
	header := http.Header{}
	header.Set("x-api-key", c.apiKey)
	header.Set("anthropic-version", anthropicVersion)

	var out messagesResponse
	err := postJSON(ctx, c.httpClient, SourceAnthropic, c.endpoint, header, messagesRequest{
		Model:     c.model,
		MaxTokens: maxOutputTokens,
		System:    systemPrompt,
		Messages:  []chatMessage{{Role: "user", Content: buildPrompt(res)}},
	}, &out)
	if err != nil {
		return Blueprint{}, err
	}

	for _, block := range out.Content {
		if block.Type != "text" {
			continue
		}
		bp, err := parseBlueprint(block.Text, res, SourceAnthropic)
		if err != nil {
			return Blueprint{}, fmt.Errorf("anthropic: %w", err)
		}
		return bp, nil
	}
	return Blueprint{}, errors.New("anthropic: no text content in response")
}
