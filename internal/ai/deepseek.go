package ai

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/nyashahama/vitality-blueprint-backend/internal/assessment"
)

// deepseekClient writes blueprint copy through DeepSeek's OpenAI-compatible
// chat completions endpoint.
type deepseekClient struct {
	apiKey     string
	model      string
	endpoint   string
	httpClient *http.Client
}

// NewDeepSeekClient returns a Writer for the given DEEPSEEK_API_KEY and
// model, e.g. "deepseek-chat".
func NewDeepSeekClient(apiKey, model string) Writer {
	return &deepseekClient{
		apiKey:     apiKey,
		model:      model,
		endpoint:   "https://api.deepseek.com/v1/chat/completions",
		httpClient: newHTTPClient(),
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openAIRequest struct {
	Model          string          `json:"model"`
	Messages       []chatMessage   `json:"messages"`
	MaxTokens      int             `json:"max_tokens"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
}

// responseFormat {"type": "json_object"} asks for a bare JSON answer.
type responseFormat struct {
	Type string `json:"type"`
}

type openAIResponse struct {
	Choices []struct {
		Message      chatMessage `json:"message"`
		FinishReason string      `json:"finish_reason"`
	} `json:"choices"`
}

func (c *deepseekClient) WriteBlueprint(ctx context.Context, res assessment.Result) (Blueprint, error) {
	header := http.Header{}
	header.Set("Authorization", "Bearer "+c.apiKey)

	var out openAIResponse
	err := postJSON(ctx, c.httpClient, SourceDeepSeek, c.endpoint, header, openAIRequest{
		Model:          c.model,
		MaxTokens:      maxOutputTokens,
		ResponseFormat: &responseFormat{Type: "json_object"},
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: buildPrompt(res)},
		},
	}, &out)
	if err != nil {
		return Blueprint{}, err
	}
	if len(out.Choices) == 0 {
		return Blueprint{}, errors.New("deepseek: no choices in response")
	}
	if out.Choices[0].FinishReason == "length" {
		return Blueprint{}, errors.New("deepseek: response truncated at max_tokens")
	}

	bp, err := parseBlueprint(out.Choices[0].Message.Content, res, SourceDeepSeek)
	if err != nil {
		return Blueprint{}, fmt.Errorf("deepseek: %w", err)
	}
	return bp, nil
}
