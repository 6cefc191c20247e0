package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const (
	maxResponseBytes = 1 << 20
	maxOutputTokens  = 2048
	providerTimeout  = 90 * time.Second
)

// ProviderError is a non-2xx answer from a provider's HTTP API.
type ProviderError struct {
	Provider string
	Status   int
	Type     string // provider error type, e.g. "overloaded_error"
	Message  string
}

func (e *ProviderError) Error() string {
	if e.Type != "" {
		return fmt.Sprintf("%s: status %d: %s: %s", e.Provider, e.Status, e.Type, e.Message)
	}
	return fmt.Sprintf("%s: status %d: %s", e.Provider, e.Status, e.Message)
}

// Temporary reports whether the same request may succeed later.
func (e *ProviderError) Temporary() bool {
	return e.Status == http.StatusTooManyRequests || e.Status >= 500
}

// apiError is the error envelope both the Anthropic and OpenAI formats use.
type apiError struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

func newHTTPClient() *http.Client {
	return &http.Client{Timeout: providerTimeout}
}

// postJSON POSTs in as JSON and decodes a 2xx answer into out. Any other
// status becomes a *ProviderError.
func postJSON(ctx context.Context, hc *http.Client, provider, url string, header http.Header, in, out any) error {
	body, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("%s: marshal request: %w", provider, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("%s: build request: %w", provider, err)
	}
	req.Header = header.Clone()
	req.Header.Set("Content-Type", "application/json")

	resp, err := hc.Do(req)
	if err != nil {
		return fmt.Errorf("%s: http request: %w", provider, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return fmt.Errorf("%s: read response: %w", provider, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		pe := &ProviderError{Provider: provider, Status: resp.StatusCode}
		var env struct {
			Error *apiError `json:"error"`
		}
		if json.Unmarshal(raw, &env) == nil && env.Error != nil {
			pe.Type, pe.Message = env.Error.Type, env.Error.Message
		} else {
			pe.Message = truncate(string(raw), 200)
		}
		return pe
	}

	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("%s: decode response: %w", provider, err)
	}
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
