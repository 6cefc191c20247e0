// Package ai turns a scored assessment into blueprint copy through a chain
// of text-generation providers.
package ai

import (
	"context"

	"github.com/nyashahama/vitality-blueprint-backend/internal/assessment"
)

// Source names recorded with a persisted blueprint.
const (
	SourceAnthropic = "anthropic"
	SourceDeepSeek  = "deepseek"
	SourceGemini    = "gemini"
	SourceDefault   = "default"
)

// Blueprint is the generated copy for one assessment.
type Blueprint struct {
	// Summary is a short plain-English overview of the user's results.
	Summary string `json:"summary"`

	// TopPriorityHTML is one inline HTML fragment naming the first action.
	// Rendered directly in the dashboard.
	TopPriorityHTML string `json:"top_priority_html"`

	// Phases maps each phase name in the result's phase order to its
	// narrative. Every phase is present.
	Phases map[string]string `json:"phases"`

	// Source is the provider that wrote the copy.
	Source string `json:"source"`
}

// Writer is what the worker uses to produce blueprint copy.
// Implementations must be safe to call concurrently. A non-nil error means
// no usable copy was produced; the worker falls back to DefaultBlueprint.
type Writer interface {
	WriteBlueprint(ctx context.Context, res assessment.Result) (Blueprint, error)
}
