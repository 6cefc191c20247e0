// Package mcptool exposes the scoring pipeline as MCP tools so an assistant
// can score a submission or inspect the loaded rule table.
package mcptool

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/nyashahama/vitality-blueprint-backend/internal/assessment"
	"github.com/nyashahama/vitality-blueprint-backend/internal/ruleset"
)

// Version is reported to MCP clients during initialization.
const Version = "1.0.0"

// NewServer returns an MCP server with every tool registered against rules.
func NewServer(rules *ruleset.Ruleset) *server.MCPServer {
	s := server.NewMCPServer(
		"vitality-blueprint",
		Version,
		server.WithToolCapabilities(false),
		server.WithRecovery(),
	)

	score := NewScoreTool(rules)
	s.AddTool(score.Definition(), score.Handle)

	describe := NewDescribeTool(rules)
	s.AddTool(describe.Definition(), describe.Handle)

	return s
}

// ─── score_assessment ─────────────────────────────────────────────────────────

// ScoreTool handles the score_assessment MCP tool.
type ScoreTool struct {
	rules *ruleset.Ruleset
}

// NewScoreTool creates a ScoreTool scoring against rules.
func NewScoreTool(rules *ruleset.Ruleset) *ScoreTool {
	return &ScoreTool{rules: rules}
}

// Definition returns the MCP tool definition for score_assessment.
func (t *ScoreTool) Definition() mcp.Tool {
	return mcp.NewTool("score_assessment",
		mcp.WithDescription(
			"Score a questionnaire submission. Returns composite scores (0-100), "+
				"derived flags, the personalized plan and the safety review as JSON.",
		),
		mcp.WithString("submission",
			mcp.Required(),
			mcp.Description(`Submission JSON: {"answers": {...}, "biological": {...}, "medical": {...}}`),
		),
	)
}

// Handle processes the score_assessment tool call.
func (t *ScoreTool) Handle(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	raw := req.GetString("submission", "")
	if strings.TrimSpace(raw) == "" {
		return mcp.NewToolResultError("'submission' is required"), nil
	}

	in, err := assessment.ParseInput([]byte(raw))
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("invalid submission: %v", err)), nil
	}
	if err := in.Validate(); err != nil {
		if errors.Is(err, assessment.ErrEmptyInput) {
			return mcp.NewToolResultError("submission has no answers or demographics"), nil
		}
		return mcp.NewToolResultError(err.Error()), nil
	}

	res, err := assessment.Run(t.rules, in)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("scoring failed: %v", err)), nil
	}

	b, err := json.MarshalIndent(res, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("mcptool: encode result: %w", err)
	}
	return mcp.NewToolResultText(string(b)), nil
}

// ─── describe_rules ───────────────────────────────────────────────────────────

// DescribeTool handles the describe_rules MCP tool.
type DescribeTool struct {
	rules *ruleset.Ruleset
}

// NewDescribeTool creates a DescribeTool for rules.
func NewDescribeTool(rules *ruleset.Ruleset) *DescribeTool {
	return &DescribeTool{rules: rules}
}

// Definition returns the MCP tool definition for describe_rules.
func (t *DescribeTool) Definition() mcp.Tool {
	return mcp.NewTool("describe_rules",
		mcp.WithDescription(
			"Describe the loaded rule table: version, composites, questions and flag rules. "+
				"Pass a question id to get that question's full definition.",
		),
		mcp.WithString("question",
			mcp.Description("Optional question id, e.g. \"2.1\" or \"BG7\""),
		),
	)
}

// Handle processes the describe_rules tool call.
func (t *DescribeTool) Handle(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if id := req.GetString("question", ""); id != "" {
		q, ok := t.rules.Question(id)
		if !ok {
			return mcp.NewToolResultError(fmt.Sprintf("unknown question %q", id)), nil
		}
		b, err := json.MarshalIndent(q, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("mcptool: encode question: %w", err)
		}
		return mcp.NewToolResultText(string(b)), nil
	}

	sum := t.rules.Summary()
	var sb strings.Builder
	sb.WriteString("## Rule Table\n\n")
	fmt.Fprintf(&sb, "- **Version**: %s\n", sum.Version)
	fmt.Fprintf(&sb, "- **Fingerprint**: %s\n", sum.Fingerprint)
	fmt.Fprintf(&sb, "- **Composites** (%d): %s\n", len(sum.Composites), strings.Join(sum.Composites, ", "))
	fmt.Fprintf(&sb, "- **Questions**: %d\n", sum.Questions)

	if len(t.rules.Flags) > 0 {
		sb.WriteString("\n### Flags\n\n")
		for _, f := range t.rules.Flags {
			if f.Description != "" {
				fmt.Fprintf(&sb, "- `%s`: %s\n", f.Name, f.Description)
			} else {
				fmt.Fprintf(&sb, "- `%s`\n", f.Name)
			}
		}
	}

	return mcp.NewToolResultText(sb.String()), nil
}
