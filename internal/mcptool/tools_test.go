package mcptool

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/nyashahama/vitality-blueprint-backend/internal/assessment"
	"github.com/nyashahama/vitality-blueprint-backend/internal/ruleset"
)

// ─── Test helpers ────────────────────────────────────────────────────────────

func defaultRules(t *testing.T) *ruleset.Ruleset {
	t.Helper()
	rs, err := ruleset.Default()
	if err != nil {
		t.Fatalf("ruleset.Default: %v", err)
	}
	return rs
}

func makeReq(args map[string]interface{}) mcp.CallToolRequest {
	req := mcp.CallToolRequest{}
	req.Params.Arguments = args
	return req
}

func resultText(r *mcp.CallToolResult) string {
	if r == nil || len(r.Content) == 0 {
		return ""
	}
	for _, c := range r.Content {
		if tc, ok := c.(mcp.TextContent); ok {
			return tc.Text
		}
	}
	return ""
}

// ─── ScoreTool ───────────────────────────────────────────────────────────────

func TestScoreTool_Definition(t *testing.T) {
	def := NewScoreTool(defaultRules(t)).Definition()
	if def.Name != "score_assessment" {
		t.Errorf("name: got %q", def.Name)
	}
	if len(def.InputSchema.Required) != 1 || def.InputSchema.Required[0] != "submission" {
		t.Errorf("required: got %v", def.InputSchema.Required)
	}
}

func TestScoreTool_ScoresSubmission(t *testing.T) {
	rs := defaultRules(t)
	tool := NewScoreTool(rs)

	submission := `{"answers": {"1.1": "Always", "2.1": "Often"}, "biological": {"age": 45}}`
	res, err := tool.Handle(context.Background(), makeReq(map[string]interface{}{
		"submission": submission,
	}))
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if res.IsError {
		t.Fatalf("unexpected tool error: %s", resultText(res))
	}

	var got assessment.Result
	if err := json.Unmarshal([]byte(resultText(res)), &got); err != nil {
		t.Fatalf("decode result: %v", err)
	}

	in, _ := assessment.ParseInput([]byte(submission))
	want, err := assessment.Run(rs, in)
	if err != nil {
		t.Fatal(err)
	}
	if got.Digest() != want.Digest() {
		t.Error("tool result differs from a direct run")
	}
}

func TestScoreTool_Errors(t *testing.T) {
	tool := NewScoreTool(defaultRules(t))

	tests := []struct {
		name string
		args map[string]interface{}
		want string
	}{
		{"missing", map[string]interface{}{}, "required"},
		{"malformed", map[string]interface{}{"submission": "{not json"}, "invalid submission"},
		{"empty", map[string]interface{}{"submission": `{"answers": {}}`}, "no answers"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			res, err := tool.Handle(context.Background(), makeReq(tc.args))
			if err != nil {
				t.Fatalf("Handle: %v", err)
			}
			if !res.IsError {
				t.Fatal("expected tool error")
			}
			if !strings.Contains(resultText(res), tc.want) {
				t.Errorf("got %q, want it to contain %q", resultText(res), tc.want)
			}
		})
	}
}

// ─── DescribeTool ────────────────────────────────────────────────────────────

func TestDescribeTool_Summary(t *testing.T) {
	rs := defaultRules(t)
	res, err := NewDescribeTool(rs).Handle(context.Background(), makeReq(nil))
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}

	text := resultText(res)
	for _, want := range []string{rs.Version, rs.Fingerprint(), rs.Composites[0]} {
		if !strings.Contains(text, want) {
			t.Errorf("summary missing %q:\n%s", want, text)
		}
	}
}

func TestDescribeTool_Question(t *testing.T) {
	rs := defaultRules(t)
	id := rs.Questions[0].ID

	res, err := NewDescribeTool(rs).Handle(context.Background(), makeReq(map[string]interface{}{
		"question": id,
	}))
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if res.IsError {
		t.Fatalf("unexpected tool error: %s", resultText(res))
	}
	if !strings.Contains(resultText(res), `"id": "`+id+`"`) {
		t.Errorf("definition missing id:\n%s", resultText(res))
	}
}

func TestDescribeTool_UnknownQuestion(t *testing.T) {
	res, err := NewDescribeTool(defaultRules(t)).Handle(context.Background(), makeReq(map[string]interface{}{
		"question": "nope",
	}))
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if !res.IsError {
		t.Error("expected tool error for unknown question")
	}
}

func TestNewServer(t *testing.T) {
	if NewServer(defaultRules(t)) == nil {
		t.Fatal("NewServer returned nil")
	}
}
