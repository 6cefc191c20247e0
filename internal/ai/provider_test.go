package ai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/nyashahama/vitality-blueprint-backend/internal/assessment"
	"github.com/nyashahama/vitality-blueprint-backend/internal/personalize"
	"github.com/nyashahama/vitality-blueprint-backend/internal/safety"
)

func testResult() assessment.Result {
	return assessment.Result{
		Scores: map[string]int{"lifestyle_load": 72, "cognitive": 10},
		Flags:  map[string]bool{"high_stress_flag": true, "poor_sleep_flag": false},
		Personalize: assessment.Personalization{
			PhaseOrder:         []string{personalize.PhaseRebalance, personalize.PhaseDecode},
			Screenings:         []string{"Ferritin"},
			NutritionArchetype: "Balanced",
			Supplements:        []string{"Magnesium glycinate"},
			BreathRecovery:     []string{"Box breathing"},
		},
		Safety: safety.Result{
			Banner:   safety.BannerMedication,
			Warnings: []string{safety.WarningMedication},
			Supplements: []personalize.Supplement{
				{Name: "Magnesium glycinate", Dose: "300 mg", Timing: "evening", Safety: "ok"},
			},
		},
	}
}

const goodResponse = `{"summary":"Stress is your lever.","top_priority_html":"<strong>Breathe.</strong>",` +
	`"phases":{"Rebalance":"Slow down.","Decode":"Get tested.","Unknown":"dropped"}}`

// ─── parseBlueprint ───────────────────────────────────────────────────────────

func TestParseBlueprint(t *testing.T) {
	res := testResult()

	bp, err := parseBlueprint("```json\n"+goodResponse+"\n```", res, SourceDeepSeek)
	if err != nil {
		t.Fatalf("parseBlueprint: %v", err)
	}
	if bp.Summary != "Stress is your lever." || bp.Source != SourceDeepSeek {
		t.Errorf("got %+v", bp)
	}
	if _, ok := bp.Phases["Unknown"]; ok {
		t.Error("phase outside the phase order should be dropped")
	}
	if len(bp.Phases) != 2 {
		t.Errorf("phases = %v", bp.Phases)
	}
}

func TestParseBlueprint_FillsMissingPieces(t *testing.T) {
	res := testResult()
	bp, err := parseBlueprint(`{"summary":"Only a summary."}`, res, SourceGemini)
	if err != nil {
		t.Fatal(err)
	}
	def := DefaultBlueprint(res)
	if bp.TopPriorityHTML != def.TopPriorityHTML {
		t.Errorf("top priority = %q", bp.TopPriorityHTML)
	}
	for _, name := range res.Personalize.PhaseOrder {
		if bp.Phases[name] != def.Phases[name] {
			t.Errorf("phase %q = %q, want default copy", name, bp.Phases[name])
		}
	}
}

func TestParseBlueprint_Errors(t *testing.T) {
	res := testResult()
	if _, err := parseBlueprint(`{"summary":"  "}`, res, SourceGemini); !errors.Is(err, errNoSummary) {
		t.Errorf("blank summary: got %v", err)
	}
	if _, err := parseBlueprint(`not json`, res, SourceGemini); err == nil {
		t.Error("expected error for invalid JSON")
	}
}

func TestStripFences(t *testing.T) {
	tests := map[string]string{
		"```json\n{}\n```": "{}",
		"```\n{}```":       "{}",
		"  {}  ":           "{}",
	}
	for in, want := range tests {
		if got := stripFences(in); got != want {
			t.Errorf("stripFences(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestBuildPrompt(t *testing.T) {
	p := buildPrompt(testResult())

	for _, want := range []string{
		"cognitive: 10\n  lifestyle_load: 72",
		"Active flags: high_stress_flag\n",
		"Phase order: Rebalance, Decode",
		"Magnesium glycinate (300 mg, evening). Safety: ok",
		"Safety banner: " + safety.BannerMedication,
	} {
		if !strings.Contains(p, want) {
			t.Errorf("prompt missing %q:\n%s", want, p)
		}
	}
	if strings.Contains(p, "poor_sleep_flag") {
		t.Error("inactive flags should not be listed")
	}
	if buildPrompt(testResult()) != p {
		t.Error("prompt is not stable")
	}
}

// ─── HTTP PROVIDERS ───────────────────────────────────────────────────────────

func TestAnthropicClient_WriteBlueprint(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("x-api-key") != "sk-test" {
			t.Errorf("api key header = %q", r.Header.Get("x-api-key"))
		}
		var req messagesRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
			return
		}
		if req.System != systemPrompt || len(req.Messages) != 1 {
			t.Errorf("unexpected request shape: %+v", req)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"content": []map[string]string{{"type": "text", "text": goodResponse}},
		})
	}))
	defer srv.Close()

	c := NewAnthropicClient("sk-test", "claude-test").(*anthropicClient)
	c.endpoint = srv.URL

	bp, err := c.WriteBlueprint(context.Background(), testResult())
	if err != nil {
		t.Fatalf("WriteBlueprint: %v", err)
	}
	if bp.Source != SourceAnthropic || bp.Phases[personalize.PhaseRebalance] != "Slow down." {
		t.Errorf("got %+v", bp)
	}
}

func TestAnthropicClient_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"error":{"type":"rate_limit_error","message":"slow down"}}`))
	}))
	defer srv.Close()

	c := NewAnthropicClient("sk-test", "claude-test").(*anthropicClient)
	c.endpoint = srv.URL

	_, err := c.WriteBlueprint(context.Background(), testResult())
	var pe *ProviderError
	if !errors.As(err, &pe) {
		t.Fatalf("expected *ProviderError, got %v", err)
	}
	if pe.Status != http.StatusTooManyRequests || pe.Type != "rate_limit_error" || !pe.Temporary() {
		t.Errorf("got %+v", pe)
	}
}

func TestDeepSeekClient_WriteBlueprint(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer ds-test" {
			t.Errorf("authorization = %q", r.Header.Get("Authorization"))
		}
		var req openAIRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
			return
		}
		if req.ResponseFormat == nil || req.ResponseFormat.Type != "json_object" {
			t.Error("expected JSON response format")
		}
		json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{{"message": map[string]string{"content": goodResponse}}},
		})
	}))
	defer srv.Close()

	c := NewDeepSeekClient("ds-test", "deepseek-chat").(*deepseekClient)
	c.endpoint = srv.URL

	bp, err := c.WriteBlueprint(context.Background(), testResult())
	if err != nil {
		t.Fatalf("WriteBlueprint: %v", err)
	}
	if bp.Source != SourceDeepSeek || bp.Summary != "Stress is your lever." {
		t.Errorf("got %+v", bp)
	}
}

func TestDeepSeekClient_NoChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"choices":[]}`))
	}))
	defer srv.Close()

	c := NewDeepSeekClient("ds-test", "deepseek-chat").(*deepseekClient)
	c.endpoint = srv.URL

	if _, err := c.WriteBlueprint(context.Background(), testResult()); err == nil {
		t.Error("expected error for empty choices")
	}
}

func TestDeepSeekClient_TruncatedAnswer(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"{\"summary\":"},"finish_reason":"length"}]}`))
	}))
	defer srv.Close()

	c := NewDeepSeekClient("ds-test", "deepseek-chat").(*deepseekClient)
	c.endpoint = srv.URL

	_, err := c.WriteBlueprint(context.Background(), testResult())
	if err == nil || !strings.Contains(err.Error(), "truncated") {
		t.Errorf("got %v", err)
	}
}

func TestPostJSON_NonJSONErrorBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte("bad gateway html"))
	}))
	defer srv.Close()

	var out struct{}
	err := postJSON(context.Background(), srv.Client(), "test", srv.URL, http.Header{}, map[string]string{}, &out)
	var pe *ProviderError
	if !errors.As(err, &pe) {
		t.Fatalf("expected *ProviderError, got %v", err)
	}
	if pe.Message != "bad gateway html" || pe.Temporary() {
		t.Errorf("got %+v", pe)
	}
}
