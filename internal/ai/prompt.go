package ai

import (
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/nyashahama/vitality-blueprint-backend/internal/assessment"
)

const systemPrompt = `You are a preventive-health writer for a wellness programme.
You will receive one person's questionnaire results: composite scores from 0 to 100 (higher means more risk), active flags, and a personalised plan that has already been selected and safety-checked.

Your job is to produce:
1. summary: 2-3 sentences describing what the scores say, in plain language. Do not diagnose.
2. top_priority_html: one short HTML fragment (1-2 sentences, may use <strong>) naming the first concrete action. Inline elements only.
3. phases: one entry per phase name in the given phase order. 2-4 sentences each, explaining what the person does in that phase using only the screenings, nutrition approach, supplements and breathing techniques provided.

Never recommend a supplement that is not in the list. Never contradict a safety warning. If a safety banner is present, tell the person to review the plan with their clinician.

Respond ONLY with valid JSON matching this exact schema, no markdown fences, no preamble:
{
  "summary": "...",
  "top_priority_html": "...",
  "phases": {
    "PhaseName": "..."
  }
}`

// blueprintJSON is the response shape every provider is prompted for.
type blueprintJSON struct {
	Summary     string            `json:"summary"`
	TopPriority string            `json:"top_priority_html"`
	Phases      map[string]string `json:"phases"`
}

var errNoSummary = errors.New("ai: response has no summary")

// buildPrompt serialises the result into a compact, stable prompt.
func buildPrompt(res assessment.Result) string {
	var sb strings.Builder
	sb.WriteString("Scores (0-100, higher = more risk):\n")
	for _, k := range slices.Sorted(maps.Keys(res.Scores)) {
		fmt.Fprintf(&sb, "  %s: %d\n", k, res.Scores[k])
	}

	var active []string
	for _, k := range slices.Sorted(maps.Keys(res.Flags)) {
		if res.Flags[k] {
			active = append(active, k)
		}
	}
	fmt.Fprintf(&sb, "Active flags: %s\n", joinOrNone(active))

	p := res.Personalize
	fmt.Fprintf(&sb, "Phase order: %s\n", strings.Join(p.PhaseOrder, ", "))
	fmt.Fprintf(&sb, "Screenings: %s\n", joinOrNone(p.Screenings))
	fmt.Fprintf(&sb, "Nutrition approach: %s\n", p.NutritionArchetype)

	sb.WriteString("Supplements:\n")
	for _, s := range res.Safety.Supplements {
		fmt.Fprintf(&sb, "  %s (%s, %s). Safety: %s\n", s.Name, s.Dose, s.Timing, s.Safety)
	}
	fmt.Fprintf(&sb, "Breathing techniques: %s\n", joinOrNone(p.BreathRecovery))

	if res.Safety.Banner != "" {
		fmt.Fprintf(&sb, "Safety banner: %s\n", res.Safety.Banner)
	}
	fmt.Fprintf(&sb, "Safety warnings: %s\n", joinOrNone(res.Safety.Warnings))
	return sb.String()
}

func joinOrNone(list []string) string {
	if len(list) == 0 {
		return "none"
	}
	return strings.Join(list, ", ")
}

// stripFences removes markdown code fences a model may add around JSON.
func stripFences(raw string) string {
	raw = strings.TrimSpace(raw)
	raw = strings.TrimPrefix(raw, "```json")
	raw = strings.TrimPrefix(raw, "```")
	raw = strings.TrimSuffix(raw, "```")
	return strings.TrimSpace(raw)
}

// parseBlueprint decodes a provider response. Phases the result does not
// contain are dropped; phases the model skipped get default copy.
func parseBlueprint(raw string, res assessment.Result, source string) (Blueprint, error) {
	raw = stripFences(raw)

	var parsed blueprintJSON
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		return Blueprint{}, fmt.Errorf("ai: parse response JSON: %w (raw: %.200s)", err, raw)
	}
	if strings.TrimSpace(parsed.Summary) == "" {
		return Blueprint{}, errNoSummary
	}

	fallback := DefaultBlueprint(res)
	phases := make(map[string]string, len(res.Personalize.PhaseOrder))
	for _, name := range res.Personalize.PhaseOrder {
		if text := strings.TrimSpace(parsed.Phases[name]); text != "" {
			phases[name] = text
		} else {
			phases[name] = fallback.Phases[name]
		}
	}

	top := strings.TrimSpace(parsed.TopPriority)
	if top == "" {
		top = fallback.TopPriorityHTML
	}

	return Blueprint{
		Summary:         strings.TrimSpace(parsed.Summary),
		TopPriorityHTML: top,
		Phases:          phases,
		Source:          source,
	}, nil
}
