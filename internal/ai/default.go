package ai

import (
	"fmt"
	"html"
	"strings"

	"github.com/nyashahama/vitality-blueprint-backend/internal/assessment"
	"github.com/nyashahama/vitality-blueprint-backend/internal/personalize"
)

var defaultPhaseCopy = map[string]string{
	personalize.PhaseDecode: "Start by getting a clear baseline. Book the screenings listed in your plan and " +
		"keep a simple two-week log of sleep, energy and meals so the numbers have context.",
	personalize.PhaseRebalance: "Bring your stress load down before adding anything new. Use your breathing " +
		"techniques daily and protect a consistent sleep and wake time.",
	personalize.PhaseStrengthen: "Build capacity with regular movement: two or three short strength sessions " +
		"a week plus daily walking. Progress slowly and recover well.",
	personalize.PhaseNourish: "Shift your plate toward your nutrition approach one meal at a time. Start " +
		"your supplements here, one at a time, and note how you feel.",
	personalize.PhaseRefine: "Use what you have learned to fine-tune. Protect focus time, keep learning " +
		"new skills and adjust the plan where it is not working.",
	personalize.PhaseSustain: "Turn what works into routine. Repeat your screenings on the schedule your " +
		"clinician recommends and revisit this plan every few months.",
}

var compositeLabels = []struct {
	key   string
	label string
}{
	{personalize.CompositeLifestyleLoad, "lifestyle and stress load"},
	{personalize.CompositePhysiological, "physical symptoms"},
	{personalize.CompositeFamilyRisk, "family history"},
	{personalize.CompositeBiological, "biological risk factors"},
	{personalize.CompositeCognitive, "cognitive strain"},
}

// DefaultBlueprint returns hard-coded copy for res. It is used when every
// provider fails, and to fill phases a provider left out.
func DefaultBlueprint(res assessment.Result) Blueprint {
	phases := make(map[string]string, len(res.Personalize.PhaseOrder))
	for _, name := range res.Personalize.PhaseOrder {
		text, ok := defaultPhaseCopy[name]
		if !ok {
			text = "Follow the actions listed for this phase in your plan."
		}
		phases[name] = text
	}

	summary := "Your answers do not point to one dominant risk area. Your blueprint focuses on " +
		"keeping your foundations strong."
	topKey, topScore := "", -1
	for _, c := range compositeLabels {
		if v, ok := res.Scores[c.key]; ok && v > topScore {
			topKey, topScore = c.label, v
		}
	}
	if topScore >= 60 {
		summary = fmt.Sprintf("Your results point to %s as the area with the most room to improve "+
			"(score %d out of 100). Your blueprint is ordered to address it first.", topKey, topScore)
	}

	top := "<strong>Book your baseline screenings.</strong>"
	if len(res.Personalize.PhaseOrder) > 0 {
		first := res.Personalize.PhaseOrder[0]
		top = fmt.Sprintf("<strong>Start with %s:</strong> %s", html.EscapeString(first),
			html.EscapeString(firstSentence(phases[first])))
	}

	return Blueprint{
		Summary:         summary,
		TopPriorityHTML: top,
		Phases:          phases,
		Source:          SourceDefault,
	}
}

func firstSentence(s string) string {
	if i := strings.Index(s, ". "); i >= 0 {
		return s[:i+1]
	}
	return s
}
