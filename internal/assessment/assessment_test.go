package assessment_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"slices"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/nyashahama/vitality-blueprint-backend/internal/assessment"
	"github.com/nyashahama/vitality-blueprint-backend/internal/personalize"
	"github.com/nyashahama/vitality-blueprint-backend/internal/ruleset"
	"github.com/nyashahama/vitality-blueprint-backend/internal/safety"
	"github.com/nyashahama/vitality-blueprint-backend/internal/scoring"
)

func defaultRules(t *testing.T) *ruleset.Ruleset {
	t.Helper()
	rs, err := ruleset.Default()
	if err != nil {
		t.Fatalf("ruleset.Default: %v", err)
	}
	return rs
}

const fullSubmission = `{
  "persona": "executive",
  "answers": {
    "1.1": "Always", "1.2": "Rarely", "1.3": "Disagree", "1.4": "Never",
    "2.1": "Sometimes", "2.2": "Often", "2.3": "Often",
    "3.1": "Yes", "3.2": "No",
    "4.1": "Often", "4.2": "Sometimes", "4.3": "Neutral",
    "5.1": "Sometimes", "5.2": "Often", "5.3": "Rarely",
    "6.1": "Often", "6.2": "Rarely", "6.3": "Always", "6.4": "5.5 hours",
    "7.1": "No", "7.2": "No", "7.3": "Rarely",
    "T1": "yes",
    "BG7": ["Persistent fatigue", "Bloating or irregular digestion"],
    "BG8": "Long-haul flights every month"
  },
  "biological": {"age": 47, "gender": "male", "heightCm": 180, "weightKg": 92,
                 "diagnoses": ["High cholesterol"], "familyHistory": ["Heart disease"]},
  "medical": {"medications": ["Atorvastatin"]}
}`

func TestRun_Deterministic(t *testing.T) {
	rs := defaultRules(t)
	in, err := assessment.ParseInput([]byte(fullSubmission))
	if err != nil {
		t.Fatal(err)
	}

	first, err := assessment.Run(rs, in)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	second, err := assessment.Run(rs, in)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if diff := cmp.Diff(first, second); diff != "" {
		t.Fatalf("results differ (-first +second):\n%s", diff)
	}

	a, _ := json.Marshal(first)
	b, _ := json.Marshal(second)
	if !bytes.Equal(a, b) {
		t.Error("encoded results are not byte-identical")
	}
	if first.Digest() != second.Digest() {
		t.Error("digest differs between identical runs")
	}
}

func TestRun_OutputContract(t *testing.T) {
	rs := defaultRules(t)
	in, err := assessment.ParseInput([]byte(fullSubmission))
	if err != nil {
		t.Fatal(err)
	}
	res, err := assessment.Run(rs, in)
	if err != nil {
		t.Fatal(err)
	}

	for _, c := range rs.Composites {
		v, ok := res.Scores[c]
		if !ok {
			t.Errorf("score %q missing", c)
		}
		if v < 0 || v > 100 {
			t.Errorf("score %q = %d out of range", c, v)
		}
	}

	b, err := json.Marshal(res)
	if err != nil {
		t.Fatal(err)
	}
	var doc map[string]map[string]any
	if err := json.Unmarshal(b, &doc); err != nil {
		t.Fatal(err)
	}
	for _, k := range []string{"phase_order", "screenings", "nutrition_archetype", "supplements", "breath_recovery"} {
		if _, ok := doc["personalize"][k]; !ok {
			t.Errorf("personalize.%s missing from JSON", k)
		}
	}
	for _, k := range []string{"banner", "warnings", "supplements"} {
		if _, ok := doc["safety"][k]; !ok {
			t.Errorf("safety.%s missing from JSON", k)
		}
	}
}

func TestRun_FactsAndFlags(t *testing.T) {
	rs := defaultRules(t)
	in, err := assessment.ParseInput([]byte(fullSubmission))
	if err != nil {
		t.Fatal(err)
	}
	res, err := assessment.Run(rs, in)
	if err != nil {
		t.Fatal(err)
	}

	if !res.Flags["upcoming_travel"] {
		t.Error("upcoming_travel fact should be surfaced as a flag")
	}
	if v, ok := res.Flags["has_immediate_concern"]; !ok || v {
		t.Errorf("has_immediate_concern = %v (present=%v), want false", v, ok)
	}
	if !res.Flags["metabolic_risk_flag"] {
		t.Error("high cholesterol diagnosis should set metabolic_risk_flag")
	}
	if !res.Flags["cardiovascular_risk_flag"] {
		t.Error("family history of heart disease should set cardiovascular_risk_flag")
	}
	if !slices.Contains(res.Personalize.Screenings, "Ferritin") {
		t.Errorf("fatigue symptom should add Ferritin: %v", res.Personalize.Screenings)
	}
	if res.Safety.Banner != safety.BannerMedication {
		t.Errorf("banner = %q", res.Safety.Banner)
	}
}

func TestRun_SingleAnswer(t *testing.T) {
	rs := defaultRules(t)
	res, err := assessment.Run(rs, assessment.Input{Answers: scoring.Answers{"1.1": "Always"}})
	if err != nil {
		t.Fatal(err)
	}

	if res.Scores["lifestyle_load"] != 100 || res.Scores["stress_load_score"] != 100 {
		t.Errorf("scores = %v", res.Scores)
	}
	if res.Scores["cognitive"] != 0 || res.Scores["biological"] != 0 {
		t.Errorf("composites without data should read 0: %v", res.Scores)
	}
	if res.Personalize.PhaseOrder[0] != personalize.PhaseRebalance {
		t.Errorf("phase order = %v", res.Personalize.PhaseOrder)
	}
	if !res.Flags["high_stress_flag"] {
		t.Error("stress_load_score 100 should set high_stress_flag")
	}
	if res.Personalize.NutritionArchetype != personalize.ArchetypeBalanced {
		t.Errorf("archetype = %q", res.Personalize.NutritionArchetype)
	}
}

func TestRun_FamilyRiskIsGraded(t *testing.T) {
	rs := defaultRules(t)
	tests := []struct {
		name    string
		history []string
		answers scoring.Answers
		min     int
		max     int
	}{
		{
			name:    "one relative diagnosed late",
			history: []string{"Heart disease"},
			answers: scoring.Answers{"3.3": "One", "3.4": "70 or older"},
			min:     30,
			max:     59,
		},
		{
			name:    "two relatives diagnosed in their fifties",
			history: []string{"Heart disease"},
			answers: scoring.Answers{"3.3": "Two", "3.4": "50-59"},
			min:     70,
			max:     99,
		},
		{
			name:    "three relatives diagnosed young",
			history: []string{"Heart disease", "Stroke"},
			answers: scoring.Answers{"3.3": "Three or more", "3.4": "Under 50"},
			min:     100,
			max:     100,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := assessment.Run(rs, assessment.Input{
				Answers:      tt.answers,
				Demographics: &scoring.Demographics{FamilyHistory: tt.history},
			})
			if err != nil {
				t.Fatal(err)
			}
			if got := res.Scores[personalize.CompositeFamilyRisk]; got < tt.min || got > tt.max {
				t.Errorf("family_risk = %d, want %d..%d", got, tt.min, tt.max)
			}
		})
	}
}

func TestRun_PregnancyFiltersPersonalizeSupplements(t *testing.T) {
	rs := defaultRules(t)
	res, err := assessment.Run(rs, assessment.Input{
		Answers: scoring.Answers{"1.1": "Always", "2.1": "Always", "4.1": "Always", "4.2": "Always"},
		Medical: safety.Context{PregnancyStatus: "pregnant"},
	})
	if err != nil {
		t.Fatal(err)
	}
	for _, name := range res.Personalize.Supplements {
		lower := strings.ToLower(name)
		if strings.Contains(lower, "ashwagandha") || strings.Contains(lower, "rhodiola") {
			t.Errorf("adaptogen %q leaked into personalize.supplements", name)
		}
	}
	if diff := cmp.Diff([]string{safety.WarningPregnancy}, res.Safety.Warnings); diff != "" {
		t.Errorf("warnings (-want +got):\n%s", diff)
	}
}

func TestRun_DiagnosesFeedSafetyConditions(t *testing.T) {
	rs := defaultRules(t)
	res, err := assessment.Run(rs, assessment.Input{
		Demographics: &scoring.Demographics{Age: 60, Diagnoses: []string{"Kidney disease"}},
	})
	if err != nil {
		t.Fatal(err)
	}
	for _, s := range res.Safety.Supplements {
		if s.Name == "Magnesium glycinate" && s.Safety != safety.SafetyKidney {
			t.Errorf("magnesium safety = %q", s.Safety)
		}
	}
	if !slices.Contains(res.Safety.Warnings, safety.WarningKidney) {
		t.Errorf("warnings = %v", res.Safety.Warnings)
	}
}

func TestRun_SubmittedDemoAnswersAreIgnored(t *testing.T) {
	rs := defaultRules(t)
	spoofed, err := assessment.Run(rs, assessment.Input{
		Answers: scoring.Answers{"1.1": "Never", scoring.DemoAgeBand: "70+"},
	})
	if err != nil {
		t.Fatal(err)
	}
	if spoofed.Scores["biological"] != 0 {
		t.Errorf("biological = %d, want 0 when no demographics were supplied", spoofed.Scores["biological"])
	}
}

func TestResolveDemographics(t *testing.T) {
	tests := []struct {
		name string
		in   assessment.Input
		want scoring.Demographics
	}{
		{
			name: "canonical block wins",
			in: assessment.Input{
				Demographics: &scoring.Demographics{Age: 30, Sex: "female", HeightCM: 160, WeightKG: 55},
				User:         &scoring.UserShape{Age: 99},
			},
			want: scoring.Demographics{Age: 30, Sex: "female", HeightCM: 160, WeightKG: 55},
		},
		{
			name: "biological beats user",
			in: assessment.Input{
				Biological: &scoring.BiologicalShape{Age: 41, Gender: "M"},
				User:       &scoring.UserShape{Age: 99},
			},
			want: scoring.Demographics{Age: 41, Sex: "male"},
		},
		{
			name: "background answers fill gaps",
			in: assessment.Input{
				Answers: scoring.Answers{"BG1": "38", "BG2": "172 cm", "BG3": 68.5},
				User:    &scoring.UserShape{Sex: "f"},
			},
			want: scoring.Demographics{Age: 38, Sex: "female", HeightCM: 172, WeightKG: 68.5},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if diff := cmp.Diff(tt.want, tt.in.ResolveDemographics()); diff != "" {
				t.Errorf("(-want +got):\n%s", diff)
			}
		})
	}
}

func TestValidate(t *testing.T) {
	if err := (assessment.Input{}).Validate(); !errors.Is(err, assessment.ErrEmptyInput) {
		t.Errorf("got %v, want ErrEmptyInput", err)
	}
	if err := (assessment.Input{Answers: scoring.Answers{"1.1": "Often"}}).Validate(); err != nil {
		t.Errorf("got %v, want nil", err)
	}
}

func TestRun_MissingCompositeInRules(t *testing.T) {
	// Load refuses such a table; a hand-built one still fails at run time.
	if _, err := ruleset.Load(strings.NewReader("composites: [lifestyle_load]\n")); err == nil {
		t.Fatal("Load accepted a table without the selector's composites")
	}
	rs := &ruleset.Ruleset{Composites: []string{"lifestyle_load"}}
	_, err := assessment.Run(rs, assessment.Input{Answers: scoring.Answers{"x": "y"}})
	var mce *personalize.MissingCompositeError
	if !errors.As(err, &mce) {
		t.Fatalf("got %v, want MissingCompositeError", err)
	}
}
