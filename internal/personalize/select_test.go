package personalize_test

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/nyashahama/vitality-blueprint-backend/internal/personalize"
)

func scores(lifestyle, physiological, family, biological, cognitive float64) map[string]float64 {
	return map[string]float64{
		personalize.CompositeLifestyleLoad: lifestyle,
		personalize.CompositePhysiological: physiological,
		personalize.CompositeFamilyRisk:    family,
		personalize.CompositeBiological:    biological,
		personalize.CompositeCognitive:     cognitive,
	}
}

// ─── PHASE ORDER ──────────────────────────────────────────────────────────────

func TestPhaseOrder(t *testing.T) {
	tests := []struct {
		name   string
		scores map[string]float64
		want   []string
	}{
		{
			name:   "default",
			scores: scores(10, 10, 10, 10, 10),
			want:   []string{"Decode", "Rebalance", "Strengthen", "Nourish", "Refine", "Sustain"},
		},
		{
			name:   "stress moves rebalance first, refine untouched",
			scores: scores(80, 50, 40, 40, 40),
			want:   []string{"Rebalance", "Decode", "Strengthen", "Nourish", "Refine", "Sustain"},
		},
		{
			name:   "family risk moves nourish before strengthen",
			scores: scores(10, 10, 75, 10, 10),
			want:   []string{"Decode", "Rebalance", "Nourish", "Strengthen", "Refine", "Sustain"},
		},
		{
			name:   "cognitive moves refine to index 3",
			scores: scores(10, 10, 10, 10, 90),
			want:   []string{"Decode", "Rebalance", "Strengthen", "Refine", "Nourish", "Sustain"},
		},
		{
			name:   "all rules in order",
			scores: scores(70, 0, 0, 70, 70),
			want:   []string{"Rebalance", "Decode", "Nourish", "Refine", "Strengthen", "Sustain"},
		},
		{
			name:   "69.9 is below high",
			scores: scores(69.9, 69.9, 69.9, 69.9, 69.9),
			want:   []string{"Decode", "Rebalance", "Strengthen", "Nourish", "Refine", "Sustain"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := personalize.PhaseOrder(tt.scores)
			if err != nil {
				t.Fatalf("PhaseOrder: %v", err)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("phase order mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestPhaseOrder_DoesNotMutateDefault(t *testing.T) {
	before := append([]string(nil), personalize.DefaultPhaseOrder...)
	if _, err := personalize.PhaseOrder(scores(90, 90, 90, 90, 90)); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(before, personalize.DefaultPhaseOrder); diff != "" {
		t.Errorf("DefaultPhaseOrder mutated:\n%s", diff)
	}
}

// ─── SCREENINGS ───────────────────────────────────────────────────────────────

func TestScreenings_CapHoldsEverywhere(t *testing.T) {
	levels := []float64{0, 59, 60, 69, 70, 100}
	symptomSets := []map[string]bool{
		nil,
		{"fatigue": true},
		{"gut": true},
		{"fatigue": true, "gut": true, "skin": true, "inflammation": true},
	}
	for _, l := range levels {
		for _, p := range levels {
			for _, f := range levels {
				for _, sym := range symptomSets {
					in := personalize.Input{Scores: scores(l, p, f, f, p), Symptoms: sym}
					got, err := personalize.Screenings(in)
					if err != nil {
						t.Fatal(err)
					}
					if len(got) > personalize.MaxScreenings {
						t.Fatalf("len=%d > cap for %+v", len(got), in)
					}
				}
			}
		}
	}
}

func TestScreenings_FirstAddedWins(t *testing.T) {
	in := personalize.Input{
		Scores:   scores(80, 80, 80, 80, 80),
		Symptoms: map[string]bool{"fatigue": true, "gut": true},
	}
	got, err := personalize.Screenings(in)
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"CRP", "Lipid panel", "HbA1c", "Vitamin D", "AM Cortisol", "Ferritin"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("screenings mismatch (-want +got):\n%s", diff)
	}
}

func TestScreenings_CoreOnly(t *testing.T) {
	got, err := personalize.Screenings(personalize.Input{Scores: scores(0, 0, 0, 0, 0)})
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(personalize.CoreScreenings, got); diff != "" {
		t.Errorf("(-want +got):\n%s", diff)
	}
}

// ─── ARCHETYPE ────────────────────────────────────────────────────────────────

func TestArchetype_Precedence(t *testing.T) {
	tests := []struct {
		name string
		in   personalize.Input
		want string
	}{
		{
			name: "family risk beats metabolic and gut",
			in: personalize.Input{
				Scores:   map[string]float64{"family_risk": 80, "biological": 80},
				Symptoms: map[string]bool{"gut": true},
			},
			want: personalize.ArchetypeAntiInflammatory,
		},
		{
			name: "inflammation symptom alone",
			in: personalize.Input{
				Scores:   map[string]float64{"family_risk": 0, "biological": 0},
				Symptoms: map[string]bool{"inflammation": true},
			},
			want: personalize.ArchetypeAntiInflammatory,
		},
		{
			name: "metabolic flag beats skin",
			in: personalize.Input{
				Scores:   map[string]float64{"family_risk": 10, "biological": 10},
				Symptoms: map[string]bool{"skin": true},
				Flags:    map[string]bool{"metabolic_risk_flag": true},
			},
			want: personalize.ArchetypeLowGlycemic,
		},
		{
			name: "gut only",
			in: personalize.Input{
				Scores:   map[string]float64{"family_risk": 10, "biological": 10},
				Symptoms: map[string]bool{"gut": true},
			},
			want: personalize.ArchetypeGutCalming,
		},
		{
			name: "default",
			in:   personalize.Input{Scores: map[string]float64{"family_risk": 10, "biological": 10}},
			want: personalize.ArchetypeBalanced,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := personalize.Archetype(tt.in)
			if err != nil {
				t.Fatal(err)
			}
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

// ─── SUPPLEMENTS ──────────────────────────────────────────────────────────────

func TestSupplements_CoreTrioAlwaysFirst(t *testing.T) {
	got, err := personalize.Supplements(personalize.Input{Scores: scores(0, 0, 0, 0, 0)})
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"Vitamin D3 + K2", "Omega-3 EPA/DHA", "Magnesium glycinate"}
	if diff := cmp.Diff(want, personalize.Names(got)); diff != "" {
		t.Errorf("(-want +got):\n%s", diff)
	}
}

func TestSupplements_NoCap(t *testing.T) {
	in := personalize.Input{
		Scores:   scores(90, 90, 90, 90, 90),
		Symptoms: map[string]bool{"gut": true, "fatigue": true, "inflammation": true, "skin": true},
	}
	got, err := personalize.Supplements(in)
	if err != nil {
		t.Fatal(err)
	}
	want := []string{
		"Vitamin D3 + K2", "Omega-3 EPA/DHA", "Magnesium glycinate",
		"Probiotic", "Creatine monohydrate", "CoQ10", "Ashwagandha",
		"Rhodiola rosea", "Curcumin", "Vitamin C",
	}
	if diff := cmp.Diff(want, personalize.Names(got)); diff != "" {
		t.Errorf("(-want +got):\n%s", diff)
	}
}

// ─── BREATHWORK ───────────────────────────────────────────────────────────────

func TestBreathwork(t *testing.T) {
	got, err := personalize.Breathwork(personalize.Input{
		Scores:   scores(60, 0, 0, 0, 60),
		Symptoms: map[string]bool{"fatigue": true},
		Flags:    map[string]bool{"poor_sleep_flag": true},
	})
	if err != nil {
		t.Fatal(err)
	}
	want := []string{
		"Box breathing", "Diaphragmatic breathing", "Physiological sigh",
		"Energizing breath", "Alternate nostril breathing", "4-7-8 breathing",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("(-want +got):\n%s", diff)
	}
}

// ─── MISSING COMPOSITES ───────────────────────────────────────────────────────

func TestSelect_MissingCompositeIsHardError(t *testing.T) {
	for _, missing := range []string{"lifestyle_load", "physiological", "family_risk", "biological", "cognitive"} {
		t.Run(missing, func(t *testing.T) {
			s := scores(50, 50, 50, 50, 50)
			delete(s, missing)

			_, err := personalize.Select(personalize.Input{Scores: s})
			var mce *personalize.MissingCompositeError
			if !errors.As(err, &mce) {
				t.Fatalf("got %v, want *MissingCompositeError", err)
			}
			if mce.Key != missing {
				t.Errorf("Key = %q, want %q", mce.Key, missing)
			}
		})
	}
}

func TestArchetype_RequiresOnlyWhatItReads(t *testing.T) {
	_, err := personalize.Archetype(personalize.Input{
		Scores: map[string]float64{"family_risk": 10, "biological": 10},
	})
	if err != nil {
		t.Errorf("archetype should not need cognitive or stress composites: %v", err)
	}
}

func TestSelect_ZeroScoresStillFullyPopulated(t *testing.T) {
	sel, err := personalize.Select(personalize.Input{Scores: scores(0, 0, 0, 0, 0)})
	if err != nil {
		t.Fatal(err)
	}
	if len(sel.PhaseOrder) != 6 || len(sel.Screenings) == 0 || sel.NutritionArchetype == "" ||
		len(sel.Supplements) == 0 || len(sel.BreathRecovery) == 0 {
		t.Errorf("selection has empty fields: %+v", sel)
	}
}
