// Package personalize selects the plan artifacts (phase order, screenings,
// nutrition archetype, supplements, breathwork) from normalized scores and
// symptom facts.
//
// Unlike scoring, nothing here degrades softly: a required composite missing
// from the input is an integration error and fails with MissingCompositeError.
package personalize

import (
	"fmt"
	"slices"

	"github.com/nyashahama/vitality-blueprint-backend/internal/scoring"
)

// MissingCompositeError reports a composite the selector needs but the score
// map does not contain.
type MissingCompositeError struct {
	Key string
}

func (e *MissingCompositeError) Error() string {
	return fmt.Sprintf("personalize: missing required composite %q", e.Key)
}

// Input is what the selector reads. Scores are unrounded 0–100 values.
type Input struct {
	Scores   map[string]float64
	Symptoms map[string]bool
	Flags    map[string]bool
}

// Selection is the selector's output. Field order and names match the
// personalize block of the result document.
type Selection struct {
	PhaseOrder         []string     `json:"phase_order"`
	Screenings         []string     `json:"screenings"`
	NutritionArchetype string       `json:"nutrition_archetype"`
	Supplements        []Supplement `json:"supplements"`
	BreathRecovery     []string     `json:"breath_recovery"`
}

// requireComposite is the hard-fail counterpart of scoring's soft-fail
// parsing: it never substitutes a default.
func requireComposite(scores map[string]float64, key string) (float64, error) {
	v, ok := scores[key]
	if !ok {
		return 0, &MissingCompositeError{Key: key}
	}
	return v, nil
}

// requireAll resolves several composites at once, failing on the first gap.
func requireAll(scores map[string]float64, keys ...string) (map[string]float64, error) {
	out := make(map[string]float64, len(keys))
	for _, k := range keys {
		v, err := requireComposite(scores, k)
		if err != nil {
			return nil, err
		}
		out[k] = v
	}
	return out, nil
}

// Select runs every sub-selector.
func Select(in Input) (Selection, error) {
	var (
		sel Selection
		err error
	)
	if sel.PhaseOrder, err = PhaseOrder(in.Scores); err != nil {
		return Selection{}, err
	}
	if sel.Screenings, err = Screenings(in); err != nil {
		return Selection{}, err
	}
	if sel.NutritionArchetype, err = Archetype(in); err != nil {
		return Selection{}, err
	}
	if sel.Supplements, err = Supplements(in); err != nil {
		return Selection{}, err
	}
	if sel.BreathRecovery, err = Breathwork(in); err != nil {
		return Selection{}, err
	}
	return sel, nil
}

// ─── PHASE ORDER ──────────────────────────────────────────────────────────────

// PhaseOrder rewrites the default sequence. The rules run in a fixed order
// because each one can shift indices the next relies on:
//
//	a) max(lifestyle_load, physiological) ≥ high → Rebalance first, Decode second
//	b) max(family_risk, biological) ≥ high       → Nourish just before Strengthen
//	c) cognitive ≥ high                          → Refine at index 3
func PhaseOrder(scores map[string]float64) ([]string, error) {
	s, err := requireAll(scores,
		CompositeLifestyleLoad, CompositePhysiological,
		CompositeFamilyRisk, CompositeBiological, CompositeCognitive)
	if err != nil {
		return nil, err
	}

	order := slices.Clone(DefaultPhaseOrder)

	if max(s[CompositeLifestyleLoad], s[CompositePhysiological]) >= scoring.HighThreshold {
		order = remove(order, PhaseRebalance)
		order = remove(order, PhaseDecode)
		order = append([]string{PhaseRebalance, PhaseDecode}, order...)
	}

	if max(s[CompositeFamilyRisk], s[CompositeBiological]) >= scoring.HighThreshold {
		nourish := slices.Index(order, PhaseNourish)
		strengthen := slices.Index(order, PhaseStrengthen)
		if nourish > strengthen {
			order = remove(order, PhaseNourish)
			order = slices.Insert(order, slices.Index(order, PhaseStrengthen), PhaseNourish)
		}
	}

	if s[CompositeCognitive] >= scoring.HighThreshold {
		order = remove(order, PhaseRefine)
		order = slices.Insert(order, 3, PhaseRefine)
	}

	return order, nil
}

func remove(list []string, v string) []string {
	i := slices.Index(list, v)
	if i < 0 {
		return list
	}
	return slices.Delete(list, i, i+1)
}

// ─── SCREENINGS ───────────────────────────────────────────────────────────────

// Screenings appends conditional tests to the core list, drops duplicates
// and truncates to MaxScreenings. Earlier entries always win.
func Screenings(in Input) ([]string, error) {
	s, err := requireAll(in.Scores,
		CompositePhysiological, CompositeLifestyleLoad,
		CompositeFamilyRisk, CompositeBiological, CompositeCognitive)
	if err != nil {
		return nil, err
	}

	list := slices.Clone(CoreScreenings)
	if s[CompositePhysiological] >= scoring.ModerateThreshold || s[CompositeLifestyleLoad] >= scoring.ModerateThreshold {
		list = append(list, ScreenAMCortisol)
	}
	if in.Symptoms[SymptomFatigue] {
		list = append(list, ScreenFerritin, ScreenTSH)
	}
	if s[CompositeFamilyRisk] >= scoring.HighThreshold {
		list = append(list, ScreenApoB, ScreenLpA)
	}
	if s[CompositeBiological] >= scoring.HighThreshold {
		list = append(list, ScreenFastInsulin)
	}
	if s[CompositeCognitive] >= scoring.HighThreshold {
		list = append(list, ScreenVitaminB12)
	}
	if in.Symptoms[SymptomGut] {
		list = append(list, ScreenStoolAnalysis)
	}

	list = dedupe(list)
	if len(list) > MaxScreenings {
		list = list[:MaxScreenings]
	}
	return list, nil
}

func dedupe(list []string) []string {
	seen := make(map[string]struct{}, len(list))
	out := list[:0]
	for _, v := range list {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

// ─── NUTRITION ARCHETYPE ──────────────────────────────────────────────────────

// Archetype picks exactly one archetype. Family risk or inflammation beats
// metabolic signals, which beat isolated gut or skin symptoms.
func Archetype(in Input) (string, error) {
	s, err := requireAll(in.Scores, CompositeFamilyRisk, CompositeBiological)
	if err != nil {
		return "", err
	}

	switch {
	case s[CompositeFamilyRisk] >= scoring.HighThreshold || in.Symptoms[SymptomInflammation]:
		return ArchetypeAntiInflammatory, nil
	case s[CompositeBiological] >= scoring.HighThreshold || in.Flags[FlagMetabolicRisk]:
		return ArchetypeLowGlycemic, nil
	case in.Symptoms[SymptomGut] || in.Symptoms[SymptomSkin]:
		return ArchetypeGutCalming, nil
	default:
		return ArchetypeBalanced, nil
	}
}

// ─── SUPPLEMENTS ──────────────────────────────────────────────────────────────

// Supplements starts from the core trio and appends per symptom and score.
// There is no cap.
func Supplements(in Input) ([]Supplement, error) {
	s, err := requireAll(in.Scores,
		CompositeFamilyRisk, CompositeLifestyleLoad, CompositePhysiological, CompositeCognitive)
	if err != nil {
		return nil, err
	}

	list := CoreSupplements()
	if in.Symptoms[SymptomGut] {
		list = append(list, probiotic)
	}
	if in.Symptoms[SymptomFatigue] {
		list = append(list, creatine)
	}
	if s[CompositeFamilyRisk] >= scoring.HighThreshold {
		list = append(list, coq10)
	}
	if max(s[CompositeLifestyleLoad], s[CompositePhysiological]) >= scoring.HighThreshold {
		list = append(list, ashwagandha)
	}
	if s[CompositeCognitive] >= scoring.HighThreshold {
		list = append(list, rhodiola)
	}
	if in.Symptoms[SymptomInflammation] {
		list = append(list, curcumin)
	}
	if in.Symptoms[SymptomSkin] {
		list = append(list, vitaminC)
	}
	return list, nil
}

// Names returns the supplement names in order.
func Names(list []Supplement) []string {
	out := make([]string, len(list))
	for i, s := range list {
		out[i] = s.Name
	}
	return out
}

// ─── BREATHWORK ───────────────────────────────────────────────────────────────

// Breathwork starts from two core techniques and appends per stress,
// fatigue, cognitive load and sleep.
func Breathwork(in Input) ([]string, error) {
	s, err := requireAll(in.Scores, CompositeLifestyleLoad, CompositePhysiological, CompositeCognitive)
	if err != nil {
		return nil, err
	}

	list := []string{BreathBox, BreathDiaphragmatic}
	if max(s[CompositeLifestyleLoad], s[CompositePhysiological]) >= scoring.ModerateThreshold {
		list = append(list, BreathPhysiologicSigh)
	}
	if in.Symptoms[SymptomFatigue] {
		list = append(list, BreathEnergizing)
	}
	if s[CompositeCognitive] >= scoring.ModerateThreshold {
		list = append(list, BreathAlternateNostril)
	}
	if in.Symptoms[SymptomSleep] || in.Flags[FlagPoorSleep] {
		list = append(list, Breath478)
	}
	return list, nil
}
