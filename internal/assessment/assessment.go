// Package assessment runs the full scoring pipeline for one submission:
//
//	answers → normalize → accumulate → 0-100 scores → (flags, selection) → safety pass
//
// Run is pure. It reads only its arguments, so identical input yields
// byte-identical output and submissions can be scored in parallel.
package assessment

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"slices"

	"github.com/nyashahama/vitality-blueprint-backend/internal/flags"
	"github.com/nyashahama/vitality-blueprint-backend/internal/personalize"
	"github.com/nyashahama/vitality-blueprint-backend/internal/ruleset"
	"github.com/nyashahama/vitality-blueprint-backend/internal/safety"
	"github.com/nyashahama/vitality-blueprint-backend/internal/scoring"
)

// Background question ids used to fill demographics the submission left out.
const (
	QuestionAge    = "BG1"
	QuestionHeight = "BG2"
	QuestionWeight = "BG3"
)

// ErrEmptyInput is returned by Validate for a submission with no answers and
// no demographics.
var ErrEmptyInput = errors.New("assessment: no answers or demographics")

// Input is one submission. Demographics may arrive in any of three shapes;
// the first non-nil of Demographics, Biological, User wins.
type Input struct {
	Persona      string                   `json:"persona,omitempty"`
	Answers      scoring.Answers          `json:"answers"`
	Demographics *scoring.Demographics    `json:"demographics,omitempty"`
	Biological   *scoring.BiologicalShape `json:"biological,omitempty"`
	User         *scoring.UserShape       `json:"user,omitempty"`
	Medical      safety.Context           `json:"medical"`
}

// ParseInput decodes a JSON submission.
func ParseInput(b []byte) (Input, error) {
	var in Input
	if err := json.Unmarshal(b, &in); err != nil {
		return Input{}, fmt.Errorf("assessment: parse input: %w", err)
	}
	return in, nil
}

// Validate rejects submissions that carry nothing to score.
func (in Input) Validate() error {
	if len(in.Answers) == 0 && in.Demographics == nil && in.Biological == nil && in.User == nil {
		return ErrEmptyInput
	}
	return nil
}

// ResolveDemographics returns the canonical demographics, filling age,
// height and weight from the background answers when the block omits them.
func (in Input) ResolveDemographics() scoring.Demographics {
	var d scoring.Demographics
	switch {
	case in.Demographics != nil:
		d = *in.Demographics
	case in.Biological != nil:
		d = in.Biological.Demographics()
	case in.User != nil:
		d = in.User.Demographics()
	}

	if d.Age == 0 {
		d.Age = int(scoring.NumberValue(in.Answers[QuestionAge], 0))
	}
	if d.HeightCM == 0 {
		d.HeightCM = scoring.NumberValue(in.Answers[QuestionHeight], 0)
	}
	if d.WeightKG == 0 {
		d.WeightKG = scoring.NumberValue(in.Answers[QuestionWeight], 0)
	}
	return d
}

// ─── OUTPUT ───────────────────────────────────────────────────────────────────

// Personalization is the personalize block of the result. Supplements are
// names only, after the safety pass.
type Personalization struct {
	PhaseOrder         []string `json:"phase_order"`
	Screenings         []string `json:"screenings"`
	NutritionArchetype string   `json:"nutrition_archetype"`
	Supplements        []string `json:"supplements"`
	BreathRecovery     []string `json:"breath_recovery"`
}

// Result is the document consumed by the dashboard and the copy writer.
// Every declared composite and every personalize field is always present.
type Result struct {
	Scores      map[string]int  `json:"scores"`
	Flags       map[string]bool `json:"flags"`
	Personalize Personalization `json:"personalize"`
	Safety      safety.Result   `json:"safety"`
}

// Digest is a stable hash of the result, used as a cache key for
// generated copy.
func (r Result) Digest() string {
	b, err := json.Marshal(r)
	if err != nil {
		return ""
	}
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

// ─── PIPELINE ─────────────────────────────────────────────────────────────────

// Run scores a submission against the rule table.
//
// Answer problems never fail the run; they score as 0. A
// personalize.MissingCompositeError means the rule table does not declare a
// composite the selector needs, and is returned wrapped.
func Run(rs *ruleset.Ruleset, in Input) (Result, error) {
	demo := in.ResolveDemographics()

	// demo.* answers are always derived, never taken from the submission.
	answers := scoring.Merge(scoring.WithoutSynthetic(in.Answers), scoring.DemographicAnswers(demo))

	acc, facts := scoring.Accumulate(answers, rs.Questions, rs.Composites)
	scores := scoring.NormalizeAll(acc)

	derived := flags.Derive(rs.Flags, flags.Input{Scores: scores, Demographics: demo})

	sel, err := personalize.Select(personalize.Input{
		Scores:   scores,
		Symptoms: facts.Symptoms,
		Flags:    derived,
	})
	if err != nil {
		return Result{}, fmt.Errorf("assessment: select: %w", err)
	}

	medical := in.Medical
	medical.Conditions = append(slices.Clone(in.Medical.Conditions), demo.Diagnoses...)
	safe := safety.Apply(medical, sel.Supplements)

	// Answer facts are reported even when the question went unanswered.
	out := make(map[string]bool, len(derived)+len(facts.Flags)+1)
	for _, q := range rs.Questions {
		if q.SetsFlag != "" {
			out[q.SetsFlag] = facts.Flags[q.SetsFlag]
		}
	}
	for k, v := range derived {
		out[k] = v
	}
	out[ruleset.FactImmediateConcern] = facts.HasImmediateConcern

	return Result{
		Scores: scoring.RoundScores(scores),
		Flags:  out,
		Personalize: Personalization{
			PhaseOrder:         sel.PhaseOrder,
			Screenings:         sel.Screenings,
			NutritionArchetype: sel.NutritionArchetype,
			Supplements:        personalize.Names(safe.Supplements),
			BreathRecovery:     sel.BreathRecovery,
		},
		Safety: safe,
	}, nil
}
