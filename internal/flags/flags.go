// Package flags derives named clinical booleans from normalized scores and
// demographic facts. Every flag is an OR of independent triggers; the rules
// themselves live in the rule table, not in code.
package flags

import (
	"errors"
	"fmt"
	"strings"

	"github.com/nyashahama/vitality-blueprint-backend/internal/scoring"
)

// Level names a score threshold. Rules refer to levels, never to numbers, so
// the thresholds stay consistent when tuned in scoring.
type Level string

const (
	LevelModerate Level = "moderate"
	LevelHigh     Level = "high"
)

// Threshold returns the score a level stands for.
func (l Level) Threshold() (float64, bool) {
	switch l {
	case LevelModerate:
		return scoring.ModerateThreshold, true
	case LevelHigh:
		return scoring.HighThreshold, true
	}
	return 0, false
}

// Condition holds when the named composite is at or above the level.
type Condition struct {
	Score string `yaml:"score" json:"score"`
	Level Level  `yaml:"level" json:"level"`
}

// Group is an AND of score conditions with an optional age floor.
type Group struct {
	All    []Condition `yaml:"all" json:"all"`
	MinAge int         `yaml:"min_age,omitempty" json:"min_age,omitempty"`
}

// Rule defines one flag.
//
// YAML shape:
//
//	flags:
//	  - name: metabolic_risk_flag
//	    any_diagnosis: ["Diabetes/prediabetes", "High blood pressure"]
//	    bmi_at_least: 30
//	    when:
//	      - all: [{score: red_flag_burden_score, level: moderate},
//	              {score: nutrition_risk_score, level: moderate}]
type Rule struct {
	Name             string   `yaml:"name" json:"name"`
	Description      string   `yaml:"description,omitempty" json:"description,omitempty"`
	AnyDiagnosis     []string `yaml:"any_diagnosis,omitempty" json:"any_diagnosis,omitempty"`
	AnyFamilyHistory []string `yaml:"any_family_history,omitempty" json:"any_family_history,omitempty"`
	BMIAtLeast       float64  `yaml:"bmi_at_least,omitempty" json:"bmi_at_least,omitempty"`
	AgeAtLeast       int      `yaml:"age_at_least,omitempty" json:"age_at_least,omitempty"`
	When             []Group  `yaml:"when,omitempty" json:"when,omitempty"`
}

// Input is everything a flag rule may look at.
type Input struct {
	Scores       map[string]float64
	Demographics scoring.Demographics
}

// Derive evaluates every rule. The result has one entry per rule.
func Derive(rules []Rule, in Input) map[string]bool {
	out := make(map[string]bool, len(rules))
	for _, r := range rules {
		out[r.Name] = r.Evaluate(in)
	}
	return out
}

// Evaluate reports whether any of the rule's triggers holds. A score missing
// from in.Scores reads as 0.
func (r Rule) Evaluate(in Input) bool {
	d := in.Demographics
	for _, name := range r.AnyDiagnosis {
		if d.HasDiagnosis(name) {
			return true
		}
	}
	for _, name := range r.AnyFamilyHistory {
		if d.HasFamilyHistory(name) {
			return true
		}
	}
	if r.BMIAtLeast > 0 && d.BMI() >= r.BMIAtLeast {
		return true
	}
	if r.AgeAtLeast > 0 && d.Age >= r.AgeAtLeast {
		return true
	}
	for _, g := range r.When {
		if g.holds(in) {
			return true
		}
	}
	return false
}

func (g Group) holds(in Input) bool {
	if len(g.All) == 0 {
		return false
	}
	if g.MinAge > 0 && in.Demographics.Age < g.MinAge {
		return false
	}
	for _, c := range g.All {
		threshold, ok := c.Level.Threshold()
		if !ok || in.Scores[c.Score] < threshold {
			return false
		}
	}
	return true
}

// Validate checks the rule against the declared composites.
func (r Rule) Validate(composites map[string]struct{}) error {
	if strings.TrimSpace(r.Name) == "" {
		return errors.New("flag: name must not be empty")
	}
	if len(r.AnyDiagnosis) == 0 && len(r.AnyFamilyHistory) == 0 &&
		r.BMIAtLeast <= 0 && r.AgeAtLeast <= 0 && len(r.When) == 0 {
		return fmt.Errorf("flag %q: no triggers", r.Name)
	}
	for i, g := range r.When {
		if len(g.All) == 0 {
			return fmt.Errorf("flag %q: when[%d] has no conditions", r.Name, i)
		}
		for _, c := range g.All {
			if _, ok := composites[c.Score]; !ok {
				return fmt.Errorf("flag %q: undeclared composite %q", r.Name, c.Score)
			}
			if _, ok := c.Level.Threshold(); !ok {
				return fmt.Errorf("flag %q: unknown level %q", r.Name, c.Level)
			}
		}
	}
	return nil
}
