// Package scoring implements the deterministic questionnaire scoring core:
// answer normalization, weighted composite accumulation and 0–100 score
// normalization. It imports nothing from internal/.
package scoring

import (
	"fmt"
	"strings"
)

// QuestionType is the discriminator on every question definition.
type QuestionType string

const (
	TypeSingleChoice QuestionType = "single_choice"
	TypeMultiSelect  QuestionType = "multi_select"
	TypeNumber       QuestionType = "number"
	TypeText         QuestionType = "text"
)

// ScaleYesNo is the dedicated boolean scale. Answers on it are matched
// permissively (see NormalizeAnswer).
const ScaleYesNo = "yes_no"

// Contribution routes a normalized answer into a named composite with a
// weight. Weights may be negative.
type Contribution struct {
	Composite string  `yaml:"composite" json:"composite"`
	Weight    float64 `yaml:"weight" json:"weight"`
}

// Option is one choice of a multi_select question. Each option carries its
// own contributions and, optionally, the symptom it reports.
type Option struct {
	Label         string         `yaml:"label" json:"label"`
	Symptom       string         `yaml:"symptom,omitempty" json:"symptom,omitempty"`
	Contributions []Contribution `yaml:"contributions,omitempty" json:"contributions,omitempty"`
}

// Range bounds a number question that feeds composites.
type Range struct {
	Min float64 `yaml:"min" json:"min"`
	Max float64 `yaml:"max" json:"max"`
}

// QuestionDefinition is static configuration loaded once from the rule table.
// It is never mutated at runtime.
//
// YAML shape:
//
//	questions:
//	  - id: "1.1"
//	    type: single_choice
//	    scale: frequency
//	    reverse: false
//	    contributions:
//	      - {composite: stress_load_score, weight: 2}
type QuestionDefinition struct {
	ID            string         `yaml:"id" json:"id"`
	Text          string         `yaml:"text,omitempty" json:"text,omitempty"`
	Type          QuestionType   `yaml:"type" json:"type"`
	Scale         string         `yaml:"scale,omitempty" json:"scale,omitempty"`
	Reverse       bool           `yaml:"reverse,omitempty" json:"reverse,omitempty"`
	Options       []Option       `yaml:"options,omitempty" json:"options,omitempty"`
	Contributions []Contribution `yaml:"contributions,omitempty" json:"contributions,omitempty"`
	Range         *Range         `yaml:"range,omitempty" json:"range,omitempty"`

	// SetsFlag names a per-submission boolean fact recorded from this
	// question's answer, e.g. "upcoming_travel".
	SetsFlag string `yaml:"sets_flag,omitempty" json:"sets_flag,omitempty"`

	// ImmediateConcern marks a question whose affirmative answer fast-tracks
	// the submission for urgent review.
	ImmediateConcern bool `yaml:"immediate_concern,omitempty" json:"immediate_concern,omitempty"`

	// Labels is the resolved ordinal scale. It is filled in from the named
	// scale when the rule table is loaded.
	Labels []string `yaml:"-" json:"labels,omitempty"`
}

// ScaleMax is the highest ordinal code of the question's scale. Questions
// without a resolved scale use the canonical 0–4 range.
func (d QuestionDefinition) ScaleMax() int {
	if len(d.Labels) == 0 {
		return 4
	}
	return len(d.Labels) - 1
}

// IsYesNo reports whether the question uses the dedicated yes/no scale.
func (d QuestionDefinition) IsYesNo() bool {
	return strings.EqualFold(d.Scale, ScaleYesNo)
}

// Validate checks the definition against the declared composite set. Call it
// once at load time, not on every request.
func (d QuestionDefinition) Validate(composites map[string]struct{}) error {
	if strings.TrimSpace(d.ID) == "" {
		return fmt.Errorf("question: id must not be empty")
	}

	checkContribs := func(where string, cs []Contribution) error {
		for _, c := range cs {
			if _, ok := composites[c.Composite]; !ok {
				return fmt.Errorf("question %q: %s references undeclared composite %q", d.ID, where, c.Composite)
			}
		}
		return nil
	}

	switch d.Type {
	case TypeSingleChoice:
		if len(d.Labels) < 2 {
			return fmt.Errorf("question %q: single_choice needs a scale with at least 2 labels", d.ID)
		}
		if len(d.Options) > 0 {
			return fmt.Errorf("question %q: single_choice must not declare options", d.ID)
		}
	case TypeMultiSelect:
		if len(d.Options) == 0 {
			return fmt.Errorf("question %q: multi_select needs options", d.ID)
		}
		if len(d.Contributions) > 0 {
			return fmt.Errorf("question %q: multi_select contributions belong on options", d.ID)
		}
		seen := make(map[string]struct{}, len(d.Options))
		for _, o := range d.Options {
			key := strings.ToLower(strings.TrimSpace(o.Label))
			if key == "" {
				return fmt.Errorf("question %q: option label must not be empty", d.ID)
			}
			if _, dup := seen[key]; dup {
				return fmt.Errorf("question %q: duplicate option %q", d.ID, o.Label)
			}
			seen[key] = struct{}{}
			if err := checkContribs("option "+o.Label, o.Contributions); err != nil {
				return err
			}
		}
	case TypeNumber:
		if len(d.Contributions) > 0 {
			if d.Range == nil || d.Range.Max <= d.Range.Min {
				return fmt.Errorf("question %q: number with contributions needs range.max > range.min", d.ID)
			}
		}
	case TypeText:
		if len(d.Contributions) > 0 {
			return fmt.Errorf("question %q: text questions cannot feed composites", d.ID)
		}
	default:
		return fmt.Errorf("question %q: unknown type %q", d.ID, d.Type)
	}

	return checkContribs("contribution", d.Contributions)
}
