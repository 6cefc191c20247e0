package scoring

import (
	"math"
	"sort"
	"strings"
)

// Accumulator holds the weighted running total for one composite together
// with the best- and worst-case totals the answered questions could have
// produced. NormalizeScore rescales Raw against these bounds.
type Accumulator struct {
	Raw         float64 `json:"raw"`
	MaxPossible float64 `json:"max_possible"`
	MinPossible float64 `json:"min_possible"`
}

// Facts is the secondary output of Accumulate: per-submission booleans and
// side-table values observed while walking the answers.
type Facts struct {
	// HasImmediateConcern is set when any immediate_concern question was
	// answered affirmatively.
	HasImmediateConcern bool `json:"has_immediate_concern"`

	// Flags holds sets_flag facts keyed by flag name.
	Flags map[string]bool `json:"flags"`

	// Symptoms holds the symptom tags of every selected multi_select option.
	Symptoms map[string]bool `json:"symptoms"`

	// Numbers is the raw side table of number-question answers.
	Numbers map[string]float64 `json:"numbers"`
}

// HasSymptom reports whether the named symptom was selected.
func (f Facts) HasSymptom(name string) bool { return f.Symptoms[name] }

// Accumulate walks every answered question and folds its weighted
// contribution into the named composites. Every composite in composites is
// present in the returned map, even when nothing contributed to it.
//
// Bounds are tracked asymmetrically: a positive weight raises MaxPossible by
// scaleMax*w, a negative weight lowers MinPossible by scaleMax*|w|, because a
// negative weight inverts which end of the scale is worst.
//
// Accumulate never fails; unparseable answers contribute 0.
func Accumulate(answers Answers, defs []QuestionDefinition, composites []string) (map[string]Accumulator, Facts) {
	acc := make(map[string]Accumulator, len(composites))
	for _, c := range composites {
		acc[c] = Accumulator{}
	}

	facts := Facts{
		Flags:    map[string]bool{},
		Symptoms: map[string]bool{},
		Numbers:  map[string]float64{},
	}

	for _, def := range defs {
		answer, ok := answers[def.ID]
		if !ok || !isPresent(answer) {
			continue
		}

		if def.SetsFlag != "" {
			facts.Flags[def.SetsFlag] = IsAffirmative(answer)
		}
		if def.ImmediateConcern && IsAffirmative(answer) {
			facts.HasImmediateConcern = true
		}

		switch def.Type {
		case TypeSingleChoice:
			scaleMax := float64(def.ScaleMax())
			v := clampFloat(float64(NormalizeAnswer(answer, def)), 0, scaleMax)
			for _, c := range def.Contributions {
				addWeighted(acc, c, v, scaleMax)
			}

		case TypeMultiSelect:
			// Each option counts once, however often or in whatever case
			// it was sent.
			seen := make(map[string]struct{}, len(def.Options))
			for _, label := range selectedLabels(answer) {
				opt, found := findOption(def.Options, label)
				if !found {
					continue
				}
				key := strings.ToLower(strings.TrimSpace(opt.Label))
				if _, dup := seen[key]; dup {
					continue
				}
				seen[key] = struct{}{}
				if opt.Symptom != "" {
					facts.Symptoms[opt.Symptom] = true
				}
				for _, c := range opt.Contributions {
					w := math.Abs(c.Weight)
					a := acc[c.Composite]
					a.Raw += w
					a.MaxPossible += w
					acc[c.Composite] = a
				}
			}

		case TypeNumber:
			n := NumberValue(answer, 0)
			facts.Numbers[def.ID] = n
			if def.Range == nil || len(def.Contributions) == 0 {
				continue
			}
			span := def.Range.Max - def.Range.Min
			v := clampFloat(n, def.Range.Min, def.Range.Max) - def.Range.Min
			for _, c := range def.Contributions {
				addWeighted(acc, c, v, span)
			}
		}
	}

	return acc, facts
}

func addWeighted(acc map[string]Accumulator, c Contribution, v, scaleMax float64) {
	a := acc[c.Composite]
	a.Raw += v * c.Weight
	if c.Weight > 0 {
		a.MaxPossible += scaleMax * c.Weight
	} else if c.Weight < 0 {
		a.MinPossible += scaleMax * c.Weight
	}
	acc[c.Composite] = a
}

func findOption(opts []Option, label string) (Option, bool) {
	label = strings.TrimSpace(label)
	for _, o := range opts {
		if strings.EqualFold(strings.TrimSpace(o.Label), label) {
			return o, true
		}
	}
	return Option{}, false
}

// SortedKeys returns the keys of a composite map in lexical order. Used
// wherever iteration order could leak into output.
func SortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
