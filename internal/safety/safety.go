// Package safety post-processes a supplement list against the user's
// medical context. Banner and warning strings are user-facing compliance
// copy and must be rendered verbatim.
package safety

import (
	"slices"
	"strings"
	"unicode"

	"github.com/nyashahama/vitality-blueprint-backend/internal/personalize"
)

// ─── USER-FACING COPY ─────────────────────────────────────────────────────────

const (
	BannerPregnancy  = "You have told us you are pregnant or trying to conceive. Please review every supplement in this plan with your clinician before starting."
	BannerMedication = "You take medication. Please check this plan with your doctor or pharmacist before starting any supplement."
)

const (
	WarningPregnancy     = "Adaptogens suppressed due to pregnancy status"
	WarningAnticoagulant = "Omega-3 may increase bleeding risk with anticoagulant medication"
	WarningKidney        = "Magnesium requires clinician approval with kidney disease"
	WarningThyroid       = "Ashwagandha may affect thyroid hormone levels"
	WarningGERD          = "Vitamin C may aggravate acid reflux"
	WarningMedication    = "Medication interaction review recommended"
)

const (
	SafetyAnticoagulant = "Omega-3 has a mild blood-thinning effect. Do not take alongside anticoagulant or antiplatelet medication without your prescriber's approval."
	SafetyKidney        = "Magnesium is cleared by the kidneys. Only take it with approval from your nephrologist."
	SafetyThyroid       = "Ashwagandha can raise thyroid hormone levels. Only take it with approval from the clinician managing your thyroid."
	SafetyGERD          = "Vitamin C can aggravate reflux. Use a buffered form with food, or skip it."
)

// ─── MATCH LISTS ──────────────────────────────────────────────────────────────

var (
	adaptogens         = []string{"ashwagandha", "rhodiola", "ginseng", "maca", "holy basil"}
	anticoagulantDrugs = []string{"warfarin", "heparin", "aspirin", "clopidogrel"}
	omega3Names        = []string{"omega-3", "omega 3", "fish oil"}
	omega3Abbrevs      = []string{"epa", "dha"}
	kidneyConditions   = []string{"kidney", "renal"}
	magnesiumNames     = []string{"magnesium"}
	thyroidConditions  = []string{"thyroid"}
	ashwagandhaNames   = []string{"ashwagandha"}
	gerdConditions     = []string{"gerd", "acid reflux", "heartburn"}
	vitaminCNames      = []string{"vitamin c", "ascorbic acid"}
	pregnancyStatuses  = []string{"pregnant", "trying_to_conceive"}
)

// Context is the medical slice of a submission the pass reads. Explicit
// booleans and free-text lists are both honoured; either one triggers a rule.
type Context struct {
	PregnancyStatus string   `json:"pregnancy_status,omitempty"`
	Medications     []string `json:"medications,omitempty"`
	Conditions      []string `json:"conditions,omitempty"`
	Anticoagulants  bool     `json:"anticoagulants,omitempty"`
	KidneyDisease   bool     `json:"kidney_disease,omitempty"`
	ThyroidDisease  bool     `json:"thyroid_disease,omitempty"`
	GERD            bool     `json:"gerd,omitempty"`
}

// Result is the pass output. Warnings is never nil.
type Result struct {
	Banner      string                   `json:"banner,omitempty"`
	Warnings    []string                 `json:"warnings"`
	Supplements []personalize.Supplement `json:"supplements"`
}

// IsPregnant reports whether the status is pregnant or trying to conceive.
func (c Context) IsPregnant() bool {
	s := strings.ToLower(strings.TrimSpace(c.PregnancyStatus))
	s = strings.NewReplacer(" ", "_", "-", "_").Replace(s)
	return slices.Contains(pregnancyStatuses, s)
}

func (c Context) onAnticoagulants() bool {
	return c.Anticoagulants || anyContains(c.Medications, anticoagulantDrugs)
}

func (c Context) hasKidneyDisease() bool {
	return c.KidneyDisease || anyContains(c.Conditions, kidneyConditions)
}

func (c Context) hasThyroidDisease() bool {
	return c.ThyroidDisease || anyContains(c.Conditions, thyroidConditions)
}

func (c Context) hasGERD() bool {
	return c.GERD || anyContains(c.Conditions, gerdConditions)
}

func (c Context) takesMedication() bool {
	for _, m := range c.Medications {
		if strings.TrimSpace(m) != "" {
			return true
		}
	}
	return false
}

// Apply runs the fixed rule list in order. Every rule whose condition holds
// fires and adds its warning; none short-circuits the rest. The input slice
// is not modified. Order is preserved apart from pregnancy removals.
//
//  1. Pregnant or trying to conceive: drop adaptogens, add the pregnancy banner.
//  2. Anticoagulants: rewrite omega-3 safety.
//  3. Kidney disease: rewrite magnesium safety.
//  4. Thyroid disease: rewrite ashwagandha safety.
//  5. GERD: rewrite vitamin C safety.
//  6. Any medication and no banner yet: generic medication banner.
func Apply(ctx Context, supplements []personalize.Supplement) Result {
	res := Result{
		Warnings:    []string{},
		Supplements: slices.Clone(supplements),
	}
	if res.Supplements == nil {
		res.Supplements = []personalize.Supplement{}
	}

	if ctx.IsPregnant() {
		res.Supplements = slices.DeleteFunc(res.Supplements, func(s personalize.Supplement) bool {
			return nameMatches(s.Name, adaptogens)
		})
		res.Banner = BannerPregnancy
		res.Warnings = append(res.Warnings, WarningPregnancy)
	}

	if ctx.onAnticoagulants() {
		for i, s := range res.Supplements {
			if nameMatches(s.Name, omega3Names) || wordMatches(s.Name, omega3Abbrevs) {
				res.Supplements[i].Safety = SafetyAnticoagulant
			}
		}
		res.Warnings = append(res.Warnings, WarningAnticoagulant)
	}

	if ctx.hasKidneyDisease() {
		rewriteSafety(res.Supplements, magnesiumNames, SafetyKidney)
		res.Warnings = append(res.Warnings, WarningKidney)
	}

	if ctx.hasThyroidDisease() {
		rewriteSafety(res.Supplements, ashwagandhaNames, SafetyThyroid)
		res.Warnings = append(res.Warnings, WarningThyroid)
	}

	if ctx.hasGERD() {
		rewriteSafety(res.Supplements, vitaminCNames, SafetyGERD)
		res.Warnings = append(res.Warnings, WarningGERD)
	}

	if ctx.takesMedication() && res.Banner == "" {
		res.Banner = BannerMedication
		res.Warnings = append(res.Warnings, WarningMedication)
	}

	return res
}

func rewriteSafety(list []personalize.Supplement, names []string, text string) {
	for i := range list {
		if nameMatches(list[i].Name, names) {
			list[i].Safety = text
		}
	}
}

func nameMatches(name string, needles []string) bool {
	n := strings.ToLower(name)
	for _, needle := range needles {
		if strings.Contains(n, needle) {
			return true
		}
	}
	return false
}

// wordMatches is nameMatches restricted to whole words, for abbreviations
// that would otherwise hit inside longer names ("dha" in "Ashwagandha").
func wordMatches(name string, words []string) bool {
	fields := strings.FieldsFunc(strings.ToLower(name), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	for _, f := range fields {
		if slices.Contains(words, f) {
			return true
		}
	}
	return false
}

func anyContains(values, needles []string) bool {
	for _, v := range values {
		if nameMatches(v, needles) {
			return true
		}
	}
	return false
}
