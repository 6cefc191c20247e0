package scoring

import (
	"math"
	"strings"
)

// Question ids of the synthetic answers derived from demographics. The rule
// table declares these like any other question so biological and family
// composites come out of the same weights as the questionnaire.
const (
	DemoPrefix = "demo."

	DemoAgeBand       = "demo.age_band"
	DemoBMIBand       = "demo.bmi_band"
	DemoDiagnoses     = "demo.diagnoses"
	DemoFamilyHistory = "demo.family_history"
)

// Demographics is the canonical demographic input.
type Demographics struct {
	Age           int      `json:"age"`
	Sex           string   `json:"sex"`
	HeightCM      float64  `json:"height_cm"`
	WeightKG      float64  `json:"weight_kg"`
	Diagnoses     []string `json:"diagnoses"`
	FamilyHistory []string `json:"family_history"`
}

// BMI returns weight/height² or 0 when either measurement is missing.
func (d Demographics) BMI() float64 {
	if d.HeightCM <= 0 || d.WeightKG <= 0 {
		return 0
	}
	m := d.HeightCM / 100
	return math.Round(d.WeightKG/(m*m)*10) / 10
}

// HasDiagnosis reports whether name is in the diagnoses list, ignoring case.
func (d Demographics) HasDiagnosis(name string) bool {
	return containsFold(d.Diagnoses, name)
}

// HasFamilyHistory reports whether name is in the family history list.
func (d Demographics) HasFamilyHistory(name string) bool {
	return containsFold(d.FamilyHistory, name)
}

func containsFold(list []string, name string) bool {
	for _, v := range list {
		if strings.EqualFold(strings.TrimSpace(v), strings.TrimSpace(name)) {
			return true
		}
	}
	return false
}

// ─── INPUT-SHAPE ADAPTERS ─────────────────────────────────────────────────────
//
// Older funnel pages post demographics in two different shapes. Both are
// converted to Demographics here so there is exactly one scoring path.

// UserShape is the {"user": {...}} payload sent by the persona funnels.
type UserShape struct {
	Age           int      `json:"age"`
	Sex           string   `json:"sex"`
	Height        float64  `json:"height"` // cm
	Weight        float64  `json:"weight"` // kg
	Conditions    []string `json:"conditions"`
	FamilyHistory []string `json:"familyHistory"`
}

// Demographics converts the user shape.
func (u UserShape) Demographics() Demographics {
	return Demographics{
		Age:           u.Age,
		Sex:           normalizeSex(u.Sex),
		HeightCM:      u.Height,
		WeightKG:      u.Weight,
		Diagnoses:     u.Conditions,
		FamilyHistory: u.FamilyHistory,
	}
}

// BiologicalShape is the {"biological": {...}} payload sent by the
// blueprint dashboard.
type BiologicalShape struct {
	Age           int      `json:"age"`
	Gender        string   `json:"gender"`
	HeightCM      float64  `json:"heightCm"`
	WeightKG      float64  `json:"weightKg"`
	Diagnoses     []string `json:"diagnoses"`
	FamilyHistory []string `json:"familyHistory"`
}

// Demographics converts the biological shape.
func (b BiologicalShape) Demographics() Demographics {
	return Demographics{
		Age:           b.Age,
		Sex:           normalizeSex(b.Gender),
		HeightCM:      b.HeightCM,
		WeightKG:      b.WeightKG,
		Diagnoses:     b.Diagnoses,
		FamilyHistory: b.FamilyHistory,
	}
}

func normalizeSex(s string) string {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "f", "female", "woman":
		return "female"
	case "m", "male", "man":
		return "male"
	case "":
		return ""
	default:
		return "other"
	}
}

// ─── SYNTHETIC ANSWERS ────────────────────────────────────────────────────────

// AgeBand labels, youngest first. The rule table's age_band scale must use
// the same labels in the same order.
var AgeBands = []string{"Under 30", "30-39", "40-49", "50-59", "60-69", "70+"}

// BMIBands labels, lowest first.
var BMIBands = []string{"Under 25", "25-29.9", "30-34.9", "35+"}

// DemographicAnswers maps demographics to synthetic answers keyed by the
// demo.* question ids. Missing measurements produce no answer.
func DemographicAnswers(d Demographics) Answers {
	out := Answers{}
	if d.Age > 0 {
		out[DemoAgeBand] = ageBand(d.Age)
	}
	if bmi := d.BMI(); bmi > 0 {
		out[DemoBMIBand] = bmiBand(bmi)
	}
	if list := uniqueFold(d.Diagnoses); len(list) > 0 {
		out[DemoDiagnoses] = list
	}
	if list := uniqueFold(d.FamilyHistory); len(list) > 0 {
		out[DemoFamilyHistory] = list
	}
	return out
}

// uniqueFold drops blank and case-insensitive repeat entries, keeping the
// first spelling.
func uniqueFold(list []string) []string {
	var out []string
	seen := make(map[string]struct{}, len(list))
	for _, s := range list {
		key := strings.ToLower(strings.TrimSpace(s))
		if key == "" {
			continue
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, s)
	}
	return out
}

func ageBand(age int) string {
	switch {
	case age < 30:
		return AgeBands[0]
	case age < 40:
		return AgeBands[1]
	case age < 50:
		return AgeBands[2]
	case age < 60:
		return AgeBands[3]
	case age < 70:
		return AgeBands[4]
	default:
		return AgeBands[5]
	}
}

func bmiBand(bmi float64) string {
	switch {
	case bmi < 25:
		return BMIBands[0]
	case bmi < 30:
		return BMIBands[1]
	case bmi < 35:
		return BMIBands[2]
	default:
		return BMIBands[3]
	}
}

// WithoutSynthetic returns a copy of answers minus any demo.* keys.
func WithoutSynthetic(answers Answers) Answers {
	out := make(Answers, len(answers))
	for k, v := range answers {
		if strings.HasPrefix(k, DemoPrefix) {
			continue
		}
		out[k] = v
	}
	return out
}

// Merge returns a new answer set containing a and then b; keys in b win.
func Merge(a, b Answers) Answers {
	out := make(Answers, len(a)+len(b))
	for k, v := range a {
		out[k] = v
	}
	for k, v := range b {
		out[k] = v
	}
	return out
}
