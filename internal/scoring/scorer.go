package scoring

import (
	"math"
	"strconv"
	"strings"
)

// Answers maps question id to a raw answer value: string, number, bool, or a
// list of selected option labels for multi_select questions.
type Answers map[string]any

// ─── ANSWER NORMALIZATION (soft-fail) ─────────────────────────────────────────
//
// Nothing in this file returns an error. A malformed or unrecognised answer
// degrades to 0 so one bad field never blocks a whole assessment.

// NormalizeAnswer maps a raw answer to its canonical ordinal code.
//
// For single_choice questions the answer is looked up in the scale labels
// (exact match first, then case-insensitive). Reverse-scored questions return
// scaleLength-1-index. Unknown labels return 0.
//
// Yes/no questions accept "yes"/"no", "true"/"false", "y"/"n" and "1"/"0".
// Number questions have their digits parsed out of the raw string. Values that
// are already numeric are returned as-is, with reverse applied as
// scaleMax-value.
func NormalizeAnswer(answer any, def QuestionDefinition) int {
	return parseAnswerOrDefault(answer, def, 0)
}

// parseAnswerOrDefault is the soft-fail core of NormalizeAnswer: any answer it
// cannot interpret yields fallback.
func parseAnswerOrDefault(answer any, def QuestionDefinition, fallback int) int {
	switch v := answer.(type) {
	case nil:
		return fallback
	case bool:
		code := 0
		if v {
			code = 1
		}
		if def.Reverse {
			return 1 - code
		}
		return code
	case string:
		return normalizeString(v, def, fallback)
	}

	if f, ok := asFloat(answer); ok {
		n := int(math.Round(f))
		if def.Reverse {
			return def.ScaleMax() - n
		}
		return n
	}
	return fallback
}

func normalizeString(raw string, def QuestionDefinition, fallback int) int {
	s := strings.TrimSpace(raw)
	if s == "" {
		return fallback
	}

	if def.Type == TypeNumber {
		return int(math.Round(ParseNumberOrDefault(s, float64(fallback))))
	}

	if def.IsYesNo() {
		code, ok := parseYesNo(s)
		if !ok {
			return fallback
		}
		if def.Reverse {
			return 1 - code
		}
		return code
	}

	idx := labelIndex(def.Labels, s)
	if idx < 0 {
		return fallback
	}
	if def.Reverse {
		return len(def.Labels) - 1 - idx
	}
	return idx
}

// labelIndex returns the position of s in labels, trying an exact match
// before a case-insensitive one. Returns -1 when absent.
func labelIndex(labels []string, s string) int {
	for i, l := range labels {
		if l == s {
			return i
		}
	}
	for i, l := range labels {
		if strings.EqualFold(strings.TrimSpace(l), s) {
			return i
		}
	}
	return -1
}

func parseYesNo(s string) (int, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "yes", "y", "true", "1":
		return 1, true
	case "no", "n", "false", "0":
		return 0, true
	}
	return 0, false
}

// IsAffirmative reports whether answer reads as "yes". Used for flag-setting
// and immediate-concern questions.
func IsAffirmative(answer any) bool {
	switch v := answer.(type) {
	case bool:
		return v
	case string:
		code, ok := parseYesNo(v)
		return ok && code == 1
	}
	if f, ok := asFloat(answer); ok {
		return f == 1
	}
	return false
}

// ParseNumberOrDefault strips everything except digits and dots from raw and
// parses the remainder. Returns fallback when nothing parseable is left.
func ParseNumberOrDefault(raw string, fallback float64) float64 {
	var sb strings.Builder
	for _, r := range raw {
		if (r >= '0' && r <= '9') || r == '.' {
			sb.WriteRune(r)
		}
	}
	f, err := strconv.ParseFloat(sb.String(), 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return fallback
	}
	return f
}

// NumberValue returns the numeric value of a number-type answer, or fallback.
func NumberValue(answer any, fallback float64) float64 {
	if s, ok := answer.(string); ok {
		return ParseNumberOrDefault(s, fallback)
	}
	if f, ok := asFloat(answer); ok {
		return f
	}
	return fallback
}

func asFloat(v any) (float64, bool) {
	var f float64
	switch n := v.(type) {
	case float64:
		f = n
	case float32:
		f = float64(n)
	case int:
		f = float64(n)
	case int8:
		f = float64(n)
	case int16:
		f = float64(n)
	case int32:
		f = float64(n)
	case int64:
		f = float64(n)
	case uint:
		f = float64(n)
	case uint8:
		f = float64(n)
	case uint16:
		f = float64(n)
	case uint32:
		f = float64(n)
	case uint64:
		f = float64(n)
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// selectedLabels flattens a multi_select answer into its selected labels. A
// bare string counts as a single selection.
func selectedLabels(answer any) []string {
	switch v := answer.(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	case string:
		if strings.TrimSpace(v) == "" {
			return nil
		}
		return []string{v}
	}
	return nil
}

// isPresent reports whether an answer carries any information: non-nil,
// non-blank, and not an empty selection.
func isPresent(answer any) bool {
	switch v := answer.(type) {
	case nil:
		return false
	case string:
		return strings.TrimSpace(v) != ""
	case []string:
		return len(v) > 0
	case []any:
		return len(v) > 0
	}
	return true
}
