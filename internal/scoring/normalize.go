package scoring

import "math"

// ─── CONSTANTS ────────────────────────────────────────────────────────────────

// Threshold levels on the 0–100 scale. Every flag and selection rule compares
// against one of these; tune them here, never inline.
const (
	ModerateThreshold = 60.0
	HighThreshold     = 70.0
)

// midpointScore is returned when a composite has contributors but zero spread.
const midpointScore = 50.0

// ─── CORE FUNCTIONS ───────────────────────────────────────────────────────────

// clampFloat constrains v to [lo, hi].
func clampFloat(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// NormalizeScore rescales an accumulator into [0, 100].
//
//	max > min            → (raw-min)/(max-min)*100, clamped
//	max == min, nonzero  → 50 (no discrimination possible)
//	max == min == 0      → 0  (no data reads as no risk signal)
//
// The result is not rounded; round only when presenting (RoundScores).
func NormalizeScore(a Accumulator) float64 {
	switch {
	case a.MaxPossible > a.MinPossible:
		v := (a.Raw - a.MinPossible) / (a.MaxPossible - a.MinPossible) * 100
		if math.IsNaN(v) {
			return 0
		}
		return clampFloat(v, 0, 100)
	case a.MaxPossible == a.MinPossible && a.MaxPossible != 0:
		return midpointScore
	default:
		return 0
	}
}

// NormalizeAll applies NormalizeScore to every composite.
func NormalizeAll(acc map[string]Accumulator) map[string]float64 {
	out := make(map[string]float64, len(acc))
	for k, a := range acc {
		out[k] = NormalizeScore(a)
	}
	return out
}

// RoundScores rounds normalized scores to the nearest integer for display.
func RoundScores(scores map[string]float64) map[string]int {
	out := make(map[string]int, len(scores))
	for k, v := range scores {
		out[k] = int(math.Round(v))
	}
	return out
}
