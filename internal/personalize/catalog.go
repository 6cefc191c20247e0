package personalize

// ─── COMPOSITES AND FACTS READ BY THE SELECTOR ────────────────────────────────

const (
	CompositeLifestyleLoad = "lifestyle_load"
	CompositePhysiological = "physiological"
	CompositeFamilyRisk    = "family_risk"
	CompositeBiological    = "biological"
	CompositeCognitive     = "cognitive"
)

// RequiredComposites lists every composite the selector reads. A rule table
// that omits one cannot produce a personalize block.
var RequiredComposites = []string{
	CompositeLifestyleLoad,
	CompositePhysiological,
	CompositeFamilyRisk,
	CompositeBiological,
	CompositeCognitive,
}

const (
	SymptomGut          = "gut"
	SymptomFatigue      = "fatigue"
	SymptomSkin         = "skin"
	SymptomInflammation = "inflammation"
	SymptomSleep        = "sleep"
)

const (
	FlagMetabolicRisk = "metabolic_risk_flag"
	FlagPoorSleep     = "poor_sleep_flag"
)

// ─── PHASES ───────────────────────────────────────────────────────────────────

const (
	PhaseDecode     = "Decode"
	PhaseRebalance  = "Rebalance"
	PhaseStrengthen = "Strengthen"
	PhaseNourish    = "Nourish"
	PhaseRefine     = "Refine"
	PhaseSustain    = "Sustain"
)

// DefaultPhaseOrder is the sequence before any rewrite rule applies.
var DefaultPhaseOrder = []string{
	PhaseDecode, PhaseRebalance, PhaseStrengthen, PhaseNourish, PhaseRefine, PhaseSustain,
}

// ─── SCREENINGS ───────────────────────────────────────────────────────────────

// MaxScreenings caps the screening list. Entries past the cap are dropped in
// insertion order.
const MaxScreenings = 6

// CoreScreenings are recommended to everyone.
var CoreScreenings = []string{"CRP", "Lipid panel", "HbA1c", "Vitamin D"}

const (
	ScreenAMCortisol    = "AM Cortisol"
	ScreenFerritin      = "Ferritin"
	ScreenTSH           = "TSH"
	ScreenApoB          = "ApoB"
	ScreenLpA           = "Lp(a)"
	ScreenFastInsulin   = "Fasting insulin"
	ScreenVitaminB12    = "Vitamin B12"
	ScreenStoolAnalysis = "Comprehensive stool analysis"
)

// ─── NUTRITION ARCHETYPES ─────────────────────────────────────────────────────

const (
	ArchetypeAntiInflammatory = "Anti-Inflammatory Mediterranean"
	ArchetypeLowGlycemic      = "Low-Glycemic Metabolic"
	ArchetypeGutCalming       = "Gut-Calming Whole Foods"
	ArchetypeBalanced         = "Balanced Mediterranean"
)

// ─── BREATHWORK ───────────────────────────────────────────────────────────────

const (
	BreathBox              = "Box breathing"
	BreathDiaphragmatic    = "Diaphragmatic breathing"
	BreathPhysiologicSigh  = "Physiological sigh"
	BreathEnergizing       = "Energizing breath"
	BreathAlternateNostril = "Alternate nostril breathing"
	Breath478              = "4-7-8 breathing"
)

// ─── SUPPLEMENTS ──────────────────────────────────────────────────────────────

// Supplement is one recommended product. Safety is the user-facing caution
// and may be rewritten by the contraindication pass.
type Supplement struct {
	Name      string `json:"name"`
	Dose      string `json:"dose"`
	Timing    string `json:"timing"`
	Rationale string `json:"rationale"`
	Safety    string `json:"safety"`
}

var (
	vitaminD3K2 = Supplement{
		Name:      "Vitamin D3 + K2",
		Dose:      "2,000 IU D3 with 100 mcg K2",
		Timing:    "With breakfast",
		Rationale: "Supports immune, bone and metabolic health. Most adults run low through winter.",
		Safety:    "Take with a meal that contains some fat.",
	}
	omega3 = Supplement{
		Name:      "Omega-3 EPA/DHA",
		Dose:      "1-2 g combined EPA and DHA",
		Timing:    "With your largest meal",
		Rationale: "Supports heart and brain health and helps resolve low-grade inflammation.",
		Safety:    "Choose a third-party tested product.",
	}
	magnesium = Supplement{
		Name:      "Magnesium glycinate",
		Dose:      "200-400 mg",
		Timing:    "30-60 minutes before bed",
		Rationale: "Supports sleep quality, muscle relaxation and stress resilience.",
		Safety:    "Higher doses can loosen stools.",
	}
	probiotic = Supplement{
		Name:      "Probiotic",
		Dose:      "10-20 billion CFU multi-strain",
		Timing:    "Morning, before food",
		Rationale: "Supports a diverse gut microbiome when digestion is unsettled.",
		Safety:    "Mild bloating in the first week is common.",
	}
	creatine = Supplement{
		Name:      "Creatine monohydrate",
		Dose:      "3-5 g",
		Timing:    "Any time, daily",
		Rationale: "Supports cellular energy in muscle and brain when fatigue is persistent.",
		Safety:    "Drink plenty of water.",
	}
	coq10 = Supplement{
		Name:      "CoQ10",
		Dose:      "100-200 mg ubiquinol",
		Timing:    "With breakfast",
		Rationale: "Supports mitochondrial and cardiovascular function where family risk is high.",
		Safety:    "Can interact with blood-pressure medication.",
	}
	ashwagandha = Supplement{
		Name:      "Ashwagandha",
		Dose:      "300-600 mg KSM-66 extract",
		Timing:    "Evening",
		Rationale: "An adaptogen shown to lower perceived stress and cortisol.",
		Safety:    "Avoid with autoimmune conditions unless cleared by your clinician.",
	}
	rhodiola = Supplement{
		Name:      "Rhodiola rosea",
		Dose:      "200-400 mg standardised extract",
		Timing:    "Morning",
		Rationale: "An adaptogen that supports mental stamina and focus under load.",
		Safety:    "Can be stimulating; avoid late in the day.",
	}
	curcumin = Supplement{
		Name:      "Curcumin",
		Dose:      "500 mg with piperine",
		Timing:    "With a meal",
		Rationale: "Supports the body's inflammatory balance and joint comfort.",
		Safety:    "Stop two weeks before surgery.",
	}
	vitaminC = Supplement{
		Name:      "Vitamin C",
		Dose:      "500 mg",
		Timing:    "Morning",
		Rationale: "Supports collagen formation and skin repair.",
		Safety:    "Split the dose if it upsets your stomach.",
	}
)

// CoreSupplements is the safe default trio every plan starts from.
func CoreSupplements() []Supplement {
	return []Supplement{vitaminD3K2, omega3, magnesium}
}
