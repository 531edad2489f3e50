// internal/scoring/scoring.go
package scoring

import (
	"strings"

	"github.com/fundamentalanalysis/xendex-ai-sales-agent/internal/config"
)

// Seniority classifies the contact's job level.
type Seniority string

const (
	SeniorityEntry     Seniority = "entry"
	SeniorityMid       Seniority = "mid"
	SenioritySenior    Seniority = "senior"
	SeniorityExecutive Seniority = "executive"
	SeniorityFounder   Seniority = "founder"
)

// ParseSeniority maps a free-form seniority string to a known level,
// defaulting to entry.
func ParseSeniority(s string) Seniority {
	switch Seniority(strings.ToLower(strings.TrimSpace(s))) {
	case SeniorityMid:
		return SeniorityMid
	case SenioritySenior:
		return SenioritySenior
	case SeniorityExecutive:
		return SeniorityExecutive
	case SeniorityFounder:
		return SeniorityFounder
	default:
		return SeniorityEntry
	}
}

// HiringIntensity classifies how aggressively a company is hiring.
type HiringIntensity string

const (
	HiringNone   HiringIntensity = "none"
	HiringLow    HiringIntensity = "low"
	HiringMedium HiringIntensity = "medium"
	HiringHigh   HiringIntensity = "high"
)

// FitInputs are the signals feeding the fit axis.
type FitInputs struct {
	// Known is false when the research bundle carried no fit signals;
	// the axis is then reported with an insufficient-data marker.
	Known bool

	IndustryMatch    int    // 0=no, 1=partial/unknown ICP, 2=full match
	CompanySize      string // enterprise, medium, small
	PainIndicators   int
	TechStackAligned bool
	GTMAligned       bool
}

// ReadinessInputs are the signals feeding the readiness axis.
type ReadinessInputs struct {
	Known bool

	BuyingSignals       int
	HiringIntensity     HiringIntensity
	RelevantHiringRoles int
	ContactSeniority    Seniority
	JobTenureDays       int
}

// IntentInputs are the signals feeding the intent axis.
type IntentInputs struct {
	Known bool

	FundingRounds        int
	NewExecutives        int
	Expansions           int
	DaysSinceNews        int
	LinkedInPosts        int
	StrategicInitiatives int
	ContactIsExecFounder bool
	PainIndicators       int
}

// Inputs is the full signal bundle for one scoring invocation.
type Inputs struct {
	Fit       FitInputs
	Readiness ReadinessInputs
	Intent    IntentInputs

	// Fallback marks research produced without the primary data sources;
	// the composite is discounted for it.
	Fallback bool
}

// Breakdown explains how one axis score was assembled. It is display
// material only, never authoritative.
type Breakdown struct {
	Category     string             `json:"category"`
	Components   map[string]float64 `json:"components"`
	Percentage   float64            `json:"percentage"`
	Insufficient bool               `json:"insufficient"`
	Notes        []string           `json:"notes"`
}

// Result is the complete scoring profile for a lead.
type Result struct {
	Fit       float64 `json:"fit_score"`
	Readiness float64 `json:"readiness_score"`
	Intent    float64 `json:"intent_score"`
	Composite float64 `json:"composite_score"`

	Qualified bool   `json:"qualified"`
	Status    string `json:"qualification_status"` // qualified, not_qualified

	FitBreakdown       Breakdown `json:"fit_breakdown"`
	ReadinessBreakdown Breakdown `json:"readiness_breakdown"`
	IntentBreakdown    Breakdown `json:"intent_breakdown"`
}

// Weights are the convex composite weights; they must sum to 1.
type Weights struct {
	Fit       float64
	Readiness float64
	Intent    float64
}

// Config parameterizes an Engine.
type Config struct {
	Weights            Weights
	Policy             config.QualificationPolicy
	CompositeThreshold float64
	AxisThreshold      float64
}

// FromAppConfig builds a scoring Config from the process configuration.
func FromAppConfig(cfg config.Config) Config {
	return Config{
		Weights: Weights{
			Fit:       cfg.FitWeight,
			Readiness: cfg.ReadinessWeight,
			Intent:    cfg.IntentWeight,
		},
		Policy:             cfg.Policy,
		CompositeThreshold: cfg.CompositeThreshold,
		AxisThreshold:      cfg.AxisThreshold,
	}
}
