// internal/scoring/engine.go
package scoring

import (
	"fmt"
	"math"

	"github.com/fundamentalanalysis/xendex-ai-sales-agent/internal/config"
	appErrors "github.com/fundamentalanalysis/xendex-ai-sales-agent/internal/errors"
)

// fallbackDiscount is applied to the composite when research came from
// fallback sources.
const fallbackDiscount = 0.85

// fitFloor auto-disqualifies a lead whose fit is very poor regardless of
// the selected policy.
const fitFloor = 0.35

// Engine computes axis, composite, and qualification scores. It is pure:
// every invocation is a deterministic computation over its inputs with no
// state and no I/O.
type Engine struct {
	cfg Config
}

// New validates the configuration and returns an Engine.
func New(cfg Config) (*Engine, error) {
	sum := cfg.Weights.Fit + cfg.Weights.Readiness + cfg.Weights.Intent
	if math.Abs(sum-1.0) > 1e-9 {
		return nil, appErrors.NewValidation("weights", fmt.Sprintf("must sum to 1, got %.4f", sum))
	}
	if cfg.Weights.Fit < 0 || cfg.Weights.Readiness < 0 || cfg.Weights.Intent < 0 {
		return nil, appErrors.NewValidation("weights", "must be non-negative")
	}
	if cfg.Policy != config.PolicyComposite && cfg.Policy != config.PolicyDualAxis {
		return nil, appErrors.NewValidation("policy", "unknown qualification policy")
	}
	return &Engine{cfg: cfg}, nil
}

// Score computes the full profile for one signal bundle. Missing signal
// groups degrade to zero-scored axes with insufficient-data markers; they
// never produce an error.
func (e *Engine) Score(in Inputs) Result {
	fit, fitB := scoreFit(in.Fit)
	readiness, readinessB := scoreReadiness(in.Readiness)
	intent, intentB := scoreIntent(in.Intent)

	composite := fit*e.cfg.Weights.Fit + readiness*e.cfg.Weights.Readiness + intent*e.cfg.Weights.Intent
	if in.Fallback {
		composite *= fallbackDiscount
	}
	composite = clamp01(composite)

	qualified := e.qualifies(fit, readiness, composite)
	status := "not_qualified"
	if qualified {
		status = "qualified"
	}

	return Result{
		Fit:                fit,
		Readiness:          readiness,
		Intent:             intent,
		Composite:          composite,
		Qualified:          qualified,
		Status:             status,
		FitBreakdown:       fitB,
		ReadinessBreakdown: readinessB,
		IntentBreakdown:    intentB,
	}
}

func (e *Engine) qualifies(fit, readiness, composite float64) bool {
	if fit < fitFloor {
		return false
	}
	switch e.cfg.Policy {
	case config.PolicyDualAxis:
		return fit >= e.cfg.AxisThreshold && readiness >= e.cfg.AxisThreshold
	default:
		return composite >= e.cfg.CompositeThreshold
	}
}

func scoreFit(in FitInputs) (float64, Breakdown) {
	if !in.Known {
		return 0, insufficientBreakdown("Fit Score")
	}

	components := map[string]float64{}

	// Industry match, up to 30
	switch in.IndustryMatch {
	case 2:
		components["Industry Match"] = 30
	case 1:
		components["Industry Match"] = 15
	default:
		components["Industry Match"] = 0
	}

	// Company size, up to 25
	switch in.CompanySize {
	case "enterprise":
		components["Company Size"] = 25
	case "medium":
		components["Company Size"] = 15
	default:
		components["Company Size"] = 5
	}

	components["Pain Indicators"] = math.Min(float64(in.PainIndicators)*5, 15)

	techGTM := 0.0
	if in.TechStackAligned {
		techGTM += 10
	}
	if in.GTMAligned {
		techGTM += 10
	}
	components["Tech Stack & GTM"] = techGTM

	total := math.Min(sum(components), 100)
	pct := clamp01(total / 100)

	return pct, Breakdown{
		Category:   "Fit Score",
		Components: components,
		Percentage: pct,
		Notes: []string{
			fmt.Sprintf("industry match level: %d", in.IndustryMatch),
			fmt.Sprintf("company size: %s", in.CompanySize),
			fmt.Sprintf("pain points identified: %d", in.PainIndicators),
			fmt.Sprintf("tech stack aligned: %t", in.TechStackAligned),
			fmt.Sprintf("gtm aligned: %t", in.GTMAligned),
		},
	}
}

func scoreReadiness(in ReadinessInputs) (float64, Breakdown) {
	if !in.Known {
		return 0, insufficientBreakdown("Readiness Score")
	}

	components := map[string]float64{}

	components["Website Buying Signals"] = math.Min(float64(in.BuyingSignals)*10, 35)

	hiring := math.Min(float64(in.RelevantHiringRoles)*5, 10)
	switch in.HiringIntensity {
	case HiringHigh:
		hiring += 10
	case HiringMedium:
		hiring += 5
	case HiringLow:
		hiring += 2
	}
	components["Hiring Intensity"] = math.Min(hiring, 20)

	switch in.ContactSeniority {
	case SeniorityExecutive, SeniorityFounder:
		components["Contact Seniority"] = 25
	case SenioritySenior:
		components["Contact Seniority"] = 20
	case SeniorityMid:
		components["Contact Seniority"] = 10
	default:
		components["Contact Seniority"] = 0
	}

	// Fresh-in-role contacts are the most reachable; the signal only
	// applies above entry level.
	tenure := 0.0
	if in.ContactSeniority != SeniorityEntry {
		switch {
		case in.JobTenureDays < 90:
			tenure = 20
		case in.JobTenureDays < 180:
			tenure = 10
		}
	}
	components["Job Tenure"] = tenure

	total := sum(components)
	notes := []string{
		fmt.Sprintf("buying signals detected: %d", in.BuyingSignals),
		fmt.Sprintf("hiring intensity: %s", in.HiringIntensity),
		fmt.Sprintf("relevant open roles: %d", in.RelevantHiringRoles),
		fmt.Sprintf("contact seniority: %s", in.ContactSeniority),
		fmt.Sprintf("days in current role: %d", in.JobTenureDays),
	}

	// Guardrail: junior contacts cap readiness at 50.
	if in.ContactSeniority == SeniorityEntry && total > 50 {
		total = 50
		notes = append(notes, "readiness capped at 50% for entry-level seniority")
	}

	total = math.Min(total, 100)
	pct := total / 100

	return pct, Breakdown{
		Category:   "Readiness Score",
		Components: components,
		Percentage: pct,
		Notes:      notes,
	}
}

func scoreIntent(in IntentInputs) (float64, Breakdown) {
	if !in.Known {
		return 0, insufficientBreakdown("Intent Score")
	}

	components := map[string]float64{}

	news := float64(in.FundingRounds)*20 + float64(in.NewExecutives)*15 + float64(in.Expansions)*12
	if in.DaysSinceNews <= 30 {
		news *= 1.2
	}
	components["News Triggers"] = math.Min(news, 40)

	linkedin := math.Min(float64(in.LinkedInPosts)*10, 30) + math.Min(float64(in.StrategicInitiatives)*10, 30)
	if in.ContactIsExecFounder {
		linkedin += 15
	}
	components["Profile Activity"] = math.Min(linkedin, 60)

	components["Pain Continuity"] = math.Min(float64(in.PainIndicators)*5, 15)

	total := math.Min(sum(components), 100)
	pct := total / 100

	return pct, Breakdown{
		Category:   "Intent Score",
		Components: components,
		Percentage: pct,
		Notes: []string{
			fmt.Sprintf("funding rounds: %d", in.FundingRounds),
			fmt.Sprintf("new executives: %d", in.NewExecutives),
			fmt.Sprintf("expansion announcements: %d", in.Expansions),
			fmt.Sprintf("days since news event: %d", in.DaysSinceNews),
			fmt.Sprintf("recent posts: %d", in.LinkedInPosts),
			fmt.Sprintf("strategic initiatives: %d", in.StrategicInitiatives),
			fmt.Sprintf("contact is exec/founder: %t", in.ContactIsExecFounder),
		},
	}
}

func insufficientBreakdown(category string) Breakdown {
	return Breakdown{
		Category:     category,
		Components:   map[string]float64{},
		Percentage:   0,
		Insufficient: true,
		Notes:        []string{"insufficient data: no research signals for this axis"},
	}
}

func sum(m map[string]float64) float64 {
	t := 0.0
	for _, v := range m {
		t += v
	}
	return t
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}
