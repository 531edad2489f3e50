// internal/scoring/extractor.go
package scoring

import (
	"strings"

	"github.com/fundamentalanalysis/xendex-ai-sales-agent/internal/model"
)

// notPublic is the marker research agents emit when a field could not be
// determined from public sources.
const notPublic = "not publicly available"

// ExtractInputs converts a lead and its research record into engine
// inputs. A nil intelligence record yields an all-unknown bundle, which
// the engine degrades to insufficient-data axes.
func ExtractInputs(lead *model.Lead, intel *model.Intelligence) Inputs {
	if intel == nil {
		return Inputs{}
	}
	return Inputs{
		Fit:       extractFit(lead, intel),
		Readiness: extractReadiness(lead, intel),
		Intent:    extractIntent(intel),
		Fallback:  intel.Fallback,
	}
}

func extractFit(lead *model.Lead, intel *model.Intelligence) FitInputs {
	in := FitInputs{
		Known:            true,
		PainIndicators:   len(intel.PainIndicators),
		TechStackAligned: len(intel.TechStack) > 0,
	}

	// Researched industry wins over the imported one.
	industry := ""
	if v := strings.ToLower(intel.Industry); v != "" && v != notPublic {
		industry = v
	} else if lead.Industry != "" {
		industry = strings.ToLower(lead.Industry)
	}

	if industry != "" {
		if len(intel.YourIndustries) > 0 {
			for _, raw := range intel.YourIndustries {
				target := strings.ToLower(strings.TrimSpace(raw))
				if target == "" {
					continue
				}
				if strings.Contains(industry, target) || strings.Contains(target, industry) {
					in.IndustryMatch = 2
					break
				}
				if len(target) > 4 && strings.Contains(industry, target[:4]) && in.IndustryMatch < 1 {
					in.IndustryMatch = 1
				}
			}
		} else {
			// No target list defined: any known industry counts as a
			// general match.
			in.IndustryMatch = 1
		}
	}

	in.CompanySize = classifySize(intel.CompanySize)

	if gtm := strings.ToLower(intel.GTMMotion); gtm != "" && gtm != notPublic {
		in.GTMAligned = strings.Contains(gtm, "enterprise") ||
			strings.Contains(gtm, "hybrid") ||
			strings.Contains(gtm, "field")
	}

	return in
}

func classifySize(raw string) string {
	size := strings.ToLower(raw)
	if size == "" || size == notPublic {
		// Unknown size defaults to medium rather than penalizing the lead.
		return "medium"
	}
	for _, kw := range []string{"enterprise", "large", "5000+", "1000+"} {
		if strings.Contains(size, kw) {
			return "enterprise"
		}
	}
	for _, kw := range []string{"startup", "small", "seed", "series a"} {
		if strings.Contains(size, kw) {
			return "small"
		}
	}
	return "medium"
}

func extractReadiness(lead *model.Lead, intel *model.Intelligence) ReadinessInputs {
	in := ReadinessInputs{
		Known:         true,
		BuyingSignals: len(intel.BuyingSignals),
		JobTenureDays: 365,
	}

	in.ContactSeniority = inferSeniority(lead, intel)

	if intel.LinkedIn.JobChangeDays != nil {
		in.JobTenureDays = *intel.LinkedIn.JobChangeDays
	}

	for _, t := range intel.Triggers {
		if strings.Contains(strings.ToLower(t.Type), "hiring") {
			in.RelevantHiringRoles++
		}
	}
	switch {
	case in.RelevantHiringRoles > 3:
		in.HiringIntensity = HiringHigh
	case in.RelevantHiringRoles > 0:
		in.HiringIntensity = HiringMedium
	default:
		in.HiringIntensity = HiringLow
	}

	return in
}

// inferSeniority prefers the researched profile level and falls back to
// keyword matching on the lead's persona/title.
func inferSeniority(lead *model.Lead, intel *model.Intelligence) Seniority {
	if s := strings.ToLower(intel.LinkedIn.Seniority); s != "" && s != notPublic {
		return ParseSeniority(s)
	}
	p := strings.ToLower(lead.Persona + " " + lead.Title)
	for _, kw := range []string{"founder", "ceo", "chief", "president", "executive"} {
		if strings.Contains(p, kw) {
			return SeniorityExecutive
		}
	}
	for _, kw := range []string{"director", "head", "lead", "vp"} {
		if strings.Contains(p, kw) {
			return SenioritySenior
		}
	}
	for _, kw := range []string{"manager", "principal"} {
		if strings.Contains(p, kw) {
			return SeniorityMid
		}
	}
	// Optimistic default: unknown contacts are treated as senior for
	// sales activity rather than scored to zero.
	return SenioritySenior
}

func extractIntent(intel *model.Intelligence) IntentInputs {
	in := IntentInputs{
		Known:          true,
		DaysSinceNews:  365,
		PainIndicators: len(intel.PainIndicators),
		LinkedInPosts:  len(intel.LinkedIn.Topics30d),
	}
	in.StrategicInitiatives = len(intel.LinkedIn.LikelyInitiatives)

	for _, t := range intel.Triggers {
		recency := t.RecencyDays
		if recency <= 0 {
			recency = 365
		}
		if recency < in.DaysSinceNews {
			in.DaysSinceNews = recency
		}
		tt := strings.ToLower(t.Type)
		switch {
		case strings.Contains(tt, "funding"):
			in.FundingRounds++
		case strings.Contains(tt, "exec"), strings.Contains(tt, "cio"):
			in.NewExecutives++
		case strings.Contains(tt, "expansion"):
			in.Expansions++
		}
	}

	if s := strings.ToLower(intel.LinkedIn.Seniority); s != "" {
		in.ContactIsExecFounder = strings.Contains(s, "exec") ||
			strings.Contains(s, "founder") ||
			strings.Contains(s, "c-suite")
	}

	return in
}
