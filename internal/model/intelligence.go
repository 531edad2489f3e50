// internal/model/intelligence.go
package model

import (
	"time"

	"github.com/google/uuid"
)

// Trigger is a dated external event observed for a lead's company.
type Trigger struct {
	Type        string `json:"type"` // funding, exec-change, expansion, hiring
	RecencyDays int    `json:"recency_days"`
	Confidence  float64 `json:"confidence,omitempty"`
	EvidenceURL string `json:"evidence_url,omitempty"`
}

// LinkedInProfile holds the professional-profile indicators research found
// for the lead's contact.
type LinkedInProfile struct {
	Role              string   `json:"role,omitempty"`
	Seniority         string   `json:"seniority,omitempty"` // entry, mid, senior, executive, founder
	Topics30d         []string `json:"topics_30d,omitempty"`
	LikelyInitiatives []string `json:"likely_initiatives,omitempty"`
	JobChangeDays     *int     `json:"job_change_days,omitempty"`
}

// Intelligence is the research record for a lead: the signal bundle the
// scoring engine consumes, as last produced by the research collaborator.
// Known signal categories are typed; anything a newer research agent emits
// beyond them lands in Extra without breaking the weight tables.
type Intelligence struct {
	LeadID uuid.UUID `json:"lead_id"`

	Industry    string `json:"industry,omitempty"`
	CompanySize string `json:"company_size,omitempty"` // startup, small, medium, enterprise
	GTMMotion   string `json:"gtm_motion,omitempty"`   // enterprise, smb, self-serve, hybrid

	PainIndicators []string `json:"pain_indicators,omitempty"`
	BuyingSignals  []string `json:"buying_signals,omitempty"`
	TechStack      []string `json:"tech_stack,omitempty"`

	// YourIndustries is the seller-side target industry list used for
	// fit matching.
	YourIndustries []string `json:"your_industries,omitempty"`

	Triggers []Trigger       `json:"triggers,omitempty"`
	LinkedIn LinkedInProfile `json:"linkedin,omitempty"`

	Extra map[string]float64 `json:"extra,omitempty"`

	// Fallback marks research produced without the primary data sources;
	// the scoring engine discounts the composite for it.
	Fallback     bool      `json:"fallback"`
	ResearchedAt time.Time `json:"researched_at"`
}
