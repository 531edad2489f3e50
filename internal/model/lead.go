// internal/model/lead.go
package model

import (
	"time"

	"github.com/google/uuid"
)

// Lead is the single source of truth for a sales prospect.
type Lead struct {
	ID         uuid.UUID `db:"id" json:"id"`
	ExternalID *string   `db:"external_id" json:"external_id,omitempty"`

	Email         string  `db:"email" json:"email"`
	FirstName     string  `db:"first_name" json:"first_name"`
	LastName      string  `db:"last_name" json:"last_name"`
	CompanyName   string  `db:"company_name" json:"company_name"`
	CompanyDomain string  `db:"company_domain" json:"company_domain"`
	Title         string  `db:"title" json:"title"`
	Persona       string  `db:"persona" json:"persona"`   // IT Director, CFO
	Region        string  `db:"region" json:"region"`     // US, EU, APAC
	Industry      string  `db:"industry" json:"industry"`

	// Scores are nil until the lead has been researched.
	FitScore       *float64 `db:"fit_score" json:"fit_score,omitempty"`
	ReadinessScore *float64 `db:"readiness_score" json:"readiness_score,omitempty"`
	IntentScore    *float64 `db:"intent_score" json:"intent_score,omitempty"`
	CompositeScore *float64 `db:"composite_score" json:"composite_score,omitempty"`

	Status     LeadStatus `db:"status" json:"status"`
	RiskLevel  string     `db:"risk_level" json:"risk_level"`   // low, medium, high
	RiskReason string     `db:"risk_reason" json:"risk_reason,omitempty"`

	PersonalizationMode string `db:"personalization_mode" json:"personalization_mode"` // light, medium, deep

	// NumFollowups mirrors the enrollment touch cursor for display. The
	// sequence orchestrator is the only writer.
	NumFollowups      int  `db:"num_followups" json:"num_followups"`
	FollowupDelayDays int  `db:"followup_delay_days" json:"followup_delay_days"`
	HasReplied        bool `db:"has_replied" json:"has_replied"`

	// NeedsAttention is set when an automatic trigger failed and an
	// operator should look at the lead.
	NeedsAttention bool `db:"needs_attention" json:"needs_attention"`

	CreatedAt       time.Time  `db:"created_at" json:"created_at"`
	ResearchedAt    *time.Time `db:"researched_at" json:"researched_at,omitempty"`
	LastContactedAt *time.Time `db:"last_contacted_at" json:"last_contacted_at,omitempty"`
}

// Researched reports whether research has completed for the lead. Scores
// are undefined before that.
func (l *Lead) Researched() bool {
	return l.ResearchedAt != nil
}

// FullName joins the non-empty name parts.
func (l *Lead) FullName() string {
	switch {
	case l.FirstName != "" && l.LastName != "":
		return l.FirstName + " " + l.LastName
	case l.FirstName != "":
		return l.FirstName
	default:
		return l.LastName
	}
}
