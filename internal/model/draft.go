// internal/model/draft.go
package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Strategy is the outreach approach the content generator committed to for
// a draft. Opaque rationale beyond these fields lives in Draft.Evidence.
type Strategy struct {
	Angle          string `json:"angle"` // trigger-led, problem-hypothesis, case-study, quick-question, value-insight
	PainHypothesis string `json:"pain_hypothesis,omitempty"`
	CTA            string `json:"cta"`  // call, reply, reply_yes_no, resource, meeting_link
	Tone           string `json:"tone"` // professional, casual, urgent, consultative
}

// Draft is a candidate email for one touch of a lead's sequence, gated
// behind human approval before it may be sent.
type Draft struct {
	ID         uuid.UUID  `db:"id" json:"id"`
	LeadID     uuid.UUID  `db:"lead_id" json:"lead_id"`
	CampaignID *uuid.UUID `db:"campaign_id" json:"campaign_id,omitempty"`

	// TouchNumber is the 1-based position in the sequence.
	TouchNumber     int      `db:"touch_number" json:"touch_number"`
	SubjectOptions  []string `db:"subject_options" json:"subject_options"`
	SelectedSubject *string  `db:"selected_subject" json:"selected_subject,omitempty"`
	Body            string   `db:"body" json:"body"`

	Strategy *Strategy       `db:"strategy" json:"strategy,omitempty"`
	Evidence json.RawMessage `db:"evidence" json:"evidence,omitempty"`

	PersonalizationMode string `db:"personalization_mode" json:"personalization_mode"`

	Status          DraftStatus `db:"status" json:"status"`
	ApprovedBy      *string     `db:"approved_by" json:"approved_by,omitempty"`
	ApprovedAt      *time.Time  `db:"approved_at" json:"approved_at,omitempty"`
	RejectionReason string      `db:"rejection_reason" json:"rejection_reason,omitempty"`

	ScheduledSendAt *time.Time `db:"scheduled_send_at" json:"scheduled_send_at,omitempty"`

	CreatedAt time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt *time.Time `db:"updated_at" json:"updated_at,omitempty"`
}

// Subject returns the subject that would go on the wire: the operator's
// selection if one was made, else the first generated option.
func (d *Draft) Subject() string {
	if d.SelectedSubject != nil && *d.SelectedSubject != "" {
		return *d.SelectedSubject
	}
	if len(d.SubjectOptions) > 0 {
		return d.SubjectOptions[0]
	}
	return ""
}
