// internal/model/campaign.go
package model

import (
	"time"

	"github.com/google/uuid"
)

// SystemCampaignFollowup is the externally-correlated campaign lazily
// created to hold drafts generated outside any user campaign.
const SystemCampaignFollowup = "DEFAULT-FOLLOWUP"

// Campaign is an outreach sequence: a touch count plus per-touch delays
// applied to every enrolled lead.
type Campaign struct {
	ID         uuid.UUID `db:"id" json:"id"`
	ExternalID *string   `db:"external_id" json:"external_id,omitempty"`

	Name        string `db:"name" json:"name"`
	Description string `db:"description" json:"description,omitempty"`

	TargetIndustry string `db:"target_industry" json:"target_industry,omitempty"`
	TargetPersona  string `db:"target_persona" json:"target_persona,omitempty"`
	TargetRegion   string `db:"target_region" json:"target_region,omitempty"`

	// SequenceTouches is the maximum number of touches. TouchDelays holds
	// the inter-touch delays in days; when shorter than SequenceTouches
	// the last value fills forward.
	SequenceTouches int   `db:"sequence_touches" json:"sequence_touches"`
	TouchDelays     []int `db:"touch_delays" json:"touch_delays"`

	Status    CampaignStatus `db:"status" json:"status"`
	CreatedAt time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt *time.Time     `db:"updated_at" json:"updated_at,omitempty"`
}

// DelayDaysFor returns the delay to wait after touchNumber (1-based) before
// the next touch becomes eligible. Short delay arrays fill forward with
// their last value so a single configured delay covers the whole sequence.
func (c *Campaign) DelayDaysFor(touchNumber int) int {
	if len(c.TouchDelays) == 0 {
		return 3
	}
	idx := touchNumber - 1
	if idx < 0 {
		idx = 0
	}
	if idx >= len(c.TouchDelays) {
		idx = len(c.TouchDelays) - 1
	}
	return c.TouchDelays[idx]
}

// Enrollment binds a lead to a campaign and carries the touch cursor. The
// orchestrator is the exclusive writer of CurrentTouch and NextTouchAt.
type Enrollment struct {
	ID         uuid.UUID `db:"id" json:"id"`
	CampaignID uuid.UUID `db:"campaign_id" json:"campaign_id"`
	LeadID     uuid.UUID `db:"lead_id" json:"lead_id"`

	// CurrentTouch is 0 before the first touch, N after touch N was sent.
	CurrentTouch int        `db:"current_touch" json:"current_touch"`
	NextTouchAt  *time.Time `db:"next_touch_at" json:"next_touch_at,omitempty"`

	Status        EnrollmentStatus `db:"status" json:"status"`
	StoppedReason string           `db:"stopped_reason" json:"stopped_reason,omitempty"` // replied, bounced, unsubscribed, manual

	CreatedAt time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt *time.Time `db:"updated_at" json:"updated_at,omitempty"`
}
