// internal/model/status.go
package model

// LeadStatus is the lifecycle state of a lead.
type LeadStatus string

const (
	LeadStatusNew           LeadStatus = "new"
	LeadStatusResearching   LeadStatus = "researching"
	LeadStatusQualified     LeadStatus = "qualified"
	LeadStatusDisqualified  LeadStatus = "disqualified"
	LeadStatusSequencing    LeadStatus = "sequencing"
	LeadStatusContacted     LeadStatus = "contacted"
	LeadStatusReplied       LeadStatus = "replied"
	LeadStatusCompleted     LeadStatus = "completed"
	LeadStatusConverted     LeadStatus = "converted"
)

// leadTransitions is the authoritative transition table. A lead can never
// reach a state whose required predecessor it skipped; callers reject such
// moves as invalid-transition preconditions.
var leadTransitions = map[LeadStatus][]LeadStatus{
	LeadStatusNew:          {LeadStatusResearching, LeadStatusDisqualified},
	LeadStatusResearching:  {LeadStatusQualified, LeadStatusDisqualified},
	LeadStatusQualified:    {LeadStatusResearching, LeadStatusSequencing, LeadStatusDisqualified},
	LeadStatusSequencing:   {LeadStatusContacted, LeadStatusReplied, LeadStatusCompleted, LeadStatusDisqualified},
	LeadStatusContacted:    {LeadStatusSequencing, LeadStatusReplied, LeadStatusCompleted, LeadStatusDisqualified},
	LeadStatusReplied:      {LeadStatusConverted, LeadStatusSequencing},
	LeadStatusCompleted:    {LeadStatusConverted, LeadStatusSequencing},
	LeadStatusDisqualified: {},
	LeadStatusConverted:    {},
}

// CanTransition reports whether from -> to is a legal lead transition.
func (from LeadStatus) CanTransition(to LeadStatus) bool {
	if from == to {
		return true
	}
	for _, next := range leadTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Terminal reports whether the status ends the orchestrator's interest in
// the lead. Completed leads can be re-enrolled explicitly; converted and
// disqualified cannot.
func (s LeadStatus) Terminal() bool {
	return s == LeadStatusDisqualified || s == LeadStatusConverted || s == LeadStatusReplied
}

// Valid reports whether s is a known lead status.
func (s LeadStatus) Valid() bool {
	_, ok := leadTransitions[s]
	return ok
}

// CampaignStatus is the lifecycle state of a campaign.
type CampaignStatus string

const (
	CampaignStatusDraft     CampaignStatus = "draft"
	CampaignStatusActive    CampaignStatus = "active"
	CampaignStatusPaused    CampaignStatus = "paused"
	CampaignStatusCompleted CampaignStatus = "completed"
)

// DraftStatus is the approval state of an email draft.
type DraftStatus string

const (
	DraftStatusPending  DraftStatus = "pending"
	DraftStatusApproved DraftStatus = "approved"
	DraftStatusRejected DraftStatus = "rejected"
	DraftStatusSent     DraftStatus = "sent"
)

// EnrollmentStatus is the per-campaign progress state of a lead.
type EnrollmentStatus string

const (
	EnrollmentStatusPending   EnrollmentStatus = "pending"
	EnrollmentStatusActive    EnrollmentStatus = "active"
	EnrollmentStatusCompleted EnrollmentStatus = "completed"
	EnrollmentStatusStopped   EnrollmentStatus = "stopped"
)
