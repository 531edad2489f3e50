// internal/service/sequence_service.go
package service

import (
	"context"
	"errors"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/fundamentalanalysis/xendex-ai-sales-agent/internal/config"
	appErrors "github.com/fundamentalanalysis/xendex-ai-sales-agent/internal/errors"
	"github.com/fundamentalanalysis/xendex-ai-sales-agent/internal/integration"
	"github.com/fundamentalanalysis/xendex-ai-sales-agent/internal/model"
	"github.com/fundamentalanalysis/xendex-ai-sales-agent/internal/repository"
)

// SequenceService orchestrates campaigns: enrollment, touch triggering,
// the approval-gated send path, and reply handling. All state mutations
// for one lead are serialized through a per-lead lock, so a manual
// approval and a scheduler tick can never race on the same cursor.
type SequenceService struct {
	CampaignRepo repository.CampaignRepositoryInterface
	EnrollRepo   repository.EnrollmentRepositoryInterface
	LeadRepo     repository.LeadRepositoryInterface
	DraftRepo    repository.DraftRepositoryInterface
	IntelRepo    repository.IntelligenceRepositoryInterface

	Generator integration.Generator
	Mailer    integration.Mailer
	Config    config.Config

	// Locks must be the same instance the draft service holds.
	Locks *LeadLocks

	mu sync.Mutex
}

// lockLead returns the mutex serializing operations on one lead.
func (s *SequenceService) lockLead(leadID uuid.UUID) *sync.Mutex {
	s.mu.Lock()
	if s.Locks == nil {
		s.Locks = NewLeadLocks()
	}
	locks := s.Locks
	s.mu.Unlock()
	return locks.For(leadID)
}

// Campaign management

func (s *SequenceService) CreateCampaign(c *model.Campaign) (*model.Campaign, error) {
	if strings.TrimSpace(c.Name) == "" {
		return nil, appErrors.NewValidation("name", "is required")
	}
	if c.SequenceTouches < 1 {
		return nil, appErrors.NewValidation("sequence_touches", "must be at least 1")
	}
	for _, d := range c.TouchDelays {
		if d < 0 {
			return nil, appErrors.NewValidation("touch_delays", "delays must not be negative")
		}
	}

	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	if c.Status == "" {
		c.Status = model.CampaignStatusDraft
	}
	c.CreatedAt = time.Now()

	if err := s.CampaignRepo.Create(c); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *SequenceService) GetCampaign(id uuid.UUID) (*model.Campaign, error) {
	return s.CampaignRepo.GetByID(id)
}

func (s *SequenceService) ListCampaigns(offset, limit int, status string) ([]*model.Campaign, int, error) {
	return s.CampaignRepo.List(offset, limit, status)
}

// CampaignUpdate carries a partial campaign edit. Nil fields are left
// alone.
type CampaignUpdate struct {
	Name            *string
	Description     *string
	SequenceTouches *int
	TouchDelays     []int
}

func (s *SequenceService) UpdateCampaign(id uuid.UUID, upd CampaignUpdate) (*model.Campaign, error) {
	c, err := s.CampaignRepo.GetByID(id)
	if err != nil {
		return nil, err
	}

	if upd.Name != nil {
		if strings.TrimSpace(*upd.Name) == "" {
			return nil, appErrors.NewValidation("name", "cannot be empty")
		}
		c.Name = *upd.Name
	}
	if upd.Description != nil {
		c.Description = *upd.Description
	}
	if upd.SequenceTouches != nil {
		if *upd.SequenceTouches < 1 {
			return nil, appErrors.NewValidation("sequence_touches", "must be at least 1")
		}
		c.SequenceTouches = *upd.SequenceTouches
	}
	if upd.TouchDelays != nil {
		for _, d := range upd.TouchDelays {
			if d < 0 {
				return nil, appErrors.NewValidation("touch_delays", "delays must not be negative")
			}
		}
		c.TouchDelays = upd.TouchDelays
	}

	if err := s.CampaignRepo.Update(c); err != nil {
		return nil, err
	}
	return c, nil
}

// DeleteCampaign removes a campaign. Active campaigns have to be paused
// first so no scheduler tick is working against a vanishing sequence.
func (s *SequenceService) DeleteCampaign(id uuid.UUID) error {
	c, err := s.CampaignRepo.GetByID(id)
	if err != nil {
		return err
	}
	if c.Status == model.CampaignStatusActive {
		return appErrors.NewPrecondition(appErrors.InvalidTransition,
			"campaign is active, pause it before deleting")
	}
	return s.CampaignRepo.Delete(id)
}

// EnrolledLead pairs a lead with its enrollment state in one campaign.
type EnrolledLead struct {
	Lead       *model.Lead       `json:"lead"`
	Enrollment *model.Enrollment `json:"enrollment"`
}

// ListCampaignLeads returns every lead enrolled in a campaign together
// with its enrollment.
func (s *SequenceService) ListCampaignLeads(campaignID uuid.UUID) ([]EnrolledLead, error) {
	if _, err := s.CampaignRepo.GetByID(campaignID); err != nil {
		return nil, err
	}
	enrollments, err := s.EnrollRepo.ListByCampaign(campaignID)
	if err != nil {
		return nil, err
	}

	out := make([]EnrolledLead, 0, len(enrollments))
	for _, e := range enrollments {
		lead, err := s.LeadRepo.GetByID(e.LeadID)
		if err != nil {
			if appErrors.IsNotFound(err) {
				continue
			}
			return nil, err
		}
		out = append(out, EnrolledLead{Lead: lead, Enrollment: e})
	}
	return out, nil
}

func (s *SequenceService) CampaignLeadCounts(id uuid.UUID) (map[string]int, error) {
	if _, err := s.CampaignRepo.GetByID(id); err != nil {
		return nil, err
	}
	return s.CampaignRepo.LeadCounts(id)
}

// StartCampaign activates a draft or paused campaign. Paused campaigns
// resume where they left off; no touches were lost while paused.
func (s *SequenceService) StartCampaign(id uuid.UUID) (*model.Campaign, error) {
	c, err := s.CampaignRepo.GetByID(id)
	if err != nil {
		return nil, err
	}
	switch c.Status {
	case model.CampaignStatusActive:
		return c, nil
	case model.CampaignStatusDraft, model.CampaignStatusPaused:
		if err := s.CampaignRepo.UpdateStatus(id, model.CampaignStatusActive); err != nil {
			return nil, err
		}
		c.Status = model.CampaignStatusActive
		return c, nil
	default:
		return nil, appErrors.NewPrecondition(appErrors.InvalidTransition,
			"campaign is "+string(c.Status))
	}
}

// PauseCampaign suspends automatic triggering for the campaign. Pending
// approvals remain actionable.
func (s *SequenceService) PauseCampaign(id uuid.UUID) (*model.Campaign, error) {
	c, err := s.CampaignRepo.GetByID(id)
	if err != nil {
		return nil, err
	}
	switch c.Status {
	case model.CampaignStatusPaused:
		return c, nil
	case model.CampaignStatusActive:
		if err := s.CampaignRepo.UpdateStatus(id, model.CampaignStatusPaused); err != nil {
			return nil, err
		}
		c.Status = model.CampaignStatusPaused
		return c, nil
	default:
		return nil, appErrors.NewPrecondition(appErrors.InvalidTransition,
			"campaign is "+string(c.Status))
	}
}

// EnsureDefaultCampaign returns the system follow-up campaign, creating
// it on first use. Drafts triggered without an explicit campaign land
// here.
func (s *SequenceService) EnsureDefaultCampaign() (*model.Campaign, error) {
	existing, err := s.CampaignRepo.GetByExternalID(model.SystemCampaignFollowup)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}

	externalID := model.SystemCampaignFollowup
	c := &model.Campaign{
		ID:              uuid.New(),
		ExternalID:      &externalID,
		Name:            "Default follow-up",
		Description:     "System campaign for follow-ups outside any user campaign",
		SequenceTouches: 3,
		TouchDelays:     []int{3},
		Status:          model.CampaignStatusActive,
		CreatedAt:       time.Now(),
	}
	if err := s.CampaignRepo.Create(c); err != nil {
		return nil, err
	}
	log.Printf("created system campaign %s (%s)", c.Name, c.ID)
	return c, nil
}

// Enrollment

// Enroll binds a lead to a campaign. Enrolling an already-enrolled lead
// returns the existing enrollment unchanged. Leads in a terminal status
// cannot be enrolled.
func (s *SequenceService) Enroll(campaignID, leadID uuid.UUID) (*model.Enrollment, error) {
	lock := s.lockLead(leadID)
	lock.Lock()
	defer lock.Unlock()

	return s.enrollLocked(campaignID, leadID)
}

func (s *SequenceService) enrollLocked(campaignID, leadID uuid.UUID) (*model.Enrollment, error) {
	campaign, err := s.CampaignRepo.GetByID(campaignID)
	if err != nil {
		return nil, err
	}
	lead, err := s.LeadRepo.GetByID(leadID)
	if err != nil {
		return nil, err
	}

	if lead.Status.Terminal() {
		return nil, appErrors.NewPrecondition(appErrors.InvalidTransition,
			"lead is "+string(lead.Status)+" and cannot be enrolled")
	}
	if campaign.Status == model.CampaignStatusCompleted {
		return nil, appErrors.NewPrecondition(appErrors.InvalidTransition,
			"campaign is completed")
	}

	enrollment, err := s.EnrollRepo.Create(campaignID, leadID)
	if err != nil {
		return nil, err
	}

	if lead.Status != model.LeadStatusSequencing && lead.Status.CanTransition(model.LeadStatusSequencing) {
		if err := s.LeadRepo.UpdateStatus(leadID, model.LeadStatusSequencing); err != nil {
			return nil, err
		}
	}
	return enrollment, nil
}

// Trigger

// Trigger produces the next pending draft for a lead's sequence. With a
// nil campaignID the system follow-up campaign is used and the lead is
// auto-enrolled into it. Trigger never sends and never approves; it only
// stages content for human review. If a pending draft already exists for
// the next touch it is returned instead of generating a duplicate.
func (s *SequenceService) Trigger(ctx context.Context, leadID uuid.UUID, campaignID *uuid.UUID) (*model.Draft, error) {
	lock := s.lockLead(leadID)
	lock.Lock()
	defer lock.Unlock()

	lead, err := s.LeadRepo.GetByID(leadID)
	if err != nil {
		return nil, err
	}
	if lead.HasReplied || lead.Status == model.LeadStatusReplied {
		return nil, appErrors.NewPrecondition(appErrors.AlreadyReplied,
			"lead "+leadID.String()+" has replied")
	}

	var campaign *model.Campaign
	if campaignID == nil {
		campaign, err = s.EnsureDefaultCampaign()
		if err != nil {
			return nil, err
		}
		if _, err := s.enrollLocked(campaign.ID, leadID); err != nil {
			return nil, err
		}
	} else {
		campaign, err = s.CampaignRepo.GetByID(*campaignID)
		if err != nil {
			return nil, err
		}
	}

	enrollment, err := s.EnrollRepo.Get(campaign.ID, leadID)
	if err != nil {
		return nil, err
	}
	if enrollment == nil {
		return nil, appErrors.NewPrecondition(appErrors.NotEnrolled,
			"lead "+leadID.String()+" is not enrolled in campaign "+campaign.ID.String())
	}
	if enrollment.Status == model.EnrollmentStatusStopped {
		return nil, appErrors.NewPrecondition(appErrors.NotEnrolled,
			"enrollment was stopped: "+enrollment.StoppedReason)
	}
	if enrollment.Status == model.EnrollmentStatusCompleted ||
		enrollment.CurrentTouch >= campaign.SequenceTouches {
		return nil, appErrors.NewPrecondition(appErrors.SequenceExhausted,
			"all touches of the sequence were sent")
	}

	nextTouch := enrollment.CurrentTouch + 1

	existing, err := s.DraftRepo.GetPending(leadID, &campaign.ID, nextTouch)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}

	intel, err := s.IntelRepo.GetByLeadID(leadID)
	if err != nil {
		return nil, err
	}

	gctx, cancel := context.WithTimeout(ctx, s.Config.GeneratorTimeout)
	defer cancel()

	generated, err := s.Generator.Generate(gctx, integration.GenerateRequest{
		Lead:         lead,
		Intelligence: intel,
		TouchNumber:  nextTouch,
		Mode:         lead.PersonalizationMode,
	})
	if err != nil {
		var ie *appErrors.IntegrationError
		if errors.As(err, &ie) {
			return nil, err
		}
		return nil, appErrors.NewTransient("generator", err)
	}

	cid := campaign.ID
	draft := &model.Draft{
		ID:                  uuid.New(),
		LeadID:              leadID,
		CampaignID:          &cid,
		TouchNumber:         nextTouch,
		SubjectOptions:      generated.SubjectOptions,
		Body:                generated.Body,
		Strategy:            generated.Strategy,
		Evidence:            generated.Evidence,
		PersonalizationMode: lead.PersonalizationMode,
		Status:              model.DraftStatusPending,
		CreatedAt:           time.Now(),
	}
	if err := s.DraftRepo.Create(draft); err != nil {
		return nil, err
	}
	return draft, nil
}

// Send path

// ApproveFollowup approves a pending draft and sends it in one step.
// When the send fails the draft stays approved and the touch cursor is
// untouched, so the operation can be retried without regenerating or
// re-approving anything.
func (s *SequenceService) ApproveFollowup(ctx context.Context, draftID uuid.UUID, approvedBy string) (*model.Draft, error) {
	draft, err := s.DraftRepo.GetByID(draftID)
	if err != nil {
		return nil, err
	}

	lock := s.lockLead(draft.LeadID)
	lock.Lock()
	defer lock.Unlock()

	// Re-read under the lock; a concurrent operation may have moved it.
	draft, err = s.DraftRepo.GetByID(draftID)
	if err != nil {
		return nil, err
	}

	switch draft.Status {
	case model.DraftStatusPending:
		now := time.Now()
		draft.Status = model.DraftStatusApproved
		draft.ApprovedAt = &now
		if approvedBy != "" {
			draft.ApprovedBy = &approvedBy
		}
		if err := s.DraftRepo.Update(draft); err != nil {
			return nil, err
		}
	case model.DraftStatusApproved:
		// Retry after a failed send. Proceed straight to sending.
	default:
		return nil, appErrors.NewPrecondition(appErrors.InvalidDraftState,
			"draft is "+string(draft.Status))
	}

	if err := s.sendLocked(ctx, draft); err != nil {
		return draft, err
	}
	return draft, nil
}

// SendApproved sends an approved draft and advances the sequence cursor.
// Already-sent drafts are a no-op, which keeps queue redelivery safe.
func (s *SequenceService) SendApproved(ctx context.Context, draftID uuid.UUID) error {
	draft, err := s.DraftRepo.GetByID(draftID)
	if err != nil {
		return err
	}

	lock := s.lockLead(draft.LeadID)
	lock.Lock()
	defer lock.Unlock()

	draft, err = s.DraftRepo.GetByID(draftID)
	if err != nil {
		return err
	}
	if draft.Status == model.DraftStatusSent {
		return nil
	}
	if draft.Status != model.DraftStatusApproved {
		return appErrors.NewPrecondition(appErrors.InvalidDraftState,
			"draft is "+string(draft.Status)+", only approved drafts can be sent")
	}
	return s.sendLocked(ctx, draft)
}

// sendLocked performs the actual send and cursor advance. The caller
// holds the lead lock and has verified the draft is approved. On send
// failure nothing changes: the draft stays approved, the cursor stays
// put.
func (s *SequenceService) sendLocked(ctx context.Context, draft *model.Draft) error {
	lead, err := s.LeadRepo.GetByID(draft.LeadID)
	if err != nil {
		return err
	}
	if lead.HasReplied {
		return appErrors.NewPrecondition(appErrors.AlreadyReplied,
			"lead replied before the send went out")
	}

	mctx, cancel := context.WithTimeout(ctx, s.Config.MailerTimeout)
	defer cancel()

	messageID, err := s.Mailer.Send(mctx, integration.Email{
		To:      lead.Email,
		ToName:  lead.FullName(),
		Subject: draft.Subject(),
		Body:    draft.Body,
	})
	if err != nil {
		log.Printf("send failed for draft %s (lead %s): %v", draft.ID, lead.ID, err)
		var ie *appErrors.IntegrationError
		if errors.As(err, &ie) {
			return err
		}
		return appErrors.NewTransient("mailer", err)
	}
	log.Printf("sent draft %s to %s (message %s)", draft.ID, lead.Email, messageID)

	now := time.Now()
	draft.Status = model.DraftStatusSent
	if err := s.DraftRepo.Update(draft); err != nil {
		return err
	}

	return s.advanceCursor(lead, draft, now)
}

// advanceCursor records a completed touch: the enrollment cursor moves
// to the sent touch, the next-touch time is pushed out by the campaign's
// delay for that touch, and the lead mirrors the change.
func (s *SequenceService) advanceCursor(lead *model.Lead, draft *model.Draft, sentAt time.Time) error {
	lead.LastContactedAt = &sentAt
	lead.NumFollowups = draft.TouchNumber

	if draft.CampaignID == nil {
		if lead.Status.CanTransition(model.LeadStatusContacted) {
			lead.Status = model.LeadStatusContacted
		}
		return s.LeadRepo.Update(lead)
	}

	campaign, err := s.CampaignRepo.GetByID(*draft.CampaignID)
	if err != nil {
		return err
	}
	enrollment, err := s.EnrollRepo.Get(campaign.ID, lead.ID)
	if err != nil {
		return err
	}

	done := draft.TouchNumber >= campaign.SequenceTouches

	if enrollment != nil {
		enrollment.CurrentTouch = draft.TouchNumber
		if done {
			enrollment.Status = model.EnrollmentStatusCompleted
			enrollment.NextTouchAt = nil
		} else {
			enrollment.Status = model.EnrollmentStatusActive
			next := sentAt.AddDate(0, 0, campaign.DelayDaysFor(draft.TouchNumber))
			enrollment.NextTouchAt = &next
		}
		if err := s.EnrollRepo.Update(enrollment); err != nil {
			return err
		}
	}

	next := model.LeadStatusContacted
	if done {
		next = model.LeadStatusCompleted
	}
	if lead.Status.CanTransition(next) {
		lead.Status = next
	}
	return s.LeadRepo.Update(lead)
}

// Replies

// HandleReply records an inbound reply: the lead is marked replied and
// every live enrollment stops. No further touches will be triggered or
// sent for the lead.
func (s *SequenceService) HandleReply(leadID uuid.UUID) (*model.Lead, error) {
	lock := s.lockLead(leadID)
	lock.Lock()
	defer lock.Unlock()

	lead, err := s.LeadRepo.GetByID(leadID)
	if err != nil {
		return nil, err
	}
	if lead.HasReplied {
		return lead, nil
	}

	lead.HasReplied = true
	if lead.Status.CanTransition(model.LeadStatusReplied) {
		lead.Status = model.LeadStatusReplied
	}
	if err := s.LeadRepo.Update(lead); err != nil {
		return nil, err
	}
	if err := s.EnrollRepo.StopAllForLead(leadID, "replied"); err != nil {
		return nil, err
	}
	log.Printf("lead %s replied, sequence stopped", leadID)
	return lead, nil
}

// Unenroll stops a lead's enrollments manually without marking a reply.
func (s *SequenceService) Unenroll(leadID uuid.UUID, reason string) error {
	lock := s.lockLead(leadID)
	lock.Lock()
	defer lock.Unlock()

	if _, err := s.LeadRepo.GetByID(leadID); err != nil {
		return err
	}
	if reason == "" {
		reason = "manual"
	}
	return s.EnrollRepo.StopAllForLead(leadID, reason)
}
