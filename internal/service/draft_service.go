// internal/service/draft_service.go
package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/fundamentalanalysis/xendex-ai-sales-agent/internal/config"
	appErrors "github.com/fundamentalanalysis/xendex-ai-sales-agent/internal/errors"
	"github.com/fundamentalanalysis/xendex-ai-sales-agent/internal/integration"
	"github.com/fundamentalanalysis/xendex-ai-sales-agent/internal/model"
	"github.com/fundamentalanalysis/xendex-ai-sales-agent/internal/queue"
	"github.com/fundamentalanalysis/xendex-ai-sales-agent/internal/repository"
)

type DraftService struct {
	DraftRepo repository.DraftRepositoryInterface
	LeadRepo  repository.LeadRepositoryInterface
	IntelRepo repository.IntelligenceRepositoryInterface

	Generator integration.Generator
	Queue     queue.Queue
	Config    config.Config

	// Locks must be the same instance the orchestrator holds, so a
	// manual generation and a scheduler trigger for one lead serialize.
	Locks *LeadLocks

	mu sync.Mutex
}

func (s *DraftService) lockLead(leadID uuid.UUID) *sync.Mutex {
	s.mu.Lock()
	if s.Locks == nil {
		s.Locks = NewLeadLocks()
	}
	locks := s.Locks
	s.mu.Unlock()
	return locks.For(leadID)
}

// regenerateOverrides maps operator feedback shorthands onto strategy
// adjustments for the content generator.
var regenerateOverrides = map[string]func(*model.Strategy){
	"different_angle": func(st *model.Strategy) {
		switch st.Angle {
		case "trigger-led":
			st.Angle = "problem-hypothesis"
		case "problem-hypothesis":
			st.Angle = "value-insight"
		default:
			st.Angle = "trigger-led"
		}
	},
	"softer_cta":  func(st *model.Strategy) { st.CTA = "reply_yes_no" },
	"more_casual": func(st *model.Strategy) { st.Tone = "casual" },
	"more_formal": func(st *model.Strategy) { st.Tone = "professional" },
}

func (s *DraftService) GetDraft(id uuid.UUID) (*model.Draft, error) {
	return s.DraftRepo.GetByID(id)
}

func (s *DraftService) ListDrafts(offset, limit int, filter repository.DraftFilter) ([]*model.Draft, int, error) {
	return s.DraftRepo.List(offset, limit, filter)
}

// Generate produces a pending draft for one touch of a lead's sequence.
// If a pending draft already exists for the (lead, campaign, touch) slot
// it is returned as-is instead of generating a duplicate.
func (s *DraftService) Generate(ctx context.Context, leadID uuid.UUID, campaignID *uuid.UUID, touchNumber int, mode string) (*model.Draft, error) {
	if touchNumber < 1 {
		return nil, appErrors.NewValidation("touch_number", "must be at least 1")
	}

	// The pending-draft check and the create form one exclusive section
	// per lead, same as the orchestrator's trigger path.
	lock := s.lockLead(leadID)
	lock.Lock()
	defer lock.Unlock()

	lead, err := s.LeadRepo.GetByID(leadID)
	if err != nil {
		return nil, err
	}
	if lead.HasReplied {
		return nil, appErrors.NewPrecondition(appErrors.AlreadyReplied,
			"lead "+leadID.String()+" has replied")
	}

	existing, err := s.DraftRepo.GetPending(leadID, campaignID, touchNumber)
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

	if mode == "" {
		mode = lead.PersonalizationMode
	}

	gctx, cancel := context.WithTimeout(ctx, s.Config.GeneratorTimeout)
	defer cancel()

	generated, err := s.Generator.Generate(gctx, integration.GenerateRequest{
		Lead:         lead,
		Intelligence: intel,
		TouchNumber:  touchNumber,
		Mode:         mode,
	})
	if err != nil {
		var ie *appErrors.IntegrationError
		if errors.As(err, &ie) {
			return nil, err
		}
		return nil, appErrors.NewTransient("generator", err)
	}

	draft := &model.Draft{
		ID:                  uuid.New(),
		LeadID:              leadID,
		CampaignID:          campaignID,
		TouchNumber:         touchNumber,
		SubjectOptions:      generated.SubjectOptions,
		Body:                generated.Body,
		Strategy:            generated.Strategy,
		Evidence:            generated.Evidence,
		PersonalizationMode: mode,
		Status:              model.DraftStatusPending,
		CreatedAt:           time.Now(),
	}
	if err := s.DraftRepo.Create(draft); err != nil {
		return nil, err
	}
	return draft, nil
}

// GenerateOutcome is the per-lead result of a bulk generation.
type GenerateOutcome struct {
	LeadID  uuid.UUID  `json:"lead_id"`
	DraftID *uuid.UUID `json:"draft_id,omitempty"`
	OK      bool       `json:"ok"`
	Error   string     `json:"error,omitempty"`
}

// BulkGenerate generates one draft per lead independently. A lead that
// cannot be drafted records its error without affecting the others.
func (s *DraftService) BulkGenerate(ctx context.Context, leadIDs []uuid.UUID, campaignID *uuid.UUID, touchNumber int, mode string) []GenerateOutcome {
	outcomes := make([]GenerateOutcome, 0, len(leadIDs))
	for _, leadID := range leadIDs {
		draft, err := s.Generate(ctx, leadID, campaignID, touchNumber, mode)
		outcome := GenerateOutcome{LeadID: leadID, OK: err == nil}
		if err != nil {
			outcome.Error = err.Error()
		} else {
			outcome.DraftID = &draft.ID
		}
		outcomes = append(outcomes, outcome)
	}
	return outcomes
}

// Approve moves a pending draft to approved and hands it to the send
// queue, unless a future send time was given, in which case the scheduler
// releases it when the time arrives.
func (s *DraftService) Approve(id uuid.UUID, approvedBy string, selectedSubject *string, sendAt *time.Time) (*model.Draft, error) {
	draft, err := s.DraftRepo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if draft.Status != model.DraftStatusPending {
		return nil, appErrors.NewPrecondition(appErrors.InvalidDraftState,
			"draft is "+string(draft.Status)+", only pending drafts can be approved")
	}

	now := time.Now()
	draft.Status = model.DraftStatusApproved
	draft.ApprovedAt = &now
	if approvedBy != "" {
		draft.ApprovedBy = &approvedBy
	}
	if selectedSubject != nil && *selectedSubject != "" {
		draft.SelectedSubject = selectedSubject
	}
	draft.ScheduledSendAt = sendAt

	if err := s.DraftRepo.Update(draft); err != nil {
		return nil, err
	}

	if sendAt == nil || !sendAt.After(now) {
		if err := s.Queue.Publish(queue.TopicEmailSends, draft.ID); err != nil {
			return nil, err
		}
	}
	return draft, nil
}

// Reject moves a pending draft to rejected.
func (s *DraftService) Reject(id uuid.UUID, reason string) (*model.Draft, error) {
	draft, err := s.DraftRepo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if draft.Status != model.DraftStatusPending {
		return nil, appErrors.NewPrecondition(appErrors.InvalidDraftState,
			"draft is "+string(draft.Status)+", only pending drafts can be rejected")
	}

	draft.Status = model.DraftStatusRejected
	draft.RejectionReason = reason
	if err := s.DraftRepo.Update(draft); err != nil {
		return nil, err
	}
	return draft, nil
}

// Edit updates the editable content of a pending draft.
func (s *DraftService) Edit(id uuid.UUID, body *string, selectedSubject *string) (*model.Draft, error) {
	draft, err := s.DraftRepo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if draft.Status != model.DraftStatusPending {
		return nil, appErrors.NewPrecondition(appErrors.InvalidDraftState,
			"draft is "+string(draft.Status)+", only pending drafts can be edited")
	}

	if body != nil && strings.TrimSpace(*body) != "" {
		draft.Body = *body
	}
	if selectedSubject != nil && *selectedSubject != "" {
		draft.SelectedSubject = selectedSubject
	}
	if err := s.DraftRepo.Update(draft); err != nil {
		return nil, err
	}
	return draft, nil
}

// Regenerate replaces the content of a pending draft with a fresh
// generation, optionally steering the strategy with an operator feedback
// shorthand. The draft keeps its identity and stays pending.
func (s *DraftService) Regenerate(ctx context.Context, id uuid.UUID, feedback string) (*model.Draft, error) {
	draft, err := s.DraftRepo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if draft.Status != model.DraftStatusPending {
		return nil, appErrors.NewPrecondition(appErrors.InvalidDraftState,
			"draft is "+string(draft.Status)+", only pending drafts can be regenerated")
	}

	lead, err := s.LeadRepo.GetByID(draft.LeadID)
	if err != nil {
		return nil, err
	}
	intel, err := s.IntelRepo.GetByLeadID(draft.LeadID)
	if err != nil {
		return nil, err
	}

	strategy := draft.Strategy
	if strategy == nil {
		strategy = &model.Strategy{Angle: "problem-hypothesis", CTA: "reply", Tone: "professional"}
	}
	if feedback != "" {
		override, ok := regenerateOverrides[feedback]
		if !ok {
			return nil, appErrors.NewValidation("feedback", "unknown feedback "+feedback)
		}
		adjusted := *strategy
		override(&adjusted)
		strategy = &adjusted
	}

	gctx, cancel := context.WithTimeout(ctx, s.Config.GeneratorTimeout)
	defer cancel()

	generated, err := s.Generator.Generate(gctx, integration.GenerateRequest{
		Lead:         lead,
		Intelligence: intel,
		TouchNumber:  draft.TouchNumber,
		Mode:         draft.PersonalizationMode,
		Strategy:     strategy,
	})
	if err != nil {
		var ie *appErrors.IntegrationError
		if errors.As(err, &ie) {
			return nil, err
		}
		return nil, appErrors.NewTransient("generator", err)
	}

	draft.SubjectOptions = generated.SubjectOptions
	draft.SelectedSubject = nil
	draft.Body = generated.Body
	draft.Strategy = generated.Strategy
	draft.Evidence = generated.Evidence
	if err := s.DraftRepo.Update(draft); err != nil {
		return nil, err
	}
	return draft, nil
}

// BulkOutcome is the per-draft result of a bulk approval.
type BulkOutcome struct {
	DraftID uuid.UUID `json:"draft_id"`
	OK      bool      `json:"ok"`
	Error   string    `json:"error,omitempty"`
}

// BulkApprove approves each draft independently. A draft that cannot be
// approved records its error without affecting the others.
func (s *DraftService) BulkApprove(ids []uuid.UUID, approvedBy string) []BulkOutcome {
	outcomes := make([]BulkOutcome, 0, len(ids))
	for _, id := range ids {
		_, err := s.Approve(id, approvedBy, nil, nil)
		outcome := BulkOutcome{DraftID: id, OK: err == nil}
		if err != nil {
			outcome.Error = err.Error()
		}
		outcomes = append(outcomes, outcome)
	}
	return outcomes
}
