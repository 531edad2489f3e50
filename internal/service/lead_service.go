// internal/service/lead_service.go
package service

import (
	"context"
	"errors"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/fundamentalanalysis/xendex-ai-sales-agent/internal/config"
	appErrors "github.com/fundamentalanalysis/xendex-ai-sales-agent/internal/errors"
	"github.com/fundamentalanalysis/xendex-ai-sales-agent/internal/integration"
	"github.com/fundamentalanalysis/xendex-ai-sales-agent/internal/model"
	"github.com/fundamentalanalysis/xendex-ai-sales-agent/internal/repository"
	"github.com/fundamentalanalysis/xendex-ai-sales-agent/internal/scoring"
)

type LeadService struct {
	LeadRepo  repository.LeadRepositoryInterface
	IntelRepo repository.IntelligenceRepositoryInterface

	Researcher integration.Researcher
	Engine     *scoring.Engine
	Config     config.Config
}

// CreateLead validates and persists a new lead in status "new".
func (s *LeadService) CreateLead(l *model.Lead) (*model.Lead, error) {
	l.Email = strings.TrimSpace(l.Email)
	if l.Email == "" {
		return nil, appErrors.NewValidation("email", "is required")
	}
	if !strings.Contains(l.Email, "@") {
		return nil, appErrors.NewValidation("email", "is not a valid address")
	}
	if strings.TrimSpace(l.CompanyName) == "" {
		return nil, appErrors.NewValidation("company_name", "is required")
	}

	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	l.Status = model.LeadStatusNew
	if l.PersonalizationMode == "" {
		l.PersonalizationMode = "medium"
	}
	if l.FollowupDelayDays <= 0 {
		l.FollowupDelayDays = 3
	}
	l.CreatedAt = time.Now()

	if err := s.LeadRepo.Create(l); err != nil {
		return nil, err
	}
	return l, nil
}

func (s *LeadService) GetLead(id uuid.UUID) (*model.Lead, error) {
	return s.LeadRepo.GetByID(id)
}

func (s *LeadService) ListLeads(offset, limit int, filter repository.LeadFilter) ([]*model.Lead, int, error) {
	return s.LeadRepo.List(offset, limit, filter)
}

func (s *LeadService) DeleteLead(id uuid.UUID) error {
	if _, err := s.LeadRepo.GetByID(id); err != nil {
		return err
	}
	return s.LeadRepo.Delete(id)
}

// LeadUpdate carries a partial lead edit. Nil fields are left alone.
type LeadUpdate struct {
	FirstName           *string
	LastName            *string
	CompanyName         *string
	CompanyDomain       *string
	Title               *string
	Persona             *string
	Region              *string
	Industry            *string
	PersonalizationMode *string
	FollowupDelayDays   *int
}

// UpdateLead applies a partial edit to a lead's profile fields. Status
// and scores have their own paths and cannot be set here.
func (s *LeadService) UpdateLead(id uuid.UUID, upd LeadUpdate) (*model.Lead, error) {
	lead, err := s.LeadRepo.GetByID(id)
	if err != nil {
		return nil, err
	}

	if upd.FirstName != nil {
		lead.FirstName = *upd.FirstName
	}
	if upd.LastName != nil {
		lead.LastName = *upd.LastName
	}
	if upd.CompanyName != nil {
		if strings.TrimSpace(*upd.CompanyName) == "" {
			return nil, appErrors.NewValidation("company_name", "cannot be empty")
		}
		lead.CompanyName = *upd.CompanyName
	}
	if upd.CompanyDomain != nil {
		lead.CompanyDomain = *upd.CompanyDomain
	}
	if upd.Title != nil {
		lead.Title = *upd.Title
	}
	if upd.Persona != nil {
		lead.Persona = *upd.Persona
	}
	if upd.Region != nil {
		lead.Region = *upd.Region
	}
	if upd.Industry != nil {
		lead.Industry = *upd.Industry
	}
	if upd.PersonalizationMode != nil {
		switch *upd.PersonalizationMode {
		case "light", "medium", "deep":
			lead.PersonalizationMode = *upd.PersonalizationMode
		default:
			return nil, appErrors.NewValidation("personalization_mode", "must be light, medium or deep")
		}
	}
	if upd.FollowupDelayDays != nil {
		if *upd.FollowupDelayDays <= 0 {
			return nil, appErrors.NewValidation("followup_delay_days", "must be positive")
		}
		lead.FollowupDelayDays = *upd.FollowupDelayDays
	}

	if err := s.LeadRepo.Update(lead); err != nil {
		return nil, err
	}
	return lead, nil
}

// UpdateStatus applies a manual status override, subject to the lead
// transition table.
func (s *LeadService) UpdateStatus(id uuid.UUID, status model.LeadStatus) (*model.Lead, error) {
	if !status.Valid() {
		return nil, appErrors.NewValidation("status", "unknown status "+string(status))
	}

	lead, err := s.LeadRepo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if !lead.Status.CanTransition(status) {
		return nil, appErrors.NewPrecondition(appErrors.InvalidTransition,
			string(lead.Status)+" -> "+string(status))
	}

	// Pulling a lead out of replied back into the sequence is an
	// explicit re-engagement: clear the reply flag, or triggering and
	// due listing would keep skipping it forever.
	if lead.Status == model.LeadStatusReplied && status == model.LeadStatusSequencing && lead.HasReplied {
		lead.Status = status
		lead.HasReplied = false
		if err := s.LeadRepo.Update(lead); err != nil {
			return nil, err
		}
		return lead, nil
	}

	if err := s.LeadRepo.UpdateStatus(id, status); err != nil {
		return nil, err
	}
	lead.Status = status
	return lead, nil
}

// Research runs the research collaborator for a lead, persists the
// resulting intelligence, and applies scoring. With force=false a lead
// that already has research is only re-scored from the stored bundle.
// A forced refresh of a lead already in sequence updates its scores but
// leaves its status alone.
func (s *LeadService) Research(ctx context.Context, id uuid.UUID, force bool) (*scoring.Result, error) {
	lead, err := s.LeadRepo.GetByID(id)
	if err != nil {
		return nil, err
	}

	if lead.Researched() && !force {
		return s.Recalculate(id)
	}

	// Leads entering research from the front of the funnel are visibly
	// in flight; in-sequence leads keep their status during a refresh.
	if lead.Status.CanTransition(model.LeadStatusResearching) {
		if err := s.LeadRepo.UpdateStatus(id, model.LeadStatusResearching); err != nil {
			return nil, err
		}
		lead.Status = model.LeadStatusResearching
	}

	rctx, cancel := context.WithTimeout(ctx, s.Config.ResearchTimeout)
	defer cancel()

	intel, err := s.Researcher.Research(rctx, lead)
	if err != nil {
		log.Printf("research failed for lead %s: %v", id, err)
		var ie *appErrors.IntegrationError
		if errors.As(err, &ie) {
			return nil, err
		}
		return nil, appErrors.NewTransient("researcher", err)
	}
	intel.LeadID = lead.ID
	if intel.ResearchedAt.IsZero() {
		intel.ResearchedAt = time.Now()
	}

	if err := s.IntelRepo.Upsert(intel); err != nil {
		return nil, err
	}

	return s.applyScoring(lead, intel)
}

// Recalculate re-scores a lead from its stored intelligence without
// invoking research. Repeated calls produce identical results.
func (s *LeadService) Recalculate(id uuid.UUID) (*scoring.Result, error) {
	lead, err := s.LeadRepo.GetByID(id)
	if err != nil {
		return nil, err
	}

	intel, err := s.IntelRepo.GetByLeadID(id)
	if err != nil {
		return nil, err
	}
	if intel == nil {
		return nil, appErrors.NewValidation("lead", "has not been researched")
	}

	return s.applyScoring(lead, intel)
}

// applyScoring runs the engine over the lead's intelligence, persists the
// four scores, and moves front-of-funnel leads to qualified or
// disqualified. Leads already in a sequence keep their status.
func (s *LeadService) applyScoring(lead *model.Lead, intel *model.Intelligence) (*scoring.Result, error) {
	inputs := scoring.ExtractInputs(lead, intel)
	result := s.Engine.Score(inputs)

	researchedAt := intel.ResearchedAt
	if researchedAt.IsZero() {
		researchedAt = time.Now()
	}
	if err := s.LeadRepo.UpdateScores(lead.ID,
		result.Fit, result.Readiness, result.Intent, result.Composite, researchedAt); err != nil {
		return nil, err
	}

	next := model.LeadStatusQualified
	if !result.Qualified {
		next = model.LeadStatusDisqualified
	}
	if lead.Status.CanTransition(next) && lead.Status != model.LeadStatusSequencing &&
		lead.Status != model.LeadStatusContacted {
		if err := s.LeadRepo.UpdateStatus(lead.ID, next); err != nil {
			return nil, err
		}
		lead.Status = next
	}

	if intel.Fallback {
		lead.RiskLevel = "medium"
		lead.RiskReason = "scored from fallback research"
		if err := s.LeadRepo.Update(lead); err != nil {
			return nil, err
		}
	}

	log.Printf("lead %s scored: fit=%.3f readiness=%.3f intent=%.3f composite=%.3f qualified=%v",
		lead.ID, result.Fit, result.Readiness, result.Intent, result.Composite, result.Qualified)
	return &result, nil
}

// Intelligence returns the stored research bundle for a lead, nil when
// the lead has not been researched.
func (s *LeadService) Intelligence(id uuid.UUID) (*model.Intelligence, error) {
	if _, err := s.LeadRepo.GetByID(id); err != nil {
		return nil, err
	}
	return s.IntelRepo.GetByLeadID(id)
}
