// internal/controller/lead_controller.go
package controller

import (
	"encoding/json"
	"net/http"

	"github.com/fundamentalanalysis/xendex-ai-sales-agent/internal/model"
	"github.com/fundamentalanalysis/xendex-ai-sales-agent/internal/repository"
	"github.com/fundamentalanalysis/xendex-ai-sales-agent/internal/service"
)

type LeadController struct {
	LeadService     *service.LeadService
	SequenceService *service.SequenceService
}

func (c *LeadController) CreateLead(w http.ResponseWriter, r *http.Request) {
	var body model.Lead
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}

	lead, err := c.LeadService.CreateLead(&body)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, lead)
}

func (c *LeadController) ListLeads(w http.ResponseWriter, r *http.Request) {
	offset, limit, page := pagination(r)
	filter := repository.LeadFilter{
		Status:   r.URL.Query().Get("status"),
		Industry: r.URL.Query().Get("industry"),
		Region:   r.URL.Query().Get("region"),
	}

	leads, total, err := c.LeadService.ListLeads(offset, limit, filter)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, paginated(leads, total, page, limit))
}

func (c *LeadController) GetLead(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}

	lead, err := c.LeadService.GetLead(id)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, lead)
}

func (c *LeadController) DeleteLead(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}

	if err := c.LeadService.DeleteLead(id); err != nil {
		respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (c *LeadController) UpdateLead(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}

	var body struct {
		FirstName           *string `json:"first_name"`
		LastName            *string `json:"last_name"`
		CompanyName         *string `json:"company_name"`
		CompanyDomain       *string `json:"company_domain"`
		Title               *string `json:"title"`
		Persona             *string `json:"persona"`
		Region              *string `json:"region"`
		Industry            *string `json:"industry"`
		PersonalizationMode *string `json:"personalization_mode"`
		FollowupDelayDays   *int    `json:"followup_delay_days"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}

	lead, err := c.LeadService.UpdateLead(id, service.LeadUpdate{
		FirstName:           body.FirstName,
		LastName:            body.LastName,
		CompanyName:         body.CompanyName,
		CompanyDomain:       body.CompanyDomain,
		Title:               body.Title,
		Persona:             body.Persona,
		Region:              body.Region,
		Industry:            body.Industry,
		PersonalizationMode: body.PersonalizationMode,
		FollowupDelayDays:   body.FollowupDelayDays,
	})
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, lead)
}

func (c *LeadController) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}

	var body struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}

	lead, err := c.LeadService.UpdateStatus(id, model.LeadStatus(body.Status))
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, lead)
}

// Research kicks off research and scoring for the lead. With force=true
// fresh research is gathered even when the lead was already researched.
func (c *LeadController) Research(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}
	force := r.URL.Query().Get("force") == "true"

	result, err := c.LeadService.Research(r.Context(), id, force)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}

// Recalculate re-scores the lead from stored intelligence.
func (c *LeadController) Recalculate(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}

	result, err := c.LeadService.Recalculate(id)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}

func (c *LeadController) GetIntelligence(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}

	intel, err := c.LeadService.Intelligence(id)
	if err != nil {
		respondError(w, err)
		return
	}
	if intel == nil {
		respondJSON(w, http.StatusOK, map[string]any{"researched": false})
		return
	}
	respondJSON(w, http.StatusOK, intel)
}

// Trigger stages the next follow-up draft for the lead, auto-enrolling
// into the system follow-up campaign when no campaign is given.
func (c *LeadController) Trigger(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}

	var body struct {
		CampaignID *string `json:"campaign_id"`
	}
	// Body is optional for the default-campaign path.
	json.NewDecoder(r.Body).Decode(&body)

	campaignID, ok := optionalUUID(w, body.CampaignID, "campaign_id")
	if !ok {
		return
	}

	draft, err := c.SequenceService.Trigger(r.Context(), id, campaignID)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, draft)
}

func (c *LeadController) Unenroll(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}

	var body struct {
		Reason string `json:"reason"`
	}
	json.NewDecoder(r.Body).Decode(&body)

	if err := c.SequenceService.Unenroll(id, body.Reason); err != nil {
		respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
