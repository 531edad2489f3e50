// internal/controller/campaign_controller.go
package controller

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"

	"github.com/fundamentalanalysis/xendex-ai-sales-agent/internal/model"
	"github.com/fundamentalanalysis/xendex-ai-sales-agent/internal/service"
)

type CampaignController struct {
	SequenceService *service.SequenceService
}

func (c *CampaignController) CreateCampaign(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Name            string `json:"name"`
		Description     string `json:"description"`
		TargetIndustry  string `json:"target_industry"`
		TargetPersona   string `json:"target_persona"`
		TargetRegion    string `json:"target_region"`
		SequenceTouches int    `json:"sequence_touches"`
		TouchDelays     []int  `json:"touch_delays"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}

	campaign, err := c.SequenceService.CreateCampaign(&model.Campaign{
		Name:            body.Name,
		Description:     body.Description,
		TargetIndustry:  body.TargetIndustry,
		TargetPersona:   body.TargetPersona,
		TargetRegion:    body.TargetRegion,
		SequenceTouches: body.SequenceTouches,
		TouchDelays:     body.TouchDelays,
	})
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, campaign)
}

func (c *CampaignController) ListCampaigns(w http.ResponseWriter, r *http.Request) {
	offset, limit, page := pagination(r)
	status := r.URL.Query().Get("status")

	campaigns, total, err := c.SequenceService.ListCampaigns(offset, limit, status)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, paginated(campaigns, total, page, limit))
}

func (c *CampaignController) GetCampaign(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}

	campaign, err := c.SequenceService.GetCampaign(id)
	if err != nil {
		respondError(w, err)
		return
	}

	counts, err := c.SequenceService.CampaignLeadCounts(id)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"campaign":    campaign,
		"lead_counts": counts,
	})
}

func (c *CampaignController) UpdateCampaign(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}

	var body struct {
		Name            *string `json:"name"`
		Description     *string `json:"description"`
		SequenceTouches *int    `json:"sequence_touches"`
		TouchDelays     []int   `json:"touch_delays"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}

	campaign, err := c.SequenceService.UpdateCampaign(id, service.CampaignUpdate{
		Name:            body.Name,
		Description:     body.Description,
		SequenceTouches: body.SequenceTouches,
		TouchDelays:     body.TouchDelays,
	})
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, campaign)
}

func (c *CampaignController) DeleteCampaign(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}

	if err := c.SequenceService.DeleteCampaign(id); err != nil {
		respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (c *CampaignController) ListCampaignLeads(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}

	leads, err := c.SequenceService.ListCampaignLeads(id)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"leads": leads})
}

func (c *CampaignController) StartCampaign(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}

	campaign, err := c.SequenceService.StartCampaign(id)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, campaign)
}

func (c *CampaignController) PauseCampaign(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}

	campaign, err := c.SequenceService.PauseCampaign(id)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, campaign)
}

// EnrollLeads enrolls a batch of leads, reporting a per-lead outcome.
func (c *CampaignController) EnrollLeads(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}

	var body struct {
		LeadIDs []string `json:"lead_ids"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}

	type outcome struct {
		LeadID string `json:"lead_id"`
		OK     bool   `json:"ok"`
		Error  string `json:"error,omitempty"`
	}
	outcomes := make([]outcome, 0, len(body.LeadIDs))
	for _, raw := range body.LeadIDs {
		leadID, err := uuid.Parse(raw)
		if err != nil {
			outcomes = append(outcomes, outcome{LeadID: raw, Error: "must be a UUID"})
			continue
		}
		_, err = c.SequenceService.Enroll(id, leadID)
		o := outcome{LeadID: raw, OK: err == nil}
		if err != nil {
			o.Error = err.Error()
		}
		outcomes = append(outcomes, o)
	}
	respondJSON(w, http.StatusOK, map[string]any{"results": outcomes})
}
