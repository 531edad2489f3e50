// internal/controller/draft_controller.go
package controller

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/fundamentalanalysis/xendex-ai-sales-agent/internal/repository"
	"github.com/fundamentalanalysis/xendex-ai-sales-agent/internal/service"
)

type DraftController struct {
	DraftService    *service.DraftService
	SequenceService *service.SequenceService
}

func (c *DraftController) ListDrafts(w http.ResponseWriter, r *http.Request) {
	offset, limit, page := pagination(r)
	filter := repository.DraftFilter{
		Status: r.URL.Query().Get("status"),
	}
	if raw := r.URL.Query().Get("lead_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			http.Error(w, "lead_id must be a UUID", http.StatusBadRequest)
			return
		}
		filter.LeadID = &id
	}
	if raw := r.URL.Query().Get("campaign_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			http.Error(w, "campaign_id must be a UUID", http.StatusBadRequest)
			return
		}
		filter.CampaignID = &id
	}

	drafts, total, err := c.DraftService.ListDrafts(offset, limit, filter)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, paginated(drafts, total, page, limit))
}

func (c *DraftController) GetDraft(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}

	draft, err := c.DraftService.GetDraft(id)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, draft)
}

func (c *DraftController) GenerateDraft(w http.ResponseWriter, r *http.Request) {
	var body struct {
		LeadID      string  `json:"lead_id"`
		CampaignID  *string `json:"campaign_id"`
		TouchNumber int     `json:"touch_number"`
		Mode        string  `json:"mode"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}

	leadID, err := uuid.Parse(body.LeadID)
	if err != nil {
		http.Error(w, "lead_id must be a UUID", http.StatusBadRequest)
		return
	}
	campaignID, ok := optionalUUID(w, body.CampaignID, "campaign_id")
	if !ok {
		return
	}
	if body.TouchNumber == 0 {
		body.TouchNumber = 1
	}

	draft, err := c.DraftService.Generate(r.Context(), leadID, campaignID, body.TouchNumber, body.Mode)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, draft)
}

// BulkGenerate drafts one touch for each given lead, reporting a
// per-lead outcome.
func (c *DraftController) BulkGenerate(w http.ResponseWriter, r *http.Request) {
	var body struct {
		LeadIDs     []string `json:"lead_ids"`
		CampaignID  *string  `json:"campaign_id"`
		TouchNumber int      `json:"touch_number"`
		Mode        string   `json:"mode"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}

	campaignID, ok := optionalUUID(w, body.CampaignID, "campaign_id")
	if !ok {
		return
	}
	if body.TouchNumber == 0 {
		body.TouchNumber = 1
	}

	ids := make([]uuid.UUID, 0, len(body.LeadIDs))
	for _, raw := range body.LeadIDs {
		id, err := uuid.Parse(raw)
		if err != nil {
			http.Error(w, "lead_ids must be UUIDs", http.StatusBadRequest)
			return
		}
		ids = append(ids, id)
	}

	outcomes := c.DraftService.BulkGenerate(r.Context(), ids, campaignID, body.TouchNumber, body.Mode)
	respondJSON(w, http.StatusOK, map[string]any{"results": outcomes})
}

func (c *DraftController) ApproveDraft(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}

	var body struct {
		ApprovedBy      string     `json:"approved_by"`
		SelectedSubject *string    `json:"selected_subject"`
		SendAt          *time.Time `json:"send_at"`
	}
	json.NewDecoder(r.Body).Decode(&body)

	draft, err := c.DraftService.Approve(id, body.ApprovedBy, body.SelectedSubject, body.SendAt)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, draft)
}

// ApproveAndSend approves the draft and sends it synchronously,
// advancing the lead's sequence cursor. A failed send leaves the draft
// approved so the call can simply be retried.
func (c *DraftController) ApproveAndSend(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}

	var body struct {
		ApprovedBy string `json:"approved_by"`
	}
	json.NewDecoder(r.Body).Decode(&body)

	draft, err := c.SequenceService.ApproveFollowup(r.Context(), id, body.ApprovedBy)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, draft)
}

func (c *DraftController) RejectDraft(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}

	var body struct {
		Reason string `json:"reason"`
	}
	json.NewDecoder(r.Body).Decode(&body)

	draft, err := c.DraftService.Reject(id, body.Reason)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, draft)
}

func (c *DraftController) EditDraft(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}

	var body struct {
		Body            *string `json:"body"`
		SelectedSubject *string `json:"selected_subject"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}

	draft, err := c.DraftService.Edit(id, body.Body, body.SelectedSubject)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, draft)
}

func (c *DraftController) RegenerateDraft(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}

	var body struct {
		Feedback string `json:"feedback"`
	}
	json.NewDecoder(r.Body).Decode(&body)

	draft, err := c.DraftService.Regenerate(r.Context(), id, body.Feedback)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, draft)
}

func (c *DraftController) BulkApprove(w http.ResponseWriter, r *http.Request) {
	var body struct {
		DraftIDs   []string `json:"draft_ids"`
		ApprovedBy string   `json:"approved_by"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}

	ids := make([]uuid.UUID, 0, len(body.DraftIDs))
	for _, raw := range body.DraftIDs {
		id, err := uuid.Parse(raw)
		if err != nil {
			http.Error(w, "draft_ids must be UUIDs", http.StatusBadRequest)
			return
		}
		ids = append(ids, id)
	}

	outcomes := c.DraftService.BulkApprove(ids, body.ApprovedBy)
	respondJSON(w, http.StatusOK, map[string]any{"results": outcomes})
}
