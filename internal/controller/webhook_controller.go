// internal/controller/webhook_controller.go
package controller

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"

	"github.com/fundamentalanalysis/xendex-ai-sales-agent/internal/service"
)

// WebhookController receives inbound signals from the mail provider.
type WebhookController struct {
	SequenceService *service.SequenceService
}

// Reply marks a lead as replied and stops its sequences. Delivered by
// the mail provider's inbound-parse hook; repeat deliveries are a no-op.
func (c *WebhookController) Reply(w http.ResponseWriter, r *http.Request) {
	var body struct {
		LeadID string `json:"lead_id"`
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

	lead, err := c.SequenceService.HandleReply(leadID)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, lead)
}
