package repository

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/fundamentalanalysis/xendex-ai-sales-agent/internal/model"
)

type IntelligenceRepositoryInterface interface {
	// Upsert replaces the research record for a lead.
	Upsert(intel *model.Intelligence) error
	// GetByLeadID returns the research record, or nil when the lead has
	// not been researched.
	GetByLeadID(leadID uuid.UUID) (*model.Intelligence, error)
}

// IntelligenceRepository stores the research bundle as one JSONB document
// per lead. The bundle is read back whole for scoring; nothing queries
// inside it.
type IntelligenceRepository struct {
	DB *sql.DB
}

func (r *IntelligenceRepository) Upsert(intel *model.Intelligence) error {
	payload, err := json.Marshal(intel)
	if err != nil {
		return fmt.Errorf("encode intelligence: %w", err)
	}
	query := `
        INSERT INTO lead_intelligence (lead_id, data, researched_at)
        VALUES ($1, $2, $3)
        ON CONFLICT (lead_id) DO UPDATE SET data=EXCLUDED.data, researched_at=EXCLUDED.researched_at
    `
	_, err = r.DB.Exec(query, intel.LeadID, payload, intel.ResearchedAt)
	return err
}

func (r *IntelligenceRepository) GetByLeadID(leadID uuid.UUID) (*model.Intelligence, error) {
	var payload []byte
	err := r.DB.QueryRow(`SELECT data FROM lead_intelligence WHERE lead_id=$1`, leadID).Scan(&payload)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	var intel model.Intelligence
	if err := json.Unmarshal(payload, &intel); err != nil {
		return nil, fmt.Errorf("decode intelligence: %w", err)
	}
	return &intel, nil
}

var _ IntelligenceRepositoryInterface = (*IntelligenceRepository)(nil)
