package repository

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	appErrors "github.com/fundamentalanalysis/xendex-ai-sales-agent/internal/errors"
	"github.com/fundamentalanalysis/xendex-ai-sales-agent/internal/model"
)

type CampaignRepositoryInterface interface {
	Create(c *model.Campaign) error
	GetByID(id uuid.UUID) (*model.Campaign, error)
	GetByExternalID(externalID string) (*model.Campaign, error)
	List(offset, limit int, status string) ([]*model.Campaign, int, error)
	Update(c *model.Campaign) error
	UpdateStatus(id uuid.UUID, status model.CampaignStatus) error
	Delete(id uuid.UUID) error

	// LeadCounts returns enrollment counts by status plus a "total" key.
	// Derived at read time; never stored.
	LeadCounts(campaignID uuid.UUID) (map[string]int, error)
}

type CampaignRepository struct {
	DB *sql.DB
}

const campaignColumns = `id, external_id, name, description, target_industry, target_persona, target_region,
    sequence_touches, touch_delays, status, created_at, updated_at`

func scanCampaign(row interface{ Scan(...any) error }) (*model.Campaign, error) {
	var c model.Campaign
	var delays pq.Int64Array
	err := row.Scan(
		&c.ID, &c.ExternalID, &c.Name, &c.Description,
		&c.TargetIndustry, &c.TargetPersona, &c.TargetRegion,
		&c.SequenceTouches, &delays, &c.Status, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	c.TouchDelays = make([]int, len(delays))
	for i, d := range delays {
		c.TouchDelays[i] = int(d)
	}
	return &c, nil
}

func touchDelaysArg(delays []int) pq.Int64Array {
	out := make(pq.Int64Array, len(delays))
	for i, d := range delays {
		out[i] = int64(d)
	}
	return out
}

func (r *CampaignRepository) Create(c *model.Campaign) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	c.CreatedAt = time.Now()
	if c.Status == "" {
		c.Status = model.CampaignStatusDraft
	}
	query := `
        INSERT INTO campaigns (id, external_id, name, description, target_industry, target_persona,
            target_region, sequence_touches, touch_delays, status, created_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
    `
	_, err := r.DB.Exec(query,
		c.ID, c.ExternalID, c.Name, c.Description, c.TargetIndustry, c.TargetPersona,
		c.TargetRegion, c.SequenceTouches, touchDelaysArg(c.TouchDelays), c.Status, c.CreatedAt,
	)
	return err
}

func (r *CampaignRepository) GetByID(id uuid.UUID) (*model.Campaign, error) {
	c, err := scanCampaign(r.DB.QueryRow(`SELECT `+campaignColumns+` FROM campaigns WHERE id=$1`, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.NewCampaignNotFound(id)
		}
		return nil, err
	}
	return c, nil
}

func (r *CampaignRepository) GetByExternalID(externalID string) (*model.Campaign, error) {
	c, err := scanCampaign(r.DB.QueryRow(`SELECT `+campaignColumns+` FROM campaigns WHERE external_id=$1`, externalID))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return c, nil
}

func (r *CampaignRepository) List(offset, limit int, status string) ([]*model.Campaign, int, error) {
	where := ` WHERE 1=1`
	args := []any{}
	argPos := 1
	if status != "" {
		where += fmt.Sprintf(" AND status=$%d", argPos)
		args = append(args, status)
		argPos++
	}

	query := `SELECT ` + campaignColumns + ` FROM campaigns` + where +
		fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d OFFSET $%d", argPos, argPos+1)
	rows, err := r.DB.Query(query, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	campaigns := []*model.Campaign{}
	for rows.Next() {
		c, err := scanCampaign(rows)
		if err != nil {
			return nil, 0, err
		}
		campaigns = append(campaigns, c)
	}

	var total int
	if err := r.DB.QueryRow(`SELECT COUNT(*) FROM campaigns`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}
	return campaigns, total, nil
}

func (r *CampaignRepository) Update(c *model.Campaign) error {
	query := `
        UPDATE campaigns SET name=$1, description=$2, target_industry=$3, target_persona=$4,
            target_region=$5, sequence_touches=$6, touch_delays=$7, status=$8, updated_at=NOW()
        WHERE id=$9
    `
	_, err := r.DB.Exec(query,
		c.Name, c.Description, c.TargetIndustry, c.TargetPersona, c.TargetRegion,
		c.SequenceTouches, touchDelaysArg(c.TouchDelays), c.Status, c.ID,
	)
	return err
}

func (r *CampaignRepository) UpdateStatus(id uuid.UUID, status model.CampaignStatus) error {
	_, err := r.DB.Exec(`UPDATE campaigns SET status=$1, updated_at=NOW() WHERE id=$2`, status, id)
	return err
}

func (r *CampaignRepository) Delete(id uuid.UUID) error {
	_, err := r.DB.Exec(`DELETE FROM campaigns WHERE id=$1`, id)
	return err
}

func (r *CampaignRepository) LeadCounts(campaignID uuid.UUID) (map[string]int, error) {
	rows, err := r.DB.Query(`SELECT status, COUNT(*) FROM enrollments WHERE campaign_id=$1 GROUP BY status`, campaignID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := map[string]int{"total": 0, "pending": 0, "active": 0, "completed": 0, "stopped": 0}
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		if _, ok := counts[status]; ok {
			counts[status] = n
		}
		counts["total"] += n
	}
	return counts, nil
}

var _ CampaignRepositoryInterface = (*CampaignRepository)(nil)
