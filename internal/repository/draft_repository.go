package repository

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	appErrors "github.com/fundamentalanalysis/xendex-ai-sales-agent/internal/errors"
	"github.com/fundamentalanalysis/xendex-ai-sales-agent/internal/model"
)

// DraftFilter narrows draft listings. Nil ID fields match everything.
type DraftFilter struct {
	Status     string
	LeadID     *uuid.UUID
	CampaignID *uuid.UUID
}

type DraftRepositoryInterface interface {
	Create(d *model.Draft) error
	GetByID(id uuid.UUID) (*model.Draft, error)

	// GetPending returns the pending draft for a (lead, campaign, touch)
	// slot, or nil. At most one can exist.
	GetPending(leadID uuid.UUID, campaignID *uuid.UUID, touchNumber int) (*model.Draft, error)
	List(offset, limit int, filter DraftFilter) ([]*model.Draft, int, error)
	Update(d *model.Draft) error

	// ListScheduledDue returns approved drafts whose scheduled send time
	// has arrived.
	ListScheduledDue(now time.Time) ([]*model.Draft, error)
}

type DraftRepository struct {
	DB *sql.DB
}

const draftColumns = `id, lead_id, campaign_id, touch_number, subject_options, selected_subject, body,
    strategy, evidence, personalization_mode, status, approved_by, approved_at, rejection_reason,
    scheduled_send_at, created_at, updated_at`

func scanDraft(row interface{ Scan(...any) error }) (*model.Draft, error) {
	var d model.Draft
	var subjects pq.StringArray
	var strategyJSON, evidenceJSON []byte
	err := row.Scan(
		&d.ID, &d.LeadID, &d.CampaignID, &d.TouchNumber, &subjects, &d.SelectedSubject, &d.Body,
		&strategyJSON, &evidenceJSON, &d.PersonalizationMode, &d.Status, &d.ApprovedBy, &d.ApprovedAt,
		&d.RejectionReason, &d.ScheduledSendAt, &d.CreatedAt, &d.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	d.SubjectOptions = []string(subjects)
	if len(strategyJSON) > 0 {
		var s model.Strategy
		if err := json.Unmarshal(strategyJSON, &s); err != nil {
			return nil, fmt.Errorf("decode draft strategy: %w", err)
		}
		d.Strategy = &s
	}
	d.Evidence = evidenceJSON
	return &d, nil
}

func (r *DraftRepository) Create(d *model.Draft) error {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	d.CreatedAt = time.Now()
	if d.Status == "" {
		d.Status = model.DraftStatusPending
	}
	var strategyJSON []byte
	if d.Strategy != nil {
		var err error
		strategyJSON, err = json.Marshal(d.Strategy)
		if err != nil {
			return fmt.Errorf("encode draft strategy: %w", err)
		}
	}
	query := `
        INSERT INTO drafts (id, lead_id, campaign_id, touch_number, subject_options, selected_subject,
            body, strategy, evidence, personalization_mode, status, scheduled_send_at, created_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
    `
	_, err := r.DB.Exec(query,
		d.ID, d.LeadID, d.CampaignID, d.TouchNumber, pq.StringArray(d.SubjectOptions), d.SelectedSubject,
		d.Body, strategyJSON, []byte(d.Evidence), d.PersonalizationMode, d.Status, d.ScheduledSendAt,
		d.CreatedAt,
	)
	return err
}

func (r *DraftRepository) GetByID(id uuid.UUID) (*model.Draft, error) {
	d, err := scanDraft(r.DB.QueryRow(`SELECT `+draftColumns+` FROM drafts WHERE id=$1`, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.NewDraftNotFound(id)
		}
		return nil, err
	}
	return d, nil
}

func (r *DraftRepository) GetPending(leadID uuid.UUID, campaignID *uuid.UUID, touchNumber int) (*model.Draft, error) {
	query := `SELECT ` + draftColumns + ` FROM drafts
        WHERE lead_id=$1 AND touch_number=$2 AND status='pending'`
	args := []any{leadID, touchNumber}
	if campaignID != nil {
		query += ` AND campaign_id=$3`
		args = append(args, *campaignID)
	}
	query += ` ORDER BY created_at DESC LIMIT 1`

	d, err := scanDraft(r.DB.QueryRow(query, args...))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return d, nil
}

func (r *DraftRepository) List(offset, limit int, filter DraftFilter) ([]*model.Draft, int, error) {
	where := ` WHERE 1=1`
	args := []any{}
	argPos := 1

	if filter.Status != "" {
		where += fmt.Sprintf(" AND status=$%d", argPos)
		args = append(args, filter.Status)
		argPos++
	}
	if filter.LeadID != nil {
		where += fmt.Sprintf(" AND lead_id=$%d", argPos)
		args = append(args, *filter.LeadID)
		argPos++
	}
	if filter.CampaignID != nil {
		where += fmt.Sprintf(" AND campaign_id=$%d", argPos)
		args = append(args, *filter.CampaignID)
		argPos++
	}

	query := `SELECT ` + draftColumns + ` FROM drafts` + where +
		fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d OFFSET $%d", argPos, argPos+1)
	rows, err := r.DB.Query(query, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	drafts := []*model.Draft{}
	for rows.Next() {
		d, err := scanDraft(rows)
		if err != nil {
			return nil, 0, err
		}
		drafts = append(drafts, d)
	}

	var total int
	if err := r.DB.QueryRow(`SELECT COUNT(*) FROM drafts`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}
	return drafts, total, nil
}

func (r *DraftRepository) Update(d *model.Draft) error {
	var strategyJSON []byte
	if d.Strategy != nil {
		var err error
		strategyJSON, err = json.Marshal(d.Strategy)
		if err != nil {
			return fmt.Errorf("encode draft strategy: %w", err)
		}
	}
	query := `
        UPDATE drafts SET subject_options=$1, selected_subject=$2, body=$3, strategy=$4, evidence=$5,
            status=$6, approved_by=$7, approved_at=$8, rejection_reason=$9, scheduled_send_at=$10,
            updated_at=NOW()
        WHERE id=$11
    `
	_, err := r.DB.Exec(query,
		pq.StringArray(d.SubjectOptions), d.SelectedSubject, d.Body, strategyJSON, []byte(d.Evidence),
		d.Status, d.ApprovedBy, d.ApprovedAt, d.RejectionReason, d.ScheduledSendAt, d.ID,
	)
	return err
}

func (r *DraftRepository) ListScheduledDue(now time.Time) ([]*model.Draft, error) {
	query := `SELECT ` + draftColumns + ` FROM drafts
        WHERE status='approved' AND scheduled_send_at IS NOT NULL AND scheduled_send_at <= $1`
	rows, err := r.DB.Query(query, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	drafts := []*model.Draft{}
	for rows.Next() {
		d, err := scanDraft(rows)
		if err != nil {
			return nil, err
		}
		drafts = append(drafts, d)
	}
	return drafts, nil
}

var _ DraftRepositoryInterface = (*DraftRepository)(nil)
