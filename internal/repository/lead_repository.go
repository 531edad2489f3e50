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

// LeadFilter narrows lead listings. Status accepts either a concrete
// status or one of the grouped views the dashboard asks for:
// "inprogress", "completed", "all_contacted".
type LeadFilter struct {
	Status   string
	Industry string
	Region   string
}

// statusGroups maps the dashboard's grouped status filters onto the
// concrete statuses they cover.
var statusGroups = map[string][]string{
	"new":           {"new", "researching"},
	"inprogress":    {"sequencing", "contacted"},
	"completed":     {"replied", "converted", "disqualified", "completed"},
	"all_contacted": {"contacted", "replied", "converted", "completed"},
}

type LeadRepositoryInterface interface {
	Create(l *model.Lead) error
	GetByID(id uuid.UUID) (*model.Lead, error)
	List(offset, limit int, filter LeadFilter) ([]*model.Lead, int, error)
	Update(l *model.Lead) error
	UpdateStatus(id uuid.UUID, status model.LeadStatus) error
	UpdateScores(id uuid.UUID, fit, readiness, intent, composite float64, researchedAt time.Time) error
	SetNeedsAttention(id uuid.UUID, needsAttention bool) error
	Delete(id uuid.UUID) error
}

type LeadRepository struct {
	DB *sql.DB
}

const leadColumns = `id, external_id, email, first_name, last_name, company_name, company_domain,
    title, persona, region, industry,
    fit_score, readiness_score, intent_score, composite_score,
    status, risk_level, risk_reason, personalization_mode,
    num_followups, followup_delay_days, has_replied, needs_attention,
    created_at, researched_at, last_contacted_at`

func scanLead(row interface{ Scan(...any) error }) (*model.Lead, error) {
	var l model.Lead
	err := row.Scan(
		&l.ID, &l.ExternalID, &l.Email, &l.FirstName, &l.LastName, &l.CompanyName, &l.CompanyDomain,
		&l.Title, &l.Persona, &l.Region, &l.Industry,
		&l.FitScore, &l.ReadinessScore, &l.IntentScore, &l.CompositeScore,
		&l.Status, &l.RiskLevel, &l.RiskReason, &l.PersonalizationMode,
		&l.NumFollowups, &l.FollowupDelayDays, &l.HasReplied, &l.NeedsAttention,
		&l.CreatedAt, &l.ResearchedAt, &l.LastContactedAt,
	)
	if err != nil {
		return nil, err
	}
	return &l, nil
}

func (r *LeadRepository) Create(l *model.Lead) error {
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	l.CreatedAt = time.Now()
	if l.Status == "" {
		l.Status = model.LeadStatusNew
	}
	if l.PersonalizationMode == "" {
		l.PersonalizationMode = "medium"
	}
	query := `
        INSERT INTO leads (id, external_id, email, first_name, last_name, company_name, company_domain,
            title, persona, region, industry, status, risk_level, risk_reason, personalization_mode,
            num_followups, followup_delay_days, has_replied, needs_attention, created_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20)
    `
	_, err := r.DB.Exec(query,
		l.ID, l.ExternalID, l.Email, l.FirstName, l.LastName, l.CompanyName, l.CompanyDomain,
		l.Title, l.Persona, l.Region, l.Industry, l.Status, l.RiskLevel, l.RiskReason,
		l.PersonalizationMode, l.NumFollowups, l.FollowupDelayDays, l.HasReplied, l.NeedsAttention,
		l.CreatedAt,
	)
	return err
}

func (r *LeadRepository) GetByID(id uuid.UUID) (*model.Lead, error) {
	query := `SELECT ` + leadColumns + ` FROM leads WHERE id=$1`
	l, err := scanLead(r.DB.QueryRow(query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.NewLeadNotFound(id)
		}
		return nil, err
	}
	return l, nil
}

func (r *LeadRepository) List(offset, limit int, filter LeadFilter) ([]*model.Lead, int, error) {
	where := " WHERE 1=1"
	args := []any{}
	argPos := 1

	if filter.Status != "" {
		if group, ok := statusGroups[filter.Status]; ok {
			where += fmt.Sprintf(" AND status = ANY($%d)", argPos)
			args = append(args, pq.Array(group))
			argPos++
		} else {
			where += fmt.Sprintf(" AND status=$%d", argPos)
			args = append(args, filter.Status)
			argPos++
		}
	}
	if filter.Industry != "" {
		where += fmt.Sprintf(" AND industry=$%d", argPos)
		args = append(args, filter.Industry)
		argPos++
	}
	if filter.Region != "" {
		where += fmt.Sprintf(" AND region=$%d", argPos)
		args = append(args, filter.Region)
		argPos++
	}

	query := `SELECT ` + leadColumns + ` FROM leads` + where +
		fmt.Sprintf(" ORDER BY composite_score DESC NULLS LAST, created_at DESC LIMIT $%d OFFSET $%d", argPos, argPos+1)
	rows, err := r.DB.Query(query, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	leads := []*model.Lead{}
	for rows.Next() {
		l, err := scanLead(rows)
		if err != nil {
			return nil, 0, err
		}
		leads = append(leads, l)
	}

	var total int
	if err := r.DB.QueryRow(`SELECT COUNT(*) FROM leads`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}
	return leads, total, nil
}

func (r *LeadRepository) Update(l *model.Lead) error {
	query := `
        UPDATE leads SET email=$1, first_name=$2, last_name=$3, company_name=$4, company_domain=$5,
            title=$6, persona=$7, region=$8, industry=$9, status=$10, risk_level=$11, risk_reason=$12,
            personalization_mode=$13, num_followups=$14, followup_delay_days=$15, has_replied=$16,
            needs_attention=$17, researched_at=$18, last_contacted_at=$19
        WHERE id=$20
    `
	_, err := r.DB.Exec(query,
		l.Email, l.FirstName, l.LastName, l.CompanyName, l.CompanyDomain,
		l.Title, l.Persona, l.Region, l.Industry, l.Status, l.RiskLevel, l.RiskReason,
		l.PersonalizationMode, l.NumFollowups, l.FollowupDelayDays, l.HasReplied,
		l.NeedsAttention, l.ResearchedAt, l.LastContactedAt, l.ID,
	)
	return err
}

func (r *LeadRepository) UpdateStatus(id uuid.UUID, status model.LeadStatus) error {
	_, err := r.DB.Exec(`UPDATE leads SET status=$1 WHERE id=$2`, status, id)
	return err
}

// UpdateScores overwrites all four scores and the research timestamp in
// one statement so recalculation is atomic.
func (r *LeadRepository) UpdateScores(id uuid.UUID, fit, readiness, intent, composite float64, researchedAt time.Time) error {
	query := `
        UPDATE leads SET fit_score=$1, readiness_score=$2, intent_score=$3, composite_score=$4, researched_at=$5
        WHERE id=$6
    `
	_, err := r.DB.Exec(query, fit, readiness, intent, composite, researchedAt, id)
	return err
}

func (r *LeadRepository) SetNeedsAttention(id uuid.UUID, needsAttention bool) error {
	_, err := r.DB.Exec(`UPDATE leads SET needs_attention=$1 WHERE id=$2`, needsAttention, id)
	return err
}

func (r *LeadRepository) Delete(id uuid.UUID) error {
	_, err := r.DB.Exec(`DELETE FROM leads WHERE id=$1`, id)
	return err
}

var _ LeadRepositoryInterface = (*LeadRepository)(nil)
