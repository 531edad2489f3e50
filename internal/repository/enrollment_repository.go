package repository

import (
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/fundamentalanalysis/xendex-ai-sales-agent/internal/model"
)

// DueEnrollment pairs an enrollment with its campaign and lead for the
// scheduler's due-scan.
type DueEnrollment struct {
	Enrollment *model.Enrollment
	CampaignID uuid.UUID
	LeadID     uuid.UUID
}

type EnrollmentRepositoryInterface interface {
	// Create inserts an enrollment unless one already exists for the
	// (campaign, lead) pair, in which case the existing one is returned.
	Create(campaignID, leadID uuid.UUID) (*model.Enrollment, error)
	Get(campaignID, leadID uuid.UUID) (*model.Enrollment, error)
	ListByCampaign(campaignID uuid.UUID) ([]*model.Enrollment, error)
	Update(e *model.Enrollment) error

	// ListDue returns enrollments whose next touch is eligible: campaign
	// active, enrollment not finished, lead still sequencing and silent.
	ListDue(now time.Time) ([]DueEnrollment, error)

	// StopAllForLead stops every live enrollment of the lead, recording
	// the reason. Used on reply detection and unsubscribe.
	StopAllForLead(leadID uuid.UUID, reason string) error
}

type EnrollmentRepository struct {
	DB *sql.DB
}

const enrollmentColumns = `id, campaign_id, lead_id, current_touch, next_touch_at, status, stopped_reason, created_at, updated_at`

func scanEnrollment(row interface{ Scan(...any) error }) (*model.Enrollment, error) {
	var e model.Enrollment
	err := row.Scan(
		&e.ID, &e.CampaignID, &e.LeadID, &e.CurrentTouch, &e.NextTouchAt,
		&e.Status, &e.StoppedReason, &e.CreatedAt, &e.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// Idempotent insert: check first, return existing.
func (r *EnrollmentRepository) Create(campaignID, leadID uuid.UUID) (*model.Enrollment, error) {
	existing, err := r.Get(campaignID, leadID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}

	e := &model.Enrollment{
		ID:         uuid.New(),
		CampaignID: campaignID,
		LeadID:     leadID,
		Status:     model.EnrollmentStatusPending,
		CreatedAt:  time.Now(),
	}
	query := `
        INSERT INTO enrollments (id, campaign_id, lead_id, current_touch, status, created_at)
        VALUES ($1,$2,$3,0,$4,$5)
    `
	if _, err := r.DB.Exec(query, e.ID, e.CampaignID, e.LeadID, e.Status, e.CreatedAt); err != nil {
		return nil, err
	}
	return e, nil
}

func (r *EnrollmentRepository) Get(campaignID, leadID uuid.UUID) (*model.Enrollment, error) {
	query := `SELECT ` + enrollmentColumns + ` FROM enrollments WHERE campaign_id=$1 AND lead_id=$2`
	e, err := scanEnrollment(r.DB.QueryRow(query, campaignID, leadID))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return e, nil
}

func (r *EnrollmentRepository) ListByCampaign(campaignID uuid.UUID) ([]*model.Enrollment, error) {
	rows, err := r.DB.Query(`SELECT `+enrollmentColumns+` FROM enrollments WHERE campaign_id=$1 ORDER BY created_at`, campaignID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	enrollments := []*model.Enrollment{}
	for rows.Next() {
		e, err := scanEnrollment(rows)
		if err != nil {
			return nil, err
		}
		enrollments = append(enrollments, e)
	}
	return enrollments, nil
}

func (r *EnrollmentRepository) Update(e *model.Enrollment) error {
	query := `
        UPDATE enrollments SET current_touch=$1, next_touch_at=$2, status=$3, stopped_reason=$4, updated_at=NOW()
        WHERE id=$5
    `
	_, err := r.DB.Exec(query, e.CurrentTouch, e.NextTouchAt, e.Status, e.StoppedReason, e.ID)
	return err
}

func (r *EnrollmentRepository) ListDue(now time.Time) ([]DueEnrollment, error) {
	query := `
        SELECT e.id, e.campaign_id, e.lead_id, e.current_touch, e.next_touch_at,
               e.status, e.stopped_reason, e.created_at, e.updated_at
        FROM enrollments e
        JOIN campaigns c ON c.id = e.campaign_id
        JOIN leads l ON l.id = e.lead_id
        WHERE c.status = 'active'
          AND e.status IN ('pending', 'active')
          AND l.status IN ('sequencing', 'contacted')
          AND l.has_replied = FALSE
          AND (e.next_touch_at IS NULL OR e.next_touch_at <= $1)
    `
	rows, err := r.DB.Query(query, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	due := []DueEnrollment{}
	for rows.Next() {
		e, err := scanEnrollment(rows)
		if err != nil {
			return nil, err
		}
		due = append(due, DueEnrollment{Enrollment: e, CampaignID: e.CampaignID, LeadID: e.LeadID})
	}
	return due, nil
}

func (r *EnrollmentRepository) StopAllForLead(leadID uuid.UUID, reason string) error {
	query := `
        UPDATE enrollments SET status='stopped', stopped_reason=$1, updated_at=NOW()
        WHERE lead_id=$2 AND status IN ('pending', 'active')
    `
	_, err := r.DB.Exec(query, reason, leadID)
	return err
}

var _ EnrollmentRepositoryInterface = (*EnrollmentRepository)(nil)
