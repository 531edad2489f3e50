// internal/repository/memory.go
package repository

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	appErrors "github.com/fundamentalanalysis/xendex-ai-sales-agent/internal/errors"
	"github.com/fundamentalanalysis/xendex-ai-sales-agent/internal/model"
)

// In-memory repository implementations. They mirror the Postgres
// repositories' semantics (idempotent enrollment insert, nil for absent
// optional lookups, due-scan filters) and back the test suites and
// database-free local runs.

type MemoryLeadRepository struct {
	mu    sync.RWMutex
	leads map[uuid.UUID]model.Lead
}

func NewMemoryLeadRepository() *MemoryLeadRepository {
	return &MemoryLeadRepository{leads: make(map[uuid.UUID]model.Lead)}
}

func (r *MemoryLeadRepository) Create(l *model.Lead) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.leads[l.ID] = *l
	return nil
}

func (r *MemoryLeadRepository) GetByID(id uuid.UUID) (*model.Lead, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	l, ok := r.leads[id]
	if !ok {
		return nil, appErrors.NewLeadNotFound(id)
	}
	out := l
	return &out, nil
}

func (r *MemoryLeadRepository) List(offset, limit int, filter LeadFilter) ([]*model.Lead, int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	matched := []*model.Lead{}
	for _, l := range r.leads {
		if !leadMatches(l, filter) {
			continue
		}
		out := l
		matched = append(matched, &out)
	}
	sort.Slice(matched, func(i, j int) bool {
		return matched[i].CreatedAt.Before(matched[j].CreatedAt)
	})

	total := len(matched)
	if offset >= total {
		return []*model.Lead{}, total, nil
	}
	end := offset + limit
	if limit <= 0 || end > total {
		end = total
	}
	return matched[offset:end], total, nil
}

func leadMatches(l model.Lead, filter LeadFilter) bool {
	if filter.Status != "" {
		if group, ok := statusGroups[filter.Status]; ok {
			found := false
			for _, s := range group {
				if string(l.Status) == s {
					found = true
					break
				}
			}
			if !found {
				return false
			}
		} else if string(l.Status) != filter.Status {
			return false
		}
	}
	if filter.Industry != "" && !strings.EqualFold(l.Industry, filter.Industry) {
		return false
	}
	if filter.Region != "" && !strings.EqualFold(l.Region, filter.Region) {
		return false
	}
	return true
}

func (r *MemoryLeadRepository) Update(l *model.Lead) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.leads[l.ID]; !ok {
		return appErrors.NewLeadNotFound(l.ID)
	}
	r.leads[l.ID] = *l
	return nil
}

func (r *MemoryLeadRepository) UpdateStatus(id uuid.UUID, status model.LeadStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.leads[id]
	if !ok {
		return appErrors.NewLeadNotFound(id)
	}
	l.Status = status
	r.leads[id] = l
	return nil
}

func (r *MemoryLeadRepository) UpdateScores(id uuid.UUID, fit, readiness, intent, composite float64, researchedAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.leads[id]
	if !ok {
		return appErrors.NewLeadNotFound(id)
	}
	l.FitScore = &fit
	l.ReadinessScore = &readiness
	l.IntentScore = &intent
	l.CompositeScore = &composite
	l.ResearchedAt = &researchedAt
	r.leads[id] = l
	return nil
}

func (r *MemoryLeadRepository) SetNeedsAttention(id uuid.UUID, needsAttention bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.leads[id]
	if !ok {
		return appErrors.NewLeadNotFound(id)
	}
	l.NeedsAttention = needsAttention
	r.leads[id] = l
	return nil
}

func (r *MemoryLeadRepository) Delete(id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.leads, id)
	return nil
}

var _ LeadRepositoryInterface = (*MemoryLeadRepository)(nil)

type MemoryCampaignRepository struct {
	mu        sync.RWMutex
	campaigns map[uuid.UUID]model.Campaign

	// Enrollments backs LeadCounts; optional.
	Enrollments *MemoryEnrollmentRepository
}

func NewMemoryCampaignRepository() *MemoryCampaignRepository {
	return &MemoryCampaignRepository{campaigns: make(map[uuid.UUID]model.Campaign)}
}

func (r *MemoryCampaignRepository) Create(c *model.Campaign) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.campaigns[c.ID] = *c
	return nil
}

func (r *MemoryCampaignRepository) GetByID(id uuid.UUID) (*model.Campaign, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.campaigns[id]
	if !ok {
		return nil, appErrors.NewCampaignNotFound(id)
	}
	out := c
	return &out, nil
}

func (r *MemoryCampaignRepository) GetByExternalID(externalID string) (*model.Campaign, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, c := range r.campaigns {
		if c.ExternalID != nil && *c.ExternalID == externalID {
			out := c
			return &out, nil
		}
	}
	return nil, nil
}

func (r *MemoryCampaignRepository) List(offset, limit int, status string) ([]*model.Campaign, int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	matched := []*model.Campaign{}
	for _, c := range r.campaigns {
		if status != "" && string(c.Status) != status {
			continue
		}
		out := c
		matched = append(matched, &out)
	}
	sort.Slice(matched, func(i, j int) bool {
		return matched[i].CreatedAt.Before(matched[j].CreatedAt)
	})

	total := len(matched)
	if offset >= total {
		return []*model.Campaign{}, total, nil
	}
	end := offset + limit
	if limit <= 0 || end > total {
		end = total
	}
	return matched[offset:end], total, nil
}

func (r *MemoryCampaignRepository) Update(c *model.Campaign) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.campaigns[c.ID]; !ok {
		return appErrors.NewCampaignNotFound(c.ID)
	}
	r.campaigns[c.ID] = *c
	return nil
}

func (r *MemoryCampaignRepository) UpdateStatus(id uuid.UUID, status model.CampaignStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.campaigns[id]
	if !ok {
		return appErrors.NewCampaignNotFound(id)
	}
	c.Status = status
	r.campaigns[id] = c
	return nil
}

func (r *MemoryCampaignRepository) Delete(id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.campaigns, id)
	return nil
}

func (r *MemoryCampaignRepository) LeadCounts(campaignID uuid.UUID) (map[string]int, error) {
	counts := map[string]int{}
	if r.Enrollments == nil {
		return counts, nil
	}
	enrollments, err := r.Enrollments.ListByCampaign(campaignID)
	if err != nil {
		return nil, err
	}
	for _, e := range enrollments {
		counts[string(e.Status)]++
		counts["total"]++
	}
	return counts, nil
}

var _ CampaignRepositoryInterface = (*MemoryCampaignRepository)(nil)

type MemoryEnrollmentRepository struct {
	mu          sync.RWMutex
	enrollments map[uuid.UUID]model.Enrollment

	// Campaigns and Leads back the due-scan's join conditions; optional.
	Campaigns *MemoryCampaignRepository
	Leads     *MemoryLeadRepository
}

func NewMemoryEnrollmentRepository() *MemoryEnrollmentRepository {
	return &MemoryEnrollmentRepository{enrollments: make(map[uuid.UUID]model.Enrollment)}
}

func (r *MemoryEnrollmentRepository) Create(campaignID, leadID uuid.UUID) (*model.Enrollment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, e := range r.enrollments {
		if e.CampaignID == campaignID && e.LeadID == leadID {
			out := e
			return &out, nil
		}
	}

	e := model.Enrollment{
		ID:         uuid.New(),
		CampaignID: campaignID,
		LeadID:     leadID,
		Status:     model.EnrollmentStatusPending,
		CreatedAt:  time.Now(),
	}
	r.enrollments[e.ID] = e
	out := e
	return &out, nil
}

func (r *MemoryEnrollmentRepository) Get(campaignID, leadID uuid.UUID) (*model.Enrollment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, e := range r.enrollments {
		if e.CampaignID == campaignID && e.LeadID == leadID {
			out := e
			return &out, nil
		}
	}
	return nil, nil
}

func (r *MemoryEnrollmentRepository) ListByCampaign(campaignID uuid.UUID) ([]*model.Enrollment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := []*model.Enrollment{}
	for _, e := range r.enrollments {
		if e.CampaignID == campaignID {
			dup := e
			out = append(out, &dup)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (r *MemoryEnrollmentRepository) Update(e *model.Enrollment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.enrollments[e.ID]; !ok {
		return appErrors.NewValidation("enrollment", "not found")
	}
	r.enrollments[e.ID] = *e
	return nil
}

func (r *MemoryEnrollmentRepository) ListDue(now time.Time) ([]DueEnrollment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	due := []DueEnrollment{}
	for _, e := range r.enrollments {
		if e.Status != model.EnrollmentStatusPending && e.Status != model.EnrollmentStatusActive {
			continue
		}
		if e.NextTouchAt != nil && e.NextTouchAt.After(now) {
			continue
		}
		if r.Campaigns != nil {
			c, err := r.Campaigns.GetByID(e.CampaignID)
			if err != nil || c.Status != model.CampaignStatusActive {
				continue
			}
		}
		if r.Leads != nil {
			l, err := r.Leads.GetByID(e.LeadID)
			if err != nil || l.HasReplied {
				continue
			}
			if l.Status != model.LeadStatusSequencing && l.Status != model.LeadStatusContacted {
				continue
			}
		}
		out := e
		due = append(due, DueEnrollment{Enrollment: &out, CampaignID: e.CampaignID, LeadID: e.LeadID})
	}
	return due, nil
}

func (r *MemoryEnrollmentRepository) StopAllForLead(leadID uuid.UUID, reason string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, e := range r.enrollments {
		if e.LeadID != leadID {
			continue
		}
		if e.Status != model.EnrollmentStatusPending && e.Status != model.EnrollmentStatusActive {
			continue
		}
		e.Status = model.EnrollmentStatusStopped
		e.StoppedReason = reason
		r.enrollments[id] = e
	}
	return nil
}

var _ EnrollmentRepositoryInterface = (*MemoryEnrollmentRepository)(nil)

type MemoryDraftRepository struct {
	mu     sync.RWMutex
	drafts map[uuid.UUID]model.Draft
}

func NewMemoryDraftRepository() *MemoryDraftRepository {
	return &MemoryDraftRepository{drafts: make(map[uuid.UUID]model.Draft)}
}

func (r *MemoryDraftRepository) Create(d *model.Draft) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.drafts[d.ID] = *d
	return nil
}

func (r *MemoryDraftRepository) GetByID(id uuid.UUID) (*model.Draft, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.drafts[id]
	if !ok {
		return nil, appErrors.NewDraftNotFound(id)
	}
	out := d
	return &out, nil
}

func (r *MemoryDraftRepository) GetPending(leadID uuid.UUID, campaignID *uuid.UUID, touchNumber int) (*model.Draft, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, d := range r.drafts {
		if d.LeadID != leadID || d.TouchNumber != touchNumber || d.Status != model.DraftStatusPending {
			continue
		}
		if campaignID != nil && (d.CampaignID == nil || *d.CampaignID != *campaignID) {
			continue
		}
		out := d
		return &out, nil
	}
	return nil, nil
}

func (r *MemoryDraftRepository) List(offset, limit int, filter DraftFilter) ([]*model.Draft, int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	matched := []*model.Draft{}
	for _, d := range r.drafts {
		if filter.Status != "" && string(d.Status) != filter.Status {
			continue
		}
		if filter.LeadID != nil && d.LeadID != *filter.LeadID {
			continue
		}
		if filter.CampaignID != nil && (d.CampaignID == nil || *d.CampaignID != *filter.CampaignID) {
			continue
		}
		out := d
		matched = append(matched, &out)
	}
	sort.Slice(matched, func(i, j int) bool {
		return matched[i].CreatedAt.Before(matched[j].CreatedAt)
	})

	total := len(matched)
	if offset >= total {
		return []*model.Draft{}, total, nil
	}
	end := offset + limit
	if limit <= 0 || end > total {
		end = total
	}
	return matched[offset:end], total, nil
}

func (r *MemoryDraftRepository) Update(d *model.Draft) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.drafts[d.ID]; !ok {
		return appErrors.NewDraftNotFound(d.ID)
	}
	r.drafts[d.ID] = *d
	return nil
}

func (r *MemoryDraftRepository) ListScheduledDue(now time.Time) ([]*model.Draft, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := []*model.Draft{}
	for _, d := range r.drafts {
		if d.Status != model.DraftStatusApproved || d.ScheduledSendAt == nil {
			continue
		}
		if d.ScheduledSendAt.After(now) {
			continue
		}
		dup := d
		out = append(out, &dup)
	}
	return out, nil
}

var _ DraftRepositoryInterface = (*MemoryDraftRepository)(nil)

type MemoryIntelligenceRepository struct {
	mu      sync.RWMutex
	records map[uuid.UUID]model.Intelligence
}

func NewMemoryIntelligenceRepository() *MemoryIntelligenceRepository {
	return &MemoryIntelligenceRepository{records: make(map[uuid.UUID]model.Intelligence)}
}

func (r *MemoryIntelligenceRepository) Upsert(intel *model.Intelligence) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records[intel.LeadID] = *intel
	return nil
}

func (r *MemoryIntelligenceRepository) GetByLeadID(leadID uuid.UUID) (*model.Intelligence, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	intel, ok := r.records[leadID]
	if !ok {
		return nil, nil
	}
	out := intel
	return &out, nil
}

var _ IntelligenceRepositoryInterface = (*MemoryIntelligenceRepository)(nil)
