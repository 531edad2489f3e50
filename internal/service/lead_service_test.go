package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fundamentalanalysis/xendex-ai-sales-agent/internal/config"
	appErrors "github.com/fundamentalanalysis/xendex-ai-sales-agent/internal/errors"
	"github.com/fundamentalanalysis/xendex-ai-sales-agent/internal/integration"
	"github.com/fundamentalanalysis/xendex-ai-sales-agent/internal/model"
	"github.com/fundamentalanalysis/xendex-ai-sales-agent/internal/repository"
	"github.com/fundamentalanalysis/xendex-ai-sales-agent/internal/scoring"
	"github.com/fundamentalanalysis/xendex-ai-sales-agent/internal/service"
)

// weakResearcher returns a bundle with barely any signal, which scores
// below every qualification threshold.
type weakResearcher struct{}

func (weakResearcher) Research(ctx context.Context, lead *model.Lead) (*model.Intelligence, error) {
	return &model.Intelligence{
		LeadID:         lead.ID,
		Industry:       "agriculture",
		CompanySize:    "startup",
		YourIndustries: []string{"fintech"},
		LinkedIn:       model.LinkedInProfile{Seniority: "entry"},
		ResearchedAt:   time.Now(),
	}, nil
}

func newLeadService(t *testing.T, researcher integration.Researcher) (*service.LeadService, *repository.MemoryLeadRepository) {
	t.Helper()
	cfg := config.Load()
	engine, err := scoring.New(scoring.FromAppConfig(cfg))
	require.NoError(t, err)

	leads := repository.NewMemoryLeadRepository()
	return &service.LeadService{
		LeadRepo:   leads,
		IntelRepo:  repository.NewMemoryIntelligenceRepository(),
		Researcher: researcher,
		Engine:     engine,
		Config:     cfg,
	}, leads
}

func TestCreateLeadValidation(t *testing.T) {
	svc, _ := newLeadService(t, integration.MockResearcher{})

	_, err := svc.CreateLead(&model.Lead{CompanyName: "Acme"})
	assert.Error(t, err, "email is required")

	_, err = svc.CreateLead(&model.Lead{Email: "not-an-address", CompanyName: "Acme"})
	assert.Error(t, err, "email must look like an address")

	_, err = svc.CreateLead(&model.Lead{Email: "a@b.io"})
	assert.Error(t, err, "company name is required")

	lead, err := svc.CreateLead(&model.Lead{Email: "a@b.io", CompanyName: "Acme"})
	require.NoError(t, err)
	assert.Equal(t, model.LeadStatusNew, lead.Status)
	assert.Equal(t, "medium", lead.PersonalizationMode)
	assert.Nil(t, lead.CompositeScore, "scores are undefined before research")
}

func TestResearchScoresAndQualifies(t *testing.T) {
	svc, leads := newLeadService(t, integration.MockResearcher{})

	lead, err := svc.CreateLead(&model.Lead{
		Email:       "maria@finpeak.io",
		FirstName:   "Maria",
		CompanyName: "FinPeak",
		Title:       "Chief Financial Officer",
		Industry:    "fintech",
	})
	require.NoError(t, err)

	result, err := svc.Research(context.Background(), lead.ID, false)
	require.NoError(t, err)

	// Composite equals the configured weighted sum of the axes.
	want := 0.30*result.Fit + 0.35*result.Readiness + 0.35*result.Intent
	assert.InDelta(t, want, result.Composite, 1e-9)

	got, err := leads.GetByID(lead.ID)
	require.NoError(t, err)
	require.NotNil(t, got.CompositeScore)
	assert.InDelta(t, result.Composite, *got.CompositeScore, 1e-9)
	require.NotNil(t, got.ResearchedAt)

	if result.Qualified {
		assert.Equal(t, model.LeadStatusQualified, got.Status)
	} else {
		assert.Equal(t, model.LeadStatusDisqualified, got.Status)
	}
}

func TestResearchDisqualifiesPoorFit(t *testing.T) {
	svc, leads := newLeadService(t, weakResearcher{})

	lead, err := svc.CreateLead(&model.Lead{
		Email:       "t@coldware.de",
		CompanyName: "Coldware",
		Industry:    "agriculture",
	})
	require.NoError(t, err)

	result, err := svc.Research(context.Background(), lead.ID, false)
	require.NoError(t, err)
	assert.False(t, result.Qualified)

	got, err := leads.GetByID(lead.ID)
	require.NoError(t, err)
	assert.Equal(t, model.LeadStatusDisqualified, got.Status)
}

func TestRecalculateIsIdempotent(t *testing.T) {
	svc, _ := newLeadService(t, integration.MockResearcher{})

	lead, err := svc.CreateLead(&model.Lead{
		Email:       "maria@finpeak.io",
		CompanyName: "FinPeak",
		Industry:    "fintech",
	})
	require.NoError(t, err)

	first, err := svc.Research(context.Background(), lead.ID, false)
	require.NoError(t, err)

	second, err := svc.Recalculate(lead.ID)
	require.NoError(t, err)
	third, err := svc.Recalculate(lead.ID)
	require.NoError(t, err)

	assert.Equal(t, first.Composite, second.Composite)
	assert.Equal(t, second.Composite, third.Composite)
	assert.Equal(t, second.Qualified, third.Qualified)
}

func TestRecalculateRequiresResearch(t *testing.T) {
	svc, _ := newLeadService(t, integration.MockResearcher{})

	lead, err := svc.CreateLead(&model.Lead{Email: "a@b.io", CompanyName: "Acme"})
	require.NoError(t, err)

	_, err = svc.Recalculate(lead.ID)
	var v *appErrors.ValidationError
	assert.ErrorAs(t, err, &v)
}

func TestUpdateLeadPartial(t *testing.T) {
	svc, _ := newLeadService(t, integration.MockResearcher{})

	lead, err := svc.CreateLead(&model.Lead{Email: "a@b.io", CompanyName: "Acme"})
	require.NoError(t, err)

	title := "VP Engineering"
	mode := "deep"
	updated, err := svc.UpdateLead(lead.ID, service.LeadUpdate{
		Title:               &title,
		PersonalizationMode: &mode,
	})
	require.NoError(t, err)
	assert.Equal(t, "VP Engineering", updated.Title)
	assert.Equal(t, "deep", updated.PersonalizationMode)
	assert.Equal(t, "Acme", updated.CompanyName, "untouched fields keep their value")

	bad := "shouty"
	_, err = svc.UpdateLead(lead.ID, service.LeadUpdate{PersonalizationMode: &bad})
	var v *appErrors.ValidationError
	assert.ErrorAs(t, err, &v)

	empty := " "
	_, err = svc.UpdateLead(lead.ID, service.LeadUpdate{CompanyName: &empty})
	assert.ErrorAs(t, err, &v)
}

func TestUpdateStatusHonorsTransitionTable(t *testing.T) {
	svc, _ := newLeadService(t, integration.MockResearcher{})

	lead, err := svc.CreateLead(&model.Lead{Email: "a@b.io", CompanyName: "Acme"})
	require.NoError(t, err)

	_, err = svc.UpdateStatus(lead.ID, model.LeadStatusSequencing)
	assert.True(t, appErrors.IsPrecondition(err, appErrors.InvalidTransition),
		"new cannot jump straight to sequencing")

	updated, err := svc.UpdateStatus(lead.ID, model.LeadStatusResearching)
	require.NoError(t, err)
	assert.Equal(t, model.LeadStatusResearching, updated.Status)

	_, err = svc.UpdateStatus(lead.ID, model.LeadStatus("bogus"))
	var v *appErrors.ValidationError
	assert.ErrorAs(t, err, &v)
}

func TestUpdateStatusReengageClearsReply(t *testing.T) {
	svc, leads := newLeadService(t, integration.MockResearcher{})

	lead := &model.Lead{
		ID:          uuid.New(),
		Email:       "jane@acme.io",
		CompanyName: "Acme",
		Status:      model.LeadStatusReplied,
		HasReplied:  true,
		CreatedAt:   time.Now(),
	}
	require.NoError(t, leads.Create(lead))

	got, err := svc.UpdateStatus(lead.ID, model.LeadStatusSequencing)
	require.NoError(t, err)
	assert.Equal(t, model.LeadStatusSequencing, got.Status)
	assert.False(t, got.HasReplied, "re-engaging clears the reply flag")

	stored, err := leads.GetByID(lead.ID)
	require.NoError(t, err)
	assert.False(t, stored.HasReplied)

	// Converting a replied lead keeps the reply on record.
	other := &model.Lead{
		ID:          uuid.New(),
		Email:       "sam@acme.io",
		CompanyName: "Acme",
		Status:      model.LeadStatusReplied,
		HasReplied:  true,
		CreatedAt:   time.Now(),
	}
	require.NoError(t, leads.Create(other))

	converted, err := svc.UpdateStatus(other.ID, model.LeadStatusConverted)
	require.NoError(t, err)
	assert.Equal(t, model.LeadStatusConverted, converted.Status)
	assert.True(t, converted.HasReplied)
}
