package service_test

import (
	"context"
	"fmt"
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
	"github.com/fundamentalanalysis/xendex-ai-sales-agent/internal/service"
)

// flakyMailer fails every send while Failing is set.
type flakyMailer struct {
	integration.MockMailer
	Failing bool
}

func (m *flakyMailer) Send(ctx context.Context, email integration.Email) (string, error) {
	if m.Failing {
		return "", appErrors.NewTransient("mailer", fmt.Errorf("smtp timeout"))
	}
	return m.MockMailer.Send(ctx, email)
}

type sequenceFixture struct {
	leads       *repository.MemoryLeadRepository
	campaigns   *repository.MemoryCampaignRepository
	enrollments *repository.MemoryEnrollmentRepository
	drafts      *repository.MemoryDraftRepository
	intel       *repository.MemoryIntelligenceRepository
	mailer      *flakyMailer
	seq         *service.SequenceService
}

func newSequenceFixture() *sequenceFixture {
	leads := repository.NewMemoryLeadRepository()
	campaigns := repository.NewMemoryCampaignRepository()
	enrollments := repository.NewMemoryEnrollmentRepository()
	drafts := repository.NewMemoryDraftRepository()
	intel := repository.NewMemoryIntelligenceRepository()

	campaigns.Enrollments = enrollments
	enrollments.Campaigns = campaigns
	enrollments.Leads = leads

	mailer := &flakyMailer{}
	return &sequenceFixture{
		leads:       leads,
		campaigns:   campaigns,
		enrollments: enrollments,
		drafts:      drafts,
		intel:       intel,
		mailer:      mailer,
		seq: &service.SequenceService{
			CampaignRepo: campaigns,
			EnrollRepo:   enrollments,
			LeadRepo:     leads,
			DraftRepo:    drafts,
			IntelRepo:    intel,
			Generator:    integration.MockGenerator{},
			Mailer:       mailer,
			Config: config.Config{
				GeneratorTimeout: time.Second,
				MailerTimeout:    time.Second,
				ResearchTimeout:  time.Second,
			},
		},
	}
}

func (f *sequenceFixture) addLead(t *testing.T, status model.LeadStatus) *model.Lead {
	t.Helper()
	lead := &model.Lead{
		ID:          uuid.New(),
		Email:       "jane@acme.io",
		FirstName:   "Jane",
		LastName:    "Doe",
		CompanyName: "Acme",
		Status:      status,
		CreatedAt:   time.Now(),
	}
	require.NoError(t, f.leads.Create(lead))
	return lead
}

func (f *sequenceFixture) addCampaign(t *testing.T, touches int, delays []int) *model.Campaign {
	t.Helper()
	c := &model.Campaign{
		ID:              uuid.New(),
		Name:            "Test outreach",
		SequenceTouches: touches,
		TouchDelays:     delays,
		Status:          model.CampaignStatusActive,
		CreatedAt:       time.Now(),
	}
	require.NoError(t, f.campaigns.Create(c))
	return c
}

func TestEnrollIdempotent(t *testing.T) {
	f := newSequenceFixture()
	lead := f.addLead(t, model.LeadStatusQualified)
	campaign := f.addCampaign(t, 3, []int{3})

	first, err := f.seq.Enroll(campaign.ID, lead.ID)
	require.NoError(t, err)

	second, err := f.seq.Enroll(campaign.ID, lead.ID)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID, "re-enrolling returns the existing enrollment")

	got, err := f.leads.GetByID(lead.ID)
	require.NoError(t, err)
	assert.Equal(t, model.LeadStatusSequencing, got.Status)
}

func TestEnrollRejectsTerminalLead(t *testing.T) {
	f := newSequenceFixture()
	lead := f.addLead(t, model.LeadStatusDisqualified)
	campaign := f.addCampaign(t, 3, []int{3})

	_, err := f.seq.Enroll(campaign.ID, lead.ID)
	assert.True(t, appErrors.IsPrecondition(err, appErrors.InvalidTransition))
}

func TestTriggerStagesPendingDraftOnce(t *testing.T) {
	f := newSequenceFixture()
	lead := f.addLead(t, model.LeadStatusQualified)
	campaign := f.addCampaign(t, 3, []int{3})
	_, err := f.seq.Enroll(campaign.ID, lead.ID)
	require.NoError(t, err)

	draft, err := f.seq.Trigger(context.Background(), lead.ID, &campaign.ID)
	require.NoError(t, err)
	assert.Equal(t, model.DraftStatusPending, draft.Status)
	assert.Equal(t, 1, draft.TouchNumber)

	// A second trigger before approval reuses the staged draft.
	again, err := f.seq.Trigger(context.Background(), lead.ID, &campaign.ID)
	require.NoError(t, err)
	assert.Equal(t, draft.ID, again.ID)

	_, total, err := f.drafts.List(0, 50, repository.DraftFilter{})
	require.NoError(t, err)
	assert.Equal(t, 1, total, "no duplicate drafts for the same touch")

	// Trigger never sends anything.
	assert.Empty(t, f.mailer.Sent())
}

func TestTriggerRequiresEnrollment(t *testing.T) {
	f := newSequenceFixture()
	lead := f.addLead(t, model.LeadStatusQualified)
	campaign := f.addCampaign(t, 3, []int{3})

	_, err := f.seq.Trigger(context.Background(), lead.ID, &campaign.ID)
	assert.True(t, appErrors.IsPrecondition(err, appErrors.NotEnrolled))
}

func TestTriggerAutoEnrollsIntoDefaultCampaign(t *testing.T) {
	f := newSequenceFixture()
	lead := f.addLead(t, model.LeadStatusQualified)

	draft, err := f.seq.Trigger(context.Background(), lead.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, draft.TouchNumber)

	system, err := f.campaigns.GetByExternalID(model.SystemCampaignFollowup)
	require.NoError(t, err)
	require.NotNil(t, system, "default campaign is created on demand")

	enrollment, err := f.enrollments.Get(system.ID, lead.ID)
	require.NoError(t, err)
	require.NotNil(t, enrollment)
}

func TestTriggerRejectsRepliedLead(t *testing.T) {
	f := newSequenceFixture()
	lead := f.addLead(t, model.LeadStatusQualified)
	campaign := f.addCampaign(t, 3, []int{3})
	_, err := f.seq.Enroll(campaign.ID, lead.ID)
	require.NoError(t, err)

	_, err = f.seq.HandleReply(lead.ID)
	require.NoError(t, err)

	_, err = f.seq.Trigger(context.Background(), lead.ID, &campaign.ID)
	assert.True(t, appErrors.IsPrecondition(err, appErrors.AlreadyReplied))
}

func TestFullSequenceLifecycle(t *testing.T) {
	f := newSequenceFixture()
	lead := f.addLead(t, model.LeadStatusQualified)
	campaign := f.addCampaign(t, 2, []int{1, 1})
	_, err := f.seq.Enroll(campaign.ID, lead.ID)
	require.NoError(t, err)

	// Touch 1: trigger, approve and send.
	draft, err := f.seq.Trigger(context.Background(), lead.ID, &campaign.ID)
	require.NoError(t, err)

	sent, err := f.seq.ApproveFollowup(context.Background(), draft.ID, "operator@x.io")
	require.NoError(t, err)
	assert.Equal(t, model.DraftStatusSent, mustDraft(t, f, sent.ID).Status)
	require.Len(t, f.mailer.Sent(), 1)
	assert.Equal(t, "jane@acme.io", f.mailer.Sent()[0].To)

	enrollment, err := f.enrollments.Get(campaign.ID, lead.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, enrollment.CurrentTouch)
	require.NotNil(t, enrollment.NextTouchAt)
	wantNext := time.Now().AddDate(0, 0, 1)
	assert.WithinDuration(t, wantNext, *enrollment.NextTouchAt, time.Minute)

	got, err := f.leads.GetByID(lead.ID)
	require.NoError(t, err)
	assert.Equal(t, model.LeadStatusContacted, got.Status)
	assert.Equal(t, 1, got.NumFollowups)
	require.NotNil(t, got.LastContactedAt)

	// Reply arrives before touch 2.
	_, err = f.seq.HandleReply(lead.ID)
	require.NoError(t, err)

	got, err = f.leads.GetByID(lead.ID)
	require.NoError(t, err)
	assert.Equal(t, model.LeadStatusReplied, got.Status)
	assert.True(t, got.HasReplied)

	enrollment, err = f.enrollments.Get(campaign.ID, lead.ID)
	require.NoError(t, err)
	assert.Equal(t, model.EnrollmentStatusStopped, enrollment.Status)
	assert.Equal(t, "replied", enrollment.StoppedReason)

	// Touch 2 never happens.
	_, err = f.seq.Trigger(context.Background(), lead.ID, &campaign.ID)
	assert.Error(t, err)
	assert.Len(t, f.mailer.Sent(), 1)
}

func TestSequenceExhaustion(t *testing.T) {
	f := newSequenceFixture()
	lead := f.addLead(t, model.LeadStatusQualified)
	campaign := f.addCampaign(t, 1, []int{2})
	_, err := f.seq.Enroll(campaign.ID, lead.ID)
	require.NoError(t, err)

	draft, err := f.seq.Trigger(context.Background(), lead.ID, &campaign.ID)
	require.NoError(t, err)
	_, err = f.seq.ApproveFollowup(context.Background(), draft.ID, "ops")
	require.NoError(t, err)

	enrollment, err := f.enrollments.Get(campaign.ID, lead.ID)
	require.NoError(t, err)
	assert.Equal(t, model.EnrollmentStatusCompleted, enrollment.Status)
	assert.Nil(t, enrollment.NextTouchAt)

	got, err := f.leads.GetByID(lead.ID)
	require.NoError(t, err)
	assert.Equal(t, model.LeadStatusCompleted, got.Status)

	_, err = f.seq.Trigger(context.Background(), lead.ID, &campaign.ID)
	assert.True(t, appErrors.IsPrecondition(err, appErrors.SequenceExhausted))
}

func TestApproveFollowupRetryableOnSendFailure(t *testing.T) {
	f := newSequenceFixture()
	lead := f.addLead(t, model.LeadStatusQualified)
	campaign := f.addCampaign(t, 2, []int{1})
	_, err := f.seq.Enroll(campaign.ID, lead.ID)
	require.NoError(t, err)

	draft, err := f.seq.Trigger(context.Background(), lead.ID, &campaign.ID)
	require.NoError(t, err)

	f.mailer.Failing = true
	_, err = f.seq.ApproveFollowup(context.Background(), draft.ID, "ops")
	require.Error(t, err)
	assert.True(t, appErrors.IsTransient(err))

	// The approval stuck, the cursor did not move, nothing was sent.
	assert.Equal(t, model.DraftStatusApproved, mustDraft(t, f, draft.ID).Status)
	enrollment, err := f.enrollments.Get(campaign.ID, lead.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, enrollment.CurrentTouch)
	assert.Empty(t, f.mailer.Sent())

	// Retrying the same call completes the touch.
	f.mailer.Failing = false
	_, err = f.seq.ApproveFollowup(context.Background(), draft.ID, "ops")
	require.NoError(t, err)

	assert.Equal(t, model.DraftStatusSent, mustDraft(t, f, draft.ID).Status)
	enrollment, err = f.enrollments.Get(campaign.ID, lead.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, enrollment.CurrentTouch)
	assert.Len(t, f.mailer.Sent(), 1)
}

func TestSendApprovedIdempotent(t *testing.T) {
	f := newSequenceFixture()
	lead := f.addLead(t, model.LeadStatusQualified)
	campaign := f.addCampaign(t, 2, []int{1})
	_, err := f.seq.Enroll(campaign.ID, lead.ID)
	require.NoError(t, err)

	draft, err := f.seq.Trigger(context.Background(), lead.ID, &campaign.ID)
	require.NoError(t, err)
	_, err = f.seq.ApproveFollowup(context.Background(), draft.ID, "ops")
	require.NoError(t, err)

	// Redelivery of the send job is a no-op.
	require.NoError(t, f.seq.SendApproved(context.Background(), draft.ID))
	assert.Len(t, f.mailer.Sent(), 1)

	enrollment, err := f.enrollments.Get(campaign.ID, lead.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, enrollment.CurrentTouch)
}

func TestSendApprovedRejectsPendingDraft(t *testing.T) {
	f := newSequenceFixture()
	lead := f.addLead(t, model.LeadStatusQualified)
	campaign := f.addCampaign(t, 2, []int{1})
	_, err := f.seq.Enroll(campaign.ID, lead.ID)
	require.NoError(t, err)

	draft, err := f.seq.Trigger(context.Background(), lead.ID, &campaign.ID)
	require.NoError(t, err)

	err = f.seq.SendApproved(context.Background(), draft.ID)
	assert.True(t, appErrors.IsPrecondition(err, appErrors.InvalidDraftState),
		"unapproved drafts never reach the wire")
	assert.Empty(t, f.mailer.Sent())
}

func TestHandleReplyIdempotent(t *testing.T) {
	f := newSequenceFixture()
	lead := f.addLead(t, model.LeadStatusContacted)

	first, err := f.seq.HandleReply(lead.ID)
	require.NoError(t, err)
	assert.Equal(t, model.LeadStatusReplied, first.Status)

	second, err := f.seq.HandleReply(lead.ID)
	require.NoError(t, err)
	assert.Equal(t, model.LeadStatusReplied, second.Status)
}

func TestUpdateCampaignPartial(t *testing.T) {
	f := newSequenceFixture()
	campaign := f.addCampaign(t, 3, []int{3})

	name := "Renamed outreach"
	updated, err := f.seq.UpdateCampaign(campaign.ID, service.CampaignUpdate{
		Name:        &name,
		TouchDelays: []int{1, 2},
	})
	require.NoError(t, err)
	assert.Equal(t, "Renamed outreach", updated.Name)
	assert.Equal(t, []int{1, 2}, updated.TouchDelays)
	assert.Equal(t, 3, updated.SequenceTouches, "untouched fields keep their value")

	zero := 0
	_, err = f.seq.UpdateCampaign(campaign.ID, service.CampaignUpdate{SequenceTouches: &zero})
	var ve *appErrors.ValidationError
	require.ErrorAs(t, err, &ve)
}

func TestDeleteCampaignRejectsActive(t *testing.T) {
	f := newSequenceFixture()
	campaign := f.addCampaign(t, 3, []int{3})

	err := f.seq.DeleteCampaign(campaign.ID)
	assert.True(t, appErrors.IsPrecondition(err, appErrors.InvalidTransition))

	_, err = f.seq.PauseCampaign(campaign.ID)
	require.NoError(t, err)
	require.NoError(t, f.seq.DeleteCampaign(campaign.ID))

	_, err = f.seq.GetCampaign(campaign.ID)
	assert.True(t, appErrors.IsNotFound(err))
}

func TestListCampaignLeads(t *testing.T) {
	f := newSequenceFixture()
	campaign := f.addCampaign(t, 3, []int{3})
	lead := f.addLead(t, model.LeadStatusQualified)

	_, err := f.seq.Enroll(campaign.ID, lead.ID)
	require.NoError(t, err)

	enrolled, err := f.seq.ListCampaignLeads(campaign.ID)
	require.NoError(t, err)
	require.Len(t, enrolled, 1)
	assert.Equal(t, lead.ID, enrolled[0].Lead.ID)
	assert.Equal(t, campaign.ID, enrolled[0].Enrollment.CampaignID)
}

func mustDraft(t *testing.T, f *sequenceFixture, id uuid.UUID) *model.Draft {
	t.Helper()
	d, err := f.drafts.GetByID(id)
	require.NoError(t, err)
	return d
}

func TestTriggerKeepsPermanentGeneratorFailure(t *testing.T) {
	f := newSequenceFixture()
	lead := f.addLead(t, model.LeadStatusQualified)
	campaign := f.addCampaign(t, 3, []int{3})
	_, err := f.seq.Enroll(campaign.ID, lead.ID)
	require.NoError(t, err)

	f.seq.Generator = permanentGenerator{}

	_, err = f.seq.Trigger(context.Background(), lead.ID, &campaign.ID)
	require.Error(t, err)
	assert.False(t, appErrors.IsTransient(err), "permanent failures must not look retryable")
}
