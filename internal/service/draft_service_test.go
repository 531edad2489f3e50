package service_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fundamentalanalysis/xendex-ai-sales-agent/internal/config"
	appErrors "github.com/fundamentalanalysis/xendex-ai-sales-agent/internal/errors"
	"github.com/fundamentalanalysis/xendex-ai-sales-agent/internal/integration"
	"github.com/fundamentalanalysis/xendex-ai-sales-agent/internal/model"
	"github.com/fundamentalanalysis/xendex-ai-sales-agent/internal/queue"
	"github.com/fundamentalanalysis/xendex-ai-sales-agent/internal/repository"
	"github.com/fundamentalanalysis/xendex-ai-sales-agent/internal/service"
)

type draftFixture struct {
	leads  *repository.MemoryLeadRepository
	drafts *repository.MemoryDraftRepository
	queue  *queue.InMemoryQueue
	svc    *service.DraftService

	published []uuid.UUID
}

func newDraftFixture(t *testing.T) (*draftFixture, *model.Lead) {
	t.Helper()
	leads := repository.NewMemoryLeadRepository()
	drafts := repository.NewMemoryDraftRepository()
	q := queue.NewInMemoryQueue()

	f := &draftFixture{
		leads:  leads,
		drafts: drafts,
		queue:  q,
		svc: &service.DraftService{
			DraftRepo: drafts,
			LeadRepo:  leads,
			IntelRepo: repository.NewMemoryIntelligenceRepository(),
			Generator: integration.MockGenerator{},
			Queue:     q,
			Config:    config.Config{GeneratorTimeout: time.Second},
		},
	}
	// Collect published send jobs instead of sending.
	var mu sync.Mutex
	q.Subscribe(queue.TopicEmailSends, func(payload any) error {
		mu.Lock()
		f.published = append(f.published, payload.(uuid.UUID))
		mu.Unlock()
		return nil
	})

	lead := &model.Lead{
		ID:          uuid.New(),
		Email:       "cfo@finpeak.io",
		FirstName:   "Maria",
		CompanyName: "FinPeak",
		Status:      model.LeadStatusQualified,
		CreatedAt:   time.Now(),
	}
	require.NoError(t, leads.Create(lead))
	return f, lead
}

func TestGenerateReusesPendingDraft(t *testing.T) {
	f, lead := newDraftFixture(t)

	first, err := f.svc.Generate(context.Background(), lead.ID, nil, 1, "")
	require.NoError(t, err)
	assert.Equal(t, model.DraftStatusPending, first.Status)
	assert.NotEmpty(t, first.SubjectOptions)
	assert.NotEmpty(t, first.Body)

	second, err := f.svc.Generate(context.Background(), lead.ID, nil, 1, "")
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID, "at most one pending draft per touch")

	other, err := f.svc.Generate(context.Background(), lead.ID, nil, 2, "")
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, other.ID, "a different touch gets its own draft")
}

func TestGenerateRejectsRepliedLead(t *testing.T) {
	f, lead := newDraftFixture(t)
	lead.HasReplied = true
	require.NoError(t, f.leads.Update(lead))

	_, err := f.svc.Generate(context.Background(), lead.ID, nil, 1, "")
	assert.True(t, appErrors.IsPrecondition(err, appErrors.AlreadyReplied))
}

func TestApproveOnlyPendingDrafts(t *testing.T) {
	f, lead := newDraftFixture(t)

	draft, err := f.svc.Generate(context.Background(), lead.ID, nil, 1, "")
	require.NoError(t, err)

	approved, err := f.svc.Approve(draft.ID, "ops@x.io", nil, nil)
	require.NoError(t, err)
	assert.Equal(t, model.DraftStatusApproved, approved.Status)
	require.NotNil(t, approved.ApprovedAt)
	require.NotNil(t, approved.ApprovedBy)
	assert.Equal(t, "ops@x.io", *approved.ApprovedBy)

	// Approving again is a state error, and nothing about the draft moves.
	_, err = f.svc.Approve(draft.ID, "ops@x.io", nil, nil)
	assert.True(t, appErrors.IsPrecondition(err, appErrors.InvalidDraftState))

	got, err := f.drafts.GetByID(draft.ID)
	require.NoError(t, err)
	assert.Equal(t, model.DraftStatusApproved, got.Status)
}

func TestApproveWithFutureScheduleDoesNotPublish(t *testing.T) {
	f, lead := newDraftFixture(t)

	draft, err := f.svc.Generate(context.Background(), lead.ID, nil, 1, "")
	require.NoError(t, err)

	sendAt := time.Now().Add(2 * time.Hour)
	approved, err := f.svc.Approve(draft.ID, "ops", nil, &sendAt)
	require.NoError(t, err)
	require.NotNil(t, approved.ScheduledSendAt)

	due, err := f.drafts.ListScheduledDue(time.Now())
	require.NoError(t, err)
	assert.Empty(t, due, "not due yet")

	due, err = f.drafts.ListScheduledDue(time.Now().Add(3 * time.Hour))
	require.NoError(t, err)
	assert.Len(t, due, 1)
}

func TestRejectDraft(t *testing.T) {
	f, lead := newDraftFixture(t)

	draft, err := f.svc.Generate(context.Background(), lead.ID, nil, 1, "")
	require.NoError(t, err)

	rejected, err := f.svc.Reject(draft.ID, "wrong angle")
	require.NoError(t, err)
	assert.Equal(t, model.DraftStatusRejected, rejected.Status)
	assert.Equal(t, "wrong angle", rejected.RejectionReason)

	_, err = f.svc.Reject(draft.ID, "again")
	assert.True(t, appErrors.IsPrecondition(err, appErrors.InvalidDraftState))
}

func TestRegenerateAppliesFeedback(t *testing.T) {
	f, lead := newDraftFixture(t)

	draft, err := f.svc.Generate(context.Background(), lead.ID, nil, 1, "")
	require.NoError(t, err)
	require.NotNil(t, draft.Strategy)

	redone, err := f.svc.Regenerate(context.Background(), draft.ID, "more_casual")
	require.NoError(t, err)
	assert.Equal(t, draft.ID, redone.ID, "regeneration keeps the draft identity")
	assert.Equal(t, model.DraftStatusPending, redone.Status)
	require.NotNil(t, redone.Strategy)
	assert.Equal(t, "casual", redone.Strategy.Tone)

	_, err = f.svc.Regenerate(context.Background(), draft.ID, "louder")
	assert.Error(t, err, "unknown feedback is rejected")
}

func TestBulkGeneratePerLeadOutcomes(t *testing.T) {
	f, lead := newDraftFixture(t)

	replied := &model.Lead{
		ID:          uuid.New(),
		Email:       "gone@quiet.io",
		CompanyName: "Quiet Co",
		Status:      model.LeadStatusReplied,
		HasReplied:  true,
		CreatedAt:   time.Now(),
	}
	require.NoError(t, f.leads.Create(replied))

	outcomes := f.svc.BulkGenerate(context.Background(),
		[]uuid.UUID{lead.ID, replied.ID, uuid.New()}, nil, 1, "")
	require.Len(t, outcomes, 3)

	assert.True(t, outcomes[0].OK)
	require.NotNil(t, outcomes[0].DraftID)
	assert.False(t, outcomes[1].OK, "replied lead fails without blocking the batch")
	assert.False(t, outcomes[2].OK, "unknown lead reports not found")
}

func TestBulkApprovePartialFailure(t *testing.T) {
	f, lead := newDraftFixture(t)

	good, err := f.svc.Generate(context.Background(), lead.ID, nil, 1, "")
	require.NoError(t, err)

	already, err := f.svc.Generate(context.Background(), lead.ID, nil, 2, "")
	require.NoError(t, err)
	_, err = f.svc.Approve(already.ID, "ops", nil, nil)
	require.NoError(t, err)

	outcomes := f.svc.BulkApprove([]uuid.UUID{good.ID, already.ID, uuid.New()}, "ops")
	require.Len(t, outcomes, 3)

	assert.True(t, outcomes[0].OK)
	assert.False(t, outcomes[1].OK, "already-approved draft fails without blocking the batch")
	assert.False(t, outcomes[2].OK, "unknown draft reports not found")
	assert.NotEmpty(t, outcomes[2].Error)
}

// gatedGenerator blocks inside Generate until released, holding the
// caller in the middle of the generation critical section.
type gatedGenerator struct {
	integration.MockGenerator
	entered chan struct{}
	release chan struct{}
}

func (g *gatedGenerator) Generate(ctx context.Context, req integration.GenerateRequest) (*integration.GeneratedDraft, error) {
	g.entered <- struct{}{}
	<-g.release
	return g.MockGenerator.Generate(ctx, req)
}

func TestConcurrentGenerateKeepsSingleSlot(t *testing.T) {
	f, lead := newDraftFixture(t)

	gen := &gatedGenerator{
		entered: make(chan struct{}, 2),
		release: make(chan struct{}),
	}
	f.svc.Generator = gen

	type result struct {
		draft *model.Draft
		err   error
	}
	results := make(chan result, 2)
	for i := 0; i < 2; i++ {
		go func() {
			d, err := f.svc.Generate(context.Background(), lead.ID, nil, 1, "")
			results <- result{d, err}
		}()
	}

	// One caller reaches the generator; the other is held at the
	// per-lead lock until the first has created its draft.
	<-gen.entered
	close(gen.release)

	first := <-results
	second := <-results
	require.NoError(t, first.err)
	require.NoError(t, second.err)
	assert.Equal(t, first.draft.ID, second.draft.ID, "both callers land on the same draft")

	_, total, err := f.drafts.List(0, 10, repository.DraftFilter{})
	require.NoError(t, err)
	assert.Equal(t, 1, total, "at most one pending draft for the touch")
}

// permanentGenerator always fails with a non-retryable integration error.
type permanentGenerator struct{}

func (permanentGenerator) Generate(ctx context.Context, req integration.GenerateRequest) (*integration.GeneratedDraft, error) {
	return nil, appErrors.NewPermanent("generator", fmt.Errorf("prompt rejected by provider"))
}

func TestGenerateKeepsPermanentFailureClass(t *testing.T) {
	f, lead := newDraftFixture(t)
	f.svc.Generator = permanentGenerator{}

	_, err := f.svc.Generate(context.Background(), lead.ID, nil, 1, "")
	require.Error(t, err)
	assert.False(t, appErrors.IsTransient(err), "permanent failures must not look retryable")

	var ie *appErrors.IntegrationError
	require.ErrorAs(t, err, &ie)
	assert.Equal(t, "generator", ie.Service)
	assert.False(t, ie.Transient)
}
