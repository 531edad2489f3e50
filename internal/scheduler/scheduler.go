// internal/scheduler/scheduler.go
package scheduler

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/fundamentalanalysis/xendex-ai-sales-agent/internal/queue"
	"github.com/fundamentalanalysis/xendex-ai-sales-agent/internal/repository"
	"github.com/fundamentalanalysis/xendex-ai-sales-agent/internal/service"
)

// Scheduler is the periodic trigger loop. Each tick it finds enrollments
// whose next touch is due and stages a pending draft for each, and
// releases approved drafts whose scheduled send time has arrived onto
// the send queue. It never approves and never sends directly; every
// email still passes the human approval gate.
type Scheduler struct {
	Sequences  *service.SequenceService
	EnrollRepo repository.EnrollmentRepositoryInterface
	DraftRepo  repository.DraftRepositoryInterface
	LeadRepo   repository.LeadRepositoryInterface
	Queue      queue.Publisher

	PollInterval time.Duration
}

// Run ticks until the context is cancelled. A failed lead never blocks
// the rest of the batch.
func (s *Scheduler) Run(ctx context.Context) {
	interval := s.PollInterval
	if interval <= 0 {
		interval = time.Minute
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	log.Printf("scheduler started, polling every %s", interval)
	for {
		select {
		case <-ctx.Done():
			log.Println("scheduler stopped")
			return
		case <-ticker.C:
			s.Tick(ctx)
		}
	}
}

// Tick runs one scheduling pass.
func (s *Scheduler) Tick(ctx context.Context) {
	s.triggerDue(ctx)
	s.releaseScheduled()
}

// triggerDue stages a pending draft for every enrollment whose next
// touch is eligible. Due listing already excludes paused campaigns,
// replied leads, and finished enrollments.
func (s *Scheduler) triggerDue(ctx context.Context) {
	due, err := s.EnrollRepo.ListDue(time.Now())
	if err != nil {
		log.Printf("scheduler: listing due enrollments failed: %v", err)
		return
	}
	if len(due) == 0 {
		return
	}
	log.Printf("scheduler: %d enrollment(s) due", len(due))

	var wg sync.WaitGroup
	for _, d := range due {
		d := d
		wg.Add(1)
		go func() {
			defer wg.Done()
			campaignID := d.CampaignID
			if _, err := s.Sequences.Trigger(ctx, d.LeadID, &campaignID); err != nil {
				log.Printf("scheduler: trigger failed for lead %s in campaign %s: %v",
					d.LeadID, d.CampaignID, err)
				if attErr := s.LeadRepo.SetNeedsAttention(d.LeadID, true); attErr != nil {
					log.Printf("scheduler: flagging lead %s failed: %v", d.LeadID, attErr)
				}
			}
		}()
	}
	wg.Wait()
}

// releaseScheduled pushes approved drafts whose scheduled send time has
// arrived onto the send queue, in-process or AMQP depending on what the
// binary wired in. The drafts were approved by a human earlier; the
// scheduler only releases them.
func (s *Scheduler) releaseScheduled() {
	drafts, err := s.DraftRepo.ListScheduledDue(time.Now())
	if err != nil {
		log.Printf("scheduler: listing scheduled drafts failed: %v", err)
		return
	}
	for _, d := range drafts {
		if err := s.Queue.Publish(queue.TopicEmailSends, d.ID); err != nil {
			log.Printf("scheduler: publishing draft %s failed: %v", d.ID, err)
			continue
		}
		// Clear the schedule so the next tick does not re-publish.
		d.ScheduledSendAt = nil
		if err := s.DraftRepo.Update(d); err != nil {
			log.Printf("scheduler: clearing schedule on draft %s failed: %v", d.ID, err)
		}
	}
}
