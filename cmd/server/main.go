// cmd/server/main.go
package main

import (
	"context"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"github.com/fundamentalanalysis/xendex-ai-sales-agent/internal/config"
	"github.com/fundamentalanalysis/xendex-ai-sales-agent/internal/controller"
	"github.com/fundamentalanalysis/xendex-ai-sales-agent/internal/db"
	"github.com/fundamentalanalysis/xendex-ai-sales-agent/internal/integration"
	"github.com/fundamentalanalysis/xendex-ai-sales-agent/internal/queue"
	"github.com/fundamentalanalysis/xendex-ai-sales-agent/internal/repository"
	"github.com/fundamentalanalysis/xendex-ai-sales-agent/internal/scheduler"
	"github.com/fundamentalanalysis/xendex-ai-sales-agent/internal/scoring"
	"github.com/fundamentalanalysis/xendex-ai-sales-agent/internal/service"
)

func main() {
	// Load .env
	if err := godotenv.Load(); err != nil {
		log.Println("no .env file found, relying on OS environment variables")
	}
	cfg := config.Load()

	// Init DB
	db.Init()
	q := queue.NewInMemoryQueue()

	leadRepo := &repository.LeadRepository{DB: db.DB}
	campaignRepo := &repository.CampaignRepository{DB: db.DB}
	enrollRepo := &repository.EnrollmentRepository{DB: db.DB}
	draftRepo := &repository.DraftRepository{DB: db.DB}
	intelRepo := &repository.IntelligenceRepository{DB: db.DB}

	engine, err := scoring.New(scoring.FromAppConfig(cfg))
	if err != nil {
		log.Fatal("invalid scoring configuration: ", err)
	}

	leadService := &service.LeadService{
		LeadRepo:   leadRepo,
		IntelRepo:  intelRepo,
		Researcher: integration.MockResearcher{},
		Engine:     engine,
		Config:     cfg,
	}
	// One lock set for every per-lead critical section in the process.
	leadLocks := service.NewLeadLocks()

	sequenceService := &service.SequenceService{
		CampaignRepo: campaignRepo,
		EnrollRepo:   enrollRepo,
		LeadRepo:     leadRepo,
		DraftRepo:    draftRepo,
		IntelRepo:    intelRepo,
		Generator:    integration.MockGenerator{},
		Mailer:       &integration.MockMailer{},
		Config:       cfg,
		Locks:        leadLocks,
	}
	draftService := &service.DraftService{
		DraftRepo: draftRepo,
		LeadRepo:  leadRepo,
		IntelRepo: intelRepo,
		Generator: integration.MockGenerator{},
		Queue:     q,
		Config:    cfg,
		Locks:     leadLocks,
	}

	queue.StartEmailSendSubscriber(q, func(draftID uuid.UUID) error {
		return sequenceService.SendApproved(context.Background(), draftID)
	})

	if _, err := sequenceService.EnsureDefaultCampaign(); err != nil {
		log.Fatal("ensuring default campaign: ", err)
	}

	// Scheduled sends go to the durable AMQP queue for cmd/worker when a
	// broker is reachable; otherwise they stay on the in-process queue.
	var sendQueue queue.Publisher = q
	if pub, err := queue.NewAMQPPublisher(cfg.AMQPURL); err != nil {
		log.Printf("amqp unavailable, scheduled sends stay in-process: %v", err)
	} else {
		defer pub.Close()
		sendQueue = pub
	}

	sched := &scheduler.Scheduler{
		Sequences:    sequenceService,
		EnrollRepo:   enrollRepo,
		DraftRepo:    draftRepo,
		LeadRepo:     leadRepo,
		Queue:        sendQueue,
		PollInterval: cfg.PollInterval,
	}
	go sched.Run(context.Background())

	leadController := &controller.LeadController{
		LeadService:     leadService,
		SequenceService: sequenceService,
	}
	campaignController := &controller.CampaignController{
		SequenceService: sequenceService,
	}
	draftController := &controller.DraftController{
		DraftService:    draftService,
		SequenceService: sequenceService,
	}
	webhookController := &controller.WebhookController{
		SequenceService: sequenceService,
	}

	r := chi.NewRouter()

	// Lead routes
	r.Post("/leads", leadController.CreateLead)
	r.Get("/leads", leadController.ListLeads)
	r.Get("/leads/{id}", leadController.GetLead)
	r.Patch("/leads/{id}", leadController.UpdateLead)
	r.Delete("/leads/{id}", leadController.DeleteLead)
	r.Patch("/leads/{id}/status", leadController.UpdateStatus)
	r.Post("/leads/{id}/research", leadController.Research)
	r.Post("/leads/{id}/recalculate", leadController.Recalculate)
	r.Get("/leads/{id}/intelligence", leadController.GetIntelligence)
	r.Post("/leads/{id}/trigger", leadController.Trigger)
	r.Post("/leads/{id}/unenroll", leadController.Unenroll)

	// Campaign routes
	r.Post("/campaigns", campaignController.CreateCampaign)
	r.Get("/campaigns", campaignController.ListCampaigns)
	r.Get("/campaigns/{id}", campaignController.GetCampaign)
	r.Patch("/campaigns/{id}", campaignController.UpdateCampaign)
	r.Delete("/campaigns/{id}", campaignController.DeleteCampaign)
	r.Post("/campaigns/{id}/start", campaignController.StartCampaign)
	r.Post("/campaigns/{id}/pause", campaignController.PauseCampaign)
	r.Post("/campaigns/{id}/enroll", campaignController.EnrollLeads)
	r.Get("/campaigns/{id}/leads", campaignController.ListCampaignLeads)

	// Draft routes
	r.Get("/drafts", draftController.ListDrafts)
	r.Get("/drafts/{id}", draftController.GetDraft)
	r.Post("/drafts", draftController.GenerateDraft)
	r.Post("/drafts/generate", draftController.BulkGenerate)
	r.Post("/drafts/{id}/approve", draftController.ApproveDraft)
	r.Post("/drafts/{id}/approve-and-send", draftController.ApproveAndSend)
	r.Post("/drafts/{id}/reject", draftController.RejectDraft)
	r.Patch("/drafts/{id}", draftController.EditDraft)
	r.Post("/drafts/{id}/regenerate", draftController.RegenerateDraft)
	r.Post("/drafts/bulk-approve", draftController.BulkApprove)

	// Webhooks
	r.Post("/webhooks/reply", webhookController.Reply)

	log.Println("server running on " + cfg.HTTPAddr)
	log.Fatal(http.ListenAndServe(cfg.HTTPAddr, r))
}
