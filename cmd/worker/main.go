// cmd/worker/main.go
package main

import (
	"context"
	"encoding/json"
	"log"

	"github.com/joho/godotenv"
	"github.com/streadway/amqp"

	"github.com/fundamentalanalysis/xendex-ai-sales-agent/internal/config"
	"github.com/fundamentalanalysis/xendex-ai-sales-agent/internal/db"
	appErrors "github.com/fundamentalanalysis/xendex-ai-sales-agent/internal/errors"
	"github.com/fundamentalanalysis/xendex-ai-sales-agent/internal/integration"
	"github.com/fundamentalanalysis/xendex-ai-sales-agent/internal/queue"
	"github.com/fundamentalanalysis/xendex-ai-sales-agent/internal/repository"
	"github.com/fundamentalanalysis/xendex-ai-sales-agent/internal/service"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("no .env file found, relying on OS environment variables")
	}
	cfg := config.Load()

	db.Init()

	leadRepo := &repository.LeadRepository{DB: db.DB}
	campaignRepo := &repository.CampaignRepository{DB: db.DB}
	enrollRepo := &repository.EnrollmentRepository{DB: db.DB}
	draftRepo := &repository.DraftRepository{DB: db.DB}
	intelRepo := &repository.IntelligenceRepository{DB: db.DB}

	sequenceService := &service.SequenceService{
		CampaignRepo: campaignRepo,
		EnrollRepo:   enrollRepo,
		LeadRepo:     leadRepo,
		DraftRepo:    draftRepo,
		IntelRepo:    intelRepo,
		Generator:    integration.MockGenerator{},
		Mailer:       &integration.MockMailer{},
		Config:       cfg,
	}

	// Connect to RabbitMQ
	conn, err := amqp.Dial(cfg.AMQPURL)
	if err != nil {
		log.Fatal("failed to connect to RabbitMQ: ", err)
	}
	defer conn.Close()

	ch, err := conn.Channel()
	if err != nil {
		log.Fatal("failed to open a channel: ", err)
	}
	defer ch.Close()

	q, err := ch.QueueDeclare(
		cfg.SendQueueName,
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		nil,   // arguments
	)
	if err != nil {
		log.Fatal("failed to declare queue: ", err)
	}

	msgs, err := ch.Consume(
		q.Name,
		"",
		false, // autoAck = false for reliability
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		log.Fatal("failed to register consumer: ", err)
	}

	forever := make(chan bool)

	go func() {
		for d := range msgs {
			var job queue.SendJob
			if err := json.Unmarshal(d.Body, &job); err != nil {
				log.Println("invalid job:", err)
				d.Ack(false)
				continue
			}

			err := sequenceService.SendApproved(context.Background(), job.DraftID)
			if err != nil {
				log.Printf("send failed for draft %s: %v", job.DraftID, err)

				// Requeue transient failures up to 3 times; drop
				// everything else, it will not get better on retry.
				if appErrors.IsTransient(err) {
					var retryCount int32
					if v, ok := d.Headers["x-retry-count"].(int32); ok {
						retryCount = v
					}
					if retryCount < 3 {
						d.Nack(false, true)
						continue
					}
				}
			}

			d.Ack(false)
		}
	}()

	log.Println("worker running, waiting for send jobs on " + q.Name)
	<-forever
}
