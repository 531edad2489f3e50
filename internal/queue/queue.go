package queue

import (
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Publisher is the send side of a queue. The scheduler only needs this
// half; it can point at the in-process queue or at AMQP.
type Publisher interface {
	Publish(topic string, payload any) error
}

// Queue interface
type Queue interface {
	Publisher
	Subscribe(topic string, handler func(payload any) error) error
}

// TopicEmailSends carries approved draft IDs awaiting a send attempt.
const TopicEmailSends = "email_sends"

// InMemoryQueue is an in-process pub/sub queue with retry and backoff.
type InMemoryQueue struct {
	mu       sync.Mutex
	handlers map[string][]func(payload any) error
}

// NewInMemoryQueue creates a new queue
func NewInMemoryQueue() *InMemoryQueue {
	return &InMemoryQueue{
		handlers: make(map[string][]func(payload any) error),
	}
}

// JobPayload wraps a message payload with retry info
type JobPayload struct {
	Payload    any
	RetryCount int
	MaxRetries int
}

// Publish sends a message to all subscribers
func (q *InMemoryQueue) Publish(topic string, payload any) error {
	q.mu.Lock()
	handlers := q.handlers[topic]
	q.mu.Unlock()

	if len(handlers) == 0 {
		return fmt.Errorf("no subscribers for topic %s", topic)
	}

	job := JobPayload{
		Payload:    payload,
		RetryCount: 0,
		MaxRetries: 3,
	}

	for _, handler := range handlers {
		go q.processJob(handler, job)
	}

	return nil
}

// processJob handles retries and errors
func (q *InMemoryQueue) processJob(handler func(payload any) error, job JobPayload) {
	for job.RetryCount <= job.MaxRetries {
		err := handler(job.Payload)
		if err == nil {
			return // ACK
		}

		job.RetryCount++
		log.Printf("job failed (attempt %d/%d): %+v, error: %v\n", job.RetryCount, job.MaxRetries, job.Payload, err)

		if job.RetryCount > job.MaxRetries {
			log.Printf("job permanently failed after %d attempts: %+v\n", job.MaxRetries, job.Payload)
			return // no requeue
		}

		// Exponential backoff before retry
		time.Sleep(time.Duration(job.RetryCount*500) * time.Millisecond)
	}
}

// Subscribe adds a handler for a topic
func (q *InMemoryQueue) Subscribe(topic string, handler func(payload any) error) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.handlers[topic] = append(q.handlers[topic], handler)
	return nil
}

// StartEmailSendSubscriber wires the email_sends topic to the
// orchestrator's send path. The sender is expected to be idempotent for
// already-sent drafts so queue retries stay safe.
func StartEmailSendSubscriber(q Queue, send func(draftID uuid.UUID) error) {
	err := q.Subscribe(TopicEmailSends, func(payload any) error {
		draftID, ok := payload.(uuid.UUID)
		if !ok {
			log.Printf("invalid payload type on %s, expected uuid.UUID", TopicEmailSends)
			return nil // no retry for malformed payloads
		}

		if err := send(draftID); err != nil {
			log.Printf("queued send failed for draft %s: %v", draftID, err)
			return err // triggers retry in queue
		}
		return nil
	})
	if err != nil {
		log.Printf("failed to subscribe to %s: %v", TopicEmailSends, err)
	}
}
