// internal/queue/amqp.go
package queue

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/streadway/amqp"
)

// SendJob is the wire form of one queued send. The worker binary
// unmarshals the same shape.
type SendJob struct {
	DraftID uuid.UUID `json:"draft_id"`
}

func encodeSendJob(draftID uuid.UUID) ([]byte, error) {
	return json.Marshal(SendJob{DraftID: draftID})
}

// AMQPPublisher pushes send jobs onto a durable RabbitMQ queue consumed
// by the worker binary. Topics map one to one onto queue names.
type AMQPPublisher struct {
	conn *amqp.Connection
	ch   *amqp.Channel
}

var _ Publisher = (*AMQPPublisher)(nil)

func NewAMQPPublisher(url string) (*AMQPPublisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("amqp dial: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("amqp channel: %w", err)
	}
	return &AMQPPublisher{conn: conn, ch: ch}, nil
}

func (p *AMQPPublisher) Close() {
	p.ch.Close()
	p.conn.Close()
}

// Publish declares the queue idempotently and enqueues one persistent
// JSON send job.
func (p *AMQPPublisher) Publish(topic string, payload any) error {
	draftID, ok := payload.(uuid.UUID)
	if !ok {
		return fmt.Errorf("unsupported payload type %T for topic %s", payload, topic)
	}

	q, err := p.ch.QueueDeclare(topic, true, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("declare %s: %w", topic, err)
	}

	body, err := encodeSendJob(draftID)
	if err != nil {
		return err
	}
	return p.ch.Publish("", q.Name, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Body:         body,
	})
}
