package queue

import (
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestPublishWithoutSubscribers(t *testing.T) {
	q := NewInMemoryQueue()
	if err := q.Publish("nobody-home", 1); err == nil {
		t.Fatal("expected error when publishing to a topic with no subscribers")
	}
}

func TestPublishDeliversToSubscriber(t *testing.T) {
	q := NewInMemoryQueue()
	got := make(chan any, 1)

	q.Subscribe("greetings", func(payload any) error {
		got <- payload
		return nil
	})

	if err := q.Publish("greetings", "hello"); err != nil {
		t.Fatal(err)
	}

	select {
	case v := <-got:
		if v != "hello" {
			t.Errorf("got %v, want hello", v)
		}
	case <-time.After(time.Second):
		t.Fatal("message was not delivered")
	}
}

func TestRetryUntilSuccess(t *testing.T) {
	q := NewInMemoryQueue()
	var attempts int32
	done := make(chan struct{})

	q.Subscribe("flaky", func(payload any) error {
		n := atomic.AddInt32(&attempts, 1)
		if n < 3 {
			return fmt.Errorf("try again")
		}
		close(done)
		return nil
	})

	if err := q.Publish("flaky", 42); err != nil {
		t.Fatal(err)
	}

	select {
	case <-done:
		if got := atomic.LoadInt32(&attempts); got != 3 {
			t.Errorf("expected 3 attempts, got %d", got)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("handler never succeeded")
	}
}

func TestEmailSendSubscriber(t *testing.T) {
	q := NewInMemoryQueue()
	sent := make(chan uuid.UUID, 1)

	StartEmailSendSubscriber(q, func(draftID uuid.UUID) error {
		sent <- draftID
		return nil
	})

	want := uuid.New()
	if err := q.Publish(TopicEmailSends, want); err != nil {
		t.Fatal(err)
	}

	select {
	case got := <-sent:
		if got != want {
			t.Errorf("got %s, want %s", got, want)
		}
	case <-time.After(time.Second):
		t.Fatal("send job was not delivered")
	}
}
