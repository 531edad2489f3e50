// Package integration defines the capability interfaces for external
// collaborators: the research agents, the draft content generator, the
// mail transport, and the inbound-reply signal source. The engine calls
// through them with bounded timeouts; their internals are opaque. Mock
// implementations live alongside for local runs and tests.
package integration

import (
	"context"
	"encoding/json"

	"github.com/fundamentalanalysis/xendex-ai-sales-agent/internal/model"
)

// Researcher gathers research signals for a lead. Safe to re-invoke;
// each call produces a fresh bundle.
type Researcher interface {
	Research(ctx context.Context, lead *model.Lead) (*model.Intelligence, error)
}

// GenerateRequest carries everything the content generator needs for one
// touch.
type GenerateRequest struct {
	Lead         *model.Lead
	Intelligence *model.Intelligence
	TouchNumber  int
	Mode         string // light, medium, deep
	Strategy     *model.Strategy
}

// GeneratedDraft is the content generator's output for one touch.
type GeneratedDraft struct {
	SubjectOptions []string
	Body           string
	Strategy       *model.Strategy
	Evidence       json.RawMessage
}

// Generator produces draft email content for a touch.
type Generator interface {
	Generate(ctx context.Context, req GenerateRequest) (*GeneratedDraft, error)
}

// Email is an outbound message ready for the wire.
type Email struct {
	To      string
	ToName  string
	Subject string
	Body    string
}

// Mailer sends email. Implementations distinguish transient failures
// (timeouts, throttling) from permanent ones (invalid address, rejected
// content) via the errors package wrappers.
type Mailer interface {
	Send(ctx context.Context, email Email) (messageID string, err error)
}
