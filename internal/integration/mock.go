package integration

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"sync"
	"time"

	appErrors "github.com/fundamentalanalysis/xendex-ai-sales-agent/internal/errors"
	"github.com/fundamentalanalysis/xendex-ai-sales-agent/internal/model"
)

// MockResearcher fabricates a plausible research bundle. Used when no
// real research agents are configured.
type MockResearcher struct{}

func (MockResearcher) Research(ctx context.Context, lead *model.Lead) (*model.Intelligence, error) {
	select {
	case <-ctx.Done():
		return nil, appErrors.NewTransient("researcher", ctx.Err())
	default:
	}
	return &model.Intelligence{
		LeadID:         lead.ID,
		Industry:       lead.Industry,
		CompanySize:    "medium",
		GTMMotion:      "enterprise",
		PainIndicators: []string{"manual reporting", "legacy integrations"},
		BuyingSignals:  []string{"pricing page refresh"},
		TechStack:      []string{"salesforce"},
		Triggers: []model.Trigger{
			{Type: "hiring", RecencyDays: 14},
		},
		LinkedIn: model.LinkedInProfile{
			Role:      lead.Title,
			Seniority: "senior",
			Topics30d: []string{"operational efficiency"},
		},
		ResearchedAt: time.Now(),
	}, nil
}

// MockGenerator produces deterministic draft content so sequences can be
// exercised end to end without an LLM.
type MockGenerator struct{}

func (MockGenerator) Generate(ctx context.Context, req GenerateRequest) (*GeneratedDraft, error) {
	select {
	case <-ctx.Done():
		return nil, appErrors.NewTransient("generator", ctx.Err())
	default:
	}

	strategy := req.Strategy
	if strategy == nil {
		strategy = &model.Strategy{Angle: "problem-hypothesis", CTA: "reply", Tone: "professional"}
	}

	name := req.Lead.FirstName
	if name == "" {
		name = "there"
	}
	body := fmt.Sprintf("Hi %s,\n\nFollowing up on how %s handles its outbound motion (touch %d).\n\nBest,\nSales",
		name, req.Lead.CompanyName, req.TouchNumber)

	evidence, _ := json.Marshal(map[string]any{
		"angle": strategy.Angle,
		"touch": req.TouchNumber,
		"mode":  req.Mode,
	})

	return &GeneratedDraft{
		SubjectOptions: []string{
			fmt.Sprintf("Quick question for %s", req.Lead.CompanyName),
			fmt.Sprintf("%s + your outbound pipeline", req.Lead.CompanyName),
			"Worth a look?",
		},
		Body:     body,
		Strategy: strategy,
		Evidence: evidence,
	}, nil
}

// MockMailer simulates a transport. FailureRate in [0,1] injects
// transient failures for exercising the retry path.
type MockMailer struct {
	FailureRate float64

	mu   sync.Mutex
	sent []Email
}

func (m *MockMailer) Send(ctx context.Context, email Email) (string, error) {
	select {
	case <-ctx.Done():
		return "", appErrors.NewTransient("mailer", ctx.Err())
	default:
	}
	if email.To == "" {
		return "", appErrors.NewPermanent("mailer", fmt.Errorf("empty recipient address"))
	}
	if m.FailureRate > 0 && rand.Float64() < m.FailureRate {
		return "", appErrors.NewTransient("mailer", fmt.Errorf("simulated send failure"))
	}

	m.mu.Lock()
	m.sent = append(m.sent, email)
	m.mu.Unlock()
	return fmt.Sprintf("mock-%d", time.Now().UnixNano()), nil
}

// Sent returns a copy of everything sent so far.
func (m *MockMailer) Sent() []Email {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Email, len(m.sent))
	copy(out, m.sent)
	return out
}
