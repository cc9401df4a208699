package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/RizzWan-Codes/homedoctor.ai/internal/domain"
	"github.com/RizzWan-Codes/homedoctor.ai/internal/service/billing"
)

type meteredRunner interface {
	RunMeteredCall(ctx context.Context, userID string, cost int64, call billing.Call) (*domain.Outcome, error)
}

type completer interface {
	CompleteWithSystem(ctx context.Context, system, prompt, model string, maxTokens int) (string, error)
}

const assessmentSystemPrompt = "You are an AI health assistant. You are not a substitute for a doctor."

type ConsultationService struct {
	billing   meteredRunner
	llm       completer
	cost      int64
	model     string
	maxTokens int
}

func NewConsultationService(b meteredRunner, llm completer, cost int64, model string, maxTokens int) *ConsultationService {
	return &ConsultationService{
		billing:   b,
		llm:       llm,
		cost:      cost,
		model:     model,
		maxTokens: maxTokens,
	}
}

// Assess charges one consultation and asks the model for a triage. The
// returned Outcome says whether the coins were kept or refunded.
func (s *ConsultationService) Assess(ctx context.Context, req domain.ConsultationRequest) (*domain.Outcome, error) {
	if strings.TrimSpace(req.Symptoms) == "" {
		return nil, fmt.Errorf("Assess: symptoms required: %w", domain.ErrInvalidInput)
	}

	prompt := assessmentPrompt(req)
	out, err := s.billing.RunMeteredCall(ctx, req.UserID, s.cost, func(ctx context.Context) (string, error) {
		return s.llm.CompleteWithSystem(ctx, assessmentSystemPrompt, prompt, s.model, s.maxTokens)
	})
	if err != nil {
		return nil, fmt.Errorf("Assess: %w", err)
	}
	return out, nil
}

func assessmentPrompt(req domain.ConsultationRequest) string {
	var b strings.Builder
	b.WriteString("Patient details:\n")
	fmt.Fprintf(&b, "- Name: %s\n", orDash(req.Name))
	if req.Age > 0 {
		fmt.Fprintf(&b, "- Age: %d\n", req.Age)
	} else {
		b.WriteString("- Age: -\n")
	}
	fmt.Fprintf(&b, "- Gender: %s\n", orDash(req.Gender))
	fmt.Fprintf(&b, "- Symptoms: %s\n", req.Symptoms)
	fmt.Fprintf(&b, "- Severity: %s\n", orDash(req.Severity))
	fmt.Fprintf(&b, "- Additional info: %s\n\n", orDash(req.Details))
	b.WriteString(`Give a clear response with:
1. Likely conditions (top 2-3 possibilities).
2. How uncertain you are.
3. Urgency triage: GREEN (self-care), YELLOW (see a GP soon), RED (urgent or emergency).
4. Next steps for the patient.

Remind the patient this is not professional medical advice and to call local emergency services in an emergency.`)
	return b.String()
}

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}
