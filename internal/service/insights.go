package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/RizzWan-Codes/homedoctor.ai/internal/domain"
	"github.com/RizzWan-Codes/homedoctor.ai/internal/trend"
)

const (
	insightsSystemPrompt = "You are a helpful health assistant."
	trendSystemPrompt    = "You are a helpful health trend assistant."
)

// Report pairs the locally computed trend with the model's write-up.
type Report struct {
	Summary trend.Summary
	Text    string
}

// InsightsService summarizes client-supplied health logs. It is not
// metered.
type InsightsService struct {
	llm            completer
	model          string
	insightsTokens int
	trendTokens    int
}

func NewInsightsService(llm completer, model string, insightsTokens, trendTokens int) *InsightsService {
	return &InsightsService{
		llm:            llm,
		model:          model,
		insightsTokens: insightsTokens,
		trendTokens:    trendTokens,
	}
}

func (s *InsightsService) Summarize(ctx context.Context, logs []domain.HealthLog) (*Report, error) {
	summary, err := analyze(logs)
	if err != nil {
		return nil, fmt.Errorf("Summarize: %w", err)
	}

	prompt := fmt.Sprintf(`Analyze the following health logs and summarize:
- Most common symptoms
- A short personalized suggestion

The overall severity trend is %s and the average severity is %.1f on a 1-3 scale. Use these figures as given.

Logs:
%s`, summary.Trend, summary.AverageSeverity, formatLogs(logs))

	text, err := s.llm.CompleteWithSystem(ctx, insightsSystemPrompt, prompt, s.model, s.insightsTokens)
	if err != nil {
		return nil, fmt.Errorf("Summarize: %w", err)
	}
	return &Report{Summary: summary, Text: text}, nil
}

func (s *InsightsService) TrendReport(ctx context.Context, logs []domain.HealthLog) (*Report, error) {
	summary, err := analyze(logs)
	if err != nil {
		return nil, fmt.Errorf("TrendReport: %w", err)
	}

	prompt := fmt.Sprintf(`The user's health is %s (early mean severity %.1f, recent %.1f on a 1-3 scale). Explain this briefly, then give:
1. Recommended daily nutrition goals for their symptoms.
2. A simple daily diet plan.
3. Two easy recipes with ingredients, steps and approximate macros.
4. A basic exercise plan.
5. Practical lifestyle tips.

Keep it structured and concise. Avoid medical jargon.

Logs:
%s`, summary.Trend, summary.EarlyMean, summary.RecentMean, formatLogs(logs))

	text, err := s.llm.CompleteWithSystem(ctx, trendSystemPrompt, prompt, s.model, s.trendTokens)
	if err != nil {
		return nil, fmt.Errorf("TrendReport: %w", err)
	}
	return &Report{Summary: summary, Text: text}, nil
}

func analyze(logs []domain.HealthLog) (trend.Summary, error) {
	if len(logs) == 0 {
		return trend.Summary{}, fmt.Errorf("no logs provided: %w", domain.ErrInvalidInput)
	}
	return trend.Analyze(logs)
}

func formatLogs(logs []domain.HealthLog) string {
	var b strings.Builder
	for _, l := range logs {
		fmt.Fprintf(&b, "- Date: %s | Severity: %s | Symptoms: %s\n",
			l.CreatedAt.Format("2006-01-02"), l.Severity, l.Symptoms)
	}
	return b.String()
}
