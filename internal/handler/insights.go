package handler

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/RizzWan-Codes/homedoctor.ai/internal/domain"
	"github.com/RizzWan-Codes/homedoctor.ai/internal/service"
	"github.com/RizzWan-Codes/homedoctor.ai/internal/trend"
)

const maxLogs = 365

type insightsService interface {
	Summarize(ctx context.Context, logs []domain.HealthLog) (*service.Report, error)
	TrendReport(ctx context.Context, logs []domain.HealthLog) (*service.Report, error)
}

type InsightsHandler struct {
	insights insightsService
}

func NewInsightsHandler(insights insightsService) *InsightsHandler {
	return &InsightsHandler{insights: insights}
}

type healthLogDTO struct {
	CreatedAt time.Time `json:"created_at"`
	Severity  string    `json:"severity"`
	Symptoms  string    `json:"symptoms"`
}

type logsRequest struct {
	Logs []healthLogDTO `json:"logs"`
}

func (r logsRequest) Validate() []FieldError {
	var errs []FieldError

	switch {
	case len(r.Logs) == 0:
		return []FieldError{{Field: "logs", Message: "at least one log is required"}}
	case len(r.Logs) > maxLogs:
		return []FieldError{{Field: "logs", Message: fmt.Sprintf("at most %d logs", maxLogs)}}
	}

	for i, l := range r.Logs {
		if l.CreatedAt.IsZero() {
			errs = append(errs, FieldError{Field: fmt.Sprintf("logs[%d].created_at", i), Message: "required"})
		}
		if _, err := trend.SeverityScore(l.Severity); err != nil {
			errs = append(errs, FieldError{Field: fmt.Sprintf("logs[%d].severity", i), Message: "must be mild, moderate or severe"})
		}
		if strings.TrimSpace(l.Symptoms) == "" {
			errs = append(errs, FieldError{Field: fmt.Sprintf("logs[%d].symptoms", i), Message: "required"})
		}
	}
	return errs
}

func (r logsRequest) toDomain() []domain.HealthLog {
	logs := make([]domain.HealthLog, len(r.Logs))
	for i, l := range r.Logs {
		logs[i] = domain.HealthLog{CreatedAt: l.CreatedAt, Severity: l.Severity, Symptoms: l.Symptoms}
	}
	return logs
}

type reportResponse struct {
	Trend  trend.Summary `json:"trend"`
	Report string        `json:"report"`
}

func (h *InsightsHandler) Insights(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, h.insights.Summarize)
}

func (h *InsightsHandler) Trends(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, h.insights.TrendReport)
}

func (h *InsightsHandler) serve(w http.ResponseWriter, r *http.Request, run func(context.Context, []domain.HealthLog) (*service.Report, error)) {
	var req logsRequest
	if err := decodeJSON(r, &req); err != nil {
		RespondAppError(w, ErrInvalidRequest, nil)
		return
	}
	if fields := req.Validate(); len(fields) > 0 {
		RespondValidationError(w, fields)
		return
	}

	report, err := run(r.Context(), req.toDomain())
	if err != nil {
		RespondDomainError(w, err)
		return
	}
	RespondSuccess(w, http.StatusOK, reportResponse{Trend: report.Summary, Report: report.Text})
}
