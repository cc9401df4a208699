package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/RizzWan-Codes/homedoctor.ai/internal/auth"
	"github.com/RizzWan-Codes/homedoctor.ai/internal/domain"
	"github.com/RizzWan-Codes/homedoctor.ai/internal/logging"
	"github.com/RizzWan-Codes/homedoctor.ai/internal/trend"
)

type consultationService interface {
	Assess(ctx context.Context, req domain.ConsultationRequest) (*domain.Outcome, error)
}

type ConsultationHandler struct {
	consultations consultationService
}

func NewConsultationHandler(consultations consultationService) *ConsultationHandler {
	return &ConsultationHandler{consultations: consultations}
}

type consultationRequest struct {
	Name     string `json:"name"`
	Age      int    `json:"age"`
	Gender   string `json:"gender"`
	Symptoms string `json:"symptoms"`
	Severity string `json:"severity"`
	Details  string `json:"details"`
}

func (r consultationRequest) Validate() []FieldError {
	var errs []FieldError

	if strings.TrimSpace(r.Symptoms) == "" {
		errs = append(errs, FieldError{Field: "symptoms", Message: "required"})
	} else if len(r.Symptoms) > 2000 {
		errs = append(errs, FieldError{Field: "symptoms", Message: "must be at most 2000 characters"})
	}

	if r.Age < 0 || r.Age > 130 {
		errs = append(errs, FieldError{Field: "age", Message: "must be between 0 and 130"})
	}

	if r.Severity != "" {
		if _, err := trend.SeverityScore(r.Severity); err != nil {
			errs = append(errs, FieldError{Field: "severity", Message: "must be mild, moderate or severe"})
		}
	}

	if len(r.Details) > 4000 {
		errs = append(errs, FieldError{Field: "details", Message: "must be at most 4000 characters"})
	}

	return errs
}

type consultationResponse struct {
	Outcome string `json:"outcome"`
	Result  string `json:"result,omitempty"`
	Message string `json:"message,omitempty"`
	Coins   int64  `json:"coins"`
}

type failedCallDetails struct {
	Outcome string `json:"outcome"`
	Coins   int64  `json:"coins"`
}

// OperationIDHeader carries the id shared by a call's balance events.
const OperationIDHeader = "X-Operation-ID"

const refundedMessage = "We could not generate an assessment this time. Your coins have been refunded."

func (h *ConsultationHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		RespondAppError(w, ErrMissingToken, nil)
		return
	}

	var req consultationRequest
	if err := decodeJSON(r, &req); err != nil {
		RespondAppError(w, ErrInvalidRequest, nil)
		return
	}
	if fields := req.Validate(); len(fields) > 0 {
		RespondValidationError(w, fields)
		return
	}

	out, err := h.consultations.Assess(r.Context(), domain.ConsultationRequest{
		UserID:   userID,
		Name:     req.Name,
		Age:      req.Age,
		Gender:   req.Gender,
		Symptoms: req.Symptoms,
		Severity: req.Severity,
		Details:  req.Details,
	})
	if err != nil {
		RespondDomainError(w, err)
		return
	}

	if out.OperationID != uuid.Nil {
		w.Header().Set(OperationIDHeader, out.OperationID.String())
	}

	switch out.Kind {
	case domain.OutcomeCompleted:
		RespondSuccess(w, http.StatusOK, consultationResponse{
			Outcome: string(out.Kind),
			Result:  out.Result,
			Coins:   out.Balance,
		})
	case domain.OutcomeRefunded:
		RespondSuccess(w, http.StatusOK, consultationResponse{
			Outcome: string(out.Kind),
			Message: refundedMessage,
			Coins:   out.Balance,
		})
	default:
		logging.FromContext(r.Context()).Warn("consultation failed after refund", "reason", out.Reason)
		RespondAppError(w, MapDomainError(out.Reason), failedCallDetails{
			Outcome: string(out.Kind),
			Coins:   out.Balance,
		})
	}
}
