package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/RizzWan-Codes/homedoctor.ai/internal/domain"
)

type APIResponse struct {
	Success bool      `json:"success"`
	Data    any       `json:"data"`
	Error   *APIError `json:"error"`
}

type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func RespondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func RespondSuccess(w http.ResponseWriter, status int, data any) {
	RespondJSON(w, status, APIResponse{
		Success: true,
		Data:    data,
	})
}

func RespondAppError(w http.ResponseWriter, appErr *AppError, details any) {
	RespondJSON(w, appErr.Status, APIResponse{
		Success: false,
		Error: &APIError{
			Code:    appErr.Code,
			Message: appErr.Message,
			Details: details,
		},
	})
}

func RespondValidationError(w http.ResponseWriter, fields []FieldError) {
	RespondAppError(w, ErrValidationFailed, fields)
}

// MapDomainError picks the client-facing error for err. Unknown errors map
// to ErrInternalError; the caller decides whether to log.
func MapDomainError(err error) *AppError {
	switch {
	case errors.Is(err, domain.ErrCompensationFailed):
		return ErrRefundFailed
	case errors.Is(err, domain.ErrInvalidInput):
		return ErrInvalidInput
	case errors.Is(err, domain.ErrInvalidCost):
		return ErrInvalidCost
	case errors.Is(err, domain.ErrAccountNotFound):
		return ErrAccountNotFound
	case errors.Is(err, domain.ErrInsufficientBalance):
		return ErrInsufficientBalance
	case errors.Is(err, domain.ErrConcurrentModification):
		return ErrConcurrentModification
	case errors.Is(err, domain.ErrSignatureMismatch):
		return ErrInvalidSignature
	case errors.Is(err, domain.ErrOrderNotFound):
		return ErrOrderNotFound
	case errors.Is(err, domain.ErrOrderConsumed):
		return ErrOrderConsumed
	case errors.Is(err, domain.ErrProviderTimeout):
		return ErrProviderTimeout
	case errors.Is(err, domain.ErrEmptyCompletion):
		return ErrEmptyCompletion
	case errors.Is(err, domain.ErrProviderError):
		return ErrProviderFailed
	case errors.Is(err, domain.ErrNotFound):
		return ErrResourceNotFound
	default:
		return ErrInternalError
	}
}

func RespondDomainError(w http.ResponseWriter, err error) {
	appErr := MapDomainError(err)
	if appErr == ErrInternalError {
		slog.Error("unhandled domain error", "error", err)
	}
	RespondAppError(w, appErr, nil)
}

const maxBodyBytes = 1 << 20

// decodeJSON reads a single JSON value of at most 1 MiB.
func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		return err
	}
	if dec.More() {
		return errors.New("unexpected data after JSON body")
	}
	return nil
}
