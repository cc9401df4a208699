package handler

import "net/http"

type AppError struct {
	Status  int
	Code    string
	Message string
}

func (e *AppError) Error() string { return e.Message }

var (
	ErrMissingToken       = &AppError{http.StatusUnauthorized, "MISSING_TOKEN", "Authorization header required"}
	ErrInvalidToken       = &AppError{http.StatusUnauthorized, "INVALID_TOKEN", "Token is invalid or expired"}
	ErrInvalidCredentials = &AppError{http.StatusUnauthorized, "INVALID_CREDENTIALS", "Invalid email or password"}
	ErrInvalidRequest     = &AppError{http.StatusBadRequest, "INVALID_REQUEST", "Invalid request body"}
	ErrValidationFailed   = &AppError{http.StatusBadRequest, "VALIDATION_FAILED", "Validation failed"}
	ErrResourceNotFound   = &AppError{http.StatusNotFound, "RESOURCE_NOT_FOUND", "Resource not found"}
	ErrRouteNotFound      = &AppError{http.StatusNotFound, "ROUTE_NOT_FOUND", "No such endpoint"}
	ErrMethodNotAllowed   = &AppError{http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed"}
	ErrInternalError      = &AppError{http.StatusInternalServerError, "INTERNAL_ERROR", "An unexpected error occurred"}

	ErrInvalidInput           = &AppError{http.StatusBadRequest, "INVALID_INPUT", "Request fields are missing or malformed"}
	ErrInvalidCost            = &AppError{http.StatusBadRequest, "INVALID_COST", "Cost must be a positive multiple of the coin unit"}
	ErrAccountNotFound        = &AppError{http.StatusNotFound, "ACCOUNT_NOT_FOUND", "Account not found"}
	ErrInsufficientBalance    = &AppError{http.StatusPaymentRequired, "INSUFFICIENT_BALANCE", "Not enough coins"}
	ErrConcurrentModification = &AppError{http.StatusConflict, "CONCURRENT_MODIFICATION", "Balance is being modified by another request, please retry"}
	ErrInvalidSignature       = &AppError{http.StatusBadRequest, "INVALID_SIGNATURE", "Invalid payment signature"}
	ErrOrderNotFound          = &AppError{http.StatusNotFound, "ORDER_NOT_FOUND", "Payment order not found"}
	ErrOrderConsumed          = &AppError{http.StatusConflict, "ORDER_ALREADY_CREDITED", "This payment has already been credited"}
	ErrProviderFailed         = &AppError{http.StatusBadGateway, "PROVIDER_ERROR", "The upstream service failed"}
	ErrProviderTimeout        = &AppError{http.StatusGatewayTimeout, "PROVIDER_TIMEOUT", "The upstream service timed out"}
	ErrEmptyCompletion        = &AppError{http.StatusBadGateway, "EMPTY_COMPLETION", "The AI service returned no usable content"}
	ErrRefundFailed           = &AppError{http.StatusInternalServerError, "REFUND_FAILED", "The request failed and the refund is pending manual review"}

	ErrIdempotencyConflict = &AppError{http.StatusConflict, "IDEMPOTENCY_CONFLICT", "Idempotency key already used with a different request"}
)
