package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/RizzWan-Codes/homedoctor.ai/internal/auth"
	"github.com/RizzWan-Codes/homedoctor.ai/internal/domain"
)

type topUpService interface {
	CreateTopUp(ctx context.Context, userID string, coins int64) (*domain.PaymentOrder, error)
	VerifyTopUp(ctx context.Context, v domain.PaymentVerification, userID string) (int64, error)
}

type TopUpHandler struct {
	topUps topUpService
	keyID  string
}

// NewTopUpHandler takes the public key id the client needs to open the
// provider checkout.
func NewTopUpHandler(topUps topUpService, keyID string) *TopUpHandler {
	return &TopUpHandler{topUps: topUps, keyID: keyID}
}

type createTopUpRequest struct {
	Coins int64 `json:"coins"`
}

type orderDTO struct {
	OrderID   string    `json:"order_id"`
	KeyID     string    `json:"key_id"`
	Coins     int64     `json:"coins"`
	Amount    int64     `json:"amount"`
	Currency  string    `json:"currency"`
	Receipt   string    `json:"receipt"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

// Field names follow the provider's checkout callback.
type verifyTopUpRequest struct {
	OrderID   string `json:"razorpay_order_id"`
	PaymentID string `json:"razorpay_payment_id"`
	Signature string `json:"razorpay_signature"`
}

func (r verifyTopUpRequest) Validate() []FieldError {
	var errs []FieldError
	if r.OrderID == "" {
		errs = append(errs, FieldError{Field: "razorpay_order_id", Message: "required"})
	}
	if r.PaymentID == "" {
		errs = append(errs, FieldError{Field: "razorpay_payment_id", Message: "required"})
	}
	if r.Signature == "" {
		errs = append(errs, FieldError{Field: "razorpay_signature", Message: "required"})
	}
	return errs
}

type verifyTopUpResponse struct {
	OrderID string `json:"order_id"`
	Coins   int64  `json:"coins"`
}

func (h *TopUpHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		RespondAppError(w, ErrMissingToken, nil)
		return
	}

	var req createTopUpRequest
	if err := decodeJSON(r, &req); err != nil {
		RespondAppError(w, ErrInvalidRequest, nil)
		return
	}

	order, err := h.topUps.CreateTopUp(r.Context(), userID, req.Coins)
	if err != nil {
		RespondDomainError(w, err)
		return
	}

	RespondSuccess(w, http.StatusCreated, orderDTO{
		OrderID:   order.OrderID,
		KeyID:     h.keyID,
		Coins:     order.Coins,
		Amount:    order.Amount,
		Currency:  order.Currency,
		Receipt:   order.Receipt,
		Status:    string(order.Status),
		CreatedAt: order.CreatedAt,
	})
}

func (h *TopUpHandler) Verify(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		RespondAppError(w, ErrMissingToken, nil)
		return
	}

	var req verifyTopUpRequest
	if err := decodeJSON(r, &req); err != nil {
		RespondAppError(w, ErrInvalidRequest, nil)
		return
	}
	if fields := req.Validate(); len(fields) > 0 {
		RespondValidationError(w, fields)
		return
	}

	balance, err := h.topUps.VerifyTopUp(r.Context(), domain.PaymentVerification{
		OrderID:   req.OrderID,
		PaymentID: req.PaymentID,
		Signature: req.Signature,
	}, userID)
	if err != nil {
		RespondDomainError(w, err)
		return
	}

	RespondSuccess(w, http.StatusOK, verifyTopUpResponse{OrderID: req.OrderID, Coins: balance})
}
