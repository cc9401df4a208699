package handler

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/RizzWan-Codes/homedoctor.ai/internal/auth"
	"github.com/RizzWan-Codes/homedoctor.ai/internal/domain"
)

type accountService interface {
	GetAccount(ctx context.Context, userID string) (*domain.Account, error)
	BalanceEvents(ctx context.Context, userID string, limit int) ([]domain.BalanceEvent, error)
}

type AccountHandler struct {
	accounts accountService
}

func NewAccountHandler(accounts accountService) *AccountHandler {
	return &AccountHandler{accounts: accounts}
}

type accountDTO struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Coins     int64     `json:"coins"`
	CreatedAt time.Time `json:"created_at"`
}

func toAccountDTO(a *domain.Account) accountDTO {
	return accountDTO{
		ID:        a.UserID,
		Email:     a.Email,
		Name:      a.Name,
		Coins:     a.Coins,
		CreatedAt: a.CreatedAt,
	}
}

type balanceEventDTO struct {
	ID            uuid.UUID `json:"id"`
	OperationID   uuid.UUID `json:"operation_id"`
	Type          string    `json:"type"`
	Reason        string    `json:"reason"`
	Amount        int64     `json:"amount"`
	BalanceBefore int64     `json:"balance_before"`
	BalanceAfter  int64     `json:"balance_after"`
	CreatedAt     time.Time `json:"created_at"`
}

func (h *AccountHandler) Me(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		RespondAppError(w, ErrMissingToken, nil)
		return
	}

	acct, err := h.accounts.GetAccount(r.Context(), userID)
	if err != nil {
		RespondDomainError(w, err)
		return
	}
	RespondSuccess(w, http.StatusOK, toAccountDTO(acct))
}

func (h *AccountHandler) BalanceEvents(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		RespondAppError(w, ErrMissingToken, nil)
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			RespondValidationError(w, []FieldError{{Field: "limit", Message: "must be a positive integer"}})
			return
		}
		limit = n
	}

	events, err := h.accounts.BalanceEvents(r.Context(), userID, limit)
	if err != nil {
		RespondDomainError(w, err)
		return
	}

	dtos := make([]balanceEventDTO, len(events))
	for i, e := range events {
		dtos[i] = balanceEventDTO{
			ID:            e.ID,
			OperationID:   e.OperationID,
			Type:          string(e.EventType),
			Reason:        string(e.Reason),
			Amount:        e.Amount,
			BalanceBefore: e.BalanceBefore,
			BalanceAfter:  e.BalanceAfter,
			CreatedAt:     e.CreatedAt,
		}
	}
	RespondSuccess(w, http.StatusOK, dtos)
}
