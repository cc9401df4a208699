package service

import (
	"context"
	"fmt"

	"github.com/RizzWan-Codes/homedoctor.ai/internal/domain"
)

const (
	defaultEventLimit = 50
	maxEventLimit     = 200
)

type accountReader interface {
	Get(ctx context.Context, userID string) (*domain.Account, error)
}

type balanceEventReader interface {
	ListByUser(ctx context.Context, userID string, limit int) ([]domain.BalanceEvent, error)
}

type AccountService struct {
	accounts accountReader
	events   balanceEventReader
}

func NewAccountService(accounts accountReader, events balanceEventReader) *AccountService {
	return &AccountService{accounts: accounts, events: events}
}

func (s *AccountService) GetAccount(ctx context.Context, userID string) (*domain.Account, error) {
	acct, err := s.accounts.Get(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("GetAccount: %w", err)
	}
	return acct, nil
}

// BalanceEvents returns the newest events first. limit is clamped to
// [1, 200]; zero means the default of 50.
func (s *AccountService) BalanceEvents(ctx context.Context, userID string, limit int) ([]domain.BalanceEvent, error) {
	switch {
	case limit <= 0:
		limit = defaultEventLimit
	case limit > maxEventLimit:
		limit = maxEventLimit
	}

	if _, err := s.accounts.Get(ctx, userID); err != nil {
		return nil, fmt.Errorf("BalanceEvents: %w", err)
	}

	events, err := s.events.ListByUser(ctx, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("BalanceEvents: %w", err)
	}
	return events, nil
}
