package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RizzWan-Codes/homedoctor.ai/internal/domain"
)

type accountsStub map[string]int64

func (a accountsStub) Get(_ context.Context, userID string) (*domain.Account, error) {
	coins, ok := a[userID]
	if !ok {
		return nil, domain.ErrAccountNotFound
	}
	return &domain.Account{UserID: userID, Coins: coins}, nil
}

type eventsStub struct {
	gotLimit int
}

func (e *eventsStub) ListByUser(_ context.Context, _ string, limit int) ([]domain.BalanceEvent, error) {
	e.gotLimit = limit
	return []domain.BalanceEvent{{UserID: "u1"}}, nil
}

func TestAccountService_BalanceEvents_Limit(t *testing.T) {
	tests := []struct {
		name  string
		limit int
		want  int
	}{
		{"default", 0, 50},
		{"negative", -3, 50},
		{"within range", 10, 10},
		{"clamped", 1000, 200},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			events := &eventsStub{}
			svc := NewAccountService(accountsStub{"u1": 40}, events)

			got, err := svc.BalanceEvents(context.Background(), "u1", tc.limit)
			require.NoError(t, err)
			assert.Len(t, got, 1)
			assert.Equal(t, tc.want, events.gotLimit)
		})
	}
}

func TestAccountService_UnknownAccount(t *testing.T) {
	svc := NewAccountService(accountsStub{}, &eventsStub{})

	_, err := svc.GetAccount(context.Background(), "ghost")
	require.ErrorIs(t, err, domain.ErrAccountNotFound)

	_, err = svc.BalanceEvents(context.Background(), "ghost", 10)
	require.ErrorIs(t, err, domain.ErrAccountNotFound)
}
