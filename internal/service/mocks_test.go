package service

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/RizzWan-Codes/homedoctor.ai/internal/domain"
	"github.com/RizzWan-Codes/homedoctor.ai/internal/service/billing"
)

type completerMock struct {
	mock.Mock
}

func (m *completerMock) CompleteWithSystem(ctx context.Context, system, prompt, model string, maxTokens int) (string, error) {
	args := m.Called(ctx, system, prompt, model, maxTokens)
	return args.String(0), args.Error(1)
}

// runnerStub runs the call directly with the balance it was given.
type runnerStub struct {
	userID  string
	cost    int64
	balance int64
	err     error
}

func (r *runnerStub) RunMeteredCall(ctx context.Context, userID string, cost int64, call billing.Call) (*domain.Outcome, error) {
	r.userID = userID
	r.cost = cost
	if r.err != nil {
		return nil, r.err
	}
	result, err := call(ctx)
	if err != nil {
		return &domain.Outcome{Kind: domain.OutcomeFailed, Reason: err, Balance: r.balance}, nil
	}
	return &domain.Outcome{Kind: domain.OutcomeCompleted, Result: result, Balance: r.balance - cost}, nil
}
