package billing

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/google/uuid"

	"github.com/RizzWan-Codes/homedoctor.ai/internal/domain"
	"github.com/RizzWan-Codes/homedoctor.ai/internal/logging"
)

// plan builds the mutation to attempt against a freshly read account.
type plan func(acct *domain.Account) (domain.BalanceMutation, error)

// applyWithRetry runs read, plan and conditional write until the write
// lands or DebitMaxAttempts conflicts have been seen. It returns the
// balance written.
func (c *Coordinator) applyWithRetry(ctx context.Context, userID string, build plan) (int64, error) {
	log := logging.FromContext(ctx)

	for attempt := 1; attempt <= c.opts.DebitMaxAttempts; attempt++ {
		acct, err := c.ledger.Get(ctx, userID)
		if err != nil {
			return 0, err
		}

		m, err := build(acct)
		if err != nil {
			return 0, err
		}

		err = c.ledger.Apply(ctx, m)
		if err == nil {
			return m.New, nil
		}
		if !errors.Is(err, domain.ErrBalanceConflict) {
			return 0, err
		}
		log.Debug("balance changed during write, retrying",
			"user_id", userID,
			"attempt", attempt,
			"expected", m.Expected,
		)
	}

	return 0, domain.ErrConcurrentModification
}

func (c *Coordinator) newEvent(opID uuid.UUID, acct *domain.Account, typ domain.EventType, reason domain.EventReason, amount int64) (*domain.BalanceEvent, int64) {
	after := acct.Coins + amount
	if typ == domain.EventTypeDebit {
		after = acct.Coins - amount
	}
	return &domain.BalanceEvent{
		ID:            uuid.New(),
		OperationID:   opID,
		UserID:        acct.UserID,
		EventType:     typ,
		Reason:        reason,
		Amount:        amount,
		BalanceBefore: acct.Coins,
		BalanceAfter:  after,
		CreatedAt:     c.now(),
	}, after
}

func (c *Coordinator) debitPlan(opID uuid.UUID, cost int64, reason domain.EventReason) plan {
	return func(acct *domain.Account) (domain.BalanceMutation, error) {
		if acct.Coins < cost {
			return domain.BalanceMutation{}, fmt.Errorf("have %d, need %d: %w", acct.Coins, cost, domain.ErrInsufficientBalance)
		}
		event, after := c.newEvent(opID, acct, domain.EventTypeDebit, reason, cost)
		return domain.BalanceMutation{
			UserID:   acct.UserID,
			Expected: acct.Coins,
			New:      after,
			Event:    event,
		}, nil
	}
}

func (c *Coordinator) creditPlan(opID uuid.UUID, amount int64, reason domain.EventReason) plan {
	return func(acct *domain.Account) (domain.BalanceMutation, error) {
		if amount > math.MaxInt64-acct.Coins {
			return domain.BalanceMutation{}, fmt.Errorf("balance %d cannot take %d more coins: %w", acct.Coins, amount, domain.ErrInvalidInput)
		}
		event, after := c.newEvent(opID, acct, domain.EventTypeCredit, reason, amount)
		return domain.BalanceMutation{
			UserID:   acct.UserID,
			Expected: acct.Coins,
			New:      after,
			Event:    event,
		}, nil
	}
}
