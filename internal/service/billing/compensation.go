package billing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"

	"github.com/RizzWan-Codes/homedoctor.ai/internal/domain"
	"github.com/RizzWan-Codes/homedoctor.ai/internal/logging"
)

// compensate credits amount back for operation opID. It detaches from the
// caller's cancellation so a client disconnect cannot strand a debit, and
// retries with capped exponential backoff until CompensationMaxAttempts or
// CompensationTimeout runs out.
func (c *Coordinator) compensate(ctx context.Context, userID string, amount int64, opID uuid.UUID) (int64, error) {
	cctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.opts.CompensationTimeout)
	defer cancel()

	log := logging.FromContext(ctx).With("user_id", userID, "operation_id", opID)

	policy := c.recoveryBackOff(cctx)

	// Fixed across attempts: if a commit succeeded but its ack was lost,
	// the retry collides on this id instead of crediting twice.
	eventID := uuid.New()
	credit := c.creditPlan(opID, amount, domain.ReasonRefund)

	var balance int64
	attempts := 0
	op := func() error {
		attempts++
		acct, err := c.ledger.Get(cctx, userID)
		if err != nil {
			if errors.Is(err, domain.ErrAccountNotFound) {
				return backoff.Permanent(err)
			}
			return err
		}

		m, err := credit(acct)
		if err != nil {
			return backoff.Permanent(err)
		}
		m.Event.ID = eventID

		err = c.ledger.Apply(cctx, m)
		switch {
		case err == nil:
			balance = m.New
			return nil
		case errors.Is(err, domain.ErrAlreadyApplied):
			balance = acct.Coins
			return nil
		case errors.Is(err, domain.ErrAccountNotFound):
			return backoff.Permanent(err)
		default:
			return err
		}
	}

	notify := func(err error, wait time.Duration) {
		log.Warn("refund write failed, retrying", "attempt", attempts, "backoff", wait, "error", err)
	}

	if err := backoff.RetryNotify(op, policy, notify); err != nil {
		logging.Alert(ctx, "refund could not be written; account is short",
			"user_id", userID,
			"operation_id", opID,
			"amount", amount,
			"attempts", attempts,
			"error", err,
		)
		return 0, fmt.Errorf("compensate: %w: %w", domain.ErrCompensationFailed, err)
	}

	log.Info("coins refunded", "amount", amount, "balance", balance, "attempts", attempts)
	return balance, nil
}

// recoveryBackOff is the retry policy for writes and lookups that must
// finish after the caller has gone: capped exponential, at most
// CompensationMaxAttempts tries, bounded by ctx.
func (c *Coordinator) recoveryBackOff(ctx context.Context) backoff.BackOffContext {
	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = c.opts.CompensationInitialInterval
	eb.MaxInterval = c.opts.CompensationMaxInterval
	eb.MaxElapsedTime = 0
	// WithMaxRetries treats 0 as unlimited.
	var retries backoff.BackOff = &backoff.StopBackOff{}
	if c.opts.CompensationMaxAttempts > 1 {
		retries = backoff.WithMaxRetries(eb, uint64(c.opts.CompensationMaxAttempts-1))
	}
	return backoff.WithContext(retries, ctx)
}

// debitRecorded reports whether the debit for opID committed. It runs
// detached from ctx's cancellation because it is called after ctx may
// already have been cancelled mid-commit.
func (c *Coordinator) debitRecorded(ctx context.Context, opID uuid.UUID) (bool, error) {
	lctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.opts.CompensationTimeout)
	defer cancel()

	var found bool
	err := backoff.Retry(func() error {
		events, err := c.events.ListByOperation(lctx, opID)
		if err != nil {
			return err
		}
		for _, e := range events {
			if e.EventType == domain.EventTypeDebit {
				found = true
			}
		}
		return nil
	}, c.recoveryBackOff(lctx))
	if err != nil {
		return false, fmt.Errorf("debitRecorded: %w", err)
	}
	return found, nil
}
