package billing

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/RizzWan-Codes/homedoctor.ai/internal/domain"
	"github.com/RizzWan-Codes/homedoctor.ai/internal/logging"
)

// Call is the paid provider request. It must honour ctx cancellation.
type Call func(ctx context.Context) (string, error)

// RunMeteredCall debits cost, runs call and refunds the debit if call
// does not deliver usable content. A non-nil error means either nothing
// was charged or the refund could not be written (ErrCompensationFailed).
func (c *Coordinator) RunMeteredCall(ctx context.Context, userID string, cost int64, call Call) (*domain.Outcome, error) {
	log := logging.FromContext(ctx).With("user_id", userID, "cost", cost)

	if err := c.pricing.ValidateCost(cost); err != nil {
		return nil, fmt.Errorf("RunMeteredCall: %w", err)
	}

	opID := uuid.New()
	balance, err := c.applyWithRetry(ctx, userID, c.debitPlan(opID, cost, domain.ReasonConsultation))
	if err != nil {
		if debitRejected(err) {
			return nil, fmt.Errorf("RunMeteredCall: debit: %w", err)
		}
		return c.settleUncertainDebit(ctx, userID, cost, opID, err)
	}
	log = log.With("operation_id", opID)
	log.Info("coins debited", "balance", balance)

	result, callErr := c.invoke(ctx, call)
	if callErr == nil {
		return &domain.Outcome{
			Kind:        domain.OutcomeCompleted,
			Result:      result,
			Balance:     balance,
			OperationID: opID,
		}, nil
	}

	kind := domain.OutcomeFailed
	if errors.Is(callErr, domain.ErrEmptyCompletion) {
		kind = domain.OutcomeRefunded
	}
	log.Warn("provider call did not deliver, refunding", "outcome", kind, "error", callErr)

	refunded, err := c.compensate(ctx, userID, cost, opID)
	if err != nil {
		return nil, fmt.Errorf("RunMeteredCall: %w", err)
	}

	return &domain.Outcome{
		Kind:        kind,
		Reason:      callErr,
		Balance:     refunded,
		OperationID: opID,
	}, nil
}

// debitRejected reports whether err proves the debit was not written.
// Anything else, such as a connection dropped during COMMIT, leaves the
// debit in an unknown state.
func debitRejected(err error) bool {
	return errors.Is(err, domain.ErrInsufficientBalance) ||
		errors.Is(err, domain.ErrAccountNotFound) ||
		errors.Is(err, domain.ErrConcurrentModification) ||
		errors.Is(err, domain.ErrInvalidInput)
}

// settleUncertainDebit looks up whether a debit that returned debitErr
// committed anyway. A committed debit is refunded and reported as Failed
// without calling the provider.
func (c *Coordinator) settleUncertainDebit(ctx context.Context, userID string, cost int64, opID uuid.UUID, debitErr error) (*domain.Outcome, error) {
	log := logging.FromContext(ctx).With("user_id", userID, "operation_id", opID)

	landed, err := c.debitRecorded(ctx, opID)
	if err != nil {
		logging.Alert(ctx, "debit outcome unknown; account may be short",
			"user_id", userID,
			"operation_id", opID,
			"amount", cost,
			"debit_error", debitErr,
			"error", err,
		)
		return nil, fmt.Errorf("RunMeteredCall: debit: %w: %w", domain.ErrCompensationFailed, debitErr)
	}
	if !landed {
		return nil, fmt.Errorf("RunMeteredCall: debit: %w", debitErr)
	}

	log.Warn("debit committed despite write error, refunding", "error", debitErr)
	refunded, err := c.compensate(ctx, userID, cost, opID)
	if err != nil {
		return nil, fmt.Errorf("RunMeteredCall: %w", err)
	}
	return &domain.Outcome{
		Kind:        domain.OutcomeFailed,
		Reason:      debitErr,
		Balance:     refunded,
		OperationID: opID,
	}, nil
}

// invoke runs call under the provider timeout and normalises its failure
// into ErrProviderTimeout, ErrProviderError or ErrEmptyCompletion.
func (c *Coordinator) invoke(ctx context.Context, call Call) (string, error) {
	callCtx, cancel := context.WithTimeout(ctx, c.opts.ProviderTimeout)
	defer cancel()

	result, err := call(callCtx)
	switch {
	case err == nil && strings.TrimSpace(result) == "":
		return "", domain.ErrEmptyCompletion
	case err == nil:
		return result, nil
	case errors.Is(err, domain.ErrProviderTimeout),
		errors.Is(err, domain.ErrProviderError),
		errors.Is(err, domain.ErrEmptyCompletion):
		return "", err
	case errors.Is(err, context.DeadlineExceeded), errors.Is(callCtx.Err(), context.DeadlineExceeded):
		return "", fmt.Errorf("%w: %w", domain.ErrProviderTimeout, err)
	default:
		return "", fmt.Errorf("%w: %w", domain.ErrProviderError, err)
	}
}
