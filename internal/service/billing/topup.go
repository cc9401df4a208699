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

// CreateTopUp opens a payment order for coins. The balance is untouched
// until the order is verified.
func (c *Coordinator) CreateTopUp(ctx context.Context, userID string, coins int64) (*domain.PaymentOrder, error) {
	quote, err := c.pricing.Quote(coins)
	if err != nil {
		return nil, fmt.Errorf("CreateTopUp: %w", err)
	}

	if _, err := c.ledger.Get(ctx, userID); err != nil {
		return nil, fmt.Errorf("CreateTopUp: %w", err)
	}

	receipt := "rcpt_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:20]
	orderID, err := c.gateway.CreateOrder(ctx, quote.Amount, quote.Currency, receipt)
	if err != nil {
		return nil, fmt.Errorf("CreateTopUp: create order: %w", err)
	}

	order := &domain.PaymentOrder{
		OrderID:   orderID,
		UserID:    userID,
		Coins:     coins,
		Amount:    quote.Amount,
		Currency:  quote.Currency,
		Receipt:   receipt,
		Status:    domain.OrderStatusCreated,
		CreatedAt: c.now(),
	}
	if err := c.orders.Create(ctx, order); err != nil {
		return nil, fmt.Errorf("CreateTopUp: %w", err)
	}

	logging.FromContext(ctx).Info("top-up order created",
		"user_id", userID,
		"order_id", orderID,
		"coins", coins,
		"amount", quote.Amount,
		"currency", quote.Currency,
	)
	return order, nil
}

// VerifyTopUp checks the provider signature and credits the order's coins
// exactly once. The credited amount always comes from the stored order.
func (c *Coordinator) VerifyTopUp(ctx context.Context, v domain.PaymentVerification, userID string) (int64, error) {
	if v.OrderID == "" || v.PaymentID == "" || v.Signature == "" {
		return 0, fmt.Errorf("VerifyTopUp: order id, payment id and signature are required: %w", domain.ErrInvalidInput)
	}

	if !VerifySignature(c.opts.KeySecret, v.OrderID, v.PaymentID, v.Signature) {
		logging.SecurityEvent(ctx, "payment signature mismatch",
			"user_id", userID,
			"order_id", v.OrderID,
			"payment_id", v.PaymentID,
		)
		return 0, fmt.Errorf("VerifyTopUp: %w", domain.ErrSignatureMismatch)
	}

	order, err := c.orders.GetByID(ctx, v.OrderID)
	if err != nil {
		return 0, fmt.Errorf("VerifyTopUp: %w", err)
	}
	if order.UserID != userID {
		logging.SecurityEvent(ctx, "verification for another user's order",
			"user_id", userID,
			"order_id", v.OrderID,
		)
		return 0, fmt.Errorf("VerifyTopUp: %w", domain.ErrOrderNotFound)
	}
	if order.Status == domain.OrderStatusPaid {
		return 0, fmt.Errorf("VerifyTopUp: %w", domain.ErrOrderConsumed)
	}

	opID := uuid.New()
	credit := c.creditPlan(opID, order.Coins, domain.ReasonTopUp)
	balance, err := c.applyWithRetry(ctx, userID, func(acct *domain.Account) (domain.BalanceMutation, error) {
		m, err := credit(acct)
		m.ConsumeOrderID = order.OrderID
		m.PaymentID = v.PaymentID
		return m, err
	})
	if err != nil {
		if errors.Is(err, domain.ErrOrderConsumed) {
			logging.FromContext(ctx).Warn("replayed payment verification",
				"user_id", userID,
				"order_id", v.OrderID,
				"payment_id", v.PaymentID,
			)
		}
		return 0, fmt.Errorf("VerifyTopUp: %w", err)
	}

	logging.FromContext(ctx).Info("top-up credited",
		"user_id", userID,
		"order_id", order.OrderID,
		"payment_id", v.PaymentID,
		"coins", order.Coins,
		"balance", balance,
	)
	return balance, nil
}
