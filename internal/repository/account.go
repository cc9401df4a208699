package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/RizzWan-Codes/homedoctor.ai/internal/domain"
)

const accountColumns = `id, email, name, password_hash, coins, created_at`

// AccountRepository is the ledger store: balances live in users.coins and
// are only changed through Apply's conditional update.
type AccountRepository struct {
	db *sql.DB
}

func NewAccountRepository(db *sql.DB) *AccountRepository {
	return &AccountRepository{db: db}
}

func (r *AccountRepository) Get(ctx context.Context, userID string) (*domain.Account, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+accountColumns+` FROM users WHERE id = $1`, userID,
	)
	a, err := scanAccount(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("Get: %w", domain.ErrAccountNotFound)
		}
		return nil, fmt.Errorf("Get: %w", err)
	}
	return a, nil
}

func (r *AccountRepository) GetByEmail(ctx context.Context, email string) (*domain.Account, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+accountColumns+` FROM users WHERE email = $1`, email,
	)
	a, err := scanAccount(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("GetByEmail: %w", domain.ErrNotFound)
		}
		return nil, fmt.Errorf("GetByEmail: %w", err)
	}
	return a, nil
}

// Create inserts a new account. A non-zero opening balance is recorded as a
// credit event so the audit trail sums to the stored coins.
func (r *AccountRepository) Create(ctx context.Context, a *domain.Account) error {
	err := inTx(ctx, r.db, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO users (`+accountColumns+`) VALUES ($1, $2, $3, $4, $5, $6)`,
			a.UserID, a.Email, a.Name, a.PasswordHash, a.Coins, a.CreatedAt,
		)
		if err != nil {
			if isUniqueViolation(err) {
				return domain.ErrEmailTaken
			}
			return err
		}
		if a.Coins == 0 {
			return nil
		}

		opID := uuid.New()
		return insertBalanceEvent(ctx, tx, &domain.BalanceEvent{
			ID:            opID,
			OperationID:   opID,
			UserID:        a.UserID,
			EventType:     domain.EventTypeCredit,
			Reason:        domain.ReasonOpening,
			Amount:        a.Coins,
			BalanceBefore: 0,
			BalanceAfter:  a.Coins,
			CreatedAt:     a.CreatedAt,
		})
	})
	if err != nil {
		return fmt.Errorf("Create: %w", err)
	}
	return nil
}

// Apply performs one conditional balance write together with its audit
// event and, for top-ups, the consumption of the payment order. Nothing is
// written unless every step succeeds.
func (r *AccountRepository) Apply(ctx context.Context, m domain.BalanceMutation) error {
	if m.New < 0 {
		return fmt.Errorf("Apply: %w", domain.ErrInsufficientBalance)
	}

	err := inTx(ctx, r.db, func(tx *sql.Tx) error {
		if m.ConsumeOrderID != "" {
			if err := consumeOrder(ctx, tx, m.ConsumeOrderID, m.UserID, m.PaymentID); err != nil {
				return err
			}
		}

		res, err := tx.ExecContext(ctx,
			`UPDATE users SET coins = $1 WHERE id = $2 AND coins = $3`,
			m.New, m.UserID, m.Expected,
		)
		if err != nil {
			return fmt.Errorf("update coins: %w", err)
		}
		rows, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("rows affected: %w", err)
		}
		if rows == 0 {
			return r.missOrConflict(ctx, tx, m.UserID)
		}

		if m.Event != nil {
			if err := insertBalanceEvent(ctx, tx, m.Event); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("Apply: %w", err)
	}
	return nil
}

func (r *AccountRepository) missOrConflict(ctx context.Context, tx *sql.Tx, userID string) error {
	var exists bool
	err := tx.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM users WHERE id = $1)`, userID,
	).Scan(&exists)
	if err != nil {
		return fmt.Errorf("check account: %w", err)
	}
	if !exists {
		return domain.ErrAccountNotFound
	}
	return domain.ErrBalanceConflict
}

func consumeOrder(ctx context.Context, tx execer, orderID, userID, paymentID string) error {
	res, err := tx.ExecContext(ctx,
		`UPDATE payment_orders SET status = $1, payment_id = $2, paid_at = now()
		WHERE order_id = $3 AND user_id = $4 AND status = $5`,
		domain.OrderStatusPaid, paymentID, orderID, userID, domain.OrderStatusCreated,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrOrderConsumed
		}
		return fmt.Errorf("consume order: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("consume order: rows affected: %w", err)
	}
	if rows == 0 {
		return domain.ErrOrderConsumed
	}
	return nil
}

func scanAccount(s scanner) (*domain.Account, error) {
	var a domain.Account
	err := s.Scan(&a.UserID, &a.Email, &a.Name, &a.PasswordHash, &a.Coins, &a.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &a, nil
}
