package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/RizzWan-Codes/homedoctor.ai/internal/domain"
)

const orderColumns = `order_id, user_id, coins, amount, currency, receipt, status,
	payment_id, created_at, paid_at`

type OrderRepository struct {
	db *sql.DB
}

func NewOrderRepository(db *sql.DB) *OrderRepository {
	return &OrderRepository{db: db}
}

func (r *OrderRepository) Create(ctx context.Context, o *domain.PaymentOrder) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO payment_orders (
			order_id, user_id, coins, amount, currency, receipt, status, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		o.OrderID, o.UserID, o.Coins, o.Amount, o.Currency, o.Receipt, o.Status, o.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("Create: %w", err)
	}
	return nil
}

func (r *OrderRepository) GetByID(ctx context.Context, orderID string) (*domain.PaymentOrder, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+orderColumns+` FROM payment_orders WHERE order_id = $1`, orderID,
	)
	var o domain.PaymentOrder
	err := row.Scan(
		&o.OrderID, &o.UserID, &o.Coins, &o.Amount, &o.Currency, &o.Receipt, &o.Status,
		&o.PaymentID, &o.CreatedAt, &o.PaidAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("GetByID: %w", domain.ErrOrderNotFound)
		}
		return nil, fmt.Errorf("GetByID: %w", err)
	}
	return &o, nil
}
