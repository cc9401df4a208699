package domain

import "time"

type OrderStatus string

const (
	OrderStatusCreated OrderStatus = "created"
	OrderStatusPaid    OrderStatus = "paid"
)

// PaymentOrder is a top-up order created at the payment provider. Amount is
// in the currency's minor unit.
type PaymentOrder struct {
	OrderID   string
	UserID    string
	Coins     int64
	Amount    int64
	Currency  string
	Receipt   string
	Status    OrderStatus
	PaymentID *string
	CreatedAt time.Time
	PaidAt    *time.Time
}

// PaymentVerification is what the client submits after completing checkout.
type PaymentVerification struct {
	OrderID   string
	PaymentID string
	Signature string
}
