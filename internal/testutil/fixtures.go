package testutil

import (
	"database/sql"
	"testing"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/RizzWan-Codes/homedoctor.ai/internal/domain"
)

const TestPassword = "password123"

func SeedAccount(t *testing.T, db *sql.DB, email string, coins int64) *domain.Account {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte(TestPassword), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	a := &domain.Account{
		UserID:       uuid.NewString(),
		Email:        email,
		Name:         "Test Patient",
		PasswordHash: string(hash),
		Coins:        coins,
		CreatedAt:    time.Now().UTC(),
	}

	_, err = db.Exec(
		`INSERT INTO users (id, email, name, password_hash, coins, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		a.UserID, a.Email, a.Name, a.PasswordHash, a.Coins, a.CreatedAt,
	)
	if err != nil {
		t.Fatalf("seed account %s: %v", email, err)
	}
	return a
}

func SeedOrder(t *testing.T, db *sql.DB, userID, orderID string, coins int64) *domain.PaymentOrder {
	t.Helper()

	o := &domain.PaymentOrder{
		OrderID:   orderID,
		UserID:    userID,
		Coins:     coins,
		Amount:    coins * 100,
		Currency:  "INR",
		Receipt:   "rcpt_" + orderID,
		Status:    domain.OrderStatusCreated,
		CreatedAt: time.Now().UTC(),
	}
	_, err := db.Exec(
		`INSERT INTO payment_orders (order_id, user_id, coins, amount, currency, receipt, status, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		o.OrderID, o.UserID, o.Coins, o.Amount, o.Currency, o.Receipt, o.Status, o.CreatedAt,
	)
	if err != nil {
		t.Fatalf("seed order %s: %v", orderID, err)
	}
	return o
}

func GetCoins(t *testing.T, db *sql.DB, userID string) int64 {
	t.Helper()

	var coins int64
	err := db.QueryRow(`SELECT coins FROM users WHERE id = $1`, userID).Scan(&coins)
	if err != nil {
		t.Fatalf("get coins %s: %v", userID, err)
	}
	return coins
}

func CountBalanceEvents(t *testing.T, db *sql.DB, userID string) int {
	t.Helper()

	var count int
	err := db.QueryRow(`SELECT COUNT(*) FROM balance_events WHERE user_id = $1`, userID).Scan(&count)
	if err != nil {
		t.Fatalf("count balance events for %s: %v", userID, err)
	}
	return count
}
