package pricing

import (
	"fmt"
	"math"

	"github.com/shopspring/decimal"

	"github.com/RizzWan-Codes/homedoctor.ai/internal/domain"
)

var (
	minorUnitsPerMajor = decimal.NewFromInt(100)
	maxAmount          = decimal.NewFromInt(math.MaxInt64)
)

type Quote struct {
	Coins     int64
	Amount    int64
	Currency  string
	UnitPrice decimal.Decimal
}

type Service struct {
	unit         int64
	maxCoins     int64
	pricePerCoin decimal.Decimal
	currency     string
}

// NewService prices coins sold in blocks of unit, at most maxCoins per
// top-up. pricePerCoin is in the currency's major unit, e.g. "1.00" rupee
// per coin.
func NewService(unit, maxCoins int64, pricePerCoin, currency string) (*Service, error) {
	if unit <= 0 {
		return nil, fmt.Errorf("NewService: unit must be positive, got %d", unit)
	}
	if maxCoins < unit {
		return nil, fmt.Errorf("NewService: max coins %d is below one unit of %d", maxCoins, unit)
	}
	price, err := decimal.NewFromString(pricePerCoin)
	if err != nil {
		return nil, fmt.Errorf("NewService: price per coin: %w", err)
	}
	if !price.IsPositive() {
		return nil, fmt.Errorf("NewService: price per coin must be positive, got %s", price)
	}
	return &Service{unit: unit, maxCoins: maxCoins, pricePerCoin: price, currency: currency}, nil
}

// ValidateCoins rejects top-up quantities below one unit, above the
// per-order cap or not a whole number of units.
func (s *Service) ValidateCoins(coins int64) error {
	if coins < s.unit || coins%s.unit != 0 {
		return fmt.Errorf("ValidateCoins: coins must be a multiple of %d and at least %d: %w", s.unit, s.unit, domain.ErrInvalidInput)
	}
	if coins > s.maxCoins {
		return fmt.Errorf("ValidateCoins: at most %d coins per top-up: %w", s.maxCoins, domain.ErrInvalidInput)
	}
	return nil
}

// ValidateCost applies the same unit rule to the price of a metered call.
func (s *Service) ValidateCost(cost int64) error {
	if cost <= 0 || cost%s.unit != 0 {
		return fmt.Errorf("ValidateCost: %d: %w", cost, domain.ErrInvalidCost)
	}
	return nil
}

func (s *Service) Quote(coins int64) (*Quote, error) {
	if err := s.ValidateCoins(coins); err != nil {
		return nil, fmt.Errorf("Quote: %w", err)
	}

	amount := decimal.NewFromInt(coins).
		Mul(s.pricePerCoin).
		Mul(minorUnitsPerMajor).
		Round(0)
	// IntPart wraps silently outside int64.
	if amount.GreaterThan(maxAmount) {
		return nil, fmt.Errorf("Quote: amount for %d coins out of range: %w", coins, domain.ErrInvalidInput)
	}

	return &Quote{
		Coins:     coins,
		Amount:    amount.IntPart(),
		Currency:  s.currency,
		UnitPrice: s.pricePerCoin,
	}, nil
}
