package billing

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/RizzWan-Codes/homedoctor.ai/internal/domain"
	"github.com/RizzWan-Codes/homedoctor.ai/internal/pricing"
)

type ledger interface {
	Get(ctx context.Context, userID string) (*domain.Account, error)
	Apply(ctx context.Context, m domain.BalanceMutation) error
}

// eventLog answers whether a write whose acknowledgement was lost
// actually committed.
type eventLog interface {
	ListByOperation(ctx context.Context, operationID uuid.UUID) ([]domain.BalanceEvent, error)
}

type orderStore interface {
	Create(ctx context.Context, o *domain.PaymentOrder) error
	GetByID(ctx context.Context, orderID string) (*domain.PaymentOrder, error)
}

type paymentGateway interface {
	CreateOrder(ctx context.Context, amount int64, currency, receipt string) (string, error)
}

type Options struct {
	DebitMaxAttempts int
	ProviderTimeout  time.Duration

	CompensationTimeout         time.Duration
	CompensationMaxAttempts     int
	CompensationInitialInterval time.Duration
	CompensationMaxInterval     time.Duration

	// KeySecret signs payment verifications.
	KeySecret string
}

func (o Options) withDefaults() Options {
	if o.DebitMaxAttempts < 1 {
		o.DebitMaxAttempts = 3
	}
	if o.ProviderTimeout <= 0 {
		o.ProviderTimeout = 25 * time.Second
	}
	if o.CompensationTimeout <= 0 {
		o.CompensationTimeout = 30 * time.Second
	}
	if o.CompensationMaxAttempts < 1 {
		o.CompensationMaxAttempts = 6
	}
	if o.CompensationInitialInterval <= 0 {
		o.CompensationInitialInterval = 200 * time.Millisecond
	}
	if o.CompensationMaxInterval <= 0 {
		o.CompensationMaxInterval = 4 * time.Second
	}
	return o
}

// Coordinator sequences every coin movement. It holds no balance state;
// concurrent requests are serialized only by the ledger's conditional write.
type Coordinator struct {
	ledger  ledger
	events  eventLog
	orders  orderStore
	gateway paymentGateway
	pricing *pricing.Service
	opts    Options
	now     func() time.Time
}

func NewCoordinator(l ledger, events eventLog, orders orderStore, gateway paymentGateway, p *pricing.Service, opts Options) *Coordinator {
	return &Coordinator{
		ledger:  l,
		events:  events,
		orders:  orders,
		gateway: gateway,
		pricing: p,
		opts:    opts.withDefaults(),
		now:     func() time.Time { return time.Now().UTC() },
	}
}
