package billing

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/RizzWan-Codes/homedoctor.ai/internal/domain"
	"github.com/RizzWan-Codes/homedoctor.ai/internal/pricing"
)

// memStore is an in-memory ledger and order store with the same
// conditional-write semantics as the Postgres repositories.
type memStore struct {
	mu       sync.Mutex
	accounts map[string]int64
	orders   map[string]domain.PaymentOrder
	events   []domain.BalanceEvent
	seen     map[uuid.UUID]bool

	gets    atomic.Int64
	applies atomic.Int64

	// hook runs before a mutation is applied; a non-nil error aborts it.
	hook func(m domain.BalanceMutation) error
	// ackLoss, when it returns true, applies the mutation and then
	// reports a failure to the caller.
	ackLoss func(m domain.BalanceMutation) bool
	// listErr fails every ListByOperation call.
	listErr error
	lookups atomic.Int64
}

func newMemStore() *memStore {
	return &memStore{
		accounts: make(map[string]int64),
		orders:   make(map[string]domain.PaymentOrder),
		seen:     make(map[uuid.UUID]bool),
	}
}

func (s *memStore) seed(userID string, coins int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accounts[userID] = coins
}

func (s *memStore) coins(userID string) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.accounts[userID]
}

func (s *memStore) eventsFor(opID uuid.UUID) []domain.BalanceEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.BalanceEvent
	for _, e := range s.events {
		if e.OperationID == opID {
			out = append(out, e)
		}
	}
	return out
}

func (s *memStore) allEvents() []domain.BalanceEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.BalanceEvent(nil), s.events...)
}

func (s *memStore) Get(_ context.Context, userID string) (*domain.Account, error) {
	s.gets.Add(1)
	s.mu.Lock()
	defer s.mu.Unlock()
	coins, ok := s.accounts[userID]
	if !ok {
		return nil, fmt.Errorf("Get: %w", domain.ErrAccountNotFound)
	}
	return &domain.Account{UserID: userID, Coins: coins}, nil
}

func (s *memStore) Apply(_ context.Context, m domain.BalanceMutation) error {
	s.applies.Add(1)
	if s.hook != nil {
		if err := s.hook(m); err != nil {
			return err
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if m.New < 0 {
		return domain.ErrInsufficientBalance
	}
	coins, ok := s.accounts[m.UserID]
	if !ok {
		return domain.ErrAccountNotFound
	}
	if coins != m.Expected {
		return domain.ErrBalanceConflict
	}
	if m.Event != nil && s.seen[m.Event.ID] {
		return domain.ErrAlreadyApplied
	}
	if m.ConsumeOrderID != "" {
		o, ok := s.orders[m.ConsumeOrderID]
		if !ok || o.UserID != m.UserID || o.Status != domain.OrderStatusCreated {
			return domain.ErrOrderConsumed
		}
		o.Status = domain.OrderStatusPaid
		pid := m.PaymentID
		o.PaymentID = &pid
		s.orders[m.ConsumeOrderID] = o
	}

	s.accounts[m.UserID] = m.New
	if m.Event != nil {
		s.seen[m.Event.ID] = true
		s.events = append(s.events, *m.Event)
	}

	if s.ackLoss != nil && s.ackLoss(m) {
		return errors.New("connection reset after commit")
	}
	return nil
}

func (s *memStore) ListByOperation(_ context.Context, opID uuid.UUID) ([]domain.BalanceEvent, error) {
	s.lookups.Add(1)
	if s.listErr != nil {
		return nil, s.listErr
	}
	return s.eventsFor(opID), nil
}

func (s *memStore) Create(_ context.Context, o *domain.PaymentOrder) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.orders[o.OrderID] = *o
	return nil
}

func (s *memStore) GetByID(_ context.Context, orderID string) (*domain.PaymentOrder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[orderID]
	if !ok {
		return nil, fmt.Errorf("GetByID: %w", domain.ErrOrderNotFound)
	}
	return &o, nil
}

func (s *memStore) orderCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.orders)
}

type stubGateway struct {
	calls atomic.Int64
	err   error
}

func (g *stubGateway) CreateOrder(_ context.Context, amount int64, currency, receipt string) (string, error) {
	n := g.calls.Add(1)
	if g.err != nil {
		return "", g.err
	}
	return fmt.Sprintf("order_%d", n), nil
}

const testKeySecret = "test_key_secret"

func newTestCoordinator(t *testing.T, store *memStore, gw *stubGateway, opts Options) *Coordinator {
	t.Helper()
	p, err := pricing.NewService(20, 100000, "1.00", "INR")
	require.NoError(t, err)

	if opts.KeySecret == "" {
		opts.KeySecret = testKeySecret
	}
	if opts.CompensationInitialInterval == 0 {
		opts.CompensationInitialInterval = time.Millisecond
	}
	if opts.CompensationMaxInterval == 0 {
		opts.CompensationMaxInterval = 5 * time.Millisecond
	}
	if gw == nil {
		gw = &stubGateway{}
	}
	return NewCoordinator(store, store, store, gw, p, opts)
}
