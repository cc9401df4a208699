package service

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RizzWan-Codes/homedoctor.ai/internal/domain"
	"github.com/RizzWan-Codes/homedoctor.ai/internal/repository"
	"github.com/RizzWan-Codes/homedoctor.ai/internal/testutil"
)

type recordingPublisher struct {
	mu        sync.Mutex
	published []domain.BalanceEvent
	err       error
}

func (p *recordingPublisher) Publish(_ context.Context, events []domain.BalanceEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.published = append(p.published, events...)
	return nil
}

func seedDebit(t *testing.T, accounts *repository.AccountRepository, userID string, before int64) {
	t.Helper()
	err := accounts.Apply(context.Background(), domain.BalanceMutation{
		UserID:   userID,
		Expected: before,
		New:      before - 20,
		Event: &domain.BalanceEvent{
			ID:            uuid.New(),
			OperationID:   uuid.New(),
			UserID:        userID,
			EventType:     domain.EventTypeDebit,
			Reason:        domain.ReasonConsultation,
			Amount:        20,
			BalanceBefore: before,
			BalanceAfter:  before - 20,
			CreatedAt:     time.Now().UTC(),
		},
	})
	require.NoError(t, err)
}

func TestEventRelay_RelayOnce(t *testing.T) {
	db := testutil.SetupTestDB(t)
	accounts := repository.NewAccountRepository(db)
	events := repository.NewBalanceEventRepository(db)
	ctx := context.Background()

	acct := testutil.SeedAccount(t, db, "relay@test.com", 60)
	seedDebit(t, accounts, acct.UserID, 60)
	seedDebit(t, accounts, acct.UserID, 40)

	pub := &recordingPublisher{}
	relay := NewEventRelay(db, events, pub, slog.Default(), time.Second)

	n, err := relay.RelayOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	require.Len(t, pub.published, 2)
	assert.Equal(t, int64(60), pub.published[0].BalanceBefore)

	n, err = relay.RelayOnce(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Len(t, pub.published, 2)
}

func TestEventRelay_PublishFailureKeepsEvents(t *testing.T) {
	db := testutil.SetupTestDB(t)
	accounts := repository.NewAccountRepository(db)
	events := repository.NewBalanceEventRepository(db)
	ctx := context.Background()

	acct := testutil.SeedAccount(t, db, "relay-fail@test.com", 20)
	seedDebit(t, accounts, acct.UserID, 20)

	pub := &recordingPublisher{err: errors.New("broker unavailable")}
	relay := NewEventRelay(db, events, pub, slog.Default(), time.Second)

	_, err := relay.RelayOnce(ctx)
	require.Error(t, err)

	pub.err = nil
	n, err := relay.RelayOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestEventRelay_StartStopsOnCancel(t *testing.T) {
	db := testutil.SetupTestDB(t)
	accounts := repository.NewAccountRepository(db)
	events := repository.NewBalanceEventRepository(db)

	acct := testutil.SeedAccount(t, db, "relay-loop@test.com", 20)
	seedDebit(t, accounts, acct.UserID, 20)

	pub := &recordingPublisher{}
	relay := NewEventRelay(db, events, pub, slog.Default(), 20*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		relay.Start(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool {
		pub.mu.Lock()
		defer pub.mu.Unlock()
		return len(pub.published) == 1
	}, 5*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("relay did not stop")
	}
}
