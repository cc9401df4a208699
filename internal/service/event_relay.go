package service

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/RizzWan-Codes/homedoctor.ai/internal/domain"
)

type balanceEventOutbox interface {
	ClaimUnpublished(ctx context.Context, tx *sql.Tx, limit int) ([]domain.BalanceEvent, error)
	MarkPublished(ctx context.Context, tx *sql.Tx, ids []uuid.UUID) error
}

type eventPublisher interface {
	Publish(ctx context.Context, events []domain.BalanceEvent) error
}

// EventRelay copies committed balance events to the broker. Postgres stays
// the source of truth; delivery is at least once.
type EventRelay struct {
	db        *sql.DB
	outbox    balanceEventOutbox
	publisher eventPublisher
	logger    *slog.Logger
	interval  time.Duration
	batchSize int
}

func NewEventRelay(db *sql.DB, outbox balanceEventOutbox, publisher eventPublisher, logger *slog.Logger, interval time.Duration) *EventRelay {
	return &EventRelay{
		db:        db,
		outbox:    outbox,
		publisher: publisher,
		logger:    logger,
		interval:  interval,
		batchSize: 100,
	}
}

func (r *EventRelay) Start(ctx context.Context) {
	r.logger.Info("event relay started", "interval", r.interval)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("event relay stopped")
			return
		case <-ticker.C:
			r.drain(ctx)
		}
	}
}

func (r *EventRelay) drain(ctx context.Context) {
	for {
		n, err := r.RelayOnce(ctx)
		if err != nil {
			r.logger.Error("failed to relay balance events", "error", err)
			return
		}
		if n < r.batchSize {
			return
		}
	}
}

// RelayOnce publishes one batch and returns how many events it marked.
// A failed publish leaves the batch unpublished for the next poll.
func (r *EventRelay) RelayOnce(ctx context.Context) (int, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("RelayOnce: begin tx: %w", err)
	}
	defer tx.Rollback()

	events, err := r.outbox.ClaimUnpublished(ctx, tx, r.batchSize)
	if err != nil {
		return 0, fmt.Errorf("RelayOnce: %w", err)
	}
	if len(events) == 0 {
		return 0, nil
	}

	if err := r.publisher.Publish(ctx, events); err != nil {
		return 0, fmt.Errorf("RelayOnce: %w", err)
	}

	ids := make([]uuid.UUID, len(events))
	for i, e := range events {
		ids[i] = e.ID
	}
	if err := r.outbox.MarkPublished(ctx, tx, ids); err != nil {
		return 0, fmt.Errorf("RelayOnce: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("RelayOnce: commit: %w", err)
	}

	r.logger.Debug("balance events relayed", "count", len(events))
	return len(events), nil
}
