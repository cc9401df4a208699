package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/RizzWan-Codes/homedoctor.ai/internal/domain"
)

const balanceEventColumns = `id, operation_id, user_id, event_type, reason, amount,
	balance_before, balance_after, created_at, published_at`

type BalanceEventRepository struct {
	db *sql.DB
}

func NewBalanceEventRepository(db *sql.DB) *BalanceEventRepository {
	return &BalanceEventRepository{db: db}
}

func insertBalanceEvent(ctx context.Context, tx execer, e *domain.BalanceEvent) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO balance_events (
			id, operation_id, user_id, event_type, reason, amount,
			balance_before, balance_after, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		e.ID, e.OperationID, e.UserID, e.EventType, e.Reason, e.Amount,
		e.BalanceBefore, e.BalanceAfter, e.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrAlreadyApplied
		}
		return fmt.Errorf("insert balance event: %w", err)
	}
	return nil
}

func (r *BalanceEventRepository) ListByUser(ctx context.Context, userID string, limit int) ([]domain.BalanceEvent, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+balanceEventColumns+` FROM balance_events
		WHERE user_id = $1 ORDER BY created_at DESC LIMIT $2`,
		userID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("ListByUser: %w", err)
	}
	defer rows.Close()

	events, err := scanBalanceEvents(rows)
	if err != nil {
		return nil, fmt.Errorf("ListByUser: %w", err)
	}
	return events, nil
}

func (r *BalanceEventRepository) ListByOperation(ctx context.Context, operationID uuid.UUID) ([]domain.BalanceEvent, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+balanceEventColumns+` FROM balance_events
		WHERE operation_id = $1 ORDER BY created_at`,
		operationID,
	)
	if err != nil {
		return nil, fmt.Errorf("ListByOperation: %w", err)
	}
	defer rows.Close()

	events, err := scanBalanceEvents(rows)
	if err != nil {
		return nil, fmt.Errorf("ListByOperation: %w", err)
	}
	return events, nil
}

// ClaimUnpublished locks up to limit unpublished events inside tx. SKIP
// LOCKED keeps concurrent relays from claiming the same rows.
func (r *BalanceEventRepository) ClaimUnpublished(ctx context.Context, tx *sql.Tx, limit int) ([]domain.BalanceEvent, error) {
	rows, err := tx.QueryContext(ctx,
		`SELECT `+balanceEventColumns+` FROM balance_events
		WHERE published_at IS NULL ORDER BY created_at LIMIT $1 FOR UPDATE SKIP LOCKED`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("ClaimUnpublished: %w", err)
	}
	defer rows.Close()

	events, err := scanBalanceEvents(rows)
	if err != nil {
		return nil, fmt.Errorf("ClaimUnpublished: %w", err)
	}
	return events, nil
}

func (r *BalanceEventRepository) MarkPublished(ctx context.Context, tx *sql.Tx, ids []uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}
	strs := make([]string, len(ids))
	for i, id := range ids {
		strs[i] = id.String()
	}

	_, err := tx.ExecContext(ctx,
		`UPDATE balance_events SET published_at = now() WHERE id = ANY($1::uuid[])`,
		pq.Array(strs),
	)
	if err != nil {
		return fmt.Errorf("MarkPublished: %w", err)
	}
	return nil
}

func scanBalanceEvents(rows *sql.Rows) ([]domain.BalanceEvent, error) {
	var events []domain.BalanceEvent
	for rows.Next() {
		var e domain.BalanceEvent
		err := rows.Scan(
			&e.ID, &e.OperationID, &e.UserID, &e.EventType, &e.Reason, &e.Amount,
			&e.BalanceBefore, &e.BalanceAfter, &e.CreatedAt, &e.PublishedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	return events, nil
}
