package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// StoredResponse is the response to a keyed POST. Keys are scoped to the
// user and the route. OperationID is set when the response charged coins,
// so a replay can be traced to its balance events.
type StoredResponse struct {
	UserID       string
	Route        string
	Key          string
	RequestHash  string
	StatusCode   int
	ResponseBody []byte
	OperationID  *uuid.UUID
	Replays      int
	CreatedAt    time.Time
	ExpiresAt    time.Time
}

type ResponseStore struct {
	db *sql.DB
}

func NewResponseStore(db *sql.DB) *ResponseStore {
	return &ResponseStore{db: db}
}

// Find returns nil, nil when no live response is stored for the key.
func (s *ResponseStore) Find(ctx context.Context, userID, route, key string) (*StoredResponse, error) {
	var (
		sr   StoredResponse
		opID uuid.NullUUID
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT user_id, route, idempotency_key, request_hash, status_code, response_body,
			operation_id, replays, created_at, expires_at
		FROM idempotent_responses
		WHERE user_id = $1 AND route = $2 AND idempotency_key = $3 AND expires_at > now()`,
		userID, route, key,
	).Scan(&sr.UserID, &sr.Route, &sr.Key, &sr.RequestHash, &sr.StatusCode, &sr.ResponseBody,
		&opID, &sr.Replays, &sr.CreatedAt, &sr.ExpiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("Find: %w", err)
	}
	if opID.Valid {
		sr.OperationID = &opID.UUID
	}
	return &sr, nil
}

// Save keeps the first response stored for a key; later saves are ignored.
func (s *ResponseStore) Save(ctx context.Context, sr *StoredResponse) error {
	var opID uuid.NullUUID
	if sr.OperationID != nil {
		opID = uuid.NullUUID{UUID: *sr.OperationID, Valid: true}
	}
	body := sr.ResponseBody
	if body == nil {
		body = []byte{}
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO idempotent_responses (
			user_id, route, idempotency_key, request_hash, status_code, response_body,
			operation_id, created_at, expires_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (user_id, route, idempotency_key) DO NOTHING`,
		sr.UserID, sr.Route, sr.Key, sr.RequestHash, sr.StatusCode, body,
		opID, sr.CreatedAt, sr.ExpiresAt,
	)
	if err != nil {
		return fmt.Errorf("Save: %w", err)
	}
	return nil
}

// RecordReplay counts a served replay. A high count on a consultation key
// usually means a client retry loop.
func (s *ResponseStore) RecordReplay(ctx context.Context, userID, route, key string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE idempotent_responses
		SET replays = replays + 1, last_replayed_at = now()
		WHERE user_id = $1 AND route = $2 AND idempotency_key = $3`,
		userID, route, key,
	)
	if err != nil {
		return fmt.Errorf("RecordReplay: %w", err)
	}
	return nil
}

// Purge deletes responses that expired before cutoff.
func (s *ResponseStore) Purge(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM idempotent_responses WHERE expires_at < $1`, cutoff,
	)
	if err != nil {
		return 0, fmt.Errorf("Purge: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("Purge: rows affected: %w", err)
	}
	return n, nil
}
