package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/RizzWan-Codes/homedoctor.ai/internal/auth"
	"github.com/RizzWan-Codes/homedoctor.ai/internal/handler"
	"github.com/RizzWan-Codes/homedoctor.ai/internal/logging"
	"github.com/RizzWan-Codes/homedoctor.ai/internal/repository"
)

const idempotencyHeader = "Idempotency-Key"

type responseStore interface {
	Find(ctx context.Context, userID, route, key string) (*repository.StoredResponse, error)
	Save(ctx context.Context, sr *repository.StoredResponse) error
	RecordReplay(ctx context.Context, userID, route, key string) error
}

// Idempotency replays the stored response when a POST is repeated on the
// same route with the same Idempotency-Key, so a double-submitted
// consultation is charged once. Requests without the header pass through.
// 5xx responses are not stored, letting the client retry under the same key.
// The operation id a handler reports in X-Operation-ID is stored with the
// response and echoed on replay.
func Idempotency(store responseStore, ttl time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := r.Header.Get(idempotencyHeader)
			if key == "" || r.Method != http.MethodPost {
				next.ServeHTTP(w, r)
				return
			}
			if len(key) > 255 {
				handler.RespondValidationError(w, []handler.FieldError{{Field: idempotencyHeader, Message: "must be at most 255 characters"}})
				return
			}

			userID, ok := auth.UserIDFromContext(r.Context())
			if !ok {
				handler.RespondAppError(w, handler.ErrMissingToken, nil)
				return
			}
			route := r.URL.Path
			log := logging.FromContext(r.Context()).With("idempotency_key", key, "route", route)

			body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
			if err != nil {
				handler.RespondAppError(w, handler.ErrInvalidRequest, nil)
				return
			}
			r.Body = io.NopCloser(bytes.NewReader(body))

			bodyHash := hashBody(body)

			stored, err := store.Find(r.Context(), userID, route, key)
			if err != nil {
				log.Error("stored response lookup failed", "error", err)
				handler.RespondAppError(w, handler.ErrInternalError, nil)
				return
			}

			if stored != nil {
				if stored.RequestHash != bodyHash {
					handler.RespondAppError(w, handler.ErrIdempotencyConflict, nil)
					return
				}
				replay(w, stored, log)
				if err := store.RecordReplay(context.WithoutCancel(r.Context()), userID, route, key); err != nil {
					log.Warn("failed to count replay", "error", err)
				}
				return
			}

			rec := &responseRecorder{ResponseWriter: w, body: &bytes.Buffer{}, statusCode: http.StatusOK}
			next.ServeHTTP(rec, r)

			if rec.statusCode >= http.StatusInternalServerError {
				return
			}

			now := time.Now().UTC()
			sr := &repository.StoredResponse{
				UserID:       userID,
				Route:        route,
				Key:          key,
				RequestHash:  bodyHash,
				StatusCode:   rec.statusCode,
				ResponseBody: rec.body.Bytes(),
				CreatedAt:    now,
				ExpiresAt:    now.Add(ttl),
			}
			if id, err := uuid.Parse(rec.Header().Get(handler.OperationIDHeader)); err == nil {
				sr.OperationID = &id
			}
			// The response is already written; store it even if the client left.
			if err := store.Save(context.WithoutCancel(r.Context()), sr); err != nil {
				log.Error("failed to store response", "error", err)
			}
		})
	}
}

func replay(w http.ResponseWriter, sr *repository.StoredResponse, log *slog.Logger) {
	args := []any{"status", sr.StatusCode, "replays", sr.Replays + 1}
	if sr.OperationID != nil {
		w.Header().Set(handler.OperationIDHeader, sr.OperationID.String())
		args = append(args, "operation_id", sr.OperationID.String())
	}
	log.Info("idempotent replay", args...)

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Idempotent-Replayed", "true")
	w.WriteHeader(sr.StatusCode)
	if _, err := w.Write(sr.ResponseBody); err != nil {
		log.Error("failed to write idempotent replay", "error", err)
	}
}

func hashBody(body []byte) string {
	sum := sha256.Sum256(body)
	return hex.EncodeToString(sum[:])
}

type responseRecorder struct {
	http.ResponseWriter
	statusCode int
	body       *bytes.Buffer
}

func (r *responseRecorder) WriteHeader(code int) {
	r.statusCode = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *responseRecorder) Write(b []byte) (int, error) {
	r.body.Write(b)
	return r.ResponseWriter.Write(b)
}
