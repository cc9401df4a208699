package middleware

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RizzWan-Codes/homedoctor.ai/internal/auth"
	"github.com/RizzWan-Codes/homedoctor.ai/internal/handler"
	"github.com/RizzWan-Codes/homedoctor.ai/internal/repository"
)

const testSecret = "middleware-secret"

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var resp handler.APIResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.False(t, resp.Success)
	require.NotNil(t, resp.Error)
	return resp.Error.Code
}

func TestAuth(t *testing.T) {
	valid, err := auth.GenerateToken("user-1", "a@test.com", testSecret, time.Hour)
	require.NoError(t, err)

	var gotUser string
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUser, _ = auth.UserIDFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	})
	h := Auth(testSecret)(next)

	tests := []struct {
		name     string
		header   string
		wantCode int
		wantErr  string
	}{
		{"missing header", "", http.StatusUnauthorized, "MISSING_TOKEN"},
		{"wrong scheme", "Basic abc", http.StatusUnauthorized, "INVALID_TOKEN"},
		{"garbage token", "Bearer nope", http.StatusUnauthorized, "INVALID_TOKEN"},
		{"valid", "Bearer " + valid, http.StatusNoContent, ""},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			gotUser = ""
			req := httptest.NewRequest(http.MethodGet, "/api/v1/me", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			assert.Equal(t, tc.wantCode, rec.Code)
			if tc.wantErr != "" {
				assert.Equal(t, tc.wantErr, decodeError(t, rec))
				assert.Empty(t, gotUser)
			} else {
				assert.Equal(t, "user-1", gotUser)
			}
		})
	}
}

type memResponses struct {
	mu      sync.Mutex
	entries map[string]*repository.StoredResponse
}

func newMemResponses() *memResponses {
	return &memResponses{entries: map[string]*repository.StoredResponse{}}
}

func responseKey(userID, route, key string) string {
	return userID + "|" + route + "|" + key
}

func (m *memResponses) Find(_ context.Context, userID, route, key string) (*repository.StoredResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sr, ok := m.entries[responseKey(userID, route, key)]
	if !ok {
		return nil, nil
	}
	cp := *sr
	return &cp, nil
}

func (m *memResponses) Save(_ context.Context, sr *repository.StoredResponse) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := responseKey(sr.UserID, sr.Route, sr.Key)
	if _, ok := m.entries[k]; !ok {
		m.entries[k] = sr
	}
	return nil
}

func (m *memResponses) RecordReplay(_ context.Context, userID, route, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if sr, ok := m.entries[responseKey(userID, route, key)]; ok {
		sr.Replays++
	}
	return nil
}

func (m *memResponses) get(userID, route, key string) *repository.StoredResponse {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.entries[responseKey(userID, route, key)]
}

func sendKeyed(h http.Handler, path, key, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	if key != "" {
		req.Header.Set("Idempotency-Key", key)
	}
	req = req.WithContext(auth.ContextWithUserID(req.Context(), "user-1"))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestIdempotency(t *testing.T) {
	store := newMemResponses()
	var calls atomic.Int64
	status := http.StatusOK
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := calls.Add(1)
		body, _ := io.ReadAll(r.Body)
		handler.RespondSuccess(w, status, map[string]any{"call": n, "echo": string(body)})
	})
	h := Idempotency(store, time.Hour)(next)

	send := func(key, body string) *httptest.ResponseRecorder {
		return sendKeyed(h, "/api/v1/consultations", key, body)
	}

	first := send("k1", `{"symptoms":"cough"}`)
	require.Equal(t, http.StatusOK, first.Code)

	replay := send("k1", `{"symptoms":"cough"}`)
	assert.Equal(t, http.StatusOK, replay.Code)
	assert.Equal(t, "true", replay.Header().Get("X-Idempotent-Replayed"))
	assert.Equal(t, first.Body.String(), replay.Body.String())
	assert.Equal(t, int64(1), calls.Load())

	conflict := send("k1", `{"symptoms":"fever"}`)
	assert.Equal(t, http.StatusConflict, conflict.Code)
	assert.Equal(t, "IDEMPOTENCY_CONFLICT", decodeError(t, conflict))

	send("", `{"symptoms":"cough"}`)
	send("", `{"symptoms":"cough"}`)
	assert.Equal(t, int64(3), calls.Load())

	status = http.StatusBadGateway
	send("k2", `{}`)
	send("k2", `{}`)
	assert.Equal(t, int64(5), calls.Load(), "5xx responses are not replayed")
}

func TestIdempotency_KeyScopedToRoute(t *testing.T) {
	store := newMemResponses()
	var calls atomic.Int64
	h := Idempotency(store, time.Hour)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := calls.Add(1)
		handler.RespondSuccess(w, http.StatusCreated, map[string]any{"call": n, "path": r.URL.Path})
	}))

	order := sendKeyed(h, "/api/v1/topups", "shared", `{"coins":20}`)
	require.Equal(t, http.StatusCreated, order.Code)

	// Same key and a different body on another route is a fresh request.
	consult := sendKeyed(h, "/api/v1/consultations", "shared", `{"symptoms":"cough"}`)
	assert.Equal(t, http.StatusCreated, consult.Code)
	assert.Empty(t, consult.Header().Get("X-Idempotent-Replayed"))
	assert.NotEqual(t, order.Body.String(), consult.Body.String())
	assert.Equal(t, int64(2), calls.Load())

	require.NotNil(t, store.get("user-1", "/api/v1/topups", "shared"))
	require.NotNil(t, store.get("user-1", "/api/v1/consultations", "shared"))
}

func TestIdempotency_OperationIDStoredAndEchoed(t *testing.T) {
	store := newMemResponses()
	opID := uuid.New()
	var calls atomic.Int64
	h := Idempotency(store, time.Hour)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Header().Set(handler.OperationIDHeader, opID.String())
		handler.RespondSuccess(w, http.StatusOK, map[string]any{"ok": true})
	}))

	first := sendKeyed(h, "/api/v1/consultations", "k1", `{"symptoms":"cough"}`)
	require.Equal(t, http.StatusOK, first.Code)

	stored := store.get("user-1", "/api/v1/consultations", "k1")
	require.NotNil(t, stored)
	require.NotNil(t, stored.OperationID)
	assert.Equal(t, opID, *stored.OperationID)
	assert.Equal(t, 0, stored.Replays)

	for i := 0; i < 2; i++ {
		replay := sendKeyed(h, "/api/v1/consultations", "k1", `{"symptoms":"cough"}`)
		assert.Equal(t, opID.String(), replay.Header().Get(handler.OperationIDHeader))
		assert.Equal(t, "true", replay.Header().Get("X-Idempotent-Replayed"))
	}
	assert.Equal(t, int64(1), calls.Load())
	assert.Equal(t, 2, store.get("user-1", "/api/v1/consultations", "k1").Replays)
}

func TestIdempotency_NoOperationIDHeader(t *testing.T) {
	store := newMemResponses()
	h := Idempotency(store, time.Hour)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handler.RespondSuccess(w, http.StatusOK, map[string]any{"ok": true})
	}))

	sendKeyed(h, "/api/v1/consultations", "k1", `{}`)
	stored := store.get("user-1", "/api/v1/consultations", "k1")
	require.NotNil(t, stored)
	assert.Nil(t, stored.OperationID)

	replay := sendKeyed(h, "/api/v1/consultations", "k1", `{}`)
	assert.Empty(t, replay.Header().Get(handler.OperationIDHeader))
}

func TestTracing_RequestID(t *testing.T) {
	var seen string
	h := Tracing(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = TraceIDFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("X-Request-ID", "abc-123")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, "abc-123", seen)
	assert.Equal(t, "abc-123", rec.Header().Get("X-Request-ID"))

	req = httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("X-Request-ID", "bad id\nwith newline")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.NotEqual(t, "bad id\nwith newline", seen)
	assert.Len(t, seen, 36)
}

func TestRecovery(t *testing.T) {
	h := Recovery(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "INTERNAL_ERROR", decodeError(t, rec))
}
