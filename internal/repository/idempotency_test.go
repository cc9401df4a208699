package repository_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RizzWan-Codes/homedoctor.ai/internal/repository"
	"github.com/RizzWan-Codes/homedoctor.ai/internal/testutil"
)

func storedResponse(userID, route, key string, ttl time.Duration) *repository.StoredResponse {
	now := time.Now().UTC()
	return &repository.StoredResponse{
		UserID:       userID,
		Route:        route,
		Key:          key,
		RequestHash:  "hash-" + key,
		StatusCode:   200,
		ResponseBody: []byte(`{"success":true}`),
		CreatedAt:    now,
		ExpiresAt:    now.Add(ttl),
	}
}

func TestResponseStore_SaveFind(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := repository.NewResponseStore(db)
	ctx := context.Background()
	acct := testutil.SeedAccount(t, db, "responses@test.com", 0)

	opID := uuid.New()
	sr := storedResponse(acct.UserID, "/api/v1/consultations", "k1", time.Hour)
	sr.OperationID = &opID
	require.NoError(t, store.Save(ctx, sr))

	got, err := store.Find(ctx, acct.UserID, "/api/v1/consultations", "k1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "hash-k1", got.RequestHash)
	assert.Equal(t, 200, got.StatusCode)
	assert.JSONEq(t, `{"success":true}`, string(got.ResponseBody))
	require.NotNil(t, got.OperationID)
	assert.Equal(t, opID, *got.OperationID)
	assert.Equal(t, 0, got.Replays)

	other, err := store.Find(ctx, acct.UserID, "/api/v1/topups", "k1")
	require.NoError(t, err)
	assert.Nil(t, other, "keys are scoped to the route")

	// first save wins
	second := storedResponse(acct.UserID, "/api/v1/consultations", "k1", time.Hour)
	second.RequestHash = "different"
	second.StatusCode = 402
	require.NoError(t, store.Save(ctx, second))
	got, err = store.Find(ctx, acct.UserID, "/api/v1/consultations", "k1")
	require.NoError(t, err)
	assert.Equal(t, "hash-k1", got.RequestHash)
	assert.Equal(t, 200, got.StatusCode)
}

func TestResponseStore_NoOperationIDOrBody(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := repository.NewResponseStore(db)
	ctx := context.Background()
	acct := testutil.SeedAccount(t, db, "nobody@test.com", 0)

	sr := storedResponse(acct.UserID, "/api/v1/topups", "k1", time.Hour)
	sr.ResponseBody = nil
	require.NoError(t, store.Save(ctx, sr))

	got, err := store.Find(ctx, acct.UserID, "/api/v1/topups", "k1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Nil(t, got.OperationID)
	assert.Empty(t, got.ResponseBody)
}

func TestResponseStore_RecordReplay(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := repository.NewResponseStore(db)
	ctx := context.Background()
	acct := testutil.SeedAccount(t, db, "replays@test.com", 0)

	require.NoError(t, store.Save(ctx, storedResponse(acct.UserID, "/api/v1/consultations", "k1", time.Hour)))
	for i := 0; i < 3; i++ {
		require.NoError(t, store.RecordReplay(ctx, acct.UserID, "/api/v1/consultations", "k1"))
	}
	// unknown key is a no-op
	require.NoError(t, store.RecordReplay(ctx, acct.UserID, "/api/v1/consultations", "missing"))

	got, err := store.Find(ctx, acct.UserID, "/api/v1/consultations", "k1")
	require.NoError(t, err)
	assert.Equal(t, 3, got.Replays)
}

func TestResponseStore_Expiry(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := repository.NewResponseStore(db)
	ctx := context.Background()
	acct := testutil.SeedAccount(t, db, "expiry@test.com", 0)

	require.NoError(t, store.Save(ctx, storedResponse(acct.UserID, "/api/v1/consultations", "old", -time.Minute)))
	require.NoError(t, store.Save(ctx, storedResponse(acct.UserID, "/api/v1/consultations", "live", time.Hour)))

	got, err := store.Find(ctx, acct.UserID, "/api/v1/consultations", "old")
	require.NoError(t, err)
	assert.Nil(t, got, "expired responses are not replayed")

	n, err := store.Purge(ctx, time.Now())
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	got, err = store.Find(ctx, acct.UserID, "/api/v1/consultations", "live")
	require.NoError(t, err)
	assert.NotNil(t, got)

	n, err = store.Purge(ctx, time.Now())
	require.NoError(t, err)
	assert.Zero(t, n)
}
