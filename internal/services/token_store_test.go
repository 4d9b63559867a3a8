package services

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/geekheaven/identity/internal/models"
)

func newTestTokenStore() (*EphemeralTokenStore, *memoryKV) {
	kv := newMemoryKV()
	logger := slog.New(slog.NewTextHandler(testWriter{}, nil))
	return NewEphemeralTokenStore(kv, logger), kv
}

// testWriter discards log output during tests
type testWriter struct{}

func (testWriter) Write(p []byte) (int, error) { return len(p), nil }

func TestEphemeralTokenStore_IssueAndRedeem(t *testing.T) {
	store, _ := newTestTokenStore()
	ctx := context.Background()

	token, err := store.Issue(ctx, ResetTokenPrefix, models.EphemeralPayload{UserID: "user-1"}, 30*time.Minute)
	require.NoError(t, err)
	assert.Len(t, token, tokenEntropyBytes*2) // hex encoded

	payload, err := store.Redeem(ctx, ResetTokenPrefix, token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", payload.UserID)
	assert.Equal(t, token, payload.Token)
	assert.WithinDuration(t, time.Now().Add(30*time.Minute), payload.ExpiresAt, 2*time.Second)
}

func TestEphemeralTokenStore_RedeemIsSingleUse(t *testing.T) {
	store, _ := newTestTokenStore()
	ctx := context.Background()

	token, err := store.Issue(ctx, ResetTokenPrefix, models.EphemeralPayload{UserID: "user-1"}, 30*time.Minute)
	require.NoError(t, err)

	_, err = store.Redeem(ctx, ResetTokenPrefix, token)
	require.NoError(t, err)

	_, err = store.Redeem(ctx, ResetTokenPrefix, token)
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestEphemeralTokenStore_RedeemMiss(t *testing.T) {
	store, _ := newTestTokenStore()
	ctx := context.Background()

	_, err := store.Redeem(ctx, ResetTokenPrefix, "no-such-token")
	assert.ErrorIs(t, err, models.ErrNotFound)

	_, err = store.Redeem(ctx, ResetTokenPrefix, "")
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestEphemeralTokenStore_PrefixesAreIsolated(t *testing.T) {
	store, _ := newTestTokenStore()
	ctx := context.Background()

	token, err := store.Issue(ctx, ResetTokenPrefix, models.EphemeralPayload{UserID: "user-1"}, 30*time.Minute)
	require.NoError(t, err)

	_, err = store.Redeem(ctx, VerificationTokenPrefix, token)
	assert.ErrorIs(t, err, models.ErrNotFound)

	_, err = store.Redeem(ctx, ResetTokenPrefix, token)
	assert.NoError(t, err)
}

func TestEphemeralTokenStore_RedeemExpiredEntry(t *testing.T) {
	store, kv := newTestTokenStore()
	ctx := context.Background()

	// Entry present in the store but past its embedded expiry, as when TTL
	// eviction lags.
	payload := models.EphemeralPayload{
		UserID:    "user-1",
		Token:     "stale-token",
		ExpiresAt: time.Now().Add(-time.Minute),
	}
	data, err := json.Marshal(payload)
	require.NoError(t, err)
	kv.setRaw(ResetTokenPrefix+"stale-token", string(data))

	_, err = store.Redeem(ctx, ResetTokenPrefix, "stale-token")
	assert.ErrorIs(t, err, models.ErrNotFound)

	// The redemption attempt consumed the stale entry.
	_, err = kv.Get(ctx, ResetTokenPrefix+"stale-token")
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestEphemeralTokenStore_ConcurrentRedemption(t *testing.T) {
	store, _ := newTestTokenStore()
	ctx := context.Background()

	token, err := store.Issue(ctx, ResetTokenPrefix, models.EphemeralPayload{UserID: "user-1"}, 30*time.Minute)
	require.NoError(t, err)

	const goroutines = 16
	var wg sync.WaitGroup
	results := make(chan error, goroutines)

	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := store.Redeem(ctx, ResetTokenPrefix, token)
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	succeeded := 0
	for err := range results {
		if err == nil {
			succeeded++
		} else {
			assert.ErrorIs(t, err, models.ErrNotFound)
		}
	}
	assert.Equal(t, 1, succeeded, "exactly one redemption should win")
}

func TestEphemeralTokenStore_Peek(t *testing.T) {
	store, _ := newTestTokenStore()
	ctx := context.Background()

	token, err := store.Issue(ctx, VerificationTokenPrefix, models.EphemeralPayload{
		UserID: "user-1",
		Email:  "test@example.com",
		Name:   "Test User",
	}, 24*time.Hour)
	require.NoError(t, err)

	// Peek does not consume.
	payload, err := store.Peek(ctx, VerificationTokenPrefix, token)
	require.NoError(t, err)
	assert.Equal(t, "test@example.com", payload.Email)
	assert.Equal(t, "Test User", payload.Name)

	payload, err = store.Peek(ctx, VerificationTokenPrefix, token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", payload.UserID)
}

func TestEphemeralTokenStore_PeekDeletesExpiredEntry(t *testing.T) {
	store, kv := newTestTokenStore()
	ctx := context.Background()

	payload := models.EphemeralPayload{
		UserID:    "user-1",
		Token:     "stale-token",
		ExpiresAt: time.Now().Add(-time.Minute),
	}
	data, err := json.Marshal(payload)
	require.NoError(t, err)
	kv.setRaw(ResetTokenPrefix+"stale-token", string(data))

	_, err = store.Peek(ctx, ResetTokenPrefix, "stale-token")
	assert.ErrorIs(t, err, models.ErrNotFound)

	_, err = kv.Get(ctx, ResetTokenPrefix+"stale-token")
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestEphemeralTokenStore_ListForUser(t *testing.T) {
	store, _ := newTestTokenStore()
	ctx := context.Background()

	token1, err := store.Issue(ctx, ResetTokenPrefix, models.EphemeralPayload{UserID: "user-1"}, 30*time.Minute)
	require.NoError(t, err)
	token2, err := store.Issue(ctx, ResetTokenPrefix, models.EphemeralPayload{UserID: "user-1"}, 30*time.Minute)
	require.NoError(t, err)
	_, err = store.Issue(ctx, ResetTokenPrefix, models.EphemeralPayload{UserID: "user-2"}, 30*time.Minute)
	require.NoError(t, err)
	_, err = store.Issue(ctx, VerificationTokenPrefix, models.EphemeralPayload{UserID: "user-1"}, 24*time.Hour)
	require.NoError(t, err)

	tokens, err := store.ListForUser(ctx, ResetTokenPrefix, "user-1")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{token1, token2}, tokens)
}

func TestEphemeralTokenStore_RevokeAllForUser(t *testing.T) {
	store, _ := newTestTokenStore()
	ctx := context.Background()

	token1, err := store.Issue(ctx, ResetTokenPrefix, models.EphemeralPayload{UserID: "user-1"}, 30*time.Minute)
	require.NoError(t, err)
	token2, err := store.Issue(ctx, ResetTokenPrefix, models.EphemeralPayload{UserID: "user-1"}, 30*time.Minute)
	require.NoError(t, err)
	other, err := store.Issue(ctx, ResetTokenPrefix, models.EphemeralPayload{UserID: "user-2"}, 30*time.Minute)
	require.NoError(t, err)

	revoked, err := store.RevokeAllForUser(ctx, ResetTokenPrefix, "user-1")
	require.NoError(t, err)
	assert.Equal(t, 2, revoked)

	_, err = store.Redeem(ctx, ResetTokenPrefix, token1)
	assert.ErrorIs(t, err, models.ErrNotFound)
	_, err = store.Redeem(ctx, ResetTokenPrefix, token2)
	assert.ErrorIs(t, err, models.ErrNotFound)

	// Unrelated user's token survives.
	_, err = store.Redeem(ctx, ResetTokenPrefix, other)
	assert.NoError(t, err)
}

func TestEphemeralTokenStore_SweepExpired(t *testing.T) {
	store, kv := newTestTokenStore()
	ctx := context.Background()

	live, err := store.Issue(ctx, ResetTokenPrefix, models.EphemeralPayload{UserID: "user-1"}, 30*time.Minute)
	require.NoError(t, err)

	stale := models.EphemeralPayload{
		UserID:    "user-1",
		Token:     "stale-token",
		ExpiresAt: time.Now().Add(-time.Minute),
	}
	data, err := json.Marshal(stale)
	require.NoError(t, err)
	kv.setRaw(ResetTokenPrefix+"stale-token", string(data))
	kv.setRaw(ResetTokenPrefix+"garbage", "{not json")

	swept, err := store.SweepExpired(ctx, ResetTokenPrefix)
	require.NoError(t, err)
	assert.Equal(t, 2, swept)

	_, err = store.Redeem(ctx, ResetTokenPrefix, live)
	assert.NoError(t, err)
}
