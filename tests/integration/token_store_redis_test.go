package integration

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/geekheaven/identity/internal/database"
	"github.com/geekheaven/identity/internal/models"
	"github.com/geekheaven/identity/internal/services"
)

func setupTestRedis(ctx context.Context, t *testing.T) *database.Redis {
	t.Helper()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections").WithStartupTimeout(30 * time.Second),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { container.Terminate(ctx) })

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "6379")
	require.NoError(t, err)

	client := redis.NewClient(&redis.Options{
		Addr: fmt.Sprintf("%s:%s", host, port.Port()),
	})
	require.NoError(t, client.Ping(ctx).Err())

	return database.NewRedisFromClient(client)
}

func TestEphemeralTokenStoreRedis(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx := context.Background()
	rdb := setupTestRedis(ctx, t)
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	store := services.NewEphemeralTokenStore(rdb, logger)

	t.Run("issue and redeem against redis", func(t *testing.T) {
		token, err := store.Issue(ctx, services.ResetTokenPrefix, models.EphemeralPayload{UserID: "user-1"}, 30*time.Minute)
		require.NoError(t, err)

		payload, err := store.Redeem(ctx, services.ResetTokenPrefix, token)
		require.NoError(t, err)
		assert.Equal(t, "user-1", payload.UserID)

		_, err = store.Redeem(ctx, services.ResetTokenPrefix, token)
		assert.ErrorIs(t, err, models.ErrNotFound)
	})

	t.Run("redis TTL evicts the entry", func(t *testing.T) {
		token, err := store.Issue(ctx, services.ResetTokenPrefix, models.EphemeralPayload{UserID: "user-1"}, time.Second)
		require.NoError(t, err)

		time.Sleep(1500 * time.Millisecond)

		_, err = store.Redeem(ctx, services.ResetTokenPrefix, token)
		assert.ErrorIs(t, err, models.ErrNotFound)
	})

	t.Run("concurrent redemption against redis", func(t *testing.T) {
		token, err := store.Issue(ctx, services.ResetTokenPrefix, models.EphemeralPayload{UserID: "user-1"}, 30*time.Minute)
		require.NoError(t, err)

		const goroutines = 8
		var wg sync.WaitGroup
		results := make(chan error, goroutines)
		for i := 0; i < goroutines; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := store.Redeem(ctx, services.ResetTokenPrefix, token)
				results <- err
			}()
		}
		wg.Wait()
		close(results)

		succeeded := 0
		for err := range results {
			if err == nil {
				succeeded++
			}
		}
		assert.Equal(t, 1, succeeded)
	})

	t.Run("revoke all for user", func(t *testing.T) {
		for i := 0; i < 3; i++ {
			_, err := store.Issue(ctx, services.VerificationTokenPrefix, models.EphemeralPayload{UserID: "revoke-me"}, time.Hour)
			require.NoError(t, err)
		}

		revoked, err := store.RevokeAllForUser(ctx, services.VerificationTokenPrefix, "revoke-me")
		require.NoError(t, err)
		assert.Equal(t, 3, revoked)

		tokens, err := store.ListForUser(ctx, services.VerificationTokenPrefix, "revoke-me")
		require.NoError(t, err)
		assert.Empty(t, tokens)
	})
}
