package config

import (
	"errors"
	"testing"
	"time"

	"github.com/geekheaven/identity/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "0123456789abcdef0123456789abcdef" // 32 bytes

func setRequiredEnv(t *testing.T) {
	t.Setenv("JWT_SECRET", testSecret)
	t.Setenv("DB_PASSWORD", "postgres")
}

func TestLoad_Defaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, "15m", cfg.Auth.AccessTokenExpiry)
	assert.Equal(t, "7d", cfg.Auth.RefreshTokenExpiry)
	assert.Equal(t, 30*time.Minute, cfg.Auth.ResetTokenTTL)
	assert.Equal(t, 24*time.Hour, cfg.Auth.VerificationTokenTTL)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr())
	assert.Contains(t, cfg.Google.UserInfoURL, "googleapis.com")
}

func TestLoad_MissingSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	t.Setenv("DB_PASSWORD", "postgres")

	cfg, err := Load()
	assert.Nil(t, cfg)
	assert.True(t, errors.Is(err, models.ErrMissingSecret))
}

func TestLoad_ShortSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "too-short")
	t.Setenv("DB_PASSWORD", "postgres")

	cfg, err := Load()
	assert.Nil(t, cfg)
	assert.True(t, errors.Is(err, models.ErrMissingSecret))
}

func TestLoad_MissingDBPassword(t *testing.T) {
	t.Setenv("JWT_SECRET", testSecret)
	t.Setenv("DB_PASSWORD", "")

	cfg, err := Load()
	assert.Nil(t, cfg)
	assert.Error(t, err)
}

func TestLoad_Overrides(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("JWT_ACCESS_EXPIRY", "5m")
	t.Setenv("JWT_REFRESH_EXPIRY", "30d")
	t.Setenv("RESET_TOKEN_TTL", "10m")
	t.Setenv("REDIS_PORT", "6380")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "5m", cfg.Auth.AccessTokenExpiry)
	assert.Equal(t, "30d", cfg.Auth.RefreshTokenExpiry)
	assert.Equal(t, 10*time.Minute, cfg.Auth.ResetTokenTTL)
	assert.Equal(t, "localhost:6380", cfg.Redis.Addr())
}

func TestDatabaseConfig_DSN(t *testing.T) {
	cfg := DatabaseConfig{
		Host: "db", Port: 5433, User: "app", Password: "pw", Name: "identity", SSLMode: "require",
	}
	assert.Equal(t, "host=db port=5433 user=app password=pw dbname=identity sslmode=require", cfg.DSN())
}
