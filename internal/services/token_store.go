package services

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/geekheaven/identity/internal/models"
)

// Key prefixes for one-time tokens.
const (
	ResetTokenPrefix        = "password_reset:"
	VerificationTokenPrefix = "email_verify:"
)

// tokenEntropyBytes of randomness per token; at this size collisions are
// assumed impossible and are not handled.
const tokenEntropyBytes = 32

// KV is the key/value surface the ephemeral token store requires. GetDel
// must be atomic so redemption is exactly-once under concurrency; misses
// are models.ErrNotFound.
type KV interface {
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Get(ctx context.Context, key string) (string, error)
	GetDel(ctx context.Context, key string) (string, error)
	Del(ctx context.Context, keys ...string) error
	Keys(ctx context.Context, pattern string) ([]string, error)
}

// EphemeralTokenStore holds single-use, time-bounded secrets for password
// reset and email verification. These tokens are opaque random strings, not
// JWTs; they are independent of the signing secret and individually
// revocable server-side.
type EphemeralTokenStore struct {
	kv     KV
	logger *slog.Logger
}

func NewEphemeralTokenStore(kv KV, logger *slog.Logger) *EphemeralTokenStore {
	return &EphemeralTokenStore{kv: kv, logger: logger}
}

// Issue generates a random token, stores the payload under prefix+token
// with the given TTL, and returns the token. The payload's Token and
// ExpiresAt fields are filled in here.
func (s *EphemeralTokenStore) Issue(ctx context.Context, prefix string, payload models.EphemeralPayload, ttl time.Duration) (string, error) {
	raw := make([]byte, tokenEntropyBytes)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}
	token := hex.EncodeToString(raw)

	payload.Token = token
	payload.ExpiresAt = time.Now().Add(ttl)

	data, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to marshal token payload: %w", err)
	}

	if err := s.kv.Set(ctx, prefix+token, string(data), ttl); err != nil {
		return "", fmt.Errorf("failed to store token: %w", err)
	}

	return token, nil
}

// Redeem consumes a token with a single atomic fetch-and-delete. A miss
// returns models.ErrNotFound. If the entry came back but its embedded
// expiry has passed (a store whose TTL eviction lags real time), it is
// treated as not found; the GetDel already removed it. A second redemption
// of the same token always misses.
func (s *EphemeralTokenStore) Redeem(ctx context.Context, prefix, token string) (*models.EphemeralPayload, error) {
	if token == "" {
		return nil, models.ErrNotFound
	}

	data, err := s.kv.GetDel(ctx, prefix+token)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrNotFound
		}
		return nil, fmt.Errorf("failed to redeem token: %w", err)
	}

	payload, err := s.decode(data)
	if err != nil {
		return nil, err
	}
	if payload.Expired(time.Now()) {
		return nil, models.ErrNotFound
	}

	return payload, nil
}

// Peek checks a token without consuming it. An entry whose embedded expiry
// has passed is deleted and reported as a miss.
func (s *EphemeralTokenStore) Peek(ctx context.Context, prefix, token string) (*models.EphemeralPayload, error) {
	if token == "" {
		return nil, models.ErrNotFound
	}

	key := prefix + token
	data, err := s.kv.Get(ctx, key)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrNotFound
		}
		return nil, fmt.Errorf("failed to look up token: %w", err)
	}

	payload, err := s.decode(data)
	if err != nil {
		return nil, err
	}
	if payload.Expired(time.Now()) {
		if delErr := s.kv.Del(ctx, key); delErr != nil {
			s.logger.Warn("failed to delete expired token", slog.Any("error", delErr))
		}
		return nil, models.ErrNotFound
	}

	return payload, nil
}

// ListForUser returns the tokens under the prefix issued to the user.
// Linear scan over the prefix; acceptable for administrative use only.
func (s *EphemeralTokenStore) ListForUser(ctx context.Context, prefix, userID string) ([]string, error) {
	keys, err := s.kv.Keys(ctx, prefix+"*")
	if err != nil {
		return nil, fmt.Errorf("failed to list tokens: %w", err)
	}

	var tokens []string
	for _, key := range keys {
		data, err := s.kv.Get(ctx, key)
		if err != nil {
			continue // evicted between KEYS and GET
		}
		payload, err := s.decode(data)
		if err != nil {
			continue
		}
		if payload.UserID == userID {
			tokens = append(tokens, payload.Token)
		}
	}

	return tokens, nil
}

// RevokeAllForUser deletes every token under the prefix issued to the user
// and returns the number revoked.
func (s *EphemeralTokenStore) RevokeAllForUser(ctx context.Context, prefix, userID string) (int, error) {
	keys, err := s.kv.Keys(ctx, prefix+"*")
	if err != nil {
		return 0, fmt.Errorf("failed to list tokens: %w", err)
	}

	revoked := 0
	for _, key := range keys {
		data, err := s.kv.Get(ctx, key)
		if err != nil {
			continue
		}
		payload, err := s.decode(data)
		if err != nil {
			continue
		}
		if payload.UserID != userID {
			continue
		}
		if err := s.kv.Del(ctx, key); err != nil {
			s.logger.Warn("failed to revoke token", slog.Any("error", err))
			continue
		}
		revoked++
	}

	return revoked, nil
}

// SweepExpired removes entries whose embedded expiry has passed. The store's
// native TTL normally handles this; the sweep is a maintenance pass for
// stores whose eviction lags.
func (s *EphemeralTokenStore) SweepExpired(ctx context.Context, prefix string) (int, error) {
	keys, err := s.kv.Keys(ctx, prefix+"*")
	if err != nil {
		return 0, fmt.Errorf("failed to list tokens: %w", err)
	}

	now := time.Now()
	swept := 0
	for _, key := range keys {
		data, err := s.kv.Get(ctx, key)
		if err != nil {
			continue
		}
		payload, err := s.decode(data)
		if err != nil {
			// Undecodable entries are garbage; drop them too.
			if delErr := s.kv.Del(ctx, key); delErr == nil {
				swept++
			}
			continue
		}
		if !payload.Expired(now) {
			continue
		}
		if err := s.kv.Del(ctx, key); err != nil {
			s.logger.Warn("failed to sweep expired token", slog.Any("error", err))
			continue
		}
		swept++
	}

	return swept, nil
}

func (s *EphemeralTokenStore) decode(data string) (*models.EphemeralPayload, error) {
	var payload models.EphemeralPayload
	if err := json.Unmarshal([]byte(data), &payload); err != nil {
		return nil, fmt.Errorf("failed to unmarshal token payload: %w", err)
	}
	return &payload, nil
}
