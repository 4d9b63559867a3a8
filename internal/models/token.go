package models

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Token types carried in the "type" claim.
const (
	TokenTypeAccess  = "access"
	TokenTypeRefresh = "refresh"
)

// SessionClaims is the claim set of a signed session token. The id, email
// and name claims are mandatory; a token missing any of them is rejected on
// decode even when the signature verifies.
type SessionClaims struct {
	UserID    string `json:"id"`
	Email     string `json:"email"`
	Name      string `json:"name"`
	TokenType string `json:"type"`
	jwt.RegisteredClaims
}

// TokenPair is returned to the caller once at login/registration/refresh
// time and never persisted server-side.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"` // access token lifetime in seconds
	TokenType    string `json:"token_type"` // always "Bearer"
}

// EphemeralPayload is the JSON value stored behind a one-time token in the
// key/value store. Email and Name are only set for email verification,
// where the pending values ride along with the token.
type EphemeralPayload struct {
	UserID    string    `json:"user_id"`
	Token     string    `json:"token"`
	Email     string    `json:"email,omitempty"`
	Name      string    `json:"name,omitempty"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Expired reports whether the embedded expiry has passed, independent of
// the store's own TTL eviction.
func (p *EphemeralPayload) Expired(now time.Time) bool {
	return p.ExpiresAt.Before(now)
}
