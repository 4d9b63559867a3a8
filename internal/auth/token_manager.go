package auth

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/geekheaven/identity/internal/models"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	// DefaultExpirySeconds is the fallback when an expiry string does not
	// match the compact grammar; never zero so tokens cannot be minted
	// already expired.
	DefaultExpirySeconds = 900 // 15 minutes

	// DefaultRefreshWindow is how far ahead of expiry a token counts as
	// "expiring soon".
	DefaultRefreshWindow = 5 * time.Minute

	bearerPrefix = "Bearer "
)

var expiryPattern = regexp.MustCompile(`^(\d+)([smhd])$`)

// TokenManager turns an identity into an access/refresh credential pair and
// back. It owns expiry policy; all signing goes through the Signer.
type TokenManager struct {
	signer        *Signer
	accessExpiry  string
	refreshExpiry string
}

// NewTokenManager creates a TokenManager. Expiry strings use the compact
// <integer><s|m|h|d> grammar; unrecognized values fall back to 15 minutes
// (access) at parse time rather than failing construction.
func NewTokenManager(signer *Signer, accessExpiry, refreshExpiry string) *TokenManager {
	return &TokenManager{
		signer:        signer,
		accessExpiry:  accessExpiry,
		refreshExpiry: refreshExpiry,
	}
}

// GenerateTokenPair mints an access and a refresh token for the identity.
// Both claim sets share one token id; the refresh jti gets a "_refresh"
// suffix so the two tokens remain distinguishable in logs.
func (tm *TokenManager) GenerateTokenPair(identity *models.Identity) (*models.TokenPair, error) {
	tokenID := uuid.New().String()

	accessClaims := &models.SessionClaims{
		UserID:    identity.ID,
		Email:     identity.Email,
		Name:      identity.Name,
		TokenType: models.TokenTypeAccess,
		RegisteredClaims: jwt.RegisteredClaims{
			ID: tokenID,
		},
	}
	refreshClaims := &models.SessionClaims{
		UserID:    identity.ID,
		Email:     identity.Email,
		Name:      identity.Name,
		TokenType: models.TokenTypeRefresh,
		RegisteredClaims: jwt.RegisteredClaims{
			ID: tokenID + "_refresh",
		},
	}

	accessTTL := time.Duration(ParseExpiryToSeconds(tm.accessExpiry)) * time.Second
	refreshTTL := time.Duration(ParseExpiryToSeconds(tm.refreshExpiry)) * time.Second

	accessToken, err := tm.signer.Encode(accessClaims, accessTTL)
	if err != nil {
		return nil, fmt.Errorf("failed to generate access token: %w", err)
	}

	refreshToken, err := tm.signer.Encode(refreshClaims, refreshTTL)
	if err != nil {
		return nil, fmt.Errorf("failed to generate refresh token: %w", err)
	}

	return &models.TokenPair{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresIn:    ParseExpiryToSeconds(tm.accessExpiry),
		TokenType:    "Bearer",
	}, nil
}

// GenerateAccessToken returns only the access half of a fresh pair.
func (tm *TokenManager) GenerateAccessToken(identity *models.Identity) (string, error) {
	pair, err := tm.GenerateTokenPair(identity)
	if err != nil {
		return "", err
	}
	return pair.AccessToken, nil
}

// ValidateAccessToken decodes a bearer token and returns its claims; Signer
// errors propagate typed.
func (tm *TokenManager) ValidateAccessToken(tokenString string) (*models.SessionClaims, error) {
	return tm.signer.Decode(tokenString)
}

// RefreshAccessToken mints a brand-new token pair from a refresh token.
// Decode errors propagate; a verified token with no identity id is rejected
// as invalid. Tokens are stateless, so a leaked refresh token stays usable
// until it expires; there is no server-side revocation list.
func (tm *TokenManager) RefreshAccessToken(refreshToken string) (*models.TokenPair, error) {
	claims, err := tm.signer.Decode(refreshToken)
	if err != nil {
		return nil, err
	}

	if claims.UserID == "" {
		return nil, models.ErrInvalidToken
	}

	return tm.GenerateTokenPair(&models.Identity{
		ID:    claims.UserID,
		Email: claims.Email,
		Name:  claims.Name,
	})
}

// ExtractTokenFromHeader returns the token after a case-sensitive "Bearer "
// prefix. It never errors; a missing or malformed header reports ok=false.
func ExtractTokenFromHeader(header string) (string, bool) {
	token, found := strings.CutPrefix(header, bearerPrefix)
	if !found || token == "" {
		return "", false
	}
	return token, true
}

// IsTokenExpiringSoon reports whether the claims expire within the window.
// A non-positive window uses the 5 minute default.
func IsTokenExpiringSoon(claims *models.SessionClaims, window time.Duration) bool {
	if claims == nil || claims.ExpiresAt == nil {
		return true
	}
	if window <= 0 {
		window = DefaultRefreshWindow
	}
	return !claims.ExpiresAt.Time.After(time.Now().Add(window))
}

// ParseExpiryToSeconds parses the compact <integer><unit> duration grammar
// (s, m, h, d). Unrecognized input returns the 15 minute default instead of
// zero or an error.
func ParseExpiryToSeconds(expiry string) int64 {
	match := expiryPattern.FindStringSubmatch(expiry)
	if match == nil {
		return DefaultExpirySeconds
	}

	value, err := strconv.ParseInt(match[1], 10, 64)
	if err != nil {
		return DefaultExpirySeconds
	}

	switch match[2] {
	case "s":
		return value
	case "m":
		return value * 60
	case "h":
		return value * 60 * 60
	case "d":
		return value * 60 * 60 * 24
	default:
		return DefaultExpirySeconds
	}
}
