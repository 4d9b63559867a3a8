package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/geekheaven/identity/internal/models"
	"github.com/golang-jwt/jwt/v5"
)

// MinSecretLength mirrors the config-level check so a Signer can never be
// constructed around a weak key, regardless of how it is wired.
const MinSecretLength = 32

// Signer performs symmetric signing and verification of session tokens.
// It is the only component that holds the signing secret.
type Signer struct {
	secret []byte
}

// NewSigner fails when the secret is absent or shorter than 32 bytes;
// callers are expected to treat that as a startup error.
func NewSigner(secret string) (*Signer, error) {
	if len(secret) < MinSecretLength {
		return nil, fmt.Errorf("secret must be at least %d bytes: %w", MinSecretLength, models.ErrMissingSecret)
	}
	return &Signer{secret: []byte(secret)}, nil
}

// Encode signs the claim set with HS256, stamping issued-at with the current
// time and expiry per the provided lifetime.
func (s *Signer) Encode(claims *models.SessionClaims, ttl time.Duration) (string, error) {
	now := time.Now()
	claims.IssuedAt = jwt.NewNumericDate(now)
	claims.ExpiresAt = jwt.NewNumericDate(now.Add(ttl))

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// Decode verifies the signature and algorithm, then re-validates that the
// id, email and name claims are present. Failures are discriminated so the
// caller can branch: ErrTokenExpired prompts a refresh, ErrInvalidSignature
// and ErrInvalidToken are terminal, ErrMalformedToken covers blank input
// and claim sets that verified but are missing required fields.
func (s *Signer) Decode(tokenString string) (*models.SessionClaims, error) {
	if strings.TrimSpace(tokenString) == "" {
		return nil, models.ErrMalformedToken
	}

	claims := &models.SessionClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))

	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return nil, models.ErrTokenExpired
		case errors.Is(err, jwt.ErrTokenSignatureInvalid):
			return nil, models.ErrInvalidSignature
		default:
			return nil, models.ErrInvalidToken
		}
	}

	if !token.Valid {
		return nil, models.ErrInvalidToken
	}

	// A valid signature is not enough; the claim set must carry the
	// mandatory identity fields.
	if claims.UserID == "" || claims.Email == "" || claims.Name == "" {
		return nil, models.ErrMalformedToken
	}

	return claims, nil
}
