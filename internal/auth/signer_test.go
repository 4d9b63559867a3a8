package auth

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/geekheaven/identity/internal/models"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-that-is-long-enough-0123456789"

func newTestSigner(t *testing.T) *Signer {
	t.Helper()
	signer, err := NewSigner(testSecret)
	require.NoError(t, err)
	return signer
}

func testClaims() *models.SessionClaims {
	return &models.SessionClaims{
		UserID:    "user123",
		Email:     "user@example.com",
		Name:      "Test User",
		TokenType: models.TokenTypeAccess,
		RegisteredClaims: jwt.RegisteredClaims{
			ID: "jti-1",
		},
	}
}

func TestNewSigner_RejectsWeakSecret(t *testing.T) {
	tests := []struct {
		name   string
		secret string
	}{
		{"empty", ""},
		{"short", "short"},
		{"31 bytes", "0123456789012345678901234567890"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			signer, err := NewSigner(tt.secret)
			assert.Nil(t, signer)
			assert.True(t, errors.Is(err, models.ErrMissingSecret))
		})
	}
}

func TestSigner_RoundTrip(t *testing.T) {
	signer := newTestSigner(t)

	token, err := signer.Encode(testClaims(), 15*time.Minute)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	decoded, err := signer.Decode(token)
	require.NoError(t, err)
	assert.Equal(t, "user123", decoded.UserID)
	assert.Equal(t, "user@example.com", decoded.Email)
	assert.Equal(t, "Test User", decoded.Name)
	assert.Equal(t, models.TokenTypeAccess, decoded.TokenType)
	assert.Equal(t, "jti-1", decoded.ID)
	assert.WithinDuration(t, time.Now().Add(15*time.Minute), decoded.ExpiresAt.Time, 5*time.Second)
}

func TestSigner_Decode_BlankInput(t *testing.T) {
	signer := newTestSigner(t)

	for _, input := range []string{"", "   ", "\t\n"} {
		_, err := signer.Decode(input)
		assert.ErrorIs(t, err, models.ErrMalformedToken)
	}
}

func TestSigner_Decode_Expired(t *testing.T) {
	signer := newTestSigner(t)

	token, err := signer.Encode(testClaims(), -1*time.Second)
	require.NoError(t, err)

	_, err = signer.Decode(token)
	assert.ErrorIs(t, err, models.ErrTokenExpired)
}

func TestSigner_Decode_TamperedSignature(t *testing.T) {
	signer := newTestSigner(t)

	token, err := signer.Encode(testClaims(), 15*time.Minute)
	require.NoError(t, err)

	// Flip one byte in the middle of the signature segment.
	parts := strings.Split(token, ".")
	require.Len(t, parts, 3)
	sig := []byte(parts[2])
	mid := len(sig) / 2
	if sig[mid] == 'A' {
		sig[mid] = 'B'
	} else {
		sig[mid] = 'A'
	}
	tampered := parts[0] + "." + parts[1] + "." + string(sig)

	_, err = signer.Decode(tampered)
	assert.ErrorIs(t, err, models.ErrInvalidSignature)
}

func TestSigner_Decode_WrongSecret(t *testing.T) {
	signer := newTestSigner(t)
	other, err := NewSigner("another-secret-that-is-long-enough-xyz")
	require.NoError(t, err)

	token, err := other.Encode(testClaims(), 15*time.Minute)
	require.NoError(t, err)

	_, err = signer.Decode(token)
	assert.ErrorIs(t, err, models.ErrInvalidSignature)
}

func TestSigner_Decode_Garbage(t *testing.T) {
	signer := newTestSigner(t)

	_, err := signer.Decode("not.a.jwt")
	assert.ErrorIs(t, err, models.ErrInvalidToken)
}

func TestSigner_Decode_MissingRequiredClaims(t *testing.T) {
	signer := newTestSigner(t)

	tests := []struct {
		name   string
		claims *models.SessionClaims
	}{
		{"missing id", &models.SessionClaims{Email: "user@example.com", Name: "Test User"}},
		{"missing email", &models.SessionClaims{UserID: "user123", Name: "Test User"}},
		{"missing name", &models.SessionClaims{UserID: "user123", Email: "user@example.com"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			token, err := signer.Encode(tt.claims, 15*time.Minute)
			require.NoError(t, err)

			// Signature verifies, claims do not.
			_, err = signer.Decode(token)
			assert.ErrorIs(t, err, models.ErrMalformedToken)
		})
	}
}

func TestSigner_Decode_RejectsUnsignedAlg(t *testing.T) {
	signer := newTestSigner(t)

	unsigned := jwt.NewWithClaims(jwt.SigningMethodNone, testClaims())
	token, err := unsigned.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = signer.Decode(token)
	assert.Error(t, err)
}
