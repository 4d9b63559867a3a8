package models

import "errors"

// Sentinel errors for common failure conditions
var (
	ErrNotFound       = errors.New("resource not found")
	ErrAlreadyExists  = errors.New("account already exists")
	ErrBadRequest     = errors.New("bad request")
	ErrInternalServer = errors.New("internal server error")

	// ErrInvalidCredentials is deliberately the only error surfaced for a
	// wrong password, an unknown email, or a Google-only account, so
	// callers cannot enumerate accounts through the sign-in path.
	ErrInvalidCredentials = errors.New("invalid email or password")

	// Token decode errors. Callers branch on these: ErrTokenExpired is a
	// cue to refresh, the others are terminal for that token.
	ErrInvalidToken     = errors.New("invalid token")
	ErrTokenExpired     = errors.New("token expired")
	ErrInvalidSignature = errors.New("invalid token signature")
	ErrMalformedToken   = errors.New("malformed token")

	// ErrMissingSecret is fatal at startup; the service refuses to run
	// without a usable signing secret.
	ErrMissingSecret = errors.New("signing secret missing or too short")
)
