package models

import (
	"time"
)

// Auth providers an identity can be bound to.
const (
	ProviderCredentials = "credentials"
	ProviderGoogle      = "google"
)

// Identity represents a registered account.
type Identity struct {
	ID              string
	Email           string // unique, stored lowercase
	Name            string
	PasswordHash    string // empty for Google-only identities
	Provider        string // "credentials" or "google"
	GoogleSubjectID string // set once the identity is linked to a Google account
	ProfileImage    string
	IsEmailVerified bool
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// HasPassword reports whether the identity can authenticate with a password.
func (i *Identity) HasPassword() bool {
	return i.Provider == ProviderCredentials && i.PasswordHash != ""
}
