// Package models contains the persistent entities owned by the credential
// store.
package models

import "time"

// Account is a registered user account. Immutable after creation.
type Account struct {
	ID           string
	Email        string
	PasswordHash string
	CreatedAt    time.Time
}

// RefreshToken is an opaque, single-use, storage-backed credential. The
// token string itself is the primary key. Revoked flips from false to true
// exactly once and never back; rows are never deleted, so revoked tokens
// remain available for reuse forensics.
type RefreshToken struct {
	Token     string
	AccountID string
	ExpiresAt time.Time
	Revoked   bool
	CreatedAt time.Time
}

// Expired reports whether the token is past its expiry at the given instant.
// Expiry is inferred, not stored: the row keeps only the absolute timestamp.
func (t *RefreshToken) Expired(now time.Time) bool {
	return t.ExpiresAt.Before(now)
}
