// Package common defines shared sentinel errors used across server layers.
// Callers should use errors.Is to match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrNotFound = errors.New("not found")
	ErrConflict = errors.New("conflict")

	// Account errors.
	ErrAlreadyExists      = errors.New("account already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")

	// Refresh token lifecycle errors. ErrReuseDetected stays distinct from
	// ErrInvalidToken so callers can alert on it, even though both surface
	// to the client as a generic rejection.
	ErrInvalidToken  = errors.New("invalid token")
	ErrTokenExpired  = errors.New("token expired")
	ErrReuseDetected = errors.New("token reuse detected")

	// Infrastructure errors.
	ErrStorageUnavailable = errors.New("storage unavailable")
)
