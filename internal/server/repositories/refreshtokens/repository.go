// Package refreshtokens provides the refresh-token half of the credential
// store: in-memory, SQLite and PostgreSQL backends behind one interface.
//
// Tokens are never deleted. Revocation flips a flag exactly once, and every
// backend implements Revoke with compare-and-set semantics so concurrent
// rotations of the same token cannot both succeed.
package refreshtokens

import (
	"context"

	"github.com/nileauth/nileauth/internal/server/models"
)

// Repository is the storage contract for refresh tokens.
type Repository interface {
	// Create persists a new token row. Returns common.ErrConflict if the
	// token string already exists; with 48 bytes of entropy that should
	// never happen, but it must not be silently overwritten.
	Create(ctx context.Context, token *models.RefreshToken) error

	// Find returns the row for the given token string, revoked or not.
	// Returns common.ErrNotFound if absent.
	Find(ctx context.Context, token string) (*models.RefreshToken, error)

	// Revoke atomically flips a non-revoked row to revoked. The returned
	// bool is true only when this call performed the flip; false means the
	// row was absent or already revoked. Never an error for a missing row.
	Revoke(ctx context.Context, token string) (bool, error)

	// RevokeAllForAccount revokes every token belonging to the account in
	// a single bulk operation, so it cannot interleave with a concurrent
	// rotation for the same account.
	RevokeAllForAccount(ctx context.Context, accountID string) error

	// Rotate atomically revokes oldToken and inserts next. It returns
	// false without inserting anything when oldToken was already revoked
	// or absent, which is how the loser of a concurrent rotation race is
	// detected.
	Rotate(ctx context.Context, oldToken string, next *models.RefreshToken) (bool, error)
}
