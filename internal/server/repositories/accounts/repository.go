// Package accounts provides the account half of the credential store, with
// in-memory, SQLite and PostgreSQL backends behind one interface.
package accounts

import (
	"context"

	"github.com/nileauth/nileauth/internal/server/models"
)

// Repository is the storage contract for accounts. Create must be backed by
// a real uniqueness guarantee on email (constraint or single writer), never a
// check-then-insert race.
type Repository interface {
	// Create persists a new account and returns it with storage-assigned
	// fields filled in. Returns common.ErrAlreadyExists if the email is
	// taken.
	Create(ctx context.Context, account *models.Account) (*models.Account, error)

	// GetByEmail looks an account up by its exact, case-sensitive email.
	// Returns common.ErrNotFound if absent.
	GetByEmail(ctx context.Context, email string) (*models.Account, error)
}
