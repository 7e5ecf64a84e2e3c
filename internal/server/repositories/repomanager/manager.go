// Package repomanager constructs the credential store for a given storage
// engine and hands out the per-entity repositories. The engine is picked
// once at startup and injected; nothing selects an adapter at call time.
package repomanager

import (
	"context"

	"github.com/nileauth/nileauth/internal/server/repositories/accounts"
	"github.com/nileauth/nileauth/internal/server/repositories/refreshtokens"
)

// RepositoryManager owns the storage backend and its repositories.
type RepositoryManager interface {
	Accounts() accounts.Repository
	RefreshTokens() refreshtokens.Repository

	// Ping reports whether the backend is reachable. Used by readiness
	// checks.
	Ping(ctx context.Context) error

	// Close releases the backend. Safe to call once at shutdown.
	Close() error
}
