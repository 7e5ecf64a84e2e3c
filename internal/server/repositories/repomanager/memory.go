package repomanager

import (
	"context"

	"github.com/nileauth/nileauth/internal/server/repositories/accounts"
	"github.com/nileauth/nileauth/internal/server/repositories/refreshtokens"
)

// MemoryRepositoryManager backs the store with in-process maps. Nothing
// survives a restart; for tests and development only.
type MemoryRepositoryManager struct {
	accounts      accounts.Repository
	refreshTokens refreshtokens.Repository
}

func NewMemoryRepositoryManager() *MemoryRepositoryManager {
	return &MemoryRepositoryManager{
		accounts:      accounts.NewMemoryRepository(),
		refreshTokens: refreshtokens.NewMemoryRepository(),
	}
}

func (m *MemoryRepositoryManager) Accounts() accounts.Repository {
	return m.accounts
}

func (m *MemoryRepositoryManager) RefreshTokens() refreshtokens.Repository {
	return m.refreshTokens
}

func (m *MemoryRepositoryManager) Ping(_ context.Context) error {
	return nil
}

func (m *MemoryRepositoryManager) Close() error {
	return nil
}
