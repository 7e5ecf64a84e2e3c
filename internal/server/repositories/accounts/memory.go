package accounts

import (
	"context"
	"sync"
	"time"

	"github.com/nileauth/nileauth/internal/common"
	"github.com/nileauth/nileauth/internal/server/models"
)

// MemoryRepository keeps accounts in a map keyed by email. Non-durable;
// intended for tests and development. The mutex makes Create atomic, so
// email uniqueness holds under concurrent registration.
type MemoryRepository struct {
	mu      sync.RWMutex
	byEmail map[string]*models.Account
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		byEmail: make(map[string]*models.Account),
	}
}

func (r *MemoryRepository) Create(_ context.Context, account *models.Account) (*models.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byEmail[account.Email]; ok {
		return nil, common.ErrAlreadyExists
	}

	stored := *account
	stored.CreatedAt = time.Now().UTC()
	r.byEmail[stored.Email] = &stored

	out := stored
	return &out, nil
}

func (r *MemoryRepository) GetByEmail(_ context.Context, email string) (*models.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	account, ok := r.byEmail[email]
	if !ok {
		return nil, common.ErrNotFound
	}

	out := *account
	return &out, nil
}
