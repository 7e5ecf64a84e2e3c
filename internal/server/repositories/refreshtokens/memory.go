package refreshtokens

import (
	"context"
	"sync"
	"time"

	"github.com/nileauth/nileauth/internal/common"
	"github.com/nileauth/nileauth/internal/server/models"
)

// MemoryRepository keeps tokens in a map keyed by token string. Non-durable;
// intended for tests and development. One mutex covers every operation, so
// Rotate and RevokeAllForAccount are atomic with respect to concurrent
// creates: a token created mid-revocation cannot survive unrevoked.
type MemoryRepository struct {
	mu     sync.Mutex
	tokens map[string]*models.RefreshToken
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{tokens: make(map[string]*models.RefreshToken)}
}

func (r *MemoryRepository) Create(_ context.Context, token *models.RefreshToken) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.insertLocked(token)
}

func (r *MemoryRepository) insertLocked(token *models.RefreshToken) error {
	if _, ok := r.tokens[token.Token]; ok {
		return common.ErrConflict
	}

	token.CreatedAt = time.Now().UTC()
	stored := *token
	r.tokens[stored.Token] = &stored
	return nil
}

func (r *MemoryRepository) Find(_ context.Context, token string) (*models.RefreshToken, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rt, ok := r.tokens[token]
	if !ok {
		return nil, common.ErrNotFound
	}

	out := *rt
	return &out, nil
}

func (r *MemoryRepository) Revoke(_ context.Context, token string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.revokeLocked(token), nil
}

func (r *MemoryRepository) revokeLocked(token string) bool {
	rt, ok := r.tokens[token]
	if !ok || rt.Revoked {
		return false
	}
	rt.Revoked = true
	return true
}

func (r *MemoryRepository) RevokeAllForAccount(_ context.Context, accountID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, rt := range r.tokens {
		if rt.AccountID == accountID {
			rt.Revoked = true
		}
	}
	return nil
}

func (r *MemoryRepository) Rotate(_ context.Context, oldToken string, next *models.RefreshToken) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.revokeLocked(oldToken) {
		return false, nil
	}

	if err := r.insertLocked(next); err != nil {
		return false, err
	}
	return true, nil
}
