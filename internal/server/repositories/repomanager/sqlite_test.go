package repomanager

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/nileauth/nileauth/internal/common"
	"github.com/nileauth/nileauth/internal/server/models"
)

// These tests run against a real SQLite file, exercising the embedded
// migrations and both repositories end to end.

func newSQLiteManager(t *testing.T) *SQLiteRepositoryManager {
	t.Helper()
	m, err := NewSQLiteRepositoryManager(context.Background(), filepath.Join(t.TempDir(), "auth.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = m.Close() })
	return m
}

func TestSQLite_MigrationsAndPing(t *testing.T) {
	m := newSQLiteManager(t)
	require.NoError(t, m.Ping(context.Background()))
}

func TestSQLite_AccountRoundTrip(t *testing.T) {
	m := newSQLiteManager(t)
	ctx := context.Background()

	account := &models.Account{ID: "id-1", Email: "a@x.com", PasswordHash: "hash"}
	created, err := m.Accounts().Create(ctx, account)
	require.NoError(t, err)
	require.False(t, created.CreatedAt.IsZero())

	got, err := m.Accounts().GetByEmail(ctx, "a@x.com")
	require.NoError(t, err)
	require.Equal(t, "id-1", got.ID)
	require.Equal(t, "hash", got.PasswordHash)

	_, err = m.Accounts().GetByEmail(ctx, "missing@x.com")
	require.ErrorIs(t, err, common.ErrNotFound)

	_, err = m.Accounts().Create(ctx, &models.Account{ID: "id-2", Email: "a@x.com", PasswordHash: "other"})
	require.ErrorIs(t, err, common.ErrAlreadyExists)
}

func createAccount(t *testing.T, m *SQLiteRepositoryManager, id, email string) {
	t.Helper()
	_, err := m.Accounts().Create(context.Background(), &models.Account{
		ID: id, Email: email, PasswordHash: "hash",
	})
	require.NoError(t, err)
}

func TestSQLite_RefreshTokenLifecycle(t *testing.T) {
	m := newSQLiteManager(t)
	ctx := context.Background()
	createAccount(t, m, "acc-1", "a@x.com")

	repo := m.RefreshTokens()
	expires := time.Now().Add(time.Hour).UTC()

	err := repo.Create(ctx, &models.RefreshToken{Token: "t1", AccountID: "acc-1", ExpiresAt: expires})
	require.NoError(t, err)

	err = repo.Create(ctx, &models.RefreshToken{Token: "t1", AccountID: "acc-1", ExpiresAt: expires})
	require.ErrorIs(t, err, common.ErrConflict)

	got, err := repo.Find(ctx, "t1")
	require.NoError(t, err)
	require.Equal(t, "acc-1", got.AccountID)
	require.False(t, got.Revoked)
	require.WithinDuration(t, expires, got.ExpiresAt, time.Second)

	flipped, err := repo.Revoke(ctx, "t1")
	require.NoError(t, err)
	require.True(t, flipped)

	flipped, err = repo.Revoke(ctx, "t1")
	require.NoError(t, err)
	require.False(t, flipped, "second revoke must not flip again")

	got, err = repo.Find(ctx, "t1")
	require.NoError(t, err)
	require.True(t, got.Revoked, "revocation is permanent")
}

func TestSQLite_RotateAndBulkRevoke(t *testing.T) {
	m := newSQLiteManager(t)
	ctx := context.Background()
	createAccount(t, m, "acc-1", "a@x.com")

	repo := m.RefreshTokens()
	expires := time.Now().Add(time.Hour).UTC()

	require.NoError(t, repo.Create(ctx, &models.RefreshToken{Token: "old", AccountID: "acc-1", ExpiresAt: expires}))

	rotated, err := repo.Rotate(ctx, "old", &models.RefreshToken{Token: "new", AccountID: "acc-1", ExpiresAt: expires})
	require.NoError(t, err)
	require.True(t, rotated)

	old, err := repo.Find(ctx, "old")
	require.NoError(t, err)
	require.True(t, old.Revoked)

	// replaying the consumed token loses and must not insert a successor
	rotated, err = repo.Rotate(ctx, "old", &models.RefreshToken{Token: "new2", AccountID: "acc-1", ExpiresAt: expires})
	require.NoError(t, err)
	require.False(t, rotated)
	_, err = repo.Find(ctx, "new2")
	require.True(t, errors.Is(err, common.ErrNotFound))

	require.NoError(t, repo.RevokeAllForAccount(ctx, "acc-1"))
	current, err := repo.Find(ctx, "new")
	require.NoError(t, err)
	require.True(t, current.Revoked)
}
