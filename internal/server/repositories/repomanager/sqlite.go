package repomanager

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite"

	"github.com/nileauth/nileauth/internal/common"
	"github.com/nileauth/nileauth/internal/server/migrations"
	"github.com/nileauth/nileauth/internal/server/repositories/accounts"
	"github.com/nileauth/nileauth/internal/server/repositories/refreshtokens"
)

type SQLiteRepositoryManager struct {
	db            *sql.DB
	accounts      accounts.Repository
	refreshTokens refreshtokens.Repository
}

// NewSQLiteRepositoryManager opens (or creates) the database file and
// applies migrations synchronously. The pool is limited to one connection:
// SQLite allows a single writer, and a single connection also makes the
// conditional-update revoke a total order.
func NewSQLiteRepositoryManager(ctx context.Context, path string) (*SQLiteRepositoryManager, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)", path)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("db open error: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("db ping error: %w", err)
	}

	m := &SQLiteRepositoryManager{
		db:            db,
		accounts:      accounts.NewSQLiteRepository(db),
		refreshTokens: refreshtokens.NewSQLiteRepository(db),
	}

	if err := m.runMigrations(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migration error: %w", err)
	}

	return m, nil
}

func (m *SQLiteRepositoryManager) runMigrations(ctx context.Context) error {
	goose.SetBaseFS(migrations.SQLite)

	if err := goose.SetDialect("sqlite3"); err != nil {
		return err
	}

	return goose.UpContext(ctx, m.db, "sqlite")
}

func (m *SQLiteRepositoryManager) Accounts() accounts.Repository {
	return m.accounts
}

func (m *SQLiteRepositoryManager) RefreshTokens() refreshtokens.Repository {
	return m.refreshTokens
}

func (m *SQLiteRepositoryManager) Ping(ctx context.Context) error {
	if err := m.db.PingContext(ctx); err != nil {
		return fmt.Errorf("%w: %s", common.ErrStorageUnavailable, err)
	}
	return nil
}

func (m *SQLiteRepositoryManager) Close() error {
	return m.db.Close()
}
