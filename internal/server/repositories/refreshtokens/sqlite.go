package refreshtokens

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sqlite "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/nileauth/nileauth/internal/common"
	"github.com/nileauth/nileauth/internal/dbx"
	"github.com/nileauth/nileauth/internal/server/models"
)

// SQLiteRepository implements Repository over an embedded SQLite file.
// SQLite serializes writers, so the conditional UPDATE in Revoke gives the
// same single-winner guarantee as the Postgres backend.
type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

const (
	liteInsertQuery = `
		INSERT INTO refresh_tokens (token, user_id, expires_at, created_at)
		VALUES (?, ?, ?, ?)
	`
	liteRevokeQuery = `
		UPDATE refresh_tokens SET revoked = 1
		WHERE token = ? AND revoked = 0
	`
)

func isTokenConflict(err error) bool {
	var serr *sqlite.Error
	if !errors.As(err, &serr) {
		return false
	}
	return serr.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE ||
		serr.Code() == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY
}

func (r *SQLiteRepository) Create(ctx context.Context, token *models.RefreshToken) error {
	return liteInsert(ctx, r.db, token)
}

func liteInsert(ctx context.Context, db dbx.DBTX, token *models.RefreshToken) error {
	token.CreatedAt = time.Now().UTC()

	_, err := db.ExecContext(ctx, liteInsertQuery,
		token.Token, token.AccountID, token.ExpiresAt, token.CreatedAt)
	if err != nil {
		if isTokenConflict(err) {
			return common.ErrConflict
		}
		return fmt.Errorf("error performing sql request: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) Find(ctx context.Context, token string) (*models.RefreshToken, error) {
	query := `
		SELECT token, user_id, expires_at, revoked, created_at
		FROM refresh_tokens
		WHERE token = ?
	`
	rt := &models.RefreshToken{}
	err := r.db.QueryRowContext(ctx, query, token).Scan(
		&rt.Token, &rt.AccountID, &rt.ExpiresAt, &rt.Revoked, &rt.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("error performing sql request: %w", err)
	}

	return rt, nil
}

func (r *SQLiteRepository) Revoke(ctx context.Context, token string) (bool, error) {
	res, err := r.db.ExecContext(ctx, liteRevokeQuery, token)
	if err != nil {
		return false, fmt.Errorf("error performing sql request: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("error reading affected rows: %w", err)
	}

	return n == 1, nil
}

func (r *SQLiteRepository) RevokeAllForAccount(ctx context.Context, accountID string) error {
	query := `
		UPDATE refresh_tokens SET revoked = 1
		WHERE user_id = ?
	`
	if _, err := r.db.ExecContext(ctx, query, accountID); err != nil {
		return fmt.Errorf("error performing sql request: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) Rotate(ctx context.Context, oldToken string, next *models.RefreshToken) (bool, error) {
	rotated := false

	err := dbx.WithTx(ctx, r.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		res, err := tx.ExecContext(ctx, liteRevokeQuery, oldToken)
		if err != nil {
			return fmt.Errorf("error revoking token: %w", err)
		}

		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("error reading affected rows: %w", err)
		}
		if n == 0 {
			return nil
		}

		if err := liteInsert(ctx, tx, next); err != nil {
			return fmt.Errorf("error creating successor token: %w", err)
		}

		rotated = true
		return nil
	})
	if err != nil {
		return false, err
	}

	return rotated, nil
}
