package refreshtokens

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/nileauth/nileauth/internal/common"
	"github.com/nileauth/nileauth/internal/dbx"
	"github.com/nileauth/nileauth/internal/server/models"
)

// PostgresRepository implements Repository over a refresh_tokens table where
// the token string is the primary key. The conditional UPDATE in Revoke is
// the serialization point for concurrent rotations: row-level locking
// guarantees at most one caller observes RowsAffected == 1.
type PostgresRepository struct {
	db *sql.DB
}

func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const (
	pgInsertQuery = `
		INSERT INTO refresh_tokens (token, user_id, expires_at)
		VALUES ($1, $2, $3)
		RETURNING created_at
	`
	pgRevokeQuery = `
		UPDATE refresh_tokens SET revoked = TRUE
		WHERE token = $1 AND revoked = FALSE
	`
)

func (r *PostgresRepository) Create(ctx context.Context, token *models.RefreshToken) error {
	return pgInsert(ctx, r.db, token)
}

func pgInsert(ctx context.Context, db dbx.DBTX, token *models.RefreshToken) error {
	err := db.QueryRowContext(ctx, pgInsertQuery,
		token.Token, token.AccountID, token.ExpiresAt).Scan(&token.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return common.ErrConflict
		}
		return fmt.Errorf("error performing sql request: %w", err)
	}
	return nil
}

func (r *PostgresRepository) Find(ctx context.Context, token string) (*models.RefreshToken, error) {
	query := `
		SELECT token, user_id, expires_at, revoked, created_at
		FROM refresh_tokens
		WHERE token = $1
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

func (r *PostgresRepository) Revoke(ctx context.Context, token string) (bool, error) {
	res, err := r.db.ExecContext(ctx, pgRevokeQuery, token)
	if err != nil {
		return false, fmt.Errorf("error performing sql request: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("error reading affected rows: %w", err)
	}

	return n == 1, nil
}

func (r *PostgresRepository) RevokeAllForAccount(ctx context.Context, accountID string) error {
	query := `
		UPDATE refresh_tokens SET revoked = TRUE
		WHERE user_id = $1
	`
	if _, err := r.db.ExecContext(ctx, query, accountID); err != nil {
		return fmt.Errorf("error performing sql request: %w", err)
	}
	return nil
}

func (r *PostgresRepository) Rotate(ctx context.Context, oldToken string, next *models.RefreshToken) (bool, error) {
	rotated := false

	err := dbx.WithTx(ctx, r.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		res, err := tx.ExecContext(ctx, pgRevokeQuery, oldToken)
		if err != nil {
			return fmt.Errorf("error revoking token: %w", err)
		}

		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("error reading affected rows: %w", err)
		}
		if n == 0 {
			// lost the race or the token was already revoked;
			// nothing to undo
			return nil
		}

		if err := pgInsert(ctx, tx, next); err != nil {
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
