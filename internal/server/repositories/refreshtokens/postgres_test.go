package refreshtokens

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/nileauth/nileauth/internal/common"
	"github.com/nileauth/nileauth/internal/server/models"
)

func newRepoWithMock(t *testing.T) (*PostgresRepository, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	return NewPostgresRepository(db), mock, db
}

const (
	insertPattern    = `(?s)^\s*INSERT\s+INTO\s+refresh_tokens\b.*VALUES\s*\(\$1,\s*\$2,\s*\$3\)`
	findPattern      = `(?s)^\s*SELECT\s+token,\s*user_id,\s*expires_at,\s*revoked,\s*created_at\s+FROM\s+refresh_tokens\s+WHERE\s+token\s*=\s*\$1`
	revokePattern    = `(?s)^\s*UPDATE\s+refresh_tokens\s+SET\s+revoked\s*=\s*TRUE\s+WHERE\s+token\s*=\s*\$1\s+AND\s+revoked\s*=\s*FALSE`
	revokeAllPattern = `(?s)^\s*UPDATE\s+refresh_tokens\s+SET\s+revoked\s*=\s*TRUE\s+WHERE\s+user_id\s*=\s*\$1`
)

func sampleToken() *models.RefreshToken {
	return &models.RefreshToken{
		Token:     "tok123",
		AccountID: "acc1",
		ExpiresAt: time.Now().Add(30 * 24 * time.Hour),
	}
}

func TestCreate_Success(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	created := time.Now()
	mock.ExpectQuery(insertPattern).
		WithArgs("tok123", "acc1", sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"created_at"}).AddRow(created))

	tok := sampleToken()
	if err := repo.Create(context.Background(), tok); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !tok.CreatedAt.Equal(created) {
		t.Fatalf("created_at not populated from storage: %v", tok.CreatedAt)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestCreate_DBError(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(insertPattern).
		WithArgs("tok123", "acc1", sqlmock.AnyArg()).
		WillReturnError(errors.New("db down"))

	err := repo.Create(context.Background(), sampleToken())
	if err == nil || errors.Is(err, common.ErrConflict) {
		t.Fatalf("expected wrapped db error, got %v", err)
	}
}

func TestFind_Found(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	expires := time.Now().Add(10 * time.Minute)
	created := time.Now()
	rows := sqlmock.NewRows([]string{"token", "user_id", "expires_at", "revoked", "created_at"}).
		AddRow("tok123", "acc1", expires, false, created)

	mock.ExpectQuery(findPattern).
		WithArgs("tok123").
		WillReturnRows(rows)

	got, err := repo.Find(context.Background(), "tok123")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.AccountID != "acc1" || !got.ExpiresAt.Equal(expires) || got.Revoked {
		t.Fatalf("unexpected row: %+v", got)
	}
}

func TestFind_NotFound(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(findPattern).
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.Find(context.Background(), "missing")
	if !errors.Is(err, common.ErrNotFound) {
		t.Fatalf("want common.ErrNotFound, got %v", err)
	}
}

func TestRevoke_FlipsRow(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectExec(revokePattern).
		WithArgs("tok123").
		WillReturnResult(sqlmock.NewResult(0, 1))

	flipped, err := repo.Revoke(context.Background(), "tok123")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !flipped {
		t.Fatalf("expected Revoke to report the flip")
	}
}

func TestRevoke_AlreadyRevokedOrMissing(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectExec(revokePattern).
		WithArgs("tok123").
		WillReturnResult(sqlmock.NewResult(0, 0))

	flipped, err := repo.Revoke(context.Background(), "tok123")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if flipped {
		t.Fatalf("expected no flip for an already-revoked row")
	}
}

func TestRevokeAllForAccount(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectExec(revokeAllPattern).
		WithArgs("acc1").
		WillReturnResult(sqlmock.NewResult(0, 3))

	if err := repo.RevokeAllForAccount(context.Background(), "acc1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestRotate_WinsRace(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec(revokePattern).
		WithArgs("old").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(insertPattern).
		WithArgs("new", "acc1", sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"created_at"}).AddRow(time.Now()))
	mock.ExpectCommit()

	next := &models.RefreshToken{Token: "new", AccountID: "acc1", ExpiresAt: time.Now().Add(time.Hour)}
	rotated, err := repo.Rotate(context.Background(), "old", next)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !rotated {
		t.Fatalf("expected rotation to succeed")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestRotate_LosesRace(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	// CAS revokes nothing: no insert must follow
	mock.ExpectBegin()
	mock.ExpectExec(revokePattern).
		WithArgs("old").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	next := &models.RefreshToken{Token: "new", AccountID: "acc1", ExpiresAt: time.Now().Add(time.Hour)}
	rotated, err := repo.Rotate(context.Background(), "old", next)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rotated {
		t.Fatalf("expected rotation to report the lost race")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestRotate_InsertFailureRollsBack(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec(revokePattern).
		WithArgs("old").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(insertPattern).
		WithArgs("new", "acc1", sqlmock.AnyArg()).
		WillReturnError(errors.New("insert failed"))
	mock.ExpectRollback()

	next := &models.RefreshToken{Token: "new", AccountID: "acc1", ExpiresAt: time.Now().Add(time.Hour)}
	_, err := repo.Rotate(context.Background(), "old", next)
	if err == nil {
		t.Fatalf("expected error")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}
