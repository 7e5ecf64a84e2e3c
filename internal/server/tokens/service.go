package tokens

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/nileauth/nileauth/internal/common"
	"github.com/nileauth/nileauth/internal/logging"
	"github.com/nileauth/nileauth/internal/server/models"
	"github.com/nileauth/nileauth/internal/server/repositories/refreshtokens"
)

// Service is the refresh-token lifecycle manager. A token moves through
// three states: active, expired (inferred from the timestamp, never stored)
// and revoked, which is terminal.
//
// The critical control lives in Rotate: presenting a revoked token means it
// was already consumed, either by an attacker or by the legitimate client
// twice, and the whole family of tokens for that account is revoked. Expiry,
// by contrast, is an ordinary lapse and triggers nothing.
type Service struct {
	repo   refreshtokens.Repository
	issuer *Issuer
	logger logging.Logger
}

func NewService(repo refreshtokens.Repository, issuer *Issuer, logger logging.Logger) *Service {
	return &Service{
		repo:   repo,
		issuer: issuer,
		logger: logger.With("module", "tokens"),
	}
}

// Create mints and persists a new active refresh token for the account.
func (s *Service) Create(ctx context.Context, accountID string) (*models.RefreshToken, error) {
	rt, err := s.mint(accountID)
	if err != nil {
		return nil, err
	}

	if err := s.repo.Create(ctx, rt); err != nil {
		return nil, fmt.Errorf("error storing refresh token: %w", err)
	}

	return rt, nil
}

func (s *Service) mint(accountID string) (*models.RefreshToken, error) {
	token, err := s.issuer.Generate()
	if err != nil {
		return nil, fmt.Errorf("error generating refresh token: %w", err)
	}

	return &models.RefreshToken{
		Token:     token,
		AccountID: accountID,
		ExpiresAt: s.issuer.Expiry(),
	}, nil
}

// Rotate validates the presented token and exchanges it for a successor.
// Outcomes:
//   - unknown token: common.ErrInvalidToken
//   - revoked token: the account's entire token family is revoked, then
//     common.ErrReuseDetected
//   - expired token: common.ErrTokenExpired, no family revocation
//   - otherwise the old token is revoked and the successor returned; if a
//     concurrent call consumed the token first, the loser takes the reuse
//     path as well, since a consumed token presented again is
//     indistinguishable from replay
func (s *Service) Rotate(ctx context.Context, token string) (*models.RefreshToken, error) {
	rec, err := s.repo.Find(ctx, token)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, common.ErrInvalidToken
		}
		return nil, fmt.Errorf("error searching refresh token: %w", err)
	}

	if rec.Revoked {
		return nil, s.reuseDetected(ctx, rec.AccountID)
	}

	if rec.Expired(time.Now()) {
		return nil, common.ErrTokenExpired
	}

	next, err := s.mint(rec.AccountID)
	if err != nil {
		return nil, err
	}

	rotated, err := s.repo.Rotate(ctx, token, next)
	if err != nil {
		return nil, fmt.Errorf("error rotating refresh token: %w", err)
	}
	if !rotated {
		return nil, s.reuseDetected(ctx, rec.AccountID)
	}

	return next, nil
}

// reuseDetected revokes every token of the account in one bulk operation
// and reports the reuse. The Warn entry is the signal security monitoring
// keys on.
func (s *Service) reuseDetected(ctx context.Context, accountID string) error {
	s.logger.Warn(ctx, "refresh token reuse detected, revoking all tokens for account",
		"account_id", accountID)

	if err := s.repo.RevokeAllForAccount(ctx, accountID); err != nil {
		return fmt.Errorf("error revoking tokens for account: %w", err)
	}

	return common.ErrReuseDetected
}

// Revoke handles explicit logout. Always succeeds from the caller's point
// of view; whether a row actually flipped is only logged for auditing.
func (s *Service) Revoke(ctx context.Context, token string) error {
	flipped, err := s.repo.Revoke(ctx, token)
	if err != nil {
		return fmt.Errorf("error revoking refresh token: %w", err)
	}

	if !flipped {
		s.logger.Info(ctx, "logout for unknown or already revoked token")
	}

	return nil
}

// Get returns the stored record for a token without touching its state.
// Used by introspection.
func (s *Service) Get(ctx context.Context, token string) (*models.RefreshToken, error) {
	rec, err := s.repo.Find(ctx, token)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("error searching refresh token: %w", err)
	}

	return rec, nil
}
