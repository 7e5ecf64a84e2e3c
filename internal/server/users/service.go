// Package users is the auth orchestrator: it composes the account store,
// the password hasher, the access-token signer and the refresh-token
// lifecycle manager into the register, login, refresh and logout operations.
package users

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/nileauth/nileauth/internal/common"
	"github.com/nileauth/nileauth/internal/logging"
	"github.com/nileauth/nileauth/internal/server/auth"
	"github.com/nileauth/nileauth/internal/server/models"
	"github.com/nileauth/nileauth/internal/server/password"
	"github.com/nileauth/nileauth/internal/server/repositories/accounts"
	"github.com/nileauth/nileauth/internal/server/tokens"
)

// TokenPair is the credential pair handed back on register, login and
// refresh: a short-lived signed access token and a long-lived opaque
// refresh token.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

type Service struct {
	accounts accounts.Repository
	tokens   *tokens.Service
	hasher   password.Hasher

	secretKey                   []byte
	accessTokenValidityDuration time.Duration

	logger logging.Logger
}

func NewService(accountRepo accounts.Repository, tokenService *tokens.Service,
	hasher password.Hasher, secretKey []byte, accessTokenValidity time.Duration,
	logger logging.Logger) *Service {
	return &Service{
		accounts:                    accountRepo,
		tokens:                      tokenService,
		hasher:                      hasher,
		secretKey:                   secretKey,
		accessTokenValidityDuration: accessTokenValidity,
		logger:                      logger.With("module", "users"),
	}
}

// Register creates an account and issues its first token pair. Returns
// common.ErrAlreadyExists if the email is taken.
func (s *Service) Register(ctx context.Context, email, pw string) (*models.Account, *TokenPair, error) {
	hash, err := s.hasher.Hash(pw)
	if err != nil {
		return nil, nil, fmt.Errorf("error hashing password: %w", err)
	}

	account, err := s.accounts.Create(ctx, &models.Account{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: hash,
	})
	if err != nil {
		if errors.Is(err, common.ErrAlreadyExists) {
			return nil, nil, common.ErrAlreadyExists
		}
		return nil, nil, fmt.Errorf("error creating account: %w", err)
	}

	pair, err := s.issueTokenPair(ctx, account.ID)
	if err != nil {
		return nil, nil, err
	}

	s.logger.Info(ctx, "account registered", "account_id", account.ID)
	return account, pair, nil
}

// Login verifies the credentials and issues a fresh token pair. The
// unknown-email and wrong-password paths return the same
// common.ErrInvalidCredentials and burn the same hashing cost, so a caller
// cannot probe which emails are registered.
func (s *Service) Login(ctx context.Context, email, pw string) (*models.Account, *TokenPair, error) {
	account, err := s.accounts.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			s.hasher.DummyVerify(pw)
			return nil, nil, common.ErrInvalidCredentials
		}
		return nil, nil, fmt.Errorf("error searching account: %w", err)
	}

	if !s.hasher.Verify(pw, account.PasswordHash) {
		return nil, nil, common.ErrInvalidCredentials
	}

	pair, err := s.issueTokenPair(ctx, account.ID)
	if err != nil {
		return nil, nil, err
	}

	return account, pair, nil
}

// Refresh exchanges a refresh token for a new pair. The lifecycle manager
// owns the rotation and reuse-detection rules; any of its sentinel errors
// pass through unchanged for the transport layer to classify.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	next, err := s.tokens.Rotate(ctx, refreshToken)
	if err != nil {
		return nil, err
	}

	accessToken, err := auth.GenerateToken(next.AccountID, s.secretKey, s.accessTokenValidityDuration)
	if err != nil {
		return nil, fmt.Errorf("error generating access token: %w", err)
	}

	return &TokenPair{AccessToken: accessToken, RefreshToken: next.Token}, nil
}

// Logout revokes the presented refresh token. Revoking an already-revoked
// or unknown token is not an error.
func (s *Service) Logout(ctx context.Context, refreshToken string) error {
	return s.tokens.Revoke(ctx, refreshToken)
}

func (s *Service) issueTokenPair(ctx context.Context, accountID string) (*TokenPair, error) {
	accessToken, err := auth.GenerateToken(accountID, s.secretKey, s.accessTokenValidityDuration)
	if err != nil {
		return nil, fmt.Errorf("error generating access token: %w", err)
	}

	refreshToken, err := s.tokens.Create(ctx, accountID)
	if err != nil {
		return nil, err
	}

	return &TokenPair{AccessToken: accessToken, RefreshToken: refreshToken.Token}, nil
}
