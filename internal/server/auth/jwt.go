// Package auth issues and verifies the short-lived access tokens handed out
// next to refresh tokens. Tokens are HS256 JWTs signed with a shared secret.
package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/nileauth/nileauth/internal/common"
)

// Claims carries the standard registered claims plus the account identifier.
type Claims struct {
	jwt.RegisteredClaims
	AccountID string `json:"uid"`
}

// GenerateToken signs an access token for accountID valid for
// validityDuration from now.
func GenerateToken(accountID string, secretKey []byte, validityDuration time.Duration) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(validityDuration)),
		},
		AccountID: accountID,
	})

	tokenString, err := token.SignedString(secretKey)
	if err != nil {
		return "", err
	}

	return tokenString, nil
}

// ParseClaims verifies the signature and validity window of tokenString and
// returns its claims. Invalid, expired or forged tokens yield
// common.ErrInvalidToken.
func ParseClaims(tokenString string, secretKey []byte) (*Claims, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return secretKey, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, common.ErrInvalidToken
	}

	if !token.Valid {
		return nil, common.ErrInvalidToken
	}

	return claims, nil
}

// GetAccountIDFromToken verifies tokenString and extracts the account id.
func GetAccountIDFromToken(tokenString string, secretKey []byte) (string, error) {
	claims, err := ParseClaims(tokenString, secretKey)
	if err != nil {
		return "", err
	}

	return claims.AccountID, nil
}
