package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/nileauth/nileauth/internal/common"
	"github.com/nileauth/nileauth/internal/server/auth"
	"github.com/nileauth/nileauth/internal/server/models"
)

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type tokenRequest struct {
	RefreshToken string `json:"refreshToken"`
	Token        string `json:"token"`
}

func (r *tokenRequest) value() string {
	if r.RefreshToken != "" {
		return r.RefreshToken
	}
	return r.Token
}

type accountResponse struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

type authResponse struct {
	User         accountResponse `json:"user"`
	AccessToken  string          `json:"accessToken"`
	RefreshToken string          `json:"refreshToken"`
}

type introspectResponse struct {
	Active    bool    `json:"active"`
	UserID    *string `json:"userId,omitempty"`
	ExpiresAt *int64  `json:"expiresAt,omitempty"`
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid request body")
		return false
	}
	return true
}

// writeServiceError translates the service error taxonomy into status codes
// and stable error codes. Anything unrecognized is a storage or internal
// failure and maps to 500 without leaking detail.
func (s *Server) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, common.ErrAlreadyExists):
		writeError(w, http.StatusConflict, "USER_EXISTS", "User with this email already exists")
	case errors.Is(err, common.ErrInvalidCredentials):
		writeError(w, http.StatusUnauthorized, "INVALID_CREDENTIALS", "Invalid email or password")
	case errors.Is(err, common.ErrInvalidToken):
		writeError(w, http.StatusUnauthorized, "INVALID_TOKEN", "Invalid refresh token")
	case errors.Is(err, common.ErrTokenExpired):
		writeError(w, http.StatusUnauthorized, "TOKEN_EXPIRED", "Refresh token has expired")
	case errors.Is(err, common.ErrReuseDetected):
		writeError(w, http.StatusUnauthorized, "TOKEN_REUSE_DETECTED", "Token reuse detected - all tokens revoked")
	default:
		s.logger.Error(r.Context(), "unexpected error handling request", "path", r.URL.Path, "error", err)
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Internal server error")
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Ping(r.Context()); err != nil {
		writeError(w, http.StatusServiceUnavailable, "NOT_READY", "Storage backend unavailable")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Email == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "INVALID_REQUEST", "Email and password are required")
		return
	}

	account, pair, err := s.users.Register(r.Context(), req.Email, req.Password)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, authResponse{
		User:         accountResponse{ID: account.ID, Email: account.Email},
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
	})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Email == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "INVALID_REQUEST", "Email and password are required")
		return
	}

	account, pair, err := s.users.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, authResponse{
		User:         accountResponse{ID: account.ID, Email: account.Email},
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
	})
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	var req tokenRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.value() == "" {
		writeError(w, http.StatusBadRequest, "INVALID_REQUEST", "Refresh token is required")
		return
	}

	pair, err := s.users.Refresh(r.Context(), req.value())
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"accessToken":  pair.AccessToken,
		"refreshToken": pair.RefreshToken,
	})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	var req tokenRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.value() == "" {
		writeError(w, http.StatusBadRequest, "INVALID_REQUEST", "Refresh token is required")
		return
	}

	if err := s.users.Logout(r.Context(), req.value()); err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	writeSuccess(w, http.StatusOK, map[string]bool{"revoked": true})
}

// handleRevoke revokes one refresh token out of band, without ending a
// session of its own. Same semantics as logout.
func (s *Server) handleRevoke(w http.ResponseWriter, r *http.Request) {
	var req tokenRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.value() == "" {
		writeError(w, http.StatusBadRequest, "INVALID_REQUEST", "Token is required")
		return
	}

	if err := s.tokens.Revoke(r.Context(), req.value()); err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	writeSuccess(w, http.StatusOK, map[string]bool{"revoked": true})
}

// handleIntrospect reports whether a token is active. The token may be a
// signed access token or an opaque refresh token; both are tried, and an
// unusable token yields {active:false} rather than an error.
func (s *Server) handleIntrospect(w http.ResponseWriter, r *http.Request) {
	var req tokenRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.value() == "" {
		writeError(w, http.StatusBadRequest, "INVALID_REQUEST", "Token is required")
		return
	}

	info := introspectResponse{Active: false}

	if claims, err := auth.ParseClaims(req.value(), s.jwtSecret); err == nil {
		info.Active = true
		info.UserID = &claims.AccountID
		if claims.ExpiresAt != nil {
			exp := claims.ExpiresAt.Unix()
			info.ExpiresAt = &exp
		}
	} else if rec, err := s.tokens.Get(r.Context(), req.value()); err == nil {
		info = refreshTokenInfo(rec)
	}

	writeJSON(w, http.StatusOK, info)
}

func refreshTokenInfo(rec *models.RefreshToken) introspectResponse {
	if rec.Revoked || rec.Expired(time.Now()) {
		return introspectResponse{Active: false}
	}
	exp := rec.ExpiresAt.Unix()
	return introspectResponse{Active: true, UserID: &rec.AccountID, ExpiresAt: &exp}
}

// handleValidate checks a bearer access token from the Authorization header
// or a token query parameter.
func (s *Server) handleValidate(w http.ResponseWriter, r *http.Request) {
	tokenString := r.URL.Query().Get("token")
	if tokenString == "" {
		if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
			tokenString = strings.TrimPrefix(h, "Bearer ")
		}
	}
	if tokenString == "" {
		writeError(w, http.StatusBadRequest, "INVALID_REQUEST", "Token is required")
		return
	}

	claims, err := auth.ParseClaims(tokenString, s.jwtSecret)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "INVALID_TOKEN", "Token is invalid or expired")
		return
	}

	writeSuccess(w, http.StatusOK, map[string]any{
		"valid":  true,
		"userId": claims.AccountID,
		"exp":    claims.ExpiresAt.Unix(),
	})
}
