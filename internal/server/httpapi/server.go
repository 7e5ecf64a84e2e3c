// Package httpapi is the HTTP transport: it maps the auth operations onto
// a JSON API and the service error taxonomy onto status codes.
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/nileauth/nileauth/internal/logging"
	"github.com/nileauth/nileauth/internal/server/repositories/repomanager"
	"github.com/nileauth/nileauth/internal/server/tokens"
	"github.com/nileauth/nileauth/internal/server/users"
)

type Server struct {
	address   string
	users     *users.Service
	tokens    *tokens.Service
	store     repomanager.RepositoryManager
	jwtSecret []byte
	logger    logging.Logger
}

func NewServer(address string, us *users.Service, ts *tokens.Service,
	store repomanager.RepositoryManager, secretKey string, logger logging.Logger) *Server {
	return &Server{
		address:   address,
		users:     us,
		tokens:    ts,
		store:     store,
		jwtSecret: []byte(secretKey),
		logger:    logger.With("module", "http_server"),
	}
}

func (s *Server) router() *mux.Router {
	r := mux.NewRouter()
	r.Use(securityHeaders)
	r.Use(s.requestLogging)

	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/ready", s.handleReady).Methods(http.MethodGet)

	v1 := r.PathPrefix("/api/v1").Subrouter()
	v1.HandleFunc("/auth/register", s.handleRegister).Methods(http.MethodPost)
	v1.HandleFunc("/auth/login", s.handleLogin).Methods(http.MethodPost)
	v1.HandleFunc("/auth/refresh", s.handleRefresh).Methods(http.MethodPost)
	v1.HandleFunc("/auth/logout", s.handleLogout).Methods(http.MethodPost)
	v1.HandleFunc("/auth/revoke", s.handleRevoke).Methods(http.MethodPost)
	v1.HandleFunc("/auth/introspect", s.handleIntrospect).Methods(http.MethodPost)
	v1.HandleFunc("/auth/validate", s.handleValidate).Methods(http.MethodGet)

	return r
}

// Run serves until ctx is cancelled, then drains in-flight requests.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:         s.address,
		Handler:      s.router(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping HTTP server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.logger.Error(ctx, "error shutting down HTTP server", "error", err)
		}
	}()

	s.logger.Info(ctx, "Starting HTTP server", "address", s.address)

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	return nil
}
