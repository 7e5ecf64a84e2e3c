// Package server initializes and runs the auth service: it selects the
// storage backend, wires the services together and handles graceful
// shutdown.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/nileauth/nileauth/internal/logging"
	"github.com/nileauth/nileauth/internal/server/config"
	"github.com/nileauth/nileauth/internal/server/httpapi"
	"github.com/nileauth/nileauth/internal/server/password"
	"github.com/nileauth/nileauth/internal/server/repositories/repomanager"
	"github.com/nileauth/nileauth/internal/server/tokens"
	"github.com/nileauth/nileauth/internal/server/users"
)

type App struct {
	config       *config.Config
	logger       logging.Logger
	store        repomanager.RepositoryManager
	tokenService *tokens.Service
	userService  *users.Service
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	logger := logging.NewSlogLogger(slog.New(slog.NewJSONHandler(os.Stdout, nil)))

	store, err := newRepositoryManager(ctx, c)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	hasher, err := password.NewBcrypt(c.BcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hasher init error: %w", err)
	}

	ts := tokens.NewService(store.RefreshTokens(), tokens.NewIssuer(c.RefreshTokenValidityDuration), logger)
	us := users.NewService(store.Accounts(), ts, hasher,
		[]byte(c.SecretKey), c.AccessTokenValidityDuration, logger)

	return &App{
		config:       c,
		logger:       logger,
		store:        store,
		tokenService: ts,
		userService:  us,
	}, nil
}

func newRepositoryManager(ctx context.Context, c *config.Config) (repomanager.RepositoryManager, error) {
	switch c.DBAdapter {
	case "memory":
		return repomanager.NewMemoryRepositoryManager(), nil
	case "sqlite":
		return repomanager.NewSQLiteRepositoryManager(ctx, c.SQLitePath)
	case "postgres":
		return repomanager.NewPostgresRepositoryManager(ctx, c.DatabaseDSN)
	default:
		return nil, fmt.Errorf("unknown db adapter: %s", c.DBAdapter)
	}
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) startHTTPServer(ctx context.Context, cancelFunc context.CancelFunc) {
	s := httpapi.NewServer(app.config.EndpointAddr, app.userService, app.tokenService,
		app.store, app.config.SecretKey, app.logger)

	if err := s.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

func (app *App) Run(ctx context.Context) {
	ctx, cancelFunc := context.WithCancel(ctx)

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.startHTTPServer(ctx, cancelFunc)
	}()

	wg.Wait()

	if err := app.store.Close(); err != nil {
		app.logger.Error(ctx, "error closing storage", "error", err)
	}
}
