package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/pulsefeed/pulse/internal/auth/rpc"
	"github.com/pulsefeed/pulse/internal/auth/service"
	"github.com/pulsefeed/pulse/internal/auth/store"
	"github.com/pulsefeed/pulse/internal/auth/store/drivers/postgres"
	"github.com/pulsefeed/pulse/internal/auth/store/drivers/sqlite"
	"github.com/pulsefeed/pulse/pkg/jwtx"
	"github.com/pulsefeed/pulse/pkg/slogx"
)

const (
	// BuildVersion should be set at build time via ldflags. Later problem
	BuildVersion = "v0.1.0"
)

// Application encapsulates the auth service with all its dependencies.
type Application struct {
	cfg    Config
	logger *slog.Logger

	db store.Store

	sessionService      *service.SessionService
	housekeepingService *service.HousekeepingService

	server *http.Server
	router *rpc.Router
}

// New creates an Application instance with all dependencies initialized.
func New(cfg Config) (*Application, error) {
	app := &Application{
		cfg: cfg,
		logger: slogx.New(slogx.Config{
			Service: rpc.ServiceName,
			Version: BuildVersion,
			Env:     cfg.Env,
			Level:   cfg.LogLevel,
			Format:  cfg.LogFormat,
		}),
	}

	if cfg.JWTSecret == "" {
		return nil, errors.New("JWT_SECRET must be set")
	}

	if err := app.initDatabase(); err != nil {
		return nil, err
	}

	app.initServices()
	app.initHTTP()

	return app, nil
}

// Run starts the application and blocks until shutdown is requested.
func (app *Application) Run() error {
	app.housekeepingService.Start()

	app.logger.Info("auth service starting", "port", app.cfg.Port, "version", BuildVersion)

	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- app.server.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server failed: %w", err)
		}
	case sig := <-shutdown:
		app.logger.Info("shutdown signal received", "signal", sig)

		if err := app.Shutdown(); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
	}

	return nil
}

// Shutdown gracefully shuts down the application.
func (app *Application) Shutdown() error {
	app.logger.Info("shutting down auth service...")

	ctx, cancel := context.WithTimeout(context.Background(), app.cfg.ShutdownGracePeriod)
	defer cancel()

	if err := app.server.Shutdown(ctx); err != nil {
		app.logger.Error("graceful server shutdown failed", "error", err)
		if err := app.server.Close(); err != nil {
			app.logger.Error("error closing server", "error", err)
		}
	}

	app.housekeepingService.Stop()

	if err := app.db.Close(); err != nil {
		app.logger.Error("error closing database", "error", err)
		return err
	}

	app.logger.Info("auth service stopped")
	return nil
}

// initDatabase picks a driver from the DATABASE_URL shape and applies
// migrations. A postgres:// DSN selects postgres; anything else is treated
// as a sqlite file path.
func (app *Application) initDatabase() error {
	var (
		db  store.Store
		err error
	)

	if strings.HasPrefix(app.cfg.DatabaseURL, "postgres://") ||
		strings.HasPrefix(app.cfg.DatabaseURL, "postgresql://") {
		db, err = postgres.NewStore(app.cfg.DatabaseURL)
	} else {
		db, err = sqlite.NewStore(sqlite.FileDSN(app.cfg.DatabaseURL))
	}
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	app.db = db

	if err := db.ApplyMigrations(); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to apply database migrations: %w", err)
	}

	app.logger.Info("database migrations applied successfully")
	return nil
}

// initServices initializes the business logic services.
func (app *Application) initServices() {
	secret := []byte(app.cfg.JWTSecret)

	app.sessionService = &service.SessionService{
		Store:      app.db,
		Signer:     jwtx.NewSigner(secret, app.cfg.Issuer, app.cfg.AccessTokenTTL),
		Verifier:   jwtx.NewVerifier(secret, app.cfg.Issuer),
		RefreshTTL: app.cfg.RefreshTokenTTL,
	}

	app.housekeepingService = service.NewHousekeepingService(
		app.db,
		app.logger,
		app.cfg.HousekeepingInterval,
	)
}

// initHTTP initializes the RPC router and server.
func (app *Application) initHTTP() {
	router := rpc.NewRouter(app.sessionService, app.db, BuildVersion, app.logger)
	router.ApplyRoutes()
	app.router = router

	app.server = &http.Server{
		Addr:    fmt.Sprintf(":%d", app.cfg.Port),
		Handler: router,
	}
}
