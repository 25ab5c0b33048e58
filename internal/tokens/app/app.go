// Package app wires configuration, storage, services and the HTTP surface
// into a runnable token service.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/calderasec/keyturn/internal/tokens/audit"
	httpapi "github.com/calderasec/keyturn/internal/tokens/http"
	"github.com/calderasec/keyturn/internal/tokens/service"
	"github.com/calderasec/keyturn/internal/tokens/store"
	"github.com/calderasec/keyturn/internal/tokens/store/drivers/sqlite"
	"github.com/calderasec/keyturn/pkg/jwtx"
	"github.com/calderasec/keyturn/pkg/slogx"
)

// BuildVersion should be set at build time via ldflags.
const BuildVersion = "v0.1.0"

// Application encapsulates the token service with all its dependencies.
type Application struct {
	cfg    Config
	logger *slog.Logger

	db    store.Store
	codec *jwtx.Codec

	auditDispatcher     *audit.Dispatcher
	tokenService        *service.TokenService
	housekeepingService *service.HousekeepingService

	server *http.Server
	router *httpapi.Router
}

// New creates an Application with all dependencies initialized.
func New(cfg Config) (*Application, error) {
	app := &Application{
		cfg: cfg,
		logger: slogx.New(slogx.Config{
			Service: "keyturn",
			Version: BuildVersion,
			Env:     cfg.Env,
			Level:   cfg.LogLevel,
			Format:  cfg.LogFormat,
		}),
	}

	if err := app.initDatabase(); err != nil {
		return nil, err
	}

	if err := app.initCodec(); err != nil {
		_ = app.db.Close()
		return nil, err
	}

	app.initServices()
	app.initHTTP()

	return app, nil
}

// Run starts the application and blocks until shutdown is requested.
func (app *Application) Run() error {
	app.housekeepingService.Start()

	app.logger.Info("token service starting", "port", app.cfg.Port, "version", BuildVersion)

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

// Shutdown gracefully stops the HTTP server, the background workers and the
// database, in that order: no new work, drain audit, release storage.
func (app *Application) Shutdown() error {
	app.logger.Info("shutting down token service...")

	ctx, cancel := context.WithTimeout(context.Background(), app.cfg.ShutdownGracePeriod)
	defer cancel()

	if err := app.server.Shutdown(ctx); err != nil {
		app.logger.Error("graceful server shutdown failed", "error", err)
		if err := app.server.Close(); err != nil {
			app.logger.Error("error closing server", "error", err)
		}
	}

	app.housekeepingService.Stop()
	app.auditDispatcher.Close()

	if err := app.db.Close(); err != nil {
		app.logger.Error("error closing database", "error", err)
		return err
	}

	app.logger.Info("token service stopped")
	return nil
}

// initDatabase opens the store and applies migrations.
func (app *Application) initDatabase() error {
	dsn := fmt.Sprintf("file:%s?_busy_timeout=5000&_journal_mode=WAL", app.cfg.DatabaseFile)
	db, err := sqlite.NewStore(dsn)
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

// initCodec builds the access-token signer: a persistent key when one is
// configured, otherwise a fresh ephemeral key. Ephemeral keys invalidate
// outstanding access tokens on restart, which their short lifetime absorbs.
func (app *Application) initCodec() error {
	if app.cfg.SigningKeyFile == "" {
		codec, err := jwtx.GenerateCodec(app.cfg.Issuer)
		if err != nil {
			return fmt.Errorf("failed to generate signing key: %w", err)
		}
		app.codec = codec
		app.logger.Warn("no signing key configured, using ephemeral key")
		return nil
	}

	pemKey, err := os.ReadFile(app.cfg.SigningKeyFile)
	if err != nil {
		return fmt.Errorf("failed to read signing key: %w", err)
	}
	codec, err := jwtx.NewCodecFromPEM(pemKey, app.cfg.Issuer)
	if err != nil {
		return fmt.Errorf("failed to load signing key: %w", err)
	}
	app.codec = codec
	return nil
}

// initServices initializes the business logic services.
func (app *Application) initServices() {
	app.auditDispatcher = audit.NewDispatcher(app.db.AuditEvents(), app.logger, 0)

	app.tokenService = &service.TokenService{
		Codec:      app.codec,
		Store:      app.db,
		Audit:      app.auditDispatcher,
		AccessTTL:  app.cfg.AccessTokenTTL,
		RefreshTTL: app.cfg.RefreshTokenTTL,
	}

	app.housekeepingService = service.NewHousekeepingService(
		app.db,
		app.logger,
		app.cfg.HousekeepingInterval,
		app.cfg.RetentionPeriod,
	)
}

// initHTTP initializes the HTTP router and server.
func (app *Application) initHTTP() {
	router := httpapi.NewRouter(
		BuildVersion,
		app.cfg.AdminTokenHash,
		app.db,
		app.logger,
	)
	router.TokenService = app.tokenService
	router.ApplyRoutes()

	app.router = router

	app.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", app.cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 3 * time.Second,
	}
}
