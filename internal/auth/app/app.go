package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	httpapi "github.com/aussiebroadwan/ssohandoff/internal/auth/http"
	"github.com/aussiebroadwan/ssohandoff/internal/auth/metrics"
	"github.com/aussiebroadwan/ssohandoff/internal/auth/service"
	"github.com/aussiebroadwan/ssohandoff/internal/auth/store"
	"github.com/aussiebroadwan/ssohandoff/internal/auth/store/drivers/postgres"
	"github.com/aussiebroadwan/ssohandoff/internal/auth/store/drivers/redis"
	"github.com/aussiebroadwan/ssohandoff/internal/auth/store/drivers/sqlite"
	"github.com/aussiebroadwan/ssohandoff/pkg/cryptox"
	"github.com/aussiebroadwan/ssohandoff/pkg/jwtx"
	"github.com/aussiebroadwan/ssohandoff/pkg/slogx"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// BuildVersion is overridden at build time via -ldflags "-X ...app.BuildVersion=...".
var BuildVersion = "v0.1.0"

// Application encapsulates the auth service application with all its dependencies
type Application struct {
	cfg    Config
	logger *slog.Logger

	// Core dependencies
	db       store.Store
	ssoStore store.SSOTokenStore // nil when tokens live in db
	keys     *jwtx.KeyRing
	registry *prometheus.Registry
	metrics  *metrics.Collector

	// Services
	gateway             *service.Gateway
	housekeepingService *service.HousekeepingService

	// HTTP server
	server *http.Server
	router *httpapi.Router
}

// New creates a new Application instance with all dependencies initialized
func New(cfg Config) (*Application, error) {
	return NewWithLogger(cfg, slogx.New(slogx.Config{
		Service: "auth-service",
		Version: BuildVersion,
		Env:     cfg.Env,
		Level:   cfg.LogLevel,
		Format:  cfg.LogFormat,
	}))
}

// NewWithLogger is New with a caller supplied logger.
func NewWithLogger(cfg Config, logger *slog.Logger) (*Application, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	app := &Application{cfg: cfg, logger: logger}

	if err := cryptox.LoadPepperFile(cfg.PepperFile); err != nil {
		return nil, fmt.Errorf("failed to load pepper: %w", err)
	}

	ctx := context.Background()
	if err := app.initDatabase(ctx); err != nil {
		return nil, err
	}
	if err := app.initSSOStore(ctx); err != nil {
		_ = app.closeStores()
		return nil, err
	}

	keys, err := InitKeyRing(cfg, logger)
	if err != nil {
		_ = app.closeStores()
		return nil, fmt.Errorf("failed to initialize signing key: %w", err)
	}
	app.keys = keys

	app.initMetrics()
	if err := app.initServices(); err != nil {
		_ = app.closeStores()
		return nil, err
	}
	app.initHTTP()

	return app, nil
}

// Handler is the gateway's HTTP surface.
func (app *Application) Handler() http.Handler { return app.router }

// Close releases the stores. It is for callers that serve Handler themselves
// instead of calling Run.
func (app *Application) Close() error { return app.closeStores() }

// Run starts the application and blocks until shutdown is requested
func (app *Application) Run() error {
	// Start housekeeping service
	app.housekeepingService.Start()

	app.logger.Info("auth service starting",
		"port", app.cfg.Port,
		"version", BuildVersion,
		"store", app.cfg.Store,
		"sso_store", app.cfg.SSOStore,
	)

	// Start server in a goroutine
	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- app.server.ListenAndServe()
	}()

	// Setup signal handling for graceful shutdown
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	// Block until we receive a shutdown signal or server error
	select {
	case err := <-serverErrors:
		app.housekeepingService.Stop()
		_ = app.closeStores()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
	case sig := <-shutdown:
		app.logger.Info("shutdown signal received", "signal", sig)

		// Perform graceful shutdown
		if err := app.Shutdown(); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
	}

	return nil
}

// Shutdown gracefully shuts down the application
func (app *Application) Shutdown() error {
	app.logger.Info("shutting down auth service...")

	// Give outstanding requests a deadline for completion
	ctx, cancel := context.WithTimeout(context.Background(), app.cfg.ShutdownGracePeriod)
	defer cancel()

	// Shutdown the HTTP server
	if err := app.server.Shutdown(ctx); err != nil {
		app.logger.Error("graceful server shutdown failed", "error", err)
		if err := app.server.Close(); err != nil {
			app.logger.Error("error closing server", "error", err)
		}
	}

	// Stop the housekeeping service
	app.housekeepingService.Stop()

	if err := app.closeStores(); err != nil {
		return err
	}

	app.logger.Info("auth service stopped")
	return nil
}

func (app *Application) closeStores() error {
	var errs []error
	if app.ssoStore != nil {
		if err := app.ssoStore.Close(); err != nil {
			app.logger.Error("error closing sso store", "error", err)
			errs = append(errs, err)
		}
	}
	if app.db != nil {
		if err := app.db.Close(); err != nil {
			app.logger.Error("error closing database", "error", err)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// initDatabase opens the configured SQL store and applies migrations
func (app *Application) initDatabase(ctx context.Context) error {
	var (
		db  store.Store
		err error
	)
	switch app.cfg.Store {
	case StorePostgres:
		db, err = postgres.NewStore(ctx, app.cfg.DatabaseURL)
	default:
		db, err = sqlite.NewStore(app.cfg.DatabaseFile)
	}
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	app.db = db

	if err := db.ApplyMigrations(); err != nil {
		_ = db.Close()
		app.db = nil
		return fmt.Errorf("failed to apply database migrations: %w", err)
	}

	app.logger.Info("database migrations applied successfully", "store", app.cfg.Store)
	return nil
}

// initSSOStore connects the external SSO token store, if one is configured.
func (app *Application) initSSOStore(ctx context.Context) error {
	if app.cfg.SSOStore != SSOStoreRedis {
		return nil
	}

	rs, err := redis.NewStore(ctx, redis.Config{
		URL:       app.cfg.RedisURL,
		Retention: app.cfg.SSORetention,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize sso store: %w", err)
	}
	app.ssoStore = rs

	app.logger.Info("sso tokens stored in redis")
	return nil
}

func (app *Application) ssoTokens() store.SSOTokens {
	if app.ssoStore != nil {
		return app.ssoStore
	}
	return app.db.SSOTokens()
}

func (app *Application) initMetrics() {
	app.registry = prometheus.NewRegistry()
	app.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	app.metrics = metrics.NewCollector(app.registry)
}

// initServices initializes all business logic services
func (app *Application) initServices() error {
	signer, err := jwtx.NewSignerHS256(app.keys, app.cfg.Issuer, app.cfg.AccessTTL, jwtx.SystemClock)
	if err != nil {
		return fmt.Errorf("failed to initialize signer: %w", err)
	}
	verifier := jwtx.NewVerifierHS256(app.keys, app.cfg.Issuer, jwtx.SystemClock)

	creds := &service.CredentialService{Store: app.db}
	app.gateway = &service.Gateway{
		Credentials: creds,
		SSO: &service.SSOService{
			Tokens:   app.ssoTokens(),
			Users:    creds,
			Signer:   signer,
			Verifier: verifier,
			TTL:      app.cfg.SSOTTL,
			Metrics:  app.metrics,
		},
		Signer:  signer,
		Metrics: app.metrics,
	}

	app.housekeepingService = service.NewHousekeepingService(
		app.ssoTokens(),
		app.logger,
		app.cfg.HousekeepingInterval,
		app.cfg.SSORetention,
	)
	app.housekeepingService.Metrics = app.metrics
	return nil
}

// initHTTP initializes the HTTP router and server
func (app *Application) initHTTP() {
	router := httpapi.NewRouter(
		app.gateway,
		app.keys,
		app.db,
		BuildVersion,
		app.logger,
	)
	if app.ssoStore != nil {
		router.SSOStore = app.ssoStore
	}
	router.Metrics = app.metrics
	router.Gatherer = app.registry
	router.ApplyRoutes()

	app.router = router

	// Initialize HTTP server
	app.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", app.cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 3 * time.Second,
	}
}
