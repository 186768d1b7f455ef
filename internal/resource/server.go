package resource

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

	"github.com/aussiebroadwan/ssohandoff/internal/auth/app"
	"github.com/aussiebroadwan/ssohandoff/pkg/jwtx"
	"github.com/aussiebroadwan/ssohandoff/pkg/slogx"
)

// Server runs the demo resource API.
type Server struct {
	cfg    Config
	logger *slog.Logger
	server *http.Server
}

func New(cfg Config) (*Server, error) {
	logger := slogx.New(slogx.Config{
		Service: "resource-service",
		Version: app.BuildVersion,
		Env:     cfg.Env,
		Level:   cfg.LogLevel,
		Format:  cfg.LogFormat,
	})

	secret, err := app.ReadSigningKey(cfg.SigningKey, cfg.SigningKeyFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load signing key: %w", err)
	}
	ring, err := jwtx.NewKeyRing(secret)
	if err != nil {
		return nil, err
	}

	router := NewRouter(jwtx.NewVerifierHS256(ring, cfg.Issuer, jwtx.SystemClock), app.BuildVersion, logger)
	return &Server{
		cfg:    cfg,
		logger: logger,
		server: &http.Server{
			Addr:              fmt.Sprintf(":%d", cfg.Port),
			Handler:           router,
			ReadHeaderTimeout: 3 * time.Second,
		},
	}, nil
}

// Run serves until SIGINT or SIGTERM.
func (s *Server) Run() error {
	s.logger.Info("resource service starting", "port", s.cfg.Port, "issuer", s.cfg.Issuer)

	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- s.server.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
	case sig := <-shutdown:
		s.logger.Info("shutdown signal received", "signal", sig)

		ctx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownGracePeriod)
		defer cancel()
		if err := s.server.Shutdown(ctx); err != nil {
			_ = s.server.Close()
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
	}

	s.logger.Info("resource service stopped")
	return nil
}
