// Package server provides the HTTP server setup for go-pdfmerger.
//
// NewServer wires configuration, the scratch session registry and the
// routes into an *http.Server.
//
// Expected outputs:
// - Server listens on the configured port (default 5001)
// - Expired scratch sessions are swept periodically
//
// Usage:
//
//	srv := server.NewServer(ctx, cfg, log)
//	srv.HTTP.ListenAndServe()
//
// See internal/server/routes.go for route registration.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go-pdfmerger/internal/config"
	"go-pdfmerger/internal/session"

	"go.uber.org/zap"
)

type Server struct {
	cfg            *config.Config
	log            *zap.Logger
	SessionManager *session.SessionManager
	HTTP           *http.Server
}

// NewServer builds the server and starts the scratch janitor, which stops
// when ctx is cancelled.
func NewServer(ctx context.Context, cfg *config.Config, log *zap.Logger) (*Server, error) {
	srv := &Server{
		cfg:            cfg,
		log:            log,
		SessionManager: session.NewSessionManager(cfg.Storage.UploadDir),
	}

	handler, err := srv.RegisterRoutes()
	if err != nil {
		return nil, fmt.Errorf("failed to register routes: %w", err)
	}

	srv.HTTP = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      handler,
		IdleTimeout:  cfg.Server.IdleTimeout,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go srv.SessionManager.RunJanitor(ctx, janitorInterval(cfg), cfg.Storage.SessionTTL, log)

	return srv, nil
}

func janitorInterval(cfg *config.Config) time.Duration {
	if interval := cfg.Storage.SessionTTL / 2; interval > time.Second {
		return interval
	}
	return time.Second
}

// Shutdown stops accepting requests, waits for in-flight ones, then removes
// whatever scratch files are left.
func (s *Server) Shutdown(ctx context.Context) error {
	shutdownErr := s.HTTP.Shutdown(ctx)
	if err := s.SessionManager.ReleaseAll(); err != nil {
		s.log.Warn("failed to release sessions", zap.Error(err))
	}
	if err := session.PurgeDir(s.cfg.Storage.UploadDir); err != nil {
		s.log.Warn("failed to clean upload directory", zap.Error(err))
	}
	return shutdownErr
}

// ListenAndServe blocks until the server stops; a graceful stop is not an error.
func (s *Server) ListenAndServe() error {
	s.log.Info("server listening", zap.String("addr", s.HTTP.Addr))
	if err := s.HTTP.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
