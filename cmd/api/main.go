// Package main runs the go-pdfmerger API.
//
//	@title			go-pdfmerger API
//	@version		1.0.0
//	@description	Merges uploaded PDF files into a single document.
//	@host			localhost:5001
//	@BasePath		/
//	@schemes		http
package main

//go:generate swag init -g cmd/api/main.go -d ../../ -o ../../docs

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go-pdfmerger/internal/config"
	"go-pdfmerger/internal/logger"
	"go-pdfmerger/internal/server"
	"go-pdfmerger/internal/session"

	"go.uber.org/zap"
)

func gracefulShutdown(ctx context.Context, srv *server.Server, log *zap.Logger, done chan<- struct{}) {
	// Listen for the interrupt signal.
	<-ctx.Done()

	log.Info("shutting down gracefully, press Ctrl+C again to force")

	// The context is used to inform the server it has 5 seconds to finish
	// the request it is currently handling
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("server forced to shutdown", zap.Error(err))
	}

	log.Info("server exiting")
	close(done)
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		os.Exit(1)
	}

	log, err := logger.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		os.Stderr.WriteString("failed to initialize logger: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer log.Sync()

	// Leftovers from a previous run are never needed again.
	if err := session.PurgeDir(cfg.Storage.UploadDir); err != nil {
		log.Warn("failed to clean upload directory", zap.String("dir", cfg.Storage.UploadDir), zap.Error(err))
	}

	// Create context that listens for the interrupt signal from the OS.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	srv, err := server.NewServer(ctx, cfg, log)
	if err != nil {
		log.Fatal("failed to create server", zap.Error(err))
	}

	done := make(chan struct{})
	go gracefulShutdown(ctx, srv, log, done)

	log.Info("starting server",
		zap.Int("port", cfg.Server.Port),
		zap.String("upload_dir", cfg.Storage.UploadDir),
		zap.Strings("cors_origins", cfg.Server.AllowedOrigins))

	if err := srv.ListenAndServe(); err != nil {
		log.Fatal("http server error", zap.Error(err))
	}

	// Wait for the graceful shutdown to complete
	<-done
	log.Info("graceful shutdown complete")
}
