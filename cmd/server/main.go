// Package main runs the stockfolio HTTP API server.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"stockfolio/config"
	"stockfolio/internal/api"
	"stockfolio/internal/app"
	"stockfolio/observability"
	"stockfolio/repository"
	"stockfolio/services"

	"github.com/joho/godotenv"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		observability.Debug("no .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		observability.Fatal("invalid configuration", "error", err)
	}

	observability.InitLoggerWithLevel(cfg.Log.Production, observability.ParseLevel(cfg.Log.Level))
	observability.InitMetrics()

	ctx := context.Background()

	// Initialize database
	var repo repository.InvestmentReader
	if cfg.HasDatabase() {
		connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		r, err := repository.NewRepository(connectCtx, cfg.Database.URL)
		cancel()
		if err != nil {
			observability.Warn("failed to initialize database, portfolios will be empty", "error", err)
		} else {
			defer r.Close()
			repo = r
			observability.Info("connected to database")
		}
	} else {
		observability.Warn("DATABASE_URL not set, portfolios will be empty")
	}

	breakers := services.GetGlobalRegistry()
	orchestrator := app.NewOrchestratorFromConfig(cfg, breakers)
	logos := app.NewLogoServiceFromConfig(cfg, breakers)

	application := app.New(cfg, repo, orchestrator, logos)

	// Create HTTP router
	handler := api.NewHandler(application, cfg)
	router := api.NewRouter(handler, cfg)

	server := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.BatchTimeout() + 10*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		observability.Info("starting server", "addr", cfg.Addr())
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			observability.Fatal("server error", "error", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	observability.Info("shutting down server...")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		observability.Error("server forced to shutdown", "error", err)
	}

	observability.Info("server stopped")
}
