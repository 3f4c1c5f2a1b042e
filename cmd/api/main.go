package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/joho/godotenv/autoload"
	"github.com/scythe504/mafia-backend/internal/config"
	"github.com/scythe504/mafia-backend/internal/logger"
	"github.com/scythe504/mafia-backend/internal/server"
	"go.uber.org/zap"
)

func gracefulShutdown(apiServer *http.Server, app *server.Server, log *zap.Logger, done chan bool) {
	// Create context that listens for the interrupt signal from the OS.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Listen for the interrupt signal.
	<-ctx.Done()

	log.Info("shutting down gracefully, press Ctrl+C again to force")
	stop() // Allow Ctrl+C to force shutdown

	// The context is used to inform the server it has 5 seconds to finish
	// the request it is currently handling
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := apiServer.Shutdown(ctx); err != nil {
		log.Error("Server forced to shutdown with error", zap.Error(err))
	}
	if err := app.Shutdown(ctx); err != nil {
		log.Error("Cleanup finished with error", zap.Error(err))
	}

	log.Info("Server exiting")

	// Notify the main goroutine that the shutdown is complete
	done <- true
}

func main() {
	cfg := config.Load()

	log, err := logger.New(cfg.IsProduction())
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	startCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	app, err := server.NewServer(startCtx, cfg, log)
	cancel()
	if err != nil {
		log.Fatal("cannot start server", zap.Error(err))
	}

	apiServer := app.HTTPServer()
	app.StartSweeper()

	// Create a done channel to signal when the shutdown is complete
	done := make(chan bool, 1)

	// Run graceful shutdown in a separate goroutine
	go gracefulShutdown(apiServer, app, log, done)

	log.Info("listening", zap.String("addr", apiServer.Addr), zap.String("env", cfg.AppEnv))
	err = apiServer.ListenAndServe()
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal("http server error", zap.Error(err))
	}

	// Wait for the graceful shutdown to complete
	<-done
	log.Info("Graceful shutdown complete.")
}
