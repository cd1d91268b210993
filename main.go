package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"

	"storefront/internal/app"
	"storefront/internal/config"
	"storefront/pkg/logger"

	"go.uber.org/zap"
)

func main() {
	// --- Configuration ---
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	// --- Logging ---
	zl, err := logger.New(cfg.LogLevel)
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer zl.Sync() //nolint:errcheck
	zap.ReplaceGlobals(zl)

	// --- Application ---
	storefront, err := app.New(cfg)
	if err != nil {
		zl.Fatal("failed to initialize application", zap.Error(err))
	}

	// --- Start HTTP Server ---
	zl.Info("starting server",
		zap.String("port", cfg.AppPort),
		zap.String("db_driver", cfg.DBDriver),
		zap.String("stock_update_mode", cfg.StockUpdateMode))

	go func() {
		if err := storefront.Listen(); err != nil {
			zl.Fatal("server failed to start", zap.Error(err))
		}
	}()

	// Wait for interrupt signal to gracefully shut down the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	zl.Info("shutting down server")

	if err := storefront.Shutdown(); err != nil {
		zl.Error("error during shutdown", zap.Error(err))
	}
	zl.Info("server gracefully stopped")
}
