package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"tally/internal/amqp"
	"tally/internal/config"
	"tally/internal/log"
	"tally/internal/services"
	"tally/internal/storage"
	"tally/internal/worker"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	base := log.New(log.DefaultConfig())
	log.SetDefault(base)
	logger := base.WithComponent(log.ComponentWorker)

	logger.Info("Starting tally-worker", log.FieldOperation, log.OpStartup)

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", log.FieldError, err)
		os.Exit(1)
	}

	repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath)
	if err != nil {
		logger.Error("Failed to initialize SQLite repository", log.FieldError, err, "path", cfg.SQLiteDBPath)
		os.Exit(1)
	}
	defer repo.Close()

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", log.FieldError, err)
		os.Exit(1)
	}
	defer amqpClient.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// The worker never publishes events, so it gets a ledger service without
	// an event bus.
	ledgerSvc := services.NewTransactionService(repo, nil)
	auditor := worker.NewReconcileWorker(repo, ledgerSvc)

	// Full sweep on startup to catch anything that diverged while we were
	// down.
	logger.Info("Performing startup balance audit...", log.FieldOperation, log.OpReconcile)
	if err := auditor.AuditAll(ctx); err != nil {
		logger.Error("Startup balance audit failed", log.FieldError, err)
		// Keep running: the whole point of the worker is to keep watching.
	}

	go func() {
		if err := amqpClient.ConsumeLedgerEvents(ctx, auditor.HandleLedgerEvent); err != nil {
			if err != context.Canceled {
				logger.Error("Ledger event consumption failed", log.FieldError, err)
			}
			cancel()
		}
	}()

	// Periodic sweep as a backstop for lost messages.
	go auditor.RunPeriodic(ctx, cfg.ReconcileInterval)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		logger.Info("Shutdown signal received", log.FieldOperation, log.OpShutdown, "signal", sig.String())
	case <-ctx.Done():
		logger.Info("Context cancelled")
	}

	logger.Info("Shutting down worker...", log.FieldOperation, log.OpShutdown)
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	select {
	case <-shutdownCtx.Done():
		logger.Warn("Shutdown timeout reached")
	case <-time.After(5 * time.Second):
		logger.Info("Worker shutdown complete")
	}
}
