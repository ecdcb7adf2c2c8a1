package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"kakebo/internal/amqp"
	"kakebo/internal/cli"
	"kakebo/internal/core"
	"kakebo/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger()

	logger.Info("Starting kakebo-worker")

	cfg := cli.LoadAndValidateConfig(logger)
	if cfg.AMQPURL == "" {
		logger.Error("AMQP_URL is required for the snapshot worker")
		os.Exit(1)
	}

	// The worker always writes to SQLite: snapshots are durable rollups.
	sqliteRepo := cli.InitSQLite(logger, cfg.SQLiteDBPath)
	defer sqliteRepo.Close()

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", "error", err)
		os.Exit(1)
	}
	defer amqpClient.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	snapshotWorker := worker.NewSnapshotWorker(sqliteRepo)

	// On startup, rebuild the current month's snapshots to recover from
	// any events missed while the worker was down.
	month := core.MonthOfDate(time.Now())
	logger.Info("Performing startup snapshot recompute", "month", month)
	if err := snapshotWorker.RecomputeMonth(ctx, month); err != nil {
		logger.Error("Failed startup recompute", "error", err)
		// Don't exit - continue with normal operation
	}

	go func() {
		err := amqpClient.ConsumeEvents(ctx,
			func(msg *amqp.PurchaseConfirmedMessage) error {
				return snapshotWorker.HandlePurchaseConfirmed(ctx, msg)
			},
			func(msg *amqp.BudgetChangedMessage) error {
				return snapshotWorker.HandleBudgetChanged(ctx, msg)
			})
		if err != nil && err != context.Canceled {
			logger.Error("Event consumption failed", "error", err)
		}
		cancel()
	}()

	// Handle shutdown signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		logger.Info("Shutdown signal received", "signal", sig.String())
	case <-ctx.Done():
		logger.Info("Context cancelled")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	logger.Info("Shutting down worker...")
	cancel()

	select {
	case <-shutdownCtx.Done():
		logger.Warn("Shutdown timeout reached")
	case <-time.After(5 * time.Second):
		logger.Info("Worker shutdown complete")
	}
}
