package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"finvoice/internal/amqp"
	"finvoice/internal/config"
	"finvoice/internal/log"
	"finvoice/internal/store/remote"
	"finvoice/internal/store/sqlite"
	"finvoice/internal/worker"
)

// The worker replays locally recorded changes against the remote store. It
// consumes change messages from AMQP and reconciles full collections on a
// fixed interval as a safety net.
func main() {
	_ = godotenv.Load()

	logger := log.New(log.DefaultConfig())
	log.SetDefault(logger)

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", log.FieldError, err)
		os.Exit(1)
	}
	if cfg.AMQPURL == "" {
		logger.Error("AMQP_URL is required for the sync worker")
		os.Exit(1)
	}
	if cfg.RemoteURL == "" {
		logger.Error("FINVOICE_REMOTE_URL is required for the sync worker")
		os.Exit(1)
	}

	local, err := sqlite.NewRepository(cfg.SQLiteDBPath)
	if err != nil {
		logger.Error("Failed to open local store", log.FieldError, err, "path", cfg.SQLiteDBPath)
		os.Exit(1)
	}
	defer local.Close()

	remoteStore, err := remote.New(cfg.RemoteURL, remote.StaticToken(cfg.RemoteToken))
	if err != nil {
		logger.Error("Failed to initialize remote store", log.FieldError, err)
		os.Exit(1)
	}

	client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", log.FieldError, err)
		os.Exit(1)
	}
	defer client.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	w := worker.NewSyncWorker(local, remoteStore, cfg.SyncBatchSize, logger)

	logger.Info("Starting finvoice-worker",
		"interval", cfg.SyncInterval.String(),
		"batch_size", cfg.SyncBatchSize,
		log.FieldUserID, cfg.StaticUserID)

	if err := w.Run(ctx, client, cfg.SyncInterval, []string{cfg.StaticUserID}); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Sync worker stopped with error", log.FieldError, err)
		os.Exit(1)
	}
	logger.Info("Sync worker stopped gracefully")
}
