package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"finvoice/internal/amqp"
	"finvoice/internal/backend"
	"finvoice/internal/config"
	apphttp "finvoice/internal/http"
	"finvoice/internal/identity"
	"finvoice/internal/insight"
	"finvoice/internal/ledger"
	"finvoice/internal/log"
	"finvoice/internal/worker"
)

func main() {
	// .env is for local development; missing file is fine.
	_ = godotenv.Load()

	logger := log.New(log.DefaultConfig())
	log.SetDefault(logger)

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", log.FieldError, err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	result, err := backend.NewFactory(logger).Create(ctx, cfg)
	if err != nil {
		logger.Error("Failed to initialize backend", log.FieldError, err, log.FieldBackend, cfg.DataBackend)
		os.Exit(1)
	}
	if result.Cleanup != nil {
		defer func() {
			if err := result.Cleanup(); err != nil {
				logger.Error("Backend cleanup failed", log.FieldError, err)
			}
		}()
	}

	// With an identity audience configured, tokens decide the acting user;
	// otherwise the server falls back to the configured static user.
	var verifier identity.Verifier
	if cfg.IdentityAudience != "" {
		v, err := identity.NewGoogleVerifier(ctx, cfg.IdentityAudience)
		if err != nil {
			logger.Error("Failed to initialize token verifier", log.FieldError, err)
			os.Exit(1)
		}
		verifier = v
	}

	coord := ledger.New(result.Store, identity.Contextual{}, logger)

	engine := insight.NewEngine(insight.Config{
		EmergencyFund:       cfg.EmergencyFund,
		MonthlyDebtPayments: cfg.MonthlyDebtPayments,
		InteractionLogPath:  cfg.InteractionLogPath,
	}, logger)

	// Optional change-event fanout to the sync worker.
	if cfg.AMQPURL != "" {
		client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger)
		if err != nil {
			logger.Error("Failed to initialize AMQP client", log.FieldError, err)
			os.Exit(1)
		}
		defer client.Close()
		detach := worker.NewRelay(client, cfg.StaticUserID, logger).Attach(coord)
		defer detach()
		logger.Info("Change relay attached", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
	}

	srv := apphttp.NewServer(":"+cfg.Port, coord, engine, apphttp.Options{
		Verifier:        verifier,
		DefaultUser:     cfg.StaticUserID,
		ReportCacheSize: cfg.InsightCacheSize,
		ReportCacheTTL:  cfg.InsightCacheTTL,
		Logger:          logger,
	})
	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = 10 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16

	go func() {
		<-ctx.Done()
		logger.Info("Shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", log.FieldError, err)
		}
	}()

	logger.Info("Starting finvoice server", "port", cfg.Port, log.FieldBackend, cfg.DataBackend)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", log.FieldError, err, "port", cfg.Port)
		os.Exit(1)
	}
	logger.Info("Server stopped gracefully")
}
