package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/centavohq/centavo-backend/internal/adapter/events"
	"github.com/centavohq/centavo-backend/internal/adapter/repository/postgres"
	"github.com/centavohq/centavo-backend/internal/config"
	"github.com/centavohq/centavo-backend/internal/usecase/debt"
	"github.com/centavohq/centavo-backend/internal/usecase/envelope"
	"github.com/centavohq/centavo-backend/internal/worker"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	logger.Info("starting ledger-worker")

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("configuration validation failed", "error", err)
		os.Exit(1)
	}

	db, err := postgres.NewDB(cfg.DatabaseURL)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := db.RunMigrations(); err != nil {
		logger.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}

	debtRepo := postgres.NewDebtRepository(db)
	paymentRepo := postgres.NewPaymentRepository(db)
	envelopeRepo := postgres.NewEnvelopeRepository(db)
	movementRepo := postgres.NewMovementRepository(db)

	// AMQP is optional: without it the worker still sweeps debt statuses,
	// it just cannot react to movement events or announce overdue debts.
	var eventsClient *events.Client
	if cfg.AMQPURL != "" {
		eventsClient, err = events.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Error("failed to initialize AMQP client", "error", err)
			os.Exit(1)
		}
		defer eventsClient.Close()
		logger.Info("AMQP client initialized", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
	} else {
		logger.Info("AMQP disabled - no AMQP_URL provided")
	}

	var notifier debt.OverdueNotifier
	if eventsClient != nil {
		notifier = eventsClient
	}
	debtService := debt.NewService(debtRepo, paymentRepo, notifier)
	envelopeService := envelope.NewService(envelopeRepo, movementRepo)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	ledgerWorker := worker.NewLedgerWorker(debtService, envelopeService, eventsClient, cfg.RefreshInterval)
	logger.Info("ledger-worker running", "refresh_interval", cfg.RefreshInterval)

	if err := ledgerWorker.Run(ctx); err != nil && ctx.Err() == nil {
		logger.Error("ledger-worker stopped with error", "error", err)
		os.Exit(1)
	}
	logger.Info("ledger-worker shut down")
}
