package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/Komversa/moneyapp/infra"
	"github.com/Komversa/moneyapp/infra/lock"
	infrarepo "github.com/Komversa/moneyapp/infra/repository"
	"github.com/Komversa/moneyapp/pkg/config"
	"github.com/Komversa/moneyapp/pkg/currency"
	"github.com/Komversa/moneyapp/pkg/service/conversion"
	"github.com/Komversa/moneyapp/pkg/service/ledger"
	"github.com/Komversa/moneyapp/pkg/service/scheduler"
	"github.com/Komversa/moneyapp/pkg/service/transaction"
	"github.com/go-redis/redis/v8"
)

func main() {
	if err := run(); err != nil {
		slog.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func run() error {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg, err := config.LoadAppConfig(logger)
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	db, err := infra.NewDBConnection(cfg.DB, os.Getenv("APP_ENV"))
	if err != nil {
		return fmt.Errorf("connecting to database: %w", err)
	}
	if err := infrarepo.Migrate(db); err != nil {
		return fmt.Errorf("migrating schema: %w", err)
	}

	uow := infrarepo.NewUoW(db)
	registry := currency.NewRegistry()

	conversionSvc := conversion.New(uow, registry, logger)
	balanceLedger := ledger.New(logger)
	engine := transaction.New(uow, balanceLedger, conversionSvc, logger)

	var sweepLock scheduler.SweepLock
	if cfg.Redis.Addr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		sweepLock = lock.New(client, cfg.Scheduler.LockTTL, logger)
		logger.Info("sweep lock enabled", "addr", cfg.Redis.Addr)
	}

	sched := scheduler.New(uow, engine, sweepLock, cfg.Scheduler.SweepInterval, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sched.Start(ctx)
	logger.Info("ledger running", "sweep_interval", cfg.Scheduler.SweepInterval)

	<-ctx.Done()
	logger.Info("shutting down")
	sched.Stop()
	return nil
}
