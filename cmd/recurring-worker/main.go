package main

import (
	"time"

	"github.com/robfig/cron/v3"

	"kharcha/internal/cli"
	"kharcha/internal/services"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger()

	logger.Info("Starting recurring-worker")

	cfg := cli.LoadAndValidateConfig(logger)

	repo := cli.InitSQLite(logger, cfg.SQLiteDBPath)
	defer repo.Close()

	// Materialized transactions still publish change messages so snapshots
	// stay fresh, but the worker runs fine without a broker.
	amqpClient := cli.InitAMQP(logger, cfg, false)
	if amqpClient != nil {
		defer amqpClient.Close()
	}

	ledger := services.NewLedgerService(repo, amqpClient)
	processor := services.NewRecurringProcessor(repo, ledger)

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, nil)

	run := func() {
		count, err := processor.ProcessDue(ctx, time.Now())
		if err != nil {
			logger.Error("Recurring processing failed", "error", err)
			return
		}
		logger.Info("Recurring processing complete", "transactions_created", count)
	}

	// Catch up on startup before the schedule takes over.
	logger.Info("Running initial recurring processing...")
	run()

	scheduler := cron.New()
	if _, err := scheduler.AddFunc(cfg.RecurringSchedule, run); err != nil {
		logger.Error("Failed to schedule recurring processing", "error", err, "schedule", cfg.RecurringSchedule)
		return
	}

	logger.Info("Recurring processor scheduled", "schedule", cfg.RecurringSchedule, "sqlite_db", cfg.SQLiteDBPath)
	scheduler.Start()
	defer scheduler.Stop()

	cli.WaitForShutdown(ctx, done)
	logger.Info("Recurring-worker shutdown complete")
}
