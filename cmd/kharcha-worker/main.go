package main

import (
	"context"
	"errors"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"kharcha/internal/amqp"
	"kharcha/internal/cli"
	"kharcha/internal/jsonstore"
	"kharcha/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger()

	logger.Info("Starting kharcha-worker")

	cfg := cli.LoadAndValidateConfig(logger)

	repo := cli.InitSQLite(logger, cfg.SQLiteDBPath)
	defer repo.Close()

	// The worker exists to consume change messages, a broker is mandatory.
	amqpClient := cli.InitAMQP(logger, cfg, true)
	defer amqpClient.Close()

	store := jsonstore.New(cfg.SnapshotDir)
	snapshotWorker := worker.NewSnapshotWorker(repo, store)

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, nil)

	// Rebuild every snapshot on startup so messages lost while the worker
	// was down do not leave stale files behind.
	logger.Info("Performing startup snapshot resync...")
	if err := snapshotWorker.ResyncAll(ctx); err != nil {
		logger.Error("Startup resync failed", "error", err)
		// Keep running, the periodic resync will retry.
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return amqpClient.ConsumeChanges(gctx, func(msg *amqp.ChangeMessage) error {
			return snapshotWorker.HandleChangeMessage(gctx, msg)
		})
	})

	g.Go(func() error {
		return snapshotWorker.RunPeriodicResync(gctx, cfg.SyncInterval)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Worker stopped with error", "error", err)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Worker shutdown complete")
}
