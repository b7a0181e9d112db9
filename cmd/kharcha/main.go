package main

import (
	"context"
	"net/http"
	"os"
	"time"

	"kharcha/internal/auth"
	"kharcha/internal/cli"
	apphttp "kharcha/internal/http"
	"kharcha/internal/services"
	"kharcha/internal/split"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger()

	logger.Info("Starting kharcha server")

	cfg := cli.LoadAndValidateConfig(logger)

	repo := cli.InitSQLite(logger, cfg.SQLiteDBPath)
	defer repo.Close()

	// The API keeps serving from SQLite when the broker is down, snapshot
	// refreshes just stop until it comes back.
	amqpClient := cli.InitAMQP(logger, cfg, false)
	if amqpClient != nil {
		defer amqpClient.Close()
	}

	ledger := services.NewLedgerService(repo, amqpClient)
	engine := split.NewEngine()
	engine.AllowUnknownSettler = cfg.AllowUnknownSettler
	splits := services.NewSplitService(repo, amqpClient, engine)
	planning := services.NewPlanningService(repo, amqpClient)

	tokens := auth.NewTokenManager(cfg.AuthSecret, cfg.TokenTTL)

	srv := apphttp.NewServer(":"+cfg.Port, ledger, splits, planning, tokens)

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 25*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", "error", err)
		}
	})

	// Expired revoked tokens are dropped hourly.
	go func() {
		_ = tokens.RunCleanup(ctx, time.Hour)
	}()

	logger.Info("Listening", "port", cfg.Port, "db", cfg.SQLiteDBPath)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("Server error", "error", err, "port", cfg.Port)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Server stopped gracefully")
}
