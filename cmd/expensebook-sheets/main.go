package main

import (
	"context"
	"errors"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"expensebook/internal/amqp"
	"expensebook/internal/cli"
	"expensebook/internal/config"
	applog "expensebook/internal/log"
	gsheet "expensebook/internal/sheets/google"
	"expensebook/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	cfg := config.Load()
	logger := cli.SetupLogger(cfg, applog.ComponentSheets, os.Stdout)
	logger.Info("Starting expensebook-sheets")

	// The worker reads expenses straight from the API database.
	cfg.DataBackend = "sqlite"
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}
	if err := cfg.ValidateSheets(); err != nil {
		logger.Error("Sheets configuration validation failed", "error", err)
		os.Exit(1)
	}

	repo := cli.InitSQLite(logger.Logger, cfg.SQLiteDBPath)
	defer repo.Close()

	setupCtx, cancelSetup := context.WithTimeout(context.Background(), 30*time.Second)
	sheetsClient, err := gsheet.New(setupCtx, gsheet.Config{
		SpreadsheetID:      cfg.GoogleSpreadsheetID,
		SheetName:          cfg.GoogleSheetName,
		ServiceAccountJSON: cfg.GoogleServiceAccountJSON,
		ServiceAccountFile: cfg.GoogleServiceAccountFile,
	})
	if err != nil {
		cancelSetup()
		logger.Error("Failed to initialize Google Sheets client", "error", err)
		os.Exit(1)
	}
	if err := sheetsClient.EnsureHeader(setupCtx); err != nil {
		// Not fatal; the rows are still written.
		logger.Warn("Failed to write sheet header", "error", err)
	}
	cancelSetup()
	logger.Info("Google Sheets client initialized", "spreadsheet_id", cfg.GoogleSpreadsheetID, "sheet", cfg.GoogleSheetName)

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", "error", err)
		os.Exit(1)
	}
	defer amqpClient.Close()

	mirror := worker.NewSheetsMirror(repo, sheetsClient, sheetsClient)

	ctx, done := cli.GracefulShutdown(logger.Logger, 30*time.Second, func(context.Context) {
		logger.Info("Shutting down worker...")
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		err := amqpClient.Consume(gctx, mirror.HandleChange)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})

	if err := g.Wait(); err != nil {
		logger.Error("Message consumption failed", "error", err)
		os.Exit(1)
	}
	cli.WaitForShutdown(ctx, done)
	logger.Info("Worker shutdown complete")
}
