package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"expensebook/internal/amqp"
	"expensebook/internal/cli"
	"expensebook/internal/config"
	apphttp "expensebook/internal/http"
	applog "expensebook/internal/log"
	"expensebook/internal/services"
)

func main() {
	cli.LoadEnvFile()
	cfg := config.Load()
	logger := cli.SetupLogger(cfg, applog.ComponentAPI, os.Stdout)
	// The API always serves from sqlite, whatever DATA_BACKEND the client uses.
	cfg.DataBackend = "sqlite"
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}

	repo := cli.InitSQLite(logger.Logger, cfg.SQLiteDBPath)
	defer repo.Close()

	// Change messages are optional; without AMQP the API still serves.
	var publisher services.Publisher
	if cfg.AMQPURL != "" {
		amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, "")
		if err != nil {
			logger.Warn("Failed to initialize AMQP client, change messages disabled", "error", err)
		} else {
			defer amqpClient.Close()
			publisher = amqpClient
			logger.Info("AMQP publisher initialized", "exchange", cfg.AMQPExchange)
		}
	}

	srv := apphttp.NewServer(":"+cfg.Port,
		services.NewExpenseService(repo, publisher),
		services.NewCategoryService(repo, publisher),
		apphttp.Options{
			RateLimitRPM: cfg.RateLimitRPM,
			Logger:       logger.WithComponent(applog.ComponentHTTP),
			Ready:        repo,
		})

	ctx, done := cli.GracefulShutdown(logger.Logger, 30*time.Second, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", "error", err)
		}
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("Starting expensebook API", "port", cfg.Port, "db_path", cfg.SQLiteDBPath, "amqp_enabled", publisher != nil)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		ticker := time.NewTicker(5 * time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-gctx.Done():
				return nil
			case <-ticker.C:
				reqs, limits := srv.Metrics()
				logger.Info("Server metrics",
					"total_requests", reqs.TotalRequests,
					"server_errors", reqs.ServerErrors,
					"rate_limit_hits", limits.TotalHits,
					"rate_limit_clients", limits.ClientCount)
			}
		}
	})

	if err := g.Wait(); err != nil {
		logger.Error("Server error", "error", err, "port", cfg.Port)
		os.Exit(1)
	}
	cli.WaitForShutdown(ctx, done)
	logger.Info("Server stopped gracefully")
}
