package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"expensebook/internal/backend"
	"expensebook/internal/cache"
	"expensebook/internal/cli"
	"expensebook/internal/config"
	applog "expensebook/internal/log"
	"expensebook/internal/notify"
)

func main() {
	os.Exit(run())
}

func run() int {
	cli.LoadEnvFile()
	cfg := config.Load()
	// Log lines go to stderr; stdout carries the listing.
	logger := cli.SetupLogger(cfg, applog.ComponentCLI, os.Stderr)
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", "error", err)
		return 1
	}
	res, err := backend.NewFactory(logger.WithComponent(applog.ComponentBackend).Logger).CreateBackend(ctx, bcfg)
	if err != nil {
		logger.Error("Failed to create backend", "error", err, "backend", cfg.DataBackend)
		return 1
	}
	defer func() {
		if err := res.Close(); err != nil {
			logger.Warn("Backend cleanup failed", "error", err)
		}
	}()

	caches := cache.NewManager()
	if res.Cache != nil {
		caches.Register(res.Cache)
		caches.StartCleanup(time.Minute)
	}
	defer caches.Stop()

	// With JSON logs, notifications become log records as well.
	var notifier notify.Notifier = notify.NewWriter(os.Stderr)
	if cfg.LogFormat == "json" {
		notifier = notify.Slog{Logger: logger.Logger}
	}

	a := &app{
		gw:       res.Gateway,
		out:      os.Stdout,
		in:       os.Stdin,
		notifier: notifier,
		pageSize: cfg.ListPageSize,
		debounce: cfg.ListDebounce,
	}
	if err := a.run(ctx, os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		return 2
	}
	return 0
}
