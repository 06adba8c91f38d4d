package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"syscall"
	"testing"
	"time"

	"expensebook/internal/config"
)

func TestSetupLogger(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	var buf bytes.Buffer
	logger := SetupLogger(&config.Config{LogLevel: "warn", LogFormat: "json"}, "cli", &buf)
	logger.Info("hidden")
	slog.Warn("shown", "k", "v")

	var rec map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &rec); err != nil {
		t.Fatalf("expected one JSON record, got %q: %v", buf.String(), err)
	}
	if rec["msg"] != "shown" || rec["component"] != "cli" || rec["k"] != "v" {
		t.Errorf("unexpected record %v", rec)
	}
}

func TestShutdownRunsCleanup(t *testing.T) {
	sig := make(chan os.Signal, 1)
	cleaned := make(chan struct{})
	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))

	ctx, done := shutdownOn(sig, logger, time.Second, func(ctx context.Context) {
		if _, ok := ctx.Deadline(); !ok {
			t.Error("cleanup context should carry the timeout")
		}
		close(cleaned)
	})
	sig <- syscall.SIGTERM

	WaitForShutdown(ctx, done)
	select {
	case <-cleaned:
	default:
		t.Fatal("cleanup did not run")
	}
}

func TestShutdownTimeout(t *testing.T) {
	sig := make(chan os.Signal, 1)
	release := make(chan struct{})
	defer close(release)
	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))

	ctx, done := shutdownOn(sig, logger, 20*time.Millisecond, func(context.Context) { <-release })
	sig <- syscall.SIGINT

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("shutdown should give up after the timeout")
	}
	if ctx.Err() == nil {
		t.Error("context should be cancelled")
	}
}
