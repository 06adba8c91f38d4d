package backend

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"expensebook/internal/adapters"
	"expensebook/internal/amqp"
	"expensebook/internal/gateway/httpapi"
	"expensebook/internal/gateway/memory"
	"expensebook/internal/services"
	"expensebook/internal/storage"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *slog.Logger
}

// NewFactory creates a new backend factory
func NewFactory(logger *slog.Logger) Factory {
	if logger == nil {
		logger = slog.Default()
	}
	return &DefaultFactory{logger: logger}
}

// CreateBackend implements Factory.CreateBackend
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*Result, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	switch config.Type {
	case HTTPBackend:
		return f.createHTTPBackend(ctx, config)
	case SQLiteBackend:
		return f.createSQLiteBackend(ctx, config)
	case MemoryBackend:
		return f.createMemoryBackend(ctx, config)
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
}

func (f *DefaultFactory) createHTTPBackend(ctx context.Context, config Config) (*Result, error) {
	client, err := httpapi.New(config.APIBaseURL, httpapi.Options{
		Timeout:     config.APITimeout,
		CategoryTTL: config.CategoryCacheTTL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize API client: %w", err)
	}

	f.logger.InfoContext(ctx, "Initialized HTTP backend", "base_url", config.APIBaseURL, "timeout", config.APITimeout.String())
	return &Result{
		Gateway: client,
		Cache:   client.CategoryCache(),
	}, nil
}

func (f *DefaultFactory) createSQLiteBackend(ctx context.Context, config Config) (*Result, error) {
	repo, err := storage.NewSQLiteRepository(config.SQLiteDBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
	}

	// A nil *amqp.Client must not end up inside the Publisher interface.
	var publisher services.Publisher
	var amqpClient *amqp.Client
	if config.AMQPURL != "" {
		amqpClient, err = amqp.NewClient(config.AMQPURL, config.AMQPExchange, "")
		if err != nil {
			f.logger.WarnContext(ctx, "Failed to initialize AMQP client, continuing without change messages", "error", err)
		} else {
			publisher = amqpClient
			f.logger.InfoContext(ctx, "Initialized AMQP publisher", "exchange", config.AMQPExchange)
		}
	}

	adapter := adapters.NewServiceAdapter(
		services.NewExpenseService(repo, publisher),
		services.NewCategoryService(repo, publisher),
	)

	f.logger.InfoContext(ctx, "Initialized SQLite backend",
		"db_path", config.SQLiteDBPath,
		"amqp_enabled", publisher != nil)

	return &Result{
		Gateway: adapter,
		Cleanup: func() error {
			var errs []error
			if amqpClient != nil {
				errs = append(errs, amqpClient.Close())
			}
			errs = append(errs, repo.Close())
			return errors.Join(errs...)
		},
	}, nil
}

func (f *DefaultFactory) createMemoryBackend(ctx context.Context, config Config) (*Result, error) {
	dataDir := config.DataDirectory
	if dataDir == "" {
		dataDir = "data"
	}
	store := memory.NewFromFiles(dataDir)

	f.logger.InfoContext(ctx, "Initialized memory backend", "data_directory", dataDir)
	return &Result{Gateway: store}, nil
}
