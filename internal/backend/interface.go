package backend

import (
	"context"
	"time"

	"expensebook/internal/cache"
	"expensebook/internal/gateway"
)

// CleanupFunc releases resources held by a backend.
type CleanupFunc func() error

// Result contains the gateway and what the caller must close or register.
type Result struct {
	Gateway gateway.Gateway
	// Cache is set when the backend caches reads; register it with a
	// cache.Manager for periodic cleanup.
	Cache   cache.Cleaner
	Cleanup CleanupFunc
}

// Close runs Cleanup when there is one.
func (r *Result) Close() error {
	if r == nil || r.Cleanup == nil {
		return nil
	}
	return r.Cleanup()
}

// Factory creates backends based on configuration
type Factory interface {
	CreateBackend(ctx context.Context, config Config) (*Result, error)
}

// Config holds configuration for backend creation
type Config struct {
	Type BackendType

	// HTTP
	APIBaseURL       string
	APITimeout       time.Duration
	CategoryCacheTTL time.Duration

	// SQLite; AMQP is optional
	SQLiteDBPath string
	AMQPURL      string
	AMQPExchange string

	// Memory
	DataDirectory string
}

// BackendType represents the type of backend
type BackendType string

const (
	HTTPBackend   BackendType = "http"
	SQLiteBackend BackendType = "sqlite"
	MemoryBackend BackendType = "memory"
)

func (bt BackendType) String() string {
	return string(bt)
}

// IsValid returns true if the backend type is valid
func (bt BackendType) IsValid() bool {
	switch bt {
	case HTTPBackend, SQLiteBackend, MemoryBackend:
		return true
	default:
		return false
	}
}
