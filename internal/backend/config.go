package backend

import (
	"errors"
	"fmt"

	"expensebook/internal/config"
)

// FromAppConfig converts the application config to backend config
func FromAppConfig(appConfig *config.Config) (Config, error) {
	if appConfig == nil {
		return Config{}, errors.New("app config is nil")
	}

	backendType := BackendType(appConfig.DataBackend)
	if !backendType.IsValid() {
		return Config{}, fmt.Errorf("invalid backend type in config: %s", appConfig.DataBackend)
	}

	return Config{
		Type: backendType,

		APIBaseURL:       appConfig.APIBaseURL,
		APITimeout:       appConfig.APITimeout,
		CategoryCacheTTL: appConfig.CategoryCacheTTL,

		SQLiteDBPath: appConfig.SQLiteDBPath,
		AMQPURL:      appConfig.AMQPURL,
		AMQPExchange: appConfig.AMQPExchange,

		DataDirectory: "data",
	}, nil
}

// Validate validates the backend configuration
func (c Config) Validate() error {
	if !c.Type.IsValid() {
		return fmt.Errorf("invalid backend type: %s", c.Type)
	}

	switch c.Type {
	case HTTPBackend:
		if c.APIBaseURL == "" {
			return errors.New("API base URL is required for http backend")
		}
	case SQLiteBackend:
		if c.SQLiteDBPath == "" {
			return errors.New("SQLite database path is required for sqlite backend")
		}
		if c.AMQPURL != "" && c.AMQPExchange == "" {
			return errors.New("AMQP exchange is required when AMQP is enabled")
		}
	case MemoryBackend:
		// DataDirectory defaults to "data"
	}
	return nil
}
