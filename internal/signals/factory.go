package signals

import (
	"fmt"
	"gatekeeper/internal/models"
)

// Factory provides a centralized way to create stores based on configuration.
type Factory struct{}

// NewFactory creates a new storage factory
func NewFactory() *Factory {
	return &Factory{}
}

// Create instantiates a store based on the provided configuration.
// Supported providers:
//   - memory: In-memory store (for testing/development)
//   - json: In-memory store persisted to a JSON file
//   - sqlite: SQLite database store (lightweight database)
//   - postgres: PostgreSQL database store (production-ready)
//   - redis: Redis sorted-set store (shared across instances)
func (f *Factory) Create(config models.StorageConfig) (Store, error) {
	if err := f.ValidateConfig(config); err != nil {
		return nil, err
	}

	// Convert models.StorageConfig to internal Config format
	storeConfig := Config{
		Type:             config.Type,
		Path:             config.Path,
		ConnectionString: config.Database.DSN,
		MaxOpenConns:     config.Database.MaxOpenConns,
		MaxIdleConns:     config.Database.MaxIdleConns,
		ConnMaxLifetime:  config.Database.ConnMaxLifetime,
		Redis:            config.Redis,
		Options:          convertOptions(config.Options),
	}

	switch config.Type {
	case models.StorageTypeMemory:
		return asStore(NewMemoryStore(storeConfig))
	case models.StorageTypeJSON:
		return asStore(NewJSONStore(storeConfig))
	case models.StorageTypeSQLite:
		return asStore(NewSQLiteStore(storeConfig))
	case models.StorageTypePostgres:
		return asStore(NewPostgresStore(storeConfig))
	case models.StorageTypeRedis:
		return asStore(NewRedisStore(storeConfig))
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedType, config.Type)
	}
}

// GetSupportedProviders returns a list of all supported storage provider types
func (f *Factory) GetSupportedProviders() []string {
	return []string{
		models.StorageTypeMemory,
		models.StorageTypeJSON,
		models.StorageTypeSQLite,
		models.StorageTypePostgres,
		models.StorageTypeRedis,
	}
}

// ValidateConfig validates that a storage configuration is valid for its type
func (f *Factory) ValidateConfig(config models.StorageConfig) error {
	switch config.Type {
	case models.StorageTypeMemory:
		// Memory storage requires no additional configuration
	case models.StorageTypeJSON:
		if config.Path == "" {
			return fmt.Errorf("path is required for JSON storage")
		}
	case models.StorageTypePostgres, models.StorageTypeSQLite:
		if config.Database.DSN == "" {
			return fmt.Errorf("database DSN is required for %s storage", config.Type)
		}
	case models.StorageTypeRedis:
		if config.Redis.Addr == "" {
			return fmt.Errorf("redis address is required for redis storage")
		}
	default:
		return fmt.Errorf("%w: %s", ErrUnsupportedType, config.Type)
	}
	return nil
}

// asStore converts a concrete constructor result so a failed constructor
// yields a nil interface rather than a typed nil.
func asStore[T Store](s T, err error) (Store, error) {
	if err != nil {
		return nil, err
	}
	return s, nil
}

// convertOptions converts map[string]string to map[string]interface{}
func convertOptions(options map[string]string) map[string]interface{} {
	converted := make(map[string]interface{})
	for k, v := range options {
		converted[k] = v
	}
	return converted
}
