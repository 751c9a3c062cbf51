package backend

import (
	"context"
	"errors"
	"fmt"

	"fintrack/internal/config"
	applog "fintrack/internal/log"
	"fintrack/internal/ports"
	"fintrack/internal/storage"
	"fintrack/internal/storage/memory"
	"fintrack/internal/storage/redisprefs"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *applog.Logger
}

// NewFactory creates a new backend factory
func NewFactory(logger *applog.Logger) Factory {
	if logger == nil {
		logger = applog.Discard()
	}
	return &DefaultFactory{
		logger: logger.WithComponent(applog.ComponentBackend),
	}
}

// CreateBackend opens the entity store and the preference store picked by
// config. On failure nothing is left open.
func (f *DefaultFactory) CreateBackend(ctx context.Context, cfg Config) (*BackendResult, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var result *BackendResult
	var err error
	switch cfg.Type {
	case SQLiteBackend:
		result, err = f.createSQLiteBackend(cfg)
	case MemoryBackend:
		result = f.createMemoryBackend()
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", cfg.Type)
	}
	if err != nil {
		return nil, err
	}

	if cfg.Preferences == config.PreferencesRedis {
		prefs, err := f.createRedisPreferences(ctx, cfg)
		if err != nil {
			_ = result.Cleanup()
			return nil, err
		}
		storeCleanup := result.Cleanup
		result.Preferences = prefs
		result.Cleanup = func() error {
			return errors.Join(prefs.Close(), storeCleanup())
		}
	}
	return result, nil
}

func (f *DefaultFactory) createSQLiteBackend(cfg Config) (*BackendResult, error) {
	store, err := storage.NewSQLiteStore(cfg.SQLiteDBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize SQLite store: %w", err)
	}

	f.logger.Info("Initialized SQLite backend", "db_path", cfg.SQLiteDBPath)

	return &BackendResult{
		Store:       store,
		Preferences: storage.NewPreferences(store.DB()),
		Cleanup:     store.Close,
	}, nil
}

func (f *DefaultFactory) createMemoryBackend() *BackendResult {
	store := memory.New()

	f.logger.Info("Initialized memory backend")

	return &BackendResult{
		Store:       store,
		Preferences: memory.NewPreferences(),
		Cleanup:     store.Close,
	}
}

func (f *DefaultFactory) createRedisPreferences(ctx context.Context, c Config) (*redisprefs.Store, error) {
	prefs, err := redisprefs.New(ctx, redisprefs.Config{
		Addr:     c.RedisAddr,
		Password: c.RedisPassword,
		DB:       c.RedisDB,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	f.logger.Info("Using redis preferences", "addr", c.RedisAddr)
	return prefs, nil
}

var (
	_ ports.EntityStore     = (*storage.SQLiteStore)(nil)
	_ ports.PreferenceStore = (*redisprefs.Store)(nil)
)
