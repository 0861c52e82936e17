package backend

import (
	"context"
	"fmt"

	"arwaeduc/internal/adapters"
	"arwaeduc/internal/log"
	"arwaeduc/internal/records/memory"
	"arwaeduc/internal/storage"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *log.Logger
}

func NewFactory(logger *log.Logger) Factory {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &DefaultFactory{logger: logger.WithComponent(log.ComponentBackend)}
}

// CreateBackend implements Factory.CreateBackend
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	switch config.Type {
	case SQLiteBackend:
		return f.createSQLiteBackend(ctx, config)
	case MemoryBackend:
		return f.createMemoryBackend(ctx, config)
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
}

func (f *DefaultFactory) createSQLiteBackend(ctx context.Context, config Config) (*BackendResult, error) {
	repo, err := storage.NewSQLiteRepository(config.SQLiteDBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
	}

	if config.DataDirectory != "" {
		seed, err := memory.NewFromFiles(config.DataDirectory)
		if err != nil {
			repo.Close()
			return nil, fmt.Errorf("read seed data: %w", err)
		}
		if err := repo.ImportFrom(ctx, seed); err != nil {
			repo.Close()
			return nil, fmt.Errorf("import seed data: %w", err)
		}
	}

	f.logger.InfoContext(ctx, "Initialized SQLite backend", "db_path", config.SQLiteDBPath)
	return &BackendResult{
		Store:   adapters.NewInstrumentedStore(repo, f.logger, config.SlowThreshold),
		Cleanup: repo.Close,
	}, nil
}

func (f *DefaultFactory) createMemoryBackend(ctx context.Context, config Config) (*BackendResult, error) {
	dataDir := config.DataDirectory
	if dataDir == "" {
		dataDir = "data"
	}

	store, err := memory.NewFromFiles(dataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize memory backend: %w", err)
	}

	f.logger.InfoContext(ctx, "Initialized memory backend", "data_directory", dataDir)
	return &BackendResult{
		Store: adapters.NewInstrumentedStore(store, f.logger, config.SlowThreshold),
	}, nil
}
