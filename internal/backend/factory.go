package backend

import (
	"context"
	"errors"
	"fmt"

	"expensetracker/internal/amqp"
	"expensetracker/internal/cache"
	"expensetracker/internal/core"
	"expensetracker/internal/gateway"
	"expensetracker/internal/log"
	"expensetracker/internal/storage"
	"expensetracker/internal/store/memory"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *log.Logger
}

// NewFactory creates a new backend factory
func NewFactory(logger *log.Logger) Factory {
	if logger == nil {
		logger = log.Default(log.ComponentBackend)
	}
	return &DefaultFactory{logger: logger.WithComponent(log.ComponentBackend)}
}

// CreateBackend builds the store selected by config and a gateway over it.
// An unreachable AMQP broker is logged and the backend runs without notifications.
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	var (
		store      Store
		closeStore func() error
	)
	switch config.Type {
	case SQLiteBackend:
		repo, err := storage.NewSQLiteRepository(config.SQLiteDBPath, f.logger)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
		}
		store, closeStore = repo, repo.Close
		f.logger.InfoContext(ctx, "Initialized SQLite backend", "db_path", config.SQLiteDBPath)
	case MemoryBackend:
		dataDir := config.DataDirectory
		if dataDir == "" {
			dataDir = "data"
		}
		store = memory.NewFromFiles(dataDir)
		f.logger.InfoContext(ctx, "Initialized memory backend", "data_directory", dataDir)
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}

	opts := []gateway.Option{gateway.WithLogger(f.logger)}

	cacheManager := cache.NewManager(f.logger)
	if config.CacheSize > 0 {
		snaps := cache.NewLRUCache[[]core.Expense](config.CacheSize, config.CacheTTL)
		cacheManager.Register(snaps)
		cacheManager.StartCleanup(config.CacheTTL)
		opts = append(opts, gateway.WithSnapshotCache(snaps))
	}

	var amqpClient *amqp.Client
	if config.AMQPURL != "" {
		client, err := amqp.NewClient(config.AMQPURL, config.AMQPExchange, config.AMQPQueue, f.logger)
		if err != nil {
			f.logger.WarnContext(ctx, "Failed to initialize AMQP client, continuing without notifications", log.FieldError, err)
		} else {
			amqpClient = client
			opts = append(opts, gateway.WithNotifier(client))
			f.logger.InfoContext(ctx, "Initialized AMQP client",
				"exchange", config.AMQPExchange,
				"queue", config.AMQPQueue)
		}
	}

	gw := gateway.NewStoreGateway(store, opts...)

	cleanup := func() error {
		cacheManager.Stop()
		errs := []error{gw.Close()}
		if amqpClient != nil {
			errs = append(errs, amqpClient.Close())
		}
		if closeStore != nil {
			errs = append(errs, closeStore())
		}
		return errors.Join(errs...)
	}

	return &BackendResult{
		Store:   store,
		Gateway: gw,
		AMQP:    amqpClient,
		Cleanup: cleanup,
	}, nil
}
