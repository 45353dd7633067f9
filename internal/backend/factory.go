package backend

import (
	"context"
	"fmt"

	"kharcha/internal/adapters"
	"kharcha/internal/amqp"
	"kharcha/internal/cache"
	"kharcha/internal/ledger"
	"kharcha/internal/ledger/cached"
	"kharcha/internal/ledger/memory"
	"kharcha/internal/ledger/rest"
	applog "kharcha/internal/log"
	"kharcha/internal/services"
	"kharcha/internal/storage"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *applog.Logger
}

var _ Factory = (*DefaultFactory)(nil)

// NewFactory creates a new backend factory; logger may be nil.
func NewFactory(logger *applog.Logger) *DefaultFactory {
	if logger == nil {
		logger = applog.Discard(applog.ComponentBackend)
	}
	return &DefaultFactory{logger: logger.WithComponent(applog.ComponentBackend)}
}

// CreateBackend implements Factory.CreateBackend
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	switch config.Type {
	case RESTBackend:
		return f.createRESTBackend(config)
	case SQLiteBackend:
		return f.createSQLiteBackend(config)
	case MemoryBackend:
		return f.createMemoryBackend(config)
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
}

// createRESTBackend talks to the expense API, with a read cache in front
// when CacheSize is positive.
func (f *DefaultFactory) createRESTBackend(config Config) (*BackendResult, error) {
	opts := []rest.ClientOption{rest.WithLogger(f.logger)}
	if config.APIRateLimit > 0 {
		opts = append(opts, rest.WithRateLimit(config.APIRateLimit))
	}
	if config.APITimeout > 0 {
		opts = append(opts, rest.WithTimeout(config.APITimeout))
	}
	client := rest.NewClient(config.APIURL, opts...)

	result := &BackendResult{Store: client, Ready: client}
	if config.CacheSize > 0 && config.CacheTTL > 0 {
		store := cached.New(client, config.CacheSize, config.CacheTTL)
		manager := cache.NewManager(f.logger.Slog())
		if c, ok := store.Cache().(cache.Cleaner); ok {
			manager.Register("expenses", c)
		}
		manager.Register("expense_owners", store.Owners())
		manager.StartCleanup(config.CacheTTL)
		result.Store = store
		result.Cleanup = func() error {
			manager.Stop()
			return nil
		}
	}

	f.logger.Info("Initialized REST backend",
		applog.FieldEndpoint, config.APIURL,
		"cache_size", config.CacheSize,
		"cache_ttl", config.CacheTTL)
	return result, nil
}

func (f *DefaultFactory) createSQLiteBackend(config Config) (*BackendResult, error) {
	repo, err := storage.NewSQLiteRepository(config.SQLiteDBPath, f.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
	}

	store, cleanup := f.withEvents(repo, config)
	f.logger.Info("Initialized SQLite backend", "db_path", config.SQLiteDBPath)
	return &BackendResult{Store: store, Ready: repo, Cleanup: cleanup}, nil
}

func (f *DefaultFactory) createMemoryBackend(config Config) (*BackendResult, error) {
	store, cleanup := f.withEvents(memory.New(), config)
	f.logger.Info("Initialized memory backend")
	return &BackendResult{Store: store, Cleanup: cleanup}, nil
}

// withEvents routes writes through an ExpenseService so they are published
// over AMQP. Without a broker the service still logs and counts writes.
func (f *DefaultFactory) withEvents(store ledger.Store, config Config) (ledger.Store, CleanupFunc) {
	var publisher amqp.Publisher
	if config.AMQPURL != "" {
		client, err := amqp.NewClient(config.AMQPURL, config.AMQPExchange, config.AMQPQueue,
			amqp.WithLogger(f.logger))
		if err != nil {
			f.logger.Warn("Failed to initialize AMQP client, continuing without events",
				applog.FieldError, err)
		} else {
			publisher = client
			f.logger.Info("Initialized AMQP client",
				"exchange", config.AMQPExchange,
				"queue", config.AMQPQueue)
		}
	}

	service := services.NewExpenseService(store, publisher, f.logger)
	adapter := adapters.NewServiceStore(store, service)
	return adapter, func() error {
		if err := adapter.Close(); err != nil {
			return fmt.Errorf("close backend: %w", err)
		}
		return nil
	}
}
