package main

import (
	"context"
	"fmt"

	"github.com/revenant-13/maintenance-app/internal/repositories"
	badgerstore "github.com/revenant-13/maintenance-app/internal/repositories/badgerdb"
	"github.com/revenant-13/maintenance-app/pkg/config"
	dbconn "github.com/revenant-13/maintenance-app/pkg/database/badgerdb"
	"github.com/revenant-13/maintenance-app/pkg/database/postgresql"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// storage - открытое хранилище и функция его закрытия.
type storage struct {
	tx      repositories.TxManagerInterface
	backend string
	close   func()
}

func openStorage(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*storage, error) {
	policy := repositories.RetryPolicy{
		MaxRetries: cfg.Storage.TxMaxRetries,
		Base:       cfg.Storage.TxRetryBase,
	}

	switch cfg.Storage.Driver {
	case config.StorageBadger:
		db, err := dbconn.Open(cfg.Badger, logger)
		if err != nil {
			return nil, err
		}
		stopGC := startBackground(func(ctx context.Context) {
			dbconn.RunGC(ctx, db, cfg.Badger.GCInterval, logger)
		})

		logger.Info("хранилище Badger открыто",
			zap.String("path", cfg.Badger.Path),
			zap.Bool("inMemory", cfg.Badger.InMemory),
		)
		return &storage{
			tx:      badgerstore.NewTxManager(db, policy),
			backend: config.StorageBadger,
			close: func() {
				// GC не должен работать с уже закрытой базой
				stopGC()
				if err := db.Close(); err != nil {
					logger.Error("ошибка закрытия Badger", zap.Error(err))
				}
			},
		}, nil

	case config.StoragePostgres:
		pool, err := postgresql.ConnectDB(ctx, cfg.Postgres, logger)
		if err != nil {
			return nil, err
		}
		if err := postgresql.Migrate(ctx, pool); err != nil {
			pool.Close()
			return nil, err
		}
		return &storage{
			tx:      repositories.NewTxManager(pool, policy),
			backend: config.StoragePostgres,
			close:   pool.Close,
		}, nil
	}

	return nil, fmt.Errorf("unknown STORAGE_DRIVER %q (expected %s or %s)", cfg.Storage.Driver, config.StorageBadger, config.StoragePostgres)
}

// startBackground запускает fn в горутине. stop отменяет её контекст и
// возвращается только после выхода fn.
func startBackground(fn func(ctx context.Context)) (stop func()) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		fn(ctx)
	}()
	return func() {
		cancel()
		<-done
	}
}

// openCache возвращает Redis-кеш, если задан REDIS_ADDRESS, иначе no-op.
func openCache(ctx context.Context, cfg config.RedisConfig, logger *zap.Logger) (repositories.CacheRepositoryInterface, func()) {
	if cfg.Address == "" {
		logger.Info("REDIS_ADDRESS не задан, кеш отключён")
		return repositories.NewNoopCacheRepository(), func() {}
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if _, err := client.Ping(ctx).Result(); err != nil {
		// без кеша сервис работает, просто медленнее
		logger.Warn("не удалось подключиться к Redis, кеш отключён", zap.Error(err), zap.String("address", cfg.Address))
		_ = client.Close()
		return repositories.NewNoopCacheRepository(), func() {}
	}

	logger.Info("подключено к Redis", zap.String("address", cfg.Address))
	return repositories.NewRedisCacheRepository(client, "maintenance:"), func() { _ = client.Close() }
}
