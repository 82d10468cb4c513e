package app

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	goredis "github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	platformhealth "github.com/shestoi/coachcarter/platform/health/http"
	platformshutdown "github.com/shestoi/coachcarter/platform/shutdown"

	"github.com/shestoi/coachcarter/internal/config"
	"github.com/shestoi/coachcarter/internal/repository"
	"github.com/shestoi/coachcarter/internal/repository/memory"
	mongorepo "github.com/shestoi/coachcarter/internal/repository/mongo"
	"github.com/shestoi/coachcarter/internal/repository/postgres"
	redisrepo "github.com/shestoi/coachcarter/internal/repository/redis"
	"github.com/shestoi/coachcarter/internal/service"
)

// store бронирования и отложенные действия живут в одном хранилище
type store interface {
	repository.BookingRepository
	repository.ActionRepository
}

// openStore подключается к выбранному хранилищу, регистрирует health check и закрытие
func openStore(
	ctx context.Context,
	cfg config.Config,
	logger *zap.Logger,
	shutdownMgr *platformshutdown.Manager,
	checks map[string]platformhealth.Check,
) (store, error) {
	switch cfg.StorageDriver {
	case config.StoragePostgres:
		logger.Info("Applying PostgreSQL migrations")
		if err := postgres.Migrate(ctx, cfg.PostgresDSN); err != nil {
			return nil, err
		}

		logger.Info("Connecting to PostgreSQL")
		pool, err := pgxpool.New(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, fmt.Errorf("create postgres pool: %w", err)
		}
		if err := pool.Ping(ctx); err != nil {
			pool.Close()
			return nil, fmt.Errorf("ping postgres: %w", err)
		}
		logger.Info("PostgreSQL connection established")

		repo := postgres.NewRepository(pool)
		checks["postgres"] = repo.Ping
		shutdownMgr.Add("postgres_pool", platformshutdown.ClosePool(pool))
		return repo, nil

	case config.StorageMongo:
		logger.Info("Connecting to MongoDB")
		client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
		if err != nil {
			return nil, fmt.Errorf("connect mongo: %w", err)
		}
		if err := client.Ping(ctx, nil); err != nil {
			_ = client.Disconnect(ctx)
			return nil, fmt.Errorf("ping mongo: %w", err)
		}
		logger.Info("MongoDB connection established")

		repo, err := mongorepo.NewRepository(ctx, client, cfg.MongoDatabase)
		if err != nil {
			_ = client.Disconnect(ctx)
			return nil, err
		}
		checks["mongo"] = repo.Ping
		shutdownMgr.Add("mongo_client", platformshutdown.DisconnectMongo(client))
		return repo, nil

	case config.StorageMemory:
		logger.Warn("Using in-memory storage, bookings are lost on restart")
		return memory.NewMemoryRepository(), nil

	default:
		return nil, fmt.Errorf("unsupported storage driver %q", cfg.StorageDriver)
	}
}

// openSessionCache Redis кеш статуса оплаты; без REDIS_ADDR кеш выключен
func openSessionCache(
	ctx context.Context,
	cfg config.Config,
	logger *zap.Logger,
	shutdownMgr *platformshutdown.Manager,
	checks map[string]platformhealth.Check,
) (service.PaymentStatusCache, error) {
	if cfg.RedisAddr == "" {
		logger.Info("Redis is not configured, session status cache disabled")
		return service.NoopPaymentStatusCache{}, nil
	}

	logger.Info("Connecting to Redis", zap.String("addr", cfg.RedisAddr))
	client := goredis.NewClient(&goredis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	logger.Info("Redis connection established")

	checks["redis"] = func(ctx context.Context) error { return client.Ping(ctx).Err() }
	shutdownMgr.Add("redis_client", platformshutdown.CloseWithError(client))
	return redisrepo.NewSessionStatusCache(client, logger), nil
}
