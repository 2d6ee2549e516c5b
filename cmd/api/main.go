package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"oneclick-video/config"
	"oneclick-video/internal/events"
	"oneclick-video/internal/handler"
	"oneclick-video/internal/redis"
	"oneclick-video/internal/repository"
	"oneclick-video/internal/server"
	"oneclick-video/internal/services"
	"oneclick-video/internal/storage"
	"oneclick-video/pkg/database"
	"oneclick-video/pkg/logger"

	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func main() {
	cfg := config.LoadConfig()

	l := logger.New(cfg.LogMode)
	logger.SetGlobalLogger(l)
	defer l.Sync()

	ctx := context.Background()
	checks := map[string]server.HealthCheck{}

	store, err := newObjectStore(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to initialise object store: %v", err)
	}

	repo, err := newAssetRepository(cfg, l, checks)
	if err != nil {
		log.Fatalf("Failed to initialise asset registry: %v", err)
	}

	var redisClient *goredis.Client
	if cfg.Events.Driver == config.EventsDriverRedis || cfg.RateLimitInitiate > 0 {
		redisClient = redis.NewClient(redis.Config{
			Host:     cfg.RedisHost,
			Port:     cfg.RedisPort,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		defer redisClient.Close()
		if err := redis.Ping(ctx, redisClient, 3*time.Second); err != nil {
			l.Logger.Warn("redis unavailable at startup", zap.Error(err))
		}
		checks["redis"] = func(ctx context.Context) error {
			return redisClient.Ping(ctx).Err()
		}
	}

	publisher, err := newPublisher(cfg, redisClient)
	if err != nil {
		log.Fatalf("Failed to initialise event publisher: %v", err)
	}
	defer publisher.Close()

	coordinator := services.NewUploadCoordinator(store, repo, publisher, services.CoordinatorConfig{
		PartURLTTL:         cfg.Upload.PartURLTTL,
		ReadURLTTL:         cfg.Upload.ReadURLTTL,
		StoreTimeout:       cfg.Upload.StoreTimeout,
		DefaultContentType: cfg.Upload.DefaultContentType,
		PublishTimeout:     cfg.Upload.PublishTimeout,
	}, l)

	opts := server.RouteOptions{HealthChecks: checks}
	if redisClient != nil && cfg.RateLimitInitiate > 0 {
		opts.InitiateLimiter = redis.NewRateLimiter(redisClient, redis.RateLimitConfig{
			InitiateLimit:  cfg.RateLimitInitiate,
			InitiateWindow: cfg.RateLimitWindow,
		})
	}

	srv := server.New(cfg, l)
	srv.SetupRoutes(&server.Handlers{Upload: handler.NewUploadHandler(coordinator)}, opts)

	l.Logger.Info("upload service configured",
		zap.String("store_driver", cfg.Store.Driver),
		zap.String("registry_driver", cfg.RegistryDriver),
		zap.String("events_driver", cfg.Events.Driver),
	)

	if err := srv.Start(); err != nil {
		log.Fatalf("Server exited with error: %v", err)
	}
}

func newObjectStore(ctx context.Context, cfg *config.Config) (storage.ObjectStore, error) {
	switch cfg.Store.Driver {
	case config.StoreDriverS3:
		return storage.NewS3Client(ctx, storage.S3Config{
			Region:    cfg.Store.S3Region,
			Bucket:    cfg.Store.S3Bucket,
			AccessKey: cfg.Store.S3AccessKey,
			SecretKey: cfg.Store.S3SecretKey,
			Endpoint:  cfg.Store.S3Endpoint,
		})
	case config.StoreDriverMinIO:
		return storage.NewMinIOClient(ctx, storage.MinIOConfig{
			Endpoint:  cfg.Store.MinIOEndpoint,
			AccessKey: cfg.Store.MinIOAccessKey,
			SecretKey: cfg.Store.MinIOSecretKey,
			UseSSL:    cfg.Store.MinIOUseSSL,
			Bucket:    cfg.Store.MinIOBucket,
		})
	case config.StoreDriverMemory:
		return storage.NewMemoryStore(cfg.Store.MinIOBucket), nil
	default:
		return nil, fmt.Errorf("%w: unknown STORE_DRIVER %q", storage.ErrNotConfigured, cfg.Store.Driver)
	}
}

func newAssetRepository(cfg *config.Config, l *logger.Logger, checks map[string]server.HealthCheck) (repository.AssetRepository, error) {
	switch cfg.RegistryDriver {
	case config.RegistryDriverPostgres:
		db, err := database.Connect(cfg)
		if err != nil {
			return nil, err
		}
		ran, err := database.ApplyRawMigrations(db, cfg.MigrationsDir)
		if err != nil {
			return nil, err
		}
		for _, name := range ran {
			l.Logger.Info("applied migration", zap.String("version", name))
		}
		checks["database"] = func(ctx context.Context) error {
			return database.HealthCheck(ctx, db)
		}
		return repository.NewAssetRepository(db), nil
	case config.RegistryDriverMemory:
		l.Logger.Warn("using in-memory asset registry; records are lost on restart")
		return repository.NewMemoryAssetRepository(), nil
	default:
		return nil, fmt.Errorf("unknown REGISTRY_DRIVER %q", cfg.RegistryDriver)
	}
}

func newPublisher(cfg *config.Config, redisClient *goredis.Client) (events.Publisher, error) {
	switch cfg.Events.Driver {
	case config.EventsDriverRedis:
		return events.NewRedisPublisher(redisClient, events.NewAssetChannelResolver(cfg.Events.RedisChannel)), nil
	case config.EventsDriverKafka:
		return events.NewKafkaPublisher(cfg.Events.KafkaBrokers, cfg.Events.KafkaTopic), nil
	case config.EventsDriverNone, "":
		return events.NoopPublisher{}, nil
	default:
		return nil, fmt.Errorf("unknown EVENTS_DRIVER %q", cfg.Events.Driver)
	}
}
