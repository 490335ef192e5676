package bootstrap

import (
	"context"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"golang.org/x/exp/slog"
	"gorm.io/gorm"

	"photoshelf/internal/app"
	"photoshelf/internal/cache"
	"photoshelf/internal/config"
	"photoshelf/internal/model"
	databaseClient "photoshelf/internal/platform/database"
	minioClient "photoshelf/internal/platform/minio"
	rabbitmqClient "photoshelf/internal/platform/rabbitmq"
	redisClient "photoshelf/internal/platform/redis"
	"photoshelf/internal/repository"
	"photoshelf/internal/storage"
	"photoshelf/internal/worker"
)

// BlobStore is an object store that can also report its own health.
type BlobStore interface {
	app.BlobStore
	Ping(ctx context.Context) error
}

type App struct {
	Config      *config.Config
	DB          *gorm.DB
	Redis       *redis.Client
	MQConn      *amqp.Connection
	Denylist    *cache.TokenDenylist
	Publisher   app.ImageEventPublisher
	Blobs       BlobStore
	EventWorker *worker.ImageEventWorker

	StartedAt time.Time
}

func New(ctx context.Context) (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config failed: %w", err)
	}

	a := &App{Config: cfg, StartedAt: time.Now()}
	if err := a.init(ctx); err != nil {
		_ = a.Close()
		return nil, err
	}
	return a, nil
}

func (a *App) init(ctx context.Context) error {
	cfg := a.Config

	db, err := databaseClient.New(ctx, cfg.Database.Driver, cfg.DatabaseDSN())
	if err != nil {
		return err
	}
	a.DB = db
	if err := Migrate(db); err != nil {
		return err
	}

	if cfg.Redis.Enabled {
		redisCli, err := redisClient.New(ctx, cfg.Redis)
		if err != nil {
			return err
		}
		a.Redis = redisCli
		a.Denylist = cache.NewTokenDenylist(redisCli)
	} else {
		slog.Warn("redis disabled, logout will not revoke tokens")
	}

	switch cfg.Storage.Backend {
	case "minio":
		client, err := minioClient.New(ctx, cfg.Storage.Endpoint, cfg.Storage.AccessKey, cfg.Storage.SecretKey, cfg.Storage.Bucket, cfg.Storage.UseSSL)
		if err != nil {
			return err
		}
		a.Blobs = storage.NewMinioBlobStore(client, cfg.Storage.Bucket)
	case "memory":
		slog.Warn("memory storage backend in use, image payloads are lost on restart")
		a.Blobs = storage.NewMemoryBlobStore()
	}

	if cfg.RabbitMQ.Enabled {
		mqConn, err := rabbitmqClient.New(ctx, cfg.RabbitMQ.URL, cfg.RabbitMQ.ImageEventQueue)
		if err != nil {
			return err
		}
		a.MQConn = mqConn
		a.Publisher = rabbitmqClient.NewEventPublisher(mqConn, cfg.RabbitMQ.ImageEventQueue)

		eventRepo := repository.NewImageEventRepository(db)
		a.EventWorker = worker.NewImageEventWorker(mqConn, eventRepo, cfg.RabbitMQ.ImageEventQueue)
		if err := a.EventWorker.Start(ctx); err != nil {
			return fmt.Errorf("start image event worker failed: %w", err)
		}
	}

	return nil
}

// Migrate creates or updates the tables the service owns.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&model.User{}, &model.Image{}, &model.ImageEvent{}); err != nil {
		return fmt.Errorf("auto migrate tables failed: %w", err)
	}
	return nil
}

func (a *App) Close() error {
	var closeErr error
	if a.EventWorker != nil {
		a.EventWorker.Close()
	}
	if a.MQConn != nil {
		if err := a.MQConn.Close(); err != nil {
			closeErr = err
		}
	}
	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			closeErr = err
		}
	}
	if a.DB != nil {
		sqlDB, err := a.DB.DB()
		if err == nil {
			if err := sqlDB.Close(); err != nil {
				closeErr = err
			}
		}
	}
	return closeErr
}
