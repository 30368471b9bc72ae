package di

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/GoArmGo/UsersApp/internal/adapter/cache"
	"github.com/GoArmGo/UsersApp/internal/adapter/storage/minio"
	"github.com/GoArmGo/UsersApp/internal/app"
	"github.com/GoArmGo/UsersApp/internal/config"
	"github.com/GoArmGo/UsersApp/internal/core/ports"
	"github.com/GoArmGo/UsersApp/internal/database/client"
	"github.com/GoArmGo/UsersApp/internal/database/migrations"
	"github.com/GoArmGo/UsersApp/internal/database/storage"
	"github.com/GoArmGo/UsersApp/internal/handler"
	"github.com/GoArmGo/UsersApp/internal/logger"
	"github.com/GoArmGo/UsersApp/internal/rabbitmq"
	"github.com/GoArmGo/UsersApp/internal/ratelimit"
	"github.com/GoArmGo/UsersApp/internal/resilience"
	"github.com/GoArmGo/UsersApp/internal/usecase"
	"github.com/GoArmGo/UsersApp/internal/validation"
)

const memoryCacheCleanup = time.Minute

// BuildApp загружает конфигурацию и собирает зависимости для режима mode.
// При ошибке уже открытые ресурсы закрываются.
func BuildApp(ctx context.Context, mode string) (_ *app.App, err error) {
	// 1. Загрузка конфигурации
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, err
	}

	slogger := logger.NewSlog(logger.SlogConfig{
		Level:  cfg.LogLevel,
		Format: cfg.LogFormat,
	})
	slogger.Info("logger initialized", "level", cfg.LogLevel, "format", cfg.LogFormat)

	var c app.Components
	defer func() {
		if err != nil {
			for i := len(c.Closers) - 1; i >= 0; i-- {
				_ = c.Closers[i]()
			}
		}
	}()

	// 2. Подключение к базе данных
	dbClient, err := client.NewClient(client.OptionsFromConfig(cfg), slogger)
	if err != nil {
		return nil, err
	}
	c.DB = dbClient
	c.Closers = append(c.Closers, dbClient.Close)

	switch mode {
	case app.ModeMigrate:
		// миграции выполнит сам режим
	case app.ModeServer:
		if err = autoMigrate(cfg, dbClient, slogger); err != nil {
			return nil, err
		}
		if err = buildServer(ctx, cfg, slogger, &c); err != nil {
			return nil, err
		}
	case app.ModeWorker:
		if err = buildWorker(ctx, cfg, slogger, &c); err != nil {
			return nil, err
		}
	default:
		return nil, errors.New("неизвестный режим: " + mode)
	}

	slogger.Info("all dependencies initialized", "mode", mode)
	return app.NewApp(cfg, slogger, c), nil
}

func autoMigrate(cfg *config.Config, db *client.Client, log *slog.Logger) error {
	if !cfg.Database.AutoMigrate {
		return nil
	}
	return migrations.Up(db.DB.DB, db.Driver, log)
}

// buildServer собирает HTTP-стек: хранилище, кэш, события, сервис и маршруты
func buildServer(ctx context.Context, cfg *config.Config, log *slog.Logger, c *app.Components) error {
	// 3. Хранилище: GORM поверх пула sqlx
	gormDB, err := storage.OpenGorm(c.DB.DB.DB, cfg.Database.Driver, logger.NewGormLogger(log, cfg.Database.SlowQuery))
	if err != nil {
		return err
	}
	uows := storage.NewUnitOfWorkFactory(gormDB, log)

	// 4. Кэш: Redis, если задан адрес, иначе память процесса
	var backend cache.Backend
	if cfg.Cache.RedisAddr != "" {
		redisBackend, err := cache.NewRedisBackend(ctx, cache.RedisOptions{
			Addr:      cfg.Cache.RedisAddr,
			Password:  cfg.Cache.RedisPassword,
			DB:        cfg.Cache.RedisDB,
			KeyPrefix: cfg.Cache.KeyPrefix,
		})
		if err != nil {
			return err
		}
		c.Closers = append(c.Closers, redisBackend.Close)
		backend = redisBackend
		log.Info("using redis cache", "addr", cfg.Cache.RedisAddr)
	} else {
		backend = cache.NewMemoryBackend(memoryCacheCleanup)
		log.Info("REDIS_ADDR not set, using in-memory cache")
	}
	cacheService := cache.NewService(backend, log)

	// 5. Публикация событий: RabbitMQ, если настроен
	var publisher ports.UserEventPublisher = rabbitmq.NoopPublisher{}
	if cfg.RabbitMQ.RabbitMQURL != "" {
		rmq, err := rabbitmq.NewClient(cfg.RabbitMQ.RabbitMQURL, cfg.RabbitMQ.RabbitMQQueueName, log)
		if err != nil {
			return err
		}
		c.Closers = append(c.Closers, closeRabbit(rmq))
		publisher = rmq
	} else {
		log.Info("RABBITMQ_URL not set, user events are not published")
	}

	// 6. Бизнес-логика и HTTP
	userUseCase := usecase.NewUserUseCase(uows, cacheService, publisher, cfg.Cache.TTL, log)

	health := handler.NewHealthHandler(log,
		handler.DatabaseCheck(c.DB),
		handler.MemoryCheck(handler.MemoryThreshold),
		handler.SelfCheck(),
	)

	c.Router = handler.NewRouter(handler.RouterDeps{
		Users:          handler.NewUserHandler(userUseCase, validation.New(), log),
		Health:         health,
		Limiter:        ratelimit.New(cfg.RateLimit.PermitLimit, cfg.RateLimit.Window, log),
		CORSOrigins:    cfg.CORSOrigins,
		RequestTimeout: cfg.RequestTimeout,
		Logger:         log,
	})
	return nil
}

// buildWorker собирает потребителя событий и архив в MinIO
func buildWorker(ctx context.Context, cfg *config.Config, log *slog.Logger, c *app.Components) error {
	if cfg.RabbitMQ.RabbitMQURL == "" {
		return errors.New("worker mode requires RABBITMQ_URL")
	}
	if !cfg.MinioConfigured() {
		return errors.New("worker mode requires MINIO_ENDPOINT, MINIO_ACCESS_KEY_ID and MINIO_SECRET_ACCESS_KEY")
	}

	// Исходящие запросы к MinIO идут через политику повторов и автомат-предохранитель
	httpClient := resilience.NewHTTPClient(resilience.Config{
		MaxRetries:         cfg.Resilience.MaxRetries,
		RetryBaseDelay:     cfg.Resilience.RetryBaseDelay,
		BreakerFailures:    cfg.Resilience.BreakerFailures,
		BreakerOpenTimeout: cfg.Resilience.BreakerOpenTimeout,
		AttemptTimeout:     cfg.Resilience.AttemptTimeout,
	}, "minio", log)

	fileStorage, err := minio.NewMinioClient(ctx, minio.OptionsFromConfig(cfg), httpClient, log)
	if err != nil {
		return err
	}

	rmq, err := rabbitmq.NewClient(cfg.RabbitMQ.RabbitMQURL, cfg.RabbitMQ.RabbitMQQueueName, log)
	if err != nil {
		return err
	}
	c.Closers = append(c.Closers, closeRabbit(rmq))

	c.Consumer = rmq
	c.Audit = usecase.NewUserAuditUseCase(fileStorage, log)
	return nil
}

func closeRabbit(rmq *rabbitmq.Client) func() error {
	return func() error {
		rmq.Close()
		return nil
	}
}
