package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"
)

// Config хранит все конфигурационные параметры приложения.
type Config struct {
	AppName        string        `env:"APP_NAME" envDefault:"users-app"`
	ServerPort     string        `env:"SERVER_PORT"`
	RequestTimeout time.Duration `env:"REQUEST_TIMEOUT"`
	LogLevel       string        `env:"LOG_LEVEL"`
	LogFormat      string        `env:"LOG_FORMAT"`
	CORSOrigins    []string      `env:"CORS_ORIGINS" envSeparator:","`

	Database struct {
		Driver          string        `env:"DB_DRIVER" envDefault:"sqlite3"`
		URL             string        `env:"DATABASE_URL" envDefault:"users.db"`
		MaxOpenConns    int           `env:"DB_MAX_OPEN_CONNS" envDefault:"25"`
		MaxIdleConns    int           `env:"DB_MAX_IDLE_CONNS" envDefault:"10"`
		ConnMaxLifetime time.Duration `env:"DB_CONN_MAX_LIFETIME" envDefault:"5m"`
		AutoMigrate     bool          `env:"DB_AUTO_MIGRATE" envDefault:"true"`
		SlowQuery       time.Duration `env:"DB_SLOW_QUERY" envDefault:"200ms"`
	}

	// Пустой REDIS_ADDR означает локальный кэш в памяти процесса
	Cache struct {
		RedisAddr     string        `env:"REDIS_ADDR"`
		RedisPassword string        `env:"REDIS_PASSWORD"`
		RedisDB       int           `env:"REDIS_DB" envDefault:"0"`
		KeyPrefix     string        `env:"CACHE_KEY_PREFIX" envDefault:"usersapp:"`
		TTL           time.Duration `env:"CACHE_TTL" envDefault:"5m"`
	}

	RateLimit struct {
		PermitLimit int           `env:"RATE_LIMIT_PERMITS" envDefault:"100"`
		Window      time.Duration `env:"RATE_LIMIT_WINDOW" envDefault:"1m"`
	}

	// Политика для исходящих HTTP-вызовов
	Resilience struct {
		MaxRetries         int           `env:"HTTP_MAX_RETRIES" envDefault:"3"`
		RetryBaseDelay     time.Duration `env:"HTTP_RETRY_BASE_DELAY" envDefault:"2s"`
		BreakerFailures    uint32        `env:"HTTP_BREAKER_FAILURES" envDefault:"5"`
		BreakerOpenTimeout time.Duration `env:"HTTP_BREAKER_OPEN_TIMEOUT" envDefault:"30s"`
		AttemptTimeout     time.Duration `env:"HTTP_ATTEMPT_TIMEOUT" envDefault:"10s"`
	}

	RabbitMQ struct {
		RabbitMQURL       string `env:"RABBITMQ_URL"`
		RabbitMQQueueName string `env:"RABBITMQ_QUEUE_NAME" envDefault:"user_events_queue"`
	}

	// Настройки для MinIO (нужны только воркеру)
	MinioEndpoint        string `env:"MINIO_ENDPOINT"`
	MinioAccessKeyID     string `env:"MINIO_ACCESS_KEY_ID"`
	MinioSecretAccessKey string `env:"MINIO_SECRET_ACCESS_KEY"`
	MinioUseSSL          bool   `env:"MINIO_USE_SSL"`
	MinioBucketName      string `env:"MINIO_BUCKET_NAME" envDefault:"user-audit"`
	MinioRegion          string `env:"MINIO_REGION" envDefault:"us-east-1"`
}

// LoadConfig загружает конфигурацию из переменных окружения.
// В режиме разработки пытается загрузить .env файл.
func LoadConfig() (*Config, error) {
	if _, err := os.Stat(".env"); !os.IsNotExist(err) {
		if err := godotenv.Load(); err != nil {
			return nil, fmt.Errorf("ошибка загрузки .env файла: %w", err)
		}
	}

	cfg := Config{}
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("ошибка парсинга конфигурации из окружения: %w", err)
	}

	applyDefaults(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Вручную устанавливаем значения по умолчанию для тех полей, где они нужны
func applyDefaults(cfg *Config) {
	if cfg.ServerPort == "" {
		cfg.ServerPort = "8080"
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 30 * time.Second
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	if cfg.LogFormat == "" {
		cfg.LogFormat = "json"
	}
	if len(cfg.CORSOrigins) == 0 {
		cfg.CORSOrigins = []string{"*"}
	}
}

// Validate проверяет значения, которые env.Parse проверить не может
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "sqlite3", "postgres":
	default:
		return fmt.Errorf("неизвестный DB_DRIVER %q (используйте sqlite3 или postgres)", c.Database.Driver)
	}
	if c.RateLimit.PermitLimit <= 0 || c.RateLimit.Window <= 0 {
		return fmt.Errorf("RATE_LIMIT_PERMITS и RATE_LIMIT_WINDOW должны быть положительными")
	}
	if c.Cache.TTL <= 0 {
		return fmt.Errorf("CACHE_TTL должен быть положительным")
	}
	return nil
}

// MinioConfigured сообщает, заданы ли параметры объектного хранилища
func (c *Config) MinioConfigured() bool {
	return strings.TrimSpace(c.MinioEndpoint) != "" &&
		c.MinioAccessKeyID != "" &&
		c.MinioSecretAccessKey != ""
}
