package client

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/GoArmGo/UsersApp/internal/config"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)

// Client держит пул соединений sqlx.
// Поверх того же *sql.DB работают GORM и golang-migrate.
type Client struct {
	DB     *sqlx.DB
	Driver string
	logger *slog.Logger
}

// Options — параметры пула соединений
type Options struct {
	Driver          string
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// OptionsFromConfig собирает Options из конфигурации приложения
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		Driver:          cfg.Database.Driver,
		DSN:             cfg.Database.URL,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
	}
}

// NewClient открывает соединение с базой и проверяет его пингом
func NewClient(opts Options, logger *slog.Logger) (*Client, error) {
	start := time.Now()

	db, err := sqlx.Connect(opts.Driver, opts.DSN)
	if err != nil {
		logger.Error("failed to open database connection", "driver", opts.Driver, "error", err)
		return nil, fmt.Errorf("ошибка открытия соединения с БД: %w", err)
	}

	if opts.Driver == "sqlite3" {
		// SQLite не умеет параллельную запись, а in-memory база живёт в одном соединении
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(opts.MaxOpenConns)
		db.SetMaxIdleConns(opts.MaxIdleConns)
		db.SetConnMaxLifetime(opts.ConnMaxLifetime)
	}

	if err = db.Ping(); err != nil {
		logger.Error("failed to ping database", "error", err)
		_ = db.Close()
		return nil, fmt.Errorf("не удалось подключиться к базе данных: %w", err)
	}

	logger.Info("database connection established successfully",
		"driver", opts.Driver,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	return &Client{DB: db, Driver: opts.Driver, logger: logger}, nil
}

// Ping проверяет доступность базы, используется проверкой готовности
func (c *Client) Ping(ctx context.Context) error {
	return c.DB.PingContext(ctx)
}

func (c *Client) Close() error {
	start := time.Now()
	err := c.DB.Close()
	if err != nil {
		c.logger.Error("failed to close database connection", "error", err)
		return err
	}
	c.logger.Info("database connection closed", "duration_ms", time.Since(start).Milliseconds())
	return nil
}
