package logger

import (
	"log/slog"
	"time"

	gormlogger "gorm.io/gorm/logger"
)

// NewGormLogger направляет логи GORM в slog.
// Запросы медленнее slowThreshold пишутся как предупреждения.
func NewGormLogger(base *slog.Logger, slowThreshold time.Duration) gormlogger.Interface {
	writer := slog.NewLogLogger(base.Handler(), slog.LevelWarn)

	return gormlogger.New(writer, gormlogger.Config{
		SlowThreshold:             slowThreshold,
		LogLevel:                  gormlogger.Warn,
		IgnoreRecordNotFoundError: true,
		Colorful:                  false,
	})
}
