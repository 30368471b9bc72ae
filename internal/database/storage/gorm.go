package storage

import (
	"database/sql"
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// OpenGorm поднимает GORM поверх уже открытого пула соединений.
// TranslateError включён, чтобы нарушение уникальности приходило как gorm.ErrDuplicatedKey.
func OpenGorm(sqlDB *sql.DB, driver string, logger gormlogger.Interface) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch driver {
	case "postgres":
		dialector = postgres.New(postgres.Config{Conn: sqlDB})
	case "sqlite3":
		dialector = &sqlite.Dialector{Conn: sqlDB}
	default:
		return nil, fmt.Errorf("драйвер %q не поддерживается GORM", driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:         logger,
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("ошибка инициализации GORM: %w", err)
	}
	return db, nil
}
