// Package dbtest поднимает изолированную SQLite-базу в памяти для тестов.
package dbtest

import (
	"fmt"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/GoArmGo/UsersApp/internal/database/client"
	"github.com/GoArmGo/UsersApp/internal/database/migrations"
	"github.com/GoArmGo/UsersApp/internal/logger"
)

var seq atomic.Int64

// DSN возвращает уникальный адрес in-memory базы для теста
func DSN(t testing.TB) string {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	return fmt.Sprintf("file:%s_%d?mode=memory&cache=shared", name, seq.Add(1))
}

// NewSQLite открывает базу, применяет миграции и закрывает её по завершении теста
func NewSQLite(t testing.TB) *client.Client {
	t.Helper()

	c, err := client.NewClient(client.Options{Driver: "sqlite3", DSN: DSN(t)}, logger.Discard())
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = c.Close() })

	if err := migrations.Up(c.DB.DB, "sqlite3", logger.Discard()); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return c
}
