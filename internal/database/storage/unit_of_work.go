package storage

import (
	"context"
	"fmt"
	"log/slog"
	"reflect"
	"sync"
	"time"

	"github.com/GoArmGo/UsersApp/internal/core/ports"
	"github.com/GoArmGo/UsersApp/internal/domain"
	"gorm.io/gorm"
)

// UnitOfWork копит изменения репозиториев в одной транзакции.
// Транзакция открывается при первой записи, чтения внутри неё идут через неё же.
// Экземпляр рассчитан на одну операцию сервиса.
type UnitOfWork struct {
	db     *gorm.DB
	logger *slog.Logger

	mu       sync.Mutex
	tx       *gorm.DB
	affected int64
	repos    map[reflect.Type]any
}

func NewUnitOfWork(db *gorm.DB, logger *slog.Logger) *UnitOfWork {
	return &UnitOfWork{
		db:     db,
		logger: logger,
		repos:  make(map[reflect.Type]any),
	}
}

// RepositoryOf возвращает репозиторий сущности T, создавая его при первом обращении
func RepositoryOf[T any](u *UnitOfWork) ports.Repository[T] {
	key := reflect.TypeFor[T]()

	u.mu.Lock()
	defer u.mu.Unlock()

	if repo, ok := u.repos[key]; ok {
		return repo.(*Repository[T])
	}
	repo := &Repository[T]{uow: u}
	u.repos[key] = repo
	return repo
}

func (u *UnitOfWork) Users() ports.Repository[domain.User] {
	return RepositoryOf[domain.User](u)
}

// SaveChanges фиксирует транзакцию и возвращает число строк, затронутых записями.
// Без записей ничего не делает и возвращает 0.
func (u *UnitOfWork) SaveChanges(ctx context.Context) (int64, error) {
	u.mu.Lock()
	defer u.mu.Unlock()

	if u.tx == nil {
		return 0, nil
	}

	start := time.Now()
	if err := u.tx.WithContext(ctx).Commit().Error; err != nil {
		u.logger.Error("failed to commit transaction", "error", err)
		u.tx.Rollback()
		u.reset()
		return 0, fmt.Errorf("ошибка фиксации транзакции: %w", classify(err))
	}

	affected := u.affected
	u.reset()

	u.logger.Debug("transaction committed",
		"rows_affected", affected,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return affected, nil
}

// Rollback отменяет незафиксированные изменения; после SaveChanges ничего не делает
func (u *UnitOfWork) Rollback() error {
	u.mu.Lock()
	defer u.mu.Unlock()

	if u.tx == nil {
		return nil
	}
	err := u.tx.Rollback().Error
	u.reset()
	if err != nil {
		return fmt.Errorf("ошибка отката транзакции: %w", err)
	}
	return nil
}

func (u *UnitOfWork) reset() {
	u.tx = nil
	u.affected = 0
}

// reader возвращает соединение для чтения: открытую транзакцию или пул
func (u *UnitOfWork) reader(ctx context.Context) *gorm.DB {
	u.mu.Lock()
	defer u.mu.Unlock()

	if u.tx != nil {
		return u.tx.WithContext(ctx)
	}
	return u.db.WithContext(ctx)
}

// write выполняет запись внутри транзакции, открывая её при необходимости
func (u *UnitOfWork) write(ctx context.Context, fn func(tx *gorm.DB) *gorm.DB) error {
	u.mu.Lock()
	defer u.mu.Unlock()

	if u.tx == nil {
		tx := u.db.WithContext(ctx).Begin()
		if tx.Error != nil {
			return fmt.Errorf("не удалось открыть транзакцию: %w", tx.Error)
		}
		u.tx = tx
	}

	result := fn(u.tx.WithContext(ctx))
	if result.Error != nil {
		return classify(result.Error)
	}
	u.affected += result.RowsAffected
	return nil
}

// UnitOfWorkFactory создаёт по единице работы на операцию
type UnitOfWorkFactory struct {
	db     *gorm.DB
	logger *slog.Logger
}

func NewUnitOfWorkFactory(db *gorm.DB, logger *slog.Logger) *UnitOfWorkFactory {
	return &UnitOfWorkFactory{db: db, logger: logger}
}

func (f *UnitOfWorkFactory) NewUnitOfWork() ports.UnitOfWork {
	return NewUnitOfWork(f.db, f.logger)
}
