package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/GoArmGo/UsersApp/internal/core/ports"
	"gorm.io/gorm"
)

// Repository реализует ports.Repository[T] на GORM.
// Записи попадают в транзакцию своей единицы работы.
type Repository[T any] struct {
	uow *UnitOfWork
}

var _ ports.Repository[struct{}] = (*Repository[struct{}])(nil)

// GetByID получает сущность по первичному ключу, nil если записи нет
func (r *Repository[T]) GetByID(ctx context.Context, id int64) (*T, error) {
	var entity T
	err := r.uow.reader(ctx).First(&entity, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("ошибка при получении записи по ID %d: %w", id, err)
	}
	return &entity, nil
}

// GetAll возвращает все записи в порядке первичного ключа
func (r *Repository[T]) GetAll(ctx context.Context) ([]T, error) {
	list := make([]T, 0)
	if err := r.uow.reader(ctx).Order("id").Find(&list).Error; err != nil {
		return nil, fmt.Errorf("ошибка при получении списка записей: %w", err)
	}
	return list, nil
}

// FirstMatching возвращает первую запись, подходящую под условие, или nil
func (r *Repository[T]) FirstMatching(ctx context.Context, p ports.Predicate) (*T, error) {
	var entity T
	err := where(r.uow.reader(ctx), p).First(&entity).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("ошибка при поиске записи (%s): %w", p.Query, err)
	}
	return &entity, nil
}

// Add вставляет запись; сгенерированный ID проставляется в entity
func (r *Repository[T]) Add(ctx context.Context, entity *T) (*T, error) {
	err := r.uow.write(ctx, func(tx *gorm.DB) *gorm.DB {
		return tx.Create(entity)
	})
	if err != nil {
		return nil, fmt.Errorf("ошибка при добавлении записи: %w", err)
	}
	return entity, nil
}

// Update сохраняет все поля сущности, включая нулевые значения.
// Если строки уже нет, возвращает ports.ErrNotFound и ничего не вставляет.
func (r *Repository[T]) Update(ctx context.Context, entity *T) error {
	err := r.uow.write(ctx, func(tx *gorm.DB) *gorm.DB {
		res := tx.Model(entity).Select("*").Updates(entity)
		if res.Error == nil && res.RowsAffected == 0 {
			_ = res.AddError(ports.ErrNotFound)
		}
		return res
	})
	if err != nil {
		return fmt.Errorf("ошибка при обновлении записи: %w", err)
	}
	return nil
}

func (r *Repository[T]) Delete(ctx context.Context, entity *T) error {
	err := r.uow.write(ctx, func(tx *gorm.DB) *gorm.DB {
		return tx.Delete(entity)
	})
	if err != nil {
		return fmt.Errorf("ошибка при удалении записи: %w", err)
	}
	return nil
}

func (r *Repository[T]) Exists(ctx context.Context, p ports.Predicate) (bool, error) {
	n, err := r.Count(ctx, p)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Count считает записи; без условий считает все
func (r *Repository[T]) Count(ctx context.Context, p ...ports.Predicate) (int64, error) {
	q := r.uow.reader(ctx).Model(new(T))
	for _, pred := range p {
		q = where(q, pred)
	}

	var n int64
	if err := q.Count(&n).Error; err != nil {
		return 0, fmt.Errorf("ошибка при подсчёте записей: %w", err)
	}
	return n, nil
}

func where(db *gorm.DB, p ports.Predicate) *gorm.DB {
	if p.Query == "" {
		return db
	}
	return db.Where(p.Query, p.Args...)
}
