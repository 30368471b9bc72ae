package ports

import (
	"context"
	"errors"

	"github.com/GoArmGo/UsersApp/internal/domain"
)

// ErrDuplicate — запись нарушила уникальный индекс
var ErrDuplicate = errors.New("unique constraint violated")

// ErrNotFound — обновляемой записи уже нет в хранилище
var ErrNotFound = errors.New("record not found")

// Predicate — условие выборки в виде SQL-фрагмента с параметрами
type Predicate struct {
	Query string
	Args  []any
}

// Where собирает Predicate, например Where("email = ?", email)
func Where(query string, args ...any) Predicate {
	return Predicate{Query: query, Args: args}
}

// Repository определяет типовые операции над сущностью T.
// Get-методы возвращают nil, nil, если запись не найдена.
// Add, Update и Delete только ставят изменения в очередь единицы работы,
// в базу они попадают после UnitOfWork.SaveChanges.
// Нарушение уникальности возвращается как ошибка, оборачивающая ErrDuplicate.
type Repository[T any] interface {
	GetByID(ctx context.Context, id int64) (*T, error)
	GetAll(ctx context.Context) ([]T, error)
	FirstMatching(ctx context.Context, p Predicate) (*T, error)
	Add(ctx context.Context, entity *T) (*T, error)
	Update(ctx context.Context, entity *T) error
	Delete(ctx context.Context, entity *T) error
	Exists(ctx context.Context, p Predicate) (bool, error)
	Count(ctx context.Context, p ...Predicate) (int64, error)
}

// UnitOfWork группирует изменения нескольких репозиториев в одну транзакцию
type UnitOfWork interface {
	Users() Repository[domain.User]
	// SaveChanges фиксирует накопленные изменения и возвращает число затронутых строк
	SaveChanges(ctx context.Context) (int64, error)
	// Rollback отменяет незафиксированные изменения; после SaveChanges ничего не делает
	Rollback() error
}

// UnitOfWorkFactory создаёт единицу работы на одну операцию сервиса
type UnitOfWorkFactory interface {
	NewUnitOfWork() UnitOfWork
}
