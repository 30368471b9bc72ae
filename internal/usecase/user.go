package usecase

import (
	"context"
	"strconv"
	"time"

	"github.com/GoArmGo/UsersApp/internal/domain"
	"github.com/GoArmGo/UsersApp/internal/messaging/payloads"
)

// Ключи кэша и время жизни записей
const (
	CacheKeyAllUsers = "users_all"
	CacheTTL         = 5 * time.Minute
)

// CacheKeyUser возвращает ключ кэша для одного пользователя
func CacheKeyUser(id int64) string {
	return "user_" + strconv.FormatInt(id, 10)
}

// UserUseCase определяет бизнес-логику работы с пользователями.
// Отсутствие пользователя не ошибка: Get и Update возвращают nil, Delete возвращает false.
type UserUseCase interface {
	// ListUsers возвращает всех пользователей, сначала заглядывая в кэш
	ListUsers(ctx context.Context) ([]domain.UserDto, error)

	// GetUser возвращает пользователя по ID или nil
	GetUser(ctx context.Context, id int64) (*domain.UserDto, error)

	// CreateUser создаёт пользователя; занятый email даёт ошибку KindBadRequest
	CreateUser(ctx context.Context, payload domain.CreateUserPayload) (*domain.UserDto, error)

	// UpdateUser применяет переданные поля к пользователю
	UpdateUser(ctx context.Context, id int64, payload domain.UpdateUserPayload) (*domain.UserDto, error)

	// DeleteUser удаляет пользователя и сообщает, был ли он
	DeleteUser(ctx context.Context, id int64) (bool, error)
}

// UserAuditUseCase архивирует события об изменении пользователей (режим воркера)
type UserAuditUseCase interface {
	ArchiveUserEvent(ctx context.Context, event payloads.UserEventPayload) error
}
