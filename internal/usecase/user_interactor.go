package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/GoArmGo/UsersApp/internal/apperror"
	"github.com/GoArmGo/UsersApp/internal/core/ports"
	"github.com/GoArmGo/UsersApp/internal/domain"
	"github.com/GoArmGo/UsersApp/internal/logger"
	"github.com/GoArmGo/UsersApp/internal/messaging/payloads"
	"github.com/google/uuid"
)

// userUseCase implements UserUseCase
type userUseCase struct {
	uows     ports.UnitOfWorkFactory
	cache    ports.Cache
	events   ports.UserEventPublisher
	cacheTTL time.Duration
	now      func() time.Time
	logger   *slog.Logger
}

// NewUserUseCase создает сервис пользователей.
// Чтения идут через кэш, после каждой записи затронутые ключи удаляются.
func NewUserUseCase(
	uows ports.UnitOfWorkFactory,
	cache ports.Cache,
	events ports.UserEventPublisher,
	cacheTTL time.Duration,
	logger *slog.Logger,
) UserUseCase {
	if cacheTTL <= 0 {
		cacheTTL = CacheTTL
	}
	return &userUseCase{
		uows:     uows,
		cache:    cache,
		events:   events,
		cacheTTL: cacheTTL,
		now:      time.Now,
		logger:   logger,
	}
}

func (uc *userUseCase) ListUsers(ctx context.Context) ([]domain.UserDto, error) {
	var cached []domain.UserDto
	if uc.cache.Get(ctx, CacheKeyAllUsers, &cached) {
		return cached, nil
	}

	users, err := uc.uows.NewUnitOfWork().Users().GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("usecase: ошибка при получении списка пользователей: %w", err)
	}

	dtos := make([]domain.UserDto, 0, len(users))
	for i := range users {
		dtos = append(dtos, users[i].ToDto())
	}

	uc.cache.Set(ctx, CacheKeyAllUsers, dtos, uc.cacheTTL)
	return dtos, nil
}

func (uc *userUseCase) GetUser(ctx context.Context, id int64) (*domain.UserDto, error) {
	key := CacheKeyUser(id)

	var cached domain.UserDto
	if uc.cache.Get(ctx, key, &cached) {
		return &cached, nil
	}

	user, err := uc.uows.NewUnitOfWork().Users().GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("usecase: ошибка при получении пользователя %d: %w", id, err)
	}
	if user == nil {
		return nil, nil
	}

	dto := user.ToDto()
	uc.cache.Set(ctx, key, dto, uc.cacheTTL)
	return &dto, nil
}

// CreateUser проверяет уникальность email отдельным запросом перед вставкой.
// Два параллельных запроса могут пройти проверку оба; тогда второй
// упрётся в уникальный индекс и получит ту же ошибку.
func (uc *userUseCase) CreateUser(ctx context.Context, payload domain.CreateUserPayload) (*domain.UserDto, error) {
	log := logger.FromContext(ctx, uc.logger)

	uow := uc.uows.NewUnitOfWork()
	defer uow.Rollback()

	if err := uc.ensureEmailFree(ctx, uow, payload.Email); err != nil {
		return nil, err
	}

	user := &domain.User{
		Name:      payload.Name,
		Email:     payload.Email,
		IsActive:  true,
		CreatedAt: uc.now().UTC(),
	}
	if _, err := uow.Users().Add(ctx, user); err != nil {
		return nil, writeError("создании пользователя", err)
	}
	if _, err := uow.SaveChanges(ctx); err != nil {
		return nil, writeError("создании пользователя", err)
	}

	uc.cache.Remove(ctx, CacheKeyAllUsers)
	log.Info("user created", "user_id", user.ID)

	uc.publish(ctx, payloads.UserCreated, user)

	dto := user.ToDto()
	return &dto, nil
}

// UpdateUser применяет только переданные поля: пустые name и email
// считаются непереданными, IsActive применяется, если ключ был в запросе.
func (uc *userUseCase) UpdateUser(ctx context.Context, id int64, payload domain.UpdateUserPayload) (*domain.UserDto, error) {
	log := logger.FromContext(ctx, uc.logger)

	uow := uc.uows.NewUnitOfWork()
	defer uow.Rollback()

	user, err := uow.Users().GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("usecase: ошибка при получении пользователя %d: %w", id, err)
	}
	if user == nil {
		return nil, nil
	}

	email, emailSet := payload.EmailValue()
	if emailSet && email != user.Email {
		if err := uc.ensureEmailFree(ctx, uow, email); err != nil {
			return nil, err
		}
	}

	if name, ok := payload.NameValue(); ok {
		user.Name = name
	}
	if emailSet {
		user.Email = email
	}
	if isActive, ok := payload.IsActive.Get(); ok {
		user.IsActive = isActive
	}
	now := uc.now().UTC()
	user.UpdatedAt = &now

	if err := uow.Users().Update(ctx, user); err != nil {
		if errors.Is(err, ports.ErrNotFound) {
			// удалён параллельным запросом после чтения
			return nil, nil
		}
		return nil, writeError("обновлении пользователя", err)
	}
	if _, err := uow.SaveChanges(ctx); err != nil {
		return nil, writeError("обновлении пользователя", err)
	}

	uc.invalidateUser(ctx, id)
	log.Info("user updated", "user_id", id)

	uc.publish(ctx, payloads.UserUpdated, user)

	dto := user.ToDto()
	return &dto, nil
}

func (uc *userUseCase) DeleteUser(ctx context.Context, id int64) (bool, error) {
	log := logger.FromContext(ctx, uc.logger)

	uow := uc.uows.NewUnitOfWork()
	defer uow.Rollback()

	user, err := uow.Users().GetByID(ctx, id)
	if err != nil {
		return false, fmt.Errorf("usecase: ошибка при получении пользователя %d: %w", id, err)
	}
	if user == nil {
		return false, nil
	}

	if err := uow.Users().Delete(ctx, user); err != nil {
		return false, fmt.Errorf("usecase: ошибка при удалении пользователя %d: %w", id, err)
	}
	if _, err := uow.SaveChanges(ctx); err != nil {
		return false, fmt.Errorf("usecase: ошибка при удалении пользователя %d: %w", id, err)
	}

	uc.invalidateUser(ctx, id)
	log.Info("user deleted", "user_id", id)

	uc.publish(ctx, payloads.UserDeleted, &domain.User{ID: id})
	return true, nil
}

func (uc *userUseCase) ensureEmailFree(ctx context.Context, uow ports.UnitOfWork, email string) error {
	existing, err := uow.Users().FirstMatching(ctx, ports.Where("email = ?", email))
	if err != nil {
		return fmt.Errorf("usecase: ошибка при проверке email: %w", err)
	}
	if existing != nil {
		logger.FromContext(ctx, uc.logger).Warn("duplicate email rejected", "existing_user_id", existing.ID)
		return apperror.BadRequest(apperror.MsgDuplicateEmail, nil)
	}
	return nil
}

func (uc *userUseCase) invalidateUser(ctx context.Context, id int64) {
	uc.cache.Remove(ctx, CacheKeyUser(id))
	uc.cache.Remove(ctx, CacheKeyAllUsers)
}

// publish отправляет событие после фиксации; сбой только логируется
func (uc *userUseCase) publish(ctx context.Context, eventType string, user *domain.User) {
	event := payloads.UserEventPayload{
		EventID:       uuid.NewString(),
		Type:          eventType,
		UserID:        user.ID,
		OccurredAt:    uc.now().UTC(),
		CorrelationID: logger.CorrelationID(ctx),
	}
	if eventType != payloads.UserDeleted {
		event.User = &payloads.UserData{
			Name:     user.Name,
			Email:    user.Email,
			IsActive: user.IsActive,
		}
	}

	if err := uc.events.PublishUserEvent(ctx, event); err != nil {
		logger.FromContext(ctx, uc.logger).Error("failed to publish user event",
			"type", eventType,
			"user_id", user.ID,
			"error", err,
		)
	}
}

// writeError превращает нарушение уникального индекса в ту же ошибку, что и проверка email
func writeError(action string, err error) error {
	if errors.Is(err, ports.ErrDuplicate) {
		return apperror.BadRequest(apperror.MsgDuplicateEmail, nil)
	}
	return fmt.Errorf("usecase: ошибка при %s: %w", action, err)
}
