package ports

import (
	"context"

	"github.com/GoArmGo/UsersApp/internal/messaging/payloads"
)

// UserEventPublisher публикует события об изменении пользователей.
// Используется сервисом пользователей после успешной фиксации изменений.
type UserEventPublisher interface {
	PublishUserEvent(ctx context.Context, event payloads.UserEventPayload) error
}

// UserEventConsumer определяет методы для потребления событий о пользователях,
// будет использоваться воркером
type UserEventConsumer interface {
	// StartConsumingUserEvents начинает прослушивание очереди.
	// handler вызывается для каждого полученного события.
	StartConsumingUserEvents(ctx context.Context, handler func(context.Context, payloads.UserEventPayload) error) error
}
