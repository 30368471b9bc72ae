package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/GoArmGo/UsersApp/internal/core/ports"
	"github.com/GoArmGo/UsersApp/internal/logger"
	"github.com/GoArmGo/UsersApp/internal/messaging/payloads"
	"github.com/GoArmGo/UsersApp/internal/usecase"
)

// runWorker читает события пользователей из очереди и архивирует их до отмены ctx
func runWorker(ctx context.Context, consumer ports.UserEventConsumer, audit usecase.UserAuditUseCase, log *slog.Logger) error {
	if consumer == nil || audit == nil {
		return errors.New("worker mode requires RABBITMQ_URL and MinIO settings")
	}

	handler := func(ctx context.Context, event payloads.UserEventPayload) error {
		if event.CorrelationID != "" {
			ctx = logger.WithCorrelationID(ctx, event.CorrelationID)
		}
		l := logger.FromContext(ctx, log)
		l.Info("processing user event", "event_id", event.EventID, "type", event.Type, "user_id", event.UserID)

		if err := audit.ArchiveUserEvent(ctx, event); err != nil {
			return fmt.Errorf("archive event %s: %w", event.EventID, err)
		}
		return nil
	}

	if err := consumer.StartConsumingUserEvents(ctx, handler); err != nil {
		return fmt.Errorf("ошибка при запуске потребителя RabbitMQ: %w", err)
	}

	log.Info("worker started, waiting for user events")
	<-ctx.Done()
	log.Info("shutdown signal received, stopping worker")
	return nil
}
