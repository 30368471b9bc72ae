package usecase

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/GoArmGo/UsersApp/internal/core/ports"
	"github.com/GoArmGo/UsersApp/internal/logger"
	"github.com/GoArmGo/UsersApp/internal/messaging/payloads"
	"github.com/google/uuid"
)

// userAuditUseCase implements UserAuditUseCase
type userAuditUseCase struct {
	files  ports.FileStorage
	logger *slog.Logger
}

// NewUserAuditUseCase создает обработчик событий, складывающий их в объектное хранилище
func NewUserAuditUseCase(files ports.FileStorage, logger *slog.Logger) UserAuditUseCase {
	return &userAuditUseCase{files: files, logger: logger}
}

// AuditObjectKey возвращает путь объекта для события: user-events/<userId>/<eventId>.json
func AuditObjectKey(event payloads.UserEventPayload) string {
	return fmt.Sprintf("user-events/%d/%s.json", event.UserID, event.EventID)
}

// ArchiveUserEvent сохраняет событие как JSON-документ.
// Ошибка возвращается наружу, чтобы потребитель вернул сообщение в очередь.
func (uc *userAuditUseCase) ArchiveUserEvent(ctx context.Context, event payloads.UserEventPayload) error {
	start := time.Now()

	if event.EventID == "" {
		event.EventID = uuid.NewString()
	}

	body, err := json.MarshalIndent(event, "", "  ")
	if err != nil {
		return fmt.Errorf("usecase: ошибка сериализации события %s: %w", event.EventID, err)
	}

	key := AuditObjectKey(event)
	location, err := uc.files.UploadFile(ctx, key, bytes.NewReader(body), "application/json")
	if err != nil {
		return fmt.Errorf("usecase: ошибка загрузки события %s в хранилище: %w", event.EventID, err)
	}

	logger.FromContext(ctx, uc.logger).Info("user event archived",
		"event_id", event.EventID,
		"type", event.Type,
		"user_id", event.UserID,
		"location", location,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return nil
}
