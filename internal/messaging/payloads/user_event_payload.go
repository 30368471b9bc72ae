package payloads

import "time"

// Типы событий об изменении пользователя
const (
	UserCreated = "user.created"
	UserUpdated = "user.updated"
	UserDeleted = "user.deleted"
)

// UserEventPayload — сообщение об изменении пользователя, передаваемое через RabbitMQ.
// User пустой для user.deleted.
type UserEventPayload struct {
	EventID       string    `json:"event_id"`
	Type          string    `json:"type"`
	UserID        int64     `json:"user_id"`
	OccurredAt    time.Time `json:"occurred_at"`
	CorrelationID string    `json:"correlation_id,omitempty"`
	User          *UserData `json:"user,omitempty"`
}

// UserData — снимок пользователя на момент события
type UserData struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	IsActive bool   `json:"is_active"`
}
