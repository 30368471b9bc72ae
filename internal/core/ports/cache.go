package ports

import (
	"context"
	"time"
)

// Cache — кэш, в который значения кладутся в сериализованном виде.
// Недоступность кэша не считается ошибкой: Get сообщает промах,
// операции записи молча ничего не делают.
type Cache interface {
	// Get декодирует значение по ключу в dest и сообщает, было ли попадание
	Get(ctx context.Context, key string, dest any) bool
	Set(ctx context.Context, key string, value any, ttl time.Duration)
	Remove(ctx context.Context, key string)
	// RemoveByPattern удаляет ключи по glob-шаблону, например "user_*"
	RemoveByPattern(ctx context.Context, pattern string)
	Exists(ctx context.Context, key string) bool
}
