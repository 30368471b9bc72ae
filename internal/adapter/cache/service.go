// Package cache реализует кэш поверх Redis или памяти процесса.
package cache

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/GoArmGo/UsersApp/internal/core/ports"
	"github.com/GoArmGo/UsersApp/internal/logger"
)

// Backend — хранилище сырых значений кэша
type Backend interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	// DeleteByPattern удаляет ключи по glob-шаблону
	DeleteByPattern(ctx context.Context, pattern string) error
	Exists(ctx context.Context, key string) (bool, error)
}

// Service сериализует значения в JSON и прячет ошибки бэкенда:
// недоступный кэш означает промах, а не сбой запроса.
type Service struct {
	backend Backend
	logger  *slog.Logger
}

var _ ports.Cache = (*Service)(nil)

func NewService(backend Backend, logger *slog.Logger) *Service {
	return &Service{backend: backend, logger: logger}
}

func (s *Service) Get(ctx context.Context, key string, dest any) bool {
	raw, ok, err := s.backend.Get(ctx, key)
	if err != nil {
		logger.FromContext(ctx, s.logger).Warn("cache get failed", "key", key, "error", err)
		return false
	}
	if !ok {
		logger.FromContext(ctx, s.logger).Debug("cache miss", "key", key)
		return false
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		logger.FromContext(ctx, s.logger).Warn("cache value decode failed", "key", key, "error", err)
		return false
	}
	logger.FromContext(ctx, s.logger).Debug("cache hit", "key", key)
	return true
}

func (s *Service) Set(ctx context.Context, key string, value any, ttl time.Duration) {
	raw, err := json.Marshal(value)
	if err != nil {
		logger.FromContext(ctx, s.logger).Warn("cache value encode failed", "key", key, "error", err)
		return
	}
	if err := s.backend.Set(ctx, key, raw, ttl); err != nil {
		logger.FromContext(ctx, s.logger).Warn("cache set failed", "key", key, "error", err)
	}
}

func (s *Service) Remove(ctx context.Context, key string) {
	if err := s.backend.Delete(ctx, key); err != nil {
		logger.FromContext(ctx, s.logger).Warn("cache remove failed", "key", key, "error", err)
	}
}

func (s *Service) RemoveByPattern(ctx context.Context, pattern string) {
	if err := s.backend.DeleteByPattern(ctx, pattern); err != nil {
		logger.FromContext(ctx, s.logger).Warn("cache remove by pattern failed", "pattern", pattern, "error", err)
	}
}

func (s *Service) Exists(ctx context.Context, key string) bool {
	ok, err := s.backend.Exists(ctx, key)
	if err != nil {
		logger.FromContext(ctx, s.logger).Warn("cache exists failed", "key", key, "error", err)
		return false
	}
	return ok
}
