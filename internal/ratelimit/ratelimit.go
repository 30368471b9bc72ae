// Package ratelimit ограничивает частоту запросов фиксированным окном.
package ratelimit

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/GoArmGo/UsersApp/internal/logger"
	gocache "github.com/patrickmn/go-cache"
)

// RejectionMessage — тело ответа 429
const RejectionMessage = "Rate limit exceeded. Please try again later."

// Limiter считает запросы каждого клиента в текущем окне.
// Счётчики живут в go-cache и истекают вместе с окном.
type Limiter struct {
	limit    int
	window   time.Duration
	counters *gocache.Cache
	now      func() time.Time
	logger   *slog.Logger
}

func New(limit int, window time.Duration, logger *slog.Logger) *Limiter {
	return &Limiter{
		limit:    limit,
		window:   window,
		counters: gocache.New(window, 2*window),
		now:      time.Now,
		logger:   logger,
	}
}

// Allow учитывает запрос клиента и сообщает, укладывается ли он в лимит.
// Второе значение — время до начала следующего окна.
func (l *Limiter) Allow(identity string) (bool, time.Duration) {
	now := l.now()
	windowIdx := now.UnixNano() / int64(l.window)
	key := fmt.Sprintf("%s|%d", identity, windowIdx)
	retryAfter := time.Duration((windowIdx+1)*int64(l.window) - now.UnixNano())

	// Add атомарен: из конкурирующих запросов счётчик создаст только один
	if err := l.counters.Add(key, 1, l.window); err == nil {
		return l.limit >= 1, retryAfter
	}
	n, err := l.counters.IncrementInt(key, 1)
	if err != nil {
		// окно успело истечь между Add и IncrementInt
		l.counters.Set(key, 1, l.window)
		n = 1
	}
	return n <= l.limit, retryAfter
}

// Middleware отклоняет запросы сверх лимита ответом 429, в очередь они не ставятся
func (l *Limiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identity := Identity(r)
		ok, retryAfter := l.Allow(identity)
		if !ok {
			logger.FromContext(r.Context(), l.logger).Warn("rate limit exceeded",
				"client", identity,
				"path", r.URL.Path,
			)
			w.Header().Set("Retry-After", fmt.Sprintf("%d", int(retryAfter.Seconds())+1))
			w.Header().Set("Content-Type", "text/plain; charset=utf-8")
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = w.Write([]byte(RejectionMessage))
			return
		}
		next.ServeHTTP(w, r)
	})
}

type identityKey struct{}

// WithIdentity сохраняет идентификатор аутентифицированного клиента.
// Слой аутентификации пока не подключён, без него лимит считается по IP.
func WithIdentity(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

// Identity возвращает ключ лимита: пользователя из контекста или IP клиента
func Identity(r *http.Request) string {
	if id, ok := r.Context().Value(identityKey{}).(string); ok && id != "" {
		return "user:" + id
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	return "ip:" + host
}
