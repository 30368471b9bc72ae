package ratelimit

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/GoArmGo/UsersApp/internal/logger"
)

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestLimiter_FixedWindow(t *testing.T) {
	l := New(3, time.Minute, logger.Discard())
	start := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	l.now = fixedClock(start)

	for i := 0; i < 3; i++ {
		if ok, _ := l.Allow("ip:1.1.1.1"); !ok {
			t.Fatalf("request %d must be allowed", i+1)
		}
	}
	ok, retryAfter := l.Allow("ip:1.1.1.1")
	if ok {
		t.Fatal("fourth request in the window must be rejected")
	}
	if retryAfter != time.Minute {
		t.Fatalf("expected full window until reset, got %v", retryAfter)
	}

	// другой клиент считается отдельно
	if ok, _ := l.Allow("ip:2.2.2.2"); !ok {
		t.Fatal("other client must have its own counter")
	}

	// новое окно сбрасывает счётчик
	l.now = fixedClock(start.Add(time.Minute))
	if ok, _ := l.Allow("ip:1.1.1.1"); !ok {
		t.Fatal("counter must reset in the next window")
	}
}

func TestMiddleware_Rejects(t *testing.T) {
	l := New(1, time.Minute, logger.Discard())
	h := l.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/users", nil)
	req.RemoteAddr = "10.0.0.1:5555"

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("first request: expected 200, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("second request: expected 429, got %d", rec.Code)
	}
	if rec.Body.String() != RejectionMessage {
		t.Fatalf("unexpected body %q", rec.Body.String())
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Fatal("expected Retry-After header")
	}
}

func TestIdentity(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "192.168.1.5:4000"
	if got := Identity(req); got != "ip:192.168.1.5" {
		t.Fatalf("expected ip identity, got %q", got)
	}

	req = req.WithContext(WithIdentity(req.Context(), "42"))
	if got := Identity(req); got != "user:42" {
		t.Fatalf("expected user identity, got %q", got)
	}
}
