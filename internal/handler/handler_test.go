package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/GoArmGo/UsersApp/internal/adapter/cache"
	"github.com/GoArmGo/UsersApp/internal/apperror"
	"github.com/GoArmGo/UsersApp/internal/database/dbtest"
	"github.com/GoArmGo/UsersApp/internal/database/storage"
	"github.com/GoArmGo/UsersApp/internal/domain"
	"github.com/GoArmGo/UsersApp/internal/logger"
	"github.com/GoArmGo/UsersApp/internal/rabbitmq"
	"github.com/GoArmGo/UsersApp/internal/ratelimit"
	"github.com/GoArmGo/UsersApp/internal/usecase"
	"github.com/GoArmGo/UsersApp/internal/validation"
	gormlogger "gorm.io/gorm/logger"
)

type envelope struct {
	Success bool                `json:"success"`
	Message *string             `json:"message"`
	Data    json.RawMessage     `json:"data"`
	Errors  map[string][]string `json:"errors"`
}

type downDB struct{}

func (downDB) Ping(context.Context) error { return errors.New("connection refused") }

func newRouter(t *testing.T, uc usecase.UserUseCase, limit int) http.Handler {
	t.Helper()
	log := logger.Discard()

	if uc == nil {
		c := dbtest.NewSQLite(t)
		db, err := storage.OpenGorm(c.DB.DB, "sqlite3", gormlogger.Discard)
		if err != nil {
			t.Fatalf("open gorm: %v", err)
		}
		uc = usecase.NewUserUseCase(
			storage.NewUnitOfWorkFactory(db, log),
			cache.NewService(cache.NewMemoryBackend(time.Minute), log),
			rabbitmq.NoopPublisher{},
			usecase.CacheTTL,
			log,
		)
	}

	return NewRouter(RouterDeps{
		Users:          NewUserHandler(uc, validation.New(), log),
		Health:         NewHealthHandler(log, SelfCheck(), MemoryCheck(MemoryThreshold)),
		Limiter:        ratelimit.New(limit, time.Minute, log),
		CORSOrigins:    []string{"*"},
		RequestTimeout: 5 * time.Second,
		Logger:         log,
	})
}

func do(t *testing.T, h http.Handler, method, path, body string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var env envelope
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
			t.Fatalf("decode response %q: %v", rec.Body.String(), err)
		}
	}
	return rec, env
}

func message(env envelope) string {
	if env.Message == nil {
		return ""
	}
	return *env.Message
}

func TestUsersAPI_Lifecycle(t *testing.T) {
	h := newRouter(t, nil, 100)

	rec, env := do(t, h, http.MethodPost, "/api/users", `{"name":"John Doe","email":"john@example.com"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create: expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var created domain.UserDto
	if err := json.Unmarshal(env.Data, &created); err != nil {
		t.Fatalf("decode user: %v", err)
	}
	if created.ID == 0 || !created.IsActive || created.UpdatedAt != nil {
		t.Fatalf("unexpected created user: %+v", created)
	}
	if loc := rec.Header().Get("Location"); loc != "/api/users/1" {
		t.Fatalf("unexpected Location %q", loc)
	}
	if message(env) != msgUserCreated {
		t.Fatalf("unexpected message %q", message(env))
	}

	rec, _ = do(t, h, http.MethodPost, "/api/users", `{"name":"Jane","email":"john@example.com"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("duplicate: expected 400, got %d", rec.Code)
	}

	rec, env = do(t, h, http.MethodGet, "/api/users", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("list: expected 200, got %d", rec.Code)
	}
	var users []domain.UserDto
	if err := json.Unmarshal(env.Data, &users); err != nil || len(users) != 1 {
		t.Fatalf("expected one user, got %s (%v)", env.Data, err)
	}
	if env.Message != nil {
		t.Fatalf("list message must be null, got %q", *env.Message)
	}

	rec, env = do(t, h, http.MethodPut, "/api/users/1", `{"isActive":false}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("update: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var updated domain.UserDto
	if err := json.Unmarshal(env.Data, &updated); err != nil {
		t.Fatalf("decode user: %v", err)
	}
	if updated.IsActive || updated.Name != "John Doe" || updated.UpdatedAt == nil {
		t.Fatalf("unexpected updated user: %+v", updated)
	}

	rec, env = do(t, h, http.MethodDelete, "/api/users/1", "")
	if rec.Code != http.StatusOK || string(env.Data) != "true" {
		t.Fatalf("delete: got %d data=%s", rec.Code, env.Data)
	}

	rec, env = do(t, h, http.MethodGet, "/api/users/1", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("get after delete: expected 404, got %d", rec.Code)
	}
	if env.Success || message(env) != "User with ID 1 not found" {
		t.Fatalf("unexpected 404 body: %s", rec.Body.String())
	}

	rec, _ = do(t, h, http.MethodDelete, "/api/users/1", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("second delete: expected 404, got %d", rec.Code)
	}
	rec, _ = do(t, h, http.MethodPut, "/api/users/1", `{"name":"Ghost"}`)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("update missing: expected 404, got %d", rec.Code)
	}
}

func TestCreateUser_ValidationErrors(t *testing.T) {
	h := newRouter(t, nil, 100)

	rec, env := do(t, h, http.MethodPost, "/api/users", `{"name":"A","email":"not-an-email"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if message(env) != validation.MsgValidationFailed {
		t.Fatalf("unexpected message %q", message(env))
	}
	if len(env.Errors["name"]) == 0 || len(env.Errors["email"]) == 0 {
		t.Fatalf("expected errors for both fields, got %v", env.Errors)
	}
}

func TestBadRequests(t *testing.T) {
	h := newRouter(t, nil, 100)

	tests := []struct {
		name    string
		method  string
		path    string
		body    string
		message string
	}{
		{"non-numeric id", http.MethodGet, "/api/users/abc", "", msgInvalidUserID},
		{"malformed json", http.MethodPost, "/api/users", `{"name":`, msgInvalidBody},
		{"empty body", http.MethodPost, "/api/users", "", msgInvalidBody},
		{"wrong field type", http.MethodPut, "/api/users/1", `{"isActive":"yes"}`, msgInvalidBody},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, env := do(t, h, tt.method, tt.path, tt.body)
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d", rec.Code)
			}
			if env.Success || message(env) != tt.message {
				t.Fatalf("unexpected body %s", rec.Body.String())
			}
		})
	}
}

func TestRateLimit(t *testing.T) {
	h := newRouter(t, nil, 2)

	for i := 0; i < 2; i++ {
		if rec, _ := do(t, h, http.MethodGet, "/api/users", ""); rec.Code != http.StatusOK {
			t.Fatalf("request %d: expected 200, got %d", i, rec.Code)
		}
	}

	rec, _ := do(t, h, http.MethodGet, "/api/users", "")
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", rec.Code)
	}
	if rec.Body.String() != ratelimit.RejectionMessage {
		t.Fatalf("unexpected body %q", rec.Body.String())
	}

	if rec, _ := do(t, h, http.MethodGet, "/health/live", ""); rec.Code != http.StatusOK {
		t.Fatalf("health must not be rate limited, got %d", rec.Code)
	}
}

func TestCorrelationID(t *testing.T) {
	h := newRouter(t, nil, 100)

	req := httptest.NewRequest(http.MethodGet, "/api/users", nil)
	req.Header.Set(CorrelationHeader, "abc-123")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if got := rec.Header().Get(CorrelationHeader); got != "abc-123" {
		t.Fatalf("expected echoed correlation id, got %q", got)
	}

	rec, _ = do(t, h, http.MethodGet, "/api/users", "")
	if rec.Header().Get(CorrelationHeader) == "" {
		t.Fatal("expected generated correlation id")
	}
}

type failingUseCase struct {
	usecase.UserUseCase
	err error
}

func (f failingUseCase) ListUsers(context.Context) ([]domain.UserDto, error) {
	if f.err == nil {
		panic("unexpected state")
	}
	return nil, f.err
}

func TestUnexpectedErrorsBecome500(t *testing.T) {
	tests := []struct {
		name string
		uc   failingUseCase
	}{
		{"plain error", failingUseCase{err: errors.New("db is gone")}},
		{"internal apperror", failingUseCase{err: apperror.Internal(errors.New("boom"))}},
		{"panic", failingUseCase{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newRouter(t, tt.uc, 100)
			rec, env := do(t, h, http.MethodGet, "/api/users", "")
			if rec.Code != http.StatusInternalServerError {
				t.Fatalf("expected 500, got %d", rec.Code)
			}
			if env.Success || message(env) != MsgInternalError {
				t.Fatalf("unexpected body %s", rec.Body.String())
			}
			if strings.Contains(rec.Body.String(), "boom") || strings.Contains(rec.Body.String(), "db is gone") {
				t.Fatal("internal details must not leak")
			}
		})
	}
}

func TestHealthEndpoints(t *testing.T) {
	log := logger.Discard()
	healthy := NewHealthHandler(log, DatabaseCheck(dbtest.NewSQLite(t)), MemoryCheck(MemoryThreshold), SelfCheck())

	for _, path := range []string{"/health", "/health/ready", "/health/live"} {
		rec := httptest.NewRecorder()
		tag := strings.TrimPrefix(strings.TrimPrefix(path, "/health"), "/")
		healthy.Handler(tag).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		if rec.Code != http.StatusOK {
			t.Fatalf("%s: expected 200, got %d", path, rec.Code)
		}
	}

	report := healthy.Run(context.Background(), TagLive)
	if _, ok := report.Entries["database"]; ok || len(report.Entries) != 1 {
		t.Fatalf("live must run only the self check, got %v", report.Entries)
	}

	down := NewHealthHandler(log, DatabaseCheck(downDB{}), SelfCheck())
	rec := httptest.NewRecorder()
	down.Handler(TagReady).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rec.Code)
	}
	var body HealthReport
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Status != StatusUnhealthy || body.Entries["database"].Description == "" {
		t.Fatalf("unexpected report %+v", body)
	}

	rec = httptest.NewRecorder()
	down.Handler(TagLive).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/live", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("live must ignore the database, got %d", rec.Code)
	}
}

func TestMemoryCheck_Degraded(t *testing.T) {
	res := MemoryCheck(1).Check(context.Background())
	if res.Status != StatusDegraded {
		t.Fatalf("expected degraded, got %s", res.Status)
	}
	if _, ok := res.Data["allocatedBytes"]; !ok {
		t.Fatalf("expected allocation data, got %v", res.Data)
	}
}

func TestRecoverer_PanicAfterWriteKeepsResponse(t *testing.T) {
	h := Recoverer(logger.Discard())(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusAccepted)
		_, _ = w.Write([]byte("partial"))
		panic("late failure")
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if rec.Code != http.StatusAccepted {
		t.Fatalf("status must stay 202, got %d", rec.Code)
	}
	if rec.Body.String() != "partial" {
		t.Fatalf("body must not get an error envelope appended, got %q", rec.Body.String())
	}
}

func TestRecoverer_PanicBeforeWrite(t *testing.T) {
	h := Recoverer(logger.Discard())(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("early failure")
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
}
