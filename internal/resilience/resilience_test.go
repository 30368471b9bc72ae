package resilience

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/GoArmGo/UsersApp/internal/logger"
	"github.com/sony/gobreaker"
)

func testConfig() Config {
	return Config{
		MaxRetries:         3,
		RetryBaseDelay:     time.Millisecond,
		BreakerFailures:    5,
		BreakerOpenTimeout: time.Minute,
		AttemptTimeout:     time.Second,
	}
}

// scripted отвечает статусами по очереди, последний повторяется
func scripted(t *testing.T, calls *atomic.Int32, codes ...int) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := int(calls.Add(1))
		if n > len(codes) {
			n = len(codes)
		}
		w.WriteHeader(codes[n-1])
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newClient(cfg Config) (*http.Client, *Transport) {
	tr := NewTransport(nil, cfg, "test", logger.Discard())
	return &http.Client{Transport: tr}, tr
}

func TestTransport_RetriesTransientStatus(t *testing.T) {
	var calls atomic.Int32
	srv := scripted(t, &calls, http.StatusServiceUnavailable, http.StatusBadGateway, http.StatusOK)
	client, _ := newClient(testConfig())

	resp, err := client.Get(srv.URL)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 after retries, got %d", resp.StatusCode)
	}
	if calls.Load() != 3 {
		t.Fatalf("expected 3 calls, got %d", calls.Load())
	}
}

func TestTransport_ReturnsLastResponseWhenRetriesExhausted(t *testing.T) {
	var calls atomic.Int32
	srv := scripted(t, &calls, http.StatusInternalServerError)
	cfg := testConfig()
	cfg.MaxRetries = 2
	client, _ := newClient(cfg)

	resp, err := client.Get(srv.URL)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	resp.Body.Close()

	if resp.StatusCode != http.StatusInternalServerError {
		t.Fatalf("expected final 500, got %d", resp.StatusCode)
	}
	if calls.Load() != 3 {
		t.Fatalf("expected 1 try + 2 retries, got %d calls", calls.Load())
	}
}

func TestTransport_DoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int32
	srv := scripted(t, &calls, http.StatusNotFound)
	client, _ := newClient(testConfig())

	resp, err := client.Get(srv.URL)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	resp.Body.Close()

	if calls.Load() != 1 {
		t.Fatalf("404 must not be retried, got %d calls", calls.Load())
	}
}

func TestTransport_TooManyRequestsRetriedWithoutTripping(t *testing.T) {
	var calls atomic.Int32
	srv := scripted(t, &calls, http.StatusTooManyRequests, http.StatusOK)
	cfg := testConfig()
	cfg.BreakerFailures = 1
	client, tr := newClient(cfg)

	resp, err := client.Get(srv.URL)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if tr.State() != gobreaker.StateClosed {
		t.Fatalf("429 must not open the breaker, state %s", tr.State())
	}
}

func TestTransport_BreakerOpensAfterConsecutiveFailures(t *testing.T) {
	var calls atomic.Int32
	srv := scripted(t, &calls, http.StatusInternalServerError)
	cfg := testConfig()
	cfg.MaxRetries = 0
	cfg.BreakerFailures = 2
	client, tr := newClient(cfg)

	for i := 0; i < 2; i++ {
		resp, err := client.Get(srv.URL)
		if err != nil {
			t.Fatalf("call %d: %v", i+1, err)
		}
		resp.Body.Close()
	}
	if tr.State() != gobreaker.StateOpen {
		t.Fatalf("expected open breaker, got %s", tr.State())
	}

	_, err := client.Get(srv.URL)
	if !errors.Is(err, gobreaker.ErrOpenState) {
		t.Fatalf("expected ErrOpenState, got %v", err)
	}
	if calls.Load() != 2 {
		t.Fatalf("open breaker must short-circuit, got %d calls", calls.Load())
	}
}

func TestTransport_AttemptTimeoutIsRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			select {
			case <-r.Context().Done():
			case <-time.After(2 * time.Second):
			}
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(srv.Close)

	cfg := testConfig()
	cfg.AttemptTimeout = 50 * time.Millisecond
	client, _ := newClient(cfg)

	resp, err := client.Get(srv.URL)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	resp.Body.Close()

	if resp.StatusCode != http.StatusOK || calls.Load() != 2 {
		t.Fatalf("expected success on second attempt, got %d after %d calls", resp.StatusCode, calls.Load())
	}
}

func TestTransport_ReplaysRequestBody(t *testing.T) {
	var (
		calls  atomic.Int32
		mu     sync.Mutex
		bodies []string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		mu.Lock()
		bodies = append(bodies, string(b))
		mu.Unlock()
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(srv.Close)

	client, _ := newClient(testConfig())
	resp, err := client.Post(srv.URL, "text/plain", strings.NewReader("payload"))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	resp.Body.Close()

	mu.Lock()
	defer mu.Unlock()
	if len(bodies) != 2 || bodies[0] != "payload" || bodies[1] != "payload" {
		t.Fatalf("expected body replayed on retry, got %q", bodies)
	}
}

func TestTransport_NetworkErrorExhaustsRetries(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	cfg := testConfig()
	cfg.MaxRetries = 1
	client, _ := newClient(cfg)

	if _, err := client.Get(url); err == nil {
		t.Fatal("expected connection error")
	}
}

// onlyReader скрывает Seeker и другие интерфейсы, как это делает тело запроса SDK
type onlyReader struct{ io.Reader }

func TestTransport_BuffersBodyWithoutGetBody(t *testing.T) {
	var (
		calls  atomic.Int32
		mu     sync.Mutex
		bodies []string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		mu.Lock()
		bodies = append(bodies, string(b))
		mu.Unlock()
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(srv.Close)

	req, err := http.NewRequest(http.MethodPut, srv.URL, onlyReader{strings.NewReader(`{"id":1}`)})
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.ContentLength = int64(len(`{"id":1}`))
	if req.GetBody != nil {
		t.Fatal("request must start without GetBody")
	}

	client, _ := newClient(testConfig())
	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 after retry, got %d", resp.StatusCode)
	}
	mu.Lock()
	defer mu.Unlock()
	if len(bodies) != 2 || bodies[0] != `{"id":1}` || bodies[1] != `{"id":1}` {
		t.Fatalf("expected body replayed on retry, got %q", bodies)
	}
}
