package minio

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/GoArmGo/UsersApp/internal/logger"
	"github.com/GoArmGo/UsersApp/internal/resilience"
)

// fakeS3 отвечает на HeadBucket и PutObject; первые HEAD и PUT получают 503
type fakeS3 struct {
	heads   atomic.Int32
	puts    atomic.Int32
	mu      sync.Mutex
	objects map[string]string
}

func (f *fakeS3) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodHead:
		if f.heads.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	case http.MethodPut:
		body, _ := io.ReadAll(r.Body)
		if f.puts.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		f.mu.Lock()
		f.objects[r.URL.Path] = string(body)
		f.mu.Unlock()
		w.Header().Set("ETag", `"etag"`)
		w.WriteHeader(http.StatusOK)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func TestMinioClient_UploadThroughResilientTransport(t *testing.T) {
	t.Setenv("AWS_CONFIG_FILE", "/dev/null")
	t.Setenv("AWS_SHARED_CREDENTIALS_FILE", "/dev/null")

	fake := &fakeS3{objects: map[string]string{}}
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	cfg := resilience.DefaultConfig()
	cfg.RetryBaseDelay = time.Millisecond
	httpClient := resilience.NewHTTPClient(cfg, "minio", logger.Discard())

	c, err := NewMinioClient(context.Background(), Options{
		Endpoint:        srv.URL,
		AccessKeyID:     "key",
		SecretAccessKey: "secret",
		Bucket:          "user-audit",
		Region:          "us-east-1",
	}, httpClient, logger.Discard())
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	if fake.heads.Load() != 2 {
		t.Fatalf("expected HeadBucket to be retried once, got %d calls", fake.heads.Load())
	}

	location, err := c.UploadFile(context.Background(), "user-events/1/e1.json", strings.NewReader(`{"id":1}`), "application/json")
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	if fake.puts.Load() != 2 {
		t.Fatalf("expected PutObject to be retried once, got %d calls", fake.puts.Load())
	}
	if location != srv.URL+"/user-audit/user-events/1/e1.json" {
		t.Fatalf("unexpected location %q", location)
	}

	fake.mu.Lock()
	defer fake.mu.Unlock()
	stored, ok := fake.objects["/user-audit/user-events/1/e1.json"]
	if !ok {
		t.Fatalf("object not stored, have %v", fake.objects)
	}
	if !strings.Contains(stored, `{"id":1}`) {
		t.Fatalf("retried upload lost its body: %q", stored)
	}
}

func TestNewMinioClient_RequiresSettings(t *testing.T) {
	_, err := NewMinioClient(context.Background(), Options{Endpoint: "localhost:9000"}, http.DefaultClient, logger.Discard())
	if err == nil {
		t.Fatal("expected error for missing credentials")
	}
}

func TestEndpointURL(t *testing.T) {
	if got := endpointURL("minio:9000", false); got != "http://minio:9000" {
		t.Fatalf("got %q", got)
	}
	if got := endpointURL("minio:9000", true); got != "https://minio:9000" {
		t.Fatalf("got %q", got)
	}
	if got := endpointURL("http://127.0.0.1:1234", true); got != "http://127.0.0.1:1234" {
		t.Fatalf("got %q", got)
	}
}
