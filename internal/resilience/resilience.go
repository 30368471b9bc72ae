// Package resilience оборачивает исходящие HTTP-вызовы политиками
// повтора, размыкателя цепи и таймаута попытки.
package resilience

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sony/gobreaker"
)

// Config задаёт политики. Задержка перед n-м повтором равна RetryBaseDelay * 2^(n-1).
type Config struct {
	MaxRetries         int
	RetryBaseDelay     time.Duration
	BreakerFailures    uint32
	BreakerOpenTimeout time.Duration
	AttemptTimeout     time.Duration
}

// DefaultConfig: 3 повтора через 2s, 4s, 8s; цепь размыкается после
// 5 сбоев подряд на 30s; одна попытка длится не дольше 10s.
func DefaultConfig() Config {
	return Config{
		MaxRetries:         3,
		RetryBaseDelay:     2 * time.Second,
		BreakerFailures:    5,
		BreakerOpenTimeout: 30 * time.Second,
		AttemptTimeout:     10 * time.Second,
	}
}

// Transport — http.RoundTripper, применяющий политики в порядке
// повтор -> размыкатель -> таймаут попытки.
type Transport struct {
	next    http.RoundTripper
	cfg     Config
	breaker *gobreaker.CircuitBreaker
	logger  *slog.Logger
}

// NewTransport оборачивает next; name попадает в логи размыкателя
func NewTransport(next http.RoundTripper, cfg Config, name string, logger *slog.Logger) *Transport {
	if next == nil {
		next = http.DefaultTransport
	}

	t := &Transport{next: next, cfg: cfg, logger: logger}
	t.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Timeout:     cfg.BreakerOpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.BreakerFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state changed",
				"name", name,
				"from", from.String(),
				"to", to.String(),
			)
		},
	})
	return t
}

// NewHTTPClient возвращает клиент, все запросы которого идут через политики
func NewHTTPClient(cfg Config, name string, logger *slog.Logger) *http.Client {
	return &http.Client{
		Transport: NewTransport(http.DefaultTransport.(*http.Transport).Clone(), cfg, name, logger),
	}
}

// State возвращает текущее состояние размыкателя
func (t *Transport) State() gobreaker.State {
	return t.breaker.State()
}

// statusError помечает ответ, который размыкатель считает сбоем
type statusError struct {
	code int
}

func (e *statusError) Error() string {
	return fmt.Sprintf("upstream responded with status %d", e.code)
}

var errRetryableStatus = errors.New("retryable response status")

// maxReplayBody — наибольшее тело запроса, которое буферизуется для повторов
const maxReplayBody = 8 << 20

func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	ctx := req.Context()
	maxRetries := t.cfg.MaxRetries

	req, replayable, err := bufferBody(req)
	if err != nil {
		return nil, err
	}
	if !replayable {
		// тело больше maxReplayBody, повторить его нельзя
		maxRetries = 0
	}

	tries := 0
	op := func() (*http.Response, error) {
		tries++
		attemptReq, err := rewind(req, tries)
		if err != nil {
			return nil, backoff.Permanent(err)
		}

		resp, err := t.attempt(attemptReq)
		if err != nil {
			if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) || ctx.Err() != nil {
				return nil, backoff.Permanent(err)
			}
			return nil, err
		}

		if isRetryableStatus(resp.StatusCode) && tries <= maxRetries {
			drain(resp)
			return nil, fmt.Errorf("%w: %d", errRetryableStatus, resp.StatusCode)
		}
		return resp, nil
	}

	notify := func(err error, delay time.Duration) {
		t.logger.Warn("retrying outbound request",
			"method", req.Method,
			"host", req.URL.Host,
			"attempt", tries,
			"delay_ms", delay.Milliseconds(),
			"error", err,
		)
	}

	return backoff.RetryNotifyWithData(op, t.backoff(ctx, maxRetries), notify)
}

func (t *Transport) backoff(ctx context.Context, maxRetries int) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = t.cfg.RetryBaseDelay
	b.Multiplier = 2
	b.RandomizationFactor = 0
	b.MaxInterval = t.cfg.RetryBaseDelay << maxRetries
	b.MaxElapsedTime = 0
	return backoff.WithContext(backoff.WithMaxRetries(b, uint64(maxRetries)), ctx)
}

// attempt выполняет одну попытку через размыкатель с собственным таймаутом
func (t *Transport) attempt(req *http.Request) (*http.Response, error) {
	out, err := t.breaker.Execute(func() (interface{}, error) {
		ctx, cancel := context.WithTimeout(req.Context(), t.cfg.AttemptTimeout)
		resp, err := t.next.RoundTrip(req.WithContext(ctx))
		if err != nil {
			cancel()
			return nil, err
		}
		// контекст попытки живёт, пока вызывающий читает тело
		resp.Body = &cancelOnClose{ReadCloser: resp.Body, cancel: cancel}

		if isBreakerFailure(resp.StatusCode) {
			return resp, &statusError{code: resp.StatusCode}
		}
		return resp, nil
	})

	var se *statusError
	if errors.As(err, &se) {
		return out.(*http.Response), nil
	}
	if err != nil {
		return nil, err
	}
	return out.(*http.Response), nil
}

// bufferBody делает тело запроса перечитываемым. Запросы SDK приходят без GetBody,
// поэтому тело до maxReplayBody байт читается в память.
// Если тело больше, возвращается запрос с исходным потоком и false.
func bufferBody(req *http.Request) (*http.Request, bool, error) {
	if req.Body == nil || req.Body == http.NoBody || req.GetBody != nil {
		return req, true, nil
	}

	buf, err := io.ReadAll(io.LimitReader(req.Body, maxReplayBody+1))
	if err != nil {
		_ = req.Body.Close()
		return nil, false, fmt.Errorf("failed to buffer request body: %w", err)
	}

	clone := req.Clone(req.Context())
	if len(buf) > maxReplayBody {
		clone.Body = &prefixedBody{Reader: io.MultiReader(bytes.NewReader(buf), req.Body), Closer: req.Body}
		return clone, false, nil
	}

	_ = req.Body.Close()
	clone.Body = io.NopCloser(bytes.NewReader(buf))
	clone.GetBody = func() (io.ReadCloser, error) {
		return io.NopCloser(bytes.NewReader(buf)), nil
	}
	return clone, true, nil
}

type prefixedBody struct {
	io.Reader
	io.Closer
}

func rewind(req *http.Request, try int) (*http.Request, error) {
	if try == 1 || req.Body == nil || req.Body == http.NoBody {
		return req, nil
	}
	body, err := req.GetBody()
	if err != nil {
		return nil, fmt.Errorf("failed to rewind request body: %w", err)
	}
	clone := req.Clone(req.Context())
	clone.Body = body
	return clone, nil
}

// 5xx и 408 считаются сбоем сервера и для повтора, и для размыкателя
func isBreakerFailure(code int) bool {
	return code >= http.StatusInternalServerError || code == http.StatusRequestTimeout
}

// 429 повторяется, но цепь не размыкает
func isRetryableStatus(code int) bool {
	return isBreakerFailure(code) || code == http.StatusTooManyRequests
}

func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
	_ = resp.Body.Close()
}

type cancelOnClose struct {
	io.ReadCloser
	cancel context.CancelFunc
}

func (c *cancelOnClose) Close() error {
	err := c.ReadCloser.Close()
	c.cancel()
	return err
}
