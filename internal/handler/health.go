package handler

import (
	"context"
	"log/slog"
	"net/http"
	"runtime"
	"time"
)

// Статусы проверок здоровья
const (
	StatusHealthy   = "Healthy"
	StatusDegraded  = "Degraded"
	StatusUnhealthy = "Unhealthy"
)

// Теги, по которым отбираются проверки для /health/ready и /health/live
const (
	TagReady = "ready"
	TagLive  = "live"
)

// MemoryThreshold — выше этого объёма выделенной памяти сервис считается деградировавшим
const MemoryThreshold uint64 = 1 << 30

const healthCheckTimeout = 5 * time.Second

// HealthResult — результат одной проверки
type HealthResult struct {
	Status      string         `json:"status"`
	Description string         `json:"description,omitempty"`
	DurationMs  int64          `json:"durationMs"`
	Data        map[string]any `json:"data,omitempty"`
}

// HealthCheck — именованная проверка с тегами
type HealthCheck struct {
	Name  string
	Tags  []string
	Check func(ctx context.Context) HealthResult
}

func (c HealthCheck) hasTag(tag string) bool {
	for _, t := range c.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// HealthReport — ответ эндпоинтов /health*
type HealthReport struct {
	Status          string                  `json:"status"`
	TotalDurationMs int64                   `json:"totalDurationMs"`
	Entries         map[string]HealthResult `json:"entries"`
}

// Pinger — всё, что умеет проверить соединение
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler выполняет зарегистрированные проверки
type HealthHandler struct {
	checks []HealthCheck
	logger *slog.Logger
}

func NewHealthHandler(logger *slog.Logger, checks ...HealthCheck) *HealthHandler {
	return &HealthHandler{checks: checks, logger: logger}
}

// Handler отдаёт отчёт по проверкам с тегом tag; пустой tag — все проверки.
// Unhealthy даёт 503, Healthy и Degraded — 200.
func (h *HealthHandler) Handler(tag string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
		defer cancel()

		report := h.Run(ctx, tag)

		code := http.StatusOK
		if report.Status == StatusUnhealthy {
			code = http.StatusServiceUnavailable
			h.logger.Warn("health check failed", "tag", tag, "entries", report.Entries)
		}
		respondWithJSON(w, code, report, h.logger)
	}
}

// Run выполняет проверки и сводит статус к худшему
func (h *HealthHandler) Run(ctx context.Context, tag string) HealthReport {
	start := time.Now()
	report := HealthReport{Status: StatusHealthy, Entries: make(map[string]HealthResult)}

	for _, c := range h.checks {
		if tag != "" && !c.hasTag(tag) {
			continue
		}
		checkStart := time.Now()
		res := c.Check(ctx)
		res.DurationMs = time.Since(checkStart).Milliseconds()
		report.Entries[c.Name] = res
		report.Status = worse(report.Status, res.Status)
	}

	report.TotalDurationMs = time.Since(start).Milliseconds()
	return report
}

func worse(a, b string) string {
	rank := map[string]int{StatusHealthy: 0, StatusDegraded: 1, StatusUnhealthy: 2}
	if rank[b] > rank[a] {
		return b
	}
	return a
}

// DatabaseCheck пингует базу данных
func DatabaseCheck(db Pinger) HealthCheck {
	return HealthCheck{
		Name: "database",
		Tags: []string{TagReady},
		Check: func(ctx context.Context) HealthResult {
			if err := db.Ping(ctx); err != nil {
				return HealthResult{Status: StatusUnhealthy, Description: err.Error()}
			}
			return HealthResult{Status: StatusHealthy}
		},
	}
}

// MemoryCheck сравнивает выделенную память с порогом
func MemoryCheck(threshold uint64) HealthCheck {
	return HealthCheck{
		Name: "memory",
		Tags: []string{TagReady},
		Check: func(context.Context) HealthResult {
			var m runtime.MemStats
			runtime.ReadMemStats(&m)

			res := HealthResult{
				Status:      StatusHealthy,
				Description: "Memory usage is within limits",
				Data: map[string]any{
					"allocatedBytes": m.Alloc,
					"sysBytes":       m.Sys,
					"numGC":          m.NumGC,
				},
			}
			if m.Alloc >= threshold {
				res.Status = StatusDegraded
				res.Description = "Memory usage is above threshold"
			}
			return res
		},
	}
}

// SelfCheck — процесс жив и отвечает
func SelfCheck() HealthCheck {
	return HealthCheck{
		Name: "self",
		Tags: []string{TagLive},
		Check: func(context.Context) HealthResult {
			return HealthResult{Status: StatusHealthy}
		},
	}
}
