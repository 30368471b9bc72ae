package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/GoArmGo/UsersApp/internal/ratelimit"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// RouterDeps — всё, что нужно для сборки HTTP-маршрутов
type RouterDeps struct {
	Users          *UserHandler
	Health         *HealthHandler
	Limiter        *ratelimit.Limiter
	CORSOrigins    []string
	RequestTimeout time.Duration
	Logger         *slog.Logger
}

// NewRouter собирает цепочку middleware и маршруты API
func NewRouter(d RouterDeps) http.Handler {
	r := chi.NewRouter()

	r.Use(Correlation)
	r.Use(RequestLogger(d.Logger))
	r.Use(Recoverer(d.Logger))
	r.Use(middleware.RealIP)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   d.CORSOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", CorrelationHeader},
		ExposedHeaders:   []string{CorrelationHeader, "Location", "Retry-After"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Get("/health", d.Health.Handler(""))
	r.Get("/health/ready", d.Health.Handler(TagReady))
	r.Get("/health/live", d.Health.Handler(TagLive))

	r.Route("/api/users", func(r chi.Router) {
		r.Use(d.Limiter.Middleware)
		if d.RequestTimeout > 0 {
			r.Use(middleware.Timeout(d.RequestTimeout))
		}

		h := d.Users
		r.Get("/", Handle(d.Logger, h.ListUsers))
		r.Post("/", Handle(d.Logger, h.CreateUser))
		r.Get("/{id}", Handle(d.Logger, h.GetUser))
		r.Put("/{id}", Handle(d.Logger, h.UpdateUser))
		r.Delete("/{id}", Handle(d.Logger, h.DeleteUser))
	})

	return r
}
