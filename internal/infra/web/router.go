package web

import (
	"net/http"

	"github.com/DioGolang/GoMonitor/internal/infra/web/handler"
	"github.com/DioGolang/GoMonitor/internal/infra/web/middleware"
	"github.com/DioGolang/GoMonitor/pkg/logger"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/riandyrn/otelchi"
)

type RouterConfig struct {
	ServiceName string
	Logger      logger.Logger
	Observer    middleware.HTTPObserver
	RateLimiter *middleware.IPDispatcher
	Work        *handler.Work
	Metrics     http.Handler
	Health      http.Handler
}

// NewRouter mounts the example endpoints. Scrape and health endpoints stay
// outside the rate limiter.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(otelchi.Middleware(cfg.ServiceName, otelchi.WithChiRoutes(r)))
	if cfg.Observer != nil {
		r.Use(middleware.MetricsWrapper(cfg.Observer))
	}
	r.Use(middleware.RequestLogger(cfg.Logger))

	if cfg.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", cfg.Metrics)
	}
	if cfg.Health != nil {
		r.Method(http.MethodGet, "/health", cfg.Health)
	}

	r.Group(func(r chi.Router) {
		if cfg.RateLimiter != nil {
			r.Use(cfg.RateLimiter.Handler(cfg.Logger))
		}
		r.Get("/greet/{name}", cfg.Work.Greet)
		r.Get("/do-work/{work_name}", cfg.Work.DoWork)
		r.Post("/enqueue/{work_name}", cfg.Work.Enqueue)
		r.Get("/stop", cfg.Work.StopServer)
	})

	return r
}
