// Package httptransport assembles the public HTTP surface: the middleware
// chain, health and metrics endpoints, and every engine's routes.
package httptransport

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"flightsurety/internal/platform/metrics"
	"flightsurety/internal/platform/middleware"
	"flightsurety/internal/platform/ratelimit"
	"flightsurety/pkg/platform/httputil"
	"flightsurety/pkg/platform/middleware/metadata"
	"flightsurety/pkg/platform/middleware/requesttime"
)

// Routes is implemented by every handler. Routes registered here are public.
type Routes interface {
	Register(r chi.Router)
}

// ProtectedRoutes is implemented by handlers with authenticated routes.
type ProtectedRoutes interface {
	RegisterProtected(r chi.Router)
}

// HealthCheck reports whether a dependency is usable.
type HealthCheck func(ctx context.Context) error

// Config wires the router.
type Config struct {
	Logger    *slog.Logger
	Metrics   *metrics.Metrics
	Validator middleware.JWTValidator
	// Gatherer backs /metrics; nil uses the default registry.
	Gatherer       prometheus.Gatherer
	Checks         map[string]HealthCheck
	RequestTimeout time.Duration
	// RateLimit throttles API routes; nil leaves them unthrottled.
	RateLimit *ratelimit.Middleware
}

type healthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// NewRouter mounts handlers behind the shared middleware chain. Protected
// routes additionally require a bearer token.
func NewRouter(cfg Config, handlers ...Routes) http.Handler {
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	gatherer := cfg.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}

	r := chi.NewRouter()
	r.Use(middleware.Recovery(cfg.Logger))
	r.Use(middleware.RequestID)
	r.Use(metadata.ClientMetadata)
	r.Use(requesttime.Middleware)
	r.Use(middleware.LatencyMiddleware(cfg.Metrics))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		httputil.WriteJSON(w, http.StatusOK, healthResponse{Status: "ok"})
	})
	r.Get("/readyz", readiness(cfg.Checks))
	r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	r.Group(func(api chi.Router) {
		api.Use(middleware.Logger(cfg.Logger))
		api.Use(middleware.Timeout(timeout))
		api.Use(middleware.ContentTypeJSON)
		if cfg.RateLimit != nil {
			api.Use(cfg.RateLimit.ByIP(ratelimit.ClassRead))
		}
		for _, h := range handlers {
			h.Register(api)
		}
		api.Group(func(protected chi.Router) {
			protected.Use(middleware.RequireAuth(cfg.Validator, cfg.Logger))
			if cfg.RateLimit != nil {
				protected.Use(cfg.RateLimit.ByCaller(ratelimit.ClassWrite))
			}
			for _, h := range handlers {
				if p, ok := h.(ProtectedRoutes); ok {
					p.RegisterProtected(protected)
				}
			}
		})
	})
	return r
}

func readiness(checks map[string]HealthCheck) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		resp := healthResponse{Status: "ok", Checks: make(map[string]string, len(checks))}
		status := http.StatusOK
		for name, check := range checks {
			if err := check(ctx); err != nil {
				resp.Checks[name] = err.Error()
				resp.Status = "degraded"
				status = http.StatusServiceUnavailable
				continue
			}
			resp.Checks[name] = "ok"
		}
		httputil.WriteJSON(w, status, resp)
	}
}
