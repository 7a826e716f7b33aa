package ratelimit

import (
	"log/slog"
	"net/http"
	"strconv"

	"flightsurety/pkg/platform/httputil"
	"flightsurety/pkg/requestcontext"
)

type degrader interface {
	Degraded() bool
}

// Middleware enforces per-class budgets on HTTP routes.
type Middleware struct {
	store    Store
	limits   map[Class]Limit
	logger   *slog.Logger
	disabled bool
}

type Option func(*Middleware)

// WithLimits overrides the budget of the given classes.
func WithLimits(limits map[Class]Limit) Option {
	return func(m *Middleware) {
		for class, limit := range limits {
			m.limits[class] = limit
		}
	}
}

// WithDisabled turns every check into a pass-through.
func WithDisabled(disabled bool) Option {
	return func(m *Middleware) {
		m.disabled = disabled
	}
}

func New(store Store, logger *slog.Logger, opts ...Option) *Middleware {
	m := &Middleware{
		store:  store,
		limits: DefaultLimits(),
		logger: logger,
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.disabled {
		logger.Info("rate limiting disabled")
	}
	return m
}

// ByIP limits requests per client IP.
func (m *Middleware) ByIP(class Class) func(http.Handler) http.Handler {
	return m.limit(class, func(r *http.Request) string {
		return ipKey(class, requestcontext.ClientIP(r.Context()))
	})
}

// ByCaller limits requests per authenticated caller, falling back to the
// client IP when no caller is attached.
func (m *Middleware) ByCaller(class Class) func(http.Handler) http.Handler {
	return m.limit(class, func(r *http.Request) string {
		if caller := requestcontext.Caller(r.Context()); caller != "" {
			return callerKey(class, caller.String())
		}
		return ipKey(class, requestcontext.ClientIP(r.Context()))
	})
}

func (m *Middleware) limit(class Class, keyFor func(*http.Request) string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			limit, ok := m.limits[class]
			if m.disabled || !ok || limit.Requests <= 0 {
				next.ServeHTTP(w, r)
				return
			}

			ctx := r.Context()
			result, err := m.store.Allow(ctx, keyFor(r), limit.Requests, limit.Window)
			if err != nil {
				// Fail open.
				m.logger.ErrorContext(ctx, "rate limit check failed", "class", class, "error", err)
				next.ServeHTTP(w, r)
				return
			}

			addHeaders(w, result)
			if d, ok := m.store.(degrader); ok && d.Degraded() {
				w.Header().Set("X-RateLimit-Status", "degraded")
			}
			if !result.Allowed {
				m.logger.WarnContext(ctx, "rate limit exceeded",
					"class", class,
					"client_ip", requestcontext.ClientIP(ctx),
					"retry_after", result.RetryAfter,
				)
				w.Header().Set("Retry-After", strconv.Itoa(result.RetryAfter))
				httputil.WriteJSON(w, http.StatusTooManyRequests, httputil.ErrorResponse{
					Error:            "rate_limit_exceeded",
					ErrorDescription: "too many requests, retry later",
				})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func addHeaders(w http.ResponseWriter, result *Result) {
	w.Header().Set("X-RateLimit-Limit", strconv.Itoa(result.Limit))
	w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
	w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(result.ResetAt.Unix(), 10))
}
