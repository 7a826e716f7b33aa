package ratelimit

import (
	"context"
	"log/slog"
	"time"

	"flightsurety/pkg/platform/circuit"
)

// Tiered checks the primary store and degrades to a local fallback while
// the breaker is open.
type Tiered struct {
	primary  Store
	fallback Store
	breaker  *circuit.Breaker
	logger   *slog.Logger
}

func NewTiered(primary, fallback Store, breaker *circuit.Breaker, logger *slog.Logger) *Tiered {
	return &Tiered{primary: primary, fallback: fallback, breaker: breaker, logger: logger}
}

func (t *Tiered) Allow(ctx context.Context, key string, limit int, window time.Duration) (*Result, error) {
	if !t.breaker.IsOpen() {
		res, err := t.primary.Allow(ctx, key, limit, window)
		if err == nil {
			t.breaker.RecordSuccess()
			return res, nil
		}
		_, change := t.breaker.RecordFailure()
		t.logger.WarnContext(ctx, "rate limit primary failed", "breaker", t.breaker.Name(), "error", err)
		if change.Opened {
			t.logger.WarnContext(ctx, "circuit breaker opened, rate limiting from local windows",
				"breaker", t.breaker.Name())
		}
		return t.fallback.Allow(ctx, key, limit, window)
	}

	// Probe the primary so the breaker can close, but answer from the fallback
	// until it does.
	if _, err := t.primary.Allow(ctx, key, limit, window); err != nil {
		t.breaker.RecordFailure()
	} else if _, change := t.breaker.RecordSuccess(); change.Closed {
		t.logger.InfoContext(ctx, "circuit breaker closed, rate limit primary restored",
			"breaker", t.breaker.Name())
	}
	return t.fallback.Allow(ctx, key, limit, window)
}

// Degraded reports whether checks are served from the fallback.
func (t *Tiered) Degraded() bool {
	return t.breaker.IsOpen()
}
