package cache

import (
	"context"
	"errors"
	"log/slog"

	"flightsurety/internal/ledger/models"
	"flightsurety/pkg/platform/circuit"
)

// Tiered reads through a primary cache and degrades to a local fallback while
// the primary's breaker is open. Writes go to both tiers; primary write
// failures are recorded on the breaker and never surface to callers.
type Tiered struct {
	primary  FlightCache
	fallback FlightCache
	breaker  *circuit.Breaker
	logger   *slog.Logger
}

func NewTiered(primary, fallback FlightCache, breaker *circuit.Breaker, logger *slog.Logger) *Tiered {
	return &Tiered{primary: primary, fallback: fallback, breaker: breaker, logger: logger}
}

func (t *Tiered) Get(ctx context.Context, code models.FlightCode) (*models.Flight, error) {
	flight, err := t.primary.Get(ctx, code)
	if err == nil || errors.Is(err, ErrMiss) {
		usePrimary, change := t.breaker.RecordSuccess()
		t.logChange(ctx, change)
		if usePrimary {
			return flight, err
		}
		return t.fallback.Get(ctx, code)
	}
	t.recordFailure(ctx, "get", err)
	return t.fallback.Get(ctx, code)
}

func (t *Tiered) Set(ctx context.Context, flight *models.Flight) error {
	if err := t.primary.Set(ctx, flight); err != nil {
		t.recordFailure(ctx, "set", err)
	}
	return t.fallback.Set(ctx, flight)
}

func (t *Tiered) Invalidate(ctx context.Context, code models.FlightCode) error {
	if err := t.primary.Invalidate(ctx, code); err != nil {
		t.recordFailure(ctx, "invalidate", err)
	}
	return t.fallback.Invalidate(ctx, code)
}

func (t *Tiered) recordFailure(ctx context.Context, op string, err error) {
	_, change := t.breaker.RecordFailure()
	if t.logger != nil {
		t.logger.WarnContext(ctx, "flight cache primary failed",
			"breaker", t.breaker.Name(),
			"op", op,
			"error", err,
		)
	}
	t.logChange(ctx, change)
}

func (t *Tiered) logChange(ctx context.Context, change circuit.StateChange) {
	if t.logger == nil {
		return
	}
	switch {
	case change.Opened:
		t.logger.WarnContext(ctx, "circuit breaker opened, serving flight views from local cache",
			"breaker", t.breaker.Name())
	case change.Closed:
		t.logger.InfoContext(ctx, "circuit breaker closed, flight cache primary restored",
			"breaker", t.breaker.Name())
	}
}
