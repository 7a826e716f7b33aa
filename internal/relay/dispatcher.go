package relay

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"flightsurety/internal/ledger/metrics"
	"flightsurety/internal/ledger/models"
)

// Outbox is the store side of the dispatcher.
type Outbox interface {
	PendingEvents(ctx context.Context, limit int) ([]*models.Event, error)
	MarkDispatched(ctx context.Context, seqs []int64, at time.Time) error
}

// Dispatcher drains the outbox into every sink. A batch is marked dispatched
// only after all sinks accepted it; otherwise the whole batch is retried.
type Dispatcher struct {
	outbox    Outbox
	sinks     []Sink
	interval  time.Duration
	batchSize int
	logger    *slog.Logger
	metrics   *metrics.Metrics
	now       func() time.Time
}

type DispatcherOption func(*Dispatcher)

func WithLogger(logger *slog.Logger) DispatcherOption {
	return func(d *Dispatcher) {
		d.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) DispatcherOption {
	return func(d *Dispatcher) {
		d.metrics = m
	}
}

func WithPollInterval(interval time.Duration) DispatcherOption {
	return func(d *Dispatcher) {
		if interval > 0 {
			d.interval = interval
		}
	}
}

func WithBatchSize(n int) DispatcherOption {
	return func(d *Dispatcher) {
		if n > 0 {
			d.batchSize = n
		}
	}
}

func NewDispatcher(outbox Outbox, sinks []Sink, opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{
		outbox:    outbox,
		sinks:     sinks,
		interval:  250 * time.Millisecond,
		batchSize: 100,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// DispatchOnce publishes one batch and returns how many events it marked.
func (d *Dispatcher) DispatchOnce(ctx context.Context) (int, error) {
	events, err := d.outbox.PendingEvents(ctx, d.batchSize)
	if err != nil {
		return 0, fmt.Errorf("load pending events: %w", err)
	}
	if len(events) == 0 {
		return 0, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, sink := range d.sinks {
		sink := sink
		g.Go(func() error {
			err := sink.Publish(gctx, events)
			d.observe(sink.Name(), len(events), err)
			if err != nil {
				return fmt.Errorf("sink %s: %w", sink.Name(), err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return 0, err
	}

	seqs := make([]int64, len(events))
	for i, e := range events {
		seqs[i] = e.Seq
	}
	if err := d.outbox.MarkDispatched(ctx, seqs, d.now()); err != nil {
		return 0, fmt.Errorf("mark dispatched: %w", err)
	}
	return len(events), nil
}

// Run dispatches until ctx is cancelled. Full batches are followed
// immediately by another attempt; errors wait for the next tick.
func (d *Dispatcher) Run(ctx context.Context) error {
	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		n, err := d.DispatchOnce(ctx)
		if err != nil && ctx.Err() == nil && d.logger != nil {
			d.logger.WarnContext(ctx, "event dispatch failed", "error", err)
		}
		if err == nil && n == d.batchSize {
			continue
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func (d *Dispatcher) observe(sink string, n int, err error) {
	if d.metrics == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	d.metrics.EventsDispatched.WithLabelValues(sink, outcome).Add(float64(n))
}
