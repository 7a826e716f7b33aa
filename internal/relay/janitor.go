package relay

import (
	"context"
	"log/slog"
	"time"
)

// Evictor removes stale oracle status requests.
type Evictor interface {
	EvictStaleRequests(ctx context.Context) (int, error)
}

// Janitor periodically evicts open status requests that outlived their TTL.
type Janitor struct {
	evictor  Evictor
	interval time.Duration
	logger   *slog.Logger
}

func NewJanitor(evictor Evictor, interval time.Duration, logger *slog.Logger) *Janitor {
	if interval <= 0 {
		interval = time.Minute
	}
	return &Janitor{evictor: evictor, interval: interval, logger: logger}
}

func (j *Janitor) Run(ctx context.Context) error {
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			n, err := j.evictor.EvictStaleRequests(ctx)
			if err != nil {
				if ctx.Err() == nil && j.logger != nil {
					j.logger.WarnContext(ctx, "stale request eviction failed", "error", err)
				}
				continue
			}
			if n > 0 && j.logger != nil {
				j.logger.InfoContext(ctx, "evicted stale status requests", "count", n)
			}
		}
	}
}
