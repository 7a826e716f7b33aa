package relay_test

import (
	"context"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"flightsurety/internal/relay"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type countingEvictor struct {
	calls atomic.Int32
}

func (c *countingEvictor) EvictStaleRequests(context.Context) (int, error) {
	c.calls.Add(1)
	return 1, nil
}

func TestJanitorEvictsUntilCancelled(t *testing.T) {
	evictor := &countingEvictor{}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- relay.NewJanitor(evictor, 5*time.Millisecond, discardLogger()).Run(ctx)
	}()

	assert.Eventually(t, func() bool { return evictor.calls.Load() >= 2 }, time.Second, 5*time.Millisecond)
	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
}
