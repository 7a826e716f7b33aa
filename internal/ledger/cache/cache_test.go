package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"flightsurety/internal/ledger/models"
	"flightsurety/pkg/domain"
	"flightsurety/pkg/platform/circuit"
)

var airline = domain.MustAddress("0xf17f52151ebef6c7334fad080c5704d77216b732")

func newFlight(t *testing.T, code string) *models.Flight {
	t.Helper()
	f, err := models.NewFlight(models.FlightCode(code), airline, time.Date(2019, 8, 5, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	return f
}

func TestMemoryExpiry(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2019, 8, 5, 0, 0, 0, 0, time.UTC)
	m := NewMemory(time.Minute)
	m.now = func() time.Time { return now }

	require.NoError(t, m.Set(ctx, newFlight(t, "UAL925")))

	got, err := m.Get(ctx, "UAL925")
	require.NoError(t, err)
	assert.Equal(t, models.FlightCode("UAL925"), got.Code)

	got.Status = models.StatusLateAirline
	again, err := m.Get(ctx, "UAL925")
	require.NoError(t, err)
	assert.Equal(t, models.StatusUnknown, again.Status, "cached value must not alias callers")

	now = now.Add(time.Minute)
	_, err = m.Get(ctx, "UAL925")
	assert.ErrorIs(t, err, ErrMiss)
}

func TestMemoryInvalidate(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(0)
	require.NoError(t, m.Set(ctx, newFlight(t, "DAL1")))
	require.NoError(t, m.Invalidate(ctx, "DAL1"))
	_, err := m.Get(ctx, "DAL1")
	assert.ErrorIs(t, err, ErrMiss)
}

type brokenCache struct {
	calls int
	err   error
}

func (b *brokenCache) Get(context.Context, models.FlightCode) (*models.Flight, error) {
	b.calls++
	return nil, b.err
}

func (b *brokenCache) Set(context.Context, *models.Flight) error {
	b.calls++
	return b.err
}

func (b *brokenCache) Invalidate(context.Context, models.FlightCode) error {
	b.calls++
	return b.err
}

func TestTieredFallsBackWhenPrimaryFails(t *testing.T) {
	ctx := context.Background()
	primary := &brokenCache{err: errors.New("connection refused")}
	fallback := NewMemory(0)
	breaker := circuit.New("flight-cache", circuit.WithFailureThreshold(2), circuit.WithSuccessThreshold(1))
	tiered := NewTiered(primary, fallback, breaker, nil)

	require.NoError(t, tiered.Set(ctx, newFlight(t, "UAL925")), "primary failures are not surfaced")

	got, err := tiered.Get(ctx, "UAL925")
	require.NoError(t, err)
	assert.Equal(t, models.FlightCode("UAL925"), got.Code)
	assert.True(t, breaker.IsOpen())

	t.Run("recovered primary closes the breaker", func(t *testing.T) {
		primary.err = ErrMiss
		_, err := tiered.Get(ctx, "UAL925")
		assert.ErrorIs(t, err, ErrMiss, "closed breaker serves the primary answer")
		assert.False(t, breaker.IsOpen())
	})
}

func TestTieredInvalidatesBothTiers(t *testing.T) {
	ctx := context.Background()
	primary := NewMemory(0)
	fallback := NewMemory(0)
	tiered := NewTiered(primary, fallback, circuit.New("flight-cache"), nil)

	require.NoError(t, tiered.Set(ctx, newFlight(t, "UAL925")))
	require.NoError(t, tiered.Invalidate(ctx, "UAL925"))

	_, err := primary.Get(ctx, "UAL925")
	assert.ErrorIs(t, err, ErrMiss)
	_, err = fallback.Get(ctx, "UAL925")
	assert.ErrorIs(t, err, ErrMiss)
}

func TestTieredServesFallbackUntilPrimaryProvesHealthy(t *testing.T) {
	ctx := context.Background()
	primary := &brokenCache{err: errors.New("i/o timeout")}
	fallback := NewMemory(0)
	breaker := circuit.New("flight-cache", circuit.WithFailureThreshold(1), circuit.WithSuccessThreshold(2))
	tiered := NewTiered(primary, fallback, breaker, nil)

	flight := newFlight(t, "UAL925")
	flight.Status = models.StatusLateAirline
	require.NoError(t, tiered.Set(ctx, flight))
	require.True(t, breaker.IsOpen())

	// Primary is reachable again but empty; its miss must not hide the local view.
	primary.err = ErrMiss
	got, err := tiered.Get(ctx, "UAL925")
	require.NoError(t, err)
	assert.Equal(t, models.StatusLateAirline, got.Status)
	assert.True(t, breaker.IsOpen())

	_, err = tiered.Get(ctx, "UAL925")
	assert.ErrorIs(t, err, ErrMiss, "second healthy read closes the breaker")
	assert.False(t, breaker.IsOpen())
	assert.Equal(t, 3, primary.calls)
}
