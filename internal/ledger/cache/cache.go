// Package cache holds cache-aside stores for flight detail reads. Engines
// invalidate entries inside the same call that changes a flight, after commit.
package cache

import (
	"context"
	"errors"
	"sync"
	"time"

	"flightsurety/internal/ledger/models"
)

// ErrMiss reports that the key is not cached.
var ErrMiss = errors.New("cache miss")

// FlightCache caches flight views by code.
type FlightCache interface {
	Get(ctx context.Context, code models.FlightCode) (*models.Flight, error)
	Set(ctx context.Context, flight *models.Flight) error
	Invalidate(ctx context.Context, code models.FlightCode) error
}

type memoryEntry struct {
	flight    *models.Flight
	expiresAt time.Time
}

// Memory is a process-local FlightCache with per-entry expiry.
type Memory struct {
	mu      sync.RWMutex
	ttl     time.Duration
	entries map[models.FlightCode]memoryEntry
	now     func() time.Time
}

// NewMemory builds a Memory cache. A non-positive ttl keeps entries until
// invalidated.
func NewMemory(ttl time.Duration) *Memory {
	return &Memory{
		ttl:     ttl,
		entries: make(map[models.FlightCode]memoryEntry),
		now:     time.Now,
	}
}

func (m *Memory) Get(_ context.Context, code models.FlightCode) (*models.Flight, error) {
	m.mu.RLock()
	entry, ok := m.entries[code]
	m.mu.RUnlock()
	if !ok {
		return nil, ErrMiss
	}
	if !entry.expiresAt.IsZero() && !m.now().Before(entry.expiresAt) {
		m.mu.Lock()
		delete(m.entries, code)
		m.mu.Unlock()
		return nil, ErrMiss
	}
	return entry.flight.Clone(), nil
}

func (m *Memory) Set(_ context.Context, flight *models.Flight) error {
	entry := memoryEntry{flight: flight.Clone()}
	if m.ttl > 0 {
		entry.expiresAt = m.now().Add(m.ttl)
	}
	m.mu.Lock()
	m.entries[flight.Code] = entry
	m.mu.Unlock()
	return nil
}

func (m *Memory) Invalidate(_ context.Context, code models.FlightCode) error {
	m.mu.Lock()
	delete(m.entries, code)
	m.mu.Unlock()
	return nil
}
