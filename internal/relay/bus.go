package relay

import (
	"context"
	"slices"
	"sync"

	"flightsurety/internal/ledger/metrics"
	"flightsurety/internal/ledger/models"
)

// Bus is an in-process Sink that fans events out to subscribers. Each
// subscriber owns a bounded buffer; a slow subscriber loses its oldest
// undelivered events rather than stalling the dispatcher.
type Bus struct {
	mu       sync.RWMutex
	subs     map[*Subscription]struct{}
	capacity int
	metrics  *metrics.Metrics
}

// NewBus creates a bus whose subscriptions buffer up to capacity events.
func NewBus(capacity int, m *metrics.Metrics) *Bus {
	return &Bus{
		subs:     make(map[*Subscription]struct{}),
		capacity: capacity,
		metrics:  m,
	}
}

func (b *Bus) Name() string {
	return "bus"
}

// Publish never blocks and never fails.
func (b *Bus) Publish(_ context.Context, events []*models.Event) error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for sub := range b.subs {
		sub.deliver(events)
	}
	return nil
}

// Subscribe registers a subscriber for the given event types, or for every
// type when none are given.
func (b *Bus) Subscribe(types ...models.EventType) *Subscription {
	sub := &Subscription{
		bus:    b,
		types:  slices.Clone(types),
		buffer: newRingBuffer(b.capacity),
		notify: make(chan struct{}, 1),
	}
	b.mu.Lock()
	b.subs[sub] = struct{}{}
	b.mu.Unlock()
	return sub
}

func (b *Bus) unsubscribe(sub *Subscription) {
	b.mu.Lock()
	delete(b.subs, sub)
	b.mu.Unlock()
}

// Subscription is one consumer's view of the bus.
type Subscription struct {
	bus    *Bus
	types  []models.EventType
	buffer *ringBuffer
	notify chan struct{}
	once   sync.Once
}

func (s *Subscription) wants(t models.EventType) bool {
	return len(s.types) == 0 || slices.Contains(s.types, t)
}

func (s *Subscription) deliver(events []*models.Event) {
	queued := false
	for _, e := range events {
		if !s.wants(e.Type) {
			continue
		}
		if s.buffer.enqueue(e) && s.bus.metrics != nil {
			s.bus.metrics.EventsDispatched.WithLabelValues(s.bus.Name(), "dropped").Inc()
		}
		queued = true
	}
	if !queued {
		return
	}
	select {
	case s.notify <- struct{}{}:
	default:
	}
}

// Next blocks until at least one event is buffered or ctx ends, then returns
// up to max events.
func (s *Subscription) Next(ctx context.Context, max int) ([]*models.Event, error) {
	for {
		if events := s.buffer.dequeueBatch(max); len(events) > 0 {
			return events, nil
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-s.notify:
		}
	}
}

// Consume calls fn for every event until ctx ends. Errors from fn are passed
// to onError and do not stop consumption.
func (s *Subscription) Consume(ctx context.Context, fn Handler, onError func(*models.Event, error)) error {
	for {
		events, err := s.Next(ctx, 0)
		if err != nil {
			return err
		}
		for _, e := range events {
			if err := fn(ctx, e); err != nil && onError != nil {
				onError(e, err)
			}
		}
	}
}

// Dropped returns how many events this subscriber lost to overflow.
func (s *Subscription) Dropped() int64 {
	return s.buffer.droppedCount()
}

// Pending returns how many events are buffered.
func (s *Subscription) Pending() int {
	return s.buffer.len()
}

// Close detaches the subscription from the bus.
func (s *Subscription) Close() {
	s.once.Do(func() { s.bus.unsubscribe(s) })
}
