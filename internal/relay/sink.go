// Package relay delivers outbox events to their consumers and runs the
// background workers around the ledger: the outbox dispatcher, the stale
// request janitor and the simulated oracle fleet.
//
// The ledger appends each event exactly once. Delivery is at-least-once: a
// crash between publishing a batch and marking it dispatched republishes the
// batch, so every Sink and subscriber must tolerate duplicates.
package relay

import (
	"context"

	"flightsurety/internal/ledger/models"
)

// Sink receives batches of dispatched events, oldest first.
type Sink interface {
	Name() string
	Publish(ctx context.Context, events []*models.Event) error
}

// Handler processes one delivered event.
type Handler func(ctx context.Context, event *models.Event) error
