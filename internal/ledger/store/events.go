package store

import (
	"context"
	"fmt"
	"time"

	"flightsurety/internal/ledger/models"
)

// Emit appends an event to the outbox inside tx.
func Emit(ctx context.Context, tx Tx, eventType models.EventType, payload any, now time.Time) error {
	event, err := models.NewEvent(eventType, payload, now)
	if err != nil {
		return fmt.Errorf("encode %s event: %w", eventType, err)
	}
	return tx.AppendEvent(ctx, event)
}
