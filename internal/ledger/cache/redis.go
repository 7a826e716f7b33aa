package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"flightsurety/internal/ledger/models"
)

const flightKeyPrefix = "flightsurety:flight:"

// Redis is a FlightCache shared by every replica of the service.
type Redis struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedis builds a Redis-backed cache. The client lifecycle is managed by the caller.
func NewRedis(client *redis.Client, ttl time.Duration) *Redis {
	return &Redis{client: client, ttl: ttl}
}

func (r *Redis) Get(ctx context.Context, code models.FlightCode) (*models.Flight, error) {
	raw, err := r.client.Get(ctx, flightKeyPrefix+code.String()).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrMiss
	}
	if err != nil {
		return nil, err
	}
	var flight models.Flight
	if err := json.Unmarshal(raw, &flight); err != nil {
		return nil, fmt.Errorf("decode cached flight: %w", err)
	}
	return &flight, nil
}

func (r *Redis) Set(ctx context.Context, flight *models.Flight) error {
	raw, err := json.Marshal(flight)
	if err != nil {
		return fmt.Errorf("encode flight: %w", err)
	}
	return r.client.Set(ctx, flightKeyPrefix+flight.Code.String(), raw, r.ttl).Err()
}

func (r *Redis) Invalidate(ctx context.Context, code models.FlightCode) error {
	return r.client.Del(ctx, flightKeyPrefix+code.String()).Err()
}
