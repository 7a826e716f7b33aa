package governance

import (
	"context"
	"errors"

	"flightsurety/internal/ledger/cache"
	"flightsurety/internal/ledger/guard"
	"flightsurety/internal/ledger/models"
	"flightsurety/internal/ledger/store"
	"flightsurety/pkg/domain"
	dErrors "flightsurety/pkg/domain-errors"
)

// GetAirline returns the airline record. Unknown addresses yield an empty,
// unregistered record rather than an error.
func (s *Service) GetAirline(ctx context.Context, addr domain.Address) (*models.Airline, error) {
	var airline *models.Airline
	err := s.store.View(ctx, func(tx store.Tx) error {
		found, err := tx.Airline(ctx, addr)
		if errors.Is(err, store.ErrNotFound) {
			airline = &models.Airline{Address: addr, Funded: domain.Wei(0)}
			return nil
		}
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load airline")
		}
		airline = found
		return nil
	})
	return airline, err
}

func (s *Service) IsRegisteredAirline(ctx context.Context, addr domain.Address) (bool, error) {
	airline, err := s.GetAirline(ctx, addr)
	if err != nil {
		return false, err
	}
	return airline.IsRegistered, nil
}

func (s *Service) GetAirlineVotes(ctx context.Context, addr domain.Address) (int, error) {
	airline, err := s.GetAirline(ctx, addr)
	if err != nil {
		return 0, err
	}
	return airline.Votes, nil
}

// GetPaidAirlineCount counts airlines that are registered and paid.
func (s *Service) GetPaidAirlineCount(ctx context.Context) (int, error) {
	var paid int
	err := s.store.View(ctx, func(tx store.Tx) error {
		var err error
		_, paid, err = tx.CountAirlines(ctx)
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to count airlines")
		}
		return nil
	})
	return paid, err
}

// GetFlightDetails returns the flight, reading through the flight cache. Only
// resolved statuses are cached: an UNKNOWN view read just before consensus
// commits could otherwise be stored after the oracle's invalidation.
func (s *Service) GetFlightDetails(ctx context.Context, code models.FlightCode) (*models.Flight, error) {
	if s.flights != nil {
		flight, err := s.flights.Get(ctx, code)
		switch {
		case err == nil:
			s.cacheLookup("hit")
			return flight, nil
		case errors.Is(err, cache.ErrMiss):
			s.cacheLookup("miss")
		default:
			s.cacheLookup("error")
		}
	}

	var flight *models.Flight
	err := s.store.View(ctx, func(tx store.Tx) error {
		var err error
		flight, err = guard.RequireRegisteredFlight(ctx, tx, code)
		return err
	})
	if err != nil {
		return nil, err
	}
	if s.flights != nil && flight.Status != models.StatusUnknown {
		if err := s.flights.Set(ctx, flight); err != nil && s.logger != nil {
			s.logger.WarnContext(ctx, "failed to cache flight", "flight", code.String(), "error", err)
		}
	}
	return flight, nil
}

func (s *Service) GetFlightStatusCode(ctx context.Context, code models.FlightCode) (models.StatusCode, error) {
	flight, err := s.GetFlightDetails(ctx, code)
	if err != nil {
		return models.StatusUnknown, err
	}
	return flight.Status, nil
}

func (s *Service) cacheLookup(result string) {
	if s.metrics != nil {
		s.metrics.CacheLookups.WithLabelValues(result).Inc()
	}
}
