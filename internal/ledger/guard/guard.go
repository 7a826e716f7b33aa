// Package guard holds the authorization and kill-switch checks every ledger
// operation runs inside its transaction before touching state.
package guard

import (
	"context"
	"errors"

	"flightsurety/internal/ledger/models"
	"flightsurety/internal/ledger/store"
	"flightsurety/pkg/domain"
	dErrors "flightsurety/pkg/domain-errors"
)

// LoadState reads the global flags.
func LoadState(ctx context.Context, tx store.Tx) (*models.LedgerState, error) {
	state, err := tx.State(ctx)
	if err != nil {
		if errors.Is(err, store.ErrNotInitialized) {
			return nil, dErrors.New(dErrors.CodeNotOperational, "ledger has not been initialized")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load ledger state")
	}
	return state, nil
}

// RequireOperational fails with NotOperational while the ledger is halted.
func RequireOperational(ctx context.Context, tx store.Tx) (*models.LedgerState, error) {
	state, err := LoadState(ctx, tx)
	if err != nil {
		return nil, err
	}
	if !state.Operational {
		return nil, dErrors.New(dErrors.CodeNotOperational, "ledger is not operational")
	}
	return state, nil
}

// RequireCaller rejects anonymous invocations.
func RequireCaller(caller domain.Address) error {
	if caller.IsNil() {
		return dErrors.New(dErrors.CodeUnauthorized, "caller identity required")
	}
	return nil
}

// RequireAdmin fails with Unauthorized unless caller is the administrator.
// It does not check the operational flag so the admin can always toggle it.
func RequireAdmin(ctx context.Context, tx store.Tx, caller domain.Address) (*models.LedgerState, error) {
	if err := RequireCaller(caller); err != nil {
		return nil, err
	}
	state, err := LoadState(ctx, tx)
	if err != nil {
		return nil, err
	}
	if state.Admin != caller {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "caller is not the administrator")
	}
	return state, nil
}

// RequireRegisteredAirline fails with Unauthorized unless caller is a
// registered airline.
func RequireRegisteredAirline(ctx context.Context, tx store.Tx, caller domain.Address) (*models.Airline, error) {
	if err := RequireCaller(caller); err != nil {
		return nil, err
	}
	airline, err := tx.Airline(ctx, caller)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeUnauthorized, "caller is not a registered airline")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load airline")
	}
	if !airline.IsRegistered {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "caller is not a registered airline")
	}
	return airline, nil
}

// RequirePaidAirline fails with Unfunded unless caller is registered and paid.
func RequirePaidAirline(ctx context.Context, tx store.Tx, caller domain.Address) (*models.Airline, error) {
	if err := RequireCaller(caller); err != nil {
		return nil, err
	}
	airline, err := tx.Airline(ctx, caller)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load airline")
	}
	if !airline.CanVote() {
		return nil, dErrors.New(dErrors.CodeUnfunded, "caller is not a registered and paid airline")
	}
	return airline, nil
}

// RequireOracle fails with Unauthorized unless caller is a registered oracle.
func RequireOracle(ctx context.Context, tx store.Tx, caller domain.Address) (*models.Oracle, error) {
	if err := RequireCaller(caller); err != nil {
		return nil, err
	}
	oracle, err := tx.Oracle(ctx, caller)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeUnauthorized, "caller is not a registered oracle")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load oracle")
	}
	return oracle, nil
}

// RequireRegisteredFlight fails with FlightNotRegistered for unknown flights.
func RequireRegisteredFlight(ctx context.Context, tx store.Tx, code models.FlightCode) (*models.Flight, error) {
	flight, err := tx.Flight(ctx, code)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, dErrors.Newf(dErrors.CodeFlightNotRegistered, "flight %s is not registered", code)
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load flight")
	}
	if !flight.IsRegistered {
		return nil, dErrors.Newf(dErrors.CodeFlightNotRegistered, "flight %s is not registered", code)
	}
	return flight, nil
}

// RequirePolicyHolder returns caller's policy on flight. A missing policy fails
// with NoActivePolicy; the caller decides how to treat terminal policies.
func RequirePolicyHolder(ctx context.Context, tx store.Tx, flight models.FlightCode, caller domain.Address) (*models.Policy, error) {
	if err := RequireCaller(caller); err != nil {
		return nil, err
	}
	policy, err := tx.Policy(ctx, flight, caller)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNoActivePolicy, "no policy for this flight")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load policy")
	}
	return policy, nil
}
