// Package governance implements airline admission, staking and flight
// registration.
//
// Admission has two paths. While at most FastPathLimit airlines are registered,
// any registered and paid airline admits a candidate on its own. Beyond that,
// each paid airline casts at most one vote per candidate and the candidate is
// admitted once votes*2 >= paid airlines. Registration never reverts.
package governance

import (
	"context"
	"errors"
	"log/slog"
	"math/big"

	"go.opentelemetry.io/otel/attribute"

	"flightsurety/internal/ledger/cache"
	"flightsurety/internal/ledger/custody"
	"flightsurety/internal/ledger/guard"
	"flightsurety/internal/ledger/metrics"
	"flightsurety/internal/ledger/models"
	"flightsurety/internal/ledger/observability"
	"flightsurety/internal/ledger/store"
	"flightsurety/internal/platform/config"
	"flightsurety/pkg/domain"
	dErrors "flightsurety/pkg/domain-errors"
	"flightsurety/pkg/requestcontext"
)

// RegistrationResult is the outcome of RegisterAirline.
type RegistrationResult struct {
	Airline    domain.Address `json:"airline"`
	Registered bool           `json:"registered"`
	Votes      int            `json:"votes"`
	// Voted is false when the call did not record a new vote: fast path
	// admission, an already registered candidate, or a repeat vote.
	Voted bool `json:"voted"`
}

// Service is the governance engine.
type Service struct {
	store    store.Store
	params   config.Ledger
	flights  cache.FlightCache
	logger   *slog.Logger
	metrics  *metrics.Metrics
	recorder *observability.Recorder
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithFlightCache enables cache-aside reads for GetFlightDetails.
func WithFlightCache(c cache.FlightCache) Option {
	return func(s *Service) {
		s.flights = c
	}
}

func New(st store.Store, params config.Ledger, opts ...Option) *Service {
	s := &Service{store: st, params: params}
	for _, opt := range opts {
		opt(s)
	}
	s.recorder = observability.NewRecorder("governance", s.metrics, s.logger)
	return s
}

// Bootstrap creates the ledger: admin becomes the administrator and airline
// #1, registered and paid without stake. Calling it on an existing ledger is
// a no-op so restarts are safe.
func (s *Service) Bootstrap(ctx context.Context, admin domain.Address) (err error) {
	ctx, done := s.recorder.Start(ctx, "Bootstrap")
	defer func() { done(err) }()

	if admin.IsNil() {
		return dErrors.New(dErrors.CodeValidation, "administrator address is required")
	}
	now := requestcontext.Now(ctx)
	created := false
	err = s.store.RunInTx(ctx, func(tx store.Tx) error {
		_, err := tx.State(ctx)
		if err == nil {
			return nil
		}
		if !errors.Is(err, store.ErrNotInitialized) {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load ledger state")
		}
		if err := tx.SaveState(ctx, &models.LedgerState{Admin: admin, Operational: true}); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to save ledger state")
		}
		airline, err := models.NewCandidateAirline(admin, "", "", now)
		if err != nil {
			return err
		}
		airline.MarkRegistered(now)
		airline.IsPaid = true
		if err := tx.SaveAirline(ctx, airline); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to save genesis airline")
		}
		created = true
		return store.Emit(ctx, tx, models.EventAirlineRegistered, models.AirlinePayload{
			Airline:    admin.String(),
			Registered: true,
			Paid:       true,
		}, now)
	})
	if err != nil {
		return err
	}
	if created {
		observability.LogAudit(ctx, s.logger, "ledger_bootstrapped", "admin", admin.String())
		if s.metrics != nil {
			s.metrics.AirlinesRegistered.Inc()
			s.metrics.SetOperational(true)
		}
	}
	return nil
}

// RegisterAirline admits or votes for candidate on behalf of caller.
//
// A caller that is not a paid airline fails with Unfunded and nothing is
// written: the candidate is not created. Reads of an unknown airline already
// return an empty unregistered record, so the outcome is the same as storing
// an unregistered candidate.
func (s *Service) RegisterAirline(ctx context.Context, caller, candidate domain.Address, code, name string) (result *RegistrationResult, err error) {
	ctx, done := s.recorder.Start(ctx, "RegisterAirline", attribute.String("ledger.airline", candidate.String()))
	defer func() { done(err) }()

	if candidate.IsNil() {
		return nil, dErrors.New(dErrors.CodeValidation, "airline address is required")
	}
	now := requestcontext.Now(ctx)
	registeredNow := false
	err = s.store.RunInTx(ctx, func(tx store.Tx) error {
		if _, err := guard.RequireOperational(ctx, tx); err != nil {
			return err
		}
		if _, err := guard.RequirePaidAirline(ctx, tx, caller); err != nil {
			return err
		}

		target, err := tx.Airline(ctx, candidate)
		switch {
		case errors.Is(err, store.ErrNotFound):
			if target, err = models.NewCandidateAirline(candidate, code, name, now); err != nil {
				return err
			}
		case err != nil:
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load airline")
		}
		result = &RegistrationResult{Airline: candidate, Registered: target.IsRegistered, Votes: target.Votes}
		if target.IsRegistered {
			return nil
		}

		registered, paid, err := tx.CountAirlines(ctx)
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to count airlines")
		}

		if registered <= s.params.FastPathLimit {
			target.MarkRegistered(now)
		} else {
			voted, err := tx.HasVoted(ctx, candidate, caller)
			if err != nil {
				return dErrors.Wrap(err, dErrors.CodeInternal, "failed to check vote")
			}
			if voted {
				return nil
			}
			if err := tx.AddVote(ctx, candidate, caller, now); err != nil {
				return dErrors.Wrap(err, dErrors.CodeInternal, "failed to record vote")
			}
			target.Votes++
			result.Voted = true
			if err := store.Emit(ctx, tx, models.EventAirlineVoted, models.AirlinePayload{
				Airline: candidate.String(),
				Voter:   caller.String(),
				Votes:   target.Votes,
			}, now); err != nil {
				return err
			}
			if target.Votes*2 >= paid {
				target.MarkRegistered(now)
			}
		}

		if err := tx.SaveAirline(ctx, target); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to save airline")
		}
		result.Registered = target.IsRegistered
		result.Votes = target.Votes
		if !target.IsRegistered {
			return nil
		}
		registeredNow = true
		return store.Emit(ctx, tx, models.EventAirlineRegistered, models.AirlinePayload{
			Airline:    candidate.String(),
			Voter:      caller.String(),
			Votes:      target.Votes,
			Registered: true,
			Paid:       target.IsPaid,
		}, now)
	})
	if err != nil {
		return nil, err
	}

	if result.Voted {
		observability.LogAudit(ctx, s.logger, string(models.EventAirlineVoted),
			"airline", candidate.String(), "votes", result.Votes)
		if s.metrics != nil {
			s.metrics.AirlineVotes.Inc()
		}
	}
	if registeredNow {
		observability.LogAudit(ctx, s.logger, string(models.EventAirlineRegistered),
			"airline", candidate.String(), "votes", result.Votes)
		if s.metrics != nil {
			s.metrics.AirlinesRegistered.Inc()
		}
	}
	return result, nil
}

// AirlinePay moves stake from caller into custody. The airline becomes paid
// once its cumulative stake reaches the funding threshold.
func (s *Service) AirlinePay(ctx context.Context, caller domain.Address, amount *big.Int) (airline *models.Airline, err error) {
	ctx, done := s.recorder.Start(ctx, "AirlinePay", attribute.String("ledger.amount_wei", domain.CopyWei(amount).String()))
	defer func() { done(err) }()

	if amount == nil || amount.Sign() <= 0 {
		return nil, dErrors.New(dErrors.CodeValidation, "amount must be greater than zero")
	}
	now := requestcontext.Now(ctx)
	becamePaid := false
	err = s.store.RunInTx(ctx, func(tx store.Tx) error {
		if _, err := guard.RequireOperational(ctx, tx); err != nil {
			return err
		}
		current, err := guard.RequireRegisteredAirline(ctx, tx, caller)
		if err != nil {
			return err
		}
		if err := custody.Deposit(ctx, tx, caller, amount); err != nil {
			return err
		}
		becamePaid = current.AddStake(amount, s.params.AirlineFundingThreshold)
		if err := tx.SaveAirline(ctx, current); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to save airline")
		}
		airline = current
		return store.Emit(ctx, tx, models.EventAirlineFunded, models.AirlinePayload{
			Airline:    caller.String(),
			Registered: current.IsRegistered,
			Paid:       current.IsPaid,
			Amount:     amount.String(),
		}, now)
	})
	if err != nil {
		return nil, err
	}
	observability.LogAudit(ctx, s.logger, string(models.EventAirlineFunded),
		"airline", caller.String(),
		"amount_wei", amount.String(),
		"funded_wei", airline.Funded.String(),
		"became_paid", becamePaid,
	)
	return airline, nil
}

// RegisterFlight creates a flight owned by caller with UNKNOWN status.
func (s *Service) RegisterFlight(ctx context.Context, caller domain.Address, code models.FlightCode) (flight *models.Flight, err error) {
	ctx, done := s.recorder.Start(ctx, "RegisterFlight", attribute.String("ledger.flight", code.String()))
	defer func() { done(err) }()

	if code, err = models.ParseFlightCode(code.String()); err != nil {
		return nil, err
	}
	now := requestcontext.Now(ctx)
	err = s.store.RunInTx(ctx, func(tx store.Tx) error {
		if _, err := guard.RequireOperational(ctx, tx); err != nil {
			return err
		}
		if _, err := guard.RequirePaidAirline(ctx, tx, caller); err != nil {
			return err
		}
		created, err := models.NewFlight(code, caller, now)
		if err != nil {
			return err
		}
		if err := tx.CreateFlight(ctx, created); err != nil {
			if errors.Is(err, store.ErrConflict) {
				return dErrors.Newf(dErrors.CodeConflict, "flight %s is already registered", code)
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to create flight")
		}
		flight = created
		return store.Emit(ctx, tx, models.EventFlightRegistered, models.FlightPayload{
			Flight:  code,
			Airline: caller.String(),
		}, now)
	})
	if err != nil {
		return nil, err
	}
	observability.LogAudit(ctx, s.logger, string(models.EventFlightRegistered),
		"flight", code.String(), "airline", caller.String())
	return flight, nil
}
