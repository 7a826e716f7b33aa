// Package insurance implements the policy lifecycle: purchase with top-up up
// to a per-flight cap, cancellation with a full refund, and payout when the
// flight is late because of the airline.
//
// A policy is terminal once cancelled or paid out; terminal policies never
// change again and cannot be topped up.
package insurance

import (
	"context"
	"errors"
	"log/slog"
	"math/big"

	"go.opentelemetry.io/otel/attribute"

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

// Service is the insurance engine.
type Service struct {
	store    store.Store
	params   config.Ledger
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

func New(st store.Store, params config.Ledger, opts ...Option) *Service {
	s := &Service{store: st, params: params}
	for _, opt := range opts {
		opt(s)
	}
	s.recorder = observability.NewRecorder("insurance", s.metrics, s.logger)
	return s
}

// BuyInsurance creates caller's policy on a flight or tops it up. The
// cumulative premium may not exceed PremiumCap; an over-cap purchase is
// rejected whole.
func (s *Service) BuyInsurance(ctx context.Context, caller domain.Address, code models.FlightCode, amount *big.Int) (policy *models.Policy, err error) {
	ctx, done := s.recorder.Start(ctx, "BuyInsurance",
		attribute.String("ledger.flight", code.String()),
		attribute.String("ledger.amount_wei", domain.CopyWei(amount).String()),
	)
	defer func() { done(err) }()

	if amount == nil || amount.Sign() <= 0 {
		return nil, dErrors.New(dErrors.CodeValidation, "premium must be greater than zero")
	}
	now := requestcontext.Now(ctx)
	err = s.store.RunInTx(ctx, func(tx store.Tx) error {
		if _, err := guard.RequireOperational(ctx, tx); err != nil {
			return err
		}
		if err := guard.RequireCaller(caller); err != nil {
			return err
		}
		flight, err := guard.RequireRegisteredFlight(ctx, tx, code)
		if err != nil {
			return err
		}
		if flight.Status != models.StatusUnknown {
			return dErrors.Newf(dErrors.CodeConflict, "flight %s already has status %s", code, flight.Status)
		}

		current, err := tx.Policy(ctx, code, caller)
		switch {
		case errors.Is(err, store.ErrNotFound):
			current = &models.Policy{
				Flight:     code,
				Purchaser:  caller,
				AmountPaid: new(big.Int),
				CreatedAt:  now,
			}
		case err != nil:
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load policy")
		case current.IsTerminal():
			return dErrors.New(dErrors.CodeAlreadySettled, "policy is already settled")
		}

		total := new(big.Int).Add(current.AmountPaid, amount)
		if total.Cmp(s.params.PremiumCap) > 0 {
			return dErrors.Newf(dErrors.CodePremiumCapExceeded,
				"premium would total %s wei, cap is %s wei", total, s.params.PremiumCap)
		}
		if err := custody.Deposit(ctx, tx, caller, amount); err != nil {
			return err
		}
		current.AmountPaid = total
		current.UpdatedAt = now
		if err := tx.SavePolicy(ctx, current); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to save policy")
		}
		policy = current
		return store.Emit(ctx, tx, models.EventInsurancePurchased, models.InsurancePayload{
			Flight:    code,
			Purchaser: caller.String(),
			Amount:    amount.String(),
		}, now)
	})
	if err != nil {
		return nil, err
	}
	observability.LogAudit(ctx, s.logger, string(models.EventInsurancePurchased),
		"flight", code.String(),
		"amount_wei", amount.String(),
		"total_wei", policy.AmountPaid.String(),
	)
	if s.metrics != nil {
		metrics.AddEther(s.metrics.PremiumsEther, amount)
	}
	return policy, nil
}

// CancelInsurance refunds the full premium to caller and closes the policy.
func (s *Service) CancelInsurance(ctx context.Context, caller domain.Address, code models.FlightCode) (policy *models.Policy, err error) {
	ctx, done := s.recorder.Start(ctx, "CancelInsurance", attribute.String("ledger.flight", code.String()))
	defer func() { done(err) }()

	now := requestcontext.Now(ctx)
	var refund *big.Int
	err = s.store.RunInTx(ctx, func(tx store.Tx) error {
		if _, err := guard.RequireOperational(ctx, tx); err != nil {
			return err
		}
		current, err := guard.RequirePolicyHolder(ctx, tx, code, caller)
		if err != nil {
			return err
		}
		if current.IsTerminal() {
			return dErrors.New(dErrors.CodeNoActivePolicy, "policy is no longer active")
		}
		refund = domain.CopyWei(current.AmountPaid)
		if err := custody.Release(ctx, tx, caller, refund); err != nil {
			return err
		}
		current.IsCancelled = true
		current.UpdatedAt = now
		if err := tx.SavePolicy(ctx, current); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to save policy")
		}
		policy = current
		return store.Emit(ctx, tx, models.EventInsuranceCancelled, models.InsurancePayload{
			Flight:    code,
			Purchaser: caller.String(),
			Amount:    refund.String(),
		}, now)
	})
	if err != nil {
		return nil, err
	}
	observability.LogAudit(ctx, s.logger, string(models.EventInsuranceCancelled),
		"flight", code.String(),
		"refund_wei", refund.String(),
	)
	if s.metrics != nil {
		metrics.AddEther(s.metrics.RefundsEther, refund)
	}
	return policy, nil
}

// PayoutInsurance credits caller with the premium times the payout multiplier
// once the flight is LATE_AIRLINE. Fractional wei round down.
func (s *Service) PayoutInsurance(ctx context.Context, caller domain.Address, code models.FlightCode) (policy *models.Policy, err error) {
	ctx, done := s.recorder.Start(ctx, "PayoutInsurance", attribute.String("ledger.flight", code.String()))
	defer func() { done(err) }()

	now := requestcontext.Now(ctx)
	err = s.store.RunInTx(ctx, func(tx store.Tx) error {
		if _, err := guard.RequireOperational(ctx, tx); err != nil {
			return err
		}
		current, err := guard.RequirePolicyHolder(ctx, tx, code, caller)
		if err != nil {
			return err
		}
		if current.IsTerminal() {
			return dErrors.New(dErrors.CodeAlreadySettled, "policy is already settled")
		}
		flight, err := guard.RequireRegisteredFlight(ctx, tx, code)
		if err != nil {
			return err
		}
		if flight.Status != models.StatusLateAirline {
			return dErrors.Newf(dErrors.CodeFlightNotDelayed, "flight %s status is %s", code, flight.Status)
		}

		amount := s.payoutFor(current.AmountPaid)
		if err := custody.Release(ctx, tx, caller, amount); err != nil {
			return err
		}
		current.IsPaidOut = true
		current.Payout = amount
		current.UpdatedAt = now
		if err := tx.SavePolicy(ctx, current); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to save policy")
		}
		policy = current
		return store.Emit(ctx, tx, models.EventInsurancePaid, models.InsurancePayload{
			Flight:    code,
			Purchaser: caller.String(),
			Amount:    amount.String(),
		}, now)
	})
	if err != nil {
		return nil, err
	}
	observability.LogAudit(ctx, s.logger, string(models.EventInsurancePaid),
		"flight", code.String(),
		"premium_wei", policy.AmountPaid.String(),
		"payout_wei", policy.Payout.String(),
	)
	if s.metrics != nil {
		metrics.AddEther(s.metrics.PayoutsEther, policy.Payout)
	}
	return policy, nil
}

func (s *Service) payoutFor(premium *big.Int) *big.Int {
	out := new(big.Int).Mul(premium, big.NewInt(s.params.PayoutNumerator))
	return out.Quo(out, big.NewInt(s.params.PayoutDenominator))
}

// GetInsurance returns the purchaser's policy view. A purchaser without a
// policy gets an empty view.
func (s *Service) GetInsurance(ctx context.Context, code models.FlightCode, purchaser domain.Address) (models.PolicyView, error) {
	var view models.PolicyView
	err := s.store.View(ctx, func(tx store.Tx) error {
		policy, err := tx.Policy(ctx, code, purchaser)
		if err != nil && !errors.Is(err, store.ErrNotFound) {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load policy")
		}
		view = policy.View(code, purchaser)
		return nil
	})
	return view, err
}
