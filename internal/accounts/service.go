// Package accounts exposes balances and the external funding boundary. Credit
// stands in for value arriving from outside the ledger and is reserved to the
// administrator.
package accounts

import (
	"context"
	"log/slog"
	"math/big"

	"go.opentelemetry.io/otel/attribute"

	"flightsurety/internal/ledger/custody"
	"flightsurety/internal/ledger/guard"
	"flightsurety/internal/ledger/metrics"
	"flightsurety/internal/ledger/models"
	"flightsurety/internal/ledger/observability"
	"flightsurety/internal/ledger/store"
	"flightsurety/pkg/domain"
	dErrors "flightsurety/pkg/domain-errors"
	"flightsurety/pkg/requestcontext"
)

type Service struct {
	store    store.Store
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

func New(st store.Store, opts ...Option) *Service {
	s := &Service{store: st}
	for _, opt := range opts {
		opt(s)
	}
	s.recorder = observability.NewRecorder("accounts", s.metrics, s.logger)
	return s
}

// Credit adds amount to account and returns the new balance.
func (s *Service) Credit(ctx context.Context, caller, account domain.Address, amount *big.Int) (balance *big.Int, err error) {
	ctx, done := s.recorder.Start(ctx, "Credit",
		attribute.String("ledger.account", account.String()),
		attribute.String("ledger.amount_wei", domain.CopyWei(amount).String()),
	)
	defer func() { done(err) }()

	if account.IsNil() || account == store.CustodyAccount {
		return nil, dErrors.New(dErrors.CodeValidation, "account must be a caller address")
	}
	now := requestcontext.Now(ctx)
	err = s.store.RunInTx(ctx, func(tx store.Tx) error {
		if _, err := guard.RequireOperational(ctx, tx); err != nil {
			return err
		}
		if _, err := guard.RequireAdmin(ctx, tx, caller); err != nil {
			return err
		}
		if balance, err = custody.Credit(ctx, tx, account, amount); err != nil {
			return err
		}
		return store.Emit(ctx, tx, models.EventAccountCredited, models.AccountPayload{
			Account: account.String(),
			Amount:  amount.String(),
		}, now)
	})
	if err != nil {
		return nil, err
	}
	observability.LogAudit(ctx, s.logger, string(models.EventAccountCredited),
		"account", account.String(),
		"amount_wei", amount.String(),
		"balance_wei", balance.String(),
	)
	return balance, nil
}

// BalanceOf returns the spendable balance of account; unknown accounts hold zero.
func (s *Service) BalanceOf(ctx context.Context, account domain.Address) (*big.Int, error) {
	var balance *big.Int
	err := s.store.View(ctx, func(tx store.Tx) error {
		var err error
		balance, err = tx.Balance(ctx, account)
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load balance")
		}
		return nil
	})
	return balance, err
}

// CustodyBalance returns the wei held by the ledger.
func (s *Service) CustodyBalance(ctx context.Context) (*big.Int, error) {
	return s.BalanceOf(ctx, store.CustodyAccount)
}
