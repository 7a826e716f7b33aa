package guard

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"

	"flightsurety/internal/ledger/metrics"
	"flightsurety/internal/ledger/models"
	"flightsurety/internal/ledger/observability"
	"flightsurety/internal/ledger/store"
	"flightsurety/pkg/domain"
	"flightsurety/pkg/requestcontext"
)

// Service owns the operational kill-switch.
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
	s.recorder = observability.NewRecorder("guard", s.metrics, s.logger)
	return s
}

// IsOperational reads the flag. It works while the ledger is halted.
func (s *Service) IsOperational(ctx context.Context) (bool, error) {
	var operational bool
	err := s.store.View(ctx, func(tx store.Tx) error {
		state, err := LoadState(ctx, tx)
		if err != nil {
			return err
		}
		operational = state.Operational
		return nil
	})
	return operational, err
}

// SetOperational flips the kill-switch. Only the administrator may call it,
// and it is the one mutation allowed while halted.
func (s *Service) SetOperational(ctx context.Context, caller domain.Address, operational bool) (err error) {
	ctx, done := s.recorder.Start(ctx, "SetOperational", attribute.Bool("ledger.operational", operational))
	defer func() { done(err) }()

	now := requestcontext.Now(ctx)
	changed := false
	err = s.store.RunInTx(ctx, func(tx store.Tx) error {
		state, err := RequireAdmin(ctx, tx, caller)
		if err != nil {
			return err
		}
		if state.Operational == operational {
			return nil
		}
		state.Operational = operational
		if err := tx.SaveState(ctx, state); err != nil {
			return err
		}
		changed = true
		return store.Emit(ctx, tx, models.EventOperationalChanged, models.OperationalPayload{Operational: operational}, now)
	})
	if err != nil {
		return err
	}
	if changed {
		observability.LogAudit(ctx, s.logger, string(models.EventOperationalChanged), "operational", operational)
		if s.metrics != nil {
			s.metrics.SetOperational(operational)
		}
	}
	return nil
}
