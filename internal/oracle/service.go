// Package oracle implements oracle registration and status consensus.
//
// Each oracle holds three shard indexes drawn at registration. A status fetch
// opens a request under a fresh index; only oracles holding that index may
// answer it. The first status code to collect OracleQuorum distinct responses
// finalizes the request and, if the flight is still UNKNOWN, becomes the
// flight's status. Later responses are recorded but never re-finalize.
package oracle

import (
	"context"
	"errors"
	"log/slog"
	"math/big"
	"time"

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

// maxTimestampProbe bounds how far FetchFlightStatus moves a request
// timestamp forward to avoid colliding with an existing key.
const maxTimestampProbe = 64

// SubmissionResult is the outcome of SubmitOracleResponse.
type SubmissionResult struct {
	Key models.RequestKey `json:"key"`
	// Accepted is false for a repeated (oracle, status) response.
	Accepted bool `json:"accepted"`
	// Responses counts the responses recorded for the submitted status.
	Responses int `json:"responses"`
	// Finalized is true only on the response that reached quorum.
	Finalized bool `json:"finalized"`
	// FlightStatus is the flight's status after the call.
	FlightStatus models.StatusCode `json:"flight_status"`
}

// Service is the oracle consensus engine.
type Service struct {
	store    store.Store
	params   config.Ledger
	indexes  indexDeriver
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

// WithFlightCache invalidates cached flight views when a status changes.
func WithFlightCache(c cache.FlightCache) Option {
	return func(s *Service) {
		s.flights = c
	}
}

func New(st store.Store, params config.Ledger, opts ...Option) *Service {
	s := &Service{
		store:   st,
		params:  params,
		indexes: newIndexDeriver(params.IndexSeed, params.OracleIndexRange),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.recorder = observability.NewRecorder("oracle", s.metrics, s.logger)
	return s
}

// GetRegistrationFee returns the one-time oracle fee in wei.
func (s *Service) GetRegistrationFee() *big.Int {
	return domain.CopyWei(s.params.OracleRegistrationFee)
}

// RegisterOracle charges exactly the registration fee and assigns caller its
// three lifetime indexes. Paying more than the fee is allowed; only the fee
// moves into custody.
func (s *Service) RegisterOracle(ctx context.Context, caller domain.Address, amount *big.Int) (oracle *models.Oracle, err error) {
	ctx, done := s.recorder.Start(ctx, "RegisterOracle", attribute.String("ledger.amount_wei", domain.CopyWei(amount).String()))
	defer func() { done(err) }()

	fee := s.GetRegistrationFee()
	if amount == nil || amount.Cmp(fee) < 0 {
		return nil, dErrors.Newf(dErrors.CodeInsufficientFee, "registration fee is %s wei", fee)
	}
	now := requestcontext.Now(ctx)
	err = s.store.RunInTx(ctx, func(tx store.Tx) error {
		state, err := guard.RequireOperational(ctx, tx)
		if err != nil {
			return err
		}
		if err := guard.RequireCaller(caller); err != nil {
			return err
		}
		_, err = tx.Oracle(ctx, caller)
		switch {
		case err == nil:
			return dErrors.New(dErrors.CodeConflict, "caller is already a registered oracle")
		case !errors.Is(err, store.ErrNotFound):
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load oracle")
		}
		if err := custody.Deposit(ctx, tx, caller, fee); err != nil {
			return err
		}

		created := &models.Oracle{
			Address:      caller,
			Indexes:      s.indexes.triple(state, caller),
			RegisteredAt: now,
		}
		if err := tx.CreateOracle(ctx, created); err != nil {
			if errors.Is(err, store.ErrConflict) {
				return dErrors.New(dErrors.CodeConflict, "caller is already a registered oracle")
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to create oracle")
		}
		if err := tx.SaveState(ctx, state); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to save index nonce")
		}
		oracle = created
		return store.Emit(ctx, tx, models.EventOracleRegistered, models.OraclePayload{
			Oracle:  caller.String(),
			Indexes: created.Indexes,
		}, now)
	})
	if err != nil {
		return nil, err
	}
	observability.LogAudit(ctx, s.logger, string(models.EventOracleRegistered),
		"oracle", caller.String(),
		"indexes", oracle.Indexes[:],
	)
	return oracle, nil
}

// GetMyIndexes returns caller's indexes.
func (s *Service) GetMyIndexes(ctx context.Context, caller domain.Address) (models.OracleIndexes, error) {
	var indexes models.OracleIndexes
	err := s.store.View(ctx, func(tx store.Tx) error {
		oracle, err := guard.RequireOracle(ctx, tx, caller)
		if err != nil {
			return err
		}
		indexes = oracle.Indexes
		return nil
	})
	return indexes, err
}

// FetchFlightStatus opens a status request for a registered flight and emits
// one OracleRequest event for the oracle clients. When the flight already has
// MaxOpenRequestsPerFlight open requests, the oldest are dropped first.
func (s *Service) FetchFlightStatus(ctx context.Context, caller domain.Address, code models.FlightCode) (request *models.StatusRequest, err error) {
	ctx, done := s.recorder.Start(ctx, "FetchFlightStatus", attribute.String("ledger.flight", code.String()))
	defer func() { done(err) }()

	now := requestcontext.Now(ctx)
	evicted := 0
	err = s.store.RunInTx(ctx, func(tx store.Tx) error {
		state, err := guard.RequireOperational(ctx, tx)
		if err != nil {
			return err
		}
		if err := guard.RequireCaller(caller); err != nil {
			return err
		}
		if _, err := guard.RequireRegisteredFlight(ctx, tx, code); err != nil {
			return err
		}

		if evicted, err = s.capOpenRequests(ctx, tx, code); err != nil {
			return err
		}

		key := models.RequestKey{
			Index:     s.indexes.next(state, caller),
			Flight:    code,
			Timestamp: now.Unix(),
		}
		if key, err = freeKey(ctx, tx, key); err != nil {
			return err
		}
		if err := tx.SaveState(ctx, state); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to save index nonce")
		}

		opened := models.NewStatusRequest(key, caller, now)
		if err := tx.SaveStatusRequest(ctx, opened); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to save status request")
		}
		request = opened
		return store.Emit(ctx, tx, models.EventOracleRequest, models.OracleRequestPayload{
			Index:     key.Index,
			Flight:    key.Flight,
			Timestamp: key.Timestamp,
		}, now)
	})
	if err != nil {
		return nil, err
	}

	observability.LogAudit(ctx, s.logger, string(models.EventOracleRequest),
		"flight", code.String(),
		"index", request.Key.Index,
		"timestamp", request.Key.Timestamp,
	)
	if s.metrics != nil {
		s.metrics.StatusRequestsOpen.Inc()
		s.metrics.StatusRequestsEvict.Add(float64(evicted))
	}
	return request, nil
}

func (s *Service) capOpenRequests(ctx context.Context, tx store.Tx, code models.FlightCode) (int, error) {
	limit := s.params.MaxOpenRequestsPerFlight
	if limit <= 0 {
		return 0, nil
	}
	open, err := tx.OpenRequests(ctx, code)
	if err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list open requests")
	}
	excess := len(open) - limit + 1
	for i := 0; i < excess; i++ {
		if err := tx.DeleteStatusRequest(ctx, open[i].Key); err != nil {
			return 0, dErrors.Wrap(err, dErrors.CodeInternal, "failed to drop status request")
		}
	}
	return max(excess, 0), nil
}

// freeKey moves the timestamp forward until no request uses the key, so two
// fetches in the same second never share a request.
func freeKey(ctx context.Context, tx store.Tx, key models.RequestKey) (models.RequestKey, error) {
	for iter := 0; iter < maxTimestampProbe; iter++ {
		_, err := tx.StatusRequest(ctx, key)
		if errors.Is(err, store.ErrNotFound) {
			return key, nil
		}
		if err != nil {
			return key, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load status request")
		}
		key.Timestamp++
	}
	return key, dErrors.New(dErrors.CodeConflict, "too many status requests for this flight")
}

// SubmitOracleResponse records caller's answer to a status request. A zero
// timestamp targets the most recent open request for (index, flight).
func (s *Service) SubmitOracleResponse(ctx context.Context, caller domain.Address, index uint8, code models.FlightCode, timestamp int64, status models.StatusCode) (result *SubmissionResult, err error) {
	ctx, done := s.recorder.Start(ctx, "SubmitOracleResponse",
		attribute.String("ledger.flight", code.String()),
		attribute.Int("ledger.index", int(index)),
		attribute.Int("ledger.status", int(status)),
	)
	defer func() { done(err) }()

	now := requestcontext.Now(ctx)
	err = s.store.RunInTx(ctx, func(tx store.Tx) error {
		if _, err := guard.RequireOperational(ctx, tx); err != nil {
			return err
		}
		oracle, err := guard.RequireOracle(ctx, tx, caller)
		if err != nil {
			return err
		}
		if !oracle.Indexes.Contains(index) {
			return dErrors.Newf(dErrors.CodeIndexMismatch, "index %d is not assigned to caller", index)
		}
		request, err := findRequest(ctx, tx, index, code, timestamp)
		if err != nil {
			return err
		}
		if !status.IsFinal() {
			return dErrors.Newf(dErrors.CodeValidation, "status %d cannot be reported", status)
		}

		count, added := request.AddResponse(status, caller)
		result = &SubmissionResult{Key: request.Key, Accepted: added, Responses: count}
		if !added {
			result.FlightStatus, err = flightStatus(ctx, tx, code)
			return err
		}
		if err := store.Emit(ctx, tx, models.EventOracleReport, models.OracleReportPayload{
			Index:     request.Key.Index,
			Flight:    request.Key.Flight,
			Timestamp: request.Key.Timestamp,
			Status:    status,
			Oracle:    caller.String(),
		}, now); err != nil {
			return err
		}

		flight, err := guard.RequireRegisteredFlight(ctx, tx, code)
		if err != nil {
			return err
		}
		if request.IsOpen && count >= s.params.OracleQuorum {
			request.Finalize(status, now)
			result.Finalized = true
			if flight.Status == models.StatusUnknown {
				flight.Status = status
				flight.UpdatedAt = now
				if err := tx.UpdateFlight(ctx, flight); err != nil {
					return dErrors.Wrap(err, dErrors.CodeInternal, "failed to update flight status")
				}
			}
			if err := store.Emit(ctx, tx, models.EventFlightStatusInfo, models.FlightStatusPayload{
				Flight:    code,
				Status:    status,
				Index:     request.Key.Index,
				Timestamp: request.Key.Timestamp,
			}, now); err != nil {
				return err
			}
		}
		result.FlightStatus = flight.Status
		if err := tx.SaveStatusRequest(ctx, request); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to save status request")
		}
		return nil
	})
	if err != nil {
		if s.metrics != nil {
			s.metrics.OracleResponses.WithLabelValues(string(dErrors.CodeOf(err))).Inc()
		}
		return nil, err
	}

	if s.metrics != nil {
		outcome := "accepted"
		if !result.Accepted {
			outcome = "duplicate"
		}
		s.metrics.OracleResponses.WithLabelValues(outcome).Inc()
	}
	if result.Finalized {
		observability.LogAudit(ctx, s.logger, string(models.EventFlightStatusInfo),
			"flight", code.String(),
			"status", status.String(),
			"index", result.Key.Index,
			"timestamp", result.Key.Timestamp,
		)
		if s.metrics != nil {
			s.metrics.ConsensusReached.WithLabelValues(status.String()).Inc()
		}
		s.invalidate(ctx, code)
	}
	return result, nil
}

// findRequest resolves the target request. Finalized requests still accept
// responses; evicted or unknown ones fail with IndexMismatch.
func findRequest(ctx context.Context, tx store.Tx, index uint8, code models.FlightCode, timestamp int64) (*models.StatusRequest, error) {
	var (
		request *models.StatusRequest
		err     error
	)
	if timestamp == 0 {
		request, err = tx.LatestOpenRequest(ctx, index, code)
	} else {
		request, err = tx.StatusRequest(ctx, models.RequestKey{Index: index, Flight: code, Timestamp: timestamp})
	}
	if errors.Is(err, store.ErrNotFound) {
		return nil, dErrors.Newf(dErrors.CodeIndexMismatch, "no status request for index %d on flight %s", index, code)
	}
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load status request")
	}
	return request, nil
}

func flightStatus(ctx context.Context, tx store.Tx, code models.FlightCode) (models.StatusCode, error) {
	flight, err := guard.RequireRegisteredFlight(ctx, tx, code)
	if err != nil {
		return models.StatusUnknown, err
	}
	return flight.Status, nil
}

// SetFlightStatus is the administrator override. It bypasses consensus and
// may replace a status that consensus already set.
func (s *Service) SetFlightStatus(ctx context.Context, caller domain.Address, code models.FlightCode, status models.StatusCode) (flight *models.Flight, err error) {
	ctx, done := s.recorder.Start(ctx, "SetFlightStatus",
		attribute.String("ledger.flight", code.String()),
		attribute.Int("ledger.status", int(status)),
	)
	defer func() { done(err) }()

	if !status.IsValid() {
		return nil, dErrors.Newf(dErrors.CodeValidation, "unknown status code %d", status)
	}
	now := requestcontext.Now(ctx)
	var previous models.StatusCode
	err = s.store.RunInTx(ctx, func(tx store.Tx) error {
		if _, err := guard.RequireOperational(ctx, tx); err != nil {
			return err
		}
		if _, err := guard.RequireAdmin(ctx, tx, caller); err != nil {
			return err
		}
		current, err := guard.RequireRegisteredFlight(ctx, tx, code)
		if err != nil {
			return err
		}
		previous = current.Status
		current.Status = status
		current.UpdatedAt = now
		if err := tx.UpdateFlight(ctx, current); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to update flight status")
		}
		flight = current
		return store.Emit(ctx, tx, models.EventFlightStatusOverridden, models.FlightStatusPayload{
			Flight: code,
			Status: status,
		}, now)
	})
	if err != nil {
		return nil, err
	}
	observability.LogAudit(ctx, s.logger, string(models.EventFlightStatusOverridden),
		"flight", code.String(),
		"previous_status", previous.String(),
		"status", status.String(),
	)
	s.invalidate(ctx, code)
	return flight, nil
}

// EvictStaleRequests drops open requests older than RequestTTL.
func (s *Service) EvictStaleRequests(ctx context.Context) (evicted int, err error) {
	ctx, done := s.recorder.Start(ctx, "EvictStaleRequests")
	defer func() { done(err) }()

	if s.params.RequestTTL <= 0 {
		return 0, nil
	}
	cutoff := requestcontext.Now(ctx).Add(-s.params.RequestTTL)
	evicted, err = s.store.EvictStaleRequests(ctx, cutoff)
	if err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeInternal, "failed to evict stale requests")
	}
	if evicted > 0 {
		if s.logger != nil {
			s.logger.InfoContext(ctx, "evicted stale status requests",
				"count", evicted,
				"cutoff", cutoff.Format(time.RFC3339),
			)
		}
		if s.metrics != nil {
			s.metrics.StatusRequestsEvict.Add(float64(evicted))
		}
	}
	return evicted, nil
}

// GetStatusRequest returns a request by key.
func (s *Service) GetStatusRequest(ctx context.Context, key models.RequestKey) (*models.StatusRequest, error) {
	var request *models.StatusRequest
	err := s.store.View(ctx, func(tx store.Tx) error {
		var err error
		request, err = tx.StatusRequest(ctx, key)
		if errors.Is(err, store.ErrNotFound) {
			return dErrors.New(dErrors.CodeNotFound, "status request not found")
		}
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load status request")
		}
		return nil
	})
	return request, err
}

func (s *Service) invalidate(ctx context.Context, code models.FlightCode) {
	if s.flights == nil {
		return
	}
	if err := s.flights.Invalidate(ctx, code); err != nil && s.logger != nil {
		s.logger.WarnContext(ctx, "failed to invalidate cached flight", "flight", code.String(), "error", err)
	}
}
