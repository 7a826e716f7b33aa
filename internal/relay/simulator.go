package relay

import (
	"context"
	"encoding/hex"
	"fmt"
	"log/slog"
	"math/big"
	"math/rand"

	"golang.org/x/crypto/sha3"

	"flightsurety/internal/ledger/models"
	"flightsurety/internal/oracle"
	"flightsurety/pkg/domain"
	dErrors "flightsurety/pkg/domain-errors"
)

// Reporter submits oracle responses. *oracle.Service and the HTTP client
// both satisfy it.
type Reporter interface {
	SubmitOracleResponse(ctx context.Context, caller domain.Address, index uint8, code models.FlightCode, timestamp int64, status models.StatusCode) (*oracle.SubmissionResult, error)
}

// Registrar enrolls oracles and looks up their indexes.
type Registrar interface {
	RegisterOracle(ctx context.Context, caller domain.Address, amount *big.Int) (*models.Oracle, error)
	GetMyIndexes(ctx context.Context, caller domain.Address) (models.OracleIndexes, error)
}

// Funder credits balances on behalf of the administrator.
type Funder interface {
	Credit(ctx context.Context, caller, account domain.Address, amount *big.Int) (*big.Int, error)
}

// StatusPicker decides what a simulated oracle reports for a flight.
type StatusPicker func(code models.FlightCode) models.StatusCode

var finalStatuses = []models.StatusCode{
	models.StatusOnTime,
	models.StatusLateAirline,
	models.StatusLateWeather,
	models.StatusLateTechnical,
	models.StatusLateOther,
}

// RandomStatus reports a uniformly random final status.
func RandomStatus(models.FlightCode) models.StatusCode {
	return finalStatuses[rand.Intn(len(finalStatuses))]
}

// FixedStatus always reports status.
func FixedStatus(status models.StatusCode) StatusPicker {
	return func(models.FlightCode) models.StatusCode { return status }
}

// SimulatedOracle is one fleet member.
type SimulatedOracle struct {
	Address domain.Address
	Indexes models.OracleIndexes
}

// Fleet answers OracleRequest events on behalf of simulated oracles.
type Fleet struct {
	oracles  []SimulatedOracle
	reporter Reporter
	pick     StatusPicker
	logger   *slog.Logger
}

type FleetOption func(*Fleet)

func WithStatusPicker(pick StatusPicker) FleetOption {
	return func(f *Fleet) {
		if pick != nil {
			f.pick = pick
		}
	}
}

func WithFleetLogger(logger *slog.Logger) FleetOption {
	return func(f *Fleet) {
		f.logger = logger
	}
}

func NewFleet(reporter Reporter, oracles []SimulatedOracle, opts ...FleetOption) *Fleet {
	f := &Fleet{
		oracles:  oracles,
		reporter: reporter,
		pick:     RandomStatus,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Size returns the number of oracles in the fleet.
func (f *Fleet) Size() int {
	return len(f.oracles)
}

// Handle is a relay Handler. Every fleet member holding the requested index
// reports a status for the flight. Rejections are logged and skipped so one
// bad response cannot block the rest.
func (f *Fleet) Handle(ctx context.Context, event *models.Event) error {
	if event.Type != models.EventOracleRequest {
		return nil
	}
	var req models.OracleRequestPayload
	if err := event.Decode(&req); err != nil {
		return fmt.Errorf("decode oracle request: %w", err)
	}
	status := f.pick(req.Flight)
	for _, o := range f.oracles {
		if !o.Indexes.Contains(req.Index) {
			continue
		}
		result, err := f.reporter.SubmitOracleResponse(ctx, o.Address, req.Index, req.Flight, req.Timestamp, status)
		if err != nil {
			f.logger.DebugContext(ctx, "simulated oracle response rejected",
				"oracle", o.Address.String(),
				"flight", req.Flight.String(),
				"error", err,
			)
			continue
		}
		if result.Finalized {
			f.logger.InfoContext(ctx, "simulated fleet reached consensus",
				"flight", req.Flight.String(),
				"status", result.FlightStatus.String(),
			)
		}
	}
	return nil
}

// FleetAddress derives the deterministic address of fleet member i.
func FleetAddress(i int) domain.Address {
	h := sha3.NewLegacyKeccak256()
	_, _ = fmt.Fprintf(h, "flightsurety-simulated-oracle-%d", i)
	return domain.Address("0x" + hex.EncodeToString(h.Sum(nil)[12:]))
}

// ProvisionFleet registers size oracles, funding each with fee from admin.
// Oracles that are already registered keep their existing indexes, so the
// call is safe to repeat against a persistent store.
func ProvisionFleet(ctx context.Context, funder Funder, registrar Registrar, admin domain.Address, size int, fee *big.Int) ([]SimulatedOracle, error) {
	out := make([]SimulatedOracle, 0, size)
	for i := 0; i < size; i++ {
		addr := FleetAddress(i)
		indexes, err := registrar.GetMyIndexes(ctx, addr)
		switch {
		case err == nil:
			out = append(out, SimulatedOracle{Address: addr, Indexes: indexes})
			continue
		case !dErrors.HasCode(err, dErrors.CodeUnauthorized):
			return nil, fmt.Errorf("lookup oracle %s: %w", addr, err)
		}
		if _, err := funder.Credit(ctx, admin, addr, fee); err != nil {
			return nil, fmt.Errorf("fund oracle %s: %w", addr, err)
		}
		registered, err := registrar.RegisterOracle(ctx, addr, fee)
		if err != nil {
			return nil, fmt.Errorf("register oracle %s: %w", addr, err)
		}
		out = append(out, SimulatedOracle{Address: addr, Indexes: registered.Indexes})
	}
	return out, nil
}
