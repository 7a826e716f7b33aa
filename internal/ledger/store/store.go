// Package store persists ledger state. Every engine operation runs inside
// Store.RunInTx so that its guard checks and writes commit together or not at
// all; the memory and PostgreSQL implementations both serialize writers.
package store

import (
	"context"
	"math/big"
	"time"

	"flightsurety/internal/ledger/models"
	"flightsurety/pkg/domain"
	"flightsurety/pkg/platform/sentinel"
)

// CustodyAccount is the balance key holding funds owned by the ledger.
const CustodyAccount domain.Address = "custody"

var (
	ErrNotFound       = sentinel.ErrNotFound
	ErrConflict       = sentinel.ErrConflict
	ErrNotInitialized = sentinel.ErrNotInitialized
)

// Tx is the ledger state visible to one operation. Reads return copies;
// changes become visible to other operations only after commit.
type Tx interface {
	// State returns ErrNotInitialized before genesis.
	State(ctx context.Context) (*models.LedgerState, error)
	SaveState(ctx context.Context, state *models.LedgerState) error

	Airline(ctx context.Context, addr domain.Address) (*models.Airline, error)
	SaveAirline(ctx context.Context, airline *models.Airline) error
	CountAirlines(ctx context.Context) (registered, paid int, err error)
	HasVoted(ctx context.Context, candidate, voter domain.Address) (bool, error)
	AddVote(ctx context.Context, candidate, voter domain.Address, at time.Time) error

	Flight(ctx context.Context, code models.FlightCode) (*models.Flight, error)
	// CreateFlight returns ErrConflict if the code is taken.
	CreateFlight(ctx context.Context, flight *models.Flight) error
	UpdateFlight(ctx context.Context, flight *models.Flight) error

	Policy(ctx context.Context, flight models.FlightCode, purchaser domain.Address) (*models.Policy, error)
	SavePolicy(ctx context.Context, policy *models.Policy) error

	Oracle(ctx context.Context, addr domain.Address) (*models.Oracle, error)
	// CreateOracle returns ErrConflict if the address is already an oracle.
	CreateOracle(ctx context.Context, oracle *models.Oracle) error

	StatusRequest(ctx context.Context, key models.RequestKey) (*models.StatusRequest, error)
	// LatestOpenRequest returns the most recently opened open request for the pair.
	LatestOpenRequest(ctx context.Context, index uint8, flight models.FlightCode) (*models.StatusRequest, error)
	// OpenRequests lists open requests for a flight, oldest first.
	OpenRequests(ctx context.Context, flight models.FlightCode) ([]*models.StatusRequest, error)
	SaveStatusRequest(ctx context.Context, req *models.StatusRequest) error
	DeleteStatusRequest(ctx context.Context, key models.RequestKey) error

	// Balance returns zero for unknown accounts.
	Balance(ctx context.Context, account domain.Address) (*big.Int, error)
	SetBalance(ctx context.Context, account domain.Address, amount *big.Int) error

	AppendEvent(ctx context.Context, event *models.Event) error
}

// Store is the transactional ledger store.
type Store interface {
	// RunInTx applies fn atomically. Any error from fn discards every write.
	RunInTx(ctx context.Context, fn func(tx Tx) error) error
	// View runs fn against a consistent snapshot; writes are discarded.
	View(ctx context.Context, fn func(tx Tx) error) error

	// ListEvents returns events with Seq > after, oldest first.
	ListEvents(ctx context.Context, after int64, limit int) ([]*models.Event, error)
	// PendingEvents returns undispatched events, oldest first.
	PendingEvents(ctx context.Context, limit int) ([]*models.Event, error)
	MarkDispatched(ctx context.Context, seqs []int64, at time.Time) error

	// EvictStaleRequests deletes open requests opened before cutoff.
	EvictStaleRequests(ctx context.Context, cutoff time.Time) (int, error)
}
