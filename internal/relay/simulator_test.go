package relay_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"flightsurety/internal/accounts"
	"flightsurety/internal/governance"
	"flightsurety/internal/ledger/models"
	"flightsurety/internal/ledger/store"
	"flightsurety/internal/oracle"
	"flightsurety/internal/platform/config"
	"flightsurety/internal/relay"
	"flightsurety/pkg/domain"
	"flightsurety/pkg/requestcontext"
)

const simFlight = models.FlightCode("DAL1-20190805")

type FleetSuite struct {
	suite.Suite
	ctx        context.Context
	store      *store.InMemoryStore
	governance *governance.Service
	oracles    *oracle.Service
	accounts   *accounts.Service
	admin      domain.Address
}

func TestFleetSuite(t *testing.T) {
	suite.Run(t, new(FleetSuite))
}

func (s *FleetSuite) SetupTest() {
	s.ctx = requestcontext.WithTime(context.Background(), time.Date(2019, 8, 5, 9, 0, 0, 0, time.UTC))
	params := config.DefaultLedger()
	params.IndexSeed = []byte("fleet-suite")
	s.store = store.NewInMemory()
	s.governance = governance.New(s.store, params)
	s.oracles = oracle.New(s.store, params)
	s.accounts = accounts.New(s.store)
	s.admin = domain.MustAddress("0x00000000000000000000000000000000000a11ce")

	s.Require().NoError(s.governance.Bootstrap(s.ctx, s.admin))
	_, err := s.governance.RegisterFlight(s.ctx, s.admin, simFlight)
	s.Require().NoError(err)
}

func (s *FleetSuite) provision(size int) []relay.SimulatedOracle {
	fleet, err := relay.ProvisionFleet(s.ctx, s.accounts, s.oracles, s.admin, size, s.oracles.GetRegistrationFee())
	s.Require().NoError(err)
	return fleet
}

// requestEvents drains the outbox and returns the OracleRequest events.
func (s *FleetSuite) requestEvents() []*models.Event {
	events, err := s.store.PendingEvents(s.ctx, 0)
	s.Require().NoError(err)
	seqs := make([]int64, 0, len(events))
	var out []*models.Event
	for _, e := range events {
		seqs = append(seqs, e.Seq)
		if e.Type == models.EventOracleRequest {
			out = append(out, e)
		}
	}
	s.Require().NoError(s.store.MarkDispatched(s.ctx, seqs, time.Now()))
	return out
}

func (s *FleetSuite) TestProvisionIsRepeatable() {
	first := s.provision(5)
	s.Require().Len(first, 5)
	for _, o := range first {
		s.Len(o.Indexes, 3)
		balance, err := s.accounts.BalanceOf(s.ctx, o.Address)
		s.Require().NoError(err)
		s.Zero(balance.Sign())
	}

	second := s.provision(5)
	s.Equal(first, second)

	custody, err := s.accounts.CustodyBalance(s.ctx)
	s.Require().NoError(err)
	s.Equal(0, custody.Cmp(domain.Ether(5)))
}

func (s *FleetSuite) TestFleetAddressesAreDistinct() {
	seen := make(map[domain.Address]bool)
	for i := 0; i < 50; i++ {
		addr := relay.FleetAddress(i)
		_, err := domain.ParseAddress(addr.String())
		s.Require().NoError(err)
		s.False(seen[addr])
		seen[addr] = true
	}
}

func (s *FleetSuite) TestFleetReachesConsensus() {
	fleet := relay.NewFleet(s.oracles, s.provision(30), relay.WithStatusPicker(relay.FixedStatus(models.StatusLateAirline)))
	s.requestEvents()

	for iter := 0; iter < 10; iter++ {
		_, err := s.oracles.FetchFlightStatus(s.ctx, s.admin, simFlight)
		s.Require().NoError(err)
		for _, e := range s.requestEvents() {
			s.Require().NoError(fleet.Handle(s.ctx, e))
		}
		status, err := s.governance.GetFlightStatusCode(s.ctx, simFlight)
		s.Require().NoError(err)
		if status != models.StatusUnknown {
			s.Equal(models.StatusLateAirline, status)
			return
		}
	}
	s.FailNow("fleet never reached quorum")
}

func (s *FleetSuite) TestHandleIgnoresOtherEvents() {
	fleet := relay.NewFleet(failingReporter{}, nil)
	s.NoError(fleet.Handle(s.ctx, &models.Event{Type: models.EventFlightRegistered}))
}

func (s *FleetSuite) TestHandleSkipsRejectedResponses() {
	oracles := []relay.SimulatedOracle{{Address: relay.FleetAddress(0), Indexes: models.OracleIndexes{1, 2, 3}}}
	fleet := relay.NewFleet(failingReporter{}, oracles)
	event, err := models.NewEvent(models.EventOracleRequest, models.OracleRequestPayload{Index: 2, Flight: simFlight}, time.Now())
	s.Require().NoError(err)
	s.NoError(fleet.Handle(s.ctx, event))
}

type failingReporter struct{}

func (failingReporter) SubmitOracleResponse(context.Context, domain.Address, uint8, models.FlightCode, int64, models.StatusCode) (*oracle.SubmissionResult, error) {
	return nil, errors.New("rejected")
}
