package client_test

import (
	"context"
	"io"
	"log/slog"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/suite"

	"flightsurety/internal/accounts"
	accountshandler "flightsurety/internal/accounts/handler"
	"flightsurety/internal/governance"
	jwttoken "flightsurety/internal/jwt_token"
	"flightsurety/internal/ledger/models"
	"flightsurety/internal/ledger/store"
	"flightsurety/internal/oracle"
	"flightsurety/internal/oracle/client"
	oraclehandler "flightsurety/internal/oracle/handler"
	"flightsurety/internal/platform/config"
	"flightsurety/internal/relay"
	httptransport "flightsurety/internal/transport/http"
	"flightsurety/pkg/domain"
	dErrors "flightsurety/pkg/domain-errors"
)

const flight = models.FlightCode("SWA88-20190805")

type ClientSuite struct {
	suite.Suite
	ctx        context.Context
	store      *store.InMemoryStore
	governance *governance.Service
	oracles    *oracle.Service
	client     *client.Client
	admin      domain.Address
}

func TestClientSuite(t *testing.T) {
	suite.Run(t, new(ClientSuite))
}

func (s *ClientSuite) SetupTest() {
	s.ctx = context.Background()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	params := config.DefaultLedger()
	params.IndexSeed = []byte("client-suite")
	s.store = store.NewInMemory()
	s.admin = domain.MustAddress("0x627306090abab3a6e1400e9345bc60c78a8bef57")
	s.governance = governance.New(s.store, params)
	s.oracles = oracle.New(s.store, params)
	s.Require().NoError(s.governance.Bootstrap(s.ctx, s.admin))
	_, err := s.governance.RegisterFlight(s.ctx, s.admin, flight)
	s.Require().NoError(err)

	tokens := jwttoken.NewJWTService("client-suite-key", "flightsurety", "flightsurety-api")
	reg := prometheus.NewRegistry()
	router := httptransport.NewRouter(httptransport.Config{
		Logger:    logger,
		Validator: jwttoken.NewJWTServiceAdapter(tokens),
		Gatherer:  reg,
	},
		oraclehandler.New(s.oracles, logger),
		accountshandler.New(accounts.New(s.store), logger),
	)
	server := httptest.NewServer(router)
	s.T().Cleanup(server.Close)
	s.client = client.New(server.URL, tokens, client.WithHTTPClient(server.Client()))
}

func (s *ClientSuite) TestRegistrationFee() {
	fee, err := s.client.RegistrationFee(s.ctx)
	s.Require().NoError(err)
	s.Equal(0, fee.Cmp(domain.Ether(1)))
}

func (s *ClientSuite) TestErrorsKeepTheirCode() {
	_, err := s.client.GetMyIndexes(s.ctx, relay.FleetAddress(0))
	s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))

	_, err = s.client.RegisterOracle(s.ctx, relay.FleetAddress(0), domain.Ether(1))
	s.True(dErrors.HasCode(err, dErrors.CodeInsufficientFunds))
}

func (s *ClientSuite) TestFleetOverHTTP() {
	fee, err := s.client.RegistrationFee(s.ctx)
	s.Require().NoError(err)
	members, err := relay.ProvisionFleet(s.ctx, s.client, s.client, s.admin, 30, fee)
	s.Require().NoError(err)
	s.Require().Len(members, 30)

	indexes, err := s.client.GetMyIndexes(s.ctx, members[0].Address)
	s.Require().NoError(err)
	s.Equal(members[0].Indexes, indexes)

	fleet := relay.NewFleet(s.client, members, relay.WithStatusPicker(relay.FixedStatus(models.StatusLateWeather)))
	bus := relay.NewBus(64, nil)
	sub := bus.Subscribe(models.EventOracleRequest)
	defer sub.Close()
	dispatcher := relay.NewDispatcher(s.store, []relay.Sink{bus})

	for iter := 0; iter < 10; iter++ {
		_, err := s.oracles.FetchFlightStatus(s.ctx, s.admin, flight)
		s.Require().NoError(err)
		_, err = dispatcher.DispatchOnce(s.ctx)
		s.Require().NoError(err)

		ctx, cancel := context.WithTimeout(s.ctx, time.Second)
		events, err := sub.Next(ctx, 0)
		cancel()
		s.Require().NoError(err)
		for _, e := range events {
			s.Require().NoError(fleet.Handle(s.ctx, e))
		}

		status, err := s.governance.GetFlightStatusCode(s.ctx, flight)
		s.Require().NoError(err)
		if status != models.StatusUnknown {
			s.Equal(models.StatusLateWeather, status)
			return
		}
	}
	s.FailNow("fleet never reached quorum over HTTP")
}
