package insurance_test

import (
	"context"
	"fmt"
	"math/big"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"flightsurety/internal/governance"
	"flightsurety/internal/insurance"
	"flightsurety/internal/ledger/custody"
	"flightsurety/internal/ledger/guard"
	"flightsurety/internal/ledger/models"
	"flightsurety/internal/ledger/store"
	"flightsurety/internal/oracle"
	"flightsurety/internal/platform/config"
	"flightsurety/pkg/domain"
	dErrors "flightsurety/pkg/domain-errors"
	"flightsurety/pkg/requestcontext"
)

const flight = models.FlightCode("UAL925-20190805")

func account(i int) domain.Address {
	return domain.MustAddress(fmt.Sprintf("0x%040x", 0xc000+i))
}

type InsuranceServiceSuite struct {
	suite.Suite
	ctx        context.Context
	store      *store.InMemoryStore
	governance *governance.Service
	oracles    *oracle.Service
	service    *insurance.Service
	admin      domain.Address
	buyer      domain.Address
}

func TestInsuranceServiceSuite(t *testing.T) {
	suite.Run(t, new(InsuranceServiceSuite))
}

func (s *InsuranceServiceSuite) SetupTest() {
	s.ctx = requestcontext.WithTime(context.Background(), time.Date(2019, 8, 5, 12, 0, 0, 0, time.UTC))
	params := config.DefaultLedger()
	params.IndexSeed = []byte("insurance-suite")
	s.store = store.NewInMemory()
	s.governance = governance.New(s.store, params)
	s.oracles = oracle.New(s.store, params)
	s.service = insurance.New(s.store, params)
	s.admin = account(0)
	s.buyer = account(1)

	s.Require().NoError(s.governance.Bootstrap(s.ctx, s.admin))
	_, err := s.governance.RegisterFlight(s.ctx, s.admin, flight)
	s.Require().NoError(err)
	s.credit(s.buyer, domain.Ether(5))
}

func (s *InsuranceServiceSuite) credit(addr domain.Address, amount *big.Int) {
	err := s.store.RunInTx(s.ctx, func(tx store.Tx) error {
		_, err := custody.Credit(s.ctx, tx, addr, amount)
		return err
	})
	s.Require().NoError(err)
}

func (s *InsuranceServiceSuite) balance(addr domain.Address) *big.Int {
	var out *big.Int
	err := s.store.View(s.ctx, func(tx store.Tx) error {
		var err error
		out, err = tx.Balance(s.ctx, addr)
		return err
	})
	s.Require().NoError(err)
	return out
}

func (s *InsuranceServiceSuite) buy(amount *big.Int) *models.Policy {
	policy, err := s.service.BuyInsurance(s.ctx, s.buyer, flight, amount)
	s.Require().NoError(err)
	return policy
}

// reachConsensus registers oracles and drives one request to quorum on status.
func (s *InsuranceServiceSuite) reachConsensus(status models.StatusCode) {
	indexes := make(map[domain.Address]models.OracleIndexes)
	for i := 100; i < 140; i++ {
		s.credit(account(i), domain.Ether(1))
		registered, err := s.oracles.RegisterOracle(s.ctx, account(i), domain.Ether(1))
		s.Require().NoError(err)
		indexes[account(i)] = registered.Indexes
	}
	for iter := 0; iter < 20; iter++ {
		req, err := s.oracles.FetchFlightStatus(s.ctx, s.buyer, flight)
		s.Require().NoError(err)
		var holders []domain.Address
		for i := 100; i < 140; i++ {
			if indexes[account(i)].Contains(req.Key.Index) {
				holders = append(holders, account(i))
			}
		}
		if len(holders) < 3 {
			continue
		}
		for _, o := range holders[:3] {
			_, err := s.oracles.SubmitOracleResponse(s.ctx, o, req.Key.Index, flight, req.Key.Timestamp, status)
			s.Require().NoError(err)
		}
		return
	}
	s.FailNow("no request index had enough oracles")
}

// =============================================================================
// Purchase
// =============================================================================

func (s *InsuranceServiceSuite) TestBuyInsurance() {
	s.Run("first purchase moves premium into custody", func() {
		policy := s.buy(domain.Wei(400))
		s.Equal(0, policy.AmountPaid.Cmp(domain.Wei(400)))
		s.Equal(0, s.balance(store.CustodyAccount).Cmp(domain.Wei(400)))
	})

	s.Run("top-up accumulates", func() {
		policy := s.buy(domain.Wei(600))
		s.Equal(0, policy.AmountPaid.Cmp(domain.Wei(1000)))
	})

	s.Run("unknown flight", func() {
		_, err := s.service.BuyInsurance(s.ctx, s.buyer, "NOPE", domain.Wei(1))
		s.True(dErrors.HasCode(err, dErrors.CodeFlightNotRegistered))
	})

	s.Run("zero premium", func() {
		_, err := s.service.BuyInsurance(s.ctx, s.buyer, flight, domain.Wei(0))
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("insufficient balance writes nothing", func() {
		poor := account(2)
		_, err := s.service.BuyInsurance(s.ctx, poor, flight, domain.Wei(1))
		s.True(dErrors.HasCode(err, dErrors.CodeInsufficientFunds))
		view, err := s.service.GetInsurance(s.ctx, flight, poor)
		s.Require().NoError(err)
		s.Zero(view.AmountPaid.Sign())
	})
}

func (s *InsuranceServiceSuite) TestPremiumCap() {
	s.buy(new(big.Int).Sub(domain.Ether(1), domain.Wei(1)))

	_, err := s.service.BuyInsurance(s.ctx, s.buyer, flight, domain.Wei(2))
	s.True(dErrors.HasCode(err, dErrors.CodePremiumCapExceeded))

	policy := s.buy(domain.Wei(1))
	s.Equal(0, policy.AmountPaid.Cmp(domain.Ether(1)))
	s.Equal(0, s.balance(s.buyer).Cmp(domain.Ether(4)))
}

func (s *InsuranceServiceSuite) TestCannotInsureSettledFlight() {
	_, err := s.oracles.SetFlightStatus(s.ctx, s.admin, flight, models.StatusOnTime)
	s.Require().NoError(err)

	_, err = s.service.BuyInsurance(s.ctx, s.buyer, flight, domain.Wei(1))
	s.True(dErrors.HasCode(err, dErrors.CodeConflict))
}

// =============================================================================
// Cancellation
// =============================================================================

func (s *InsuranceServiceSuite) TestCancelRefundsExactly() {
	s.buy(domain.Ether(1))
	before := s.balance(s.buyer)

	policy, err := s.service.CancelInsurance(s.ctx, s.buyer, flight)
	s.Require().NoError(err)
	s.True(policy.IsCancelled)

	gained := new(big.Int).Sub(s.balance(s.buyer), before)
	s.Equal(0, gained.Cmp(policy.AmountPaid))
	s.Zero(s.balance(store.CustodyAccount).Sign())

	s.Run("payout after cancel is already settled", func() {
		_, err := s.oracles.SetFlightStatus(s.ctx, s.admin, flight, models.StatusLateAirline)
		s.Require().NoError(err)
		_, err = s.service.PayoutInsurance(s.ctx, s.buyer, flight)
		s.True(dErrors.HasCode(err, dErrors.CodeAlreadySettled))
	})

	s.Run("second cancel has no active policy", func() {
		_, err := s.service.CancelInsurance(s.ctx, s.buyer, flight)
		s.True(dErrors.HasCode(err, dErrors.CodeNoActivePolicy))
	})

	s.Run("cancelled policy cannot be topped up", func() {
		_, err := s.oracles.SetFlightStatus(s.ctx, s.admin, flight, models.StatusUnknown)
		s.Require().NoError(err)
		_, err = s.service.BuyInsurance(s.ctx, s.buyer, flight, domain.Wei(1))
		s.True(dErrors.HasCode(err, dErrors.CodeAlreadySettled))
	})
}

func (s *InsuranceServiceSuite) TestCancelWithoutPolicy() {
	_, err := s.service.CancelInsurance(s.ctx, s.buyer, flight)
	s.True(dErrors.HasCode(err, dErrors.CodeNoActivePolicy))
}

// =============================================================================
// Payout
// =============================================================================

func (s *InsuranceServiceSuite) TestPayoutAfterConsensus() {
	s.buy(domain.Ether(1))
	before := s.balance(s.buyer)

	s.reachConsensus(models.StatusLateAirline)

	policy, err := s.service.PayoutInsurance(s.ctx, s.buyer, flight)
	s.Require().NoError(err)
	s.True(policy.IsPaidOut)

	expected := new(big.Int).Div(new(big.Int).Mul(domain.Ether(1), big.NewInt(3)), big.NewInt(2))
	s.Equal(0, policy.Payout.Cmp(expected))
	gained := new(big.Int).Sub(s.balance(s.buyer), before)
	s.Equal(0, gained.Cmp(expected))

	s.Run("second payout is already settled", func() {
		_, err := s.service.PayoutInsurance(s.ctx, s.buyer, flight)
		s.True(dErrors.HasCode(err, dErrors.CodeAlreadySettled))
	})

	s.Run("view reflects payout", func() {
		view, err := s.service.GetInsurance(s.ctx, flight, s.buyer)
		s.Require().NoError(err)
		s.True(view.IsPaidOut)
		s.False(view.IsCancelled)
	})
}

func (s *InsuranceServiceSuite) TestPayoutRequiresAirlineDelay() {
	s.buy(domain.Wei(10))

	_, err := s.service.PayoutInsurance(s.ctx, s.buyer, flight)
	s.True(dErrors.HasCode(err, dErrors.CodeFlightNotDelayed))

	_, err = s.oracles.SetFlightStatus(s.ctx, s.admin, flight, models.StatusLateWeather)
	s.Require().NoError(err)
	_, err = s.service.PayoutInsurance(s.ctx, s.buyer, flight)
	s.True(dErrors.HasCode(err, dErrors.CodeFlightNotDelayed))
}

func (s *InsuranceServiceSuite) TestPayoutRoundsDown() {
	s.buy(domain.Wei(3))
	s.credit(store.CustodyAccount, domain.Wei(10))
	_, err := s.oracles.SetFlightStatus(s.ctx, s.admin, flight, models.StatusLateAirline)
	s.Require().NoError(err)

	policy, err := s.service.PayoutInsurance(s.ctx, s.buyer, flight)
	s.Require().NoError(err)
	s.Equal(0, policy.Payout.Cmp(domain.Wei(4)))
}

func (s *InsuranceServiceSuite) TestPayoutNeedsCustody() {
	s.buy(domain.Ether(1))
	_, err := s.oracles.SetFlightStatus(s.ctx, s.admin, flight, models.StatusLateAirline)
	s.Require().NoError(err)

	_, err = s.service.PayoutInsurance(s.ctx, s.buyer, flight)
	s.True(dErrors.HasCode(err, dErrors.CodeInsufficientCustody))

	view, err := s.service.GetInsurance(s.ctx, flight, s.buyer)
	s.Require().NoError(err)
	s.False(view.IsPaidOut)
}

func (s *InsuranceServiceSuite) TestPayoutWithoutPolicy() {
	_, err := s.service.PayoutInsurance(s.ctx, account(9), flight)
	s.True(dErrors.HasCode(err, dErrors.CodeNoActivePolicy))
}

func (s *InsuranceServiceSuite) TestHaltBlocksPurchases() {
	s.Require().NoError(guard.New(s.store).SetOperational(s.ctx, s.admin, false))
	_, err := s.service.BuyInsurance(s.ctx, s.buyer, flight, domain.Wei(1))
	s.True(dErrors.HasCode(err, dErrors.CodeNotOperational))

	view, err := s.service.GetInsurance(s.ctx, flight, s.buyer)
	s.Require().NoError(err)
	s.Zero(view.AmountPaid.Sign())
}
