package accounts_test

import (
	"context"
	"math/big"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"flightsurety/internal/accounts"
	"flightsurety/internal/governance"
	"flightsurety/internal/ledger/guard"
	"flightsurety/internal/ledger/models"
	"flightsurety/internal/ledger/store"
	"flightsurety/internal/platform/config"
	"flightsurety/pkg/domain"
	dErrors "flightsurety/pkg/domain-errors"
	"flightsurety/pkg/requestcontext"
)

var (
	adminAddr = domain.MustAddress("0x627306090abab3a6e1400e9345bc60c78a8bef57")
	buyerAddr = domain.MustAddress("0xc5fdf4076b8f3a5357c5e395ab970b5b54098fef")
)

type AccountsServiceSuite struct {
	suite.Suite
	ctx        context.Context
	store      *store.InMemoryStore
	service    *accounts.Service
	governance *governance.Service
}

func TestAccountsServiceSuite(t *testing.T) {
	suite.Run(t, new(AccountsServiceSuite))
}

func (s *AccountsServiceSuite) SetupTest() {
	s.ctx = requestcontext.WithTime(context.Background(), time.Date(2019, 8, 5, 12, 0, 0, 0, time.UTC))
	s.store = store.NewInMemory()
	s.service = accounts.New(s.store)
	s.governance = governance.New(s.store, config.DefaultLedger())
	s.Require().NoError(s.governance.Bootstrap(s.ctx, adminAddr))
}

func (s *AccountsServiceSuite) TestCredit() {
	s.Run("administrator credits an account", func() {
		balance, err := s.service.Credit(s.ctx, adminAddr, buyerAddr, domain.Ether(3))
		s.Require().NoError(err)
		s.Equal(0, balance.Cmp(domain.Ether(3)))

		balance, err = s.service.Credit(s.ctx, adminAddr, buyerAddr, domain.Wei(1))
		s.Require().NoError(err)
		s.Equal(0, balance.Cmp(new(big.Int).Add(domain.Ether(3), domain.Wei(1))))
	})

	s.Run("others cannot", func() {
		_, err := s.service.Credit(s.ctx, buyerAddr, buyerAddr, domain.Ether(1))
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})

	s.Run("custody cannot be credited directly", func() {
		_, err := s.service.Credit(s.ctx, adminAddr, store.CustodyAccount, domain.Ether(1))
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("amount must be positive", func() {
		_, err := s.service.Credit(s.ctx, adminAddr, buyerAddr, domain.Wei(0))
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("each credit emits one event", func() {
		events, err := s.store.ListEvents(s.ctx, 0, 0)
		s.Require().NoError(err)
		credited := 0
		for _, e := range events {
			if e.Type == models.EventAccountCredited {
				credited++
			}
		}
		s.Equal(2, credited)
	})
}

func (s *AccountsServiceSuite) TestBalances() {
	balance, err := s.service.BalanceOf(s.ctx, buyerAddr)
	s.Require().NoError(err)
	s.Zero(balance.Sign())

	_, err = s.service.Credit(s.ctx, adminAddr, adminAddr, domain.Ether(10))
	s.Require().NoError(err)
	_, err = s.governance.AirlinePay(s.ctx, adminAddr, domain.Ether(10))
	s.Require().NoError(err)

	held, err := s.service.CustodyBalance(s.ctx)
	s.Require().NoError(err)
	s.Equal(0, held.Cmp(domain.Ether(10)))
	balance, err = s.service.BalanceOf(s.ctx, adminAddr)
	s.Require().NoError(err)
	s.Zero(balance.Sign())
}

func (s *AccountsServiceSuite) TestCreditWhileHalted() {
	s.Require().NoError(guard.New(s.store).SetOperational(s.ctx, adminAddr, false))
	_, err := s.service.Credit(s.ctx, adminAddr, buyerAddr, domain.Ether(1))
	s.True(dErrors.HasCode(err, dErrors.CodeNotOperational))
}
