package store_test

import (
	"context"
	"errors"
	"math/big"
	"sync"
	"time"

	"github.com/stretchr/testify/suite"

	"flightsurety/internal/ledger/models"
	"flightsurety/internal/ledger/store"
	"flightsurety/pkg/domain"
)

var (
	adminAddr   = domain.MustAddress("0x627306090abab3a6e1400e9345bc60c78a8bef57")
	airlineAddr = domain.MustAddress("0xf17f52151ebef6c7334fad080c5704d77216b732")
	buyerAddr   = domain.MustAddress("0xc5fdf4076b8f3a5357c5e395ab970b5b54098fef")
	oracleAddr  = domain.MustAddress("0x821aea9a577a9b44299b9c15c88cf3087f3b5544")
)

var errAbort = errors.New("abort")

// storeContract exercises behaviour every Store implementation must share.
type storeContract struct {
	suite.Suite
	store store.Store
	now   time.Time
}

func (s *storeContract) genesis() {
	ctx := context.Background()
	err := s.store.RunInTx(ctx, func(tx store.Tx) error {
		return tx.SaveState(ctx, &models.LedgerState{Admin: adminAddr, Operational: true})
	})
	s.Require().NoError(err)
}

func (s *storeContract) TestStateBeforeGenesis() {
	ctx := context.Background()
	err := s.store.View(ctx, func(tx store.Tx) error {
		_, err := tx.State(ctx)
		return err
	})
	s.ErrorIs(err, store.ErrNotInitialized)
}

func (s *storeContract) TestRollbackDiscardsEveryWrite() {
	ctx := context.Background()
	s.genesis()

	err := s.store.RunInTx(ctx, func(tx store.Tx) error {
		airline, err := models.NewCandidateAirline(airlineAddr, "UAL", "United", s.now)
		s.Require().NoError(err)
		airline.MarkRegistered(s.now)
		s.Require().NoError(tx.SaveAirline(ctx, airline))
		s.Require().NoError(tx.SetBalance(ctx, buyerAddr, domain.Ether(5)))
		event, err := models.NewEvent(models.EventAirlineRegistered, models.AirlinePayload{Airline: airlineAddr.String()}, s.now)
		s.Require().NoError(err)
		s.Require().NoError(tx.AppendEvent(ctx, event))

		// staged writes are visible inside the transaction
		got, err := tx.Airline(ctx, airlineAddr)
		s.Require().NoError(err)
		s.True(got.IsRegistered)
		return errAbort
	})
	s.Require().ErrorIs(err, errAbort)

	err = s.store.View(ctx, func(tx store.Tx) error {
		_, err := tx.Airline(ctx, airlineAddr)
		s.ErrorIs(err, store.ErrNotFound)
		balance, err := tx.Balance(ctx, buyerAddr)
		s.Require().NoError(err)
		s.Zero(balance.Sign())
		return nil
	})
	s.Require().NoError(err)

	events, err := s.store.ListEvents(ctx, 0, 0)
	s.Require().NoError(err)
	s.Empty(events)
}

func (s *storeContract) TestAirlinesAndVotes() {
	ctx := context.Background()
	s.genesis()

	err := s.store.RunInTx(ctx, func(tx store.Tx) error {
		admin, err := models.NewCandidateAirline(adminAddr, "ADM", "Admin Air", s.now)
		s.Require().NoError(err)
		admin.MarkRegistered(s.now)
		admin.IsPaid = true
		s.Require().NoError(tx.SaveAirline(ctx, admin))

		candidate, err := models.NewCandidateAirline(airlineAddr, "UAL", "United", s.now)
		s.Require().NoError(err)
		candidate.Votes = 1
		s.Require().NoError(tx.SaveAirline(ctx, candidate))
		return tx.AddVote(ctx, airlineAddr, adminAddr, s.now)
	})
	s.Require().NoError(err)

	err = s.store.RunInTx(ctx, func(tx store.Tx) error {
		registered, paid, err := tx.CountAirlines(ctx)
		s.Require().NoError(err)
		s.Equal(1, registered)
		s.Equal(1, paid)

		voted, err := tx.HasVoted(ctx, airlineAddr, adminAddr)
		s.Require().NoError(err)
		s.True(voted)

		s.ErrorIs(tx.AddVote(ctx, airlineAddr, adminAddr, s.now), store.ErrConflict)

		got, err := tx.Airline(ctx, airlineAddr)
		s.Require().NoError(err)
		s.Equal(1, got.Votes)
		s.False(got.IsRegistered)
		s.Equal("UAL", got.Code)
		s.Zero(got.Funded.Sign())
		return nil
	})
	s.Require().NoError(err)
}

func (s *storeContract) TestFlightsAndPolicies() {
	ctx := context.Background()
	s.genesis()
	code := models.FlightCode("UAL925-20190805")

	err := s.store.RunInTx(ctx, func(tx store.Tx) error {
		flight, err := models.NewFlight(code, airlineAddr, s.now)
		s.Require().NoError(err)
		s.Require().NoError(tx.CreateFlight(ctx, flight))
		s.ErrorIs(tx.CreateFlight(ctx, flight), store.ErrConflict)

		return tx.SavePolicy(ctx, &models.Policy{
			Flight:     code,
			Purchaser:  buyerAddr,
			AmountPaid: domain.Ether(1),
			CreatedAt:  s.now,
			UpdatedAt:  s.now,
		})
	})
	s.Require().NoError(err)

	err = s.store.RunInTx(ctx, func(tx store.Tx) error {
		flight, err := tx.Flight(ctx, code)
		s.Require().NoError(err)
		flight.Status = models.StatusLateAirline
		s.Require().NoError(tx.UpdateFlight(ctx, flight))

		policy, err := tx.Policy(ctx, code, buyerAddr)
		s.Require().NoError(err)
		policy.IsPaidOut = true
		policy.Payout = new(big.Int).Mul(domain.Ether(1), big.NewInt(2))
		return tx.SavePolicy(ctx, policy)
	})
	s.Require().NoError(err)

	err = s.store.View(ctx, func(tx store.Tx) error {
		flight, err := tx.Flight(ctx, code)
		s.Require().NoError(err)
		s.Equal(models.StatusLateAirline, flight.Status)

		policy, err := tx.Policy(ctx, code, buyerAddr)
		s.Require().NoError(err)
		s.True(policy.IsPaidOut)
		s.Equal(0, policy.AmountPaid.Cmp(domain.Ether(1)))
		s.Equal(0, policy.Payout.Cmp(domain.Ether(2)))

		_, err = tx.Policy(ctx, code, adminAddr)
		s.ErrorIs(err, store.ErrNotFound)

		missing, err := models.NewFlight("NOPE", airlineAddr, s.now)
		s.Require().NoError(err)
		s.ErrorIs(tx.UpdateFlight(ctx, missing), store.ErrNotFound)
		return nil
	})
	s.Require().NoError(err)
}

func (s *storeContract) TestOracles() {
	ctx := context.Background()
	s.genesis()
	oracle := &models.Oracle{Address: oracleAddr, Indexes: models.OracleIndexes{7, 7, 2}, RegisteredAt: s.now}

	err := s.store.RunInTx(ctx, func(tx store.Tx) error {
		s.Require().NoError(tx.CreateOracle(ctx, oracle))
		s.ErrorIs(tx.CreateOracle(ctx, oracle), store.ErrConflict)
		return nil
	})
	s.Require().NoError(err)

	err = s.store.View(ctx, func(tx store.Tx) error {
		got, err := tx.Oracle(ctx, oracleAddr)
		s.Require().NoError(err)
		s.Equal(models.OracleIndexes{7, 7, 2}, got.Indexes)
		return nil
	})
	s.Require().NoError(err)
}

func (s *storeContract) TestStatusRequestLifecycle() {
	ctx := context.Background()
	s.genesis()
	code := models.FlightCode("UAL925-20190805")
	older := models.RequestKey{Index: 3, Flight: code, Timestamp: 100}
	newer := models.RequestKey{Index: 3, Flight: code, Timestamp: 200}

	err := s.store.RunInTx(ctx, func(tx store.Tx) error {
		first := models.NewStatusRequest(older, buyerAddr, s.now)
		first.AddResponse(models.StatusLateAirline, oracleAddr)
		s.Require().NoError(tx.SaveStatusRequest(ctx, first))
		return tx.SaveStatusRequest(ctx, models.NewStatusRequest(newer, buyerAddr, s.now.Add(time.Second)))
	})
	s.Require().NoError(err)

	err = s.store.RunInTx(ctx, func(tx store.Tx) error {
		latest, err := tx.LatestOpenRequest(ctx, 3, code)
		s.Require().NoError(err)
		s.Equal(newer, latest.Key)

		open, err := tx.OpenRequests(ctx, code)
		s.Require().NoError(err)
		s.Require().Len(open, 2)
		s.Equal(older, open[0].Key)
		s.Equal(1, open[0].ResponseCount())
		s.True(open[0].HasResponse(models.StatusLateAirline, oracleAddr))

		open[0].AddResponse(models.StatusLateAirline, adminAddr)
		open[0].Finalize(models.StatusLateAirline, s.now)
		s.Require().NoError(tx.SaveStatusRequest(ctx, open[0]))
		return tx.DeleteStatusRequest(ctx, newer)
	})
	s.Require().NoError(err)

	err = s.store.View(ctx, func(tx store.Tx) error {
		_, err := tx.LatestOpenRequest(ctx, 3, code)
		s.ErrorIs(err, store.ErrNotFound)

		closed, err := tx.StatusRequest(ctx, older)
		s.Require().NoError(err)
		s.False(closed.IsOpen)
		s.Equal(models.StatusLateAirline, closed.FinalStatus)
		s.Equal(2, closed.ResponseCount())

		_, err = tx.StatusRequest(ctx, newer)
		s.ErrorIs(err, store.ErrNotFound)
		return nil
	})
	s.Require().NoError(err)
}

func (s *storeContract) TestEvictStaleRequests() {
	ctx := context.Background()
	s.genesis()
	code := models.FlightCode("DAL1-20190805")

	err := s.store.RunInTx(ctx, func(tx store.Tx) error {
		s.Require().NoError(tx.SaveStatusRequest(ctx, models.NewStatusRequest(
			models.RequestKey{Index: 1, Flight: code, Timestamp: 1}, buyerAddr, s.now.Add(-2*time.Hour))))
		closed := models.NewStatusRequest(models.RequestKey{Index: 2, Flight: code, Timestamp: 1}, buyerAddr, s.now.Add(-2*time.Hour))
		closed.Finalize(models.StatusOnTime, s.now)
		s.Require().NoError(tx.SaveStatusRequest(ctx, closed))
		return tx.SaveStatusRequest(ctx, models.NewStatusRequest(
			models.RequestKey{Index: 3, Flight: code, Timestamp: 2}, buyerAddr, s.now))
	})
	s.Require().NoError(err)

	evicted, err := s.store.EvictStaleRequests(ctx, s.now.Add(-time.Hour))
	s.Require().NoError(err)
	s.Equal(1, evicted)

	err = s.store.View(ctx, func(tx store.Tx) error {
		open, err := tx.OpenRequests(ctx, code)
		s.Require().NoError(err)
		s.Require().Len(open, 1)
		s.Equal(uint8(3), open[0].Key.Index)
		return nil
	})
	s.Require().NoError(err)
}

func (s *storeContract) TestEvictionWaitsForWriters() {
	ctx := context.Background()
	s.genesis()
	key := models.RequestKey{Index: 4, Flight: "DAL2-20190805", Timestamp: 1}

	err := s.store.RunInTx(ctx, func(tx store.Tx) error {
		return tx.SaveStatusRequest(ctx, models.NewStatusRequest(key, buyerAddr, s.now.Add(-2*time.Hour)))
	})
	s.Require().NoError(err)

	type outcome struct {
		evicted int
		err     error
	}
	done := make(chan outcome, 1)
	err = s.store.RunInTx(ctx, func(tx store.Tx) error {
		req, err := tx.StatusRequest(ctx, key)
		s.Require().NoError(err)

		go func() {
			n, err := s.store.EvictStaleRequests(ctx, s.now.Add(-time.Hour))
			done <- outcome{evicted: n, err: err}
		}()
		select {
		case <-done:
			s.Fail("eviction ran while a write transaction was open")
		case <-time.After(100 * time.Millisecond):
		}

		req.AddResponse(models.StatusLateAirline, oracleAddr)
		return tx.SaveStatusRequest(ctx, req)
	})
	s.Require().NoError(err)

	res := <-done
	s.Require().NoError(res.err)
	s.Equal(1, res.evicted)

	err = s.store.View(ctx, func(tx store.Tx) error {
		_, err := tx.StatusRequest(ctx, key)
		s.ErrorIs(err, store.ErrNotFound, "eviction must not be undone by the earlier writer")
		return nil
	})
	s.Require().NoError(err)
}

func (s *storeContract) TestBalances() {
	ctx := context.Background()
	s.genesis()

	err := s.store.RunInTx(ctx, func(tx store.Tx) error {
		s.Require().NoError(tx.SetBalance(ctx, buyerAddr, domain.Ether(3)))
		return tx.SetBalance(ctx, store.CustodyAccount, domain.Ether(1))
	})
	s.Require().NoError(err)

	err = s.store.View(ctx, func(tx store.Tx) error {
		buyer, err := tx.Balance(ctx, buyerAddr)
		s.Require().NoError(err)
		s.Equal(0, buyer.Cmp(domain.Ether(3)))
		custody, err := tx.Balance(ctx, store.CustodyAccount)
		s.Require().NoError(err)
		s.Equal(0, custody.Cmp(domain.Ether(1)))
		unknown, err := tx.Balance(ctx, oracleAddr)
		s.Require().NoError(err)
		s.Zero(unknown.Sign())
		return nil
	})
	s.Require().NoError(err)
}

func (s *storeContract) TestEventOutbox() {
	ctx := context.Background()
	s.genesis()

	for i := 0; i < 3; i++ {
		err := s.store.RunInTx(ctx, func(tx store.Tx) error {
			event, err := models.NewEvent(models.EventOracleRequest, models.OracleRequestPayload{
				Index: uint8(i), Flight: "UAL925", Timestamp: int64(i),
			}, s.now)
			s.Require().NoError(err)
			return tx.AppendEvent(ctx, event)
		})
		s.Require().NoError(err)
	}

	all, err := s.store.ListEvents(ctx, 0, 0)
	s.Require().NoError(err)
	s.Require().Len(all, 3)
	s.Less(all[0].Seq, all[1].Seq)
	s.Less(all[1].Seq, all[2].Seq)

	var payload models.OracleRequestPayload
	s.Require().NoError(all[2].Decode(&payload))
	s.Equal(uint8(2), payload.Index)

	after, err := s.store.ListEvents(ctx, all[0].Seq, 1)
	s.Require().NoError(err)
	s.Require().Len(after, 1)
	s.Equal(all[1].ID, after[0].ID)

	s.Require().NoError(s.store.MarkDispatched(ctx, []int64{all[0].Seq, all[1].Seq}, s.now))
	pending, err := s.store.PendingEvents(ctx, 10)
	s.Require().NoError(err)
	s.Require().Len(pending, 1)
	s.Equal(all[2].Seq, pending[0].Seq)
}

// TestConcurrentWritersSerialize checks that read-modify-write cycles never
// lose an update when many transactions race on one balance.
func (s *storeContract) TestConcurrentWritersSerialize() {
	ctx := context.Background()
	s.genesis()
	const goroutines = 25

	var wg sync.WaitGroup
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := s.store.RunInTx(ctx, func(tx store.Tx) error {
				balance, err := tx.Balance(ctx, store.CustodyAccount)
				if err != nil {
					return err
				}
				return tx.SetBalance(ctx, store.CustodyAccount, balance.Add(balance, big.NewInt(1)))
			})
			s.NoError(err)
		}()
	}
	wg.Wait()

	err := s.store.View(ctx, func(tx store.Tx) error {
		balance, err := tx.Balance(ctx, store.CustodyAccount)
		s.Require().NoError(err)
		s.Equal(int64(goroutines), balance.Int64())
		return nil
	})
	s.Require().NoError(err)
}
