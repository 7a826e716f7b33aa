package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"flightsurety/pkg/domain"
	dErrors "flightsurety/pkg/domain-errors"
)

var (
	oracleA = domain.MustAddress("0x00000000000000000000000000000000000000a1")
	oracleB = domain.MustAddress("0x00000000000000000000000000000000000000a2")
)

func TestStatusCode(t *testing.T) {
	t.Run("parse rejects unknown values", func(t *testing.T) {
		_, err := ParseStatusCode(15)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
	})

	t.Run("unknown is valid but not final", func(t *testing.T) {
		code, err := ParseStatusCode(0)
		require.NoError(t, err)
		assert.False(t, code.IsFinal())
	})

	t.Run("late airline is final", func(t *testing.T) {
		code, err := ParseStatusCode(20)
		require.NoError(t, err)
		assert.Equal(t, StatusLateAirline, code)
		assert.True(t, code.IsFinal())
	})
}

func TestParseFlightCode(t *testing.T) {
	code, err := ParseFlightCode("  UAL925-20190801 ")
	require.NoError(t, err)
	assert.Equal(t, FlightCode("UAL925-20190801"), code)

	_, err = ParseFlightCode("   ")
	require.Error(t, err)
}

func TestAirlineStake(t *testing.T) {
	airline, err := NewCandidateAirline(oracleA, "UA", "United", time.Now())
	require.NoError(t, err)

	assert.False(t, airline.AddStake(domain.Ether(4), domain.Ether(10)), "below threshold stays unpaid")
	assert.False(t, airline.IsPaid)
	assert.True(t, airline.AddStake(domain.Ether(6), domain.Ether(10)), "crossing threshold flips paid")
	assert.False(t, airline.AddStake(domain.Ether(1), domain.Ether(10)), "paid flips only once")
	assert.Equal(t, 0, airline.Funded.Cmp(domain.Ether(11)))
}

func TestAirlineMarkRegisteredIsMonotonic(t *testing.T) {
	airline, err := NewCandidateAirline(oracleA, "UA", "United", time.Now())
	require.NoError(t, err)
	first := time.Unix(100, 0)
	airline.MarkRegistered(first)
	airline.MarkRegistered(time.Unix(200, 0))
	assert.True(t, airline.IsRegistered)
	assert.Equal(t, first, *airline.RegisteredAt)
}

func TestStatusRequestResponses(t *testing.T) {
	req := NewStatusRequest(RequestKey{Index: 3, Flight: "F1", Timestamp: 1}, oracleA, time.Now())

	count, added := req.AddResponse(StatusOnTime, oracleA)
	assert.True(t, added)
	assert.Equal(t, 1, count)

	count, added = req.AddResponse(StatusOnTime, oracleA)
	assert.False(t, added, "duplicate response must be a no-op")
	assert.Equal(t, 1, count)

	count, _ = req.AddResponse(StatusOnTime, oracleB)
	assert.Equal(t, 2, count)
	assert.Equal(t, 2, req.ResponseCount())

	clone := req.Clone()
	assert.True(t, clone.HasResponse(StatusOnTime, oracleB), "clone rebuilds its index lazily")
	clone.AddResponse(StatusLateWeather, oracleA)
	assert.Equal(t, 2, req.ResponseCount(), "clone must not alias the original")
}

func TestOracleIndexesContains(t *testing.T) {
	idx := OracleIndexes{1, 1, 7}
	assert.True(t, idx.Contains(1))
	assert.True(t, idx.Contains(7))
	assert.False(t, idx.Contains(2))
}
