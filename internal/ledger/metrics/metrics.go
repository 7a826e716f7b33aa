package metrics

import (
	"math/big"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"flightsurety/pkg/domain"
)

// Metrics holds the ledger state machine collectors shared by every engine.
type Metrics struct {
	OperationsTotal     *prometheus.CounterVec
	OperationDuration   *prometheus.HistogramVec
	AirlinesRegistered  prometheus.Counter
	AirlineVotes        prometheus.Counter
	OracleResponses     *prometheus.CounterVec
	ConsensusReached    *prometheus.CounterVec
	StatusRequestsOpen  prometheus.Counter
	StatusRequestsEvict prometheus.Counter
	PremiumsEther       prometheus.Counter
	PayoutsEther        prometheus.Counter
	RefundsEther        prometheus.Counter
	EventsDispatched    *prometheus.CounterVec
	CacheLookups        *prometheus.CounterVec
	Operational         prometheus.Gauge
}

// New registers the collectors with the default registry.
func New() *Metrics {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

// NewWithRegistry registers the collectors with reg.
func NewWithRegistry(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		OperationsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "flightsurety_ledger_operations_total",
			Help: "Ledger operations by engine, operation and outcome code",
		}, []string{"engine", "operation", "outcome"}),
		OperationDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "flightsurety_ledger_operation_duration_seconds",
			Help:    "Latency of ledger operations including the store transaction",
			Buckets: []float64{.0005, .001, .0025, .005, .01, .025, .05, .1, .25, .5, 1},
		}, []string{"engine", "operation"}),
		AirlinesRegistered: f.NewCounter(prometheus.CounterOpts{
			Name: "flightsurety_airlines_registered_total",
			Help: "Airlines whose registration flipped to true",
		}),
		AirlineVotes: f.NewCounter(prometheus.CounterOpts{
			Name: "flightsurety_airline_votes_total",
			Help: "Distinct admission votes recorded",
		}),
		OracleResponses: f.NewCounterVec(prometheus.CounterOpts{
			Name: "flightsurety_oracle_responses_total",
			Help: "Oracle responses by outcome (accepted, duplicate, late)",
		}, []string{"outcome"}),
		ConsensusReached: f.NewCounterVec(prometheus.CounterOpts{
			Name: "flightsurety_oracle_consensus_total",
			Help: "Status requests finalized by quorum, by status",
		}, []string{"status"}),
		StatusRequestsOpen: f.NewCounter(prometheus.CounterOpts{
			Name: "flightsurety_status_requests_opened_total",
			Help: "Flight status requests opened",
		}),
		StatusRequestsEvict: f.NewCounter(prometheus.CounterOpts{
			Name: "flightsurety_status_requests_evicted_total",
			Help: "Open status requests evicted by TTL or per-flight cap",
		}),
		PremiumsEther: f.NewCounter(prometheus.CounterOpts{
			Name: "flightsurety_premiums_ether_total",
			Help: "Premiums moved into custody, in ether",
		}),
		PayoutsEther: f.NewCounter(prometheus.CounterOpts{
			Name: "flightsurety_payouts_ether_total",
			Help: "Insurance payouts released from custody, in ether",
		}),
		RefundsEther: f.NewCounter(prometheus.CounterOpts{
			Name: "flightsurety_refunds_ether_total",
			Help: "Cancellation refunds released from custody, in ether",
		}),
		EventsDispatched: f.NewCounterVec(prometheus.CounterOpts{
			Name: "flightsurety_events_dispatched_total",
			Help: "Outbox events delivered to sinks, by sink and outcome",
		}, []string{"sink", "outcome"}),
		CacheLookups: f.NewCounterVec(prometheus.CounterOpts{
			Name: "flightsurety_flight_cache_lookups_total",
			Help: "Flight view cache lookups by result (hit, miss, error)",
		}, []string{"result"}),
		Operational: f.NewGauge(prometheus.GaugeOpts{
			Name: "flightsurety_ledger_operational",
			Help: "1 when the ledger accepts mutating operations",
		}),
	}
}

// ObserveOperation records one engine call.
func (m *Metrics) ObserveOperation(engine, operation, outcome string, seconds float64) {
	m.OperationsTotal.WithLabelValues(engine, operation, outcome).Inc()
	m.OperationDuration.WithLabelValues(engine, operation).Observe(seconds)
}

// AddEther adds a wei amount to an ether-denominated counter.
func AddEther(c prometheus.Counter, wei *big.Int) {
	if wei == nil || wei.Sign() <= 0 {
		return
	}
	v, _ := new(big.Float).Quo(new(big.Float).SetInt(wei), new(big.Float).SetInt(domain.WeiPerEther)).Float64()
	c.Add(v)
}

// SetOperational mirrors the kill-switch.
func (m *Metrics) SetOperational(operational bool) {
	if operational {
		m.Operational.Set(1)
		return
	}
	m.Operational.Set(0)
}
