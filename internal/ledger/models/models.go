// Package models holds the ledger entities. Constructors enforce the invariants
// that do not depend on other ledger state; cross-entity rules live in the engines.
package models

import (
	"math/big"
	"strings"
	"time"

	"flightsurety/pkg/domain"
	dErrors "flightsurety/pkg/domain-errors"
)

// MaxFlightCodeLength bounds flight keys such as "UAL925-20190801".
const MaxFlightCodeLength = 64

// StatusCode is the delay classification of a flight.
type StatusCode uint8

const (
	StatusUnknown       StatusCode = 0
	StatusOnTime        StatusCode = 10
	StatusLateAirline   StatusCode = 20
	StatusLateWeather   StatusCode = 30
	StatusLateTechnical StatusCode = 40
	StatusLateOther     StatusCode = 50
)

// IsValid reports whether the code is one of the defined values.
func (c StatusCode) IsValid() bool {
	switch c {
	case StatusUnknown, StatusOnTime, StatusLateAirline, StatusLateWeather, StatusLateTechnical, StatusLateOther:
		return true
	}
	return false
}

// IsFinal reports whether the code can be the outcome of consensus.
func (c StatusCode) IsFinal() bool {
	return c != StatusUnknown && c.IsValid()
}

func (c StatusCode) String() string {
	switch c {
	case StatusUnknown:
		return "unknown"
	case StatusOnTime:
		return "on_time"
	case StatusLateAirline:
		return "late_airline"
	case StatusLateWeather:
		return "late_weather"
	case StatusLateTechnical:
		return "late_technical"
	case StatusLateOther:
		return "late_other"
	}
	return "invalid"
}

// ParseStatusCode validates a numeric status supplied by a caller.
func ParseStatusCode(v int) (StatusCode, error) {
	if v < 0 || v > 255 || !StatusCode(v).IsValid() {
		return 0, dErrors.Newf(dErrors.CodeValidation, "unknown status code %d", v)
	}
	return StatusCode(v), nil
}

// StatusFromName is the inverse of StatusCode.String.
func StatusFromName(name string) (StatusCode, bool) {
	for _, c := range []StatusCode{StatusUnknown, StatusOnTime, StatusLateAirline, StatusLateWeather, StatusLateTechnical, StatusLateOther} {
		if c.String() == name {
			return c, true
		}
	}
	return 0, false
}

// FlightCode is the string key of a flight.
type FlightCode string

// ParseFlightCode trims and validates a flight key.
func ParseFlightCode(s string) (FlightCode, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", dErrors.New(dErrors.CodeValidation, "flight code cannot be empty")
	}
	if len(s) > MaxFlightCodeLength {
		return "", dErrors.New(dErrors.CodeValidation, "flight code too long")
	}
	return FlightCode(s), nil
}

func (f FlightCode) String() string {
	return string(f)
}

// Airline is a member (or candidate member) of the consortium.
type Airline struct {
	Address      domain.Address `json:"address"`
	Code         string         `json:"code"`
	Name         string         `json:"name"`
	IsRegistered bool           `json:"is_registered"`
	IsPaid       bool           `json:"is_paid"`
	Funded       *big.Int       `json:"funded"`
	Votes        int            `json:"votes"`
	RegisteredAt *time.Time     `json:"registered_at,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
}

// NewCandidateAirline creates an unregistered airline record.
func NewCandidateAirline(addr domain.Address, code, name string, now time.Time) (*Airline, error) {
	if addr.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "airline address cannot be empty")
	}
	return &Airline{
		Address:   addr,
		Code:      strings.TrimSpace(code),
		Name:      strings.TrimSpace(name),
		Funded:    new(big.Int),
		CreatedAt: now,
	}, nil
}

// MarkRegistered flips registration on. It never flips it back.
func (a *Airline) MarkRegistered(now time.Time) {
	if a.IsRegistered {
		return
	}
	a.IsRegistered = true
	a.RegisteredAt = &now
}

// AddStake records a deposit and reports whether the airline just became paid.
func (a *Airline) AddStake(amount, threshold *big.Int) bool {
	a.Funded = new(big.Int).Add(domain.CopyWei(a.Funded), amount)
	if a.IsPaid || a.Funded.Cmp(threshold) < 0 {
		return false
	}
	a.IsPaid = true
	return true
}

// CanVote reports whether the airline may admit or vote for others.
func (a *Airline) CanVote() bool {
	return a != nil && a.IsRegistered && a.IsPaid
}

// Clone returns a deep copy.
func (a *Airline) Clone() *Airline {
	if a == nil {
		return nil
	}
	c := *a
	c.Funded = domain.CopyWei(a.Funded)
	if a.RegisteredAt != nil {
		t := *a.RegisteredAt
		c.RegisteredAt = &t
	}
	return &c
}

// Flight is an insurable flight registered by an airline.
type Flight struct {
	Code         FlightCode     `json:"flight"`
	Airline      domain.Address `json:"airline"`
	Status       StatusCode     `json:"status_code"`
	IsRegistered bool           `json:"is_registered"`
	RegisteredAt time.Time      `json:"registered_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
}

// NewFlight creates a registered flight with UNKNOWN status.
func NewFlight(code FlightCode, airline domain.Address, now time.Time) (*Flight, error) {
	if code == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "flight code cannot be empty")
	}
	if airline.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "flight airline cannot be empty")
	}
	return &Flight{
		Code:         code,
		Airline:      airline,
		Status:       StatusUnknown,
		IsRegistered: true,
		RegisteredAt: now,
		UpdatedAt:    now,
	}, nil
}

// Clone returns a copy.
func (f *Flight) Clone() *Flight {
	if f == nil {
		return nil
	}
	c := *f
	return &c
}

// Policy is one purchaser's insurance on one flight.
type Policy struct {
	Flight      FlightCode     `json:"flight"`
	Purchaser   domain.Address `json:"purchaser"`
	AmountPaid  *big.Int       `json:"amount_paid"`
	IsCancelled bool           `json:"is_cancelled"`
	IsPaidOut   bool           `json:"is_paid_out"`
	Payout      *big.Int       `json:"payout,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

// IsTerminal reports whether the policy can no longer change.
func (p *Policy) IsTerminal() bool {
	return p.IsCancelled || p.IsPaidOut
}

// Clone returns a deep copy.
func (p *Policy) Clone() *Policy {
	if p == nil {
		return nil
	}
	c := *p
	c.AmountPaid = domain.CopyWei(p.AmountPaid)
	if p.Payout != nil {
		c.Payout = domain.CopyWei(p.Payout)
	}
	return &c
}

// PolicyView is the read projection returned to callers.
type PolicyView struct {
	Flight      FlightCode     `json:"flight"`
	Purchaser   domain.Address `json:"purchaser"`
	AmountPaid  *big.Int       `json:"amount_paid"`
	IsCancelled bool           `json:"is_cancelled"`
	IsPaidOut   bool           `json:"is_paid_out"`
}

// View projects a policy; a nil policy yields an empty view.
func (p *Policy) View(flight FlightCode, purchaser domain.Address) PolicyView {
	if p == nil {
		return PolicyView{Flight: flight, Purchaser: purchaser, AmountPaid: new(big.Int)}
	}
	return PolicyView{
		Flight:      p.Flight,
		Purchaser:   p.Purchaser,
		AmountPaid:  domain.CopyWei(p.AmountPaid),
		IsCancelled: p.IsCancelled,
		IsPaidOut:   p.IsPaidOut,
	}
}

// OracleIndexes are the three shard indexes an oracle may answer for.
type OracleIndexes [3]uint8

// Contains reports whether idx is one of the three.
func (o OracleIndexes) Contains(idx uint8) bool {
	return o[0] == idx || o[1] == idx || o[2] == idx
}

// Oracle is a registered status reporter.
type Oracle struct {
	Address      domain.Address `json:"address"`
	Indexes      OracleIndexes  `json:"indexes"`
	RegisteredAt time.Time      `json:"registered_at"`
}

// Clone returns a copy.
func (o *Oracle) Clone() *Oracle {
	if o == nil {
		return nil
	}
	c := *o
	return &c
}

// RequestKey identifies a status request.
type RequestKey struct {
	Index     uint8      `json:"index"`
	Flight    FlightCode `json:"flight"`
	Timestamp int64      `json:"timestamp"`
}

// StatusRequest aggregates oracle responses for one fetch.
type StatusRequest struct {
	Key         RequestKey                      `json:"key"`
	Requester   domain.Address                  `json:"requester"`
	IsOpen      bool                            `json:"is_open"`
	FinalStatus StatusCode                      `json:"final_status"`
	Responses   map[StatusCode][]domain.Address `json:"responses"`
	OpenedAt    time.Time                       `json:"opened_at"`
	ClosedAt    *time.Time                      `json:"closed_at,omitempty"`
	responders  map[StatusCode]map[domain.Address]struct{}
}

// NewStatusRequest opens a request.
func NewStatusRequest(key RequestKey, requester domain.Address, now time.Time) *StatusRequest {
	return &StatusRequest{
		Key:       key,
		Requester: requester,
		IsOpen:    true,
		Responses: make(map[StatusCode][]domain.Address),
		OpenedAt:  now,
	}
}

// HasResponse reports whether oracle already answered status for this request.
func (r *StatusRequest) HasResponse(status StatusCode, oracle domain.Address) bool {
	r.index()
	_, ok := r.responders[status][oracle]
	return ok
}

// AddResponse records a response and returns the new count for that status.
// A repeated (status, oracle) pair is a no-op.
func (r *StatusRequest) AddResponse(status StatusCode, oracle domain.Address) (count int, added bool) {
	r.index()
	if _, ok := r.responders[status][oracle]; ok {
		return len(r.Responses[status]), false
	}
	if r.responders[status] == nil {
		r.responders[status] = make(map[domain.Address]struct{})
	}
	r.responders[status][oracle] = struct{}{}
	r.Responses[status] = append(r.Responses[status], oracle)
	return len(r.Responses[status]), true
}

// ResponseCount returns the total number of accepted responses.
func (r *StatusRequest) ResponseCount() int {
	n := 0
	for _, oracles := range r.Responses {
		n += len(oracles)
	}
	return n
}

// Finalize closes the request with the quorum status.
func (r *StatusRequest) Finalize(status StatusCode, now time.Time) {
	r.IsOpen = false
	r.FinalStatus = status
	r.ClosedAt = &now
}

// Clone returns a deep copy.
func (r *StatusRequest) Clone() *StatusRequest {
	if r == nil {
		return nil
	}
	c := *r
	c.Responses = make(map[StatusCode][]domain.Address, len(r.Responses))
	for status, oracles := range r.Responses {
		c.Responses[status] = append([]domain.Address(nil), oracles...)
	}
	if r.ClosedAt != nil {
		t := *r.ClosedAt
		c.ClosedAt = &t
	}
	c.responders = nil
	return &c
}

func (r *StatusRequest) index() {
	if r.responders != nil {
		return
	}
	if r.Responses == nil {
		r.Responses = make(map[StatusCode][]domain.Address)
	}
	r.responders = make(map[StatusCode]map[domain.Address]struct{}, len(r.Responses))
	for status, oracles := range r.Responses {
		set := make(map[domain.Address]struct{}, len(oracles))
		for _, o := range oracles {
			set[o] = struct{}{}
		}
		r.responders[status] = set
	}
}

// LedgerState is the singleton row of global flags.
type LedgerState struct {
	Admin       domain.Address `json:"admin"`
	Operational bool           `json:"operational"`
	IndexNonce  uint64         `json:"index_nonce"`
}
