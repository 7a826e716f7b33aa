package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// EventType names an outbound ledger notification.
type EventType string

const (
	EventOperationalChanged     EventType = "operational_changed"
	EventAccountCredited        EventType = "account_credited"
	EventAirlineRegistered      EventType = "airline_registered"
	EventAirlineVoted           EventType = "airline_voted"
	EventAirlineFunded          EventType = "airline_funded"
	EventFlightRegistered       EventType = "flight_registered"
	EventOracleRegistered       EventType = "oracle_registered"
	EventOracleRequest          EventType = "oracle_request"
	EventOracleReport           EventType = "oracle_report"
	EventFlightStatusInfo       EventType = "flight_status_info"
	EventFlightStatusOverridden EventType = "flight_status_overridden"
	EventInsurancePurchased     EventType = "insurance_purchased"
	EventInsuranceCancelled     EventType = "insurance_cancelled"
	EventInsurancePaid          EventType = "insurance_paid"
)

// Event is an outbox row. Seq is assigned by the store on append and is
// strictly increasing.
type Event struct {
	Seq          int64           `json:"seq"`
	ID           uuid.UUID       `json:"id"`
	Type         EventType       `json:"type"`
	Payload      json.RawMessage `json:"payload"`
	CreatedAt    time.Time       `json:"created_at"`
	DispatchedAt *time.Time      `json:"dispatched_at,omitempty"`
}

// NewEvent marshals payload into a fresh event.
func NewEvent(eventType EventType, payload any, now time.Time) (*Event, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return &Event{
		ID:        uuid.New(),
		Type:      eventType,
		Payload:   raw,
		CreatedAt: now,
	}, nil
}

// Decode unmarshals the payload into v.
func (e *Event) Decode(v any) error {
	return json.Unmarshal(e.Payload, v)
}

// OracleRequestPayload is what relays forward to oracle clients.
type OracleRequestPayload struct {
	Index     uint8      `json:"index"`
	Flight    FlightCode `json:"flight"`
	Timestamp int64      `json:"timestamp"`
}

// OracleReportPayload records one accepted oracle response.
type OracleReportPayload struct {
	Index     uint8      `json:"index"`
	Flight    FlightCode `json:"flight"`
	Timestamp int64      `json:"timestamp"`
	Status    StatusCode `json:"status"`
	Oracle    string     `json:"oracle"`
}

// FlightStatusPayload announces a finalized or overridden status.
type FlightStatusPayload struct {
	Flight    FlightCode `json:"flight"`
	Status    StatusCode `json:"status"`
	Index     uint8      `json:"index,omitempty"`
	Timestamp int64      `json:"timestamp,omitempty"`
}

// AirlinePayload describes governance changes.
type AirlinePayload struct {
	Airline    string `json:"airline"`
	Voter      string `json:"voter,omitempty"`
	Votes      int    `json:"votes,omitempty"`
	Registered bool   `json:"registered"`
	Paid       bool   `json:"paid,omitempty"`
	Amount     string `json:"amount,omitempty"`
}

// FlightPayload describes a flight registration.
type FlightPayload struct {
	Flight  FlightCode `json:"flight"`
	Airline string     `json:"airline"`
}

// OraclePayload describes an oracle registration.
type OraclePayload struct {
	Oracle  string        `json:"oracle"`
	Indexes OracleIndexes `json:"indexes"`
}

// InsurancePayload describes policy movements.
type InsurancePayload struct {
	Flight    FlightCode `json:"flight"`
	Purchaser string     `json:"purchaser"`
	Amount    string     `json:"amount"`
}

// AccountPayload describes balance credits.
type AccountPayload struct {
	Account string `json:"account"`
	Amount  string `json:"amount"`
}

// OperationalPayload describes kill-switch toggles.
type OperationalPayload struct {
	Operational bool `json:"operational"`
}
