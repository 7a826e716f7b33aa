package handler

import (
	"time"

	"flightsurety/internal/ledger/models"
	"flightsurety/pkg/domain"
)

// RegistrationResponse is returned by POST /airlines.
type RegistrationResponse struct {
	Airline    string `json:"airline"`
	Registered bool   `json:"registered"`
	Votes      int    `json:"votes"`
	Voted      bool   `json:"voted"`
}

// AirlineResponse is the public view of an airline.
type AirlineResponse struct {
	Address      string     `json:"address"`
	Code         string     `json:"code,omitempty"`
	Name         string     `json:"name,omitempty"`
	IsRegistered bool       `json:"is_registered"`
	IsPaid       bool       `json:"is_paid"`
	Funded       string     `json:"funded"`
	Votes        int        `json:"votes"`
	RegisteredAt *time.Time `json:"registered_at,omitempty"`
}

// PaidCountResponse is returned by GET /airlines/paid-count.
type PaidCountResponse struct {
	PaidAirlines int `json:"paid_airlines"`
}

// FlightResponse is the public view of a flight.
type FlightResponse struct {
	Flight       string    `json:"flight"`
	Airline      string    `json:"airline"`
	StatusCode   uint8     `json:"status_code"`
	Status       string    `json:"status"`
	IsRegistered bool      `json:"is_registered"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func toAirlineResponse(a *models.Airline) AirlineResponse {
	return AirlineResponse{
		Address:      a.Address.String(),
		Code:         a.Code,
		Name:         a.Name,
		IsRegistered: a.IsRegistered,
		IsPaid:       a.IsPaid,
		Funded:       domain.CopyWei(a.Funded).String(),
		Votes:        a.Votes,
		RegisteredAt: a.RegisteredAt,
	}
}

// ToFlightResponse renders a flight; the oracle handler reuses it.
func ToFlightResponse(f *models.Flight) FlightResponse {
	return FlightResponse{
		Flight:       f.Code.String(),
		Airline:      f.Airline.String(),
		StatusCode:   uint8(f.Status),
		Status:       f.Status.String(),
		IsRegistered: f.IsRegistered,
		UpdatedAt:    f.UpdatedAt,
	}
}
