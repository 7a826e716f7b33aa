package handler

import (
	"strings"

	"flightsurety/internal/ledger/models"
	"flightsurety/pkg/domain"
	dErrors "flightsurety/pkg/domain-errors"
)

const maxAirlineNameLength = 128

// RegisterAirlineRequest is the body of POST /airlines.
type RegisterAirlineRequest struct {
	Address string `json:"address"`
	Code    string `json:"code"`
	Name    string `json:"name"`

	address domain.Address
}

// Validate implements httputil.Validatable.
func (r *RegisterAirlineRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	r.Code = strings.TrimSpace(r.Code)
	r.Name = strings.TrimSpace(r.Name)
	if len(r.Code) > models.MaxFlightCodeLength || len(r.Name) > maxAirlineNameLength {
		return dErrors.New(dErrors.CodeValidation, "airline code or name too long")
	}
	addr, err := domain.ParseAddress(r.Address)
	if err != nil {
		return err
	}
	r.address = addr
	return nil
}

// RegisterFlightRequest is the body of POST /flights.
type RegisterFlightRequest struct {
	Flight string `json:"flight"`

	code models.FlightCode
}

// Validate implements httputil.Validatable.
func (r *RegisterFlightRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	code, err := models.ParseFlightCode(r.Flight)
	if err != nil {
		return err
	}
	r.code = code
	return nil
}
