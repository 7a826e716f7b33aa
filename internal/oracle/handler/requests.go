package handler

import (
	"flightsurety/internal/ledger/models"
	dErrors "flightsurety/pkg/domain-errors"
)

// SubmitResponseRequest is the body of POST /oracle-responses. A zero
// timestamp targets the most recent open request for the index.
type SubmitResponseRequest struct {
	Index     int    `json:"index"`
	Flight    string `json:"flight"`
	Timestamp int64  `json:"timestamp"`
	Status    int    `json:"status"`

	index  uint8
	code   models.FlightCode
	status models.StatusCode
}

// Validate implements httputil.Validatable.
func (r *SubmitResponseRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	if r.Index < 0 || r.Index > 255 {
		return dErrors.New(dErrors.CodeValidation, "index out of range")
	}
	if r.Timestamp < 0 {
		return dErrors.New(dErrors.CodeValidation, "timestamp cannot be negative")
	}
	code, err := models.ParseFlightCode(r.Flight)
	if err != nil {
		return err
	}
	status, err := models.ParseStatusCode(r.Status)
	if err != nil {
		return err
	}
	r.index = uint8(r.Index)
	r.code = code
	r.status = status
	return nil
}

// SetStatusRequest is the body of PUT /admin/flights/{flight}/status.
type SetStatusRequest struct {
	Status int `json:"status"`

	status models.StatusCode
}

// Validate implements httputil.Validatable.
func (r *SetStatusRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	status, err := models.ParseStatusCode(r.Status)
	if err != nil {
		return err
	}
	r.status = status
	return nil
}
