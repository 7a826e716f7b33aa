package httputil

import (
	"math/big"

	"flightsurety/pkg/domain"
	dErrors "flightsurety/pkg/domain-errors"
)

// AmountRequest is a body carrying a positive decimal wei amount.
type AmountRequest struct {
	Amount string `json:"amount"`

	wei *big.Int
}

// Validate implements Validatable.
func (r *AmountRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	amount, err := domain.ParsePositiveWei(r.Amount)
	if err != nil {
		return err
	}
	r.wei = amount
	return nil
}

// Wei returns the parsed amount. It is nil before Validate succeeds.
func (r *AmountRequest) Wei() *big.Int {
	return r.wei
}
