package handler

import (
	"flightsurety/internal/ledger/models"
	"flightsurety/pkg/domain"
)

// PolicyResponse is the public view of a policy. Amounts are decimal wei.
type PolicyResponse struct {
	Flight      string `json:"flight"`
	Purchaser   string `json:"purchaser"`
	AmountPaid  string `json:"amount_paid"`
	IsCancelled bool   `json:"is_cancelled"`
	IsPaidOut   bool   `json:"is_paid_out"`
	Payout      string `json:"payout,omitempty"`
	Refunded    string `json:"refunded,omitempty"`
}

func toPolicyResponse(p *models.Policy) PolicyResponse {
	resp := PolicyResponse{
		Flight:      p.Flight.String(),
		Purchaser:   p.Purchaser.String(),
		AmountPaid:  domain.CopyWei(p.AmountPaid).String(),
		IsCancelled: p.IsCancelled,
		IsPaidOut:   p.IsPaidOut,
	}
	if p.Payout != nil {
		resp.Payout = p.Payout.String()
	}
	return resp
}
