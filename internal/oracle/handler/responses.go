package handler

import (
	"time"

	"flightsurety/internal/ledger/models"
)

// FeeResponse is returned by GET /oracles/fee.
type FeeResponse struct {
	Fee string `json:"fee"`
}

// OracleResponse describes an oracle and its indexes.
type OracleResponse struct {
	Oracle  string `json:"oracle"`
	Indexes []int  `json:"indexes"`
}

// StatusRequestResponse is returned when a status request opens.
type StatusRequestResponse struct {
	Index     uint8     `json:"index"`
	Flight    string    `json:"flight"`
	Timestamp int64     `json:"timestamp"`
	IsOpen    bool      `json:"is_open"`
	OpenedAt  time.Time `json:"opened_at"`
}

// SubmissionResponse is returned by POST /oracle-responses.
type SubmissionResponse struct {
	Index        uint8  `json:"index"`
	Flight       string `json:"flight"`
	Timestamp    int64  `json:"timestamp"`
	Accepted     bool   `json:"accepted"`
	Responses    int    `json:"responses"`
	Finalized    bool   `json:"finalized"`
	FlightStatus string `json:"flight_status"`
}

func toStatusRequestResponse(r *models.StatusRequest) StatusRequestResponse {
	return StatusRequestResponse{
		Index:     r.Key.Index,
		Flight:    r.Key.Flight.String(),
		Timestamp: r.Key.Timestamp,
		IsOpen:    r.IsOpen,
		OpenedAt:  r.OpenedAt,
	}
}

func indexList(indexes models.OracleIndexes) []int {
	out := make([]int, len(indexes))
	for i, idx := range indexes {
		out[i] = int(idx)
	}
	return out
}
