package handler

import (
	"context"
	"log/slog"
	"math/big"
	"net/http"

	"github.com/go-chi/chi/v5"

	govhandler "flightsurety/internal/governance/handler"
	"flightsurety/internal/ledger/models"
	"flightsurety/internal/oracle"
	"flightsurety/pkg/domain"
	dErrors "flightsurety/pkg/domain-errors"
	"flightsurety/pkg/platform/httputil"
	"flightsurety/pkg/requestcontext"
)

// Service defines the oracle operations exposed over HTTP.
type Service interface {
	GetRegistrationFee() *big.Int
	RegisterOracle(ctx context.Context, caller domain.Address, amount *big.Int) (*models.Oracle, error)
	GetMyIndexes(ctx context.Context, caller domain.Address) (models.OracleIndexes, error)
	FetchFlightStatus(ctx context.Context, caller domain.Address, code models.FlightCode) (*models.StatusRequest, error)
	SubmitOracleResponse(ctx context.Context, caller domain.Address, index uint8, code models.FlightCode, timestamp int64, status models.StatusCode) (*oracle.SubmissionResult, error)
	SetFlightStatus(ctx context.Context, caller domain.Address, code models.FlightCode, status models.StatusCode) (*models.Flight, error)
}

// Handler wires oracle endpoints to the consensus engine.
type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts the public read endpoints.
func (h *Handler) Register(r chi.Router) {
	r.Get("/oracles/fee", h.HandleFee)
}

// RegisterProtected mounts endpoints that require an authenticated caller.
func (h *Handler) RegisterProtected(r chi.Router) {
	r.Post("/oracles", h.HandleRegisterOracle)
	r.Get("/oracles/me/indexes", h.HandleMyIndexes)
	r.Post("/flights/{flight}/status-requests", h.HandleFetchFlightStatus)
	r.Post("/oracle-responses", h.HandleSubmitResponse)
	r.Put("/admin/flights/{flight}/status", h.HandleSetFlightStatus)
}

// HandleFee handles GET /oracles/fee.
func (h *Handler) HandleFee(w http.ResponseWriter, _ *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, FeeResponse{Fee: h.service.GetRegistrationFee().String()})
}

// HandleRegisterOracle handles POST /oracles.
func (h *Handler) HandleRegisterOracle(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	caller, ok := h.requireCaller(w, ctx)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[httputil.AmountRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}

	registered, err := h.service.RegisterOracle(ctx, caller, req.Wei())
	if err != nil {
		h.logFailure(ctx, "register oracle", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, OracleResponse{
		Oracle:  registered.Address.String(),
		Indexes: indexList(registered.Indexes),
	})
}

// HandleMyIndexes handles GET /oracles/me/indexes.
func (h *Handler) HandleMyIndexes(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	caller, ok := h.requireCaller(w, ctx)
	if !ok {
		return
	}
	indexes, err := h.service.GetMyIndexes(ctx, caller)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, OracleResponse{Oracle: caller.String(), Indexes: indexList(indexes)})
}

// HandleFetchFlightStatus handles POST /flights/{flight}/status-requests.
func (h *Handler) HandleFetchFlightStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	caller, ok := h.requireCaller(w, ctx)
	if !ok {
		return
	}
	code, err := models.ParseFlightCode(chi.URLParam(r, "flight"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	request, err := h.service.FetchFlightStatus(ctx, caller, code)
	if err != nil {
		h.logFailure(ctx, "fetch flight status", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusAccepted, toStatusRequestResponse(request))
}

// HandleSubmitResponse handles POST /oracle-responses.
func (h *Handler) HandleSubmitResponse(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	caller, ok := h.requireCaller(w, ctx)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[SubmitResponseRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}

	result, err := h.service.SubmitOracleResponse(ctx, caller, req.index, req.code, req.Timestamp, req.status)
	if err != nil {
		h.logFailure(ctx, "submit oracle response", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, SubmissionResponse{
		Index:        result.Key.Index,
		Flight:       result.Key.Flight.String(),
		Timestamp:    result.Key.Timestamp,
		Accepted:     result.Accepted,
		Responses:    result.Responses,
		Finalized:    result.Finalized,
		FlightStatus: result.FlightStatus.String(),
	})
}

// HandleSetFlightStatus handles PUT /admin/flights/{flight}/status.
func (h *Handler) HandleSetFlightStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	caller, ok := h.requireCaller(w, ctx)
	if !ok {
		return
	}
	code, err := models.ParseFlightCode(chi.URLParam(r, "flight"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	req, ok := httputil.DecodeAndPrepare[SetStatusRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}

	flight, err := h.service.SetFlightStatus(ctx, caller, code, req.status)
	if err != nil {
		h.logFailure(ctx, "set flight status", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, govhandler.ToFlightResponse(flight))
}

func (h *Handler) requireCaller(w http.ResponseWriter, ctx context.Context) (domain.Address, bool) {
	caller := requestcontext.Caller(ctx)
	if caller.IsNil() {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return "", false
	}
	return caller, true
}

func (h *Handler) logFailure(ctx context.Context, action string, err error) {
	if h.logger == nil {
		return
	}
	h.logger.WarnContext(ctx, action+" failed",
		"request_id", requestcontext.RequestID(ctx),
		"error", err,
	)
}
