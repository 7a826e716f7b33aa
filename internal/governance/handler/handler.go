package handler

import (
	"context"
	"log/slog"
	"math/big"
	"net/http"

	"github.com/go-chi/chi/v5"

	"flightsurety/internal/governance"
	"flightsurety/internal/ledger/models"
	"flightsurety/pkg/domain"
	dErrors "flightsurety/pkg/domain-errors"
	"flightsurety/pkg/platform/httputil"
	"flightsurety/pkg/requestcontext"
)

// Service defines the governance operations exposed over HTTP.
type Service interface {
	RegisterAirline(ctx context.Context, caller, candidate domain.Address, code, name string) (*governance.RegistrationResult, error)
	AirlinePay(ctx context.Context, caller domain.Address, amount *big.Int) (*models.Airline, error)
	RegisterFlight(ctx context.Context, caller domain.Address, code models.FlightCode) (*models.Flight, error)
	GetAirline(ctx context.Context, addr domain.Address) (*models.Airline, error)
	GetPaidAirlineCount(ctx context.Context) (int, error)
	GetFlightDetails(ctx context.Context, code models.FlightCode) (*models.Flight, error)
}

// Handler wires governance endpoints to the governance service.
type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts the public read endpoints.
func (h *Handler) Register(r chi.Router) {
	r.Get("/airlines/paid-count", h.HandlePaidCount)
	r.Get("/airlines/{address}", h.HandleGetAirline)
	r.Get("/flights/{flight}", h.HandleGetFlight)
}

// RegisterProtected mounts endpoints that require an authenticated caller.
func (h *Handler) RegisterProtected(r chi.Router) {
	r.Post("/airlines", h.HandleRegisterAirline)
	r.Post("/airlines/fund", h.HandleFund)
	r.Post("/flights", h.HandleRegisterFlight)
}

// HandleRegisterAirline handles POST /airlines.
func (h *Handler) HandleRegisterAirline(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	caller, ok := h.requireCaller(w, ctx)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[RegisterAirlineRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	result, err := h.service.RegisterAirline(ctx, caller, req.address, req.Code, req.Name)
	if err != nil {
		h.logFailure(ctx, "register airline", err)
		httputil.WriteError(w, err)
		return
	}
	status := http.StatusAccepted
	if result.Registered {
		status = http.StatusOK
	}
	httputil.WriteJSON(w, status, RegistrationResponse{
		Airline:    result.Airline.String(),
		Registered: result.Registered,
		Votes:      result.Votes,
		Voted:      result.Voted,
	})
}

// HandleFund handles POST /airlines/fund.
func (h *Handler) HandleFund(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	caller, ok := h.requireCaller(w, ctx)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[httputil.AmountRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	airline, err := h.service.AirlinePay(ctx, caller, req.Wei())
	if err != nil {
		h.logFailure(ctx, "fund airline", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toAirlineResponse(airline))
}

// HandleRegisterFlight handles POST /flights.
func (h *Handler) HandleRegisterFlight(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	caller, ok := h.requireCaller(w, ctx)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[RegisterFlightRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	flight, err := h.service.RegisterFlight(ctx, caller, req.code)
	if err != nil {
		h.logFailure(ctx, "register flight", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, ToFlightResponse(flight))
}

// HandleGetAirline handles GET /airlines/{address}.
func (h *Handler) HandleGetAirline(w http.ResponseWriter, r *http.Request) {
	addr, err := domain.ParseAddress(chi.URLParam(r, "address"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	airline, err := h.service.GetAirline(r.Context(), addr)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toAirlineResponse(airline))
}

// HandlePaidCount handles GET /airlines/paid-count.
func (h *Handler) HandlePaidCount(w http.ResponseWriter, r *http.Request) {
	count, err := h.service.GetPaidAirlineCount(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, PaidCountResponse{PaidAirlines: count})
}

// HandleGetFlight handles GET /flights/{flight}.
func (h *Handler) HandleGetFlight(w http.ResponseWriter, r *http.Request) {
	code, err := models.ParseFlightCode(chi.URLParam(r, "flight"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	flight, err := h.service.GetFlightDetails(r.Context(), code)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, ToFlightResponse(flight))
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
