package handler

import (
	"context"
	"log/slog"
	"math/big"
	"net/http"

	"github.com/go-chi/chi/v5"

	"flightsurety/internal/ledger/models"
	"flightsurety/pkg/domain"
	dErrors "flightsurety/pkg/domain-errors"
	"flightsurety/pkg/platform/httputil"
	"flightsurety/pkg/requestcontext"
)

// Service defines the insurance operations exposed over HTTP.
type Service interface {
	BuyInsurance(ctx context.Context, caller domain.Address, code models.FlightCode, amount *big.Int) (*models.Policy, error)
	CancelInsurance(ctx context.Context, caller domain.Address, code models.FlightCode) (*models.Policy, error)
	PayoutInsurance(ctx context.Context, caller domain.Address, code models.FlightCode) (*models.Policy, error)
	GetInsurance(ctx context.Context, code models.FlightCode, purchaser domain.Address) (models.PolicyView, error)
}

// Handler wires insurance endpoints to the insurance engine.
type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts the public read endpoints.
func (h *Handler) Register(r chi.Router) {
	r.Get("/insurance/{flight}/{purchaser}", h.HandleGetPolicy)
}

// RegisterProtected mounts endpoints that act on the caller's own policy.
func (h *Handler) RegisterProtected(r chi.Router) {
	r.Post("/insurance/{flight}", h.HandleBuy)
	r.Delete("/insurance/{flight}", h.HandleCancel)
	r.Post("/insurance/{flight}/payout", h.HandlePayout)
}

// HandleBuy handles POST /insurance/{flight}.
func (h *Handler) HandleBuy(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	caller, code, ok := h.callerAndFlight(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[httputil.AmountRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}

	policy, err := h.service.BuyInsurance(ctx, caller, code, req.Wei())
	if err != nil {
		h.logFailure(ctx, "buy insurance", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toPolicyResponse(policy))
}

// HandleCancel handles DELETE /insurance/{flight}.
func (h *Handler) HandleCancel(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	caller, code, ok := h.callerAndFlight(w, r)
	if !ok {
		return
	}

	policy, err := h.service.CancelInsurance(ctx, caller, code)
	if err != nil {
		h.logFailure(ctx, "cancel insurance", err)
		httputil.WriteError(w, err)
		return
	}
	resp := toPolicyResponse(policy)
	resp.Refunded = policy.AmountPaid.String()
	httputil.WriteJSON(w, http.StatusOK, resp)
}

// HandlePayout handles POST /insurance/{flight}/payout.
func (h *Handler) HandlePayout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	caller, code, ok := h.callerAndFlight(w, r)
	if !ok {
		return
	}

	policy, err := h.service.PayoutInsurance(ctx, caller, code)
	if err != nil {
		h.logFailure(ctx, "payout insurance", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toPolicyResponse(policy))
}

// HandleGetPolicy handles GET /insurance/{flight}/{purchaser}.
func (h *Handler) HandleGetPolicy(w http.ResponseWriter, r *http.Request) {
	code, err := models.ParseFlightCode(chi.URLParam(r, "flight"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	purchaser, err := domain.ParseAddress(chi.URLParam(r, "purchaser"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	view, err := h.service.GetInsurance(r.Context(), code, purchaser)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, PolicyResponse{
		Flight:      view.Flight.String(),
		Purchaser:   view.Purchaser.String(),
		AmountPaid:  domain.CopyWei(view.AmountPaid).String(),
		IsCancelled: view.IsCancelled,
		IsPaidOut:   view.IsPaidOut,
	})
}

func (h *Handler) callerAndFlight(w http.ResponseWriter, r *http.Request) (domain.Address, models.FlightCode, bool) {
	caller := requestcontext.Caller(r.Context())
	if caller.IsNil() {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return "", "", false
	}
	code, err := models.ParseFlightCode(chi.URLParam(r, "flight"))
	if err != nil {
		httputil.WriteError(w, err)
		return "", "", false
	}
	return caller, code, true
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
