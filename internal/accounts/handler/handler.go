package handler

import (
	"context"
	"log/slog"
	"math/big"
	"net/http"

	"github.com/go-chi/chi/v5"

	"flightsurety/pkg/domain"
	dErrors "flightsurety/pkg/domain-errors"
	"flightsurety/pkg/platform/httputil"
	"flightsurety/pkg/requestcontext"
)

// Service defines the account operations exposed over HTTP.
type Service interface {
	Credit(ctx context.Context, caller, account domain.Address, amount *big.Int) (*big.Int, error)
	BalanceOf(ctx context.Context, account domain.Address) (*big.Int, error)
	CustodyBalance(ctx context.Context) (*big.Int, error)
}

type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// BalanceResponse reports a balance in decimal wei.
type BalanceResponse struct {
	Account string `json:"account"`
	Balance string `json:"balance"`
}

func (h *Handler) Register(r chi.Router) {
	r.Get("/accounts/{address}/balance", h.HandleBalance)
	r.Get("/custody/balance", h.HandleCustodyBalance)
}

func (h *Handler) RegisterProtected(r chi.Router) {
	r.Post("/admin/accounts/{address}/credit", h.HandleCredit)
}

// HandleBalance handles GET /accounts/{address}/balance.
func (h *Handler) HandleBalance(w http.ResponseWriter, r *http.Request) {
	addr, err := domain.ParseAddress(chi.URLParam(r, "address"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	balance, err := h.service.BalanceOf(r.Context(), addr)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, BalanceResponse{Account: addr.String(), Balance: balance.String()})
}

// HandleCustodyBalance handles GET /custody/balance.
func (h *Handler) HandleCustodyBalance(w http.ResponseWriter, r *http.Request) {
	balance, err := h.service.CustodyBalance(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, BalanceResponse{Account: "custody", Balance: balance.String()})
}

// HandleCredit handles POST /admin/accounts/{address}/credit.
func (h *Handler) HandleCredit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	caller := requestcontext.Caller(ctx)
	if caller.IsNil() {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return
	}
	addr, err := domain.ParseAddress(chi.URLParam(r, "address"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	req, ok := httputil.DecodeAndPrepare[httputil.AmountRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}

	balance, err := h.service.Credit(ctx, caller, addr, req.Wei())
	if err != nil {
		if h.logger != nil {
			h.logger.WarnContext(ctx, "credit account failed",
				"request_id", requestcontext.RequestID(ctx),
				"account", addr.String(),
				"error", err,
			)
		}
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, BalanceResponse{Account: addr.String(), Balance: balance.String()})
}
