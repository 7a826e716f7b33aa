package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"flightsurety/pkg/domain"
	dErrors "flightsurety/pkg/domain-errors"
	"flightsurety/pkg/platform/httputil"
	"flightsurety/pkg/requestcontext"
)

// Service defines the kill-switch operations exposed over HTTP.
type Service interface {
	IsOperational(ctx context.Context) (bool, error)
	SetOperational(ctx context.Context, caller domain.Address, operational bool) error
}

type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// OperationalRequest toggles the kill-switch. The field is required so an
// empty body cannot halt the ledger by accident.
type OperationalRequest struct {
	Operational *bool `json:"operational"`
}

func (r *OperationalRequest) Validate() error {
	if r.Operational == nil {
		return dErrors.New(dErrors.CodeValidation, "operational is required")
	}
	return nil
}

type OperationalResponse struct {
	Operational bool `json:"operational"`
}

func (h *Handler) Register(r chi.Router) {
	r.Get("/operational", h.HandleStatus)
}

func (h *Handler) RegisterProtected(r chi.Router) {
	r.Put("/admin/operational", h.HandleSet)
}

// HandleStatus handles GET /operational.
func (h *Handler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	operational, err := h.service.IsOperational(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, OperationalResponse{Operational: operational})
}

// HandleSet handles PUT /admin/operational.
func (h *Handler) HandleSet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	caller := requestcontext.Caller(ctx)
	if caller.IsNil() {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return
	}
	req, ok := httputil.DecodeAndPrepare[OperationalRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	if err := h.service.SetOperational(ctx, caller, *req.Operational); err != nil {
		if h.logger != nil {
			h.logger.WarnContext(ctx, "set operational failed",
				"request_id", requestID,
				"caller", caller.String(),
				"error", err,
			)
		}
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, OperationalResponse{Operational: *req.Operational})
}
