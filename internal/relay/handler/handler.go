// Package handler serves the outbox as a pollable feed so clients without a
// broker can follow ledger events.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"flightsurety/internal/ledger/models"
	dErrors "flightsurety/pkg/domain-errors"
	"flightsurety/pkg/platform/httputil"
	"flightsurety/pkg/requestcontext"
)

const (
	defaultLimit = 100
	maxLimit     = 1000
)

// Service reads the event log.
type Service interface {
	ListEvents(ctx context.Context, after int64, limit int) ([]*models.Event, error)
}

type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// EventsResponse carries a page of events. Next is the cursor for the
// following page and equals After when the page is empty.
type EventsResponse struct {
	Events []*models.Event `json:"events"`
	Next   int64           `json:"next"`
}

func (h *Handler) Register(r chi.Router) {
	r.Get("/events", h.HandleList)
}

// HandleList handles GET /events?after=&limit=.
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	after, limit, err := parsePage(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	events, err := h.service.ListEvents(ctx, after, limit)
	if err != nil {
		if h.logger != nil {
			h.logger.ErrorContext(ctx, "list events failed",
				"request_id", requestcontext.RequestID(ctx),
				"error", err,
			)
		}
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list events"))
		return
	}
	resp := EventsResponse{Events: events, Next: after}
	if resp.Events == nil {
		resp.Events = []*models.Event{}
	}
	if n := len(events); n > 0 {
		resp.Next = events[n-1].Seq
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}

func parsePage(r *http.Request) (int64, int, error) {
	q := r.URL.Query()
	var after int64
	if raw := q.Get("after"); raw != "" {
		v, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || v < 0 {
			return 0, 0, dErrors.New(dErrors.CodeBadRequest, "after must be a non-negative integer")
		}
		after = v
	}
	limit := defaultLimit
	if raw := q.Get("limit"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v <= 0 {
			return 0, 0, dErrors.New(dErrors.CodeBadRequest, "limit must be a positive integer")
		}
		limit = min(v, maxLimit)
	}
	return after, limit, nil
}
