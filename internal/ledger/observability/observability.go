// Package observability provides the audit logging, tracing and metrics
// helpers shared by the ledger engines.
package observability

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"flightsurety/internal/ledger/metrics"
	dErrors "flightsurety/pkg/domain-errors"
	"flightsurety/pkg/requestcontext"
)

const tracerName = "flightsurety/ledger"

// LogAudit logs a state change with the request and caller attached.
func LogAudit(ctx context.Context, logger *slog.Logger, event string, attrList ...any) {
	if logger == nil {
		return
	}
	if requestID := requestcontext.RequestID(ctx); requestID != "" {
		attrList = append(attrList, "request_id", requestID)
	}
	if caller := requestcontext.Caller(ctx); caller != "" {
		attrList = append(attrList, "caller", caller.String())
	}
	args := append(attrList, "event", event, "log_type", "audit")
	logger.InfoContext(ctx, event, args...)
}

// Recorder wraps engine operations in a span and records their outcome.
type Recorder struct {
	engine  string
	tracer  trace.Tracer
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// NewRecorder builds a recorder for one engine. Nil metrics or logger disable
// that output.
func NewRecorder(engine string, m *metrics.Metrics, logger *slog.Logger) *Recorder {
	return &Recorder{
		engine:  engine,
		tracer:  otel.Tracer(tracerName),
		metrics: m,
		logger:  logger,
	}
}

// Start opens a span for operation. The returned function must be called with
// the operation's final error.
func (r *Recorder) Start(ctx context.Context, operation string, attrs ...attribute.KeyValue) (context.Context, func(err error)) {
	start := time.Now()
	attrs = append(attrs, attribute.String("ledger.engine", r.engine))
	if caller := requestcontext.Caller(ctx); caller != "" {
		attrs = append(attrs, attribute.String("ledger.caller", caller.String()))
	}
	ctx, span := r.tracer.Start(ctx, r.engine+"."+operation, trace.WithAttributes(attrs...))
	return ctx, func(err error) {
		outcome := "ok"
		if err != nil {
			outcome = string(dErrors.CodeOf(err))
			span.RecordError(err)
			span.SetStatus(codes.Error, outcome)
			r.logFailure(ctx, operation, outcome, err)
		}
		span.End()
		if r.metrics != nil {
			r.metrics.ObserveOperation(r.engine, operation, outcome, time.Since(start).Seconds())
		}
	}
}

func (r *Recorder) logFailure(ctx context.Context, operation, outcome string, err error) {
	if r.logger == nil {
		return
	}
	level := slog.LevelInfo
	if outcome == string(dErrors.CodeInternal) {
		level = slog.LevelError
	}
	r.logger.Log(ctx, level, "ledger operation rejected",
		"engine", r.engine,
		"operation", operation,
		"outcome", outcome,
		"error", err,
		"request_id", requestcontext.RequestID(ctx),
	)
}

// Metrics exposes the collectors, which may be nil.
func (r *Recorder) Metrics() *metrics.Metrics {
	return r.metrics
}
