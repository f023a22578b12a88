package services

import (
	"context"
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/HammerMeetNail/campusconnect/internal/models"
)

var tracer = otel.Tracer("github.com/HammerMeetNail/campusconnect/internal/services")

var (
	operationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "campusconnect_operations_total",
		Help: "Connection operations by outcome.",
	}, []string{"operation", "outcome"})

	operationDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "campusconnect_operation_duration_seconds",
		Help:    "Latency of connection operations.",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation"})
)

// outcome maps an operation error onto a low-cardinality label.
func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrInvalidParty):
		return "invalid_party"
	case errors.Is(err, ErrDuplicateRequest):
		return "duplicate"
	case errors.Is(err, ErrRequestNotFound):
		return "not_found"
	case errors.Is(err, ErrRequestNotPending):
		return "invalid_state"
	case errors.Is(err, ErrStorageUnavailable):
		return "storage_unavailable"
	default:
		return "error"
	}
}

// instrument opens a span and returns a callback that records the outcome
// on both the span and the Prometheus collectors.
func instrument(ctx context.Context, op string, attrs ...attribute.KeyValue) (context.Context, func(error)) {
	start := time.Now()
	ctx, span := tracer.Start(ctx, op, trace.WithAttributes(attrs...))
	return ctx, func(err error) {
		label := outcome(err)
		operationsTotal.WithLabelValues(op, label).Inc()
		operationDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, label)
		}
		span.End()
	}
}

func partyAttrs(role string, p models.PartyRef) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(role+".id", p.ID),
		attribute.String(role+".kind", string(p.Kind)),
	}
}
