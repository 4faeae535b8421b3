package freecarrier

import (
	"context"
	"errors"

	"carrierlookup/internal/phone"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("carrierlookup.freecarrier")
var meter = otel.Meter("carrierlookup.freecarrier")
var lookupCounter, _ = meter.Int64Counter("lookups")

func outcome(err error) string {
	var statusErr *StatusError
	switch {
	case err == nil:
		return StatusSuccess
	case errors.As(err, &statusErr):
		return statusErr.Status
	default:
		return "error"
	}
}

func recordLookup(ctx context.Context, span trace.Span, number phone.Number, err error) {
	result := outcome(err)
	span.SetAttributes(
		attribute.Int("country_code", int(number.CountryCode)),
		attribute.String("outcome", result),
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "lookup failed")
	}
	lookupCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", result)))
}
