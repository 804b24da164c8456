package logging

import (
	"context"
)

// contextKey is the private type for context values set by this package.
type contextKey string

const (
	// requestIDKey carries the API request ID assigned by the server
	// middleware.
	requestIDKey contextKey = "request_id"

	// satelliteIDKey carries the reporting satellite identifier when an
	// anomaly arrives over the API.
	satelliteIDKey contextKey = "satellite_id"

	// decisionIDKey carries the policy decision ID once an evaluation
	// completes, for correlating follow-up log records.
	decisionIDKey contextKey = "decision_id"
)

// WithRequestID adds a request ID to the context.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey, requestID)
}

// RequestID retrieves the request ID from the context, or "" when unset.
func RequestID(ctx context.Context) string {
	if v, ok := ctx.Value(requestIDKey).(string); ok {
		return v
	}
	return ""
}

// WithSatelliteID adds a satellite identifier to the context.
func WithSatelliteID(ctx context.Context, satelliteID string) context.Context {
	return context.WithValue(ctx, satelliteIDKey, satelliteID)
}

// SatelliteID retrieves the satellite identifier from the context, or ""
// when unset.
func SatelliteID(ctx context.Context) string {
	if v, ok := ctx.Value(satelliteIDKey).(string); ok {
		return v
	}
	return ""
}

// WithDecisionID adds a decision ID to the context.
func WithDecisionID(ctx context.Context, decisionID string) context.Context {
	return context.WithValue(ctx, decisionIDKey, decisionID)
}

// DecisionID retrieves the decision ID from the context, or "" when unset.
func DecisionID(ctx context.Context) string {
	if v, ok := ctx.Value(decisionIDKey).(string); ok {
		return v
	}
	return ""
}

// ContextAttrs extracts the recognized context fields as alternating
// key/value pairs for slog:
//
//	logger.With(logging.ContextAttrs(ctx)...).Info("evaluated")
//
// Unset fields are omitted; the result may be empty.
func ContextAttrs(ctx context.Context) []any {
	var attrs []any

	if v := RequestID(ctx); v != "" {
		attrs = append(attrs, "request_id", v)
	}
	if v := SatelliteID(ctx); v != "" {
		attrs = append(attrs, "satellite_id", v)
	}
	if v := DecisionID(ctx); v != "" {
		attrs = append(attrs, "decision_id", v)
	}

	return attrs
}
