package context

import "context"

type requestIDKey struct{}
type meterNumberKey struct{}

func WithRequestID(ctx context.Context, requestID string) context.Context {
	if requestID == "" {
		return ctx
	}
	return context.WithValue(ctx, requestIDKey{}, requestID)
}

func RequestIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(requestIDKey{}).(string); ok {
		return v
	}
	return ""
}

// WithMeterNumber tags the request with the meter number under purchase so
// request logs can be joined with purchase attempts.
func WithMeterNumber(ctx context.Context, meterNumber string) context.Context {
	if meterNumber == "" {
		return ctx
	}
	return context.WithValue(ctx, meterNumberKey{}, meterNumber)
}

func MeterNumberFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(meterNumberKey{}).(string); ok {
		return v
	}
	return ""
}
