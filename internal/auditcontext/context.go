package auditcontext

import (
	"context"
	"strings"
)

type requestIDKey struct{}
type ipAddressKey struct{}
type userAgentKey struct{}
type endpointKey struct{}

// RequestInfo is the request metadata recorded with every purchase attempt.
type RequestInfo struct {
	RequestID string
	IPAddress string
	UserAgent string
	Method    string
	Endpoint  string
}

type endpoint struct {
	method string
	path   string
}

func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, strings.TrimSpace(requestID))
}

func WithIPAddress(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, ipAddressKey{}, strings.TrimSpace(ip))
}

func WithUserAgent(ctx context.Context, userAgent string) context.Context {
	return context.WithValue(ctx, userAgentKey{}, strings.TrimSpace(userAgent))
}

func WithEndpoint(ctx context.Context, method, path string) context.Context {
	return context.WithValue(ctx, endpointKey{}, endpoint{
		method: strings.ToUpper(strings.TrimSpace(method)),
		path:   strings.TrimSpace(path),
	})
}

func RequestIDFromContext(ctx context.Context) string {
	v, _ := ctx.Value(requestIDKey{}).(string)
	return v
}

func IPAddressFromContext(ctx context.Context) string {
	v, _ := ctx.Value(ipAddressKey{}).(string)
	return v
}

func UserAgentFromContext(ctx context.Context) string {
	v, _ := ctx.Value(userAgentKey{}).(string)
	return v
}

// FromContext collects everything the HTTP layer attached to ctx.
// Callers outside HTTP (CLI, scheduler) get an empty RequestInfo.
func FromContext(ctx context.Context) RequestInfo {
	if ctx == nil {
		return RequestInfo{}
	}
	info := RequestInfo{
		RequestID: RequestIDFromContext(ctx),
		IPAddress: IPAddressFromContext(ctx),
		UserAgent: UserAgentFromContext(ctx),
	}
	if ep, ok := ctx.Value(endpointKey{}).(endpoint); ok {
		info.Method = ep.method
		info.Endpoint = ep.path
	}
	return info
}
