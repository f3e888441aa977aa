package auditcontext

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFromContext(t *testing.T) {
	ctx := context.Background()
	assert.Equal(t, RequestInfo{}, FromContext(ctx))

	ctx = WithRequestID(ctx, " req-1 ")
	ctx = WithIPAddress(ctx, "10.0.0.7")
	ctx = WithUserAgent(ctx, "curl/8.0")
	ctx = WithEndpoint(ctx, "post", "/api/woyofal/achat")

	assert.Equal(t, RequestInfo{
		RequestID: "req-1",
		IPAddress: "10.0.0.7",
		UserAgent: "curl/8.0",
		Method:    "POST",
		Endpoint:  "/api/woyofal/achat",
	}, FromContext(ctx))
}
