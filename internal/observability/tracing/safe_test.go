package tracing

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.opentelemetry.io/otel/attribute"
)

func TestSafeErrorMasksRechargeCode(t *testing.T) {
	err := SafeError(errors.New("insert failed for code 12345678901234567890"))
	assert.NotContains(t, err.Error(), "12345678901234567890")
	assert.Contains(t, err.Error(), "insert failed")
	assert.Nil(t, SafeError(nil))

	long := SafeError(errors.New(strings.Repeat("x", 1000)))
	assert.Len(t, long.Error(), maxErrorLength)
}

func TestSafeAttributesDropsBlockedKeys(t *testing.T) {
	attrs := SafeAttributes(
		attribute.String("http.route", "/api/woyofal/achat"),
		attribute.String("code_recharge", "12345678901234567890"),
	)
	assert.Len(t, attrs, 1)
	assert.Equal(t, attribute.Key("http.route"), attrs[0].Key)
}
