package masking

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMaskSecret(t *testing.T) {
	assert.Equal(t, "", MaskSecret("  "))
	assert.Equal(t, "****", MaskSecret("1234"))
	assert.Equal(t, "****7890", MaskSecret("12345678901234567890"))
	assert.Equal(t, "sk_****cdef", MaskSecret("sk_0123456789abcdef"))
}

func TestMaskPayload(t *testing.T) {
	in := map[string]any{
		"code":      "12345678901234567890",
		"reference": "WYF250101123456",
		"montant":   15000,
		"message":   "code 98765432109876543210 delivered",
		"nested": map[string]any{
			"code_recharge": "11112222333344445555",
		},
		"items": []any{"00000000000000000001"},
		" ":     "dropped",
	}

	out := MaskPayload(in)

	assert.Equal(t, "****7890", out["code"])
	assert.Equal(t, "WYF250101123456", out["reference"])
	assert.Equal(t, 15000, out["montant"])
	assert.Equal(t, "code ****3210 delivered", out["message"])
	assert.Equal(t, "****5555", out["nested"].(map[string]any)["code_recharge"])
	assert.Equal(t, []any{"****0001"}, out["items"])
	assert.NotContains(t, out, " ")

	assert.Equal(t, "12345678901234567890", in["code"], "input must not be modified")
	assert.Nil(t, MaskPayload(nil))
}
