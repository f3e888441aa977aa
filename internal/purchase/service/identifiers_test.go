package service

import (
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

var rechargeCodePattern = regexp.MustCompile(`^\d{20}$`)

func TestIdentifierFormats(t *testing.T) {
	gen := NewIdentifierGenerator()
	issuedAt := time.Date(2025, 3, 10, 9, 30, 0, 0, time.UTC)

	for i := 0; i < 50; i++ {
		ref, err := gen.Reference(issuedAt)
		require.NoError(t, err)
		assert.Regexp(t, referencePattern, ref)
		assert.Equal(t, "WYF250310", ref[:9])

		code, err := gen.RechargeCode()
		require.NoError(t, err)
		assert.Regexp(t, rechargeCodePattern, code)
	}
}

func TestReferenceUsesIssueDate(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		day := rapid.IntRange(0, 3650).Draw(t, "day")
		issuedAt := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC).AddDate(0, 0, day)

		ref, err := NewIdentifierGenerator().Reference(issuedAt)
		if err != nil {
			t.Fatalf("reference: %v", err)
		}
		if want := "WYF" + issuedAt.Format("060102"); ref[:9] != want {
			t.Fatalf("reference %s does not start with %s", ref, want)
		}
	})
}
