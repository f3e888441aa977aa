package receipt

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/smallbiznis/woyofal/internal/config"
	purchasedomain "github.com/smallbiznis/woyofal/internal/purchase/domain"
	"github.com/smallbiznis/woyofal/internal/tariff/allocator"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/datatypes"
)

func sampleDetail() *purchasedomain.Detail {
	return &purchasedomain.Detail{
		Receipt: purchasedomain.Receipt{
			Compteur:  "123456789",
			Reference: "WYF250310123456",
			Code:      "12345678901234567890",
			Date:      "10/03/2025 09:30:00",
			Tranche:   "Tranche 2 - Normal",
			Prix:      "92 FCFA/kWh",
			NbreKwt:   "163,24 kWh",
			Client:    "Amadou Diallo",
		},
		Transaction: purchasedomain.Transaction{
			Reference:      "WYF250310123456",
			NumeroCompteur: "123456789",
			Montant:        decimal.NewFromInt(15000),
			KwhAchetes:     decimal.RequireFromString("163.243"),
			PrixUnitaire:   decimal.RequireFromString("91.89"),
			DateAchat:      time.Date(2025, 3, 10, 9, 30, 0, 0, time.UTC),
			TierBreakdown: datatypes.NewJSONSlice([]allocator.Entry{
				{TierName: "Tranche 1 - Social", UnitPrice: decimal.NewFromInt(91), KWh: decimal.NewFromInt(150), Amount: decimal.NewFromInt(13650)},
				{TierName: "Tranche 2 - Normal", UnitPrice: decimal.NewFromInt(102), KWh: decimal.RequireFromString("13.235"), Amount: decimal.NewFromInt(1350)},
			}),
		},
	}
}

func TestRenderProducesPDF(t *testing.T) {
	r := NewRenderer(config.Config{AppName: "woyofal", AppVersion: "1.0.0", BillingTimezone: "Africa/Dakar"}, zap.NewNop())

	out, err := r.Render(context.Background(), sampleDetail())
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF")))
}

func TestRenderRejectsEmptyPurchase(t *testing.T) {
	r := NewRenderer(config.Config{}, zap.NewNop())

	_, err := r.Render(context.Background(), nil)
	assert.ErrorIs(t, err, ErrMissingPurchase)

	_, err = r.Render(context.Background(), &purchasedomain.Detail{})
	assert.ErrorIs(t, err, ErrMissingPurchase)
}

func TestRenderHonoursCancelledContext(t *testing.T) {
	r := NewRenderer(config.Config{}, zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := r.Render(ctx, sampleDetail())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestGroupCode(t *testing.T) {
	assert.Equal(t, "1234 5678 9012 3456 7890", groupCode("12345678901234567890"))
	assert.Equal(t, "", groupCode(""))
	assert.Equal(t, "123", groupCode("123"))
}
