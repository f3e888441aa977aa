package allocator

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(v string) decimal.Decimal {
	return decimal.RequireFromString(v)
}

func dp(v string) *decimal.Decimal {
	out := d(v)
	return &out
}

func senelecTiers() []Tier {
	return []Tier{
		{ID: 1, Code: "tranche-1", Name: "Tranche 1 - Sociale", Min: d("0"), Max: dp("150"), UnitPrice: d("91"), Order: 1},
		{ID: 2, Code: "tranche-2", Name: "Tranche 2 - Normale", Min: d("150"), Max: dp("250"), UnitPrice: d("102"), Order: 2},
		{ID: 3, Code: "tranche-3", Name: "Tranche 3 - Intermédiaire", Min: d("250"), Max: dp("400"), UnitPrice: d("116"), Order: 3},
		{ID: 4, Code: "tranche-4", Name: "Tranche 4 - Élevée", Min: d("400"), UnitPrice: d("132"), Order: 4},
	}
}

func TestAllocate(t *testing.T) {
	cases := []struct {
		name          string
		amount        string
		starting      string
		wantEnergy    string
		wantBlended   string
		wantFinalTier int64
		wantEntries   []Entry
	}{
		{
			name:          "crosses into second tier from zero",
			amount:        "15000",
			starting:      "0",
			wantEnergy:    "163.235",
			wantBlended:   "91.89",
			wantFinalTier: 2,
			wantEntries: []Entry{
				{TierID: 1, KWh: d("150"), Amount: d("13650")},
				{TierID: 2, KWh: d("13.235"), Amount: d("1350")},
			},
		},
		{
			name:          "finishes first tier then spills",
			amount:        "1000",
			starting:      "140",
			wantEnergy:    "10.882",
			wantBlended:   "91.89",
			wantFinalTier: 2,
			wantEntries: []Entry{
				{TierID: 1, KWh: d("10"), Amount: d("910")},
				{TierID: 2, KWh: d("0.882"), Amount: d("90")},
			},
		},
		{
			name:          "stays inside first tier",
			amount:        "5000",
			starting:      "0",
			wantEnergy:    "54.945",
			wantBlended:   "91.00",
			wantFinalTier: 1,
			wantEntries: []Entry{
				{TierID: 1, KWh: d("54.945"), Amount: d("5000")},
			},
		},
		{
			name:          "lands exactly on threshold",
			amount:        "13650",
			starting:      "0",
			wantEnergy:    "150",
			wantBlended:   "91.00",
			wantFinalTier: 1,
			wantEntries: []Entry{
				{TierID: 1, KWh: d("150"), Amount: d("13650")},
			},
		},
		{
			name:          "starts exactly on threshold",
			amount:        "1020",
			starting:      "150",
			wantEnergy:    "10",
			wantBlended:   "102.00",
			wantFinalTier: 2,
			wantEntries: []Entry{
				{TierID: 2, KWh: d("10"), Amount: d("1020")},
			},
		},
		{
			name:          "beyond every bounded tier",
			amount:        "13200",
			starting:      "812.5",
			wantEnergy:    "100",
			wantBlended:   "132.00",
			wantFinalTier: 4,
			wantEntries: []Entry{
				{TierID: 4, KWh: d("100"), Amount: d("13200")},
			},
		},
		{
			name:          "spans every tier",
			amount:        "60000",
			starting:      "0",
			wantEnergy:    "542.045",
			wantBlended:   "110.69",
			wantFinalTier: 4,
			wantEntries: []Entry{
				{TierID: 1, KWh: d("150"), Amount: d("13650")},
				{TierID: 2, KWh: d("100"), Amount: d("10200")},
				{TierID: 3, KWh: d("150"), Amount: d("17400")},
				{TierID: 4, KWh: d("142.045"), Amount: d("18750")},
			},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			res, err := Allocate(d(tc.amount), d(tc.starting), senelecTiers())
			require.NoError(t, err)

			assert.True(t, d(tc.wantEnergy).Equal(res.EnergyKWh), "energy: want %s got %s", tc.wantEnergy, res.EnergyKWh)
			assert.True(t, d(tc.wantBlended).Equal(res.BlendedUnitPrice), "blended: want %s got %s", tc.wantBlended, res.BlendedUnitPrice)
			assert.Equal(t, tc.wantFinalTier, res.FinalTier.ID)

			require.Len(t, res.Breakdown, len(tc.wantEntries))
			for i, want := range tc.wantEntries {
				got := res.Breakdown[i]
				assert.Equal(t, want.TierID, got.TierID)
				assert.True(t, want.KWh.Equal(got.KWh), "entry %d kwh: want %s got %s", i, want.KWh, got.KWh)
				assert.True(t, want.Amount.Equal(got.Amount), "entry %d amount: want %s got %s", i, want.Amount, got.Amount)
			}
		})
	}
}

func TestAllocateBoundaryThenNextPurchase(t *testing.T) {
	first, err := Allocate(d("13650"), d("0"), senelecTiers())
	require.NoError(t, err)
	assert.Equal(t, int64(1), first.FinalTier.ID)
	assert.True(t, d("150").Equal(first.EndingKWh()))

	second, err := Allocate(d("500"), first.EndingKWh(), senelecTiers())
	require.NoError(t, err)
	require.Len(t, second.Breakdown, 1)
	assert.Equal(t, int64(2), second.Breakdown[0].TierID)
	assert.True(t, d("102").Equal(second.Breakdown[0].UnitPrice))
}

func TestAllocateKeepsDustInLastEntry(t *testing.T) {
	res, err := Allocate(d("13650.01"), d("0"), senelecTiers())
	require.NoError(t, err)

	require.Len(t, res.Breakdown, 1)
	assert.Equal(t, int64(1), res.FinalTier.ID)
	assert.True(t, d("150").Equal(res.EnergyKWh))
	assert.True(t, d("13650.01").Equal(res.Breakdown[0].Amount))
	for _, e := range res.Breakdown {
		assert.True(t, e.KWh.IsPositive(), "tier %d has no energy", e.TierID)
	}

	_, err = Allocate(d("0.01"), d("0"), senelecTiers())
	assert.ErrorIs(t, err, ErrAllocationExhausted)
}

func TestAllocateIgnoresInputOrder(t *testing.T) {
	tiers := senelecTiers()
	reversed := []Tier{tiers[3], tiers[1], tiers[0], tiers[2]}

	a, err := Allocate(d("15000"), d("0"), tiers)
	require.NoError(t, err)
	b, err := Allocate(d("15000"), d("0"), reversed)
	require.NoError(t, err)
	assert.True(t, a.EnergyKWh.Equal(b.EnergyKWh))
	assert.Equal(t, a.FinalTier.ID, b.FinalTier.ID)
}

func TestAllocateRejectsInvalidInput(t *testing.T) {
	_, err := Allocate(d("0"), d("0"), senelecTiers())
	assert.ErrorIs(t, err, ErrConfiguration)

	_, err = Allocate(d("-100"), d("0"), senelecTiers())
	assert.ErrorIs(t, err, ErrConfiguration)

	_, err = Allocate(d("1000"), d("-1"), senelecTiers())
	assert.ErrorIs(t, err, ErrConfiguration)

	_, err = Allocate(d("1000"), d("0"), nil)
	var cfgErr *ConfigurationError
	require.True(t, errors.As(err, &cfgErr))
	assert.Contains(t, cfgErr.Reason, "no active tiers")
}

func TestNormalizeScheduleRejectsMalformedTiers(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(tiers []Tier) []Tier
	}{
		{
			name: "gap between tiers",
			mutate: func(tiers []Tier) []Tier {
				tiers[1].Min = d("160")
				return tiers
			},
		},
		{
			name: "overlapping tiers",
			mutate: func(tiers []Tier) []Tier {
				tiers[1].Min = d("140")
				return tiers
			},
		},
		{
			name: "no open tier",
			mutate: func(tiers []Tier) []Tier {
				tiers[3].Max = dp("1000")
				return tiers
			},
		},
		{
			name: "open tier not last",
			mutate: func(tiers []Tier) []Tier {
				tiers[1].Max = nil
				return tiers
			},
		},
		{
			name: "first tier not at zero",
			mutate: func(tiers []Tier) []Tier {
				tiers[0].Min = d("10")
				return tiers
			},
		},
		{
			name: "zero price",
			mutate: func(tiers []Tier) []Tier {
				tiers[2].UnitPrice = decimal.Zero
				return tiers
			},
		},
		{
			name: "duplicate order",
			mutate: func(tiers []Tier) []Tier {
				tiers[2].Order = tiers[1].Order
				return tiers
			},
		},
		{
			name: "empty range",
			mutate: func(tiers []Tier) []Tier {
				tiers[0].Max = dp("0")
				tiers[1].Min = d("0")
				return tiers
			},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NormalizeSchedule(tc.mutate(senelecTiers()))
			assert.ErrorIs(t, err, ErrConfiguration)
		})
	}
}

func TestAllocateRejectsBoundedOnlySchedule(t *testing.T) {
	_, err := Allocate(d("910"), d("0"), []Tier{{ID: 1, Name: "bornée", Min: d("0"), Max: dp("5"), UnitPrice: d("91"), Order: 1}})
	assert.ErrorIs(t, err, ErrConfiguration)
	assert.NotErrorIs(t, err, ErrAllocationExhausted)
}

func TestTierAt(t *testing.T) {
	tiers := senelecTiers()
	tier, ok := TierAt(tiers, d("149.999"))
	require.True(t, ok)
	assert.Equal(t, int64(1), tier.ID)

	tier, ok = TierAt(tiers, d("150"))
	require.True(t, ok)
	assert.Equal(t, int64(2), tier.ID)

	tier, ok = TierAt(tiers, d("10000"))
	require.True(t, ok)
	assert.Equal(t, int64(4), tier.ID)
}
