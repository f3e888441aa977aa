package allocator

import (
	"testing"

	"github.com/shopspring/decimal"
	"pgregory.net/rapid"
)

var (
	amountTolerance  = decimal.RequireFromString("0.01")
	blendedTolerance = decimal.RequireFromString("0.05")
)

func drawAmount(t *rapid.T, label string) decimal.Decimal {
	units := rapid.Int64Range(10, 20000).Draw(t, label)
	return decimal.NewFromInt(units * 50)
}

func drawStarting(t *rapid.T) decimal.Decimal {
	milli := rapid.Int64Range(0, 1_000_000).Draw(t, "starting_milli_kwh")
	return decimal.New(milli, -EnergyScale)
}

func TestAllocateConservesMoneyAndEnergy(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		amount := drawAmount(t, "amount")
		starting := drawStarting(t)

		res, err := Allocate(amount, starting, senelecTiers())
		if err != nil {
			t.Fatalf("allocate %s from %s: %v", amount, starting, err)
		}

		spent := decimal.Zero
		energy := decimal.Zero
		for _, e := range res.Breakdown {
			spent = spent.Add(e.Amount)
			energy = energy.Add(e.KWh)
		}
		if spent.Sub(amount).Abs().GreaterThan(amountTolerance) {
			t.Fatalf("spent %s, want %s", spent, amount)
		}
		if !energy.Equal(res.EnergyKWh) {
			t.Fatalf("breakdown energy %s, result energy %s", energy, res.EnergyKWh)
		}
	})
}

func TestAllocateEnergyMonotonicInAmount(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		starting := drawStarting(t)
		a := drawAmount(t, "a")
		b := drawAmount(t, "b")
		if a.GreaterThan(b) {
			a, b = b, a
		}

		lo, err := Allocate(a, starting, senelecTiers())
		if err != nil {
			t.Fatalf("allocate %s: %v", a, err)
		}
		hi, err := Allocate(b, starting, senelecTiers())
		if err != nil {
			t.Fatalf("allocate %s: %v", b, err)
		}
		if hi.EnergyKWh.LessThan(lo.EnergyKWh) {
			t.Fatalf("energy for %s (%s) below energy for %s (%s)", b, hi.EnergyKWh, a, lo.EnergyKWh)
		}
	})
}

func TestAllocateBlendedPriceWithinUsedTiers(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		amount := drawAmount(t, "amount")
		starting := drawStarting(t)

		res, err := Allocate(amount, starting, senelecTiers())
		if err != nil {
			t.Fatalf("allocate: %v", err)
		}

		lo, hi := res.Breakdown[0].UnitPrice, res.Breakdown[0].UnitPrice
		for _, e := range res.Breakdown[1:] {
			lo = decimal.Min(lo, e.UnitPrice)
			hi = decimal.Max(hi, e.UnitPrice)
		}
		if res.BlendedUnitPrice.LessThan(lo.Sub(blendedTolerance)) || res.BlendedUnitPrice.GreaterThan(hi.Add(blendedTolerance)) {
			t.Fatalf("blended %s outside [%s, %s]", res.BlendedUnitPrice, lo, hi)
		}
		if res.FinalTier.ID != res.Breakdown[len(res.Breakdown)-1].TierID {
			t.Fatalf("final tier %d, last entry tier %d", res.FinalTier.ID, res.Breakdown[len(res.Breakdown)-1].TierID)
		}
	})
}

// Buying in two steps yields the same energy as one combined purchase,
// within per-step rounding.
func TestAllocateSplitPurchaseMatchesCombined(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		starting := drawStarting(t)
		a := drawAmount(t, "a")
		b := drawAmount(t, "b")

		first, err := Allocate(a, starting, senelecTiers())
		if err != nil {
			t.Fatalf("allocate first: %v", err)
		}
		second, err := Allocate(b, first.EndingKWh(), senelecTiers())
		if err != nil {
			t.Fatalf("allocate second: %v", err)
		}
		combined, err := Allocate(a.Add(b), starting, senelecTiers())
		if err != nil {
			t.Fatalf("allocate combined: %v", err)
		}

		split := first.EnergyKWh.Add(second.EnergyKWh)
		if split.Sub(combined.EnergyKWh).Abs().GreaterThan(decimal.RequireFromString("0.01")) {
			t.Fatalf("split energy %s, combined %s", split, combined.EnergyKWh)
		}
	})
}
