package allocator

import (
	"sort"

	"github.com/shopspring/decimal"
)

// NormalizeSchedule returns the tiers sorted by Order after checking that
// they partition [0, ∞) into contiguous ranges with a single open top tier.
func NormalizeSchedule(tiers []Tier) ([]Tier, error) {
	if len(tiers) == 0 {
		return nil, configErrorf("no active tiers")
	}

	ordered := make([]Tier, len(tiers))
	copy(ordered, tiers)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Order < ordered[j].Order
	})

	if !ordered[0].Min.IsZero() {
		return nil, configErrorf("first tier %q must start at 0 kWh, starts at %s", ordered[0].Name, ordered[0].Min.String())
	}

	openTiers := 0
	for i, tier := range ordered {
		if !tier.UnitPrice.IsPositive() {
			return nil, configErrorf("tier %q has non-positive unit price %s", tier.Name, tier.UnitPrice.String())
		}
		if tier.Min.IsNegative() {
			return nil, configErrorf("tier %q has negative lower bound", tier.Name)
		}
		if tier.Max != nil && !tier.Max.GreaterThan(tier.Min) {
			return nil, configErrorf("tier %q upper bound %s must exceed lower bound %s", tier.Name, tier.Max.String(), tier.Min.String())
		}
		if tier.Open() {
			openTiers++
			if i != len(ordered)-1 {
				return nil, configErrorf("open tier %q must be the highest ordered tier", tier.Name)
			}
		}
		if i == 0 {
			continue
		}

		prev := ordered[i-1]
		if tier.Order == prev.Order {
			return nil, configErrorf("tiers %q and %q share order %d", prev.Name, tier.Name, tier.Order)
		}
		if prev.Max == nil || !prev.Max.Equal(tier.Min) {
			return nil, configErrorf("tier %q does not start where %q ends", tier.Name, prev.Name)
		}
	}

	if openTiers != 1 {
		return nil, configErrorf("expected exactly one open tier, found %d", openTiers)
	}

	return ordered, nil
}

// TierAt returns the tier whose range contains position.
func TierAt(tiers []Tier, position decimal.Decimal) (Tier, bool) {
	for _, tier := range tiers {
		if tier.Contains(position) {
			return tier, true
		}
	}
	return Tier{}, false
}
