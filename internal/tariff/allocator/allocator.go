// Package allocator distributes a purchase amount across progressive tariff
// tiers, starting from the energy a client has already bought this period.
package allocator

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

const (
	EnergyScale = 3
	MoneyScale  = 2

	divisionPrecision = 12
)

var (
	ErrConfiguration       = errors.New("tariff_configuration_invalid")
	ErrAllocationExhausted = errors.New("tariff_allocation_exhausted")
)

// ConfigurationError reports invalid input or an inconsistent tier schedule.
type ConfigurationError struct {
	Reason string
}

func (e *ConfigurationError) Error() string {
	return "tariff configuration: " + e.Reason
}

func (e *ConfigurationError) Unwrap() error {
	return ErrConfiguration
}

func configErrorf(format string, args ...any) error {
	return &ConfigurationError{Reason: fmt.Sprintf(format, args...)}
}

// Tier is one priced kWh range [Min, Max). A nil Max marks the open top tier.
type Tier struct {
	ID        int64
	Code      string
	Name      string
	Min       decimal.Decimal
	Max       *decimal.Decimal
	UnitPrice decimal.Decimal
	Order     int
}

func (t Tier) Open() bool {
	return t.Max == nil
}

// Contains reports whether position falls in [Min, Max).
func (t Tier) Contains(position decimal.Decimal) bool {
	if position.LessThan(t.Min) {
		return false
	}
	return t.Max == nil || position.LessThan(*t.Max)
}

// Entry is the share of a purchase billed in a single tier.
type Entry struct {
	TierID    int64           `json:"tier_id,string"`
	TierCode  string          `json:"tier_code"`
	TierName  string          `json:"tier_name"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	KWh       decimal.Decimal `json:"kwh"`
	Amount    decimal.Decimal `json:"amount"`
}

type Result struct {
	Amount           decimal.Decimal
	StartingKWh      decimal.Decimal
	EnergyKWh        decimal.Decimal
	BlendedUnitPrice decimal.Decimal
	Breakdown        []Entry
	FinalTier        Tier
}

// EndingKWh is the cumulative position once the purchase is applied.
func (r Result) EndingKWh() decimal.Decimal {
	return r.StartingKWh.Add(r.EnergyKWh)
}

// Allocate walks the tiers in ascending order from startingKWh and spends
// amount tier by tier. Energy is rounded to 3 decimals and money to 2 decimals
// at the end of every tier step.
func Allocate(amount, startingKWh decimal.Decimal, tiers []Tier) (Result, error) {
	amount = amount.Round(MoneyScale)
	if !amount.IsPositive() {
		return Result{}, configErrorf("amount must be positive, got %s", amount.String())
	}
	if startingKWh.IsNegative() {
		return Result{}, configErrorf("starting consumption cannot be negative, got %s", startingKWh.String())
	}

	ordered, err := NormalizeSchedule(tiers)
	if err != nil {
		return Result{}, err
	}

	result := Result{
		Amount:      amount,
		StartingKWh: startingKWh,
		EnergyKWh:   decimal.Zero,
	}

	remaining := amount
	position := startingKWh
	spentTotal := decimal.Zero

	for _, tier := range ordered {
		if !remaining.IsPositive() {
			break
		}
		if !tier.Contains(position) {
			continue
		}

		kwh, spent := step(tier, position, remaining)
		if !kwh.IsPositive() {
			// A remainder too small to buy 0.001 kWh stays with the last
			// tier that delivered energy.
			if n := len(result.Breakdown); n > 0 && spent.IsPositive() {
				result.Breakdown[n-1].Amount = result.Breakdown[n-1].Amount.Add(spent)
				spentTotal = spentTotal.Add(spent)
				remaining = remaining.Sub(spent)
			}
			break
		}

		result.Breakdown = append(result.Breakdown, Entry{
			TierID:    tier.ID,
			TierCode:  tier.Code,
			TierName:  tier.Name,
			UnitPrice: tier.UnitPrice,
			KWh:       kwh,
			Amount:    spent,
		})
		result.EnergyKWh = result.EnergyKWh.Add(kwh)
		result.FinalTier = tier
		spentTotal = spentTotal.Add(spent)
		remaining = remaining.Sub(spent)
		position = position.Add(kwh)
	}

	if remaining.IsPositive() || len(result.Breakdown) == 0 {
		return Result{}, fmt.Errorf("%w: %s left unallocated from %s", ErrAllocationExhausted, remaining.StringFixed(MoneyScale), amount.StringFixed(MoneyScale))
	}

	if result.EnergyKWh.IsPositive() {
		result.BlendedUnitPrice = spentTotal.DivRound(result.EnergyKWh, divisionPrecision).Round(MoneyScale)
	} else {
		result.BlendedUnitPrice = decimal.Zero
	}

	return result, nil
}

// step returns the energy and money consumed in a single tier. When the tier
// fills up the energy is the remaining capacity and the money is its price;
// otherwise the whole remaining amount is spent.
func step(tier Tier, position, remaining decimal.Decimal) (decimal.Decimal, decimal.Decimal) {
	affordable := remaining.DivRound(tier.UnitPrice, divisionPrecision)

	if tier.Max != nil {
		capacity := tier.Max.Sub(position).Round(EnergyScale)
		if capacity.LessThanOrEqual(affordable) {
			spent := capacity.Mul(tier.UnitPrice).Round(MoneyScale)
			if spent.GreaterThan(remaining) {
				spent = remaining
			}
			return capacity, spent
		}
	}

	return affordable.Round(EnergyScale), remaining
}
