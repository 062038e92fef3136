// Package budget converts income into per-bucket allocations and
// aggregates month-to-date spending.
package budget

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"plata/internal/core"
)

// ErrPercentagesSum is returned when a set of user-supplied percentages
// does not add up to 100%.
var ErrPercentagesSum = errors.New("budget percentages must sum to 100%")

// sumTolerance absorbs decimal parsing noise when validating that
// percentages sum to exactly 1.0.
var sumTolerance = decimal.New(1, -6) // 1e-6

// Percentages maps each budget bucket to its fraction of total income.
// It is the single source of truth budget allocations are derived from.
type Percentages map[core.SpendType]decimal.Decimal

// Default is the 50/30/20 split suggested during onboarding.
func Default() Percentages {
	return Percentages{
		core.Necesidades: decimal.New(5, -1),
		core.Deseos:      decimal.New(3, -1),
		core.Inversion:   decimal.New(2, -1),
	}
}

// Validate checks that every fraction is non-negative and that the total
// is 1.0 within tolerance. It is enforced at the boundary where user
// input is parsed; code paths that adjust percentages arithmetically
// (the overspend fund move) preserve the sum by construction.
func (p Percentages) Validate() error {
	sum := decimal.Zero
	for _, frac := range p {
		if frac.Sign() < 0 {
			return ErrPercentagesSum
		}
		sum = sum.Add(frac)
	}
	if sum.Sub(decimal.NewFromInt(1)).Abs().GreaterThan(sumTolerance) {
		return ErrPercentagesSum
	}
	return nil
}

// Clone returns an independent copy, normalizing any legacy bucket key.
func (p Percentages) Clone() Percentages {
	out := make(Percentages, len(p))
	for t, frac := range p {
		out[t.Normalize()] = frac
	}
	return out
}

// Allocate multiplies total income by each stored percentage. An empty
// percentage set yields an all-zero allocation rather than an error; a
// user with no income supplies a zero total.
func Allocate(totalIncome decimal.Decimal, p Percentages) map[core.SpendType]decimal.Decimal {
	out := make(map[core.SpendType]decimal.Decimal, len(core.SpendTypes()))
	for _, t := range core.SpendTypes() {
		out[t] = decimal.Zero
	}
	for t, frac := range p {
		out[t.Normalize()] = totalIncome.Mul(frac)
	}
	return out
}

// MonthToDateByType sums transaction amounts per spend type for the given
// calendar month. Legacy-typed transactions count toward Inversión.
// Unseen buckets are present with a zero total. Pure and idempotent.
func MonthToDateByType(transactions []core.Transaction, year int, month time.Month) map[core.SpendType]decimal.Decimal {
	totals := make(map[core.SpendType]decimal.Decimal, len(core.SpendTypes()))
	for _, t := range core.SpendTypes() {
		totals[t] = decimal.Zero
	}
	for _, tx := range transactions {
		if tx.Date.Year() != year || tx.Date.Month() != month {
			continue
		}
		bucket := tx.SpendType.Normalize()
		if _, ok := totals[bucket]; !ok {
			continue
		}
		totals[bucket] = totals[bucket].Add(tx.Amount)
	}
	return totals
}
