package planner

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"plata/internal/budget"
	"plata/internal/core"
)

var (
	// ErrUnknownSource is returned when a move source is not among the
	// episode's offered options.
	ErrUnknownSource = errors.New("unknown source category")
	// ErrInvalidMove is returned when a move amount is non-positive or
	// exceeds the source's availability; the episode stays open so the
	// caller can re-prompt.
	ErrInvalidMove = errors.New("invalid move amount")
	// ErrNoSourceChosen is returned when an amount arrives before a
	// source was selected.
	ErrNoSourceChosen = errors.New("no source category chosen")
)

// MoveOption is a category with funds still available this month.
type MoveOption struct {
	Source    core.SpendType
	Available decimal.Decimal
}

// Detection is the outcome of checking a freshly recorded transaction
// against the budget.
type Detection struct {
	SpendType  core.SpendType
	Remaining  decimal.Decimal
	OverBudget bool
	Overage    decimal.Decimal
	Options    []MoveOption
}

// Detect computes the remaining balance for the bucket a transaction was
// recorded against, month-to-date totals already including it. When the
// bucket is over budget it also collects every other bucket with positive
// availability as a move option, in canonical display order.
func Detect(snap *Snapshot, spendType core.SpendType, now time.Time) Detection {
	bucket := spendType.Normalize()
	allocated := snap.Allocations()
	spent := snap.MonthToDate(now)

	remaining := allocated[bucket].Sub(spent[bucket])
	det := Detection{SpendType: bucket, Remaining: remaining}
	if remaining.Sign() >= 0 {
		return det
	}

	det.OverBudget = true
	det.Overage = remaining.Neg()
	for _, other := range core.SpendTypes() {
		if other == bucket {
			continue
		}
		available := allocated[other].Sub(spent[other])
		if available.Sign() > 0 {
			det.Options = append(det.Options, MoveOption{Source: other, Available: available})
		}
	}
	return det
}

// MoveDelta converts a confirmed move amount into the percentage shift
// applied to the source and destination buckets. A user without income
// gets no percentage change; the move then only settles the pending
// overspend bookkeeping.
func MoveDelta(moveAmount, totalIncome decimal.Decimal) decimal.Decimal {
	if totalIncome.Sign() <= 0 {
		return decimal.Zero
	}
	return moveAmount.Div(totalIncome)
}

// ApplyMove returns a copy of p with delta shifted from source to dest.
// This is the only mechanism besides explicit user edits that changes
// budget percentages; it reallocates future budget share permanently
// rather than transferring funds once.
func ApplyMove(p budget.Percentages, source, dest core.SpendType, delta decimal.Decimal) budget.Percentages {
	out := p.Clone()
	out[source.Normalize()] = out[source.Normalize()].Sub(delta)
	out[dest.Normalize()] = out[dest.Normalize()].Add(delta)
	return out
}

// Episode is the finite-state context of one overspend reconciliation
// exchange. It carries only the fields of the in-progress operation and
// is discarded once resolved; it performs no I/O itself.
type Episode struct {
	Exceeded core.SpendType
	Overage  decimal.Decimal
	Options  []MoveOption

	source    core.SpendType
	hasSource bool
}

// NewEpisode opens an episode from an over-budget detection.
func NewEpisode(det Detection) *Episode {
	return &Episode{
		Exceeded: det.SpendType,
		Overage:  det.Overage,
		Options:  det.Options,
	}
}

// ChooseSource selects where funds will be moved from and returns the
// suggested move amount, min(overage, available).
func (e *Episode) ChooseSource(source core.SpendType) (decimal.Decimal, error) {
	available, ok := e.availability(source)
	if !ok {
		return decimal.Zero, ErrUnknownSource
	}
	e.source = source.Normalize()
	e.hasSource = true
	return decimal.Min(e.Overage, available), nil
}

// Source returns the chosen source bucket, if any.
func (e *Episode) Source() (core.SpendType, bool) {
	return e.source, e.hasSource
}

// ValidateAmount checks a user-entered move amount against the chosen
// source's availability.
func (e *Episode) ValidateAmount(amount decimal.Decimal) error {
	if !e.hasSource {
		return ErrNoSourceChosen
	}
	available, _ := e.availability(e.source)
	if amount.Sign() <= 0 || amount.GreaterThan(available) {
		return ErrInvalidMove
	}
	return nil
}

func (e *Episode) availability(source core.SpendType) (decimal.Decimal, bool) {
	for _, opt := range e.Options {
		if opt.Source == source.Normalize() {
			return opt.Available, true
		}
	}
	return decimal.Zero, false
}
