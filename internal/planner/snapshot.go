// Package planner holds the per-user in-memory planning model and the
// overspend reconciliation logic that runs on top of it.
package planner

import (
	"time"

	"github.com/shopspring/decimal"

	"plata/internal/budget"
	"plata/internal/core"
	"plata/internal/tips"
)

// Snapshot is the aggregate model loaded for one user. It is the sole
// mutable in-memory state of an operation and must be discarded after any
// persistence write, otherwise a later overspend check runs on
// pre-mutation totals.
type Snapshot struct {
	UserID string
	Goal   string

	Incomes      []core.Income
	Transactions []core.Transaction
	Debts        []core.Debt
	Shortcuts    []core.Shortcut

	Percentages       budget.Percentages
	PendingOverspends map[core.SpendType]decimal.Decimal
	ShownTipIDs       []string
}

// NewSnapshot returns the default empty model used for brand-new users
// and for users whose profile could not be read.
func NewSnapshot(userID string) *Snapshot {
	return &Snapshot{
		UserID:            userID,
		Percentages:       budget.Default(),
		PendingOverspends: make(map[core.SpendType]decimal.Decimal),
	}
}

// TotalIncome sums all monthly income sources.
func (s *Snapshot) TotalIncome() decimal.Decimal {
	total := decimal.Zero
	for _, inc := range s.Incomes {
		total = total.Add(inc.Monthly)
	}
	return total
}

// Allocations derives the per-bucket budget ceilings from income and the
// stored percentages.
func (s *Snapshot) Allocations() map[core.SpendType]decimal.Decimal {
	return budget.Allocate(s.TotalIncome(), s.Percentages)
}

// MonthToDate aggregates this user's spending for the calendar month
// containing now.
func (s *Snapshot) MonthToDate(now time.Time) map[core.SpendType]decimal.Decimal {
	return budget.MonthToDateByType(s.Transactions, now.Year(), now.Month())
}

// IncomeLevel segments the user for tip selection.
func (s *Snapshot) IncomeLevel() tips.Level {
	return tips.LevelForIncome(s.TotalIncome())
}

// DebtCondition reports the user's debt-presence tag.
func (s *Snapshot) DebtCondition() tips.Condition {
	return tips.ConditionForDebts(len(s.Debts) > 0)
}

// ShortcutByID finds a quick-expense template.
func (s *Snapshot) ShortcutByID(id string) (core.Shortcut, bool) {
	for _, sc := range s.Shortcuts {
		if sc.ID == id {
			return sc, true
		}
	}
	return core.Shortcut{}, false
}
