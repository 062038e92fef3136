// Package store defines the persistence contract the planner core
// depends on. Every backend is a keyed document service with per-user
// sub-collections; consistency is enforced in application logic, never
// assumed from the store.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"plata/internal/core"
)

var (
	// ErrNotFound marks a missing profile or record. A missing profile
	// means "new user", not a failure.
	ErrNotFound = errors.New("not found")
	// ErrUnavailable marks a store that could not be reached; callers
	// report a retryable outcome and leave in-memory state unchanged.
	ErrUnavailable = errors.New("store unavailable")
)

// Profile is the user's root document.
type Profile struct {
	Goal              string
	Percentages       map[string]decimal.Decimal
	PendingOverspends map[string]decimal.Decimal
	ShownTipIDs       []string
}

// MonthKey renders the key the denormalized monthly summary is filed
// under, e.g. "2026-08".
func MonthKey(ts time.Time) string {
	return ts.Format("2006-01")
}

// Store is the persistence collaborator injected into every operation
// that needs storage. Save operations upsert when an id is supplied and
// insert (returning the new id) when it is empty.
type Store interface {
	LoadProfile(ctx context.Context, userID string) (Profile, error)
	SaveProfile(ctx context.Context, userID string, p Profile) error

	ListIncomes(ctx context.Context, userID string) ([]core.Income, error)
	SaveIncome(ctx context.Context, userID string, inc core.Income) (string, error)
	DeleteIncome(ctx context.Context, userID, id string) error

	// ListTransactions is windowed by calendar month; backends may return
	// a superset, the aggregator filters again.
	ListTransactions(ctx context.Context, userID string, year int, month time.Month) ([]core.Transaction, error)
	SaveTransaction(ctx context.Context, userID string, tx core.Transaction) (string, error)

	ListDebts(ctx context.Context, userID string) ([]core.Debt, error)
	SaveDebt(ctx context.Context, userID string, d core.Debt) (string, error)
	DeleteDebt(ctx context.Context, userID, id string) error

	ListShortcuts(ctx context.Context, userID string) ([]core.Shortcut, error)
	SaveShortcut(ctx context.Context, userID string, sc core.Shortcut) (string, error)
	DeleteShortcut(ctx context.Context, userID, id string) error

	UpdateBudgetPercentages(ctx context.Context, userID string, percentages map[string]decimal.Decimal) error
	SetPendingOverspend(ctx context.Context, userID, spendType string, amount decimal.Decimal) error
	ClearPendingOverspend(ctx context.Context, userID, spendType string) error
	SetShownTipIDs(ctx context.Context, userID string, ids []string) error

	// IncrementMonthlySummary maintains the denormalized running totals.
	// It is an optimization: callers log and swallow its failures.
	IncrementMonthlySummary(ctx context.Context, userID, monthKey, spendType string, delta decimal.Decimal) error

	ListTips(ctx context.Context) ([]core.Tip, error)
	SeedTips(ctx context.Context, tips []core.Tip) error

	Close() error
}
