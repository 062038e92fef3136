// Package memory is the in-process store backend used by tests and as
// the default backend when nothing else is configured.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"plata/internal/core"
	"plata/internal/store"
)

// collection keeps records addressable by id while preserving insertion
// order, so listings are stable across calls like the SQL backends.
type collection[T any] struct {
	items map[string]T
	order []string
}

func newCollection[T any]() *collection[T] {
	return &collection[T]{items: make(map[string]T)}
}

func (c *collection[T]) put(id string, v T) {
	if _, ok := c.items[id]; !ok {
		c.order = append(c.order, id)
	}
	c.items[id] = v
}

func (c *collection[T]) remove(id string) {
	if _, ok := c.items[id]; !ok {
		return
	}
	delete(c.items, id)
	for i, existing := range c.order {
		if existing == id {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
}

func (c *collection[T]) list() []T {
	out := make([]T, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, c.items[id])
	}
	return out
}

type userDocs struct {
	profile      store.Profile
	hasProfile   bool
	incomes      *collection[core.Income]
	transactions *collection[core.Transaction]
	debts        *collection[core.Debt]
	shortcuts    *collection[core.Shortcut]
	summaries    map[string]map[string]decimal.Decimal // monthKey -> spendType -> total
}

// Store keeps every user's documents in memory behind one mutex.
type Store struct {
	mu    sync.Mutex
	users map[string]*userDocs
	tips  []core.Tip
}

var _ store.Store = (*Store)(nil)

func New() *Store {
	return &Store{users: make(map[string]*userDocs)}
}

func (s *Store) user(userID string) *userDocs {
	u, ok := s.users[userID]
	if !ok {
		u = &userDocs{
			incomes:      newCollection[core.Income](),
			transactions: newCollection[core.Transaction](),
			debts:        newCollection[core.Debt](),
			shortcuts:    newCollection[core.Shortcut](),
			summaries:    make(map[string]map[string]decimal.Decimal),
		}
		s.users[userID] = u
	}
	return u
}

func cloneDecimalMap(m map[string]decimal.Decimal) map[string]decimal.Decimal {
	out := make(map[string]decimal.Decimal, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func (s *Store) LoadProfile(_ context.Context, userID string) (store.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[userID]
	if !ok || !u.hasProfile {
		return store.Profile{}, store.ErrNotFound
	}
	p := u.profile
	p.Percentages = cloneDecimalMap(u.profile.Percentages)
	p.PendingOverspends = cloneDecimalMap(u.profile.PendingOverspends)
	p.ShownTipIDs = append([]string(nil), u.profile.ShownTipIDs...)
	return p, nil
}

func (s *Store) SaveProfile(_ context.Context, userID string, p store.Profile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u := s.user(userID)
	if p.Percentages == nil {
		p.Percentages = make(map[string]decimal.Decimal)
	}
	if p.PendingOverspends == nil {
		p.PendingOverspends = make(map[string]decimal.Decimal)
	}
	u.profile = p
	u.hasProfile = true
	return nil
}

func (s *Store) ListIncomes(_ context.Context, userID string) ([]core.Income, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.user(userID).incomes.list(), nil
}

func (s *Store) SaveIncome(_ context.Context, userID string, inc core.Income) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if inc.ID == "" {
		inc.ID = uuid.NewString()
	}
	s.user(userID).incomes.put(inc.ID, inc)
	return inc.ID, nil
}

func (s *Store) DeleteIncome(_ context.Context, userID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.user(userID).incomes.remove(id)
	return nil
}

func (s *Store) ListTransactions(_ context.Context, userID string, year int, month time.Month) ([]core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.Transaction
	for _, tx := range s.user(userID).transactions.list() {
		if tx.Date.Year() == year && tx.Date.Month() == month {
			out = append(out, tx)
		}
	}
	return out, nil
}

func (s *Store) SaveTransaction(_ context.Context, userID string, tx core.Transaction) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if tx.ID == "" {
		tx.ID = uuid.NewString()
	}
	s.user(userID).transactions.put(tx.ID, tx)
	return tx.ID, nil
}

func (s *Store) ListDebts(_ context.Context, userID string) ([]core.Debt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.user(userID).debts.list(), nil
}

func (s *Store) SaveDebt(_ context.Context, userID string, d core.Debt) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if d.ID == "" {
		d.ID = uuid.NewString()
	}
	s.user(userID).debts.put(d.ID, d)
	return d.ID, nil
}

func (s *Store) DeleteDebt(_ context.Context, userID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.user(userID).debts.remove(id)
	return nil
}

func (s *Store) ListShortcuts(_ context.Context, userID string) ([]core.Shortcut, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.user(userID).shortcuts.list(), nil
}

func (s *Store) SaveShortcut(_ context.Context, userID string, sc core.Shortcut) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sc.ID == "" {
		sc.ID = uuid.NewString()
	}
	s.user(userID).shortcuts.put(sc.ID, sc)
	return sc.ID, nil
}

func (s *Store) DeleteShortcut(_ context.Context, userID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.user(userID).shortcuts.remove(id)
	return nil
}

func (s *Store) UpdateBudgetPercentages(_ context.Context, userID string, percentages map[string]decimal.Decimal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u := s.user(userID)
	u.profile.Percentages = cloneDecimalMap(percentages)
	u.hasProfile = true
	return nil
}

func (s *Store) SetPendingOverspend(_ context.Context, userID, spendType string, amount decimal.Decimal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u := s.user(userID)
	if u.profile.PendingOverspends == nil {
		u.profile.PendingOverspends = make(map[string]decimal.Decimal)
	}
	u.profile.PendingOverspends[spendType] = amount
	u.hasProfile = true
	return nil
}

func (s *Store) ClearPendingOverspend(_ context.Context, userID, spendType string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.user(userID).profile.PendingOverspends, spendType)
	return nil
}

func (s *Store) SetShownTipIDs(_ context.Context, userID string, ids []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u := s.user(userID)
	u.profile.ShownTipIDs = append([]string(nil), ids...)
	u.hasProfile = true
	return nil
}

func (s *Store) IncrementMonthlySummary(_ context.Context, userID, monthKey, spendType string, delta decimal.Decimal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u := s.user(userID)
	totals, ok := u.summaries[monthKey]
	if !ok {
		totals = make(map[string]decimal.Decimal)
		u.summaries[monthKey] = totals
	}
	totals[spendType] = totals[spendType].Add(delta)
	return nil
}

// MonthlySummary exposes the denormalized totals for assertions in tests.
func (s *Store) MonthlySummary(userID, monthKey string) map[string]decimal.Decimal {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneDecimalMap(s.user(userID).summaries[monthKey])
}

func (s *Store) ListTips(_ context.Context) ([]core.Tip, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]core.Tip(nil), s.tips...), nil
}

func (s *Store) SeedTips(_ context.Context, tips []core.Tip) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.tips) > 0 {
		return nil
	}
	s.tips = append([]core.Tip(nil), tips...)
	return nil
}

func (s *Store) Close() error { return nil }
