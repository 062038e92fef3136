// Package services orchestrates planner operations across the document
// store, the snapshot cache and the event stream.
package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"plata/internal/budget"
	"plata/internal/core"
	"plata/internal/debt"
	"plata/internal/events"
	"plata/internal/planner"
	"plata/internal/store"
	"plata/internal/tips"
)

var (
	// ErrNoEpisode is returned when an overspend resolution arrives
	// without an open reconciliation episode for that user.
	ErrNoEpisode = errors.New("no overspend episode in progress")
)

// SummaryPublisher sends denormalized-summary increments to the worker.
type SummaryPublisher interface {
	PublishSummaryIncrement(ctx context.Context, msg *events.SummaryIncrementMessage) error
}

// Options tunes a PlannerService. Zero values select sensible defaults.
type Options struct {
	// Events is optional; when nil, summary increments are applied
	// directly against the store, still best-effort.
	Events SummaryPublisher
	// Epsilon below which a residual overage counts as fully resolved.
	// Defaults to 0.01 currency units.
	Epsilon decimal.Decimal
	// Selector drives tip randomness; nil uses the global source.
	Selector *tips.Selector
	// Now is injectable for tests; defaults to time.Now.
	Now func() time.Time

	CacheSize int
	CacheTTL  time.Duration
}

// PlannerService exposes the planning operations the presentation layer
// drives. One instance serves all users; reconciliation episodes are
// tracked per user.
type PlannerService struct {
	store    store.Store
	events   SummaryPublisher
	cache    *planner.Cache
	selector *tips.Selector
	epsilon  decimal.Decimal
	now      func() time.Time

	mu       sync.Mutex
	episodes map[string]*planner.Episode
}

func New(st store.Store, opts Options) *PlannerService {
	if opts.Epsilon.Sign() <= 0 {
		opts.Epsilon = decimal.New(1, -2) // 0.01
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.CacheSize <= 0 {
		opts.CacheSize = 512
	}
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = 5 * time.Minute
	}
	if opts.Selector == nil {
		opts.Selector = tips.NewSelector(nil)
	}
	return &PlannerService{
		store:    st,
		events:   opts.Events,
		cache:    planner.NewCache(opts.CacheSize, opts.CacheTTL),
		selector: opts.Selector,
		epsilon:  opts.Epsilon,
		now:      opts.Now,
		episodes: make(map[string]*planner.Episode),
	}
}

// Cache exposes the snapshot cache for periodic cleanup registration.
func (s *PlannerService) Cache() *planner.Cache { return s.cache }

// Snapshot returns the user's aggregate model, from cache when fresh. A
// missing profile means a new user and a failing read degrades to the
// same empty, usable model rather than an error.
func (s *PlannerService) Snapshot(ctx context.Context, userID string) *planner.Snapshot {
	if snap, ok := s.cache.Get(userID); ok {
		return snap
	}
	snap := s.loadSnapshot(ctx, userID, s.now())
	s.cache.Set(userID, snap)
	return snap
}

// snapshotFor returns the aggregate model with transactions windowed at
// the given moment. Only the current month goes through the cache.
func (s *PlannerService) snapshotFor(ctx context.Context, userID string, at time.Time) *planner.Snapshot {
	now := s.now()
	if at.Year() == now.Year() && at.Month() == now.Month() {
		return s.Snapshot(ctx, userID)
	}
	return s.loadSnapshot(ctx, userID, at)
}

func (s *PlannerService) loadSnapshot(ctx context.Context, userID string, at time.Time) *planner.Snapshot {
	snap := planner.NewSnapshot(userID)
	profile, err := s.store.LoadProfile(ctx, userID)
	switch {
	case errors.Is(err, store.ErrNotFound):
		// New user: defaults stand.
	case err != nil:
		slog.ErrorContext(ctx, "Failed to load profile, using empty planner",
			"user_id", userID, "error", err)
		return snap
	default:
		snap.Goal = profile.Goal
		if len(profile.Percentages) > 0 {
			snap.Percentages = percentagesFromStored(profile.Percentages)
		}
		for k, v := range profile.PendingOverspends {
			snap.PendingOverspends[core.SpendType(k).Normalize()] = v
		}
		snap.ShownTipIDs = profile.ShownTipIDs
	}

	if snap.Incomes, err = s.store.ListIncomes(ctx, userID); err != nil {
		slog.ErrorContext(ctx, "Failed to list incomes", "user_id", userID, "error", err)
		snap.Incomes = nil
	}
	if snap.Transactions, err = s.store.ListTransactions(ctx, userID, at.Year(), at.Month()); err != nil {
		slog.ErrorContext(ctx, "Failed to list transactions", "user_id", userID, "error", err)
		snap.Transactions = nil
	}
	if snap.Debts, err = s.store.ListDebts(ctx, userID); err != nil {
		slog.ErrorContext(ctx, "Failed to list debts", "user_id", userID, "error", err)
		snap.Debts = nil
	}
	if snap.Shortcuts, err = s.store.ListShortcuts(ctx, userID); err != nil {
		slog.ErrorContext(ctx, "Failed to list shortcuts", "user_id", userID, "error", err)
		snap.Shortcuts = nil
	}
	return snap
}

// percentagesFromStored normalizes raw stored keys, migrating the legacy
// Ahorro/Deudas bucket name.
func percentagesFromStored(raw map[string]decimal.Decimal) budget.Percentages {
	p := make(budget.Percentages, len(raw))
	for k, v := range raw {
		p[core.SpendType(k).Normalize()] = v
	}
	return p
}

func storedPercentages(p budget.Percentages) map[string]decimal.Decimal {
	out := make(map[string]decimal.Decimal, len(p))
	for k, v := range p {
		out[string(k.Normalize())] = v
	}
	return out
}

// invalidate must run after every state-mutating write so the next read
// rebuilds the snapshot from the store.
func (s *PlannerService) invalidate(userID string) {
	s.cache.Invalidate(userID)
}

// CreateProfile provisions a new user from onboarding input. The
// percentages must already sum to 100% (boundary-validated).
func (s *PlannerService) CreateProfile(ctx context.Context, userID, goal string, percentages budget.Percentages) error {
	if err := percentages.Validate(); err != nil {
		return err
	}
	profile := store.Profile{
		Goal:              goal,
		Percentages:       storedPercentages(percentages),
		PendingOverspends: map[string]decimal.Decimal{},
		ShownTipIDs:       []string{},
	}
	if err := s.store.SaveProfile(ctx, userID, profile); err != nil {
		return fmt.Errorf("save profile: %w", err)
	}
	s.invalidate(userID)
	return nil
}

// SetGoal updates only the main financial goal.
func (s *PlannerService) SetGoal(ctx context.Context, userID, goal string) error {
	snap := s.Snapshot(ctx, userID)
	profile := store.Profile{
		Goal:              goal,
		Percentages:       storedPercentages(snap.Percentages),
		PendingOverspends: pendingToStored(snap.PendingOverspends),
		ShownTipIDs:       snap.ShownTipIDs,
	}
	if err := s.store.SaveProfile(ctx, userID, profile); err != nil {
		return fmt.Errorf("save profile: %w", err)
	}
	s.invalidate(userID)
	return nil
}

func pendingToStored(m map[core.SpendType]decimal.Decimal) map[string]decimal.Decimal {
	out := make(map[string]decimal.Decimal, len(m))
	for k, v := range m {
		out[string(k)] = v
	}
	return out
}

// SetPercentages applies an explicit budget edit after boundary
// validation and recomputes allocations on the next read.
func (s *PlannerService) SetPercentages(ctx context.Context, userID string, percentages budget.Percentages) error {
	if err := percentages.Validate(); err != nil {
		return err
	}
	if err := s.store.UpdateBudgetPercentages(ctx, userID, storedPercentages(percentages)); err != nil {
		return fmt.Errorf("update percentages: %w", err)
	}
	s.invalidate(userID)
	return nil
}

// RecordStatus reports how a recorded transaction sits against the
// budget.
type RecordStatus string

const (
	StatusOK         RecordStatus = "ok"
	StatusOverBudget RecordStatus = "over_budget"
)

// RecordResult is the outcome of recording a transaction. For an
// over-budget record with no movable funds, the full overage is already
// persisted as pending and Resolved is set.
type RecordResult struct {
	TransactionID string
	Status        RecordStatus
	SpendType     core.SpendType
	Remaining     decimal.Decimal
	Overage       decimal.Decimal
	Options       []planner.MoveOption
	Resolved      bool
}

// RecordTransaction durably records the transaction, recomputes
// month-to-date totals including it, and either reports the remaining
// budget or opens an overspend reconciliation episode.
func (s *PlannerService) RecordTransaction(ctx context.Context, userID string, tx core.Transaction) (RecordResult, error) {
	tx.SpendType = tx.SpendType.Normalize()
	if err := tx.Validate(); err != nil {
		return RecordResult{}, err
	}
	if tx.Date.IsZero() {
		tx.Date = s.now()
	}

	id, err := s.store.SaveTransaction(ctx, userID, tx)
	if err != nil {
		return RecordResult{}, fmt.Errorf("save transaction: %w", err)
	}
	s.publishSummaryIncrement(ctx, userID, tx)
	s.invalidate(userID)

	snap := s.snapshotFor(ctx, userID, tx.Date)
	det := planner.Detect(snap, tx.SpendType, tx.Date)

	result := RecordResult{
		TransactionID: id,
		SpendType:     det.SpendType,
		Remaining:     det.Remaining,
	}
	if !det.OverBudget {
		result.Status = StatusOK
		return result, nil
	}

	result.Status = StatusOverBudget
	result.Overage = det.Overage
	result.Options = det.Options

	if len(det.Options) == 0 {
		// Nothing to move: the whole overage becomes a pending reminder
		// and the episode is over before it starts.
		if err := s.store.SetPendingOverspend(ctx, userID, string(det.SpendType), det.Overage); err != nil {
			return result, fmt.Errorf("record pending overspend: %w", err)
		}
		s.invalidate(userID)
		result.Resolved = true
		return result, nil
	}

	s.mu.Lock()
	s.episodes[userID] = planner.NewEpisode(det)
	s.mu.Unlock()
	return result, nil
}

func (s *PlannerService) publishSummaryIncrement(ctx context.Context, userID string, tx core.Transaction) {
	monthKey := store.MonthKey(tx.Date)
	spendType := string(tx.SpendType)

	// Denormalized optimization only: failures are logged and swallowed,
	// never propagated.
	if s.events != nil {
		msg := events.NewSummaryIncrementMessage(userID, monthKey, spendType, tx.Amount)
		if err := s.events.PublishSummaryIncrement(ctx, msg); err != nil {
			slog.ErrorContext(ctx, "Failed to publish summary increment",
				"user_id", userID, "month_key", monthKey, "error", err)
		}
		return
	}
	if err := s.store.IncrementMonthlySummary(ctx, userID, monthKey, spendType, tx.Amount); err != nil {
		slog.ErrorContext(ctx, "Failed to increment monthly summary",
			"user_id", userID, "month_key", monthKey, "error", err)
	}
}

// Episode returns the user's open reconciliation episode, if any.
func (s *PlannerService) Episode(userID string) (*planner.Episode, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ep, ok := s.episodes[userID]
	return ep, ok
}

func (s *PlannerService) closeEpisode(userID string) {
	s.mu.Lock()
	delete(s.episodes, userID)
	s.mu.Unlock()
}

// Choice is one presentation-layer answer inside a reconciliation
// episode.
type Choice struct {
	// Leave abandons the move and records the full overage as pending.
	Leave bool
	// Source selects the category funds come from.
	Source core.SpendType
	// Amount, when HasAmount is set, is the confirmed move amount.
	Amount    decimal.Decimal
	HasAmount bool
}

// ResolveResult reports the episode's progress after a choice.
type ResolveResult struct {
	Resolved bool
	// Suggested is min(overage, available) after a source is chosen.
	Suggested decimal.Decimal
	// RemainingPending is the residual overage persisted as pending;
	// zero when fully covered.
	RemainingPending decimal.Decimal
}

// ResolveOverspend advances the user's reconciliation episode. An
// invalid move amount returns planner.ErrInvalidMove with the episode
// still open so the caller can re-prompt.
func (s *PlannerService) ResolveOverspend(ctx context.Context, userID string, choice Choice) (ResolveResult, error) {
	ep, ok := s.Episode(userID)
	if !ok {
		return ResolveResult{}, ErrNoEpisode
	}

	if choice.Leave {
		if err := s.store.SetPendingOverspend(ctx, userID, string(ep.Exceeded), ep.Overage); err != nil {
			return ResolveResult{}, fmt.Errorf("record pending overspend: %w", err)
		}
		s.closeEpisode(userID)
		s.invalidate(userID)
		return ResolveResult{Resolved: true, RemainingPending: ep.Overage}, nil
	}

	if choice.Source != "" {
		suggested, err := ep.ChooseSource(choice.Source)
		if err != nil {
			return ResolveResult{}, err
		}
		if !choice.HasAmount {
			return ResolveResult{Suggested: suggested}, nil
		}
	}

	if !choice.HasAmount {
		return ResolveResult{}, planner.ErrNoSourceChosen
	}
	if err := ep.ValidateAmount(choice.Amount); err != nil {
		return ResolveResult{}, err
	}
	source, _ := ep.Source()

	// Settle the pending reminder before shifting percentages; both
	// writes are idempotent, so a failed attempt can be retried without
	// double-applying the move.
	remaining := ep.Overage.Sub(choice.Amount)
	if remaining.GreaterThan(s.epsilon) {
		if err := s.store.SetPendingOverspend(ctx, userID, string(ep.Exceeded), remaining); err != nil {
			return ResolveResult{}, fmt.Errorf("record pending overspend: %w", err)
		}
	} else {
		remaining = decimal.Zero
		if err := s.store.ClearPendingOverspend(ctx, userID, string(ep.Exceeded)); err != nil {
			return ResolveResult{}, fmt.Errorf("clear pending overspend: %w", err)
		}
	}

	snap := s.Snapshot(ctx, userID)
	delta := planner.MoveDelta(choice.Amount, snap.TotalIncome())
	if delta.Sign() > 0 {
		updated := planner.ApplyMove(snap.Percentages, source, ep.Exceeded, delta)
		if err := s.store.UpdateBudgetPercentages(ctx, userID, storedPercentages(updated)); err != nil {
			return ResolveResult{}, fmt.Errorf("update percentages: %w", err)
		}
	}

	s.closeEpisode(userID)
	s.invalidate(userID)
	return ResolveResult{Resolved: true, RemainingPending: remaining}, nil
}

// DebtPlans carries both rendered payoff schedules.
type DebtPlans struct {
	Avalanche string
	Snowball  string
}

// ComputeDebtPlans renders the avalanche and snowball schedules for the
// user's current debts. Debts are never mutated.
func (s *PlannerService) ComputeDebtPlans(ctx context.Context, userID string, extraMonthly decimal.Decimal) DebtPlans {
	snap := s.Snapshot(ctx, userID)
	return DebtPlans{
		Avalanche: debt.RenderPlan(debt.Avalanche(snap.Debts), extraMonthly),
		Snowball:  debt.RenderPlan(debt.Snowball(snap.Debts), extraMonthly),
	}
}

// NextTip picks an unseen tip for the user's income level and debt
// condition, resetting the seen list once the pool is exhausted. Returns
// nil when no tip applies at all.
func (s *PlannerService) NextTip(ctx context.Context, userID string) (*core.Tip, error) {
	snap := s.Snapshot(ctx, userID)

	corpus, err := s.store.ListTips(ctx)
	if err != nil {
		return nil, fmt.Errorf("list tips: %w", err)
	}

	tip, reset := s.selector.PickNext(corpus, snap.IncomeLevel(), snap.DebtCondition(), snap.ShownTipIDs)
	if tip == nil {
		return nil, nil
	}

	shown := snap.ShownTipIDs
	if reset {
		shown = nil
	}
	shown = append(shown, tip.ID)
	if err := s.store.SetShownTipIDs(ctx, userID, shown); err != nil {
		// The tip may repeat next time; not worth failing the request.
		slog.ErrorContext(ctx, "Failed to persist shown tip ids",
			"user_id", userID, "error", err)
	}
	s.invalidate(userID)
	return tip, nil
}

// SaveIncome upserts an income source.
func (s *PlannerService) SaveIncome(ctx context.Context, userID string, inc core.Income) (string, error) {
	if err := inc.Validate(); err != nil {
		return "", err
	}
	id, err := s.store.SaveIncome(ctx, userID, inc)
	if err != nil {
		return "", fmt.Errorf("save income: %w", err)
	}
	s.invalidate(userID)
	return id, nil
}

// DeleteIncome removes an income source.
func (s *PlannerService) DeleteIncome(ctx context.Context, userID, id string) error {
	if err := s.store.DeleteIncome(ctx, userID, id); err != nil {
		return fmt.Errorf("delete income: %w", err)
	}
	s.invalidate(userID)
	return nil
}

// SaveDebt upserts a debt.
func (s *PlannerService) SaveDebt(ctx context.Context, userID string, d core.Debt) (string, error) {
	if err := d.Validate(); err != nil {
		return "", err
	}
	id, err := s.store.SaveDebt(ctx, userID, d)
	if err != nil {
		return "", fmt.Errorf("save debt: %w", err)
	}
	s.invalidate(userID)
	return id, nil
}

// DeleteDebt removes a debt.
func (s *PlannerService) DeleteDebt(ctx context.Context, userID, id string) error {
	if err := s.store.DeleteDebt(ctx, userID, id); err != nil {
		return fmt.Errorf("delete debt: %w", err)
	}
	s.invalidate(userID)
	return nil
}

// SaveShortcut upserts a quick-expense template.
func (s *PlannerService) SaveShortcut(ctx context.Context, userID string, sc core.Shortcut) (string, error) {
	sc.SpendType = sc.SpendType.Normalize()
	if err := sc.Validate(); err != nil {
		return "", err
	}
	id, err := s.store.SaveShortcut(ctx, userID, sc)
	if err != nil {
		return "", fmt.Errorf("save shortcut: %w", err)
	}
	s.invalidate(userID)
	return id, nil
}

// DeleteShortcut removes a quick-expense template.
func (s *PlannerService) DeleteShortcut(ctx context.Context, userID, id string) error {
	if err := s.store.DeleteShortcut(ctx, userID, id); err != nil {
		return fmt.Errorf("delete shortcut: %w", err)
	}
	s.invalidate(userID)
	return nil
}

// InvokeShortcut records a transaction from a saved template and runs it
// through the same overspend check as any other spend.
func (s *PlannerService) InvokeShortcut(ctx context.Context, userID, shortcutID string) (RecordResult, error) {
	snap := s.Snapshot(ctx, userID)
	sc, ok := snap.ShortcutByID(shortcutID)
	if !ok {
		return RecordResult{}, fmt.Errorf("shortcut %s: %w", shortcutID, store.ErrNotFound)
	}
	return s.RecordTransaction(ctx, userID, sc.Invoke(s.now()))
}
