package services

import (
	"context"
	"errors"
	"math/rand"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"plata/internal/budget"
	"plata/internal/core"
	"plata/internal/planner"
	"plata/internal/store"
	"plata/internal/store/memory"
	"plata/internal/tips"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

var fixedNow = time.Date(2026, time.March, 15, 12, 0, 0, 0, time.UTC)

func newTestService(t *testing.T) (*PlannerService, *memory.Store) {
	t.Helper()
	st := memory.New()
	svc := New(st, Options{
		Selector: tips.NewSelector(rand.New(rand.NewSource(7))),
		Now:      func() time.Time { return fixedNow },
	})
	return svc, st
}

// seedUser provisions a profile with $10,000 income on the default split.
func seedUser(t *testing.T, svc *PlannerService, userID string) {
	t.Helper()
	ctx := context.Background()
	if err := svc.CreateProfile(ctx, userID, "Comprar una casa", budget.Default()); err != nil {
		t.Fatalf("CreateProfile: %v", err)
	}
	if _, err := svc.SaveIncome(ctx, userID, core.Income{Name: "Sueldo", Monthly: dec("10000")}); err != nil {
		t.Fatalf("SaveIncome: %v", err)
	}
}

func TestSnapshotNewUserDefaults(t *testing.T) {
	svc, _ := newTestService(t)

	snap := svc.Snapshot(context.Background(), "nobody")
	if err := snap.Percentages.Validate(); err != nil {
		t.Errorf("new user percentages invalid: %v", err)
	}
	if snap.Percentages[core.Necesidades].String() != "0.5" {
		t.Errorf("default Necesidades = %s, want 0.5", snap.Percentages[core.Necesidades])
	}
	if !snap.TotalIncome().IsZero() {
		t.Errorf("new user income = %s, want 0", snap.TotalIncome())
	}
}

func TestRecordTransactionWithinBudget(t *testing.T) {
	svc, st := newTestService(t)
	seedUser(t, svc, "u1")
	ctx := context.Background()

	result, err := svc.RecordTransaction(ctx, "u1", core.Transaction{
		Amount:    dec("1000"),
		Category:  "Comida",
		SpendType: core.Necesidades,
	})
	if err != nil {
		t.Fatalf("RecordTransaction: %v", err)
	}
	if result.Status != StatusOK {
		t.Fatalf("status = %s, want ok", result.Status)
	}
	if result.Remaining.String() != "4000" {
		t.Errorf("remaining = %s, want 4000", result.Remaining)
	}
	if result.TransactionID == "" {
		t.Error("no transaction id returned")
	}
	if _, open := svc.Episode("u1"); open {
		t.Error("episode opened for an in-budget spend")
	}

	// The denormalized summary is maintained alongside the record.
	summary := st.MonthlySummary("u1", store.MonthKey(fixedNow))
	if summary[string(core.Necesidades)].String() != "1000" {
		t.Errorf("monthly summary = %v, want 1000 in Necesidades", summary)
	}
}

func TestRecordTransactionRejectsInvalid(t *testing.T) {
	svc, _ := newTestService(t)
	seedUser(t, svc, "u1")

	_, err := svc.RecordTransaction(context.Background(), "u1", core.Transaction{
		Amount:    dec("10"),
		Category:  "Comida",
		SpendType: "Viajes",
	})
	if !errors.Is(err, core.ErrInvalidSpendType) {
		t.Fatalf("err = %v, want ErrInvalidSpendType", err)
	}
}

func TestOverspendFullResolution(t *testing.T) {
	svc, _ := newTestService(t)
	seedUser(t, svc, "u1")
	ctx := context.Background()

	// Deseos allocation is 3000; 3500 overshoots by 500.
	result, err := svc.RecordTransaction(ctx, "u1", core.Transaction{
		Amount:    dec("3500"),
		Category:  "Ropa",
		SpendType: core.Deseos,
	})
	if err != nil {
		t.Fatalf("RecordTransaction: %v", err)
	}
	if result.Status != StatusOverBudget || result.Overage.String() != "500" {
		t.Fatalf("status/overage = %s/%s, want over_budget/500", result.Status, result.Overage)
	}
	if len(result.Options) != 2 {
		t.Fatalf("options = %d, want 2", len(result.Options))
	}

	// Choosing a source without an amount returns the suggestion.
	res, err := svc.ResolveOverspend(ctx, "u1", Choice{Source: core.Necesidades})
	if err != nil {
		t.Fatalf("ResolveOverspend(source): %v", err)
	}
	if res.Resolved {
		t.Fatal("episode resolved before an amount was given")
	}
	if res.Suggested.String() != "500" {
		t.Errorf("suggested = %s, want 500", res.Suggested)
	}

	res, err = svc.ResolveOverspend(ctx, "u1", Choice{Amount: dec("500"), HasAmount: true})
	if err != nil {
		t.Fatalf("ResolveOverspend(amount): %v", err)
	}
	if !res.Resolved || !res.RemainingPending.IsZero() {
		t.Fatalf("resolved/remaining = %v/%s, want true/0", res.Resolved, res.RemainingPending)
	}

	// The move permanently shifted 5% of income from Necesidades to Deseos.
	snap := svc.Snapshot(ctx, "u1")
	if snap.Percentages[core.Necesidades].String() != "0.45" {
		t.Errorf("Necesidades = %s, want 0.45", snap.Percentages[core.Necesidades])
	}
	if snap.Percentages[core.Deseos].String() != "0.35" {
		t.Errorf("Deseos = %s, want 0.35", snap.Percentages[core.Deseos])
	}
	if err := snap.Percentages.Validate(); err != nil {
		t.Errorf("percentages no longer sum to 100%%: %v", err)
	}
	if len(snap.PendingOverspends) != 0 {
		t.Errorf("pending overspends = %v, want none", snap.PendingOverspends)
	}
	if _, open := svc.Episode("u1"); open {
		t.Error("episode still open after resolution")
	}
}

func TestOverspendPartialResolutionLeavesPending(t *testing.T) {
	svc, _ := newTestService(t)
	seedUser(t, svc, "u1")
	ctx := context.Background()

	if _, err := svc.RecordTransaction(ctx, "u1", core.Transaction{
		Amount: dec("3500"), Category: "Ropa", SpendType: core.Deseos,
	}); err != nil {
		t.Fatalf("RecordTransaction: %v", err)
	}

	res, err := svc.ResolveOverspend(ctx, "u1", Choice{
		Source: core.Inversion, Amount: dec("300"), HasAmount: true,
	})
	if err != nil {
		t.Fatalf("ResolveOverspend: %v", err)
	}
	if !res.Resolved || res.RemainingPending.String() != "200" {
		t.Fatalf("remaining pending = %s, want 200", res.RemainingPending)
	}

	snap := svc.Snapshot(ctx, "u1")
	if snap.PendingOverspends[core.Deseos].String() != "200" {
		t.Errorf("persisted pending = %s, want 200", snap.PendingOverspends[core.Deseos])
	}
	if snap.Percentages[core.Inversion].String() != "0.17" {
		t.Errorf("Inversión = %s, want 0.17", snap.Percentages[core.Inversion])
	}
}

func TestOverspendResidualBelowEpsilonClears(t *testing.T) {
	svc, _ := newTestService(t)
	seedUser(t, svc, "u1")
	ctx := context.Background()

	if _, err := svc.RecordTransaction(ctx, "u1", core.Transaction{
		Amount: dec("3500"), Category: "Ropa", SpendType: core.Deseos,
	}); err != nil {
		t.Fatalf("RecordTransaction: %v", err)
	}

	// 499.995 leaves a residue of 0.005, below the 0.01 epsilon.
	res, err := svc.ResolveOverspend(ctx, "u1", Choice{
		Source: core.Necesidades, Amount: dec("499.995"), HasAmount: true,
	})
	if err != nil {
		t.Fatalf("ResolveOverspend: %v", err)
	}
	if !res.RemainingPending.IsZero() {
		t.Errorf("remaining pending = %s, want 0", res.RemainingPending)
	}
	snap := svc.Snapshot(ctx, "u1")
	if len(snap.PendingOverspends) != 0 {
		t.Errorf("pending overspends = %v, want cleared", snap.PendingOverspends)
	}
}

func TestOverspendLeave(t *testing.T) {
	svc, _ := newTestService(t)
	seedUser(t, svc, "u1")
	ctx := context.Background()

	if _, err := svc.RecordTransaction(ctx, "u1", core.Transaction{
		Amount: dec("3500"), Category: "Ropa", SpendType: core.Deseos,
	}); err != nil {
		t.Fatalf("RecordTransaction: %v", err)
	}

	res, err := svc.ResolveOverspend(ctx, "u1", Choice{Leave: true})
	if err != nil {
		t.Fatalf("ResolveOverspend(leave): %v", err)
	}
	if !res.Resolved || res.RemainingPending.String() != "500" {
		t.Fatalf("remaining pending = %s, want full 500", res.RemainingPending)
	}

	snap := svc.Snapshot(ctx, "u1")
	if snap.PendingOverspends[core.Deseos].String() != "500" {
		t.Errorf("persisted pending = %s, want 500", snap.PendingOverspends[core.Deseos])
	}
	// Percentages untouched.
	if snap.Percentages[core.Deseos].String() != "0.3" {
		t.Errorf("Deseos = %s, want unchanged 0.3", snap.Percentages[core.Deseos])
	}
}

func TestOverspendInvalidAmountKeepsEpisode(t *testing.T) {
	svc, _ := newTestService(t)
	seedUser(t, svc, "u1")
	ctx := context.Background()

	if _, err := svc.RecordTransaction(ctx, "u1", core.Transaction{
		Amount: dec("3500"), Category: "Ropa", SpendType: core.Deseos,
	}); err != nil {
		t.Fatalf("RecordTransaction: %v", err)
	}

	// Inversión has 2000 available; asking for more must re-prompt.
	_, err := svc.ResolveOverspend(ctx, "u1", Choice{
		Source: core.Inversion, Amount: dec("2500"), HasAmount: true,
	})
	if !errors.Is(err, planner.ErrInvalidMove) {
		t.Fatalf("err = %v, want ErrInvalidMove", err)
	}
	if _, open := svc.Episode("u1"); !open {
		t.Fatal("episode discarded after invalid amount")
	}

	// A corrected amount still goes through.
	res, err := svc.ResolveOverspend(ctx, "u1", Choice{Amount: dec("500"), HasAmount: true})
	if err != nil {
		t.Fatalf("retry: %v", err)
	}
	if !res.Resolved {
		t.Error("retry did not resolve the episode")
	}
}

func TestOverspendNoEpisode(t *testing.T) {
	svc, _ := newTestService(t)
	seedUser(t, svc, "u1")

	_, err := svc.ResolveOverspend(context.Background(), "u1", Choice{Leave: true})
	if !errors.Is(err, ErrNoEpisode) {
		t.Fatalf("err = %v, want ErrNoEpisode", err)
	}
}

func TestOverspendNoMovableFunds(t *testing.T) {
	svc, _ := newTestService(t)
	seedUser(t, svc, "u1")
	ctx := context.Background()

	// Drain the other buckets first.
	for _, tx := range []core.Transaction{
		{Amount: dec("5000"), Category: "Renta", SpendType: core.Necesidades},
		{Amount: dec("2000"), Category: "Cetes", SpendType: core.Inversion},
	} {
		if _, err := svc.RecordTransaction(ctx, "u1", tx); err != nil {
			t.Fatalf("seed spend: %v", err)
		}
	}

	result, err := svc.RecordTransaction(ctx, "u1", core.Transaction{
		Amount: dec("3100"), Category: "Ropa", SpendType: core.Deseos,
	})
	if err != nil {
		t.Fatalf("RecordTransaction: %v", err)
	}
	if result.Status != StatusOverBudget || !result.Resolved {
		t.Fatalf("status/resolved = %s/%v, want over_budget auto-resolved", result.Status, result.Resolved)
	}
	if _, open := svc.Episode("u1"); open {
		t.Error("episode opened with no movable funds")
	}

	snap := svc.Snapshot(ctx, "u1")
	if snap.PendingOverspends[core.Deseos].String() != "100" {
		t.Errorf("pending = %s, want 100", snap.PendingOverspends[core.Deseos])
	}
}

func TestCacheInvalidationAfterWrites(t *testing.T) {
	svc, _ := newTestService(t)
	seedUser(t, svc, "u1")
	ctx := context.Background()

	before := svc.Snapshot(ctx, "u1")
	if before.TotalIncome().String() != "10000" {
		t.Fatalf("income = %s", before.TotalIncome())
	}

	if _, err := svc.SaveIncome(ctx, "u1", core.Income{Name: "Freelance", Monthly: dec("2000")}); err != nil {
		t.Fatalf("SaveIncome: %v", err)
	}

	after := svc.Snapshot(ctx, "u1")
	if after.TotalIncome().String() != "12000" {
		t.Errorf("income after save = %s, want 12000 (stale snapshot served)", after.TotalIncome())
	}
}

func TestComputeDebtPlans(t *testing.T) {
	svc, _ := newTestService(t)
	seedUser(t, svc, "u1")
	ctx := context.Background()

	if _, err := svc.SaveDebt(ctx, "u1", core.Debt{
		Name: "Tarjeta", Balance: dec("2000"), AnnualRate: dec("25"), MinPayment: dec("100"),
	}); err != nil {
		t.Fatalf("SaveDebt: %v", err)
	}

	plans := svc.ComputeDebtPlans(ctx, "u1", dec("300"))
	if plans.Avalanche == "" || plans.Snowball == "" {
		t.Fatal("empty plans for a user with debts")
	}

	// Debts are inputs only; planning must not change them.
	snap := svc.Snapshot(ctx, "u1")
	if snap.Debts[0].Balance.String() != "2000" {
		t.Errorf("debt balance changed to %s", snap.Debts[0].Balance)
	}
}

func TestNextTipCyclesWithoutRepeats(t *testing.T) {
	svc, st := newTestService(t)
	seedUser(t, svc, "u1")
	ctx := context.Background()

	corpus := []core.Tip{
		{ID: "t1", Title: "Uno", IncomeLevels: []string{"Todos"}, Conditions: []string{"Sin deudas"}},
		{ID: "t2", Title: "Dos", IncomeLevels: []string{"Todos"}, Conditions: []string{"Sin deudas"}},
		{ID: "t3", Title: "Tres", IncomeLevels: []string{"Todos"}, Conditions: []string{"Sin deudas"}},
	}
	if err := st.SeedTips(ctx, corpus); err != nil {
		t.Fatalf("SeedTips: %v", err)
	}

	seen := map[string]bool{}
	for i := 0; i < len(corpus); i++ {
		tip, err := svc.NextTip(ctx, "u1")
		if err != nil {
			t.Fatalf("NextTip #%d: %v", i+1, err)
		}
		if tip == nil {
			t.Fatalf("NextTip #%d returned nil with tips remaining", i+1)
		}
		if seen[tip.ID] {
			t.Fatalf("tip %s repeated before exhaustion", tip.ID)
		}
		seen[tip.ID] = true
	}

	// The pool is exhausted; the next pick resets and serves again.
	tip, err := svc.NextTip(ctx, "u1")
	if err != nil {
		t.Fatalf("NextTip after exhaustion: %v", err)
	}
	if tip == nil {
		t.Fatal("no tip after exclusion reset")
	}
	snap := svc.Snapshot(ctx, "u1")
	if len(snap.ShownTipIDs) != 1 || snap.ShownTipIDs[0] != tip.ID {
		t.Errorf("shown ids after reset = %v, want just %s", snap.ShownTipIDs, tip.ID)
	}
}

func TestNextTipEmptyCorpus(t *testing.T) {
	svc, _ := newTestService(t)
	seedUser(t, svc, "u1")

	tip, err := svc.NextTip(context.Background(), "u1")
	if err != nil {
		t.Fatalf("NextTip: %v", err)
	}
	if tip != nil {
		t.Errorf("tip from empty corpus: %v", tip)
	}
}

func TestInvokeShortcut(t *testing.T) {
	svc, _ := newTestService(t)
	seedUser(t, svc, "u1")
	ctx := context.Background()

	id, err := svc.SaveShortcut(ctx, "u1", core.Shortcut{
		Name: "Café", Amount: dec("45.50"), Category: "Comida", SpendType: core.Deseos,
	})
	if err != nil {
		t.Fatalf("SaveShortcut: %v", err)
	}

	result, err := svc.InvokeShortcut(ctx, "u1", id)
	if err != nil {
		t.Fatalf("InvokeShortcut: %v", err)
	}
	if result.Status != StatusOK {
		t.Errorf("status = %s, want ok", result.Status)
	}

	snap := svc.Snapshot(ctx, "u1")
	spent := snap.MonthToDate(fixedNow)
	if spent[core.Deseos].String() != "45.5" {
		t.Errorf("Deseos spent = %s, want 45.5", spent[core.Deseos])
	}

	if _, err := svc.InvokeShortcut(ctx, "u1", "missing"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("missing shortcut err = %v, want ErrNotFound", err)
	}
}

func TestLegacyPercentageKeyMigration(t *testing.T) {
	svc, st := newTestService(t)
	ctx := context.Background()

	// Simulate a profile written before the bucket was renamed.
	err := st.SaveProfile(ctx, "u1", store.Profile{
		Goal: "Salir de deudas",
		Percentages: map[string]decimal.Decimal{
			"Necesidades":   dec("0.5"),
			"Deseos":        dec("0.3"),
			"Ahorro/Deudas": dec("0.2"),
		},
	})
	if err != nil {
		t.Fatalf("SaveProfile: %v", err)
	}

	snap := svc.Snapshot(ctx, "u1")
	if snap.Percentages[core.Inversion].String() != "0.2" {
		t.Errorf("legacy key not remapped: %v", snap.Percentages)
	}
	if _, ok := snap.Percentages[core.LegacySavings]; ok {
		t.Error("legacy key survived in memory")
	}
}

func TestSetPercentagesValidated(t *testing.T) {
	svc, _ := newTestService(t)
	seedUser(t, svc, "u1")
	ctx := context.Background()

	err := svc.SetPercentages(ctx, "u1", budget.Percentages{
		core.Necesidades: dec("0.9"),
		core.Deseos:      dec("0.3"),
	})
	if !errors.Is(err, budget.ErrPercentagesSum) {
		t.Fatalf("err = %v, want ErrPercentagesSum", err)
	}

	valid := budget.Percentages{
		core.Necesidades: dec("0.6"),
		core.Deseos:      dec("0.2"),
		core.Inversion:   dec("0.2"),
	}
	if err := svc.SetPercentages(ctx, "u1", valid); err != nil {
		t.Fatalf("SetPercentages: %v", err)
	}
	snap := svc.Snapshot(ctx, "u1")
	if snap.Percentages[core.Necesidades].String() != "0.6" {
		t.Errorf("Necesidades = %s, want 0.6", snap.Percentages[core.Necesidades])
	}
}

func TestDebtPlanTieOrderStable(t *testing.T) {
	svc, _ := newTestService(t)
	seedUser(t, svc, "u1")
	ctx := context.Background()

	// Equal rates: avalanche must keep the order the debts were saved in.
	for _, name := range []string{"Tarjeta azul", "Tarjeta roja"} {
		if _, err := svc.SaveDebt(ctx, "u1", core.Debt{
			Name: name, Balance: dec("1000"), AnnualRate: dec("25"), MinPayment: dec("50"),
		}); err != nil {
			t.Fatalf("SaveDebt %s: %v", name, err)
		}
	}

	want := svc.ComputeDebtPlans(ctx, "u1", dec("200")).Avalanche
	if !strings.Contains(want, "Prioridad #1: Tarjeta azul") {
		t.Fatalf("priority #1 is not the first saved debt:\n%s", want)
	}
	for i := 0; i < 25; i++ {
		svc.Cache().Invalidate("u1")
		if got := svc.ComputeDebtPlans(ctx, "u1", dec("200")).Avalanche; got != want {
			t.Fatalf("avalanche order changed on reload:\n%s\nwant:\n%s", got, want)
		}
	}
}

func TestRecordBackdatedTransactionDetectsOverspend(t *testing.T) {
	svc, _ := newTestService(t)
	seedUser(t, svc, "u1")
	ctx := context.Background()

	lastMonth := fixedNow.AddDate(0, -1, 0)
	result, err := svc.RecordTransaction(ctx, "u1", core.Transaction{
		Amount:    dec("5000"),
		Category:  "Viaje",
		SpendType: core.Deseos,
		Date:      lastMonth,
	})
	if err != nil {
		t.Fatalf("RecordTransaction: %v", err)
	}
	// Deseos allocation is 3000, so the month the spend landed in is over.
	if result.Status != StatusOverBudget {
		t.Fatalf("status = %s, want over_budget", result.Status)
	}
	if result.Overage.String() != "2000" {
		t.Errorf("overage = %s, want 2000", result.Overage)
	}
	if len(result.Options) == 0 {
		t.Error("no move options offered")
	}

	// The current month stays untouched by the backdated spend.
	snap := svc.Snapshot(ctx, "u1")
	if spent := snap.MonthToDate(fixedNow); !spent[core.Deseos].IsZero() {
		t.Errorf("current month Deseos spent = %s, want 0", spent[core.Deseos])
	}
}
