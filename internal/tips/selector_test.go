package tips

import (
	"math/rand"
	"testing"

	"github.com/shopspring/decimal"

	"plata/internal/core"
)

func TestLevelForIncome(t *testing.T) {
	tests := []struct {
		income string
		want   Level
	}{
		{"0", Nivel1},
		{"8999.99", Nivel1},
		{"9000", Nivel2},
		{"29999.99", Nivel2},
		{"30000", Nivel3},
		{"79999.99", Nivel3},
		{"80000", Nivel4},
		{"149999.99", Nivel4},
		{"150000", Nivel5},
		{"1000000", Nivel5},
	}

	for _, tt := range tests {
		income, err := decimal.NewFromString(tt.income)
		if err != nil {
			t.Fatalf("bad test input %q: %v", tt.income, err)
		}
		if got := LevelForIncome(income); got != tt.want {
			t.Errorf("LevelForIncome(%s) = %s, want %s", tt.income, got, tt.want)
		}
	}
}

func TestConditionForDebts(t *testing.T) {
	if got := ConditionForDebts(true); got != WithDebt {
		t.Errorf("ConditionForDebts(true) = %s", got)
	}
	if got := ConditionForDebts(false); got != WithoutDebt {
		t.Errorf("ConditionForDebts(false) = %s", got)
	}
}

func testCorpus() []core.Tip {
	return []core.Tip{
		{ID: "t1", IncomeLevels: []string{"Nivel 1", "Nivel 2"}, Conditions: []string{"Con deudas", "Sin deudas"}},
		{ID: "t2", IncomeLevels: []string{"Todos"}, Conditions: []string{"Con deudas"}},
		{ID: "t3", IncomeLevels: []string{"Nivel 5"}, Conditions: []string{"Sin deudas"}},
	}
}

func TestEligible(t *testing.T) {
	tests := []struct {
		name      string
		level     Level
		condition Condition
		excluded  []string
		wantIDs   []string
	}{
		{name: "low income with debt", level: Nivel1, condition: WithDebt, wantIDs: []string{"t1", "t2"}},
		{name: "wildcard matches any level", level: Nivel3, condition: WithDebt, wantIDs: []string{"t2"}},
		{name: "condition filters", level: Nivel5, condition: WithoutDebt, wantIDs: []string{"t3"}},
		{name: "exclusions apply", level: Nivel1, condition: WithDebt, excluded: []string{"t1"}, wantIDs: []string{"t2"}},
		{name: "nothing eligible", level: Nivel4, condition: WithoutDebt, wantIDs: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Eligible(testCorpus(), tt.level, tt.condition, tt.excluded)
			if len(got) != len(tt.wantIDs) {
				t.Fatalf("eligible = %d tips, want %d", len(got), len(tt.wantIDs))
			}
			for i, tip := range got {
				if tip.ID != tt.wantIDs[i] {
					t.Errorf("eligible[%d] = %s, want %s", i, tip.ID, tt.wantIDs[i])
				}
			}
		})
	}
}

func TestPickNextResetsOnExhaustion(t *testing.T) {
	s := NewSelector(rand.New(rand.NewSource(1)))
	corpus := testCorpus()

	// Everything eligible for Nivel 1 + Con deudas already shown.
	tip, reset := s.PickNext(corpus, Nivel1, WithDebt, []string{"t1", "t2"})
	if tip == nil {
		t.Fatal("exhausted pool did not reset")
	}
	if !reset {
		t.Error("resetExclusions = false after exhaustion retry")
	}
	if tip.ID != "t1" && tip.ID != "t2" {
		t.Errorf("picked ineligible tip %s", tip.ID)
	}
}

func TestPickNextNoneEligible(t *testing.T) {
	s := NewSelector(rand.New(rand.NewSource(1)))

	// No tips for this segment at all, so the reset retry must not loop.
	tip, reset := s.PickNext(testCorpus(), Nivel4, WithoutDebt, []string{"t9"})
	if tip != nil || reset {
		t.Errorf("PickNext = (%v, %v), want (nil, false)", tip, reset)
	}
}

func TestPickNextUniform(t *testing.T) {
	s := NewSelector(rand.New(rand.NewSource(42)))
	corpus := testCorpus()

	seen := map[string]int{}
	for i := 0; i < 200; i++ {
		tip, _ := s.PickNext(corpus, Nivel1, WithDebt, nil)
		if tip == nil {
			t.Fatal("no tip picked")
		}
		seen[tip.ID]++
	}
	if seen["t1"] == 0 || seen["t2"] == 0 {
		t.Errorf("random pick never chose one candidate: %v", seen)
	}
	if seen["t3"] != 0 {
		t.Error("ineligible tip was picked")
	}
}
