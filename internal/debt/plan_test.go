package debt

import (
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	"plata/internal/core"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

// Three debts exercising both tie-breaks: B and C share the highest
// rate, A has the smallest payment but middling everything else.
func testDebts() []core.Debt {
	return []core.Debt{
		{ID: "a", Name: "Préstamo personal", Balance: dec("500"), AnnualRate: dec("10"), MinPayment: dec("50")},
		{ID: "b", Name: "Tarjeta oro", Balance: dec("2000"), AnnualRate: dec("25"), MinPayment: dec("100")},
		{ID: "c", Name: "Tarjeta básica", Balance: dec("100"), AnnualRate: dec("25"), MinPayment: dec("20")},
	}
}

func order(debts []core.Debt) []string {
	ids := make([]string, len(debts))
	for i, d := range debts {
		ids[i] = d.ID
	}
	return ids
}

func TestAvalancheOrder(t *testing.T) {
	got := order(Avalanche(testDebts()))
	// Highest rate first; equal rates keep source order (b before c).
	want := []string{"b", "c", "a"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("avalanche order = %v, want %v", got, want)
		}
	}
}

func TestSnowballOrder(t *testing.T) {
	got := order(Snowball(testDebts()))
	want := []string{"c", "a", "b"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("snowball order = %v, want %v", got, want)
		}
	}
}

func TestOrderingDoesNotMutateInput(t *testing.T) {
	debts := testDebts()
	Avalanche(debts)
	Snowball(debts)
	if debts[0].ID != "a" || debts[1].ID != "b" || debts[2].ID != "c" {
		t.Errorf("input slice reordered: %v", order(debts))
	}
}

func TestRenderPlan(t *testing.T) {
	plan := RenderPlan(Avalanche(testDebts()), dec("300"))

	if !strings.Contains(plan, "$170.00 al mes") {
		t.Errorf("plan missing total of minimum payments:\n%s", plan)
	}
	if !strings.Contains(plan, "($300.00)") {
		t.Errorf("plan missing extra monthly amount:\n%s", plan)
	}
	if !strings.Contains(plan, "Prioridad #1: Tarjeta oro (Saldo: $2,000.00, Tasa: 25.00%)") {
		t.Errorf("plan missing first priority line:\n%s", plan)
	}
	if !strings.Contains(plan, "Prioridad #3: Préstamo personal") {
		t.Errorf("plan missing last priority line:\n%s", plan)
	}
	if !strings.Contains(plan, "suma su pago mínimo al dinero extra") {
		t.Errorf("plan missing rollover instruction:\n%s", plan)
	}

	first := strings.Index(plan, "Tarjeta oro")
	second := strings.Index(plan, "Tarjeta básica")
	third := strings.Index(plan, "Préstamo personal")
	if !(first < second && second < third) {
		t.Errorf("priorities rendered out of order:\n%s", plan)
	}
}

func TestRenderPlanNoDebts(t *testing.T) {
	if got := RenderPlan(nil, dec("100")); got != NoDebtsMessage {
		t.Errorf("empty plan = %q, want %q", got, NoDebtsMessage)
	}
}
